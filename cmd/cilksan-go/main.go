// Command cilksan-go replays a recorded instrumentation-ABI trace (spec §6's
// replay-mode log format) through the detector and reports any determinacy
// races it finds.
//
// It follows rtcheck/main.go's CLI shape: flag.StringVar/BoolVar into local
// variables at the top of main, a single withWriter-style output path, and
// a non-zero exit status when races are found (mirroring rtcheck's own
// "nonzero exit means the analysis found something").
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	shellwords "github.com/kballard/go-shellquote"

	"github.com/aclements/cilksan-go/internal/cilkenv"
	"github.com/aclements/cilksan-go/internal/engine"
	"github.com/aclements/cilksan-go/internal/report"
	"github.com/aclements/cilksan-go/internal/trace"
)

func main() {
	var (
		out         = flag.String("out", "", "write the human-readable report to this path instead of stderr")
		stats       = flag.Bool("stats", false, "set the CILKSAN_STATS option (no size histograms are recorded or printed)")
		checkAtomic = flag.Bool("check-atomics", false, "treat atomic read-modify-write ops as implicitly holding lock 0")
		color       = flag.String("color", "auto", `color the report: "always", "never", or "auto"`)
		replayCmd   = flag.String("replay-cmd", "", "shell command line that produces a trace on stdout, instead of reading -trace")
		debugSVG    = flag.String("debug-svg", "", "write an SVG dump of the live SP-bag forest to this path before exiting")
		tracePath   = flag.String("trace", "", "path to a replay-mode trace file (default: stdin)")
	)
	flag.Parse()

	cfg := cilkenv.FromEnviron()
	if *out != "" {
		cfg.Out = *out
	}
	if *stats {
		cfg.Stats = true
	}
	if *checkAtomic {
		cfg.CheckAtomics = true
	}
	if *color != "auto" {
		cfg.ColorReport = *color
	}

	events, err := loadTrace(*tracePath, *replayCmd)
	if err != nil {
		log.Fatalf("cilksan: %v", err)
	}

	ctx := engine.New(cfg)
	if err := ctx.Replay(events); err != nil {
		log.Fatalf("cilksan: %v", err)
	}

	if err := emitReport(ctx, cfg); err != nil {
		log.Fatalf("cilksan: %v", err)
	}

	if *debugSVG != "" {
		if err := writeDebugSVG(ctx, *debugSVG); err != nil {
			log.Printf("cilksan: writing debug SVG: %v", err)
		}
	}

	if ctx.Races.Len() > 0 {
		os.Exit(1)
	}
}

func loadTrace(path, replayCmdLine string) ([]trace.Event, error) {
	if replayCmdLine != "" {
		args, err := shellwords.Split(replayCmdLine)
		if err != nil {
			return nil, fmt.Errorf("parsing -replay-cmd: %w", err)
		}
		return runAndParse(args)
	}
	var f *os.File
	if path == "" || path == "-" {
		f = os.Stdin
	} else {
		var err error
		f, err = os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
	}
	return trace.Parse(f)
}

func emitReport(ctx *engine.Context, cfg cilkenv.Config) error {
	w := os.Stderr
	if cfg.Out != "" {
		f, err := os.Create(cfg.Out)
		if err != nil {
			return err
		}
		defer f.Close()
		return report.Human(f, ctx.Races, report.ShouldColor(cfg.ColorReport, f))
	}
	return report.Human(w, ctx.Races, report.ShouldColor(cfg.ColorReport, w))
}

func writeDebugSVG(ctx *engine.Context, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	report.DumpBagForest(f, ctx.Eng)
	return nil
}
