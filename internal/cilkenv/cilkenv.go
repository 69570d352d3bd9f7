// Package cilkenv parses the environment variables spec §6 defines, the
// same way rtcheck/main.go parses its flag.* variables once at the top of
// main into a small config struct -- except these come from the process
// environment rather than the command line, since the real instrumentation
// ABI this detector stands in for is invoked from inside an already-running
// binary, not given its own argv.
package cilkenv

import (
	"os"
	"strconv"
)

// Config holds the resolved CILKSAN_* settings for one run.
type Config struct {
	// Out is the path CILKSAN_OUT names for the human-readable report,
	// or "" to mean stderr.
	Out string
	// Stats mirrors CILKSAN_STATS. Nothing in this repository reads it:
	// no size-histogram statistics are recorded or emitted at exit.
	Stats bool
	// CheckAtomics mirrors CILKSAN_CHECK_ATOMICS: treat atomic
	// read-modify-write operations as implicitly holding lock id 0.
	CheckAtomics bool
	// ColorReport mirrors CILKSAN_COLOR_REPORT: "always"/"never"/"auto".
	ColorReport string
	// Debugger holds the raw value of CILKSAN_DEBUGGER. Nothing in this
	// repository reads it: no debugger is launched and no trap is raised
	// when a race is detected.
	Debugger string
	// NWorkers mirrors CILK_NWORKERS, informational only: the detector
	// itself always runs single-threaded (spec §5), but a report may
	// want to note how many workers a replayed run claimed to use.
	NWorkers int
	// ForceReduce mirrors CILK_FORCE_REDUCE.
	ForceReduce bool
}

// FromEnviron resolves a Config from the process environment, applying the
// defaults spec §6 specifies for each variable when unset.
func FromEnviron() Config {
	c := Config{
		Out:          os.Getenv("CILKSAN_OUT"),
		Stats:        boolEnv("CILKSAN_STATS", false),
		CheckAtomics: boolEnv("CILKSAN_CHECK_ATOMICS", false),
		ColorReport:  envOr("CILKSAN_COLOR_REPORT", "auto"),
		Debugger:     os.Getenv("CILKSAN_DEBUGGER"),
		NWorkers:     intEnv("CILK_NWORKERS", 1),
		ForceReduce:  boolEnv("CILK_FORCE_REDUCE", false),
	}
	return c
}

func envOr(name, def string) string {
	if v, ok := os.LookupEnv(name); ok && v != "" {
		return v
	}
	return def
}

func boolEnv(name string, def bool) bool {
	v, ok := os.LookupEnv(name)
	if !ok {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func intEnv(name string, def int) int {
	v, ok := os.LookupEnv(name)
	if !ok {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}
