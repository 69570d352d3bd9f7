package engine

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"golang.org/x/tools/txtar"

	"github.com/aclements/cilksan-go/internal/cilkenv"
	"github.com/aclements/cilksan-go/internal/report"
	"github.com/aclements/cilksan-go/internal/trace"
)

// TestGoldenScenarios replays every testdata/*.txtar fixture (spec §8's
// end-to-end scenarios) and checks the races found against the archive's
// races.golden file, rendered in the replay-mode trace format.
func TestGoldenScenarios(t *testing.T) {
	matches, err := filepath.Glob(filepath.Join("..", "..", "testdata", "*.txtar"))
	if err != nil {
		t.Fatal(err)
	}
	if len(matches) == 0 {
		t.Fatal("no testdata fixtures found")
	}
	for _, path := range matches {
		path := path
		t.Run(filepath.Base(path), func(t *testing.T) {
			data, err := os.ReadFile(path)
			if err != nil {
				t.Fatal(err)
			}
			ar := txtar.Parse(data)
			var traceData, golden []byte
			for _, f := range ar.Files {
				switch f.Name {
				case "trace":
					traceData = f.Data
				case "races.golden":
					golden = f.Data
				}
			}
			events, err := trace.Parse(bytes.NewReader(traceData))
			if err != nil {
				t.Fatal(err)
			}
			ctx := New(cilkenv.Config{})
			if err := ctx.Replay(events); err != nil {
				t.Fatal(err)
			}
			var out bytes.Buffer
			if err := report.Replay(&out, ctx.Races); err != nil {
				t.Fatal(err)
			}
			if out.String() != string(golden) {
				t.Fatalf("races mismatch:\ngot:\n%s\nwant:\n%s", out.String(), golden)
			}
		})
	}
}
