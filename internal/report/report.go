// Package report renders the detector's findings in the two output forms
// spec §6 defines: a human-readable report (optionally ANSI-colored) and
// the replay-mode trace format's "race" lines.
//
// Grounded on rtcheck/order.go's Check(w io.Writer) -- one paragraph per
// finding, call stacks indented beneath -- and extended with
// golang.org/x/term to auto-detect color support the way a real CLI tool
// would, instead of always-on or always-off ANSI escapes.
package report

import (
	"fmt"
	"io"
	"os"

	"golang.org/x/term"

	"github.com/aclements/cilksan-go/internal/race"
)

const (
	ansiRed   = "\x1b[31m"
	ansiReset = "\x1b[0m"
)

// ShouldColor resolves CILKSAN_COLOR_REPORT's three-way "always"/"never"/
// "auto" setting against whether w looks like a terminal.
func ShouldColor(mode string, w *os.File) bool {
	switch mode {
	case "always":
		return true
	case "never":
		return false
	default:
		return term.IsTerminal(int(w.Fd()))
	}
}

// Human writes a human-readable report of every race in m to w, in
// first-detected order, optionally colorizing each race's text (the final
// summary line is never colorized).
func Human(w io.Writer, m *race.Map, color bool) error {
	reports := m.Reports()
	if len(reports) == 0 {
		_, err := fmt.Fprintln(w, "cilksan: no races found")
		return err
	}
	for i, r := range reports {
		line := r.String()
		if color {
			line = ansiRed + line + ansiReset
		}
		if _, err := fmt.Fprintf(w, "--- race %d of %d ---\n%s\n", i+1, len(reports), line); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintf(w, "cilksan: %d distinct race(s) found\n", len(reports))
	return err
}

// Replay writes every race in m back out in the replay-mode trace format,
// for golden-file comparison in end-to-end tests.
func Replay(w io.Writer, m *race.Map) error {
	for _, r := range m.Reports() {
		if _, err := fmt.Fprintf(w, "race %#x %d %d\n", r.Addr, r.FirstSite, r.SecondSite); err != nil {
			return err
		}
	}
	return nil
}
