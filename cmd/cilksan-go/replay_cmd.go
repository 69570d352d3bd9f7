package main

import (
	"bytes"
	"fmt"
	"os/exec"

	"github.com/aclements/cilksan-go/internal/trace"
)

// runAndParse executes a trace-producing harness (args[0] with args[1:])
// and parses its stdout as a replay-mode trace, for the -replay-cmd flag.
func runAndParse(args []string) ([]trace.Event, error) {
	if len(args) == 0 {
		return nil, fmt.Errorf("empty -replay-cmd")
	}
	cmd := exec.Command(args[0], args[1:]...)
	var stdout bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = nil
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("running %q: %w", args[0], err)
	}
	return trace.Parse(&stdout)
}
