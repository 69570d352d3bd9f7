// Package trace implements the line-oriented instrumentation-callback
// trace format spec §6 calls "replay mode": a way to drive the detector
// from a recorded log instead of a live compiler-instrumented binary, and
// to render the races the detector finds back out in the same line format
// for golden-file testing.
//
// Grounded on go-weave/weave/trace.go's traceEntry/Tracef shape (tag plus
// freeform fields, one entry per line) -- reused here for an on-disk wire
// format rather than an in-memory debug trace.
package trace

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Kind identifies which instrumentation-ABI callback a trace line invokes.
type Kind string

const (
	KindEnter              Kind = "enter"
	KindEnterHelper        Kind = "enter_helper"
	KindDetach             Kind = "detach"
	KindDetachContinue     Kind = "detach_continue"
	KindSync               Kind = "sync"
	KindLeave              Kind = "leave"
	KindReturnFromDetach   Kind = "return_from_detach"
	KindLoopBegin          Kind = "loop_begin"
	KindLoopIterationBegin Kind = "loop_iteration_begin"
	KindLoopIterationEnd   Kind = "loop_iteration_end"
	KindLoopEnd            Kind = "loop_end"
	KindRead               Kind = "read"
	KindWrite              Kind = "write"
	KindAlloc              Kind = "alloc"
	KindFree               Kind = "free"
	KindRealloc            Kind = "realloc"
	KindLock               Kind = "lock"
	KindUnlock             Kind = "unlock"
)

// Event is one parsed trace line.
type Event struct {
	Kind       Kind
	Addr       uint64
	OldAddr    uint64
	OldSize    int
	Size       int
	Site       uint64
	LockID     uint32
	LineNumber int
}

// Parse reads a replay-mode trace from r, one event per non-blank,
// non-comment ("#"-prefixed) line.
func Parse(r io.Reader) ([]Event, error) {
	var events []Event
	sc := bufio.NewScanner(r)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		ev, err := parseLine(line)
		if err != nil {
			return nil, fmt.Errorf("trace line %d: %w", lineNo, err)
		}
		ev.LineNumber = lineNo
		events = append(events, ev)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return events, nil
}

func parseLine(line string) (Event, error) {
	fields := strings.Fields(line)
	kind := Kind(fields[0])
	args := fields[1:]
	switch kind {
	case KindEnter, KindEnterHelper, KindDetach, KindDetachContinue, KindSync,
		KindLeave, KindReturnFromDetach, KindLoopBegin, KindLoopIterationBegin,
		KindLoopIterationEnd, KindLoopEnd:
		return Event{Kind: kind}, nil
	case KindRead, KindWrite:
		if len(args) != 3 {
			return Event{}, fmt.Errorf("%s wants 3 args, got %d", kind, len(args))
		}
		addr, size, site, err := parseAddrSizeSite(args)
		return Event{Kind: kind, Addr: addr, Size: size, Site: site}, err
	case KindAlloc:
		if len(args) != 3 {
			return Event{}, fmt.Errorf("alloc wants 3 args, got %d", len(args))
		}
		addr, size, site, err := parseAddrSizeSite(args)
		return Event{Kind: kind, Addr: addr, Size: size, Site: site}, err
	case KindFree:
		if len(args) != 2 {
			return Event{}, fmt.Errorf("free wants 2 args, got %d", len(args))
		}
		addr, err := parseHex(args[0])
		if err != nil {
			return Event{}, err
		}
		size, err := strconv.Atoi(args[1])
		return Event{Kind: kind, Addr: addr, Size: size}, err
	case KindRealloc:
		// realloc <old-addr> <old-size> <new-addr> <new-size> <site>: the
		// old size is required to detect an in-place shrink, whose excised
		// tail the engine must treat as implicitly freed (spec §8's S4).
		if len(args) != 5 {
			return Event{}, fmt.Errorf("realloc wants 5 args, got %d", len(args))
		}
		oldAddr, err := parseHex(args[0])
		if err != nil {
			return Event{}, err
		}
		oldSize, err := strconv.Atoi(args[1])
		if err != nil {
			return Event{}, err
		}
		addr, size, site, err := parseAddrSizeSite(args[2:])
		return Event{Kind: kind, OldAddr: oldAddr, OldSize: oldSize, Addr: addr, Size: size, Site: site}, err
	case KindLock, KindUnlock:
		if len(args) != 1 {
			return Event{}, fmt.Errorf("%s wants 1 arg, got %d", kind, len(args))
		}
		id, err := strconv.ParseUint(args[0], 10, 32)
		return Event{Kind: kind, LockID: uint32(id)}, err
	default:
		return Event{}, fmt.Errorf("unknown trace event %q", fields[0])
	}
}

func parseHex(s string) (uint64, error) {
	s = strings.TrimPrefix(s, "0x")
	return strconv.ParseUint(s, 16, 64)
}

func parseAddrSizeSite(args []string) (addr uint64, size int, site uint64, err error) {
	addr, err = parseHex(args[0])
	if err != nil {
		return
	}
	sz, err := strconv.Atoi(args[1])
	if err != nil {
		return
	}
	site, err = strconv.ParseUint(args[2], 10, 64)
	return addr, sz, site, err
}

// WriteRace renders a detected race in the replay-mode log format spec §6
// defines: "race <addr-hex> <id1-dec> <id2-dec>".
func WriteRace(w io.Writer, addr uint64, site1, site2 uint64) error {
	_, err := fmt.Fprintf(w, "race %#x %d %d\n", addr, site1, site2)
	return err
}
