// Package race implements the race-check-and-update protocol (spec §4.4)
// and the race-report deduplication table (spec §4.6).
//
// Grounded on cilksan.cpp's record_mem_helper fast/slow path dispatch and
// race_detect_update.h's parallel-check-against-opposite-dictionary logic
// (both read in full from _examples/original_source/cilksan while
// surveying the corpus), and on rtcheck/order.go's LockOrder.Check for the
// human-readable report rendering style this package's Report.String
// follows (one line per race, call stacks indented beneath).
package race

import (
	"fmt"
	"strings"

	"github.com/aclements/cilksan-go/internal/callstack"
	"github.com/aclements/cilksan-go/internal/shadowmem"
)

// Report describes one detected determinacy race between two accesses to
// the same address.
type Report struct {
	Addr       uintptr
	FirstType  shadowmem.AccessType
	SecondType shadowmem.AccessType
	FirstSite, SecondSite   uint64
	FirstStack, SecondStack *callstack.Frame

	// AllocSite is the allocation site covering Addr at the time of the
	// race (spec §3's alloc_site_or_none, looked up from the Allocs
	// dictionary), valid only when HasAllocSite is true.
	AllocSite    uint64
	HasAllocSite bool
}

// key identifies a race for deduplication purposes: spec §4.6 says an
// existing bucket matches on "same pair of typed ids regardless of order,
// same alloc-site" -- so the key is the unordered pair of sites plus the
// alloc-site, collapsing A||B vs B||A mirror pairs.
type key struct {
	lo, hi       uint64
	allocSite    uint64
	hasAllocSite bool
}

func keyFor(a, b uint64, allocSite uint64, hasAllocSite bool) key {
	if a > b {
		a, b = b, a
	}
	return key{lo: a, hi: b, allocSite: allocSite, hasAllocSite: hasAllocSite}
}

// Map deduplicates race reports across the whole run.
type Map struct {
	seen map[key]*Report
	// order preserves first-seen order for deterministic report output.
	order []key
}

// NewMap creates an empty race-report map.
func NewMap() *Map {
	return &Map{seen: make(map[key]*Report)}
}

// Add records a race if it is not already known under its A||B/B||A key,
// returning true if this is a newly seen race.
func (m *Map) Add(r Report) bool {
	k := keyFor(r.FirstSite, r.SecondSite, r.AllocSite, r.HasAllocSite)
	if _, ok := m.seen[k]; ok {
		return false
	}
	m.seen[k] = &r
	m.order = append(m.order, k)
	return true
}

// Reports returns every distinct race found, in first-seen order.
func (m *Map) Reports() []Report {
	out := make([]Report, 0, len(m.order))
	for _, k := range m.order {
		out = append(out, *m.seen[k])
	}
	return out
}

// Len reports how many distinct races have been recorded.
func (m *Map) Len() int { return len(m.seen) }

// String renders a race in the human-readable report format from spec §6:
// a one-line summary followed by each side's call stack, indented.
func (r Report) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "race on %#x: %s (site %d) || %s (site %d)\n",
		r.Addr, r.FirstType, r.FirstSite, r.SecondType, r.SecondSite)
	if r.HasAllocSite {
		fmt.Fprintf(&b, "  allocation context: site %d\n", r.AllocSite)
	}
	writeStack(&b, "  first access:  ", r.FirstStack)
	writeStack(&b, "  second access: ", r.SecondStack)
	return b.String()
}

func writeStack(b *strings.Builder, prefix string, f *callstack.Frame) {
	if f == nil {
		fmt.Fprintf(b, "%s(no call stack recorded)\n", prefix)
		return
	}
	sites := f.Flatten()
	for i := len(sites) - 1; i >= 0; i-- {
		fmt.Fprintf(b, "%s  at site %d\n", prefix, sites[i])
	}
}
