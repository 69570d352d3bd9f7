package race

import (
	"github.com/aclements/cilksan-go/internal/callstack"
	"github.com/aclements/cilksan-go/internal/lockset"
	"github.com/aclements/cilksan-go/internal/shadowmem"
	"github.com/aclements/cilksan-go/internal/spbag"
)

// MAAPHint is a compiler-supplied "may-access-alias-in-parallel" hint
// (SPEC_FULL.md §3): when the compiler has already proven a particular
// access site can never alias with anything running in parallel with it,
// it pushes NoAlias so the checker can skip the shadow-memory work
// entirely for that site.
type MAAPHint uint8

const (
	MayAlias MAAPHint = iota
	NoAlias
)

// MAAPStack is a tiny per-access-site stack of hints, pushed by
// set_MAAP and consulted (and popped) by get_MAAP, per cilksan_internal.h.
type MAAPStack struct {
	hints []MAAPHint
}

func (s *MAAPStack) Push(h MAAPHint) { s.hints = append(s.hints, h) }

// Pop returns MayAlias (the conservative default) if the stack is empty.
func (s *MAAPStack) Pop() MAAPHint {
	if len(s.hints) == 0 {
		return MayAlias
	}
	n := len(s.hints) - 1
	h := s.hints[n]
	s.hints = s.hints[:n]
	return h
}

// Access describes one memory operation the checker is asked to validate
// and record.
type Access struct {
	Addr    uintptr
	Size    int
	Type    shadowmem.AccessType
	Bag     spbag.Handle
	Version uint16
	Site    uint64
	Locks   lockset.Set
	Stack   *callstack.Frame

	// LoopIter is true when Bag is the current frame's Iter-bag (spec
	// §4.2/4.4): accesses tagged with the same Iter-bag handle but a
	// different Version belong to distinct, and therefore in-parallel,
	// loop iterations even though the handle's find-root never changes.
	LoopIter bool
}

// Checker runs the race-check-and-update protocol (spec §4.4) over a triple
// of shadow-memory dictionaries -- reads, writes, and allocs -- plus a
// Locker for data-race-mode lockset suppression.
type Checker struct {
	Eng    *spbag.Engine
	Reads  *shadowmem.Dict
	Writes *shadowmem.Dict
	Allocs *shadowmem.Dict
	Locker *lockset.Locker
	Maap   MAAPStack

	// CheckAtomics mirrors CILKSAN_CHECK_ATOMICS: when false, accesses
	// tagged as atomic (callers signal this by using lockset.AtomicLockID
	// in Locks) are exempted from lockset suppression, matching the
	// original engine's default of not second-guessing atomics.
	CheckAtomics bool

	races  *Map
	stacks map[uintptr]*callstack.Frame
}

// NewChecker builds a Checker sharing the given bag engine and reporting
// into m.
func NewChecker(eng *spbag.Engine, m *Map) *Checker {
	return &Checker{
		Eng:    eng,
		Reads:  shadowmem.NewDict(),
		Writes: shadowmem.NewDict(),
		Allocs: shadowmem.NewDict(),
		Locker: lockset.NewLocker(),
		races:  m,
		stacks: make(map[uintptr]*callstack.Frame),
	}
}

// CheckLifecycle runs an Alloc/Realloc/Free/StackFree access through the
// protocol (spec §4.4's "alloc/free handling"): Alloc/Realloc clears
// Reads/Writes for the range (any history from a prior tenant of this
// address range is no longer relevant) and records an entry into Allocs,
// overwriting whatever was there, establishing the range as live without
// itself being able to race (Testable Property #3's alloc/free bracketing).
// Free/StackFree instead reclaims the range: see CheckReclaim.
func (c *Checker) CheckLifecycle(a Access) {
	switch a.Type {
	case shadowmem.Alloc, shadowmem.Realloc:
		c.Writes.Clear(a.Addr, a.Size)
		c.Reads.Clear(a.Addr, a.Size)
		c.Locker.Forget(a.Addr)
		c.Allocs.Record(a.Addr, a.Size, toRecord(a))
	case shadowmem.Free, shadowmem.StackFree:
		c.CheckReclaim(a)
	}
}

// CheckReclaim takes a range back from the live allocation -- an ordinary
// free, or a realloc's narrowed-off tail (spec §8 scenario S4). The reclaim
// is itself checked as an ordinary write against Reads and Writes first, so
// a strand that still has the range live in parallel (e.g. a spawned child
// that hasn't synced back yet) is reported as racing against the reclaim
// right away, not only on some later access that may never come. Reads,
// Writes and Allocs are then cleared and a's own access type is recorded as
// the new write-of-record, so a still-later in-parallel access is also
// caught, carrying that type: Free for record_free (the use-after-free
// signature), Realloc for a shrinking realloc's excised bytes.
func (c *Checker) CheckReclaim(a Access) bool {
	raced := c.checkAgainst(c.Reads, a)
	raced = c.checkAgainst(c.Writes, a) || raced
	c.Writes.Clear(a.Addr, a.Size)
	c.Reads.Clear(a.Addr, a.Size)
	c.Allocs.Clear(a.Addr, a.Size)
	c.Locker.Forget(a.Addr)
	c.Writes.Record(a.Addr, a.Size, toRecord(a))
	c.stacks[a.Addr] = a.Stack
	return raced
}

// CheckRead runs a read access: conflicts only with a prior write.
func (c *Checker) CheckRead(a Access) bool {
	if c.Maap.Pop() == NoAlias {
		c.Reads.Record(a.Addr, a.Size, toRecord(a))
		return false
	}
	raced := c.checkAgainst(c.Writes, a)
	c.Reads.Record(a.Addr, a.Size, toRecord(a))
	c.Locker.RecordRead(a.Addr, a.Locks)
	c.stacks[a.Addr] = a.Stack
	return raced
}

// CheckWrite runs a write access: conflicts with a prior read or write.
func (c *Checker) CheckWrite(a Access) bool {
	if c.Maap.Pop() == NoAlias {
		c.Writes.Record(a.Addr, a.Size, toRecord(a))
		return false
	}
	raced := c.checkAgainst(c.Reads, a)
	raced = c.checkAgainst(c.Writes, a) || raced
	c.Writes.Record(a.Addr, a.Size, toRecord(a))
	c.Locker.RecordWrite(a.Addr, a.Locks)
	c.stacks[a.Addr] = a.Stack
	return raced
}

func toRecord(a Access) shadowmem.MemoryAccess {
	return shadowmem.MemoryAccess{Bag: a.Bag, Version: a.Version, Site: a.Site, Type: a.Type}
}

// checkAgainst is the heart of the protocol (spec §4.4 steps 2a/3a): look up
// every entry currently recorded against dict covering a's whole
// [addr, addr+size) range and, for each one that was made by a strand the
// bag engine now says ran in parallel with a's strand, and whose lockset
// doesn't share a common lock with a's, report a race. A wide access can
// uncover more than one prior entry (different grains/lines), and every one
// of them must be checked, not just whatever happens to cover the first
// byte.
func (c *Checker) checkAgainst(dict *shadowmem.Dict, a Access) bool {
	raced := false
	held := a.Locks
	if !c.CheckAtomics {
		held = held.Minus(lockset.AtomicLockID)
	}
	for _, prior := range dict.QueryRange(a.Addr, a.Size) {
		if !c.parallel(prior, a) {
			continue
		}
		if held.Len() > 0 && c.Locker.Suppressed(a.Addr, held) {
			continue
		}
		alloc, hasAlloc := c.Allocs.Query(a.Addr)
		c.races.Add(Report{
			Addr:         a.Addr,
			FirstType:    prior.Type,
			SecondType:   a.Type,
			FirstSite:    prior.Site,
			SecondSite:   a.Site,
			FirstStack:   c.stacks[a.Addr],
			SecondStack:  a.Stack,
			AllocSite:    alloc.Site,
			HasAllocSite: hasAlloc && alloc.Valid(),
		})
		raced = true
	}
	return raced
}

// parallel implements spec §4.4's "in-parallel" definition: the LCA bag of
// prior and a's current strand is a P-bag, OR -- for loop iterations, which
// reuse one Iter-bag handle across an unbounded number of iterations rather
// than growing the union-find forest by one S-bag per iteration -- the two
// accesses share that same Iter-bag handle but were stamped with different
// versions, meaning they belong to logically distinct iterations that Cilk
// is free to run concurrently. Without this second clause, every access in
// a parallel loop would compare equal-root-therefore-in-series against
// itself no matter how many iterations ran, per frame.Frame.CheckParallelIter.
func (c *Checker) parallel(prior shadowmem.MemoryAccess, a Access) bool {
	if c.Eng.IsParallel(prior.Bag, a.Bag) {
		return true
	}
	return a.LoopIter && prior.Bag == a.Bag && prior.Version != a.Version
}
