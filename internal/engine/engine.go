// Package engine wires the disjoint-set, frame-stack, shadow-memory,
// lockset and race-reporting packages together into the single global
// context a detector run needs, per spec §9's "one context struct for
// global singletons" design note.
package engine

import (
	"fmt"
	"os"

	"github.com/aclements/cilksan-go/internal/callstack"
	"github.com/aclements/cilksan-go/internal/cilkenv"
	"github.com/aclements/cilksan-go/internal/frame"
	"github.com/aclements/cilksan-go/internal/lockset"
	"github.com/aclements/cilksan-go/internal/race"
	"github.com/aclements/cilksan-go/internal/shadowmem"
	"github.com/aclements/cilksan-go/internal/spbag"
	"github.com/aclements/cilksan-go/internal/stats"
)

// Fault reports an internal invariant violation (spec §7's
// InstrumentationInvariantViolation / AllocationFailure): a condition that
// should be impossible given a well-formed instrumentation stream, and that
// the engine cannot recover from.
type Fault struct {
	Callback string
	Msg      string
}

func (f *Fault) Error() string {
	return fmt.Sprintf("cilksan: invariant violation in %s: %s", f.Callback, f.Msg)
}

// Context is the detector's single top-level state: the bag engine, the
// frame stack, the race checker, and the stats/lock bookkeeping every
// instrumentation callback mutates.
type Context struct {
	Config cilkenv.Config

	Eng     *spbag.Engine
	Stack   *frame.Stack
	Checker *race.Checker
	Races   *race.Map
	Stats   *stats.Registry
	Frames  *callstack.Table

	held     lockset.Set
	curStack *callstack.Frame

	onceLogged map[string]bool
}

// New builds a ready-to-use detector context.
func New(cfg cilkenv.Config) *Context {
	eng := spbag.NewEngine()
	races := race.NewMap()
	c := &Context{
		Config:     cfg,
		Eng:        eng,
		Stack:      frame.NewStack(eng),
		Checker:    race.NewChecker(eng, races),
		Races:      races,
		Stats:      stats.NewRegistry(),
		Frames:     callstack.NewTable(),
		held:       lockset.Empty,
		onceLogged: make(map[string]bool),
	}
	c.Checker.CheckAtomics = cfg.CheckAtomics
	return c
}

// die reports a Fault and aborts the process, mirroring the original
// engine's cilksan_assert/die: an instrumentation-invariant violation is
// not something a best-effort continuation can paper over, since every
// subsequent callback assumes the frame stack is well-formed.
func (c *Context) die(callback, format string, args ...interface{}) {
	f := &Fault{Callback: callback, Msg: fmt.Sprintf(format, args...)}
	fmt.Fprintln(os.Stderr, "================================================================")
	fmt.Fprintln(os.Stderr, f.Error())
	fmt.Fprintln(os.Stderr, "================================================================")
	os.Exit(1)
}

// onceLog logs msg at most once per distinct key, for spec §7's
// UnknownLock/UnknownLibraryCall warnings, which the original interposer
// reports once per call site and then ignores.
func (c *Context) onceLog(key, format string, args ...interface{}) {
	if c.onceLogged[key] {
		return
	}
	c.onceLogged[key] = true
	fmt.Fprintf(os.Stderr, "cilksan: warning: "+format+"\n", args...)
}

// RegisterReduce implements the reducer-hyperobject model from
// SPEC_FULL.md §3: a reducer registration is recorded as a single write to
// its leftmost view at registration time, and nothing more -- the body of
// the reduce operation itself is not instrumented.
func (c *Context) RegisterReduce(addr uintptr, size int, site uint64) {
	c.Checker.CheckWrite(accessArgs(addr, size, shadowmem.RW, c, site))
}

func accessArgs(addr uintptr, size int, typ shadowmem.AccessType, c *Context, site uint64) race.Access {
	f := c.Stack.Top()
	bag := spbag.NoHandle
	var version uint16
	var loopIter bool
	if f != nil {
		bag = f.GetSbagForAccess()
		version = f.IterVersion
		loopIter = f.Kind == frame.Loop
	}
	return race.Access{
		Addr: addr, Size: size, Type: typ,
		Bag: bag, Version: version, Site: site,
		Locks: c.held, Stack: c.curStack,
		LoopIter: loopIter,
	}
}
