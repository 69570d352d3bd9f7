package engine

import (
	"github.com/aclements/cilksan-go/internal/lockset"
	"github.com/aclements/cilksan-go/internal/shadowmem"
)

// These methods are the direct Go counterparts of the instrumentation-ABI
// callback table in spec §6; cmd/cilksan-go's trace replayer calls them one
// per parsed trace.Event.

// EnterCilkFunction handles a normal (non-helper) function entry.
func (c *Context) EnterCilkFunction() {
	c.Stack.EnterFull()
}

// EnterHelper handles entry into the outlined body of a spawned statement.
func (c *Context) EnterHelper() {
	if c.Stack.Depth() == 0 {
		c.die("enter_helper", "no enclosing frame")
		return
	}
	c.Stack.EnterHelper()
}

// Detach handles a spawn point in the currently running frame.
func (c *Context) Detach() {
	if c.Stack.Depth() == 0 {
		c.die("detach", "no active frame")
		return
	}
	c.Stack.Detach()
}

// DetachContinue handles the post-spawn continuation resuming.
func (c *Context) DetachContinue() {
	if c.Stack.Depth() == 0 {
		c.die("detach_continue", "no active frame")
		return
	}
	c.Stack.DetachContinue()
}

// Sync handles a sync point.
func (c *Context) Sync() {
	if c.Stack.Depth() == 0 {
		c.die("sync", "no active frame")
		return
	}
	c.Stack.Sync()
	c.Checker.Reads.ResetOccupancy()
	c.Checker.Writes.ResetOccupancy()
}

// ReturnFromDetach handles a spawned helper frame returning.
func (c *Context) ReturnFromDetach() {
	if c.Stack.Depth() < 2 {
		c.die("return_from_detach", "no parent frame to return into")
		return
	}
	c.Stack.ReturnFromDetach()
}

// Leave handles an ordinary (non-spawned) frame returning.
func (c *Context) Leave() {
	if c.Stack.Depth() == 0 {
		c.die("leave", "stack underflow")
		return
	}
	c.Stack.Leave()
}

// LoopBegin/LoopIterationBegin/LoopIterationEnd/LoopEnd handle cilk_for.
func (c *Context) LoopBegin()          { c.Stack.LoopBegin() }
func (c *Context) LoopIterationBegin() { c.Stack.LoopIterationBegin() }
func (c *Context) LoopIterationEnd()   { c.Stack.LoopIterationEnd() }
func (c *Context) LoopEnd()            { c.Stack.LoopEnd() }

// Read checks and records a read access, reporting whether it raced.
func (c *Context) Read(addr uintptr, size int, site uint64) bool {
	return c.Checker.CheckRead(accessArgs(addr, size, shadowmem.RW, c, site))
}

// Write checks and records a write access, reporting whether it raced.
func (c *Context) Write(addr uintptr, size int, site uint64) bool {
	return c.Checker.CheckWrite(accessArgs(addr, size, shadowmem.RW, c, site))
}

// Alloc records a fresh allocation, clearing any stale history for the
// range (spec §4.4).
func (c *Context) Alloc(addr uintptr, size int, site uint64) {
	c.Checker.CheckLifecycle(accessArgs(addr, size, shadowmem.Alloc, c, site))
}

// Realloc records a reallocation (spec §8 scenario S4). When the
// allocation moves, the whole old range is reclaimed as a plain free and
// the new range is established fresh. When it stays put but shrinks, the
// surviving prefix is re-established but the excised tail is reclaimed
// with a Realloc-typed marker, per SPEC_FULL.md's alloc-type
// classification notes -- so a later access to those now-invalid bytes
// that is still in-parallel with the realloc is reported as a race.
func (c *Context) Realloc(oldAddr uintptr, oldSize int, newAddr uintptr, newSize int, site uint64) {
	if oldAddr != newAddr {
		c.Checker.CheckLifecycle(accessArgs(oldAddr, oldSize, shadowmem.Free, c, site))
		c.Checker.CheckLifecycle(accessArgs(newAddr, newSize, shadowmem.Realloc, c, site))
		return
	}
	c.Checker.CheckLifecycle(accessArgs(newAddr, newSize, shadowmem.Realloc, c, site))
	if newSize < oldSize {
		excisedAddr := newAddr + uintptr(newSize)
		excisedSize := oldSize - newSize
		c.Checker.CheckReclaim(accessArgs(excisedAddr, excisedSize, shadowmem.Realloc, c, site))
	}
}

// Free records a deallocation.
func (c *Context) Free(addr uintptr, size int) {
	c.Checker.CheckLifecycle(accessArgs(addr, size, shadowmem.Free, c, 0))
}

// Lock/Unlock maintain the currently held lockset for data-race mode
// (spec §4.5). An unknown lock id (one never acquired through Lock) being
// unlocked is logged once and otherwise ignored, per spec §7's
// UnknownLock.
func (c *Context) Lock(id lockset.ID) {
	c.held = c.held.Plus(id)
}

func (c *Context) Unlock(id lockset.ID) {
	if !c.held.Contains(id) {
		c.onceLog("unlock-unknown", "unlock of lock %d that was never acquired", id)
		return
	}
	c.held = c.held.Minus(id)
}
