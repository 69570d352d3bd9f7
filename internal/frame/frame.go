// Package frame implements the per-function-invocation frame stack and the
// control-flow callback state machine that drives the SP-bags engine.
//
// Grounded on _examples/original_source/cilksan/frame_data.h (the
// EntryType/FrameType enums and FrameData_t fields) and cilksan.cpp's
// do_enter/do_detach/do_sync/do_leave family of handlers (read in full while
// surveying the corpus). Where frame_data.h uses a template-specialized
// FrameData_t, this package uses a plain struct plus the EntryType/FrameType
// tags and an explicit dispatch in Stack's methods, per the "enum and
// dispatch table instead of template specialization" re-architecture note.
package frame

import "github.com/aclements/cilksan-go/internal/spbag"

// EntryType records how control entered the current frame.
type EntryType uint8

const (
	// EntrySpawner is a normal function invocation that may itself spawn.
	EntrySpawner EntryType = iota
	// EntryHelper is the outlined body of a spawned statement, called
	// directly by the runtime rather than through a user call.
	EntryHelper
	// EntryDetacher is the frame that issued the detach (spawn) that
	// created the currently active helper/continuation pair.
	EntryDetacher
)

// Type records whether a frame tracks full bookkeeping or is a lightweight
// pass-through, and whether it represents a parallel-loop body.
type Type uint8

const (
	// Full frames track everything: S-bag, P-bag array, call stack.
	Full Type = iota
	// Shadow frames are lightweight stand-ins with no bags of their own
	// (see NewShadow). No Stack method pushes one, and nothing forwards
	// their accesses to an enclosing Full frame.
	Shadow
	// Loop frames additionally carry an Iter-bag used to recycle S-bags
	// across loop iterations of a cilk_for.
	Loop
)

// Frame is one live activation record in the detector's shadow call stack.
type Frame struct {
	Entry EntryType
	Kind  Type

	// Sbag is the current strand's series bag: every access made by the
	// strand currently running in this frame is tagged with this handle.
	Sbag spbag.Handle

	// Pbags accumulates the P-bags of every child spawned (and not yet
	// synced) from this frame, one per distinct sync region reachable
	// without an intervening sync.
	Pbags []spbag.Handle

	// Iterbag is set only for Loop frames: a versioned S-bag recycled
	// across iterations so that non-overlapping iterations don't pay to
	// allocate a fresh bag each time, per spec's Iter-bag design.
	Iterbag spbag.Handle
	// IterVersion increments each time a new logical iteration begins,
	// invalidating stale MemoryAccess records that still carry the prior
	// version even though they reference the same recycled bag handle.
	IterVersion uint16

	// StackLow/StackHigh bracket the native stack memory owned by this
	// frame (see SPEC_FULL.md's stack-frame bracket tracking). Zero when
	// unknown, e.g. for Shadow frames.
	StackLow, StackHigh uintptr

	// inIteration is set by IncVersion and cleared by Reset; no method
	// of this package reads it.
	inIteration bool
}

// NewFull creates a fresh Full frame seeded with its own singleton S-bag.
func NewFull(entry EntryType, eng *spbag.Engine) *Frame {
	return &Frame{Entry: entry, Kind: Full, Sbag: eng.NewSBag()}
}

// NewShadow creates a lightweight Shadow frame that has no bags of its own.
func NewShadow(entry EntryType) *Frame {
	return &Frame{Entry: entry, Kind: Shadow}
}

// PushPbag records a newly spawned child's P-bag against this frame's
// current sync region.
func (f *Frame) PushPbag(h spbag.Handle) {
	f.Pbags = append(f.Pbags, h)
}

// ClearPbags drops this frame's accumulated P-bags, e.g. after a sync has
// folded them all back into the S-bag.
func (f *Frame) ClearPbags() {
	f.Pbags = f.Pbags[:0]
}

// Reset reinitializes a frame for reuse (e.g. a recycled Loop iteration
// frame), mirroring frame_data.h's reset().
func (f *Frame) Reset(entry EntryType, sbag spbag.Handle) {
	f.Entry = entry
	f.Sbag = sbag
	f.ClearPbags()
	f.Iterbag = spbag.NoHandle
	f.IterVersion = 0
	f.inIteration = false
}

// CreateIterbag promotes the frame to a Loop frame and seeds its Iter-bag
// from the current S-bag, per frame_data.h's create_iterbag.
func (f *Frame) CreateIterbag(eng *spbag.Engine) {
	f.Kind = Loop
	f.Iterbag = f.Sbag
	eng.Retain(f.Iterbag)
	f.IterVersion = 1
}

// IncVersion bumps the Iter-bag generation, invalidating in-flight
// MemoryAccess records that still reference the old version even though the
// bag handle itself is being reused for the next iteration.
func (f *Frame) IncVersion() {
	f.IterVersion++
	f.inIteration = true
}

// CheckParallelIter reports whether two recorded versions of this frame's
// Iter-bag correspond to genuinely distinct loop iterations (and are
// therefore to be treated as parallel), mirroring
// frame_data.h's check_parallel_iter: same bag handle, different version.
func (f *Frame) CheckParallelIter(version uint16) bool {
	return f.Kind == Loop && version != f.IterVersion
}

// GetSbagForAccess returns the bag handle a memory access made "as of now"
// in this frame should be tagged with: the Iter-bag if this is a Loop frame,
// else the frame's plain S-bag.
func (f *Frame) GetSbagForAccess() spbag.Handle {
	if f.Kind == Loop {
		return f.Iterbag
	}
	return f.Sbag
}
