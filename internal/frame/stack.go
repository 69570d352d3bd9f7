package frame

import "github.com/aclements/cilksan-go/internal/spbag"

// Stack is the detector's live shadow call stack: one Frame per currently
// active function activation, plus the bag engine every transition updates.
// Its methods are the direct counterparts of the instrumentation-ABI
// callbacks in SPEC_FULL.md/spec.md §6 (enter_cilk_function, detach,
// detach_continue, sync, leave, loop_begin/end, ...), grounded callback by
// callback on cilksan.cpp's do_enter/do_detach/do_sync/do_leave family.
type Stack struct {
	Eng    *spbag.Engine
	frames []*Frame
}

// NewStack creates an empty stack; the first EnterFull call seeds the root
// frame (the program's entry point).
func NewStack(eng *spbag.Engine) *Stack {
	return &Stack{Eng: eng}
}

// Top returns the currently active frame, or nil if the stack is empty.
func (s *Stack) Top() *Frame {
	if len(s.frames) == 0 {
		return nil
	}
	return s.frames[len(s.frames)-1]
}

// Depth reports how many frames are live.
func (s *Stack) Depth() int { return len(s.frames) }

// EnterFull pushes a Full frame for a normal (non-helper) function entry.
func (s *Stack) EnterFull() *Frame {
	f := NewFull(EntrySpawner, s.Eng)
	s.frames = append(s.frames, f)
	return f
}

// EnterHelper pushes a Full frame for the outlined body of a spawned
// statement. It inherits the caller's current S-bag as its own starting
// point: until this helper itself detaches further, it continues the same
// strand that called it, per do_enter_helper.
func (s *Stack) EnterHelper() *Frame {
	caller := s.Top()
	f := &Frame{Entry: EntryHelper, Kind: Full, Sbag: caller.GetSbagForAccess()}
	s.Eng.Retain(f.Sbag)
	s.frames = append(s.frames, f)
	return f
}

// Detach marks the current frame as having spawned: the strand that was
// running splits into a detached child (which runs next, in a freshly
// entered helper frame that inherits the frame's current S-bag handle) and
// a continuation (which keeps running in this frame once DetachContinue
// gives it a fresh S-bag of its own). Folding the frame's current S-bag
// into a freshly created P-bag marks that set as parallel, so the
// continuation's not-yet-created S-bag -- which is never linked into this
// P-bag until the next Sync -- is reported parallel with it, per do_detach.
func (s *Stack) Detach() {
	f := s.Top()
	f.Entry = EntryDetacher
	pbag := s.Eng.NewPBag()
	root := s.Eng.Link(pbag, f.Sbag)
	s.Eng.SetKind(root, spbag.PBag)
}

// DetachContinue gives the post-spawn continuation of the detaching frame a
// fresh S-bag to run under. The P-bag Detach folded the old S-bag into
// isn't referenced from Pbags here -- it's the detached child (running in
// a helper frame that still holds the old handle) that later hands its
// reference to Pbags via ReturnFromDetach, once the child strand is known
// to have finished. Mirrors do_detach_continue.
func (s *Stack) DetachContinue() {
	f := s.Top()
	newSbag := s.Eng.NewSBag()
	s.Eng.Release(f.Sbag)
	f.Sbag = newSbag
}

// Sync folds every P-bag this frame has accumulated since its last sync
// back into its current S-bag, turning the merged result back into a plain
// S-bag: everything that was running in parallel is now known-joined.
// Mirrors do_sync/complete_sync.
func (s *Stack) Sync() {
	f := s.Top()
	for _, p := range f.Pbags {
		f.Sbag = s.Eng.Combine(f.Sbag, p)
		s.Eng.Release(p)
	}
	f.ClearPbags()
	f.Entry = EntrySpawner
}

// LoopBegin promotes the current frame to a Loop frame ahead of a
// cilk_for, seeding its Iter-bag. Mirrors a cilk_for's implicit
// create_iterbag at loop entry.
func (s *Stack) LoopBegin() {
	s.Top().CreateIterbag(s.Eng)
}

// LoopIterationBegin starts a new loop iteration: the Iter-bag's version is
// bumped so that accesses tagged with the previous version are now known to
// belong to a logically distinct (and, once the iteration itself spawns,
// possibly concurrent) iteration.
func (s *Stack) LoopIterationBegin() {
	s.Top().IncVersion()
}

// LoopIterationEnd folds any P-bags the just-finished iteration accumulated
// back into the Iter-bag, the same join Sync performs for ordinary spawns,
// keeping the Iter-bag itself (rather than replacing it) so the next
// iteration can still be compared against it by version.
func (s *Stack) LoopIterationEnd() {
	f := s.Top()
	for _, p := range f.Pbags {
		f.Iterbag = s.Eng.Combine(f.Iterbag, p)
		s.Eng.Release(p)
	}
	f.ClearPbags()
}

// LoopEnd closes out a cilk_for: the frame's plain S-bag becomes the
// Iter-bag's final state, and the frame reverts to an ordinary Full frame.
func (s *Stack) LoopEnd() {
	f := s.Top()
	s.Eng.Release(f.Sbag)
	f.Sbag = f.Iterbag
	f.Iterbag = spbag.NoHandle
	f.Kind = Full
}

// ReturnFromDetach handles a helper frame's return where that frame was
// itself created by a Detach: the helper frame is popped and its ending
// S-bag is appended to the pending P-bags of the frame directly below it,
// to be combined at that frame's next Sync. Mirrors return_from_detach's distinct
// handling versus a plain call return in cilksan.cpp's do_leave.
func (s *Stack) ReturnFromDetach() {
	child := s.pop()
	parent := s.Top()
	// Ownership of child.Sbag's reference transfers directly to the
	// parent's pending P-bag list; no extra retain/release needed.
	parent.PushPbag(child.Sbag)
}

// Leave pops the current frame. If it is a plain Full/Shadow frame entered
// by ordinary call (not a spawned helper), its S-bag is simply released
// into the caller's strand; if it was entered as a helper created by a
// Detach, callers must use ReturnFromDetach instead so the child's
// contribution is folded into the parent's pending P-bags rather than
// silently discarded.
func (s *Stack) Leave() {
	f := s.pop()
	s.Eng.Release(f.Sbag)
	if f.Iterbag != spbag.NoHandle {
		s.Eng.Release(f.Iterbag)
	}
}

func (s *Stack) pop() *Frame {
	n := len(s.frames)
	f := s.frames[n-1]
	s.frames = s.frames[:n-1]
	return f
}
