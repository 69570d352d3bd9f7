package frame

import (
	"testing"

	"github.com/aclements/cilksan-go/internal/spbag"
)

func TestDetachProducesParallelStrands(t *testing.T) {
	eng := spbag.NewEngine()
	s := NewStack(eng)
	s.EnterFull()

	s.Detach()
	helper := s.EnterHelper()
	childSbag := helper.Sbag

	s.ReturnFromDetach()
	s.DetachContinue()
	continuation := s.Top().Sbag

	if !eng.IsParallel(continuation, childSbag) {
		t.Fatal("continuation and detached child must be parallel before sync")
	}
}

func TestSyncJoinsBackToSeries(t *testing.T) {
	eng := spbag.NewEngine()
	s := NewStack(eng)
	s.EnterFull()
	s.Detach()

	s.EnterHelper()
	s.ReturnFromDetach()
	s.DetachContinue()
	continuation := s.Top().Sbag

	s.Sync()

	after := s.Top().Sbag
	if eng.IsParallel(continuation, after) {
		t.Fatal("after Sync, the joined strand must not be parallel with its own prior continuation")
	}
}

func TestLoopIterationVersionsDiffer(t *testing.T) {
	eng := spbag.NewEngine()
	s := NewStack(eng)
	f := s.EnterFull()
	s.LoopBegin()

	s.LoopIterationBegin()
	v1 := f.IterVersion
	s.LoopIterationEnd()

	s.LoopIterationBegin()
	v2 := f.IterVersion

	if v1 == v2 {
		t.Fatal("successive loop iterations must carry distinct versions")
	}
	if !f.CheckParallelIter(v1) {
		t.Fatal("a stale version from a prior iteration must be reported non-current")
	}
}
