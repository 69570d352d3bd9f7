package spbag

import "testing"

func TestSameSetAfterLink(t *testing.T) {
	e := NewEngine()
	a := e.NewSBag()
	b := e.NewSBag()
	if e.SameSet(a, b) {
		t.Fatal("fresh singleton bags should not be in the same set")
	}
	e.Link(a, b)
	if !e.SameSet(a, b) {
		t.Fatal("bags should be in the same set after Link")
	}
}

func TestIsParallelThroughPBag(t *testing.T) {
	e := NewEngine()
	parent := e.NewSBag()
	child1 := e.NewSBag()
	child2 := e.NewSBag()

	// Simulate a spawn: the parent's continuation and the spawned child
	// both get folded into a fresh P-bag.
	pbag := e.NewPBag()
	e.Link(pbag, parent)
	e.Link(pbag, child1)
	e.SetKind(pbag, PBag)

	_ = child2
	if !e.IsParallel(parent, child1) {
		t.Fatal("strands joined into a P-bag must be reported parallel")
	}
}

func TestCombineProducesSBag(t *testing.T) {
	e := NewEngine()
	p := e.NewPBag()
	s := e.NewSBag()
	root := e.Combine(s, p)
	if e.Kind(root) != SBag {
		t.Fatal("Combine must leave the merged set as an S-bag")
	}
	if e.IsParallel(s, p) {
		t.Fatal("after Combine, the two inputs must no longer be parallel")
	}
}

func TestFindIsIdempotent(t *testing.T) {
	e := NewEngine()
	a := e.NewSBag()
	b := e.NewSBag()
	c := e.NewSBag()
	e.Link(a, b)
	e.Link(b, c)
	root1 := e.Find(a)
	root2 := e.Find(c)
	if root1 != root2 {
		t.Fatalf("expected a single root after chained links, got %v and %v", root1, root2)
	}
	if e.Find(root1) != root1 {
		t.Fatal("Find on a root must return itself")
	}
}

func TestReleaseRecyclesHandle(t *testing.T) {
	e := NewEngine()
	a := e.NewSBag()
	before := e.InUse()
	e.Release(a)
	if e.InUse() != before-1 {
		t.Fatal("Release should reduce InUse count")
	}
	b := e.NewSBag()
	if uint32(b) == 0 {
		t.Fatal("NoHandle must never be handed out by NewSBag")
	}
}
