package lockset

import "testing"

func TestPlusMinusDedup(t *testing.T) {
	s := Empty.Plus(5).Plus(3).Plus(5)
	if s.Len() != 2 {
		t.Fatalf("expected 2 distinct ids, got %d", s.Len())
	}
	if !s.Contains(3) || !s.Contains(5) {
		t.Fatal("missing expected member")
	}
	s = s.Minus(3)
	if s.Contains(3) {
		t.Fatal("Minus should have removed id 3")
	}
}

func TestIntersects(t *testing.T) {
	a := Empty.Plus(1).Plus(2)
	b := Empty.Plus(2).Plus(3)
	c := Empty.Plus(4)
	if !a.Intersects(b) {
		t.Fatal("a and b share lock 2")
	}
	if a.Intersects(c) {
		t.Fatal("a and c share nothing")
	}
}

func TestLockerSuppression(t *testing.T) {
	l := NewLocker()
	held := Empty.Plus(1)
	l.RecordWrite(100, held)
	if !l.Suppressed(100, held) {
		t.Fatal("same lock held on both sides should suppress")
	}
	if l.Suppressed(100, Empty.Plus(2)) {
		t.Fatal("disjoint locksets must not suppress")
	}
}
