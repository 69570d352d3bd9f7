package callstack

import "testing"

func TestInternSharesTail(t *testing.T) {
	tbl := NewTable()
	root := tbl.Intern(nil, 1)
	a := tbl.Intern(root, 2)
	b := tbl.Intern(root, 3)
	if a.tail != b.tail {
		t.Fatal("siblings must share the interned tail node")
	}
	a2 := tbl.Intern(root, 2)
	if a != a2 {
		t.Fatal("interning the same path twice must return the same node")
	}
}

func TestFlattenOrder(t *testing.T) {
	tbl := NewTable()
	f := tbl.Intern(tbl.Intern(tbl.Intern(nil, 10), 20), 30)
	got := f.Flatten()
	want := []Site{10, 20, 30}
	if len(got) != len(want) {
		t.Fatalf("got %v want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v want %v", got, want)
		}
	}
}

func TestTrimCommonPrefix(t *testing.T) {
	a := []Site{1, 2, 3, 4}
	b := []Site{1, 2, 5, 6}
	ra, rb := TrimCommonPrefix(a, b)
	if len(ra) != 2 || ra[0] != 3 || ra[1] != 4 {
		t.Fatalf("unexpected trimmed a: %v", ra)
	}
	if len(rb) != 2 || rb[0] != 5 || rb[1] != 6 {
		t.Fatalf("unexpected trimmed b: %v", rb)
	}
}
