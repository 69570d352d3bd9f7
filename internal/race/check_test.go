package race

import (
	"testing"

	"github.com/aclements/cilksan-go/internal/shadowmem"
	"github.com/aclements/cilksan-go/internal/spbag"
)

func TestParallelWritesRace(t *testing.T) {
	eng := spbag.NewEngine()
	m := NewMap()
	c := NewChecker(eng, m)

	p1 := eng.NewSBag()
	p2 := eng.NewSBag()
	pbag := eng.NewPBag()
	eng.Link(pbag, p1)
	eng.Link(pbag, p2)
	eng.SetKind(pbag, spbag.PBag)

	c.CheckWrite(Access{Addr: 100, Size: 8, Type: shadowmem.RW, Bag: p1, Site: 1})
	raced := c.CheckWrite(Access{Addr: 100, Size: 8, Type: shadowmem.RW, Bag: p2, Site: 2})

	if !raced {
		t.Fatal("two writes to the same address from parallel strands must race")
	}
	if m.Len() != 1 {
		t.Fatalf("expected exactly one distinct race, got %d", m.Len())
	}
}

func TestSerialWritesDoNotRace(t *testing.T) {
	eng := spbag.NewEngine()
	m := NewMap()
	c := NewChecker(eng, m)
	s := eng.NewSBag()

	c.CheckWrite(Access{Addr: 200, Size: 8, Type: shadowmem.RW, Bag: s, Site: 1})
	raced := c.CheckWrite(Access{Addr: 200, Size: 8, Type: shadowmem.RW, Bag: s, Site: 2})

	if raced {
		t.Fatal("two writes from the same strand must not race")
	}
}

// TestFreeMarksUseAfterFree mirrors spec §4.4's alloc/free handling and
// Testable Property #3 (§8): record_free clears Reads/Writes for the range
// and then itself performs a write of type Free against Writes, so a later
// access to the freed range that is still in-parallel with the free is
// reported as a W*-race of type Free (the use-after-free signature),
// rather than silently passing because history was wiped.
func TestFreeMarksUseAfterFree(t *testing.T) {
	eng := spbag.NewEngine()
	m := NewMap()
	c := NewChecker(eng, m)

	p1 := eng.NewSBag()
	p2 := eng.NewSBag()
	pbag := eng.NewPBag()
	eng.Link(pbag, p1)
	eng.Link(pbag, p2)
	eng.SetKind(pbag, spbag.PBag)

	c.CheckWrite(Access{Addr: 300, Size: 8, Type: shadowmem.RW, Bag: p1, Site: 1})
	c.CheckLifecycle(Access{Addr: 300, Size: 8, Type: shadowmem.Free, Bag: p1, Site: 2})
	raced := c.CheckWrite(Access{Addr: 300, Size: 8, Type: shadowmem.RW, Bag: p2, Site: 3})

	if !raced {
		t.Fatal("a write after a free, still within the same parallel region, must race against the free")
	}
	reports := m.Reports()
	if len(reports) != 1 || reports[0].FirstType != shadowmem.Free {
		t.Fatalf("expected one Free-typed race report, got %+v", reports)
	}
}

// TestAllocClearsHistory checks the other half of spec §4.4's alloc/free
// handling: a fresh Alloc over a range that previously raced must not carry
// the old tenant's history forward, so a new parallel write afterward does
// not spuriously race against whatever used to live there.
func TestAllocClearsHistory(t *testing.T) {
	eng := spbag.NewEngine()
	m := NewMap()
	c := NewChecker(eng, m)

	p1 := eng.NewSBag()
	p2 := eng.NewSBag()
	pbag := eng.NewPBag()
	eng.Link(pbag, p1)
	eng.Link(pbag, p2)
	eng.SetKind(pbag, spbag.PBag)

	c.CheckWrite(Access{Addr: 500, Size: 8, Type: shadowmem.RW, Bag: p1, Site: 1})
	c.CheckLifecycle(Access{Addr: 500, Size: 8, Type: shadowmem.Alloc, Bag: p1, Site: 2})
	raced := c.CheckWrite(Access{Addr: 500, Size: 8, Type: shadowmem.RW, Bag: p2, Site: 3})

	if raced {
		t.Fatal("a fresh alloc must clear the prior tenant's history")
	}
}

func TestMirrorPairDeduped(t *testing.T) {
	eng := spbag.NewEngine()
	m := NewMap()
	c := NewChecker(eng, m)

	p1 := eng.NewSBag()
	p2 := eng.NewSBag()
	pbag := eng.NewPBag()
	eng.Link(pbag, p1)
	eng.Link(pbag, p2)
	eng.SetKind(pbag, spbag.PBag)

	c.CheckWrite(Access{Addr: 400, Size: 8, Type: shadowmem.RW, Bag: p1, Site: 10})
	c.CheckWrite(Access{Addr: 400, Size: 8, Type: shadowmem.RW, Bag: p2, Site: 20})
	// The mirror image: site 10 again, now racing against site 20.
	c.CheckWrite(Access{Addr: 400, Size: 8, Type: shadowmem.RW, Bag: p1, Site: 10})
	if m.Len() != 1 {
		t.Fatalf("expected one race, got %d", m.Len())
	}

	reports := m.Reports()
	if len(reports) != 1 {
		t.Fatalf("expected 1 report, got %d", len(reports))
	}
	if reports[0].String() == "" {
		t.Fatal("report must render a non-empty description")
	}
}
