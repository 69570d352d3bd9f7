package shadowmem

import (
	"testing"

	"github.com/aclements/cilksan-go/internal/spbag"
)

func TestRecordAndQuery(t *testing.T) {
	d := NewDict()
	acc := MemoryAccess{Bag: spbag.Handle(1), Version: 1, Site: 42, Type: RW}
	d.Record(1000, 8, acc)

	got, ok := d.Query(1000)
	if !ok || got.Site != 42 {
		t.Fatalf("expected recorded access at 1000, got %+v ok=%v", got, ok)
	}
	got2, ok2 := d.Query(1004)
	if !ok2 || got2.Bag != spbag.Handle(1) {
		t.Fatalf("expected recorded access to cover whole 8-byte span, got %+v ok=%v", got2, ok2)
	}
}

func TestGrainRefinesOnNarrowAccess(t *testing.T) {
	d := NewDict()
	wide := MemoryAccess{Bag: spbag.Handle(1), Site: 1, Type: RW}
	d.Record(2048, 512, wide) // whole line, coarse grain

	narrow := MemoryAccess{Bag: spbag.Handle(2), Site: 2, Type: RW}
	d.Record(2048, 1, narrow) // one byte -- forces refine

	got, _ := d.Query(2048)
	if got.Bag != spbag.Handle(2) {
		t.Fatal("narrow access should overwrite the first byte's slot")
	}
	got2, _ := d.Query(2100)
	if got2.Bag != spbag.Handle(1) {
		t.Fatal("bytes outside the narrow access should retain the original wide record after refine")
	}
}

func TestClearEmptiesPage(t *testing.T) {
	d := NewDict()
	acc := MemoryAccess{Bag: spbag.Handle(1), Site: 1, Type: Alloc}
	d.Record(5000, 16, acc)
	if d.PageCount() != 1 {
		t.Fatal("expected one live page after Record")
	}
	d.Clear(5000, 16)
	if d.PageCount() != 0 {
		t.Fatal("expected page to be released after clearing its only content")
	}
}

func TestOccupancyFastPath(t *testing.T) {
	d := NewDict()
	acc := MemoryAccess{Bag: spbag.Handle(1), Site: 1, Type: RW}
	already := d.Record(6000, 4, acc)
	if already {
		t.Fatal("first touch of a line must not be reported already-occupied")
	}
	already2 := d.Record(6004, 4, acc)
	if !already2 {
		t.Fatal("second touch of the same line must be reported already-occupied")
	}
	d.ResetOccupancy()
	already3 := d.Record(6008, 4, acc)
	if already3 {
		t.Fatal("after ResetOccupancy, the line must read as unoccupied again")
	}
}
