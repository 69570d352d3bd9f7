// Package shadowmem implements the three-level adaptive shadow-memory
// dictionary (spec §4.3): Table -> Page -> Line, each Line holding an array
// of MemoryAccess records at an adaptive grain size.
//
// Grounded on _examples/original_source/cilksan/{shadow_mem_allocator.h,
// simple_shadow_mem.h, old/shadow_mem.h} for the table/page/line layering
// and grain-refinement idea. Lines and their record arrays are ordinary Go
// allocations (newLine, Line.refine); this package has no line allocator
// or recycling pool.
package shadowmem

import "github.com/aclements/cilksan-go/internal/spbag"

// AccessType tags what kind of access a MemoryAccess record describes.
type AccessType uint8

const (
	RW AccessType = iota
	FnRW
	Alloc
	Free
	Realloc
	StackFree
)

func (t AccessType) String() string {
	switch t {
	case RW:
		return "RW"
	case FnRW:
		return "FnRW"
	case Alloc:
		return "Alloc"
	case Free:
		return "Free"
	case Realloc:
		return "Realloc"
	case StackFree:
		return "StackFree"
	default:
		return "?"
	}
}

// MemoryAccess is the unit record the dictionary stores per covered byte
// range: which strand (bag) last touched it, at what loop-iteration
// version, from which instruction site, and what kind of access it was.
//
// Packed deliberately close to the original's bitfield layout (a 32-bit bag
// handle, 16-bit version, 48-bit site id and an 8-bit type tag) even though
// Go has no portable bitfields, so the record stays small and cache-line
// friendly inside a Line's backing array.
type MemoryAccess struct {
	Bag     spbag.Handle
	Version uint16
	Site    uint64 // low 48 bits significant
	Type    AccessType
}

// Valid reports whether this slot has ever been written.
func (m MemoryAccess) Valid() bool { return m.Bag != spbag.NoHandle }

const (
	// LineBytes is the byte span one Line record covers (2^9).
	LineBytes = 1 << 9
	// PageBytes is the byte span one Page covers (2^24).
	PageBytes = 1 << 24
	// LinesPerPage is how many Lines make up one Page.
	LinesPerPage = PageBytes / LineBytes
	// MaxGrain is the coarsest grain a Line can hold (one record per
	// whole line).
	MaxGrain = LineBytes
	// MinGrain is the finest grain a Line refines down to (one record
	// per byte), matching the spec's narrowest supported access width.
	MinGrain = 1
)
