package shadowmem

// Page holds the Lines for one PageBytes-sized span of address space, plus
// an occupancy bitmap from which Dict.Record reports whether a line was
// already touched. The race checker does not consult that result, so no
// access skips the check-and-update work.
type Page struct {
	lines [LinesPerPage]*Line
	// occupied has one bit per line, set the first time the strand
	// currently running touches that line. Cleared by ResetOccupancy,
	// which the engine calls at every sync (not at a spawn, a
	// continuation or a loop iteration boundary).
	occupied []uint64
}

func newPage() *Page {
	return &Page{occupied: make([]uint64, (LinesPerPage+63)/64)}
}

func (p *Page) lineIndex(pageOffset uintptr) int {
	return int(pageOffset / LineBytes)
}

// testAndSetOccupied reports and marks line li occupied in one step, returning true
// if it was already marked (so the caller's fast path can skip the full
// check-and-update).
func (p *Page) testAndSetOccupied(li int) bool {
	word, bit := li/64, uint(li%64)
	was := p.occupied[word]&(1<<bit) != 0
	p.occupied[word] |= 1 << bit
	return was
}

// ResetOccupancy clears every occupancy bit, e.g. at a strand boundary.
func (p *Page) ResetOccupancy() {
	for i := range p.occupied {
		p.occupied[i] = 0
	}
}

func (p *Page) line(li int, create bool) *Line {
	l := p.lines[li]
	if l == nil && create {
		l = newLine()
		p.lines[li] = l
	}
	return l
}

// Empty reports whether every line on the page is nil or empty, used to
// decide whether the page itself can be released back to the table.
func (p *Page) Empty() bool {
	for _, l := range p.lines {
		if l != nil && !l.Empty() {
			return false
		}
	}
	return true
}
