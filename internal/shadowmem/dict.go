package shadowmem

// Dict is the top-level Table of the three-level dictionary: a sparse map
// from page number to *Page. The original engine indexes a fixed 2^18-entry
// array of page pointers; here a Go map stands in for that array since Go
// gives us sparse, amortized O(1) access without committing to a fixed
// virtual-address budget up front -- the one place this package departs
// from a literal port of shadow_mem_allocator.h, noted in DESIGN.md.
type Dict struct {
	pages map[uintptr]*Page
}

// NewDict creates an empty dictionary.
func NewDict() *Dict {
	return &Dict{pages: make(map[uintptr]*Page)}
}

func pageOf(addr uintptr) (pageNum, offset uintptr) {
	return addr / PageBytes, addr % PageBytes
}

func (d *Dict) page(addr uintptr, create bool) (*Page, uintptr) {
	pn, off := pageOf(addr)
	p, ok := d.pages[pn]
	if !ok {
		if !create {
			return nil, off
		}
		p = newPage()
		d.pages[pn] = p
	}
	return p, off
}

// Record stores access across [addr, addr+size), creating pages/lines as
// needed and refining grain where the access is narrower than what's
// already recorded. It returns whether the first line touched was already
// marked occupied by the current strand (the fast-path dedup signal spec
// §4.3 calls for).
func (d *Dict) Record(addr uintptr, size int, access MemoryAccess) (alreadyOccupied bool) {
	remaining := size
	cur := addr
	for remaining > 0 {
		p, off := d.page(cur, true)
		li := p.lineIndex(off)
		already := p.testAndSetOccupied(li)
		if cur == addr {
			alreadyOccupied = already
		}
		l := p.line(li, true)
		lineOff := int(off % LineBytes)
		chunk := LineBytes - lineOff
		if chunk > remaining {
			chunk = remaining
		}
		l.Record(lineOff, chunk, access)
		cur += uintptr(chunk)
		remaining -= chunk
	}
	return alreadyOccupied
}

// Query returns the record covering addr, if any has ever been recorded.
func (d *Dict) Query(addr uintptr) (MemoryAccess, bool) {
	p, off := d.page(addr, false)
	if p == nil {
		return MemoryAccess{}, false
	}
	li := p.lineIndex(off)
	l := p.line(li, false)
	if l == nil {
		return MemoryAccess{}, false
	}
	return l.Get(int(off % LineBytes))
}

// QueryRange returns every distinct record covering [addr, addr+size), for
// the race-check protocol to test each one against the current access
// (spec §4.4 steps 2a/3a: "each entry in W/R covering [addr, addr+size)").
// A wide access spanning several lines or grains can uncover more than one
// prior record; callers must check every one of them, not just the first.
func (d *Dict) QueryRange(addr uintptr, size int) []MemoryAccess {
	var raw []MemoryAccess
	remaining := size
	cur := addr
	for remaining > 0 {
		pn, off := pageOf(cur)
		chunk := LineBytes - int(off%LineBytes)
		if chunk > remaining {
			chunk = remaining
		}
		if p, ok := d.pages[pn]; ok {
			li := p.lineIndex(off)
			if l := p.line(li, false); l != nil {
				raw = l.GetRange(int(off%LineBytes), chunk, raw)
			}
		}
		cur += uintptr(chunk)
		remaining -= chunk
	}
	if len(raw) == 0 {
		return nil
	}
	out := make([]MemoryAccess, 0, len(raw))
	for _, r := range raw {
		dup := false
		for _, o := range out {
			if o == r {
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, r)
		}
	}
	return out
}

// Clear wipes [addr, addr+size), e.g. on free/realloc-narrowing, releasing
// any page that becomes entirely empty back out of the table.
func (d *Dict) Clear(addr uintptr, size int) {
	remaining := size
	cur := addr
	touchedPages := map[uintptr]*Page{}
	for remaining > 0 {
		pn, off := pageOf(cur)
		p, ok := d.pages[pn]
		if ok {
			li := p.lineIndex(off)
			if l := p.line(li, false); l != nil {
				lineOff := int(off % LineBytes)
				chunk := LineBytes - lineOff
				if chunk > remaining {
					chunk = remaining
				}
				l.Clear(lineOff, chunk)
			}
			touchedPages[pn] = p
		}
		chunk := LineBytes - int(off%LineBytes)
		if chunk > remaining {
			chunk = remaining
		}
		cur += uintptr(chunk)
		remaining -= chunk
	}
	for pn, p := range touchedPages {
		if p.Empty() {
			delete(d.pages, pn)
		}
	}
}

// ResetOccupancy clears the occupancy bitmap of every live page. The engine
// calls it at every sync; it is not called at a spawn, a continuation or a
// loop iteration boundary.
func (d *Dict) ResetOccupancy() {
	for _, p := range d.pages {
		p.ResetOccupancy()
	}
}

// PageCount reports the number of live pages, for CILKSAN_STATS.
func (d *Dict) PageCount() int { return len(d.pages) }
