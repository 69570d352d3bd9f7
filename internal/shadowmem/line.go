package shadowmem

// Line holds the MemoryAccess records for one LineBytes-sized span of
// address space, at whatever grain the accesses recorded against it so far
// have demanded.
//
// Grain starts coarse (one record for the whole line, the common case for
// large sequential accesses) and refines to a smaller power-of-two grain
// the first time a narrower access touches the line, splitting the single
// coarse record across the new, smaller slots so existing history is not
// lost. It coarsens back to MaxGrain once every slot it holds is cleared
// (see Line.maybeCoarsen), so a line that goes quiet (e.g. after a free)
// doesn't keep paying for fine-grained bookkeeping.
type Line struct {
	grain int
	recs  []MemoryAccess
}

func newLine() *Line {
	return &Line{grain: MaxGrain, recs: make([]MemoryAccess, LineBytes/MaxGrain)}
}

func (l *Line) slotFor(offset, size int) int {
	return offset / l.grain
}

// refine ensures the line's grain is at most size (rounded down to a power
// of two, floored at MinGrain), splaying each existing record across the
// new, narrower slots it now covers.
func (l *Line) refine(size int) {
	g := l.grain
	for g > size && g > MinGrain {
		g >>= 1
	}
	if g == l.grain {
		return
	}
	newRecs := make([]MemoryAccess, LineBytes/g)
	ratio := l.grain / g
	for i, r := range l.recs {
		for j := 0; j < ratio; j++ {
			newRecs[i*ratio+j] = r
		}
	}
	l.grain = g
	l.recs = newRecs
}

// Record stores access into every slot spanned by [offset, offset+size),
// refining the grain first if size is narrower than the line's current
// grain.
func (l *Line) Record(offset, size int, access MemoryAccess) {
	if size < l.grain {
		l.refine(size)
	}
	start := offset / l.grain
	end := (offset + size - 1) / l.grain
	for i := start; i <= end && i < len(l.recs); i++ {
		l.recs[i] = access
	}
}

// Get returns the record covering offset, and whether the line has ever
// recorded anything there.
func (l *Line) Get(offset int) (MemoryAccess, bool) {
	i := offset / l.grain
	if i >= len(l.recs) {
		return MemoryAccess{}, false
	}
	r := l.recs[i]
	return r, r.Valid()
}

// GetRange appends every distinct, previously-recorded record covering
// [offset, offset+size) to out, skipping slots that have never been
// written (Valid() == false).
func (l *Line) GetRange(offset, size int, out []MemoryAccess) []MemoryAccess {
	start := offset / l.grain
	end := (offset + size - 1) / l.grain
	for i := start; i <= end && i < len(l.recs); i++ {
		if r := l.recs[i]; r.Valid() {
			out = append(out, r)
		}
	}
	return out
}

// Clear wipes [offset, offset+size) back to empty, refining the grain first
// if size is narrower than the line's current grain, and coarsens the line
// back to MaxGrain if that empties it entirely.
func (l *Line) Clear(offset, size int) {
	if size < l.grain {
		l.refine(size)
	}
	start := offset / l.grain
	end := (offset + size - 1) / l.grain
	for i := start; i <= end && i < len(l.recs); i++ {
		l.recs[i] = MemoryAccess{}
	}
	l.maybeCoarsen()
}

func (l *Line) maybeCoarsen() {
	for _, r := range l.recs {
		if r.Valid() {
			return
		}
	}
	if l.grain != MaxGrain {
		l.grain = MaxGrain
		l.recs = make([]MemoryAccess, LineBytes/MaxGrain)
	}
}

// Empty reports whether every slot in the line is empty.
func (l *Line) Empty() bool {
	for _, r := range l.recs {
		if r.Valid() {
			return false
		}
	}
	return true
}
