// Package slab provides a small index-based arena allocator, used by the
// detector's disjoint-set package (internal/spbag) for its bag handles.
//
// The original C++ engine (disjointset.h's DSSlab_t/DSAllocator) hands out
// nodes from 4KiB bitmap-tracked pages and links full/has-free pages into
// doubly-linked lists so it can bypass the general-purpose allocator. Go's
// allocator and garbage collector already do that job well, so instead of
// reimplementing bitmap pages we hand out small integer handles backed by a
// growing slice and recycle released handles through a free list -- the same
// checkout/checkin shape gopool.BuildletPool uses for its Gomote pool.
package slab

// IndexPool hands out uint32 handles, recycling freed ones before growing.
type IndexPool struct {
	free []uint32
	next uint32
}

// Alloc returns a fresh or recycled handle.
func (p *IndexPool) Alloc() uint32 {
	if n := len(p.free); n > 0 {
		idx := p.free[n-1]
		p.free = p.free[:n-1]
		return idx
	}
	idx := p.next
	p.next++
	return idx
}

// Free returns a handle to the pool for reuse.
func (p *IndexPool) Free(idx uint32) {
	p.free = append(p.free, idx)
}

// Len reports the number of handles ever allocated (including freed ones).
func (p *IndexPool) Len() uint32 { return p.next }

// InUse reports how many handles are currently checked out.
func (p *IndexPool) InUse() uint32 { return p.next - uint32(len(p.free)) }

// FreeList returns the handles currently sitting in the free list, for
// debug inspection only; the caller must not mutate the returned slice.
func (p *IndexPool) FreeList() []uint32 { return p.free }
