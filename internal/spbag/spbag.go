// Package spbag implements the SP-bag disjoint-set engine: the core data
// structure the detector uses to decide, in O(1) amortized time, whether two
// strands of a fork-join computation executed in series or in parallel.
//
// It is grounded on the union-find forest in
// _examples/original_source/cilksan/disjointset.h: path-compressing find,
// a union that always keeps the oldest node as root (see Link), and
// reference-counted nodes freed back to an arena. The
// arena here is internal/slab's index pool rather than disjointset.h's
// 4KiB bitmap pages, per the "arena-indexed nodes instead of cyclic
// refcounts" guidance -- nodes are addressed by Handle (an arena index), so
// there are no pointer cycles for the GC to chase and no manual refcounting
// of Go memory, only of logical ownership (see Node.refs).
package spbag

import "github.com/aclements/cilksan-go/internal/slab"

// Kind distinguishes a bag's role in the SP-bags algorithm.
type Kind uint8

const (
	// SBag holds strands executed in series with everything already
	// merged into it.
	SBag Kind = iota
	// PBag holds the set of strands spawned in parallel that have not
	// yet rejoined at a sync.
	PBag
)

func (k Kind) String() string {
	if k == PBag {
		return "P"
	}
	return "S"
}

// Handle is an opaque reference to a bag. The zero Handle is never valid;
// NoHandle represents "no bag".
type Handle uint32

// NoHandle is the sentinel for "not set".
const NoHandle Handle = 0

type node struct {
	parent Handle // 0 means "is a root"
	rank   uint16
	kind   Kind
	seq    uint32 // creation order, used to keep the oldest node as root
	refs   uint32
	// version is never set or read by this package; loop-iteration
	// versions are kept in frame.Frame.IterVersion and stamped on each
	// shadow-memory record instead.
	version uint16
}

// Engine owns the arena of bag nodes for one detector run.
type Engine struct {
	nodes []node
	pool  slab.IndexPool
	seq   uint32
}

// NewEngine creates an empty bag arena. Handle 0 is reserved as NoHandle so
// the arena's slot 0 is never handed out.
func NewEngine() *Engine {
	e := &Engine{nodes: make([]node, 1)}
	e.pool.Alloc() // burn index 0
	return e
}

func (e *Engine) alloc(kind Kind) Handle {
	idx := e.pool.Alloc()
	e.seq++
	n := node{kind: kind, refs: 1, seq: e.seq}
	if int(idx) == len(e.nodes) {
		e.nodes = append(e.nodes, n)
	} else {
		e.nodes[idx] = n
	}
	return Handle(idx)
}

// NewSBag allocates a fresh singleton S-bag.
func (e *Engine) NewSBag() Handle { return e.alloc(SBag) }

// NewPBag allocates a fresh singleton P-bag.
func (e *Engine) NewPBag() Handle { return e.alloc(PBag) }

// Retain increments a bag's reference count; it is a no-op on NoHandle.
func (e *Engine) Retain(h Handle) {
	if h == NoHandle {
		return
	}
	e.nodes[h].refs++
}

// Release decrements a bag's reference count, freeing its arena slot back
// to the pool once nothing else references it. It is a no-op on NoHandle.
func (e *Engine) Release(h Handle) {
	if h == NoHandle {
		return
	}
	n := &e.nodes[h]
	n.refs--
	if n.refs == 0 {
		e.pool.Free(uint32(h))
	}
}

// Kind reports whether h's representative set is currently an S-bag or
// P-bag. It resolves through Find so it reflects the set's current state
// after any merges.
func (e *Engine) Kind(h Handle) Kind {
	return e.nodes[e.Find(h)].kind
}

// Find returns the representative (root) of h's set, compressing the path
// from h to the root. Path compression is done iteratively: it first walks
// to the root accumulating the visited chain, then walks the chain again in
// reverse re-pointing every node directly at the root -- "in reverse" so a
// node already repointed never needs to be revisited, mirroring
// disjointset.h's list-based compression (chosen there to avoid freeing a
// node that a later step in the same walk still needs).
func (e *Engine) Find(h Handle) Handle {
	root := h
	for e.nodes[root].parent != NoHandle {
		root = e.nodes[root].parent
	}
	// Second pass: compress. Collect into a small local slice; the chain
	// length is bounded by the rank-balanced tree height in practice.
	var chain []Handle
	for cur := h; cur != root; {
		next := e.nodes[cur].parent
		chain = append(chain, cur)
		cur = next
	}
	for i := len(chain) - 1; i >= 0; i-- {
		e.nodes[chain[i]].parent = root
	}
	return root
}

// SameSet reports whether a and b currently resolve to the same bag.
func (e *Engine) SameSet(a, b Handle) bool {
	if a == NoHandle || b == NoHandle {
		return false
	}
	return e.Find(a) == e.Find(b)
}

// Link merges the sets containing a and b into one, and returns the new
// representative. The oldest node (smallest creation sequence number) is
// always kept as the root, regardless of rank, so that long-lived handles a
// caller retains across the merge keep resolving correctly without ever
// needing to be refreshed -- the "oldest node represents the set" invariant
// from disjointset.h's root_set_parent. Rank is still tracked and used to
// choose which of the two *non*-root subtrees folds into the root's rank,
// keeping amortized find cost low.
func (e *Engine) Link(a, b Handle) Handle {
	ra, rb := e.Find(a), e.Find(b)
	if ra == rb {
		return ra
	}
	na, nb := &e.nodes[ra], &e.nodes[rb]
	var root, other Handle
	if na.seq <= nb.seq {
		root, other = ra, rb
	} else {
		root, other = rb, ra
	}
	rootNode, otherNode := &e.nodes[root], &e.nodes[other]
	otherNode.parent = root
	if otherNode.rank > rootNode.rank {
		rootNode.rank = otherNode.rank
	} else if otherNode.rank == rootNode.rank {
		rootNode.rank++
	}
	return root
}

// Combine merges b into a's set, forcing the result to be an S-bag. This is
// the operation a sync performs: once every spawned child has rejoined, the
// P-bag that held them collapses back into the parent's S-bag.
func (e *Engine) Combine(a, b Handle) Handle {
	root := e.Link(a, b)
	e.nodes[root].kind = SBag
	return root
}

// SetKind forcibly marks h's representative set's kind. Used when a spawn
// turns an existing S-bag's representative into the seed of a new P-bag.
func (e *Engine) SetKind(h Handle, k Kind) {
	e.nodes[e.Find(h)].kind = k
}

// IsParallel reports whether two bag handles are known to belong to
// logically concurrent strands: true exactly when either handle's set is
// currently a P-bag. A handle is never parallel with itself -- a single
// strand is never parallel with itself -- but two distinct handles that
// were both folded into the same P-bag set are.
func (e *Engine) IsParallel(a, b Handle) bool {
	if a == NoHandle || b == NoHandle || a == b {
		return false
	}
	ra, rb := e.Find(a), e.Find(b)
	return e.nodes[ra].kind == PBag || e.nodes[rb].kind == PBag
}

// InUse reports the number of currently live (non-freed) bag handles, for
// CILKSAN_STATS reporting.
func (e *Engine) InUse() uint32 { return e.pool.InUse() }

// NodeInfo is a read-only snapshot of one arena slot, for debug rendering
// (see internal/report's SVG forest dump).
type NodeInfo struct {
	Handle Handle
	Parent Handle
	Kind   Kind
	Live   bool
}

// Snapshot returns a NodeInfo for every arena slot ever handed out,
// including freed ones (marked Live: false), for debug visualization only.
func (e *Engine) Snapshot() []NodeInfo {
	out := make([]NodeInfo, 0, len(e.nodes)-1)
	freed := make(map[Handle]bool)
	for _, h := range e.pool.FreeList() {
		freed[Handle(h)] = true
	}
	for i := 1; i < len(e.nodes); i++ {
		h := Handle(i)
		out = append(out, NodeInfo{Handle: h, Parent: e.nodes[i].parent, Kind: e.nodes[i].kind, Live: !freed[h]})
	}
	return out
}
