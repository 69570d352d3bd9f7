// Package callstack implements interned, structurally-shared call-stack
// snapshots (nodes carry no reference counts), used to tag every memory access and every lock acquisition
// with "how did we get here" for race reports.
//
// Grounded on rtcheck/main.go's StackFrame: a singly-linked list of
// call sites where sibling call paths share their common tail, interned
// through a small table so equal paths collapse to the same node (the same
// idea rtcheck uses for its own call-stack-sensitive lockset analysis, here
// repurposed to capture dynamic rather than static call paths).
package callstack

// Site identifies one call-site location: typically a compiler-assigned
// instruction id (spec's instruction-site id), opaque to this package.
type Site uint64

// Frame is one persistent, interned node of a call stack: the call site
// plus a pointer to the (shared) tail representing the rest of the stack.
type Frame struct {
	Site Site
	tail *Frame
}

// Table interns Frame nodes so structurally equal stacks collapse to a
// single shared chain, the same way rtcheck's stack-frame table avoids
// reallocating a fresh chain for every call path that revisits a common
// prefix.
type Table struct {
	roots map[Site]*Frame // interned frames with tail == nil
	exts  map[extKey]*Frame
}

type extKey struct {
	tail *Frame
	site Site
}

// NewTable creates an empty interning table.
func NewTable() *Table {
	return &Table{roots: make(map[Site]*Frame), exts: make(map[extKey]*Frame)}
}

// Intern returns the canonical Frame for a call site extending tail (nil
// tail means "start of stack").
func (t *Table) Intern(tail *Frame, site Site) *Frame {
	if tail == nil {
		if f, ok := t.roots[site]; ok {
			return f
		}
		f := &Frame{Site: site}
		t.roots[site] = f
		return f
	}
	k := extKey{tail, site}
	if f, ok := t.exts[k]; ok {
		return f
	}
	f := &Frame{Site: site, tail: tail}
	t.exts[k] = f
	return f
}

// Flatten returns the call stack as a slice, outermost call first.
func (f *Frame) Flatten() []Site {
	var n int
	for p := f; p != nil; p = p.tail {
		n++
	}
	out := make([]Site, n)
	for p, i := f, n-1; p != nil; p, i = p.tail, i-1 {
		out[i] = p.Site
	}
	return out
}

// TrimCommonPrefix returns what remains of a and of b after stripping the
// leading frames the two stacks share, so a race report can show only where
// the two accesses' paths diverge. Both input slices must be in
// outermost-first order (as returned by Flatten), and both results keep
// that order.
func TrimCommonPrefix(a, b []Site) (ra, rb []Site) {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	i := 0
	for i < n && a[i] == b[i] {
		i++
	}
	return a[i:], b[i:]
}
