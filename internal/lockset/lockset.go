// Package lockset implements the locksets used by the detector's
// data-race mode (spec §4.5): the set of locks held at an access, and the
// "Locker" parallel dictionary used to suppress a determinacy race already
// covered by a common held lock.
//
// Grounded on rtcheck/main.go's LockSet: a sorted, deduplicated id set with
// set arithmetic (there backed by math/big.Int bitset; here, since lock ids
// in this domain are sparse compiler-assigned ids rather than dense small
// integers, a sorted slice is the better fit, but the Plus/Minus/Intersects
// API shape is carried over directly).
package lockset

import "sort"

// ID identifies one lock (a mutex, a POSIX lock object, or the sentinel
// atomic-operation lock id 0 spec §4.5 calls for when CILKSAN_CHECK_ATOMICS
// is enabled).
type ID uint32

// AtomicLockID is the reserved id atomics are modeled as holding, so a
// racing atomic access can be suppressed by CILKSAN_CHECK_ATOMICS's
// lockset logic the same way a real lock would be.
const AtomicLockID ID = 0

// Set is an immutable sorted, deduplicated set of held lock ids.
type Set struct {
	ids []ID
}

// Empty is the lockset held by a strand that has acquired nothing.
var Empty = Set{}

// Plus returns a new Set with id added, or the same set if id is already a
// member.
func (s Set) Plus(id ID) Set {
	i := sort.Search(len(s.ids), func(i int) bool { return s.ids[i] >= id })
	if i < len(s.ids) && s.ids[i] == id {
		return s
	}
	out := make([]ID, len(s.ids)+1)
	copy(out, s.ids[:i])
	out[i] = id
	copy(out[i+1:], s.ids[i:])
	return Set{out}
}

// Minus returns a new Set with id removed, or the same set if id was not a
// member.
func (s Set) Minus(id ID) Set {
	i := sort.Search(len(s.ids), func(i int) bool { return s.ids[i] >= id })
	if i >= len(s.ids) || s.ids[i] != id {
		return s
	}
	out := make([]ID, 0, len(s.ids)-1)
	out = append(out, s.ids[:i]...)
	out = append(out, s.ids[i+1:]...)
	return Set{out}
}

// Contains reports whether id is held.
func (s Set) Contains(id ID) bool {
	i := sort.Search(len(s.ids), func(i int) bool { return s.ids[i] >= id })
	return i < len(s.ids) && s.ids[i] == id
}

// Intersects reports whether s and o share at least one held lock. Two
// concurrent accesses that both hold a common lock are not a data race,
// even though they are determinacy-parallel.
func (s Set) Intersects(o Set) bool {
	i, j := 0, 0
	for i < len(s.ids) && j < len(o.ids) {
		switch {
		case s.ids[i] == o.ids[j]:
			return true
		case s.ids[i] < o.ids[j]:
			i++
		default:
			j++
		}
	}
	return false
}

// Len reports the number of locks held.
func (s Set) Len() int { return len(s.ids) }

// IDs returns the held lock ids in ascending order. The caller must not
// mutate the returned slice.
func (s Set) IDs() []ID { return s.ids }
