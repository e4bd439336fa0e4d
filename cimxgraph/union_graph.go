package cimxgraph

import "iter"

// UnionGraph is a read-only, non-deduplicating concatenation of member
// graphs (spec.md §4.D). It is used to present several named graphs (or
// a base plus its deltas) as one graph without materializing a copy.
// Add and Delete always fail with ErrReadOnly; callers wanting a
// writable merged view should write into one of the members directly.
type UnionGraph struct {
	members  []Graph
	prefixes *PrefixMap
}

// NewUnionGraph builds a union over members in order. The returned
// graph's prefix map starts empty; callers composing a full model
// (spec.md's fullModelToSingleGraph) should copy the header graph's
// prefixes into it explicitly via Prefixes().CopyInto or Set.
func NewUnionGraph(members ...Graph) *UnionGraph {
	return &UnionGraph{
		members:  members,
		prefixes: NewPrefixMap(),
	}
}

func (u *UnionGraph) Add(Triple) error    { return ErrReadOnly }
func (u *UnionGraph) Delete(Triple) error { return ErrReadOnly }
func (u *UnionGraph) Clear() error        { return ErrReadOnly }

// Contains reports whether any member contains t.
func (u *UnionGraph) Contains(t Triple) bool {
	for _, m := range u.members {
		if m.Contains(t) {
			return true
		}
	}
	return false
}

// Size sums member sizes without deduplicating (spec.md §4.D: "the
// union does not deduplicate triples that happen to appear in more
// than one member; its Size is the sum of member sizes").
func (u *UnionGraph) Size() int {
	total := 0
	for _, m := range u.members {
		total += m.Size()
	}
	return total
}

func (u *UnionGraph) Empty() bool {
	for _, m := range u.members {
		if !m.Empty() {
			return false
		}
	}
	return true
}

// Prefixes returns the union's own prefix map, distinct from any
// member's.
func (u *UnionGraph) Prefixes() *PrefixMap { return u.prefixes }

// Close is a no-op: a union never owns its members, since the same
// graph is typically also reachable through the dataset that produced
// the union (spec.md §3 ownership rules).
func (u *UnionGraph) Close() error { return nil }

// Find yields every matching triple from every member in turn,
// duplicates included.
func (u *UnionGraph) Find(pat Pattern) iter.Seq[Triple] {
	return func(yield func(Triple) bool) {
		for _, m := range u.members {
			for t := range m.Find(pat) {
				if !yield(t) {
					return
				}
			}
		}
	}
}
