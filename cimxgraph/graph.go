package cimxgraph

import (
	"errors"
	"iter"
)

// ErrReadOnly is returned by Add/Delete on a read-only graph view, such
// as a UnionGraph (spec.md §4.D: "read-only composition").
var ErrReadOnly = errors.New("cimxgraph: graph is read-only")

// Graph is the capability set every graph implementation in this module
// satisfies: plain indexed graphs, delta overlays, and disjoint unions
// (spec.md §9: "prefer a trait/interface with sum-type dispatch at the
// dataset boundary; avoid deep inheritance hierarchies").
type Graph interface {
	// Add inserts t. Adding a triple already present is a no-op.
	Add(t Triple) error
	// Delete removes t. Deleting a triple not present is a no-op.
	Delete(t Triple) error
	// Contains reports whether t is in the graph's current view.
	Contains(t Triple) bool
	// Find returns every triple matching pat, in no particular order.
	Find(pat Pattern) iter.Seq[Triple]
	// Size reports the number of triples in the current view.
	Size() int
	// Clear removes every triple.
	Clear() error
	// Empty reports whether the graph has no triples.
	Empty() bool
	// Prefixes returns the graph's prefix map.
	Prefixes() *PrefixMap
	// Close releases any resources held by the graph. Ownership rules
	// for composed graphs (delta, union) are documented on their
	// constructors.
	Close() error
}
