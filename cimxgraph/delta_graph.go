package cimxgraph

import "iter"

// DeltaGraph overlays additions/deletions on a base graph without copying
// it (spec.md §3, §4.C). It borrows its base by default; construct with
// NewOwningDeltaGraph when the delta should close its base too.
//
// Invariants (enforced incrementally, not just at construction):
//   - deletions ⊆ base
//   - additions ∩ base = ∅
//   - size = |base| + |additions| - |deletions|
//   - view = (base - deletions) ∪ additions
type DeltaGraph struct {
	base      Graph
	additions Graph
	deletions Graph
	ownsBase  bool
}

// NewDeltaGraph creates a delta overlay that borrows base: closing the
// delta never closes base.
func NewDeltaGraph(base Graph, metricsAwareIndexer func(IndexStrategy) Graph) *DeltaGraph {
	return newDeltaGraph(base, metricsAwareIndexer, false)
}

// NewOwningDeltaGraph creates a delta overlay that owns base: closing the
// delta also closes base. Use this only when base has no other owner —
// a base graph already owned by some other Dataset or Model must be
// borrowed with NewDeltaGraph instead, or closing the delta will cascade
// and destroy state still in use elsewhere.
func NewOwningDeltaGraph(base Graph, metricsAwareIndexer func(IndexStrategy) Graph) *DeltaGraph {
	return newDeltaGraph(base, metricsAwareIndexer, true)
}

func newDeltaGraph(base Graph, newGraph func(IndexStrategy) Graph, ownsBase bool) *DeltaGraph {
	if newGraph == nil {
		newGraph = func(s IndexStrategy) Graph { return NewIndexedGraph(s, nil) }
	}
	return &DeltaGraph{
		base:      base,
		additions: newGraph(Minimal),
		deletions: newGraph(Minimal),
		ownsBase:  ownsBase,
	}
}

// Base returns the graph this delta overlays.
func (d *DeltaGraph) Base() Graph { return d.base }

// Additions returns the triples added on top of base.
func (d *DeltaGraph) Additions() Graph { return d.additions }

// Deletions returns the triples removed from base.
func (d *DeltaGraph) Deletions() Graph { return d.deletions }

// Add implements spec.md §4.C: if t is not in base, it becomes an
// addition; t is always removed from the deletion set (adding a
// previously-deleted triple un-deletes it).
func (d *DeltaGraph) Add(t Triple) error {
	if !d.base.Contains(t) {
		if err := d.additions.Add(t); err != nil {
			return err
		}
	}
	return d.deletions.Delete(t)
}

// Delete implements spec.md §4.C: t is removed from additions; if t is
// in base it becomes a deletion.
func (d *DeltaGraph) Delete(t Triple) error {
	if err := d.additions.Delete(t); err != nil {
		return err
	}
	if d.base.Contains(t) {
		return d.deletions.Add(t)
	}
	return nil
}

// Contains implements the concrete-triple fast path of spec.md §4.C.
func (d *DeltaGraph) Contains(t Triple) bool {
	if d.base.Contains(t) {
		return !d.deletions.Contains(t)
	}
	return d.additions.Contains(t)
}

// Size implements |base| + |additions| - |deletions|.
func (d *DeltaGraph) Size() int {
	return d.base.Size() + d.additions.Size() - d.deletions.Size()
}

func (d *DeltaGraph) Empty() bool { return d.Size() == 0 }

// Clear empties the additions and deletions overlays; base is untouched
// (clearing the view would require deleting every base triple, which
// Delta does not do implicitly — callers wanting an empty graph should
// Clear the base itself, which this delta borrows).
func (d *DeltaGraph) Clear() error {
	if err := d.additions.Clear(); err != nil {
		return err
	}
	return d.deletions.Clear()
}

func (d *DeltaGraph) Prefixes() *PrefixMap { return d.base.Prefixes() }

// Close closes additions and deletions always, and base only if this
// delta was constructed via NewOwningDeltaGraph.
func (d *DeltaGraph) Close() error {
	if err := d.additions.Close(); err != nil {
		return err
	}
	if err := d.deletions.Close(); err != nil {
		return err
	}
	if d.ownsBase {
		return d.base.Close()
	}
	return nil
}

// Rebase repoints the delta at a new base graph, reusing the same
// additions/deletions sets. The caller vouches that the new base is
// compatible with the existing overlay (spec.md §4.C).
func (d *DeltaGraph) Rebase(newBase Graph) {
	d.base = newBase
}

// Find implements (base.Find(pat) \ deletions) ⊕ additions.Find(pat),
// which spec.md §4.C notes are disjoint by construction.
func (d *DeltaGraph) Find(pat Pattern) iter.Seq[Triple] {
	return func(yield func(Triple) bool) {
		for t := range d.base.Find(pat) {
			if d.deletions.Contains(t) {
				continue
			}
			if !yield(t) {
				return
			}
		}
		for t := range d.additions.Find(pat) {
			if !yield(t) {
				return
			}
		}
	}
}
