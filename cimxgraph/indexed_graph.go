package cimxgraph

import (
	"context"
	"iter"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/iec61970/cimx/cimxmetrics"
	"github.com/iec61970/cimx/cimxterm"
)

// IndexStrategy selects how an IndexedGraph builds its triple-pattern
// secondary indexes (spec.md §4.B, §4.H).
type IndexStrategy int

const (
	// Minimal never builds secondary indexes; Find falls back to a
	// linear scan. Appropriate for small header/difference-container
	// graphs where the scan cost never matters.
	Minimal IndexStrategy = iota
	// LazyParallel defers building the subject/predicate/object indexes
	// until BuildIndex is called (normally triggered by sink.finish()),
	// then builds all three concurrently.
	LazyParallel
)

func (s IndexStrategy) String() string {
	if s == LazyParallel {
		return "LAZY_PARALLEL"
	}
	return "MINIMAL"
}

// IndexedGraph is the primary Graph implementation: an in-memory triple
// set plus optional subject/predicate/object indexes.
type IndexedGraph struct {
	mu       sync.RWMutex
	triples  map[Triple]struct{}
	strategy IndexStrategy

	indexBuilt  bool
	indexOnce   sync.Once
	bySubject   map[cimxterm.Term]map[Triple]struct{}
	byPredicate map[cimxterm.Term]map[Triple]struct{}
	byObject    map[cimxterm.Term]map[Triple]struct{}

	prefixes *PrefixMap
	metrics  *cimxmetrics.Metrics
}

// NewIndexedGraph creates an empty graph using strategy. metrics may be
// nil, in which case instrumentation is skipped.
func NewIndexedGraph(strategy IndexStrategy, metrics *cimxmetrics.Metrics) *IndexedGraph {
	g := &IndexedGraph{
		triples:  make(map[Triple]struct{}),
		strategy: strategy,
		prefixes: NewPrefixMap(),
		metrics:  metrics,
	}
	if strategy == Minimal {
		g.indexBuilt = true // MINIMAL graphs never build secondary indexes
	}
	return g
}

func (g *IndexedGraph) Add(t Triple) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, exists := g.triples[t]; exists {
		return nil
	}
	g.triples[t] = struct{}{}
	if g.strategy == LazyParallel && g.indexBuilt {
		g.indexInsert(t)
	}
	return nil
}

func (g *IndexedGraph) Delete(t Triple) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, exists := g.triples[t]; !exists {
		return nil
	}
	delete(g.triples, t)
	if g.strategy == LazyParallel && g.indexBuilt {
		g.indexRemove(t)
	}
	return nil
}

func (g *IndexedGraph) Contains(t Triple) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	_, ok := g.triples[t]
	return ok
}

func (g *IndexedGraph) Size() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.triples)
}

func (g *IndexedGraph) Empty() bool {
	return g.Size() == 0
}

func (g *IndexedGraph) Clear() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.triples = make(map[Triple]struct{})
	g.bySubject, g.byPredicate, g.byObject = nil, nil, nil
	g.indexBuilt = g.strategy == Minimal
	g.indexOnce = sync.Once{}
	return nil
}

func (g *IndexedGraph) Close() error { return nil }

func (g *IndexedGraph) Prefixes() *PrefixMap { return g.prefixes }

// Strategy reports the graph's indexing strategy.
func (g *IndexedGraph) Strategy() IndexStrategy { return g.strategy }

// BuildIndex builds the subject/predicate/object secondary indexes for a
// LAZY_PARALLEL graph, fanning the three builds out across an
// errgroup.Group (spec.md §5, §9: "the `(base, lang, iriCache)` frame
// stack ... avoid any per-element object churn"; here the analogous
// concern is building three independent maps concurrently rather than
// sequentially). It is idempotent and safe to call from multiple
// goroutines; only the first call does any work. On a MINIMAL graph it
// is a no-op.
func (g *IndexedGraph) BuildIndex(ctx context.Context) error {
	if g.strategy == Minimal {
		return nil
	}

	var buildErr error
	g.indexOnce.Do(func() {
		start := time.Now()

		g.mu.RLock()
		snapshot := make([]Triple, 0, len(g.triples))
		for t := range g.triples {
			snapshot = append(snapshot, t)
		}
		g.mu.RUnlock()

		bySubject := make(map[cimxterm.Term]map[Triple]struct{})
		byPredicate := make(map[cimxterm.Term]map[Triple]struct{})
		byObject := make(map[cimxterm.Term]map[Triple]struct{})
		var mu sync.Mutex

		grp, _ := errgroup.WithContext(ctx)
		grp.Go(func() error {
			local := make(map[cimxterm.Term]map[Triple]struct{})
			for _, t := range snapshot {
				addToIndex(local, t.Subject, t)
			}
			mu.Lock()
			bySubject = local
			mu.Unlock()
			return nil
		})
		grp.Go(func() error {
			local := make(map[cimxterm.Term]map[Triple]struct{})
			for _, t := range snapshot {
				addToIndex(local, t.Predicate, t)
			}
			mu.Lock()
			byPredicate = local
			mu.Unlock()
			return nil
		})
		grp.Go(func() error {
			local := make(map[cimxterm.Term]map[Triple]struct{})
			for _, t := range snapshot {
				addToIndex(local, t.Object, t)
			}
			mu.Lock()
			byObject = local
			mu.Unlock()
			return nil
		})

		buildErr = grp.Wait()
		if buildErr != nil {
			return
		}

		g.mu.Lock()
		g.bySubject, g.byPredicate, g.byObject = bySubject, byPredicate, byObject
		g.indexBuilt = true
		g.mu.Unlock()

		if g.metrics != nil {
			g.metrics.GraphIndexBuildDuration.WithLabelValues(g.strategy.String()).Observe(time.Since(start).Seconds())
		}
	})
	return buildErr
}

func addToIndex(idx map[cimxterm.Term]map[Triple]struct{}, key cimxterm.Term, t Triple) {
	bucket, ok := idx[key]
	if !ok {
		bucket = make(map[Triple]struct{})
		idx[key] = bucket
	}
	bucket[t] = struct{}{}
}

func (g *IndexedGraph) indexInsert(t Triple) {
	addToIndex(g.bySubject, t.Subject, t)
	addToIndex(g.byPredicate, t.Predicate, t)
	addToIndex(g.byObject, t.Object, t)
}

func (g *IndexedGraph) indexRemove(t Triple) {
	if bucket, ok := g.bySubject[t.Subject]; ok {
		delete(bucket, t)
	}
	if bucket, ok := g.byPredicate[t.Predicate]; ok {
		delete(bucket, t)
	}
	if bucket, ok := g.byObject[t.Object]; ok {
		delete(bucket, t)
	}
}

// Find returns every triple matching pat. When the secondary indexes are
// built it scans the index of the first pinned component, in subject,
// predicate, object order; otherwise it falls back to a full scan.
func (g *IndexedGraph) Find(pat Pattern) iter.Seq[Triple] {
	return func(yield func(Triple) bool) {
		g.mu.RLock()
		indexed := g.indexBuilt && g.strategy == LazyParallel

		var candidates map[Triple]struct{}
		switch {
		case indexed && pat.Subject != nil:
			candidates = g.bySubject[*pat.Subject]
		case indexed && pat.Predicate != nil:
			candidates = g.byPredicate[*pat.Predicate]
		case indexed && pat.Object != nil:
			candidates = g.byObject[*pat.Object]
		default:
			candidates = g.triples
		}

		// Snapshot under the lock so callers may mutate the graph while
		// iterating (spec.md §4.B: find returns "a lazy sequence").
		snapshot := make([]Triple, 0, len(candidates))
		for t := range candidates {
			snapshot = append(snapshot, t)
		}
		g.mu.RUnlock()

		for _, t := range snapshot {
			if pat.Matches(t) {
				if !yield(t) {
					return
				}
			}
		}
	}
}
