// Package cimxdataset implements the multi-graph dataset: a keyed map
// from graph-name IRI to graph plus a default graph, with best-effort
// multi-graph transactions (spec component E).
package cimxdataset

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/iec61970/cimx/cimxgraph"
)

// TransactionKind names the operation Begin opens.
type TransactionKind int

const (
	ReadTransaction TransactionKind = iota
	WriteTransaction
)

// Transactable is an optional capability a Graph implementation may
// satisfy. Dataset only calls these methods on graphs that implement
// the interface; graphs that don't are silently skipped (spec.md §4.E:
// "best-effort").
type Transactable interface {
	Begin(ctx context.Context, kind TransactionKind) error
	Commit() error
	Abort() error
	End() error
}

// TransactionError collects the per-graph failures from a best-effort
// transaction step across multiple graphs, grounded in the teacher's
// async.Batch error collection (pkg/async/goroutine.go): submit the
// step against every participating graph, gather every failure rather
// than stopping at the first, and surface a composite error only if
// the collection is non-empty.
type TransactionError struct {
	Step   string
	Errors map[string]error // graph name -> error
}

func (e *TransactionError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "cimxdataset: %s failed on %d graph(s):", e.Step, len(e.Errors))
	for name, err := range e.Errors {
		fmt.Fprintf(&b, " [%s: %v]", name, err)
	}
	return b.String()
}

func (e *TransactionError) Unwrap() []error {
	errs := make([]error, 0, len(e.Errors))
	for _, err := range e.Errors {
		errs = append(errs, err)
	}
	return errs
}

// DefaultGraphName is the pseudo-name used to address the dataset's
// default graph in error reporting.
const DefaultGraphName = ""

// Dataset holds a default graph plus zero or more named graphs, keyed
// by graph-name IRI. Add/remove are O(1); iteration order over graph
// names is unspecified. Guarded by a single multi-reader/single-writer
// lock for the dataset's own structure (spec.md §4.E); this lock
// protects dataset membership, not the graphs' own internals, which
// manage their own concurrency (cimxgraph.IndexedGraph's RWMutex).
type Dataset struct {
	mu           sync.RWMutex
	defaultGraph cimxgraph.Graph
	named        map[string]cimxgraph.Graph
}

// New creates a dataset with defaultGraph as its default graph and no
// named graphs.
func New(defaultGraph cimxgraph.Graph) *Dataset {
	return &Dataset{
		defaultGraph: defaultGraph,
		named:        make(map[string]cimxgraph.Graph),
	}
}

// DefaultGraph returns the dataset's default graph.
func (d *Dataset) DefaultGraph() cimxgraph.Graph {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.defaultGraph
}

// Graph returns the named graph bound to name, or false if none exists.
func (d *Dataset) Graph(name string) (cimxgraph.Graph, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	g, ok := d.named[name]
	return g, ok
}

// SetGraph binds name to g, replacing any existing binding.
func (d *Dataset) SetGraph(name string, g cimxgraph.Graph) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.named[name] = g
}

// RemoveGraph unbinds name. It does not close the removed graph; the
// caller decides whether to close it.
func (d *Dataset) RemoveGraph(name string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.named, name)
}

// GraphOrCreate returns the graph bound to name, creating it via
// newGraph and binding it if absent.
func (d *Dataset) GraphOrCreate(name string, newGraph func() cimxgraph.Graph) cimxgraph.Graph {
	d.mu.Lock()
	defer d.mu.Unlock()
	if g, ok := d.named[name]; ok {
		return g
	}
	g := newGraph()
	d.named[name] = g
	return g
}

// Names returns a snapshot of every bound named-graph name, excluding
// the default graph.
func (d *Dataset) Names() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	names := make([]string, 0, len(d.named))
	for name := range d.named {
		names = append(names, name)
	}
	return names
}

// Size returns the number of named graphs, excluding the default graph.
func (d *Dataset) Size() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.named)
}

// allGraphs returns the default graph plus every named graph, paired
// with a display name for error reporting.
func (d *Dataset) allGraphs() map[string]cimxgraph.Graph {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make(map[string]cimxgraph.Graph, len(d.named)+1)
	out[DefaultGraphName] = d.defaultGraph
	for name, g := range d.named {
		out[name] = g
	}
	return out
}

// Begin opens a transaction of kind on every participating graph that
// implements Transactable. Graphs that don't implement it are skipped.
func (d *Dataset) Begin(ctx context.Context, kind TransactionKind) error {
	return d.forEachTransactable("begin", func(t Transactable) error {
		return t.Begin(ctx, kind)
	})
}

// Commit commits the transaction on every participating transactable
// graph.
func (d *Dataset) Commit() error {
	return d.forEachTransactable("commit", func(t Transactable) error {
		return t.Commit()
	})
}

// Abort aborts the transaction on every participating transactable
// graph.
func (d *Dataset) Abort() error {
	return d.forEachTransactable("abort", func(t Transactable) error {
		return t.Abort()
	})
}

// End ends the transaction on every participating transactable graph,
// releasing any resources Begin acquired.
func (d *Dataset) End() error {
	return d.forEachTransactable("end", func(t Transactable) error {
		return t.End()
	})
}

func (d *Dataset) forEachTransactable(step string, fn func(Transactable) error) error {
	work := make(map[string]func() error)
	for name, g := range d.allGraphs() {
		t, ok := g.(Transactable)
		if !ok {
			continue
		}
		displayName := name
		if displayName == DefaultGraphName {
			displayName = "<default>"
		}
		t := t
		work[displayName] = func() error { return fn(t) }
	}
	failures := runConcurrent(work)
	if len(failures) == 0 {
		return nil
	}
	return &TransactionError{Step: step, Errors: failures}
}

// Close closes the default graph and every named graph concurrently,
// collecting per-graph failures the same way transaction steps do.
func (d *Dataset) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	work := map[string]func() error{"<default>": d.defaultGraph.Close}
	for name, g := range d.named {
		g := g
		work[name] = g.Close
	}
	failures := runConcurrent(work)
	if len(failures) == 0 {
		return nil
	}
	return &TransactionError{Step: "close", Errors: failures}
}
