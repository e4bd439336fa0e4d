package cimxml

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/iec61970/cimx/cimxdataset"
	"github.com/iec61970/cimx/cimxgraph"
	"github.com/iec61970/cimx/cimxmetrics"
)

// DatasetSink is the concrete, dataset-backed Sink implementation
// (spec.md §4.H). setCurrentContext lazily creates each context's named
// graph with the context-appropriate indexing strategy and seeds its
// prefix map from the dataset's already-known prefixes; finish()
// builds every lazily-indexed graph's secondary indexes concurrently.
type DatasetSink struct {
	mu sync.Mutex

	dataset *cimxdataset.Dataset
	metrics *cimxmetrics.Metrics

	modelIRI string // set once the header subject is known
	context  Context
	graphs   map[Context]cimxgraph.Graph

	versionOfCIMXML       string
	versionOfIEC61970_552 string

	header *ModelHeader

	globalPrefixes *cimxgraph.PrefixMap
}

// NewDatasetSink creates a sink backed by a fresh dataset whose default
// graph is the body graph. metrics may be nil.
func NewDatasetSink(metrics *cimxmetrics.Metrics) *DatasetSink {
	body := cimxgraph.NewIndexedGraph(cimxgraph.LazyParallel, metrics)
	ds := cimxdataset.New(body)
	return &DatasetSink{
		dataset:        ds,
		metrics:        metrics,
		context:        Body,
		graphs:         map[Context]cimxgraph.Graph{Body: body},
		globalPrefixes: cimxgraph.NewPrefixMap(),
	}
}

func (s *DatasetSink) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.context = Body
}

// SetModelIRI records the model header's subject IRI once known, so
// subsequent SetCurrentContext calls can compute named-graph IRIs
// (spec.md §4.H: "map ctx to its named-graph IRI").
func (s *DatasetSink) SetModelIRI(iri string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.modelIRI = iri
}

func (s *DatasetSink) SetCurrentContext(ctx Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.context = ctx
	if _, ok := s.graphs[ctx]; ok {
		return
	}

	strategy := cimxgraph.LazyParallel
	if ctx == FullModelHeader || ctx == DifferenceModelHeader {
		strategy = cimxgraph.Minimal
	}
	g := cimxgraph.NewIndexedGraph(strategy, s.metrics)
	s.globalPrefixes.CopyInto(g.Prefixes())
	s.graphs[ctx] = g

	if ctx != Body {
		name := ctx.GraphName(s.modelIRI)
		s.dataset.SetGraph(name, g)
	}
}

func (s *DatasetSink) CurrentContext() Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.context
}

func (s *DatasetSink) Triple(t cimxgraph.Triple) {
	s.mu.Lock()
	ctx := s.context
	g := s.graphs[ctx]
	if s.header != nil && (ctx == FullModelHeader || ctx == DifferenceModelHeader) {
		s.header.observe(t)
	}
	s.mu.Unlock()
	g.Add(t) //nolint:errcheck // IndexedGraph.Add never fails
	if s.metrics != nil {
		s.metrics.TriplesParsedTotal.WithLabelValues(ctx.String()).Inc()
	}
}

func (s *DatasetSink) Prefix(prefix, namespace string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.globalPrefixes.Set(prefix, namespace)
	if g, ok := s.graphs[s.context]; ok {
		g.Prefixes().Set(prefix, namespace)
	}
}

func (s *DatasetSink) Base(uri string) {
	// The resolver owns base tracking; the sink only needs prefixes and
	// triples, so Base is a no-op hook kept to satisfy the Sink
	// interface's parity with spec.md §4.H.
}

// Finish builds every lazily-indexed graph's secondary indexes
// concurrently via errgroup, per spec.md §5.H: "finish() calls
// errgroup.Group.Go per lazily-indexed graph ... and waits."
func (s *DatasetSink) Finish() error {
	s.mu.Lock()
	graphs := make([]*cimxgraph.IndexedGraph, 0, len(s.graphs))
	for _, g := range s.graphs {
		if ig, ok := g.(*cimxgraph.IndexedGraph); ok && ig.Strategy() == cimxgraph.LazyParallel {
			graphs = append(graphs, ig)
		}
	}
	s.mu.Unlock()

	grp, ctx := errgroup.WithContext(context.Background())
	for _, g := range graphs {
		g := g
		grp.Go(func() error {
			return g.BuildIndex(ctx)
		})
	}
	return grp.Wait()
}

func (s *DatasetSink) SetVersionOfCIMXML(version string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.versionOfCIMXML = version
}

func (s *DatasetSink) VersionOfCIMXML() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.versionOfCIMXML
}

func (s *DatasetSink) SetVersionOfIEC61970_552(version string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.versionOfIEC61970_552 = version
}

func (s *DatasetSink) VersionOfIEC61970_552() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.versionOfIEC61970_552
}

// SetModelHeader installs header as the current model's header, so
// subsequent header-context triples update it via observe.
func (s *DatasetSink) SetModelHeader(header *ModelHeader) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.header = header
}

func (s *DatasetSink) ModelHeader() *ModelHeader {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.header
}

func (s *DatasetSink) Dataset() *cimxdataset.Dataset {
	return s.dataset
}

// Graph returns the graph currently bound to ctx, if any.
func (s *DatasetSink) Graph(ctx Context) (cimxgraph.Graph, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.graphs[ctx]
	return g, ok
}
