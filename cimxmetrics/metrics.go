// Package cimxmetrics exposes Prometheus instrumentation for the parser,
// the profile registry, and the graph store. A host application supplies
// its own *prometheus.Registry; this package never reaches for the
// global default registry, so multiple cimx instances (e.g. one per
// parsed document in a batch job) can register independently scoped
// metrics.
package cimxmetrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds every metric the core publishes.
type Metrics struct {
	TriplesParsedTotal   *prometheus.CounterVec
	ParseDuration        *prometheus.HistogramVec
	ParseWarningsTotal    *prometheus.CounterVec
	ParseErrorsTotal     prometheus.Counter

	RegistryRegistrationsTotal *prometheus.CounterVec
	RegistryMergeCacheHits     prometheus.Counter
	RegistryMergeCacheMisses   prometheus.Counter

	GraphIndexBuildDuration *prometheus.HistogramVec
	DeltaGraphSize          *prometheus.GaugeVec
}

// New creates and registers every metric against registry.
func New(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		TriplesParsedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cimx_triples_parsed_total",
				Help: "Total number of triples emitted by the streaming parser, by target graph context.",
			},
			[]string{"context"},
		),
		ParseDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "cimx_parse_duration_seconds",
				Help:    "Wall-clock duration of a single ParseCimModel call.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"document_type"},
		),
		ParseWarningsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cimx_parse_warnings_total",
				Help: "Recoverable parser diagnostics, by kind (uuid_case, uuid_dashes, duplicate_id, unknown_profile, parse_type, reification, other).",
			},
			[]string{"kind"},
		),
		ParseErrorsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "cimx_parse_errors_total",
				Help: "Total number of fatal parse aborts.",
			},
		),
		RegistryRegistrationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cimx_registry_registrations_total",
				Help: "Profile registrations accepted or rejected by the registry.",
			},
			[]string{"result"},
		),
		RegistryMergeCacheHits: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "cimx_registry_merge_cache_hits_total",
				Help: "Profile-set merge cache hits.",
			},
		),
		RegistryMergeCacheMisses: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "cimx_registry_merge_cache_misses_total",
				Help: "Profile-set merge cache misses.",
			},
		),
		GraphIndexBuildDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "cimx_graph_index_build_duration_seconds",
				Help:    "Duration of lazy triple-pattern index construction, by strategy.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"strategy"},
		),
		DeltaGraphSize: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "cimx_delta_graph_size",
				Help: "Size of the most recently constructed delta overlay, by component (base, additions, deletions).",
			},
			[]string{"component"},
		),
	}

	registry.MustRegister(
		m.TriplesParsedTotal,
		m.ParseDuration,
		m.ParseWarningsTotal,
		m.ParseErrorsTotal,
		m.RegistryRegistrationsTotal,
		m.RegistryMergeCacheHits,
		m.RegistryMergeCacheMisses,
		m.GraphIndexBuildDuration,
		m.DeltaGraphSize,
	)

	return m
}

// Noop returns a Metrics backed by a private, unregistered registry so
// callers that don't care about metrics can still pass a non-nil *Metrics
// to every component without extra nil checks.
func Noop() *Metrics {
	return New(prometheus.NewRegistry())
}
