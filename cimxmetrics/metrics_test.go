package cimxmetrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

func TestNewRegistersAllMetrics(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := New(registry)

	m.TriplesParsedTotal.WithLabelValues("body").Inc()
	m.ParseErrorsTotal.Inc()

	families, err := registry.Gather()
	require.NoError(t, err)
	require.NotEmpty(t, families)
}

func TestNoopIsIndependentlyRegistered(t *testing.T) {
	a := Noop()
	b := Noop()
	a.ParseErrorsTotal.Inc()
	require.NotPanics(t, func() { b.ParseErrorsTotal.Inc() })
}
