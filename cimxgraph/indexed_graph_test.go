package cimxgraph

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iec61970/cimx/cimxterm"
)

func TestIndexedGraph_AddContainsDelete(t *testing.T) {
	g := NewIndexedGraph(Minimal, nil)

	require.NoError(t, g.Add(tripleABC()))
	assert.True(t, g.Contains(tripleABC()))
	assert.Equal(t, 1, g.Size())

	require.NoError(t, g.Delete(tripleABC()))
	assert.False(t, g.Contains(tripleABC()))
	assert.True(t, g.Empty())
}

func TestIndexedGraph_AddIsIdempotent(t *testing.T) {
	g := NewIndexedGraph(Minimal, nil)
	require.NoError(t, g.Add(tripleABC()))
	require.NoError(t, g.Add(tripleABC()))
	assert.Equal(t, 1, g.Size())
}

func TestIndexedGraph_DeleteMissingIsNoOp(t *testing.T) {
	g := NewIndexedGraph(Minimal, nil)
	require.NoError(t, g.Delete(tripleABC()))
	assert.Equal(t, 0, g.Size())
}

func TestIndexedGraph_Clear(t *testing.T) {
	g := NewIndexedGraph(Minimal, nil)
	require.NoError(t, g.Add(tripleABC()))
	require.NoError(t, g.Add(tripleXYZ()))
	require.NoError(t, g.Clear())
	assert.True(t, g.Empty())
}

func TestIndexedGraph_FindMinimalFallsBackToScan(t *testing.T) {
	g := NewIndexedGraph(Minimal, nil)
	require.NoError(t, g.Add(tripleABC()))
	require.NoError(t, g.Add(tripleXYZ()))

	var found []Triple
	for tr := range g.Find(S(cimxterm.IRITerm("urn:a"))) {
		found = append(found, tr)
	}
	assert.Equal(t, []Triple{tripleABC()}, found)
}

func TestIndexedGraph_LazyParallelBuildsIndexAndFindsBySubject(t *testing.T) {
	g := NewIndexedGraph(LazyParallel, nil)
	require.NoError(t, g.Add(tripleABC()))
	require.NoError(t, g.Add(tripleXYZ()))

	require.NoError(t, g.BuildIndex(context.Background()))

	var found []Triple
	for tr := range g.Find(S(cimxterm.IRITerm("urn:x"))) {
		found = append(found, tr)
	}
	assert.Equal(t, []Triple{tripleXYZ()}, found)
}

func TestIndexedGraph_BuildIndexIsIdempotent(t *testing.T) {
	g := NewIndexedGraph(LazyParallel, nil)
	require.NoError(t, g.Add(tripleABC()))

	require.NoError(t, g.BuildIndex(context.Background()))
	require.NoError(t, g.BuildIndex(context.Background()))

	assert.True(t, g.Contains(tripleABC()))
}

func TestIndexedGraph_AddAfterIndexBuiltUpdatesIndexes(t *testing.T) {
	g := NewIndexedGraph(LazyParallel, nil)
	require.NoError(t, g.BuildIndex(context.Background()))
	require.NoError(t, g.Add(tripleABC()))

	var found []Triple
	for tr := range g.Find(P(cimxterm.IRITerm("urn:b"))) {
		found = append(found, tr)
	}
	assert.Equal(t, []Triple{tripleABC()}, found)

	require.NoError(t, g.Delete(tripleABC()))
	found = nil
	for tr := range g.Find(P(cimxterm.IRITerm("urn:b"))) {
		found = append(found, tr)
	}
	assert.Empty(t, found)
}

func TestIndexedGraph_Strategy(t *testing.T) {
	assert.Equal(t, Minimal, NewIndexedGraph(Minimal, nil).Strategy())
	assert.Equal(t, "MINIMAL", Minimal.String())
	assert.Equal(t, "LAZY_PARALLEL", LazyParallel.String())
}
