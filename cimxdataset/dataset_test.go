package cimxdataset

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iec61970/cimx/cimxgraph"
)

func newGraph() cimxgraph.Graph {
	return cimxgraph.NewIndexedGraph(cimxgraph.Minimal, nil)
}

func TestDataset_SetGraphAndGraph(t *testing.T) {
	ds := New(newGraph())
	g := newGraph()
	ds.SetGraph("urn:uuid:graph-1", g)

	got, ok := ds.Graph("urn:uuid:graph-1")
	require.True(t, ok)
	assert.Same(t, g, got)
}

func TestDataset_GraphMissing(t *testing.T) {
	ds := New(newGraph())
	_, ok := ds.Graph("urn:uuid:missing")
	assert.False(t, ok)
}

func TestDataset_RemoveGraph(t *testing.T) {
	ds := New(newGraph())
	ds.SetGraph("urn:uuid:graph-1", newGraph())
	ds.RemoveGraph("urn:uuid:graph-1")

	_, ok := ds.Graph("urn:uuid:graph-1")
	assert.False(t, ok)
}

func TestDataset_GraphOrCreate(t *testing.T) {
	ds := New(newGraph())
	calls := 0
	factory := func() cimxgraph.Graph {
		calls++
		return newGraph()
	}

	g1 := ds.GraphOrCreate("urn:uuid:graph-1", factory)
	g2 := ds.GraphOrCreate("urn:uuid:graph-1", factory)

	assert.Same(t, g1, g2)
	assert.Equal(t, 1, calls)
}

func TestDataset_NamesAndSize(t *testing.T) {
	ds := New(newGraph())
	ds.SetGraph("urn:uuid:a", newGraph())
	ds.SetGraph("urn:uuid:b", newGraph())

	assert.Equal(t, 2, ds.Size())
	assert.ElementsMatch(t, []string{"urn:uuid:a", "urn:uuid:b"}, ds.Names())
}

// fakeTransactableGraph wraps an IndexedGraph to record transaction
// lifecycle calls and optionally fail one of them.
type fakeTransactableGraph struct {
	cimxgraph.Graph
	failOn string
	calls  []string
}

func (f *fakeTransactableGraph) Begin(ctx context.Context, kind TransactionKind) error {
	f.calls = append(f.calls, "begin")
	if f.failOn == "begin" {
		return errors.New("begin failed")
	}
	return nil
}

func (f *fakeTransactableGraph) Commit() error {
	f.calls = append(f.calls, "commit")
	if f.failOn == "commit" {
		return errors.New("commit failed")
	}
	return nil
}

func (f *fakeTransactableGraph) Abort() error {
	f.calls = append(f.calls, "abort")
	return nil
}

func (f *fakeTransactableGraph) End() error {
	f.calls = append(f.calls, "end")
	return nil
}

func TestDataset_BeginCommitAcrossTransactableGraphs(t *testing.T) {
	ds := New(newGraph())
	g1 := &fakeTransactableGraph{Graph: newGraph()}
	g2 := &fakeTransactableGraph{Graph: newGraph()}
	ds.SetGraph("urn:uuid:a", g1)
	ds.SetGraph("urn:uuid:b", g2)

	require.NoError(t, ds.Begin(context.Background(), WriteTransaction))
	require.NoError(t, ds.Commit())
	require.NoError(t, ds.End())

	assert.Equal(t, []string{"begin", "commit", "end"}, g1.calls)
	assert.Equal(t, []string{"begin", "commit", "end"}, g2.calls)
}

func TestDataset_NonTransactableGraphsAreSkipped(t *testing.T) {
	ds := New(newGraph())
	ds.SetGraph("urn:uuid:a", newGraph())

	assert.NoError(t, ds.Begin(context.Background(), ReadTransaction))
	assert.NoError(t, ds.Commit())
}

func TestDataset_CommitFailureIsCollectedAsCompositeError(t *testing.T) {
	ds := New(newGraph())
	ok := &fakeTransactableGraph{Graph: newGraph()}
	bad := &fakeTransactableGraph{Graph: newGraph(), failOn: "commit"}
	ds.SetGraph("urn:uuid:ok", ok)
	ds.SetGraph("urn:uuid:bad", bad)

	err := ds.Commit()
	require.Error(t, err)

	var txErr *TransactionError
	require.ErrorAs(t, err, &txErr)
	assert.Equal(t, "commit", txErr.Step)
	assert.Len(t, txErr.Errors, 1)
	assert.Contains(t, txErr.Errors, "urn:uuid:bad")
}

func TestDataset_Close(t *testing.T) {
	ds := New(newGraph())
	ds.SetGraph("urn:uuid:a", newGraph())
	assert.NoError(t, ds.Close())
}
