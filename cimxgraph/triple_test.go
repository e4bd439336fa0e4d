package cimxgraph

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/iec61970/cimx/cimxterm"
)

func TestPattern_Matches(t *testing.T) {
	tr := tripleABC()

	assert.True(t, AnyPattern().Matches(tr))
	assert.True(t, S(cimxterm.IRITerm("urn:a")).Matches(tr))
	assert.False(t, S(cimxterm.IRITerm("urn:nope")).Matches(tr))
	assert.True(t, SPO(cimxterm.IRITerm("urn:a"), cimxterm.IRITerm("urn:b"), cimxterm.IRITerm("urn:c")).Matches(tr))
	assert.False(t, O(cimxterm.IRITerm("urn:nope")).Matches(tr))
	assert.True(t, PO(cimxterm.IRITerm("urn:b"), cimxterm.IRITerm("urn:c")).Matches(tr))
}

func TestTriple_String(t *testing.T) {
	tr := tripleABC()
	assert.Equal(t, "<urn:a> <urn:b> <urn:c> .", tr.String())
}
