package cimxprofile

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPrimitiveTable_BuiltinLookup(t *testing.T) {
	tbl := NewPrimitiveTable()

	iri, ok := tbl.Lookup("Boolean")
	assert.True(t, ok)
	assert.Equal(t, xsdBoolean, iri)

	iri, ok = tbl.Lookup("DateTime")
	assert.True(t, ok)
	assert.Equal(t, xsdDateTime, iri)

	iri, ok = tbl.Lookup("LangString")
	assert.True(t, ok)
	assert.Equal(t, rdfLangString, iri)
}

func TestPrimitiveTable_UnknownFallsBackToXSDString(t *testing.T) {
	tbl := NewPrimitiveTable()
	iri, ok := tbl.Lookup("NotARealType")
	assert.False(t, ok)
	assert.Equal(t, xsdString, iri)
}

func TestPrimitiveTable_RegisterOverwrites(t *testing.T) {
	tbl := NewPrimitiveTable()
	tbl.Register("Custom", "urn:custom:datatype")

	iri, ok := tbl.Lookup("Custom")
	assert.True(t, ok)
	assert.Equal(t, "urn:custom:datatype", iri)

	tbl.Register("Boolean", "urn:override:boolean")
	iri, ok = tbl.Lookup("Boolean")
	assert.True(t, ok)
	assert.Equal(t, "urn:override:boolean", iri)
}
