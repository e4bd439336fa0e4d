package cimxml

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iec61970/cimx/cimxgraph"
	"github.com/iec61970/cimx/cimxmetrics"
	"github.com/iec61970/cimx/cimxprofile"
	"github.com/iec61970/cimx/cimxterm"
)

// These IRIs mirror cimxprofile's unexported compileProperties query
// predicates, spelled out here since that package's constants aren't
// exported across the package boundary.
const (
	testOwlOntologyType  = "http://www.w3.org/2002/07/owl#Ontology"
	testOwlVersionIRI    = "http://www.w3.org/2002/07/owl#versionIRI"
	testRdfsDomain       = "http://www.w3.org/2000/01/rdf-schema#domain"
	testCimsDataType     = "http://iec.ch/TC57/1999/rdf-schema-extensions-19990926#dataType"
	testCimsStereotype   = "http://iec.ch/TC57/1999/rdf-schema-extensions-19990926#stereotype"
	testRdfsLabel        = "http://www.w3.org/2000/01/rdf-schema#label"
	testStereotypePrim   = "Primitive"
)

func addAttributeTriples(t *testing.T, g cimxgraph.Graph, property, rdfTypeIRI, primitiveTypeName string) {
	t.Helper()
	datatype := cimxterm.IRITerm(property + "-type")
	add := func(s, p, o cimxterm.Term) {
		require.NoError(t, g.Add(cimxgraph.Triple{Subject: s, Predicate: p, Object: o}))
	}
	add(cimxterm.IRITerm(property), cimxterm.IRITerm(testRdfsDomain), cimxterm.IRITerm(rdfTypeIRI))
	add(cimxterm.IRITerm(property), cimxterm.IRITerm(testCimsDataType), datatype)
	add(datatype, cimxterm.IRITerm(testCimsStereotype), cimxterm.PlainLiteral(testStereotypePrim))
	add(datatype, cimxterm.IRITerm(testRdfsLabel), cimxterm.PlainLiteral(primitiveTypeName))
}

func TestParser_ProfileAwareLiteralTyping(t *testing.T) {
	const versionIRI = "urn:profile:test-equipment"
	ontology := cimxgraph.NewIndexedGraph(cimxgraph.Minimal, nil)
	ontology.Prefixes().Set("cim", "http://iec.ch/TC57/CIM100#")
	require.NoError(t, ontology.Add(cimxgraph.Triple{
		Subject:   cimxterm.IRITerm("urn:uuid:ontology1"),
		Predicate: cimxterm.IRITerm(rdfType),
		Object:    cimxterm.IRITerm(testOwlOntologyType),
	}))
	require.NoError(t, ontology.Add(cimxgraph.Triple{
		Subject:   cimxterm.IRITerm("urn:uuid:ontology1"),
		Predicate: cimxterm.IRITerm(testOwlVersionIRI),
		Object:    cimxterm.IRITerm(versionIRI),
	}))
	addAttributeTriples(t, ontology, "urn:test:Breaker.normalOpen", "urn:test:Breaker", "Boolean")
	addAttributeTriples(t, ontology, "urn:test:Breaker.infoURI", "urn:test:Breaker", "URI")

	profile, err := cimxprofile.DetectProfile(ontology)
	require.NoError(t, err)

	registry, err := cimxprofile.NewRegistry(16)
	require.NoError(t, err)
	require.NoError(t, registry.Register(profile, ontology))

	doc := `<?xml version="1.0" encoding="UTF-8"?>
<rdf:RDF xmlns:rdf="http://www.w3.org/1999/02/22-rdf-syntax-ns#"
         xmlns:md="http://iec.ch/TC57/61970-552/ModelDescription/1#"
         xmlns:cim="urn:test:">
  <md:FullModel rdf:about="urn:uuid:model1">
    <md:Model.profile>` + versionIRI + `</md:Model.profile>
  </md:FullModel>
  <cim:Breaker rdf:about="urn:uuid:breaker1">
    <cim:Breaker.normalOpen>true</cim:Breaker.normalOpen>
    <cim:Breaker.infoURI>http://example.org/breaker1</cim:Breaker.infoURI>
  </cim:Breaker>
</rdf:RDF>`

	model, err := ParseCimModel(context.Background(), strings.NewReader(doc), cimxmetrics.Noop(), WithRegistry(registry))
	require.NoError(t, err)

	body := model.Body()
	breaker := cimxterm.IRITerm("urn:uuid:breaker1")

	var boolVal cimxterm.Term
	found := false
	for tr := range body.Find(cimxgraph.SP(breaker, cimxterm.IRITerm("urn:test:Breaker.normalOpen"))) {
		boolVal = tr.Object
		found = true
	}
	require.True(t, found)
	assert.True(t, boolVal.IsLiteral())
	assert.Equal(t, "http://www.w3.org/2001/XMLSchema#boolean", boolVal.Datatype())
	assert.Equal(t, "true", boolVal.Value())

	var uriVal cimxterm.Term
	found = false
	for tr := range body.Find(cimxgraph.SP(breaker, cimxterm.IRITerm("urn:test:Breaker.infoURI"))) {
		uriVal = tr.Object
		found = true
	}
	require.True(t, found)
	assert.True(t, uriVal.IsIRI())
	assert.Equal(t, "http://example.org/breaker1", uriVal.Value())
}
