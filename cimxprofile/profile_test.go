package cimxprofile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iec61970/cimx/cimxgraph"
	"github.com/iec61970/cimx/cimxterm"
)

func newGraphWithCimNS(ns string) *cimxgraph.IndexedGraph {
	g := cimxgraph.NewIndexedGraph(cimxgraph.Minimal, nil)
	g.Prefixes().Set("cim", ns)
	return g
}

func addTriple(t *testing.T, g cimxgraph.Graph, s, p, o cimxterm.Term) {
	t.Helper()
	require.NoError(t, g.Add(cimxgraph.Triple{Subject: s, Predicate: p, Object: o}))
}

func TestDetectProfile_HeaderFingerprint(t *testing.T) {
	g := newGraphWithCimNS("http://iec.ch/TC57/CIM100#")
	addTriple(t, g,
		cimxterm.IRITerm("urn:uuid:header-class-1#Package_FileHeaderProfile"),
		cimxterm.IRITerm(rdfTypePred),
		cimxterm.IRITerm(cimsClassCategoryType),
	)

	p, err := DetectProfile(g)
	require.NoError(t, err)
	assert.True(t, p.IsHeaderProfile())
	assert.Equal(t, CIM17, p.CimVersion())

	kw, ok := p.DcatKeyword()
	assert.True(t, ok)
	assert.Equal(t, "DH", kw)
}

func TestDetectProfile_OntologyFingerprint(t *testing.T) {
	g := newGraphWithCimNS("https://cim.ucaiug.io/ns#")
	ontology := cimxterm.IRITerm("urn:uuid:ontology-1")
	addTriple(t, g, ontology, cimxterm.IRITerm(rdfTypePred), cimxterm.IRITerm(owlOntologyType))
	addTriple(t, g, ontology, cimxterm.IRITerm(owlVersionIRIPred), cimxterm.IRITerm("http://iec.ch/TC57/ns/CIM/Equipment-EU/3.0"))
	addTriple(t, g, ontology, cimxterm.IRITerm(dcatKeywordPred), cimxterm.PlainLiteral("EquipmentProfile"))

	p, err := DetectProfile(g)
	require.NoError(t, err)
	assert.False(t, p.IsHeaderProfile())
	assert.Equal(t, CIM18, p.CimVersion())

	kw, ok := p.DcatKeyword()
	assert.True(t, ok)
	assert.Equal(t, "EquipmentProfile", kw)

	iris := p.OwlVersionIRIs()
	assert.Len(t, iris, 1)
	_, ok = iris["http://iec.ch/TC57/ns/CIM/Equipment-EU/3.0"]
	assert.True(t, ok)
}

func TestDetectProfile_CIM18DocumentHeaderVersionIRIIsHeaderProfile(t *testing.T) {
	g := newGraphWithCimNS("https://cim.ucaiug.io/ns#")
	ontology := cimxterm.IRITerm("urn:uuid:ontology-1")
	addTriple(t, g, ontology, cimxterm.IRITerm(rdfTypePred), cimxterm.IRITerm(owlOntologyType))
	addTriple(t, g, ontology, cimxterm.IRITerm(owlVersionIRIPred), cimxterm.IRITerm("https://ap-voc.cim4.eu/DocumentHeader/3.0"))

	p, err := DetectProfile(g)
	require.NoError(t, err)
	assert.True(t, p.IsHeaderProfile())
	assert.Equal(t, CIM18, p.CimVersion())
}

func TestDetectProfile_CIM16IsFixedFingerprint(t *testing.T) {
	g := newGraphWithCimNS("http://iec.ch/TC57/2013/CIM-schema-cim16#")
	versionClass := cimxterm.IRITerm("http://iec.ch/TC57/2013/CIM-schema-cim16#IEC61970CIMVersion")
	shortName := cimxterm.IRITerm("http://iec.ch/TC57/2013/CIM-schema-cim16#IEC61970CIMVersion.shortName")
	entsoeURI := cimxterm.IRITerm("http://iec.ch/TC57/2013/CIM-schema-cim16#IEC61970CIMVersion.entsoeURI")

	addTriple(t, g, shortName, cimxterm.IRITerm(rdfsDomainPred), versionClass)
	addTriple(t, g, shortName, cimxterm.IRITerm(cimsIsFixedPred), cimxterm.PlainLiteral("IEC61970CIM16v29"))
	addTriple(t, g, entsoeURI, cimxterm.IRITerm(rdfsDomainPred), versionClass)
	addTriple(t, g, entsoeURI, cimxterm.IRITerm(cimsIsFixedPred), cimxterm.PlainLiteral("http://iec.ch/TC57/2013/CIM-schema-cim16"))

	p, err := DetectProfile(g)
	require.NoError(t, err)
	assert.False(t, p.IsHeaderProfile())
	assert.Equal(t, CIM16, p.CimVersion())

	kw, ok := p.DcatKeyword()
	assert.True(t, ok)
	assert.Equal(t, "IEC61970CIM16v29", kw)

	iris := p.OwlVersionIRIs()
	assert.Len(t, iris, 1)
	_, ok = iris["http://iec.ch/TC57/2013/CIM-schema-cim16"]
	assert.True(t, ok)
}

func TestDetectProfile_NeitherFingerprintRejects(t *testing.T) {
	g := newGraphWithCimNS("http://iec.ch/TC57/CIM100#")
	addTriple(t, g,
		cimxterm.IRITerm("urn:uuid:thing-1"),
		cimxterm.IRITerm("urn:some:predicate"),
		cimxterm.PlainLiteral("value"),
	)

	_, err := DetectProfile(g)
	assert.ErrorIs(t, err, ErrNotAProfile)
}

func TestDetectProfile_NoCimPrefixRejects(t *testing.T) {
	g := cimxgraph.NewIndexedGraph(cimxgraph.Minimal, nil)
	_, err := DetectProfile(g)
	assert.ErrorIs(t, err, ErrNotAProfile)
}

func TestDetectProfile_UnrecognizedNamespaceIsNoCIM(t *testing.T) {
	g := newGraphWithCimNS("http://example.org/not-a-cim-namespace#")
	ontology := cimxterm.IRITerm("urn:uuid:ontology-1")
	addTriple(t, g, ontology, cimxterm.IRITerm(rdfTypePred), cimxterm.IRITerm(owlOntologyType))
	addTriple(t, g, ontology, cimxterm.IRITerm(owlVersionIRIPred), cimxterm.IRITerm("urn:profile:v1"))

	_, err := DetectProfile(g)
	assert.ErrorIs(t, err, ErrNotAProfile)
}

func TestProfile_EqualSameVersionIRISet(t *testing.T) {
	g1 := newGraphWithCimNS("http://iec.ch/TC57/CIM100#")
	ontology1 := cimxterm.IRITerm("urn:uuid:ontology-1")
	addTriple(t, g1, ontology1, cimxterm.IRITerm(rdfTypePred), cimxterm.IRITerm(owlOntologyType))
	addTriple(t, g1, ontology1, cimxterm.IRITerm(owlVersionIRIPred), cimxterm.IRITerm("urn:profile:v1"))
	p1, err := DetectProfile(g1)
	require.NoError(t, err)

	g2 := newGraphWithCimNS("http://iec.ch/TC57/CIM100#")
	ontology2 := cimxterm.IRITerm("urn:uuid:ontology-2")
	addTriple(t, g2, ontology2, cimxterm.IRITerm(rdfTypePred), cimxterm.IRITerm(owlOntologyType))
	addTriple(t, g2, ontology2, cimxterm.IRITerm(owlVersionIRIPred), cimxterm.IRITerm("urn:profile:v1"))
	p2, err := DetectProfile(g2)
	require.NoError(t, err)

	assert.True(t, p1.Equal(p2))
}

func TestProfile_EqualDifferentVersionIRISet(t *testing.T) {
	g1 := newGraphWithCimNS("http://iec.ch/TC57/CIM100#")
	ontology1 := cimxterm.IRITerm("urn:uuid:ontology-1")
	addTriple(t, g1, ontology1, cimxterm.IRITerm(rdfTypePred), cimxterm.IRITerm(owlOntologyType))
	addTriple(t, g1, ontology1, cimxterm.IRITerm(owlVersionIRIPred), cimxterm.IRITerm("urn:profile:v1"))
	p1, err := DetectProfile(g1)
	require.NoError(t, err)

	g2 := newGraphWithCimNS("http://iec.ch/TC57/CIM100#")
	ontology2 := cimxterm.IRITerm("urn:uuid:ontology-2")
	addTriple(t, g2, ontology2, cimxterm.IRITerm(rdfTypePred), cimxterm.IRITerm(owlOntologyType))
	addTriple(t, g2, ontology2, cimxterm.IRITerm(owlVersionIRIPred), cimxterm.IRITerm("urn:profile:v2"))
	p2, err := DetectProfile(g2)
	require.NoError(t, err)

	assert.False(t, p1.Equal(p2))
}
