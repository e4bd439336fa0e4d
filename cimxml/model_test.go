package cimxml

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iec61970/cimx/cimxgraph"
	"github.com/iec61970/cimx/cimxmetrics"
	"github.com/iec61970/cimx/cimxterm"
)

const eqModelDoc = `<?xml version="1.0" encoding="UTF-8"?>
<rdf:RDF xmlns:rdf="http://www.w3.org/1999/02/22-rdf-syntax-ns#"
         xmlns:md="http://iec.ch/TC57/61970-552/ModelDescription/1#"
         xmlns:cim="urn:test:">
  <md:FullModel rdf:about="urn:uuid:eqmodel1"/>
  <cim:Breaker rdf:about="urn:uuid:breaker1">
    <cim:IdentifiedObject.name>Breaker 1</cim:IdentifiedObject.name>
  </cim:Breaker>
</rdf:RDF>`

func diffModelDoc(supersedes string) string {
	return `<?xml version="1.0" encoding="UTF-8"?>
<rdf:RDF xmlns:rdf="http://www.w3.org/1999/02/22-rdf-syntax-ns#"
         xmlns:md="http://iec.ch/TC57/61970-552/ModelDescription/1#"
         xmlns:dm="http://iec.ch/TC57/61970-552/DifferenceModel/1#"
         xmlns:cim="urn:test:">
  <dm:DifferenceModel rdf:about="urn:uuid:diffmodel1">
    <md:Model.Supersedes rdf:resource="` + supersedes + `"/>
    <dm:reverseDifferences>
      <cim:Breaker rdf:about="urn:uuid:breaker1">
        <cim:IdentifiedObject.name>Breaker 1</cim:IdentifiedObject.name>
      </cim:Breaker>
    </dm:reverseDifferences>
    <dm:forwardDifferences>
      <cim:Breaker rdf:about="urn:uuid:breaker1">
        <cim:IdentifiedObject.name>Breaker One</cim:IdentifiedObject.name>
      </cim:Breaker>
    </dm:forwardDifferences>
  </dm:DifferenceModel>
</rdf:RDF>`
}

func TestModel_FullModelToSingleGraph(t *testing.T) {
	model, err := ParseCimModel(context.Background(), strings.NewReader(eqModelDoc), cimxmetrics.Noop())
	require.NoError(t, err)

	union, err := model.FullModelToSingleGraph()
	require.NoError(t, err)

	breaker := cimxterm.IRITerm("urn:uuid:breaker1")
	pred := cimxterm.IRITerm("urn:test:IdentifiedObject.name")
	assert.True(t, union.Contains(cimxgraph.Triple{Subject: breaker, Predicate: pred, Object: cimxterm.PlainLiteral("Breaker 1")}))

	header := cimxterm.IRITerm("urn:uuid:eqmodel1")
	assert.True(t, union.Contains(cimxgraph.Triple{Subject: header, Predicate: cimxterm.IRITerm(rdfType), Object: cimxterm.IRITerm(NamespaceMD + "FullModel")}))
}

func TestModel_DifferenceModelToFullModel_Success(t *testing.T) {
	predecessor, err := ParseCimModel(context.Background(), strings.NewReader(eqModelDoc), cimxmetrics.Noop())
	require.NoError(t, err)

	diff, err := ParseCimModel(context.Background(), strings.NewReader(diffModelDoc("urn:uuid:eqmodel1")), cimxmetrics.Noop())
	require.NoError(t, err)

	delta, err := diff.DifferenceModelToFullModel(predecessor)
	require.NoError(t, err)

	breaker := cimxterm.IRITerm("urn:uuid:breaker1")
	pred := cimxterm.IRITerm("urn:test:IdentifiedObject.name")
	assert.True(t, delta.Contains(cimxgraph.Triple{Subject: breaker, Predicate: pred, Object: cimxterm.PlainLiteral("Breaker One")}))
	assert.False(t, delta.Contains(cimxgraph.Triple{Subject: breaker, Predicate: pred, Object: cimxterm.PlainLiteral("Breaker 1")}))
}

func TestModel_DifferenceModelToFullModel_ClosingDeltaDoesNotClosePredecessor(t *testing.T) {
	predecessor, err := ParseCimModel(context.Background(), strings.NewReader(eqModelDoc), cimxmetrics.Noop())
	require.NoError(t, err)

	diff, err := ParseCimModel(context.Background(), strings.NewReader(diffModelDoc("urn:uuid:eqmodel1")), cimxmetrics.Noop())
	require.NoError(t, err)

	delta, err := diff.DifferenceModelToFullModel(predecessor)
	require.NoError(t, err)

	require.NoError(t, delta.Close())

	breaker := cimxterm.IRITerm("urn:uuid:breaker1")
	pred := cimxterm.IRITerm("urn:test:IdentifiedObject.name")
	assert.True(t, predecessor.Body().Contains(cimxgraph.Triple{Subject: breaker, Predicate: pred, Object: cimxterm.PlainLiteral("Breaker 1")}))
}

func TestModel_DifferenceModelToFullModel_WrongSupersedesRejected(t *testing.T) {
	predecessor, err := ParseCimModel(context.Background(), strings.NewReader(eqModelDoc), cimxmetrics.Noop())
	require.NoError(t, err)

	diff, err := ParseCimModel(context.Background(), strings.NewReader(diffModelDoc("urn:uuid:someOtherModel")), cimxmetrics.Noop())
	require.NoError(t, err)

	_, err = diff.DifferenceModelToFullModel(predecessor)
	assert.Error(t, err)
}

const diffModelWithPreconditionDoc = `<?xml version="1.0" encoding="UTF-8"?>
<rdf:RDF xmlns:rdf="http://www.w3.org/1999/02/22-rdf-syntax-ns#"
         xmlns:md="http://iec.ch/TC57/61970-552/ModelDescription/1#"
         xmlns:dm="http://iec.ch/TC57/61970-552/DifferenceModel/1#"
         xmlns:cim="urn:test:">
  <dm:DifferenceModel rdf:about="urn:uuid:diffmodel2">
    <md:Model.Supersedes rdf:resource="urn:uuid:eqmodel1"/>
    <dm:preconditions>
      <cim:Breaker rdf:about="urn:uuid:breaker1">
        <cim:IdentifiedObject.name>Not The Real Name</cim:IdentifiedObject.name>
      </cim:Breaker>
    </dm:preconditions>
  </dm:DifferenceModel>
</rdf:RDF>`

func TestModel_DifferenceModelToFullModel_PreconditionFailure(t *testing.T) {
	predecessor, err := ParseCimModel(context.Background(), strings.NewReader(eqModelDoc), cimxmetrics.Noop())
	require.NoError(t, err)

	diff, err := ParseCimModel(context.Background(), strings.NewReader(diffModelWithPreconditionDoc), cimxmetrics.Noop())
	require.NoError(t, err)

	_, err = diff.DifferenceModelToFullModel(predecessor)
	require.Error(t, err)

	var preErr *PreconditionError
	require.ErrorAs(t, err, &preErr)
	assert.Len(t, preErr.Missing, 1)
}
