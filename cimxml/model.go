package cimxml

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/codes"

	"github.com/iec61970/cimx/cimxgraph"
	"github.com/iec61970/cimx/cimxmetrics"
	"github.com/iec61970/cimx/cimxterm"
)

// Namespace constants spec.md §6 names: the model-description and
// difference-model vocabularies, plus the CIM schema extensions
// namespace the registry's compiled query reads from.
const (
	NamespaceMD   = "http://iec.ch/TC57/61970-552/ModelDescription/1#"
	NamespaceDM   = "http://iec.ch/TC57/61970-552/DifferenceModel/1#"
	NamespaceCIMS = "http://iec.ch/TC57/1999/rdf-schema-extensions-19990926#"

	rdfType = "http://www.w3.org/1999/02/22-rdf-syntax-ns#type"
)

// model header property IRIs.
const (
	propModelSupersedes  = NamespaceMD + "Model.Supersedes"
	propModelDependentOn = NamespaceMD + "Model.DependentOn"
	propModelProfile     = NamespaceMD + "Model.profile"

	typeFullModel       = NamespaceMD + "FullModel"
	typeDifferenceModel = NamespaceDM + "DifferenceModel"
)

// ModelHeader captures the header properties read off a FullModel or
// DifferenceModel typed node element: its subject IRI, the
// Supersedes/DependentOn reference sets, and the declared profile IRIs
// (spec.md §4.I, §8 scenario 1).
type ModelHeader struct {
	Subject      cimxterm.Term
	IsFullModel  bool
	Supersedes   map[string]struct{}
	DependentOn  map[string]struct{}
	Profiles     []string // lexical forms as declared, in document order
}

// newModelHeader creates an empty header for subject.
func newModelHeader(subject cimxterm.Term, isFullModel bool) *ModelHeader {
	return &ModelHeader{
		Subject:     subject,
		IsFullModel: isFullModel,
		Supersedes:  make(map[string]struct{}),
		DependentOn: make(map[string]struct{}),
	}
}

// observe records a header property triple in the header struct if it
// matches one of the model-header predicates (the parser still emits
// the triple into the header graph regardless; this only updates the
// header struct).
func (h *ModelHeader) observe(t cimxgraph.Triple) {
	switch t.Predicate.Value() {
	case propModelSupersedes:
		if t.Object.IsIRI() {
			h.Supersedes[t.Object.Value()] = struct{}{}
		}
	case propModelDependentOn:
		if t.Object.IsIRI() {
			h.DependentOn[t.Object.Value()] = struct{}{}
		}
	case propModelProfile:
		h.Profiles = append(h.Profiles, t.Object.Value())
	}
}

// Model wraps a parsed dataset with the FullModel/DifferenceModel
// accessor surface of spec.md §6: isFullModel/isDifferenceModel,
// getModelHeader, getBody, getForwardDifferences,
// getReverseDifferences, getPreconditions, fullModelToSingleGraph,
// differenceModelToFullModel.
type Model struct {
	header *ModelHeader
	body   cimxgraph.Graph

	headerGraph        cimxgraph.Graph
	forwardDifferences cimxgraph.Graph
	reverseDifferences cimxgraph.Graph
	preconditions      cimxgraph.Graph
}

// NewModel assembles a Model from the graphs a DatasetSink accumulated.
// forwardDifferences, reverseDifferences, and preconditions may be nil
// for a FullModel.
func NewModel(header *ModelHeader, headerGraph, body, forwardDifferences, reverseDifferences, preconditions cimxgraph.Graph) *Model {
	return &Model{
		header:             header,
		headerGraph:        headerGraph,
		body:               body,
		forwardDifferences: forwardDifferences,
		reverseDifferences: reverseDifferences,
		preconditions:      preconditions,
	}
}

func (m *Model) IsFullModel() bool       { return m.header.IsFullModel }
func (m *Model) IsDifferenceModel() bool { return !m.header.IsFullModel }

func (m *Model) ModelHeader() *ModelHeader { return m.header }
func (m *Model) HeaderGraph() cimxgraph.Graph { return m.headerGraph }
func (m *Model) Body() cimxgraph.Graph        { return m.body }

func (m *Model) ForwardDifferences() cimxgraph.Graph { return m.forwardDifferences }
func (m *Model) ReverseDifferences() cimxgraph.Graph { return m.reverseDifferences }
func (m *Model) Preconditions() cimxgraph.Graph      { return m.preconditions }

// FullModelToSingleGraph returns the disjoint union of the header and
// body graphs, with the union's prefix map seeded from the header's
// prefixes (spec.md §6: "returns disjoint union of header+body with
// header's prefixes").
func (m *Model) FullModelToSingleGraph() (*cimxgraph.UnionGraph, error) {
	if !m.IsFullModel() {
		return nil, fmt.Errorf("cimxml: fullModelToSingleGraph called on a non-FullModel dataset")
	}
	union := cimxgraph.NewUnionGraph(m.headerGraph, m.body)
	m.headerGraph.Prefixes().CopyInto(union.Prefixes())
	return union, nil
}

// DifferenceModelToFullModel implements spec.md §6's difference
// application: preconditions are predecessor.IsFullModel(),
// m.IsDifferenceModel(), every triple in m.Preconditions() must be
// contained in predecessor.Body(), and predecessor's model IRI must
// appear in m's Supersedes set. On success it returns a delta graph
// over predecessor's body with additions = forwardDifferences,
// deletions = reverseDifferences, borrowing predecessor's body since
// that graph is already owned by predecessor's own dataset: closing
// the returned delta must not cascade into closing a still-live
// predecessor model out from under its owner (spec.md §9's corrected
// Supersedes sense: reject when the predecessor is NOT in Supersedes,
// not the inverted condition the original source appears to
// implement).
func (m *Model) DifferenceModelToFullModel(predecessor *Model) (*cimxgraph.DeltaGraph, error) {
	if !predecessor.IsFullModel() {
		return nil, fmt.Errorf("cimxml: predecessor is not a FullModel")
	}
	if !m.IsDifferenceModel() {
		return nil, fmt.Errorf("cimxml: receiver is not a DifferenceModel")
	}

	predecessorIRI := predecessor.header.Subject.Value()
	if _, ok := m.header.Supersedes[predecessorIRI]; !ok {
		return nil, fmt.Errorf("cimxml: predecessor %q is not in this model's Supersedes set", predecessorIRI)
	}

	var missing []cimxgraph.Triple
	if m.preconditions != nil {
		for t := range m.preconditions.Find(cimxgraph.AnyPattern()) {
			if !predecessor.body.Contains(t) {
				missing = append(missing, t)
			}
		}
	}
	if len(missing) > 0 {
		return nil, &PreconditionError{Missing: missing}
	}

	delta := cimxgraph.NewDeltaGraph(predecessor.body, nil)
	if m.forwardDifferences != nil {
		for t := range m.forwardDifferences.Find(cimxgraph.AnyPattern()) {
			if err := delta.Add(t); err != nil {
				return nil, err
			}
		}
	}
	if m.reverseDifferences != nil {
		for t := range m.reverseDifferences.Find(cimxgraph.AnyPattern()) {
			if err := delta.Delete(t); err != nil {
				return nil, err
			}
		}
	}
	m.headerGraph.Prefixes().CopyInto(delta.Prefixes())
	return delta, nil
}

// DifferenceModelToFullModelWithContext wraps DifferenceModelToFullModel
// in a trace span, following the teacher's tracer-per-package convention
// (pkg/search/indexer.go), and records the resulting delta's component
// sizes when metrics is non-nil.
func (m *Model) DifferenceModelToFullModelWithContext(ctx context.Context, predecessor *Model, metrics *cimxmetrics.Metrics) (*cimxgraph.DeltaGraph, error) {
	_, span := tracer.Start(ctx, "DifferenceModelToFullModel")
	defer span.End()

	delta, err := m.DifferenceModelToFullModel(predecessor)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	if metrics != nil {
		metrics.DeltaGraphSize.WithLabelValues("base").Set(float64(delta.Base().Size()))
		metrics.DeltaGraphSize.WithLabelValues("additions").Set(float64(delta.Additions().Size()))
		metrics.DeltaGraphSize.WithLabelValues("deletions").Set(float64(delta.Deletions().Size()))
	}
	span.SetStatus(codes.Ok, "applied")
	return delta, nil
}

// PreconditionError reports which precondition triples were absent
// from the predecessor's body during DifferenceModelToFullModel.
type PreconditionError struct {
	Missing []cimxgraph.Triple
}

func (e *PreconditionError) Error() string {
	return fmt.Sprintf("cimxml: %d precondition triple(s) not satisfied by predecessor", len(e.Missing))
}
