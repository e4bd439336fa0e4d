package cimxprofile

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"

	"github.com/iec61970/cimx/cimxgraph"
	"github.com/iec61970/cimx/cimxmetrics"
	"github.com/iec61970/cimx/cimxterm"
)

var tracer = otel.Tracer("cimx/cimxprofile")

const (
	rdfsDomainPred   = "http://www.w3.org/2000/01/rdf-schema#domain"
	rdfsRangePred    = "http://www.w3.org/2000/01/rdf-schema#range"
	cimsDataTypePred = cimsNS + "dataType"
	cimsAssocUsedPred = cimsNS + "AssociationUsed"
	cimsStereotypePred = cimsNS + "stereotype"
	cimsValueAttr    = "http://iec.ch/TC57/NonStandard/UML#value"
	rdfsLabelPred    = "http://www.w3.org/2000/01/rdf-schema#label"

	stereotypeCIMDatatype = "CIMDatatype"
	stereotypePrimitive   = "Primitive"
)

// PropertyInfo is the compiled per-property entry spec.md §4.G's
// registration-time graph-pattern query produces.
type PropertyInfo struct {
	RDFType       string
	Property      string
	CIMDatatype   string // datatype IRI, set when the property is a data-valued attribute
	PrimitiveType string // CIM primitive type name backing CIMDatatype, if any
	ReferenceType string // set when the property is an object-valued association
	IsAssociation bool
}

// ErrAlreadyRegistered is returned when a profile's version IRI(s) or
// header CIM version collide with an existing registration (spec.md
// §4.G's "registration contract").
var ErrAlreadyRegistered = errors.New("cimxprofile: profile already registered")

// Registry is the CIM profile registry: it recognizes registered
// profiles by version IRI set or by CIM version (for header profiles),
// and resolves property/datatype lookups across a set of profiles,
// caching merged results. Grounded in the registration bookkeeping of
// the teacher's linter.RuleRegistry (uniqueness checks before insert,
// map[string]X storage, Register/Get* accessors).
type Registry struct {
	mu sync.RWMutex

	singleton     map[string]*registeredProfile   // single version IRI -> profile
	multi         map[string]*registeredProfile    // canonical joined IRI set -> profile
	headerByVersion map[CimVersion]*registeredProfile

	properties *lru.Cache[string, map[string]PropertyInfo] // profile-set key -> merged PropertyInfo map

	primitives *PrimitiveTable

	metrics *cimxmetrics.Metrics
}

// SetMetrics attaches a metrics sink to an already-constructed registry,
// so NewRegistry's signature stays stable for callers that don't care
// about instrumentation. metrics may be nil (the default) to disable it.
func (r *Registry) SetMetrics(metrics *cimxmetrics.Metrics) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.metrics = metrics
}

type registeredProfile struct {
	profile    Profile
	properties map[string]PropertyInfo // keyed by property IRI
}

// NewRegistry creates an empty registry. mergeCacheSize bounds the
// profile-set merge cache (cimxconfig.ProfileConfig.MergeCacheSize).
func NewRegistry(mergeCacheSize int) (*Registry, error) {
	cache, err := lru.New[string, map[string]PropertyInfo](mergeCacheSize)
	if err != nil {
		return nil, fmt.Errorf("cimxprofile: creating merge cache: %w", err)
	}
	return &Registry{
		singleton:       make(map[string]*registeredProfile),
		multi:           make(map[string]*registeredProfile),
		headerByVersion: make(map[CimVersion]*registeredProfile),
		properties:      cache,
		primitives:      NewPrimitiveTable(),
	}, nil
}

// Primitives returns the registry's shared primitive-type table.
func (r *Registry) Primitives() *PrimitiveTable { return r.primitives }

// Register compiles g's PropertyInfo map and adds profile to the
// registry under the appropriate key (spec.md §4.G's registration
// contract): a header profile is keyed by CIM version, a singleton
// ontology profile by its one version IRI, a multi-IRI ontology
// profile by a canonical joined key of its IRI set.
func (r *Registry) Register(profile Profile, g cimxgraph.Graph) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if profile.IsHeaderProfile() {
		if _, exists := r.headerByVersion[profile.CimVersion()]; exists {
			r.recordRegistration("rejected")
			return fmt.Errorf("%w: header profile for %s", ErrAlreadyRegistered, profile.CimVersion())
		}
	} else {
		iris := profile.OwlVersionIRIs()
		if len(iris) == 1 {
			for iri := range iris {
				if _, exists := r.singleton[iri]; exists {
					r.recordRegistration("rejected")
					return fmt.Errorf("%w: version IRI %q", ErrAlreadyRegistered, iri)
				}
			}
		} else {
			key := canonicalIRISetKey(iris)
			if _, exists := r.multi[key]; exists {
				r.recordRegistration("rejected")
				return fmt.Errorf("%w: version IRI set %q", ErrAlreadyRegistered, key)
			}
		}
	}

	props := compileProperties(g, r.primitives)
	rp := &registeredProfile{profile: profile, properties: props}

	if profile.IsHeaderProfile() {
		r.headerByVersion[profile.CimVersion()] = rp
		r.recordRegistration("accepted")
		return nil
	}
	iris := profile.OwlVersionIRIs()
	if len(iris) == 1 {
		for iri := range iris {
			r.singleton[iri] = rp
		}
		r.recordRegistration("accepted")
		return nil
	}
	r.multi[canonicalIRISetKey(iris)] = rp
	r.recordRegistration("accepted")
	return nil
}

// recordRegistration increments the registry's registration counter, if
// metrics are attached. Called with r.mu already held.
func (r *Registry) recordRegistration(result string) {
	if r.metrics != nil {
		r.metrics.RegistryRegistrationsTotal.WithLabelValues(result).Inc()
	}
}

// RegisterWithContext wraps Register in a trace span, following the
// teacher's tracer-per-package convention (pkg/search/indexer.go).
func (r *Registry) RegisterWithContext(ctx context.Context, profile Profile, g cimxgraph.Graph) error {
	_, span := tracer.Start(ctx, "Register")
	defer span.End()

	if err := r.Register(profile, g); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	span.SetStatus(codes.Ok, "registered")
	return nil
}

func canonicalIRISetKey(iris map[string]struct{}) string {
	sorted := make([]string, 0, len(iris))
	for iri := range iris {
		sorted = append(sorted, iri)
	}
	sort.Strings(sorted)
	return strings.Join(sorted, "\x00")
}

// GetPropertiesAndDatatypes implements spec.md §4.G's
// getPropertiesAndDatatypes(S): resolve the property->datatype map for
// a set of version IRIs S, merging and caching across profiles as
// needed. Returns (nil, false) if any IRI in S is unresolvable.
func (r *Registry) GetPropertiesAndDatatypes(versionIRIs map[string]struct{}) (map[string]PropertyInfo, bool) {
	r.mu.RLock()
	if len(versionIRIs) == 1 {
		for iri := range versionIRIs {
			if rp, ok := r.singleton[iri]; ok {
				r.mu.RUnlock()
				return rp.properties, true
			}
		}
	} else if rp, ok := r.multi[canonicalIRISetKey(versionIRIs)]; ok {
		r.mu.RUnlock()
		return rp.properties, true
	}

	key := canonicalIRISetKey(versionIRIs)
	if cached, ok := r.properties.Get(key); ok {
		r.mu.RUnlock()
		if r.metrics != nil {
			r.metrics.RegistryMergeCacheHits.Inc()
		}
		return cached, true
	}

	merged := make(map[string]PropertyInfo)
	for iri := range versionIRIs {
		rp, ok := r.singleton[iri]
		if !ok {
			rp, ok = r.findMultiContaining(iri)
		}
		if !ok {
			r.mu.RUnlock()
			return nil, false
		}
		for propIRI, info := range rp.properties {
			merged[propIRI] = info
		}
	}
	r.mu.RUnlock()

	if r.metrics != nil {
		r.metrics.RegistryMergeCacheMisses.Inc()
	}
	r.properties.Add(key, merged)
	return merged, true
}

func (r *Registry) findMultiContaining(iri string) (*registeredProfile, bool) {
	for key, rp := range r.multi {
		for _, member := range strings.Split(key, "\x00") {
			if member == iri {
				return rp, true
			}
		}
	}
	return nil, false
}

// GetHeaderPropertiesAndDatatypes implements
// getHeaderPropertiesAndDatatypes(v): the PropertyInfo map for the
// header profile registered under CIM version v.
func (r *Registry) GetHeaderPropertiesAndDatatypes(v CimVersion) (map[string]PropertyInfo, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rp, ok := r.headerByVersion[v]
	if !ok {
		return nil, false
	}
	return rp.properties, true
}

// compileProperties runs the fixed graph-pattern query of spec.md §4.G
// against g: for each property with an rdfs:domain, determine whether
// it is a data-valued attribute (cims:dataType, resolved through an
// optional CIMDatatype-stereotyped wrapper down to a Primitive's
// rdfs:label) or an object-valued association (rdfs:range plus an
// optional cims:AssociationUsed "Yes" marker). Hand-rolled rather than
// a general SPARQL engine, per spec.md §9: this query is small and
// fixed.
func compileProperties(g cimxgraph.Graph, primitives *PrimitiveTable) map[string]PropertyInfo {
	out := make(map[string]PropertyInfo)

	for domainTriple := range g.Find(cimxgraph.P(cimxterm.IRITerm(rdfsDomainPred))) {
		property := domainTriple.Subject
		rdfType := domainTriple.Object
		if !rdfType.IsIRI() {
			continue
		}

		info := PropertyInfo{
			RDFType:  rdfType.Value(),
			Property: property.Value(),
		}

		if dt, ok := firstObject(g, property, cimsDataTypePred); ok {
			info.CIMDatatype = dt.Value()
			info.PrimitiveType = resolvePrimitiveType(g, dt, primitives)
		} else if rangeTerm, ok := firstObject(g, property, rdfsRangePred); ok && rangeTerm.IsIRI() {
			info.ReferenceType = rangeTerm.Value()
			info.IsAssociation = associationUsedYes(g, property)
		} else {
			continue
		}

		out[property.Value()] = info
	}

	return out
}

// resolvePrimitiveType follows cims:dataType down to the Primitive
// stereotype's rdfs:label, spec.md §4.G: "either cimDatatype is
// stereotype CIMDatatype with an inner value attribute whose datatype
// is a Primitive with a label, or cimDatatype itself is stereotype
// Primitive with a label".
func resolvePrimitiveType(g cimxgraph.Graph, datatype cimxterm.Term, primitives *PrimitiveTable) string {
	if stereotype, ok := firstObject(g, datatype, cimsStereotypePred); ok && stereotype.Value() == stereotypePrimitive {
		if label, ok := firstObject(g, datatype, rdfsLabelPred); ok {
			return label.Value()
		}
	}
	if stereotype, ok := firstObject(g, datatype, cimsStereotypePred); ok && stereotype.Value() == stereotypeCIMDatatype {
		if valueAttr, ok := firstObject(g, datatype, cimsValueAttr); ok {
			if innerDatatype, ok := firstObject(g, valueAttr, cimsDataTypePred); ok {
				if innerStereotype, ok := firstObject(g, innerDatatype, cimsStereotypePred); ok && innerStereotype.Value() == stereotypePrimitive {
					if label, ok := firstObject(g, innerDatatype, rdfsLabelPred); ok {
						return label.Value()
					}
				}
			}
		}
	}
	return ""
}

func associationUsedYes(g cimxgraph.Graph, property cimxterm.Term) bool {
	marker, ok := firstObject(g, property, cimsAssocUsedPred)
	if !ok {
		// unbound counts as "used" per spec.md §4.G's filter
		// boundAndYes-or-unbound clause
		return true
	}
	return marker.Value() == "Yes"
}

func firstObject(g cimxgraph.Graph, subject cimxterm.Term, predicateIRI string) (cimxterm.Term, bool) {
	for t := range g.Find(cimxgraph.SP(subject, cimxterm.IRITerm(predicateIRI))) {
		return t.Object, true
	}
	return cimxterm.Term{}, false
}
