// Package cimxprofile implements the CIM profile wrapper and registry:
// detecting a profile's CIM version and header/ontology style from a
// graph, and compiling its property -> datatype map (spec components F
// and G).
package cimxprofile

import (
	"errors"
	"fmt"
	"strings"

	"github.com/iec61970/cimx/cimxgraph"
	"github.com/iec61970/cimx/cimxterm"
)

// CimVersion names the four profile schema flavors spec.md §3
// distinguishes, derived from the namespace bound to the `cim` prefix.
type CimVersion int

const (
	NoCIM CimVersion = iota
	CIM16
	CIM17
	CIM18
)

func (v CimVersion) String() string {
	switch v {
	case NoCIM:
		return "NO_CIM"
	case CIM16:
		return "CIM16"
	case CIM17:
		return "CIM17"
	case CIM18:
		return "CIM18"
	default:
		return "unknown"
	}
}

// headerBackwardCompatKeyword is the synthetic dcat keyword header
// profiles in CIM-16/17 return (spec.md §4.F: "for backward
// compatibility").
const headerBackwardCompatKeyword = "DH"

// ErrNotAProfile is returned by DetectProfile when a graph exposes
// neither a recognized CimVersion namespace nor any of the style
// fingerprints spec.md §3/§4.F require.
var ErrNotAProfile = errors.New("cimxprofile: graph is not a recognizable CIM profile")

// Profile is the CIM profile wrapper interface spec.md §4.F names.
// cim16Profile, cim17Profile, and cim18Profile are its three closed
// variants, selected by DetectProfile.
type Profile interface {
	CimVersion() CimVersion
	IsHeaderProfile() bool
	DcatKeyword() (string, bool)
	OwlVersionIRIs() map[string]struct{}
	OwlVersionInfo() (string, bool)

	// Equal implements spec.md §4.F's profile equality: same CIM
	// version and either both header profiles, or the same set of
	// version IRIs.
	Equal(other Profile) bool
}

const (
	owlOntologyType    = "http://www.w3.org/2002/07/owl#Ontology"
	owlVersionIRIPred  = "http://www.w3.org/2002/07/owl#versionIRI"
	owlVersionInfoPred = "http://www.w3.org/2002/07/owl#versionInfo"
	dcatKeywordPred    = "http://www.w3.org/ns/dcat#keyword"
	rdfTypePred        = "http://www.w3.org/1999/02/22-rdf-syntax-ns#type"

	// cimsNS is the rdf-schema-extensions namespace spec.md §4 names
	// for `cims`, used by the CIM-16 and CIM-16/17 header fingerprints.
	cimsNS                 = "http://iec.ch/TC57/1999/rdf-schema-extensions-19990926#"
	cimsIsFixedPred        = cimsNS + "isFixed"
	cimsClassCategoryType  = cimsNS + "ClassCategory"
	headerProfileIRISuffix = "#Package_FileHeaderProfile"

	// cim18DocumentHeaderPrefix is the version-IRI prefix spec.md §3
	// names for recognizing a CIM-18 profile as a document-header
	// profile.
	cim18DocumentHeaderPrefix = "https://ap-voc.cim4.eu/DocumentHeader"
)

type baseProfile struct {
	version        CimVersion
	isHeader       bool
	dcatKeyword    string
	hasDcatKeyword bool
	versionIRIs    map[string]struct{}
	versionInfo    string
	hasVersionInfo bool
}

func (p *baseProfile) CimVersion() CimVersion { return p.version }
func (p *baseProfile) IsHeaderProfile() bool  { return p.isHeader }

func (p *baseProfile) DcatKeyword() (string, bool) {
	if p.isHeader && p.version != CIM18 {
		return headerBackwardCompatKeyword, true
	}
	return p.dcatKeyword, p.hasDcatKeyword
}

func (p *baseProfile) OwlVersionIRIs() map[string]struct{} { return p.versionIRIs }

func (p *baseProfile) OwlVersionInfo() (string, bool) { return p.versionInfo, p.hasVersionInfo }

func (p *baseProfile) equal(other Profile) bool {
	if p.version != other.CimVersion() {
		return false
	}
	if p.isHeader || other.IsHeaderProfile() {
		return p.isHeader == other.IsHeaderProfile()
	}
	mine := p.versionIRIs
	theirs := other.OwlVersionIRIs()
	if len(mine) != len(theirs) {
		return false
	}
	for iri := range mine {
		if _, ok := theirs[iri]; !ok {
			return false
		}
	}
	return true
}

type cim16Profile struct{ baseProfile }

func (p *cim16Profile) Equal(other Profile) bool { return p.equal(other) }

type cim17Profile struct{ baseProfile }

func (p *cim17Profile) Equal(other Profile) bool { return p.equal(other) }

// cim18Profile embeds cim17's detection (ontology fingerprint); its
// header-style flag is set in DetectProfile from the version-IRI-prefix
// check spec.md §3 calls out, not a separate fingerprint pass.
type cim18Profile struct {
	cim17Profile
}

func (p *cim18Profile) Equal(other Profile) bool { return p.equal(other) }

// DetectProfile inspects g and returns the Profile variant matching its
// `cim` namespace version, per spec.md §3/§4.F: derive the CimVersion
// from the exact namespace bound to the `cim` prefix (rejecting
// immediately if it matches none of the three known namespaces), then
// run the style-specific recognizer for that version. If no recognizer
// matches, g is not a profile.
func DetectProfile(g cimxgraph.Graph) (Profile, error) {
	cimNS, ok := g.Prefixes().Get("cim")
	if !ok {
		return nil, ErrNotAProfile
	}
	version := versionFromNamespace(cimNS)
	if version == NoCIM {
		return nil, ErrNotAProfile
	}

	if version == CIM16 || version == CIM17 {
		if detectHeaderClassFingerprint(g) {
			return wrapProfile(version, baseProfile{version: version, isHeader: true}, cimNS)
		}
	}

	if version == CIM16 {
		keyword, versionIRIs, ok := detectCIM16Fingerprint(g)
		if !ok {
			return nil, ErrNotAProfile
		}
		base := baseProfile{
			version:        version,
			dcatKeyword:    keyword,
			hasDcatKeyword: true,
			versionIRIs:    versionIRIs,
		}
		return wrapProfile(version, base, cimNS)
	}

	ontologyIRI, versionIRIs, versionInfo, hasVersionInfo, ok := detectOntologyFingerprint(g)
	if !ok {
		return nil, ErrNotAProfile
	}

	keyword, hasKeyword := findDcatKeyword(g, ontologyIRI)
	isHeader := version == CIM18 && hasDocumentHeaderVersionIRI(versionIRIs)
	base := baseProfile{
		version:        version,
		isHeader:       isHeader,
		dcatKeyword:    keyword,
		hasDcatKeyword: hasKeyword,
		versionIRIs:    versionIRIs,
		versionInfo:    versionInfo,
		hasVersionInfo: hasVersionInfo,
	}
	return wrapProfile(version, base, cimNS)
}

func wrapProfile(version CimVersion, base baseProfile, cimNS string) (Profile, error) {
	switch version {
	case CIM16:
		return &cim16Profile{baseProfile: base}, nil
	case CIM17:
		return &cim17Profile{baseProfile: base}, nil
	case CIM18:
		return &cim18Profile{cim17Profile: cim17Profile{baseProfile: base}}, nil
	default:
		return nil, fmt.Errorf("cimxprofile: unrecognized CIM version for namespace %q", cimNS)
	}
}

// versionFromNamespace maps a `cim` namespace IRI to a CimVersion by
// exact match against the three well-known IEC 61970-301 namespaces
// spec.md §3 names. Any other namespace is NO_CIM.
func versionFromNamespace(ns string) CimVersion {
	switch ns {
	case "http://iec.ch/TC57/2013/CIM-schema-cim16#":
		return CIM16
	case "http://iec.ch/TC57/CIM100#":
		return CIM17
	case "https://cim.ucaiug.io/ns#":
		return CIM18
	default:
		return NoCIM
	}
}

// detectHeaderClassFingerprint looks for a subject typed
// cims:ClassCategory whose IRI ends with "#Package_FileHeaderProfile",
// spec.md §3's CIM-16/17 header-style fingerprint.
func detectHeaderClassFingerprint(g cimxgraph.Graph) bool {
	for t := range g.Find(cimxgraph.PO(cimxterm.IRITerm(rdfTypePred), cimxterm.IRITerm(cimsClassCategoryType))) {
		if t.Subject.IsIRI() && strings.HasSuffix(t.Subject.Value(), headerProfileIRISuffix) {
			return true
		}
	}
	return false
}

// detectCIM16Fingerprint looks for cims:isFixed literal values on
// subjects in the rdfs:domain of a class whose IRI ends with "Version":
// a subject whose own IRI contains "Version.shortName" supplies the
// keyword, and one or more subjects whose IRI contains
// "Version.entsoeURI" or "Version.baseURI" supply the version IRIs,
// per spec.md §3's CIM-16 style.
func detectCIM16Fingerprint(g cimxgraph.Graph) (keyword string, versionIRIs map[string]struct{}, ok bool) {
	versionIRIs = make(map[string]struct{})
	haveKeyword := false

	for t := range g.Find(cimxgraph.P(cimxterm.IRITerm(cimsIsFixedPred))) {
		if !t.Subject.IsIRI() {
			continue
		}
		subj := t.Subject.Value()

		domainClass, hasDomain := firstDomainClass(g, t.Subject)
		if !hasDomain || !strings.HasSuffix(localName(domainClass), "Version") {
			continue
		}

		switch {
		case strings.Contains(subj, "Version.shortName"):
			keyword = t.Object.Value()
			haveKeyword = true
		case strings.Contains(subj, "Version.entsoeURI"), strings.Contains(subj, "Version.baseURI"):
			versionIRIs[t.Object.Value()] = struct{}{}
		}
	}

	if !haveKeyword || len(versionIRIs) == 0 {
		return "", nil, false
	}
	return keyword, versionIRIs, true
}

func firstDomainClass(g cimxgraph.Graph, subject cimxterm.Term) (string, bool) {
	for t := range g.Find(cimxgraph.SP(subject, cimxterm.IRITerm(rdfsDomainPred))) {
		if t.Object.IsIRI() {
			return t.Object.Value(), true
		}
	}
	return "", false
}

// detectOntologyFingerprint looks for an owl:Ontology node and collects
// its owl:versionIRI set and optional owl:versionInfo, spec.md §3's
// "CIM-17 style" (also the basis of CIM-18's ontology fingerprint).
func detectOntologyFingerprint(g cimxgraph.Graph) (ontologyIRI string, versionIRIs map[string]struct{}, versionInfo string, hasVersionInfo bool, ok bool) {
	var subject cimxterm.Term
	found := false
	for t := range g.Find(cimxgraph.PO(cimxterm.IRITerm(rdfTypePred), cimxterm.IRITerm(owlOntologyType))) {
		subject = t.Subject
		found = true
		break
	}
	if !found {
		return "", nil, "", false, false
	}

	versionIRIs = make(map[string]struct{})
	for t := range g.Find(cimxgraph.SP(subject, cimxterm.IRITerm(owlVersionIRIPred))) {
		if t.Object.IsIRI() {
			versionIRIs[t.Object.Value()] = struct{}{}
		}
	}
	for t := range g.Find(cimxgraph.SP(subject, cimxterm.IRITerm(owlVersionInfoPred))) {
		versionInfo = t.Object.Value()
		hasVersionInfo = true
		break
	}
	if len(versionIRIs) == 0 {
		return "", nil, "", false, false
	}
	return subject.Value(), versionIRIs, versionInfo, hasVersionInfo, true
}

func findDcatKeyword(g cimxgraph.Graph, ontologyIRI string) (string, bool) {
	if ontologyIRI == "" {
		return "", false
	}
	for t := range g.Find(cimxgraph.SP(cimxterm.IRITerm(ontologyIRI), cimxterm.IRITerm(dcatKeywordPred))) {
		return t.Object.Value(), true
	}
	return "", false
}

// hasDocumentHeaderVersionIRI reports whether any version IRI starts
// with the CIM-18 document-header prefix, spec.md §3's CIM-18 style.
func hasDocumentHeaderVersionIRI(versionIRIs map[string]struct{}) bool {
	for iri := range versionIRIs {
		if strings.HasPrefix(iri, cim18DocumentHeaderPrefix) {
			return true
		}
	}
	return false
}

func localName(iri string) string {
	if i := strings.LastIndexAny(iri, "#/"); i >= 0 {
		return iri[i+1:]
	}
	return iri
}
