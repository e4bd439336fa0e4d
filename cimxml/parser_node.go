package cimxml

import (
	"encoding/xml"
	"fmt"

	"github.com/iec61970/cimx/cimxgraph"
	"github.com/iec61970/cimx/cimxterm"
)

// modelIRISetter and modelHeaderSetter are optional capabilities a Sink
// may implement beyond the base interface, so the parser can install the
// model header it discovers mid-stream without widening Sink itself.
type modelIRISetter interface {
	SetModelIRI(iri string)
}

type modelHeaderSetter interface {
	SetModelHeader(h *ModelHeader)
}

// handleNodeStart processes a node element: determining its subject from
// rdf:about/rdf:ID/rdf:nodeID (mutually exclusive, spec.md §4.I), emitting
// an rdf:type triple unless the element is a bare rdf:Description,
// recognizing md:FullModel/dm:DifferenceModel as a model header and
// switching the sink's context accordingly, and emitting any plain
// attributes as attribute-property shorthand (RDF/XML §2.13).
func (p *Parser) handleNodeStart(t xml.StartElement) error {
	if isRDF(t.Name, rdfAboutEach) || isRDF(t.Name, rdfAboutEachPrefix) || isRDF(t.Name, rdfBagID) {
		return p.errs.Fatal(p.pos(), fmt.Sprintf("rdf:%s is not supported", t.Name.Local))
	}
	for _, a := range t.Attr {
		if isRDF(a.Name, rdfAboutEach) || isRDF(a.Name, rdfAboutEachPrefix) || isRDF(a.Name, rdfBagID) {
			return p.errs.Fatal(p.pos(), fmt.Sprintf("rdf:%s is not supported", a.Name.Local))
		}
	}

	p.bindNamespaces(t.Attr)

	about, hasAbout := attrValue(t.Attr, rdfNS, rdfAbout)
	id, hasID := attrValue(t.Attr, rdfNS, rdfID)
	nodeID, hasNodeID := attrValue(t.Attr, rdfNS, rdfNodeID)
	if boolToInt(hasAbout)+boolToInt(hasID)+boolToInt(hasNodeID) > 1 {
		return p.errs.Fatal(p.pos(), "a node element cannot combine more than one of rdf:about, rdf:ID, rdf:nodeID")
	}

	pushedResolver, err := p.pushResolverFrame(t.Attr)
	if err != nil {
		return p.errs.Fatal(p.pos(), err.Error())
	}

	var subject cimxterm.Term
	switch {
	case hasAbout:
		subject, err = p.resolveCIMReference(about)
	case hasID:
		p.checkDuplicateID(id)
		subject, err = p.resolveCIMReference("#" + id)
	case hasNodeID:
		subject = p.resolver.BlankLabeled(nodeID)
	default:
		subject = p.resolver.Blank()
	}
	if err != nil {
		return p.errs.Fatal(p.pos(), err.Error())
	}

	f := &frame{
		kind:                kindNode,
		name:                t.Name,
		subject:             subject,
		hasSubject:          true,
		pushedResolverFrame: pushedResolver,
	}

	if !isRDF(t.Name, "Description") {
		typeIRI := t.Name.Space + t.Name.Local
		p.sink.Triple(cimxgraph.Triple{Subject: subject, Predicate: cimxterm.IRITerm(rdfType), Object: cimxterm.IRITerm(typeIRI)})

		if typeIRI == typeFullModel || typeIRI == typeDifferenceModel {
			isFull := typeIRI == typeFullModel
			header := newModelHeader(subject, isFull)

			f.pushedContext = true
			f.priorContext = p.sink.CurrentContext()

			newCtx := DifferenceModelHeader
			if isFull {
				newCtx = FullModelHeader
			}
			if setter, ok := p.sink.(modelIRISetter); ok {
				setter.SetModelIRI(subject.Value())
			}
			p.sink.SetCurrentContext(newCtx)
			if setter, ok := p.sink.(modelHeaderSetter); ok {
				setter.SetModelHeader(header)
			}
		}
	}

	if plain := plainAttributesOf(t.Attr); len(plain) > 0 {
		p.emitAttributeProperties(subject, plain, p.resolver.CurrentLang())
	}

	p.stack = append(p.stack, f)
	return nil
}

// handleNodeEnd closes a node element, restoring whatever resolver frame
// and sink context it pushed, and — when this node was the single nested
// child of an enclosing property element — feeding its subject back to
// that property as either the property's object (default content form,
// and parseType="Resource") or the next member of a parseType="Collection"
// chain. The synthetic node of a parseType="Resource" property shares
// that property's end tag, so closing it closes the property as well.
func (p *Parser) handleNodeEnd(t xml.EndElement) error {
	f := p.top()
	p.stack = p.stack[:len(p.stack)-1]
	if f.pushedResolverFrame {
		p.resolver.PopFrame()
	}

	if f.pushedContext {
		p.installProfileAwareTyping()
		p.sink.SetCurrentContext(f.priorContext)
	}

	if parent := p.top(); parent != nil && parent.kind == kindProperty {
		if parent.parseType == parseTypeCollection {
			p.appendCollectionMember(parent, f.subject)
		} else {
			parent.hasNestedObject = true
			parent.nestedObjectSubject = f.subject
			if parent.parseType == parseTypeResource {
				// The property triple was already emitted at start-tag time.
				parent.finished = true
				return p.handlePropertyEnd(t)
			}
		}
	}
	return nil
}

// installProfileAwareTyping looks up the registry's compiled
// property/datatype map for the profile set a just-closed model header
// declared, so subsequent body-element literal typing (spec.md §4.G,
// §8 scenario 5) can use it. A header with no registry configured, or
// whose profiles are not registered, leaves literal typing untyped.
func (p *Parser) installProfileAwareTyping() {
	if p.registry == nil {
		return
	}
	header := p.sink.ModelHeader()
	if header == nil || len(header.Profiles) == 0 {
		return
	}
	iris := make(map[string]struct{}, len(header.Profiles))
	for _, iri := range header.Profiles {
		iris[iri] = struct{}{}
	}
	props, ok := p.registry.GetPropertiesAndDatatypes(iris)
	if !ok {
		p.errs.Warning(p.pos(), "model header declares profile(s) not found in the registry; literal typing falls back to untyped")
		return
	}
	p.currentPropertyInfo = props
}

// resolveCIMReference resolves raw to a term, applying CIM UUID
// normalization only when the document has been recognized as CIMXML
// (spec.md §4.I: the rewrite is scoped to CIMXML mode). A plain RDF/XML
// document whose rdf:ID happens to look like a UUID is resolved as an
// ordinary IRI instead.
func (p *Parser) resolveCIMReference(raw string) (cimxterm.Term, error) {
	if p.isCIMXML {
		stripped := cimxterm.StripCIMIDPrefix(raw)
		norm := cimxterm.NormalizeCIMUUID(stripped)
		if norm.Matched {
			if norm.UpperCase {
				p.errs.Warning(p.pos(), fmt.Sprintf("UUID %q contains upper-case hex digits; normalized to lower-case", raw))
			}
			if norm.DashesInserted {
				p.errs.Warning(p.pos(), fmt.Sprintf("UUID %q is in undashed form; dashes inserted", raw))
			}
			return cimxterm.IRITerm(norm.IRI), nil
		}
	}
	return p.resolver.Resolve(raw)
}

func (p *Parser) checkDuplicateID(id string) {
	key := p.resolver.CurrentBase() + "#" + id
	if _, seen := p.usedIDs[key]; seen {
		p.errs.Warning(p.pos(), fmt.Sprintf("duplicate rdf:ID %q", id))
		return
	}
	p.usedIDs[key] = struct{}{}
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// plainAttributesOf returns the attributes of attrs that are neither
// rdf:*, xml:*, nor xmlns declarations: the candidates for RDF/XML's
// attribute-property shorthand.
func plainAttributesOf(attrs []xml.Attr) []xml.Attr {
	out := make([]xml.Attr, 0, len(attrs))
	for _, a := range attrs {
		switch {
		case a.Name.Space == rdfNS:
		case a.Name.Space == xmlNS:
		case a.Name.Space == "xmlns":
		case a.Name.Space == "" && a.Name.Local == "xmlns":
		default:
			out = append(out, a)
		}
	}
	return out
}

func (p *Parser) emitAttributeProperties(subject cimxterm.Term, attrs []xml.Attr, lang string) {
	for _, a := range attrs {
		predIRI := a.Name.Space + a.Name.Local
		var obj cimxterm.Term
		if lang != "" {
			obj = cimxterm.LangLiteral(a.Value, lang)
		} else {
			obj = cimxterm.PlainLiteral(a.Value)
		}
		p.sink.Triple(cimxgraph.Triple{Subject: subject, Predicate: cimxterm.IRITerm(predIRI), Object: obj})
	}
}
