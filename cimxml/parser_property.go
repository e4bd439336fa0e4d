package cimxml

import (
	"encoding/xml"
	"fmt"
	"strings"

	"github.com/iec61970/cimx/cimxgraph"
	"github.com/iec61970/cimx/cimxterm"
)

// xsdAnyURI mirrors cimxprofile's unexported constant of the same value:
// the one primitive datatype whose literal content is re-read as an IRI
// term rather than a string literal (spec.md §4.I's literal-typing
// priority: "xsd:anyURI is special-cased to produce an IRI term").
const xsdAnyURI = "http://www.w3.org/2001/XMLSchema#anyURI"

// handlePropertyStart processes a property element: it determines the
// predicate (converting rdf:li to a positional rdf:_n per spec.md
// §4.I), enforces the mutual exclusivity of rdf:resource/rdf:nodeID/
// rdf:parseType and of rdf:datatype against all three, recognizes a
// dm:forwardDifferences/reverseDifferences/preconditions container while
// inside a difference-model header, and resolves whichever content form
// can be decided immediately (rdf:resource, rdf:nodeID, or plain
// attribute-property shorthand). Content forms that require further
// tokens (nested node element, Collection, Literal) are resolved by
// handlePropertyChildStart/handleLiteralStart and finalized in
// handlePropertyEnd.
func (p *Parser) handlePropertyStart(t xml.StartElement) error {
	if isRDF(t.Name, rdfAboutEach) || isRDF(t.Name, rdfAboutEachPrefix) || isRDF(t.Name, rdfBagID) {
		return p.errs.Fatal(p.pos(), fmt.Sprintf("rdf:%s is not supported", t.Name.Local))
	}

	parent := p.top()

	predicateIRI := t.Name.Space + t.Name.Local
	if isRDF(t.Name, "li") {
		parent.liCounter++
		predicateIRI = fmt.Sprintf("%s_%d", rdfNS, parent.liCounter)
	}

	resourceAttr, hasResource := attrValue(t.Attr, rdfNS, rdfResource)
	nodeIDAttr, hasNodeID := attrValue(t.Attr, rdfNS, rdfNodeID)
	datatypeAttr, hasDatatype := attrValue(t.Attr, rdfNS, rdfDatatype)
	parseTypeAttr, hasParseType := attrValue(t.Attr, rdfNS, rdfParseType)
	idAttr, hasID := attrValue(t.Attr, rdfNS, rdfID)

	if boolToInt(hasResource)+boolToInt(hasNodeID)+boolToInt(hasParseType) > 1 {
		return p.errs.Fatal(p.pos(), "a property element cannot combine more than one of rdf:resource, rdf:nodeID, rdf:parseType")
	}
	if hasDatatype && (hasResource || hasNodeID || hasParseType) {
		return p.errs.Fatal(p.pos(), "rdf:datatype cannot combine with rdf:resource, rdf:nodeID, or rdf:parseType")
	}

	pushedResolver, err := p.pushResolverFrame(t.Attr)
	if err != nil {
		return p.errs.Fatal(p.pos(), err.Error())
	}

	f := &frame{
		kind:                kindProperty,
		name:                t.Name,
		subject:             parent.subject,
		hasSubject:          true,
		property:            cimxterm.IRITerm(predicateIRI),
		pushedResolverFrame: pushedResolver,
		reifyID:             idAttr,
	}
	if hasID {
		p.checkDuplicateID(idAttr)
	}

	// Difference-model container: only honored while inside a
	// DifferenceModelHeader, regardless of whether rdf:parseType is
	// also present. Its children flow into the target graph as
	// ordinary node elements, unwrapped.
	if p.sink.CurrentContext() == DifferenceModelHeader && t.Name.Space == NamespaceDM {
		var ctx Context
		switch t.Name.Local {
		case differenceForward:
			ctx = ForwardDifferences
		case differenceReverse:
			ctx = ReverseDifferences
		case differencePrecond:
			ctx = Preconditions
		default:
			ctx = -1
		}
		if ctx >= 0 {
			f.kind = kindContextContainer
			f.pushedContext = true
			f.priorContext = p.sink.CurrentContext()
			p.sink.SetCurrentContext(ctx)
			p.stack = append(p.stack, f)
			return nil
		}
	}

	if hasParseType {
		pt := normalizeParseType(parseTypeAttr, p.pos(), p.errs)
		switch pt {
		case parseTypeResource:
			f.parseType = parseTypeResource
			p.stack = append(p.stack, f)
			blank := p.resolver.Blank()
			p.stack = append(p.stack, &frame{kind: kindNode, name: t.Name, subject: blank, hasSubject: true})
			p.emitPropertyTriple(f, blank)
			return nil
		case parseTypeCollection:
			f.parseType = parseTypeCollection
			p.stack = append(p.stack, f)
			return nil
		case parseTypeStatements:
			p.errs.Warning(p.pos(), `rdf:parseType="Statements" outside a difference model container is treated as "Literal"`)
			f.parseType = parseTypeLiteral
			f.literalSeenPrefixes = make(map[string]bool)
			p.stack = append(p.stack, f)
			return nil
		case parseTypeLiteral:
			f.parseType = parseTypeLiteral
			f.literalSeenPrefixes = make(map[string]bool)
			p.stack = append(p.stack, f)
			return nil
		default:
			p.errs.Warning(p.pos(), fmt.Sprintf("unrecognized rdf:parseType %q treated as Literal", parseTypeAttr))
			f.parseType = parseTypeLiteral
			f.literalSeenPrefixes = make(map[string]bool)
			p.stack = append(p.stack, f)
			return nil
		}
	}

	if hasResource {
		obj, err := p.resolveCIMReference(resourceAttr)
		if err != nil {
			return p.errs.Fatal(p.pos(), err.Error())
		}
		f.finished = true
		p.stack = append(p.stack, f)
		p.emitPropertyTriple(f, obj)
		return nil
	}

	if hasNodeID {
		obj := p.resolver.BlankLabeled(nodeIDAttr)
		f.finished = true
		p.stack = append(p.stack, f)
		p.emitPropertyTriple(f, obj)
		return nil
	}

	if hasDatatype {
		f.hasExplicitDatatype = true
		f.explicitDatatype = datatypeAttr
	}

	if plain := plainAttributesOf(t.Attr); len(plain) > 0 {
		blank := p.resolver.Blank()
		p.emitAttributeProperties(blank, plain, p.resolver.CurrentLang())
		f.finished = true
		p.stack = append(p.stack, f)
		p.emitPropertyTriple(f, blank)
		return nil
	}

	p.stack = append(p.stack, f)
	return nil
}

// handlePropertyChildStart handles a StartElement seen while the current
// top frame is a property element: either the single nested node element
// of the default content form, or the next member node of a
// parseType="Collection" property. Both are ordinary node elements, so
// this just enforces the exclusivity rules and defers to handleNodeStart.
func (p *Parser) handlePropertyChildStart(t xml.StartElement, top *frame) error {
	if top.finished {
		return p.errs.Fatal(p.pos(), "a property element with rdf:resource, rdf:nodeID, or attribute properties cannot also contain a nested element")
	}
	if top.sawNonWhitespaceText {
		return p.errs.Fatal(p.pos(), "text content mixed with a nested element inside a property element")
	}
	if top.parseType != "" && top.parseType != parseTypeCollection {
		return p.errs.Fatal(p.pos(), fmt.Sprintf("unexpected nested element inside a parseType=%q property", top.parseType))
	}
	top.sawChildElement = true
	return p.handleNodeStart(t)
}

// handlePropertyEnd finalizes a property element once every token that
// could affect its object has been seen: for the default content form
// the object is the nested node's subject (recorded on this frame by
// handleNodeEnd); a parseType="Resource" property emitted its triple at
// start-tag time and is closed from handleNodeEnd when its synthetic
// node closes; for parseType="Collection" the
// rdf:first/rdf:rest chain is closed off; for parseType="Literal" the
// reconstructed XML literal becomes an rdf:XMLLiteral; otherwise the
// accumulated text becomes a typed, language-tagged, or plain literal
// per the priority order of spec.md §4.I/§4.G.
func (p *Parser) handlePropertyEnd(t xml.EndElement) error {
	f := p.top()
	p.stack = p.stack[:len(p.stack)-1]

	// Resolution below (reification anchors, xsd:anyURI literal content)
	// must see this element's own xml:base, so the resolver frame it
	// pushed is only popped after everything here is emitted.
	switch {
	case f.finished:
		// object already resolved and emitted at start-tag time.
	case f.parseType == parseTypeCollection:
		p.finishCollection(f)
	case f.parseType == parseTypeLiteral:
		lit := cimxterm.TypedLiteral(f.literalBuf.String(), cimxterm.RDFXMLLiteral)
		p.emitPropertyTriple(f, lit)
	case f.hasNestedObject:
		p.emitPropertyTriple(f, f.nestedObjectSubject)
	default:
		p.emitPropertyTriple(f, p.buildTextLiteral(f))
	}

	if f.pushedResolverFrame {
		p.resolver.PopFrame()
	}
	return nil
}

func (p *Parser) handleContextContainerEnd(t xml.EndElement) error {
	f := p.top()
	p.stack = p.stack[:len(p.stack)-1]
	if f.pushedResolverFrame {
		p.resolver.PopFrame()
	}
	if f.pushedContext {
		p.sink.SetCurrentContext(f.priorContext)
	}
	return nil
}

// emitPropertyTriple emits (f.subject, f.property, obj) and, if the
// property element carried rdf:ID, the four RDF reification triples
// describing the statement itself (spec.md §4.I).
func (p *Parser) emitPropertyTriple(f *frame, obj cimxterm.Term) {
	p.sink.Triple(cimxgraph.Triple{Subject: f.subject, Predicate: f.property, Object: obj})
	if f.reifyID == "" {
		return
	}
	reifySubj, err := p.resolveCIMReference("#" + f.reifyID)
	if err != nil {
		p.errs.Warning(p.pos(), "could not resolve reification rdf:ID: "+err.Error())
		return
	}
	p.sink.Triple(cimxgraph.Triple{Subject: reifySubj, Predicate: cimxterm.IRITerm(rdfType), Object: cimxterm.IRITerm(rdfStatement)})
	p.sink.Triple(cimxgraph.Triple{Subject: reifySubj, Predicate: cimxterm.IRITerm(rdfSubject), Object: f.subject})
	p.sink.Triple(cimxgraph.Triple{Subject: reifySubj, Predicate: cimxterm.IRITerm(rdfPredicate), Object: f.property})
	p.sink.Triple(cimxgraph.Triple{Subject: reifySubj, Predicate: cimxterm.IRITerm(rdfObject), Object: obj})
}

// appendCollectionMember extends parent's rdf:first/rdf:rest chain with
// a fresh blank cons-cell holding member.
func (p *Parser) appendCollectionMember(parent *frame, member cimxterm.Term) {
	cell := p.resolver.Blank()
	p.sink.Triple(cimxgraph.Triple{Subject: cell, Predicate: cimxterm.IRITerm(rdfFirst), Object: member})
	if parent.hasPrevCell {
		p.sink.Triple(cimxgraph.Triple{Subject: parent.prevCell, Predicate: cimxterm.IRITerm(rdfRest), Object: cell})
	} else {
		parent.headCell = cell
		parent.hasHeadCell = true
	}
	parent.prevCell = cell
	parent.hasPrevCell = true
	parent.cellCount++
}

// finishCollection closes parent's rdf:rest chain with rdf:nil and emits
// the property triple pointing at the list's head — or, for an empty
// collection, directly at rdf:nil (spec.md §9: no zero-length chain).
func (p *Parser) finishCollection(parent *frame) {
	if parent.cellCount == 0 {
		p.emitPropertyTriple(parent, cimxterm.IRITerm(rdfNil))
		return
	}
	p.sink.Triple(cimxgraph.Triple{Subject: parent.prevCell, Predicate: cimxterm.IRITerm(rdfRest), Object: cimxterm.IRITerm(rdfNil)})
	p.emitPropertyTriple(parent, parent.headCell)
}

// buildTextLiteral resolves a property element's literal value from its
// accumulated text, honoring, in order: an explicit rdf:datatype (taken
// as a typed literal, full stop — no re-reading as an IRI even for
// xsd:anyURI); the profile registry's compiled primitive type for this
// predicate (with xsd:anyURI re-read as an IRI term rather than a
// string literal); the in-scope xml:lang; and finally a plain
// xsd:string.
func (p *Parser) buildTextLiteral(f *frame) cimxterm.Term {
	text := f.text.String()

	if f.hasExplicitDatatype {
		return cimxterm.TypedLiteral(text, f.explicitDatatype)
	}

	if p.currentPropertyInfo != nil && p.registry != nil {
		if info, ok := p.currentPropertyInfo[f.property.Value()]; ok && info.PrimitiveType != "" {
			if dt, ok2 := p.registry.Primitives().Lookup(info.PrimitiveType); ok2 {
				if dt == xsdAnyURI {
					if obj, err := p.resolveCIMReference(strings.TrimSpace(text)); err == nil {
						return obj
					}
				}
				return cimxterm.TypedLiteral(text, dt)
			}
		}
	}

	if lang := p.resolver.CurrentLang(); lang != "" {
		return cimxterm.LangLiteral(text, lang)
	}
	return cimxterm.PlainLiteral(text)
}
