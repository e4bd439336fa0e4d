package cimxml

import (
	"encoding/xml"
	"fmt"
)

// handleStart dispatches a StartElement token to the procedure matching
// the current top-of-stack frame's kind, per spec.md §9's flat-loop
// design: the stack itself carries all context a recursive-descent
// parser would otherwise thread through call parameters.
func (p *Parser) handleStart(t xml.StartElement) error {
	if len(p.stack) == 0 {
		return p.handleRootStart(t)
	}

	top := p.top()
	if top.kind == kindProperty && top.parseType == parseTypeLiteral {
		return p.handleLiteralStart(t)
	}

	switch top.kind {
	case kindRoot, kindContextContainer:
		return p.handleNodeStart(t)
	case kindNode:
		return p.handlePropertyStart(t)
	case kindProperty:
		return p.handlePropertyChildStart(t, top)
	default:
		return p.errs.Fatal(p.pos(), fmt.Sprintf("unexpected element %s in an unrecognized state", qualify(t.Name)))
	}
}

// handleEnd dispatches an EndElement token the same way.
func (p *Parser) handleEnd(t xml.EndElement) error {
	top := p.top()
	if top == nil {
		return p.errs.Fatal(p.pos(), fmt.Sprintf("unmatched closing tag %s", qualify(t.Name)))
	}
	if top.kind == kindProperty && top.literalDepth > 0 {
		return p.handleLiteralEnd(t)
	}

	switch top.kind {
	case kindRoot:
		return p.handleRootEnd(t)
	case kindContextContainer:
		return p.handleContextContainerEnd(t)
	case kindNode:
		return p.handleNodeEnd(t)
	case kindProperty:
		return p.handlePropertyEnd(t)
	default:
		return p.errs.Fatal(p.pos(), fmt.Sprintf("unexpected closing tag %s", qualify(t.Name)))
	}
}

// handleRootStart processes the document's outermost element. When it is
// rdf:RDF (the ordinary case) its xmlns declarations and xml:base become
// the document-wide scope (a CIMXML document without xml:base gets the
// implicit base "urn:uuid:") and a bare kindRoot frame is pushed so every
// child is dispatched as a node element. Per spec.md §4.I's grammar note
// that the root "may loosely be a single node element" when the rdf:RDF
// wrapper is omitted, any other root element is instead handed straight
// to handleNodeStart.
func (p *Parser) handleRootStart(t xml.StartElement) error {
	p.bindNamespaces(t.Attr)

	if !isRDF(t.Name, "RDF") {
		return p.handleNodeStart(t)
	}

	attrs := t.Attr
	if _, hasBase := attrValue(attrs, xmlNS, xmlBase); !hasBase && p.isCIMXML {
		attrs = append(append([]xml.Attr(nil), attrs...), xml.Attr{Name: xml.Name{Space: xmlNS, Local: xmlBase}, Value: "urn:uuid:"})
	}
	pushed, err := p.pushResolverFrame(attrs)
	if err != nil {
		return p.errs.Fatal(p.pos(), err.Error())
	}

	p.stack = append(p.stack, &frame{
		kind:                kindRoot,
		name:                t.Name,
		pushedResolverFrame: pushed,
	})
	return nil
}

func (p *Parser) handleRootEnd(t xml.EndElement) error {
	f := p.top()
	p.stack = p.stack[:len(p.stack)-1]
	if f.pushedResolverFrame {
		p.resolver.PopFrame()
	}
	return nil
}

// bindNamespaces registers every xmlns declaration on attrs with the
// sink's prefix map and with nsToPrefix, the reverse lookup this parser
// uses to re-qualify element/attribute names when reconstructing
// rdf:parseType="Literal" content. It also recognizes the CIM schema
// namespace's bound prefix, spec.md §4.I: "the parser records which
// prefix the document bound to the CIM namespace."
func (p *Parser) bindNamespaces(attrs []xml.Attr) {
	for prefix, ns := range namespacesOf(attrs) {
		p.sink.Prefix(prefix, ns)
		if _, ok := p.nsToPrefix[ns]; !ok {
			p.nsToPrefix[ns] = prefix
		}
		if prefix == "cim" {
			p.cimPrefix = prefix
			p.isCIMXML = true
		}
	}
}

// pushResolverFrame pushes a cimxterm.Resolver frame for xml:base/xml:lang
// found on attrs, returning whether a frame was actually pushed (every
// element pushes one so handleEnd can unconditionally pop in matching
// number, even when neither attribute is present — PushFrame degenerates
// to copying the current frame in that case, which is cheap).
func (p *Parser) pushResolverFrame(attrs []xml.Attr) (bool, error) {
	base, hasBase := attrValue(attrs, xmlNS, xmlBase)
	lang, hasLang := attrValue(attrs, xmlNS, xmlLang)
	if _, err := p.resolver.PushFrame(base, hasBase, lang, hasLang); err != nil {
		return false, err
	}
	return true, nil
}

// handleLiteralStart appends a nested element's canonical start tag to
// the enclosing property frame's literal buffer and increases its
// nesting depth (spec.md §9's XML-literal canonicalization design note).
func (p *Parser) handleLiteralStart(t xml.StartElement) error {
	f := p.top()
	f.literalDepth++
	f.sawChildElement = true
	p.literalStartTag(f, t.Name.Space, t.Name.Local, literalAttrsOf(t.Attr))
	return nil
}

// handleLiteralEnd appends a nested element's closing tag to the
// enclosing property frame's literal buffer and decreases its nesting
// depth. The property element's own closing tag never reaches this
// function: handleEnd only routes here while literalDepth > 0, and the
// last nested child's end tag brings depth back to 0 before the
// property's own EndElement token arrives.
func (p *Parser) handleLiteralEnd(t xml.EndElement) error {
	f := p.top()
	p.literalEndTag(f, t.Name.Space, t.Name.Local)
	f.literalDepth--
	return nil
}

func literalAttrsOf(attrs []xml.Attr) []xmlAttrLite {
	out := make([]xmlAttrLite, 0, len(attrs))
	for _, a := range attrs {
		if a.Name.Space == "xmlns" || (a.Name.Space == "" && a.Name.Local == "xmlns") {
			continue
		}
		out = append(out, xmlAttrLite{space: a.Name.Space, local: a.Name.Local, value: a.Value})
	}
	return out
}
