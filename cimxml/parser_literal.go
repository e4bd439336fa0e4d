package cimxml

import (
	"sort"
	"strings"
)

// XML-literal canonicalization (spec.md §9): namespace declarations are
// emitted the first time a prefix becomes needed inside the literal,
// attributes on each start tag are sorted alphabetically, and text,
// attribute values, and comments are escaped by the ordinary XML
// content/attribute-value/comment rules. Because encoding/xml resolves
// away the source document's original prefixes, reconstruction uses
// the first prefix this parser ever saw bound to a given namespace
// (p.nsToPrefix), falling back to a synthetic "nsN" alias for a
// namespace never declared at the document root.

func (p *Parser) prefixFor(ns string) string {
	if ns == "" {
		return ""
	}
	if prefix, ok := p.nsToPrefix[ns]; ok {
		return prefix
	}
	prefix := "ns" + itoa(p.anonNSCounter)
	p.anonNSCounter++
	p.nsToPrefix[ns] = prefix
	return prefix
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	digits := []byte{}
	for n > 0 {
		digits = append([]byte{byte('0' + n%10)}, digits...)
		n /= 10
	}
	return string(digits)
}

func qualifiedNameForLiteral(p *Parser, space, local string) string {
	prefix := p.prefixFor(space)
	if prefix == "" {
		return local
	}
	return prefix + ":" + local
}

// literalStartTag appends a canonical start tag for a nested element
// encountered while capturing rdf:parseType="Literal" content.
func (p *Parser) literalStartTag(f *frame, space, local string, attrs []xmlAttrLite) {
	name := qualifiedNameForLiteral(p, space, local)

	type decl struct{ prefix, ns string }
	var newDecls []decl
	if space != "" {
		prefix := p.prefixFor(space)
		if !f.literalSeenPrefixes[prefix] {
			newDecls = append(newDecls, decl{prefix, space})
			f.literalSeenPrefixes[prefix] = true
		}
	}

	type kv struct{ name, value string }
	pairs := make([]kv, 0, len(attrs)+len(newDecls))
	for _, d := range newDecls {
		pairs = append(pairs, kv{"xmlns:" + d.prefix, d.ns})
	}
	for _, a := range attrs {
		qn := qualifiedNameForLiteral(p, a.space, a.local)
		if a.space != "" {
			prefix := p.prefixFor(a.space)
			if !f.literalSeenPrefixes[prefix] {
				pairs = append(pairs, kv{"xmlns:" + prefix, a.space})
				f.literalSeenPrefixes[prefix] = true
			}
		}
		pairs = append(pairs, kv{qn, a.value})
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].name < pairs[j].name })

	f.literalBuf.WriteByte('<')
	f.literalBuf.WriteString(name)
	for _, kv := range pairs {
		f.literalBuf.WriteByte(' ')
		f.literalBuf.WriteString(kv.name)
		f.literalBuf.WriteString(`="`)
		f.literalBuf.WriteString(escapeXMLAttr(kv.value))
		f.literalBuf.WriteByte('"')
	}
	f.literalBuf.WriteByte('>')
}

func (p *Parser) literalEndTag(f *frame, space, local string) {
	name := qualifiedNameForLiteral(p, space, local)
	f.literalBuf.WriteString("</")
	f.literalBuf.WriteString(name)
	f.literalBuf.WriteByte('>')
}

// xmlAttrLite is a minimal attribute tuple, decoupled from encoding/xml's
// xml.Attr so the literal-reconstruction helpers above are easy to unit
// test without constructing real tokens.
type xmlAttrLite struct {
	space, local, value string
}

func escapeXMLContent(s string) string {
	r := strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")
	return r.Replace(s)
}

func escapeXMLAttr(s string) string {
	r := strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&quot;")
	return r.Replace(s)
}
