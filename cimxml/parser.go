package cimxml

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"github.com/iec61970/cimx/cimxmetrics"
	"github.com/iec61970/cimx/cimxprofile"
	"github.com/iec61970/cimx/cimxterm"
	"github.com/iec61970/cimx/internal/cimxlog"
)

// Parser is the pull-driven RDF/XML + CIMXML state machine of spec.md
// §4.I. It drives a Sink from an encoding/xml.Decoder's token stream in
// one flat loop over an explicit frame stack (no recursive descent),
// grounded in pkg/api/protobuf/scanner.go's single-pass scanning
// convention.
type Parser struct {
	sink     Sink
	resolver *cimxterm.Resolver
	errs     ErrorHandler
	registry *cimxprofile.Registry
	log      *cimxlog.Logger
	metrics  *cimxmetrics.Metrics

	source   []byte
	decoder  *xml.Decoder

	isCIMXML bool
	cimPrefix string

	currentPropertyInfo map[string]cimxprofile.PropertyInfo

	usedIDs map[string]struct{} // "<base>#<id>" -> seen, for duplicate-ID warnings

	// nsToPrefix remembers the first prefix bound to each namespace IRI,
	// used to re-qualify element/attribute names when reconstructing
	// rdf:parseType="Literal" content (the decoder resolves away the
	// original source prefix).
	nsToPrefix    map[string]string
	anonNSCounter int

	stack []*frame
}

// Option configures a Parser.
type Option func(*Parser)

// WithErrorHandler overrides the default logging error handler.
func WithErrorHandler(h ErrorHandler) Option {
	return func(p *Parser) { p.errs = h }
}

// WithRegistry enables profile-aware literal typing: once a model
// header's declared profiles are known, the parser looks up their
// compiled property/datatype map in registry.
func WithRegistry(r *cimxprofile.Registry) Option {
	return func(p *Parser) { p.registry = r }
}

// WithLogger attaches the logger the default error handler writes
// warnings and errors through; it has no effect when WithErrorHandler
// supplies a handler. The parser itself logs nothing else.
func WithLogger(l *cimxlog.Logger) Option {
	return func(p *Parser) { p.log = l }
}

// WithMetrics attaches a metrics sink used for the default error
// handler's warning/error counters when no explicit WithErrorHandler is
// given.
func WithMetrics(m *cimxmetrics.Metrics) Option {
	return func(p *Parser) { p.metrics = m }
}

// WithTermCacheSize bounds the resolver's per-base IRI resolution cache.
func WithTermCacheSize(size int) Option {
	return func(p *Parser) { p.resolver = cimxterm.NewResolver(size) }
}

// elementKind distinguishes the three frame shapes on the parser stack.
type elementKind int

const (
	kindRoot elementKind = iota
	kindNode
	kindProperty
	kindContextContainer // dm:forwardDifferences/reverseDifferences/preconditions
)

// frame is one entry in the explicit parser stack, one per open element.
// It intentionally holds every piece of state needed to resume
// processing on the next token, so the driving loop stays flat.
type frame struct {
	kind elementKind
	name xml.Name

	subject    cimxterm.Term
	hasSubject bool

	property  cimxterm.Term
	parseType string // "", "Resource", "Literal", "Collection", "Statements"

	text                 strings.Builder
	sawNonWhitespaceText bool
	sawChildElement      bool

	reifyID string

	pushedResolverFrame bool

	pushedContext bool
	priorContext  Context

	literalDepth        int
	literalBuf          strings.Builder
	literalSeenPrefixes map[string]bool

	liCounter int // rdf:li -> rdf:_n conversion counter, owned by node frames

	// finished marks a property frame whose object was already resolved
	// and emitted at start-tag time (rdf:resource, rdf:nodeID, plain
	// attribute-property shorthand, or parseType="Resource"), so
	// handlePropertyEnd emits nothing more for it.
	finished bool

	hasExplicitDatatype bool
	explicitDatatype    string

	// hasNestedObject/nestedObjectSubject record the subject of a node
	// element that was this property's sole child (the default nested-
	// object content form, or the synthetic blank node of a
	// parseType="Resource" property), set by handleNodeEnd on its
	// parent frame.
	hasNestedObject     bool
	nestedObjectSubject cimxterm.Term

	// headCell/hasHeadCell/prevCell/hasPrevCell/cellCount track the
	// rdf:first/rdf:rest chain built for a parseType="Collection"
	// property as each member node element closes.
	headCell    cimxterm.Term
	hasHeadCell bool
	prevCell    cimxterm.Term
	hasPrevCell bool
	cellCount   int
}

// NewParser creates a parser reading from r and driving sink.
func NewParser(r io.Reader, sink Sink, opts ...Option) (*Parser, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("cimxml: reading source: %w", err)
	}

	p := &Parser{
		sink:       sink,
		resolver:   cimxterm.NewResolver(4096),
		source:     data,
		usedIDs:    make(map[string]struct{}),
		nsToPrefix: make(map[string]string),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.log == nil {
		p.log = cimxlog.Discard()
	}
	if p.errs == nil {
		p.errs = NewDefaultErrorHandlerWithMetrics(p.log, p.metrics)
	}

	p.decoder = xml.NewDecoder(bytes.NewReader(data))
	return p, nil
}

func (p *Parser) pos() Position {
	off := p.decoder.InputOffset()
	line := 1
	col := 1
	for i := int64(0); i < off && int(i) < len(p.source); i++ {
		if p.source[i] == '\n' {
			line++
			col = 1
		} else {
			col++
		}
	}
	return Position{Line: line, Column: col, Offset: off}
}

func (p *Parser) top() *frame {
	if len(p.stack) == 0 {
		return nil
	}
	return p.stack[len(p.stack)-1]
}

// Parse runs the parser to completion, driving p.sink.
func (p *Parser) Parse() error {
	p.sink.Start()

	for {
		tok, err := p.decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return p.errs.Fatal(p.pos(), fmt.Sprintf("XML token error: %v", err))
		}

		switch t := tok.(type) {
		case xml.ProcInst:
			if t.Target == "iec61970-552" {
				p.sink.SetVersionOfIEC61970_552(strings.TrimSpace(string(t.Inst)))
			}
		case xml.Directive:
			// DTD: accepted and skipped.
		case xml.Comment:
			// comments are not part of the RDF/XML grammar and are dropped,
			// except inside captured Literal content, where they stay part
			// of the literal's lexical form.
			if f := p.top(); f != nil && f.kind == kindProperty && f.parseType == parseTypeLiteral {
				f.literalBuf.WriteString("<!--" + string(t) + "-->")
			}
		case xml.CharData:
			if err := p.handleCharData([]byte(t)); err != nil {
				return err
			}
		case xml.StartElement:
			if err := p.handleStart(t); err != nil {
				return err
			}
		case xml.EndElement:
			if err := p.handleEnd(t); err != nil {
				return err
			}
		}
	}

	if len(p.stack) != 0 {
		return p.errs.Fatal(p.pos(), "unexpected end of document: unclosed elements remain")
	}

	return p.sink.Finish()
}

func (p *Parser) handleCharData(data []byte) error {
	f := p.top()
	if f == nil || f.kind != kindProperty {
		return nil
	}
	if f.parseType == parseTypeLiteral {
		f.literalBuf.WriteString(escapeXMLContent(string(data)))
		return nil
	}
	if f.sawChildElement && len(bytes.TrimSpace(data)) > 0 {
		return p.errs.Fatal(p.pos(), "text content mixed with a nested element inside a property element")
	}
	f.text.Write(data)
	if len(bytes.TrimSpace(data)) > 0 {
		f.sawNonWhitespaceText = true
	}
	return nil
}

func namespacesOf(attrs []xml.Attr) map[string]string {
	ns := make(map[string]string)
	for _, a := range attrs {
		switch {
		case a.Name.Space == "xmlns":
			ns[a.Name.Local] = a.Value
		case a.Name.Space == "" && a.Name.Local == "xmlns":
			ns[""] = a.Value
		}
	}
	return ns
}

func attrValue(attrs []xml.Attr, space, local string) (string, bool) {
	for _, a := range attrs {
		if a.Name.Local == local && (a.Name.Space == space || (space == xmlNS && a.Name.Space == "xml")) {
			return a.Value, true
		}
	}
	return "", false
}

func qualify(n xml.Name) string { return n.Space + n.Local }

// isRDF reports whether n is the RDF-namespace term named local.
func isRDF(n xml.Name, local string) bool {
	return n.Space == rdfNS && n.Local == local
}

// parseTypeNames bound parseType values this parser recognizes.
const (
	parseTypeResource   = "Resource"
	parseTypeLiteral    = "Literal"
	parseTypeCollection = "Collection"
	parseTypeStatements = "Statements"
)

func normalizeParseType(raw string, pos Position, errs ErrorHandler) string {
	switch raw {
	case parseTypeResource, parseTypeLiteral, parseTypeCollection, parseTypeStatements:
		return raw
	case "literal":
		errs.Warning(pos, `rdf:parseType="literal" (lower-case) accepted, treated as "Literal"`)
		return parseTypeLiteral
	default:
		return raw
	}
}

