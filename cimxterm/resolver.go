package cimxterm

import (
	"fmt"
	"net/url"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/google/uuid"
)

// frame is one entry in the (base, lang) stack described in spec.md §4.A.
// The parser pushes a frame for every element (a copy of the enclosing
// frame when the element carries neither xml:base nor xml:lang) and pops
// it on the matching end tag.
type frame struct {
	base string // absolute base IRI in scope, or "" if none
	lang string // xml:lang in scope, or ""
}

// RelativeIRIError is returned by Resolve when a relative IRI is used
// with no base in scope. Per spec.md §4.A this is reported as a warning
// but the resolution itself is a fatal error: the caller's ErrorHandler
// should route it through Warning then Error.
type RelativeIRIError struct {
	URI string
}

func (e *RelativeIRIError) Error() string {
	return fmt.Sprintf("relative IRI %q used with no base in scope", e.URI)
}

// Resolver implements the term factory and IRI resolver of spec.md §4.A:
// it creates IRIs and blank nodes, and resolves relative IRIs under a
// stacked base with a per-base resolution cache. Literals are built with
// the package-level PlainLiteral, TypedLiteral and LangLiteral functions.
type Resolver struct {
	frames []frame
	caches map[string]*lru.Cache[string, string] // base -> (relative uri -> resolved absolute IRI)
	cacheSize int

	blankLabels map[string]struct{} // interning set, for nodeID equality bookkeeping
}

// NewResolver creates a resolver with no base and no language in scope,
// and a per-base cache bounded to cacheSize entries.
func NewResolver(cacheSize int) *Resolver {
	if cacheSize <= 0 {
		cacheSize = 4096
	}
	return &Resolver{
		frames:      []frame{{}}, // root frame: no base, no lang
		caches:      make(map[string]*lru.Cache[string, string]),
		cacheSize:   cacheSize,
		blankLabels: make(map[string]struct{}),
	}
}

// CurrentBase returns the base IRI in scope, or "" if none.
func (r *Resolver) CurrentBase() string { return r.frames[len(r.frames)-1].base }

// CurrentLang returns the xml:lang in scope, or "" if none.
func (r *Resolver) CurrentLang() string { return r.frames[len(r.frames)-1].lang }

// PushFrame resolves newBase (if non-empty) against the current base and
// pushes a new frame combining the resolved base with newLang (falling
// back to the current lang when newLang == "" and hasNewLang is false).
// It returns the resolved base actually pushed (for diagnostics) and an
// error if newBase is relative and no base is currently in scope.
func (r *Resolver) PushFrame(newBase string, hasNewBase bool, newLang string, hasNewLang bool) (string, error) {
	top := r.frames[len(r.frames)-1]
	next := top

	if hasNewBase && newBase != "" {
		resolved, err := r.absolutize(top.base, newBase)
		if err != nil {
			return "", err
		}
		next.base = resolved
	}
	if hasNewLang {
		next.lang = newLang
	}
	r.frames = append(r.frames, next)
	return next.base, nil
}

// PopFrame pops the most recently pushed frame. It is a no-op on the root
// frame, which is never popped.
func (r *Resolver) PopFrame() {
	if len(r.frames) > 1 {
		r.frames = r.frames[:len(r.frames)-1]
	}
}

// IRI wraps an already-absolute IRI string as a term. Equal normalized
// input produces an equal term, since Term equality is purely
// string-value equality (spec.md §4.A).
func (r *Resolver) IRI(uriStr string) Term {
	return IRITerm(uriStr)
}

// Resolve resolves uriStr against the current base per RFC 3986 (spec.md
// §4.A). Absolute uriStr values pass through unchanged. Relative values
// resolved with a base in scope are cached per-base; resolution cache for
// the "" (no) base is shared across every frame that has no base, per
// spec.md §4.A ("the cache for the null base is shared").
func (r *Resolver) Resolve(uriStr string) (Term, error) {
	if isAbsoluteIRI(uriStr) {
		return IRITerm(uriStr), nil
	}

	base := r.CurrentBase()
	if base == "" {
		return Term{}, &RelativeIRIError{URI: uriStr}
	}

	resolved, err := r.absolutize(base, uriStr)
	if err != nil {
		return Term{}, err
	}
	return IRITerm(resolved), nil
}

// absolutize resolves ref against base using RFC 3986 and records the
// result in the cache owned by base.
func (r *Resolver) absolutize(base, ref string) (string, error) {
	cache := r.cacheFor(base)
	if resolved, ok := cache.Get(ref); ok {
		return resolved, nil
	}

	if isAbsoluteIRI(ref) {
		cache.Add(ref, ref)
		return ref, nil
	}
	if base == "" {
		return "", &RelativeIRIError{URI: ref}
	}

	baseURL, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("cimxterm: invalid base IRI %q: %w", base, err)
	}
	refURL, err := url.Parse(ref)
	if err != nil {
		return "", fmt.Errorf("cimxterm: invalid relative IRI %q: %w", ref, err)
	}

	resolved := baseURL.ResolveReference(refURL).String()
	cache.Add(ref, resolved)
	return resolved, nil
}

func (r *Resolver) cacheFor(base string) *lru.Cache[string, string] {
	if c, ok := r.caches[base]; ok {
		return c
	}
	c, _ := lru.New[string, string](r.cacheSize)
	r.caches[base] = c
	return c
}

// Blank mints a fresh, document-unique blank node using a UUID suffix so
// generated labels never collide with explicit rdf:nodeID labels or with
// blank nodes minted by a different parse (spec.md §9: ownership is
// explicit per document; avoiding cross-document collisions matters once
// graphs from separate parses are composed via a disjoint union).
func (r *Resolver) Blank() Term {
	label := "g" + uuid.New().String()
	r.blankLabels[label] = struct{}{}
	return BlankNodeTerm(label)
}

// BlankLabeled returns the blank node term for an explicit rdf:nodeID (or
// reified rdf:ID) label, interning it so repeated use of the same label
// within one parse produces an equal term.
func (r *Resolver) BlankLabeled(label string) Term {
	r.blankLabels[label] = struct{}{}
	return BlankNodeTerm(label)
}

func isAbsoluteIRI(s string) bool {
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	return u.IsAbs()
}
