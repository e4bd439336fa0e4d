// Package cimxgraph implements the in-memory triple store: the plain
// indexed graph, the delta overlay, and the disjoint union view (spec
// components B, C, D).
package cimxgraph

import "github.com/iec61970/cimx/cimxterm"

// Triple is an ordered (subject, predicate, object). All three fields are
// cimxterm.Term values, which are themselves comparable, so Triple is
// comparable and usable as a map key — the basis for "no duplicate
// triples" (spec.md §3).
type Triple struct {
	Subject   cimxterm.Term
	Predicate cimxterm.Term
	Object    cimxterm.Term
}

func (t Triple) String() string {
	return t.Subject.String() + " " + t.Predicate.String() + " " + t.Object.String() + " ."
}

// Pattern is a triple pattern: a nil component is a wildcard. Find
// returns every triple matching every non-nil component.
type Pattern struct {
	Subject   *cimxterm.Term
	Predicate *cimxterm.Term
	Object    *cimxterm.Term
}

// AnyPattern matches every triple in the graph.
func AnyPattern() Pattern { return Pattern{} }

// S, P, O build a pattern pinning just that component.
func S(s cimxterm.Term) Pattern { return Pattern{Subject: &s} }
func P(p cimxterm.Term) Pattern { return Pattern{Predicate: &p} }
func O(o cimxterm.Term) Pattern { return Pattern{Object: &o} }

// SP, SO, PO, SPO pin two or three components.
func SP(s, p cimxterm.Term) Pattern     { return Pattern{Subject: &s, Predicate: &p} }
func SO(s, o cimxterm.Term) Pattern     { return Pattern{Subject: &s, Object: &o} }
func PO(p, o cimxterm.Term) Pattern     { return Pattern{Predicate: &p, Object: &o} }
func SPO(s, p, o cimxterm.Term) Pattern { return Pattern{Subject: &s, Predicate: &p, Object: &o} }

// Matches reports whether t satisfies every pinned component of pat.
func (pat Pattern) Matches(t Triple) bool {
	if pat.Subject != nil && *pat.Subject != t.Subject {
		return false
	}
	if pat.Predicate != nil && *pat.Predicate != t.Predicate {
		return false
	}
	if pat.Object != nil && *pat.Object != t.Object {
		return false
	}
	return true
}
