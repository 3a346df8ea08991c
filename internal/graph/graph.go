// Copyright 2025 Lincoln Institute of Land Policy
// SPDX-License-Identifier: Apache-2.0

package graph

import (
	"fmt"
	"sort"
	"strings"
)

type keySet map[string]struct{}

// An in-memory set of triples with simple subject,
// predicate and object indexes
type Graph struct {
	triples     map[string]Triple
	bySubject   map[Term]keySet
	byPredicate map[Term]keySet
	byObject    map[Term]keySet
}

func New() *Graph {
	return &Graph{
		triples:     make(map[string]Triple),
		bySubject:   make(map[Term]keySet),
		byPredicate: make(map[Term]keySet),
		byObject:    make(map[Term]keySet),
	}
}

// NewFromTriples builds a graph from a list of triples
func NewFromTriples(triples ...Triple) *Graph {
	g := New()
	for _, t := range triples {
		g.Add(t)
	}
	return g
}

func index(idx map[Term]keySet, term Term, key string) {
	set, ok := idx[term]
	if !ok {
		set = make(keySet)
		idx[term] = set
	}
	set[key] = struct{}{}
}

func unindex(idx map[Term]keySet, term Term, key string) {
	set, ok := idx[term]
	if !ok {
		return
	}
	delete(set, key)
	if len(set) == 0 {
		delete(idx, term)
	}
}

// Add inserts the triple and returns true if it was not already present
func (g *Graph) Add(t Triple) bool {
	key := t.Key()
	if _, ok := g.triples[key]; ok {
		return false
	}
	g.triples[key] = t
	index(g.bySubject, t.Subject, key)
	index(g.byPredicate, t.Predicate, key)
	index(g.byObject, t.Object, key)
	return true
}

// Remove deletes the triple and returns true if it was present
func (g *Graph) Remove(t Triple) bool {
	key := t.Key()
	if _, ok := g.triples[key]; !ok {
		return false
	}
	delete(g.triples, key)
	unindex(g.bySubject, t.Subject, key)
	unindex(g.byPredicate, t.Predicate, key)
	unindex(g.byObject, t.Object, key)
	return true
}

func (g *Graph) Has(t Triple) bool {
	_, ok := g.triples[t.Key()]
	return ok
}

func (g *Graph) Len() int {
	return len(g.triples)
}

// Triples returns every triple sorted by its N-Triples key
func (g *Graph) Triples() []Triple {
	keys := make([]string, 0, len(g.triples))
	for k := range g.triples {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]Triple, 0, len(keys))
	for _, k := range keys {
		out = append(out, g.triples[k])
	}
	return out
}

// Match returns the triples matching the pattern in sorted order;
// a nil term acts as a wildcard
func (g *Graph) Match(s, p, o *Term) []Triple {
	var candidates keySet
	pick := func(idx map[Term]keySet, term *Term) bool {
		if term == nil {
			return true
		}
		set := idx[*term]
		if len(set) == 0 {
			return false
		}
		if candidates == nil || len(set) < len(candidates) {
			candidates = set
		}
		return true
	}
	if !pick(g.bySubject, s) || !pick(g.byPredicate, p) || !pick(g.byObject, o) {
		return nil
	}

	var keys []string
	if candidates == nil {
		keys = make([]string, 0, len(g.triples))
		for k := range g.triples {
			keys = append(keys, k)
		}
	} else {
		keys = make([]string, 0, len(candidates))
		for k := range candidates {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	var out []Triple
	for _, k := range keys {
		t := g.triples[k]
		if s != nil && t.Subject != *s {
			continue
		}
		if p != nil && t.Predicate != *p {
			continue
		}
		if o != nil && t.Object != *o {
			continue
		}
		out = append(out, t)
	}
	return out
}

// Objects returns the distinct objects of (s, p, ?)
func (g *Graph) Objects(s, p Term) []Term {
	var out []Term
	for _, t := range g.Match(&s, &p, nil) {
		out = append(out, t.Object)
	}
	return out
}

// Subjects returns the distinct subjects of (?, p, o)
func (g *Graph) Subjects(p, o Term) []Term {
	var out []Term
	seen := make(map[Term]struct{})
	for _, t := range g.Match(nil, &p, &o) {
		if _, ok := seen[t.Subject]; ok {
			continue
		}
		seen[t.Subject] = struct{}{}
		out = append(out, t.Subject)
	}
	return out
}

// Object returns the first object of (s, p, ?) in sorted order
func (g *Graph) Object(s, p Term) (Term, bool) {
	objs := g.Objects(s, p)
	if len(objs) == 0 {
		return Term{}, false
	}
	return objs[0], true
}

// SubjectsWithPredicate returns every distinct subject having predicate p
func (g *Graph) SubjectsWithPredicate(p Term) []Term {
	var out []Term
	seen := make(map[Term]struct{})
	for _, t := range g.Match(nil, &p, nil) {
		if _, ok := seen[t.Subject]; !ok {
			seen[t.Subject] = struct{}{}
			out = append(out, t.Subject)
		}
	}
	return out
}

// InstancesOf returns the subjects typed directly as class
func (g *Graph) InstancesOf(class string) []Term {
	return g.Subjects(NewIRI(RDFType), NewIRI(class))
}

// HasType reports whether `node rdf:type class` is asserted
func (g *Graph) HasType(node Term, class string) bool {
	return g.Has(NewTriple(node, NewIRI(RDFType), NewIRI(class)))
}

// IsSubject reports whether the term appears as a subject of any triple
func (g *Graph) IsSubject(node Term) bool {
	return len(g.bySubject[node]) > 0
}

// Merge adds every triple of other into g
func (g *Graph) Merge(other *Graph) {
	if other == nil {
		return
	}
	for _, t := range other.triples {
		g.Add(t)
	}
}

func (g *Graph) Clone() *Graph {
	c := New()
	c.Merge(g)
	return c
}

// Union returns a new graph holding the triples of all graphs
func Union(graphs ...*Graph) *Graph {
	out := New()
	for _, g := range graphs {
		out.Merge(g)
	}
	return out
}

// Difference returns the triples of a that are not in b
func Difference(a, b *Graph) []Triple {
	var out []Triple
	for _, t := range a.Triples() {
		if !b.Has(t) {
			out = append(out, t)
		}
	}
	return out
}

// NTriples serializes the graph in sorted N-Triples
func (g *Graph) NTriples() string {
	var b strings.Builder
	for _, t := range g.Triples() {
		b.WriteString(t.Key())
		b.WriteString("\n")
	}
	return b.String()
}

// List walks an RDF collection starting at head
func (g *Graph) List(head Term) ([]Term, error) {
	var items []Term
	first := NewIRI(RDFFirst)
	rest := NewIRI(RDFRest)
	seen := make(map[Term]struct{})
	node := head
	for node != NewIRI(RDFNil) {
		if _, ok := seen[node]; ok {
			return nil, fmt.Errorf("rdf list starting at %s is cyclic", head)
		}
		seen[node] = struct{}{}
		item, ok := g.Object(node, first)
		if !ok {
			return nil, fmt.Errorf("rdf list node %s has no rdf:first", node)
		}
		items = append(items, item)
		next, ok := g.Object(node, rest)
		if !ok {
			return nil, fmt.Errorf("rdf list node %s has no rdf:rest", node)
		}
		node = next
	}
	return items, nil
}
