// Copyright 2025 Lincoln Institute of Land Policy
// SPDX-License-Identifier: Apache-2.0

package shacl

import (
	"fmt"
	"strings"

	"github.com/internetofwater/ldsync/internal/graph"
)

// A SHACL property path
type Path interface {
	// Values returns the distinct nodes reachable from focus
	Values(g *graph.Graph, focus graph.Term) []graph.Term
	String() string
}

// termSet keeps insertion order so results are deterministic
type termSet struct {
	seen  map[graph.Term]struct{}
	items []graph.Term
}

func newTermSet() *termSet {
	return &termSet{seen: make(map[graph.Term]struct{})}
}

func (s *termSet) add(terms ...graph.Term) {
	for _, t := range terms {
		if _, ok := s.seen[t]; !ok {
			s.seen[t] = struct{}{}
			s.items = append(s.items, t)
		}
	}
}

func (s *termSet) has(t graph.Term) bool {
	_, ok := s.seen[t]
	return ok
}

type predicatePath struct {
	predicate graph.Term
}

func (p predicatePath) Values(g *graph.Graph, focus graph.Term) []graph.Term {
	return g.Objects(focus, p.predicate)
}

func (p predicatePath) String() string { return p.predicate.Compact() }

type inversePath struct {
	inner Path
}

func (p inversePath) Values(g *graph.Graph, focus graph.Term) []graph.Term {
	if pred, ok := p.inner.(predicatePath); ok {
		return g.Subjects(pred.predicate, focus)
	}
	// inverse of a complex path: every node whose forward path reaches focus
	out := newTermSet()
	for _, t := range g.Triples() {
		for _, candidate := range []graph.Term{t.Subject, t.Object} {
			if out.has(candidate) {
				continue
			}
			for _, v := range p.inner.Values(g, candidate) {
				if v == focus {
					out.add(candidate)
					break
				}
			}
		}
	}
	return out.items
}

func (p inversePath) String() string { return "^" + p.inner.String() }

type sequencePath struct {
	steps []Path
}

func (p sequencePath) Values(g *graph.Graph, focus graph.Term) []graph.Term {
	current := []graph.Term{focus}
	for _, step := range p.steps {
		next := newTermSet()
		for _, node := range current {
			next.add(step.Values(g, node)...)
		}
		current = next.items
	}
	return current
}

func (p sequencePath) String() string {
	parts := make([]string, len(p.steps))
	for i, s := range p.steps {
		parts[i] = s.String()
	}
	return "(" + strings.Join(parts, " / ") + ")"
}

type alternativePath struct {
	options []Path
}

func (p alternativePath) Values(g *graph.Graph, focus graph.Term) []graph.Term {
	out := newTermSet()
	for _, option := range p.options {
		out.add(option.Values(g, focus)...)
	}
	return out.items
}

func (p alternativePath) String() string {
	parts := make([]string, len(p.options))
	for i, o := range p.options {
		parts[i] = o.String()
	}
	return "(" + strings.Join(parts, " | ") + ")"
}

// repeatPath covers sh:zeroOrMorePath, sh:oneOrMorePath and sh:zeroOrOnePath
type repeatPath struct {
	inner       Path
	includeSelf bool
	unbounded   bool
}

func (p repeatPath) Values(g *graph.Graph, focus graph.Term) []graph.Term {
	out := newTermSet()
	if p.includeSelf {
		out.add(focus)
	}
	frontier := p.inner.Values(g, focus)
	visited := newTermSet()
	for len(frontier) > 0 {
		var next []graph.Term
		for _, node := range frontier {
			out.add(node)
			if !p.unbounded || visited.has(node) {
				continue
			}
			visited.add(node)
			next = append(next, p.inner.Values(g, node)...)
		}
		frontier = next
	}
	return out.items
}

func (p repeatPath) String() string {
	switch {
	case p.includeSelf && p.unbounded:
		return p.inner.String() + "*"
	case p.unbounded:
		return p.inner.String() + "+"
	default:
		return p.inner.String() + "?"
	}
}

// parsePath reads the path rooted at node in the shapes graph
func parsePath(shapes *graph.Graph, node graph.Term) (Path, error) {
	if node.IsIRI() {
		return predicatePath{predicate: node}, nil
	}
	if !node.IsBlank() {
		return nil, fmt.Errorf("path %s must be an IRI or a blank node", node)
	}
	if _, isList := shapes.Object(node, graph.NewIRI(graph.RDFFirst)); isList {
		items, err := shapes.List(node)
		if err != nil {
			return nil, err
		}
		if len(items) < 2 {
			return nil, fmt.Errorf("sequence path %s must have at least two members", node)
		}
		steps := make([]Path, 0, len(items))
		for _, item := range items {
			step, err := parsePath(shapes, item)
			if err != nil {
				return nil, err
			}
			steps = append(steps, step)
		}
		return sequencePath{steps: steps}, nil
	}
	if inner, ok := shapes.Object(node, sh("inversePath")); ok {
		p, err := parsePath(shapes, inner)
		if err != nil {
			return nil, err
		}
		return inversePath{inner: p}, nil
	}
	if head, ok := shapes.Object(node, sh("alternativePath")); ok {
		items, err := shapes.List(head)
		if err != nil {
			return nil, err
		}
		if len(items) < 2 {
			return nil, fmt.Errorf("alternative path %s must have at least two members", node)
		}
		options := make([]Path, 0, len(items))
		for _, item := range items {
			option, err := parsePath(shapes, item)
			if err != nil {
				return nil, err
			}
			options = append(options, option)
		}
		return alternativePath{options: options}, nil
	}
	repeats := []struct {
		predicate   string
		includeSelf bool
		unbounded   bool
	}{
		{"zeroOrMorePath", true, true},
		{"oneOrMorePath", false, true},
		{"zeroOrOnePath", true, false},
	}
	for _, r := range repeats {
		if inner, ok := shapes.Object(node, sh(r.predicate)); ok {
			p, err := parsePath(shapes, inner)
			if err != nil {
				return nil, err
			}
			return repeatPath{inner: p, includeSelf: r.includeSelf, unbounded: r.unbounded}, nil
		}
	}
	return nil, fmt.Errorf("unrecognized path expression at %s", node)
}
