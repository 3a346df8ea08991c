// Copyright 2025 Lincoln Institute of Land Policy
// SPDX-License-Identifier: Apache-2.0

package shacl

import (
	"sort"

	"github.com/internetofwater/ldsync/internal/graph"
)

var subClassOf = graph.NewIRI(graph.RDFSSubClassOf)

type shapeFocus struct {
	shape graph.Term
	focus graph.Term
}

// validator holds the per data graph state of a validation run
type validator struct {
	shapes *Shapes
	data   *graph.Graph
	// class -> the class and all of its transitive subclasses
	subclasses map[graph.Term]*termSet
	// conformance checks currently being evaluated; a check that
	// reaches itself again is assumed to conform
	active map[shapeFocus]bool
}

// Validate evaluates every targeted shape over the data graph. The data
// graph should include any ontology needed to resolve rdfs:subClassOf
func (s *Shapes) Validate(data *graph.Graph) *Report {
	v := &validator{
		shapes:     s,
		data:       data,
		subclasses: make(map[graph.Term]*termSet),
		active:     make(map[shapeFocus]bool),
	}
	var results []Result
	for _, shape := range s.roots {
		for _, focus := range v.focusNodes(shape) {
			results = append(results, v.validateShape(shape, focus)...)
		}
	}
	sort.SliceStable(results, func(i, j int) bool {
		a, b := results[i], results[j]
		if a.FocusNode != b.FocusNode {
			return a.FocusNode.String() < b.FocusNode.String()
		}
		if a.Path != b.Path {
			return a.Path < b.Path
		}
		if a.Component != b.Component {
			return a.Component < b.Component
		}
		return a.Value.String() < b.Value.String()
	})
	return &Report{Conforms: len(results) == 0, Results: results}
}

// subclassClosure returns class and every class below it in the hierarchy
func (v *validator) subclassClosure(class graph.Term) *termSet {
	if cached, ok := v.subclasses[class]; ok {
		return cached
	}
	closure := newTermSet()
	closure.add(class)
	for i := 0; i < len(closure.items); i++ {
		closure.add(v.data.Subjects(subClassOf, closure.items[i])...)
	}
	v.subclasses[class] = closure
	return closure
}

func (v *validator) isInstance(node, class graph.Term) bool {
	closure := v.subclassClosure(class)
	for _, t := range v.data.Objects(node, rdfType) {
		if closure.has(t) {
			return true
		}
	}
	return false
}

func (v *validator) focusNodes(shape *Shape) []graph.Term {
	nodes := newTermSet()
	for _, t := range shape.targets {
		switch t.kind {
		case "targetClass":
			for _, class := range v.subclassClosure(t.term).items {
				nodes.add(v.data.Subjects(rdfType, class)...)
			}
		case "targetNode":
			nodes.add(t.term)
		case "targetSubjectsOf":
			nodes.add(v.data.SubjectsWithPredicate(t.term)...)
		case "targetObjectsOf":
			for _, triple := range v.data.Match(nil, &t.term, nil) {
				nodes.add(triple.Object)
			}
		}
	}
	return nodes.items
}

func (v *validator) valueNodes(shape *Shape, focus graph.Term) []graph.Term {
	if shape.Path == nil {
		return []graph.Term{focus}
	}
	return shape.Path.Values(v.data, focus)
}

func (v *validator) validateShape(shape *Shape, focus graph.Term) []Result {
	if shape.Deactivated {
		return nil
	}
	values := v.valueNodes(shape, focus)
	path := ""
	if shape.Path != nil {
		path = shape.Path.String()
	}
	message, hasMessage := shape.message()

	var results []Result
	for _, c := range shape.constraints {
		for _, f := range c.check(v, focus, values) {
			result := Result{
				FocusNode:   focus,
				Path:        path,
				Value:       f.value,
				SourceShape: shape.Node,
				Component:   graph.SHNamespace + c.component,
				Severity:    shape.Severity,
				Message:     f.message,
			}
			if f.path != "" {
				result.Path = f.path
			}
			if hasMessage {
				result.Message = message
			}
			results = append(results, result)
		}
	}
	for _, prop := range shape.properties {
		for _, value := range values {
			results = append(results, v.validateShape(prop, value)...)
		}
	}
	return results
}

// conforms reports whether node produces no results for shape regardless of severity
func (v *validator) conforms(shape *Shape, node graph.Term) bool {
	key := shapeFocus{shape: shape.Node, focus: node}
	if v.active[key] {
		return true
	}
	v.active[key] = true
	defer delete(v.active, key)
	return len(v.validateShape(shape, node)) == 0
}
