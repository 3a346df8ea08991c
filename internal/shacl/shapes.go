// Copyright 2025 Lincoln Institute of Land Policy
// SPDX-License-Identifier: Apache-2.0

package shacl

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/internetofwater/ldsync/internal/graph"
	log "github.com/sirupsen/logrus"
)

func sh(local string) graph.Term {
	return graph.NewIRI(graph.SHNamespace + local)
}

var (
	rdfType     = graph.NewIRI(graph.RDFType)
	violation   = sh("Violation")
	shapeTypes  = []graph.Term{sh("NodeShape"), sh("PropertyShape")}
	classTypes  = []graph.Term{graph.NewIRI(graph.RDFSClass), graph.NewIRI(graph.OWLClass)}
	targetPreds = []string{"targetClass", "targetNode", "targetSubjectsOf", "targetObjectsOf"}
)

// predicates on a shape that are understood but are not constraints
var nonValidating = map[string]bool{
	"path": true, "property": true, "severity": true, "message": true, "deactivated": true,
	"name": true, "description": true, "order": true, "group": true, "defaultValue": true,
	"flags": true, "ignoredProperties": true,
	"targetClass": true, "targetNode": true, "targetSubjectsOf": true, "targetObjectsOf": true,
}

type target struct {
	kind string
	term graph.Term
}

// A compiled node or property shape
type Shape struct {
	Node graph.Term
	// nil for node shapes
	Path        Path
	Severity    graph.Term
	Messages    []graph.Term
	Deactivated bool
	targets     []target
	constraints []constraint
	properties  []*Shape
}

func (s *Shape) IsPropertyShape() bool {
	return s.Path != nil
}

// message returns the sh:message to report, preferring english or untagged text
func (s *Shape) message() (string, bool) {
	if len(s.Messages) == 0 {
		return "", false
	}
	for _, m := range s.Messages {
		if m.Lang == "" || m.Lang == "en" || strings.HasPrefix(m.Lang, "en-") {
			return m.Value, true
		}
	}
	return s.Messages[0].Value, true
}

// Shapes is a compiled shapes graph ready to validate data graphs
type Shapes struct {
	graph  *graph.Graph
	shapes map[graph.Term]*Shape
	// shapes that declare targets, in a stable order
	roots []*Shape
	// "shape constraint" pairs skipped since they are not supported
	Unsupported []string
}

// Compile parses every shape in the shapes graph
func Compile(shapesGraph *graph.Graph) (*Shapes, error) {
	s := &Shapes{graph: shapesGraph, shapes: make(map[graph.Term]*Shape)}

	candidates := newTermSet()
	for _, shapeType := range shapeTypes {
		candidates.add(shapesGraph.Subjects(rdfType, shapeType)...)
	}
	for _, pred := range targetPreds {
		candidates.add(shapesGraph.SubjectsWithPredicate(sh(pred))...)
	}
	nodes := candidates.items
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].String() < nodes[j].String() })

	for _, node := range nodes {
		shape, err := s.shape(node)
		if err != nil {
			return nil, err
		}
		if len(shape.targets) > 0 {
			s.roots = append(s.roots, shape)
		}
	}
	return s, nil
}

// Len returns the number of compiled shapes, including nested ones
func (s *Shapes) Len() int {
	return len(s.shapes)
}

// shape compiles node on first use. The shape is cached before its
// constraints are parsed so recursive references terminate
func (s *Shapes) shape(node graph.Term) (*Shape, error) {
	if existing, ok := s.shapes[node]; ok {
		return existing, nil
	}
	g := s.graph
	shape := &Shape{Node: node, Severity: violation}
	s.shapes[node] = shape

	if pathNode, ok := g.Object(node, sh("path")); ok {
		path, err := parsePath(g, pathNode)
		if err != nil {
			return nil, fmt.Errorf("shape %s: %w", node.Compact(), err)
		}
		shape.Path = path
	}
	if severity, ok := g.Object(node, sh("severity")); ok {
		shape.Severity = severity
	}
	shape.Messages = g.Objects(node, sh("message"))
	if deactivated, ok := g.Object(node, sh("deactivated")); ok {
		shape.Deactivated = deactivated.Value == "true" || deactivated.Value == "1"
	}

	for _, pred := range targetPreds {
		for _, t := range g.Objects(node, sh(pred)) {
			shape.targets = append(shape.targets, target{kind: pred, term: t})
		}
	}
	if isShapeAndClass(g, node) {
		shape.targets = append(shape.targets, target{kind: "targetClass", term: node})
	}

	for _, propNode := range g.Objects(node, sh("property")) {
		prop, err := s.shape(propNode)
		if err != nil {
			return nil, err
		}
		if !prop.IsPropertyShape() {
			return nil, fmt.Errorf("shape %s: sh:property %s has no sh:path", node.Compact(), propNode.Compact())
		}
		shape.properties = append(shape.properties, prop)
	}

	if err := s.parseConstraints(shape); err != nil {
		return nil, fmt.Errorf("shape %s: %w", node.Compact(), err)
	}
	return shape, nil
}

func isShapeAndClass(g *graph.Graph, node graph.Term) bool {
	if !node.IsIRI() {
		return false
	}
	isShape, isClass := false, false
	for _, t := range shapeTypes {
		isShape = isShape || g.Has(graph.NewTriple(node, rdfType, t))
	}
	for _, t := range classTypes {
		isClass = isClass || g.Has(graph.NewTriple(node, rdfType, t))
	}
	return isShape && isClass
}

func intParam(value graph.Term, name string) (int, error) {
	n, err := strconv.Atoi(value.Value)
	if err != nil || !value.IsLiteral() {
		return 0, fmt.Errorf("sh:%s must be an integer but was %s", name, value)
	}
	return n, nil
}

func (s *Shapes) shapeList(head graph.Term) ([]*Shape, error) {
	members, err := s.graph.List(head)
	if err != nil {
		return nil, err
	}
	out := make([]*Shape, 0, len(members))
	for _, m := range members {
		shape, err := s.shape(m)
		if err != nil {
			return nil, err
		}
		out = append(out, shape)
	}
	return out, nil
}

// regexFlags translates sh:flags into Go regexp flags
func regexFlags(flags string) string {
	var out strings.Builder
	for _, f := range flags {
		switch f {
		case 'i', 'm', 's':
			out.WriteRune(f)
		default:
			log.Warnf("Ignoring unsupported regex flag %q", f)
		}
	}
	if out.Len() == 0 {
		return ""
	}
	return "(?" + out.String() + ")"
}

// parseConstraints turns the constraint parameters of a shape into checks
func (s *Shapes) parseConstraints(shape *Shape) error {
	g := s.graph
	node := shape.Node

	predicates := newTermSet()
	for _, t := range g.Match(&node, nil, nil) {
		predicates.add(t.Predicate)
	}
	sorted := predicates.items
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Value < sorted[j].Value })

	for _, pred := range sorted {
		name, isSH := strings.CutPrefix(pred.Value, graph.SHNamespace)
		if !isSH || nonValidating[name] {
			continue
		}
		values := g.Objects(node, pred)
		for _, value := range values {
			c, err := s.buildConstraint(shape, name, value)
			if err != nil {
				return err
			}
			if c == nil {
				s.Unsupported = append(s.Unsupported, node.Compact()+" sh:"+name)
				log.Warnf("Shape %s uses the unsupported constraint sh:%s; skipping it", node.Compact(), name)
				break
			}
			shape.constraints = append(shape.constraints, *c)
		}
	}
	return nil
}

func (s *Shapes) buildConstraint(shape *Shape, name string, value graph.Term) (*constraint, error) {
	g := s.graph
	node := shape.Node
	switch name {
	case "minCount":
		n, err := intParam(value, name)
		if err != nil {
			return nil, err
		}
		return minCount(n), nil
	case "maxCount":
		n, err := intParam(value, name)
		if err != nil {
			return nil, err
		}
		return maxCount(n), nil
	case "minLength":
		n, err := intParam(value, name)
		if err != nil {
			return nil, err
		}
		return minLength(n), nil
	case "maxLength":
		n, err := intParam(value, name)
		if err != nil {
			return nil, err
		}
		return maxLength(n), nil
	case "datatype":
		return datatype(value), nil
	case "class":
		return class(value), nil
	case "nodeKind":
		return nodeKind(value)
	case "pattern":
		flags := ""
		if f, ok := g.Object(node, sh("flags")); ok {
			flags = f.Value
		}
		re, err := regexp.Compile(regexFlags(flags) + value.Value)
		if err != nil {
			return nil, fmt.Errorf("invalid sh:pattern %q: %w", value.Value, err)
		}
		return pattern(re), nil
	case "in":
		members, err := g.List(value)
		if err != nil {
			return nil, err
		}
		return in(members), nil
	case "hasValue":
		return hasValue(value), nil
	case "languageIn":
		ranges, err := g.List(value)
		if err != nil {
			return nil, err
		}
		return languageIn(ranges), nil
	case "uniqueLang":
		if value.Value != "true" {
			return &constraint{component: "UniqueLangConstraintComponent", check: noop}, nil
		}
		return uniqueLang(), nil
	case "equals":
		return equals(value), nil
	case "disjoint":
		return disjoint(value), nil
	case "minInclusive", "maxInclusive", "minExclusive", "maxExclusive":
		return valueRange(name, value), nil
	case "closed":
		if value.Value != "true" {
			return &constraint{component: "ClosedConstraintComponent", check: noop}, nil
		}
		allowed := make(map[graph.Term]bool)
		for _, prop := range shape.properties {
			if p, ok := prop.Path.(predicatePath); ok {
				allowed[p.predicate] = true
			}
		}
		if head, ok := g.Object(node, sh("ignoredProperties")); ok {
			ignored, err := g.List(head)
			if err != nil {
				return nil, err
			}
			for _, p := range ignored {
				allowed[p] = true
			}
		}
		return closed(allowed), nil
	case "node":
		target, err := s.shape(value)
		if err != nil {
			return nil, err
		}
		return nodeConstraint(target), nil
	case "not":
		target, err := s.shape(value)
		if err != nil {
			return nil, err
		}
		return notConstraint(target), nil
	case "and", "or", "xone":
		members, err := s.shapeList(value)
		if err != nil {
			return nil, err
		}
		return logical(name, members), nil
	default:
		return nil, nil
	}
}
