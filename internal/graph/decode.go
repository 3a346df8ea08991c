// Copyright 2025 Lincoln Institute of Land Policy
// SPDX-License-Identifier: Apache-2.0

package graph

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync/atomic"

	"github.com/knakk/rdf"
	"github.com/piprate/json-gold/ld"
)

// Named graph name used for quads in the default graph
const DefaultGraph = ""

// number of documents decoded so far; used to scope blank node labels
var documents atomic.Uint64

// A prefix applied to every blank node label of one decoded document.
// Decoders number anonymous nodes per document; the prefix keeps the
// blank nodes of different documents apart when graphs are merged
type blankScope string

func newBlankScope() blankScope {
	return blankScope(fmt.Sprintf("d%d", documents.Add(1)))
}

func (s blankScope) label(blank string) string {
	if s == "" {
		return blank
	}
	return string(s) + "_" + blank
}

// fromKnakk converts a decoded term into the local term model
func fromKnakk(term rdf.Term, scope blankScope) (Term, error) {
	switch v := term.(type) {
	case rdf.IRI:
		if err := checkIRI(v.String()); err != nil {
			return Term{}, err
		}
		return NewIRI(v.String()), nil
	case rdf.Blank:
		return NewBlank(scope.label(v.String())), nil
	case rdf.Literal:
		if lang := v.Lang(); lang != "" {
			return NewLangLiteral(v.String(), lang), nil
		}
		if err := checkIRI(v.DataType.String()); err != nil {
			return Term{}, err
		}
		return NewTypedLiteral(v.String(), v.DataType.String()), nil
	default:
		return Term{}, fmt.Errorf("unsupported rdf term %v", term)
	}
}

func fromKnakkTriple(t rdf.Triple, scope blankScope) (Triple, error) {
	s, err := fromKnakk(t.Subj, scope)
	if err != nil {
		return Triple{}, err
	}
	p, err := fromKnakk(t.Pred, scope)
	if err != nil {
		return Triple{}, err
	}
	o, err := fromKnakk(t.Obj, scope)
	if err != nil {
		return Triple{}, err
	}
	return NewTriple(s, p, o), nil
}

func decodeTriples(r io.Reader, format rdf.Format) (*Graph, error) {
	return decodeTriplesInScope(r, format, newBlankScope())
}

func decodeTriplesInScope(r io.Reader, format rdf.Format, scope blankScope) (*Graph, error) {
	dec := rdf.NewTripleDecoder(r, format)
	g := New()
	for {
		triple, err := dec.Decode()
		if errors.Is(err, io.EOF) {
			return g, nil
		}
		if err != nil {
			return nil, err
		}
		converted, err := fromKnakkTriple(triple, scope)
		if err != nil {
			return nil, err
		}
		g.Add(converted)
	}
}

// ParseTurtle decodes a Turtle document
func ParseTurtle(r io.Reader) (*Graph, error) {
	g, err := decodeTriples(r, rdf.Turtle)
	if err != nil {
		return nil, fmt.Errorf("invalid turtle: %w", err)
	}
	return g, nil
}

// ParseNTriples decodes an N-Triples document
func ParseNTriples(r io.Reader) (*Graph, error) {
	g, err := decodeTriples(r, rdf.NTriples)
	if err != nil {
		return nil, fmt.Errorf("invalid n-triples: %w", err)
	}
	return g, nil
}

// ParseNQuads decodes an N-Quads document into one graph per graph name.
// Quads in the default graph are keyed by DefaultGraph. Blank nodes are
// shared between the graphs of the document
func ParseNQuads(r io.Reader) (map[string]*Graph, error) {
	dec := rdf.NewQuadDecoder(r, rdf.NQuads)
	scope := newBlankScope()
	graphs := make(map[string]*Graph)
	for {
		quad, err := dec.Decode()
		if errors.Is(err, io.EOF) {
			return graphs, nil
		}
		if err != nil {
			return nil, fmt.Errorf("invalid n-quads: %w", err)
		}
		triple, err := fromKnakkTriple(quad.Triple, scope)
		if err != nil {
			return nil, fmt.Errorf("invalid n-quads: %w", err)
		}
		name := DefaultGraph
		if quad.Ctx != nil {
			name = quad.Ctx.String()
		}
		g, ok := graphs[name]
		if !ok {
			g = New()
			graphs[name] = g
		}
		g.Add(triple)
	}
}

// ParseJSONLD expands a JSON-LD document to RDF and merges every
// graph it contains into a single graph
func ParseJSONLD(r io.Reader, processor *ld.JsonLdProcessor, options *ld.JsonLdOptions) (*Graph, error) {
	var document interface{}
	if err := json.NewDecoder(r).Decode(&document); err != nil {
		return nil, fmt.Errorf("invalid json-ld: %w", err)
	}
	if processor == nil {
		processor = ld.NewJsonLdProcessor()
	}
	if options == nil {
		options = ld.NewJsonLdOptions("")
		options.ProcessingMode = ld.JsonLd_1_1
	}
	opts := *options
	opts.Format = "application/nquads"

	nquads, err := processor.ToRDF(document, &opts)
	if err != nil {
		return nil, fmt.Errorf("invalid json-ld: %w", err)
	}
	serialized, ok := nquads.(string)
	if !ok {
		return nil, fmt.Errorf("json-ld processor returned %T instead of n-quads", nquads)
	}

	graphs, err := ParseNQuads(strings.NewReader(serialized))
	if err != nil {
		return nil, err
	}
	merged := New()
	for _, g := range graphs {
		merged.Merge(g)
	}
	return merged, nil
}
