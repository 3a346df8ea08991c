// Copyright 2025 Lincoln Institute of Land Policy
// SPDX-License-Identifier: Apache-2.0

package graph

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/knakk/rdf"
	"github.com/piprate/json-gold/ld"
)

const nquadsFormat = "application/n-quads"

func hasBlankNodes(g *Graph) bool {
	for _, t := range g.Triples() {
		if t.Subject.IsBlank() || t.Object.IsBlank() {
			return true
		}
	}
	return false
}

// canonicalNQuads labels the blank nodes of the graph with URDNA2015
// and returns the sorted canonical serialization
func canonicalNQuads(g *Graph) (string, error) {
	opts := ld.NewJsonLdOptions("")
	opts.Algorithm = ld.AlgorithmURDNA2015
	opts.InputFormat = nquadsFormat
	opts.Format = nquadsFormat

	normalized, err := ld.NewJsonLdProcessor().Normalize(g.NTriples(), opts)
	if err != nil {
		return "", fmt.Errorf("canonicalizing graph: %w", err)
	}
	serialized, ok := normalized.(string)
	if !ok {
		return "", fmt.Errorf("json-ld processor returned %T instead of n-quads", normalized)
	}
	return serialized, nil
}

// Canonicalize returns a copy of the graph whose blank nodes are labelled
// _:c14n0, _:c14n1... from their position in the graph rather than
// from the source document
func Canonicalize(g *Graph) (*Graph, error) {
	if !hasBlankNodes(g) {
		return g.Clone(), nil
	}
	serialized, err := canonicalNQuads(g)
	if err != nil {
		return nil, err
	}
	// canonical labels are kept as is so two canonical graphs can be compared
	return decodeTriplesInScope(strings.NewReader(serialized), rdf.NTriples, "")
}

// CanonicalHash returns the sha256 of the canonical N-Quads serialization
func CanonicalHash(g *Graph) (string, error) {
	serialized, err := canonicalNQuads(g)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256([]byte(serialized))
	return hex.EncodeToString(sum[:]), nil
}

// Isomorphic reports whether two graphs hold the same triples
// up to blank node labels. Graphs that cannot be canonicalized
// are never isomorphic
func Isomorphic(a, b *Graph) bool {
	if a.Len() != b.Len() {
		return false
	}
	if !hasBlankNodes(a) && !hasBlankNodes(b) {
		return a.NTriples() == b.NTriples()
	}
	hashA, err := CanonicalHash(a)
	if err != nil {
		return false
	}
	hashB, err := CanonicalHash(b)
	if err != nil {
		return false
	}
	return hashA == hashB
}
