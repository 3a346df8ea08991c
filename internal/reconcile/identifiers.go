// Copyright 2025 Lincoln Institute of Land Policy
// SPDX-License-Identifier: Apache-2.0

package reconcile

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/internetofwater/ldsync/internal/graph"
)

var identifierPred = graph.NewIRI(graph.DCTermsIdentifier)

// registry records which resource holds each identifier
type registry struct {
	owners map[string]string
}

func newRegistry() *registry {
	return &registry{owners: make(map[string]string)}
}

// claim assigns the identifier to resource and returns the previous
// owner when a different resource already holds it
func (r *registry) claim(id, resource string) (string, bool) {
	if owner, ok := r.owners[id]; ok && owner != resource {
		return owner, false
	}
	r.owners[id] = resource
	return "", true
}

func (r *registry) available(id, resource string) bool {
	owner, ok := r.owners[id]
	return !ok || owner == resource
}

// identifiers returns resource IRI to identifier pairs for every
// dcterms:identifier in g whose subject is an IRI
func identifiers(g *graph.Graph) map[string]string {
	out := make(map[string]string)
	for _, t := range g.Match(nil, &identifierPred, nil) {
		if t.Subject.IsIRI() && t.Object.IsLiteral() {
			out[t.Subject.Value] = t.Object.Value
		}
	}
	return out
}

// fallbackIdentifier is used when neither a previous identifier nor the
// local name of the resource can be used
func fallbackIdentifier(resource string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(resource)).String()
}

// mintIdentifier picks the identifier for a resource without one: the
// identifier it was published with, else the local name of its IRI,
// else a UUIDv5 of the IRI
func mintIdentifier(reg *registry, resource graph.Term, previous string) (string, error) {
	candidates := []string{}
	if previous != "" {
		candidates = append(candidates, previous)
	}
	if local := resource.LocalName(); local != "" {
		candidates = append(candidates, local)
	}
	candidates = append(candidates, fallbackIdentifier(resource.Value))
	for _, id := range candidates {
		if _, ok := reg.claim(id, resource.Value); ok {
			return id, nil
		}
	}
	return "", fmt.Errorf("no unique identifier could be generated")
}
