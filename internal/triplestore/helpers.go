// Copyright 2025 Lincoln Institute of Land Policy
// SPDX-License-Identifier: Apache-2.0

package triplestore

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/internetofwater/ldsync/internal/graph"
	"github.com/internetofwater/ldsync/pkg"
	"github.com/tidwall/gjson"
)

/*
CreateUpsertQuery builds a single update that replaces every given graph.
Blank node labels are prefixed per graph so two graphs never share a node.

Resulting queries will be in the form of:

	DROP SILENT GRAPH <a> ;
	DROP SILENT GRAPH <b> ;
	INSERT DATA {
		GRAPH <a> {
			...
		}
		GRAPH <b> {
			...
		}
	}
*/
func CreateUpsertQuery(graphs ...NamedGraph) string {
	var queryBuilder strings.Builder
	for _, g := range graphs {
		fmt.Fprintf(&queryBuilder, "DROP SILENT GRAPH <%s> ;\n", g.GraphURI)
	}
	queryBuilder.WriteString("INSERT DATA {\n")
	for i, g := range graphs {
		fmt.Fprintf(&queryBuilder, "  GRAPH <%s> {\n", g.GraphURI)
		if g.Graph != nil {
			for _, t := range g.Graph.Triples() {
				t = graph.NewTriple(scopeBlank(t.Subject, i), t.Predicate, scopeBlank(t.Object, i))
				fmt.Fprintf(&queryBuilder, "    %s\n", t.String())
			}
		}
		queryBuilder.WriteString("  }\n")
	}
	queryBuilder.WriteString("}")
	return queryBuilder.String()
}

func scopeBlank(term graph.Term, graphIndex int) graph.Term {
	if !term.IsBlank() {
		return term
	}
	return graph.NewBlank(fmt.Sprintf("g%d_%s", graphIndex, term.Value))
}

// createDataQuery builds an INSERT DATA or DELETE DATA update on a single graph
func createDataQuery(operation string, graphURI string, triples []graph.Triple) string {
	var queryBuilder strings.Builder
	fmt.Fprintf(&queryBuilder, "%s DATA {\n  GRAPH <%s> {\n", operation, graphURI)
	for _, t := range triples {
		fmt.Fprintf(&queryBuilder, "    %s\n", t.String())
	}
	queryBuilder.WriteString("  }\n}")
	return queryBuilder.String()
}

// CreateInsertDataQuery adds triples to a graph without touching its other contents
func CreateInsertDataQuery(graphURI string, triples ...graph.Triple) string {
	return createDataQuery("INSERT", graphURI, triples)
}

// CreateDeleteDataQuery removes triples from a graph without touching its other contents
func CreateDeleteDataQuery(graphURI string, triples ...graph.Triple) string {
	return createDataQuery("DELETE", graphURI, triples)
}

// Ask runs an ASK query and returns its boolean result
func Ask(ctx context.Context, store Triplestore, query string) (bool, error) {
	body, err := store.Query(ctx, query, SparqlResultsJSON)
	if err != nil {
		return false, err
	}
	result := gjson.GetBytes(body, "boolean")
	if !result.Exists() {
		return false, &pkg.ParseError{File: store.BaseURL(), Err: fmt.Errorf("ASK response has no boolean field: %s", body)}
	}
	return result.Bool(), nil
}

// A row of a SELECT result keyed by variable name
type Binding map[string]graph.Term

// termFromBinding converts one value of the SPARQL JSON results format
func termFromBinding(value gjson.Result) (graph.Term, error) {
	v := value.Get("value").String()
	switch value.Get("type").String() {
	case "uri":
		return graph.NewIRI(v), nil
	case "bnode":
		return graph.NewBlank(v), nil
	case "literal", "typed-literal":
		if lang := value.Get("xml:lang"); lang.Exists() {
			return graph.NewLangLiteral(v, lang.String()), nil
		}
		if datatype := value.Get("datatype"); datatype.Exists() {
			return graph.NewTypedLiteral(v, datatype.String()), nil
		}
		return graph.NewLiteral(v), nil
	default:
		return graph.Term{}, fmt.Errorf("unknown binding type %q", value.Get("type").String())
	}
}

// Select runs a SELECT query and returns the rows of the result
func Select(ctx context.Context, store Triplestore, query string) ([]Binding, error) {
	body, err := store.Query(ctx, query, SparqlResultsJSON)
	if err != nil {
		return nil, err
	}
	if !gjson.ValidBytes(body) {
		return nil, &pkg.ParseError{File: store.BaseURL(), Err: fmt.Errorf("SELECT response is not valid json")}
	}
	var rows []Binding
	var parseErr error
	// a result without rows may carry null bindings
	gjson.GetBytes(body, "results.bindings").ForEach(func(_, row gjson.Result) bool {
		if !row.IsObject() {
			return true
		}
		binding := make(Binding)
		row.ForEach(func(variable, value gjson.Result) bool {
			term, err := termFromBinding(value)
			if err != nil {
				parseErr = err
				return false
			}
			binding[variable.String()] = term
			return true
		})
		rows = append(rows, binding)
		return parseErr == nil
	})
	if parseErr != nil {
		return nil, &pkg.ParseError{File: store.BaseURL(), Err: parseErr}
	}
	return rows, nil
}

// Construct runs a CONSTRUCT query and decodes the N-Triples response
func Construct(ctx context.Context, store Triplestore, query string) (*graph.Graph, error) {
	body, err := store.Query(ctx, query, NTriples)
	if err != nil {
		return nil, err
	}
	g, err := graph.ParseNTriples(bytes.NewReader(body))
	if err != nil {
		return nil, &pkg.ParseError{File: store.BaseURL(), Err: err}
	}
	return g, nil
}

// GraphExists checks whether a graph has at least one triple
func GraphExists(ctx context.Context, store Triplestore, graphURI string) (bool, error) {
	if graphURI == "" {
		return false, fmt.Errorf("graph iri must not be empty")
	}
	return Ask(ctx, store, fmt.Sprintf("ASK WHERE { GRAPH <%s> { ?s ?p ?o } }", graphURI))
}

// NamedGraphs returns the sorted names of all non-empty graphs in the store
func NamedGraphs(ctx context.Context, store Triplestore) ([]string, error) {
	rows, err := Select(ctx, store, "SELECT DISTINCT ?g WHERE { GRAPH ?g { ?s ?p ?o } }")
	if err != nil {
		return nil, err
	}
	graphs := make([]string, 0, len(rows))
	for _, row := range rows {
		if g, ok := row["g"]; ok && g.IsIRI() {
			graphs = append(graphs, g.Value)
		}
	}
	sort.Strings(graphs)
	return graphs, nil
}

// FetchGraph returns the full contents of a single graph
func FetchGraph(ctx context.Context, store Triplestore, graphURI string) (*graph.Graph, error) {
	return Construct(ctx, store, fmt.Sprintf("CONSTRUCT { ?s ?p ?o } WHERE { GRAPH <%s> { ?s ?p ?o } }", graphURI))
}

// Ping checks that the store answers queries
func Ping(ctx context.Context, store Triplestore) error {
	_, err := Ask(ctx, store, "ASK WHERE { }")
	return err
}
