// Copyright 2025 Lincoln Institute of Land Policy
// SPDX-License-Identifier: Apache-2.0

package triplestore

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/internetofwater/ldsync/internal/common"
	"github.com/internetofwater/ldsync/internal/config"
	"github.com/internetofwater/ldsync/internal/graph"
	"github.com/internetofwater/ldsync/pkg"
)

// Content types used in SPARQL protocol requests
const (
	SparqlResultsJSON = "application/sparql-results+json"
	NTriples          = "application/n-triples"
	sparqlUpdate      = "application/sparql-update"
	formEncoded       = "application/x-www-form-urlencoded"
)

// assert that both clients implement the interface
var _ Triplestore = &FusekiClient{}
var _ Triplestore = &GraphDbClient{}

// The set of operations that must be implemented by a triplestore to be used by ldsync
type Triplestore interface {
	// Run a SPARQL query and return the raw response body in the requested format
	Query(ctx context.Context, query string, accept string) ([]byte, error)

	// Run a SPARQL update
	Update(ctx context.Context, update string) error

	// Remove a graph; removing a graph that does not exist is an error
	DropGraph(ctx context.Context, graphURI string) error

	// Replace the contents of each graph in a single update request
	InsertGraphs(ctx context.Context, graphs ...NamedGraph) error

	// Remove every graph in the store
	DropAll(ctx context.Context) error

	// The url identifying the store in logs and errors
	BaseURL() string
}

// A graph together with the name it is stored under
type NamedGraph struct {
	GraphURI string
	Graph    *graph.Graph
}

// NewTriplestore returns the client for the configured store type
func NewTriplestore(cfg config.TriplestoreConfig) (Triplestore, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	httpClient := common.NewSparqlClient(cfg.TimeoutDuration())
	switch strings.ToLower(cfg.DbType) {
	case config.Fuseki:
		return NewFusekiClient(cfg, httpClient), nil
	case config.GraphDB:
		return NewGraphDbClient(cfg, httpClient)
	default:
		return nil, &pkg.ConfigurationError{Setting: "DB_TYPE", Err: fmt.Errorf("unknown triplestore type %q", cfg.DbType)}
	}
}

// newSparqlEndpoint builds the shared protocol client from the config
func newSparqlEndpoint(cfg config.TriplestoreConfig, httpClient *http.Client, queryURL, updateURL string) sparqlEndpoint {
	return sparqlEndpoint{
		httpClient: httpClient,
		baseURL:    strings.TrimSuffix(cfg.BaseURI, "/"),
		queryURL:   queryURL,
		updateURL:  updateURL,
		username:   cfg.Username,
		password:   cfg.Password,
	}
}
