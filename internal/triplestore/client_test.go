// Copyright 2025 Lincoln Institute of Land Policy
// SPDX-License-Identifier: Apache-2.0

package triplestore

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"

	"github.com/internetofwater/ldsync/internal/common"
	"github.com/internetofwater/ldsync/internal/config"
	"github.com/internetofwater/ldsync/internal/graph"
	"github.com/internetofwater/ldsync/pkg"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// a request as seen by the fake sparql server
type recordedRequest struct {
	Method      string
	Path        string
	ContentType string
	Accept      string
	Username    string
	Password    string
	Body        string
}

type fakeSparqlServer struct {
	*httptest.Server
	mu       sync.Mutex
	requests []recordedRequest
}

// newFakeSparqlServer answers every request with the given status and body
func newFakeSparqlServer(t *testing.T, status int, body string) *fakeSparqlServer {
	fake := &fakeSparqlServer{}
	fake.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, err := io.ReadAll(r.Body)
		assert.NoError(t, err)
		user, pass, _ := r.BasicAuth()
		fake.mu.Lock()
		fake.requests = append(fake.requests, recordedRequest{
			Method:      r.Method,
			Path:        r.URL.Path,
			ContentType: r.Header.Get("Content-Type"),
			Accept:      r.Header.Get("Accept"),
			Username:    user,
			Password:    pass,
			Body:        string(data),
		})
		fake.mu.Unlock()
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(fake.Close)
	return fake
}

func (f *fakeSparqlServer) last() recordedRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[len(f.requests)-1]
}

func TestFusekiEndpoints(t *testing.T) {
	server := newFakeSparqlServer(t, 200, `{"boolean": true}`)
	cfg := config.TriplestoreConfig{DbType: config.Fuseki, BaseURI: server.URL + "/ds/", Timeout: 5}
	client := NewFusekiClient(cfg, common.NewSparqlClient(cfg.TimeoutDuration()))
	require.Equal(t, server.URL+"/ds", client.BaseURL())

	exists, err := GraphExists(context.Background(), client, "http://example.org/g")
	require.NoError(t, err)
	require.True(t, exists)

	req := server.last()
	require.Equal(t, http.MethodPost, req.Method)
	require.Equal(t, "/ds/query", req.Path)
	require.Equal(t, formEncoded, req.ContentType)
	require.Equal(t, SparqlResultsJSON, req.Accept)
	form, err := url.ParseQuery(req.Body)
	require.NoError(t, err)
	require.Equal(t, "ASK WHERE { GRAPH <http://example.org/g> { ?s ?p ?o } }", form.Get("query"))

	require.NoError(t, client.DropGraph(context.Background(), "http://example.org/g"))
	req = server.last()
	require.Equal(t, "/ds/update", req.Path)
	require.Equal(t, sparqlUpdate, req.ContentType)
	require.Equal(t, "DROP GRAPH <http://example.org/g>", req.Body)
	// no credentials configured so none are sent
	require.Empty(t, req.Username)
}

func TestGraphDbEndpoints(t *testing.T) {
	server := newFakeSparqlServer(t, 204, "")
	cfg := config.TriplestoreConfig{
		DbType:   config.GraphDB,
		BaseURI:  server.URL + "/repositories/ldsync",
		Username: "admin",
		Password: "secret",
		Timeout:  5,
	}
	client, err := NewGraphDbClient(cfg, common.NewSparqlClient(cfg.TimeoutDuration()))
	require.NoError(t, err)
	require.Equal(t, server.URL+"/rest", client.BaseRESTUrl)
	require.Equal(t, "ldsync", client.Repository)

	require.NoError(t, client.DropAll(context.Background()))
	req := server.last()
	require.Equal(t, "/repositories/ldsync/statements", req.Path)
	require.Equal(t, "DROP ALL", req.Body)
	require.Equal(t, "admin", req.Username)
	require.Equal(t, "secret", req.Password)
}

func TestGraphDbRequiresRepositoryUrl(t *testing.T) {
	cfg := config.TriplestoreConfig{DbType: config.GraphDB, BaseURI: "http://localhost:7200", Timeout: 5}
	_, err := NewGraphDbClient(cfg, http.DefaultClient)
	var cfgErr *pkg.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	require.Equal(t, "DB_BASE_URI", cfgErr.Setting)
}

func TestNewTriplestoreSelectsImplementation(t *testing.T) {
	fuseki, err := NewTriplestore(config.TriplestoreConfig{DbType: "fuseki", BaseURI: "http://localhost:3030/ds", Timeout: 5})
	require.NoError(t, err)
	require.IsType(t, &FusekiClient{}, fuseki)

	graphdb, err := NewTriplestore(config.TriplestoreConfig{DbType: "GraphDB", BaseURI: "http://localhost:7200/repositories/x", Timeout: 5})
	require.NoError(t, err)
	require.IsType(t, &GraphDbClient{}, graphdb)

	_, err = NewTriplestore(config.TriplestoreConfig{DbType: "virtuoso", BaseURI: "http://localhost:8890", Timeout: 5})
	var cfgErr *pkg.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)

	_, err = NewTriplestore(config.TriplestoreConfig{DbType: "fuseki", Timeout: 5})
	require.ErrorAs(t, err, &cfgErr)
}

func TestRejectedUpdateIsPublishError(t *testing.T) {
	server := newFakeSparqlServer(t, 400, "MALFORMED QUERY: Lexical error")
	cfg := config.TriplestoreConfig{DbType: config.Fuseki, BaseURI: server.URL + "/ds", Timeout: 5}
	client := NewFusekiClient(cfg, common.NewSparqlClient(cfg.TimeoutDuration()))

	g := graph.NewFromTriples(graph.NewTriple(
		graph.NewIRI("http://example.org/a"), graph.NewIRI("http://example.org/p"), graph.NewLiteral("x"),
	))
	err := client.InsertGraphs(context.Background(), NamedGraph{GraphURI: "http://example.org/g", Graph: g})
	var publishErr *pkg.PublishError
	require.ErrorAs(t, err, &publishErr)
	require.Equal(t, 400, publishErr.StatusCode)
	require.Equal(t, "http://example.org/g", publishErr.Graph)
	require.Contains(t, publishErr.Error(), "MALFORMED QUERY")

	// a failing query is an error but not a publish error
	_, err = Ask(context.Background(), client, "ASK WHERE { }")
	require.ErrorContains(t, err, "status 400")
	require.False(t, errors.As(err, &publishErr))
}

func TestUnreachableStoreIsConnectionError(t *testing.T) {
	mock, _ := common.NewMockedClient(true, map[string]common.MockResponse{
		"http://fuseki.invalid/ds/query": {Timeout: true},
	})
	client := NewFusekiClient(config.TriplestoreConfig{BaseURI: "http://fuseki.invalid/ds"}, mock)

	err := Ping(context.Background(), client)
	var connErr *pkg.ConnectionError
	require.ErrorAs(t, err, &connErr)
	require.Contains(t, connErr.Endpoint, "fuseki.invalid")
	require.ErrorIs(t, err, context.DeadlineExceeded)

	// updates that are not mocked fail in strict mode
	err = client.Update(context.Background(), "CREATE GRAPH <system:>")
	require.ErrorAs(t, err, &connErr)
}

func TestCreateRepositoryIfNotExists(t *testing.T) {
	var mu sync.Mutex
	created := false
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/rest/repositories", r.URL.Path)
		file, header, err := r.FormFile("config")
		if !assert.NoError(t, err) {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		defer func() { _ = file.Close() }()
		assert.Equal(t, "ldsync_repository.ttl", header.Filename)

		mu.Lock()
		defer mu.Unlock()
		if created {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte("Repository ldsync already exists."))
			return
		}
		created = true
		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	cfg := config.TriplestoreConfig{DbType: config.GraphDB, BaseURI: server.URL + "/repositories/ldsync", Timeout: 5}
	client, err := NewGraphDbClient(cfg, common.NewSparqlClient(cfg.TimeoutDuration()))
	require.NoError(t, err)

	require.NoError(t, client.CreateRepositoryIfNotExists(context.Background(), "testdata/ldsync_repository.ttl"))
	// the second call hits the already exists branch
	require.NoError(t, client.CreateRepositoryIfNotExists(context.Background(), "testdata/ldsync_repository.ttl"))

	err = client.CreateRepositoryIfNotExists(context.Background(), "testdata/missing.ttl")
	require.ErrorContains(t, err, "failed to open repository config file")
}
