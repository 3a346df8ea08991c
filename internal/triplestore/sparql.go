// Copyright 2025 Lincoln Institute of Land Policy
// SPDX-License-Identifier: Apache-2.0

package triplestore

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/internetofwater/ldsync/internal/opentelemetry"
	"github.com/internetofwater/ldsync/pkg"
	log "github.com/sirupsen/logrus"
)

// sparqlEndpoint implements the SPARQL 1.1 protocol shared by every store;
// the store specific clients only differ in where queries and updates are sent
type sparqlEndpoint struct {
	httpClient *http.Client
	baseURL    string
	queryURL   string
	updateURL  string
	username   string
	password   string
}

func (s *sparqlEndpoint) BaseURL() string {
	return s.baseURL
}

// the maximum number of response bytes included in an error
const maxErrorBody = 2048

func readErrorBody(body io.Reader) string {
	data, _ := io.ReadAll(io.LimitReader(body, maxErrorBody))
	return strings.TrimSpace(string(data))
}

func (s *sparqlEndpoint) do(kind string, req *http.Request) (*http.Response, error) {
	if s.username != "" {
		req.SetBasicAuth(s.username, s.password)
	}
	start := time.Now()
	resp, err := s.httpClient.Do(req)
	opentelemetry.RecordSparqlDuration(kind, time.Since(start).Seconds())
	if err != nil {
		return nil, &pkg.ConnectionError{Endpoint: req.URL.String(), Err: err}
	}
	return resp, nil
}

// Query sends a query as a url encoded form as described by the SPARQL protocol
func (s *sparqlEndpoint) Query(ctx context.Context, query string, accept string) ([]byte, error) {
	ctx, span := opentelemetry.SubSpanFromCtxWithName(ctx, "sparql_query")
	defer span.End()

	log.Debugf("Running query against %s: %s", s.queryURL, query)
	form := url.Values{"query": {query}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.queryURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", formEncoded)
	req.Header.Set("Accept", accept)

	resp, err := s.do("query", req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("query against %s failed with status %d: %s", s.queryURL, resp.StatusCode, readErrorBody(resp.Body))
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &pkg.ConnectionError{Endpoint: s.queryURL, Err: err}
	}
	log.Tracef("Query response: %s", body)
	return body, nil
}

// updateGraph sends a SPARQL update; graphName is only used to label errors
func (s *sparqlEndpoint) updateGraph(ctx context.Context, update string, graphName string) error {
	ctx, span := opentelemetry.SubSpanForGraph(ctx, "sparql_update", graphName)
	defer span.End()

	log.Tracef("Running update against %s: %s", s.updateURL, update)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.updateURL, bytes.NewBufferString(update))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", sparqlUpdate)

	resp, err := s.do("update", req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &pkg.PublishError{
			Graph:      graphName,
			StatusCode: resp.StatusCode,
			Body:       readErrorBody(resp.Body),
		}
	}
	return nil
}

func (s *sparqlEndpoint) Update(ctx context.Context, update string) error {
	return s.updateGraph(ctx, update, "")
}

// DropGraph removes a graph. It is not silent so a missing graph
// surfaces as an error from the store
func (s *sparqlEndpoint) DropGraph(ctx context.Context, graphURI string) error {
	log.Debugf("Dropping graph %s", graphURI)
	return s.updateGraph(ctx, fmt.Sprintf("DROP GRAPH <%s>", graphURI), graphURI)
}

// InsertGraphs replaces each graph with its new contents in one request
func (s *sparqlEndpoint) InsertGraphs(ctx context.Context, graphs ...NamedGraph) error {
	if len(graphs) == 0 {
		return nil
	}
	names := make([]string, 0, len(graphs))
	for _, g := range graphs {
		names = append(names, g.GraphURI)
	}
	log.Debugf("Upserting graphs %s", strings.Join(names, ", "))
	return s.updateGraph(ctx, CreateUpsertQuery(graphs...), strings.Join(names, ", "))
}

func (s *sparqlEndpoint) DropAll(ctx context.Context) error {
	log.Warnf("Dropping all graphs in %s", s.baseURL)
	return s.updateGraph(ctx, "DROP ALL", "")
}
