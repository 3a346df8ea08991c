// Copyright 2025 Lincoln Institute of Land Policy
// SPDX-License-Identifier: Apache-2.0

package validate

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/internetofwater/ldsync/internal/graph"
	"github.com/internetofwater/ldsync/internal/opentelemetry"
	"github.com/internetofwater/ldsync/pkg"
	log "github.com/sirupsen/logrus"
)

func isRemote(location string) bool {
	return strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://")
}

// LoadProfile reads the SHACL shapes graph from a local path or an http(s) url
func LoadProfile(ctx context.Context, location string, client *http.Client) (*graph.Graph, error) {
	ctx, span := opentelemetry.SubSpanFromCtxWithName(ctx, "load_profile")
	defer span.End()

	if location == "" {
		return nil, &pkg.ConfigurationError{Setting: "PROFILE", Err: fmt.Errorf("no profile configured")}
	}
	if !isRemote(location) {
		return loadLocalProfile(location)
	}

	log.Infof("Fetching profile from %s", location)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, location, nil)
	if err != nil {
		return nil, &pkg.ConfigurationError{Setting: "PROFILE", Err: err}
	}
	req.Header.Set("Accept", "text/turtle, application/n-triples;q=0.9")
	resp, err := client.Do(req)
	if err != nil {
		return nil, &pkg.ConnectionError{Endpoint: location, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &pkg.ConnectionError{Endpoint: location, Err: fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))}
	}

	var shapes *graph.Graph
	if strings.Contains(resp.Header.Get("Content-Type"), "n-triples") {
		shapes, err = graph.ParseNTriples(resp.Body)
	} else {
		shapes, err = graph.ParseTurtle(resp.Body)
	}
	if err != nil {
		return nil, &pkg.ParseError{File: location, Err: err}
	}
	return shapes, nil
}

func loadLocalProfile(path string) (*graph.Graph, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &pkg.ConfigurationError{Setting: "PROFILE", Err: err}
	}
	defer func() { _ = f.Close() }()

	var shapes *graph.Graph
	if strings.EqualFold(filepath.Ext(path), ".nt") {
		shapes, err = graph.ParseNTriples(f)
	} else {
		shapes, err = graph.ParseTurtle(f)
	}
	if err != nil {
		return nil, &pkg.ParseError{File: path, Err: err}
	}
	log.Debugf("Loaded profile %s with %d triples", path, shapes.Len())
	return shapes, nil
}
