// Copyright 2025 Lincoln Institute of Land Policy
// SPDX-License-Identifier: Apache-2.0

package triplestore

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/internetofwater/ldsync/internal/config"
	"github.com/internetofwater/ldsync/pkg"
	log "github.com/sirupsen/logrus"
)

// GraphDbClient talks to a single GraphDB repository,
// for instance http://localhost:7200/repositories/ldsync
type GraphDbClient struct {
	sparqlEndpoint
	// url to the rest api base endpoint; used for
	// repository management which is graphdb specific
	BaseRESTUrl string
	// name of the repository in the base url
	Repository string
}

func NewGraphDbClient(cfg config.TriplestoreConfig, httpClient *http.Client) (*GraphDbClient, error) {
	base := strings.TrimSuffix(cfg.BaseURI, "/")
	host, repository, found := strings.Cut(base, "/repositories/")
	if !found || repository == "" || strings.Contains(repository, "/") {
		return nil, &pkg.ConfigurationError{
			Setting: "DB_BASE_URI",
			Err:     fmt.Errorf("graphdb base uri %s must have the form http://host:port/repositories/<name>", cfg.BaseURI),
		}
	}
	return &GraphDbClient{
		sparqlEndpoint: newSparqlEndpoint(cfg, httpClient, base, base+"/statements"),
		BaseRESTUrl:    host + "/rest",
		Repository:     repository,
	}, nil
}

// CreateRepositoryIfNotExists creates the repository described by the
// given repository config file. An existing repository is left untouched
func (c *GraphDbClient) CreateRepositoryIfNotExists(ctx context.Context, ttlConfigPath string) error {
	file, err := os.Open(ttlConfigPath)
	if err != nil {
		return fmt.Errorf("failed to open repository config file: %w", err)
	}
	defer func() { _ = file.Close() }()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("config", filepath.Base(ttlConfigPath))
	if err != nil {
		return fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err = io.Copy(part, file); err != nil {
		return fmt.Errorf("failed to copy file content: %w", err)
	}
	if err = writer.Close(); err != nil {
		return fmt.Errorf("failed to close writer: %w", err)
	}

	url := c.BaseRESTUrl + "/repositories"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.do("rest", req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusCreated:
		log.Infof("Created repository %s", c.Repository)
		return nil
	case resp.StatusCode == http.StatusBadRequest:
		respBody := readErrorBody(resp.Body)
		if strings.Contains(respBody, "already exists") {
			log.Warn("Repository already exists so skipping creation")
			return nil
		}
		return fmt.Errorf("failed to create repository, status: %d, response: %s", resp.StatusCode, respBody)
	default:
		return fmt.Errorf("failed to create repository, status: %d, response: %s", resp.StatusCode, readErrorBody(resp.Body))
	}
}
