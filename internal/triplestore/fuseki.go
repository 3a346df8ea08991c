// Copyright 2025 Lincoln Institute of Land Policy
// SPDX-License-Identifier: Apache-2.0

package triplestore

import (
	"net/http"
	"strings"

	"github.com/internetofwater/ldsync/internal/config"
)

// FusekiClient talks to a single Apache Jena Fuseki dataset,
// for instance http://localhost:3030/ds
type FusekiClient struct {
	sparqlEndpoint
}

func NewFusekiClient(cfg config.TriplestoreConfig, httpClient *http.Client) *FusekiClient {
	base := strings.TrimSuffix(cfg.BaseURI, "/")
	return &FusekiClient{
		sparqlEndpoint: newSparqlEndpoint(cfg, httpClient, base+"/query", base+"/update"),
	}
}
