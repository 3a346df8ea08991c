// Copyright 2025 Lincoln Institute of Land Policy
// SPDX-License-Identifier: Apache-2.0

package common

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/internetofwater/ldsync/internal/config"
	"github.com/piprate/json-gold/ld"
)

// newContextClient returns the client used to fetch remote JSON-LD contexts.
// Unlike triplestore requests these are retried since a context
// host being briefly unavailable should not fail the run
func newContextClient() *http.Client {
	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = 3
	retryClient.RetryWaitMin = 1 * time.Second
	retryClient.RetryWaitMax = 10 * time.Second
	// logging is done at the application level
	retryClient.Logger = nil
	return retryClient.StandardClient()
}

// NewJsonldProcessor builds the JSON-LD processor and sets the options object
// used when expanding JSON-LD dataset files to RDF
func NewJsonldProcessor(cfg config.ContextConfig) (*ld.JsonLdProcessor, *ld.JsonLdOptions, error) {
	processor := ld.NewJsonLdProcessor()
	options := ld.NewJsonLdOptions("")
	options.ProcessingMode = ld.JsonLd_1_1
	options.Format = "application/nquads"

	fallbackLoader := ld.NewDefaultDocumentLoader(newContextClient())
	if !cfg.Cache {
		options.DocumentLoader = fallbackLoader
		return processor, options, nil
	}

	// contexts that are mapped to a local file are never fetched;
	// everything else is fetched once and kept for the rest of the run
	prefixToFilePath := make(map[string]string)
	for _, contextMap := range cfg.ContextMaps() {
		absPath, err := filepath.Abs(contextMap.File)
		if err != nil {
			return nil, nil, err
		}
		info, err := os.Stat(absPath)
		if err != nil || info.IsDir() {
			return nil, nil, fmt.Errorf("context file at %s does not exist or could not be accessed", absPath)
		}
		prefixToFilePath[contextMap.Prefix] = absPath
	}

	cachingLoader := ld.NewCachingDocumentLoader(fallbackLoader)
	if err := cachingLoader.PreloadWithMapping(prefixToFilePath); err != nil {
		return nil, nil, err
	}
	options.DocumentLoader = cachingLoader
	return processor, options, nil
}
