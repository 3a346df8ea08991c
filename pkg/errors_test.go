// Copyright 2025 Lincoln Institute of Land Policy
// SPDX-License-Identifier: Apache-2.0

package pkg

import (
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestErrorsUnwrapToCause(t *testing.T) {
	cause := io.ErrUnexpectedEOF

	var parseErr *ParseError
	wrapped := fmt.Errorf("loading: %w", &ParseError{File: "data/a.ttl", Err: cause})
	require.ErrorAs(t, wrapped, &parseErr)
	require.Equal(t, "data/a.ttl", parseErr.File)
	require.ErrorIs(t, wrapped, cause)

	var connErr *ConnectionError
	require.ErrorAs(t, &ConnectionError{Endpoint: "http://localhost:3030", Err: cause}, &connErr)
	require.ErrorIs(t, connErr, cause)

	var cfgErr *ConfigurationError
	require.ErrorAs(t, &ConfigurationError{Setting: "DB_TYPE", Err: errors.New("bad")}, &cfgErr)
	require.Contains(t, cfgErr.Error(), "DB_TYPE")
}

func TestPublishErrorMessage(t *testing.T) {
	err := &PublishError{Graph: "https://example.org/ds", StatusCode: 400, Body: "Parse error"}
	require.Contains(t, err.Error(), "https://example.org/ds")
	require.Contains(t, err.Error(), "400")
	require.Contains(t, err.Error(), "Parse error")
	require.NoError(t, errors.Unwrap(err))
}

func TestReconciliationConflictMessage(t *testing.T) {
	err := &ReconciliationConflict{Dataset: "https://example.org/ds", Resource: "https://example.org/f1", Reason: "declared in two collections"}
	require.Contains(t, err.Error(), "https://example.org/f1")
	require.Contains(t, err.Error(), "two collections")

	failure := &ValidationFailure{FailedDatasets: []string{"a.ttl", "b.ttl"}}
	require.Equal(t, "2 dataset(s) failed validation: a.ttl, b.ttl", failure.Error())
}
