// Copyright 2025 Lincoln Institute of Land Policy
// SPDX-License-Identifier: Apache-2.0

package pkg

import (
	"fmt"
	"strings"
)

// A missing or invalid setting detected at startup
type ConfigurationError struct {
	Setting string
	Err     error
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid configuration for %s: %v", e.Setting, e.Err)
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

// The triplestore or a remote profile could not be reached
type ConnectionError struct {
	Endpoint string
	Err      error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("could not connect to %s: %v", e.Endpoint, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// A local file or a remote response could not be parsed as RDF
type ParseError struct {
	File string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("failed to parse %s: %v", e.File, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// One or more datasets do not conform to the profile
type ValidationFailure struct {
	FailedDatasets []string
}

func (e *ValidationFailure) Error() string {
	return fmt.Sprintf("%d dataset(s) failed validation: %s", len(e.FailedDatasets), strings.Join(e.FailedDatasets, ", "))
}

// The local state cannot be published without violating a
// membership or identifier invariant
type ReconciliationConflict struct {
	Dataset  string
	Resource string
	Reason   string
}

func (e *ReconciliationConflict) Error() string {
	if e.Dataset == "" {
		return fmt.Sprintf("conflict on %s: %s", e.Resource, e.Reason)
	}
	return fmt.Sprintf("conflict in dataset %s on %s: %s", e.Dataset, e.Resource, e.Reason)
}

// The triplestore rejected an update
type PublishError struct {
	Graph      string
	StatusCode int
	Body       string
	Err        error
}

func (e *PublishError) Error() string {
	msg := fmt.Sprintf("failed to publish graph %s", e.Graph)
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(": status %d", e.StatusCode)
	}
	if e.Body != "" {
		msg += ": " + e.Body
	}
	if e.Err != nil {
		msg += fmt.Sprintf(": %v", e.Err)
	}
	return msg
}

func (e *PublishError) Unwrap() error { return e.Err }
