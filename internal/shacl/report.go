// Copyright 2025 Lincoln Institute of Land Policy
// SPDX-License-Identifier: Apache-2.0

package shacl

import (
	"fmt"
	"strings"

	"github.com/internetofwater/ldsync/internal/graph"
)

// A single validation result
type Result struct {
	FocusNode graph.Term
	// rendered result path; empty for node shapes
	Path string
	// zero when the constraint does not refer to a single value
	Value       graph.Term
	SourceShape graph.Term
	// full IRI of the constraint component
	Component string
	Severity  graph.Term
	Message   string
}

// IsViolation reports whether the result has sh:Violation severity
func (r Result) IsViolation() bool {
	return r.Severity == violation
}

type Report struct {
	Conforms bool
	Results  []Result
}

// Text renders the report the way pyshacl prints it
func (r *Report) Text() string {
	var b strings.Builder
	b.WriteString("Validation Report\n")
	if r.Conforms {
		b.WriteString("Conforms: True\n")
		return b.String()
	}
	b.WriteString("Conforms: False\n")
	fmt.Fprintf(&b, "Results (%d):\n", len(r.Results))
	for _, result := range r.Results {
		local := strings.TrimPrefix(result.Component, graph.SHNamespace)
		fmt.Fprintf(&b, "Constraint Violation in %s (%s):\n", local, result.Component)
		fmt.Fprintf(&b, "\tSeverity: %s\n", result.Severity.Compact())
		fmt.Fprintf(&b, "\tSource Shape: %s\n", result.SourceShape.Compact())
		fmt.Fprintf(&b, "\tFocus Node: %s\n", result.FocusNode.Compact())
		if !result.Value.IsZero() {
			fmt.Fprintf(&b, "\tValue Node: %s\n", result.Value.Compact())
		}
		if result.Path != "" {
			fmt.Fprintf(&b, "\tResult Path: %s\n", result.Path)
		}
		fmt.Fprintf(&b, "\tMessage: %s\n", result.Message)
	}
	return b.String()
}
