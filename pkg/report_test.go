// Copyright 2025 Lincoln Institute of Land Policy
// SPDX-License-Identifier: Apache-2.0

package pkg

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleValidationReport() ValidationReport {
	return ValidationReport{
		{
			Dataset:  "https://example.org/ds",
			File:     "gages.ttl",
			Conforms: false,
			Units: []UnitValidation{
				{
					Resource: "https://example.org/ds",
					Kind:     UnitDataset,
					Conforms: true,
					Warnings: []ValidationMessage{{
						FocusNode:  "https://example.org/ds",
						Constraint: "sh:MinCountConstraintComponent",
						Severity:   SeverityWarning,
						Message:    "a dataset should have a license",
					}},
				},
				{
					Resource: "https://example.org/f1",
					Kind:     UnitFeature,
					Conforms: false,
					Errors: []ValidationMessage{{
						FocusNode:  "https://example.org/f1",
						Path:       "geo:hasGeometry",
						Constraint: "sh:MinCountConstraintComponent",
						Severity:   SeverityViolation,
						Message:    "a feature must have a geometry",
					}},
				},
			},
		},
	}
}

func TestValidationReportFailed(t *testing.T) {
	report := sampleValidationReport()
	require.True(t, report.Failed(false))
	require.Equal(t, []string{"gages.ttl"}, report.FailedDatasets(false))

	warningsOnly := sampleValidationReport()
	warningsOnly[0].Units = warningsOnly[0].Units[:1]
	assert.False(t, warningsOnly.Failed(false))
	assert.True(t, warningsOnly.Failed(true))
	assert.Len(t, warningsOnly[0].Warnings(), 1)
	assert.Empty(t, warningsOnly[0].Errors())
}

func TestValidationReportToJsonLd(t *testing.T) {
	data, err := sampleValidationReport().ToJsonLd()
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal([]byte(data), &decoded))
	assert.Equal(t, "schema:Report", decoded["@type"])
	assert.Contains(t, decoded, "@context")

	graph := decoded["@graph"].([]any)
	require.Len(t, graph, 1)
	dataset := graph[0].(map[string]any)
	assert.Equal(t, "schema:Dataset", dataset["@type"])
	assert.Equal(t, "https://example.org/ds", dataset["@id"])
	units := dataset["schema:hasPart"].([]any)
	assert.Equal(t, "sh:ValidationReport", units[0].(map[string]any)["@type"])
}

func TestValidationReportRender(t *testing.T) {
	var withoutWarnings bytes.Buffer
	sampleValidationReport().Render(&withoutWarnings, false)
	assert.Contains(t, withoutWarnings.String(), "a feature must have a geometry")
	assert.NotContains(t, withoutWarnings.String(), "license")

	var withWarnings bytes.Buffer
	sampleValidationReport().Render(&withWarnings, true)
	assert.Contains(t, withWarnings.String(), "license")
}

func TestValidationMessageString(t *testing.T) {
	msg := sampleValidationReport()[0].Units[1].Errors[0].String()
	assert.Contains(t, msg, "Severity: sh:Violation")
	assert.Contains(t, msg, "Result Path: geo:hasGeometry")
}

func TestUpdateReport(t *testing.T) {
	report := UpdateReport{
		SecondsToComplete: 1.5,
		Datasets: []DatasetUpdate{
			{Dataset: "https://example.org/b", Change: Changed, Triples: 10},
			{Dataset: "https://example.org/a", Change: Added, Triples: 5, MintedIdentifiers: 2},
			{Dataset: "https://example.org/c", Change: Removed},
		},
	}
	assert.Equal(t, 1, report.Count(Added))
	assert.Equal(t, 0, report.Count(Unchanged))

	data, err := report.ToJsonLd()
	require.NoError(t, err)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal([]byte(data), &decoded))
	assert.Equal(t, "schema:Report", decoded["@type"])
	graph := decoded["@graph"].([]any)
	require.Len(t, graph, 3)
	assert.Equal(t, "schema:UpdateAction", graph[0].(map[string]any)["@type"])
	assert.Empty(t, report.Datasets[0].Type, "serializing must not mutate the report")

	var out bytes.Buffer
	report.Render(&out)
	assert.Contains(t, out.String(), "+1 -1 ~1 =0")
}
