// Copyright 2025 Lincoln Institute of Land Policy
// SPDX-License-Identifier: Apache-2.0

package pkg

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
)

// The severity of a SHACL result as its compact IRI
type Severity string

const (
	SeverityViolation Severity = "sh:Violation"
	SeverityWarning   Severity = "sh:Warning"
	SeverityInfo      Severity = "sh:Info"
)

// A single constraint violation or warning
type ValidationMessage struct {
	FocusNode  string   `json:"sh:focusNode"`
	Path       string   `json:"sh:resultPath,omitempty"`
	Value      string   `json:"sh:value,omitempty"`
	Constraint string   `json:"sh:sourceConstraintComponent"`
	Shape      string   `json:"sh:sourceShape,omitempty"`
	Severity   Severity `json:"sh:resultSeverity"`
	Message    string   `json:"sh:resultMessage"`
}

func (m ValidationMessage) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Constraint Violation in %s:\n", m.Constraint)
	fmt.Fprintf(&b, "\tSeverity: %s\n", m.Severity)
	if m.Shape != "" {
		fmt.Fprintf(&b, "\tSource Shape: %s\n", m.Shape)
	}
	fmt.Fprintf(&b, "\tFocus Node: %s\n", m.FocusNode)
	if m.Value != "" {
		fmt.Fprintf(&b, "\tValue Node: %s\n", m.Value)
	}
	if m.Path != "" {
		fmt.Fprintf(&b, "\tResult Path: %s\n", m.Path)
	}
	fmt.Fprintf(&b, "\tMessage: %s\n", m.Message)
	return b.String()
}

// The kind of resource a validation unit covers
type UnitKind string

const (
	UnitDataset           UnitKind = "Dataset"
	UnitFeatureCollection UnitKind = "FeatureCollection"
	UnitFeature           UnitKind = "Feature"
)

// The conformance of one dataset, collection or feature
type UnitValidation struct {
	Type     string              `json:"@type"`
	Resource string              `json:"@id"`
	Kind     UnitKind            `json:"schema:additionalType"`
	Conforms bool                `json:"sh:conforms"`
	Errors   []ValidationMessage `json:"errors,omitempty"`
	Warnings []ValidationMessage `json:"warnings,omitempty"`
}

// The conformance of every unit inside a single dataset file
type DatasetValidation struct {
	Type     string           `json:"@type"`
	Dataset  string           `json:"@id"`
	File     string           `json:"schema:name"`
	Conforms bool             `json:"sh:conforms"`
	Units    []UnitValidation `json:"schema:hasPart"`
}

// Errors returns every error level message across the units of the dataset
func (d DatasetValidation) Errors() []ValidationMessage {
	var out []ValidationMessage
	for _, u := range d.Units {
		out = append(out, u.Errors...)
	}
	return out
}

// Warnings returns every warning level message across the units of the dataset
func (d DatasetValidation) Warnings() []ValidationMessage {
	var out []ValidationMessage
	for _, u := range d.Units {
		out = append(out, u.Warnings...)
	}
	return out
}

// Failed reports whether the dataset should fail the gate
func (d DatasetValidation) Failed(warningsInvalid bool) bool {
	for _, u := range d.Units {
		if len(u.Errors) > 0 || (warningsInvalid && len(u.Warnings) > 0) {
			return true
		}
	}
	return false
}

// The validation result of a whole run
type ValidationReport []DatasetValidation

// Failed reports whether any dataset contains an error, or a
// warning when warnings are treated as failing
func (r ValidationReport) Failed(warningsInvalid bool) bool {
	for _, d := range r {
		if d.Failed(warningsInvalid) {
			return true
		}
	}
	return false
}

// FailedDatasets returns the file names of the failing datasets
func (r ValidationReport) FailedDatasets(warningsInvalid bool) []string {
	var out []string
	for _, d := range r {
		if d.Failed(warningsInvalid) {
			out = append(out, d.File)
		}
	}
	return out
}

func (r ValidationReport) GetJsonLdContext() map[string]any {
	return map[string]any{
		"schema": "https://schema.org/",
		"sh":     "http://www.w3.org/ns/shacl#",
		"errors": map[string]string{
			"@id": "sh:result",
		},
		"warnings": map[string]string{
			"@id": "sh:result",
		},
	}
}

// Serialize the validation report to JSON-LD
func (r ValidationReport) ToJsonLd() (string, error) {
	graph := make([]DatasetValidation, len(r))
	for i := range r {
		graph[i] = r[i]
		graph[i].Type = "schema:Dataset"
		units := make([]UnitValidation, len(r[i].Units))
		for j, u := range r[i].Units {
			u.Type = "sh:ValidationReport"
			units[j] = u
		}
		graph[i].Units = units
	}
	output := map[string]any{
		"@type":    "schema:Report",
		"@graph":   graph,
		"@context": r.GetJsonLdContext(),
	}
	data, err := json.Marshal(output)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func (r ValidationReport) ToJsonLdReader() (io.Reader, error) {
	data, err := r.ToJsonLd()
	if err != nil {
		return nil, err
	}
	return strings.NewReader(data), nil
}

// Render writes a table of the offending resources and the
// constraint they violate
func (r ValidationReport) Render(w io.Writer, showWarnings bool) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.AppendHeader(table.Row{"File", "Resource", "Severity", "Constraint", "Message"})
	for _, d := range r {
		for _, u := range d.Units {
			messages := u.Errors
			if showWarnings {
				messages = append(append([]ValidationMessage{}, u.Errors...), u.Warnings...)
			}
			for _, m := range messages {
				t.AppendRow(table.Row{d.File, u.Resource, m.Severity, m.Constraint, m.Message})
			}
		}
	}
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, AutoMerge: true},
		{Number: 2, AutoMerge: true},
	})
	style := table.StyleLight
	style.Options.DrawBorder = false
	t.SetStyle(style)
	t.Render()
}

// How a dataset differs between the local files and the triplestore
type ChangeKind string

const (
	Added     ChangeKind = "added"
	Removed   ChangeKind = "removed"
	Changed   ChangeKind = "changed"
	Unchanged ChangeKind = "unchanged"
)

// The outcome of reconciling and publishing one dataset
type DatasetUpdate struct {
	Type              string     `json:"@type"`
	Dataset           string     `json:"@id"`
	File              string     `json:"schema:name,omitempty"`
	Change            ChangeKind `json:"schema:actionStatus"`
	SystemGraph       string     `json:"systemGraph"`
	Triples           int        `json:"numberOfTriples"`
	MintedIdentifiers int        `json:"mintedIdentifiers"`
	MembershipLinks   int        `json:"membershipLinks"`
}

// The outcome of an update or diff run
type UpdateReport struct {
	DryRun            bool            `json:"dryRun"`
	DroppedOnStart    bool            `json:"droppedOnStart"`
	SecondsToComplete float64         `json:"schema:duration"`
	Datasets          []DatasetUpdate `json:"@graph"`
}

// Count returns how many datasets had the given change kind
func (r UpdateReport) Count(kind ChangeKind) int {
	n := 0
	for _, d := range r.Datasets {
		if d.Change == kind {
			n++
		}
	}
	return n
}

func (r UpdateReport) GetJsonLdContext() map[string]any {
	integer := func(local string) map[string]string {
		return map[string]string{
			"@id":   "https://internetofwater.org/ldsync#" + local,
			"@type": "http://www.w3.org/2001/XMLSchema#integer",
		}
	}
	return map[string]any{
		"schema":            "https://schema.org/",
		"numberOfTriples":   integer("numberOfTriples"),
		"mintedIdentifiers": integer("mintedIdentifiers"),
		"membershipLinks":   integer("membershipLinks"),
		"systemGraph": map[string]string{
			"@id":   "https://internetofwater.org/ldsync#systemGraph",
			"@type": "@id",
		},
		"dryRun": map[string]string{
			"@id":   "https://internetofwater.org/ldsync#dryRun",
			"@type": "http://www.w3.org/2001/XMLSchema#boolean",
		},
		"droppedOnStart": map[string]string{
			"@id":   "https://internetofwater.org/ldsync#droppedOnStart",
			"@type": "http://www.w3.org/2001/XMLSchema#boolean",
		},
	}
}

// Serialize the update report to JSON-LD
func (r UpdateReport) ToJsonLd() (string, error) {
	datasets := make([]DatasetUpdate, len(r.Datasets))
	for i, d := range r.Datasets {
		d.Type = "schema:UpdateAction"
		datasets[i] = d
	}
	r.Datasets = datasets
	data, err := json.Marshal(r)
	if err != nil {
		return "", err
	}
	// add the context and type next to the struct fields
	var output map[string]any
	if err := json.Unmarshal(data, &output); err != nil {
		return "", err
	}
	output["@type"] = "schema:Report"
	output["@context"] = r.GetJsonLdContext()
	data, err = json.Marshal(output)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func (r UpdateReport) ToJsonLdReader() (io.Reader, error) {
	data, err := r.ToJsonLd()
	if err != nil {
		return nil, err
	}
	return strings.NewReader(data), nil
}

// Render writes a table with one row per dataset
func (r UpdateReport) Render(w io.Writer) {
	datasets := append([]DatasetUpdate{}, r.Datasets...)
	sort.Slice(datasets, func(i, j int) bool { return datasets[i].Dataset < datasets[j].Dataset })

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.AppendHeader(table.Row{"Dataset", "File", "Change", "Triples", "Minted IDs", "Membership Links"})
	for _, d := range datasets {
		t.AppendRow(table.Row{d.Dataset, d.File, d.Change, d.Triples, d.MintedIdentifiers, d.MembershipLinks})
	}
	t.AppendFooter(table.Row{
		"", "",
		fmt.Sprintf("+%d -%d ~%d =%d", r.Count(Added), r.Count(Removed), r.Count(Changed), r.Count(Unchanged)),
	})
	style := table.StyleLight
	style.Options.DrawBorder = false
	t.SetStyle(style)
	t.Render()
}
