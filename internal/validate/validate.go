// Copyright 2025 Lincoln Institute of Land Policy
// SPDX-License-Identifier: Apache-2.0

package validate

import (
	"context"

	"github.com/internetofwater/ldsync/internal/config"
	"github.com/internetofwater/ldsync/internal/dataset"
	"github.com/internetofwater/ldsync/internal/graph"
	"github.com/internetofwater/ldsync/internal/opentelemetry"
	"github.com/internetofwater/ldsync/internal/shacl"
	"github.com/internetofwater/ldsync/pkg"
	log "github.com/sirupsen/logrus"
)

// Validator checks datasets against a compiled SHACL profile
type Validator struct {
	shapes     *shacl.Shapes
	background *graph.Graph
	cfg        config.ValidationConfig
}

// NewValidator compiles the profile; background holds the ontologies
// used to resolve class hierarchies and may be nil
func NewValidator(profile, background *graph.Graph, cfg config.ValidationConfig) (*Validator, error) {
	shapes, err := shacl.Compile(profile)
	if err != nil {
		return nil, &pkg.ParseError{File: cfg.Profile, Err: err}
	}
	if shapes.Len() == 0 {
		log.Warnf("Profile %s does not contain any shapes", cfg.Profile)
	}
	for _, skipped := range shapes.Unsupported {
		log.Infof("Skipping unsupported constraint %s", skipped)
	}
	if background == nil {
		background = graph.New()
	}
	return &Validator{shapes: shapes, background: background, cfg: cfg}, nil
}

func renderNode(t graph.Term) string {
	return t.Compact()
}

// inDataset reports whether the node is mentioned by the dataset graph itself
// rather than only by the background ontologies
func inDataset(g *graph.Graph, node graph.Term) bool {
	return g.IsSubject(node) || len(g.Match(nil, nil, &node)) > 0
}

func toMessage(r shacl.Result) pkg.ValidationMessage {
	msg := pkg.ValidationMessage{
		FocusNode:  renderNode(r.FocusNode),
		Path:       r.Path,
		Constraint: graph.NewIRI(r.Component).Compact(),
		Shape:      renderNode(r.SourceShape),
		Severity:   pkg.Severity(r.Severity.Compact()),
		Message:    r.Message,
	}
	if !r.Value.IsZero() {
		msg.Value = renderNode(r.Value)
	}
	return msg
}

// ValidateDataset evaluates the profile and the geometry check over one
// dataset and attributes every result to a dataset, collection or feature
func (v *Validator) ValidateDataset(ctx context.Context, ds dataset.Dataset) pkg.DatasetValidation {
	_, span := opentelemetry.SubSpanForGraph(ctx, "validate_dataset", ds.IRI)
	defer span.End()

	data := graph.Union(ds.Graph, v.background)
	report := v.shapes.Validate(data)
	if log.IsLevelEnabled(log.TraceLevel) {
		log.Tracef("shacl report for %s:\n%s", ds.Name(), report.Text())
	}

	resources := ds.Resources()
	index := make(map[string]int, len(resources))
	result := pkg.DatasetValidation{Dataset: ds.IRI, File: ds.File, Units: make([]pkg.UnitValidation, len(resources))}
	for i, r := range resources {
		index[renderNode(r.Term)] = i
		result.Units[i] = pkg.UnitValidation{Resource: r.Term.Value, Kind: r.Kind}
	}

	var messages []pkg.ValidationMessage
	for _, r := range report.Results {
		if !inDataset(ds.Graph, r.FocusNode) {
			continue
		}
		messages = append(messages, toMessage(r))
	}
	messages = append(messages, checkGeometries(ds.Graph)...)

	for _, m := range messages {
		// results on nodes that are not a unit, such as geometries, belong to the dataset
		i, ok := index[m.FocusNode]
		if !ok {
			i = 0
		}
		if m.Severity == pkg.SeverityViolation {
			result.Units[i].Errors = append(result.Units[i].Errors, m)
		} else {
			result.Units[i].Warnings = append(result.Units[i].Warnings, m)
		}
	}

	for i := range result.Units {
		u := &result.Units[i]
		u.Conforms = len(u.Errors) == 0 && (!v.cfg.WarningsInvalid || len(u.Warnings) == 0)
	}
	result.Conforms = !result.Failed(v.cfg.WarningsInvalid)
	return result
}

// ValidateAll validates every dataset in order
func (v *Validator) ValidateAll(ctx context.Context, datasets []dataset.Dataset) pkg.ValidationReport {
	ctx, span := opentelemetry.SubSpanFromCtxWithName(ctx, "validate")
	defer span.End()

	report := make(pkg.ValidationReport, 0, len(datasets))
	for _, ds := range datasets {
		result := v.ValidateDataset(ctx, ds)
		errors, warnings := len(result.Errors()), len(result.Warnings())
		if result.Conforms {
			log.Infof("%s conforms (%d warnings)", ds.File, warnings)
		} else {
			log.Errorf("%s does not conform: %d errors, %d warnings", ds.File, errors, warnings)
			opentelemetry.RecordValidationFailure(ds.File)
		}
		report = append(report, result)
	}
	return report
}

// Check returns a ValidationFailure naming every failing dataset
func Check(report pkg.ValidationReport, warningsInvalid bool) error {
	if !report.Failed(warningsInvalid) {
		return nil
	}
	return &pkg.ValidationFailure{FailedDatasets: report.FailedDatasets(warningsInvalid)}
}
