// Copyright 2025 Lincoln Institute of Land Policy
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"io"
	"time"

	"github.com/internetofwater/ldsync/internal/common"
	"github.com/internetofwater/ldsync/internal/config"
	"github.com/internetofwater/ldsync/internal/dataset"
	"github.com/internetofwater/ldsync/internal/graph"
	"github.com/internetofwater/ldsync/internal/s3"
	"github.com/internetofwater/ldsync/internal/validate"
	log "github.com/sirupsen/logrus"
)

// loadLocal reads the datasets and the background ontologies from disk
func loadLocal(ctx context.Context, cfg config.SyncConfig) ([]dataset.Dataset, *graph.Graph, error) {
	loader, err := dataset.NewLoader(cfg.Data.Workers, cfg.Context)
	if err != nil {
		return nil, nil, err
	}
	datasets, err := loader.LoadDirectory(ctx, cfg.Data.DataDir)
	if err != nil {
		return nil, nil, err
	}
	ontologies, err := loader.LoadOntologies(ctx, cfg.Data.OntologyDir)
	if err != nil {
		return nil, nil, err
	}
	return datasets, ontologies, nil
}

// uploadReport stores the report in s3 when a report bucket is configured
func uploadReport(ctx context.Context, cfg config.ReportConfig, kind string, report s3.JsonLdReport) error {
	if !cfg.Enabled() {
		return nil
	}
	client, err := s3.NewMinioClientWrapper(cfg)
	if err != nil {
		return err
	}
	if err := client.MakeDefaultBucket(ctx); err != nil {
		return err
	}
	_, err = client.UploadReport(ctx, kind, report, time.Now())
	return err
}

// Validate checks every dataset against the profile and fails when
// any dataset does not conform
func Validate(ctx context.Context, cfg config.SyncConfig, out io.Writer) error {
	datasets, ontologies, err := loadLocal(ctx, cfg)
	if err != nil {
		return err
	}
	profile, err := validate.LoadProfile(ctx, cfg.Validation.Profile, common.NewProfileClient(cfg.Triplestore.TimeoutDuration()))
	if err != nil {
		return err
	}
	validator, err := validate.NewValidator(profile, ontologies, cfg.Validation)
	if err != nil {
		return err
	}

	report := validator.ValidateAll(ctx, datasets)
	report.Render(out, cfg.Validation.ShowWarnings)
	if err := uploadReport(ctx, cfg.Reports, "validation", report); err != nil {
		return err
	}
	if err := validate.Check(report, cfg.Validation.WarningsInvalid); err != nil {
		return err
	}
	log.Infof("All %d datasets conform to the profile", len(datasets))
	return nil
}
