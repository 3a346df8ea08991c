// Copyright 2025 Lincoln Institute of Land Policy
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"io"
	"time"

	"github.com/internetofwater/ldsync/internal/config"
	"github.com/internetofwater/ldsync/internal/dataset"
	"github.com/internetofwater/ldsync/internal/publish"
	"github.com/internetofwater/ldsync/internal/reconcile"
	"github.com/internetofwater/ldsync/internal/triplestore"
	"github.com/internetofwater/ldsync/pkg"
	log "github.com/sirupsen/logrus"
)

// connect returns the configured triplestore after checking it answers queries
func connect(ctx context.Context, cfg config.TriplestoreConfig) (triplestore.Triplestore, error) {
	store, err := triplestore.NewTriplestore(cfg)
	if err != nil {
		return nil, err
	}
	if err := triplestore.Ping(ctx, store); err != nil {
		return nil, err
	}
	return store, nil
}

// Update reconciles the local datasets with the triplestore and publishes
// the result. With dryRun the plan is only reported
func Update(ctx context.Context, cfg config.SyncConfig, out io.Writer, dryRun bool) error {
	start := time.Now()
	store, err := connect(ctx, cfg.Triplestore)
	if err != nil {
		return err
	}
	return update(ctx, store, cfg, out, dryRun, start)
}

func update(ctx context.Context, store triplestore.Triplestore, cfg config.SyncConfig, out io.Writer, dryRun bool, start time.Time) error {
	datasets, ontologies, err := loadLocal(ctx, cfg)
	if err != nil {
		return err
	}

	remote := reconcile.NewRemoteState()
	if cfg.Publish.DropOnStart {
		log.Info("Drop on start is set; planning against an empty triplestore")
	} else {
		remote, err = reconcile.FetchRemoteState(ctx, store)
		if err != nil {
			return err
		}
	}

	// the store is only emptied once the plan is known to be valid
	plan, err := reconcile.ComputePlan(ctx, remote, datasets)
	if err != nil {
		return err
	}
	if !dryRun {
		publisher := publish.NewPublisher(store)
		if cfg.Publish.DropOnStart {
			if err := publisher.Reset(ctx, ontologies); err != nil {
				return err
			}
		}
		if err := publisher.Apply(ctx, plan); err != nil {
			return err
		}
	}

	report := pkg.UpdateReport{
		DryRun:            dryRun,
		DroppedOnStart:    cfg.Publish.DropOnStart && !dryRun,
		SecondsToComplete: time.Since(start).Seconds(),
		Datasets:          plan.Updates(),
	}
	report.Render(out)
	log.Infof("added: %d, removed: %d, changed: %d, unchanged: %d",
		report.Count(pkg.Added), report.Count(pkg.Removed), report.Count(pkg.Changed), report.Count(pkg.Unchanged))

	kind := "update"
	if dryRun {
		kind = "diff"
	}
	return uploadReport(ctx, cfg.Reports, kind, report)
}

// Drop removes every graph and reloads the background ontologies
func Drop(ctx context.Context, cfg config.SyncConfig) error {
	store, err := connect(ctx, cfg.Triplestore)
	if err != nil {
		return err
	}
	loader, err := dataset.NewLoader(cfg.Data.Workers, cfg.Context)
	if err != nil {
		return err
	}
	ontologies, err := loader.LoadOntologies(ctx, cfg.Data.OntologyDir)
	if err != nil {
		return err
	}
	return publish.NewPublisher(store).Reset(ctx, ontologies)
}

// Ping checks that the triplestore answers queries
func Ping(ctx context.Context, cfg config.SyncConfig) error {
	store, err := connect(ctx, cfg.Triplestore)
	if err != nil {
		return err
	}
	log.Infof("Triplestore at %s is reachable", store.BaseURL())
	return nil
}
