// Copyright 2025 Lincoln Institute of Land Policy
// SPDX-License-Identifier: Apache-2.0

package publish

import (
	"context"
	"fmt"

	"github.com/internetofwater/ldsync/internal/graph"
	"github.com/internetofwater/ldsync/internal/opentelemetry"
	"github.com/internetofwater/ldsync/internal/reconcile"
	"github.com/internetofwater/ldsync/internal/triplestore"
	"github.com/internetofwater/ldsync/pkg"
	log "github.com/sirupsen/logrus"
)

// Publisher applies reconciliation plans to a triplestore. Requests are
// sent one after another and the first error aborts the run
type Publisher struct {
	store triplestore.Triplestore
}

func NewPublisher(store triplestore.Triplestore) *Publisher {
	return &Publisher{store: store}
}

// Reset drops every graph, recreates the system index and background
// graphs and loads the ontologies into the background graph
func (p *Publisher) Reset(ctx context.Context, ontologies *graph.Graph) error {
	ctx, span := opentelemetry.SubSpanFromCtxWithName(ctx, "reset")
	defer span.End()

	log.Warnf("Dropping every graph in %s", p.store.BaseURL())
	if err := p.store.DropAll(ctx); err != nil {
		return err
	}
	for _, name := range []string{reconcile.SystemIndexGraph, reconcile.BackgroundGraph} {
		if err := p.store.Update(ctx, fmt.Sprintf("CREATE GRAPH <%s>", name)); err != nil {
			return err
		}
	}
	if ontologies == nil || ontologies.Len() == 0 {
		log.Info("No background ontologies to load")
		return nil
	}
	log.Infof("Loading %d ontology triples into <%s>", ontologies.Len(), reconcile.BackgroundGraph)
	return p.store.Update(ctx, triplestore.CreateInsertDataQuery(reconcile.BackgroundGraph, ontologies.Triples()...))
}

// remove drops the dataset graph and its system graph and deletes its index entry
func (p *Publisher) remove(ctx context.Context, change reconcile.Change) error {
	log.Infof("Removing %s", change.IRI)
	if err := p.store.Update(ctx, triplestore.CreateDeleteDataQuery(
		reconcile.SystemIndexGraph, reconcile.IndexEntry(change.IRI, change.SystemGraphIRI),
	)); err != nil {
		return err
	}
	if err := p.store.Update(ctx, fmt.Sprintf("DROP SILENT GRAPH <%s>", change.SystemGraphIRI)); err != nil {
		return err
	}
	return p.store.DropGraph(ctx, change.IRI)
}

// upsert replaces the dataset graph and its system graph in one request
// and then records the system graph in the index
func (p *Publisher) upsert(ctx context.Context, change reconcile.Change) error {
	log.Infof("Publishing %s (%s) with %d triples", change.IRI, change.Kind, change.Graph.Len())
	if change.PreviousSystemGraphIRI != "" {
		if err := p.store.Update(ctx, triplestore.CreateDeleteDataQuery(
			reconcile.SystemIndexGraph, reconcile.IndexEntry(change.IRI, change.PreviousSystemGraphIRI),
		)); err != nil {
			return err
		}
		if err := p.store.Update(ctx, fmt.Sprintf("DROP SILENT GRAPH <%s>", change.PreviousSystemGraphIRI)); err != nil {
			return err
		}
	}
	system := change.SystemGraph
	if system == nil {
		system = graph.New()
	}
	if err := p.store.InsertGraphs(ctx,
		triplestore.NamedGraph{GraphURI: change.IRI, Graph: change.Graph},
		triplestore.NamedGraph{GraphURI: change.SystemGraphIRI, Graph: system},
	); err != nil {
		return err
	}
	return p.store.Update(ctx, triplestore.CreateInsertDataQuery(
		reconcile.SystemIndexGraph, reconcile.IndexEntry(change.IRI, change.SystemGraphIRI),
	))
}

// Apply publishes every added or changed dataset and removes every
// removed one. Unchanged datasets are not touched
func (p *Publisher) Apply(ctx context.Context, plan *reconcile.Plan) error {
	ctx, span := opentelemetry.SubSpanFromCtxWithName(ctx, "publish")
	defer span.End()

	for _, change := range plan.Changes {
		var err error
		switch change.Kind {
		case pkg.Removed:
			err = p.remove(ctx, change)
		case pkg.Added, pkg.Changed:
			err = p.upsert(ctx, change)
		default:
			log.Debugf("%s is unchanged", change.IRI)
		}
		if err != nil {
			return fmt.Errorf("publishing %s: %w", change.IRI, err)
		}
		opentelemetry.RecordDatasetChange(string(change.Kind))
	}
	return nil
}
