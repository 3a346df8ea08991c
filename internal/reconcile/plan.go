// Copyright 2025 Lincoln Institute of Land Policy
// SPDX-License-Identifier: Apache-2.0

package reconcile

import (
	"context"
	"fmt"
	"sort"

	"github.com/internetofwater/ldsync/internal/dataset"
	"github.com/internetofwater/ldsync/internal/graph"
	"github.com/internetofwater/ldsync/internal/opentelemetry"
	"github.com/internetofwater/ldsync/pkg"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
)

// The reconciliation outcome for a single dataset
type Change struct {
	Kind pkg.ChangeKind
	IRI  string
	// empty for removed datasets
	File string
	// the local content; nil for removed datasets
	Graph          *graph.Graph
	SystemGraphIRI string
	// the derived administrative triples; nil unless added or changed
	SystemGraph *graph.Graph
	// a system graph published under another name by an earlier run
	PreviousSystemGraphIRI string
	MintedIdentifiers      int
	MembershipLinks        int
}

// Update summarizes the change for the run report
func (c Change) Update() pkg.DatasetUpdate {
	update := pkg.DatasetUpdate{
		Dataset:           c.IRI,
		File:              c.File,
		Change:            c.Kind,
		SystemGraph:       c.SystemGraphIRI,
		MintedIdentifiers: c.MintedIdentifiers,
		MembershipLinks:   c.MembershipLinks,
	}
	if c.Graph != nil {
		update.Triples = c.Graph.Len()
	}
	return update
}

// The set of changes needed to make the triplestore match the local datasets
type Plan struct {
	// sorted by dataset IRI
	Changes []Change
}

// Of returns the changes of the given kind
func (p *Plan) Of(kind pkg.ChangeKind) []Change {
	var out []Change
	for _, c := range p.Changes {
		if c.Kind == kind {
			out = append(out, c)
		}
	}
	return out
}

// HasChanges reports whether publishing the plan would modify the triplestore
func (p *Plan) HasChanges() bool {
	for _, c := range p.Changes {
		if c.Kind != pkg.Unchanged {
			return true
		}
	}
	return false
}

// Updates returns the report rows of every change
func (p *Plan) Updates() []pkg.DatasetUpdate {
	out := make([]pkg.DatasetUpdate, 0, len(p.Changes))
	for _, c := range p.Changes {
		out = append(out, c.Update())
	}
	return out
}

// logContentChange reports how many triples a republished dataset gains and loses
func logContentChange(iri string, published, local *graph.Graph) {
	if !log.IsLevelEnabled(log.DebugLevel) {
		return
	}
	before, err := graph.Canonicalize(published)
	if err != nil {
		log.Debugf("%s changed: %v", iri, err)
		return
	}
	after, err := graph.Canonicalize(local)
	if err != nil {
		log.Debugf("%s changed: %v", iri, err)
		return
	}
	log.Debugf("%s changed: %d triples added, %d removed",
		iri, len(graph.Difference(after, before)), len(graph.Difference(before, after)))
}

// diff classifies every local and remote dataset as added, removed,
// changed or unchanged. Content is compared up to blank node labels
func diff(remote *RemoteState, local []dataset.Dataset) []Change {
	var changes []Change
	localIRIs := make(map[string]bool, len(local))
	for _, ds := range local {
		localIRIs[ds.IRI] = true
		change := Change{IRI: ds.IRI, File: ds.File, Graph: ds.Graph, SystemGraphIRI: SystemGraphIRI(ds.IRI)}
		published, ok := remote.Datasets[ds.IRI]
		switch {
		case !ok:
			change.Kind = pkg.Added
		case published.SystemGraphIRI != "" && graph.Isomorphic(published.Graph, ds.Graph):
			change.Kind = pkg.Unchanged
			change.SystemGraphIRI = published.SystemGraphIRI
		default:
			// a dataset missing from the index is republished so its system graph is rebuilt
			change.Kind = pkg.Changed
			if published.SystemGraphIRI != "" && published.SystemGraphIRI != change.SystemGraphIRI {
				change.PreviousSystemGraphIRI = published.SystemGraphIRI
			}
			logContentChange(ds.IRI, published.Graph, ds.Graph)
		}
		changes = append(changes, change)
	}
	for _, iri := range remote.DatasetIRIs() {
		if localIRIs[iri] {
			continue
		}
		published := remote.Datasets[iri]
		systemGraph := published.SystemGraphIRI
		if systemGraph == "" {
			systemGraph = SystemGraphIRI(iri)
		}
		changes = append(changes, Change{Kind: pkg.Removed, IRI: iri, SystemGraphIRI: systemGraph})
	}
	sort.Slice(changes, func(i, j int) bool { return changes[i].IRI < changes[j].IRI })
	return changes
}

func identifierConflict(datasetIRI, resource, id, owner string) error {
	return &pkg.ReconciliationConflict{
		Dataset:  datasetIRI,
		Resource: resource,
		Reason:   fmt.Sprintf("identifier %q is already used by %s", id, owner),
	}
}

// ComputePlan reconciles the local datasets with the published state. Added
// and changed datasets get a system graph holding minted identifiers and
// the derived membership links. Any conflict aborts the whole plan
func ComputePlan(ctx context.Context, remote *RemoteState, local []dataset.Dataset) (*Plan, error) {
	_, span := opentelemetry.SubSpanFromCtxWithName(ctx, "compute_plan")
	defer span.End()

	plan := &Plan{Changes: diff(remote, local)}
	localByIRI := make(map[string]dataset.Dataset, len(local))
	for _, ds := range local {
		localByIRI[ds.IRI] = ds
	}

	// identifiers of datasets that stay as published keep their owners
	reg := newRegistry()
	for _, c := range plan.Of(pkg.Unchanged) {
		published := remote.Datasets[c.IRI]
		for _, g := range []*graph.Graph{published.Graph, published.SystemGraph} {
			for resource, id := range identifiers(g) {
				if owner, ok := reg.claim(id, resource); !ok {
					return nil, identifierConflict(c.IRI, resource, id, owner)
				}
			}
		}
	}

	// identifiers assigned by earlier runs, used to keep minted identifiers stable
	previous := make(map[string]string)
	for _, iri := range remote.DatasetIRIs() {
		for resource, id := range identifiers(remote.Datasets[iri].SystemGraph) {
			previous[resource] = id
		}
	}

	pending := make([]int, 0, len(plan.Changes))
	for i, c := range plan.Changes {
		if c.Kind == pkg.Added || c.Kind == pkg.Changed {
			pending = append(pending, i)
		}
	}

	// provided identifiers are claimed before any are minted
	for _, i := range pending {
		ds := localByIRI[plan.Changes[i].IRI]
		for _, r := range ds.Resources() {
			for _, id := range ds.Graph.Objects(r.Term, identifierPred) {
				if owner, ok := reg.claim(id.Value, r.Term.Value); !ok {
					return nil, identifierConflict(ds.IRI, r.Term.Value, id.Value, owner)
				}
			}
		}
	}

	// resources without an identifier, grouped by dataset
	needsID := make(map[int][]graph.Term)
	for _, i := range pending {
		ds := localByIRI[plan.Changes[i].IRI]
		for _, r := range ds.Resources() {
			if !r.Term.IsIRI() {
				continue
			}
			if _, ok := ds.Graph.Object(r.Term, identifierPred); ok {
				continue
			}
			needsID[i] = append(needsID[i], r.Term)
		}
	}
	// previously published identifiers take precedence over new local names
	for _, i := range pending {
		for _, resource := range needsID[i] {
			if id, ok := previous[resource.Value]; ok && reg.available(id, resource.Value) {
				reg.claim(id, resource.Value)
			}
		}
	}

	for _, i := range pending {
		change := &plan.Changes[i]
		ds := localByIRI[change.IRI]
		system := graph.New()

		for _, resource := range needsID[i] {
			prev := previous[resource.Value]
			if prev != "" && !reg.available(prev, resource.Value) {
				prev = ""
			}
			id, err := mintIdentifier(reg, resource, prev)
			if err != nil {
				return nil, &pkg.ReconciliationConflict{Dataset: ds.IRI, Resource: resource.Value, Reason: err.Error()}
			}
			log.Debugf("Using identifier %q for %s", id, resource.Value)
			system.Add(graph.NewTriple(resource, identifierPred, graph.NewLiteral(id)))
			change.MintedIdentifiers++
		}

		links, err := deriveMembership(ds)
		if err != nil {
			return nil, err
		}
		for _, l := range links {
			system.Add(graph.NewTriple(l.parent, memberPred, l.child))
			system.Add(graph.NewTriple(l.child, isPartOfPred, l.parent))
		}
		change.MembershipLinks = len(links)
		change.SystemGraph = system
	}

	span.SetAttributes(
		attribute.Int("added", len(plan.Of(pkg.Added))),
		attribute.Int("removed", len(plan.Of(pkg.Removed))),
		attribute.Int("changed", len(plan.Of(pkg.Changed))),
		attribute.Int("unchanged", len(plan.Of(pkg.Unchanged))),
	)
	return plan, nil
}
