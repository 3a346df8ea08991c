// Copyright 2025 Lincoln Institute of Land Policy
// SPDX-License-Identifier: Apache-2.0

package reconcile

import (
	"fmt"
	"sort"

	"github.com/internetofwater/ldsync/internal/dataset"
	"github.com/internetofwater/ldsync/internal/graph"
	"github.com/internetofwater/ldsync/pkg"
	log "github.com/sirupsen/logrus"
)

var (
	memberPred   = graph.NewIRI(graph.RDFSMember)
	isPartOfPred = graph.NewIRI(graph.DCTermsIsPartOf)
)

// a parent and child class between which membership is derived
type level struct {
	parent string
	child  string
}

var levels = []level{
	{parent: graph.DCATDataset, child: graph.GeoFeatureCollection},
	{parent: graph.GeoFeatureCollection, child: graph.GeoFeature},
}

type link struct {
	parent graph.Term
	child  graph.Term
}

func typedIRIs(g *graph.Graph, class string) map[graph.Term]bool {
	out := make(map[graph.Term]bool)
	for _, t := range g.InstancesOf(class) {
		if t.IsIRI() {
			out[t] = true
		}
	}
	return out
}

// deriveMembership collects rdfs:member and dcterms:isPartOf declarations in
// either direction and returns one link per child. Declarations pointing at
// resources outside the dataset are dropped
func deriveMembership(ds dataset.Dataset) ([]link, error) {
	var links []link
	used := make(map[graph.Triple]bool)

	for _, lvl := range levels {
		parents := typedIRIs(ds.Graph, lvl.parent)
		children := typedIRIs(ds.Graph, lvl.child)

		declared := make(map[graph.Term]map[graph.Term]bool)
		declare := func(parent, child graph.Term, t graph.Triple) {
			if !parents[parent] || !children[child] {
				return
			}
			used[t] = true
			if declared[child] == nil {
				declared[child] = make(map[graph.Term]bool)
			}
			declared[child][parent] = true
		}
		for _, t := range ds.Graph.Match(nil, &memberPred, nil) {
			declare(t.Subject, t.Object, t)
		}
		for _, t := range ds.Graph.Match(nil, &isPartOfPred, nil) {
			declare(t.Object, t.Subject, t)
		}

		for child, parentSet := range declared {
			var names []string
			for parent := range parentSet {
				names = append(names, parent.Value)
			}
			sort.Strings(names)
			if len(names) > 1 {
				return nil, &pkg.ReconciliationConflict{
					Dataset:  ds.IRI,
					Resource: child.Value,
					Reason:   fmt.Sprintf("declared as part of more than one parent: %v", names),
				}
			}
			links = append(links, link{parent: graph.NewIRI(names[0]), child: child})
		}
	}

	for _, pred := range []graph.Term{memberPred, isPartOfPred} {
		for _, t := range ds.Graph.Match(nil, &pred, nil) {
			if !used[t] {
				log.Warnf("Ignoring stale membership declaration in %s: %s", ds.File, t)
			}
		}
	}

	sort.Slice(links, func(i, j int) bool {
		if links[i].parent != links[j].parent {
			return links[i].parent.Value < links[j].parent.Value
		}
		return links[i].child.Value < links[j].child.Value
	})
	return links, nil
}
