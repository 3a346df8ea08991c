// Copyright 2025 Lincoln Institute of Land Policy
// SPDX-License-Identifier: Apache-2.0

package reconcile

import (
	"context"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/internetofwater/ldsync/internal/graph"
	"github.com/internetofwater/ldsync/internal/opentelemetry"
	"github.com/internetofwater/ldsync/internal/triplestore"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
)

const (
	// The graph holding one rdfs:seeAlso link from every dataset to its system graph
	SystemIndexGraph = "system:"
	// The graph holding the background ontologies
	BackgroundGraph = "background:"
)

var seeAlso = graph.NewIRI(graph.RDFSSeeAlso)

// SystemGraphIRI returns the deterministic name of the system graph of a dataset
func SystemGraphIRI(datasetIRI string) string {
	return SystemIndexGraph + uuid.NewSHA1(uuid.NameSpaceURL, []byte(datasetIRI)).String()
}

// IndexEntry returns the triple linking a dataset to its system graph in the index graph
func IndexEntry(datasetIRI, systemGraph string) graph.Triple {
	return graph.NewTriple(graph.NewIRI(datasetIRI), seeAlso, graph.NewIRI(systemGraph))
}

// isDatasetGraph reports whether a named graph in the store holds dataset content
func isDatasetGraph(name string) bool {
	return !strings.HasPrefix(name, "system") && name != BackgroundGraph
}

// A dataset as it is currently published
type RemoteDataset struct {
	IRI   string
	Graph *graph.Graph
	// empty when the index has no entry for the dataset
	SystemGraphIRI string
	// the published system graph; empty when there is none
	SystemGraph *graph.Graph
}

// The published state of the triplestore
type RemoteState struct {
	// keyed by dataset IRI
	Datasets map[string]RemoteDataset
}

// NewRemoteState returns an empty state, as seen on a freshly dropped store
func NewRemoteState() *RemoteState {
	return &RemoteState{Datasets: make(map[string]RemoteDataset)}
}

// DatasetIRIs returns the published dataset IRIs in sorted order
func (r *RemoteState) DatasetIRIs() []string {
	names := make([]string, 0, len(r.Datasets))
	for name := range r.Datasets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// FetchRemoteState reads every dataset graph, the system index and the
// system graph of each dataset. Requests are sent one at a time
func FetchRemoteState(ctx context.Context, store triplestore.Triplestore) (*RemoteState, error) {
	ctx, span := opentelemetry.SubSpanFromCtxWithName(ctx, "fetch_remote_state")
	defer span.End()

	names, err := triplestore.NamedGraphs(ctx, store)
	if err != nil {
		return nil, err
	}
	index := graph.New()
	hasIndex, err := triplestore.GraphExists(ctx, store, SystemIndexGraph)
	if err != nil {
		return nil, err
	}
	if hasIndex {
		index, err = triplestore.FetchGraph(ctx, store, SystemIndexGraph)
		if err != nil {
			return nil, err
		}
	} else if len(names) > 0 {
		log.Warnf("%s has no system index; published datasets will be republished", store.BaseURL())
	}

	state := NewRemoteState()
	for _, name := range names {
		if !isDatasetGraph(name) {
			continue
		}
		content, err := triplestore.FetchGraph(ctx, store, name)
		if err != nil {
			return nil, err
		}
		remote := RemoteDataset{IRI: name, Graph: content, SystemGraph: graph.New()}
		if system, ok := index.Object(graph.NewIRI(name), seeAlso); ok && system.IsIRI() {
			remote.SystemGraphIRI = system.Value
			remote.SystemGraph, err = triplestore.FetchGraph(ctx, store, system.Value)
			if err != nil {
				return nil, err
			}
		} else {
			log.Warnf("Dataset %s has no entry in the system index", name)
		}
		state.Datasets[name] = remote
	}

	span.SetAttributes(attribute.Int("remote_datasets", len(state.Datasets)))
	log.Infof("Found %d published datasets in %s", len(state.Datasets), store.BaseURL())
	return state, nil
}
