// Copyright 2025 Lincoln Institute of Land Policy
// SPDX-License-Identifier: Apache-2.0

package dataset

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/internetofwater/ldsync/internal/common"
	"github.com/internetofwater/ldsync/internal/config"
	"github.com/internetofwater/ldsync/internal/graph"
	"github.com/internetofwater/ldsync/internal/opentelemetry"
	"github.com/internetofwater/ldsync/pkg"
	"github.com/piprate/json-gold/ld"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// The file patterns read from the data directory
var DatasetPatterns = []string{"**/*.ttl", "**/*.jsonld"}

// The file patterns read from the ontology directory
var OntologyPatterns = []string{"**/*.ttl"}

// A single dataset file parsed into its own named graph
type Dataset struct {
	// IRI of the dcat:Dataset resource; also the name of the graph
	IRI string
	// Path of the file relative to the data directory
	File string
	// sha256 of the raw file contents
	SHA256 string
	Graph  *graph.Graph
}

// Name returns the file name used as the display key of the dataset
func (d Dataset) Name() string {
	return filepath.Base(d.File)
}

// A dataset, feature collection or feature described by a dataset file
type Resource struct {
	Term graph.Term
	Kind pkg.UnitKind
}

// Resources returns the dataset resource followed by its feature
// collections and then its features, each group in sorted order
func (d Dataset) Resources() []Resource {
	out := []Resource{{Term: graph.NewIRI(d.IRI), Kind: pkg.UnitDataset}}
	for _, group := range []struct {
		class string
		kind  pkg.UnitKind
	}{
		{graph.GeoFeatureCollection, pkg.UnitFeatureCollection},
		{graph.GeoFeature, pkg.UnitFeature},
	} {
		members := d.Graph.InstancesOf(group.class)
		sort.Slice(members, func(i, j int) bool { return members[i].String() < members[j].String() })
		for _, m := range members {
			out = append(out, Resource{Term: m, Kind: group.kind})
		}
	}
	return out
}

// Loader reads dataset files from disk. Parsing is done in parallel
// since it touches no shared state
type Loader struct {
	workers   int
	processor *ld.JsonLdProcessor
	options   *ld.JsonLdOptions
}

func NewLoader(workers int, contextConfig config.ContextConfig) (*Loader, error) {
	processor, options, err := common.NewJsonldProcessor(contextConfig)
	if err != nil {
		return nil, &pkg.ConfigurationError{Setting: "--context-file", Err: err}
	}
	if workers < 1 {
		workers = 1
	}
	return &Loader{workers: workers, processor: processor, options: options}, nil
}

// glob returns the sorted, de-duplicated files under dir matching any pattern
func glob(dir string, patterns []string) ([]string, error) {
	seen := make(map[string]struct{})
	var files []string
	for _, pattern := range patterns {
		matches, err := doublestar.FilepathGlob(filepath.Join(dir, pattern))
		if err != nil {
			return nil, err
		}
		for _, m := range matches {
			if _, ok := seen[m]; !ok {
				seen[m] = struct{}{}
				files = append(files, m)
			}
		}
	}
	sort.Strings(files)
	return files, nil
}

// ParseFile decodes a Turtle, N-Triples or JSON-LD file based on its extension
func (l *Loader) ParseFile(path string) (*graph.Graph, string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, "", err
	}
	defer func() { _ = f.Close() }()

	contents, hash, err := common.ReadAndReturnSHA256(f)
	if err != nil {
		return nil, "", err
	}
	g, err := l.parseBytes(path, contents)
	if err != nil {
		return nil, "", &pkg.ParseError{File: path, Err: err}
	}
	return g, hash, nil
}

func (l *Loader) parseBytes(path string, contents []byte) (*graph.Graph, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".ttl":
		return graph.ParseTurtle(bytes.NewReader(contents))
	case ".nt":
		return graph.ParseNTriples(bytes.NewReader(contents))
	case ".jsonld", ".json":
		return graph.ParseJSONLD(bytes.NewReader(contents), l.processor, l.options)
	default:
		return nil, fmt.Errorf("unsupported file extension %s", filepath.Ext(path))
	}
}

// datasetIRI returns the single dcat:Dataset resource in the graph
func datasetIRI(g *graph.Graph) (string, error) {
	var named []string
	for _, subject := range g.InstancesOf(graph.DCATDataset) {
		if !subject.IsIRI() {
			return "", fmt.Errorf("the dcat:Dataset resource must be named with an IRI, not a blank node")
		}
		named = append(named, subject.Value)
	}
	switch len(named) {
	case 0:
		return "", fmt.Errorf("no dcat:Dataset resource found")
	case 1:
		return named[0], nil
	default:
		return "", fmt.Errorf("expected exactly one dcat:Dataset resource but found %d: %s", len(named), strings.Join(named, ", "))
	}
}

// LoadFile parses one dataset file; name is the path reported back to the user
func (l *Loader) LoadFile(path, name string) (Dataset, error) {
	g, hash, err := l.ParseFile(path)
	if err != nil {
		return Dataset{}, err
	}
	iri, err := datasetIRI(g)
	if err != nil {
		return Dataset{}, &pkg.ParseError{File: name, Err: err}
	}
	return Dataset{IRI: iri, File: name, SHA256: hash, Graph: g}, nil
}

// LoadDirectory parses every dataset file under dir and returns the
// datasets sorted by IRI. Two files declaring the same dataset IRI
// are a conflict since they would be published to the same graph
func (l *Loader) LoadDirectory(ctx context.Context, dir string) ([]Dataset, error) {
	ctx, span := opentelemetry.SubSpanFromCtxWithName(ctx, "load_datasets")
	defer span.End()

	info, err := os.Stat(dir)
	if err != nil {
		return nil, &pkg.ConfigurationError{Setting: "DATA_DIR", Err: err}
	}
	if !info.IsDir() {
		return nil, &pkg.ConfigurationError{Setting: "DATA_DIR", Err: fmt.Errorf("%s is not a directory", dir)}
	}

	files, err := glob(dir, DatasetPatterns)
	if err != nil {
		return nil, err
	}
	log.Infof("Found %d dataset files in %s", len(files), dir)

	datasets := make([]Dataset, len(files))
	group, ctx := errgroup.WithContext(ctx)
	group.SetLimit(l.workers)
	for i, file := range files {
		group.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			name, err := filepath.Rel(dir, file)
			if err != nil {
				name = file
			}
			ds, err := l.LoadFile(file, name)
			if err != nil {
				return err
			}
			log.Debugf("Parsed %s into %d triples for %s", name, ds.Graph.Len(), ds.IRI)
			datasets[i] = ds
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}

	sort.Slice(datasets, func(i, j int) bool { return datasets[i].IRI < datasets[j].IRI })
	for i := 1; i < len(datasets); i++ {
		if datasets[i].IRI == datasets[i-1].IRI {
			return nil, &pkg.ReconciliationConflict{
				Resource: datasets[i].IRI,
				Reason:   fmt.Sprintf("declared as a dataset by both %s and %s", datasets[i-1].File, datasets[i].File),
			}
		}
	}
	return datasets, nil
}

// LoadOntologies returns the union of every ontology under dir.
// A missing directory yields an empty graph
func (l *Loader) LoadOntologies(ctx context.Context, dir string) (*graph.Graph, error) {
	_, span := opentelemetry.SubSpanFromCtxWithName(ctx, "load_ontologies")
	defer span.End()

	union := graph.New()
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		log.Warnf("Ontology directory %s does not exist; continuing without background ontologies", dir)
		return union, nil
	}
	files, err := glob(dir, OntologyPatterns)
	if err != nil {
		return nil, err
	}
	for _, file := range files {
		g, _, err := l.ParseFile(file)
		if err != nil {
			return nil, err
		}
		union.Merge(g)
	}
	log.Infof("Loaded %d ontology files with %d triples", len(files), union.Len())
	return union, nil
}
