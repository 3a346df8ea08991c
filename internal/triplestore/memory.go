// Copyright 2025 Lincoln Institute of Land Policy
// SPDX-License-Identifier: Apache-2.0

package triplestore

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/internetofwater/ldsync/internal/graph"
)

var _ Triplestore = &MemoryTriplestore{}

// MemoryTriplestore keeps named graphs in memory. It understands the
// fixed set of queries and updates issued by ldsync itself and is used
// to test the packages built on top of the client without a container
type MemoryTriplestore struct {
	mu     sync.Mutex
	graphs map[string]*graph.Graph
	// every update applied, in order
	Updates []string
	// graph names that make the next matching update fail
	FailOn map[string]error
}

func NewMemoryTriplestore() *MemoryTriplestore {
	return &MemoryTriplestore{graphs: make(map[string]*graph.Graph), FailOn: make(map[string]error)}
}

func (m *MemoryTriplestore) BaseURL() string {
	return "memory://"
}

// Graph returns a copy of the named graph, or nil when absent
func (m *MemoryTriplestore) Graph(uri string) *graph.Graph {
	m.mu.Lock()
	defer m.mu.Unlock()
	if g, ok := m.graphs[uri]; ok {
		return g.Clone()
	}
	return nil
}

// GraphNames returns the names of all graphs including empty ones
func (m *MemoryTriplestore) GraphNames() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	names := make([]string, 0, len(m.graphs))
	for name := range m.graphs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (m *MemoryTriplestore) checkFailure(uri string) error {
	if err, ok := m.FailOn[uri]; ok {
		delete(m.FailOn, uri)
		return err
	}
	return nil
}

var (
	askGraphQuery  = regexp.MustCompile(`^ASK WHERE \{ GRAPH <([^>]*)> \{ \?s \?p \?o \} \}$`)
	constructQuery = regexp.MustCompile(`^CONSTRUCT \{ \?s \?p \?o \} WHERE \{ GRAPH <([^>]*)> \{ \?s \?p \?o \} \}$`)
	dataUpdate     = regexp.MustCompile(`(?s)^(INSERT|DELETE) DATA \{\s*GRAPH <([^>]*)> \{(.*)\}\s*\}$`)
	graphUpdate    = regexp.MustCompile(`^(CREATE|DROP)( SILENT)? GRAPH <([^>]*)>$`)
)

func (m *MemoryTriplestore) Query(ctx context.Context, query string, accept string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	query = strings.TrimSpace(query)
	switch {
	case query == "ASK WHERE { }":
		return json.Marshal(map[string]any{"boolean": true})
	case askGraphQuery.MatchString(query):
		uri := askGraphQuery.FindStringSubmatch(query)[1]
		g, ok := m.graphs[uri]
		return json.Marshal(map[string]any{"boolean": ok && g.Len() > 0})
	case query == "SELECT DISTINCT ?g WHERE { GRAPH ?g { ?s ?p ?o } }":
		bindings := []map[string]any{}
		for name, g := range m.graphs {
			if g.Len() > 0 {
				bindings = append(bindings, map[string]any{"g": map[string]string{"type": "uri", "value": name}})
			}
		}
		return json.Marshal(map[string]any{
			"head":    map[string]any{"vars": []string{"g"}},
			"results": map[string]any{"bindings": bindings},
		})
	case constructQuery.MatchString(query):
		uri := constructQuery.FindStringSubmatch(query)[1]
		if g, ok := m.graphs[uri]; ok {
			return []byte(g.NTriples()), nil
		}
		return []byte{}, nil
	default:
		return nil, fmt.Errorf("query not supported by the in memory store: %s", query)
	}
}

func (m *MemoryTriplestore) Update(ctx context.Context, update string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Updates = append(m.Updates, update)

	update = strings.TrimSpace(update)
	if update == "DROP ALL" {
		m.graphs = make(map[string]*graph.Graph)
		return nil
	}
	if match := graphUpdate.FindStringSubmatch(update); match != nil {
		uri := match[3]
		if err := m.checkFailure(uri); err != nil {
			return err
		}
		_, exists := m.graphs[uri]
		silent := match[2] != ""
		switch match[1] {
		case "CREATE":
			if exists && !silent {
				return fmt.Errorf("graph %s already exists", uri)
			}
			if !exists {
				m.graphs[uri] = graph.New()
			}
		case "DROP":
			if !exists && !silent {
				return fmt.Errorf("graph %s does not exist", uri)
			}
			delete(m.graphs, uri)
		}
		return nil
	}
	if match := dataUpdate.FindStringSubmatch(update); match != nil {
		uri := match[2]
		if err := m.checkFailure(uri); err != nil {
			return err
		}
		data, err := graph.ParseNTriples(strings.NewReader(match[3]))
		if err != nil {
			return err
		}
		target, ok := m.graphs[uri]
		if !ok {
			target = graph.New()
			m.graphs[uri] = target
		}
		for _, t := range data.Triples() {
			if match[1] == "INSERT" {
				target.Add(t)
			} else {
				target.Remove(t)
			}
		}
		return nil
	}
	return fmt.Errorf("update not supported by the in memory store: %s", update)
}

func (m *MemoryTriplestore) DropGraph(ctx context.Context, graphURI string) error {
	return m.Update(ctx, fmt.Sprintf("DROP GRAPH <%s>", graphURI))
}

func (m *MemoryTriplestore) InsertGraphs(ctx context.Context, graphs ...NamedGraph) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Updates = append(m.Updates, CreateUpsertQuery(graphs...))

	for _, g := range graphs {
		if err := m.checkFailure(g.GraphURI); err != nil {
			return err
		}
	}
	for _, g := range graphs {
		if g.Graph == nil {
			m.graphs[g.GraphURI] = graph.New()
			continue
		}
		m.graphs[g.GraphURI] = g.Graph.Clone()
	}
	return nil
}

func (m *MemoryTriplestore) DropAll(ctx context.Context) error {
	return m.Update(ctx, "DROP ALL")
}
