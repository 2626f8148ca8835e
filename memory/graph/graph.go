// Package graph implements the association graph: an undirected weighted
// graph over memory record IDs with typed edges, neighbor lookup,
// path-finding, and connected-component discovery. State is persisted as
// a node-link JSON document, rewritten after every mutation.
package graph

import (
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/recallkit/recall-go/memory"
)

// EdgeAttrs carries the attributes of one undirected edge.
type EdgeAttrs struct {
	RelationType string  `json:"relation_type"`
	Strength     float64 `json:"strength"`
}

// Graph is the in-memory association graph. Safe for concurrent use.
type Graph struct {
	path   string
	logger *zap.Logger

	mu    sync.RWMutex
	nodes map[string]map[string]string // id -> node attrs
	adj   map[string]map[string]EdgeAttrs
}

// New creates a graph persisted at path. An empty path keeps the graph
// purely in memory. An existing file is loaded; load failures are logged
// and the graph starts empty.
func New(path string, logger *zap.Logger) *Graph {
	if logger == nil {
		logger = zap.NewNop()
	}
	g := &Graph{
		path:   path,
		logger: logger,
		nodes:  make(map[string]map[string]string),
		adj:    make(map[string]map[string]EdgeAttrs),
	}
	g.load()
	return g
}

// AddNode inserts a node, replacing attributes if it already exists.
func (g *Graph) AddNode(id string, attrs map[string]string) {
	g.mu.Lock()
	g.nodes[id] = attrs
	if g.adj[id] == nil {
		g.adj[id] = make(map[string]EdgeAttrs)
	}
	g.saveLocked()
	g.mu.Unlock()
}

// RemoveNode drops a node and every incident edge, so no dangling edge
// can survive. Returns false if the node is absent.
func (g *Graph) RemoveNode(id string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.nodes[id]; !ok {
		return false
	}
	for neighbor := range g.adj[id] {
		delete(g.adj[neighbor], id)
	}
	delete(g.adj, id)
	delete(g.nodes, id)
	g.saveLocked()
	return true
}

// AddEdge creates a symmetric typed edge. Returns false when either
// endpoint is absent from the graph.
func (g *Graph) AddEdge(a, b, relationType string, strength float64) bool {
	if a == b {
		return false
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.nodes[a]; !ok {
		return false
	}
	if _, ok := g.nodes[b]; !ok {
		return false
	}
	attrs := EdgeAttrs{RelationType: relationType, Strength: clampStrength(strength)}
	g.adj[a][b] = attrs
	g.adj[b][a] = attrs
	g.saveLocked()
	return true
}

// RemoveEdge deletes the edge between a and b. Returns false if absent.
func (g *Graph) RemoveEdge(a, b string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.adj[a][b]; !ok {
		return false
	}
	delete(g.adj[a], b)
	delete(g.adj[b], a)
	g.saveLocked()
	return true
}

// Neighbors returns the direct neighbors of id sorted by edge strength
// descending. A limit <= 0 returns all of them.
func (g *Graph) Neighbors(id string, limit int) []memory.Neighbor {
	g.mu.RLock()
	out := make([]memory.Neighbor, 0, len(g.adj[id]))
	for neighbor, attrs := range g.adj[id] {
		out = append(out, memory.Neighbor{
			ID:           neighbor,
			RelationType: attrs.RelationType,
			Strength:     attrs.Strength,
		})
	}
	g.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Strength != out[j].Strength {
			return out[i].Strength > out[j].Strength
		}
		return out[i].ID < out[j].ID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// PathsBetween enumerates up to maxPaths simple paths of at most maxHops
// edges between a and b. Returns nil when either endpoint is absent.
// Defaults: maxHops 3, maxPaths 3.
func (g *Graph) PathsBetween(a, b string, maxHops, maxPaths int) [][]string {
	if maxHops <= 0 {
		maxHops = 3
	}
	if maxPaths <= 0 {
		maxPaths = 3
	}

	g.mu.RLock()
	defer g.mu.RUnlock()

	if _, ok := g.nodes[a]; !ok {
		return nil
	}
	if _, ok := g.nodes[b]; !ok {
		return nil
	}

	var paths [][]string
	visited := map[string]bool{a: true}
	path := []string{a}

	var walk func(current string)
	walk = func(current string) {
		if len(paths) >= maxPaths {
			return
		}
		if current == b {
			paths = append(paths, append([]string(nil), path...))
			return
		}
		if len(path)-1 >= maxHops {
			return
		}
		// Deterministic neighbor order.
		neighbors := make([]string, 0, len(g.adj[current]))
		for n := range g.adj[current] {
			neighbors = append(neighbors, n)
		}
		sort.Strings(neighbors)
		for _, n := range neighbors {
			if visited[n] {
				continue
			}
			visited[n] = true
			path = append(path, n)
			walk(n)
			path = path[:len(path)-1]
			visited[n] = false
		}
	}
	walk(a)
	return paths
}

// Clusters returns the connected components of the graph. IDs within each
// component are sorted for stable output.
func (g *Graph) Clusters() [][]string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	seen := make(map[string]bool, len(g.nodes))
	var clusters [][]string

	for id := range g.nodes {
		if seen[id] {
			continue
		}
		var component []string
		queue := []string{id}
		seen[id] = true
		for len(queue) > 0 {
			current := queue[0]
			queue = queue[1:]
			component = append(component, current)
			for n := range g.adj[current] {
				if !seen[n] {
					seen[n] = true
					queue = append(queue, n)
				}
			}
		}
		sort.Strings(component)
		clusters = append(clusters, component)
	}

	sort.Slice(clusters, func(i, j int) bool { return clusters[i][0] < clusters[j][0] })
	return clusters
}

// Nodes returns every node ID.
func (g *Graph) Nodes() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]string, 0, len(g.nodes))
	for id := range g.nodes {
		out = append(out, id)
	}
	return out
}

// Len returns the node count.
func (g *Graph) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.nodes)
}

// EdgeCount returns the number of undirected edges.
func (g *Graph) EdgeCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	total := 0
	for _, neighbors := range g.adj {
		total += len(neighbors)
	}
	return total / 2
}

func clampStrength(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
