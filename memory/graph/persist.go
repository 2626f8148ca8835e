package graph

import (
	"encoding/json"
	"os"
	"path/filepath"

	"go.uber.org/zap"
)

// nodeLink is the persisted form: a node-link document with node
// attributes and per-edge relation type and strength.
type nodeLink struct {
	Nodes []nodeEntry `json:"nodes"`
	Links []linkEntry `json:"links"`
}

type nodeEntry struct {
	ID    string            `json:"id"`
	Attrs map[string]string `json:"attrs,omitempty"`
}

type linkEntry struct {
	Source       string  `json:"source"`
	Target       string  `json:"target"`
	RelationType string  `json:"relation_type"`
	Strength     float64 `json:"strength"`
}

// saveLocked rewrites the graph file. Callers hold the write lock.
// Failures are logged; the in-memory graph stays authoritative.
func (g *Graph) saveLocked() {
	if g.path == "" {
		return
	}

	doc := nodeLink{Nodes: make([]nodeEntry, 0, len(g.nodes))}
	for id, attrs := range g.nodes {
		doc.Nodes = append(doc.Nodes, nodeEntry{ID: id, Attrs: attrs})
	}
	for a, neighbors := range g.adj {
		for b, attrs := range neighbors {
			if a > b {
				continue // each undirected edge once
			}
			doc.Links = append(doc.Links, linkEntry{
				Source:       a,
				Target:       b,
				RelationType: attrs.RelationType,
				Strength:     attrs.Strength,
			})
		}
	}

	if err := writeFileAtomic(g.path, doc); err != nil {
		g.logger.Error("save association graph failed",
			zap.String("path", g.path), zap.Error(err))
	}
}

func (g *Graph) load() {
	if g.path == "" {
		return
	}
	data, err := os.ReadFile(g.path)
	if os.IsNotExist(err) {
		return
	}
	if err != nil {
		g.logger.Error("load association graph failed", zap.Error(err))
		return
	}

	var doc nodeLink
	if err := json.Unmarshal(data, &doc); err != nil {
		g.logger.Error("parse association graph failed",
			zap.String("path", g.path), zap.Error(err))
		return
	}

	g.mu.Lock()
	for _, n := range doc.Nodes {
		g.nodes[n.ID] = n.Attrs
		if g.adj[n.ID] == nil {
			g.adj[n.ID] = make(map[string]EdgeAttrs)
		}
	}
	for _, l := range doc.Links {
		if _, ok := g.nodes[l.Source]; !ok {
			continue
		}
		if _, ok := g.nodes[l.Target]; !ok {
			continue
		}
		attrs := EdgeAttrs{RelationType: l.RelationType, Strength: l.Strength}
		g.adj[l.Source][l.Target] = attrs
		g.adj[l.Target][l.Source] = attrs
	}
	g.mu.Unlock()

	g.logger.Info("association graph loaded",
		zap.Int("nodes", len(doc.Nodes)), zap.Int("edges", len(doc.Links)))
}

func writeFileAtomic(path string, v interface{}) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".graph-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	enc := json.NewEncoder(tmp)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
