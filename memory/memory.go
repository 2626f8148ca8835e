package memory

import (
	"context"
	"errors"
)

// Embedder converts text to vector embeddings.
// Implementations: embedder/mock (testing), embedder/onnx (local model),
// embedder/cache (ristretto wrapper around either).
type Embedder interface {
	// Embed converts a single text to an embedding vector.
	Embed(ctx context.Context, text string) ([]float32, error)

	// Dimensions returns the embedding vector size.
	Dimensions() int
}

// Classifier maps text to a score per category. Scores are in [0, 1] and
// need not sum to 1; callers take the argmax, breaking ties by category
// enumeration order. Implementations: classify.Rule (keyword heuristics),
// classify.LLM (Claude-backed).
type Classifier interface {
	Classify(ctx context.Context, text string) (map[string]float64, error)
}

// VectorHit is a single nearest-neighbor result.
type VectorHit struct {
	ID         string
	Similarity float64
	Distance   float64
}

// VectorIndex is the nearest-neighbor view over record embeddings.
// Removal is logical (tombstoned) until Rebuild physically compacts the
// underlying structure. Implementation: index.Index.
type VectorIndex interface {
	// Add embeds text and indexes it under id.
	Add(ctx context.Context, id, text string) error

	// Remove tombstones the entry for id. Returns false if id is not indexed.
	Remove(id string) bool

	// Search returns up to k live hits in ascending-distance order.
	Search(ctx context.Context, query string, k int) ([]VectorHit, error)

	// Rebuild reclaims tombstoned slots. Maintenance operation.
	Rebuild(ctx context.Context) error

	// IDs returns the live (non-tombstoned) record IDs.
	IDs() []string
}

// Neighbor is one edge endpoint as seen from a queried node.
type Neighbor struct {
	ID           string
	RelationType string
	Strength     float64
}

// AssociationGraph is the undirected weighted relationship view over
// record IDs. Implementation: graph.Graph.
type AssociationGraph interface {
	AddNode(id string, attrs map[string]string)

	// RemoveNode drops the node and every incident edge.
	RemoveNode(id string) bool

	// AddEdge returns false if either endpoint is absent.
	AddEdge(a, b, relationType string, strength float64) bool

	RemoveEdge(a, b string) bool

	// Neighbors returns direct neighbors of id, truncated to limit.
	// limit <= 0 returns all neighbors.
	Neighbors(id string, limit int) []Neighbor

	Nodes() []string
	EdgeCount() int
}

// Turn is one conversational exchange, used for context-aware extraction.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Candidate is a memory candidate produced by extraction.
type Candidate struct {
	Content    string
	Importance float64
	Type       string
	Keywords   []string
}

// Extractor scans free text for memory candidates.
// Implementation: extract.Extractor.
type Extractor interface {
	Extract(text string, history []Turn) []Candidate
}

// errUnavailable marks operations on an absent component. It never escapes
// the Store boundary; it only feeds degraded-mode log lines.
var errUnavailable = errors.New("component unavailable")

// No-op implementations selected at construction when a component is not
// injected, so call sites never branch on presence.

type noopIndex struct{}

func (noopIndex) Add(context.Context, string, string) error { return errUnavailable }
func (noopIndex) Remove(string) bool                        { return false }
func (noopIndex) Search(context.Context, string, int) ([]VectorHit, error) {
	return nil, errUnavailable
}
func (noopIndex) Rebuild(context.Context) error { return nil }
func (noopIndex) IDs() []string                 { return nil }

type noopGraph struct{}

func (noopGraph) AddNode(string, map[string]string)            {}
func (noopGraph) RemoveNode(string) bool                       { return false }
func (noopGraph) AddEdge(string, string, string, float64) bool { return false }
func (noopGraph) RemoveEdge(string, string) bool               { return false }
func (noopGraph) Neighbors(string, int) []Neighbor             { return nil }
func (noopGraph) Nodes() []string                              { return nil }
func (noopGraph) EdgeCount() int                               { return 0 }

type noopClassifier struct{}

func (noopClassifier) Classify(context.Context, string) (map[string]float64, error) {
	return nil, errUnavailable
}

type noopExtractor struct{}

func (noopExtractor) Extract(string, []Turn) []Candidate { return nil }
