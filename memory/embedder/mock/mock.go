// Package mock provides a deterministic embedder for tests and examples.
package mock

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
)

// Embedder generates embeddings by summing hash-derived token vectors, so
// texts sharing words land near each other. That is not real semantics,
// but it is deterministic and exercises the retrieval path without model
// files.
type Embedder struct {
	dims int
}

// New creates a mock embedder with 384 dimensions, matching
// all-MiniLM-L6-v2.
func New() *Embedder {
	return &Embedder{dims: 384}
}

// NewWithDimensions creates a mock embedder of arbitrary size.
func NewWithDimensions(dims int) *Embedder {
	return &Embedder{dims: dims}
}

// Embed returns a deterministic unit vector for text.
func (e *Embedder) Embed(_ context.Context, text string) ([]float32, error) {
	vec := make([]float32, e.dims)

	tokens := strings.Fields(strings.ToLower(text))
	if len(tokens) == 0 {
		tokens = []string{text}
	}
	for _, tok := range tokens {
		h := fnv.New64a()
		h.Write([]byte(tok))
		seed := h.Sum64()
		for i := range vec {
			// LCG keeps the per-token stream deterministic.
			seed = seed*6364136223846793005 + 1442695040888963407
			vec[i] += float32(int64(seed)) / float32(math.MaxInt64)
		}
	}

	return normalize(vec), nil
}

// Dimensions returns the embedding size.
func (e *Embedder) Dimensions() int {
	return e.dims
}

func normalize(vec []float32) []float32 {
	var norm float32
	for _, v := range vec {
		norm += v * v
	}
	if norm == 0 {
		return vec
	}
	norm = float32(math.Sqrt(float64(norm)))
	for i, v := range vec {
		vec[i] = v / norm
	}
	return vec
}
