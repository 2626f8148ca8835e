// Package cache wraps an embedder with a ristretto cache so identical
// text is embedded at most once. Both the add path and the query path go
// through the same embedder, so repeated queries and re-imports of known
// content skip model inference entirely.
package cache

import (
	"context"
	"fmt"

	"github.com/dgraph-io/ristretto"

	"github.com/recallkit/recall-go/memory"
)

// Config configures the cache.
type Config struct {
	// MaxBytes bounds the cached vector data. Default: 32 MiB.
	MaxBytes int64

	// NumCounters sizes ristretto's frequency sketch. Default: 100000.
	NumCounters int64
}

// Embedder is a caching decorator around another embedder.
type Embedder struct {
	inner memory.Embedder
	cache *ristretto.Cache
}

// New wraps inner with a cache.
func New(inner memory.Embedder, cfg Config) (*Embedder, error) {
	if inner == nil {
		return nil, fmt.Errorf("inner embedder is required")
	}
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = 32 << 20
	}
	if cfg.NumCounters <= 0 {
		cfg.NumCounters = 100_000
	}

	c, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: cfg.NumCounters,
		MaxCost:     cfg.MaxBytes,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("create embedding cache: %w", err)
	}
	return &Embedder{inner: inner, cache: c}, nil
}

// Embed returns the cached vector for text, or embeds and caches it.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if v, ok := e.cache.Get(text); ok {
		if vec, ok := v.([]float32); ok {
			return append([]float32(nil), vec...), nil
		}
	}

	vec, err := e.inner.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	e.cache.Set(text, vec, int64(len(vec))*4)
	return vec, nil
}

// Dimensions reports the wrapped embedder's vector size.
func (e *Embedder) Dimensions() int {
	return e.inner.Dimensions()
}

// Close releases the cache.
func (e *Embedder) Close() {
	e.cache.Close()
}
