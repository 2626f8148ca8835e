// Package index implements the vector index over memory embeddings on
// top of chromem-go, an embedded pure-Go vector database.
//
// Record IDs are mapped to integer slots; the slot number is the document
// key inside the chromem collection. Removal is logical: the id-to-slot
// mapping entries are dropped and the slot is tombstoned, leaving the
// embedding physically present but unreachable. Rebuild is the only
// operation that reclaims tombstoned slots; treat it as maintenance, not
// as a side effect of delete.
package index

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	chromem "github.com/philippgille/chromem-go"
	"go.uber.org/zap"

	"github.com/recallkit/recall-go/memory"
)

// ErrNoEmbedder is returned when no embedding provider is configured.
var ErrNoEmbedder = errors.New("no embedding provider")

// Config configures the index.
type Config struct {
	// Dir holds the persistent vector database and the mapping sidecar.
	// Empty keeps everything in memory.
	Dir string

	// Collection names the chromem collection. Default: "memories".
	Collection string
}

// Index is the vector index. Safe for concurrent use.
type Index struct {
	cfg      Config
	embedder memory.Embedder
	logger   *zap.Logger

	db  *chromem.DB
	col *chromem.Collection

	mu         sync.Mutex
	idToSlot   map[string]int
	slotToID   map[int]string
	tombstones map[int]bool
	nextSlot   int
}

// New opens (or creates) the index under cfg.Dir and loads the mapping
// sidecar. The embedder may be nil; Add and Search then fail with
// ErrNoEmbedder, which the store treats as degraded mode.
func New(cfg Config, embedder memory.Embedder, logger *zap.Logger) (*Index, error) {
	if cfg.Collection == "" {
		cfg.Collection = "memories"
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	var (
		db  *chromem.DB
		err error
	)
	if cfg.Dir == "" {
		db = chromem.NewDB()
	} else {
		db, err = chromem.NewPersistentDB(dbPath(cfg.Dir), false)
		if err != nil {
			return nil, fmt.Errorf("open vector db: %w", err)
		}
	}

	// Embeddings are always supplied explicitly, so no embedding func is
	// registered with the collection.
	col, err := db.GetOrCreateCollection(cfg.Collection, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("open collection: %w", err)
	}

	x := &Index{
		cfg:        cfg,
		embedder:   embedder,
		logger:     logger,
		db:         db,
		col:        col,
		idToSlot:   make(map[string]int),
		slotToID:   make(map[int]string),
		tombstones: make(map[int]bool),
	}
	x.loadMapping()
	return x, nil
}

// Add embeds text and indexes it under id at the next free slot. The
// mapping sidecar is rewritten before returning.
func (x *Index) Add(ctx context.Context, id, text string) error {
	if x.embedder == nil {
		return ErrNoEmbedder
	}
	embedding, err := x.embedder.Embed(ctx, text)
	if err != nil {
		return fmt.Errorf("embed content: %w", err)
	}

	x.mu.Lock()
	defer x.mu.Unlock()

	if old, ok := x.idToSlot[id]; ok {
		// Re-index of a known ID: tombstone the old slot first.
		delete(x.slotToID, old)
		x.tombstones[old] = true
	}

	slot := x.nextSlot
	doc := chromem.Document{
		ID:        strconv.Itoa(slot),
		Content:   text,
		Embedding: embedding,
	}
	if err := x.col.AddDocument(ctx, doc); err != nil {
		return fmt.Errorf("add document: %w", err)
	}
	x.nextSlot++
	x.idToSlot[id] = slot
	x.slotToID[slot] = id
	x.saveMappingLocked()

	x.logger.Debug("vector indexed",
		zap.String("id", id), zap.Int("slot", slot))
	return nil
}

// Remove tombstones the entry for id: the mapping entries are dropped and
// the embedding stays in the collection until Rebuild. Returns false if
// id is not indexed.
func (x *Index) Remove(id string) bool {
	x.mu.Lock()
	defer x.mu.Unlock()

	slot, ok := x.idToSlot[id]
	if !ok {
		return false
	}
	delete(x.idToSlot, id)
	delete(x.slotToID, slot)
	x.tombstones[slot] = true
	x.saveMappingLocked()
	return true
}

// Search embeds the query and returns up to k live hits in ascending
// distance order. Hits on tombstoned slots are filtered out. Similarity
// is 1/(1+distance): monotonically decreasing in distance, bounded in
// (0, 1].
func (x *Index) Search(ctx context.Context, query string, k int) ([]memory.VectorHit, error) {
	if x.embedder == nil {
		return nil, ErrNoEmbedder
	}
	embedding, err := x.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	x.mu.Lock()
	defer x.mu.Unlock()

	count := x.col.Count()
	if count == 0 || k <= 0 {
		return nil, nil
	}
	if k > count {
		k = count
	}

	// chromem rejects nResults larger than the collection; shrink and
	// retry to stay robust against concurrent compaction.
	var results []chromem.Result
	for limit := k; limit >= 1; limit-- {
		results, err = x.col.QueryEmbedding(ctx, embedding, limit, nil, nil)
		if err == nil {
			break
		}
		if isTooFewDocsError(err) {
			continue
		}
		return nil, fmt.Errorf("query embedding: %w", err)
	}
	if err != nil {
		return nil, fmt.Errorf("query embedding: %w", err)
	}

	hits := make([]memory.VectorHit, 0, len(results))
	for _, r := range results {
		slot, convErr := strconv.Atoi(r.ID)
		if convErr != nil {
			continue
		}
		id, live := x.slotToID[slot]
		if !live {
			continue // tombstoned
		}
		// chromem ranks by cosine similarity; fold it into a distance so
		// the reported similarity keeps the 1/(1+d) shape.
		distance := 1 - float64(r.Similarity)
		if distance < 0 {
			distance = 0
		}
		hits = append(hits, memory.VectorHit{
			ID:         id,
			Similarity: 1 / (1 + distance),
			Distance:   distance,
		})
	}
	return hits, nil
}

// Rebuild physically deletes tombstoned documents from the collection.
// Live slots keep their numbers; only dead embeddings are reclaimed.
func (x *Index) Rebuild(ctx context.Context) error {
	x.mu.Lock()
	defer x.mu.Unlock()

	if len(x.tombstones) == 0 {
		return nil
	}
	stale := make([]string, 0, len(x.tombstones))
	for slot := range x.tombstones {
		stale = append(stale, strconv.Itoa(slot))
	}
	if err := x.col.Delete(ctx, nil, nil, stale...); err != nil {
		return fmt.Errorf("delete tombstoned documents: %w", err)
	}
	reclaimed := len(x.tombstones)
	x.tombstones = make(map[int]bool)
	x.saveMappingLocked()

	x.logger.Info("vector index rebuilt", zap.Int("reclaimed", reclaimed))
	return nil
}

// IDs returns the live record IDs in the index.
func (x *Index) IDs() []string {
	x.mu.Lock()
	defer x.mu.Unlock()
	out := make([]string, 0, len(x.idToSlot))
	for id := range x.idToSlot {
		out = append(out, id)
	}
	return out
}

// Len returns the live entry count.
func (x *Index) Len() int {
	x.mu.Lock()
	defer x.mu.Unlock()
	return len(x.idToSlot)
}

// Tombstones returns the number of slots awaiting Rebuild.
func (x *Index) Tombstones() int {
	x.mu.Lock()
	defer x.mu.Unlock()
	return len(x.tombstones)
}

// isTooFewDocsError matches chromem's complaint when nResults exceeds the
// number of stored documents.
func isTooFewDocsError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "nResults must be") ||
		strings.Contains(msg, "number of documents")
}
