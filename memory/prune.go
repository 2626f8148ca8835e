package memory

import (
	"context"
	"sort"
	"time"

	"go.uber.org/zap"
)

// Prune enforces the record ceiling: when the table exceeds
// cfg.MaxMemories, the top records by effective importance are retained
// and the rest discarded, then the auxiliary views are reconciled against
// the retained ID set. Returns the number of records discarded.
func (s *Store) Prune(ctx context.Context) int {
	now := time.Now()

	s.mu.Lock()
	if len(s.records) <= s.cfg.MaxMemories {
		s.mu.Unlock()
		return 0
	}

	ranked := make([]*Record, 0, len(s.records))
	for _, rec := range s.records {
		ranked = append(ranked, rec)
	}
	sort.Slice(ranked, func(i, j int) bool {
		return ranked[i].EffectiveImportance(now) > ranked[j].EffectiveImportance(now)
	})

	dropped := ranked[s.cfg.MaxMemories:]
	for _, rec := range dropped {
		delete(s.records, rec.ID)
	}
	s.saveLocked()
	s.mu.Unlock()

	s.Sync(ctx)

	s.logger.Info("memories pruned",
		zap.Int("dropped", len(dropped)), zap.Int("retained", s.cfg.MaxMemories))
	return len(dropped)
}

// Sync reconciles the vector index and the association graph against the
// canonical record table: stale entries are removed, missing ones added.
// After Sync, every ID known to an auxiliary view is a live record ID.
func (s *Store) Sync(ctx context.Context) {
	live := make(map[string]string) // id -> content
	s.mu.RLock()
	for id, rec := range s.records {
		live[id] = rec.Content
	}
	s.mu.RUnlock()

	indexed := make(map[string]bool)
	for _, id := range s.index.IDs() {
		indexed[id] = true
	}
	for id, content := range live {
		if indexed[id] {
			continue
		}
		if err := s.index.Add(ctx, id, content); err != nil {
			s.logger.Warn("vector index sync add failed",
				zap.String("id", id), zap.Error(err))
		}
	}
	for id := range indexed {
		if _, ok := live[id]; !ok {
			s.index.Remove(id)
		}
	}

	inGraph := make(map[string]bool)
	for _, id := range s.graph.Nodes() {
		inGraph[id] = true
	}
	for id := range live {
		if !inGraph[id] {
			s.graph.AddNode(id, nil)
		}
	}
	for id := range inGraph {
		if _, ok := live[id]; !ok {
			s.graph.RemoveNode(id)
		}
	}
}
