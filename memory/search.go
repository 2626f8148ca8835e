package memory

import (
	"context"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
)

// SearchOption configures a single Search call.
type SearchOption func(*searchParams)

type searchParams struct {
	limit         int
	minImportance float64
	recordType    string
	useSemantic   bool
}

// WithLimit caps the number of results. Default: 5.
func WithLimit(n int) SearchOption {
	return func(p *searchParams) {
		if n > 0 {
			p.limit = n
		}
	}
}

// WithMinImportance filters out records whose effective importance falls
// below v. Default: 0.
func WithMinImportance(v float64) SearchOption {
	return func(p *searchParams) { p.minImportance = v }
}

// WithTypeFilter restricts results to a single record type.
func WithTypeFilter(t string) SearchOption {
	return func(p *searchParams) { p.recordType = t }
}

// WithoutSemantic skips the vector path and goes straight to keyword
// matching.
func WithoutSemantic() SearchOption {
	return func(p *searchParams) { p.useSemantic = false }
}

// Search returns records relevant to query, ranked by effective importance
// descending with ties broken by most recent creation.
//
// The vector path is tried first: 2x limit nearest neighbors, resolved
// against the record table and filtered. When the vector index is absent,
// fails, or yields zero matches, the dependable baseline takes over: a
// case-insensitive containment scan of query over record content. The
// keyword path must never be starved, because embedding models may be
// missing entirely or return noise on short or novel queries.
func (s *Store) Search(ctx context.Context, query string, opts ...SearchOption) []Record {
	p := searchParams{limit: 5, useSemantic: true}
	for _, opt := range opts {
		opt(&p)
	}

	now := time.Now()
	var matched []*Record
	seen := make(map[string]bool)

	if p.useSemantic {
		hits, err := s.index.Search(ctx, query, 2*p.limit)
		if err != nil {
			s.logger.Warn("semantic search failed, falling back to keyword scan",
				zap.Error(err))
		}

		s.mu.Lock()
		for _, hit := range hits {
			rec, ok := s.records[hit.ID]
			if !ok || seen[hit.ID] {
				continue
			}
			if !passesFilters(rec, p, now) {
				continue
			}
			seen[hit.ID] = true
			matched = append(matched, rec)
		}
		s.mu.Unlock()
	}

	if len(matched) == 0 {
		needle := strings.ToLower(query)
		s.mu.Lock()
		for _, rec := range s.records {
			if seen[rec.ID] {
				continue
			}
			if !strings.Contains(strings.ToLower(rec.Content), needle) {
				continue
			}
			if !passesFilters(rec, p, now) {
				continue
			}
			seen[rec.ID] = true
			matched = append(matched, rec)
		}
		s.mu.Unlock()
	}

	sort.Slice(matched, func(i, j int) bool {
		ei, ej := matched[i].EffectiveImportance(now), matched[j].EffectiveImportance(now)
		if ei != ej {
			return ei > ej
		}
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})
	if len(matched) > p.limit {
		matched = matched[:p.limit]
	}

	// Access bookkeeping for the records actually returned.
	out := make([]Record, 0, len(matched))
	s.mu.Lock()
	for _, rec := range matched {
		rec.AccessCount++
		rec.LastAccessed = now
		out = append(out, rec.clone())
	}
	s.mu.Unlock()

	s.logger.Debug("search complete",
		zap.String("query", query), zap.Int("results", len(out)))
	return out
}

func passesFilters(rec *Record, p searchParams, now time.Time) bool {
	if rec.EffectiveImportance(now) < p.minImportance {
		return false
	}
	if p.recordType != "" && rec.Type != p.recordType {
		return false
	}
	return true
}

// AssociatedRecord pairs a related record with the edge that links it.
type AssociatedRecord struct {
	Record       Record
	RelationType string
	Strength     float64
}

// Associated returns records linked to id in the association graph,
// sorted by edge strength descending and truncated to limit. Neighbor IDs
// that have gone stale against the record table are skipped.
func (s *Store) Associated(id string, limit int) []AssociatedRecord {
	if limit <= 0 {
		limit = 5
	}
	neighbors := s.graph.Neighbors(id, 0)

	s.mu.RLock()
	out := make([]AssociatedRecord, 0, len(neighbors))
	for _, n := range neighbors {
		rec, ok := s.records[n.ID]
		if !ok {
			continue
		}
		out = append(out, AssociatedRecord{
			Record:       rec.clone(),
			RelationType: n.RelationType,
			Strength:     n.Strength,
		})
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Strength > out[j].Strength })
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

// AddAssociation links two records in the graph. Both endpoints must
// exist in the record table; returns false otherwise.
func (s *Store) AddAssociation(a, b, relationType string, strength float64) bool {
	s.mu.RLock()
	_, okA := s.records[a]
	_, okB := s.records[b]
	s.mu.RUnlock()
	if !okA || !okB {
		return false
	}
	return s.graph.AddEdge(a, b, relationType, strength)
}
