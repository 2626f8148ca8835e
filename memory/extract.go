package memory

import (
	"context"

	"go.uber.org/zap"
)

// RelationKeywordSimilarity is the edge type created by auto-association.
const RelationKeywordSimilarity = "keyword_similarity"

// ExtractAndAdd scans inbound text for memory candidates, stores each one,
// and links new records to existing records with overlapping keyword sets.
// Candidates arrive pre-typed by the extractor's rule lexicon, so
// auto-classification is skipped here to keep extraction cheap and
// synchronous on every inbound message. Returns the IDs of added records.
func (s *Store) ExtractAndAdd(ctx context.Context, text string, history []Turn) []string {
	candidates := s.extractor.Extract(text, history)
	if len(candidates) == 0 {
		return nil
	}

	ids := make([]string, 0, len(candidates))
	for _, c := range candidates {
		id, err := s.Add(ctx, c.Content,
			WithImportance(c.Importance),
			WithType(c.Type),
			WithTags(c.Keywords...),
			WithoutClassify(),
		)
		if err != nil {
			s.logger.Warn("extracted candidate rejected", zap.Error(err))
			continue
		}
		s.autoAssociate(id, c.Keywords)
		ids = append(ids, id)
	}

	s.logger.Debug("extraction complete",
		zap.Int("candidates", len(candidates)), zap.Int("added", len(ids)))
	return ids
}

// autoAssociate creates keyword_similarity edges between the new record
// and every existing record whose tag set overlaps by at least the
// configured Jaccard threshold. This is O(N) per insertion against the
// live record set, which is acceptable at the target scale of thousands
// of records.
func (s *Store) autoAssociate(id string, keywords []string) {
	if len(keywords) == 0 {
		return
	}
	kwSet := stringSet(keywords)

	type match struct {
		id    string
		score float64
	}
	var matches []match

	s.mu.RLock()
	for otherID, rec := range s.records {
		if otherID == id || len(rec.Tags) == 0 {
			continue
		}
		score := jaccard(kwSet, stringSet(rec.Tags))
		if score >= s.cfg.AssociateThreshold {
			matches = append(matches, match{id: otherID, score: score})
		}
	}
	s.mu.RUnlock()

	for _, m := range matches {
		s.graph.AddEdge(id, m.id, RelationKeywordSimilarity, m.score)
	}
}

func stringSet(items []string) map[string]bool {
	set := make(map[string]bool, len(items))
	for _, it := range items {
		if it != "" {
			set[it] = true
		}
	}
	return set
}

// jaccard computes intersection over union for two sets.
func jaccard(a, b map[string]bool) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	inter := 0
	for k := range a {
		if b[k] {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}
