package memory

import (
	"math"
	"time"
)

// Default category set. The set is extensible via Config.Categories;
// enumeration order matters because classification ties break on it.
var DefaultCategories = []string{
	TypeFact,
	TypeOpinion,
	TypePreference,
	TypeEvent,
	TypeOther,
}

// Built-in record types.
const (
	TypeFact       = "fact"
	TypeOpinion    = "opinion"
	TypePreference = "preference"
	TypeEvent      = "event"
	TypeOther      = "other"
)

// Record is the canonical memory unit. The Store's record table is the
// single source of truth; vector index entries and graph nodes are derived
// views keyed by Record.ID.
type Record struct {
	ID           string            `json:"id"`
	Content      string            `json:"content"`
	Importance   float64           `json:"importance"`
	Type         string            `json:"type"`
	Tags         []string          `json:"tags"`
	CreatedAt    time.Time         `json:"created_at"`
	LastAccessed time.Time         `json:"last_accessed"`
	AccessCount  int               `json:"access_count"`
	Metadata     map[string]string `json:"metadata,omitempty"`
}

// EffectiveImportance applies linear time decay to the stored importance:
// 10% per day elapsed since creation, capped at 90%. The result is
// non-increasing in elapsed time with a floor of Importance * 0.1.
func (r *Record) EffectiveImportance(now time.Time) float64 {
	days := now.Sub(r.CreatedAt).Hours() / 24
	if days < 0 {
		days = 0
	}
	decay := math.Min(0.9, days*0.1)
	return r.Importance * (1 - decay)
}

// clone returns a defensive copy so callers can't mutate stored state.
func (r *Record) clone() Record {
	out := *r
	if r.Tags != nil {
		out.Tags = append([]string(nil), r.Tags...)
	}
	if r.Metadata != nil {
		out.Metadata = make(map[string]string, len(r.Metadata))
		for k, v := range r.Metadata {
			out.Metadata[k] = v
		}
	}
	return out
}

// clampImportance bounds an importance value to [0, 1].
func clampImportance(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
