// Package classify scores memory text against the category set. Two
// implementations sit behind the same contract: Rule, a keyword-heuristic
// classifier that works offline, and LLM, a Claude-backed classifier.
// Callers take the argmax over the returned scores; ties break on
// category enumeration order.
package classify

import (
	"context"
	"strings"
	"unicode"

	"github.com/recallkit/recall-go/memory"
)

// CategoryRule holds the trigger keywords for one category and the score
// granted when any of them matches.
type CategoryRule struct {
	Keywords []string
	Score    float64
}

// DefaultLexicon returns the reference keyword lists. The lists are a
// tuning knob, not a contract; swap them for the target language/domain.
func DefaultLexicon() map[string]CategoryRule {
	return map[string]CategoryRule{
		memory.TypeFact: {
			Keywords: []string{"is", "are", "was", "were", "has", "have", "lives", "works", "born"},
			Score:    0.6,
		},
		memory.TypeOpinion: {
			Keywords: []string{"think", "believe", "feel", "should", "probably", "seems", "opinion"},
			Score:    0.7,
		},
		memory.TypePreference: {
			Keywords: []string{"like", "love", "hate", "prefer", "favorite", "dislike", "enjoy"},
			Score:    0.8,
		},
		memory.TypeEvent: {
			Keywords: []string{"yesterday", "today", "tomorrow", "tonight", "meeting", "morning", "hour", "minute", "week"},
			Score:    0.7,
		},
	}
}

// otherBase keeps "other" ahead of categories that matched nothing.
const otherBase = 0.3

// Rule is the keyword-heuristic classifier. It is the degraded-mode
// fallback when no model is available, and the extractor uses it directly
// so extraction never needs model inference.
type Rule struct {
	categories []string
	lexicon    map[string]CategoryRule
}

// NewRule builds a rule classifier over the given ordered category set.
// A nil lexicon selects DefaultLexicon.
func NewRule(categories []string, lexicon map[string]CategoryRule) *Rule {
	if len(categories) == 0 {
		categories = memory.DefaultCategories
	}
	if lexicon == nil {
		lexicon = DefaultLexicon()
	}
	return &Rule{categories: categories, lexicon: lexicon}
}

// Classify returns a score per category. Scores do not sum to 1.
func (r *Rule) Classify(_ context.Context, text string) (map[string]float64, error) {
	lowered := strings.ToLower(text)
	tokens := tokenSet(lowered)

	scores := make(map[string]float64, len(r.categories))
	for _, cat := range r.categories {
		scores[cat] = 0
	}
	if _, ok := scores[memory.TypeOther]; ok {
		scores[memory.TypeOther] = otherBase
	}

	for _, cat := range r.categories {
		rule, ok := r.lexicon[cat]
		if !ok {
			continue
		}
		hits := 0
		for _, kw := range rule.Keywords {
			if matchKeyword(lowered, tokens, kw) {
				hits++
			}
		}
		if hits == 0 {
			continue
		}
		// Extra hits nudge the score, bounded at 1.
		score := rule.Score + 0.05*float64(hits-1)
		if score > 1 {
			score = 1
		}
		scores[cat] = score
	}
	return scores, nil
}

// Best returns the argmax category, or "" when nothing scored.
func (r *Rule) Best(text string) string {
	scores, _ := r.Classify(context.Background(), text)
	best, bestScore := "", -1.0
	for _, cat := range r.categories {
		if sc, ok := scores[cat]; ok && sc > bestScore {
			best, bestScore = cat, sc
		}
	}
	if bestScore <= 0 {
		return ""
	}
	return best
}

// matchKeyword checks token membership for alphabetic keywords and falls
// back to substring containment for keywords with non-ASCII runes, which
// never survive whitespace tokenization as standalone tokens (CJK text
// has no word boundaries).
func matchKeyword(lowered string, tokens map[string]bool, kw string) bool {
	if tokens[kw] {
		return true
	}
	for _, r := range kw {
		if r > unicode.MaxASCII {
			return strings.Contains(lowered, kw)
		}
	}
	return false
}

// tokenSet splits lowered text into word tokens, keeping unicode runs.
func tokenSet(lowered string) map[string]bool {
	fields := strings.FieldsFunc(lowered, func(r rune) bool {
		return !(unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || r == '-')
	})
	set := make(map[string]bool, len(fields))
	for _, f := range fields {
		set[f] = true
	}
	return set
}
