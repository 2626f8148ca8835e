// Package extract scans free conversational text for memory candidates.
// Each sentence is scored by additive rules; sentences above the
// configured threshold become candidates, typed by the same keyword
// heuristics the rule classifier uses, so extraction stays cheap and
// synchronous on every inbound message.
package extract

import (
	"strings"
	"unicode"

	"go.uber.org/zap"

	"github.com/recallkit/recall-go/memory"
	"github.com/recallkit/recall-go/memory/classify"
)

// sentence-final punctuation, both ASCII and CJK forms
const sentenceBreaks = "。！？!?;；\n"

// Lexicon holds the scoring word lists. Like the classifier lists, these
// are language- and domain-specific tuning knobs.
type Lexicon struct {
	Pronouns        []string
	EmotionWords    []string
	CognitionWords  []string
	QuestionMarkers []string
}

// DefaultLexicon returns English reference lists.
func DefaultLexicon() Lexicon {
	return Lexicon{
		Pronouns: []string{"i", "me", "my", "mine", "we", "our", "you", "your", "he", "she", "they"},
		EmotionWords: []string{
			"love", "hate", "like", "dislike", "happy", "sad", "angry",
			"scared", "afraid", "excited", "upset", "glad",
		},
		CognitionWords: []string{
			"remember", "know", "think", "believe", "feel", "want",
			"need", "hope", "wish", "should", "must",
		},
		QuestionMarkers: []string{"?", "？", "what", "why", "how", "when", "who", "which"},
	}
}

// Config configures extraction.
type Config struct {
	// MinImportance is the emit threshold for sentence scores.
	// Default: 0.3.
	MinImportance float64

	// MaxKeywords caps the keywords extracted per candidate. Default: 5.
	MaxKeywords int

	// Lexicon overrides the scoring word lists. Zero value selects
	// DefaultLexicon.
	Lexicon Lexicon
}

// Extractor mines candidate memories from text.
type Extractor struct {
	cfg    Config
	rule   *classify.Rule
	logger *zap.Logger
}

// New builds an extractor. The rule classifier assigns candidate types;
// nil selects one over the default category set.
func New(cfg Config, rule *classify.Rule, logger *zap.Logger) *Extractor {
	if cfg.MinImportance == 0 {
		cfg.MinImportance = 0.3
	}
	if cfg.MaxKeywords <= 0 {
		cfg.MaxKeywords = 5
	}
	if len(cfg.Lexicon.Pronouns) == 0 && len(cfg.Lexicon.EmotionWords) == 0 &&
		len(cfg.Lexicon.CognitionWords) == 0 {
		cfg.Lexicon = DefaultLexicon()
	}
	if rule == nil {
		rule = classify.NewRule(nil, nil)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Extractor{cfg: cfg, rule: rule, logger: logger}
}

// Extract splits text into sentences, scores each, and returns the ones
// above the threshold as typed, tagged candidates. history provides the
// preceding conversational turns; answering a question raises the score.
func (e *Extractor) Extract(text string, history []memory.Turn) []memory.Candidate {
	questionContext := e.lastUserTurnIsQuestion(history)

	var out []memory.Candidate
	for _, sentence := range splitSentences(text) {
		score := e.scoreSentence(sentence, questionContext)
		if score < e.cfg.MinImportance {
			continue
		}
		recType := e.rule.Best(sentence)
		if recType == "" {
			recType = memory.TypeOther
		}
		out = append(out, memory.Candidate{
			Content:    sentence,
			Importance: score,
			Type:       recType,
			Keywords:   Keywords(sentence, e.cfg.MaxKeywords),
		})
	}

	e.logger.Debug("extraction pass",
		zap.Int("sentences", len(splitSentences(text))), zap.Int("candidates", len(out)))
	return out
}

// scoreSentence applies the additive importance rules, clamped to [0, 1]:
// base 0.1, +0.2 personal pronoun, +0.3 emotion word, +0.2 cognition or
// modal verb, +0.1 digit present, +0.2 when answering a question.
func (e *Extractor) scoreSentence(sentence string, questionContext bool) float64 {
	lowered := strings.ToLower(sentence)
	tokens := tokenize(lowered)
	tokenSet := make(map[string]bool, len(tokens))
	for _, t := range tokens {
		tokenSet[t] = true
	}

	score := 0.1
	if matchesAny(lowered, tokenSet, e.cfg.Lexicon.Pronouns) {
		score += 0.2
	}
	if matchesAny(lowered, tokenSet, e.cfg.Lexicon.EmotionWords) {
		score += 0.3
	}
	if matchesAny(lowered, tokenSet, e.cfg.Lexicon.CognitionWords) {
		score += 0.2
	}
	if strings.IndexFunc(sentence, unicode.IsDigit) >= 0 {
		score += 0.1
	}
	if questionContext {
		score += 0.2
	}
	if score > 1 {
		score = 1
	}
	return score
}

// lastUserTurnIsQuestion reports whether the most recent user turn in the
// history looks like a question.
func (e *Extractor) lastUserTurnIsQuestion(history []memory.Turn) bool {
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Role != "user" {
			continue
		}
		lowered := strings.ToLower(history[i].Content)
		tokens := tokenize(lowered)
		tokenSet := make(map[string]bool, len(tokens))
		for _, t := range tokens {
			tokenSet[t] = true
		}
		for _, marker := range e.cfg.Lexicon.QuestionMarkers {
			if strings.Contains(lowered, marker) || tokenSet[marker] {
				return true
			}
		}
		return false
	}
	return false
}

// splitSentences breaks text on sentence-final punctuation.
func splitSentences(text string) []string {
	parts := strings.FieldsFunc(text, func(r rune) bool {
		return strings.ContainsRune(sentenceBreaks, r)
	})
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// matchesAny checks token membership, falling back to substring
// containment for non-ASCII keywords.
func matchesAny(lowered string, tokenSet map[string]bool, keywords []string) bool {
	for _, kw := range keywords {
		if tokenSet[kw] {
			return true
		}
		if hasNonASCII(kw) && strings.Contains(lowered, kw) {
			return true
		}
	}
	return false
}

func hasNonASCII(s string) bool {
	for _, r := range s {
		if r > unicode.MaxASCII {
			return true
		}
	}
	return false
}

// tokenize splits lowered text into word tokens.
func tokenize(lowered string) []string {
	return strings.FieldsFunc(lowered, func(r rune) bool {
		return !(unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || r == '-')
	})
}
