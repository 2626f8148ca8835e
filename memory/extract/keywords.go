package extract

import (
	"sort"
	"strings"
	"unicode/utf8"
)

// stopwords filtered out of keyword extraction. A tuning knob, like the
// scoring lists.
var stopwords = map[string]bool{
	"the": true, "a": true, "an": true, "and": true, "or": true,
	"but": true, "if": true, "to": true, "of": true, "in": true,
	"on": true, "at": true, "for": true, "with": true, "is": true,
	"are": true, "was": true, "were": true, "be": true, "been": true,
	"it": true, "this": true, "that": true, "have": true, "has": true,
	"do": true, "does": true, "did": true, "not": true, "so": true,
	"too": true, "very": true, "can": true, "will": true, "just": true,
	"there": true, "here": true, "from": true, "as": true, "by": true,
}

// Keywords extracts up to max keywords from a sentence, scored by token
// frequency with a length bonus so substantive words win over filler.
// When scoring filters everything out, it falls back to the plain
// whitespace tokens longer than one rune.
func Keywords(sentence string, max int) []string {
	if max <= 0 {
		max = 5
	}
	lowered := strings.ToLower(sentence)
	tokens := tokenize(lowered)

	type scored struct {
		token string
		score float64
		first int
	}
	counts := make(map[string]*scored)
	order := 0
	for _, t := range tokens {
		if utf8.RuneCountInString(t) <= 1 || stopwords[t] {
			continue
		}
		if sc, ok := counts[t]; ok {
			sc.score++
			continue
		}
		counts[t] = &scored{
			token: t,
			score: 1 + float64(utf8.RuneCountInString(t))/10,
			first: order,
		}
		order++
	}

	ranked := make([]*scored, 0, len(counts))
	for _, sc := range counts {
		ranked = append(ranked, sc)
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].score != ranked[j].score {
			return ranked[i].score > ranked[j].score
		}
		return ranked[i].first < ranked[j].first
	})

	out := make([]string, 0, max)
	for _, sc := range ranked {
		if len(out) == max {
			break
		}
		out = append(out, sc.token)
	}
	if len(out) > 0 {
		return out
	}

	// Fallback: raw whitespace tokens longer than one rune.
	for _, t := range strings.Fields(lowered) {
		if utf8.RuneCountInString(t) <= 1 {
			continue
		}
		out = append(out, t)
		if len(out) == max {
			break
		}
	}
	return out
}
