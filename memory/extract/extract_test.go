package extract_test

import (
	"testing"

	"github.com/recallkit/recall-go/memory"
	"github.com/recallkit/recall-go/memory/extract"
)

func TestExtractor_EmotionalSentenceScoresHigh(t *testing.T) {
	e := extract.New(extract.Config{}, nil, nil)

	candidates := e.Extract("I love hiking in the mountains", nil)
	if len(candidates) != 1 {
		t.Fatalf("got %d candidates, want 1", len(candidates))
	}
	c := candidates[0]
	// base 0.1 + pronoun 0.2 + emotion 0.3
	if diff := c.Importance - 0.6; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("importance: got %v, want 0.6", c.Importance)
	}
	if c.Type != memory.TypePreference {
		t.Errorf("type: got %q, want %q", c.Type, memory.TypePreference)
	}
	if len(c.Keywords) == 0 {
		t.Error("no keywords extracted")
	}
}

func TestExtractor_NeutralSentenceDropped(t *testing.T) {
	e := extract.New(extract.Config{}, nil, nil)

	// base 0.1 only, below the 0.3 threshold
	if got := e.Extract("the sky looked gray", nil); len(got) != 0 {
		t.Errorf("neutral sentence kept: %+v", got)
	}
}

func TestExtractor_DigitsRaiseScore(t *testing.T) {
	e := extract.New(extract.Config{}, nil, nil)

	plain := e.Extract("I want a new bike", nil)
	withNum := e.Extract("I want a new bike for 300", nil)
	if len(plain) != 1 || len(withNum) != 1 {
		t.Fatalf("candidates: %d, %d", len(plain), len(withNum))
	}
	if withNum[0].Importance <= plain[0].Importance {
		t.Errorf("digit bonus missing: %v vs %v",
			withNum[0].Importance, plain[0].Importance)
	}
}

func TestExtractor_QuestionContextBoost(t *testing.T) {
	e := extract.New(extract.Config{}, nil, nil)
	history := []memory.Turn{
		{Role: "assistant", Content: "Noted."},
		{Role: "user", Content: "What music do you enjoy?"},
	}

	without := e.Extract("I enjoy jazz", nil)
	with := e.Extract("I enjoy jazz", history)
	if len(without) != 1 || len(with) != 1 {
		t.Fatalf("candidates: %d, %d", len(without), len(with))
	}
	if with[0].Importance-without[0].Importance < 0.19 {
		t.Errorf("question boost missing: %v vs %v",
			with[0].Importance, without[0].Importance)
	}
}

func TestExtractor_MultipleSentences(t *testing.T) {
	e := extract.New(extract.Config{}, nil, nil)

	candidates := e.Extract("I love coffee! The sky looked gray\nI need to remember her birthday", nil)
	if len(candidates) != 2 {
		t.Fatalf("got %d candidates, want 2: %+v", len(candidates), candidates)
	}
	if candidates[0].Content != "I love coffee" {
		t.Errorf("first candidate: %q", candidates[0].Content)
	}
}

func TestExtractor_ImportanceClamped(t *testing.T) {
	e := extract.New(extract.Config{}, nil, nil)
	history := []memory.Turn{{Role: "user", Content: "How do you feel?"}}

	candidates := e.Extract("I feel so happy and I love that we remember 2019", history)
	if len(candidates) != 1 {
		t.Fatalf("got %d candidates", len(candidates))
	}
	if candidates[0].Importance > 1 {
		t.Errorf("importance above 1: %v", candidates[0].Importance)
	}
}

func TestKeywords(t *testing.T) {
	kws := extract.Keywords("I love strong coffee and coffee beans", 3)
	if len(kws) == 0 {
		t.Fatal("no keywords")
	}
	if len(kws) > 3 {
		t.Errorf("limit exceeded: %v", kws)
	}
	// "coffee" appears twice and must rank first.
	if kws[0] != "coffee" {
		t.Errorf("top keyword: got %q, want coffee", kws[0])
	}
	for _, kw := range kws {
		if kw == "and" || kw == "i" {
			t.Errorf("stopword or single rune kept: %v", kws)
		}
	}
}

func TestKeywords_FallbackWhenAllFiltered(t *testing.T) {
	// Every token is a stopword; the raw-token fallback still fires.
	kws := extract.Keywords("it is so", 5)
	if len(kws) == 0 {
		t.Fatal("fallback produced nothing")
	}
}
