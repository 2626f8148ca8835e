package classify

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"go.uber.org/zap"
)

const llmSystemPrompt = "You classify short memory snippets from a conversation. " +
	"Respond with a single JSON object mapping each given category to a relevance score " +
	"between 0 and 1. No prose, no code fences."

// LLMConfig configures the Claude-backed classifier.
type LLMConfig struct {
	// Model selects the Claude model. Default: claude-3-5-haiku-latest.
	Model string

	// MaxTokens bounds the response. Default: 256.
	MaxTokens int64

	// MaxConcurrent bounds in-flight API calls; extra callers wait.
	// Default: 3.
	MaxConcurrent int
}

// LLM classifies text by asking Claude for per-category scores. Outbound
// calls pass through a bounded-concurrency gate so a rate-limited
// provider is never overwhelmed; callers beyond the limit wait rather
// than fail.
type LLM struct {
	client     *anthropic.Client
	categories []string
	cfg        LLMConfig
	gate       chan struct{}
	logger     *zap.Logger
}

// NewLLM builds the classifier over the given ordered category set.
func NewLLM(client *anthropic.Client, categories []string, cfg LLMConfig, logger *zap.Logger) *LLM {
	if cfg.Model == "" {
		cfg.Model = "claude-3-5-haiku-latest"
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 256
	}
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = 3
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LLM{
		client:     client,
		categories: categories,
		cfg:        cfg,
		gate:       make(chan struct{}, cfg.MaxConcurrent),
		logger:     logger,
	}
}

// Classify asks the model to score text against every category.
func (l *LLM) Classify(ctx context.Context, text string) (map[string]float64, error) {
	select {
	case l.gate <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	defer func() { <-l.gate }()

	prompt := fmt.Sprintf("Categories: %s\n\nText: %q", strings.Join(l.categories, ", "), text)
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(l.cfg.Model),
		MaxTokens: l.cfg.MaxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
		System: []anthropic.TextBlockParam{
			{Text: llmSystemPrompt},
		},
	}

	resp, err := l.client.Messages.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("claude API error: %w", err)
	}

	var raw string
	for _, block := range resp.Content {
		if block.Type == "text" {
			raw += block.Text
		}
	}

	scores, err := parseScores(raw, l.categories)
	if err != nil {
		l.logger.Warn("unparseable classification response",
			zap.String("response", raw), zap.Error(err))
		return nil, err
	}
	return scores, nil
}

// parseScores extracts the first JSON object from the response and keeps
// only known categories, clamping each score to [0, 1].
func parseScores(raw string, categories []string) (map[string]float64, error) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return nil, fmt.Errorf("no JSON object in response")
	}

	var parsed map[string]float64
	if err := json.Unmarshal([]byte(raw[start:end+1]), &parsed); err != nil {
		return nil, fmt.Errorf("parse scores: %w", err)
	}

	scores := make(map[string]float64, len(categories))
	for _, cat := range categories {
		v, ok := parsed[cat]
		if !ok {
			continue
		}
		if v < 0 {
			v = 0
		}
		if v > 1 {
			v = 1
		}
		scores[cat] = v
	}
	return scores, nil
}
