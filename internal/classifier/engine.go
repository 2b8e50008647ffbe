package classifier

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/xaenox/secondbrain/internal/llm"
	"github.com/xaenox/secondbrain/internal/models"
	"go.uber.org/zap"
)

const (
	DefaultMaxContentChars = 30000

	minTags = 3
	maxTags = 5
)

var errIncompleteAnalysis = errors.New("analysis is missing required fields")

type Config struct {
	OfflineMode     bool
	MaxContentChars int
}

// Engine produces an AnalysisResult for every URL. It tries the AI backend
// when one is configured and falls back to the heuristic analyzer on any failure.
type Engine struct {
	client    llm.Client
	heuristic *HeuristicAnalyzer
	cfg       Config
	logger    *zap.Logger
}

// NewEngine builds an engine. A nil client means no credential is configured.
func NewEngine(client llm.Client, cfg Config, logger *zap.Logger) *Engine {
	if cfg.MaxContentChars <= 0 {
		cfg.MaxContentChars = DefaultMaxContentChars
	}
	return &Engine{
		client:    client,
		heuristic: NewHeuristicAnalyzer(),
		cfg:       cfg,
		logger:    logger,
	}
}

// Online reports whether Analyze will attempt the AI backend.
func (e *Engine) Online() bool {
	return e.client != nil && !e.cfg.OfflineMode
}

// Analyze never fails.
func (e *Engine) Analyze(ctx context.Context, rawURL, content string, existingTags []string) models.AnalysisResult {
	if !e.Online() {
		e.logger.Debug("Offline analysis", zap.String("url", rawURL))
		return e.heuristic.Analyze(rawURL)
	}

	result, err := e.analyzeWithAI(ctx, rawURL, content, existingTags)
	if err != nil {
		e.logger.Warn("AI analysis failed, using heuristic fallback",
			zap.String("url", rawURL),
			zap.String("backend", e.client.Name()),
			zap.Error(err))
		return e.heuristic.Analyze(rawURL)
	}

	return result
}

func (e *Engine) analyzeWithAI(ctx context.Context, rawURL, content string, existingTags []string) (result models.AnalysisResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("AI analysis panicked: %v", r)
		}
	}()

	prompt := buildPrompt(rawURL, content, existingTags, e.cfg.MaxContentChars)

	response, err := e.client.CompleteJSON(ctx, prompt)
	if err != nil {
		return models.AnalysisResult{}, err
	}

	cleaned := llm.CleanJSON(response)
	result, dropped, err := decodeAnalysis([]byte(cleaned))
	if err != nil {
		e.logger.Error("Failed to parse AI response",
			zap.Error(err),
			zap.String("response", cleaned))
		return models.AnalysisResult{}, fmt.Errorf("failed to parse AI response: %w", err)
	}
	if len(dropped) > 0 {
		e.logger.Warn("Dropped mistyped optional fields from AI response",
			zap.String("url", rawURL),
			zap.Strings("fields", dropped))
	}

	return e.complete(rawURL, result)
}

// complete rejects results without their core fields and fills the softer
// gaps from the heuristic result so callers always get a full card.
func (e *Engine) complete(rawURL string, result models.AnalysisResult) (models.AnalysisResult, error) {
	result.Title = strings.TrimSpace(result.Title)
	result.Summary = strings.TrimSpace(result.Summary)
	result.Category = strings.TrimSpace(result.Category)
	if result.Title == "" || result.Summary == "" || result.Category == "" {
		return models.AnalysisResult{}, errIncompleteAnalysis
	}

	fallback := e.heuristic.Analyze(rawURL)

	if strings.TrimSpace(result.DetailedSummary) == "" {
		result.DetailedSummary = fallback.DetailedSummary
	}
	if strings.TrimSpace(result.ActionableTakeaway) == "" {
		result.ActionableTakeaway = fallback.ActionableTakeaway
	}
	result.Tags = normalizeTags(result.Tags, fallback.Tags)

	if result.Confidence < 0 {
		result.Confidence = 0
	}
	if result.Confidence > 1 {
		result.Confidence = 1
	}

	return result, nil
}

// normalizeTags trims and dedupes tags, caps them at maxTags and pads from
// fallback up to minTags.
func normalizeTags(tags, fallback []string) []string {
	seen := make(map[string]struct{}, maxTags)
	out := make([]string, 0, maxTags)

	add := func(tag string) {
		tag = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(tag), "#"))
		key := strings.ToLower(tag)
		if tag == "" || len(out) >= maxTags {
			return
		}
		if _, ok := seen[key]; ok {
			return
		}
		seen[key] = struct{}{}
		out = append(out, tag)
	}

	for _, tag := range tags {
		add(tag)
	}
	for _, tag := range fallback {
		if len(out) >= minTags {
			break
		}
		add(tag)
	}
	return out
}
