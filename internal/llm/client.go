package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/xaenox/secondbrain/internal/models"
	"go.uber.org/zap"
)

// Client is a generative backend used in two modes: single-shot JSON
// completion for analysis and multi-turn chat for the assistant. Every
// client also embeds text for semantic search.
type Client interface {
	Embedder
	CompleteJSON(ctx context.Context, prompt string) (string, error)
	Converse(ctx context.Context, history []models.ChatMessage, message string) (string, error)
	Name() string
}

type Config struct {
	Provider    string
	APIKey      string
	Model       string
	BaseURL     string
	MaxTokens   int
	Temperature float64

	// EmbeddingModel and EmbeddingDimensions configure Embed. Zero values
	// pick the provider default at 768 dimensions.
	EmbeddingModel      string
	EmbeddingDimensions int
}

// New returns the client for cfg.Provider, or nil when no API key is set.
// Callers treat a nil client as offline mode.
func New(ctx context.Context, cfg Config, logger *zap.Logger) (Client, error) {
	if cfg.APIKey == "" {
		logger.Info("No AI credential configured, running offline")
		return nil, nil
	}

	switch strings.ToLower(cfg.Provider) {
	case "openai":
		logger.Info("Using OpenAI backend", zap.String("model", cfg.Model))
		return NewOpenAIClient(cfg), nil
	case "gemini", "":
		logger.Info("Using Gemini backend", zap.String("model", cfg.Model))
		return NewGeminiClient(ctx, cfg)
	default:
		return nil, fmt.Errorf("unknown AI provider %q", cfg.Provider)
	}
}

// CleanJSON strips markdown fences and surrounding prose from a model reply.
func CleanJSON(content string) string {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	content = strings.TrimSpace(content)

	// Some model responses include extra prose around JSON.
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start >= 0 && end > start {
		content = content[start : end+1]
	}
	return content
}
