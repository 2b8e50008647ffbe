package llm

import (
	"context"
	"errors"
	"fmt"

	"github.com/xaenox/secondbrain/internal/models"
	"google.golang.org/genai"
)

const defaultGeminiModel = "gemini-2.0-flash"

// GeminiClient talks to the Gemini API through the genai SDK.
type GeminiClient struct {
	client      *genai.Client
	model       string
	maxTokens   int32
	temperature float32
	embedModel  string
	embedDims   int
}

func NewGeminiClient(ctx context.Context, cfg Config) (*GeminiClient, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("gemini API key is required")
	}

	clientCfg := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		clientCfg.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}

	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	model := cfg.Model
	if model == "" {
		model = defaultGeminiModel
	}

	embedModel := cfg.EmbeddingModel
	if embedModel == "" {
		embedModel = defaultGeminiEmbeddingModel
	}

	return &GeminiClient{
		client:      client,
		model:       model,
		maxTokens:   int32(cfg.MaxTokens),
		temperature: float32(cfg.Temperature),
		embedModel:  embedModel,
		embedDims:   embeddingDimensions(cfg.EmbeddingDimensions),
	}, nil
}

func (c *GeminiClient) generationConfig() *genai.GenerateContentConfig {
	return &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(c.temperature),
		MaxOutputTokens: c.maxTokens,
	}
}

func (c *GeminiClient) CompleteJSON(ctx context.Context, prompt string) (string, error) {
	config := c.generationConfig()
	config.ResponseMIMEType = "application/json"

	resp, err := c.client.Models.GenerateContent(ctx, c.model, genai.Text(prompt), config)
	if err != nil {
		return "", fmt.Errorf("gemini generate failed: %w", err)
	}

	text := resp.Text()
	if text == "" {
		return "", errors.New("empty response from gemini")
	}
	return text, nil
}

// Converse opens a fresh chat seeded with history and sends message.
func (c *GeminiClient) Converse(ctx context.Context, history []models.ChatMessage, message string) (string, error) {
	contents := make([]*genai.Content, 0, len(history))
	for _, m := range history {
		role := genai.Role(genai.RoleUser)
		if m.Role == models.RoleAssistant {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(m.Text, role))
	}

	chat, err := c.client.Chats.Create(ctx, c.model, c.generationConfig(), contents)
	if err != nil {
		return "", fmt.Errorf("gemini chat create failed: %w", err)
	}

	resp, err := chat.SendMessage(ctx, genai.Part{Text: message})
	if err != nil {
		return "", fmt.Errorf("gemini chat send failed: %w", err)
	}

	text := resp.Text()
	if text == "" {
		return "", errors.New("empty chat reply from gemini")
	}
	return text, nil
}

func (c *GeminiClient) Name() string {
	return "gemini:" + c.model
}
