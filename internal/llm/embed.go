package llm

import (
	"context"
	"errors"
	"fmt"

	"github.com/sashabaranov/go-openai"
	"google.golang.org/genai"
)

const (
	defaultGeminiEmbeddingModel = "gemini-embedding-001"
	defaultOpenAIEmbeddingModel = openai.SmallEmbedding3
	DefaultEmbeddingDimensions  = 768
)

// EmbedTask tells the backend how the vector will be used. Gemini tunes
// document and query vectors differently; OpenAI ignores it.
type EmbedTask string

const (
	TaskRetrievalDocument EmbedTask = "RETRIEVAL_DOCUMENT"
	TaskRetrievalQuery    EmbedTask = "RETRIEVAL_QUERY"
)

// Embedder turns text into a fixed-size vector for similarity search.
type Embedder interface {
	Embed(ctx context.Context, text string, task EmbedTask) ([]float32, error)
}

func embeddingDimensions(n int) int {
	if n <= 0 {
		return DefaultEmbeddingDimensions
	}
	return n
}

func (c *GeminiClient) Embed(ctx context.Context, text string, task EmbedTask) ([]float32, error) {
	contents := []*genai.Content{
		genai.NewContentFromText(text, genai.RoleUser),
	}

	result, err := c.client.Models.EmbedContent(ctx, c.embedModel, contents, &genai.EmbedContentConfig{
		TaskType:             string(task),
		OutputDimensionality: genai.Ptr(int32(c.embedDims)),
	})
	if err != nil {
		return nil, fmt.Errorf("gemini embed failed: %w", err)
	}

	if len(result.Embeddings) == 0 || len(result.Embeddings[0].Values) == 0 {
		return nil, errors.New("no embeddings returned from gemini")
	}
	return result.Embeddings[0].Values, nil
}

func (c *OpenAIClient) Embed(ctx context.Context, text string, _ EmbedTask) ([]float32, error) {
	resp, err := c.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input:      []string{text},
		Model:      c.embedModel,
		Dimensions: c.embedDims,
	})
	if err != nil {
		return nil, fmt.Errorf("openai embed failed: %w", err)
	}

	if len(resp.Data) == 0 || len(resp.Data[0].Embedding) == 0 {
		return nil, errors.New("no embeddings returned from openai")
	}
	return resp.Data[0].Embedding, nil
}
