package ingest

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/xaenox/secondbrain/internal/llm"
	"github.com/xaenox/secondbrain/internal/models"
	"go.uber.org/zap"
)

const DefaultSearchLimit = 10

var (
	ErrSearchUnavailable = errors.New("semantic search is not configured")
	ErrEmptyQuery        = errors.New("search query is empty")
)

// SearchHit is one ranked result of a semantic search.
type SearchHit struct {
	Link       *models.Link
	Similarity float64
}

// embed attaches a document vector to link. Failures only cost the link
// its place in search results.
func (s *Service) embed(ctx context.Context, link *models.Link) {
	if s.embedder == nil {
		return
	}

	vec, err := s.embedder.Embed(ctx, link.EmbeddingText(), llm.TaskRetrievalDocument)
	if err != nil {
		s.logger.Warn("Failed to embed link",
			zap.Error(err),
			zap.String("link_id", link.ID))
		return
	}
	link.Embedding = vec
}

// Search ranks the user's links by cosine similarity to query, best first.
// Links saved without a vector are skipped.
func (s *Service) Search(ctx context.Context, userID int64, query string, limit int) ([]SearchHit, error) {
	if s.embedder == nil {
		return nil, ErrSearchUnavailable
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}
	if limit <= 0 {
		limit = DefaultSearchLimit
	}

	vec, err := s.embedder.Embed(ctx, query, llm.TaskRetrievalQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	links, err := s.store.ListLinks(ctx, userID, 0, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to list links: %w", err)
	}

	hits := make([]SearchHit, 0, len(links))
	skipped := 0
	for _, link := range links {
		sim, err := CosineSimilarity(vec, link.Embedding)
		if err != nil {
			skipped++
			continue
		}
		hits = append(hits, SearchHit{Link: link, Similarity: sim})
	}

	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Similarity > hits[j].Similarity
	})
	if len(hits) > limit {
		hits = hits[:limit]
	}

	s.logger.Debug("Semantic search finished",
		zap.Int64("user_id", userID),
		zap.Int("candidates", len(links)),
		zap.Int("skipped", skipped),
		zap.Int("hits", len(hits)))
	return hits, nil
}

// CosineSimilarity returns a value in [-1, 1]. Vectors of different length,
// including a missing one, are an error; a zero vector scores 0.
func CosineSimilarity(a, b []float32) (float64, error) {
	if len(a) == 0 || len(a) != len(b) {
		return 0, fmt.Errorf("vectors must have the same non-zero length: %d != %d", len(a), len(b))
	}

	var dot, aMag, bMag float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		aMag += x * x
		bMag += y * y
	}
	if aMag == 0 || bMag == 0 {
		return 0, nil
	}
	return dot / (math.Sqrt(aMag) * math.Sqrt(bMag)), nil
}
