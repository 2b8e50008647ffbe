package ingest

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/xaenox/secondbrain/internal/fetcher"
	"github.com/xaenox/secondbrain/internal/llm"
	"github.com/xaenox/secondbrain/internal/models"
	"github.com/xaenox/secondbrain/internal/storage"
	"go.uber.org/zap"
)

const (
	DegradedSummary  = "Processing failed. Click to view original."
	DegradedCategory = "Uncategorized"
	DegradedTag      = "Processing Failed"

	wordsPerMinute  = 200
	maxSnippetRunes = 10000
)

var ErrInvalidURL = errors.New("invalid URL: expected an absolute http(s) address")

// Analyzer turns fetched content into a knowledge card. It must not fail.
type Analyzer interface {
	Analyze(ctx context.Context, rawURL, content string, existingTags []string) models.AnalysisResult
}

// Chatter answers a question grounded in one link. It must not fail.
type Chatter interface {
	Chat(ctx context.Context, content string, chatCtx models.ChatContext, messages []models.ChatMessage) string
}

// Embedder vectorizes text for semantic search.
type Embedder interface {
	Embed(ctx context.Context, text string, task llm.EmbedTask) ([]float32, error)
}

// Service runs the ingestion pipeline and persists its result.
type Service struct {
	source    fetcher.Source
	analyzer  Analyzer
	assistant Chatter
	embedder  Embedder
	store     storage.Storage
	logger    *zap.Logger
	now       func() time.Time
}

// ServiceOption configures optional parts of a Service.
type ServiceOption func(*Service)

// WithEmbedder enables semantic search. Without it links are stored
// without vectors and Search returns ErrSearchUnavailable.
func WithEmbedder(e Embedder) ServiceOption {
	return func(s *Service) {
		s.embedder = e
	}
}

func NewService(source fetcher.Source, analyzer Analyzer, assistant Chatter, store storage.Storage, logger *zap.Logger, opts ...ServiceOption) *Service {
	s := &Service{
		source:    source,
		analyzer:  analyzer,
		assistant: assistant,
		store:     store,
		logger:    logger,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ValidateURL checks that rawURL is an absolute http(s) URL.
func ValidateURL(rawURL string) (string, error) {
	rawURL = strings.TrimSpace(rawURL)
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return "", ErrInvalidURL
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", ErrInvalidURL
	}
	return rawURL, nil
}

// Analyze fetches and analyzes rawURL without persisting anything.
func (s *Service) Analyze(ctx context.Context, rawURL string, existingTags []string) (models.AnalysisResult, error) {
	rawURL, err := ValidateURL(rawURL)
	if err != nil {
		return models.AnalysisResult{}, err
	}

	fetched := s.source.Fetch(ctx, rawURL)
	return s.analyzer.Analyze(ctx, rawURL, fetched.RawText, existingTags), nil
}

// Ingest saves rawURL for userID. Pipeline failures produce a degraded
// link that is still stored; only invalid input and storage errors are returned.
func (s *Service) Ingest(ctx context.Context, userID int64, rawURL string) (*models.Link, error) {
	rawURL, err := ValidateURL(rawURL)
	if err != nil {
		return nil, err
	}

	existingTags, err := s.store.GetUserTags(ctx, userID)
	if err != nil {
		s.logger.Warn("Failed to load user tags",
			zap.Error(err),
			zap.Int64("user_id", userID))
		existingTags = nil
	}

	link := s.process(ctx, userID, rawURL, existingTags)
	s.embed(ctx, link)

	if err := s.store.SaveLink(ctx, link); err != nil {
		s.logger.Error("Failed to save link",
			zap.Error(err),
			zap.String("link_id", link.ID),
			zap.Int64("user_id", userID))
		return nil, fmt.Errorf("failed to save link: %w", err)
	}

	s.updateVocabulary(ctx, link)

	s.logger.Info("Link ingested",
		zap.String("link_id", link.ID),
		zap.String("url", rawURL),
		zap.String("category", link.Category),
		zap.Bool("degraded", link.Degraded))

	return link, nil
}

// process never panics. Anything that goes wrong after the fetch starts
// still yields a link the user can open later.
func (s *Service) process(ctx context.Context, userID int64, rawURL string, existingTags []string) (link *models.Link) {
	link = &models.Link{
		ID:        uuid.New().String(),
		UserID:    userID,
		URL:       rawURL,
		Status:    models.StatusUnread,
		CreatedAt: s.now(),
	}

	var fetched models.FetchResult
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("Ingestion panicked, saving degraded link",
				zap.String("url", rawURL),
				zap.Any("panic", r))
			degrade(link, fetched.Title)
		}
	}()

	fetched = s.source.Fetch(ctx, rawURL)
	analysis := s.analyzer.Analyze(ctx, rawURL, fetched.RawText, existingTags)

	link.ApplyAnalysis(analysis)
	link.OriginalTitle = fetched.Title
	text := readableText(fetched.RawText)
	link.EstimatedReadTime = EstimateReadTime(text)
	link.ContentSnippet = snippet(text)
	return link
}

func degrade(link *models.Link, fetchedTitle string) {
	title := fetchedTitle
	if title == "" {
		title = link.URL
	}
	link.ApplyAnalysis(models.AnalysisResult{
		Title:    title,
		Summary:  DegradedSummary,
		Category: DegradedCategory,
		Tags:     []string{DegradedTag},
	})
	link.OriginalTitle = fetchedTitle
	link.EstimatedReadTime = 0
	link.ContentSnippet = ""
	link.Degraded = true
}

func (s *Service) updateVocabulary(ctx context.Context, link *models.Link) {
	if err := s.store.AddCategory(ctx, link.UserID, link.Category); err != nil {
		s.logger.Error("Failed to save category",
			zap.Error(err),
			zap.Int64("user_id", link.UserID),
			zap.String("category", link.Category))
	}

	for _, tag := range link.Tags {
		if err := s.store.AddTag(ctx, link.UserID, tag); err != nil {
			s.logger.Error("Failed to save tag",
				zap.Error(err),
				zap.Int64("user_id", link.UserID),
				zap.String("tag", tag))
		}
	}

	if err := s.store.SetLastLink(ctx, link.UserID, link.ID); err != nil {
		s.logger.Error("Failed to set last link",
			zap.Error(err),
			zap.Int64("user_id", link.UserID),
			zap.String("link_id", link.ID))
	}
}

// Ask answers the newest user message in messages about a saved link.
// An empty linkID means the user's most recently saved link.
func (s *Service) Ask(ctx context.Context, userID int64, linkID string, messages []models.ChatMessage) (string, error) {
	if linkID == "" {
		user, err := s.store.GetUser(ctx, userID)
		if err != nil {
			return "", fmt.Errorf("failed to load user: %w", err)
		}
		if user.LastLinkID == "" {
			return "", storage.ErrNotFound
		}
		linkID = user.LastLinkID
	}

	link, err := s.store.GetLink(ctx, userID, linkID)
	if err != nil {
		return "", fmt.Errorf("failed to load link %s: %w", linkID, err)
	}

	return s.assistant.Chat(ctx, link.ContentSnippet, link.ChatContext(), messages), nil
}

// EstimateReadTime returns whole minutes at 200 words per minute, at least 1.
func EstimateReadTime(text string) int {
	minutes := len(strings.Fields(text)) / wordsPerMinute
	if minutes < 1 {
		return 1
	}
	return minutes
}

// readableText strips markup from fetched pages so read time and the chat
// snippet reflect visible text. Extractor output is already plain.
func readableText(raw string) string {
	if fetcher.LooksLikeHTML(raw) {
		return fetcher.PlainText(raw)
	}
	return raw
}

func snippet(text string) string {
	runes := []rune(text)
	if len(runes) <= maxSnippetRunes {
		return text
	}
	return string(runes[:maxSnippetRunes])
}
