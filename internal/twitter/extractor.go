package twitter

import (
	"context"
	"net/http"
	"time"

	"github.com/xaenox/secondbrain/internal/models"
	"go.uber.org/zap"
)

// FallbackTitle is returned with empty content once every tier is exhausted.
const FallbackTitle = "Twitter/X Post"

// Policy holds the empirically tuned validity bars. They are not provider
// guarantees and may need retuning as the mirrors change.
type Policy struct {
	// MinTextLength is the rune count mirror B text must exceed when no
	// media is attached.
	MinTextLength int
}

func DefaultPolicy() Policy {
	return Policy{MinTextLength: 100}
}

type Config struct {
	MirrorAHost     string
	MirrorBHost     string
	ScrapeUserAgent string
	Timeout         time.Duration
	Policy          Policy
}

// Extractor resolves a tweet URL through mirror A, mirror B and a metadata
// scrape, in that order, stopping at the first valid tier.
type Extractor struct {
	httpClient      *http.Client
	mirrorAHost     string
	mirrorBHost     string
	scrapeUserAgent string
	policy          Policy
	logger          *zap.Logger
}

type ExtractorOption func(*Extractor)

func WithHTTPClient(c *http.Client) ExtractorOption {
	return func(e *Extractor) {
		e.httpClient = c
	}
}

func NewExtractor(cfg Config, logger *zap.Logger, opts ...ExtractorOption) *Extractor {
	e := &Extractor{
		httpClient:      &http.Client{Timeout: 15 * time.Second},
		mirrorAHost:     cfg.MirrorAHost,
		mirrorBHost:     cfg.MirrorBHost,
		scrapeUserAgent: cfg.ScrapeUserAgent,
		policy:          cfg.Policy,
		logger:          logger,
	}
	if cfg.Timeout > 0 {
		e.httpClient.Timeout = cfg.Timeout
	}
	if e.mirrorAHost == "" {
		e.mirrorAHost = "api.fxtwitter.com"
	}
	if e.mirrorBHost == "" {
		e.mirrorBHost = "api.vxtwitter.com"
	}
	if e.scrapeUserAgent == "" {
		e.scrapeUserAgent = CrawlerUserAgent
	}
	if e.policy.MinTextLength <= 0 {
		e.policy = DefaultPolicy()
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// runTier isolates one tier: a panic inside it counts as no result.
func (e *Extractor) runTier(ctx context.Context, name, rawURL string, tier func(context.Context, string) tierResult) (res tierResult) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("Tier panicked", zap.String("tier", name), zap.Any("panic", r))
			res = absent()
		}
	}()

	res = tier(ctx, rawURL)
	e.logger.Info("Twitter tier finished",
		zap.String("tier", name),
		zap.Stringer("outcome", res.outcome),
		zap.String("url", rawURL))
	return res
}

// Fetch never fails; when nothing usable is found it returns empty content
// titled FallbackTitle.
func (e *Extractor) Fetch(ctx context.Context, rawURL string) models.FetchResult {
	a := e.runTier(ctx, MirrorAName, rawURL, e.mirrorA)
	if a.outcome == OutcomeValid {
		return a.result
	}

	var thin *models.FetchResult
	b := e.runTier(ctx, MirrorBName, rawURL, e.mirrorB)
	switch b.outcome {
	case OutcomeValid:
		return b.result
	case OutcomeThin:
		thin = &b.result
	}

	s := e.runTier(ctx, scrapeTierName, rawURL, e.scrape)
	if s.outcome == OutcomeValid {
		return s.result
	}

	if thin != nil {
		e.logger.Info("Scrape failed, using thin mirror result", zap.String("url", rawURL))
		return *thin
	}

	e.logger.Warn("All Twitter tiers exhausted", zap.String("url", rawURL))
	return models.FetchResult{Title: FallbackTitle}
}
