package fetcher

import (
	"context"
	"net/url"
	"strings"

	"github.com/xaenox/secondbrain/internal/models"
	"go.uber.org/zap"
)

// Source produces a FetchResult for a URL without ever failing.
type Source interface {
	Fetch(ctx context.Context, rawURL string) models.FetchResult
}

var socialHosts = map[string]struct{}{
	"twitter.com": {},
	"x.com":       {},
}

// NormalizeHost lower-cases host and strips www. and mobile. prefixes.
func NormalizeHost(host string) string {
	host = strings.ToLower(strings.TrimSuffix(host, "."))
	host = strings.TrimPrefix(host, "www.")
	host = strings.TrimPrefix(host, "mobile.")
	return host
}

// IsTwitterURL reports whether rawURL points at Twitter/X.
func IsTwitterURL(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	_, ok := socialHosts[NormalizeHost(u.Hostname())]
	return ok
}

// Dispatcher routes a URL to the Twitter extractor, an optional Instagram
// or YouTube extractor, or the page fetcher.
type Dispatcher struct {
	page      Source
	social    Source
	instagram Source
	youtube   Source
	logger    *zap.Logger
}

// DispatcherOption registers an extra extractor.
type DispatcherOption func(*Dispatcher)

func WithInstagram(src Source) DispatcherOption {
	return func(d *Dispatcher) {
		d.instagram = src
	}
}

func WithYouTube(src Source) DispatcherOption {
	return func(d *Dispatcher) {
		d.youtube = src
	}
}

func NewDispatcher(page, social Source, logger *zap.Logger, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		page:   page,
		social: social,
		logger: logger,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Fetch checks Twitter first, then Instagram, then YouTube. Hosts without a
// registered extractor go to the page fetcher.
func (d *Dispatcher) Fetch(ctx context.Context, rawURL string) models.FetchResult {
	switch {
	case IsTwitterURL(rawURL):
		d.logger.Debug("Dispatching to Twitter extractor", zap.String("url", rawURL))
		return d.social.Fetch(ctx, rawURL)
	case d.instagram != nil && IsInstagramURL(rawURL):
		d.logger.Debug("Dispatching to Instagram extractor", zap.String("url", rawURL))
		return d.instagram.Fetch(ctx, rawURL)
	case d.youtube != nil && IsYouTubeURL(rawURL):
		d.logger.Debug("Dispatching to YouTube extractor", zap.String("url", rawURL))
		return d.youtube.Fetch(ctx, rawURL)
	}

	d.logger.Debug("Dispatching to page fetcher", zap.String("url", rawURL))
	return d.page.Fetch(ctx, rawURL)
}
