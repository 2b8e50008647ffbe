package fetcher

import (
	"context"
	"fmt"
	"html"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/xaenox/secondbrain/internal/models"
	"go.uber.org/zap"
)

// BrowserUserAgent is sent by the page fetcher; many origins reject
// default or bot-looking agents.
const BrowserUserAgent = "Mozilla/5.0 (iPhone; CPU iPhone OS 15_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/15.0 Mobile/15E148 Safari/604.1"

const defaultMaxBodyBytes = 5 << 20

var titlePattern = regexp.MustCompile(`(?is)<title[^>]*>(.*?)</title>`)

// PageFetcher performs a single GET against an arbitrary page.
type PageFetcher struct {
	httpClient   *http.Client
	userAgent    string
	maxBodyBytes int64
	logger       *zap.Logger
}

// Option configures a PageFetcher.
type Option func(*PageFetcher)

func WithHTTPClient(c *http.Client) Option {
	return func(f *PageFetcher) {
		f.httpClient = c
	}
}

func WithTimeout(d time.Duration) Option {
	return func(f *PageFetcher) {
		if d > 0 {
			f.httpClient.Timeout = d
		}
	}
}

func WithUserAgent(ua string) Option {
	return func(f *PageFetcher) {
		if ua != "" {
			f.userAgent = ua
		}
	}
}

func WithMaxBodyBytes(n int64) Option {
	return func(f *PageFetcher) {
		if n > 0 {
			f.maxBodyBytes = n
		}
	}
}

func NewPageFetcher(logger *zap.Logger, opts ...Option) *PageFetcher {
	f := &PageFetcher{
		httpClient:   &http.Client{Timeout: 15 * time.Second},
		userAgent:    BrowserUserAgent,
		maxBodyBytes: defaultMaxBodyBytes,
		logger:       logger,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch never fails: on any error it returns empty RawText and the URL's
// hostname as title. There is exactly one attempt.
func (f *PageFetcher) Fetch(ctx context.Context, rawURL string) models.FetchResult {
	host := Hostname(rawURL)

	text, err := f.Get(ctx, rawURL, nil)
	if err != nil {
		f.logger.Warn("Page fetch failed", zap.String("url", rawURL), zap.Error(err))
		return models.FetchResult{Title: host}
	}

	title := ExtractTitle(text)
	if title == "" {
		title = host
	}

	return models.FetchResult{RawText: text, Title: title}
}

// Get performs one GET and returns the body, capped at the configured size.
// header entries override the default User-Agent. A non-2xx status is an error.
func (f *PageFetcher) Get(ctx context.Context, rawURL string, header http.Header) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	for key, values := range header {
		req.Header[http.CanonicalHeaderKey(key)] = values
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBodyBytes))
	if err != nil {
		return "", fmt.Errorf("failed to read body: %w", err)
	}
	return string(body), nil
}

// ExtractTitle returns the first <title> of an HTML document, or "".
func ExtractTitle(doc string) string {
	m := titlePattern.FindStringSubmatch(doc)
	if m == nil {
		return ""
	}
	return strings.Join(strings.Fields(html.UnescapeString(m[1])), " ")
}

// Hostname returns the URL host, or the raw input if it cannot be parsed.
func Hostname(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return rawURL
	}
	return u.Hostname()
}
