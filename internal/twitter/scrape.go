package twitter

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/xaenox/secondbrain/internal/fetcher"
	"github.com/xaenox/secondbrain/internal/models"
	"go.uber.org/zap"
)

const (
	// CrawlerUserAgent asks the origin for its bot-specific server render.
	CrawlerUserAgent = "Mozilla/5.0 (compatible; Googlebot/2.1; +http://www.google.com/bot.html)"

	scrapeTierName    = "scrape"
	scrapeTitle       = "Twitter Article"
	maxScrapeBodySize = 5 << 20
)

// scrape reads Open Graph tags off the original tweet page.
func (e *Extractor) scrape(ctx context.Context, rawURL string) tierResult {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return absent()
	}
	req.Header.Set("User-Agent", e.scrapeUserAgent)

	resp, err := e.httpClient.Do(req)
	if err != nil {
		e.logger.Warn("Metadata scrape failed", zap.String("url", rawURL), zap.Error(err))
		return absent()
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		e.logger.Info("Metadata scrape returned non-2xx", zap.Int("status", resp.StatusCode))
		return absent()
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxScrapeBodySize))
	if err != nil {
		return absent()
	}

	doc := string(body)
	meta := fetcher.MetaTags(doc)
	title := meta["og:title"]
	desc := meta["og:description"]
	if title == "" && desc == "" {
		return absent()
	}

	text := fmt.Sprintf(`
TWEET/ARTICLE METADATA:
Title: %s
Description: %s

(Full content not available via API, analyzed based on preview metadata)
`, title, desc)

	if title == "" {
		title = scrapeTitle
	}
	return tierResult{
		outcome: OutcomeValid,
		result:  models.FetchResult{RawText: text, Title: title},
	}
}
