package fetcher

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/xaenox/secondbrain/internal/models"
	"go.uber.org/zap"
)

// InstagramUserAgent gets the server-rendered mobile page, which still
// carries Open Graph tags for public posts.
const InstagramUserAgent = "Mozilla/5.0 (iPhone; CPU iPhone OS 16_6 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/16.6 Mobile/15E148 Safari/604.1"

const (
	DefaultInstagramTitle = "Instagram Link"
	instagramFailedText   = "Instagram content (metadata extraction failed)"
	placeholderTitle      = "Instagram Post"

	thinDescription   = 100
	enoughDescription = 200
	minDescription    = 20
	minCaption        = 5
	maxDerivedTitle   = 100

	sectionSeparator = "\n\n---\n\n"
)

// DefaultBridges are embed-fixing mirrors that serve Open Graph tags for
// posts Instagram hides behind a login wall.
var DefaultBridges = []string{"instagramez.com", "kkinstagram.com", "ddinstagram.com"}

var genericTitles = map[string]struct{}{
	"Instagram Post":    {},
	"Instagram":         {},
	"Open in App":       {},
	"Login • Instagram": {},
	"Instagram Video":   {},
	"Instagram Reel":    {},
}

var captionNoise = []string{
	"Check out this reel!",
	"Watch this reel by",
	"Instagram post by",
	"See this post on Instagram",
	"Watch this video on Instagram",
}

var (
	titleKeys       = []string{"og:title", "twitter:title", "title"}
	descriptionKeys = []string{"og:description", "twitter:description", "description"}
)

var instagramHosts = map[string]struct{}{
	"instagram.com":   {},
	"m.instagram.com": {},
	"instagr.am":      {},
}

// IsInstagramURL reports whether rawURL points at Instagram.
func IsInstagramURL(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	_, ok := instagramHosts[NormalizeHost(u.Hostname())]
	return ok
}

type InstagramConfig struct {
	Bridges       []string
	BridgeTimeout time.Duration
}

// InstagramFetcher scrapes the post page directly and falls back to bridge
// mirrors when the description is thin. A caption shared alongside the URL
// in the chat message is used as a last source.
type InstagramFetcher struct {
	page          *PageFetcher
	bridges       []string
	bridgeTimeout time.Duration
	logger        *zap.Logger
}

func NewInstagramFetcher(page *PageFetcher, cfg InstagramConfig, logger *zap.Logger) *InstagramFetcher {
	bridges := cfg.Bridges
	if bridges == nil {
		bridges = DefaultBridges
	}
	timeout := cfg.BridgeTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &InstagramFetcher{
		page:          page,
		bridges:       bridges,
		bridgeTimeout: timeout,
		logger:        logger,
	}
}

type postMeta struct {
	title    string
	sections []string
	desc     string
}

func (m *postMeta) add(label, text string) {
	m.sections = append(m.sections, label+":\n"+text)
}

// Fetch never fails. With nothing found it returns DefaultInstagramTitle
// and a placeholder text.
func (f *InstagramFetcher) Fetch(ctx context.Context, rawURL string) models.FetchResult {
	post := &postMeta{title: placeholderTitle}

	f.direct(ctx, rawURL, post)
	if len([]rune(post.desc)) < thinDescription {
		f.tryBridges(ctx, rawURL, post)
	}
	applyCaption(post, rawURL, MessageFromContext(ctx))

	if len(post.sections) == 0 && post.desc == "" {
		f.logger.Warn("Instagram metadata extraction failed", zap.String("url", rawURL))
		return models.FetchResult{Title: DefaultInstagramTitle, RawText: instagramFailedText}
	}

	if isGenericTitle(post.title) && post.desc != "" {
		post.title = titleFromDescription(post.desc)
	}

	f.logger.Info("Instagram metadata found",
		zap.String("url", rawURL),
		zap.String("title", post.title),
		zap.Int("sections", len(post.sections)))

	return models.FetchResult{
		RawText: strings.Join(post.sections, sectionSeparator),
		Title:   post.title,
	}
}

func (f *InstagramFetcher) direct(ctx context.Context, rawURL string, post *postMeta) {
	header := http.Header{}
	header.Set("User-Agent", InstagramUserAgent)
	header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	header.Set("Accept-Language", "en-US,en;q=0.9")

	doc, err := f.page.Get(ctx, rawURL, header)
	if err != nil {
		f.logger.Warn("Direct Instagram scrape failed", zap.String("url", rawURL), zap.Error(err))
		return
	}

	title := firstTitlePart(MetaContent(doc, titleKeys...))
	desc := MetaContent(doc, descriptionKeys...)

	if title != "" && !isGenericTitle(title) {
		post.title = title
	}
	if len([]rune(desc)) > minDescription {
		post.desc = desc
		post.add("CONTENT DESCRIPTION", desc)
	}
}

func (f *InstagramFetcher) tryBridges(ctx context.Context, rawURL string, post *postMeta) {
	header := http.Header{}
	header.Set("User-Agent", InstagramUserAgent)

	for _, bridge := range f.bridges {
		bridgeURL := strings.Replace(rawURL, "instagram.com", bridge, 1)
		if bridgeURL == rawURL {
			continue
		}

		doc, err := f.bridgeGet(ctx, bridgeURL, header)
		if err != nil {
			f.logger.Warn("Instagram bridge failed",
				zap.String("bridge", bridge),
				zap.Error(err))
			continue
		}

		title := firstTitlePart(MetaContent(doc, titleKeys...))
		desc := MetaContent(doc, descriptionKeys...)

		// Dead bridges get parked on storefront or app-install pages.
		if strings.Contains(title, "AliExpress") || strings.Contains(desc, "AliExpress") || strings.Contains(title, "Open in App") {
			f.logger.Debug("Skipping parked Instagram bridge", zap.String("bridge", bridge))
			continue
		}

		if desc == "" || len([]rune(desc)) <= len([]rune(post.desc)) {
			continue
		}
		post.desc = desc
		post.add("SECONDARY SOURCE DESCRIPTION", desc)
		if title != "" && !isGenericTitle(title) {
			post.title = title
		}
		if len([]rune(post.desc)) > enoughDescription {
			return
		}
	}
}

func (f *InstagramFetcher) bridgeGet(ctx context.Context, bridgeURL string, header http.Header) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, f.bridgeTimeout)
	defer cancel()
	return f.page.Get(ctx, bridgeURL, header)
}

// applyCaption folds in the text the user shared with the link, minus the
// URL and the share-sheet boilerplate.
func applyCaption(post *postMeta, rawURL, message string) {
	if message == "" || !strings.Contains(message, rawURL) {
		return
	}

	caption := strings.TrimSpace(strings.ReplaceAll(message, rawURL, ""))
	for _, noise := range captionNoise {
		caption = strings.TrimSpace(strings.ReplaceAll(caption, noise, ""))
	}
	if len([]rune(caption)) <= minCaption {
		return
	}

	post.add("SHARED CAPTION", caption)
	if len([]rune(caption)) > len([]rune(post.desc)) {
		post.desc = caption
	}
	if isGenericTitle(post.title) {
		post.title = firstLine(caption)
	}
}

// titleFromDescription prefers the quoted caption in descriptions shaped
// like `12 likes - user on Instagram: "caption"`.
func titleFromDescription(desc string) string {
	const marker = " on Instagram: "
	if strings.Contains(desc, " - ") {
		if idx := strings.Index(desc, marker); idx >= 0 {
			return strings.Trim(firstLine(desc[idx+len(marker):]), `"`)
		}
	}
	return firstLine(desc)
}

func firstTitlePart(title string) string {
	if i := strings.Index(title, "|"); i >= 0 {
		title = title[:i]
	}
	return strings.TrimSpace(title)
}

// firstLine returns the first line of the first maxDerivedTitle runes.
func firstLine(s string) string {
	s = truncateRunes(s, maxDerivedTitle)
	if i := strings.Index(s, "\n"); i >= 0 {
		s = s[:i]
	}
	return s
}

func isGenericTitle(title string) bool {
	_, ok := genericTitles[title]
	return ok
}
