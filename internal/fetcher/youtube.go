package fetcher

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"html"
	"net/http"
	"net/url"
	"strings"

	"github.com/xaenox/secondbrain/internal/models"
	"go.uber.org/zap"
)

// DesktopUserAgent gets the full watch page, which carries the metadata
// and the caption track list.
const DesktopUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

const (
	DefaultVideoTitle     = "YouTube Video"
	DefaultChannel        = "Unknown Channel"
	maxTranscriptRunes    = 25000
	transcriptDisabled    = "[Transcript disabled by uploader]"
	transcriptUnavailable = "[Transcript unavailable]"
)

var youtubeHosts = map[string]struct{}{
	"youtube.com":   {},
	"m.youtube.com": {},
	"youtu.be":      {},
}

// IsYouTubeURL reports whether rawURL points at YouTube.
func IsYouTubeURL(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	_, ok := youtubeHosts[NormalizeHost(u.Hostname())]
	return ok
}

// VideoID extracts the video id from watch, short-link, shorts, embed and
// live URLs. It returns "" when there is none.
func VideoID(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}

	segments := strings.Split(strings.Trim(u.Path, "/"), "/")
	if NormalizeHost(u.Hostname()) == "youtu.be" {
		return segments[0]
	}
	if v := u.Query().Get("v"); v != "" {
		return v
	}
	if len(segments) == 2 {
		switch segments[0] {
		case "shorts", "embed", "live":
			return segments[1]
		}
	}
	return ""
}

// YouTubeFetcher reads video metadata from the watch page and, when the
// page lists caption tracks, the transcript.
type YouTubeFetcher struct {
	page   *PageFetcher
	logger *zap.Logger
}

func NewYouTubeFetcher(page *PageFetcher, logger *zap.Logger) *YouTubeFetcher {
	return &YouTubeFetcher{page: page, logger: logger}
}

// Fetch never fails. Without a video id or a readable page it returns the
// default title and no text.
func (f *YouTubeFetcher) Fetch(ctx context.Context, rawURL string) models.FetchResult {
	failed := models.FetchResult{Title: DefaultVideoTitle}

	videoID := VideoID(rawURL)
	if videoID == "" {
		f.logger.Warn("Could not extract YouTube video id", zap.String("url", rawURL))
		return failed
	}

	header := http.Header{}
	header.Set("User-Agent", DesktopUserAgent)
	header.Set("Accept-Language", "en-US,en;q=0.9")

	doc, err := f.page.Get(ctx, rawURL, header)
	if err != nil {
		f.logger.Warn("YouTube page fetch failed",
			zap.String("video_id", videoID),
			zap.Error(err))
		return failed
	}

	meta := MetaTags(doc)
	title := meta["title"]
	if title == "" {
		title = DefaultVideoTitle
	}
	channel := channelName(doc)
	if channel == "" {
		channel = DefaultChannel
	}

	transcript := f.transcript(ctx, videoID, doc, header)

	f.logger.Info("YouTube metadata found",
		zap.String("video_id", videoID),
		zap.String("title", title),
		zap.String("channel", channel),
		zap.Int("transcript_chars", len(transcript)))

	var b strings.Builder
	b.WriteString("\nVIDEO METADATA:\n")
	fmt.Fprintf(&b, "Title: %s\n", title)
	fmt.Fprintf(&b, "Channel: %s\n", channel)
	fmt.Fprintf(&b, "Description: %s\n", meta["description"])
	b.WriteString("\n---\nTRANSCRIPT:\n")
	b.WriteString(truncateRunes(transcript, maxTranscriptRunes))
	b.WriteString("\n")

	return models.FetchResult{RawText: b.String(), Title: title}
}

// channelName reads the author block: <link itemprop="name">. A <meta>
// with the same itemprop names the video, not the channel.
func channelName(doc string) string {
	for _, tag := range HeadTags(doc) {
		if tag.Element == "link" && strings.EqualFold(tag.Attrs["itemprop"], "name") {
			return tag.Attrs["content"]
		}
	}
	return ""
}

type captionTrack struct {
	BaseURL      string `json:"baseUrl"`
	LanguageCode string `json:"languageCode"`
	Kind         string `json:"kind"`
}

type timedText struct {
	Lines []string `xml:"text"`
}

func (f *YouTubeFetcher) transcript(ctx context.Context, videoID, doc string, header http.Header) string {
	tracks, ok := captionTracks(doc)
	if !ok {
		f.logger.Info("Transcripts are disabled for this video", zap.String("video_id", videoID))
		return transcriptDisabled
	}

	track := pickTrack(tracks)
	body, err := f.page.Get(ctx, track.BaseURL, header)
	if err != nil {
		f.logger.Warn("Transcript fetch failed", zap.String("video_id", videoID), zap.Error(err))
		return transcriptUnavailable
	}

	text := parseTimedText(body)
	if text == "" {
		f.logger.Warn("Transcript is empty", zap.String("video_id", videoID))
		return transcriptUnavailable
	}
	return text
}

// captionTracks reads the track list embedded in the player response.
// ok is false when the page lists no tracks.
func captionTracks(doc string) ([]captionTrack, bool) {
	const key = `"captionTracks":`
	idx := strings.Index(doc, key)
	if idx < 0 {
		return nil, false
	}

	var tracks []captionTrack
	if err := json.NewDecoder(strings.NewReader(doc[idx+len(key):])).Decode(&tracks); err != nil {
		return nil, false
	}

	usable := tracks[:0]
	for _, t := range tracks {
		if t.BaseURL != "" {
			usable = append(usable, t)
		}
	}
	return usable, len(usable) > 0
}

// pickTrack prefers a manual English track, then generated English, then
// whatever comes first.
func pickTrack(tracks []captionTrack) captionTrack {
	var generated *captionTrack
	for i, t := range tracks {
		if !strings.HasPrefix(t.LanguageCode, "en") {
			continue
		}
		if t.Kind != "asr" {
			return t
		}
		if generated == nil {
			generated = &tracks[i]
		}
	}
	if generated != nil {
		return *generated
	}
	return tracks[0]
}

// parseTimedText joins the caption lines of a timedtext XML document.
// Line text is HTML-escaped a second time inside the XML.
func parseTimedText(body string) string {
	var doc timedText
	if err := xml.Unmarshal([]byte(body), &doc); err != nil {
		return ""
	}

	lines := make([]string, 0, len(doc.Lines))
	for _, line := range doc.Lines {
		line = strings.Join(strings.Fields(html.UnescapeString(line)), " ")
		if line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, " ")
}

func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
