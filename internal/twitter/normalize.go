package twitter

import (
	"fmt"
	"strings"

	"github.com/xaenox/secondbrain/internal/models"
)

const (
	emptyContentPlaceholder = "[Media-only tweet or no text content available]"
	titlePrefixRunes        = 100
)

// primaryContent joins tweet text, the quoted-tweet block and the media
// annotation. It is empty when the record carries none of them.
func primaryContent(rec models.TweetRecord) string {
	var parts []string

	if rec.Text != "" {
		parts = append(parts, rec.Text)
	}

	if rec.HasQuote() {
		author := orDefault(rec.QuotedAuthor, "Unknown")
		handle := orDefault(rec.QuotedHandle, "unknown")
		parts = append(parts, fmt.Sprintf("\n[Replying to/Quoting %s (@%s)]:\n\"%s\"", author, handle, rec.QuotedText))
	}

	parts = append(parts, mediaAnnotations(rec)...)

	return strings.Join(parts, "\n\n")
}

func mediaAnnotations(rec models.TweetRecord) []string {
	var out []string
	if rec.SourceMirror == MirrorBName {
		if rec.MediaCount > 0 {
			out = append(out, fmt.Sprintf("\n[Contains %d Media Item(s)]", rec.MediaCount))
		}
		return out
	}

	if rec.MediaCount > 0 {
		out = append(out, fmt.Sprintf("\n[Contains %d Image(s)]", rec.MediaCount))
	}
	if rec.HasVideo {
		out = append(out, "\n[Contains Video]")
	}
	return out
}

// Normalize renders a tweet record from either mirror as the plain-text
// document the analysis engine consumes, plus a display title.
func Normalize(rec models.TweetRecord) models.FetchResult {
	content := primaryContent(rec)
	if content == "" {
		content = emptyContentPlaceholder
	}

	author := orDefault(rec.AuthorName, "Unknown")

	var b strings.Builder
	b.WriteString("\nTWEET CONTENT:\n")
	fmt.Fprintf(&b, "\"%s\"\n\n", content)
	b.WriteString("---\nMETADATA:\n")
	fmt.Fprintf(&b, "Author: %s (@%s)\n", author, rec.AuthorHandle)
	fmt.Fprintf(&b, "Date: %s\n", rec.CreatedAt)
	fmt.Fprintf(&b, "Engagement: %d likes, %d retweets\n", rec.Likes, rec.Retweets)
	fmt.Fprintf(&b, "Source: %s API\n", rec.SourceMirror)

	return models.FetchResult{
		RawText: b.String(),
		Title:   tweetTitle(author, rec.Text, content),
	}
}

func tweetTitle(author, text, fallback string) string {
	snippet := text
	if snippet == "" {
		snippet = strings.TrimSpace(fallback)
	}
	runes := []rune(snippet)
	if len(runes) > titlePrefixRunes {
		runes = runes[:titlePrefixRunes]
	}
	flat := strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ").Replace(string(runes))
	return fmt.Sprintf("Tweet by %s: %s", author, flat)
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
