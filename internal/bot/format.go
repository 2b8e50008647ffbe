package bot

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/xaenox/secondbrain/internal/ingest"
	"github.com/xaenox/secondbrain/internal/models"
)

var urlPattern = regexp.MustCompile(`https?://[^\s<>"]+`)

// extractURL returns the first http(s) URL in text, without trailing punctuation.
func extractURL(text string) string {
	match := urlPattern.FindString(text)
	return strings.TrimRight(match, ".,;:!?)]}'")
}

// escapeMarkdown escapes the characters MarkdownV2 treats as markup.
func escapeMarkdown(text string) string {
	specialChars := []string{"\\", "_", "*", "[", "]", "(", ")", "~", "`", ">", "#", "+", "-", "=", "|", "{", "}", ".", "!"}
	escaped := text
	for _, char := range specialChars {
		escaped = strings.ReplaceAll(escaped, char, "\\"+char)
	}
	return escaped
}

func hashtag(s string) string {
	return escapeMarkdown("#" + strings.ReplaceAll(strings.TrimSpace(s), " ", "_"))
}

func hashtags(values []string, limit int) string {
	if limit > 0 && len(values) > limit {
		values = values[:limit]
	}
	formatted := make([]string, len(values))
	for i, v := range values {
		formatted[i] = hashtag(v)
	}
	return strings.Join(formatted, " ")
}

func formatSavedMessage(link *models.Link) string {
	var b strings.Builder

	if link.Degraded {
		b.WriteString("⚠️ *Saved with limited info:* ")
	} else {
		b.WriteString("✅ *Saved:* ")
	}
	b.WriteString(escapeMarkdown(link.Title))
	b.WriteString("\n\n")

	fmt.Fprintf(&b, "*Category:* %s\n", hashtag(link.Category))
	if link.EstimatedReadTime > 0 {
		fmt.Fprintf(&b, "*Read time:* %d min\n", link.EstimatedReadTime)
	}
	if len(link.Tags) > 0 {
		fmt.Fprintf(&b, "*Tags:* %s\n", hashtags(link.Tags, 3))
	}

	if link.Degraded {
		fmt.Fprintf(&b, "\n%s", escapeMarkdown(link.Summary))
	} else if link.ActionableTakeaway != "" {
		fmt.Fprintf(&b, "\n💡 *Key insight:* %s", escapeMarkdown(link.ActionableTakeaway))
	}

	if !link.Degraded {
		b.WriteString("\n\n_Reply with a question to ask about this link\\._")
	}
	return b.String()
}

func formatVocabulary(title string, values []string) string {
	response := fmt.Sprintf("*%s:*\n", escapeMarkdown(title))
	for _, v := range values {
		response += hashtag(v) + "\n"
	}
	return response
}

func formatHistory(links []*models.Link) string {
	response := "*Your recent links:*\n\n"
	for _, link := range links {
		response += fmt.Sprintf("*%s*\n", escapeMarkdown(link.Title))
		response += fmt.Sprintf("%s \\| %s\n", hashtag(link.Category), escapeMarkdown(string(link.Status)))
		if len(link.Tags) > 0 {
			response += fmt.Sprintf("Tags: %s\n", hashtags(link.Tags, 0))
		}
		response += escapeMarkdown(link.URL) + "\n\n"
	}
	return response
}

func formatSearchResults(query string, hits []ingest.SearchHit) string {
	var b strings.Builder
	fmt.Fprintf(&b, "*Results for* _%s_:\n\n", escapeMarkdown(query))
	for i, hit := range hits {
		fmt.Fprintf(&b, "%d\\. *%s*\n", i+1, escapeMarkdown(hit.Link.Title))
		if hit.Link.Summary != "" {
			b.WriteString(escapeMarkdown(hit.Link.Summary) + "\n")
		}
		b.WriteString(escapeMarkdown(hit.Link.URL) + "\n\n")
	}
	return b.String()
}
