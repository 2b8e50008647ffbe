package classifier

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/xaenox/secondbrain/internal/models"
)

const (
	heuristicSourceType = "heuristic"
	heuristicConfidence = 0.2
)

type keywordRule struct {
	category string
	keywords []string
	tags     []string
}

// Rules are checked in order; the first rule with a matching keyword wins.
var heuristicRules = []keywordRule{
	{
		category: "Tech",
		keywords: []string{"github", "gitlab", "bitbucket", "stackoverflow", "stackexchange", "code", "programming", "developer", "api.", "/api", "golang", "python", "javascript", "npm"},
		tags:     []string{"programming", "development", "code"},
	},
	{
		category: "Health",
		keywords: []string{"health", "medical", "medicine", "fitness", "nutrition", "wellness", "diet", "workout"},
		tags:     []string{"wellness", "health", "lifestyle"},
	},
}

var generalRule = keywordRule{
	category: "General",
	tags:     []string{"reference", "bookmark", "general"},
}

// HeuristicAnalyzer derives a best-effort analysis from the URL alone.
// It ignores page content, so the same URL always yields the same result.
type HeuristicAnalyzer struct{}

func NewHeuristicAnalyzer() *HeuristicAnalyzer {
	return &HeuristicAnalyzer{}
}

func (h *HeuristicAnalyzer) Analyze(rawURL string) models.AnalysisResult {
	host, haystack := splitURL(rawURL)
	rule := matchRule(haystack)
	label := strings.ToLower(rule.category)

	tags := make([]string, len(rule.tags))
	copy(tags, rule.tags)

	return models.AnalysisResult{
		Title:   fmt.Sprintf("Saved link from %s", host),
		Summary: fmt.Sprintf("This resource covers %s material from %s. It was saved for later reading and could not be analyzed in depth.", label, host),
		DetailedSummary: fmt.Sprintf(
			"This link points to %s. "+
				"Based on its address it most likely contains %s content. "+
				"An automatic deep analysis was not available when it was saved. "+
				"The categorization is a best-effort guess derived from the URL. "+
				"Open the original page to review the full content.",
			host, label),
		Category:           rule.category,
		Tags:               tags,
		ActionableTakeaway: fmt.Sprintf("Review this %s content and identify key concepts to apply.", label),
		SourceType:         heuristicSourceType,
		Confidence:         heuristicConfidence,
	}
}

// splitURL returns a display host and the lower-cased host+path used for
// keyword matching. Unparsable input is matched as-is.
func splitURL(rawURL string) (string, string) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || u.Hostname() == "" {
		lowered := strings.ToLower(rawURL)
		if lowered == "" {
			return "unknown source", ""
		}
		return lowered, lowered
	}
	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	return host, host + strings.ToLower(u.EscapedPath())
}

func matchRule(haystack string) keywordRule {
	for _, rule := range heuristicRules {
		for _, keyword := range rule.keywords {
			if strings.Contains(haystack, keyword) {
				return rule
			}
		}
	}
	return generalRule
}
