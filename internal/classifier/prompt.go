package classifier

import (
	"fmt"
	"strings"
)

const analysisPreamble = `You are an expert knowledge curator building a Second Brain.
Analyze the web content below and extract the most valuable insights.

Return the response as a JSON object with these required fields:
- "title" (string): a concise, descriptive title
- "summary" (string): 2-4 sentences for a snackable preview, focused on novel insights
- "detailed_summary" (string): 5-8 sentences covering the main points in depth
- "category" (string): one specific high-level category (free-form, e.g. "Tech", "Recipe", "Finance")
- "tags" (array of strings): 3-5 short, relevant tags
- "actionable_takeaway" (string): one concrete thing the reader can do or learn from this

Optional fields, include only when they apply:
- "source_type" (string): the kind of source (article, tweet, video, recipe, paper, repository, ...)
- "confidence" (number between 0 and 1): how well the content supported the analysis
- "key_entities" (array of strings): notable people, organizations, products or places mentioned
- "recipe" (object): when the content is a recipe, with "servings", "prep_time" and "cook_time"
  as strings (e.g. "24 cookies", "15 mins"), and "ingredients" and "instructions" as arrays of strings

Respond in the language of the content. Output JSON only, no other text.`

// buildPrompt assembles the analysis prompt. content is cut to maxChars runes.
func buildPrompt(rawURL, content string, existingTags []string, maxChars int) string {
	var b strings.Builder
	b.WriteString(analysisPreamble)

	if len(existingTags) > 0 {
		fmt.Fprintf(&b, "\n\nThe user already uses these tags; prefer reusing them when they fit: %s", strings.Join(existingTags, ", "))
	}

	fmt.Fprintf(&b, "\n\nURL: %s\n\nContent:\n%s", rawURL, truncateRunes(content, maxChars))
	return b.String()
}

func truncateRunes(s string, limit int) string {
	if limit <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
