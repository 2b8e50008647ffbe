package fetcher

import (
	"html"
	"regexp"
	"strings"
)

var (
	metaTagPattern  = regexp.MustCompile(`(?i)<(meta|link)\b(?:[^>"']|"[^"]*"|'[^']*')*>`)
	attrPattern     = regexp.MustCompile(`(?i)([a-z][a-z0-9:_-]*)\s*=\s*(?:"([^"]*)"|'([^']*)')`)

	scriptPattern   = regexp.MustCompile(`(?is)<script\b.*?</script\s*>`)
	stylePattern    = regexp.MustCompile(`(?is)<style\b.*?</style\s*>`)
	noscriptPattern = regexp.MustCompile(`(?is)<noscript\b.*?</noscript\s*>`)
	commentPattern  = regexp.MustCompile(`(?s)<!--.*?-->`)
	tagPattern      = regexp.MustCompile(`(?s)<[a-zA-Z/!][^>]*>`)
	htmlHint        = regexp.MustCompile(`(?i)<(?:!doctype|html|head|body|div|p|span|script|meta)\b`)
)

// Tag is one <meta> or <link> element with lower-cased attribute names
// and unescaped values.
type Tag struct {
	Element string
	Attrs   map[string]string
}

// HeadTags returns every <meta> and <link> element of doc in document order.
func HeadTags(doc string) []Tag {
	var tags []Tag
	for _, m := range metaTagPattern.FindAllStringSubmatch(doc, -1) {
		attrs := make(map[string]string, 4)
		for _, a := range attrPattern.FindAllStringSubmatch(m[0], -1) {
			value := a[2]
			if value == "" {
				value = a[3]
			}
			attrs[strings.ToLower(a[1])] = strings.TrimSpace(html.UnescapeString(value))
		}
		tags = append(tags, Tag{Element: strings.ToLower(m[1]), Attrs: attrs})
	}
	return tags
}

// MetaTags collects content attributes of <meta> and <link> tags keyed by
// their lower-cased property, name or itemprop. The first occurrence wins.
func MetaTags(doc string) map[string]string {
	tags := make(map[string]string)
	for _, tag := range HeadTags(doc) {
		content, ok := tag.Attrs["content"]
		if !ok {
			continue
		}
		for _, keyAttr := range []string{"property", "name", "itemprop"} {
			key := strings.ToLower(tag.Attrs[keyAttr])
			if key == "" {
				continue
			}
			if _, seen := tags[key]; !seen {
				tags[key] = content
			}
			break
		}
	}
	return tags
}

// MetaContent returns the first non-empty content among keys, in order.
func MetaContent(doc string, keys ...string) string {
	tags := MetaTags(doc)
	for _, key := range keys {
		if v := tags[strings.ToLower(key)]; v != "" {
			return v
		}
	}
	return ""
}

// LooksLikeHTML reports whether text carries HTML markup.
func LooksLikeHTML(text string) bool {
	return htmlHint.MatchString(text)
}

// PlainText drops scripts, styles, comments and tags from an HTML document
// and collapses whitespace. It is a cheap approximation, not a parser.
func PlainText(doc string) string {
	doc = scriptPattern.ReplaceAllString(doc, " ")
	doc = stylePattern.ReplaceAllString(doc, " ")
	doc = noscriptPattern.ReplaceAllString(doc, " ")
	doc = commentPattern.ReplaceAllString(doc, " ")
	doc = tagPattern.ReplaceAllString(doc, " ")
	return strings.Join(strings.Fields(html.UnescapeString(doc)), " ")
}
