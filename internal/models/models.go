package models

import "time"

// User represents a bot user with their tag vocabulary and last saved link
type User struct {
	ID         int64     `json:"id"`
	LastLinkID string    `json:"last_link_id,omitempty"`
	Categories []string  `json:"categories"`
	Tags       []string  `json:"tags"`
	LastUsedAt time.Time `json:"last_used_at"`
}

// FetchResult is the transient output of content acquisition.
// RawText is empty when nothing could be fetched.
type FetchResult struct {
	RawText string `json:"raw_text"`
	Title   string `json:"title"`
}

// Empty reports whether the fetch produced no content.
func (r FetchResult) Empty() bool {
	return r.RawText == ""
}

// TweetRecord is a tweet normalized from either mirror schema
type TweetRecord struct {
	AuthorName   string
	AuthorHandle string
	Text         string
	Quoted       bool
	QuotedText   string
	QuotedAuthor string
	QuotedHandle string
	MediaCount   int
	HasVideo     bool
	Likes        int
	Retweets     int
	CreatedAt    string
	SourceMirror string
}

// HasQuote reports whether the record carries a quoted tweet. A quote
// object counts even when its text and author are empty.
func (t TweetRecord) HasQuote() bool {
	return t.Quoted || t.QuotedText != "" || t.QuotedAuthor != ""
}
