package models

import (
	"strings"
	"time"
)

type LinkStatus string

const (
	StatusUnread   LinkStatus = "unread"
	StatusArchived LinkStatus = "archived"
	StatusFavorite LinkStatus = "favorite"
)

// Link is the persisted record for one ingested URL
type Link struct {
	ID                 string     `json:"id"`
	UserID             int64      `json:"user_id"`
	URL                string     `json:"url"`
	Title              string     `json:"title"`
	Summary            string     `json:"summary"`
	DetailedSummary    string     `json:"detailed_summary"`
	Category           string     `json:"category"`
	Tags               []string   `json:"tags"`
	ActionableTakeaway string     `json:"actionable_takeaway"`
	SourceType         string     `json:"source_type,omitempty"`
	Confidence         float64    `json:"confidence,omitempty"`
	KeyEntities        []string   `json:"key_entities,omitempty"`
	Recipe             *Recipe    `json:"recipe,omitempty"`
	Status             LinkStatus `json:"status"`
	OriginalTitle      string     `json:"original_title"`
	EstimatedReadTime  int        `json:"estimated_read_time"`
	ContentSnippet     string     `json:"content_snippet,omitempty"`
	Degraded           bool       `json:"degraded"`
	Embedding          []float32  `json:"embedding,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
}

// EmbeddingText is what gets embedded for semantic search: the title
// weighs most, then the summary and tags.
func (l *Link) EmbeddingText() string {
	return "Title: " + l.Title + "\nSummary: " + l.Summary + "\nTags: " + strings.Join(l.Tags, ", ")
}

// ChatContext builds the assistant grounding from the persisted fields
func (l *Link) ChatContext() ChatContext {
	return ChatContext{
		Title:    l.Title,
		Category: l.Category,
		Summary:  l.Summary,
	}
}

// ApplyAnalysis copies an analysis result onto the link
func (l *Link) ApplyAnalysis(a AnalysisResult) {
	l.Title = a.Title
	l.Summary = a.Summary
	l.DetailedSummary = a.DetailedSummary
	l.Category = a.Category
	l.Tags = a.Tags
	l.ActionableTakeaway = a.ActionableTakeaway
	l.SourceType = a.SourceType
	l.Confidence = a.Confidence
	l.KeyEntities = a.KeyEntities
	l.Recipe = a.Recipe
}
