package fetcher

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/xaenox/secondbrain/internal/models"
	"go.uber.org/zap"
)

type recordingSource struct {
	name  string
	calls []string
}

func (s *recordingSource) Fetch(_ context.Context, rawURL string) models.FetchResult {
	s.calls = append(s.calls, rawURL)
	return models.FetchResult{RawText: s.name, Title: s.name}
}

func TestDispatcherRouting(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"https://twitter.com/jack/status/20", "social"},
		{"https://x.com/jack/status/20", "social"},
		{"https://www.X.com/jack/status/20", "social"},
		{"https://mobile.twitter.com/jack/status/20", "social"},
		{"https://github.com/foo/bar", "page"},
		{"https://box.com/shared", "page"},
		{"https://example.com/x.com/status", "page"},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			page := &recordingSource{name: "page"}
			social := &recordingSource{name: "social"}
			d := NewDispatcher(page, social, zap.NewNop())

			res := d.Fetch(context.Background(), tt.url)

			assert.Equal(t, tt.want, res.Title)
		})
	}
}

func TestDispatcherExtraExtractors(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"https://x.com/jack/status/20", "social"},
		{"https://www.instagram.com/reel/abc/", "instagram"},
		{"https://instagram.com/p/abc", "instagram"},
		{"https://www.youtube.com/watch?v=abc", "youtube"},
		{"https://m.youtube.com/watch?v=abc", "youtube"},
		{"https://youtu.be/abc", "youtube"},
		{"https://example.com/youtube.com/watch?v=abc", "page"},
		{"https://vimeo.com/123", "page"},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			d := NewDispatcher(
				&recordingSource{name: "page"},
				&recordingSource{name: "social"},
				zap.NewNop(),
				WithInstagram(&recordingSource{name: "instagram"}),
				WithYouTube(&recordingSource{name: "youtube"}),
			)

			assert.Equal(t, tt.want, d.Fetch(context.Background(), tt.url).Title)
		})
	}
}

func TestDispatcherWithoutExtraExtractors(t *testing.T) {
	d := NewDispatcher(&recordingSource{name: "page"}, &recordingSource{name: "social"}, zap.NewNop())

	assert.Equal(t, "page", d.Fetch(context.Background(), "https://www.instagram.com/p/abc").Title)
	assert.Equal(t, "page", d.Fetch(context.Background(), "https://youtu.be/abc").Title)
}

func TestMessageContext(t *testing.T) {
	assert.Empty(t, MessageFromContext(context.Background()))

	ctx := WithMessage(context.Background(), "look https://instagram.com/p/abc")
	assert.Equal(t, "look https://instagram.com/p/abc", MessageFromContext(ctx))
}

func TestNormalizeHost(t *testing.T) {
	assert.Equal(t, "x.com", NormalizeHost("WWW.X.COM."))
	assert.Equal(t, "twitter.com", NormalizeHost("mobile.twitter.com"))
}
