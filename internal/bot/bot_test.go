package bot

import (
	"context"
	"fmt"
	"strings"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xaenox/secondbrain/internal/classifier"
	"github.com/xaenox/secondbrain/internal/fetcher"
	"github.com/xaenox/secondbrain/internal/ingest"
	"github.com/xaenox/secondbrain/internal/llm"
	"github.com/xaenox/secondbrain/internal/models"
	"github.com/xaenox/secondbrain/internal/storage"
	"go.uber.org/zap"
)

type fakeSender struct {
	sent []tgbotapi.MessageConfig
}

func (f *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	if msg, ok := c.(tgbotapi.MessageConfig); ok {
		f.sent = append(f.sent, msg)
	}
	return tgbotapi.Message{}, nil
}

func (f *fakeSender) last() tgbotapi.MessageConfig {
	return f.sent[len(f.sent)-1]
}

type staticSource struct{}

func (staticSource) Fetch(context.Context, string) models.FetchResult {
	return models.FetchResult{RawText: "Some page text.", Title: "Page"}
}

type echoChatter struct {
	histories [][]models.ChatMessage
}

func (e *echoChatter) Chat(_ context.Context, _ string, chatCtx models.ChatContext, messages []models.ChatMessage) string {
	e.histories = append(e.histories, messages)
	return fmt.Sprintf("about %s: %s", chatCtx.Title, messages[len(messages)-1].Text)
}

func newTestBot(t *testing.T) (*Bot, *fakeSender, *echoChatter, storage.Storage) {
	t.Helper()
	store := storage.NewMemoryStorage()
	chatter := &echoChatter{}
	engine := classifier.NewEngine(nil, classifier.Config{OfflineMode: true}, zap.NewNop())
	service := ingest.NewService(staticSource{}, engine, chatter, store, zap.NewNop())
	sender := &fakeSender{}
	return newBot(sender, service, store, zap.NewNop()), sender, chatter, store
}

func textMessage(text string) *tgbotapi.Message {
	return &tgbotapi.Message{
		MessageID: 10,
		From:      &tgbotapi.User{ID: 7},
		Chat:      &tgbotapi.Chat{ID: 70},
		Text:      text,
	}
}

func commandMessage(text string) *tgbotapi.Message {
	msg := textMessage(text)
	length := len(text)
	if i := strings.Index(text, " "); i >= 0 {
		length = i
	}
	msg.Entities = []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: length}}
	return msg
}

func TestLinkMessageIsSaved(t *testing.T) {
	b, sender, _, store := newTestBot(t)

	b.handleMessage(context.Background(), textMessage("look at this https://github.com/foo/bar!"))

	require.Len(t, sender.sent, 1)
	reply := sender.last()
	assert.Equal(t, tgbotapi.ModeMarkdownV2, reply.ParseMode)
	assert.Equal(t, 10, reply.ReplyToMessageID)
	assert.Contains(t, reply.Text, "\\#Tech")

	links, err := store.ListLinks(context.Background(), 7, 0, 0)
	require.NoError(t, err)
	require.Len(t, links, 1)
	assert.Equal(t, "https://github.com/foo/bar", links[0].URL)
}

func TestQuestionWithoutLink(t *testing.T) {
	b, sender, chatter, _ := newTestBot(t)

	b.handleMessage(context.Background(), textMessage("what was that about?"))

	require.Len(t, sender.sent, 1)
	assert.Contains(t, sender.last().Text, "Send me a link first")
	assert.Empty(t, chatter.histories)
}

func TestConversationAccumulatesAndResets(t *testing.T) {
	ctx := context.Background()
	b, sender, chatter, _ := newTestBot(t)

	b.handleMessage(ctx, textMessage("https://example.com/one"))
	b.handleMessage(ctx, textMessage("first question"))
	b.handleMessage(ctx, commandMessage("/ask second question"))

	require.Len(t, chatter.histories, 2)
	assert.Len(t, chatter.histories[0], 1)
	require.Len(t, chatter.histories[1], 3)
	assert.Equal(t, models.RoleAssistant, chatter.histories[1][1].Role)
	assert.Equal(t, "second question", chatter.histories[1][2].Text)
	assert.Contains(t, sender.last().Text, "second question")

	b.handleMessage(ctx, textMessage("https://example.com/two"))
	b.handleMessage(ctx, textMessage("new topic"))

	require.Len(t, chatter.histories, 3)
	assert.Len(t, chatter.histories[2], 1, "saving a new link starts a fresh conversation")
}

func TestCommands(t *testing.T) {
	ctx := context.Background()
	b, sender, _, store := newTestBot(t)

	b.handleMessage(ctx, commandMessage("/tags"))
	assert.Equal(t, "You don't have any tags yet.", sender.last().Text)

	b.handleMessage(ctx, commandMessage("/history"))
	assert.Equal(t, "You haven't saved any links yet.", sender.last().Text)

	b.handleMessage(ctx, textMessage("https://github.com/foo/bar"))

	b.handleMessage(ctx, commandMessage("/tags"))
	assert.Contains(t, sender.last().Text, "\\#programming")

	b.handleMessage(ctx, commandMessage("/categories"))
	assert.Contains(t, sender.last().Text, "\\#Tech")

	b.handleMessage(ctx, commandMessage("/history"))
	assert.Contains(t, sender.last().Text, "github\\.com")

	b.handleMessage(ctx, commandMessage("/favorite"))
	assert.Equal(t, "Marked your last link as favorite.", sender.last().Text)

	links, err := store.ListLinks(ctx, 7, 1, 0)
	require.NoError(t, err)
	assert.Equal(t, models.StatusFavorite, links[0].Status)

	b.handleMessage(ctx, commandMessage("/ask"))
	assert.Contains(t, sender.last().Text, "Usage")

	b.handleMessage(ctx, commandMessage("/nope"))
	assert.Contains(t, sender.last().Text, "Unknown command")
}

func TestExtractURL(t *testing.T) {
	tests := map[string]string{
		"https://example.com":                 "https://example.com",
		"see https://x.com/a/status/1.":       "https://x.com/a/status/1",
		"(http://example.com/path?q=1)":       "http://example.com/path?q=1",
		"two https://a.com and https://b.com": "https://a.com",
		"no link here":                        "",
		"ftp://example.com is not supported":  "",
	}
	for input, want := range tests {
		assert.Equal(t, want, extractURL(input), input)
	}
}

func TestEscapeMarkdown(t *testing.T) {
	assert.Equal(t, `a\_b\*c\[d\]\(e\)\.f\!`, escapeMarkdown("a_b*c[d](e).f!"))
	assert.Equal(t, `back\\slash`, escapeMarkdown(`back\slash`))
	assert.Equal(t, "plain text", escapeMarkdown("plain text"))
}

func TestFormatSavedMessage(t *testing.T) {
	link := &models.Link{
		Title:              "Go 1.22 release notes",
		Category:           "Tech News",
		Tags:               []string{"go", "release", "tooling", "extra"},
		ActionableTakeaway: "Upgrade your toolchain.",
		EstimatedReadTime:  4,
	}

	text := formatSavedMessage(link)

	assert.Contains(t, text, "Go 1\\.22 release notes")
	assert.Contains(t, text, "\\#Tech\\_News")
	assert.Contains(t, text, "4 min")
	assert.Contains(t, text, "\\#go \\#release \\#tooling")
	assert.NotContains(t, text, "extra", "only the top three tags are shown")
	assert.Contains(t, text, "Upgrade your toolchain\\.")
}

func TestFormatSavedMessageDegraded(t *testing.T) {
	link := &models.Link{
		Title:    "https://example.com",
		Summary:  ingest.DegradedSummary,
		Category: ingest.DegradedCategory,
		Tags:     []string{ingest.DegradedTag},
		Degraded: true,
	}

	text := formatSavedMessage(link)

	assert.Contains(t, text, "limited info")
	assert.Contains(t, text, "Processing failed\\.")
	assert.NotContains(t, text, "Read time")
}

func TestConversationsCap(t *testing.T) {
	c := newConversations()
	c.reset(1, "link")
	for i := 0; i < maxConversationMessages; i++ {
		c.record(1, "link",
			models.ChatMessage{Role: models.RoleUser, Text: fmt.Sprint(i)},
			models.ChatMessage{Role: models.RoleAssistant, Text: "ok"})
	}

	linkID, history := c.snapshot(1)
	assert.Equal(t, "link", linkID)
	assert.Len(t, history, maxConversationMessages)

	c.record(1, "stale", models.ChatMessage{Role: models.RoleUser, Text: "ignored"})
	_, after := c.snapshot(1)
	assert.Equal(t, history, after)
}

type captionSource struct {
	message string
}

func (c *captionSource) Fetch(ctx context.Context, _ string) models.FetchResult {
	c.message = fetcher.MessageFromContext(ctx)
	return models.FetchResult{RawText: "Reel caption.", Title: "Reel"}
}

// topicEmbedder puts texts mentioning "github" on one axis, the rest on another.
type topicEmbedder struct{}

func (topicEmbedder) Embed(_ context.Context, text string, _ llm.EmbedTask) ([]float32, error) {
	if strings.Contains(strings.ToLower(text), "github") {
		return []float32{1, 0}, nil
	}
	return []float32{0, 1}, nil
}

func TestLinkMessageReachesFetcher(t *testing.T) {
	store := storage.NewMemoryStorage()
	source := &captionSource{}
	engine := classifier.NewEngine(nil, classifier.Config{OfflineMode: true}, zap.NewNop())
	service := ingest.NewService(source, engine, &echoChatter{}, store, zap.NewNop())
	b := newBot(&fakeSender{}, service, store, zap.NewNop())

	text := "Watch this reel by chef https://www.instagram.com/reel/abc/ focaccia night"
	b.handleMessage(context.Background(), textMessage(text))

	assert.Equal(t, text, source.message)
}

func TestSearchCommand(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStorage()
	engine := classifier.NewEngine(nil, classifier.Config{OfflineMode: true}, zap.NewNop())
	service := ingest.NewService(staticSource{}, engine, &echoChatter{}, store, zap.NewNop(),
		ingest.WithEmbedder(topicEmbedder{}))
	sender := &fakeSender{}
	b := newBot(sender, service, store, zap.NewNop())

	b.handleMessage(ctx, commandMessage("/search"))
	assert.Contains(t, sender.last().Text, "Usage: /search")

	b.handleMessage(ctx, commandMessage("/search anything"))
	assert.Equal(t, "No matching links found.", sender.last().Text)

	b.handleMessage(ctx, textMessage("https://github.com/foo/bar"))
	b.handleMessage(ctx, commandMessage("/search that github repo"))

	reply := sender.last()
	assert.Equal(t, tgbotapi.ModeMarkdownV2, reply.ParseMode)
	assert.Contains(t, reply.Text, "*Results for* _that github repo_")
	assert.Contains(t, reply.Text, "github\\.com/foo/bar")
}

func TestSearchWithoutBackend(t *testing.T) {
	b, sender, _, _ := newTestBot(t)

	b.handleMessage(context.Background(), commandMessage("/search cookies"))

	assert.Equal(t, "Search is not available: no AI backend is configured.", sender.last().Text)
}

func TestFormatSearchResults(t *testing.T) {
	hits := []ingest.SearchHit{
		{Link: &models.Link{Title: "Go 1.22", Summary: "Loop vars.", URL: "https://go.dev/blog"}, Similarity: 0.9},
		{Link: &models.Link{Title: "Untitled", URL: "https://example.com"}, Similarity: 0.2},
	}

	out := formatSearchResults("go news", hits)

	assert.Equal(t, "*Results for* _go news_:\n\n"+
		"1\\. *Go 1\\.22*\nLoop vars\\.\nhttps://go\\.dev/blog\n\n"+
		"2\\. *Untitled*\nhttps://example\\.com\n\n", out)
}
