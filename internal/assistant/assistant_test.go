package assistant

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xaenox/secondbrain/internal/llm"
	"github.com/xaenox/secondbrain/internal/models"
	"go.uber.org/zap"
)

type fakeClient struct {
	reply   string
	err     error
	panics  bool
	calls   int
	history []models.ChatMessage
	message string
}

func (f *fakeClient) CompleteJSON(context.Context, string) (string, error) {
	return "", errors.New("not used")
}

func (f *fakeClient) Converse(_ context.Context, history []models.ChatMessage, message string) (string, error) {
	f.calls++
	f.history = history
	f.message = message
	if f.panics {
		panic("boom")
	}
	return f.reply, f.err
}

func (f *fakeClient) Name() string { return "fake" }

func (f *fakeClient) Embed(context.Context, string, llm.EmbedTask) ([]float32, error) {
	return nil, errors.New("not used")
}

var recipeCtx = models.ChatContext{
	Title:    "Chocolate chip cookies",
	Category: "Recipe",
	Summary:  "Classic cookies with brown butter.",
}

func TestChatReplaysHistory(t *testing.T) {
	client := &fakeClient{reply: "  About 24 cookies.  "}
	a := NewAssistant(client, 0, zap.NewNop())

	messages := []models.ChatMessage{
		{Role: models.RoleUser, Text: "How long do they bake?"},
		{Role: models.RoleAssistant, Text: "12 minutes."},
		{Role: models.RoleUser, Text: "How many does it make?"},
	}

	reply := a.Chat(context.Background(), "Makes 24 cookies.", recipeCtx, messages)

	assert.Equal(t, "About 24 cookies.", reply)
	assert.Equal(t, 1, client.calls)
	assert.Equal(t, "How many does it make?", client.message)

	require.Len(t, client.history, 4)
	assert.Equal(t, models.RoleUser, client.history[0].Role)
	assert.Contains(t, client.history[0].Text, "Chocolate chip cookies")
	assert.Contains(t, client.history[0].Text, "Recipe")
	assert.Contains(t, client.history[0].Text, "Makes 24 cookies.")
	assert.Equal(t, models.RoleAssistant, client.history[1].Role)
	assert.Equal(t, messages[:2], client.history[2:])
}

func TestChatIgnoresTrailingAssistantTurns(t *testing.T) {
	client := &fakeClient{reply: "ok"}
	a := NewAssistant(client, 0, zap.NewNop())

	messages := []models.ChatMessage{
		{Role: models.RoleUser, Text: "First?"},
		{Role: models.RoleAssistant, Text: "Stale answer"},
	}

	a.Chat(context.Background(), "", recipeCtx, messages)

	assert.Equal(t, "First?", client.message)
	assert.Len(t, client.history, 2)
}

func TestChatSnippetIsBounded(t *testing.T) {
	client := &fakeClient{reply: "ok"}
	a := NewAssistant(client, 5, zap.NewNop())

	a.Chat(context.Background(), "héllo world", recipeCtx, []models.ChatMessage{{Role: models.RoleUser, Text: "?"}})

	require.NotEmpty(t, client.history)
	assert.Contains(t, client.history[0].Text, "héllo")
	assert.NotContains(t, client.history[0].Text, "world")
}

func TestChatWithoutQuestion(t *testing.T) {
	client := &fakeClient{reply: "ok"}
	a := NewAssistant(client, 0, zap.NewNop())

	assert.Equal(t, AskReply, a.Chat(context.Background(), "", recipeCtx, nil))
	assert.Equal(t, AskReply, a.Chat(context.Background(), "", recipeCtx, []models.ChatMessage{
		{Role: models.RoleAssistant, Text: "hello"},
		{Role: models.RoleUser, Text: "   "},
	}))
	assert.Zero(t, client.calls)
}

func TestChatNeverFails(t *testing.T) {
	question := []models.ChatMessage{{Role: models.RoleUser, Text: "What is this?"}}

	tests := []struct {
		name   string
		client *fakeClient
	}{
		{"backend error", &fakeClient{err: errors.New("503")}},
		{"empty reply", &fakeClient{reply: " \n"}},
		{"panic", &fakeClient{panics: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := NewAssistant(tt.client, 0, zap.NewNop())
			reply := a.Chat(context.Background(), "", recipeCtx, question)
			assert.Equal(t, ApologyReply, reply)
		})
	}

	t.Run("no backend", func(t *testing.T) {
		a := NewAssistant(nil, 0, zap.NewNop())
		reply := a.Chat(context.Background(), strings.Repeat("x", 20000), recipeCtx, question)
		assert.Equal(t, ApologyReply, reply)
	})
}
