package assistant

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/xaenox/secondbrain/internal/llm"
	"github.com/xaenox/secondbrain/internal/models"
	"go.uber.org/zap"
)

const (
	DefaultMaxSnippetChars = 10000

	// ApologyReply is returned whenever the backend cannot produce an answer.
	ApologyReply = "Sorry, I couldn't answer that right now. Please try again in a moment."
	// AskReply is returned when the history holds no user question.
	AskReply = "What would you like to know about this link?"

	groundingAck = "Understood. I will answer questions using only this content."
)

var errEmptyReply = errors.New("empty reply")

// Assistant answers follow-up questions about one saved link. It keeps no
// state between calls: the caller replays the whole conversation each turn.
type Assistant struct {
	client          llm.Client
	maxSnippetChars int
	logger          *zap.Logger
}

func NewAssistant(client llm.Client, maxSnippetChars int, logger *zap.Logger) *Assistant {
	if maxSnippetChars <= 0 {
		maxSnippetChars = DefaultMaxSnippetChars
	}
	return &Assistant{
		client:          client,
		maxSnippetChars: maxSnippetChars,
		logger:          logger,
	}
}

// Chat returns the reply to the newest user message in messages. It never
// fails; backend problems produce ApologyReply.
func (a *Assistant) Chat(ctx context.Context, content string, chatCtx models.ChatContext, messages []models.ChatMessage) string {
	last := lastUserMessage(messages)
	if last < 0 {
		return AskReply
	}

	if a.client == nil {
		a.logger.Debug("Chat requested without an AI backend")
		return ApologyReply
	}

	history := make([]models.ChatMessage, 0, last+2)
	history = append(history,
		models.ChatMessage{Role: models.RoleUser, Text: a.groundingTurn(content, chatCtx)},
		models.ChatMessage{Role: models.RoleAssistant, Text: groundingAck},
	)
	history = append(history, messages[:last]...)

	reply, err := a.converse(ctx, history, messages[last].Text)
	if err != nil {
		a.logger.Warn("Chat failed",
			zap.String("title", chatCtx.Title),
			zap.String("backend", a.client.Name()),
			zap.Error(err))
		return ApologyReply
	}
	return reply
}

func (a *Assistant) converse(ctx context.Context, history []models.ChatMessage, message string) (reply string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("chat panicked: %v", r)
		}
	}()

	reply, err = a.client.Converse(ctx, history, message)
	if err != nil {
		return "", err
	}
	reply = strings.TrimSpace(reply)
	if reply == "" {
		return "", errEmptyReply
	}
	return reply, nil
}

func (a *Assistant) groundingTurn(content string, chatCtx models.ChatContext) string {
	var b strings.Builder
	b.WriteString("You are a helpful assistant answering questions about a link the user saved.\n")
	b.WriteString("Answer only from the information below. If the answer is not there, say so.\n\n")
	fmt.Fprintf(&b, "Title: %s\n", chatCtx.Title)
	fmt.Fprintf(&b, "Category: %s\n", chatCtx.Category)
	fmt.Fprintf(&b, "Summary: %s\n", chatCtx.Summary)

	snippet := []rune(content)
	if len(snippet) > a.maxSnippetChars {
		snippet = snippet[:a.maxSnippetChars]
	}
	if len(snippet) > 0 {
		fmt.Fprintf(&b, "\nContent:\n%s\n", string(snippet))
	}
	return b.String()
}

func lastUserMessage(messages []models.ChatMessage) int {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == models.RoleUser && strings.TrimSpace(messages[i].Text) != "" {
			return i
		}
	}
	return -1
}
