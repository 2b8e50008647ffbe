package bot

import (
	"sync"

	"github.com/xaenox/secondbrain/internal/models"
)

const maxConversationMessages = 20

type conversation struct {
	linkID   string
	messages []models.ChatMessage
}

// conversations holds the per-user chat history about the current link.
// It lives only in memory; a restart starts every user fresh.
type conversations struct {
	mu     sync.Mutex
	byUser map[int64]*conversation
}

func newConversations() *conversations {
	return &conversations{byUser: make(map[int64]*conversation)}
}

// reset starts a new conversation about linkID.
func (c *conversations) reset(userID int64, linkID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.byUser[userID] = &conversation{linkID: linkID}
}

// snapshot returns the current link and a copy of the history.
func (c *conversations) snapshot(userID int64) (string, []models.ChatMessage) {
	c.mu.Lock()
	defer c.mu.Unlock()

	conv, ok := c.byUser[userID]
	if !ok {
		return "", nil
	}
	return conv.linkID, append([]models.ChatMessage(nil), conv.messages...)
}

// record appends one exchange unless the user moved on to another link.
func (c *conversations) record(userID int64, linkID string, turns ...models.ChatMessage) {
	c.mu.Lock()
	defer c.mu.Unlock()

	conv, ok := c.byUser[userID]
	if !ok {
		conv = &conversation{linkID: linkID}
		c.byUser[userID] = conv
	}
	if conv.linkID != linkID {
		return
	}

	conv.messages = append(conv.messages, turns...)
	if extra := len(conv.messages) - maxConversationMessages; extra > 0 {
		conv.messages = append([]models.ChatMessage(nil), conv.messages[extra:]...)
	}
}
