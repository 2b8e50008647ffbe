package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/xaenox/secondbrain/internal/fetcher"
	"github.com/xaenox/secondbrain/internal/ingest"
	"github.com/xaenox/secondbrain/internal/models"
	"github.com/xaenox/secondbrain/internal/storage"
	"go.uber.org/zap"
)

const (
	historyLimit = 5
	searchLimit  = 5
)

type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

type Bot struct {
	api           *tgbotapi.BotAPI
	sender        sender
	service       *ingest.Service
	storage       storage.Storage
	conversations *conversations
	logger        *zap.Logger
}

func New(token string, service *ingest.Service, storage storage.Storage, logger *zap.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}

	b := newBot(api, service, storage, logger)
	b.api = api
	return b, nil
}

func newBot(sender sender, service *ingest.Service, storage storage.Storage, logger *zap.Logger) *Bot {
	return &Bot{
		sender:        sender,
		service:       service,
		storage:       storage,
		conversations: newConversations(),
		logger:        logger,
	}
}

// Start polls for updates until ctx is cancelled.
func (b *Bot) Start(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)
	b.logger.Info("Bot started", zap.String("username", b.api.Self.UserName))

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			if update.Message == nil {
				continue
			}
			go b.handleMessage(ctx, update.Message)
		}
	}
}

func (b *Bot) handleMessage(ctx context.Context, message *tgbotapi.Message) {
	if message.From == nil {
		return
	}

	// Handle commands
	if message.IsCommand() {
		b.handleCommand(ctx, message)
		return
	}

	content := message.Text
	if message.Caption != "" {
		content = message.Caption
	}
	if strings.TrimSpace(content) == "" {
		return
	}

	if rawURL := extractURL(content); rawURL != "" {
		b.handleLink(fetcher.WithMessage(ctx, content), message, rawURL)
		return
	}

	b.handleQuestion(ctx, message, content)
}

func (b *Bot) handleLink(ctx context.Context, message *tgbotapi.Message, rawURL string) {
	link, err := b.service.Ingest(ctx, message.From.ID, rawURL)
	if err != nil {
		b.logger.Error("Failed to ingest link",
			zap.Error(err),
			zap.String("url", rawURL),
			zap.Int64("user_id", message.From.ID))
		if errors.Is(err, ingest.ErrInvalidURL) {
			b.sendErrorMessage(message.Chat.ID, "That doesn't look like a valid link.")
			return
		}
		b.sendErrorMessage(message.Chat.ID, "Sorry, I couldn't save your link. Please try again.")
		return
	}

	b.conversations.reset(message.From.ID, link.ID)

	msg := tgbotapi.NewMessage(message.Chat.ID, formatSavedMessage(link))
	msg.ParseMode = tgbotapi.ModeMarkdownV2
	msg.ReplyToMessageID = message.MessageID
	msg.DisableWebPagePreview = true
	if _, err := b.sender.Send(msg); err != nil {
		b.logger.Error("Failed to send saved link response",
			zap.Error(err),
			zap.Int64("chat_id", message.Chat.ID))
	}
}

func (b *Bot) handleQuestion(ctx context.Context, message *tgbotapi.Message, question string) {
	userID := message.From.ID
	linkID, history := b.conversations.snapshot(userID)

	turn := models.ChatMessage{Role: models.RoleUser, Text: question}
	reply, err := b.service.Ask(ctx, userID, linkID, append(history, turn))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			b.sendMessage(message.Chat.ID, "Send me a link first, then ask me anything about it.")
			return
		}
		b.logger.Error("Failed to answer question",
			zap.Error(err),
			zap.Int64("user_id", userID))
		b.sendErrorMessage(message.Chat.ID, "Sorry, I couldn't answer that. Please try again.")
		return
	}

	b.conversations.record(userID, linkID, turn, models.ChatMessage{Role: models.RoleAssistant, Text: reply})
	b.sendMessage(message.Chat.ID, reply)
}

func (b *Bot) handleCommand(ctx context.Context, message *tgbotapi.Message) {
	switch message.Command() {
	case "start":
		b.handleStart(message)
	case "help":
		b.handleHelp(message)
	case "tags":
		b.handleTags(ctx, message)
	case "categories":
		b.handleCategories(ctx, message)
	case "history":
		b.handleHistory(ctx, message)
	case "ask":
		question := strings.TrimSpace(message.CommandArguments())
		if question == "" {
			b.sendMessage(message.Chat.ID, "Usage: /ask <question about your last link>")
			return
		}
		b.handleQuestion(ctx, message, question)
	case "search":
		query := strings.TrimSpace(message.CommandArguments())
		if query == "" {
			b.sendMessage(message.Chat.ID, "Usage: /search <what you remember about a link>")
			return
		}
		b.handleSearch(ctx, message, query)
	case "favorite":
		b.handleStatus(ctx, message, models.StatusFavorite)
	case "archive":
		b.handleStatus(ctx, message, models.StatusArchived)
	default:
		b.sendMessage(message.Chat.ID, "Unknown command. Use /help to see available commands.")
	}
}

func (b *Bot) handleStart(message *tgbotapi.Message) {
	welcome := `Welcome to your Second Brain! 🧠
Send me any link and I'll read it, summarize it and file it with tags.

Then just reply with a question to ask me about the link you saved.
Use /help to see all available commands.`

	b.sendMessage(message.Chat.ID, welcome)
}

func (b *Bot) handleHelp(message *tgbotapi.Message) {
	help := `Available commands:
/start - Start the bot
/help - Show this help message
/tags - Show your tags
/categories - Show your categories
/history - Show your recent links
/ask <question> - Ask about your last saved link
/search <query> - Find saved links by meaning
/favorite - Mark your last saved link as favorite
/archive - Archive your last saved link

Send a link (articles, tweets, recipes...) to save it.
Send any other text to ask about the last link you saved.`

	b.sendMessage(message.Chat.ID, help)
}

func (b *Bot) handleTags(ctx context.Context, message *tgbotapi.Message) {
	tags, err := b.storage.GetUserTags(ctx, message.From.ID)
	if err != nil {
		b.logger.Error("Failed to get user tags",
			zap.Error(err),
			zap.Int64("user_id", message.From.ID))
		b.sendMessage(message.Chat.ID, "Sorry, failed to retrieve your tags. Please try again later.")
		return
	}

	if len(tags) == 0 {
		b.sendMessage(message.Chat.ID, "You don't have any tags yet.")
		return
	}

	b.sendMarkdown(message.Chat.ID, formatVocabulary("Your tags", tags))
}

func (b *Bot) handleCategories(ctx context.Context, message *tgbotapi.Message) {
	categories, err := b.storage.GetUserCategories(ctx, message.From.ID)
	if err != nil {
		b.logger.Error("Failed to get user categories",
			zap.Error(err),
			zap.Int64("user_id", message.From.ID))
		b.sendMessage(message.Chat.ID, "Sorry, failed to retrieve your categories. Please try again later.")
		return
	}

	if len(categories) == 0 {
		b.sendMessage(message.Chat.ID, "You don't have any categories yet.")
		return
	}

	b.sendMarkdown(message.Chat.ID, formatVocabulary("Your categories", categories))
}

func (b *Bot) handleHistory(ctx context.Context, message *tgbotapi.Message) {
	links, err := b.storage.ListLinks(ctx, message.From.ID, historyLimit, 0)
	if err != nil {
		b.logger.Error("Failed to get user links",
			zap.Error(err),
			zap.Int64("user_id", message.From.ID))
		b.sendErrorMessage(message.Chat.ID, "Sorry, I couldn't retrieve your link history.")
		return
	}

	if len(links) == 0 {
		b.sendMessage(message.Chat.ID, "You haven't saved any links yet.")
		return
	}

	b.sendMarkdown(message.Chat.ID, formatHistory(links))
}

func (b *Bot) handleSearch(ctx context.Context, message *tgbotapi.Message, query string) {
	hits, err := b.service.Search(ctx, message.From.ID, query, searchLimit)
	if err != nil {
		if errors.Is(err, ingest.ErrSearchUnavailable) {
			b.sendMessage(message.Chat.ID, "Search is not available: no AI backend is configured.")
			return
		}
		b.logger.Error("Failed to search links",
			zap.Error(err),
			zap.Int64("user_id", message.From.ID))
		b.sendErrorMessage(message.Chat.ID, "Sorry, search failed. Please try again.")
		return
	}

	if len(hits) == 0 {
		b.sendMessage(message.Chat.ID, "No matching links found.")
		return
	}

	b.sendMarkdown(message.Chat.ID, formatSearchResults(query, hits))
}

func (b *Bot) handleStatus(ctx context.Context, message *tgbotapi.Message, status models.LinkStatus) {
	user, err := b.storage.GetUser(ctx, message.From.ID)
	if err != nil || user.LastLinkID == "" {
		b.sendMessage(message.Chat.ID, "Send me a link first.")
		return
	}

	if err := b.storage.UpdateLinkStatus(ctx, message.From.ID, user.LastLinkID, status); err != nil {
		b.logger.Error("Failed to update link status",
			zap.Error(err),
			zap.String("link_id", user.LastLinkID),
			zap.String("status", string(status)))
		b.sendErrorMessage(message.Chat.ID, "Sorry, I couldn't update that link.")
		return
	}

	b.sendMessage(message.Chat.ID, fmt.Sprintf("Marked your last link as %s.", status))
}

func (b *Bot) sendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := b.sender.Send(msg); err != nil {
		b.logger.Error("Failed to send message",
			zap.Error(err),
			zap.Int64("chat_id", chatID))
	}
}

func (b *Bot) sendMarkdown(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdownV2
	if _, err := b.sender.Send(msg); err != nil {
		b.logger.Error("Failed to send message",
			zap.Error(err),
			zap.Int64("chat_id", chatID))
	}
}

func (b *Bot) sendErrorMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, "⚠️ "+text)
	if _, err := b.sender.Send(msg); err != nil {
		b.logger.Error("Failed to send error message",
			zap.Error(err),
			zap.Int64("chat_id", chatID))
	}
}
