package telegram

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/edgard/socialbot/internal/message"
	"github.com/edgard/socialbot/internal/platform"
)

// Client publishes replies to Telegram chats. It satisfies platform.Client.
type Client struct {
	bot       *bot.Bot
	log       *slog.Logger
	maxLength int
}

var _ platform.Client = (*Client)(nil)

// NewClient wraps a bot instance.
func NewClient(b *bot.Bot, maxLength int, logger *slog.Logger) *Client {
	return &Client{
		bot:       b,
		log:       logger.With("component", "telegram_client"),
		maxLength: maxLength,
	}
}

// Platform implements platform.Client.
func (c *Client) Platform() message.Platform { return message.PlatformTelegram }

// MaxLength implements platform.Client.
func (c *Client) MaxLength() int { return c.maxLength }

// Transform fills the reply target and author from the raw webhook update.
// The reply target has the form "chatID:messageID". Messages without a raw
// update must already carry a ReplyTo.
func (c *Client) Transform(ctx context.Context, msg *message.Message) (*message.Message, error) {
	out := *msg
	if len(msg.Raw) == 0 {
		if out.ReplyTo == "" {
			return nil, fmt.Errorf("telegram message has neither a raw update nor a reply target")
		}
		if _, _, err := parseTarget(out.ReplyTo); err != nil {
			return nil, err
		}
		return &out, nil
	}

	var update models.Update
	if err := json.Unmarshal(msg.Raw, &update); err != nil {
		return nil, fmt.Errorf("failed to decode telegram update: %w", err)
	}
	m := update.Message
	if m == nil {
		return nil, fmt.Errorf("telegram update %d carries no message", update.ID)
	}

	out.ReplyTo = fmt.Sprintf("%d:%d", m.Chat.ID, m.ID)
	if m.From != nil {
		out.Author.ID = message.NewAuthorID(m.From.ID)
		if m.From.Username != "" {
			out.Author.Username = m.From.Username
		}
	}
	c.log.DebugContext(ctx, "Transformed telegram update", "update_id", update.ID, "chat_id", m.Chat.ID)
	return &out, nil
}

// Publish sends text to the chat named by parentID, replying to the message
// it references when present. Embeds are appended as links.
func (c *Client) Publish(ctx context.Context, text, parentID string, embeds []string) (platform.Ack, error) {
	chatID, replyTo, err := parseTarget(parentID)
	if err != nil {
		return platform.Ack{}, err
	}

	text = withEmbeds(text, embeds, c.maxLength)

	params := &bot.SendMessageParams{
		ChatID: chatID,
		Text:   text,
	}
	if replyTo != 0 {
		params.ReplyParameters = &models.ReplyParameters{MessageID: replyTo}
	}

	sent, err := c.bot.SendMessage(ctx, params)
	if err != nil {
		c.log.ErrorContext(ctx, "Failed to send reply message", "error", err, "chat_id", chatID)
		return platform.Ack{}, fmt.Errorf("telegram send failed: %w", err)
	}

	return platform.Ack{
		Platform: message.PlatformTelegram,
		ID:       fmt.Sprintf("%d:%d", sent.Chat.ID, sent.ID),
	}, nil
}

// withEmbeds appends embed links, shortening text so the result stays within
// limit runes. Links that cannot fit at all are dropped.
func withEmbeds(text string, embeds []string, limit int) string {
	if len(embeds) == 0 {
		return platform.Truncate(text, limit)
	}
	suffix := "\n\n" + strings.Join(embeds, "\n")
	room := limit - utf8.RuneCountInString(suffix)
	if limit > 0 && room <= 0 {
		return platform.Truncate(text, limit)
	}
	if limit > 0 {
		text = platform.Truncate(text, room)
	}
	return text + suffix
}

// parseTarget splits "chatID[:messageID]".
func parseTarget(target string) (int64, int, error) {
	chatPart, msgPart, hasMsg := strings.Cut(target, ":")
	chatID, err := strconv.ParseInt(chatPart, 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid telegram chat id %q: %w", chatPart, err)
	}
	if !hasMsg {
		return chatID, 0, nil
	}
	msgID, err := strconv.Atoi(msgPart)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid telegram message id %q: %w", msgPart, err)
	}
	return chatID, msgID, nil
}
