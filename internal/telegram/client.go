// Package telegram sends operator notifications via the Telegram Bot API.
// It reports the start of a feed failure streak and the recovery that ends it,
// with retry logic for delivery.
package telegram

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// sender is the part of the bot API the client uses
type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Client handles Telegram notifications
type Client struct {
	bot            sender
	chatID         int64
	source         string
	maxRetries     int
	retryDelayBase time.Duration
	sleep          func(time.Duration)
	now            func() time.Time
}

// NewClient creates a new Telegram client; source names the feed in messages
func NewClient(botToken, chatID, source string, maxRetries int, retryDelayBase time.Duration) (*Client, error) {
	chatIDInt, err := strconv.ParseInt(chatID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid chat ID: %w", err)
	}

	bot, err := tgbotapi.NewBotAPI(botToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create Telegram bot: %w", err)
	}

	return newClient(bot, chatIDInt, source, maxRetries, retryDelayBase), nil
}

func newClient(bot sender, chatID int64, source string, maxRetries int, retryDelayBase time.Duration) *Client {
	if maxRetries <= 0 {
		maxRetries = 3
	}
	if retryDelayBase <= 0 {
		retryDelayBase = time.Second
	}
	return &Client{
		bot:            bot,
		chatID:         chatID,
		source:         source,
		maxRetries:     maxRetries,
		retryDelayBase: retryDelayBase,
		sleep:          time.Sleep,
		now:            time.Now,
	}
}

// SendError reports the first failure of a streak
func (c *Client) SendError(err error) error {
	return c.send(c.formatError(err))
}

// SendRecovery reports that fetching works again after failures consecutive errors
func (c *Client) SendRecovery(failures int, downtime time.Duration) error {
	return c.send(c.formatRecovery(failures, downtime))
}

func (c *Client) send(text string) error {
	msg := tgbotapi.NewMessage(c.chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdownV2
	msg.DisableWebPagePreview = true

	var lastErr error
	for i := 0; i < c.maxRetries; i++ {
		_, err := c.bot.Send(msg)
		if err == nil {
			return nil
		}
		lastErr = err
		if i < c.maxRetries-1 {
			c.sleep(c.retryDelayBase * time.Duration(i+1))
		}
	}

	return fmt.Errorf("failed to send message after %d retries: %w", c.maxRetries, lastErr)
}

func (c *Client) formatError(err error) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🚨 *Feed unavailable: %s*\n\n", escapeMarkdownV2(c.source))
	fmt.Fprintf(&b, "📅 Since: %s\n", escapeMarkdownV2(c.now().Format("2006-01-02 15:04:05")))
	fmt.Fprintf(&b, "❗ Error: `%s`\n", escapeCode(err.Error()))
	return b.String()
}

func (c *Client) formatRecovery(failures int, downtime time.Duration) string {
	var b strings.Builder
	fmt.Fprintf(&b, "✅ *Feed recovered: %s*\n\n", escapeMarkdownV2(c.source))
	fmt.Fprintf(&b, "🔁 Failed polls: %d\n", failures)
	fmt.Fprintf(&b, "⏱ Downtime: %s\n", escapeMarkdownV2(formatDuration(downtime)))
	return b.String()
}

// escapeMarkdownV2 escapes special characters for Telegram MarkdownV2
func escapeMarkdownV2(text string) string {
	// Characters that need escaping in MarkdownV2:
	// _ * [ ] ( ) ~ ` > # + - = | { } . !
	var b strings.Builder
	for _, char := range text {
		switch char {
		case '_', '*', '[', ']', '(', ')', '~', '`', '>', '#', '+', '-', '=', '|', '{', '}', '.', '!', '\\':
			b.WriteByte('\\')
		}
		b.WriteRune(char)
	}
	return b.String()
}

// escapeCode escapes text placed inside an inline code span
func escapeCode(text string) string {
	r := strings.NewReplacer("\\", "\\\\", "`", "\\`")
	return r.Replace(text)
}

// formatDuration formats a duration in a human-readable way
func formatDuration(d time.Duration) string {
	if hours := int(d.Hours()); hours >= 1 {
		if mins := int(d.Minutes()) % 60; mins > 0 {
			return fmt.Sprintf("%dh%dm", hours, mins)
		}
		return fmt.Sprintf("%dh", hours)
	}
	if mins := int(d.Minutes()); mins >= 1 {
		return fmt.Sprintf("%dm", mins)
	}
	return fmt.Sprintf("%ds", int(d.Seconds()))
}
