// Package telegram sends trade notifications via the Telegram Bot API.
package telegram

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/rewired-gh/polyflip/internal/models"
)

// Notifier sends bot lifecycle and trade notifications.
type Notifier struct {
	bot            *tgbotapi.BotAPI
	chatID         int64
	maxRetries     int
	retryDelayBase time.Duration
}

// NewNotifier creates a Telegram notifier.
func NewNotifier(botToken, chatID string) (*Notifier, error) {
	bot, err := tgbotapi.NewBotAPI(botToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create Telegram bot: %w", err)
	}

	chatIDInt, err := strconv.ParseInt(chatID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid chat ID: %w", err)
	}

	return &Notifier{
		bot:            bot,
		chatID:         chatIDInt,
		maxRetries:     3,
		retryDelayBase: time.Second,
	}, nil
}

// sendMarkdownV2 sends a MarkdownV2 message with linear-backoff retry.
func (n *Notifier) sendMarkdownV2(text string) error {
	msg := tgbotapi.NewMessage(n.chatID, text)
	msg.ParseMode = "MarkdownV2"

	var lastErr error
	for i := 0; i < n.maxRetries; i++ {
		if _, err := n.bot.Send(msg); err == nil {
			return nil
		} else {
			lastErr = err
		}
		time.Sleep(n.retryDelayBase * time.Duration(i+1))
	}
	return fmt.Errorf("failed after %d retries: %w", n.maxRetries, lastErr)
}

// SendBuy announces a dispatched buy order.
func (n *Notifier) SendBuy(slug string, side models.Side, price, size float64) error {
	emoji := "📈"
	if side == models.SideDown {
		emoji = "📉"
	}
	text := fmt.Sprintf("%s *Buy dispatched*\n%s\nside: %s\nprice: %s\nsize: %s",
		emoji,
		escapeMarkdownV2(slug),
		escapeMarkdownV2(string(side)),
		escapeMarkdownV2(fmt.Sprintf("%.4f", price)),
		escapeMarkdownV2(fmt.Sprintf("%.2f", size)),
	)
	return n.sendMarkdownV2(text)
}

// SendOutcome announces a resolved session.
func (n *Notifier) SendOutcome(slug string, outcome models.Outcome, priceToBeat, finalPrice float64) error {
	text := fmt.Sprintf("🏁 *%s wins*\n%s\nprice to beat: %s\nfinal: %s",
		escapeMarkdownV2(strings.ToUpper(string(outcome))),
		escapeMarkdownV2(slug),
		escapeMarkdownV2(fmt.Sprintf("%.2f", priceToBeat)),
		escapeMarkdownV2(fmt.Sprintf("%.2f", finalPrice)),
	)
	return n.sendMarkdownV2(text)
}

// SendError sends a cycle error notification.
func (n *Notifier) SendError(cycleErr error) error {
	text := fmt.Sprintf("⚠️ *Trading error*\n`%s`", escapeMarkdownV2(cycleErr.Error()))
	return n.sendMarkdownV2(text)
}

// escapeMarkdownV2 escapes special characters for Telegram MarkdownV2.
func escapeMarkdownV2(text string) string {
	var b strings.Builder
	b.Grow(len(text) + len(text)/4)
	for _, char := range text {
		switch char {
		case '_', '*', '[', ']', '(', ')', '~', '`', '>', '#', '+', '-', '=', '|', '{', '}', '.', '!':
			b.WriteByte('\\')
		}
		b.WriteRune(char)
	}
	return b.String()
}
