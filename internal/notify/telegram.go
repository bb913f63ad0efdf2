package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"priyom/internal/domain"
	"priyom/internal/events"
	"priyom/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const ChannelTelegram = "telegram"

// TelegramNotifier posts reservation changes to the operators' chat.
// The cancellation secret is never sent.
type TelegramNotifier struct {
	bot    domain.TelegramSender
	chatID int64
	loc    *time.Location
}

// NewTelegramBot connects to the Bot API with the configured token.
func NewTelegramBot(token string, debug bool) (*tgbotapi.BotAPI, error) {
	if token == "" {
		return nil, errors.New("telegram bot token is empty")
	}
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}
	bot.Debug = debug
	return bot, nil
}

func NewTelegramNotifier(bot domain.TelegramSender, chatID int64, loc *time.Location) *TelegramNotifier {
	if loc == nil {
		loc = time.UTC
	}
	return &TelegramNotifier{bot: bot, chatID: chatID, loc: loc}
}

func (n *TelegramNotifier) Channel() string { return ChannelTelegram }

func (n *TelegramNotifier) NotifyReservation(ctx context.Context, eventType string, r *models.Reservation) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := tgbotapi.NewMessage(n.chatID, n.format(eventType, r))
	msg.ParseMode = models.ParseModeMarkdown
	if _, err := n.bot.Send(msg); err != nil {
		return fmt.Errorf("telegram send: %w", err)
	}
	return nil
}

func (n *TelegramNotifier) format(eventType string, r *models.Reservation) string {
	var title string
	switch eventType {
	case events.EventReservationCreated:
		title = "🆕 *Новая заявка*"
	case events.EventReservationConfirmed:
		title = "✅ *Заявка подтверждена*"
	case events.EventReservationCancelled:
		title = "❌ *Заявка отменена*"
	default:
		title = "ℹ️ *Заявка изменена*"
	}

	escape := func(s string) string { return tgbotapi.EscapeText(models.ParseModeMarkdown, s) }

	var b strings.Builder
	b.WriteString(title)
	fmt.Fprintf(&b, "\n\n*ID:* %d", r.ID)
	fmt.Fprintf(&b, "\n*Специалист:* %d", r.OwnerID)
	fmt.Fprintf(&b, "\n*Время:* %s", escape(r.ScheduledAt.In(n.loc).Format(models.DateTimeLayout)))
	fmt.Fprintf(&b, "\n*Клиент:* %s", escape(r.RequesterName))
	fmt.Fprintf(&b, "\n*Контакт:* %s", escape(r.RequesterContact))
	fmt.Fprintf(&b, "\n*Статус:* %s", escape(string(r.Status)))
	return b.String()
}
