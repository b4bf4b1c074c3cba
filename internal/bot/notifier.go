package bot

import (
	"context"
	"fmt"
	"html"
	"strings"

	"wb-aggregator/internal/model"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

// Notifier tells buyers about their reservations.
type Notifier struct {
	sender    Sender
	webAppURL string
	logger    zerolog.Logger
}

// NewNotifier creates a notifier. webAppURL may be empty.
func NewNotifier(sender Sender, webAppURL string, logger zerolog.Logger) *Notifier {
	return &Notifier{
		sender:    sender,
		webAppURL: webAppURL,
		logger:    logger.With().Str("component", "notifier").Logger(),
	}
}

// Notify sends the reservation message to the buyer's chat.
func (n *Notifier) Notify(ctx context.Context, note *model.Notification) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := reservationMessage(note, n.webAppURL)
	if _, err := n.sender.Send(msg); err != nil {
		n.logger.Error().
			Err(err).
			Int64("user_id", note.UserID).
			Str("reservation_id", note.ReservationID.String()).
			Msg("failed to send telegram message")
		return fmt.Errorf("failed to send telegram message: %w", err)
	}

	n.logger.Info().
		Int64("user_id", note.UserID).
		Str("reservation_id", note.ReservationID.String()).
		Msg("reservation notification sent")

	return nil
}

// cashbackPrice is what the buyer pays after the cashback is returned.
func cashbackPrice(price, percent int) int {
	return price - price*percent/100
}

func reservationMessage(note *model.Notification, webAppURL string) tgbotapi.MessageConfig {
	g := note.GoodsData

	var b strings.Builder
	b.WriteString("✅ <b>Товар забронирован</b>\n\n")
	fmt.Fprintf(&b, "Товар: <b>%s</b>\n", html.EscapeString(g.Name))
	if g.Article != "" {
		fmt.Fprintf(&b, "Артикул: <code>%s</code>\n", html.EscapeString(g.Article))
	}
	fmt.Fprintf(&b, "Количество: %d шт.\n", note.Quantity)
	fmt.Fprintf(&b, "Цена на WB: %d ₽\n", g.Price)
	fmt.Fprintf(&b, "Цена с кешбэком: <b>%d ₽</b> (кешбэк %d%%)\n", cashbackPrice(g.Price, g.CashbackPercent), g.CashbackPercent)
	b.WriteString("\nПодтвердите заказ в приложении, чтобы получить кешбэк.")

	msg := tgbotapi.NewMessage(note.UserID, b.String())
	msg.ParseMode = tgbotapi.ModeHTML

	var row []tgbotapi.InlineKeyboardButton
	if g.URL != "" {
		row = append(row, tgbotapi.NewInlineKeyboardButtonURL("Открыть на WB", g.URL))
	}
	if webAppURL != "" {
		row = append(row, tgbotapi.NewInlineKeyboardButtonURL("Мои брони", webAppURL))
	}
	if len(row) > 0 {
		msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(row)
	}

	return msg
}
