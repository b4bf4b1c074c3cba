package bot

import (
	"errors"
	"net/http"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// Sender is the part of the Bot API used to deliver messages.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// NewBotAPI connects to the Telegram Bot API with a traced HTTP client.
func NewBotAPI(token string, timeout time.Duration) (*tgbotapi.BotAPI, error) {
	client := &http.Client{
		Timeout:   timeout,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}
	return tgbotapi.NewBotAPIWithClient(token, tgbotapi.APIEndpoint, client)
}

// logSender writes messages to the log instead of Telegram. Used in dev mode.
type logSender struct {
	logger zerolog.Logger
}

// NewLogSender creates a Sender that only logs.
func NewLogSender(logger zerolog.Logger) Sender {
	return &logSender{logger: logger.With().Str("component", "log-sender").Logger()}
}

func (s *logSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	if msg, ok := c.(tgbotapi.MessageConfig); ok {
		s.logger.Info().
			Int64("chat_id", msg.ChatID).
			Str("text", msg.Text).
			Msg("telegram message (dev mode)")
		return tgbotapi.Message{Text: msg.Text, Chat: &tgbotapi.Chat{ID: msg.ChatID}}, nil
	}
	s.logger.Info().Msg("telegram request (dev mode)")
	return tgbotapi.Message{}, nil
}

// RetryAfter extracts the flood wait from a Telegram error.
func RetryAfter(err error) (time.Duration, bool) {
	var tgErr *tgbotapi.Error
	if errors.As(err, &tgErr) && tgErr.RetryAfter > 0 {
		return time.Duration(tgErr.RetryAfter) * time.Second, true
	}
	return 0, false
}
