package bot

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

const updatesTimeout = 60

// UpdateSource delivers incoming Telegram updates.
type UpdateSource interface {
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// Commands answers chat commands received by long polling.
type Commands struct {
	source    UpdateSource
	sender    Sender
	webAppURL string
	logger    zerolog.Logger
}

// NewCommands creates a command loop.
func NewCommands(source UpdateSource, sender Sender, webAppURL string, logger zerolog.Logger) *Commands {
	return &Commands{
		source:    source,
		sender:    sender,
		webAppURL: webAppURL,
		logger:    logger.With().Str("component", "commands").Logger(),
	}
}

// Run handles updates until ctx is done or the update channel closes.
func (c *Commands) Run(ctx context.Context) {
	cfg := tgbotapi.NewUpdate(0)
	cfg.Timeout = updatesTimeout
	updates := c.source.GetUpdatesChan(cfg)

	c.logger.Info().Msg("listening for bot commands")

	for {
		select {
		case <-ctx.Done():
			c.source.StopReceivingUpdates()
			return
		case upd, ok := <-updates:
			if !ok {
				return
			}
			c.handle(upd)
		}
	}
}

func (c *Commands) handle(upd tgbotapi.Update) {
	if upd.Message == nil || !upd.Message.IsCommand() {
		return
	}

	switch upd.Message.Command() {
	case "start":
		msg := startMessage(upd.Message.Chat.ID, c.webAppURL)
		if _, err := c.sender.Send(msg); err != nil {
			c.logger.Error().Err(err).Int64("chat_id", upd.Message.Chat.ID).Msg("failed to answer /start")
		}
	default:
		c.logger.Debug().Str("command", upd.Message.Command()).Msg("unknown command")
	}
}

func startMessage(chatID int64, webAppURL string) tgbotapi.MessageConfig {
	msg := tgbotapi.NewMessage(chatID, "Привет! Здесь можно забронировать товары Wildberries с кешбэком.\n\nОткройте каталог кнопкой ниже:")
	if webAppURL != "" {
		msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
			tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonURL("Открыть каталог", webAppURL),
			),
		)
	}
	return msg
}
