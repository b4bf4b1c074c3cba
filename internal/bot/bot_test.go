package bot

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"wb-aggregator/internal/model"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSender struct {
	mu   sync.Mutex
	sent []tgbotapi.Chattable
	err  error
}

func (s *recordingSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, c)
	return tgbotapi.Message{}, s.err
}

func (s *recordingSender) messages() []tgbotapi.MessageConfig {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []tgbotapi.MessageConfig
	for _, c := range s.sent {
		if m, ok := c.(tgbotapi.MessageConfig); ok {
			out = append(out, m)
		}
	}
	return out
}

func sampleNotification() *model.Notification {
	return &model.Notification{
		ReservationID: uuid.New(),
		UserID:        555,
		GoodsData: model.GoodsSummary{
			ID:              1,
			Name:            "Kettle <Pro>",
			Price:           2000,
			CashbackPercent: 80,
			Article:         "123456",
			URL:             "https://www.wildberries.ru/catalog/123456/detail.aspx",
		},
		Quantity: 2,
	}
}

func TestCashbackPrice(t *testing.T) {
	assert.Equal(t, 400, cashbackPrice(2000, 80))
	assert.Equal(t, 999, cashbackPrice(999, 0))
	assert.Equal(t, 0, cashbackPrice(1500, 100))
}

func TestReservationMessage(t *testing.T) {
	msg := reservationMessage(sampleNotification(), "https://t.me/shop_bot/app")

	assert.Equal(t, int64(555), msg.ChatID)
	assert.Equal(t, tgbotapi.ModeHTML, msg.ParseMode)
	assert.Contains(t, msg.Text, "Kettle &lt;Pro&gt;")
	assert.Contains(t, msg.Text, "Количество: 2 шт.")
	assert.Contains(t, msg.Text, "2000 ₽")
	assert.Contains(t, msg.Text, "<b>400 ₽</b> (кешбэк 80%)")

	markup, ok := msg.ReplyMarkup.(tgbotapi.InlineKeyboardMarkup)
	require.True(t, ok)
	require.Len(t, markup.InlineKeyboard, 1)
	require.Len(t, markup.InlineKeyboard[0], 2)
	assert.Equal(t, "https://www.wildberries.ru/catalog/123456/detail.aspx", *markup.InlineKeyboard[0][0].URL)
	assert.Equal(t, "https://t.me/shop_bot/app", *markup.InlineKeyboard[0][1].URL)
}

func TestReservationMessage_NoButtons(t *testing.T) {
	note := sampleNotification()
	note.GoodsData.URL = ""

	msg := reservationMessage(note, "")

	assert.Nil(t, msg.ReplyMarkup)
}

func TestNotifier_Notify(t *testing.T) {
	sender := &recordingSender{}
	n := NewNotifier(sender, "", zerolog.Nop())

	require.NoError(t, n.Notify(context.Background(), sampleNotification()))

	msgs := sender.messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, int64(555), msgs[0].ChatID)
}

func TestNotifier_Notify_FloodWait(t *testing.T) {
	sender := &recordingSender{err: &tgbotapi.Error{
		Code:               429,
		Message:            "Too Many Requests: retry after 17",
		ResponseParameters: tgbotapi.ResponseParameters{RetryAfter: 17},
	}}
	n := NewNotifier(sender, "", zerolog.Nop())

	err := n.Notify(context.Background(), sampleNotification())

	require.Error(t, err)
	wait, ok := RetryAfter(err)
	assert.True(t, ok)
	assert.Equal(t, 17*time.Second, wait)
}

func TestRetryAfter_OtherErrors(t *testing.T) {
	_, ok := RetryAfter(errors.New("chat not found"))
	assert.False(t, ok)

	_, ok = RetryAfter(&tgbotapi.Error{Code: 400, Message: "Bad Request"})
	assert.False(t, ok)
}

func TestLogSender(t *testing.T) {
	s := NewLogSender(zerolog.Nop())

	msg, err := s.Send(tgbotapi.NewMessage(9, "hello"))

	require.NoError(t, err)
	assert.Equal(t, "hello", msg.Text)
	assert.Equal(t, int64(9), msg.Chat.ID)
}

type fakeUpdates struct {
	ch      chan tgbotapi.Update
	stopped chan struct{}
}

func (f *fakeUpdates) GetUpdatesChan(cfg tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	return f.ch
}

func (f *fakeUpdates) StopReceivingUpdates() {
	close(f.stopped)
}

func command(chatID int64, text string) tgbotapi.Update {
	return tgbotapi.Update{Message: &tgbotapi.Message{
		Text:     text,
		Chat:     &tgbotapi.Chat{ID: chatID},
		Entities: []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(text)}},
	}}
}

func TestCommands_Run(t *testing.T) {
	src := &fakeUpdates{ch: make(chan tgbotapi.Update), stopped: make(chan struct{})}
	sender := &recordingSender{}
	c := NewCommands(src, sender, "https://t.me/shop_bot/app", zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		c.Run(ctx)
		close(done)
	}()

	src.ch <- command(42, "/start")
	src.ch <- command(42, "/help")
	src.ch <- tgbotapi.Update{Message: &tgbotapi.Message{Text: "hi", Chat: &tgbotapi.Chat{ID: 42}}}
	src.ch <- tgbotapi.Update{}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("command loop did not stop")
	}
	<-src.stopped

	msgs := sender.messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, int64(42), msgs[0].ChatID)
	markup, ok := msgs[0].ReplyMarkup.(tgbotapi.InlineKeyboardMarkup)
	require.True(t, ok)
	assert.Equal(t, "https://t.me/shop_bot/app", *markup.InlineKeyboard[0][0].URL)
}
