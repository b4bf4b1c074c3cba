package integration

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"wb-aggregator/internal/bot"
	"wb-aggregator/internal/cache"
	"wb-aggregator/internal/handler"
	"wb-aggregator/internal/model"
	"wb-aggregator/internal/notify"
	"wb-aggregator/internal/repository"
	"wb-aggregator/internal/router"
	"wb-aggregator/internal/worker"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingSender stands in for the Telegram Bot API.
type recordingSender struct {
	mu       sync.Mutex
	messages []tgbotapi.MessageConfig
}

func (s *recordingSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	msg, ok := c.(tgbotapi.MessageConfig)
	if ok {
		s.messages = append(s.messages, msg)
	}
	return tgbotapi.Message{MessageID: len(s.messages)}, nil
}

func (s *recordingSender) sent() []tgbotapi.MessageConfig {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]tgbotapi.MessageConfig(nil), s.messages...)
}

func TestActivitySweep_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	env := SetupAPIEnv(t)
	logger := zerolog.Nop()
	ctx := context.Background()

	sweeper := worker.NewSweeper(
		repository.NewTxManager(env.DB.Pool, logger),
		repository.NewGoodsRepository(env.DB.Pool, logger),
		repository.NewAvailabilityRepository(env.DB.Pool, logger),
		cache.NewCatalogCache(env.Client, time.Minute),
		env.Calendar,
		time.Minute,
		logger,
	)

	t.Run("Expired goods leave the catalog after a sweep", func(t *testing.T) {
		CleanupDB(t, env.DB.Pool)
		g := createGoods(t, env, "expired", 1, nil)

		// Warm the cache so the sweep has something to invalidate.
		w := do(t, env.Server, http.MethodGet, "/catalog/", nil, buyer(buyerID))
		require.Equal(t, http.StatusOK, w.Code)

		_, err := env.DB.Pool.Exec(ctx,
			`UPDATE goods SET start_date = $2, end_date = $3 WHERE id = $1`,
			g.ID, today(env).AddDate(0, 0, -5), today(env).AddDate(0, 0, -1),
		)
		require.NoError(t, err)

		changed, err := sweeper.Sweep(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(1), changed)

		w = do(t, env.Server, http.MethodGet, "/catalog/", nil, buyer(buyerID))
		require.Equal(t, http.StatusOK, w.Code)
		var items []model.CatalogItem
		require.NoError(t, json.NewDecoder(w.Body).Decode(&items))
		assert.Empty(t, items)

		w = reserve(t, env, g.ID, 1, buyerID)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("Sweep with nothing to change is a no-op", func(t *testing.T) {
		CleanupDB(t, env.DB.Pool)
		createGoods(t, env, "current", 1, nil)

		changed, err := sweeper.Sweep(ctx)

		require.NoError(t, err)
		assert.Equal(t, int64(0), changed)
	})
}

func TestNotificationRelay_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	env := SetupAPIEnv(t)
	logger := zerolog.Nop()
	ctx := context.Background()

	sender := &recordingSender{}
	notifier := bot.NewNotifier(sender, "https://webapp.example", logger)
	botServer := httptest.NewServer(router.NewBot(handler.NewNotificationHandler(notifier, logger), testAPIKey, logger))
	t.Cleanup(botServer.Close)

	relay := notify.NewRelay(
		env.Queue,
		notify.NewBotClient(botServer.URL, testAPIKey, time.Second),
		notify.RelayConfig{MaxRetries: 3, RetryDelay: 10 * time.Millisecond, PopTimeout: 100 * time.Millisecond},
		logger,
	)

	t.Run("Reservation notification reaches the buyer's chat once", func(t *testing.T) {
		CleanupDB(t, env.DB.Pool)
		env.Redis.FlushAll()
		g := createGoods(t, env, "speaker", 1, nil)

		w := reserve(t, env, g.ID, 1, buyerID)
		require.Equal(t, http.StatusCreated, w.Code)
		var res model.Reservation
		require.NoError(t, json.NewDecoder(w.Body).Decode(&res))

		var payload []byte
		require.Eventually(t, func() bool {
			p, err := env.Queue.Pop(ctx, 50*time.Millisecond)
			payload = p
			return err == nil && p != nil
		}, 5*time.Second, 10*time.Millisecond)

		relay.Process(ctx, payload)
		// A duplicate delivery of the same payload is skipped.
		relay.Process(ctx, payload)

		messages := sender.sent()
		require.Len(t, messages, 1)
		assert.Equal(t, buyerID, messages[0].ChatID)
		assert.Contains(t, messages[0].Text, "speaker")

		delivered, err := env.Queue.WasSent(ctx, res.ID)
		require.NoError(t, err)
		assert.True(t, delivered)
	})

	t.Run("Relay loop drains the queue until cancelled", func(t *testing.T) {
		CleanupDB(t, env.DB.Pool)
		env.Redis.FlushAll()
		before := len(sender.sent())
		g := createGoods(t, env, "radio", 1, nil)

		require.Equal(t, http.StatusCreated, reserve(t, env, g.ID, 1, buyerID).Code)

		runCtx, cancel := context.WithCancel(ctx)
		done := make(chan struct{})
		go func() {
			defer close(done)
			relay.Run(runCtx)
		}()

		assert.Eventually(t, func() bool {
			return len(sender.sent()) == before+1
		}, 5*time.Second, 20*time.Millisecond)

		cancel()
		select {
		case <-done:
		case <-time.After(5 * time.Second):
			t.Fatal("relay did not stop after cancel")
		}
	})
}
