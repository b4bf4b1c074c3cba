package notify

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"wb-aggregator/internal/model"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"
)

const (
	defaultPopTimeout = 5 * time.Second
	pollErrorBackoff  = 5 * time.Second
	breakerTimeout    = 30 * time.Second
	breakerTrips      = 5
)

// Sender delivers a notification to the user.
type Sender interface {
	Send(ctx context.Context, n *model.Notification) error
}

// RelayConfig holds the relay retry policy.
type RelayConfig struct {
	MaxRetries int
	RetryDelay time.Duration
	PopTimeout time.Duration
}

// Relay moves notifications from the queue to the bot, retrying failures
// and parking the ones that keep failing on the dead-letter list.
type Relay struct {
	queue   *Queue
	sender  Sender
	breaker *gobreaker.CircuitBreaker[struct{}]
	cfg     RelayConfig
	sleep   func(ctx context.Context, d time.Duration) error
	now     func() time.Time
	logger  zerolog.Logger
}

// NewRelay creates a relay. Calls to sender go through a circuit breaker
// that opens after consecutive failures.
func NewRelay(queue *Queue, sender Sender, cfg RelayConfig, logger zerolog.Logger) *Relay {
	if cfg.PopTimeout <= 0 {
		cfg.PopTimeout = defaultPopTimeout
	}

	r := &Relay{
		queue:  queue,
		sender: sender,
		cfg:    cfg,
		sleep:  sleepContext,
		now:    time.Now,
		logger: logger.With().Str("component", "notification-relay").Logger(),
	}

	r.breaker = gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:        "bot-notifications",
		MaxRequests: 1,
		Timeout:     breakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= breakerTrips
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			r.logger.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("circuit breaker state changed")
		},
		// A flood wait means the bot is healthy but busy.
		IsSuccessful: func(err error) bool {
			var rl *RateLimitError
			return err == nil || errors.As(err, &rl)
		},
	})

	return r
}

// Run processes notifications until ctx is done.
func (r *Relay) Run(ctx context.Context) {
	r.logger.Info().Msg("notification relay started")

	for {
		if ctx.Err() != nil {
			r.logger.Info().Msg("notification relay stopped")
			return
		}

		payload, err := r.queue.Pop(ctx, r.cfg.PopTimeout)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			r.logger.Error().Err(err).Msg("failed to pop notification")
			_ = r.sleep(ctx, pollErrorBackoff)
			continue
		}
		if payload == nil {
			continue
		}

		r.Process(ctx, payload)
	}
}

// Process delivers one queued payload, re-queueing or dead-lettering it on
// failure. Queue writes outlive ctx cancellation so shutdown does not drop
// a message that was already popped.
func (r *Relay) Process(ctx context.Context, payload []byte) {
	writeCtx := context.WithoutCancel(ctx)

	var n model.Notification
	if err := json.Unmarshal(payload, &n); err != nil {
		r.logger.Error().Err(err).Msg("undecodable notification, moving to dead-letter queue")
		r.deadLetter(writeCtx, payload)
		return
	}

	log := r.logger.With().
		Str("reservation_id", n.ReservationID.String()).
		Int64("user_id", n.UserID).
		Int("retries", n.Retries).
		Logger()

	sent, err := r.queue.WasSent(ctx, n.ReservationID)
	if err != nil {
		log.Warn().Err(err).Msg("failed to check delivery marker")
	} else if sent {
		log.Warn().Msg("notification already delivered, skipping")
		return
	}

	_, err = r.breaker.Execute(func() (struct{}, error) {
		return struct{}{}, r.sender.Send(ctx, &n)
	})
	if err == nil {
		if mErr := r.queue.MarkSent(writeCtx, n.ReservationID); mErr != nil {
			log.Warn().Err(mErr).Msg("failed to mark notification as delivered")
		}
		log.Info().Msg("notification delivered")
		return
	}

	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		log.Warn().Err(err).Msg("bot unavailable, re-queueing notification")
		_ = r.sleep(ctx, r.cfg.RetryDelay)
		r.requeue(writeCtx, &n, log)
		return
	}

	var rl *RateLimitError
	if errors.As(err, &rl) {
		log.Warn().Dur("retry_after", rl.RetryAfter).Msg("bot rate limited, waiting")
		_ = r.sleep(ctx, rl.RetryAfter)
	}

	if n.Retries+1 >= r.cfg.MaxRetries {
		failedAt := r.now().UTC()
		n.FailedAt = &failedAt
		n.LastError = err.Error()
		log.Error().Err(err).Msg("retry limit reached, moving to dead-letter queue")

		data, mErr := json.Marshal(&n)
		if mErr != nil {
			data = payload
		}
		r.deadLetter(writeCtx, data)
		return
	}

	n.Retries++
	n.LastError = err.Error()
	log.Warn().Err(err).Int("attempt", n.Retries).Int("max_retries", r.cfg.MaxRetries).Msg("notification failed, retrying")
	_ = r.sleep(ctx, r.cfg.RetryDelay)
	r.requeue(writeCtx, &n, log)
}

func (r *Relay) requeue(ctx context.Context, n *model.Notification, log zerolog.Logger) {
	if err := r.queue.Enqueue(ctx, n); err != nil {
		log.Error().Err(err).Msg("failed to re-queue notification")
	}
}

func (r *Relay) deadLetter(ctx context.Context, payload []byte) {
	if err := r.queue.DeadLetter(ctx, payload); err != nil {
		r.logger.Error().Err(err).Msg("failed to move notification to dead-letter queue")
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}

	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
