package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"wb-aggregator/internal/model"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	// QueueKey is the Redis list holding pending notifications.
	QueueKey = "notifications"
	// DeadLetterKey is the Redis list holding notifications that gave up.
	DeadLetterKey = "notifications_dlq"

	sentKeyPrefix = "sent_reservation:"
	sentTTL       = 24 * time.Hour
)

// Queue is a FIFO of notifications on a Redis list.
type Queue struct {
	client *redis.Client
}

// NewQueue creates a queue on the given client.
func NewQueue(client *redis.Client) *Queue {
	return &Queue{client: client}
}

// Enqueue appends a notification to the queue.
func (q *Queue) Enqueue(ctx context.Context, n *model.Notification) error {
	data, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("marshal notification failed: %w", err)
	}

	if err := q.client.RPush(ctx, QueueKey, data).Err(); err != nil {
		return fmt.Errorf("redis rpush failed: %w", err)
	}
	return nil
}

// Pop waits up to timeout for the oldest notification. It returns nil, nil
// when the queue stayed empty.
func (q *Queue) Pop(ctx context.Context, timeout time.Duration) ([]byte, error) {
	res, err := q.client.BLPop(ctx, timeout, QueueKey).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis blpop failed: %w", err)
	}

	// BLPOP replies with [key, value].
	return []byte(res[1]), nil
}

// DeadLetter parks a payload on the dead-letter list.
func (q *Queue) DeadLetter(ctx context.Context, payload []byte) error {
	if err := q.client.RPush(ctx, DeadLetterKey, payload).Err(); err != nil {
		return fmt.Errorf("redis rpush dlq failed: %w", err)
	}
	return nil
}

// MarkSent remembers that the reservation's notification was delivered.
func (q *Queue) MarkSent(ctx context.Context, reservationID uuid.UUID) error {
	if err := q.client.Set(ctx, sentKeyPrefix+reservationID.String(), "1", sentTTL).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

// WasSent reports whether the reservation's notification was already delivered.
func (q *Queue) WasSent(ctx context.Context, reservationID uuid.UUID) (bool, error) {
	n, err := q.client.Exists(ctx, sentKeyPrefix+reservationID.String()).Result()
	if err != nil {
		return false, fmt.Errorf("redis exists failed: %w", err)
	}
	return n > 0, nil
}
