package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"wb-aggregator/internal/model"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// defaultRetryAfter is used when the bot rate-limits without saying for how long.
const defaultRetryAfter = 30 * time.Second

// ErrNotDelivered is returned when the bot answered but did not confirm delivery.
var ErrNotDelivered = errors.New("notification not delivered")

// RateLimitError reports a Telegram flood wait relayed by the bot.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limited, retry after %s", e.RetryAfter)
}

// BotClient posts notifications to the bot process webhook.
type BotClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewBotClient creates a client for the bot webhook at baseURL.
func NewBotClient(baseURL, apiKey string, timeout time.Duration) *BotClient {
	return &BotClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

// Send delivers one notification. A nil error means the bot confirmed delivery.
func (c *BotClient) Send(ctx context.Context, n *model.Notification) error {
	body, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/send_notification", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call bot: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return fmt.Errorf("failed to read bot response: %w", err)
	}

	switch resp.StatusCode {
	case http.StatusOK:
		var result model.NotificationResult
		if err := json.Unmarshal(raw, &result); err != nil {
			return fmt.Errorf("failed to decode bot response: %w", err)
		}
		if result.Delivered() {
			return nil
		}
		if result.RetryAfter > 0 {
			return &RateLimitError{RetryAfter: time.Duration(result.RetryAfter) * time.Second}
		}
		return fmt.Errorf("%w: %s", ErrNotDelivered, result.Message)
	case http.StatusTooManyRequests:
		return &RateLimitError{RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After"))}
	default:
		return fmt.Errorf("bot responded with status %d: %s", resp.StatusCode, bytes.TrimSpace(raw))
	}
}

func parseRetryAfter(v string) time.Duration {
	secs, err := strconv.Atoi(v)
	if err != nil || secs <= 0 {
		return defaultRetryAfter
	}
	return time.Duration(secs) * time.Second
}
