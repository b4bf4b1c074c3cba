package handler

import (
	"context"
	"net/http"
	"strconv"

	"wb-aggregator/internal/bot"
	"wb-aggregator/internal/model"

	"github.com/rs/zerolog"
)

// ReservationNotifier delivers reservation messages to Telegram.
type ReservationNotifier interface {
	Notify(ctx context.Context, note *model.Notification) error
}

// NotificationHandler serves the bot process webhook.
type NotificationHandler struct {
	notifier ReservationNotifier
	logger   zerolog.Logger
}

// NewNotificationHandler creates a new notification webhook handler.
func NewNotificationHandler(notifier ReservationNotifier, logger zerolog.Logger) *NotificationHandler {
	return &NotificationHandler{
		notifier: notifier,
		logger:   logger.With().Str("handler", "notification").Logger(),
	}
}

// Send handles POST /send_notification requests. A Telegram flood wait is
// reported as 429 with Retry-After so the relay backs off.
func (h *NotificationHandler) Send(w http.ResponseWriter, r *http.Request) {
	var note model.Notification
	if !decodeJSON(w, r, &note, h.logger) {
		return
	}
	if note.UserID <= 0 {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeValidation, "user_id is required", h.logger)
		return
	}

	err := h.notifier.Notify(r.Context(), &note)
	if err == nil {
		writeJSON(w, http.StatusOK, model.NotificationResult{Status: "success", DeliveryConfirmed: true})
		return
	}

	if wait, ok := bot.RetryAfter(err); ok {
		seconds := int(wait.Seconds())
		h.logger.Warn().
			Int64("user_id", note.UserID).
			Int("retry_after", seconds).
			Msg("telegram flood wait")
		w.Header().Set("Retry-After", strconv.Itoa(seconds))
		writeJSON(w, http.StatusTooManyRequests, model.NotificationResult{
			Status:     "error",
			RetryAfter: seconds,
			Message:    "telegram rate limit",
		})
		return
	}

	writeError(w, r, http.StatusBadGateway, model.ErrCodeUpstreamNotification, err.Error(), h.logger)
}
