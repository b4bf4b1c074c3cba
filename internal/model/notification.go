package model

import (
	"time"

	"github.com/google/uuid"
)

// Notification is the message the API enqueues after a reservation and the
// relay forwards to the bot's /send_notification webhook.
type Notification struct {
	ReservationID uuid.UUID    `json:"reservation_id"`
	UserID        int64        `json:"user_id"`
	GoodsData     GoodsSummary `json:"goods_data"`
	Quantity      int          `json:"quantity"`
	Retries       int          `json:"retries,omitempty"`
	FailedAt      *time.Time   `json:"failed_at,omitempty"`
	LastError     string       `json:"last_error,omitempty"`
}

// NotificationResult is the bot webhook's success body.
type NotificationResult struct {
	Status            string `json:"status"`
	DeliveryConfirmed bool   `json:"delivery_confirmed"`
	RetryAfter        int    `json:"retry_after,omitempty"`
	Message           string `json:"message,omitempty"`
}

// Delivered reports whether the bot confirmed the message reached Telegram.
func (r *NotificationResult) Delivered() bool {
	return r.Status == "success" && r.DeliveryConfirmed
}

// TelegramUser is the user object carried in WebApp init data.
type TelegramUser struct {
	ID           int64  `json:"id"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name,omitempty"`
	Username     string `json:"username,omitempty"`
	LanguageCode string `json:"language_code,omitempty"`
}
