package model

import (
	"time"

	"github.com/google/uuid"
)

// ReservationStatus is the lifecycle state of a reservation.
type ReservationStatus string

const (
	StatusPending   ReservationStatus = "pending"
	StatusActive    ReservationStatus = "active"
	StatusConfirmed ReservationStatus = "confirmed"
	StatusCanceled  ReservationStatus = "canceled"
)

func (s ReservationStatus) IsValid() bool {
	switch s {
	case StatusPending, StatusActive, StatusConfirmed, StatusCanceled:
		return true
	}
	return false
}

// IsTerminal reports whether no further transition is possible.
func (s ReservationStatus) IsTerminal() bool {
	return s == StatusConfirmed || s == StatusCanceled
}

// CanTransitionTo encodes pending -> active -> confirmed, with cancellation
// allowed from any non-terminal state.
func (s ReservationStatus) CanTransitionTo(next ReservationStatus) bool {
	switch s {
	case StatusPending:
		return next == StatusActive || next == StatusCanceled
	case StatusActive:
		return next == StatusConfirmed || next == StatusCanceled
	}
	return false
}

// Reservation is a user's claim on one calendar day's stock of a goods row.
type Reservation struct {
	ID                       uuid.UUID         `json:"id"`
	UserID                   int64             `json:"user_id"`
	GoodsID                  int64             `json:"goods_id"`
	Quantity                 int               `json:"quantity"`
	ReservationDate          time.Time         `json:"reservation_date"`
	Status                   ReservationStatus `json:"status"`
	ConfirmationData         *Confirmation     `json:"confirmation_data,omitempty"`
	DeliveryConfirmationData *Confirmation     `json:"delivery_confirmation_data,omitempty"`
	CreatedAt                time.Time         `json:"created_at"`
	UpdatedAt                time.Time         `json:"updated_at"`
}

// ReservationView is a reservation joined with the goods fields the WebApp shows.
type ReservationView struct {
	Reservation
	GoodsName       string `json:"goods_name"`
	GoodsImage      string `json:"goods_image"`
	GoodsPrice      int    `json:"goods_price"`
	CashbackPercent int    `json:"cashback_percent"`
}

// ReservationRequest is the body of POST /reservations.
type ReservationRequest struct {
	GoodsID  int64 `json:"goods_id" validate:"required,gt=0"`
	Quantity int   `json:"quantity" validate:"required,gt=0"`
}

// StatusRequest is the body of the admin status endpoint.
type StatusRequest struct {
	Status ReservationStatus `json:"status" validate:"required,oneof=pending active confirmed canceled"`
}

// ReservationFilter narrows the admin reservation listing.
type ReservationFilter struct {
	Status  *ReservationStatus
	GoodsID *int64
	UserID  *int64
	Skip    int
	Limit   int
}

// Requester identifies who asks for a reservation change. Internal callers
// (the bot, operators holding the API key) bypass the ownership check.
type Requester struct {
	UserID   int64
	Internal bool
}

// ConfirmationKind selects which confirmation step a submission belongs to.
type ConfirmationKind string

const (
	ConfirmationOrder    ConfirmationKind = "order"
	ConfirmationDelivery ConfirmationKind = "delivery"
)

// Transition returns the status a reservation must be in to accept this
// confirmation, and the status it moves to afterwards.
func (k ConfirmationKind) Transition() (from, to ReservationStatus) {
	if k == ConfirmationDelivery {
		return StatusActive, StatusConfirmed
	}
	return StatusPending, StatusActive
}

// ConfirmationItemInput is one submitted piece of evidence. Data carries the
// base64-encoded file for photo and video requirements.
type ConfirmationItemInput struct {
	RequirementID string `json:"requirement_id" validate:"required"`
	Value         string `json:"value"`
	Data          []byte `json:"data"`
	ContentType   string `json:"content_type"`
}

// ConfirmationRequest is the body of POST /reservations/{id}/confirm.
type ConfirmationRequest struct {
	Type  ConfirmationKind        `json:"type" validate:"required,oneof=order delivery"`
	Items []ConfirmationItemInput `json:"items" validate:"dive"`
}

// ConfirmationEntry is a stored piece of evidence.
type ConfirmationEntry struct {
	RequirementID string          `json:"requirement_id"`
	Type          RequirementType `json:"type"`
	Title         string          `json:"title,omitempty"`
	Value         string          `json:"value,omitempty"`
	MediaURL      string          `json:"media_url,omitempty"`
}

// Confirmation is persisted as JSONB on the reservation row.
type Confirmation struct {
	Items       []ConfirmationEntry `json:"items"`
	SubmittedAt time.Time           `json:"submitted_at"`
}
