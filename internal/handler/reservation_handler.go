package handler

import (
	"net/http"

	"wb-aggregator/internal/model"
	"wb-aggregator/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ReservationHandler handles reservation-related HTTP requests.
type ReservationHandler struct {
	service service.ReservationService
	logger  zerolog.Logger
}

// NewReservationHandler creates a new reservation handler.
func NewReservationHandler(service service.ReservationService, logger zerolog.Logger) *ReservationHandler {
	return &ReservationHandler{
		service: service,
		logger:  logger.With().Str("handler", "reservation").Logger(),
	}
}

// Create handles POST /reservations/ requests.
func (h *ReservationHandler) Create(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r, h.logger)
	if !ok {
		return
	}
	if p.UserID == 0 {
		writeError(w, r, http.StatusForbidden, model.ErrCodeForbidden, "Reservations are made by Telegram users", h.logger)
		return
	}

	var req model.ReservationRequest
	if !decodeJSON(w, r, &req, h.logger) {
		return
	}

	reservation, err := h.service.Reserve(r.Context(), p.UserID, &req)
	if err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusCreated, reservation)
}

// My handles GET /reservations/my/ requests.
func (h *ReservationHandler) My(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r, h.logger)
	if !ok {
		return
	}

	views, err := h.service.ListByUser(r.Context(), p.UserID)
	if err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, views)
}

// List handles GET /reservations/ requests.
func (h *ReservationHandler) List(w http.ResponseWriter, r *http.Request) {
	var filter model.ReservationFilter

	if raw := r.URL.Query().Get("status"); raw != "" {
		status := model.ReservationStatus(raw)
		if !status.IsValid() {
			writeError(w, r, http.StatusBadRequest, model.ErrCodeValidation, "invalid status", h.logger)
			return
		}
		filter.Status = &status
	}

	var err error
	if filter.GoodsID, err = queryInt64(r, "goods_id"); err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}
	if filter.UserID, err = queryInt64(r, "user_id"); err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}
	if filter.Skip, filter.Limit, err = pagination(r); err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}

	views, err := h.service.List(r.Context(), filter)
	if err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, views)
}

// GetByID handles GET /reservations/{id} requests.
func (h *ReservationHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r, h.logger)
	if !ok {
		return
	}
	id, ok := h.reservationID(w, r)
	if !ok {
		return
	}

	reservation, err := h.service.GetByID(r.Context(), id, p.Requester())
	if err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, reservation)
}

// Cancel handles DELETE /reservations/{id} and DELETE /internal/reservations/{id}.
// Internal callers skip the ownership check.
func (h *ReservationHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r, h.logger)
	if !ok {
		return
	}
	id, ok := h.reservationID(w, r)
	if !ok {
		return
	}

	reservation, err := h.service.Cancel(r.Context(), id, p.Requester())
	if err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, reservation)
}

// Confirm handles POST /reservations/{id}/confirm/ requests.
func (h *ReservationHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r, h.logger)
	if !ok {
		return
	}
	id, ok := h.reservationID(w, r)
	if !ok {
		return
	}

	var req model.ConfirmationRequest
	if !decodeJSON(w, r, &req, h.logger) {
		return
	}

	reservation, err := h.service.Confirm(r.Context(), id, p.Requester(), &req)
	if err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, reservation)
}

// SetStatus handles PUT /reservations/{id}/status/ requests.
func (h *ReservationHandler) SetStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := h.reservationID(w, r)
	if !ok {
		return
	}

	var req model.StatusRequest
	if !decodeJSON(w, r, &req, h.logger) {
		return
	}

	reservation, err := h.service.SetStatus(r.Context(), id, req.Status)
	if err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, reservation)
}

// DailyCount handles GET /users/{id}/daily-reservations-count/ requests.
// Users may only ask about themselves unless they are admins.
func (h *ReservationHandler) DailyCount(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r, h.logger)
	if !ok {
		return
	}
	userID, ok := pathInt64(w, r, "id", h.logger)
	if !ok {
		return
	}
	if !p.Admin && p.UserID != userID {
		writeError(w, r, http.StatusForbidden, model.ErrCodeForbidden, "Cannot read another user's reservations", h.logger)
		return
	}

	count, err := h.service.DailyCount(r.Context(), userID)
	if err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"user_id": userID, "count": count})
}

func (h *ReservationHandler) reservationID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeValidation, "invalid reservation ID format", h.logger)
		return uuid.Nil, false
	}
	return id, true
}
