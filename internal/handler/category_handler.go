package handler

import (
	"net/http"

	"wb-aggregator/internal/model"
	"wb-aggregator/internal/service"

	"github.com/rs/zerolog"
)

// CategoryHandler handles category and category note requests.
type CategoryHandler struct {
	service service.CategoryService
	logger  zerolog.Logger
}

// NewCategoryHandler creates a new category handler.
func NewCategoryHandler(service service.CategoryService, logger zerolog.Logger) *CategoryHandler {
	return &CategoryHandler{
		service: service,
		logger:  logger.With().Str("handler", "category").Logger(),
	}
}

// List handles GET /categories/ requests.
func (h *CategoryHandler) List(w http.ResponseWriter, r *http.Request) {
	categories, err := h.service.List(r.Context())
	if err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, categories)
}

// Create handles POST /categories/ requests.
func (h *CategoryHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req model.CategoryRequest
	if !decodeJSON(w, r, &req, h.logger) {
		return
	}

	category, err := h.service.Create(r.Context(), &req)
	if err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusCreated, category)
}

// GetByID handles GET /categories/{id} requests.
func (h *CategoryHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, ok := pathInt64(w, r, "id", h.logger)
	if !ok {
		return
	}

	category, err := h.service.GetByID(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, category)
}

// Update handles PUT /categories/{id} requests.
func (h *CategoryHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathInt64(w, r, "id", h.logger)
	if !ok {
		return
	}

	var req model.CategoryRequest
	if !decodeJSON(w, r, &req, h.logger) {
		return
	}

	category, err := h.service.Update(r.Context(), id, &req)
	if err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, category)
}

// Delete handles DELETE /categories/{id} requests.
func (h *CategoryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathInt64(w, r, "id", h.logger)
	if !ok {
		return
	}

	if err := h.service.Delete(r.Context(), id); err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// AddNote handles POST /categories/{id}/notes/ requests.
func (h *CategoryHandler) AddNote(w http.ResponseWriter, r *http.Request) {
	id, ok := pathInt64(w, r, "id", h.logger)
	if !ok {
		return
	}

	var req model.CategoryNoteRequest
	if !decodeJSON(w, r, &req, h.logger) {
		return
	}

	note, err := h.service.AddNote(r.Context(), id, &req)
	if err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusCreated, note)
}

// DeleteNote handles DELETE /categories/{id}/notes/{noteID} requests.
func (h *CategoryHandler) DeleteNote(w http.ResponseWriter, r *http.Request) {
	id, ok := pathInt64(w, r, "id", h.logger)
	if !ok {
		return
	}
	noteID, ok := pathInt64(w, r, "noteID", h.logger)
	if !ok {
		return
	}

	if err := h.service.DeleteNote(r.Context(), id, noteID); err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
