package handler

import (
	"context"
	"net/http"
	"strings"

	"wb-aggregator/internal/model"
	"wb-aggregator/internal/service"

	"github.com/rs/zerolog"
)

// ProductParser scrapes marketplace metadata for the admin goods form.
type ProductParser interface {
	Parse(ctx context.Context, rawURL string) (*model.ParsedGoods, error)
}

// GoodsHandler handles goods administration and the WebApp catalog.
type GoodsHandler struct {
	service service.GoodsService
	parser  ProductParser
	logger  zerolog.Logger
}

// NewGoodsHandler creates a new goods handler.
func NewGoodsHandler(service service.GoodsService, parser ProductParser, logger zerolog.Logger) *GoodsHandler {
	return &GoodsHandler{
		service: service,
		parser:  parser,
		logger:  logger.With().Str("handler", "goods").Logger(),
	}
}

// Create handles POST /goods/ requests.
func (h *GoodsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req model.GoodsCreateRequest
	if !decodeJSON(w, r, &req, h.logger) {
		return
	}

	goods, err := h.service.Create(r.Context(), &req)
	if err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusCreated, goods)
}

// List handles GET /goods/ requests.
func (h *GoodsHandler) List(w http.ResponseWriter, r *http.Request) {
	filter, err := goodsFilter(r)
	if err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}

	goods, err := h.service.List(r.Context(), filter)
	if err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, goods)
}

func goodsFilter(r *http.Request) (model.GoodsFilter, error) {
	q := r.URL.Query()
	filter := model.GoodsFilter{
		Name:    strings.TrimSpace(q.Get("name")),
		Article: strings.TrimSpace(q.Get("article")),
	}

	var err error
	if filter.MinPrice, err = queryInt(r, "min_price"); err != nil {
		return filter, err
	}
	if filter.MaxPrice, err = queryInt(r, "max_price"); err != nil {
		return filter, err
	}
	if filter.IsActive, err = queryBool(r, "is_active"); err != nil {
		return filter, err
	}
	if filter.IsHidden, err = queryBool(r, "is_hidden"); err != nil {
		return filter, err
	}
	if filter.CategoryID, err = queryInt64(r, "category_id"); err != nil {
		return filter, err
	}
	if filter.Skip, filter.Limit, err = pagination(r); err != nil {
		return filter, err
	}

	return filter, nil
}

// GetByID handles GET /goods/{id} requests. Hidden goods are only visible
// to admins.
func (h *GoodsHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r, h.logger)
	if !ok {
		return
	}
	id, ok := pathInt64(w, r, "id", h.logger)
	if !ok {
		return
	}

	goods, err := h.service.GetByID(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}
	if goods.IsHidden && !p.Admin {
		writeServiceError(w, r, model.ErrGoodsNotFound, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, goods)
}

// Update handles PUT /goods/{id} requests.
func (h *GoodsHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathInt64(w, r, "id", h.logger)
	if !ok {
		return
	}

	var req model.GoodsUpdateRequest
	if !decodeJSON(w, r, &req, h.logger) {
		return
	}

	goods, err := h.service.Update(r.Context(), id, &req)
	if err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, goods)
}

// Delete handles DELETE /goods/{id} requests by hiding the goods.
func (h *GoodsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathInt64(w, r, "id", h.logger)
	if !ok {
		return
	}

	if err := h.service.Hide(r.Context(), id); err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"id": id, "is_hidden": true})
}

// Search handles GET /goods/search/ requests.
func (h *GoodsHandler) Search(w http.ResponseWriter, r *http.Request) {
	goods, err := h.service.Search(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, goods)
}

// BulkHide handles PUT /goods/bulk/hide requests.
func (h *GoodsHandler) BulkHide(w http.ResponseWriter, r *http.Request) {
	h.setHidden(w, r, true)
}

// BulkShow handles PUT /goods/bulk/show requests.
func (h *GoodsHandler) BulkShow(w http.ResponseWriter, r *http.Request) {
	h.setHidden(w, r, false)
}

func (h *GoodsHandler) setHidden(w http.ResponseWriter, r *http.Request, hidden bool) {
	var req model.BulkVisibilityRequest
	if !decodeJSON(w, r, &req, h.logger) {
		return
	}

	updated, err := h.service.SetHidden(r.Context(), req.IDs, hidden)
	if err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, map[string]int64{"updated": updated})
}

// RegenerateAvailability handles POST /goods/{id}/regenerate-availability/ requests.
func (h *GoodsHandler) RegenerateAvailability(w http.ResponseWriter, r *http.Request) {
	id, ok := pathInt64(w, r, "id", h.logger)
	if !ok {
		return
	}

	created, err := h.service.RegenerateAvailability(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"goods_id": id, "created": created})
}

// Parse handles POST /goods/parse/ requests.
func (h *GoodsHandler) Parse(w http.ResponseWriter, r *http.Request) {
	var req model.ParseRequest
	if !decodeJSON(w, r, &req, h.logger) {
		return
	}

	parsed, err := h.parser.Parse(r.Context(), req.URL)
	if err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, parsed)
}

// Catalog handles GET /catalog/ requests.
func (h *GoodsHandler) Catalog(w http.ResponseWriter, r *http.Request) {
	categoryID, err := queryInt64(r, "category_id")
	if err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}

	items, err := h.service.Catalog(r.Context(), categoryID)
	if err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, items)
}
