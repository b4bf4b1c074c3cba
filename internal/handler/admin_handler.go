package handler

import (
	"net/http"
	"time"

	"wb-aggregator/internal/model"
	"wb-aggregator/internal/service"

	"github.com/rs/zerolog"
)

const dateLayout = "2006-01-02"

// AdminHandler serves the admin-only listings: stock rows and admins.
type AdminHandler struct {
	availability service.AvailabilityService
	admins       service.AdminService
	loc          *time.Location
	logger       zerolog.Logger
}

// NewAdminHandler creates a new admin handler. Date filters are read in loc.
func NewAdminHandler(
	availability service.AvailabilityService,
	admins service.AdminService,
	loc *time.Location,
	logger zerolog.Logger,
) *AdminHandler {
	return &AdminHandler{
		availability: availability,
		admins:       admins,
		loc:          loc,
		logger:       logger.With().Str("handler", "admin").Logger(),
	}
}

// ListAvailability handles GET /availability/ requests.
func (h *AdminHandler) ListAvailability(w http.ResponseWriter, r *http.Request) {
	var (
		filter model.AvailabilityFilter
		err    error
	)

	if filter.GoodsID, err = queryInt64(r, "goods_id"); err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}
	if filter.From, err = h.queryDate(r, "from"); err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}
	if filter.To, err = h.queryDate(r, "to"); err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}

	rows, err := h.availability.List(r.Context(), filter)
	if err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, rows)
}

// ListAdmins handles GET /admins/ requests.
func (h *AdminHandler) ListAdmins(w http.ResponseWriter, r *http.Request) {
	admins, err := h.admins.List(r.Context())
	if err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, admins)
}

// Me handles GET /me/ requests, telling the WebApp who the caller is.
func (h *AdminHandler) Me(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r, h.logger)
	if !ok {
		return
	}

	isAdmin := p.Admin
	if !isAdmin && p.UserID != 0 {
		var err error
		if isAdmin, err = h.admins.IsAdmin(r.Context(), p.UserID); err != nil {
			writeServiceError(w, r, err, h.logger)
			return
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"user":     p.User,
		"internal": p.Internal,
		"is_admin": isAdmin,
	})
}

func (h *AdminHandler) queryDate(r *http.Request, name string) (*time.Time, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	day, err := time.ParseInLocation(dateLayout, raw, h.loc)
	if err != nil {
		return nil, model.NewValidationError(name + " must be a date in YYYY-MM-DD format")
	}
	return &day, nil
}
