package router

import (
	"net/http"

	"wb-aggregator/internal/handler"
	"wb-aggregator/internal/middleware"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// Handlers groups the API handlers the router dispatches to.
type Handlers struct {
	Goods        *handler.GoodsHandler
	Reservations *handler.ReservationHandler
	Categories   *handler.CategoryHandler
	Admin        *handler.AdminHandler
}

// Options configures authentication and static media serving.
type Options struct {
	Auth        middleware.AuthOptions
	Admins      middleware.AdminChecker
	CORSOrigins []string
	// MediaDir is served under /media/ when set.
	MediaDir string
}

// New creates the API router with all routes and middleware configured.
func New(h Handlers, opts Options, logger zerolog.Logger) http.Handler {
	r := chi.NewRouter()

	// Recovery -> RequestID -> Logging -> CORS, then per-group auth
	r.Use(middleware.Recovery(logger))
	r.Use(chimw.RequestID)
	r.Use(middleware.Logging(logger))
	r.Use(middleware.CORS(opts.CORSOrigins))

	r.Get("/health", health)

	if opts.MediaDir != "" {
		r.Handle("/media/*", http.StripPrefix("/media/", http.FileServer(http.Dir(opts.MediaDir))))
	}

	r.Group(func(r chi.Router) {
		r.Use(middleware.Authenticate(opts.Auth, logger))

		// Shared routes where admins see more than buyers
		shared := r.With(middleware.ResolveAdmin(opts.Admins, logger))
		shared.Get("/goods/{id}", h.Goods.GetByID)
		shared.Get("/users/{id}/daily-reservations-count/", h.Reservations.DailyCount)

		// WebApp routes
		r.Get("/me/", h.Admin.Me)
		r.Get("/catalog/", h.Goods.Catalog)
		r.Get("/categories/", h.Categories.List)
		r.Get("/categories/{id}", h.Categories.GetByID)
		r.Post("/reservations/", h.Reservations.Create)
		r.Get("/reservations/my/", h.Reservations.My)
		r.Get("/reservations/{id}", h.Reservations.GetByID)
		r.Delete("/reservations/{id}", h.Reservations.Cancel)
		r.Post("/reservations/{id}/confirm/", h.Reservations.Confirm)

		// Admin routes
		admin := r.With(middleware.RequireAdmin(opts.Admins, logger))
		admin.Get("/goods/", h.Goods.List)
		admin.Post("/goods/", h.Goods.Create)
		admin.Get("/goods/search/", h.Goods.Search)
		admin.Post("/goods/parse/", h.Goods.Parse)
		admin.Put("/goods/bulk/hide", h.Goods.BulkHide)
		admin.Put("/goods/bulk/show", h.Goods.BulkShow)
		admin.Put("/goods/{id}", h.Goods.Update)
		admin.Delete("/goods/{id}", h.Goods.Delete)
		admin.Post("/goods/{id}/regenerate-availability/", h.Goods.RegenerateAvailability)
		admin.Get("/reservations/", h.Reservations.List)
		admin.Put("/reservations/{id}/status/", h.Reservations.SetStatus)
		admin.Post("/categories/", h.Categories.Create)
		admin.Put("/categories/{id}", h.Categories.Update)
		admin.Delete("/categories/{id}", h.Categories.Delete)
		admin.Post("/categories/{id}/notes/", h.Categories.AddNote)
		admin.Delete("/categories/{id}/notes/{noteID}", h.Categories.DeleteNote)
		admin.Get("/availability/", h.Admin.ListAvailability)
		admin.Get("/admins/", h.Admin.ListAdmins)

		// Internal routes
		r.With(middleware.RequireInternal).Delete("/internal/reservations/{id}", h.Reservations.Cancel)
	})

	r.NotFound(notFound)
	r.MethodNotAllowed(methodNotAllowed)

	return otelhttp.NewHandler(r, "api")
}

// NewBot creates the bot process router serving the notification webhook.
func NewBot(notifications *handler.NotificationHandler, apiKey string, logger zerolog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recovery(logger))
	r.Use(chimw.RequestID)
	r.Use(middleware.Logging(logger))
	r.Use(middleware.APIKeyAuth(apiKey, logger))

	r.Get("/health", health)
	r.Post("/send_notification", notifications.Send)

	r.NotFound(notFound)
	r.MethodNotAllowed(methodNotAllowed)

	return otelhttp.NewHandler(r, "bot")
}

func health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status": "healthy"}`))
}

func notFound(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusNotFound)
	w.Write([]byte(`{"error": "NOT_FOUND", "message": "not found"}`))
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusMethodNotAllowed)
	w.Write([]byte(`{"error": "METHOD_NOT_ALLOWED", "message": "method not allowed"}`))
}
