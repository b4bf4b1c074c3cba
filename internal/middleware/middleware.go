package middleware

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"slices"
	"strings"
	"time"

	"wb-aggregator/internal/auth"
	"wb-aggregator/internal/model"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

const (
	headerAPIKey        = "X-API-Key"
	headerAuthorization = "Authorization"
	initDataScheme      = "tma "
)

// AdminChecker reports whether a Telegram user may use the admin endpoints.
type AdminChecker interface {
	IsAdmin(ctx context.Context, userID int64) (bool, error)
}

// AuthOptions configures Authenticate.
type AuthOptions struct {
	APIKey   string
	BotToken string
	DevMode  bool
	MaxAge   time.Duration
	Now      func() time.Time
}

// writeError writes the standard JSON error body.
func writeError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(model.ErrorResponse{
		Error:     code,
		Message:   message,
		RequestID: chimw.GetReqID(r.Context()),
	})
}

// CORS adds CORS headers for the allowed origins; "*" allows any origin.
func CORS(origins []string) func(http.Handler) http.Handler {
	allowAll := slices.Contains(origins, "*")

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			switch {
			case allowAll:
				w.Header().Set("Access-Control-Allow-Origin", "*")
			case origin != "" && slices.Contains(origins, origin):
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Add("Vary", "Origin")
			}
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-API-Key")

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusOK)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// APIKeyAuth validates the X-API-Key header against the configured key.
// The /health endpoint is left open.
func APIKeyAuth(apiKey string, logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/health" {
				next.ServeHTTP(w, r)
				return
			}

			providedKey := r.Header.Get(headerAPIKey)
			if !keyMatches(providedKey, apiKey) {
				logger.Warn().
					Str("path", r.URL.Path).
					Str("provided_key", keyPrefix(providedKey)).
					Msg("unauthorized access attempt")
				writeError(w, r, http.StatusUnauthorized, model.ErrCodeUnauthorised, "Invalid or missing API key")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// Authenticate resolves the caller and stores an auth.Principal in the request
// context. An X-API-Key header identifies an internal caller; otherwise the
// Authorization header must carry Telegram WebApp init data ("tma <initData>").
func Authenticate(opts AuthOptions, logger zerolog.Logger) func(http.Handler) http.Handler {
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if key := r.Header.Get(headerAPIKey); key != "" {
				if !keyMatches(key, opts.APIKey) {
					logger.Warn().
						Str("path", r.URL.Path).
						Str("provided_key", keyPrefix(key)).
						Msg("invalid API key")
					writeError(w, r, http.StatusUnauthorized, model.ErrCodeUnauthorised, "Invalid API key")
					return
				}
				p := &auth.Principal{Internal: true, Admin: true}
				next.ServeHTTP(w, r.WithContext(auth.WithPrincipal(r.Context(), p)))
				return
			}

			header := r.Header.Get(headerAuthorization)
			if !strings.HasPrefix(header, initDataScheme) {
				writeError(w, r, http.StatusUnauthorized, model.ErrCodeUnauthorised, "Missing Telegram init data")
				return
			}
			raw := strings.TrimSpace(strings.TrimPrefix(header, initDataScheme))

			var (
				data *auth.InitData
				err  error
			)
			if opts.DevMode {
				data, err = auth.Parse(raw)
			} else {
				data, err = auth.Validate(raw, opts.BotToken, opts.MaxAge, now())
			}
			if err != nil {
				logger.Warn().Err(err).Str("path", r.URL.Path).Msg("init data rejected")
				writeError(w, r, http.StatusUnauthorized, model.ErrCodeUnauthorised, "Invalid Telegram init data")
				return
			}

			user := data.User
			p := &auth.Principal{UserID: user.ID, User: &user}
			next.ServeHTTP(w, r.WithContext(auth.WithPrincipal(r.Context(), p)))
		})
	}
}

// RequireAdmin lets through internal callers and users listed as admins.
func RequireAdmin(admins AdminChecker, logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := auth.FromContext(r.Context())
			if !ok {
				writeError(w, r, http.StatusUnauthorized, model.ErrCodeUnauthorised, "Authentication required")
				return
			}

			p, err := elevate(r.Context(), admins, p)
			if err != nil {
				logger.Error().Err(err).Int64("user_id", p.UserID).Msg("admin lookup failed")
				writeError(w, r, http.StatusInternalServerError, model.ErrCodeInternalError, "internal server error")
				return
			}
			if !p.Admin {
				writeError(w, r, http.StatusForbidden, model.ErrCodeForbidden, "Admin access required")
				return
			}

			next.ServeHTTP(w, r.WithContext(auth.WithPrincipal(r.Context(), p)))
		})
	}
}

// ResolveAdmin marks listed admins on the principal without rejecting anyone
// else. Routes shared by buyers and admins use it to widen what admins see.
func ResolveAdmin(admins AdminChecker, logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := auth.FromContext(r.Context())
			if !ok {
				next.ServeHTTP(w, r)
				return
			}

			p, err := elevate(r.Context(), admins, p)
			if err != nil {
				logger.Error().Err(err).Int64("user_id", p.UserID).Msg("admin lookup failed")
				writeError(w, r, http.StatusInternalServerError, model.ErrCodeInternalError, "internal server error")
				return
			}

			next.ServeHTTP(w, r.WithContext(auth.WithPrincipal(r.Context(), p)))
		})
	}
}

// elevate returns p with Admin set when the user is listed in admins. The
// stored principal is never modified.
func elevate(ctx context.Context, admins AdminChecker, p *auth.Principal) (*auth.Principal, error) {
	if p.Admin || p.UserID == 0 {
		return p, nil
	}

	isAdmin, err := admins.IsAdmin(ctx, p.UserID)
	if err != nil || !isAdmin {
		return p, err
	}

	elevated := *p
	elevated.Admin = true
	return &elevated, nil
}

// RequireInternal lets through API-key callers only.
func RequireInternal(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, ok := auth.FromContext(r.Context())
		if !ok || !p.Internal {
			writeError(w, r, http.StatusForbidden, model.ErrCodeForbidden, "Internal access only")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Logging logs HTTP requests with method, path, status, and duration.
func Logging(logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			wrapped := &responseWriter{
				ResponseWriter: w,
				statusCode:     http.StatusOK,
			}

			next.ServeHTTP(wrapped, r)

			duration := time.Since(start)

			event := logger.Info()
			if wrapped.statusCode >= http.StatusInternalServerError {
				event = logger.Error()
			}
			event.
				Str("request_id", chimw.GetReqID(r.Context())).
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", wrapped.statusCode).
				Dur("duration", duration).
				Str("remote_addr", r.RemoteAddr).
				Msg("HTTP request")
		})
	}
}

// Recovery recovers from panics and returns a 500 error.
func Recovery(logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					logger.Error().
						Interface("panic", err).
						Str("request_id", chimw.GetReqID(r.Context())).
						Str("method", r.Method).
						Str("path", r.URL.Path).
						Msg("panic recovered")

					writeError(w, r, http.StatusInternalServerError, model.ErrCodeInternalError, "internal server error")
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func keyMatches(provided, expected string) bool {
	if provided == "" || expected == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(provided), []byte(expected)) == 1
}

// keyPrefix keeps at most four characters of a key for logging.
func keyPrefix(key string) string {
	return key[:min(4, len(key))]
}
