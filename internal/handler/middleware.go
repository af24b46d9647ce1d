package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gaming-library/internal/auth"
	"github.com/gaming-library/internal/config"
	"github.com/gaming-library/internal/domain"
	"github.com/gaming-library/internal/metrics"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
)

// UserResolver turns an access token into the user it was issued to
type UserResolver interface {
	ResolveUser(ctx context.Context, token string) (*domain.User, error)
}

// useCommon installs the middleware stack shared by both services
func useCommon(r chi.Router, cfg *config.HTTPConfig, logger *slog.Logger) {
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(logger))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	if cfg.RateLimit > 0 {
		r.Use(httprate.LimitByIP(cfg.RateLimit, cfg.RateLimitWindow))
	}
}

// requestLogger logs every request through slog and records API metrics
func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			route := r.URL.Path
			if rctx := chi.RouteContext(r.Context()); rctx != nil {
				if pattern := rctx.RoutePattern(); pattern != "" {
					route = pattern
				}
			}
			duration := time.Since(start)
			metrics.RecordAPIRequest(r.Method, route, status, duration)

			logger.Info("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", status,
				"bytes", ww.BytesWritten(),
				"duration", duration,
				"request_id", middleware.GetReqID(r.Context()),
			)
		})
	}
}

// bearerToken extracts the token of an "Authorization: Bearer ..." header
func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || token == "" {
		return "", false
	}
	return token, true
}

// requireUser rejects requests without a valid token for an existing user
// and stores the user's ID in the request context
func requireUser(users UserResolver, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				writeError(w, http.StatusUnauthorized, errMissingAuthHeader)
				return
			}
			user, ok := resolve(w, r, users, logger, token)
			if !ok {
				return
			}
			next.ServeHTTP(w, r.WithContext(auth.WithUserID(r.Context(), user.ID)))
		})
	}
}

// resolve loads the token's user, writing a 401 when that fails
func resolve(w http.ResponseWriter, r *http.Request, users UserResolver, logger *slog.Logger, token string) (*domain.User, bool) {
	user, err := users.ResolveUser(r.Context(), token)
	if err != nil {
		status := statusFor(err)
		if status == http.StatusNotFound {
			status = http.StatusUnauthorized
		}
		if status == http.StatusInternalServerError {
			writeServiceError(w, logger, "resolve user", err)
			return nil, false
		}
		writeError(w, status, err)
		return nil, false
	}
	return user, true
}
