package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gaming-library/internal/config"
	"github.com/gaming-library/internal/domain"
	"github.com/go-chi/chi/v5"
)

// Accounts is the account API consumed by AuthHandler
type Accounts interface {
	Signup(ctx context.Context, req domain.SignupRequest) (*domain.TokenResponse, error)
	Login(ctx context.Context, req domain.LoginRequest) (*domain.TokenResponse, error)
	Me(ctx context.Context, token string) (*domain.UserInfo, error)
}

// AuthHandler serves the auth service endpoints
type AuthHandler struct {
	accounts Accounts
	http     *config.HTTPConfig
	logger   *slog.Logger
}

// NewAuthHandler creates a new auth HTTP handler
func NewAuthHandler(accounts Accounts, httpCfg *config.HTTPConfig, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		accounts: accounts,
		http:     httpCfg,
		logger:   logger,
	}
}

// Router creates and configures the auth service router
func (h *AuthHandler) Router() http.Handler {
	r := chi.NewRouter()
	useCommon(r, h.http, h.logger)

	r.Get("/health", healthCheck)
	r.Handle("/metrics", metricsHandler())

	r.Post("/signup", h.Signup)
	r.Post("/login", h.Login)
	r.Get("/me", h.Me)

	return r
}

// Signup registers a user and returns an access token
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req domain.SignupRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	token, err := h.accounts.Signup(r.Context(), req)
	if err != nil {
		writeServiceError(w, h.logger, "signup", err)
		return
	}
	writeCreated(w, token)
}

// Login exchanges email and password for an access token
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req domain.LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	token, err := h.accounts.Login(r.Context(), req)
	if err != nil {
		writeServiceError(w, h.logger, "login", err)
		return
	}
	writeSuccess(w, token)
}

// Me returns the profile of the token's user
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	token, ok := bearerToken(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, errMissingAuthHeader)
		return
	}

	info, err := h.accounts.Me(r.Context(), token)
	if err != nil {
		writeServiceError(w, h.logger, "me", err)
		return
	}
	writeSuccess(w, info)
}
