package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"safesupport/internal/auth/models"
	dErrors "safesupport/pkg/domain-errors"
	"safesupport/pkg/platform/httputil"
	authmw "safesupport/pkg/platform/middleware/auth"
	"safesupport/pkg/requestcontext"
)

const maxAuthBodyBytes = 64 << 10

// Rate limiter classes for the auth routes.
const (
	ClassRegister      = "register"
	ClassLogin         = "login"
	ClassPasswordReset = "password_reset"
)

// Service defines the interface for account operations.
type Service interface {
	Register(ctx context.Context, req *models.RegisterRequest) (*models.AuthResult, error)
	Login(ctx context.Context, req *models.LoginRequest) (*models.AuthResult, error)
	Verify(ctx context.Context, token string) (models.VerifyOutcome, error)
	RequestPasswordReset(ctx context.Context, req *models.PasswordResetRequest) error
	ResetPassword(ctx context.Context, req *models.ResetPasswordRequest) error
	Me(ctx context.Context, userID string) (*models.PublicUser, error)
}

// RateLimiter wraps a route with a per-class request budget.
type RateLimiter interface {
	RateLimit(class string) func(http.Handler) http.Handler
}

// Handler serves the account endpoints.
type Handler struct {
	service Service
	limiter RateLimiter
	guard   authmw.Guard
	appURL  string
	logger  *slog.Logger
}

// New builds the handler. limiter may be nil.
func New(service Service, limiter RateLimiter, guard authmw.Guard, appURL string, logger *slog.Logger) *Handler {
	return &Handler{
		service: service,
		limiter: limiter,
		guard:   guard,
		appURL:  strings.TrimRight(appURL, "/"),
		logger:  logger,
	}
}

// Register registers the auth routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.With(h.limit(ClassRegister)).Post("/api/auth/register", h.handleRegister)
	r.With(h.limit(ClassLogin)).Post("/api/auth/login", h.handleLogin)
	r.Get("/api/auth/verify", h.handleVerify)
	r.With(h.limit(ClassPasswordReset)).Post("/api/auth/request-password-reset", h.handleRequestPasswordReset)
	r.With(h.limit(ClassPasswordReset)).Post("/api/auth/reset-password", h.handleResetPassword)
	r.Get("/reset-password", h.handleResetRedirect)
	r.With(h.guard.Authenticated()).Get("/api/auth/me", h.handleMe)
}

func (h *Handler) limit(class string) func(http.Handler) http.Handler {
	if h.limiter == nil {
		return func(next http.Handler) http.Handler { return next }
	}
	return h.limiter.RateLimit(class)
}

type okResponse struct {
	OK bool `json:"ok"`
}

type meResponse struct {
	User *models.PublicUser `json:"user"`
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterRequest
	if !decode(w, r, &req) {
		return
	}
	res, err := h.service.Register(r.Context(), &req)
	if err != nil {
		h.fail(w, r, "registration failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, res)
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if !decode(w, r, &req) {
		return
	}
	res, err := h.service.Login(r.Context(), &req)
	if err != nil {
		h.fail(w, r, "login failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, res)
}

// handleVerify is opened from an email client, so it answers in plain text
// and sends a first-time verification on to the web app.
func (h *Handler) handleVerify(w http.ResponseWriter, r *http.Request) {
	outcome, err := h.service.Verify(r.Context(), r.URL.Query().Get("token"))
	if err != nil {
		de, ok := dErrors.As(err)
		if !ok {
			h.logger.ErrorContext(r.Context(), "verification failed",
				"error", err,
				"request_id", requestcontext.RequestID(r.Context()),
			)
			writeText(w, http.StatusBadRequest, "Verification failed or token expired")
			return
		}
		writeText(w, httputil.StatusFor(de.Code), de.Message)
		return
	}
	if outcome == models.VerifyOutcomeAlreadyVerified {
		writeText(w, http.StatusOK, "Already verified")
		return
	}
	http.Redirect(w, r, h.appURL, http.StatusFound)
}

func (h *Handler) handleRequestPasswordReset(w http.ResponseWriter, r *http.Request) {
	var req models.PasswordResetRequest
	if !decode(w, r, &req) {
		return
	}
	if err := h.service.RequestPasswordReset(r.Context(), &req); err != nil {
		h.fail(w, r, "password reset request failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, okResponse{OK: true})
}

func (h *Handler) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	var req models.ResetPasswordRequest
	if !decode(w, r, &req) {
		return
	}
	if err := h.service.ResetPassword(r.Context(), &req); err != nil {
		h.fail(w, r, "password reset failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, okResponse{OK: true})
}

// handleResetRedirect forwards reset links that point at the API host to the
// web app, keeping the query string.
func (h *Handler) handleResetRedirect(w http.ResponseWriter, r *http.Request) {
	target := h.appURL + "/reset-password"
	if r.URL.RawQuery != "" {
		target += "?" + r.URL.RawQuery
	}
	http.Redirect(w, r, target, http.StatusFound)
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	user, err := h.service.Me(r.Context(), authmw.GetUserID(r.Context()))
	if err != nil {
		h.fail(w, r, "auth check failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, meResponse{User: user})
}

// fail logs unexpected errors and writes the response.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, msg string, err error) {
	if de, ok := dErrors.As(err); !ok || httputil.StatusFor(de.Code) >= http.StatusInternalServerError {
		h.logger.ErrorContext(r.Context(), msg,
			"error", err,
			"request_id", requestcontext.RequestID(r.Context()),
		)
	}
	httputil.WriteError(w, err)
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxAuthBodyBytes)).Decode(v); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return false
	}
	return true
}

func writeText(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}
