package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"safesupport/internal/alertlog"
	dErrors "safesupport/pkg/domain-errors"
	"safesupport/pkg/platform/httputil"
	authmw "safesupport/pkg/platform/middleware/auth"
	request "safesupport/pkg/platform/middleware/request"
)

// maxPayloadBytes bounds a panic alert or audit body.
const maxPayloadBytes = 64 << 10

// Service defines the interface for alert log operations.
type Service interface {
	RecordPanic(ctx context.Context, userID, entryType string, payload json.RawMessage) error
	Recent(ctx context.Context, userID string) ([]alertlog.Entry, error)
}

// Handler serves panic alert ingestion and the caller's alert history.
type Handler struct {
	service Service
	guard   authmw.Guard
	logger  *slog.Logger
}

func New(service Service, guard authmw.Guard, logger *slog.Logger) *Handler {
	return &Handler{service: service, guard: guard, logger: logger}
}

// Register registers the alert log routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.guard.Authenticated(), h.guard.Verified())
		r.Post("/api/panic-alert", h.handlePanicAlert)
		r.Post("/api/panic-audit", h.handlePanicAudit)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.guard.Authenticated(), h.guard.StrictlyVerified())
		r.Get("/alerts", h.handleListAlerts)
	})
}

func (h *Handler) handlePanicAlert(w http.ResponseWriter, r *http.Request) {
	h.record(w, r, alertlog.TypePanicAlert)
}

func (h *Handler) handlePanicAudit(w http.ResponseWriter, r *http.Request) {
	h.record(w, r, alertlog.TypePanicAudit)
}

// record always answers {ok:true} once the body parses; a failed append is
// logged by the service and never reported to the client.
func (h *Handler) record(w http.ResponseWriter, r *http.Request, entryType string) {
	ctx := r.Context()
	requestID := request.GetRequestID(ctx)
	userID := authmw.GetUserID(ctx)

	payload, err := readPayload(r)
	if err != nil {
		h.logger.WarnContext(ctx, "invalid panic payload",
			"type", entryType,
			"request_id", requestID,
			"error", err.Error(),
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	h.logger.InfoContext(ctx, "panic event received",
		"type", entryType,
		"user_id", userID,
		"request_id", requestID,
	)
	_ = h.service.RecordPanic(ctx, userID, entryType, payload)

	httputil.WriteJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (h *Handler) handleListAlerts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	entries, err := h.service.Recent(ctx, authmw.GetUserID(ctx))
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to read alerts",
			"request_id", request.GetRequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, entries)
}

// readPayload returns the body as raw JSON; an empty body becomes {}.
func readPayload(r *http.Request) (json.RawMessage, error) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxPayloadBytes))
	if err != nil {
		return nil, err
	}
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return json.RawMessage(`{}`), nil
	}
	if !json.Valid(body) {
		return nil, errInvalidJSON
	}
	return json.RawMessage(body), nil
}

var errInvalidJSON = dErrors.New(dErrors.CodeBadRequest, "body is not valid JSON")
