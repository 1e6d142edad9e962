package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"safesupport/internal/vault"
	"safesupport/internal/vault/service"
	dErrors "safesupport/pkg/domain-errors"
	"safesupport/pkg/platform/httputil"
	authmw "safesupport/pkg/platform/middleware/auth"
	request "safesupport/pkg/platform/middleware/request"
)

const maxReportBytes = 1 << 20

// Service defines the interface for report vault operations.
type Service interface {
	Store(ctx context.Context, payload service.Submission, password, userID string) (string, error)
	RetrieveAll(ctx context.Context, password, idPrefix string) ([]vault.Report, error)
}

// Handler serves the encrypted report endpoints.
type Handler struct {
	service Service
	guard   authmw.Guard
	logger  *slog.Logger
}

func New(service Service, guard authmw.Guard, logger *slog.Logger) *Handler {
	return &Handler{service: service, guard: guard, logger: logger}
}

// Register registers the vault routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.guard.Optional())
		r.Post("/api/reports", h.handleStore)
		r.Get("/api/reports", h.handleRetrieve)
	})
}

type storeResponse struct {
	OK       bool   `json:"ok"`
	ReportID string `json:"reportId"`
}

type retrieveResponse struct {
	Reports []vault.Report `json:"reports"`
}

// handleStore takes {vaultPassword, ...fields}. The report is attributed to
// the caller only when a valid token is present, the body carries a userId
// and the reporter did not ask for anonymity.
func (h *Handler) handleStore(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := request.GetRequestID(ctx)

	var body map[string]any
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxReportBytes)).Decode(&body); err != nil || body == nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	password, _ := body["vaultPassword"].(string)
	delete(body, "vaultPassword")

	userID := ""
	if wantsAttribution(body) {
		userID = authmw.GetUserID(ctx)
	}

	id, err := h.service.Store(ctx, service.Submission(body), password, userID)
	if err != nil {
		if !dErrors.HasCode(err, dErrors.CodeBadRequest) {
			h.logger.ErrorContext(ctx, "failed to save report",
				"error", err,
				"request_id", requestID,
			)
		}
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, storeResponse{OK: true, ReportID: id})
}

func (h *Handler) handleRetrieve(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()

	reports, err := h.service.RetrieveAll(ctx, q.Get("password"), q.Get("reportId"))
	if err != nil {
		if !dErrors.HasCode(err, dErrors.CodeBadRequest) {
			h.logger.ErrorContext(ctx, "failed to retrieve reports",
				"error", err,
				"request_id", request.GetRequestID(ctx),
			)
		}
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, retrieveResponse{Reports: reports})
}

func wantsAttribution(body map[string]any) bool {
	if anon, _ := body["isAnonymous"].(bool); anon {
		return false
	}
	switch v := body["userId"].(type) {
	case string:
		return v != ""
	case nil:
		return false
	case bool:
		return v
	default:
		return true
	}
}
