package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"safesupport/internal/auth/models"
	dErrors "safesupport/pkg/domain-errors"
	"safesupport/pkg/platform/httputil"
	authmw "safesupport/pkg/platform/middleware/auth"
	"safesupport/pkg/requestcontext"
)

const maxContactsBytes = 256 << 10

// Service defines the interface for trusted contact operations.
type Service interface {
	List(ctx context.Context, userID string) ([]models.TrustedContact, error)
	Replace(ctx context.Context, userID string, contacts []models.TrustedContact) ([]models.TrustedContact, error)
}

// Handler serves /api/trusted-contacts.
type Handler struct {
	service Service
	guard   authmw.Guard
	logger  *slog.Logger
}

func New(service Service, guard authmw.Guard, logger *slog.Logger) *Handler {
	return &Handler{service: service, guard: guard, logger: logger}
}

// Register registers the contact routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.guard.Authenticated())
		r.Get("/api/trusted-contacts", h.handleList)
		r.Post("/api/trusted-contacts", h.handleReplace)
	})
}

type listResponse struct {
	TrustedContacts []models.TrustedContact `json:"trustedContacts"`
}

type replaceResponse struct {
	OK              bool                    `json:"ok"`
	TrustedContacts []models.TrustedContact `json:"trustedContacts"`
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	contacts, err := h.service.List(r.Context(), authmw.GetUserID(r.Context()))
	if err != nil {
		h.fail(r, "failed to load trusted contacts", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, listResponse{TrustedContacts: contacts})
}

func (h *Handler) handleReplace(w http.ResponseWriter, r *http.Request) {
	var body struct {
		TrustedContacts json.RawMessage `json:"trustedContacts"`
	}
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxContactsBytes)).Decode(&body); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	raw := bytes.TrimSpace(body.TrustedContacts)
	if len(raw) == 0 || raw[0] != '[' {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "trustedContacts must be an array"))
		return
	}
	var contacts []models.TrustedContact
	if err := json.Unmarshal(raw, &contacts); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid trusted contact"))
		return
	}

	saved, err := h.service.Replace(r.Context(), authmw.GetUserID(r.Context()), contacts)
	if err != nil {
		h.fail(r, "failed to save trusted contacts", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, replaceResponse{OK: true, TrustedContacts: saved})
}

func (h *Handler) fail(r *http.Request, msg string, err error) {
	if dErrors.HasCode(err, dErrors.CodeNotFound) {
		return
	}
	h.logger.ErrorContext(r.Context(), msg,
		"error", err,
		"request_id", requestcontext.RequestID(r.Context()),
	)
}
