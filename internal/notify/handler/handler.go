package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"safesupport/internal/notify"
	"safesupport/internal/notify/email"
	"safesupport/internal/platform/config"
	dErrors "safesupport/pkg/domain-errors"
	"safesupport/pkg/platform/httputil"
	authmw "safesupport/pkg/platform/middleware/auth"
	request "safesupport/pkg/platform/middleware/request"
)

const maxBodyBytes = 256 << 10

// Service defines the interface for alert fan-out.
type Service interface {
	SendSMS(ctx context.Context, userID string, recipients []string, message string) (*notify.BatchResult, error)
	SendEmail(ctx context.Context, userID string, recipients []string, content notify.Email) (*notify.BatchResult, error)
}

// TestMailer sends the SMTP self-test email.
type TestMailer interface {
	SendTest(ctx context.Context, to string) (email.Delivery, error)
}

// Handler serves the SMS and email alert endpoints.
type Handler struct {
	service Service
	mailer  TestMailer
	smtp    config.SMTPConfig
	guard   authmw.Guard
	logger  *slog.Logger
}

func New(service Service, mailer TestMailer, smtp config.SMTPConfig, guard authmw.Guard, logger *slog.Logger) *Handler {
	return &Handler{service: service, mailer: mailer, smtp: smtp, guard: guard, logger: logger}
}

// Register registers the notification routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.guard.Optional(), h.guard.Alerts())
		r.Post("/api/alerts/sms", h.handleSMS)
		r.Post("/api/alerts/email", h.handleEmail)
	})
	r.Post("/api/test-email", h.handleTestEmail)
}

type smsRequest struct {
	To      any    `json:"to"`
	Message string `json:"message"`
}

type emailRequest struct {
	To      any    `json:"to"`
	Subject string `json:"subject"`
	Text    string `json:"text"`
	HTML    string `json:"html"`
}

func (h *Handler) handleSMS(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := request.GetRequestID(ctx)

	var req smsRequest
	if err := decode(w, r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	if missing(req.To) || req.Message == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "Missing 'to' or 'message'"))
		return
	}
	recipients := notify.NormalizeRecipients(req.To)
	if len(recipients) == 0 {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "No valid recipients"))
		return
	}

	res, err := h.service.SendSMS(ctx, authmw.GetUserID(ctx), recipients, req.Message)
	h.writeBatch(w, r, "sms", res, err)
	if err == nil {
		h.logger.InfoContext(ctx, "sms alert dispatched",
			"mode", res.Mode,
			"recipients", len(recipients),
			"request_id", requestID,
		)
	}
}

func (h *Handler) handleEmail(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req emailRequest
	if err := decode(w, r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	content := notify.Email{Subject: req.Subject, Text: req.Text, HTML: req.HTML}
	if missing(req.To) || content.Empty() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "Missing 'to' or content ('subject'/'text'/'html')"))
		return
	}
	recipients := notify.NormalizeRecipients(req.To)
	if len(recipients) == 0 {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "No valid recipients"))
		return
	}

	res, err := h.service.SendEmail(ctx, authmw.GetUserID(ctx), recipients, content)
	h.writeBatch(w, r, "email", res, err)
}

// writeBatch answers 200 with the batch, 502 with the batch when every
// attempt failed and no fallback was allowed, or the mapped error otherwise.
func (h *Handler) writeBatch(w http.ResponseWriter, r *http.Request, channel string, res *notify.BatchResult, err error) {
	if err == nil {
		httputil.WriteJSON(w, http.StatusOK, res)
		return
	}
	ctx := r.Context()
	if res != nil && dErrors.HasCode(err, dErrors.CodeBadGateway) {
		h.logger.WarnContext(ctx, "alert delivery failed for every recipient",
			"channel", channel,
			"request_id", request.GetRequestID(ctx),
		)
		httputil.WriteJSON(w, http.StatusBadGateway, res)
		return
	}
	h.logger.ErrorContext(ctx, "alert dispatch failed",
		"channel", channel,
		"error", err,
		"request_id", request.GetRequestID(ctx),
	)
	httputil.WriteError(w, err)
}

type testEmailRequest struct {
	Email string `json:"email"`
}

type smtpSummary struct {
	Host string `json:"host"`
	Port string `json:"port"`
	User string `json:"user"`
	Pass string `json:"pass"`
}

type testEmailResponse struct {
	Message string      `json:"message"`
	Error   string      `json:"error,omitempty"`
	SMTP    smtpSummary `json:"smtp"`
}

func (h *Handler) handleTestEmail(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req testEmailRequest
	if err := decode(w, r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	if req.Email == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "Email address is required"))
		return
	}

	summary := h.smtpSummary()
	if _, err := h.mailer.SendTest(ctx, req.Email); err != nil {
		h.logger.ErrorContext(ctx, "test email failed",
			"error", err,
			"request_id", request.GetRequestID(ctx),
		)
		httputil.WriteJSON(w, http.StatusInternalServerError, testEmailResponse{
			Message: "Failed to send test email",
			Error:   err.Error(),
			SMTP:    summary,
		})
		return
	}
	httputil.WriteJSON(w, http.StatusOK, testEmailResponse{
		Message: "Test email sent successfully",
		SMTP:    summary,
	})
}

func (h *Handler) smtpSummary() smtpSummary {
	presence := func(v string) string {
		if v == "" {
			return "missing"
		}
		return "configured"
	}
	port := ""
	if h.smtp.Port != 0 {
		port = strconv.Itoa(h.smtp.Port)
	}
	return smtpSummary{
		Host: h.smtp.Host,
		Port: port,
		User: presence(h.smtp.User),
		Pass: presence(h.smtp.Pass),
	}
}

func decode(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return dErrors.New(dErrors.CodeBadRequest, "request body too large")
		}
		return dErrors.New(dErrors.CodeBadRequest, "invalid request body")
	}
	return nil
}

// missing reports whether a "to" value is absent or an empty string.
func missing(to any) bool {
	s, ok := to.(string)
	return to == nil || (ok && s == "")
}
