package service

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"safesupport/internal/alertlog"
	"safesupport/internal/notify"
	"safesupport/internal/notify/email"
	"safesupport/internal/notify/filesink"
	"safesupport/internal/notify/sms"
	"safesupport/internal/platform/metrics"
	dErrors "safesupport/pkg/domain-errors"
	"safesupport/pkg/requestcontext"
)

var tracer = otel.Tracer("safesupport/notify")

// Messages returned when every attempt failed and no fallback is allowed.
const (
	MsgSMSFallbackDisabled   = "SMS send failed and fallback disabled"
	MsgEmailFallbackDisabled = "Email send failed and fallback disabled"
)

// EmailSender delivers one email to one recipient.
type EmailSender interface {
	Send(ctx context.Context, to string, content notify.Email) (email.Delivery, error)
}

// FallbackWriter persists an SMS batch nobody delivered.
type FallbackWriter interface {
	WriteSMS(rec filesink.SMSRecord, at time.Time) (string, error)
}

// AlertRecorder appends batch summaries to the alert log.
type AlertRecorder interface {
	Append(ctx context.Context, entry alertlog.Entry) error
}

// Config holds the fallback switches.
type Config struct {
	SMSFallbackToFile   bool
	EmailFallbackToFile bool
}

// Dispatcher fans a message out to a recipient list. The SMS provider is
// chosen once by the caller and never re-checked.
type Dispatcher struct {
	provider sms.Provider
	emails   EmailSender
	files    FallbackWriter
	alerts   AlertRecorder
	cfg      Config
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

// NewDispatcher accepts a nil provider: every SMS attempt then fails with
// no_sms_provider_configured.
func NewDispatcher(
	provider sms.Provider,
	emails EmailSender,
	files FallbackWriter,
	alerts AlertRecorder,
	cfg Config,
	m *metrics.Metrics,
	logger *slog.Logger,
) *Dispatcher {
	return &Dispatcher{
		provider: provider,
		emails:   emails,
		files:    files,
		alerts:   alerts,
		cfg:      cfg,
		metrics:  m,
		logger:   logger,
	}
}

// ProviderName is the selected SMS provider, or "none".
func (d *Dispatcher) ProviderName() string {
	if d.provider == nil {
		return notify.ModeNone
	}
	return d.provider.Name()
}

// SendSMS attempts every recipient in order. Any delivery makes the batch a
// success. When all fail the batch is written once to the fallback directory,
// or, with the fallback disabled, returned with a bad_gateway error.
func (d *Dispatcher) SendSMS(ctx context.Context, userID string, recipients []string, message string) (*notify.BatchResult, error) {
	ctx, span := tracer.Start(ctx, "notify.SendSMS")
	defer span.End()
	span.SetAttributes(
		attribute.String("notify.provider", d.ProviderName()),
		attribute.Int("notify.recipients", len(recipients)),
	)

	userID = senderID(userID)
	requestID := requestcontext.RequestID(ctx)
	provider := d.ProviderName()
	results := make([]notify.Attempt, 0, len(recipients))
	for _, to := range recipients {
		out := sms.Send(ctx, d.provider, to, message)
		d.logger.InfoContext(ctx, "sms attempt",
			"provider", provider,
			"to", to,
			"ok", out.OK,
			"reason", out.Reason,
			"request_id", requestID,
		)
		d.metrics.ObserveNotificationAttempt(notify.ChannelSMS, provider, out.OK)
		results = append(results, notify.Attempt{
			To:        to,
			OK:        out.OK,
			Provider:  out.Provider,
			SID:       out.SID,
			MessageID: out.MessageID,
			Reason:    out.Reason,
			Error:     out.Error,
		})
	}

	if first, ok := notify.AnySucceeded(results); ok {
		_ = d.alerts.Append(ctx, alertlog.Entry{
			Type:      alertlog.TypeSMS,
			Transport: first.Provider,
			UserID:    userID,
			To:        recipients,
		})
		span.SetStatus(codes.Ok, "")
		return &notify.BatchResult{OK: true, Mode: first.Provider, Results: results}, nil
	}

	if !d.cfg.SMSFallbackToFile {
		d.logger.WarnContext(ctx, "sms fallback to file disabled, returning error",
			"request_id", requestID,
		)
		span.SetStatus(codes.Error, MsgSMSFallbackDisabled)
		return &notify.BatchResult{
			OK:      false,
			Mode:    notify.ModeNone,
			Message: MsgSMSFallbackDisabled,
			Results: results,
		}, dErrors.New(dErrors.CodeBadGateway, MsgSMSFallbackDisabled)
	}

	now := requestcontext.Now(ctx)
	rec := filesink.SMSRecord{
		UserID:     userID,
		To:         recipients,
		Message:    message,
		ReceivedAt: now.UnixMilli(),
	}
	if ua := requestcontext.UserAgent(ctx); ua != "" {
		rec.UserAgent = &ua
		rec.Client = filesink.ParseClient(ua)
	}
	path, err := d.files.WriteSMS(rec, now)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "fallback write failed")
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "Failed to send SMS alert")
	}
	d.metrics.IncrementFallbackFiles(notify.ChannelSMS)
	d.logger.InfoContext(ctx, "sms saved to file",
		"path", path,
		"request_id", requestID,
	)
	span.SetStatus(codes.Ok, "")
	return &notify.BatchResult{OK: true, Mode: notify.ModeFile, File: path, Results: results}, nil
}

// SendEmail attempts every recipient in order and always records one alert
// log entry for the batch. With the file fallback disabled and nothing
// delivered it returns a bad_gateway error alongside the result.
func (d *Dispatcher) SendEmail(ctx context.Context, userID string, recipients []string, content notify.Email) (*notify.BatchResult, error) {
	ctx, span := tracer.Start(ctx, "notify.SendEmail")
	defer span.End()
	span.SetAttributes(attribute.Int("notify.recipients", len(recipients)))

	userID = senderID(userID)
	requestID := requestcontext.RequestID(ctx)
	results := make([]notify.Attempt, 0, len(recipients))
	for _, to := range recipients {
		delivery, err := d.emails.Send(ctx, to, content)
		if err != nil {
			d.logger.ErrorContext(ctx, "email send failed",
				"to", to,
				"error", err,
				"request_id", requestID,
			)
			d.metrics.ObserveNotificationAttempt(notify.ChannelEmail, notify.ModeNone, false)
			results = append(results, notify.Attempt{To: to, OK: false, Reason: err.Error()})
			continue
		}
		d.metrics.ObserveNotificationAttempt(notify.ChannelEmail, delivery.Transport, true)
		if delivery.Transport == notify.TransportFile {
			d.metrics.IncrementFallbackFiles(notify.ChannelEmail)
		}
		results = append(results, notify.Attempt{
			To:        to,
			OK:        true,
			Transport: delivery.Transport,
			MessageID: delivery.MessageID,
		})
	}

	first, anySuccess := notify.AnySucceeded(results)
	transport := notify.ModeNone
	if anySuccess {
		transport = first.Transport
	}
	_ = d.alerts.Append(ctx, alertlog.Entry{
		Type:      alertlog.TypeEmail,
		Transport: transport,
		UserID:    userID,
		To:        recipients,
		Meta: &alertlog.EmailMeta{
			SubjectPresent: content.Subject != "",
			TextPresent:    content.Text != "",
			HTMLPresent:    content.HTML != "",
		},
	})

	result := &notify.BatchResult{OK: anySuccess, Results: results}
	if !anySuccess && !d.cfg.EmailFallbackToFile {
		span.SetStatus(codes.Error, MsgEmailFallbackDisabled)
		result.Message = MsgEmailFallbackDisabled
		return result, dErrors.New(dErrors.CodeBadGateway, MsgEmailFallbackDisabled)
	}
	span.SetStatus(codes.Ok, "")
	return result, nil
}

func senderID(userID string) string {
	if userID == "" {
		return alertlog.PublicAnonUserID
	}
	return userID
}
