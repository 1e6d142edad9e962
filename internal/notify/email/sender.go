package email

import (
	"context"
	"errors"
	"log/slog"

	"safesupport/internal/notify"
	"safesupport/internal/notify/filesink"
	"safesupport/internal/platform/config"
	"safesupport/pkg/requestcontext"
)

// DefaultFrom is used when neither FROM_EMAIL nor SMTP_USER is set.
const DefaultFrom = "no-reply@example.com"

// ErrFallbackDisabled is returned when SMTP could not deliver and writing the
// email to a file is turned off.
var ErrFallbackDisabled = errors.New("Email fallback to file is disabled. Configure SMTP to enable real sending.") //nolint:staticcheck // returned verbatim as a per-recipient reason

// FileWriter persists an email that was not sent over SMTP.
type FileWriter interface {
	WriteEmail(rec filesink.EmailRecord) (string, error)
}

// Delivery describes how one email left the process.
type Delivery struct {
	Transport string
	MessageID string
}

// Sender delivers one email to one recipient: SMTP when a verified transport
// is available, otherwise a file under the email directory.
type Sender struct {
	transports     *Lazy
	files          FileWriter
	from           string
	fallbackToFile bool
	logger         *slog.Logger
}

func NewSender(cfg config.SMTPConfig, transports *Lazy, files FileWriter, logger *slog.Logger) *Sender {
	from := cfg.From
	if from == "" {
		from = cfg.User
	}
	if from == "" {
		from = DefaultFrom
	}
	return &Sender{
		transports:     transports,
		files:          files,
		from:           from,
		fallbackToFile: cfg.FallbackToFile,
		logger:         logger,
	}
}

// From is the envelope sender used for every message.
func (s *Sender) From() string { return s.from }

// Send tries SMTP first. A failed or unavailable SMTP send is written to a
// file unless the fallback is disabled.
func (s *Sender) Send(ctx context.Context, to string, content notify.Email) (Delivery, error) {
	if t := s.transports.Get(ctx); t != nil {
		id, err := t.Send(ctx, Message{
			From:    s.from,
			To:      to,
			Subject: content.Subject,
			Text:    content.Text,
			HTML:    content.HTML,
		})
		if err == nil {
			s.logger.InfoContext(ctx, "email sent via smtp",
				"message_id", id,
				"request_id", requestcontext.RequestID(ctx),
			)
			return Delivery{Transport: notify.TransportSMTP, MessageID: id}, nil
		}
		s.logger.ErrorContext(ctx, "smtp send failed, falling back to file",
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
	}

	if !s.fallbackToFile {
		return Delivery{}, ErrFallbackDisabled
	}

	path, err := s.files.WriteEmail(filesink.EmailRecord{
		Timestamp: requestcontext.Now(ctx).UnixMilli(),
		To:        to,
		From:      s.from,
		Subject:   content.Subject,
		Text:      content.Text,
		HTML:      content.HTML,
	})
	if err != nil {
		return Delivery{}, err
	}
	s.logger.InfoContext(ctx, "email saved to file",
		"path", path,
		"request_id", requestcontext.RequestID(ctx),
	)
	return Delivery{Transport: notify.TransportFile, MessageID: "file:" + path}, nil
}

// SMTPBuilder returns a Lazy builder for cfg. It reports false when SMTP is
// not configured.
func SMTPBuilder(cfg config.SMTPConfig) func() (Transport, bool) {
	return func() (Transport, bool) {
		if !cfg.Configured() {
			return nil, false
		}
		return NewSMTP(cfg), true
	}
}
