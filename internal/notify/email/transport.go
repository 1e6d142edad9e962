// Package email sends mail over SMTP with a per-recipient file fallback.
package email

import (
	"context"
	"crypto/tls"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gopkg.in/gomail.v2"

	"safesupport/internal/platform/config"
)

// Message is one email to one recipient.
type Message struct {
	From    string
	To      string
	Subject string
	Text    string
	HTML    string
}

// Transport delivers messages to a real mail server.
type Transport interface {
	// Verify checks connectivity and credentials.
	Verify(ctx context.Context) error
	// Send returns the Message-ID of the delivered message.
	Send(ctx context.Context, msg Message) (string, error)
}

// SMTP is a gomail-backed Transport. Port 465 uses implicit TLS; other ports
// upgrade with STARTTLS when the server offers it.
type SMTP struct {
	dialer *gomail.Dialer
	host   string
}

func NewSMTP(cfg config.SMTPConfig) *SMTP {
	d := gomail.NewDialer(cfg.Host, cfg.Port, cfg.User, cfg.Pass)
	d.SSL = cfg.Port == 465
	d.TLSConfig = &tls.Config{ServerName: cfg.Host, MinVersion: tls.VersionTLS12}
	return &SMTP{dialer: d, host: cfg.Host}
}

// Verify dials and authenticates, then hangs up. gomail has no context-aware
// dial, so ctx is only checked up front.
func (s *SMTP) Verify(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	conn, err := s.dialer.Dial()
	if err != nil {
		return fmt.Errorf("smtp verify %s: %w", s.host, err)
	}
	return conn.Close()
}

func (s *SMTP) Send(ctx context.Context, msg Message) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	id := fmt.Sprintf("<%s@%s>", uuid.NewString(), messageIDDomain(msg.From, s.host))

	m := gomail.NewMessage()
	m.SetHeader("From", msg.From)
	m.SetHeader("To", msg.To)
	m.SetHeader("Subject", msg.Subject)
	m.SetHeader("Message-ID", id)
	switch {
	case msg.Text != "" && msg.HTML != "":
		m.SetBody("text/plain", msg.Text)
		m.AddAlternative("text/html", msg.HTML)
	case msg.HTML != "":
		m.SetBody("text/html", msg.HTML)
	default:
		m.SetBody("text/plain", msg.Text)
	}

	if err := s.dialer.DialAndSend(m); err != nil {
		return "", fmt.Errorf("smtp send: %w", err)
	}
	return id, nil
}

func messageIDDomain(from, fallback string) string {
	if i := strings.LastIndex(from, "@"); i >= 0 && i < len(from)-1 {
		return strings.TrimSuffix(from[i+1:], ">")
	}
	return fallback
}
