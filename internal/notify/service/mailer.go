package service

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"safesupport/internal/notify"
	"safesupport/internal/notify/email"
)

// Mailer sends the account emails: verification, password reset and the SMTP
// self-test. Each goes through the same SMTP-or-file path as alert emails but
// is not recorded in the alert log.
type Mailer struct {
	emails EmailSender
	appURL string
	apiURL string
}

func NewMailer(emails EmailSender, appURL, apiURL string) *Mailer {
	return &Mailer{
		emails: emails,
		appURL: strings.TrimRight(appURL, "/"),
		apiURL: strings.TrimRight(apiURL, "/"),
	}
}

// VerificationURL is the link embedded in the verification email.
func (m *Mailer) VerificationURL(token string) string {
	return m.apiURL + "/api/auth/verify?token=" + url.QueryEscape(token)
}

// ResetURL is the front-end page that consumes a reset token.
func (m *Mailer) ResetURL(token string) string {
	return m.appURL + "/reset-password?token=" + url.QueryEscape(token)
}

func (m *Mailer) SendVerification(ctx context.Context, to, token string) error {
	link := m.VerificationURL(token)
	_, err := m.emails.Send(ctx, to, notify.Email{
		Subject: "Verify your email",
		Text:    "Please verify your email by visiting: " + link,
		HTML:    fmt.Sprintf(`<p>Please verify your email by clicking <a href="%s">here</a></p>`, link),
	})
	return err
}

func (m *Mailer) SendPasswordReset(ctx context.Context, to, token string) error {
	link := m.ResetURL(token)
	_, err := m.emails.Send(ctx, to, notify.Email{
		Subject: "Reset Your Password",
		Text:    "Reset your password: " + link,
		HTML:    fmt.Sprintf(resetHTML, link),
	})
	return err
}

// SendTest sends a fixed message used to check the SMTP configuration.
func (m *Mailer) SendTest(ctx context.Context, to string) (email.Delivery, error) {
	return m.emails.Send(ctx, to, notify.Email{
		Subject: "Test Email from SafeSupport",
		Text:    "This is a test email to verify your SMTP configuration is working.",
		HTML:    "<h1>Test Email</h1><p>This is a test email to verify your SMTP configuration is working.</p>",
	})
}

const resetHTML = `<div style="font-family: Arial, sans-serif; line-height: 1.6;">
  <h2>Password Reset Request</h2>
  <p>We received a request to reset your password. Click the button below to reset it:</p>
  <p>
    <a href="%s" style="background-color:#007BFF;color:white;padding:10px 20px;text-decoration:none;border-radius:5px;">Reset Password</a>
  </p>
  <p>If you did not request a password reset, please ignore this email.</p>
  <p>Thank you,<br/>The Support Team</p>
</div>`
