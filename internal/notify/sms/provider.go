// Package sms delivers text messages through the first configured of a fixed,
// ordered list of providers.
package sms

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"safesupport/internal/platform/config"
)

// ReasonNoProvider is reported for every recipient when no provider has a
// complete credential set.
const ReasonNoProvider = "no_sms_provider_configured"

// DefaultTimeout bounds a single provider API call.
const DefaultTimeout = 30 * time.Second

// Outcome is the result of one provider call for one recipient.
type Outcome struct {
	OK        bool
	Provider  string
	SID       string
	MessageID string
	Reason    string
	Error     string
}

// Provider is one SMS vendor.
type Provider interface {
	Name() string
	// Configured reports whether the full credential set is present.
	Configured() bool
	// TrySend delivers message to a single recipient. It reports failures in
	// the Outcome and never returns an error.
	TrySend(ctx context.Context, to, message string) Outcome
}

// Select returns the first configured provider, or nil when none is.
func Select(providers ...Provider) Provider {
	for _, p := range providers {
		if p != nil && p.Configured() {
			return p
		}
	}
	return nil
}

// Send calls p.TrySend and turns a nil provider or a panic inside the vendor
// client into a failed Outcome.
func Send(ctx context.Context, p Provider, to, message string) (out Outcome) {
	if p == nil {
		return Outcome{Reason: ReasonNoProvider}
	}
	defer func() {
		if r := recover(); r != nil {
			out = failed(p.Name(), fmt.Sprint(r))
		}
	}()
	return p.TrySend(ctx, to, message)
}

// FromConfig builds the providers in priority order: Twilio, Vonage, then
// Africa's Talking.
func FromConfig(cfg config.SMSConfig, client *http.Client) []Provider {
	if client == nil {
		client = &http.Client{Timeout: DefaultTimeout}
	}
	return []Provider{
		NewTwilio(cfg.TwilioSID, cfg.TwilioAuthToken, cfg.TwilioFrom),
		NewVonage(cfg.VonageAPIKey, cfg.VonageAPISecret, cfg.VonageFrom, client),
		NewAfricasTalking(cfg.ATUsername, cfg.ATAPIKey, cfg.ATFrom, client),
	}
}

// failed names the provider only in Reason. Vonage outcomes set Provider
// themselves on failure; no other provider does.
func failed(provider, detail string) Outcome {
	return Outcome{
		Reason: provider + "_send_failed",
		Error:  detail,
	}
}
