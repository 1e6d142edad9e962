package sms

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

const (
	providerVonage = "vonage"

	// VonageEndpoint is the Vonage (Nexmo) SMS API.
	VonageEndpoint = "https://rest.nexmo.com/sms/json"
)

// Vonage sends through the Vonage SMS API.
type Vonage struct {
	apiKey, apiSecret, from string
	endpoint                string
	client                  *http.Client
}

func NewVonage(apiKey, apiSecret, from string, client *http.Client) *Vonage {
	return &Vonage{
		apiKey:    apiKey,
		apiSecret: apiSecret,
		from:      from,
		endpoint:  VonageEndpoint,
		client:    client,
	}
}

// WithEndpoint points the provider at another base URL.
func (v *Vonage) WithEndpoint(endpoint string) *Vonage {
	v.endpoint = endpoint
	return v
}

func (v *Vonage) Name() string { return providerVonage }

func (v *Vonage) Configured() bool {
	return v.apiKey != "" && v.apiSecret != "" && v.from != ""
}

type vonageResponse struct {
	Messages []struct {
		Status    string `json:"status"`
		MessageID string `json:"message-id"`
		ErrorText string `json:"error-text"`
	} `json:"messages"`
}

// TrySend reports status "0" as delivered. Any other status is
// vonage_send_failed; transport or decoding errors are vonage_send_exception.
func (v *Vonage) TrySend(ctx context.Context, to, message string) Outcome {
	form := url.Values{
		"api_key":    {v.apiKey},
		"api_secret": {v.apiSecret},
		"from":       {v.from},
		"to":         {to},
		"text":       {message},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return v.exception(err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := v.client.Do(req)
	if err != nil {
		return v.exception(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusMultipleChoices {
		return v.exception(fmt.Errorf("unexpected status %d", resp.StatusCode))
	}
	var body vonageResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return v.exception(fmt.Errorf("decode response: %w", err))
	}
	if len(body.Messages) == 0 {
		return Outcome{Provider: providerVonage, Reason: "vonage_send_failed", Error: "empty response"}
	}
	msg := body.Messages[0]
	if msg.Status != "0" {
		detail := msg.ErrorText
		if detail == "" {
			detail = msg.Status
		}
		return Outcome{Provider: providerVonage, Reason: "vonage_send_failed", Error: detail}
	}
	return Outcome{OK: true, Provider: providerVonage, MessageID: msg.MessageID}
}

func (v *Vonage) exception(err error) Outcome {
	return Outcome{Provider: providerVonage, Reason: "vonage_send_exception", Error: err.Error()}
}
