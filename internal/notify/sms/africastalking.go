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
	providerAfricasTalking = "africastalking"

	AfricasTalkingEndpoint        = "https://api.africastalking.com/version1/messaging"
	AfricasTalkingSandboxEndpoint = "https://api.sandbox.africastalking.com/version1/messaging"

	// atSandboxUser selects the sandbox endpoint.
	atSandboxUser = "sandbox"
	atStatusOK    = "Success"
)

// AfricasTalking sends through the Africa's Talking messaging API.
type AfricasTalking struct {
	username, apiKey, from string
	endpoint               string
	client                 *http.Client
}

func NewAfricasTalking(username, apiKey, from string, client *http.Client) *AfricasTalking {
	endpoint := AfricasTalkingEndpoint
	if username == atSandboxUser {
		endpoint = AfricasTalkingSandboxEndpoint
	}
	return &AfricasTalking{
		username: username,
		apiKey:   apiKey,
		from:     from,
		endpoint: endpoint,
		client:   client,
	}
}

// WithEndpoint points the provider at another base URL.
func (a *AfricasTalking) WithEndpoint(endpoint string) *AfricasTalking {
	a.endpoint = endpoint
	return a
}

func (a *AfricasTalking) Name() string { return providerAfricasTalking }

func (a *AfricasTalking) Configured() bool {
	return a.username != "" && a.apiKey != "" && a.from != ""
}

type atResponse struct {
	SMSMessageData struct {
		Message    string `json:"Message"`
		Recipients []struct {
			Status    string `json:"status"`
			MessageID string `json:"messageId"`
			Number    string `json:"number"`
		} `json:"Recipients"`
	} `json:"SMSMessageData"`
}

// TrySend treats the first recipient's "Success" status as delivered.
func (a *AfricasTalking) TrySend(ctx context.Context, to, message string) Outcome {
	form := url.Values{
		"username": {a.username},
		"to":       {to},
		"message":  {message},
		"from":     {a.from},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return failed(providerAfricasTalking, err.Error())
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("apiKey", a.apiKey)

	resp, err := a.client.Do(req)
	if err != nil {
		return failed(providerAfricasTalking, err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusMultipleChoices {
		return failed(providerAfricasTalking, fmt.Sprintf("unexpected status %d", resp.StatusCode))
	}
	var body atResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return failed(providerAfricasTalking, fmt.Sprintf("decode response: %v", err))
	}
	recipients := body.SMSMessageData.Recipients
	if len(recipients) == 0 || recipients[0].Status != atStatusOK {
		detail := body.SMSMessageData.Message
		if len(recipients) > 0 {
			detail = recipients[0].Status
		}
		return failed(providerAfricasTalking, detail)
	}
	return Outcome{OK: true, Provider: providerAfricasTalking, MessageID: recipients[0].MessageID}
}
