package panicbutton

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"safesupport/internal/alertlog"
	"safesupport/internal/notify"
)

// StatusError is returned for non-2xx API responses.
type StatusError struct {
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("Status %d", e.StatusCode)
}

// Client calls the SafeSupport REST API on behalf of one user.
type Client struct {
	baseURL   string
	token     string
	userAgent string
	http      *http.Client
}

// NewClient builds a client. token may be empty for public alert setups.
func NewClient(baseURL, token, userAgent string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		token:     token,
		userAgent: userAgent,
		http:      httpClient,
	}
}

type auditPayload struct {
	Event               string `json:"event"`
	Timestamp           int64  `json:"timestamp"`
	Page                any    `json:"page"`
	UserAgent           string `json:"userAgent"`
	TriggerFromKeyboard *bool  `json:"triggerFromKeyboard,omitempty"`
}

// Audit posts a button event to /api/panic-audit.
func (c *Client) Audit(ctx context.Context, event string, at time.Time, fromKeyboard *bool) error {
	return c.post(ctx, "/api/panic-audit", auditPayload{
		Event:               event,
		Timestamp:           at.UnixMilli(),
		UserAgent:           c.userAgent,
		TriggerFromKeyboard: fromKeyboard,
	}, nil)
}

type panicPayload struct {
	Type      string  `json:"type"`
	Lat       float64 `json:"lat"`
	Lng       float64 `json:"lng"`
	Accuracy  float64 `json:"accuracy"`
	Timestamp int64   `json:"timestamp"`
	UserAgent string  `json:"userAgent"`
	Initial   bool    `json:"initial,omitempty"`
}

// SendPanic posts a location update to /api/panic-alert.
func (c *Client) SendPanic(ctx context.Context, loc Location, initial bool) error {
	return c.post(ctx, "/api/panic-alert", panicPayload{
		Type:      "panic",
		Lat:       loc.Lat,
		Lng:       loc.Lng,
		Accuracy:  loc.Accuracy,
		Timestamp: loc.Timestamp.UnixMilli(),
		UserAgent: c.userAgent,
		Initial:   initial,
	}, nil)
}

type smsPayload struct {
	To        []string `json:"to"`
	Message   string   `json:"message"`
	UserAgent string   `json:"userAgent"`
	Timestamp int64    `json:"timestamp"`
}

// SendSMS posts to /api/alerts/sms and returns the batch result.
func (c *Client) SendSMS(ctx context.Context, to []string, message string) (*notify.BatchResult, error) {
	var res notify.BatchResult
	err := c.post(ctx, "/api/alerts/sms", smsPayload{
		To:        to,
		Message:   message,
		UserAgent: c.userAgent,
		Timestamp: time.Now().UnixMilli(),
	}, &res)
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// History fetches the caller's newest-first alert log.
func (c *Client) History(ctx context.Context) ([]alertlog.Entry, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/alerts", nil)
	if err != nil {
		return nil, err
	}
	var entries []alertlog.Entry
	if err := c.do(req, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &StatusError{StatusCode: resp.StatusCode}
	}
	if out == nil {
		return nil
	}
	// An unreadable success body is treated like an empty one.
	_ = json.NewDecoder(resp.Body).Decode(out)
	return nil
}
