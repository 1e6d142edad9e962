// Package filesink persists undeliverable SMS batches and emails as JSON files
// so an operator can inspect what would have been sent.
package filesink

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/mssola/useragent"
)

// ClientInfo is parsed from the sender's User-Agent header.
type ClientInfo struct {
	Browser        string `json:"browser,omitempty"`
	BrowserVersion string `json:"browserVersion,omitempty"`
	OS             string `json:"os,omitempty"`
	Mobile         bool   `json:"mobile"`
	Bot            bool   `json:"bot"`
}

// ParseClient returns nil for an empty User-Agent.
func ParseClient(userAgent string) *ClientInfo {
	if strings.TrimSpace(userAgent) == "" {
		return nil
	}
	ua := useragent.New(userAgent)
	name, version := ua.Browser()
	return &ClientInfo{
		Browser:        name,
		BrowserVersion: version,
		OS:             ua.OS(),
		Mobile:         ua.Mobile(),
		Bot:            ua.Bot(),
	}
}

// SMSRecord is one SMS batch that no provider delivered.
type SMSRecord struct {
	UserID     string      `json:"userId"`
	To         []string    `json:"to"`
	Message    string      `json:"message"`
	ReceivedAt int64       `json:"receivedAt"`
	UserAgent  *string     `json:"userAgent"`
	Client     *ClientInfo `json:"client,omitempty"`
}

// EmailRecord is one email written instead of sent.
type EmailRecord struct {
	Timestamp int64  `json:"timestamp"`
	To        string `json:"to"`
	From      string `json:"from"`
	Subject   string `json:"subject,omitempty"`
	Text      string `json:"text,omitempty"`
	HTML      string `json:"html,omitempty"`
}

// Sink writes fallback records under two directories, creating them on first
// use. Existing files are never overwritten.
type Sink struct {
	smsDir   string
	emailDir string
}

func New(smsDir, emailDir string) *Sink {
	return &Sink{smsDir: smsDir, emailDir: emailDir}
}

// WriteSMS stores rec as sms-<timestamp>-<random>.json and returns the path.
func (s *Sink) WriteSMS(rec SMSRecord, at time.Time) (string, error) {
	suffix, err := randomHex(4)
	if err != nil {
		return "", err
	}
	name := fmt.Sprintf("sms-%s-%s.json", fileTimestamp(at), suffix)
	path := filepath.Join(s.smsDir, name)
	if err := writeNew(path, rec); err != nil {
		return "", fmt.Errorf("writing sms fallback: %w", err)
	}
	return path, nil
}

var unsafeAddressChars = regexp.MustCompile(`(?i)[^a-z0-9@.]`)

// maxEmailNameAttempts bounds the -1, -2, ... suffixes tried when two
// recipients sanitize to the same file name at the same millisecond.
const maxEmailNameAttempts = 100

// WriteEmail stores rec as <unix ms>-<sanitized recipient>.json and returns
// the path. A taken name gets a -N suffix before the extension.
func (s *Sink) WriteEmail(rec EmailRecord) (string, error) {
	base := fmt.Sprintf("%d-%s", rec.Timestamp, unsafeAddressChars.ReplaceAllString(rec.To, "_"))
	for n := 0; n < maxEmailNameAttempts; n++ {
		name := base + ".json"
		if n > 0 {
			name = fmt.Sprintf("%s-%d.json", base, n)
		}
		path := filepath.Join(s.emailDir, name)
		err := writeNew(path, rec)
		if err == nil {
			return path, nil
		}
		if !errors.Is(err, os.ErrExist) {
			return "", fmt.Errorf("writing email fallback: %w", err)
		}
	}
	return "", fmt.Errorf("writing email fallback: no free name for %s", base)
}

// fileTimestamp is an RFC 3339 UTC time with ':' and '.' replaced by '-'.
func fileTimestamp(t time.Time) string {
	ts := t.UTC().Format("2006-01-02T15:04:05.000Z")
	return strings.NewReplacer(":", "-", ".", "-").Replace(ts)
}

func randomHex(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generating file suffix: %w", err)
	}
	return hex.EncodeToString(b), nil
}

func writeNew(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
