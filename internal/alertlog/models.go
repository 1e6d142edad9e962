// Package alertlog is the append-only event history: panic alerts, panic
// audit events and SMS/email delivery summaries, one JSON object per line.
package alertlog

import "encoding/json"

// Entry types.
const (
	TypePanicAlert = "panic-alert"
	TypePanicAudit = "panic-audit"
	TypeSMS        = "sms"
	TypeEmail      = "email"
)

// DefaultRecentLimit is how many trailing lines a history read considers.
const DefaultRecentLimit = 200

// PublicAnonUserID marks alerts sent without an authenticated user.
const PublicAnonUserID = "public-anon"

// Entry is one alert log line. Raw is set only when a stored line could not
// be parsed; such entries carry no user and are filtered out of per-user reads.
type Entry struct {
	Type       string          `json:"type,omitempty"`
	ReceivedAt int64           `json:"receivedAt,omitempty"`
	UserID     string          `json:"userId,omitempty"`
	Payload    json.RawMessage `json:"payload,omitempty"`
	Transport  string          `json:"transport,omitempty"`
	To         []string        `json:"to,omitempty"`
	Meta       *EmailMeta      `json:"meta,omitempty"`
	Raw        string          `json:"raw,omitempty"`
}

// EmailMeta records which parts an email alert carried, never the content.
type EmailMeta struct {
	SubjectPresent bool `json:"subjectPresent"`
	TextPresent    bool `json:"textPresent"`
	HTMLPresent    bool `json:"htmlPresent"`
}

// ParseLine decodes a stored line, falling back to a raw entry.
func ParseLine(line string) Entry {
	var e Entry
	if err := json.Unmarshal([]byte(line), &e); err != nil {
		return Entry{Raw: line}
	}
	return e
}

// NewestFirstForUser keeps the entries belonging to userID from a window of
// lines in file order and returns them newest first.
func NewestFirstForUser(window []Entry, userID string) []Entry {
	out := make([]Entry, 0, len(window))
	for i := len(window) - 1; i >= 0; i-- {
		if window[i].UserID == userID {
			out = append(out, window[i])
		}
	}
	return out
}
