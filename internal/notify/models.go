package notify

// Channels.
const (
	ChannelSMS   = "sms"
	ChannelEmail = "email"
)

// Batch modes and email transports that are not SMS provider names.
const (
	ModeFile      = "file"
	ModeNone      = "none"
	TransportSMTP = "smtp"
	TransportFile = "file"
)

// Attempt is the outcome of one delivery to one recipient. It is returned to
// the caller as-is and never persisted.
type Attempt struct {
	To        string `json:"to"`
	OK        bool   `json:"ok"`
	Provider  string `json:"provider,omitempty"`
	Transport string `json:"transport,omitempty"`
	SID       string `json:"sid,omitempty"`
	MessageID string `json:"messageId,omitempty"`
	Reason    string `json:"reason,omitempty"`
	Error     string `json:"error,omitempty"`
}

// BatchResult aggregates the attempts of one send call.
type BatchResult struct {
	OK      bool      `json:"ok"`
	Mode    string    `json:"mode,omitempty"`
	File    string    `json:"file,omitempty"`
	Message string    `json:"message,omitempty"`
	Results []Attempt `json:"results"`
}

// AnySucceeded reports whether at least one attempt was delivered, and the
// first such attempt.
func AnySucceeded(attempts []Attempt) (Attempt, bool) {
	for _, a := range attempts {
		if a.OK {
			return a, true
		}
	}
	return Attempt{}, false
}

// Email is the content of an email alert. At least one part must be set.
type Email struct {
	Subject string `json:"subject,omitempty"`
	Text    string `json:"text,omitempty"`
	HTML    string `json:"html,omitempty"`
}

// Empty reports whether the email carries no content at all.
func (e Email) Empty() bool {
	return e.Subject == "" && e.Text == "" && e.HTML == ""
}
