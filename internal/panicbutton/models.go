// Package panicbutton drives the hold-to-activate panic button against the
// REST API: a long press either sends one SMS to trusted numbers or starts
// periodic location alerts until stopped.
package panicbutton

import (
	"fmt"
	"time"
)

// Defaults for the button.
const (
	DefaultHold           = 1200 * time.Millisecond
	DefaultResendInterval = 15 * time.Second
	DefaultMessage        = "Emergency! I need help right now."
)

// Audit event names.
const (
	EventPressStart    = "long_press_start"
	EventPressCancel   = "long_press_cancel"
	EventPressComplete = "long_press_complete"
)

// State of the button.
type State int

const (
	StateIdle State = iota
	StatePressing
	StateTriggered
	StateAlerting
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePressing:
		return "pressing"
	case StateTriggered:
		return "triggered"
	case StateAlerting:
		return "alerting"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Mode selects what a completed press does.
type Mode int

const (
	// ModeSMS sends a single SMS alert and returns to idle.
	ModeSMS Mode = iota
	// ModeContinuous posts the location now and then every resend interval
	// until Stop.
	ModeContinuous
)

// Level is the severity of a Notice.
type Level string

const (
	LevelSuccess Level = "success"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Notice is the short outcome summary shown to the user.
type Notice struct {
	Level Level
	Text  string
}

func (n Notice) String() string {
	return string(n.Level) + ": " + n.Text
}

// Location is a single position fix.
type Location struct {
	Lat       float64
	Lng       float64
	Accuracy  float64
	Timestamp time.Time
}

// MapsLink renders the location as a Google Maps URL.
func (l Location) MapsLink() string {
	return fmt.Sprintf("https://www.google.com/maps?q=%v,%v", l.Lat, l.Lng)
}

// WithLocation appends the maps link to an SMS body.
func WithLocation(message string, loc *Location) string {
	if loc == nil {
		return message
	}
	return message + "\n\nMy current location: " + loc.MapsLink()
}
