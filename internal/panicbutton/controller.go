package panicbutton

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"safesupport/internal/notify"
	"safesupport/pkg/platform/sentinel"
)

// API is the part of the REST API the button talks to.
type API interface {
	Audit(ctx context.Context, event string, at time.Time, fromKeyboard *bool) error
	SendPanic(ctx context.Context, loc Location, initial bool) error
	SendSMS(ctx context.Context, to []string, message string) (*notify.BatchResult, error)
}

// Locator returns the current position.
type Locator interface {
	Locate(ctx context.Context) (Location, error)
}

// StaticLocator always reports the same position, stamped with the time of
// the call.
type StaticLocator Location

func (l StaticLocator) Locate(context.Context) (Location, error) {
	loc := Location(l)
	loc.Timestamp = time.Now()
	return loc, nil
}

// Config configures a Controller. Zero durations take the defaults.
type Config struct {
	Mode           Mode
	Hold           time.Duration
	ResendInterval time.Duration
	// SMSTo is a comma separated string or a list of numbers.
	SMSTo      any
	SMSMessage string
}

// Controller is the button state machine. It is safe for concurrent use.
type Controller struct {
	api     API
	locator Locator
	cfg     Config
	logger  *slog.Logger
	now     func() time.Time

	mu           sync.Mutex
	state        State
	pressedAt    time.Time
	fromKeyboard bool
	stopAlerts   context.CancelFunc
	alertsDone   chan struct{}
}

// NewController builds an idle controller. locator may be nil when no
// position source exists.
func NewController(api API, locator Locator, cfg Config, logger *slog.Logger) *Controller {
	if cfg.Hold <= 0 {
		cfg.Hold = DefaultHold
	}
	if cfg.ResendInterval <= 0 {
		cfg.ResendInterval = DefaultResendInterval
	}
	if cfg.SMSMessage == "" {
		cfg.SMSMessage = DefaultMessage
	}
	return &Controller{
		api:     api,
		locator: locator,
		cfg:     cfg,
		logger:  logger,
		now:     time.Now,
	}
}

// State returns the current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Progress is how far the current press is towards triggering, in [0,1].
func (c *Controller) Progress() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StatePressing {
		return 0
	}
	p := float64(c.now().Sub(c.pressedAt)) / float64(c.cfg.Hold)
	return min(1, max(0, p))
}

// Press starts a long press.
func (c *Controller) Press(ctx context.Context, fromKeyboard bool) error {
	c.mu.Lock()
	if c.state != StateIdle {
		state := c.state
		c.mu.Unlock()
		return fmt.Errorf("press while %s: %w", state, sentinel.ErrInvalidState)
	}
	c.state = StatePressing
	c.pressedAt = c.now()
	c.fromKeyboard = fromKeyboard
	c.mu.Unlock()

	c.audit(ctx, EventPressStart, &fromKeyboard)
	return nil
}

// Release ends a press. Released before the hold duration the press is
// cancelled and completed is false. Released after it, the press completes.
func (c *Controller) Release(ctx context.Context) (notice Notice, completed bool) {
	c.mu.Lock()
	if c.state != StatePressing {
		c.mu.Unlock()
		return Notice{}, false
	}
	if c.now().Sub(c.pressedAt) < c.cfg.Hold {
		c.state = StateIdle
		c.mu.Unlock()
		c.audit(ctx, EventPressCancel, nil)
		return Notice{}, false
	}
	c.mu.Unlock()

	notice, err := c.Complete(ctx)
	return notice, err == nil
}

// Hold presses, waits d and releases. It is the whole gesture in one call.
func (c *Controller) Hold(ctx context.Context, d time.Duration) (Notice, bool, error) {
	if err := c.Press(ctx, false); err != nil {
		return Notice{}, false, err
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
	}
	notice, completed := c.Release(context.WithoutCancel(ctx))
	return notice, completed, nil
}

// Complete triggers the alert for the current press regardless of how long
// it has been held.
func (c *Controller) Complete(ctx context.Context) (Notice, error) {
	c.mu.Lock()
	if c.state != StatePressing {
		state := c.state
		c.mu.Unlock()
		return Notice{}, fmt.Errorf("complete while %s: %w", state, sentinel.ErrInvalidState)
	}
	c.state = StateTriggered
	fromKeyboard := c.fromKeyboard
	c.mu.Unlock()

	c.audit(ctx, EventPressComplete, &fromKeyboard)

	if c.cfg.Mode == ModeSMS {
		notice := c.sendSMS(ctx)
		c.setState(StateIdle)
		return notice, nil
	}
	return c.startAlerting(ctx), nil
}

// Stop ends continuous alerting.
func (c *Controller) Stop() (Notice, error) {
	c.mu.Lock()
	if c.state != StateAlerting {
		state := c.state
		c.mu.Unlock()
		return Notice{}, fmt.Errorf("stop while %s: %w", state, sentinel.ErrInvalidState)
	}
	stop, done := c.stopAlerts, c.alertsDone
	c.stopAlerts, c.alertsDone = nil, nil
	c.state = StateIdle
	c.mu.Unlock()

	stop()
	<-done
	return Notice{Level: LevelSuccess, Text: "Stopped sending location updates."}, nil
}

func (c *Controller) setState(s State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

// audit is best effort: failures are logged and never change the outcome.
func (c *Controller) audit(ctx context.Context, event string, fromKeyboard *bool) {
	if err := c.api.Audit(ctx, event, c.now(), fromKeyboard); err != nil {
		c.logger.WarnContext(ctx, "failed to send audit event", "event", event, "error", err)
	}
}

func (c *Controller) sendSMS(ctx context.Context) Notice {
	if c.cfg.SMSTo == nil {
		return Notice{Level: LevelError, Text: "No SMS destination number configured."}
	}
	to := notify.NormalizeRecipients(c.cfg.SMSTo)
	if len(to) == 0 {
		return Notice{Level: LevelError, Text: "No valid destination numbers found."}
	}

	var loc *Location
	if c.locator != nil {
		l, err := c.locator.Locate(ctx)
		if err != nil {
			c.logger.WarnContext(ctx, "location unavailable, sending SMS without it", "error", err)
		} else {
			loc = &l
		}
	}

	res, err := c.api.SendSMS(ctx, to, WithLocation(c.cfg.SMSMessage, loc))
	if err != nil {
		c.logger.ErrorContext(ctx, "failed to send SMS alert", "error", err)
		var se *StatusError
		if errors.As(err, &se) && se.StatusCode == 401 {
			return Notice{Level: LevelError, Text: "Login required. Please log in to send emergency SMS."}
		}
		return Notice{Level: LevelError, Text: "SMS failed to send."}
	}
	return Summarize(res, len(to))
}

// Summarize turns a batch result into the outcome notice.
func Summarize(res *notify.BatchResult, requested int) Notice {
	if res == nil || len(res.Results) == 0 {
		return Notice{Level: LevelSuccess, Text: fmt.Sprintf("SMS sent request for %d recipient(s).", requested)}
	}
	var ok, failed []string
	for _, a := range res.Results {
		if a.OK {
			ok = append(ok, a.To)
			continue
		}
		detail := a.To
		if a.Error != "" {
			detail += " (" + a.Error + ")"
		}
		failed = append(failed, detail)
	}
	switch {
	case len(failed) == 0:
		return Notice{Level: LevelSuccess, Text: fmt.Sprintf("SMS sent to %d recipient(s).", len(ok))}
	case len(ok) > 0:
		return Notice{Level: LevelWarning, Text: fmt.Sprintf("Partial delivery. Delivered: %d. Failed: %d.", len(ok), len(failed))}
	default:
		return Notice{Level: LevelError, Text: "SMS failed to deliver: " + strings.Join(failed, ", ") + "."}
	}
}

func (c *Controller) startAlerting(ctx context.Context) Notice {
	if c.locator == nil {
		c.setState(StateIdle)
		return Notice{Level: LevelError, Text: "Geolocation not available."}
	}
	loc, err := c.locator.Locate(ctx)
	if err != nil {
		c.logger.ErrorContext(ctx, "location error", "error", err)
		c.setState(StateIdle)
		return Notice{Level: LevelError, Text: "Cannot send location without permission."}
	}

	notice := Notice{Level: LevelSuccess, Text: "Panic alert sent."}
	if err := c.api.SendPanic(ctx, loc, true); err != nil {
		c.logger.ErrorContext(ctx, "failed to send panic alert", "error", err)
		notice = Notice{Level: LevelError, Text: "Could not send alert: " + err.Error()}
	}

	loopCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	done := make(chan struct{})
	c.mu.Lock()
	c.state = StateAlerting
	c.stopAlerts, c.alertsDone = cancel, done
	c.mu.Unlock()

	go c.resendLoop(loopCtx, done)
	return notice
}

func (c *Controller) resendLoop(ctx context.Context, done chan<- struct{}) {
	defer close(done)
	ticker := time.NewTicker(c.cfg.ResendInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			loc, err := c.locator.Locate(ctx)
			if err != nil {
				c.logger.WarnContext(ctx, "periodic location error", "error", err)
				continue
			}
			if err := c.api.SendPanic(ctx, loc, false); err != nil && ctx.Err() == nil {
				c.logger.ErrorContext(ctx, "failed to resend panic alert", "error", err)
			}
		}
	}
}
