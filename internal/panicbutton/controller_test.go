package panicbutton_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"safesupport/internal/notify"
	"safesupport/internal/panicbutton"
	"safesupport/internal/panicbutton/mocks"
	"safesupport/pkg/platform/sentinel"
)

type ControllerSuite struct {
	suite.Suite
	api     *mocks.MockAPI
	locator *mocks.MockLocator
	logger  *slog.Logger
	ctx     context.Context
	clock   time.Time
}

func TestControllerSuite(t *testing.T) {
	suite.Run(t, new(ControllerSuite))
}

func (s *ControllerSuite) SetupTest() {
	ctrl := gomock.NewController(s.T())
	s.api = mocks.NewMockAPI(ctrl)
	s.locator = mocks.NewMockLocator(ctrl)
	s.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	s.ctx = context.Background()
	s.clock = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
}

func (s *ControllerSuite) newController(cfg panicbutton.Config, locator panicbutton.Locator) *panicbutton.Controller {
	c := panicbutton.NewController(s.api, locator, cfg, s.logger)
	panicbutton.SetClock(c, func() time.Time { return s.clock })
	return c
}

func (s *ControllerSuite) expectAudit(event string) *gomock.Call {
	return s.api.EXPECT().Audit(gomock.Any(), event, gomock.Any(), gomock.Any()).Return(nil)
}

func (s *ControllerSuite) TestEarlyReleaseCancels() {
	c := s.newController(panicbutton.Config{SMSTo: "+15550001"}, nil)
	gomock.InOrder(
		s.expectAudit(panicbutton.EventPressStart),
		s.expectAudit(panicbutton.EventPressCancel),
	)

	s.Require().NoError(c.Press(s.ctx, false))
	s.Equal(panicbutton.StatePressing, c.State())

	s.clock = s.clock.Add(600 * time.Millisecond)
	s.InDelta(0.5, c.Progress(), 1e-9)

	notice, completed := c.Release(s.ctx)
	s.False(completed)
	s.Equal(panicbutton.Notice{}, notice)
	s.Equal(panicbutton.StateIdle, c.State())
	s.Zero(c.Progress())
}

func (s *ControllerSuite) TestPressWhilePressingIsRejected() {
	c := s.newController(panicbutton.Config{}, nil)
	s.expectAudit(panicbutton.EventPressStart)

	s.Require().NoError(c.Press(s.ctx, false))
	s.ErrorIs(c.Press(s.ctx, false), sentinel.ErrInvalidState)
}

func (s *ControllerSuite) TestAuditFailureDoesNotBlockPress() {
	c := s.newController(panicbutton.Config{}, nil)
	s.api.EXPECT().Audit(gomock.Any(), panicbutton.EventPressStart, gomock.Any(), gomock.Any()).
		Return(errors.New("offline"))

	s.Require().NoError(c.Press(s.ctx, true))
	s.Equal(panicbutton.StatePressing, c.State())
}

func (s *ControllerSuite) TestSMSModeSendsOnceWithLocation() {
	c := s.newController(panicbutton.Config{Mode: panicbutton.ModeSMS, SMSTo: "+15550001, +15550002,+15550001"}, s.locator)
	s.expectAudit(panicbutton.EventPressStart)
	s.expectAudit(panicbutton.EventPressComplete)
	s.locator.EXPECT().Locate(gomock.Any()).Return(panicbutton.Location{Lat: 51.5, Lng: -0.12}, nil)
	s.api.EXPECT().
		SendSMS(gomock.Any(), []string{"+15550001", "+15550002"},
			"Emergency! I need help right now.\n\nMy current location: https://www.google.com/maps?q=51.5,-0.12").
		Return(&notify.BatchResult{OK: true, Mode: "twilio", Results: []notify.Attempt{
			{To: "+15550001", OK: true}, {To: "+15550002", OK: true},
		}}, nil)

	s.Require().NoError(c.Press(s.ctx, false))
	s.clock = s.clock.Add(panicbutton.DefaultHold)
	s.Equal(1.0, c.Progress())

	notice, completed := c.Release(s.ctx)
	s.True(completed)
	s.Equal(panicbutton.Notice{Level: panicbutton.LevelSuccess, Text: "SMS sent to 2 recipient(s)."}, notice)
	s.Equal(panicbutton.StateIdle, c.State())
}

func (s *ControllerSuite) TestSMSModeWithoutLocation() {
	c := s.newController(panicbutton.Config{Mode: panicbutton.ModeSMS, SMSTo: []string{"+15550001"}, SMSMessage: "help"}, s.locator)
	s.expectAudit(panicbutton.EventPressStart)
	s.expectAudit(panicbutton.EventPressComplete)
	s.locator.EXPECT().Locate(gomock.Any()).Return(panicbutton.Location{}, errors.New("denied"))
	s.api.EXPECT().SendSMS(gomock.Any(), []string{"+15550001"}, "help").
		Return(&notify.BatchResult{OK: true, Mode: "file", Results: []notify.Attempt{{To: "+15550001", OK: false, Reason: "no_sms_provider_configured"}}}, nil)

	s.Require().NoError(c.Press(s.ctx, false))
	notice, err := c.Complete(s.ctx)
	s.Require().NoError(err)
	s.Equal(panicbutton.LevelError, notice.Level)
}

func (s *ControllerSuite) TestSMSModeErrors() {
	s.Run("no recipients configured", func() {
		s.SetupTest()
		c := s.newController(panicbutton.Config{Mode: panicbutton.ModeSMS}, nil)
		s.expectAudit(panicbutton.EventPressStart)
		s.expectAudit(panicbutton.EventPressComplete)

		s.Require().NoError(c.Press(s.ctx, false))
		notice, err := c.Complete(s.ctx)
		s.Require().NoError(err)
		s.Equal("No SMS destination number configured.", notice.Text)
		s.Equal(panicbutton.StateIdle, c.State())
	})

	s.Run("only blank recipients", func() {
		s.SetupTest()
		c := s.newController(panicbutton.Config{Mode: panicbutton.ModeSMS, SMSTo: " , "}, nil)
		s.expectAudit(panicbutton.EventPressStart)
		s.expectAudit(panicbutton.EventPressComplete)

		s.Require().NoError(c.Press(s.ctx, false))
		notice, err := c.Complete(s.ctx)
		s.Require().NoError(err)
		s.Equal("No valid destination numbers found.", notice.Text)
	})

	s.Run("unauthenticated", func() {
		s.SetupTest()
		c := s.newController(panicbutton.Config{Mode: panicbutton.ModeSMS, SMSTo: "+15550001"}, nil)
		s.expectAudit(panicbutton.EventPressStart)
		s.expectAudit(panicbutton.EventPressComplete)
		s.api.EXPECT().SendSMS(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(nil, &panicbutton.StatusError{StatusCode: 401})

		s.Require().NoError(c.Press(s.ctx, false))
		notice, err := c.Complete(s.ctx)
		s.Require().NoError(err)
		s.Equal(panicbutton.LevelError, notice.Level)
		s.Contains(notice.Text, "log in")
	})
}

func (s *ControllerSuite) TestContinuousModeResendsUntilStopped() {
	c := panicbutton.NewController(s.api, s.locator, panicbutton.Config{
		Mode:           panicbutton.ModeContinuous,
		ResendInterval: 5 * time.Millisecond,
	}, s.logger)

	var resends atomic.Int32
	s.expectAudit(panicbutton.EventPressStart)
	s.expectAudit(panicbutton.EventPressComplete)
	s.locator.EXPECT().Locate(gomock.Any()).Return(panicbutton.Location{Lat: 1, Lng: 2}, nil).MinTimes(1)
	s.api.EXPECT().SendPanic(gomock.Any(), gomock.Any(), true).Return(nil)
	s.api.EXPECT().SendPanic(gomock.Any(), gomock.Any(), false).
		DoAndReturn(func(context.Context, panicbutton.Location, bool) error {
			resends.Add(1)
			return nil
		}).AnyTimes()

	s.Require().NoError(c.Press(s.ctx, false))
	notice, err := c.Complete(s.ctx)
	s.Require().NoError(err)
	s.Equal(panicbutton.LevelSuccess, notice.Level)
	s.Equal(panicbutton.StateAlerting, c.State())

	s.Eventually(func() bool { return resends.Load() >= 2 }, time.Second, time.Millisecond)

	stopped, err := c.Stop()
	s.Require().NoError(err)
	s.Equal(panicbutton.LevelSuccess, stopped.Level)
	s.Equal(panicbutton.StateIdle, c.State())

	after := resends.Load()
	time.Sleep(20 * time.Millisecond)
	s.Equal(after, resends.Load())
}

func (s *ControllerSuite) TestContinuousModeNeedsLocation() {
	c := s.newController(panicbutton.Config{Mode: panicbutton.ModeContinuous}, nil)
	s.expectAudit(panicbutton.EventPressStart)
	s.expectAudit(panicbutton.EventPressComplete)

	s.Require().NoError(c.Press(s.ctx, false))
	notice, err := c.Complete(s.ctx)
	s.Require().NoError(err)
	s.Equal(panicbutton.LevelError, notice.Level)
	s.Equal(panicbutton.StateIdle, c.State())

	_, err = c.Stop()
	s.ErrorIs(err, sentinel.ErrInvalidState)
}

func (s *ControllerSuite) TestHoldCompletes() {
	c := panicbutton.NewController(s.api, nil, panicbutton.Config{
		Mode:  panicbutton.ModeSMS,
		Hold:  time.Millisecond,
		SMSTo: "+15550001",
	}, s.logger)
	s.expectAudit(panicbutton.EventPressStart)
	s.expectAudit(panicbutton.EventPressComplete)
	s.api.EXPECT().SendSMS(gomock.Any(), []string{"+15550001"}, panicbutton.DefaultMessage).
		Return(&notify.BatchResult{OK: true}, nil)

	notice, completed, err := c.Hold(s.ctx, 5*time.Millisecond)
	s.Require().NoError(err)
	s.True(completed)
	s.Equal("SMS sent request for 1 recipient(s).", notice.Text)
}

func TestSummarize(t *testing.T) {
	cases := []struct {
		name string
		res  *notify.BatchResult
		want panicbutton.Notice
	}{
		{"no results", &notify.BatchResult{OK: true}, panicbutton.Notice{Level: panicbutton.LevelSuccess, Text: "SMS sent request for 3 recipient(s)."}},
		{"partial", &notify.BatchResult{OK: true, Results: []notify.Attempt{{To: "a", OK: true}, {To: "b", Error: "bad number"}}},
			panicbutton.Notice{Level: panicbutton.LevelWarning, Text: "Partial delivery. Delivered: 1. Failed: 1."}},
		{"all failed", &notify.BatchResult{Results: []notify.Attempt{{To: "a", Error: "x"}, {To: "b"}}},
			panicbutton.Notice{Level: panicbutton.LevelError, Text: "SMS failed to deliver: a (x), b."}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := panicbutton.Summarize(tc.res, 3); got != tc.want {
				t.Fatalf("got %+v, want %+v", got, tc.want)
			}
		})
	}
}
