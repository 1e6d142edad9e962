package email_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"safesupport/internal/notify"
	"safesupport/internal/notify/email"
	"safesupport/internal/notify/email/mocks"
	"safesupport/internal/notify/filesink"
	"safesupport/internal/platform/config"
	"safesupport/pkg/requestcontext"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

type LazySuite struct {
	suite.Suite
	ctrl      *gomock.Controller
	transport *mocks.MockTransport
	builds    int
	lazy      *email.Lazy
}

func TestLazySuite(t *testing.T) {
	suite.Run(t, new(LazySuite))
}

func (s *LazySuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.transport = mocks.NewMockTransport(s.ctrl)
	s.builds = 0
	s.lazy = email.NewLazy(func() (email.Transport, bool) {
		s.builds++
		return s.transport, true
	}, discard)
}

func (s *LazySuite) TearDownTest() {
	s.ctrl.Finish()
}

func (s *LazySuite) TestVerifiesOnceAndCaches() {
	s.transport.EXPECT().Verify(gomock.Any()).Return(nil).Times(1)

	s.Same(s.transport, s.lazy.Get(context.Background()))
	s.Same(s.transport, s.lazy.Get(context.Background()))
	s.Equal(1, s.builds)
}

func (s *LazySuite) TestVerificationFailureDisablesPermanently() {
	s.transport.EXPECT().Verify(gomock.Any()).Return(errors.New("535 auth failed")).Times(1)

	s.Nil(s.lazy.Get(context.Background()))
	s.Nil(s.lazy.Get(context.Background()))
	s.Equal(1, s.builds)
}

func (s *LazySuite) TestResetRebuilds() {
	gomock.InOrder(
		s.transport.EXPECT().Verify(gomock.Any()).Return(errors.New("down")),
		s.transport.EXPECT().Verify(gomock.Any()).Return(nil),
	)

	s.Nil(s.lazy.Get(context.Background()))
	s.lazy.Reset()
	s.NotNil(s.lazy.Get(context.Background()))
	s.Equal(2, s.builds)
}

func (s *LazySuite) TestUnconfiguredNeverBuildsAgain() {
	builds := 0
	lazy := email.NewLazy(func() (email.Transport, bool) {
		builds++
		return nil, false
	}, discard)

	s.Nil(lazy.Get(context.Background()))
	s.Nil(lazy.Get(context.Background()))
	s.Equal(1, builds)
}

type SenderSuite struct {
	suite.Suite
	ctrl      *gomock.Controller
	transport *mocks.MockTransport
	dir       string
	ctx       context.Context
}

func TestSenderSuite(t *testing.T) {
	suite.Run(t, new(SenderSuite))
}

func (s *SenderSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.transport = mocks.NewMockTransport(s.ctrl)
	s.dir = s.T().TempDir()
	s.ctx = requestcontext.WithTime(context.Background(), time.UnixMilli(1700000000000))
}

func (s *SenderSuite) newSender(cfg config.SMTPConfig, withTransport bool) *email.Sender {
	lazy := email.NewLazy(func() (email.Transport, bool) {
		return s.transport, withTransport
	}, discard)
	return email.NewSender(cfg, lazy, filesink.New(s.dir, s.dir), discard)
}

func (s *SenderSuite) TestSMTPSuccess() {
	s.transport.EXPECT().Verify(gomock.Any()).Return(nil)
	s.transport.EXPECT().Send(gomock.Any(), email.Message{
		From: "alerts@safesupport.test", To: "a@x.io", Subject: "Alert", Text: "help",
	}).Return("<id@safesupport.test>", nil)

	sender := s.newSender(config.SMTPConfig{From: "alerts@safesupport.test", FallbackToFile: true}, true)
	d, err := sender.Send(s.ctx, "a@x.io", notify.Email{Subject: "Alert", Text: "help"})

	s.Require().NoError(err)
	s.Equal(email.Delivery{Transport: "smtp", MessageID: "<id@safesupport.test>"}, d)
}

func (s *SenderSuite) TestSMTPFailureFallsBackToFile() {
	s.transport.EXPECT().Verify(gomock.Any()).Return(nil)
	s.transport.EXPECT().Send(gomock.Any(), gomock.Any()).Return("", errors.New("452 mailbox full"))

	sender := s.newSender(config.SMTPConfig{User: "me@gmail.com", FallbackToFile: true}, true)
	d, err := sender.Send(s.ctx, "a@x.io", notify.Email{Text: "help"})

	s.Require().NoError(err)
	s.Equal("file", d.Transport)
	s.True(strings.HasPrefix(d.MessageID, "file:"))
	path := strings.TrimPrefix(d.MessageID, "file:")
	s.Contains(path, "1700000000000-a@x.io.json")

	data, err := os.ReadFile(path)
	s.Require().NoError(err)
	s.Contains(string(data), `"from": "me@gmail.com"`)
}

func (s *SenderSuite) TestNoTransportWritesFile() {
	sender := s.newSender(config.SMTPConfig{FallbackToFile: true}, false)
	d, err := sender.Send(s.ctx, "b@x.io", notify.Email{Subject: "s"})

	s.Require().NoError(err)
	s.Equal("file", d.Transport)
	s.Equal(email.DefaultFrom, sender.From())
}

func (s *SenderSuite) TestRecipientsWithSameFileNameBothSaved() {
	sender := s.newSender(config.SMTPConfig{FallbackToFile: true}, false)

	first, err := sender.Send(s.ctx, "a+b@x.io", notify.Email{Text: "help"})
	s.Require().NoError(err)
	second, err := sender.Send(s.ctx, "a-b@x.io", notify.Email{Text: "help"})
	s.Require().NoError(err)

	s.Equal("file", second.Transport)
	s.NotEqual(first.MessageID, second.MessageID)
	entries, err := os.ReadDir(s.dir)
	s.Require().NoError(err)
	s.Len(entries, 2)
}

func (s *SenderSuite) TestFallbackDisabled() {
	sender := s.newSender(config.SMTPConfig{FallbackToFile: false}, false)
	_, err := sender.Send(s.ctx, "b@x.io", notify.Email{Subject: "s"})

	s.Require().ErrorIs(err, email.ErrFallbackDisabled)
	entries, err := os.ReadDir(s.dir)
	s.Require().NoError(err)
	s.Empty(entries)
}

func TestSMTPBuilder(t *testing.T) {
	_, ok := email.SMTPBuilder(config.SMTPConfig{Host: "smtp.example.com"})()
	assert.False(t, ok)

	tr, ok := email.SMTPBuilder(config.SMTPConfig{Host: "smtp.example.com", Port: 465, User: "u", Pass: "p"})()
	require.True(t, ok)
	assert.IsType(t, &email.SMTP{}, tr)
}
