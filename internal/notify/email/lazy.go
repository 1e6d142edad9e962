package email

import (
	"context"
	"log/slog"
	"sync"
)

type lazyState int

const (
	lazyUnbuilt lazyState = iota
	lazyReady
	lazyDisabled
)

// Lazy builds a Transport on first use, verifies it once and caches it. A
// transport that fails verification stays disabled until Reset.
type Lazy struct {
	build  func() (Transport, bool)
	logger *slog.Logger

	mu        sync.Mutex
	state     lazyState
	transport Transport
}

// NewLazy takes a builder that reports false when no transport can be built
// (for example, SMTP is not configured).
func NewLazy(build func() (Transport, bool), logger *slog.Logger) *Lazy {
	return &Lazy{build: build, logger: logger}
}

// Get returns the cached transport, building and verifying it on the first
// call. It returns nil when the transport is unavailable.
func (l *Lazy) Get(ctx context.Context) Transport {
	l.mu.Lock()
	defer l.mu.Unlock()

	switch l.state {
	case lazyReady:
		return l.transport
	case lazyDisabled:
		return nil
	}

	t, ok := l.build()
	if !ok || t == nil {
		l.logger.InfoContext(ctx, "smtp not configured, emails will be written to files")
		l.state = lazyDisabled
		return nil
	}
	if err := t.Verify(ctx); err != nil {
		l.logger.WarnContext(ctx, "smtp verification failed, falling back to file mailer",
			"error", err,
		)
		l.state = lazyDisabled
		return nil
	}
	l.logger.InfoContext(ctx, "smtp transport verified")
	l.transport = t
	l.state = lazyReady
	return t
}

// Reset drops the cached transport so the next Get rebuilds it.
func (l *Lazy) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.state = lazyUnbuilt
	l.transport = nil
}
