package sms

import (
	"context"

	"golang.org/x/time/rate"
)

// Throttled paces sends through p so a large recipient list stays under the
// vendor's per-second message cap.
type Throttled struct {
	Provider
	limiter *rate.Limiter
}

// Throttle wraps p with a limit of perSecond sends. A non-positive limit or a
// nil provider returns p unchanged.
func Throttle(p Provider, perSecond float64) Provider {
	if p == nil || perSecond <= 0 {
		return p
	}
	return &Throttled{Provider: p, limiter: rate.NewLimiter(rate.Limit(perSecond), 1)}
}

func (t *Throttled) TrySend(ctx context.Context, to, message string) Outcome {
	if err := t.limiter.Wait(ctx); err != nil {
		return failed(t.Name(), err.Error())
	}
	return t.Provider.TrySend(ctx, to, message)
}
