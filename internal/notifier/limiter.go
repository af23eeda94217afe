package notifier

import (
	"context"

	"golang.org/x/time/rate"
)

// limiter throttles outbound HTTP calls to the push endpoint, grounded on
// inchworks-webparts/limithandler's per-visitor token bucket — here a
// single shared bucket per Notifier instance, since every outbound call
// shares one downstream push provider rather than one bucket per caller.
type limiter struct {
	rl *rate.Limiter
}

func newLimiter(ratePerSecond float64, burst int) *limiter {
	if burst < 1 {
		burst = 1
	}
	return &limiter{rl: rate.NewLimiter(rate.Limit(ratePerSecond), burst)}
}

// Wait blocks until a token is available or ctx is cancelled.
func (l *limiter) Wait(ctx context.Context) error {
	return l.rl.Wait(ctx)
}
