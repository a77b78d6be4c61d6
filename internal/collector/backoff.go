package collector

import (
	"context"
	"math/rand"
	"time"
)

// Sleeper abstracts waiting between retry attempts so schedules are testable
// without real delays.
type Sleeper interface {
	Sleep(ctx context.Context, d time.Duration) error
}

// ClockSleeper waits on a real timer, returning early when the context ends.
type ClockSleeper struct{}

// Sleep blocks for d or until ctx is done, whichever comes first.
func (ClockSleeper) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Backoff holds the retry delay schedule: Base doubled (or multiplied by
// Factor) per failed attempt, capped at Max, spread by a jitter fraction.
type Backoff struct {
	Base   time.Duration
	Max    time.Duration
	Factor float64
	Jitter float64
}

// Delay returns the wait before retrying after the given failed attempt
// (1-based). With Jitter zero the schedule is exact, which keeps tests
// deterministic.
func (b Backoff) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	base := b.Base
	if base <= 0 {
		base = time.Second
	}
	factor := b.Factor
	if factor < 1 {
		factor = 2
	}

	delay := float64(base)
	for i := 1; i < attempt; i++ {
		delay *= factor
		if b.Max > 0 && delay >= float64(b.Max) {
			delay = float64(b.Max)
			break
		}
	}
	if b.Max > 0 && delay > float64(b.Max) {
		delay = float64(b.Max)
	}

	if b.Jitter > 0 {
		spread := 1.0 + (rand.Float64()-0.5)*b.Jitter
		delay *= spread
	}
	return time.Duration(delay)
}
