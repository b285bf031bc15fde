package runtime

import (
	"context"
	"math/rand"
	"time"
)

// Backoff computes bounded, jittered delays for election contention so
// competing subscribers don't retry in lockstep. The RNG is injected to
// keep the schedule deterministic under test.
type Backoff struct {
	Base time.Duration
	Cap  time.Duration
	rng  *rand.Rand
}

func NewBackoff(base, cap time.Duration, seed int64) *Backoff {
	return &Backoff{Base: base, Cap: cap, rng: rand.New(rand.NewSource(seed))}
}

// Delay returns the wait before retry number attempt (1-based): full jitter
// over an exponentially growing window, clamped to Cap.
func (b *Backoff) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	window := b.Base << uint(attempt-1)
	if window > b.Cap || window <= 0 {
		window = b.Cap
	}
	if window <= b.Base {
		return b.Base
	}
	return b.Base + time.Duration(b.rng.Int63n(int64(window-b.Base)))
}

// Sleep waits for d or until the context is done, whichever comes first.
func Sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
