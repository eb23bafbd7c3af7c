package proxy

import (
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

// Limiter admits at most Max requests in any sliding Window.
type Limiter struct {
	mu     sync.Mutex
	clock  clock.Clock
	max    int
	window time.Duration
	stamps []time.Time
}

// NewLimiter creates a Limiter. A max below 1 disables limiting.
func NewLimiter(max int, window time.Duration, clk clock.Clock) *Limiter {
	if clk == nil {
		clk = clock.New()
	}
	return &Limiter{clock: clk, max: max, window: window}
}

// Allow records a request and reports whether it fits in the window.
// Rejected requests are not recorded.
func (l *Limiter) Allow() bool {
	if l.max < 1 {
		return true
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock.Now()
	kept := l.stamps[:0]
	for _, ts := range l.stamps {
		if now.Sub(ts) < l.window {
			kept = append(kept, ts)
		}
	}
	l.stamps = kept

	if len(l.stamps) >= l.max {
		return false
	}
	l.stamps = append(l.stamps, now)
	return true
}
