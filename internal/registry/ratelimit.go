package registry

import (
	"context"
	"sync"
	"time"
)

// windowLimiter admits at most maxRequests calls in any trailing window.
// Callers that find the window full wait for the oldest timestamp to age
// out and then re-check, so no window ever holds more than maxRequests
// entries even under bursty concurrent callers.
type windowLimiter struct {
	mu          sync.Mutex
	maxRequests int
	window      time.Duration
	stamps      []time.Time
	now         func() time.Time
}

func newWindowLimiter(maxRequests int, window time.Duration) *windowLimiter {
	if maxRequests <= 0 {
		maxRequests = 600
	}
	if window <= 0 {
		window = 5 * time.Minute
	}
	return &windowLimiter{
		maxRequests: maxRequests,
		window:      window,
		now:         time.Now,
	}
}

// Acquire blocks until a request slot is available or the context ends.
// Prune-and-append happens under one mutex hold so the check is atomic
// with respect to concurrent callers.
func (l *windowLimiter) Acquire(ctx context.Context) error {
	for {
		l.mu.Lock()
		now := l.now()
		l.prune(now)

		if len(l.stamps) < l.maxRequests {
			l.stamps = append(l.stamps, now)
			l.mu.Unlock()
			return nil
		}

		wait := l.stamps[0].Add(l.window).Sub(now)
		l.mu.Unlock()

		if wait <= 0 {
			continue
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
}

// Remaining reports how many request slots are free in the current window.
func (l *windowLimiter) Remaining() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.prune(l.now())
	return l.maxRequests - len(l.stamps)
}

// prune drops timestamps older than the trailing window. Callers must hold mu.
func (l *windowLimiter) prune(now time.Time) {
	cutoff := now.Add(-l.window)
	i := 0
	for ; i < len(l.stamps); i++ {
		if l.stamps[i].After(cutoff) {
			break
		}
	}
	l.stamps = l.stamps[i:]
}
