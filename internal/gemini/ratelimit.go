package gemini

import (
	"context"
	"sync"
	"time"
)

// limiter spaces outbound requests so concurrent strategy fan-out stays
// under the per-minute quota. It is a minimum-interval gate rather than a
// token bucket: the strategies burst five calls at a time, and an even
// spacing keeps the worst case bounded without tracking refill windows.
type limiter struct {
	mu       sync.Mutex
	interval time.Duration
	next     time.Time
}

func newLimiter(requestsPerMinute int) *limiter {
	if requestsPerMinute <= 0 {
		requestsPerMinute = 60
	}
	return &limiter{interval: time.Minute / time.Duration(requestsPerMinute)}
}

// wait blocks until the caller may issue its request or ctx is done.
func (l *limiter) wait(ctx context.Context) error {
	l.mu.Lock()
	now := time.Now()
	at := l.next
	if at.Before(now) {
		at = now
	}
	l.next = at.Add(l.interval)
	l.mu.Unlock()

	delay := time.Until(at)
	if delay <= 0 {
		return nil
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
