// Package ratelimit implements a process-local sliding-window limiter
// keyed by user.
package ratelimit

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// SlidingWindow allows at most limit requests per key inside any rolling
// window. Each key keeps the timestamps of its counted requests, pruned on
// every check. Rejected requests are not counted.
type SlidingWindow struct {
	limit  int
	window time.Duration
	clock  func() time.Time

	mu   sync.Mutex
	keys map[string][]time.Time
}

// Option configures a SlidingWindow.
type Option func(*SlidingWindow)

// WithClock injects the time source.
func WithClock(clock func() time.Time) Option {
	return func(l *SlidingWindow) { l.clock = clock }
}

// New creates a limiter. A non-positive limit or window yields a limiter
// that allows everything.
func New(limit int, window time.Duration, opts ...Option) *SlidingWindow {
	l := &SlidingWindow{
		limit:  limit,
		window: window,
		clock:  time.Now,
		keys:   make(map[string][]time.Time),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Allow counts a request for key when it fits in the window. When it does
// not, retryAfter is the time until the oldest counted request expires.
func (l *SlidingWindow) Allow(key string) (bool, time.Duration) {
	if l == nil || l.limit <= 0 || l.window <= 0 {
		return true, 0
	}
	key = strings.TrimSpace(key)
	if key == "" {
		key = "anonymous"
	}
	now := l.clock()

	l.mu.Lock()
	defer l.mu.Unlock()

	stamps := prune(l.keys[key], now, l.window)
	if len(stamps) >= l.limit {
		l.keys[key] = stamps
		return false, stamps[0].Add(l.window).Sub(now)
	}
	l.keys[key] = append(stamps, now)
	return true, 0
}

// Sweep drops keys whose every timestamp has left the window and returns
// how many were removed.
func (l *SlidingWindow) Sweep() int {
	now := l.clock()
	l.mu.Lock()
	defer l.mu.Unlock()

	removed := 0
	for key, stamps := range l.keys {
		if len(prune(stamps, now, l.window)) == 0 {
			delete(l.keys, key)
			removed++
		}
	}
	return removed
}

// Len returns the number of tracked keys.
func (l *SlidingWindow) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.keys)
}

// Run sweeps every interval until ctx is done.
func (l *SlidingWindow) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := l.Sweep(); n > 0 {
				log.Debug().Int("removed", n).Msg("Rate limiter swept idle keys")
			}
		}
	}
}

// prune drops timestamps at least window old. stamps is ordered.
func prune(stamps []time.Time, now time.Time, window time.Duration) []time.Time {
	i := 0
	for i < len(stamps) && now.Sub(stamps[i]) >= window {
		i++
	}
	if i == 0 {
		return stamps
	}
	return append(stamps[:0], stamps[i:]...)
}
