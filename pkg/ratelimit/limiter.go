// Package ratelimit paces outbound Instagram requests so the monitor
// stays well under the thresholds that trigger blocks.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Limiter gates outbound requests.
type Limiter interface {
	// Allow reports whether a request may proceed right now.
	Allow() bool
	// Wait blocks until a request is allowed or the context is done.
	Wait(ctx context.Context) error
	// Reset clears the limiter state.
	Reset()
}

// SlidingWindow allows at most maxRequests within any window of the
// configured size.
type SlidingWindow struct {
	window      time.Duration
	maxRequests int
	requests    []time.Time
	mu          sync.Mutex
	now         func() time.Time
}

// NewSlidingWindow creates a limiter allowing maxRequests per window.
func NewSlidingWindow(maxRequests int, window time.Duration) *SlidingWindow {
	return &SlidingWindow{
		window:      window,
		maxRequests: maxRequests,
		requests:    make([]time.Time, 0, maxRequests),
		now:         time.Now,
	}
}

// PerMinute creates a limiter allowing n requests per minute.
func PerMinute(n int) *SlidingWindow {
	return NewSlidingWindow(n, time.Minute)
}

// Allow records and permits a request if the window has room.
func (sw *SlidingWindow) Allow() bool {
	sw.mu.Lock()
	defer sw.mu.Unlock()

	now := sw.now()
	sw.evict(now)

	if len(sw.requests) < sw.maxRequests {
		sw.requests = append(sw.requests, now)
		return true
	}
	return false
}

// Wait blocks until a slot opens or ctx is cancelled.
func (sw *SlidingWindow) Wait(ctx context.Context) error {
	for {
		if sw.Allow() {
			return nil
		}

		delay := sw.nextSlot()
		if delay <= 0 {
			delay = 50 * time.Millisecond
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// Reset forgets all recorded requests.
func (sw *SlidingWindow) Reset() {
	sw.mu.Lock()
	defer sw.mu.Unlock()
	sw.requests = sw.requests[:0]
}

// nextSlot returns how long until the oldest recorded request leaves
// the window.
func (sw *SlidingWindow) nextSlot() time.Duration {
	sw.mu.Lock()
	defer sw.mu.Unlock()

	if len(sw.requests) == 0 {
		return 0
	}
	return sw.window - sw.now().Sub(sw.requests[0])
}

// evict drops requests that have aged out of the window. Callers must
// hold the lock.
func (sw *SlidingWindow) evict(now time.Time) {
	cutoff := now.Add(-sw.window)

	i := 0
	for i < len(sw.requests) && sw.requests[i].Before(cutoff) {
		i++
	}
	if i > 0 {
		copy(sw.requests, sw.requests[i:])
		sw.requests = sw.requests[:len(sw.requests)-i]
	}
}
