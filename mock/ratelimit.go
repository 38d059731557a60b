package mock

import (
	"sync"
	"time"
)

// RateLimiter is a per-key token bucket. Each key may burst up to rate requests
// and refills at rate per period.
type RateLimiter struct {
	mu      sync.Mutex
	rate    float64
	period  time.Duration
	buckets map[string]*bucket
	now     func() time.Time
}

type bucket struct {
	tokens float64
	used   int
	last   time.Time
}

// NewRateLimiter returns nil when rate is not positive; a nil limiter allows everything.
func NewRateLimiter(rate int, period time.Duration) *RateLimiter {
	if rate <= 0 || period <= 0 {
		return nil
	}
	return &RateLimiter{
		rate:    float64(rate),
		period:  period,
		buckets: make(map[string]*bucket),
		now:     time.Now,
	}
}

// Allow takes one token for key.
func (rl *RateLimiter) Allow(key string) bool {
	if rl == nil {
		return true
	}
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	b, ok := rl.buckets[key]
	if !ok {
		b = &bucket{tokens: rl.rate, last: now}
		rl.buckets[key] = b
	}
	// Refill
	elapsed := now.Sub(b.last)
	if elapsed > 0 {
		b.tokens += elapsed.Seconds() / rl.period.Seconds() * rl.rate
		if b.tokens > rl.rate {
			b.tokens = rl.rate
		}
		b.last = now
	}
	if b.tokens < 1 {
		return false
	}
	b.tokens--
	b.used++
	return true
}

// Usage returns how many requests key has made and the bucket size.
func (rl *RateLimiter) Usage(key string) (used, limit int) {
	if rl == nil {
		return 0, 0
	}
	rl.mu.Lock()
	defer rl.mu.Unlock()
	if b, ok := rl.buckets[key]; ok {
		used = b.used
	}
	return used, int(rl.rate)
}
