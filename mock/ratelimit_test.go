package mock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRateLimiter_NilAllowsEverything(t *testing.T) {
	var rl *RateLimiter
	assert.Nil(t, NewRateLimiter(0, time.Hour))
	for i := 0; i < 100; i++ {
		assert.True(t, rl.Allow("x"))
	}
	used, limit := rl.Usage("x")
	assert.Zero(t, used)
	assert.Zero(t, limit)
}

func TestRateLimiter_BurstThenRefill(t *testing.T) {
	now := time.Now()
	rl := NewRateLimiter(3, time.Minute)
	rl.now = func() time.Time { return now }

	for i := 0; i < 3; i++ {
		assert.True(t, rl.Allow("alice"))
	}
	assert.False(t, rl.Allow("alice"))
	assert.True(t, rl.Allow("bob"), "buckets are per key")

	now = now.Add(25 * time.Second)
	assert.True(t, rl.Allow("alice"), "a token refills after a third of the period")
	assert.False(t, rl.Allow("alice"))

	used, limit := rl.Usage("alice")
	assert.Equal(t, 4, used)
	assert.Equal(t, 3, limit)
}

func TestRateLimiter_RefillIsCapped(t *testing.T) {
	now := time.Now()
	rl := NewRateLimiter(2, time.Second)
	rl.now = func() time.Time { return now }
	assert.True(t, rl.Allow("k"))

	now = now.Add(time.Hour)
	assert.True(t, rl.Allow("k"))
	assert.True(t, rl.Allow("k"))
	assert.False(t, rl.Allow("k"))
}
