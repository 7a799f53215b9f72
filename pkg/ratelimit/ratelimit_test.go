package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time          { return c.t }
func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestLimiter(limit int, window time.Duration) (*Limiter, *clock) {
	c := &clock{t: time.Unix(1_700_000_000, 0)}
	l := New(limit, window)
	l.now = c.now
	return l, c
}

func TestAllow_BurstThenReject(t *testing.T) {
	l, _ := newTestLimiter(3, time.Minute)
	for i := 0; i < 3; i++ {
		assert.True(t, l.Allow("10.0.0.1"), "request %d", i)
	}
	assert.False(t, l.Allow("10.0.0.1"))
	assert.True(t, l.Allow("10.0.0.2"), "keys are independent")
}

func TestAllow_Refills(t *testing.T) {
	l, c := newTestLimiter(60, time.Minute)
	for i := 0; i < 60; i++ {
		l.Allow("k")
	}
	assert.False(t, l.Allow("k"))

	c.advance(time.Second)
	assert.True(t, l.Allow("k"))
	assert.False(t, l.Allow("k"))
}

func TestEvict_DropsIdleKeys(t *testing.T) {
	l, c := newTestLimiter(5, time.Minute)
	l.Allow("old")
	c.advance(3 * time.Minute)
	l.Allow("new")

	l.evict()
	assert.Equal(t, 1, l.Len())
}

func TestRetryAfter(t *testing.T) {
	assert.Equal(t, time.Second, New(60, time.Minute).RetryAfter())
}
