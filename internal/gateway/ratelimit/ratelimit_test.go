package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAllowRefills(t *testing.T) {
	l := New(2, time.Minute)
	now := time.Unix(0, 0)
	l.now = func() time.Time { return now }

	assert.True(t, l.Allow("a"))
	assert.True(t, l.Allow("a"))
	assert.False(t, l.Allow("a"))
	assert.True(t, l.Allow("b"))
	assert.Equal(t, 30*time.Second, l.RetryAfter("a"))

	now = now.Add(31 * time.Second)
	assert.True(t, l.Allow("a"))
	assert.False(t, l.Allow("a"))
}

func TestZeroLimitDisables(t *testing.T) {
	l := New(0, time.Minute)
	for i := 0; i < 100; i++ {
		assert.True(t, l.Allow("a"))
	}
}

func TestSweepForgetsIdleKeys(t *testing.T) {
	l := New(5, time.Second)
	now := time.Unix(0, 0)
	l.now = func() time.Time { return now }
	l.Allow("old")
	now = now.Add(time.Second)
	l.Allow("new")
	now = now.Add(1500 * time.Millisecond)

	assert.Equal(t, 1, l.Sweep())
	assert.Len(t, l.buckets, 1)
}
