package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLimiterPerKeyWindow(t *testing.T) {
	l := New(5*time.Second, 1)
	now := time.Unix(1_700_000_000, 0)

	assert.True(t, l.AllowAt("ETHEREUM", now))
	assert.False(t, l.AllowAt("ETHEREUM", now.Add(2*time.Second)))
	assert.True(t, l.AllowAt("POLYGON", now.Add(2*time.Second)))
	assert.True(t, l.AllowAt("ETHEREUM", now.Add(6*time.Second)))
}

func TestLimiterDisabled(t *testing.T) {
	l := New(0, 1)
	for i := 0; i < 100; i++ {
		assert.True(t, l.Allow("k"))
	}
	assert.True(t, PerSecond(0, 1).Allow("k"))
}
