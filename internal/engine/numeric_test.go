package engine

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClamp(t *testing.T) {
	assert.Equal(t, 0.0, Clamp(math.NaN(), 0, 1))
	assert.Equal(t, 0.0, Clamp(math.Inf(1), 0, 1))
	assert.Equal(t, 0.0, Clamp(-1, 0, 1))
	assert.Equal(t, 1.0, Clamp(2, 0, 1))
	assert.Equal(t, 0.5, Clamp(0.5, 0, 1))
}

func TestSafeSqrt(t *testing.T) {
	assert.Equal(t, 0.0, SafeSqrt(-1))
	assert.Equal(t, 0.0, SafeSqrt(0))
	assert.Equal(t, 0.0, SafeSqrt(math.NaN()))
	assert.Equal(t, 2.0, SafeSqrt(4))
}

func TestSafeDivide(t *testing.T) {
	assert.Equal(t, 7.0, SafeDivide(1, 0, 7))
	assert.Equal(t, 7.0, SafeDivide(math.NaN(), 1, 7))
	assert.Equal(t, 7.0, SafeDivide(1, math.Inf(-1), 7))
	assert.Equal(t, 2.0, SafeDivide(6, 3, 0))
}

func TestSafeDeltaTime(t *testing.T) {
	assert.Equal(t, 5.0, SafeDeltaTime(10, 5))
	assert.Equal(t, 0.0, SafeDeltaTime(5, 10))
	assert.Equal(t, 0.0, SafeDeltaTime(5, 5))
	assert.Equal(t, 0.0, SafeDeltaTime(math.MinInt64, 1_700_000_000))
	assert.Equal(t, 0.0, SafeDeltaTime(math.MinInt64+5, math.MaxInt64))
	assert.Equal(t, float64(math.MaxUint64), SafeDeltaTime(math.MaxInt64, math.MinInt64))
}
