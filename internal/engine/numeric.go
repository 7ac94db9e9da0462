package engine

import "math"

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// Clamp bounds v to [lo, hi]. Non-finite input maps to lo.
func Clamp(v, lo, hi float64) float64 {
	if !isFinite(v) {
		return lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// SafeSqrt returns 0 for non-finite or non-positive input.
func SafeSqrt(v float64) float64 {
	if !isFinite(v) || v <= 0 {
		return 0
	}
	return math.Sqrt(v)
}

// SafeDivide returns fallback when either operand is non-finite or d is zero.
func SafeDivide(n, d, fallback float64) float64 {
	if !isFinite(n) || !isFinite(d) || d == 0 {
		return fallback
	}
	return n / d
}

// SafeDeltaTime returns current-previous in seconds, or 0 when the
// difference is not a usable forward step.
func SafeDeltaTime(current, previous int64) float64 {
	if current <= previous {
		return 0
	}
	// uint64 holds any forward difference of two int64 values
	dt := float64(uint64(current) - uint64(previous))
	if !isFinite(dt) || dt <= 0 {
		return 0
	}
	return dt
}
