package engine

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDecayStepGuards(t *testing.T) {
	nan, inf := math.NaN(), math.Inf(1)

	cases := []struct {
		name                   string
		prev, in, elapsed, tau float64
		want                   float64
	}{
		{"nan previous bootstraps", nan, 5, 10, 100, 5},
		{"inf previous bootstraps", inf, 5, 10, 100, 5},
		{"nan incoming skipped", 3, nan, 10, 100, 3},
		{"inf incoming skipped", 3, -inf, 10, 100, 3},
		{"zero elapsed", 3, 5, 0, 100, 3},
		{"negative elapsed", 3, 5, -10, 100, 3},
		{"nan elapsed", 3, 5, nan, 100, 3},
		{"zero time constant", 3, 5, 10, 0, 5},
		{"nan time constant", 3, 5, 10, nan, 5},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, DecayStep(tc.prev, tc.in, tc.elapsed, tc.tau))
		})
	}
}

func TestDecayStepWeight(t *testing.T) {
	// one time constant moves 1-1/e of the way
	assert.InDelta(t, 10*(1-math.Exp(-1)), DecayStep(0, 10, 100, 100), 1e-12)
	assert.InDelta(t, 10, DecayStep(0, 10, 1e6, 1), 1e-12)
	assert.InDelta(t, 2, DecayStep(2, 8, 1e-9, 3600), 1e-9)
}
