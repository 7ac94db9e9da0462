package engine

import (
	"errors"
	"fmt"
)

// Default tunables, all time constants in seconds.
const (
	DefaultLevelTimeConstant       = 3600
	DefaultTrendTimeConstant       = 1800
	DefaultNoiseTimeConstant       = 7200
	DefaultInstabilityTimeConstant = 3600
	DefaultLiquidityTimeConstant   = 43200
	DefaultLiquidityReference      = 50_000_000

	DefaultNoiseWeight       = 0.3
	DefaultInstabilityWeight = 0.6
	DefaultLiquidityWeight   = 1.0
)

// RiskWeights scale the penalties subtracted from the smoothed yield.
type RiskWeights struct {
	Noise       float64
	Instability float64
	Liquidity   float64
}

// Params is the process-wide configuration of the estimator. It is copied
// into every Engine and never mutated afterwards.
type Params struct {
	LevelTimeConstant       float64
	TrendTimeConstant       float64
	NoiseTimeConstant       float64
	InstabilityTimeConstant float64
	LiquidityTimeConstant   float64
	LiquidityReference      float64
	Weights                 RiskWeights
}

// DefaultParams returns the production tuning.
func DefaultParams() Params {
	return Params{
		LevelTimeConstant:       DefaultLevelTimeConstant,
		TrendTimeConstant:       DefaultTrendTimeConstant,
		NoiseTimeConstant:       DefaultNoiseTimeConstant,
		InstabilityTimeConstant: DefaultInstabilityTimeConstant,
		LiquidityTimeConstant:   DefaultLiquidityTimeConstant,
		LiquidityReference:      DefaultLiquidityReference,
		Weights: RiskWeights{
			Noise:       DefaultNoiseWeight,
			Instability: DefaultInstabilityWeight,
			Liquidity:   DefaultLiquidityWeight,
		},
	}
}

// Validate rejects tunings that would make the estimator meaningless.
func (p Params) Validate() error {
	tcs := []struct {
		name  string
		value float64
	}{
		{"level", p.LevelTimeConstant},
		{"trend", p.TrendTimeConstant},
		{"noise", p.NoiseTimeConstant},
		{"instability", p.InstabilityTimeConstant},
		{"liquidity", p.LiquidityTimeConstant},
	}
	for _, tc := range tcs {
		if !isFinite(tc.value) || tc.value <= 0 {
			return fmt.Errorf("%s time constant must be positive and finite, got %v", tc.name, tc.value)
		}
	}
	if !isFinite(p.LiquidityReference) || p.LiquidityReference < 0 {
		return fmt.Errorf("liquidity reference must be non-negative, got %v", p.LiquidityReference)
	}
	w := p.Weights
	for _, v := range []float64{w.Noise, w.Instability, w.Liquidity} {
		if !isFinite(v) || v < 0 {
			return errors.New("risk weights must be non-negative and finite")
		}
	}
	return nil
}
