package engine

import "math"

// DeriveEffectiveYield subtracts the weighted risk penalties from the
// smoothed yield. The result never exceeds the smoothed yield.
func DeriveEffectiveYield(s State, w RiskWeights) float64 {
	mu := s.SmoothedYield
	if !isFinite(mu) {
		return 0
	}
	noise := w.Noise * SafeSqrt(s.NoiseVariance)
	instability := w.Instability * SafeSqrt(math.Max(0, s.InstabilityVariance))
	liquidity := w.Liquidity * math.Max(0, s.LiquidityStress)
	return math.Min(mu, mu-noise-instability-liquidity)
}
