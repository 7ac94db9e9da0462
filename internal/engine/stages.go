package engine

// tick carries the values shared by every stage of one update. It lives
// only for the duration of that update.
type tick struct {
	elapsed   float64
	rawYield  float64
	liquidity float64
}

func updateLevel(s *State, t tick, p Params) {
	prev := s.SmoothedYield
	s.SmoothedYield = DecayStep(prev, t.rawYield, t.elapsed, p.LevelTimeConstant)
	drift := s.SmoothedYield - prev
	s.YieldTrend = DecayStep(s.YieldTrend, drift, t.elapsed, p.TrendTimeConstant)
}

// updateVariance must run after updateLevel and before the markers are
// committed: the residual is taken against the new level, the tick delta
// against the previous raw yield.
func updateVariance(s *State, t tick, p Params) {
	residual := t.rawYield - s.SmoothedYield
	s.NoiseVariance = DecayStep(s.NoiseVariance, residual*residual, t.elapsed, p.NoiseTimeConstant)

	delta := t.rawYield - s.LastRawYield
	s.InstabilityVariance = DecayStep(s.InstabilityVariance, delta*delta, t.elapsed, p.InstabilityTimeConstant)
}

func updateLiquidity(s *State, t tick, p Params) {
	s.AvgLiquidity = DecayStep(s.AvgLiquidity, t.liquidity, t.elapsed, p.LiquidityTimeConstant)
	if !isFinite(s.AvgLiquidity) || s.AvgLiquidity <= 0 {
		s.LiquidityStress = 1
		return
	}
	raw := p.LiquidityReference / s.AvgLiquidity
	s.LiquidityStress = Clamp(DecayStep(s.LiquidityStress, raw, t.elapsed, p.LiquidityTimeConstant), 0, 1)
}

func commit(s *State, t tick, timestamp int64) {
	if isFinite(t.rawYield) {
		s.LastRawYield = t.rawYield
	}
	s.LastTimestamp = timestamp
}

// advance runs one full transition. A non-positive elapsed time leaves s untouched.
func advance(s *State, t tick, timestamp int64, p Params) bool {
	if !isFinite(t.elapsed) || t.elapsed <= 0 {
		return false
	}
	updateLevel(s, t, p)
	updateVariance(s, t, p)
	updateLiquidity(s, t, p)
	commit(s, t, timestamp)
	return true
}
