// Package engine implements the per-market streaming yield estimator.
//
// An Engine is bound to one (market, asset) pair for its whole life and is
// not safe for concurrent use; callers serialize updates per key.
package engine

import (
	"fmt"

	"YieldScope/internal/domain/models"
)

// Engine holds the estimator state of a single market and advances it one
// snapshot at a time.
type Engine struct {
	params Params
	state  State
}

// New creates an engine from the first snapshot of a market.
func New(snap *models.Snapshot, params Params) (*Engine, error) {
	st, err := NewState(snap)
	if err != nil {
		return nil, err
	}
	return &Engine{params: params, state: *st}, nil
}

// Update folds snap into the state and returns the resulting output.
// Snapshots that do not move time forward leave the state untouched.
func (e *Engine) Update(snap *models.Snapshot) (*models.Output, error) {
	if _, err := e.Advance(snap); err != nil {
		return nil, err
	}
	return e.Output(), nil
}

// Advance folds snap into the state and returns the elapsed seconds of the
// committed step, 0 when the snapshot did not move time forward.
func (e *Engine) Advance(snap *models.Snapshot) (float64, error) {
	if snap == nil {
		return 0, ErrNilSnapshot
	}
	if !e.state.owns(snap) {
		return 0, fmt.Errorf("%w: bound to %s/%s, got %s/%s",
			ErrMarketMismatch, e.state.MarketID, e.state.Asset, snap.MarketID, snap.Asset)
	}

	t := tick{
		elapsed:   SafeDeltaTime(snap.Timestamp, e.state.LastTimestamp),
		rawYield:  snap.RawYield,
		liquidity: snap.Liquidity,
	}
	if !advance(&e.state, t, snap.Timestamp, e.params) {
		return 0, nil
	}
	return t.elapsed, nil
}

// State returns a copy of the current state.
func (e *Engine) State() State { return e.state }

// Output renders the current state without advancing it. A level that has
// not yet seen a finite sample is reported as 0.
func (e *Engine) Output() *models.Output {
	s := e.state
	smoothed := s.SmoothedYield
	if !isFinite(smoothed) {
		smoothed = 0
	}
	return &models.Output{
		MarketID:  s.MarketID,
		Asset:     s.Asset,
		Timestamp: s.LastTimestamp,
		Metrics: models.Metrics{
			SmoothedYield:  smoothed,
			EffectiveYield: DeriveEffectiveYield(s, e.params.Weights),
			Trend:          s.YieldTrend,
			Risk: models.Risk{
				NoiseVariance:       s.NoiseVariance,
				InstabilityVariance: s.InstabilityVariance,
				LiquidityStress:     s.LiquidityStress,
			},
		},
	}
}
