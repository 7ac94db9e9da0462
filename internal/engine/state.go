package engine

import (
	"errors"

	"YieldScope/internal/domain/models"
)

var (
	ErrNilSnapshot     = errors.New("engine: snapshot is required")
	ErrMissingMarketID = errors.New("engine: snapshot has no market id")
	ErrMarketMismatch  = errors.New("engine: snapshot does not match engine market")
)

// State is the running estimate of one (market, asset) pair. Only the
// Engine that owns it mutates it.
type State struct {
	MarketID string
	Protocol string
	Chain    string
	Asset    string

	LastTimestamp int64
	LastRawYield  float64

	SmoothedYield       float64
	YieldTrend          float64
	NoiseVariance       float64
	InstabilityVariance float64
	AvgLiquidity        float64
	LiquidityStress     float64
}

// NewState bootstraps a state from the first observation of a market.
// Non-finite values are kept as they are; the first finite sample replaces
// them through DecayStep.
func NewState(snap *models.Snapshot) (*State, error) {
	if snap == nil {
		return nil, ErrNilSnapshot
	}
	if snap.MarketID == "" {
		return nil, ErrMissingMarketID
	}
	return &State{
		MarketID:      snap.MarketID,
		Protocol:      snap.Protocol,
		Chain:         snap.Chain,
		Asset:         snap.Asset,
		LastTimestamp: snap.Timestamp,
		LastRawYield:  snap.RawYield,
		SmoothedYield: snap.RawYield,
		AvgLiquidity:  snap.Liquidity,
	}, nil
}

// owns reports whether snap belongs to the market this state tracks.
func (s *State) owns(snap *models.Snapshot) bool {
	return snap.MarketID == s.MarketID && snap.Asset == s.Asset
}
