package models

// Decision is the coarse label attached to an output when assessment is enabled.
type Decision string

const (
	DecisionStable Decision = "STABLE"
	DecisionRisky  Decision = "RISKY"
	DecisionAvoid  Decision = "AVOID"
)

// Risk groups the three risk estimates of a market.
type Risk struct {
	NoiseVariance       float64 `json:"noiseVariance"`
	InstabilityVariance float64 `json:"instabilityVariance"`
	LiquidityStress     float64 `json:"liquidityStress"`
}

type Metrics struct {
	SmoothedYield  float64  `json:"smoothedYield"`
	EffectiveYield float64  `json:"effectiveYield"`
	Trend          float64  `json:"trend"`
	Risk           Risk     `json:"risk"`
	Confidence     *float64 `json:"confidence,omitempty"`
}

// Output is the per-update result handed to storage and the query surface.
type Output struct {
	MarketID  string   `json:"marketId"`
	Asset     string   `json:"asset"`
	Timestamp int64    `json:"timestamp"`
	Metrics   Metrics  `json:"metrics"`
	Decision  Decision `json:"decision,omitempty"`
}

// MarketIndex is the shape served by the markets listing: marketId -> asset -> output.
type MarketIndex map[string]map[string]*Output

// Add files out under its market and asset.
func (idx MarketIndex) Add(out *Output) {
	byAsset, ok := idx[out.MarketID]
	if !ok {
		byAsset = make(map[string]*Output)
		idx[out.MarketID] = byAsset
	}
	byAsset[out.Asset] = out
}
