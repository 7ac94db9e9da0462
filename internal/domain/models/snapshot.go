package models

// Snapshot is one normalized observation of a yield market. Producers
// convert protocol specific units before building it: RawYield is an
// annualized percentage, Liquidity is in a single capital unit (USD).
type Snapshot struct {
	MarketID  string  `json:"marketId"`
	Protocol  string  `json:"protocol,omitempty"`
	Chain     string  `json:"chain,omitempty"`
	Asset     string  `json:"asset"`
	RawYield  float64 `json:"rawYield"`
	Liquidity float64 `json:"liquidity"`
	Timestamp int64   `json:"timestamp"` // unix seconds
}

// Key returns the registry key of the market this snapshot belongs to.
func (s *Snapshot) Key() string { return MarketKey(s.MarketID, s.Asset) }

// MarketKey joins a market id and asset into a single map key.
func MarketKey(marketID, asset string) string { return marketID + "\x00" + asset }
