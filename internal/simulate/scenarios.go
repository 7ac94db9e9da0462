// Package simulate replays synthetic yield series through a single market.
package simulate

import (
	"fmt"
	"math"

	"YieldScope/internal/domain/models"
	"YieldScope/internal/engine"
	"YieldScope/internal/usecase"
)

const (
	Ticks           = 200
	Step            = 300
	CheckpointEvery = 50
)

// Scenario produces the yield and liquidity of tick i. Tick 0 seeds the engine.
type Scenario struct {
	Name  string
	Title string
	Tick  func(i int) (ts int64, rawYield, liquidity float64)
}

// Checkpoint is one reported point of a run.
type Checkpoint struct {
	Scenario string
	Tick     int
	RawYield float64
	Output   *models.Output
}

var Scenarios = []Scenario{
	{
		Name:  "incentive",
		Title: "INCENTIVE SPIKE",
		Tick: func(i int) (int64, float64, float64) {
			switch {
			case i == 0:
				return 0, 8, 100_000_000
			case i < 30:
				return step(i), 8 + float64(i)*0.3, 110_000_000
			case i < 60:
				return step(i), 20, 110_000_000
			default:
				return step(i), 8 + math.Sin(float64(i)/5), 110_000_000
			}
		},
	},
	{
		Name:  "rug",
		Title: "LIQUIDITY RUG",
		Tick: func(i int) (int64, float64, float64) {
			if i < 80 {
				return step(i), 8, 150_000_000
			}
			return step(i), 8, 5_000_000
		},
	},
	{
		Name:  "noise",
		Title: "HIGH NOISE",
		Tick: func(i int) (int64, float64, float64) {
			if i == 0 {
				return 0, 8, 100_000_000
			}
			return step(i), 8 + math.Sin(float64(i))*3, 100_000_000
		},
	},
	{
		Name:  "gap",
		Title: "DATA GAP",
		Tick: func(i int) (int64, float64, float64) {
			ts := step(i)
			if i == 120 {
				ts += 8 * 3600
			}
			return ts, 8, 100_000_000
		},
	},
}

func step(i int) int64 { return int64(i) * Step }

// Lookup finds a scenario by name.
func Lookup(name string) (Scenario, bool) {
	for _, s := range Scenarios {
		if s.Name == name {
			return s, true
		}
	}
	return Scenario{}, false
}

// Run feeds Ticks updates into a fresh registry and calls report every
// CheckpointEvery ticks. It returns the final output.
func Run(s Scenario, params engine.Params, report func(Checkpoint), opts ...usecase.RegistryOption) (*models.Output, error) {
	snap := func(i int) *models.Snapshot {
		ts, y, liq := s.Tick(i)
		return &models.Snapshot{
			MarketID:  "demo-market",
			Protocol:  "Demo",
			Chain:     "DemoChain",
			Asset:     "USDC",
			RawYield:  y,
			Liquidity: liq,
			Timestamp: ts,
		}
	}

	registry := usecase.NewEngineRegistry(params, opts...)
	out, err := registry.Process(snap(0))
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", s.Name, err)
	}
	for i := 1; i <= Ticks; i++ {
		sn := snap(i)
		out, err = registry.Process(sn)
		if err != nil {
			return nil, fmt.Errorf("scenario %s tick %d: %w", s.Name, i, err)
		}
		if report != nil && i%CheckpointEvery == 0 {
			report(Checkpoint{Scenario: s.Name, Tick: i, RawYield: sn.RawYield, Output: out})
		}
	}
	return out, nil
}
