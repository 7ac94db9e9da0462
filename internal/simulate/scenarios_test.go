package simulate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"YieldScope/internal/engine"
)

func run(t *testing.T, name string) (*Checkpoint, []Checkpoint) {
	t.Helper()
	s, ok := Lookup(name)
	require.True(t, ok)
	var cps []Checkpoint
	out, err := Run(s, engine.DefaultParams(), func(c Checkpoint) { cps = append(cps, c) })
	require.NoError(t, err)
	require.Len(t, cps, Ticks/CheckpointEvery)
	return &Checkpoint{Tick: Ticks, Output: out}, cps
}

func TestLookupUnknown(t *testing.T) {
	_, ok := Lookup("moon")
	assert.False(t, ok)
}

func TestIncentiveSpikeIsDiscounted(t *testing.T) {
	_, cps := run(t, "incentive")
	for _, c := range cps {
		m := c.Output.Metrics
		assert.LessOrEqual(t, m.EffectiveYield, m.SmoothedYield, "tick %d", c.Tick)
	}
	assert.Greater(t, cps[0].Output.Metrics.Risk.InstabilityVariance, 0.0)
}

func TestLiquidityRugRaisesStress(t *testing.T) {
	_, cps := run(t, "rug")
	before := cps[0].Output.Metrics.Risk.LiquidityStress
	after := cps[len(cps)-1].Output.Metrics.Risk.LiquidityStress
	assert.Greater(t, after, before)
	assert.Less(t, cps[len(cps)-1].Output.Metrics.EffectiveYield, 8.0)
}

func TestNoiseAccumulatesVariance(t *testing.T) {
	final, _ := run(t, "noise")
	assert.Greater(t, final.Output.Metrics.Risk.NoiseVariance, 0.0)
}

func TestGapIgnoresOutOfOrderTicks(t *testing.T) {
	final, cps := run(t, "gap")
	assert.InDelta(t, 8.0, final.Output.Metrics.SmoothedYield, 1e-9)
	assert.Equal(t, int64(120*Step+8*3600), cps[2].Output.Timestamp)
}
