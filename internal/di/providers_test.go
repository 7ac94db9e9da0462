package di

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"YieldScope/internal/engine"
	"YieldScope/internal/usecase"
	"YieldScope/pkg/config"
	xlogger "YieldScope/pkg/logger"
)

func TestEngineParamsFromDefaults(t *testing.T) {
	cfg := config.Default()
	assert.Equal(t, engine.DefaultParams(), EngineParams(cfg))
	assert.Equal(t, engine.DefaultAssessmentParams(), AssessmentParams(cfg))
}

func TestProvideEngineRegistryRejectsBadTuning(t *testing.T) {
	cfg := config.Default()
	cfg.Engine.NoiseTimeConstant = 0
	_, err := ProvideEngineRegistry(cfg)
	assert.Error(t, err)
}

func TestChainIndexersFollowChainOrder(t *testing.T) {
	cfg := config.Default()
	cfg.Chains["ARBITRUM"] = config.ChainConfig{RPCURL: "http://arb.local"}
	cfg.Chains["ETHEREUM"] = config.ChainConfig{RPCURL: "http://eth.local", WSURL: "ws://eth.local"}
	cfg.Chains["POLYGON"] = config.ChainConfig{}
	cfg.Chains["FANTOM"] = config.ChainConfig{RPCURL: "http://ftm.local"}

	ix := ChainIndexers(cfg, xlogger.Nop())
	require.Len(t, ix, 2)
	assert.Equal(t, "ETHEREUM", ix[0].Chain)
	assert.Equal(t, "ARBITRUM", ix[1].Chain)
	assert.Equal(t, "ARBITRUM", ix[1].Snapshots.Chain())
}

func TestOptionalInfrastructureDisabledByDefault(t *testing.T) {
	cfg := config.Default()

	p, err := ProvideKafkaProducer(cfg)
	require.NoError(t, err)
	assert.Nil(t, p)

	rc, err := ProvideRedisCache(cfg)
	require.NoError(t, err)
	assert.Nil(t, rc)

	ch, err := ProvideClickHouseClient(cfg)
	require.NoError(t, err)
	assert.Nil(t, ch)

	hist, err := ProvideHistory(cfg, ch)
	require.NoError(t, err)
	assert.Nil(t, hist)
	assert.Empty(t, ProvideOutputSinks(cfg, hist, p))

	q := ProvideMarketQuery(ProvideOutputStore(rc, xlogger.Nop()), hist)
	_, err = q.History(t.Context(), "m", "a", time.Time{}, time.Time{}, 10)
	assert.ErrorIs(t, err, usecase.ErrHistoryDisabled)
}
