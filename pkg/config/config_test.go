package config

import (
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(p, []byte(body), 0o600))
	return p
}

func TestDefaults(t *testing.T) {
	c := Default()
	assert.Equal(t, 3600.0, c.Engine.LevelTimeConstant)
	assert.Equal(t, 43200.0, c.Engine.LiquidityTimeConstant)
	assert.Equal(t, 50_000_000.0, c.Engine.LiquidityReference)
	assert.Equal(t, 0.6, c.Engine.Weights.Instability)
	assert.Equal(t, 5*time.Second, c.Ingest.BlockThrottle)
	assert.Equal(t, 2*time.Second, c.Ingest.StartupRPCDelay)
	assert.Equal(t, "saturating", c.Engine.Assessment.Recovery)
	assert.Equal(t, -1, c.Kafka.Producer.RequiredAcks)
	assert.Equal(t, int64(1<<20), c.Kafka.Producer.BatchBytes)
	assert.Equal(t, 5, c.Ingest.MaxAttempts)
	assert.True(t, c.Server.CORS)
	require.NoError(t, c.Validate())
}

func TestLoadKeepsExplicitZero(t *testing.T) {
	p := writeFile(t, `
engine:
  weights:
    noise: 0
server:
  cors: false
chains:
  polygon:
    rpc_url: https://polygon.example
`)
	c, err := Load(p)
	require.NoError(t, err)
	assert.Equal(t, 0.0, c.Engine.Weights.Noise)
	assert.Equal(t, 0.6, c.Engine.Weights.Instability)
	assert.False(t, c.Server.CORS)
	assert.Equal(t, "https://polygon.example", c.Chains["POLYGON"].RPCURL)
}

func TestApplyEnv(t *testing.T) {
	c := Default()
	c.normalizeChains()
	err := c.applyEnv([]string{
		"PORT=8081",
		"BLOCK_THROTTLE_MS=0",
		"STARTUP_RPC_DELAY_MS=250",
		"ETHEREUM_RPC_URL=https://eth.example",
		"ETHEREUM_WS_URL=wss://eth.example",
		"ARBITRUM_RPC_URL=https://arb.example",
		"ARBITRUM_POOL_ADDRESS=0xabc",
		"OPTIMISM_RPC_URL=",
		"KAFKA_BROKERS=a:9092, b:9092",
		"REDIS_ADDR=redis:6379",
	})
	require.NoError(t, err)

	assert.Equal(t, 8081, c.Server.Port)
	assert.Equal(t, time.Duration(0), c.Ingest.BlockThrottle)
	assert.Equal(t, 250*time.Millisecond, c.Ingest.StartupRPCDelay)
	assert.Equal(t, []string{"a:9092", "b:9092"}, c.Kafka.Brokers)
	assert.True(t, c.Redis.Enabled)
	assert.Equal(t, "wss://eth.example", c.Chains["ETHEREUM"].WSURL)
	assert.Equal(t, "0xabc", c.Chains["ARBITRUM"].PoolAddress)

	active := c.ActiveChains()
	sort.Strings(active)
	assert.Equal(t, []string{"ARBITRUM", "ETHEREUM"}, active)
}

func TestApplyEnvRejectsBadValues(t *testing.T) {
	c := Default()
	c.normalizeChains()
	assert.Error(t, c.applyEnv([]string{"BLOCK_THROTTLE_MS=soon"}))
	assert.Error(t, c.applyEnv([]string{"PORT=http"}))
}

func TestValidate(t *testing.T) {
	c := Default()
	c.Engine.NoiseTimeConstant = 0
	assert.Error(t, c.Validate())

	c = Default()
	c.Kafka.Producer.Enabled = true
	assert.Error(t, c.Validate(), "producer needs brokers")

	c = Default()
	c.ClickHouse.Enabled = true
	assert.Error(t, c.Validate())

	c = Default()
	c.Ingest.Source = "kafka"
	assert.Error(t, c.Validate())

	c = Default()
	c.Engine.Assessment.Recovery = "instant"
	assert.Error(t, c.Validate())
}
