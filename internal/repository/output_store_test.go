package repository

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"YieldScope/internal/domain/models"
	drepo "YieldScope/internal/domain/repository"
	"YieldScope/pkg/cache"
	xlogger "YieldScope/pkg/logger"
)

func output(market, asset string, ts int64, eff float64) *models.Output {
	return &models.Output{
		MarketID:  market,
		Asset:     asset,
		Timestamp: ts,
		Metrics:   models.Metrics{SmoothedYield: eff + 0.5, EffectiveYield: eff},
	}
}

func exerciseStore(t *testing.T, s drepo.OutputStore) {
	t.Helper()
	ctx := context.Background()

	_, err := s.Get(ctx, "aave-v3-ethereum", "USDC")
	require.ErrorIs(t, err, drepo.ErrNotFound)

	require.NoError(t, s.Put(ctx, output("aave-v3-ethereum", "USDC", 100, 4)))
	require.NoError(t, s.Put(ctx, output("aave-v3-ethereum", "USDC", 400, 4.1)))
	require.NoError(t, s.Put(ctx, output("aave-v3-ethereum", "USDT", 400, 3)))
	require.NoError(t, s.Put(ctx, output("aave-v3-polygon", "USDC", 400, 5)))

	got, err := s.Get(ctx, "aave-v3-ethereum", "USDC")
	require.NoError(t, err)
	assert.Equal(t, int64(400), got.Timestamp)
	assert.Equal(t, 4.1, got.Metrics.EffectiveYield)

	idx, err := s.All(ctx)
	require.NoError(t, err)
	require.Len(t, idx, 2)
	assert.Len(t, idx["aave-v3-ethereum"], 2)
	assert.Equal(t, 5.0, idx["aave-v3-polygon"]["USDC"].Metrics.EffectiveYield)
}

func TestMemoryOutputStore(t *testing.T) {
	exerciseStore(t, NewMemoryOutputStore())
}

func TestMemoryOutputStoreCopies(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryOutputStore()
	o := output("m", "a", 1, 1)
	require.NoError(t, s.Put(ctx, o))
	o.Metrics.EffectiveYield = 99

	got, err := s.Get(ctx, "m", "a")
	require.NoError(t, err)
	assert.Equal(t, 1.0, got.Metrics.EffectiveYield)
}

func TestRedisOutputStore(t *testing.T) {
	mr := miniredis.RunT(t)
	c := cache.NewRedisCacheFromClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}), "ys")
	t.Cleanup(func() { _ = c.Close() })

	exerciseStore(t, NewRedisOutputStore(c, xlogger.Nop()))
	assert.True(t, mr.Exists("ys:markets"))
}

func TestRedisOutputStoreSkipsGarbage(t *testing.T) {
	mr := miniredis.RunT(t)
	c := cache.NewRedisCacheFromClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}), "ys")
	t.Cleanup(func() { _ = c.Close() })
	s := NewRedisOutputStore(c, xlogger.Nop())

	require.NoError(t, s.Put(context.Background(), output("m", "a", 1, 1)))
	mr.HSet("ys:markets", "junk", "{not json")

	idx, err := s.All(context.Background())
	require.NoError(t, err)
	assert.Len(t, idx, 1)
}
