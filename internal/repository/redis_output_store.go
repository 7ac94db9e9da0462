package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"YieldScope/internal/domain/models"
	drepo "YieldScope/internal/domain/repository"
	"YieldScope/pkg/cache"
	xlogger "YieldScope/pkg/logger"
)

const marketsHash = "markets"

// RedisOutputStore keeps the latest outputs in one Redis hash so several
// API replicas can serve the same view.
type RedisOutputStore struct {
	cache  cache.Service
	logger *xlogger.Logger
}

func NewRedisOutputStore(c cache.Service, logger *xlogger.Logger) *RedisOutputStore {
	return &RedisOutputStore{cache: c, logger: logger}
}

func (s *RedisOutputStore) Put(ctx context.Context, out *models.Output) error {
	if err := s.cache.HSet(ctx, marketsHash, models.MarketKey(out.MarketID, out.Asset), out); err != nil {
		return fmt.Errorf("redis hset: %w", err)
	}
	return nil
}

func (s *RedisOutputStore) Get(ctx context.Context, marketID, asset string) (*models.Output, error) {
	var out models.Output
	err := s.cache.HGet(ctx, marketsHash, models.MarketKey(marketID, asset), &out)
	if errors.Is(err, cache.ErrCacheMiss) {
		return nil, drepo.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis hget: %w", err)
	}
	return &out, nil
}

func (s *RedisOutputStore) All(ctx context.Context) (models.MarketIndex, error) {
	raw, err := s.cache.HGetAll(ctx, marketsHash)
	if err != nil {
		return nil, fmt.Errorf("redis hgetall: %w", err)
	}
	idx := make(models.MarketIndex, len(raw))
	for field, v := range raw {
		var out models.Output
		if err := json.Unmarshal([]byte(v), &out); err != nil {
			s.logger.Warn("skip undecodable output", xlogger.String("field", field), xlogger.Error(err))
			continue
		}
		idx.Add(&out)
	}
	return idx, nil
}

var _ drepo.OutputStore = (*RedisOutputStore)(nil)
