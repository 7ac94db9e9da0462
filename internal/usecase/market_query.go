package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"YieldScope/internal/domain/models"
	drepo "YieldScope/internal/domain/repository"
)

// ErrHistoryDisabled is returned when no history backend is configured.
var ErrHistoryDisabled = errors.New("output history is disabled")

// MarketQuery serves the read side of the markets API.
type MarketQuery struct {
	store   drepo.OutputStore
	history drepo.History
	timeout time.Duration
}

// NewMarketQuery creates the query use case. history may be nil.
func NewMarketQuery(store drepo.OutputStore, history drepo.History) *MarketQuery {
	return &MarketQuery{store: store, history: history, timeout: 5 * time.Second}
}

func (q *MarketQuery) Markets(ctx context.Context) (models.MarketIndex, error) {
	ctx, cancel := context.WithTimeout(ctx, q.timeout)
	defer cancel()
	idx, err := q.store.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("list markets: %w", err)
	}
	return idx, nil
}

func (q *MarketQuery) Market(ctx context.Context, marketID, asset string) (*models.Output, error) {
	ctx, cancel := context.WithTimeout(ctx, q.timeout)
	defer cancel()
	out, err := q.store.Get(ctx, marketID, asset)
	if err != nil {
		return nil, fmt.Errorf("get market %s/%s: %w", marketID, asset, err)
	}
	return out, nil
}

// History returns stored outputs of a market in [from, to], newest first.
func (q *MarketQuery) History(ctx context.Context, marketID, asset string, from, to time.Time, limit int) ([]*models.Output, error) {
	if q.history == nil {
		return nil, ErrHistoryDisabled
	}
	if to.IsZero() {
		to = time.Now()
	}
	if from.IsZero() || from.After(to) {
		from = to.Add(-24 * time.Hour)
	}
	ctx, cancel := context.WithTimeout(ctx, q.timeout)
	defer cancel()
	rows, err := q.history.Query(ctx, marketID, asset, from, to, limit)
	if err != nil {
		return nil, fmt.Errorf("history %s/%s: %w", marketID, asset, err)
	}
	return rows, nil
}
