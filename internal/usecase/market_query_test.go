package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"YieldScope/internal/domain/models"
)

type fakeHistory struct {
	from, to time.Time
	limit    int
}

func (h *fakeHistory) Init(context.Context) error { return nil }

func (h *fakeHistory) Query(_ context.Context, marketID, asset string, from, to time.Time, limit int) ([]*models.Output, error) {
	h.from, h.to, h.limit = from, to, limit
	return []*models.Output{{MarketID: marketID, Asset: asset, Timestamp: to.Unix()}}, nil
}

func TestMarketQuery(t *testing.T) {
	store := newFakeStore()
	ctx := context.Background()
	require.NoError(t, store.Put(ctx, &models.Output{MarketID: "m", Asset: "USDC", Timestamp: 5}))

	q := NewMarketQuery(store, nil)
	idx, err := q.Markets(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(5), idx["m"]["USDC"].Timestamp)

	_, err = q.Market(ctx, "m", "DAI")
	assert.ErrorIs(t, err, errNotFoundForTest)

	_, err = q.History(ctx, "m", "USDC", time.Time{}, time.Time{}, 10)
	assert.ErrorIs(t, err, ErrHistoryDisabled)
}

func TestMarketQueryHistoryDefaultsRange(t *testing.T) {
	h := &fakeHistory{}
	q := NewMarketQuery(newFakeStore(), h)

	to := time.Unix(1_700_000_000, 0)
	rows, err := q.History(context.Background(), "m", "USDC", to.Add(time.Hour), to, 50)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, to.Add(-24*time.Hour), h.from, "inverted range falls back to the last day")
	assert.Equal(t, 50, h.limit)
}
