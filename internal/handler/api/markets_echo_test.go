package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"YieldScope/internal/domain/models"
	"YieldScope/internal/repository"
	"YieldScope/internal/usecase"
	xlogger "YieldScope/pkg/logger"
)

type stubHistory struct {
	from, to time.Time
	limit    int
}

func (s *stubHistory) Init(context.Context) error { return nil }

func (s *stubHistory) Query(_ context.Context, marketID, asset string, from, to time.Time, limit int) ([]*models.Output, error) {
	s.from, s.to, s.limit = from, to, limit
	return []*models.Output{{MarketID: marketID, Asset: asset, Timestamp: to.Unix()}}, nil
}

type envelope struct {
	Status  int             `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func newTestServer(t *testing.T, hist *stubHistory) *echo.Echo {
	t.Helper()
	store := repository.NewMemoryOutputStore()
	require.NoError(t, store.Put(context.Background(), &models.Output{
		MarketID:  "aave-v3-ethereum",
		Asset:     "USDC",
		Timestamp: 1_700_000_000,
		Metrics:   models.Metrics{SmoothedYield: 4.2, EffectiveYield: 3.9},
	}))

	var q *usecase.MarketQuery
	if hist != nil {
		q = usecase.NewMarketQuery(store, hist)
	} else {
		q = usecase.NewMarketQuery(store, nil)
	}
	e := echo.New()
	NewMarketsEchoHandler(xlogger.Nop(), q).RegisterRoutes(e)
	return e
}

func do(e *echo.Echo, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestHealth(t *testing.T) {
	rec := do(newTestServer(t, nil), "/health")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"ok":true}`, rec.Body.String())
}

func TestMarketsListing(t *testing.T) {
	rec := do(newTestServer(t, nil), "/api/v1/markets")
	require.Equal(t, http.StatusOK, rec.Code)

	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	var idx models.MarketIndex
	require.NoError(t, json.Unmarshal(env.Data, &idx))
	require.Contains(t, idx, "aave-v3-ethereum")
	assert.InDelta(t, 3.9, idx["aave-v3-ethereum"]["USDC"].Metrics.EffectiveYield, 1e-12)
}

func TestMarketLookup(t *testing.T) {
	e := newTestServer(t, nil)

	rec := do(e, "/api/v1/markets/aave-v3-ethereum/USDC")
	require.Equal(t, http.StatusOK, rec.Code)
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	var out models.Output
	require.NoError(t, json.Unmarshal(env.Data, &out))
	assert.Equal(t, int64(1_700_000_000), out.Timestamp)

	rec = do(e, "/api/v1/markets/aave-v3-ethereum/DAI")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHistoryDisabled(t *testing.T) {
	rec := do(newTestServer(t, nil), "/api/v1/markets/aave-v3-ethereum/USDC/history")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestHistoryQuery(t *testing.T) {
	hist := &stubHistory{}
	e := newTestServer(t, hist)

	rec := do(e, "/api/v1/markets/aave-v3-ethereum/USDC/history?from=1700000000&to=1700003600&limit=20")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(1_700_000_000), hist.from.Unix())
	assert.Equal(t, int64(1_700_003_600), hist.to.Unix())
	assert.Equal(t, 20, hist.limit)

	rec = do(e, "/api/v1/markets/aave-v3-ethereum/USDC/history")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 500, hist.limit)

	rec = do(e, "/api/v1/markets/aave-v3-ethereum/USDC/history?limit=20000")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
