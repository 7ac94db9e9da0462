package usecase

import (
	"context"
	"errors"
	"sync"

	"YieldScope/internal/domain/models"
)

type fakeMetrics struct {
	mu        sync.Mutex
	errors    map[string]int
	snapshots int
	outputs   int
}

func newFakeMetrics() *fakeMetrics { return &fakeMetrics{errors: map[string]int{}} }

func (m *fakeMetrics) RecordSnapshot(string, string, string) {
	m.mu.Lock()
	m.snapshots++
	m.mu.Unlock()
}

func (m *fakeMetrics) RecordOutput(*models.Output) {
	m.mu.Lock()
	m.outputs++
	m.mu.Unlock()
}

func (m *fakeMetrics) RecordError(kind string) {
	m.mu.Lock()
	m.errors[kind]++
	m.mu.Unlock()
}

func (m *fakeMetrics) RecordLatency(string, float64) {}

func (m *fakeMetrics) errorCount(kind string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.errors[kind]
}

type fakeStore struct {
	mu   sync.Mutex
	last map[string]*models.Output
	err  error
}

func newFakeStore() *fakeStore { return &fakeStore{last: map[string]*models.Output{}} }

func (s *fakeStore) Put(_ context.Context, out *models.Output) error {
	if s.err != nil {
		return s.err
	}
	s.mu.Lock()
	s.last[models.MarketKey(out.MarketID, out.Asset)] = out
	s.mu.Unlock()
	return nil
}

func (s *fakeStore) Get(_ context.Context, marketID, asset string) (*models.Output, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out, ok := s.last[models.MarketKey(marketID, asset)]
	if !ok {
		return nil, errNotFoundForTest
	}
	return out, nil
}

func (s *fakeStore) All(context.Context) (models.MarketIndex, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := models.MarketIndex{}
	for _, o := range s.last {
		idx.Add(o)
	}
	return idx, nil
}

var errNotFoundForTest = errors.New("not found")

type fakeSink struct {
	mu     sync.Mutex
	name   string
	err    error
	writes int
	closed bool
}

func (s *fakeSink) Name() string { return s.name }

func (s *fakeSink) Write(context.Context, *models.Output) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writes++
	return s.err
}

func (s *fakeSink) Close() error {
	s.closed = true
	return nil
}

type recordingSink struct {
	mu    sync.Mutex
	snaps []*models.Snapshot
	err   error
}

func (r *recordingSink) Process(_ context.Context, s *models.Snapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snaps = append(r.snaps, s)
	return r.err
}

func (r *recordingSink) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.snaps)
}

func snapshot(market, asset string, ts int64, raw, liq float64) *models.Snapshot {
	return &models.Snapshot{
		MarketID:  market,
		Protocol:  "Aave",
		Chain:     "ETHEREUM",
		Asset:     asset,
		RawYield:  raw,
		Liquidity: liq,
		Timestamp: ts,
	}
}
