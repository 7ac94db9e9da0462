package repository

import (
	"context"
	"sync"

	"YieldScope/internal/domain/models"
	drepo "YieldScope/internal/domain/repository"
)

// MemoryOutputStore keeps the latest output per market in process.
type MemoryOutputStore struct {
	mu      sync.RWMutex
	outputs map[string]*models.Output
}

func NewMemoryOutputStore() *MemoryOutputStore {
	return &MemoryOutputStore{outputs: make(map[string]*models.Output)}
}

func (s *MemoryOutputStore) Put(_ context.Context, out *models.Output) error {
	cp := *out
	s.mu.Lock()
	s.outputs[models.MarketKey(out.MarketID, out.Asset)] = &cp
	s.mu.Unlock()
	return nil
}

func (s *MemoryOutputStore) Get(_ context.Context, marketID, asset string) (*models.Output, error) {
	s.mu.RLock()
	out, ok := s.outputs[models.MarketKey(marketID, asset)]
	s.mu.RUnlock()
	if !ok {
		return nil, drepo.ErrNotFound
	}
	cp := *out
	return &cp, nil
}

func (s *MemoryOutputStore) All(_ context.Context) (models.MarketIndex, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	idx := make(models.MarketIndex)
	for _, out := range s.outputs {
		cp := *out
		idx.Add(&cp)
	}
	return idx, nil
}

var _ drepo.OutputStore = (*MemoryOutputStore)(nil)
