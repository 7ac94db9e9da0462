package usecase

import (
	"sort"
	"sync"

	"YieldScope/internal/domain/models"
	"YieldScope/internal/engine"
)

// EngineRegistry owns one engine per (market, asset) key. Engines are
// created on the first snapshot of a key; updates to the same key are
// serialized, distinct keys proceed in parallel.
type EngineRegistry struct {
	params     engine.Params
	assessment *engine.AssessmentParams

	mu      sync.RWMutex
	entries map[string]*registryEntry
}

// registryEntry pairs the engine of a key with its optional assessor.
type registryEntry struct {
	mu       sync.Mutex
	eng      *engine.Engine
	assessor *engine.Assessor
}

// RegistryOption configures an EngineRegistry.
type RegistryOption func(*EngineRegistry)

// WithAssessment gives every engine an assessor that adds confidence and a
// decision to its outputs.
func WithAssessment(a engine.AssessmentParams) RegistryOption {
	return func(r *EngineRegistry) {
		r.assessment = &a
	}
}

// NewEngineRegistry returns an empty registry. params must already be valid.
func NewEngineRegistry(params engine.Params, opts ...RegistryOption) *EngineRegistry {
	r := &EngineRegistry{
		params:  params,
		entries: make(map[string]*registryEntry),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Process applies snap to the engine of its market and returns the new output.
func (r *EngineRegistry) Process(snap *models.Snapshot) (*models.Output, error) {
	if snap == nil {
		return nil, engine.ErrNilSnapshot
	}
	ent, err := r.entry(snap)
	if err != nil {
		return nil, err
	}
	ent.mu.Lock()
	defer ent.mu.Unlock()
	elapsed, err := ent.eng.Advance(snap)
	if err != nil {
		return nil, err
	}
	if ent.assessor != nil {
		ent.assessor.Observe(ent.eng.State(), elapsed)
	}
	return ent.output(), nil
}

func (e *registryEntry) output() *models.Output {
	out := e.eng.Output()
	if e.assessor != nil {
		e.assessor.Annotate(out, e.eng.State())
	}
	return out
}

func (r *EngineRegistry) entry(snap *models.Snapshot) (*registryEntry, error) {
	key := snap.Key()

	r.mu.RLock()
	ent, ok := r.entries[key]
	r.mu.RUnlock()
	if ok {
		return ent, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if ent, ok := r.entries[key]; ok {
		return ent, nil
	}
	eng, err := engine.New(snap, r.params)
	if err != nil {
		return nil, err
	}
	ent = &registryEntry{eng: eng}
	if r.assessment != nil {
		ent.assessor = engine.NewAssessor(*r.assessment)
	}
	r.entries[key] = ent
	return ent, nil
}

// Output returns the current output of a key without advancing it.
func (r *EngineRegistry) Output(marketID, asset string) (*models.Output, bool) {
	r.mu.RLock()
	ent, ok := r.entries[models.MarketKey(marketID, asset)]
	r.mu.RUnlock()
	if !ok {
		return nil, false
	}
	ent.mu.Lock()
	defer ent.mu.Unlock()
	return ent.output(), true
}

// Len returns the number of registered keys.
func (r *EngineRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// Keys lists the registered keys in sorted order.
func (r *EngineRegistry) Keys() []string {
	r.mu.RLock()
	keys := make([]string, 0, len(r.entries))
	for k := range r.entries {
		keys = append(keys, k)
	}
	r.mu.RUnlock()
	sort.Strings(keys)
	return keys
}
