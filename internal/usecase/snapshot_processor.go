package usecase

import (
	"context"
	"fmt"
	"time"

	"YieldScope/internal/domain/models"
	drepo "YieldScope/internal/domain/repository"
	xlogger "YieldScope/pkg/logger"
)

// SnapshotProcessor runs snapshots through the engines and fans the
// resulting outputs out to the store and sinks.
type SnapshotProcessor struct {
	registry *EngineRegistry
	store    drepo.OutputStore
	sinks    []drepo.OutputSink
	metrics  drepo.Metrics
	logger   *xlogger.Logger
}

// NewSnapshotProcessor wires the registry to the latest-output store and the best-effort sinks.
func NewSnapshotProcessor(
	registry *EngineRegistry,
	store drepo.OutputStore,
	sinks []drepo.OutputSink,
	metrics drepo.Metrics,
	logger *xlogger.Logger,
) *SnapshotProcessor {
	return &SnapshotProcessor{
		registry: registry,
		store:    store,
		sinks:    sinks,
		metrics:  metrics,
		logger:   logger,
	}
}

// Process handles one snapshot. Only engine and store failures are
// returned; sink failures are logged and counted.
func (p *SnapshotProcessor) Process(ctx context.Context, snap *models.Snapshot) error {
	if snap == nil {
		return fmt.Errorf("snapshot is nil")
	}
	start := time.Now()

	out, err := p.registry.Process(snap)
	if err != nil {
		p.metrics.RecordError("engine")
		return fmt.Errorf("process snapshot %s/%s: %w", snap.MarketID, snap.Asset, err)
	}

	if err := p.store.Put(ctx, out); err != nil {
		p.metrics.RecordError("store")
		return fmt.Errorf("store output %s/%s: %w", out.MarketID, out.Asset, err)
	}

	for _, s := range p.sinks {
		if err := s.Write(ctx, out); err != nil {
			p.metrics.RecordError("sink_" + s.Name())
			p.logger.Warn("output sink failed",
				xlogger.String("sink", s.Name()),
				xlogger.String("market_id", out.MarketID),
				xlogger.String("asset", out.Asset),
				xlogger.Error(err),
			)
		}
	}

	p.metrics.RecordSnapshot(snap.Chain, snap.MarketID, snap.Asset)
	p.metrics.RecordOutput(out)
	p.metrics.RecordLatency("process", time.Since(start).Seconds())
	return nil
}

// Registry exposes the engines for diagnostics.
func (p *SnapshotProcessor) Registry() *EngineRegistry { return p.registry }

// Close closes all sinks.
func (p *SnapshotProcessor) Close() {
	for _, s := range p.sinks {
		if err := s.Close(); err != nil {
			p.logger.Warn("close sink", xlogger.String("sink", s.Name()), xlogger.Error(err))
		}
	}
}
