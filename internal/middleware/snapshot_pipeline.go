package middleware

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"YieldScope/internal/domain/models"
	domrepo "YieldScope/internal/domain/repository"
	"YieldScope/internal/engine"
	"YieldScope/internal/service/ratelimit"
)

// MaxAbsYield caps reported yields, in percent.
const MaxAbsYield = 10_000

var ErrInvalidSnapshot = errors.New("invalid snapshot")

// DefaultMaxAttempts bounds how often a snapshot is handed to the processor.
const DefaultMaxAttempts = 5

// Proc is the minimal processor interface the pipeline needs.
type Proc interface {
	Process(ctx context.Context, snap *models.Snapshot) error
}

// SnapshotPipeline sits between the snapshot producers and the processor.
// It validates and sanitizes snapshots, throttles each market and buffers
// snapshots while the processor is failing.
type SnapshotPipeline struct {
	proc        Proc
	metrics     domrepo.Metrics
	maxAbs      float64
	limiter     *ratelimit.Limiter
	bufSize     int
	maxAttempts int
	bufCh       chan pending
	stopCh   chan struct{}
	started  bool
	mu       sync.Mutex
	retryMin time.Duration
	retryMax time.Duration
}

// pending is a snapshot waiting for retry with the attempts made so far.
type pending struct {
	snap     *models.Snapshot
	attempts int
}

// PipelineOption configures a SnapshotPipeline.
type PipelineOption func(*SnapshotPipeline)

// WithMarketRate limits accepted snapshots per market key per second. 0 disables it.
func WithMarketRate(perSecond float64) PipelineOption {
	return func(p *SnapshotPipeline) {
		p.limiter = ratelimit.PerSecond(perSecond, 1)
	}
}

// WithBufferSize sets how many failed snapshots are kept for retry.
func WithBufferSize(n int) PipelineOption {
	return func(p *SnapshotPipeline) {
		if n > 0 {
			p.bufSize = n
		}
	}
}

// WithMaxAttempts caps how often one snapshot is processed, the first try
// included, before it is dropped.
func WithMaxAttempts(n int) PipelineOption {
	return func(p *SnapshotPipeline) {
		if n > 0 {
			p.maxAttempts = n
		}
	}
}

// WithMaxAbsYield overrides the yield cap.
func WithMaxAbsYield(v float64) PipelineOption {
	return func(p *SnapshotPipeline) {
		if v > 0 {
			p.maxAbs = v
		}
	}
}

// WithRetryBackoff sets the flush backoff bounds.
func WithRetryBackoff(min, max time.Duration) PipelineOption {
	return func(p *SnapshotPipeline) {
		if min > 0 {
			p.retryMin = min
		}
		if max >= p.retryMin {
			p.retryMax = max
		}
	}
}

// NewSnapshotPipeline wraps proc. Call Start to enable retries of failed snapshots.
func NewSnapshotPipeline(proc Proc, metrics domrepo.Metrics, opts ...PipelineOption) *SnapshotPipeline {
	p := &SnapshotPipeline{
		proc:        proc,
		metrics:     metrics,
		maxAbs:      MaxAbsYield,
		limiter:     ratelimit.New(0, 1),
		bufSize:     1000,
		maxAttempts: DefaultMaxAttempts,
		stopCh:      make(chan struct{}),
		retryMin:    50 * time.Millisecond,
		retryMax:    2 * time.Second,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.bufCh = make(chan pending, p.bufSize)
	return p
}

// Start launches the background flush of buffered snapshots.
func (p *SnapshotPipeline) Start(ctx context.Context) {
	p.mu.Lock()
	if p.started {
		p.mu.Unlock()
		return
	}
	p.started = true
	p.mu.Unlock()

	go p.flush(ctx)
}

func (p *SnapshotPipeline) flush(ctx context.Context) {
	backoff := p.retryMin
	for {
		select {
		case <-ctx.Done():
			return
		case <-p.stopCh:
			return
		case item := <-p.bufCh:
			err := p.proc.Process(ctx, item.snap)
			if err == nil {
				backoff = p.retryMin
				continue
			}
			p.metrics.RecordError("pipeline_flush")
			item.attempts++
			if !p.retry(item, err) {
				continue
			}
			if backoff < p.retryMax {
				backoff *= 2
			}
			select {
			case <-time.After(backoff):
			case <-p.stopCh:
				return
			}
			p.enqueue(item)
		}
	}
}

// Stop stops the background flush. Buffered snapshots are dropped.
func (p *SnapshotPipeline) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.started {
		return
	}
	p.started = false
	close(p.stopCh)
}

// Buffered returns the number of snapshots waiting for retry.
func (p *SnapshotPipeline) Buffered() int { return len(p.bufCh) }

// Process validates, throttles and forwards a snapshot. A snapshot the
// processor rejects is buffered for retry, unless the error is permanent,
// and the error returned.
func (p *SnapshotPipeline) Process(ctx context.Context, snap *models.Snapshot) error {
	start := time.Now()
	s, err := p.sanitize(snap)
	if err != nil {
		p.metrics.RecordError("pipeline_validate")
		return err
	}
	if !p.limiter.Allow(s.Key()) {
		p.metrics.RecordError("pipeline_throttle")
		return nil
	}
	if err := p.proc.Process(ctx, s); err != nil {
		p.metrics.RecordError("pipeline_process")
		if item := (pending{snap: s, attempts: 1}); p.retry(item, err) {
			p.enqueue(item)
		}
		return fmt.Errorf("pipeline downstream: %w", err)
	}
	p.metrics.RecordLatency("pipeline_process", time.Since(start).Seconds())
	return nil
}

// retry reports whether item should go back to the buffer after err.
// Snapshots the engine can never accept and snapshots out of attempts are
// dropped and counted.
func (p *SnapshotPipeline) retry(item pending, err error) bool {
	if permanent(err) {
		p.metrics.RecordError("pipeline_rejected")
		return false
	}
	if item.attempts >= p.maxAttempts {
		p.metrics.RecordError("pipeline_dropped")
		return false
	}
	return true
}

func permanent(err error) bool {
	return errors.Is(err, engine.ErrNilSnapshot) ||
		errors.Is(err, engine.ErrMissingMarketID) ||
		errors.Is(err, engine.ErrMarketMismatch)
}

func (p *SnapshotPipeline) enqueue(item pending) {
	select {
	case p.bufCh <- item:
	default:
		p.metrics.RecordError("pipeline_buffer_full")
	}
}

// sanitize returns a copy of snap with the yield capped and negative
// liquidity floored. Non-finite values are passed on for the engine to skip.
func (p *SnapshotPipeline) sanitize(snap *models.Snapshot) (*models.Snapshot, error) {
	if snap == nil {
		return nil, fmt.Errorf("%w: nil", ErrInvalidSnapshot)
	}
	if snap.MarketID == "" || snap.Asset == "" {
		return nil, fmt.Errorf("%w: market id and asset are required", ErrInvalidSnapshot)
	}
	if snap.Timestamp <= 0 {
		return nil, fmt.Errorf("%w: timestamp %d", ErrInvalidSnapshot, snap.Timestamp)
	}
	s := *snap
	if !math.IsNaN(s.RawYield) && !math.IsInf(s.RawYield, 0) {
		s.RawYield = math.Max(-p.maxAbs, math.Min(p.maxAbs, s.RawYield))
	}
	if s.Liquidity < 0 {
		s.Liquidity = 0
	}
	return &s, nil
}
