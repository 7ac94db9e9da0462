package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"YieldScope/internal/domain/models"
	drepo "YieldScope/internal/domain/repository"
	"YieldScope/internal/service/ratelimit"
	xlogger "YieldScope/pkg/logger"
)

var (
	ErrNoChains          = errors.New("no chains configured")
	ErrNoReachableChains = errors.New("no chain rpc reachable")
)

// ChainIndexer pairs the block feed of a chain with the reader that turns
// a block into snapshots.
type ChainIndexer struct {
	Chain     string
	Blocks    drepo.BlockSource
	Snapshots drepo.SnapshotSource
}

// BlockCollector follows new blocks on every reachable chain and feeds the
// snapshots read at each block into the pipeline.
type BlockCollector struct {
	indexers     []ChainIndexer
	sink         SnapshotSink
	metrics      drepo.Metrics
	logger       *xlogger.Logger
	throttle     *ratelimit.Limiter
	startupDelay time.Duration
	fetchTimeout time.Duration

	mu     sync.Mutex
	active []string
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// CollectorOption configures a BlockCollector.
type CollectorOption func(*BlockCollector)

// WithBlockThrottle drops blocks arriving within d of the last handled
// block of the same chain. 0 handles every block.
func WithBlockThrottle(d time.Duration) CollectorOption {
	return func(c *BlockCollector) { c.throttle = ratelimit.New(d, 1) }
}

// WithStartupDelay spaces the startup RPC checks.
func WithStartupDelay(d time.Duration) CollectorOption {
	return func(c *BlockCollector) { c.startupDelay = d }
}

func WithFetchTimeout(d time.Duration) CollectorOption {
	return func(c *BlockCollector) {
		if d > 0 {
			c.fetchTimeout = d
		}
	}
}

// NewBlockCollector fans the blocks of every indexer into sink. Nothing runs until Start.
func NewBlockCollector(indexers []ChainIndexer, sink SnapshotSink, metrics drepo.Metrics, logger *xlogger.Logger, opts ...CollectorOption) *BlockCollector {
	c := &BlockCollector{
		indexers:     indexers,
		sink:         sink,
		metrics:      metrics,
		logger:       logger,
		throttle:     ratelimit.New(0, 1),
		fetchTimeout: 20 * time.Second,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Start checks every chain RPC, skipping unreachable ones, and begins
// following heads on the rest.
func (c *BlockCollector) Start(ctx context.Context) error {
	if len(c.indexers) == 0 {
		return ErrNoChains
	}

	var verified []ChainIndexer
	for i, ix := range c.indexers {
		if i > 0 && c.startupDelay > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(c.startupDelay):
			}
		}
		n, err := ix.Blocks.BlockNumber(ctx)
		if err != nil {
			c.metrics.RecordError("rpc_unreachable")
			c.logger.Warn("rpc unreachable, skipping chain",
				xlogger.String("chain", ix.Chain),
				xlogger.Error(err))
			continue
		}
		c.logger.Info("chain rpc verified",
			xlogger.String("chain", ix.Chain),
			xlogger.Uint64("block", n))
		verified = append(verified, ix)
	}
	if len(verified) == 0 {
		return ErrNoReachableChains
	}

	runCtx, cancel := context.WithCancel(context.Background())
	c.mu.Lock()
	c.cancel = cancel
	c.active = c.active[:0]
	for _, ix := range verified {
		c.active = append(c.active, ix.Chain)
		c.wg.Add(1)
		go c.follow(runCtx, ix)
	}
	c.mu.Unlock()
	return nil
}

// Active lists the chains being followed.
func (c *BlockCollector) Active() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.active...)
}

func (c *BlockCollector) follow(ctx context.Context, ix ChainIndexer) {
	defer c.wg.Done()
	heads, errs := ix.Blocks.Heads(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			c.metrics.RecordError("heads")
			c.logger.Warn("block feed error", xlogger.String("chain", ix.Chain), xlogger.Error(err))
		case b, ok := <-heads:
			if !ok {
				return
			}
			c.handleBlock(ctx, ix, b)
		}
	}
}

func (c *BlockCollector) handleBlock(ctx context.Context, ix ChainIndexer, b *models.Block) {
	if !c.throttle.Allow(ix.Chain) {
		c.logger.Debug("block throttled", xlogger.String("chain", ix.Chain), xlogger.Uint64("block", b.Number))
		return
	}

	start := time.Now()
	fctx, cancel := context.WithTimeout(ctx, c.fetchTimeout)
	snaps, err := ix.Snapshots.Fetch(fctx, b)
	cancel()
	if err != nil {
		c.metrics.RecordError("fetch")
		c.logger.Warn("fetch snapshots",
			xlogger.String("chain", ix.Chain),
			xlogger.Uint64("block", b.Number),
			xlogger.Error(err))
		return
	}
	c.metrics.RecordLatency("fetch", time.Since(start).Seconds())

	for _, s := range snaps {
		if err := c.sink.Process(ctx, s); err != nil {
			c.logger.Warn("snapshot rejected",
				xlogger.String("chain", ix.Chain),
				xlogger.String("market_id", s.MarketID),
				xlogger.String("asset", s.Asset),
				xlogger.Error(err))
		}
	}
}

// Shutdown stops following heads and closes the block sources.
func (c *BlockCollector) Shutdown(ctx context.Context) error {
	c.mu.Lock()
	cancel := c.cancel
	c.mu.Unlock()
	if cancel != nil {
		cancel()
	}

	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()
	var err error
	select {
	case <-done:
	case <-ctx.Done():
		err = fmt.Errorf("collector shutdown: %w", ctx.Err())
	}

	for _, ix := range c.indexers {
		if cerr := ix.Blocks.Close(); cerr != nil {
			c.logger.Warn("close block source", xlogger.String("chain", ix.Chain), xlogger.Error(cerr))
		}
	}
	return err
}
