package repository

import (
	"context"
	"errors"
	"time"

	"YieldScope/internal/domain/models"
)

// ErrNotFound is returned by stores when a market has no output yet.
var ErrNotFound = errors.New("market not found")

// OutputStore keeps the latest output of every market.
type OutputStore interface {
	Put(ctx context.Context, out *models.Output) error
	Get(ctx context.Context, marketID, asset string) (*models.Output, error)
	All(ctx context.Context) (models.MarketIndex, error)
}

// OutputSink receives every produced output. Sinks are best effort.
type OutputSink interface {
	Name() string
	Write(ctx context.Context, out *models.Output) error
	Close() error
}

// History serves the recorded outputs of a market over a time range.
type History interface {
	Init(ctx context.Context) error
	Query(ctx context.Context, marketID, asset string, from, to time.Time, limit int) ([]*models.Output, error)
}

// BlockSource yields new block headers of one chain.
type BlockSource interface {
	BlockNumber(ctx context.Context) (uint64, error)
	Heads(ctx context.Context) (<-chan *models.Block, <-chan error)
	Close() error
}

// SnapshotSource reads market snapshots of one chain at a given block.
type SnapshotSource interface {
	Chain() string
	Fetch(ctx context.Context, block *models.Block) ([]*models.Snapshot, error)
}

// Metrics records pipeline activity. Implementations must be safe for concurrent use.
type Metrics interface {
	RecordSnapshot(chain, marketID, asset string)
	RecordOutput(out *models.Output)
	RecordError(kind string)
	RecordLatency(op string, seconds float64)
}
