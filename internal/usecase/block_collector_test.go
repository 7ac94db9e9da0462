package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"YieldScope/internal/domain/models"
	xlogger "YieldScope/pkg/logger"
)

type fakeBlocks struct {
	numberErr error
	heads     chan *models.Block
	errs      chan error
	mu        sync.Mutex
	closed    bool
}

func newFakeBlocks() *fakeBlocks {
	return &fakeBlocks{heads: make(chan *models.Block, 8), errs: make(chan error, 8)}
}

func (b *fakeBlocks) BlockNumber(context.Context) (uint64, error) {
	if b.numberErr != nil {
		return 0, b.numberErr
	}
	return 100, nil
}

func (b *fakeBlocks) Heads(context.Context) (<-chan *models.Block, <-chan error) {
	return b.heads, b.errs
}

func (b *fakeBlocks) Close() error {
	b.mu.Lock()
	b.closed = true
	b.mu.Unlock()
	return nil
}

type fakeReader struct {
	chain string
	err   error
}

func (r *fakeReader) Chain() string { return r.chain }

func (r *fakeReader) Fetch(_ context.Context, b *models.Block) ([]*models.Snapshot, error) {
	if r.err != nil {
		return nil, r.err
	}
	return []*models.Snapshot{
		snapshot("aave-v3-"+r.chain, "USDC", b.Timestamp, 4, 1e7),
		snapshot("aave-v3-"+r.chain, "USDT", b.Timestamp, 3, 1e7),
	}, nil
}

func TestCollectorRequiresChains(t *testing.T) {
	c := NewBlockCollector(nil, &recordingSink{}, newFakeMetrics(), xlogger.Nop())
	assert.ErrorIs(t, c.Start(context.Background()), ErrNoChains)
}

func TestCollectorFailsWhenNoRPCReachable(t *testing.T) {
	down := newFakeBlocks()
	down.numberErr = errors.New("dial tcp: refused")
	m := newFakeMetrics()
	c := NewBlockCollector([]ChainIndexer{{Chain: "eth", Blocks: down, Snapshots: &fakeReader{chain: "eth"}}},
		&recordingSink{}, m, xlogger.Nop())

	assert.ErrorIs(t, c.Start(context.Background()), ErrNoReachableChains)
	assert.Equal(t, 1, m.errorCount("rpc_unreachable"))
}

func TestCollectorSkipsUnreachableAndFeedsSnapshots(t *testing.T) {
	down := newFakeBlocks()
	down.numberErr = errors.New("timeout")
	up := newFakeBlocks()
	sink := &recordingSink{}

	c := NewBlockCollector([]ChainIndexer{
		{Chain: "eth", Blocks: down, Snapshots: &fakeReader{chain: "eth"}},
		{Chain: "polygon", Blocks: up, Snapshots: &fakeReader{chain: "polygon"}},
	}, sink, newFakeMetrics(), xlogger.Nop(), WithStartupDelay(time.Millisecond))

	require.NoError(t, c.Start(context.Background()))
	assert.Equal(t, []string{"polygon"}, c.Active())

	up.heads <- &models.Block{Chain: "polygon", Number: 101, Timestamp: 1_700_000_000}
	require.Eventually(t, func() bool { return sink.count() == 2 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, int64(1_700_000_000), sink.snaps[0].Timestamp)

	require.NoError(t, c.Shutdown(context.Background()))
	assert.True(t, up.closed)
	assert.True(t, down.closed)
}

func TestCollectorThrottlesBlocks(t *testing.T) {
	blocks := newFakeBlocks()
	sink := &recordingSink{}
	c := NewBlockCollector([]ChainIndexer{{Chain: "arb", Blocks: blocks, Snapshots: &fakeReader{chain: "arb"}}},
		sink, newFakeMetrics(), xlogger.Nop(), WithBlockThrottle(time.Hour))
	require.NoError(t, c.Start(context.Background()))
	defer c.Shutdown(context.Background())

	blocks.heads <- &models.Block{Number: 1, Timestamp: 10}
	blocks.heads <- &models.Block{Number: 2, Timestamp: 12}
	blocks.heads <- &models.Block{Number: 3, Timestamp: 14}

	require.Eventually(t, func() bool { return len(blocks.heads) == 0 }, time.Second, 5*time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 2, sink.count(), "only the first block of the window is read")
}

func TestCollectorSurvivesFetchAndFeedErrors(t *testing.T) {
	blocks := newFakeBlocks()
	reader := &fakeReader{chain: "op", err: errors.New("execution reverted")}
	sink := &recordingSink{err: errors.New("invalid snapshot")}
	m := newFakeMetrics()
	c := NewBlockCollector([]ChainIndexer{{Chain: "op", Blocks: blocks, Snapshots: reader}},
		sink, m, xlogger.Nop())
	require.NoError(t, c.Start(context.Background()))
	defer c.Shutdown(context.Background())

	blocks.errs <- errors.New("subscription dropped")
	blocks.heads <- &models.Block{Number: 1, Timestamp: 10}
	require.Eventually(t, func() bool {
		return m.errorCount("fetch") == 1 && m.errorCount("heads") == 1
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, 0, sink.count())
}
