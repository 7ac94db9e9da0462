package usecase

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKafkaSnapshotHandler(t *testing.T) {
	sink := &recordingSink{}
	m := newFakeMetrics()
	h := NewKafkaSnapshotHandler("yieldscope.snapshots", sink, m)
	assert.Equal(t, "yieldscope.snapshots", h.Topic())

	payload := `{"marketId":"aave-v3-polygon","protocol":"Aave","chain":"POLYGON","asset":"USDC","rawYield":4.1,"liquidity":1200000,"timestamp":1700000000123}`
	require.NoError(t, h.Handle(context.Background(), []byte(payload)))
	require.Equal(t, 1, sink.count())
	s := sink.snaps[0]
	assert.Equal(t, int64(1_700_000_000), s.Timestamp)
	assert.Equal(t, 4.1, s.RawYield)
	assert.Equal(t, "USDC", s.Asset)

	assert.Error(t, h.Handle(context.Background(), []byte("{")))
	assert.Equal(t, 1, m.errorCount("consumer_unmarshal"))
}
