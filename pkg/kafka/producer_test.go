package kafka

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProducerConfigOptions(t *testing.T) {
	cfg := defaultProducerConfig()
	for _, opt := range []ProducerOption{
		WithBrokers([]string{"localhost:9092"}),
		WithBatchBytes(4096),
		WithBatchSize(0),
		WithTimeouts(3*time.Second, 0),
		WithHashByKey(true),
	} {
		opt(cfg)
	}
	require.NoError(t, cfg.validate())
	assert.Equal(t, int64(4096), cfg.BatchBytes)
	assert.Equal(t, 100, cfg.BatchSize)
	assert.Equal(t, 3*time.Second, cfg.WriteTimeout)
	assert.Equal(t, 10*time.Second, cfg.ReadTimeout)
	assert.True(t, cfg.HashByKey)
}

func TestNewProducerAppliesBatchBytes(t *testing.T) {
	p, err := NewProducer(WithBrokers([]string{"localhost:9092"}), WithBatchBytes(2048))
	require.NoError(t, err)
	defer p.Close()
	assert.Equal(t, int64(2048), p.writer.BatchBytes)
}

func TestNewProducerRejectsBadConfig(t *testing.T) {
	_, err := NewProducer()
	assert.Error(t, err)

	_, err = NewProducer(WithBrokers([]string{"localhost:9092"}), WithRequiredAcks(2))
	assert.Error(t, err)
}
