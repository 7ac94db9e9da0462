package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captureProducer struct {
	topic string
	key   []byte
	value interface{}
}

func (p *captureProducer) Publish(_ context.Context, topic string, key []byte, value interface{}) error {
	p.topic, p.key, p.value = topic, key, value
	return nil
}

func TestKafkaOutputPublisher(t *testing.T) {
	prod := &captureProducer{}
	pub := NewKafkaOutputPublisher(prod, "yieldscope.outputs")

	out := output("aave-v3-arbitrum", "USDT", 10, 3)
	require.NoError(t, pub.Write(context.Background(), out))

	assert.Equal(t, "kafka", pub.Name())
	assert.Equal(t, "yieldscope.outputs", prod.topic)
	assert.Equal(t, "aave-v3-arbitrum/USDT", string(prod.key))
	assert.Same(t, out, prod.value)
	assert.NoError(t, pub.Close())
}
