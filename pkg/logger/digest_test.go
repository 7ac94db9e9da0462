package logger

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturePublisher struct {
	mu      sync.Mutex
	topic   string
	batches [][]DigestEntry
}

func (p *capturePublisher) PublishMessage(_ context.Context, topic string, payload interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.topic = topic
	p.batches = append(p.batches, payload.([]DigestEntry))
	return nil
}

func TestDigestFoldsRepeatedEvents(t *testing.T) {
	pub := &capturePublisher{}
	l := Nop()
	l.AttachDigest(&DigestConfig{Interval: time.Hour, MaxUnique: 100, Topic: "logs", Publisher: pub})

	for i := 0; i < 3; i++ {
		l.Warn("rpc unreachable", String("chain", "ETHEREUM"))
	}
	l.Error("store failed", Error(errors.New("boom")))
	l.Info("ignored")
	l.Close()

	pub.mu.Lock()
	defer pub.mu.Unlock()
	require.Len(t, pub.batches, 1)
	assert.Equal(t, "logs", pub.topic)

	counts := map[string]int{}
	for _, e := range pub.batches[0] {
		counts[e.Message] = e.Count
	}
	assert.Equal(t, map[string]int{"rpc unreachable": 3, "store failed": 1}, counts)
}

func TestWithCarriesFields(t *testing.T) {
	l := Nop().With(String("chain", "POLYGON"))
	require.NotNil(t, l)
	l.Info("head", Uint64("block", 10), Float64("yield", 4.2))
}
