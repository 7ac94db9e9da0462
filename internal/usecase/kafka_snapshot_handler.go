package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"YieldScope/internal/domain/models"
	domrepo "YieldScope/internal/domain/repository"
	pkgkafka "YieldScope/pkg/kafka"
)

// SnapshotSink is the entry point snapshots are handed to.
type SnapshotSink interface {
	Process(ctx context.Context, snap *models.Snapshot) error
}

// KafkaSnapshotHandler feeds snapshots published by external producers
// into the same path as the on-chain indexer.
type KafkaSnapshotHandler struct {
	topic   string
	next    SnapshotSink
	metrics domrepo.Metrics
}

// NewKafkaSnapshotHandler decodes snapshots consumed from topic and hands them to next.
func NewKafkaSnapshotHandler(topic string, next SnapshotSink, metrics domrepo.Metrics) *KafkaSnapshotHandler {
	return &KafkaSnapshotHandler{topic: topic, next: next, metrics: metrics}
}

func (h *KafkaSnapshotHandler) Topic() string { return h.topic }

// Handle decodes a JSON snapshot. Timestamps in milliseconds are accepted.
func (h *KafkaSnapshotHandler) Handle(ctx context.Context, b []byte) error {
	var snap models.Snapshot
	if err := json.Unmarshal(b, &snap); err != nil {
		h.metrics.RecordError("consumer_unmarshal")
		return fmt.Errorf("decode snapshot: %w", err)
	}
	if snap.Timestamp > 1e11 {
		snap.Timestamp /= 1000
	}
	h.metrics.RecordLatency("ingest_e2e", time.Since(time.Unix(snap.Timestamp, 0)).Seconds())

	if err := h.next.Process(ctx, &snap); err != nil {
		h.metrics.RecordError("consumer_process")
		return err
	}
	return nil
}

var _ pkgkafka.MessageHandler = (*KafkaSnapshotHandler)(nil)
