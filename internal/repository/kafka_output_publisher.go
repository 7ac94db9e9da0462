package repository

import (
	"context"

	"YieldScope/internal/domain/models"
	drepo "YieldScope/internal/domain/repository"
	pkgkafka "YieldScope/pkg/kafka"
)

// Producer is the part of pkg/kafka.Producer the publisher needs.
type Producer interface {
	Publish(ctx context.Context, topic string, key []byte, value interface{}) error
}

// KafkaOutputPublisher publishes every output keyed by market so a
// partition sees one market in order.
type KafkaOutputPublisher struct {
	producer Producer
	topic    string
}

func NewKafkaOutputPublisher(producer Producer, topic string) *KafkaOutputPublisher {
	return &KafkaOutputPublisher{producer: producer, topic: topic}
}

func (p *KafkaOutputPublisher) Name() string { return "kafka" }

func (p *KafkaOutputPublisher) Write(ctx context.Context, out *models.Output) error {
	return p.producer.Publish(ctx, p.topic, []byte(out.MarketID+"/"+out.Asset), out)
}

// Close is a no-op; the producer is shared and closed by its owner.
func (p *KafkaOutputPublisher) Close() error { return nil }

var (
	_ drepo.OutputSink = (*KafkaOutputPublisher)(nil)
	_ Producer         = (*pkgkafka.Producer)(nil)
)
