package repository

import (
	"context"
	"fmt"

	"MarketSage/internal/domain/models"
	pkgkafka "MarketSage/pkg/kafka"
)

// KafkaPublisher emits prediction lifecycle events. Keys carry the symbol so
// per-symbol ordering survives partitioning.
type KafkaPublisher struct {
	producer      *pkgkafka.Producer
	createdTopic  string
	verifiedTopic string
}

func NewKafkaPublisher(producer *pkgkafka.Producer, createdTopic, verifiedTopic string) *KafkaPublisher {
	return &KafkaPublisher{
		producer:      producer,
		createdTopic:  createdTopic,
		verifiedTopic: verifiedTopic,
	}
}

type predictionEvent struct {
	Event      string                   `json:"event"`
	Prediction *models.PredictionRecord `json:"prediction"`
}

func (p *KafkaPublisher) PublishCreated(ctx context.Context, rec *models.PredictionRecord) error {
	return p.publish(ctx, p.createdTopic, "prediction.created", rec)
}

func (p *KafkaPublisher) PublishVerified(ctx context.Context, rec *models.PredictionRecord) error {
	return p.publish(ctx, p.verifiedTopic, "prediction.verified", rec)
}

func (p *KafkaPublisher) publish(ctx context.Context, topic, event string, rec *models.PredictionRecord) error {
	if topic == "" {
		return nil
	}
	err := p.producer.Publish(ctx, topic, []byte(rec.Symbol), predictionEvent{
		Event:      event,
		Prediction: rec,
	})
	if err != nil {
		return fmt.Errorf("publish %s: %w", event, err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.producer.Close()
}

// NoopPublisher satisfies EventPublisher when no broker is configured.
type NoopPublisher struct{}

func (NoopPublisher) PublishCreated(context.Context, *models.PredictionRecord) error  { return nil }
func (NoopPublisher) PublishVerified(context.Context, *models.PredictionRecord) error { return nil }
func (NoopPublisher) Close() error                                                    { return nil }
