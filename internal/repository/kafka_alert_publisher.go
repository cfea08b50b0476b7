package repository

import (
	"context"
	"fmt"

	"RegimePulse/internal/domain/models"
	pkgkafka "RegimePulse/pkg/kafka"
)

// KafkaAlertPublisher fans alert events out on a Kafka topic. Messages
// are keyed by alert type so consumers can partition by severity.
type KafkaAlertPublisher struct {
	producer *pkgkafka.Producer
	topic    string
}

// NewKafkaAlertPublisher creates a Kafka-backed AlertPublisher.
func NewKafkaAlertPublisher(producer *pkgkafka.Producer, topic string) *KafkaAlertPublisher {
	return &KafkaAlertPublisher{producer: producer, topic: topic}
}

func (p *KafkaAlertPublisher) Publish(ctx context.Context, ev *models.AlertEvent) error {
	if err := p.producer.Publish(ctx, p.topic, []byte(ev.Type), ev); err != nil {
		return fmt.Errorf("publish alert %s: %w", ev.ID, err)
	}
	return nil
}

func (p *KafkaAlertPublisher) Close() error {
	return p.producer.Close()
}
