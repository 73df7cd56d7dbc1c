package kafka

import (
	"context"
	"encoding/json"
	"fmt"

	"neosocial/internal/models"
)

// EventPublisher writes domain events as JSON to a single topic. Messages are
// keyed by target id so events about one user or group stay ordered.
type EventPublisher struct {
	producer MessageProducer
	topic    string
}

// NewEventPublisher creates an EventPublisher on top of producer.
func NewEventPublisher(producer MessageProducer, topic string) *EventPublisher {
	return &EventPublisher{producer: producer, topic: topic}
}

// Publish serialises event and sends it.
func (p *EventPublisher) Publish(ctx context.Context, event models.DomainEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal %s event: %w", event.Type, err)
	}
	if err := p.producer.SendMessage(ctx, p.topic, []byte(event.TargetID), payload); err != nil {
		return fmt.Errorf("failed to publish %s event: %w", event.Type, err)
	}
	return nil
}
