package service

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/tablebite/ordering/internal/observability"
)

// BrokerPublisher sends a serialized event to a message broker.
// Implemented by messaging.RabbitMQPublisher.
type BrokerPublisher interface {
	Publish(ctx context.Context, routingKey, messageID string, body []byte) error
}

// OrderEventsProvider forwards events to the kitchen exchange using the event type's routing key.
type OrderEventsProvider struct {
	publisher BrokerPublisher
	metrics   observability.EventMetrics
}

// NewOrderEventsProvider creates the provider. metrics may be nil.
func NewOrderEventsProvider(publisher BrokerPublisher, metrics observability.EventMetrics) *OrderEventsProvider {
	return &OrderEventsProvider{publisher: publisher, metrics: metrics}
}

// PublishEvent serializes event and publishes it. Failures are logged and counted, never returned.
func (p *OrderEventsProvider) PublishEvent(ctx context.Context, event Event) {
	routingKey := event.Type.RoutingKey()
	if routingKey == "" {
		slog.Debug("order events: skip, no routing key", "event_id", event.ID)

		return
	}

	body, err := json.Marshal(event)
	if err != nil {
		slog.Error("order events: marshal failed", "event_id", event.ID, "error", err)
		p.record(ctx, event, observability.OutcomeError)

		return
	}

	if err := p.publisher.Publish(ctx, routingKey, event.ID.String(), body); err != nil {
		slog.Error("order events: publish failed",
			"event_id", event.ID,
			"routing_key", routingKey,
			"error", err,
		)
		p.record(ctx, event, observability.OutcomeError)

		return
	}

	slog.Info("order events: published", "event_id", event.ID, "routing_key", routingKey)
	p.record(ctx, event, observability.OutcomeSuccess)
}

func (p *OrderEventsProvider) record(ctx context.Context, event Event, outcome string) {
	if p.metrics != nil {
		p.metrics.RecordEventPublished(ctx, event.Type.String(), outcome)
	}
}
