package observability

import (
	"context"
	"fmt"
	"sync/atomic"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// EventMetrics records order-event publisher metrics.
type EventMetrics interface {
	RecordEventDropped(ctx context.Context, eventType string)
	RecordEventPublished(ctx context.Context, eventType, outcome string)
	SetChannelDepth(depth int)
}

type eventMetrics struct {
	dropped      metric.Int64Counter
	published    metric.Int64Counter
	channelDepth atomic.Int64
}

// NewEventMetrics creates EventMetrics and registers the channel depth gauge.
// Returns (nil, nil) when meter is nil (metrics disabled).
func NewEventMetrics(meter metric.Meter) (EventMetrics, error) {
	if meter == nil {
		//nolint:nilnil // intentional: callers use "if metrics != nil" when metrics disabled
		return nil, nil
	}

	dropped, err := meter.Int64Counter(
		MetricNameEventsDropped,
		metric.WithDescription("Events dropped because the publisher channel was full"),
	)
	if err != nil {
		return nil, fmt.Errorf("create events dropped counter: %w", err)
	}

	published, err := meter.Int64Counter(
		MetricNameEventsPublished,
		metric.WithDescription("Events handed to the broker, by outcome"),
	)
	if err != nil {
		return nil, fmt.Errorf("create events published counter: %w", err)
	}

	m := &eventMetrics{dropped: dropped, published: published}

	_, err = meter.Int64ObservableGauge(
		MetricNameEventChannelDepth,
		metric.WithDescription("Events waiting in the publisher channel"),
		metric.WithInt64Callback(func(_ context.Context, o metric.Int64Observer) error {
			o.Observe(m.channelDepth.Load())

			return nil
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("create event channel depth gauge: %w", err)
	}

	return m, nil
}

func (m *eventMetrics) RecordEventDropped(ctx context.Context, eventType string) {
	m.dropped.Add(ctx, 1, metric.WithAttributes(attribute.String(AttrEventType, NormalizeEventType(eventType))))
}

func (m *eventMetrics) RecordEventPublished(ctx context.Context, eventType, outcome string) {
	m.published.Add(ctx, 1, metric.WithAttributes(
		attribute.String(AttrEventType, NormalizeEventType(eventType)),
		attribute.String(AttrOutcome, NormalizeReason(outcome, AllowedOutcomes)),
	))
}

func (m *eventMetrics) SetChannelDepth(depth int) {
	m.channelDepth.Store(int64(depth))
}
