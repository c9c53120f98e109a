package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// LLMMetrics records completion/embedding provider calls and menu fallbacks.
type LLMMetrics interface {
	RecordCall(ctx context.Context, operation, outcome string, duration time.Duration)
	RecordMenuFallback(ctx context.Context, reason string)
}

type llmMetrics struct {
	calls     metric.Int64Counter
	duration  metric.Float64Histogram
	fallbacks metric.Int64Counter
}

// NewLLMMetrics creates LLMMetrics. Returns (nil, nil) when meter is nil (metrics disabled).
func NewLLMMetrics(meter metric.Meter) (LLMMetrics, error) {
	if meter == nil {
		//nolint:nilnil // intentional: callers use "if metrics != nil" when metrics disabled
		return nil, nil
	}

	calls, err := meter.Int64Counter(
		MetricNameLLMCalls,
		metric.WithDescription("Provider calls by operation (menu_generation, answer, embedding) and outcome"),
	)
	if err != nil {
		return nil, fmt.Errorf("create llm calls counter: %w", err)
	}

	duration, err := meter.Float64Histogram(
		MetricNameLLMDuration,
		metric.WithDescription("Provider call duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("create llm duration histogram: %w", err)
	}

	fallbacks, err := meter.Int64Counter(
		MetricNameMenuFallbacks,
		metric.WithDescription("Live menu requests served from the static menu, by reason"),
	)
	if err != nil {
		return nil, fmt.Errorf("create menu fallbacks counter: %w", err)
	}

	return &llmMetrics{calls: calls, duration: duration, fallbacks: fallbacks}, nil
}

func (m *llmMetrics) RecordCall(ctx context.Context, operation, outcome string, duration time.Duration) {
	attrs := metric.WithAttributes(
		attribute.String(AttrOperation, NormalizeReason(operation, AllowedOperations)),
		attribute.String(AttrOutcome, NormalizeReason(outcome, AllowedOutcomes)),
	)
	m.calls.Add(ctx, 1, attrs)
	m.duration.Record(ctx, duration.Seconds(), attrs)
}

func (m *llmMetrics) RecordMenuFallback(ctx context.Context, reason string) {
	m.fallbacks.Add(ctx, 1, metric.WithAttributes(
		attribute.String(AttrReason, NormalizeReason(reason, AllowedFallbackReasons)),
	))
}
