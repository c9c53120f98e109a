package observability

import (
	"fmt"

	"go.opentelemetry.io/otel/metric"
)

// Metrics holds all metric collectors. When metrics are disabled the App keeps a nil *Metrics
// and components receive nil interfaces, which they already handle.
type Metrics struct {
	HTTP   HTTPMetrics
	LLM    LLMMetrics
	Cache  CacheMetrics
	Events EventMetrics
}

// NewMetrics creates every collector from the given meter.
// Returns (nil, nil) when meter is nil (metrics disabled).
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	if meter == nil {
		//nolint:nilnil // intentional: callers use "if metrics != nil" when metrics disabled
		return nil, nil
	}

	httpMetrics, err := NewHTTPMetrics(meter)
	if err != nil {
		return nil, fmt.Errorf("http metrics: %w", err)
	}

	llm, err := NewLLMMetrics(meter)
	if err != nil {
		return nil, fmt.Errorf("llm metrics: %w", err)
	}

	cache, err := NewCacheMetrics(meter)
	if err != nil {
		return nil, fmt.Errorf("cache metrics: %w", err)
	}

	events, err := NewEventMetrics(meter)
	if err != nil {
		return nil, fmt.Errorf("event metrics: %w", err)
	}

	return &Metrics{
		HTTP:   httpMetrics,
		LLM:    llm,
		Cache:  cache,
		Events: events,
	}, nil
}
