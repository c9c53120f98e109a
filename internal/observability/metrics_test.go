package observability

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func TestNormalizeReason(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		allowed  map[string]bool
		expected string
	}{
		{"known fallback", "timeout", AllowedFallbackReasons, "timeout"},
		{"unknown fallback", "rate_limited", AllowedFallbackReasons, "other"},
		{"known operation", "answer", AllowedOperations, "answer"},
		{"empty", "", AllowedOutcomes, "other"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeReason(tt.input, tt.allowed))
		})
	}
}

func TestNormalizeEventType(t *testing.T) {
	assert.Equal(t, "order.created", NormalizeEventType("order.created"))
	assert.Equal(t, "unknown", NormalizeEventType("order.deleted"))
	assert.Equal(t, "unknown", NormalizeEventType(""))
}

func TestNewMetrics_nilMeter(t *testing.T) {
	m, err := NewMetrics(nil)
	require.NoError(t, err)
	assert.Nil(t, m)
}

// sumInt64 adds the data points of the named counter whose attributes contain want.
func sumInt64(t *testing.T, rm metricdata.ResourceMetrics, name string, want ...attribute.KeyValue) int64 {
	t.Helper()

	var total int64

	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}

			sum, ok := m.Data.(metricdata.Sum[int64])
			require.True(t, ok, "metric %s is not an int64 sum", name)

			for _, dp := range sum.DataPoints {
				match := true

				for _, kv := range want {
					v, found := dp.Attributes.Value(kv.Key)
					if !found || v.Emit() != kv.Value.Emit() {
						match = false

						break
					}
				}

				if match {
					total += dp.Value
				}
			}
		}
	}

	return total
}

func TestMetrics_record(t *testing.T) {
	ctx := context.Background()
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	t.Cleanup(func() { _ = provider.Shutdown(ctx) })

	m, err := NewMetrics(provider.Meter(MeterScope))
	require.NoError(t, err)
	require.NotNil(t, m)

	m.LLM.RecordCall(ctx, OperationAnswer, OutcomeSuccess, 120*time.Millisecond)
	m.LLM.RecordCall(ctx, OperationAnswer, "exploded", time.Second)
	m.LLM.RecordMenuFallback(ctx, "timeout")
	m.Cache.RecordHit(ctx, "query_embedding")
	m.Cache.RecordMiss(ctx, "something_else")
	m.Events.RecordEventDropped(ctx, "order.created")
	m.HTTP.RecordRequest(ctx, "GET", "/api/menu", "2xx", 5*time.Millisecond)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))

	assert.Equal(t, int64(1), sumInt64(t, rm, MetricNameLLMCalls,
		attribute.String(AttrOperation, OperationAnswer), attribute.String(AttrOutcome, OutcomeSuccess)))
	assert.Equal(t, int64(1), sumInt64(t, rm, MetricNameLLMCalls,
		attribute.String(AttrOutcome, "other")))
	assert.Equal(t, int64(1), sumInt64(t, rm, MetricNameMenuFallbacks,
		attribute.String(AttrReason, "timeout")))
	assert.Equal(t, int64(1), sumInt64(t, rm, MetricNameCacheHits,
		attribute.String(AttrCache, "query_embedding")))
	assert.Equal(t, int64(1), sumInt64(t, rm, MetricNameCacheMisses,
		attribute.String(AttrCache, "other")))
	assert.Equal(t, int64(1), sumInt64(t, rm, MetricNameEventsDropped,
		attribute.String(AttrEventType, "order.created")))
	assert.Equal(t, int64(1), sumInt64(t, rm, MetricNameHTTPRequests,
		attribute.String("route", "/api/menu")))
}
