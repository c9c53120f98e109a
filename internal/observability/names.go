// Package observability provides structured-log context, OpenTelemetry metrics
// (exported for Prometheus) and tracing for the ordering API.
package observability

// Metric names (Prometheus / OpenTelemetry).
const (
	MetricNameHTTPRequests        = "ordering_http_requests_total"
	MetricNameHTTPDuration        = "ordering_http_request_duration_seconds"
	MetricNameRequestBodyTooLarge = "ordering_http_request_body_too_large_total"
	MetricNameLLMCalls            = "ordering_llm_calls_total"
	MetricNameLLMDuration         = "ordering_llm_call_duration_seconds"
	MetricNameMenuFallbacks       = "ordering_menu_fallbacks_total"
	MetricNameCacheHits           = "ordering_cache_hits_total"
	MetricNameCacheMisses         = "ordering_cache_misses_total"
	MetricNameEventsDropped       = "ordering_events_dropped_total"
	MetricNameEventsPublished     = "ordering_events_published_total"
	MetricNameEventChannelDepth   = "ordering_event_channel_depth"
)

// Attribute keys.
const (
	AttrOperation = "operation"
	AttrOutcome   = "outcome"
	AttrReason    = "reason"
	AttrEventType = "event_type"
	AttrCache     = "cache"
)

// LLM operations.
const (
	OperationMenuGeneration = "menu_generation"
	OperationAnswer         = "answer"
	OperationEmbedding      = "embedding"
)

// Call outcomes shared by LLM and event metrics.
const (
	OutcomeSuccess = "success"
	OutcomeError   = "error"
	OutcomeTimeout = "timeout"
)

// AllowedOperations bounds the operation label.
var AllowedOperations = map[string]bool{
	OperationMenuGeneration: true,
	OperationAnswer:         true,
	OperationEmbedding:      true,
}

// AllowedOutcomes bounds the outcome label.
var AllowedOutcomes = map[string]bool{
	OutcomeSuccess: true,
	OutcomeError:   true,
	OutcomeTimeout: true,
}

// AllowedFallbackReasons bounds the reason label of ordering_menu_fallbacks_total.
var AllowedFallbackReasons = map[string]bool{
	"no_client":     true,
	"timeout":       true,
	"provider":      true,
	"no_json":       true,
	"invalid_json":  true,
	"no_valid_item": true,
}

// AllowedEventTypes bounds the event_type label.
var AllowedEventTypes = map[string]bool{
	"order.created": true,
}

// AllowedCacheNames bounds the cache label.
var AllowedCacheNames = map[string]bool{
	"query_embedding": true,
}

// NormalizeReason returns reason if in allowed, otherwise "other".
func NormalizeReason(reason string, allowed map[string]bool) string {
	if allowed[reason] {
		return reason
	}

	return "other"
}

// NormalizeEventType returns eventType if allowed, otherwise "unknown".
func NormalizeEventType(eventType string) string {
	if AllowedEventTypes[eventType] {
		return eventType
	}

	return "unknown"
}

// NormalizeCacheName returns name if allowed, otherwise "other".
func NormalizeCacheName(name string) string {
	return NormalizeReason(name, AllowedCacheNames)
}
