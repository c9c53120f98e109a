package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tablebite/ordering/internal/datatypes"
	"github.com/tablebite/ordering/internal/observability"
)

const (
	defaultEventChanBufferSize = 1024
	defaultPerEventTimeout     = 10 * time.Second
)

// Event is an order event fanned out to message providers.
type Event struct {
	ID        uuid.UUID           `json:"id"`        // UUID v7, time-ordered
	Type      datatypes.EventType `json:"type"`      // e.g. order.created
	Timestamp int64               `json:"timestamp"` // Unix seconds
	Data      any                 `json:"data"`
}

// MessagePublisher publishes events without blocking the caller.
type MessagePublisher interface {
	PublishEvent(ctx context.Context, eventType datatypes.EventType, data any)
}

// eventPublisher is implemented by providers that receive a full Event.
type eventPublisher interface {
	PublishEvent(ctx context.Context, event Event)
}

// MessagePublisherManager buffers events on a channel and fans each one out to
// every registered provider from a single background worker.
type MessagePublisherManager struct {
	eventChan       chan Event
	providers       []eventPublisher
	perEventTimeout time.Duration
	metrics         observability.EventMetrics
	wg              sync.WaitGroup

	// mu guards closed; senders hold it shared so Shutdown never closes eventChan mid-send.
	mu     sync.RWMutex
	closed bool
}

// NewMessagePublisherManager starts the fan-out worker. Non-positive sizes use defaults.
// metrics may be nil.
func NewMessagePublisherManager(
	bufferSize int, perEventTimeout time.Duration, metrics observability.EventMetrics,
) *MessagePublisherManager {
	if bufferSize <= 0 {
		bufferSize = defaultEventChanBufferSize
	}

	if perEventTimeout <= 0 {
		perEventTimeout = defaultPerEventTimeout
	}

	m := &MessagePublisherManager{
		eventChan:       make(chan Event, bufferSize),
		perEventTimeout: perEventTimeout,
		metrics:         metrics,
	}

	m.wg.Add(1)

	go m.startWorker()

	return m
}

// RegisterProvider adds a provider. Must only be called during startup, before any events are published.
func (m *MessagePublisherManager) RegisterProvider(provider eventPublisher) {
	m.providers = append(m.providers, provider)
}

// PublishEvent enqueues an event. When the buffer is full, or after Shutdown, the event is
// dropped and counted.
func (m *MessagePublisherManager) PublishEvent(ctx context.Context, eventType datatypes.EventType, data any) {
	event := Event{
		ID:        uuid.Must(uuid.NewV7()),
		Type:      eventType,
		Timestamp: time.Now().Unix(),
		Data:      data,
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		slog.Warn("Publisher shut down, event dropped", "event_id", event.ID, "event_type", event.Type.String())

		if m.metrics != nil {
			m.metrics.RecordEventDropped(ctx, event.Type.String())
		}

		return
	}

	select {
	case m.eventChan <- event:
		slog.Debug("Event published to channel", "event_id", event.ID, "event_type", event.Type.String())
	default:
		slog.Warn("Event channel full, event dropped", "event_id", event.ID, "event_type", event.Type.String())

		if m.metrics != nil {
			m.metrics.RecordEventDropped(ctx, event.Type.String())
		}
	}

	if m.metrics != nil {
		m.metrics.SetChannelDepth(len(m.eventChan))
	}
}

// startWorker drains the channel until Shutdown closes it.
func (m *MessagePublisherManager) startWorker() {
	defer m.wg.Done()

	bgCtx := context.Background()

	for event := range m.eventChan {
		// One stuck broker call must not freeze the worker.
		ctx, cancel := context.WithTimeout(bgCtx, m.perEventTimeout)

		for _, provider := range m.providers {
			provider.PublishEvent(ctx, event)
		}

		cancel()

		if m.metrics != nil {
			m.metrics.SetChannelDepth(len(m.eventChan))
		}
	}
}

// Shutdown stops accepting events and waits for the buffer to drain. Safe to call more than once.
func (m *MessagePublisherManager) Shutdown() {
	m.mu.Lock()
	if !m.closed {
		m.closed = true
		close(m.eventChan)
	}
	m.mu.Unlock()

	m.wg.Wait()
}
