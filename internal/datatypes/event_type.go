// Package datatypes defines shared types for order events.
package datatypes

import (
	"errors"
	"fmt"
)

// ErrInvalidEventType is returned when an event type string is unknown.
var ErrInvalidEventType = errors.New("invalid event type")

// EventType is an order lifecycle event. Use String() for the wire form.
type EventType uint16

// Event type constants; string form and routing key are given in eventTypes.
const (
	OrderCreated EventType = iota + 1
)

type eventTypeInfo struct {
	name       string
	routingKey string
}

// eventTypes is the single source of truth for valid event types.
var eventTypes = map[EventType]eventTypeInfo{
	OrderCreated: {name: "order.created", routingKey: "kitchen.order.created"},
}

// String returns the wire name of et, or "" for an unknown type.
func (et EventType) String() string {
	return eventTypes[et].name
}

// RoutingKey returns the topic-exchange routing key for et, or "" for an unknown type.
func (et EventType) RoutingKey() string {
	return eventTypes[et].routingKey
}

// MarshalText implements encoding.TextMarshaler.
func (et EventType) MarshalText() ([]byte, error) {
	name := et.String()
	if name == "" {
		return nil, fmt.Errorf("%w: %d", ErrInvalidEventType, et)
	}

	return []byte(name), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (et *EventType) UnmarshalText(text []byte) error {
	parsed, ok := ParseEventType(string(text))
	if !ok {
		return fmt.Errorf("%w: %s", ErrInvalidEventType, text)
	}

	*et = parsed

	return nil
}

// ParseEventType converts a wire name to an EventType.
func ParseEventType(s string) (EventType, bool) {
	for et, info := range eventTypes {
		if info.name == s {
			return et, true
		}
	}

	return 0, false
}
