// Package event is the engine's observer mechanism: typed events published
// on an in-memory bus that UIs and other observers subscribe to.
package event

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event is an immutable notification published by the engine.
type Event interface {
	ID() string
	Type() string
	Source() string

	// CorrelationID groups the events of one run. Events outside a run use
	// their own ID.
	CorrelationID() string

	Timestamp() time.Time
	Data() any
}

// Metadata contains the common event fields.
type Metadata struct {
	EventID       string    `json:"id"`
	EventType     string    `json:"type"`
	EventSource   string    `json:"source"`
	CorrelationID string    `json:"correlation_id"`
	Timestamp     time.Time `json:"timestamp"`
}

// BaseEvent is the generic Event implementation. T is the payload type.
type BaseEvent[T any] struct {
	Meta    Metadata `json:"metadata"`
	Payload T        `json:"payload"`
}

// ID returns the unique event identifier.
func (e *BaseEvent[T]) ID() string { return e.Meta.EventID }

// Type returns the event type.
func (e *BaseEvent[T]) Type() string { return e.Meta.EventType }

// Source returns the event source.
func (e *BaseEvent[T]) Source() string { return e.Meta.EventSource }

// CorrelationID returns the correlation ID.
func (e *BaseEvent[T]) CorrelationID() string { return e.Meta.CorrelationID }

// Timestamp returns when the event occurred.
func (e *BaseEvent[T]) Timestamp() time.Time { return e.Meta.Timestamp }

// Data returns the payload.
func (e *BaseEvent[T]) Data() any { return e.Payload }

// TypedData returns the strongly-typed payload.
func (e *BaseEvent[T]) TypedData() T { return e.Payload }

// MarshalJSON implements json.Marshaler.
func (e *BaseEvent[T]) MarshalJSON() ([]byte, error) {
	type alias BaseEvent[T]
	return json.Marshal((*alias)(e))
}

// Option configures event creation.
type Option func(*eventConfig)

type eventConfig struct {
	id            string
	correlationID string
	timestamp     time.Time
}

// WithEventID sets a specific event ID (default: random UUID).
func WithEventID(id string) Option {
	return func(cfg *eventConfig) {
		cfg.id = id
	}
}

// WithCorrelationID sets the correlation ID, usually a run ID.
func WithCorrelationID(id string) Option {
	return func(cfg *eventConfig) {
		cfg.correlationID = id
	}
}

// WithTimestamp sets a specific timestamp (default: time.Now()).
func WithTimestamp(t time.Time) Option {
	return func(cfg *eventConfig) {
		cfg.timestamp = t
	}
}

// New creates an event with the given type, source and payload.
func New[T any](eventType, source string, payload T, opts ...Option) *BaseEvent[T] {
	cfg := &eventConfig{
		id:        uuid.New().String(),
		timestamp: time.Now(),
	}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.correlationID == "" {
		cfg.correlationID = cfg.id
	}

	return &BaseEvent[T]{
		Meta: Metadata{
			EventID:       cfg.id,
			EventType:     eventType,
			EventSource:   source,
			CorrelationID: cfg.correlationID,
			Timestamp:     cfg.timestamp,
		},
		Payload: payload,
	}
}

// Handler processes delivered events.
type Handler interface {
	Handle(ctx context.Context, evt Event) error
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(ctx context.Context, evt Event) error

// Handle implements Handler.
func (f HandlerFunc) Handle(ctx context.Context, evt Event) error {
	return f(ctx, evt)
}

// TypedHandler wraps a function that handles one payload type. Events with
// a different payload type are ignored.
func TypedHandler[T any](fn func(ctx context.Context, payload T, meta Metadata) error) Handler {
	return HandlerFunc(func(ctx context.Context, evt Event) error {
		payload, ok := evt.Data().(T)
		if !ok {
			return nil
		}
		return fn(ctx, payload, Metadata{
			EventID:       evt.ID(),
			EventType:     evt.Type(),
			EventSource:   evt.Source(),
			CorrelationID: evt.CorrelationID(),
			Timestamp:     evt.Timestamp(),
		})
	})
}
