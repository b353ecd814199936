package event

import (
	"errors"
	"fmt"
)

// ErrBusClosed indicates a publish on a closed bus.
var ErrBusClosed = errors.New("bus is closed")

// EventError represents an error during event delivery.
type EventError struct {
	Event   Event
	Message string
	Err     error
}

// Error implements the error interface.
func (e *EventError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("event %s: %s: %v", e.Event.ID(), e.Message, e.Err)
	}
	return fmt.Sprintf("event %s: %s", e.Event.ID(), e.Message)
}

// Unwrap returns the underlying error.
func (e *EventError) Unwrap() error {
	return e.Err
}
