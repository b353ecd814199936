package executor

import (
	"context"
	"errors"
	"fmt"
)

// Sentinel errors for node execution.
var (
	// ErrMissingInput indicates a required upstream value is absent.
	ErrMissingInput = errors.New("missing input")

	// ErrExternalService indicates a collaborator call failed.
	ErrExternalService = errors.New("external service error")

	// ErrServiceUnavailable indicates no collaborator is configured for a node type.
	ErrServiceUnavailable = errors.New("service not configured")

	// ErrNodeNotFound indicates the node to execute does not exist.
	ErrNodeNotFound = errors.New("node not found")

	// ErrNoBehavior indicates no behavior is registered for the node type.
	ErrNoBehavior = errors.New("no behavior registered")
)

// MissingInputError reports which required input a node lacked.
type MissingInputError struct {
	// NodeID is the node that failed validation.
	NodeID string
	// Input names the missing value ("prompt", "image", ...).
	Input string
}

// Error implements the error interface.
func (e *MissingInputError) Error() string {
	return fmt.Sprintf("node %s: %s: %s", e.NodeID, ErrMissingInput, e.Input)
}

// Unwrap returns ErrMissingInput for errors.Is support.
func (e *MissingInputError) Unwrap() error {
	return ErrMissingInput
}

// ServiceError wraps a failed collaborator call.
type ServiceError struct {
	// NodeID is the node whose call failed.
	NodeID string
	// Op is the collaborator operation ("generate_image", "stitch", ...).
	Op string
	// Err is the error the collaborator returned.
	Err error
}

// Error implements the error interface.
func (e *ServiceError) Error() string {
	return fmt.Sprintf("node %s: %s: %v", e.NodeID, e.Op, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *ServiceError) Unwrap() error {
	return e.Err
}

// Is reports ErrExternalService as a match so callers can test the category
// without unwrapping to the collaborator's own error.
func (e *ServiceError) Is(target error) bool {
	return target == ErrExternalService
}

// CancelledError reports that a node was interrupted by cancellation.
// The node is reset to idle, not marked as failed.
type CancelledError struct {
	// NodeID is the node that was running or about to run.
	NodeID string
	// Cause is the cancellation cause of the run context.
	Cause error
}

// Error implements the error interface.
func (e *CancelledError) Error() string {
	return fmt.Sprintf("node %s cancelled: %v", e.NodeID, e.Cause)
}

// Unwrap returns the cancellation cause.
func (e *CancelledError) Unwrap() error {
	return e.Cause
}

// PanicError captures a panic raised by a behavior.
type PanicError struct {
	// NodeID is the node whose behavior panicked.
	NodeID string
	// Value is the value passed to panic().
	Value any
	// Stack is the stack trace at the point of panic.
	Stack string
}

// Error implements the error interface.
func (e *PanicError) Error() string {
	return fmt.Sprintf("node %s panicked: %v", e.NodeID, e.Value)
}

// IsCancelled reports whether err represents cancellation rather than failure.
func IsCancelled(err error) bool {
	var ce *CancelledError
	return errors.As(err, &ce) || errors.Is(err, context.Canceled)
}

// cancelled builds a CancelledError from the context's cause, falling back
// to err when the context itself is not done.
func cancelled(ctx context.Context, nodeID string, err error) *CancelledError {
	cause := context.Cause(ctx)
	if cause == nil {
		cause = err
	}
	if cause == nil {
		cause = context.Canceled
	}
	return &CancelledError{NodeID: nodeID, Cause: cause}
}

func missing(nodeID, input string) error {
	return &MissingInputError{NodeID: nodeID, Input: input}
}
