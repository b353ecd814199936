package mediaflow

import (
	"errors"
	"fmt"

	"github.com/randalmurphal/mediaflow/pkg/mediaflow/executor"
	"github.com/randalmurphal/mediaflow/pkg/mediaflow/schedule"
)

// Sentinel errors for execution.
var (
	// ErrStopped is the cancellation cause of a run ended by Stop.
	ErrStopped = errors.New("execution stopped")

	// ErrNotPaused indicates Resume was called with no paused run.
	ErrNotPaused = errors.New("no paused run to resume")

	// ErrRunning indicates an operation that replaces the workflow was
	// called during a run.
	ErrRunning = errors.New("execution in progress")

	// ErrWorkflowNotFound indicates OpenWorkflow was given an unknown id.
	ErrWorkflowNotFound = errors.New("workflow not found")

	// ErrNoRepository indicates a persistence call on an engine built
	// without a repository.
	ErrNoRepository = errors.New("no workflow repository configured")

	// ErrEngineClosed indicates the engine has been closed.
	ErrEngineClosed = errors.New("engine closed")
)

// Re-exported so callers can match failures without importing subpackages.
var (
	ErrCycleDetected   = schedule.ErrCycleDetected
	ErrMissingInput    = executor.ErrMissingInput
	ErrExternalService = executor.ErrExternalService
	ErrNodeNotFound    = executor.ErrNodeNotFound
)

type (
	// CycleError carries the cycle found by the scheduler.
	CycleError = schedule.CycleError
	// PanicError captures a panic recovered from a node behavior.
	PanicError = executor.PanicError
)

// NodeError wraps an error with node context.
// Run and Regenerate return it when a node fails.
type NodeError struct {
	// NodeID is the identifier of the node that failed.
	NodeID string
	// Op is the operation that failed ("execute", "regenerate").
	Op string
	// Err is the underlying error from the node.
	Err error
}

// Error implements the error interface.
func (e *NodeError) Error() string {
	return fmt.Sprintf("node %s: %s: %v", e.NodeID, e.Op, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *NodeError) Unwrap() error {
	return e.Err
}
