// Package store persists workflows and small engine metadata.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/randalmurphal/mediaflow/pkg/mediaflow/graph"
)

// MetaCurrentWorkflow is the meta key holding the id of the workflow the
// user last switched to.
const MetaCurrentWorkflow = "current_workflow_id"

// Repository persists workflows.
// Implementations must be safe for concurrent use.
type Repository interface {
	// ListWorkflows returns summaries ordered by most recently updated first.
	ListWorkflows(ctx context.Context) ([]Summary, error)

	// LoadWorkflow returns the stored workflow, or nil and no error if absent.
	LoadWorkflow(ctx context.Context, id string) (*graph.Workflow, error)

	// SaveWorkflow inserts or replaces a workflow by id.
	SaveWorkflow(ctx context.Context, wf *graph.Workflow) error

	// DeleteWorkflow removes a workflow. Deleting a missing id is not an error.
	DeleteWorkflow(ctx context.Context, id string) error

	// GetMeta returns a metadata value and whether it was set.
	GetMeta(ctx context.Context, key string) (string, bool, error)

	// SetMeta stores a metadata value.
	SetMeta(ctx context.Context, key, value string) error

	// Close releases any resources (connections, files).
	Close() error
}

// Summary describes a stored workflow without decoding it.
type Summary struct {
	ID        string
	Name      string
	UpdatedAt time.Time
	Size      int64
}

// Sentinel errors for repository operations.
var (
	// ErrMissingID indicates a workflow without an id was saved.
	ErrMissingID = errors.New("workflow has no id")

	// ErrStoreClosed indicates the repository has been closed.
	ErrStoreClosed = errors.New("workflow store closed")
)

func encode(wf *graph.Workflow) ([]byte, error) {
	if wf == nil || wf.ID == "" {
		return nil, ErrMissingID
	}
	return graph.MarshalWorkflow(wf)
}
