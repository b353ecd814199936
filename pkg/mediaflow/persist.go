package mediaflow

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/randalmurphal/mediaflow/pkg/mediaflow/graph"
	"github.com/randalmurphal/mediaflow/pkg/mediaflow/observability"
	"github.com/randalmurphal/mediaflow/pkg/mediaflow/store"
)

// WorkflowID returns the id of the open workflow.
func (e *Engine) WorkflowID() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.workflowID
}

// WorkflowName returns the name of the open workflow.
func (e *Engine) WorkflowName() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.workflowName
}

// Rename sets the open workflow's name.
func (e *Engine) Rename(name string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.workflowName = name
}

// Workflow returns the open workflow.
func (e *Engine) Workflow() *graph.Workflow {
	e.mu.Lock()
	id, name := e.workflowID, e.workflowName
	e.mu.Unlock()
	return e.graph.Workflow(id, name)
}

// Export encodes the open workflow in the workflow file format.
func (e *Engine) Export() ([]byte, error) {
	return graph.MarshalWorkflow(e.Workflow())
}

// Import validates a workflow file and loads it as an undoable step.
// Returns ErrRunning while a run is active.
func (e *Engine) Import(data []byte) error {
	wf, err := graph.UnmarshalWorkflow(data)
	if err != nil {
		return err
	}
	if !e.Load(wf) {
		return ErrRunning
	}
	return nil
}

// NewWorkflow starts an empty workflow with a fresh id and no history.
func (e *Engine) NewWorkflow(name string) (string, error) {
	if name == "" {
		name = DefaultWorkflowName
	}
	id := uuid.NewString()
	if err := e.replace(&graph.Workflow{ID: id, Name: name, EdgeStyle: e.settings.DefaultEdgeStyle}); err != nil {
		return "", err
	}
	return id, nil
}

// ListWorkflows lists the stored workflows.
func (e *Engine) ListWorkflows(ctx context.Context) ([]store.Summary, error) {
	if e.repo == nil {
		return nil, ErrNoRepository
	}
	return e.repo.ListWorkflows(ctx)
}

// OpenWorkflow switches to a stored workflow. History is cleared and the
// workflow is remembered as the current one.
func (e *Engine) OpenWorkflow(ctx context.Context, id string) error {
	if e.repo == nil {
		return ErrNoRepository
	}
	wf, err := e.repo.LoadWorkflow(ctx, id)
	if err != nil {
		return fmt.Errorf("open workflow %s: %w", id, err)
	}
	if wf == nil {
		return fmt.Errorf("%w: %s", ErrWorkflowNotFound, id)
	}
	if err := e.replace(wf); err != nil {
		return err
	}
	if err := e.repo.SetMeta(ctx, store.MetaCurrentWorkflow, id); err != nil {
		return fmt.Errorf("remember current workflow: %w", err)
	}
	return nil
}

// RestoreCurrent opens the workflow recorded as current, if there is one.
// It reports whether a workflow was opened.
func (e *Engine) RestoreCurrent(ctx context.Context) (bool, error) {
	if e.repo == nil {
		return false, ErrNoRepository
	}
	id, ok, err := e.repo.GetMeta(ctx, store.MetaCurrentWorkflow)
	if err != nil || !ok || id == "" {
		return false, err
	}
	if err := e.OpenWorkflow(ctx, id); err != nil {
		if errors.Is(err, ErrWorkflowNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Save stores the open workflow in the repository.
func (e *Engine) Save(ctx context.Context) error {
	if e.repo == nil {
		return ErrNoRepository
	}
	_, err := e.save(ctx)
	return err
}

// DeleteWorkflow removes a stored workflow.
func (e *Engine) DeleteWorkflow(ctx context.Context, id string) error {
	if e.repo == nil {
		return ErrNoRepository
	}
	return e.repo.DeleteWorkflow(ctx, id)
}

// replace swaps in a workflow outside of history.
func (e *Engine) replace(wf *graph.Workflow) error {
	e.mu.Lock()
	if e.state.IsRunning {
		e.mu.Unlock()
		return ErrRunning
	}
	e.graph.Load(wf)
	e.history.Clear()
	e.state = ExecutionState{}
	e.workflowID = wf.ID
	e.workflowName = wf.Name
	e.mu.Unlock()

	e.publishGraphChanged("open")
	return nil
}

func (e *Engine) save(ctx context.Context) (int, error) {
	wf := e.Workflow()
	data, err := graph.MarshalWorkflow(wf)
	if err != nil {
		return 0, err
	}
	if err := e.repo.SaveWorkflow(ctx, wf); err != nil {
		return 0, err
	}
	return len(data), nil
}

// autosave persists the workflow after a successful run. Failures are
// logged and never fail the run.
func (e *Engine) autosave(ctx context.Context) {
	if e.repo == nil {
		return
	}
	id := e.WorkflowID()
	size, err := e.save(ctx)
	if err != nil {
		observability.LogAutosaveError(e.logger, id, err)
		e.publishNotice("warn", "Autosave failed: "+err.Error(), "")
		return
	}
	observability.LogAutosave(e.logger, id, size)
	e.metrics.RecordAutosave(ctx, int64(size))
}
