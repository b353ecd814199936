package mediaflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/randalmurphal/mediaflow/pkg/mediaflow/event"
	"github.com/randalmurphal/mediaflow/pkg/mediaflow/executor"
	"github.com/randalmurphal/mediaflow/pkg/mediaflow/graph"
	"github.com/randalmurphal/mediaflow/pkg/mediaflow/observability"
	"github.com/randalmurphal/mediaflow/pkg/mediaflow/schedule"
)

// Outcome is how a run ended.
type Outcome string

// Run outcomes.
const (
	OutcomeCompleted Outcome = "completed"
	OutcomePaused    Outcome = "paused"
	OutcomeStopped   Outcome = "stopped"
	OutcomeFailed    Outcome = "failed"
	// OutcomeBusy means another run was active and nothing happened.
	OutcomeBusy Outcome = "busy"
)

// Run modes.
const (
	ModeAll    = "all"
	ModeFrom   = "from"
	ModeResume = "resume"
	ModeSingle = "single"
)

// Result describes a finished run.
type Result struct {
	RunID   string
	Outcome Outcome
	// NodeID is the node the run paused before, stopped in or failed at.
	NodeID string
	// Executed counts the nodes that completed.
	Executed int
}

// ExecutionState is the engine's run bookkeeping. It is never persisted.
type ExecutionState struct {
	IsRunning      bool
	RunID          string
	Mode           string
	CurrentNodeID  string
	PausedAtNodeID string
}

// ExecutionState returns a copy of the current run bookkeeping.
func (e *Engine) ExecutionState() ExecutionState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// IsRunning reports whether a run or regeneration is active.
func (e *Engine) IsRunning() bool {
	return e.running()
}

func (e *Engine) running() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.IsRunning
}

// Run executes the graph in dependency order, starting at startNodeID or at
// the beginning when it is empty. Nodes before the start are skipped.
//
// Before each node except the start node, an incoming edge flagged with
// pause halts the run with OutcomePaused; Resume continues from there.
// A failing node halts the run and is returned as a *NodeError. A cycle
// fails the run before any node executes. Stop ends the run with
// OutcomeStopped and a nil error.
//
// If another run is active, Run does nothing and returns OutcomeBusy.
func (e *Engine) Run(ctx context.Context, startNodeID string) (Result, error) {
	mode := ModeAll
	if startNodeID != "" {
		mode = ModeFrom
	}
	return e.run(ctx, mode, startNodeID)
}

// Resume continues a paused run at the node it paused before, without
// re-checking that node's pause edges.
func (e *Engine) Resume(ctx context.Context) (Result, error) {
	st := e.ExecutionState()
	if st.IsRunning {
		return Result{Outcome: OutcomeBusy}, nil
	}
	if st.PausedAtNodeID == "" {
		return Result{}, ErrNotPaused
	}
	return e.run(ctx, ModeResume, st.PausedAtNodeID)
}

// Stop cancels the active run. The node in flight returns to idle and no
// further nodes execute. Reports whether a run was active.
func (e *Engine) Stop() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.state.IsRunning || e.cancel == nil {
		return false
	}
	e.cancel(ErrStopped)
	return true
}

// Regenerate re-executes a single node with its current inputs, falling
// back to the inputs it last ran with when nothing is connected.
//
// For a stitch node, every video generation node feeding it is regenerated
// first, for the node's configured iterations, and each stitched result is
// saved to the output folder when one is set.
func (e *Engine) Regenerate(ctx context.Context, nodeID string) (Result, error) {
	runCtx, runID, ok, err := e.begin(ctx, ModeSingle)
	if err != nil {
		return Result{}, err
	}
	if !ok {
		return Result{Outcome: OutcomeBusy}, nil
	}

	start := time.Now()
	res := Result{RunID: runID}
	var runErr error
	runCtx, span := e.startRunSpan(runCtx, runID, ModeSingle)
	defer func() {
		e.finish(runCtx, runID, ModeSingle, start, &res, runErr, span)
	}()

	n, found := e.graph.Node(nodeID)
	if !found {
		runErr = fmt.Errorf("%w: %s", executor.ErrNodeNotFound, nodeID)
		res.Outcome = OutcomeFailed
		return res, runErr
	}
	observability.LogRunStart(e.logger, runID, ModeSingle, nodeID, 1)
	publish(e, event.TypeExecutionStarted, event.Execution{RunID: runID, Mode: ModeSingle, NodeID: nodeID}, runID)

	var nodeErr error
	if n.Type == graph.TypeStitchVideos {
		nodeErr = e.exec.RegenerateStitch(runCtx, nodeID, executor.StitchOptions{
			Iterations: e.settings.StitchIterations,
			Sink:       e.services.Outputs,
			Folder:     e.settings.OutputFolder,
			OnStep: func(id string, iteration int) {
				e.setCurrent(runID, id)
				observability.AddSpanEvent(runCtx, "stitch.step",
					attribute.String("node.id", id),
					attribute.Int("iteration", iteration),
				)
			},
		})
	} else {
		nodeErr = e.executeNode(runCtx, runID, n)
	}

	res.NodeID = nodeID
	switch {
	case nodeErr == nil:
		res.Outcome = OutcomeCompleted
		res.Executed = 1
	case executor.IsCancelled(nodeErr):
		res.Outcome = OutcomeStopped
		runErr = stopError(runCtx)
	default:
		res.Outcome = OutcomeFailed
		runErr = &NodeError{NodeID: nodeID, Op: "regenerate", Err: nodeErr}
	}
	return res, runErr
}

func (e *Engine) run(ctx context.Context, mode, startNodeID string) (Result, error) {
	runCtx, runID, ok, err := e.begin(ctx, mode)
	if err != nil {
		return Result{}, err
	}
	if !ok {
		return Result{Outcome: OutcomeBusy}, nil
	}

	start := time.Now()
	res := Result{RunID: runID}
	var runErr error
	runCtx, span := e.startRunSpan(runCtx, runID, mode)
	defer func() {
		e.finish(runCtx, runID, mode, start, &res, runErr, span)
	}()

	snap := e.graph.Snapshot()
	order, err := schedule.Order(snap.Nodes, snap.Edges)
	if err != nil {
		res.Outcome = OutcomeFailed
		runErr = err
		return res, runErr
	}
	from := schedule.StartIndex(order, startNodeID)
	if from < 0 {
		res.Outcome = OutcomeFailed
		runErr = fmt.Errorf("%w: %s", executor.ErrNodeNotFound, startNodeID)
		return res, runErr
	}

	observability.LogRunStart(e.logger, runID, mode, startNodeID, len(order)-from)
	publish(e, event.TypeExecutionStarted, event.Execution{RunID: runID, Mode: mode, NodeID: startNodeID}, runID)

	for _, n := range order[from:] {
		if n.ID != startNodeID && e.pauseBefore(n.ID) {
			res.Outcome = OutcomePaused
			res.NodeID = n.ID
			return res, nil
		}
		if runCtx.Err() != nil {
			res.Outcome = OutcomeStopped
			res.NodeID = n.ID
			runErr = stopError(runCtx)
			return res, runErr
		}
		if !e.exec.Executable(n.Type) {
			continue
		}

		current, ok := e.graph.Node(n.ID)
		if !ok {
			continue
		}
		if err := e.executeNode(runCtx, runID, current); err != nil {
			res.NodeID = n.ID
			if executor.IsCancelled(err) {
				res.Outcome = OutcomeStopped
				runErr = stopError(runCtx)
				return res, runErr
			}
			res.Outcome = OutcomeFailed
			runErr = &NodeError{NodeID: n.ID, Op: "execute", Err: err}
			return res, runErr
		}
		res.Executed++
	}

	res.Outcome = OutcomeCompleted
	return res, nil
}

// begin claims the single-flight slot. ok is false if a run is active.
func (e *Engine) begin(ctx context.Context, mode string) (context.Context, string, bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return nil, "", false, ErrEngineClosed
	}
	if e.state.IsRunning {
		return nil, "", false, nil
	}

	runCtx, cancel := context.WithCancelCause(ctx)
	runID := uuid.NewString()
	e.cancel = cancel
	e.state = ExecutionState{IsRunning: true, RunID: runID, Mode: mode}
	return runCtx, runID, true, nil
}

// finish releases the single-flight slot and reports the outcome.
func (e *Engine) finish(ctx context.Context, runID, mode string, start time.Time, res *Result, runErr error, span trace.Span) {
	e.mu.Lock()
	cancel := e.cancel
	e.cancel = nil
	e.state.IsRunning = false
	e.state.CurrentNodeID = ""
	if res.Outcome == OutcomePaused {
		e.state.PausedAtNodeID = res.NodeID
	}
	e.mu.Unlock()
	if cancel != nil {
		cancel(nil)
	}

	duration := time.Since(start)
	durationMs := float64(duration.Microseconds()) / 1000.0
	e.metrics.RecordRun(ctx, string(res.Outcome), duration)

	payload := event.Execution{RunID: runID, Mode: mode, NodeID: res.NodeID}
	switch res.Outcome {
	case OutcomeCompleted:
		observability.LogRunComplete(e.logger, runID, durationMs, res.Executed)
		publish(e, event.TypeExecutionCompleted, payload, runID)
		e.autosave(context.WithoutCancel(ctx))
	case OutcomePaused:
		observability.LogRunPaused(e.logger, runID, res.NodeID)
		observability.AddSpanEvent(ctx, "paused", attribute.String("node.id", res.NodeID))
		publish(e, event.TypeExecutionPaused, payload, runID)
		e.publishNotice("info", fmt.Sprintf("Paused before %s. Resume to continue.", res.NodeID), res.NodeID)
	case OutcomeStopped:
		observability.LogRunStopped(e.logger, runID, res.NodeID)
		publish(e, event.TypeExecutionStopped, payload, runID)
	default:
		if runErr != nil {
			payload.Error = runErr.Error()
			observability.LogRunError(e.logger, runID, runErr, durationMs, res.NodeID)
			var cycle *schedule.CycleError
			if errors.As(runErr, &cycle) {
				e.publishNotice("error", runErr.Error(), "")
			}
		}
		publish(e, event.TypeExecutionFailed, payload, runID)
	}

	if span != nil {
		var spanErr error
		if res.Outcome == OutcomeFailed {
			spanErr = runErr
		}
		e.spans.EndSpanWithError(span, spanErr)
	}
}

// executeNode runs one node with logging, metrics and tracing.
func (e *Engine) executeNode(ctx context.Context, runID string, n *graph.Node) error {
	e.setCurrent(runID, n.ID)
	publish(e, event.TypeNodeStarted, event.Execution{RunID: runID, NodeID: n.ID}, runID)
	observability.LogNodeStart(e.logger, n.ID)

	nodeCtx := ctx
	var span trace.Span
	if e.tracingEnabled && !e.exec.IsLocal(n.Type) {
		nodeCtx, span = e.spans.StartNodeSpan(ctx, n.ID, string(n.Type))
	}

	elapsed := observability.TimedOperation()
	start := time.Now()
	err := e.exec.Execute(nodeCtx, n.ID)
	e.metrics.RecordNodeExecution(nodeCtx, string(n.Type), time.Since(start), err)

	if span != nil {
		e.spans.EndSpanWithError(span, err)
	}
	switch {
	case err == nil:
		observability.LogNodeComplete(e.logger, n.ID, elapsed())
	case executor.IsCancelled(err):
		observability.LogNodeCancelled(e.logger, n.ID)
	default:
		observability.LogNodeError(e.logger, n.ID, err)
	}
	return err
}

func (e *Engine) startRunSpan(ctx context.Context, runID, mode string) (context.Context, trace.Span) {
	if !e.tracingEnabled {
		return ctx, nil
	}
	return e.spans.StartRunSpan(ctx, runID, mode)
}

func (e *Engine) setCurrent(runID, nodeID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state.RunID == runID {
		e.state.CurrentNodeID = nodeID
	}
}

// pauseBefore reports whether any edge into nodeID is flagged to pause.
// The node pauses once however many flagged edges it has.
func (e *Engine) pauseBefore(nodeID string) bool {
	for _, edge := range e.graph.Incoming(nodeID) {
		if edge.Data.HasPause {
			return true
		}
	}
	return false
}

// stopError returns nil for a Stop and the cancellation cause otherwise.
func stopError(ctx context.Context) error {
	cause := context.Cause(ctx)
	if cause == nil || errors.Is(cause, ErrStopped) {
		return nil
	}
	return cause
}
