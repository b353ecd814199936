package mediaflow

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/randalmurphal/mediaflow/pkg/mediaflow/config"
	"github.com/randalmurphal/mediaflow/pkg/mediaflow/event"
	"github.com/randalmurphal/mediaflow/pkg/mediaflow/executor"
	"github.com/randalmurphal/mediaflow/pkg/mediaflow/graph"
	"github.com/randalmurphal/mediaflow/pkg/mediaflow/history"
	"github.com/randalmurphal/mediaflow/pkg/mediaflow/observability"
	"github.com/randalmurphal/mediaflow/pkg/mediaflow/resolve"
	"github.com/randalmurphal/mediaflow/pkg/mediaflow/store"
)

// DefaultWorkflowName names workflows created without a name.
const DefaultWorkflowName = "Untitled"

// Engine owns one workflow graph: its edits, undo history and execution.
//
// All methods are safe to call from any goroutine. Only one run or
// regeneration executes at a time; see Run.
type Engine struct {
	graph    *graph.Store
	nodes    *trackedStore
	history  *history.Manager
	resolver *resolve.Resolver
	exec     *executor.Executor
	services executor.Services

	bus     event.Bus
	ownsBus bool

	repo     store.Repository
	settings config.Settings

	logger         *slog.Logger
	metrics        observability.MetricsRecorder
	spans          observability.SpanManager
	tracingEnabled bool

	mu           sync.Mutex
	state        ExecutionState
	cancel       context.CancelCauseFunc
	workflowID   string
	workflowName string
	closed       bool
}

// New creates an engine with an empty workflow.
//
// Example:
//
//	engine, err := mediaflow.New(
//	    mediaflow.WithServices(svc),
//	    mediaflow.WithRepository(repo),
//	    mediaflow.WithLogger(logger),
//	)
func New(opts ...Option) (*Engine, error) {
	cfg := defaultEngineConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if err := cfg.settings.Validate(); err != nil {
		return nil, fmt.Errorf("engine settings: %w", err)
	}

	e := &Engine{
		graph:          graph.NewStore(cfg.settings.DefaultEdgeStyle),
		history:        history.New(cfg.settings.HistoryCapacity),
		services:       cfg.services,
		repo:           cfg.repo,
		settings:       cfg.settings,
		logger:         cfg.logger,
		metrics:        cfg.metrics,
		spans:          cfg.spans,
		tracingEnabled: cfg.tracingEnabled,
		bus:            cfg.bus,
		workflowID:     uuid.NewString(),
		workflowName:   DefaultWorkflowName,
	}
	if e.bus == nil {
		logger := cfg.logger
		e.bus = event.NewBus(event.BusConfig{
			NonBlocking: true,
			OnDrop: func(evt event.Event, subscriberID string) {
				logger.Warn("event dropped",
					slog.String("event_type", evt.Type()),
					slog.String("subscriber", subscriberID),
				)
			},
			OnError: func(evt event.Event, subscriberID string, err error) {
				logger.Warn("event handler failed",
					slog.String("event_type", evt.Type()),
					slog.String("subscriber", subscriberID),
					slog.String("error", err.Error()),
				)
			},
		})
		e.ownsBus = true
	}

	registry := cfg.registry
	if registry == nil {
		registry = executor.NewDefaultRegistry(cfg.services,
			executor.WithVideoCooldown(cfg.settings.VideoCooldown))
	}

	e.nodes = &trackedStore{Store: e.graph, engine: e}
	e.resolver = resolve.New(e.graph)
	e.exec = executor.New(e.nodes, e.resolver, registry, executor.WithLogger(cfg.logger))
	return e, nil
}

// Close releases the engine's event bus. It does not close the repository.
func (e *Engine) Close() error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.closed = true
	cancel := e.cancel
	e.mu.Unlock()

	if cancel != nil {
		cancel(ErrEngineClosed)
	}
	if e.ownsBus {
		return e.bus.Close()
	}
	return nil
}

// Settings returns the engine settings.
func (e *Engine) Settings() config.Settings {
	return e.settings
}

// Registry returns the behavior registry nodes are executed with.
func (e *Engine) Registry() *executor.Registry {
	return e.exec.Registry()
}

// Subscribe registers handler for the given event types.
func (e *Engine) Subscribe(types []string, handler event.Handler) event.Subscription {
	return e.bus.Subscribe(types, handler)
}

// SubscribeAll registers handler for every event the engine publishes.
func (e *Engine) SubscribeAll(handler event.Handler) event.Subscription {
	return e.bus.SubscribeAll(handler)
}

// Snapshot returns the current immutable graph state.
func (e *Engine) Snapshot() graph.Snapshot {
	return e.graph.Snapshot()
}

// Nodes returns the current nodes.
func (e *Engine) Nodes() []*graph.Node {
	return e.graph.Nodes()
}

// Edges returns the current edges.
func (e *Engine) Edges() []*graph.Edge {
	return e.graph.Edges()
}

// Node returns the node with the given id.
func (e *Engine) Node(id string) (*graph.Node, bool) {
	return e.graph.Node(id)
}

// EdgeStyle returns the current edge style.
func (e *Engine) EdgeStyle() graph.EdgeStyle {
	return e.graph.EdgeStyle()
}

// Inputs resolves the connected inputs of a node as the executor would see them.
func (e *Engine) Inputs(nodeID string) resolve.Inputs {
	return e.resolver.Resolve(nodeID)
}

// trackedStore publishes a node.updated event for every data change the
// executor makes.
type trackedStore struct {
	*graph.Store
	engine *Engine
}

func (t *trackedStore) UpdateNodeData(id string, partial graph.Data) bool {
	if !t.Store.UpdateNodeData(id, partial) {
		return false
	}
	if n, ok := t.Store.Node(id); ok {
		t.engine.publishNodeUpdated(n)
	}
	return true
}

func (e *Engine) publishNodeUpdated(n *graph.Node) {
	publish(e, event.TypeNodeUpdated, event.NodeUpdated{
		NodeID: n.ID,
		Status: string(n.Status()),
		Error:  n.Data.Error(),
	}, "")
}

func (e *Engine) publishGraphChanged(op string) {
	snap := e.graph.Snapshot()
	publish(e, event.TypeGraphChanged, event.GraphChanged{
		Op:        op,
		NodeCount: len(snap.Nodes),
		EdgeCount: len(snap.Edges),
	}, "")
	e.publishHistoryChanged()
}

func (e *Engine) publishHistoryChanged() {
	publish(e, event.TypeHistoryChanged, event.HistoryChanged{
		CanUndo: e.history.CanUndo(),
		CanRedo: e.history.CanRedo(),
	}, "")
}

func (e *Engine) publishNotice(level, message, nodeID string) {
	publish(e, event.TypeNotice, event.Notice{Level: level, Message: message, NodeID: nodeID}, "")
}

// publish sends an event; correlation ties run events to their run id.
func publish[T any](e *Engine, eventType string, payload T, correlation string) {
	var opts []event.Option
	if correlation != "" {
		opts = append(opts, event.WithCorrelationID(correlation))
	}
	evt := event.New(eventType, event.Source, payload, opts...)
	if err := e.bus.Publish(context.Background(), evt); err != nil {
		e.logger.Debug("event not published",
			slog.String("event_type", eventType),
			slog.String("error", err.Error()),
		)
	}
}
