package executor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/randalmurphal/mediaflow/pkg/mediaflow/graph"
	"github.com/randalmurphal/mediaflow/pkg/mediaflow/resolve"
)

// Store is the graph access an Executor needs to read nodes and report
// progress. *graph.Store satisfies it.
type Store interface {
	Node(id string) (*graph.Node, bool)
	Incoming(id string) []*graph.Edge
	UpdateNodeData(id string, partial graph.Data) bool
}

// Executor runs single nodes: it resolves inputs, validates them, invokes
// the node type's behavior and records the status transition and outputs on
// the node.
type Executor struct {
	store    Store
	resolver *resolve.Resolver
	registry *Registry
	logger   *slog.Logger
	sleep    func(time.Duration)
}

// Option configures an Executor.
type Option func(*Executor)

// WithLogger sets the logger used for tolerated sub-step failures.
func WithLogger(l *slog.Logger) Option {
	return func(x *Executor) {
		if l != nil {
			x.logger = l
		}
	}
}

// New creates an executor writing results through store.
func New(store Store, resolver *resolve.Resolver, registry *Registry, opts ...Option) *Executor {
	x := &Executor{
		store:    store,
		resolver: resolver,
		registry: registry,
		logger:   slog.Default(),
		sleep:    time.Sleep,
	}
	for _, opt := range opts {
		opt(x)
	}
	return x
}

// Registry returns the behavior registry.
func (x *Executor) Registry() *Registry {
	return x.registry
}

// Executable reports whether a node of type t does any work when executed.
func (x *Executor) Executable(t graph.NodeType) bool {
	return x.registry.Has(t)
}

// IsLocal reports whether nodes of type t compute without a collaborator
// call.
func (x *Executor) IsLocal(t graph.NodeType) bool {
	b, ok := x.registry.Get(t)
	if !ok {
		return false
	}
	_, local := b.(Local)
	return local
}

// Execute runs one node.
//
// The node moves idle -> loading -> complete on success. A validation
// failure or collaborator failure sets status error with the message and
// returns the error. Cancellation resets the node to idle and returns a
// *CancelledError. Nodes without a behavior (annotations) are skipped and
// return nil.
func (x *Executor) Execute(ctx context.Context, nodeID string) error {
	node, ok := x.store.Node(nodeID)
	if !ok {
		return fmt.Errorf("%w: %s", ErrNodeNotFound, nodeID)
	}
	b, ok := x.registry.Get(node.Type)
	if !ok {
		if node.Type == graph.TypeNote {
			return nil
		}
		err := fmt.Errorf("%w: %s", ErrNoBehavior, node.Type)
		x.fail(nodeID, err)
		return err
	}

	if err := ctx.Err(); err != nil {
		return cancelled(ctx, nodeID, err)
	}

	req := Request{Node: node, Inputs: effectiveInputs(node, x.resolver.Resolve(nodeID))}
	if err := b.Validate(req); err != nil {
		x.fail(nodeID, err)
		return err
	}

	x.store.UpdateNodeData(nodeID, loadingData(req))

	out, err := x.run(ctx, b, req)
	if err != nil {
		if ctx.Err() != nil || errors.Is(err, context.Canceled) {
			x.store.UpdateNodeData(nodeID, graph.Data{
				graph.FieldStatus: string(graph.StatusIdle),
				graph.FieldError:  nil,
			})
			return cancelled(ctx, nodeID, err)
		}
		err = classify(nodeID, err)
		x.fail(nodeID, err)
		return err
	}

	x.store.UpdateNodeData(nodeID, graph.Data{
		graph.FieldStatus: string(graph.StatusComplete),
		graph.FieldError:  nil,
	}.Merge(out))

	if c, ok := b.(Cooldown); ok {
		if d := c.Cooldown(); d > 0 {
			x.sleep(d)
		}
	}
	return nil
}

// run invokes the behavior with panic recovery.
func (x *Executor) run(ctx context.Context, b Behavior, req Request) (out graph.Data, err error) {
	defer func() {
		if r := recover(); r != nil {
			out = nil
			err = &PanicError{
				NodeID: req.Node.ID,
				Value:  r,
				Stack:  string(debug.Stack()),
			}
		}
	}()
	return b.Run(ctx, req)
}

func (x *Executor) fail(nodeID string, err error) {
	x.store.UpdateNodeData(nodeID, graph.Data{
		graph.FieldStatus: string(graph.StatusError),
		graph.FieldError:  err.Error(),
	})
}

// classify makes sure every failure carries a category.
func classify(nodeID string, err error) error {
	var (
		mi *MissingInputError
		se *ServiceError
		pe *PanicError
	)
	if errors.As(err, &mi) || errors.As(err, &se) || errors.As(err, &pe) {
		return err
	}
	return &ServiceError{NodeID: nodeID, Op: "run", Err: err}
}

// effectiveInputs applies the connected-else-stored policy to every input
// slot, using the values the node recorded the last time it ran.
func effectiveInputs(node *graph.Node, live resolve.Inputs) resolve.Inputs {
	d := node.Data

	storedImages := d.Strings(graph.FieldInputImages)
	if len(storedImages) == 0 && d.String(graph.FieldInputImage) != "" {
		storedImages = []string{d.String(graph.FieldInputImage)}
	}

	return resolve.Inputs{
		Images:          resolve.EffectiveList(live.Images, storedImages),
		ReferenceImages: resolve.EffectiveList(live.ReferenceImages, d.Strings(graph.FieldReferenceImages)),
		Text:            resolve.Effective(live.Text, d.String(graph.FieldInputText)),
		Context:         resolve.Effective(live.Context, d.String(graph.FieldInputContext)),
		Video:           resolve.Effective(live.Video, d.String(graph.FieldInputVideo)),
		Videos:          resolve.EffectiveList(live.Videos, d.Strings(graph.FieldInputVideos)),
		Audio:           resolve.Effective(live.Audio, d.String(graph.FieldInputAudio)),
	}
}

// loadingData marks a node as running and records the inputs it runs with.
func loadingData(req Request) graph.Data {
	in := req.Inputs
	d := graph.Data{
		graph.FieldStatus: string(graph.StatusLoading),
		graph.FieldError:  nil,
	}
	set := func(key, v string) {
		if v != "" {
			d[key] = v
		}
	}
	setList := func(key string, v []string) {
		if len(v) > 0 {
			d[key] = v
		}
	}
	set(graph.FieldInputImage, in.Image())
	setList(graph.FieldInputImages, in.Images)
	setList(graph.FieldReferenceImages, in.ReferenceImages)
	set(graph.FieldInputText, in.Text)
	set(graph.FieldInputContext, in.Context)
	set(graph.FieldInputVideo, in.Video)
	setList(graph.FieldInputVideos, in.Videos)
	set(graph.FieldInputAudio, in.Audio)
	set(graph.FieldInputPrompt, req.Prompt())
	return d
}
