package executor

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/randalmurphal/mediaflow/pkg/mediaflow/graph"
	"github.com/randalmurphal/mediaflow/pkg/mediaflow/resolve"
)

// Request is what a behavior receives: the node as it was when execution
// started and its effective inputs (live upstream values, falling back to
// the node's stored copies when nothing is connected).
type Request struct {
	Node   *graph.Node
	Inputs resolve.Inputs
}

// Prompt returns the connected text, else the node's own prompt.
func (r Request) Prompt() string {
	return resolve.Effective(r.Inputs.Text, r.Node.Data.String(graph.FieldPrompt))
}

// Text returns the connected text, else the node's own text field.
func (r Request) Text() string {
	return resolve.Effective(r.Inputs.Text, r.Node.Data.String(graph.FieldText))
}

// Behavior executes one node type.
//
// Validate checks that required inputs are present and returns a
// *MissingInputError otherwise. Run performs at most one collaborator call
// and returns the output fields to merge into the node's data. Run must
// honor ctx cancellation.
type Behavior interface {
	Validate(req Request) error
	Run(ctx context.Context, req Request) (graph.Data, error)
}

// Cooldown is implemented by behaviors that wait after a successful run.
// The wait is not interrupted by cancellation; the next node's
// cancellation check observes a stop instead.
type Cooldown interface {
	Cooldown() time.Duration
}

// Local is implemented by behaviors that compute locally without calling a
// collaborator. The engine does not open a trace span for them.
type Local interface {
	Local()
}

// Registry maps node types to behaviors. It is safe for concurrent use.
type Registry struct {
	mu        sync.RWMutex
	behaviors map[graph.NodeType]Behavior
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{behaviors: make(map[graph.NodeType]Behavior)}
}

// Register adds or replaces the behavior for t.
func (r *Registry) Register(t graph.NodeType, b Behavior) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.behaviors[t] = b
}

// Get returns the behavior for t and whether it exists.
func (r *Registry) Get(t graph.NodeType) (Behavior, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.behaviors[t]
	return b, ok
}

// Has reports whether a behavior is registered for t.
func (r *Registry) Has(t graph.NodeType) bool {
	_, ok := r.Get(t)
	return ok
}

// Types returns the registered node types, sorted.
func (r *Registry) Types() []graph.NodeType {
	r.mu.RLock()
	defer r.mu.RUnlock()
	types := make([]graph.NodeType, 0, len(r.behaviors))
	for t := range r.behaviors {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	return types
}

// Len returns the number of registered behaviors.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.behaviors)
}
