package graph

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
)

// Store owns the canonical node and edge collections of one workflow.
//
// Store is safe for concurrent use. Published slices are never modified:
// every mutation builds fresh slices, so a Snapshot taken before a mutation
// keeps observing the old state and Same can compare snapshots in O(1).
//
// Store does not record history; callers that want undo wrap structural
// mutations (see the history package).
type Store struct {
	mu        sync.RWMutex
	nodes     []*Node
	edges     []*Edge
	edgeStyle EdgeStyle
	counter   int
	edgeSeq   int
	clipboard *Clipboard
}

// NewStore creates an empty store using the given edge style.
func NewStore(style EdgeStyle) *Store {
	if style == "" {
		style = EdgeStyleBezier
	}
	return &Store{edgeStyle: style}
}

// Snapshot returns the current undoable state.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{Nodes: s.nodes, Edges: s.edges, EdgeStyle: s.edgeStyle}
}

// Restore replaces the live state with snap. The id counter only moves
// forward so ids minted after an undo never collide with redo targets.
func (s *Store) Restore(snap Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nodes = snap.Nodes
	s.edges = snap.Edges
	s.edgeStyle = snap.EdgeStyle
	if c := maxCounter(snap.Nodes); c > s.counter {
		s.counter = c
	}
}

// Nodes returns the current nodes. The slice must not be modified.
func (s *Store) Nodes() []*Node {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.nodes
}

// Edges returns the current edges. The slice must not be modified.
func (s *Store) Edges() []*Edge {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.edges
}

// EdgeStyle returns the current edge style.
func (s *Store) EdgeStyle() EdgeStyle {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.edgeStyle
}

// Node returns the node with the given id.
func (s *Store) Node(id string) (*Node, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i := indexOfNode(s.nodes, id)
	if i < 0 {
		return nil, false
	}
	return s.nodes[i], true
}

// Incoming returns the edges targeting id, in edge order.
func (s *Store) Incoming(id string) []*Edge {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var in []*Edge
	for _, e := range s.edges {
		if e.Target == id {
			in = append(in, e)
		}
	}
	return in
}

// AddNode creates a node of the given type with a freshly minted id.
func (s *Store) AddNode(t NodeType, pos Position, fields map[string]any) *Node {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := &Node{
		ID:       s.mintID(t),
		Type:     t,
		Position: pos,
		Data:     NewData(fields),
	}
	s.nodes = appendCopy(s.nodes, n)
	return n
}

// RemoveNode deletes a node and every edge attached to it.
// Returns false if the node does not exist.
func (s *Store) RemoveNode(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := indexOfNode(s.nodes, id)
	if i < 0 {
		return false
	}
	s.nodes = removeAt(s.nodes, i)
	s.edges = filter(s.edges, func(e *Edge) bool {
		return e.Source != id && e.Target != id
	})
	return true
}

// UpdateNodeData merges partial into the node's data. An unknown id is a
// silent no-op and reports false.
func (s *Store) UpdateNodeData(id string, partial Data) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := indexOfNode(s.nodes, id)
	if i < 0 {
		return false
	}
	next := make([]*Node, len(s.nodes))
	copy(next, s.nodes)
	next[i] = s.nodes[i].with(s.nodes[i].Data.Merge(partial))
	s.nodes = next
	return true
}

// MoveNode sets a node's position.
func (s *Store) MoveNode(id string, pos Position) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := indexOfNode(s.nodes, id)
	if i < 0 {
		return false
	}
	next := make([]*Node, len(s.nodes))
	copy(next, s.nodes)
	moved := *s.nodes[i]
	moved.Position = pos
	next[i] = &moved
	s.nodes = next
	return true
}

// ClearOutputs resets a node to idle and drops its produced outputs.
func (s *Store) ClearOutputs(id string) bool {
	return s.UpdateNodeData(id, ClearedOutputs())
}

// Connect adds an edge. Self loops, dangling endpoints and exact duplicates
// are rejected and return (nil, false).
func (s *Store) Connect(spec EdgeSpec) (*Edge, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if spec.Source == spec.Target {
		return nil, false
	}
	if indexOfNode(s.nodes, spec.Source) < 0 || indexOfNode(s.nodes, spec.Target) < 0 {
		return nil, false
	}
	for _, e := range s.edges {
		if e.Source == spec.Source && e.Target == spec.Target &&
			e.SourcePort() == spec.SourceHandle && e.TargetPort() == spec.TargetHandle {
			return nil, false
		}
	}

	s.edgeSeq++
	e := &Edge{
		ID:           edgeID(spec, s.edgeSeq),
		Source:       spec.Source,
		Target:       spec.Target,
		SourceHandle: handlePtr(spec.SourceHandle),
		TargetHandle: handlePtr(spec.TargetHandle),
		Data:         EdgeData{HasPause: spec.HasPause},
	}
	s.edges = appendCopy(s.edges, e)
	return e, true
}

// RemoveEdge deletes an edge. Returns false if it does not exist.
func (s *Store) RemoveEdge(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := indexOfEdge(s.edges, id)
	if i < 0 {
		return false
	}
	s.edges = removeAt(s.edges, i)
	return true
}

// ToggleEdgePause flips the pause flag of an edge.
func (s *Store) ToggleEdgePause(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := indexOfEdge(s.edges, id)
	if i < 0 {
		return false
	}
	next := make([]*Edge, len(s.edges))
	copy(next, s.edges)
	toggled := *s.edges[i]
	toggled.Data.HasPause = !toggled.Data.HasPause
	next[i] = &toggled
	s.edges = next
	return true
}

// SetEdgeStyle changes the edge style.
func (s *Store) SetEdgeStyle(style EdgeStyle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.edgeStyle = style
}

// Load replaces the whole graph with the workflow's contents and re-derives
// the id counter from the loaded node ids.
func (s *Store) Load(wf *Workflow) {
	s.mu.Lock()
	defer s.mu.Unlock()

	nodes := make([]*Node, 0, len(wf.Nodes))
	for _, n := range wf.Nodes {
		cp := *n
		if cp.Data == nil {
			cp.Data = NewData(nil)
		}
		nodes = append(nodes, &cp)
	}
	edges := make([]*Edge, 0, len(wf.Edges))
	for _, e := range wf.Edges {
		cp := *e
		edges = append(edges, &cp)
	}

	s.nodes = nodes
	s.edges = edges
	if wf.EdgeStyle != "" {
		s.edgeStyle = wf.EdgeStyle
	}
	s.counter = maxCounter(nodes)
	s.edgeSeq = 0
}

// Clear removes every node and edge. The id counter is kept so ids minted
// afterwards never collide with nodes an undo may bring back.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nodes = nil
	s.edges = nil
}

// Counter returns the current id counter.
func (s *Store) Counter() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.counter
}

// mintID must be called with s.mu held.
func (s *Store) mintID(t NodeType) string {
	s.counter++
	return fmt.Sprintf("%s-%d", t, s.counter)
}

// IDCounter extracts the numeric suffix of a node id ("generateImage-12" -> 12).
func IDCounter(id string) (int, bool) {
	i := strings.LastIndexByte(id, '-')
	if i < 0 || i == len(id)-1 {
		return 0, false
	}
	n, err := strconv.Atoi(id[i+1:])
	if err != nil {
		return 0, false
	}
	return n, true
}

func maxCounter(nodes []*Node) int {
	highest := 0
	for _, n := range nodes {
		if c, ok := IDCounter(n.ID); ok && c > highest {
			highest = c
		}
	}
	return highest
}

func edgeID(spec EdgeSpec, seq int) string {
	return fmt.Sprintf("e-%s-%s-%s-%s-%d", spec.Source, spec.SourceHandle, spec.Target, spec.TargetHandle, seq)
}

func handlePtr(h Handle) *string {
	if h == "" {
		return nil
	}
	s := string(h)
	return &s
}

func indexOfNode(nodes []*Node, id string) int {
	for i, n := range nodes {
		if n.ID == id {
			return i
		}
	}
	return -1
}

func indexOfEdge(edges []*Edge, id string) int {
	for i, e := range edges {
		if e.ID == id {
			return i
		}
	}
	return -1
}

func appendCopy[T any](s []*T, items ...*T) []*T {
	out := make([]*T, 0, len(s)+len(items))
	out = append(out, s...)
	return append(out, items...)
}

func removeAt[T any](s []*T, i int) []*T {
	out := make([]*T, 0, len(s)-1)
	out = append(out, s[:i]...)
	return append(out, s[i+1:]...)
}

func filter[T any](s []*T, keep func(*T) bool) []*T {
	out := make([]*T, 0, len(s))
	for _, v := range s {
		if keep(v) {
			out = append(out, v)
		}
	}
	return out
}
