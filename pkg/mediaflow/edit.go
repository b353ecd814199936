package mediaflow

import (
	"github.com/randalmurphal/mediaflow/pkg/mediaflow/graph"
)

// Structural edits. Each is recorded as one undo step when it changes the
// graph. Node data updates and moves are not recorded. While a run is
// active every structural edit is rejected.

// mutate applies fn and records the prior state if anything changed. It
// does nothing and returns false while a run is active.
func (e *Engine) mutate(op string, fn func()) bool {
	e.mu.Lock()
	if e.state.IsRunning {
		e.mu.Unlock()
		return false
	}
	before := e.graph.Snapshot()
	fn()
	changed := !graph.Same(before, e.graph.Snapshot())
	if changed {
		e.history.Record(before)
	}
	e.mu.Unlock()

	if changed {
		e.publishGraphChanged(op)
	}
	return changed
}

// AddNode adds a node of type t and returns it, or nil while a run is
// active.
func (e *Engine) AddNode(t graph.NodeType, pos graph.Position, fields map[string]any) *graph.Node {
	var n *graph.Node
	e.mutate("add_node", func() {
		n = e.graph.AddNode(t, pos, fields)
	})
	return n
}

// RemoveNode removes a node and its attached edges.
func (e *Engine) RemoveNode(id string) bool {
	return e.mutate("remove_node", func() {
		e.graph.RemoveNode(id)
	})
}

// RemoveNodes removes several nodes as a single undo step.
func (e *Engine) RemoveNodes(ids []string) int {
	e.BeginGroup()
	defer e.EndGroup()

	removed := 0
	for _, id := range ids {
		if e.RemoveNode(id) {
			removed++
		}
	}
	return removed
}

// Connect adds an edge. Duplicates, self-loops and unknown endpoints are
// rejected.
func (e *Engine) Connect(spec graph.EdgeSpec) (*graph.Edge, bool) {
	var (
		edge *graph.Edge
		ok   bool
	)
	e.mutate("connect", func() {
		edge, ok = e.graph.Connect(spec)
	})
	return edge, ok
}

// RemoveEdge removes an edge.
func (e *Engine) RemoveEdge(id string) bool {
	return e.mutate("remove_edge", func() {
		e.graph.RemoveEdge(id)
	})
}

// ToggleEdgePause flips an edge's pause flag.
func (e *Engine) ToggleEdgePause(id string) bool {
	return e.mutate("toggle_pause", func() {
		e.graph.ToggleEdgePause(id)
	})
}

// SetEdgeStyle changes the edge style.
func (e *Engine) SetEdgeStyle(style graph.EdgeStyle) bool {
	return e.mutate("edge_style", func() {
		e.graph.SetEdgeStyle(style)
	})
}

// Copy captures the selected nodes and the edges between them.
func (e *Engine) Copy(ids []string) *graph.Clipboard {
	return e.graph.Copy(ids)
}

// Paste inserts the clipboard shifted by the configured paste offset.
func (e *Engine) Paste() []*graph.Node {
	var pasted []*graph.Node
	e.BeginGroup()
	e.mutate("paste", func() {
		pasted = e.graph.Paste(e.settings.PasteDelta())
	})
	e.EndGroup()
	return pasted
}

// Load replaces the graph with a workflow as an undoable step. It reports
// whether the workflow was loaded; it is rejected while a run is active.
func (e *Engine) Load(wf *graph.Workflow) bool {
	if wf == nil {
		return false
	}
	loaded := false
	e.mutate("load", func() {
		loaded = true
		e.graph.Load(wf)
		if wf.ID != "" {
			e.workflowID = wf.ID
		}
		if wf.Name != "" {
			e.workflowName = wf.Name
		}
	})
	return loaded
}

// Clear removes every node and edge as an undoable step.
func (e *Engine) Clear() bool {
	return e.mutate("clear", func() {
		e.graph.Clear()
	})
}

// UpdateNodeData merges partial into a node's data. Not recorded in history.
func (e *Engine) UpdateNodeData(id string, partial graph.Data) bool {
	return e.nodes.UpdateNodeData(id, partial)
}

// MoveNode changes a node's position. Not recorded in history.
func (e *Engine) MoveNode(id string, pos graph.Position) bool {
	return e.graph.MoveNode(id, pos)
}

// ClearOutputs resets a node's status, error and results to idle.
func (e *Engine) ClearOutputs(id string) bool {
	return e.nodes.UpdateNodeData(id, graph.ClearedOutputs())
}

// BeginGroup starts a transactional group: every edit until the matching
// EndGroup becomes one undo step. Groups nest. No-op while running.
func (e *Engine) BeginGroup() {
	if e.running() {
		return
	}
	e.history.BeginGroup(e.graph.Snapshot())
}

// EndGroup closes a group. While a run is active the group is closed
// without recording an undo step.
func (e *Engine) EndGroup() {
	if e.running() {
		e.history.CloseGroup()
		return
	}
	if e.history.EndGroup(e.graph.Snapshot()) {
		e.publishHistoryChanged()
	}
}

// Undo restores the previous graph state. It returns false when there is
// nothing to undo or a run is active.
func (e *Engine) Undo() bool {
	return e.travel("undo", e.history.Undo)
}

// Redo reapplies an undone state. It returns false when there is nothing
// to redo or a run is active.
func (e *Engine) Redo() bool {
	return e.travel("redo", e.history.Redo)
}

// CanUndo reports whether Undo would do anything.
func (e *Engine) CanUndo() bool {
	return !e.running() && e.history.CanUndo()
}

// CanRedo reports whether Redo would do anything.
func (e *Engine) CanRedo() bool {
	return !e.running() && e.history.CanRedo()
}

func (e *Engine) travel(op string, step func(graph.Snapshot) (graph.Snapshot, bool)) bool {
	e.mu.Lock()
	if e.state.IsRunning {
		e.mu.Unlock()
		return false
	}
	target, ok := step(e.graph.Snapshot())
	if ok {
		e.graph.Restore(target)
		e.state = ExecutionState{}
	}
	e.mu.Unlock()

	if ok {
		e.publishGraphChanged(op)
	}
	return ok
}
