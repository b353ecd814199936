package event

// Source is the source of every event the engine publishes.
const Source = "mediaflow"

// Event types published by the engine.
const (
	TypeGraphChanged       = "graph.changed"
	TypeNodeUpdated        = "node.updated"
	TypeHistoryChanged     = "history.changed"
	TypeExecutionStarted   = "execution.started"
	TypeNodeStarted        = "execution.node_started"
	TypeExecutionPaused    = "execution.paused"
	TypeExecutionCompleted = "execution.completed"
	TypeExecutionStopped   = "execution.stopped"
	TypeExecutionFailed    = "execution.failed"
	TypeNotice             = "notice"
)

// GraphChanged reports a structural edit.
type GraphChanged struct {
	Op        string `json:"op"`
	NodeCount int    `json:"node_count"`
	EdgeCount int    `json:"edge_count"`
}

// NodeUpdated reports a change to one node's data.
type NodeUpdated struct {
	NodeID string `json:"node_id"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// HistoryChanged reports the undo/redo availability after a change.
type HistoryChanged struct {
	CanUndo bool `json:"can_undo"`
	CanRedo bool `json:"can_redo"`
}

// Execution reports a run lifecycle transition.
type Execution struct {
	RunID  string `json:"run_id"`
	Mode   string `json:"mode"`
	NodeID string `json:"node_id,omitempty"`
	Error  string `json:"error,omitempty"`
}

// Notice is a user-visible message.
type Notice struct {
	Level   string `json:"level"`
	Message string `json:"message"`
	NodeID  string `json:"node_id,omitempty"`
}
