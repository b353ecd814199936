// Package history implements bounded undo/redo over graph snapshots with
// grouped transactions.
//
// Snapshots are compared by identity (graph.Same), so checking whether a
// group changed anything is O(1).
package history

import (
	"sync"

	"github.com/randalmurphal/mediaflow/pkg/mediaflow/graph"
)

// DefaultCapacity is the number of undo steps kept when none is configured.
const DefaultCapacity = 50

// Manager holds the past and future stacks.
//
// The caller owns the live state: Record receives the state captured before
// a mutation, and Undo/Redo receive the current state and return the state
// to restore.
type Manager struct {
	mu         sync.Mutex
	past       []graph.Snapshot
	future     []graph.Snapshot
	capacity   int
	depth      int
	groupStart graph.Snapshot
}

// New creates a manager keeping at most capacity undo steps. A capacity
// below 1 uses DefaultCapacity.
func New(capacity int) *Manager {
	if capacity < 1 {
		capacity = DefaultCapacity
	}
	return &Manager{capacity: capacity}
}

// Record pushes the state captured before a mutation and clears the redo
// stack. It does nothing inside a group, since the group records once when
// it ends. Returns whether an entry was pushed.
func (m *Manager) Record(before graph.Snapshot) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.depth > 0 {
		return false
	}
	return m.push(before)
}

// BeginGroup opens a transaction. Groups nest; only the outermost captures
// current as the state to return to.
func (m *Manager) BeginGroup(current graph.Snapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.depth++
	if m.depth == 1 {
		m.groupStart = current
	}
}

// EndGroup closes a transaction. When the outermost group ends and current
// differs from the state captured at its start, one entry is pushed for the
// whole group. Returns whether an entry was pushed. Unbalanced calls are
// ignored.
func (m *Manager) EndGroup(current graph.Snapshot) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.depth == 0 {
		return false
	}
	m.depth--
	if m.depth > 0 {
		return false
	}
	start := m.groupStart
	m.groupStart = graph.Snapshot{}
	if graph.Same(start, current) {
		return false
	}
	return m.push(start)
}

// CloseGroup closes a transaction like EndGroup but never pushes an entry.
// Unbalanced calls are ignored.
func (m *Manager) CloseGroup() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.depth == 0 {
		return
	}
	m.depth--
	if m.depth == 0 {
		m.groupStart = graph.Snapshot{}
	}
}

// InGroup reports whether a group is open.
func (m *Manager) InGroup() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.depth > 0
}

// Undo pops the most recent entry, pushes current onto the redo stack and
// returns the state to restore. Returns false if there is nothing to undo.
func (m *Manager) Undo(current graph.Snapshot) (graph.Snapshot, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.past) == 0 {
		return graph.Snapshot{}, false
	}
	prev := m.past[len(m.past)-1]
	m.past = m.past[:len(m.past)-1]
	m.future = append(m.future, current)
	return prev, true
}

// Redo is the inverse of Undo.
func (m *Manager) Redo(current graph.Snapshot) (graph.Snapshot, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.future) == 0 {
		return graph.Snapshot{}, false
	}
	next := m.future[len(m.future)-1]
	m.future = m.future[:len(m.future)-1]
	m.past = append(m.past, current)
	m.evict()
	return next, true
}

// CanUndo reports whether Undo would succeed.
func (m *Manager) CanUndo() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.past) > 0
}

// CanRedo reports whether Redo would succeed.
func (m *Manager) CanRedo() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.future) > 0
}

// Len returns the sizes of the undo and redo stacks.
func (m *Manager) Len() (past, future int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.past), len(m.future)
}

// Clear drops both stacks and any open group.
func (m *Manager) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.past = nil
	m.future = nil
	m.depth = 0
	m.groupStart = graph.Snapshot{}
}

// push must be called with m.mu held. Consecutive identical snapshots are
// collapsed.
func (m *Manager) push(s graph.Snapshot) bool {
	m.future = nil
	if n := len(m.past); n > 0 && graph.Same(m.past[n-1], s) {
		return false
	}
	m.past = append(m.past, s)
	m.evict()
	return true
}

func (m *Manager) evict() {
	if over := len(m.past) - m.capacity; over > 0 {
		m.past = append([]graph.Snapshot(nil), m.past[over:]...)
	}
}
