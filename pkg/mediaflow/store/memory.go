package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/randalmurphal/mediaflow/pkg/mediaflow/graph"
)

// MemoryRepository keeps workflows in process memory.
// Data is lost when the process exits.
type MemoryRepository struct {
	mu        sync.RWMutex
	workflows map[string]storedWorkflow
	meta      map[string]string
	closed    bool
}

type storedWorkflow struct {
	name      string
	data      []byte
	updatedAt time.Time
}

// NewMemoryRepository creates an empty in-memory repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		workflows: make(map[string]storedWorkflow),
		meta:      make(map[string]string),
	}
}

var _ Repository = (*MemoryRepository)(nil)

// ListWorkflows implements Repository.
func (m *MemoryRepository) ListWorkflows(_ context.Context) ([]Summary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrStoreClosed
	}

	out := make([]Summary, 0, len(m.workflows))
	for id, w := range m.workflows {
		out = append(out, Summary{ID: id, Name: w.name, UpdatedAt: w.updatedAt, Size: int64(len(w.data))})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	return out, nil
}

// LoadWorkflow implements Repository.
func (m *MemoryRepository) LoadWorkflow(_ context.Context, id string) (*graph.Workflow, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrStoreClosed
	}

	w, ok := m.workflows[id]
	if !ok {
		return nil, nil
	}
	return graph.UnmarshalWorkflow(w.data)
}

// SaveWorkflow implements Repository.
func (m *MemoryRepository) SaveWorkflow(_ context.Context, wf *graph.Workflow) error {
	data, err := encode(wf)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrStoreClosed
	}
	m.workflows[wf.ID] = storedWorkflow{name: wf.Name, data: data, updatedAt: time.Now().UTC()}
	return nil
}

// DeleteWorkflow implements Repository.
func (m *MemoryRepository) DeleteWorkflow(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrStoreClosed
	}
	delete(m.workflows, id)
	return nil
}

// GetMeta implements Repository.
func (m *MemoryRepository) GetMeta(_ context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return "", false, ErrStoreClosed
	}
	v, ok := m.meta[key]
	return v, ok, nil
}

// SetMeta implements Repository.
func (m *MemoryRepository) SetMeta(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrStoreClosed
	}
	m.meta[key] = value
	return nil
}

// Close implements Repository.
func (m *MemoryRepository) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}
