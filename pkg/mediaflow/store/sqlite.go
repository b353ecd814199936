package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/randalmurphal/mediaflow/pkg/mediaflow/graph"
	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// SQLiteRepository persists workflows to SQLite.
// It is suitable for single-process use.
type SQLiteRepository struct {
	db     *sql.DB
	mu     sync.RWMutex
	closed bool
}

var _ Repository = (*SQLiteRepository)(nil)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS workflows (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		data BLOB NOT NULL,
		updated_at TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_workflows_updated_at ON workflows(updated_at)`,
	`CREATE TABLE IF NOT EXISTS meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	)`,
}

// NewSQLiteRepository opens or creates the database at path.
// Use ":memory:" for a throwaway database.
func NewSQLiteRepository(path string) (*SQLiteRepository, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// One connection: a :memory: database is private to its connection.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}
	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("create schema: %w", err)
		}
	}
	return &SQLiteRepository{db: db}, nil
}

// ListWorkflows implements Repository.
func (s *SQLiteRepository) ListWorkflows(ctx context.Context) ([]Summary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrStoreClosed
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, updated_at, LENGTH(data)
		FROM workflows
		ORDER BY updated_at DESC, id
	`)
	if err != nil {
		return nil, fmt.Errorf("list workflows: %w", err)
	}
	defer rows.Close()

	var out []Summary
	for rows.Next() {
		var sum Summary
		var updated string
		if err := rows.Scan(&sum.ID, &sum.Name, &updated, &sum.Size); err != nil {
			return nil, fmt.Errorf("scan workflow summary: %w", err)
		}
		sum.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updated)
		out = append(out, sum)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate workflows: %w", err)
	}
	return out, nil
}

// LoadWorkflow implements Repository.
func (s *SQLiteRepository) LoadWorkflow(ctx context.Context, id string) (*graph.Workflow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrStoreClosed
	}

	var data []byte
	err := s.db.QueryRowContext(ctx, `SELECT data FROM workflows WHERE id = ?`, id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load workflow: %w", err)
	}
	wf, err := graph.UnmarshalWorkflow(data)
	if err != nil {
		return nil, fmt.Errorf("load workflow %s: %w", id, err)
	}
	return wf, nil
}

// SaveWorkflow implements Repository.
func (s *SQLiteRepository) SaveWorkflow(ctx context.Context, wf *graph.Workflow) error {
	data, err := encode(wf)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO workflows (id, name, data, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			data = excluded.data,
			updated_at = excluded.updated_at
	`, wf.ID, wf.Name, data, time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("save workflow: %w", err)
	}
	return nil
}

// DeleteWorkflow implements Repository.
func (s *SQLiteRepository) DeleteWorkflow(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM workflows WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete workflow: %w", err)
	}
	return nil
}

// GetMeta implements Repository.
func (s *SQLiteRepository) GetMeta(ctx context.Context, key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return "", false, ErrStoreClosed
	}

	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM meta WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get meta: %w", err)
	}
	return value, true, nil
}

// SetMeta implements Repository.
func (s *SQLiteRepository) SetMeta(ctx context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO meta (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	if err != nil {
		return fmt.Errorf("set meta: %w", err)
	}
	return nil
}

// Close implements Repository. Closing twice is safe.
func (s *SQLiteRepository) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}
