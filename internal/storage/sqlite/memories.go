// ABOUTME: User memory persistence for SQLite
// ABOUTME: One JSON document per authenticated user
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/harper/emergency-intake/internal/models"
)

// querier is satisfied by *sql.DB and *sql.Tx
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// MemoryStore reads and writes user memory
type MemoryStore struct {
	db *DB
}

// NewMemoryStore creates a new MemoryStore
func NewMemoryStore(db *DB) *MemoryStore {
	return &MemoryStore{db: db}
}

// Get returns the memory for userID, or nil if none exists
func (s *MemoryStore) Get(ctx context.Context, userID string) (*models.UserMemory, error) {
	return loadMemory(ctx, s.db.conn, userID)
}

// Save replaces the memory for m.UserID
func (s *MemoryStore) Save(ctx context.Context, m *models.UserMemory) error {
	return saveMemory(ctx, s.db.conn, m)
}

func loadMemory(ctx context.Context, q querier, userID string) (*models.UserMemory, error) {
	var data string
	err := q.QueryRowContext(ctx, `SELECT memory FROM user_memory WHERE user_id = ?`, userID).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var m models.UserMemory
	if err := json.Unmarshal([]byte(data), &m); err != nil {
		return nil, fmt.Errorf("failed to decode memory for %s: %w", userID, err)
	}
	return &m, nil
}

func saveMemory(ctx context.Context, q querier, m *models.UserMemory) error {
	if m.UserID == "" {
		return fmt.Errorf("user memory requires a user id")
	}
	if m.UpdatedAt.IsZero() {
		m.UpdatedAt = time.Now()
	}
	data, err := json.Marshal(m)
	if err != nil {
		return err
	}
	_, err = q.ExecContext(ctx, `
		INSERT INTO user_memory (user_id, memory, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			memory = excluded.memory,
			updated_at = excluded.updated_at
	`, m.UserID, string(data), m.UpdatedAt)
	return err
}
