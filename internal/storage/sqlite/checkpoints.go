// ABOUTME: Session checkpoint persistence for SQLite
// ABOUTME: Optimistic version check on every save; expired rows are purged by the janitor
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/harper/emergency-intake/internal/models"
	"github.com/harper/emergency-intake/internal/session"
)

// CheckpointStore implements session.Checkpointer on the sessions table
type CheckpointStore struct {
	db *DB
}

// NewCheckpointStore creates a new CheckpointStore
func NewCheckpointStore(db *DB) *CheckpointStore {
	return &CheckpointStore{db: db}
}

// CheckpointInfo is a row summary for listing sessions
type CheckpointInfo struct {
	SessionID string
	UserID    string
	Version   int64
	Completed bool
	ExpiresAt time.Time
	UpdatedAt time.Time
}

// Load returns the stored state, or nil if the session does not exist
func (s *CheckpointStore) Load(ctx context.Context, sessionID string) (*models.ConversationState, error) {
	var data string
	err := s.db.QueryRowContext(ctx, `SELECT state FROM sessions WHERE session_id = ?`, sessionID).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var state models.ConversationState
	if err := json.Unmarshal([]byte(data), &state); err != nil {
		return nil, fmt.Errorf("failed to decode session %s: %w", sessionID, err)
	}
	return &state, nil
}

// Save writes state if the stored version is state.Version-1, or inserts it when Version is 1
func (s *CheckpointStore) Save(ctx context.Context, state *models.ConversationState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to encode session %s: %w", state.SessionID, err)
	}

	var expires int64
	if !state.ExpiresAt.IsZero() {
		expires = state.ExpiresAt.Unix()
	}

	var res sql.Result
	if state.Version <= 1 {
		res, err = s.db.ExecContext(ctx, `
			INSERT INTO sessions (session_id, user_id, version, state, completed, expires_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(session_id) DO NOTHING
		`, state.SessionID, nullString(state.UserID), state.Version, string(data), state.Completed, expires, state.UpdatedAt)
	} else {
		res, err = s.db.ExecContext(ctx, `
			UPDATE sessions
			SET user_id = ?, version = ?, state = ?, completed = ?, expires_at = ?, updated_at = ?
			WHERE session_id = ? AND version = ?
		`, nullString(state.UserID), state.Version, string(data), state.Completed, expires, state.UpdatedAt,
			state.SessionID, state.Version-1)
	}
	if err != nil {
		return err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return session.ErrVersionConflict
	}
	return nil
}

// Delete removes a session checkpoint
func (s *CheckpointStore) Delete(ctx context.Context, sessionID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE session_id = ?`, sessionID)
	return err
}

// PurgeExpired deletes checkpoints that expired before now
func (s *CheckpointStore) PurgeExpired(ctx context.Context, now time.Time) (int, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at > 0 AND expires_at < ?`, now.Unix())
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

// List returns checkpoint summaries, most recently updated first
func (s *CheckpointStore) List(ctx context.Context, limit int) ([]CheckpointInfo, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT session_id, user_id, version, completed, expires_at, updated_at
		FROM sessions
		ORDER BY updated_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []CheckpointInfo
	for rows.Next() {
		var (
			info    CheckpointInfo
			userID  sql.NullString
			expires int64
		)
		if err := rows.Scan(&info.SessionID, &userID, &info.Version, &info.Completed, &expires, &info.UpdatedAt); err != nil {
			return nil, err
		}
		info.UserID = userID.String
		if expires > 0 {
			info.ExpiresAt = time.Unix(expires, 0)
		}
		out = append(out, info)
	}
	return out, rows.Err()
}

// nullString converts empty strings to NULL
func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
