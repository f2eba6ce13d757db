// ABOUTME: Ticket persistence for SQLite
// ABOUTME: Creating or updating a ticket for a known user also refreshes that user's memory
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/harper/emergency-intake/internal/models"
)

// TicketStore persists finalized tickets
type TicketStore struct {
	db  *DB
	now func() time.Time
}

// NewTicketStore creates a new TicketStore
func NewTicketStore(db *DB) *TicketStore {
	return &TicketStore{db: db, now: time.Now}
}

// Create stores a new URGENT ticket for info and returns it with its generated id
func (s *TicketStore) Create(ctx context.Context, userID string, info models.TicketInfo) (*models.Ticket, error) {
	now := s.now()
	t := &models.Ticket{
		ID:        models.NewTicketID(now),
		UserID:    userID,
		Status:    models.TicketUrgent,
		Info:      info.Clone(),
		CreatedAt: now,
		UpdatedAt: now,
	}

	data, err := json.Marshal(t.Info)
	if err != nil {
		return nil, err
	}

	err = s.db.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO tickets (id, session_id, user_id, status, info, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, t.ID, info.SessionID, nullString(userID), string(t.Status), string(data), t.CreatedAt, t.UpdatedAt); err != nil {
			return fmt.Errorf("failed to insert ticket: %w", err)
		}
		return recordInMemory(ctx, tx, t)
	})
	if err != nil {
		return nil, err
	}
	return t, nil
}

// Get returns a ticket by id, or nil if it does not exist
func (s *TicketStore) Get(ctx context.Context, id string) (*models.Ticket, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, status, info, created_at, updated_at FROM tickets WHERE id = ?
	`, id)
	t, err := scanTicket(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return t, err
}

// ListByUser returns a user's tickets, newest first
func (s *TicketStore) ListByUser(ctx context.Context, userID string, limit int) ([]models.Ticket, error) {
	if limit <= 0 {
		limit = models.MaxRecentTickets
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, status, info, created_at, updated_at
		FROM tickets
		WHERE user_id = ?
		ORDER BY created_at DESC
		LIMIT ?
	`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []models.Ticket
	for rows.Next() {
		t, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}

// UpdateStatus changes a ticket's dispatch status
func (s *TicketStore) UpdateStatus(ctx context.Context, id string, status models.TicketStatus) error {
	return s.db.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `UPDATE tickets SET status = ?, updated_at = ? WHERE id = ?`,
			string(status), s.now(), id)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("ticket %s not found", id)
		}

		t, err := scanTicket(tx.QueryRowContext(ctx, `
			SELECT id, user_id, status, info, created_at, updated_at FROM tickets WHERE id = ?
		`, id))
		if err != nil {
			return err
		}
		return recordInMemory(ctx, tx, t)
	})
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTicket(row scanner) (*models.Ticket, error) {
	var (
		t      models.Ticket
		userID sql.NullString
		status string
		info   string
	)
	if err := row.Scan(&t.ID, &userID, &status, &info, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return nil, err
	}
	t.UserID = userID.String
	t.Status = models.TicketStatus(status)
	if err := json.Unmarshal([]byte(info), &t.Info); err != nil {
		return nil, fmt.Errorf("failed to decode ticket %s: %w", t.ID, err)
	}
	return &t, nil
}

func recordInMemory(ctx context.Context, q querier, t *models.Ticket) error {
	if t.UserID == "" {
		return nil
	}
	m, err := loadMemory(ctx, q, t.UserID)
	if err != nil {
		return err
	}
	if m == nil {
		m = &models.UserMemory{UserID: t.UserID}
	}
	m.RecordTicket(*t)
	return saveMemory(ctx, q, m)
}
