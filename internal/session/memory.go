// ABOUTME: In-memory Checkpointer for tests and the "memory" backend
// ABOUTME: Applies the same optimistic version check as the durable drivers
package session

import (
	"context"
	"sync"
	"time"

	"github.com/harper/emergency-intake/internal/models"
)

// MemoryCheckpointer keeps checkpoints in a map
type MemoryCheckpointer struct {
	mu    sync.Mutex
	items map[string]*models.ConversationState
}

// NewMemoryCheckpointer creates an empty MemoryCheckpointer
func NewMemoryCheckpointer() *MemoryCheckpointer {
	return &MemoryCheckpointer{items: make(map[string]*models.ConversationState)}
}

// Load implements Checkpointer
func (m *MemoryCheckpointer) Load(_ context.Context, sessionID string) (*models.ConversationState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.items[sessionID]
	if !ok {
		return nil, nil
	}
	return st.Clone(), nil
}

// Save implements Checkpointer
func (m *MemoryCheckpointer) Save(_ context.Context, state *models.ConversationState) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var stored int64
	if cur, ok := m.items[state.SessionID]; ok {
		stored = cur.Version
	}
	if stored != state.Version-1 {
		return ErrVersionConflict
	}
	m.items[state.SessionID] = state.Clone()
	return nil
}

// Delete implements Checkpointer
func (m *MemoryCheckpointer) Delete(_ context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items, sessionID)
	return nil
}

// PurgeExpired drops checkpoints whose ExpiresAt is before now
func (m *MemoryCheckpointer) PurgeExpired(_ context.Context, now time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for id, st := range m.items {
		if !st.ExpiresAt.IsZero() && now.After(st.ExpiresAt) {
			delete(m.items, id)
			n++
		}
	}
	return n, nil
}

// Len returns the number of stored checkpoints
func (m *MemoryCheckpointer) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.items)
}
