// ABOUTME: Session state store: write-through cache over a durable checkpointer
// ABOUTME: Serializes turns per session id and never lets cache and checkpoint diverge
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/harper/emergency-intake/internal/models"
)

var (
	// ErrCheckpoint means the durable write failed; the turn is not committed and may be retried
	ErrCheckpoint = errors.New("session: checkpoint write failed")

	// ErrVersionConflict means another writer committed first
	ErrVersionConflict = errors.New("session: version conflict")
)

// DefaultTTL is how long an idle anonymous session survives
const DefaultTTL = 24 * time.Hour

// Checkpointer is the durable persistence behind the store.
// Load returns nil, nil when the session does not exist.
// Save must reject the write with ErrVersionConflict unless the stored version is state.Version-1
// (or absent when state.Version is 1).
type Checkpointer interface {
	Load(ctx context.Context, sessionID string) (*models.ConversationState, error)
	Save(ctx context.Context, state *models.ConversationState) error
	Delete(ctx context.Context, sessionID string) error
}

// Store is the only mutable boundary for conversation state
type Store struct {
	checkpoints Checkpointer
	ttl         time.Duration
	now         func() time.Time
	logger      *slog.Logger

	mu    sync.Mutex
	cache map[string]*models.ConversationState
	locks map[string]*sessionLock
}

type sessionLock struct {
	mu   sync.Mutex
	refs int
}

// Option configures a Store
type Option func(*Store)

// WithTTL sets the idle expiry applied on every commit
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithClock overrides time.Now (tests)
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) { s.logger = logger }
}

// NewStore creates a Store over the given checkpointer
func NewStore(checkpoints Checkpointer, opts ...Option) *Store {
	s := &Store{
		checkpoints: checkpoints,
		ttl:         DefaultTTL,
		now:         time.Now,
		logger:      slog.Default(),
		cache:       make(map[string]*models.ConversationState),
		locks:       make(map[string]*sessionLock),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Lock serializes turns for one session id. Different ids never block each other.
// The returned function releases the lock.
func (s *Store) Lock(sessionID string) func() {
	s.mu.Lock()
	l, ok := s.locks[sessionID]
	if !ok {
		l = &sessionLock{}
		s.locks[sessionID] = l
	}
	l.refs++
	s.mu.Unlock()

	l.mu.Lock()

	return func() {
		l.mu.Unlock()
		s.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(s.locks, sessionID)
		}
		s.mu.Unlock()
	}
}

// Get returns a copy of the session, or nil if it does not exist or has expired
func (s *Store) Get(ctx context.Context, sessionID string) (*models.ConversationState, error) {
	s.mu.Lock()
	cached, ok := s.cache[sessionID]
	s.mu.Unlock()

	if ok {
		if s.expired(cached) {
			s.dropExpired(ctx, sessionID)
			return nil, nil
		}
		return cached.Clone(), nil
	}

	state, err := s.checkpoints.Load(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load session %s: %w", sessionID, err)
	}
	if state == nil {
		return nil, nil
	}
	if s.expired(state) {
		s.dropExpired(ctx, sessionID)
		return nil, nil
	}

	s.mu.Lock()
	s.cache[sessionID] = state.Clone()
	s.mu.Unlock()

	return state, nil
}

// Merge applies all updates of one turn to the current session (or a fresh one) and commits.
// The durable write happens first; the cache is only replaced after it succeeds.
func (s *Store) Merge(ctx context.Context, sessionID string, updates ...models.Update) (*models.ConversationState, error) {
	current, err := s.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	if current == nil {
		current = models.NewConversationState(sessionID, now)
	}

	next := Apply(current, updates...)
	next.Version = current.Version + 1
	next.UpdatedAt = now
	next.ExpiresAt = now.Add(s.ttl)

	if err := s.checkpoints.Save(ctx, next); err != nil {
		if errors.Is(err, ErrVersionConflict) {
			s.evict(sessionID)
			return nil, fmt.Errorf("session %s: %w", sessionID, ErrVersionConflict)
		}
		return nil, fmt.Errorf("%w: session %s: %v", ErrCheckpoint, sessionID, err)
	}

	s.mu.Lock()
	s.cache[sessionID] = next.Clone()
	s.mu.Unlock()

	return next, nil
}

// Clear removes the session from the durable store and the cache
func (s *Store) Clear(ctx context.Context, sessionID string) error {
	if err := s.checkpoints.Delete(ctx, sessionID); err != nil {
		return fmt.Errorf("failed to delete session %s: %w", sessionID, err)
	}
	s.evict(sessionID)
	return nil
}

// Evict drops the cached copy so the next read goes to the checkpointer
func (s *Store) Evict(sessionID string) {
	s.evict(sessionID)
}

// CacheSize returns the number of cached sessions
func (s *Store) CacheSize() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.cache)
}

// PruneCache drops cached sessions that have expired
func (s *Store) PruneCache() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for id, st := range s.cache {
		if s.expired(st) {
			delete(s.cache, id)
			n++
		}
	}
	return n
}

// dropExpired removes an expired session everywhere so the next Merge
// starts over at version 1
func (s *Store) dropExpired(ctx context.Context, sessionID string) {
	s.evict(sessionID)
	if err := s.checkpoints.Delete(ctx, sessionID); err != nil {
		s.logger.Warn("failed to delete expired session", "session_id", sessionID, "error", err)
	}
}

func (s *Store) evict(sessionID string) {
	s.mu.Lock()
	delete(s.cache, sessionID)
	s.mu.Unlock()
}

func (s *Store) expired(state *models.ConversationState) bool {
	return !state.ExpiresAt.IsZero() && s.now().After(state.ExpiresAt)
}
