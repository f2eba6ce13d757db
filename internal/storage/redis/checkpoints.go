// ABOUTME: Redis-backed session checkpoints with optimistic locking
// ABOUTME: Keys expire with the session, so no janitor is needed for this backend
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/harper/emergency-intake/internal/models"
	"github.com/harper/emergency-intake/internal/session"
)

const keyPrefix = "intake:session:"

// CheckpointStore implements session.Checkpointer on Redis
type CheckpointStore struct {
	client *goredis.Client
	now    func() time.Time
}

// Open parses a redis:// URL, connects, and pings the server
func Open(ctx context.Context, url string) (*CheckpointStore, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	client := goredis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to reach redis: %w", err)
	}
	return New(client), nil
}

// New wraps an existing client
func New(client *goredis.Client) *CheckpointStore {
	return &CheckpointStore{client: client, now: time.Now}
}

// Load returns the stored state, or nil if the key is absent
func (s *CheckpointStore) Load(ctx context.Context, sessionID string) (*models.ConversationState, error) {
	val, err := s.client.Get(ctx, key(sessionID)).Result()
	if errors.Is(err, goredis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var state models.ConversationState
	if err := json.Unmarshal([]byte(val), &state); err != nil {
		return nil, fmt.Errorf("failed to decode session %s: %w", sessionID, err)
	}
	return &state, nil
}

// Save writes state under WATCH, rejecting it unless the stored version is state.Version-1
func (s *CheckpointStore) Save(ctx context.Context, state *models.ConversationState) error {
	k := key(state.SessionID)
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to encode session %s: %w", state.SessionID, err)
	}
	ttl := s.ttlFor(state)

	err = s.client.Watch(ctx, func(tx *goredis.Tx) error {
		var stored int64
		val, err := tx.Get(ctx, k).Result()
		switch {
		case errors.Is(err, goredis.Nil):
		case err != nil:
			return err
		default:
			var cur struct {
				Version int64 `json:"version"`
			}
			if err := json.Unmarshal([]byte(val), &cur); err != nil {
				return err
			}
			stored = cur.Version
		}

		if stored != state.Version-1 {
			return session.ErrVersionConflict
		}

		_, err = tx.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
			pipe.Set(ctx, k, data, ttl)
			return nil
		})
		return err
	}, k)

	if errors.Is(err, goredis.TxFailedErr) {
		return session.ErrVersionConflict
	}
	return err
}

// Delete removes a session key
func (s *CheckpointStore) Delete(ctx context.Context, sessionID string) error {
	return s.client.Del(ctx, key(sessionID)).Err()
}

// Close closes the client
func (s *CheckpointStore) Close() error {
	return s.client.Close()
}

// ttlFor maps ExpiresAt onto a key TTL; zero means no expiry
func (s *CheckpointStore) ttlFor(state *models.ConversationState) time.Duration {
	if state.ExpiresAt.IsZero() {
		return 0
	}
	ttl := state.ExpiresAt.Sub(s.now())
	if ttl < time.Second {
		ttl = time.Second
	}
	return ttl
}

func key(sessionID string) string {
	return keyPrefix + sessionID
}
