// ABOUTME: Tests for session checkpoint persistence
// ABOUTME: Verifies round trips, version conflicts, expiry purge, and listing

package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/harper/emergency-intake/internal/models"
	"github.com/harper/emergency-intake/internal/session"
)

func TestCheckpointStore_SaveLoad(t *testing.T) {
	ctx := context.Background()
	store := NewCheckpointStore(newTestDB(t))

	now := time.Now()
	st := models.NewConversationState("s1", now)
	st.Version = 1
	st.Phone = "0912345678"
	st.EmergencyTypes = []models.Category{models.CategoryFireRescue}
	st.ExpiresAt = now.Add(time.Hour)

	if err := store.Save(ctx, st); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	got, err := store.Load(ctx, "s1")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got == nil {
		t.Fatal("Load() returned nil")
	}
	if got.Phone != "0912345678" || got.Version != 1 {
		t.Errorf("Load() = phone %q version %d", got.Phone, got.Version)
	}
	if len(got.EmergencyTypes) != 1 || got.EmergencyTypes[0] != models.CategoryFireRescue {
		t.Errorf("EmergencyTypes = %v", got.EmergencyTypes)
	}
}

func TestCheckpointStore_LoadMissing(t *testing.T) {
	store := NewCheckpointStore(newTestDB(t))
	got, err := store.Load(context.Background(), "nope")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got != nil {
		t.Errorf("Load() = %v, want nil", got)
	}
}

func TestCheckpointStore_VersionConflict(t *testing.T) {
	ctx := context.Background()
	store := NewCheckpointStore(newTestDB(t))

	st := models.NewConversationState("s1", time.Now())
	st.Version = 1
	if err := store.Save(ctx, st); err != nil {
		t.Fatalf("Save() v1 error = %v", err)
	}

	// A second writer starting from an empty session
	dup := st.Clone()
	if err := store.Save(ctx, dup); !errors.Is(err, session.ErrVersionConflict) {
		t.Errorf("duplicate v1 Save() error = %v, want ErrVersionConflict", err)
	}

	st.Version = 2
	if err := store.Save(ctx, st); err != nil {
		t.Fatalf("Save() v2 error = %v", err)
	}

	stale := st.Clone()
	stale.Version = 2
	if err := store.Save(ctx, stale); !errors.Is(err, session.ErrVersionConflict) {
		t.Errorf("stale Save() error = %v, want ErrVersionConflict", err)
	}

	skipped := st.Clone()
	skipped.Version = 5
	if err := store.Save(ctx, skipped); !errors.Is(err, session.ErrVersionConflict) {
		t.Errorf("skipping Save() error = %v, want ErrVersionConflict", err)
	}
}

func TestCheckpointStore_DeleteThenRestart(t *testing.T) {
	ctx := context.Background()
	store := NewCheckpointStore(newTestDB(t))

	st := models.NewConversationState("s1", time.Now())
	st.Version = 1
	if err := store.Save(ctx, st); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if err := store.Delete(ctx, "s1"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if err := store.Save(ctx, st); err != nil {
		t.Fatalf("Save() after Delete() error = %v", err)
	}
}

func TestCheckpointStore_PurgeExpired(t *testing.T) {
	ctx := context.Background()
	store := NewCheckpointStore(newTestDB(t))
	now := time.Now()

	old := models.NewConversationState("old", now)
	old.Version = 1
	old.ExpiresAt = now.Add(-time.Hour)

	fresh := models.NewConversationState("fresh", now)
	fresh.Version = 1
	fresh.ExpiresAt = now.Add(time.Hour)

	for _, st := range []*models.ConversationState{old, fresh} {
		if err := store.Save(ctx, st); err != nil {
			t.Fatalf("Save(%s) error = %v", st.SessionID, err)
		}
	}

	n, err := store.PurgeExpired(ctx, now)
	if err != nil {
		t.Fatalf("PurgeExpired() error = %v", err)
	}
	if n != 1 {
		t.Errorf("PurgeExpired() = %d, want 1", n)
	}
	if got, _ := store.Load(ctx, "fresh"); got == nil {
		t.Error("fresh session should survive the purge")
	}
}

func TestCheckpointStore_WithSessionStore(t *testing.T) {
	ctx := context.Background()
	checkpoints := NewCheckpointStore(newTestDB(t))
	store := session.NewStore(checkpoints)

	phone := "0912345678"
	if _, err := store.Merge(ctx, "s1", models.Update{Phone: &phone}); err != nil {
		t.Fatalf("Merge() error = %v", err)
	}
	if _, err := store.Merge(ctx, "s1", models.Update{Description: "cháy nhà"}); err != nil {
		t.Fatalf("second Merge() error = %v", err)
	}

	store.Evict("s1")
	got, err := store.Get(ctx, "s1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Version != 2 || got.Phone != phone {
		t.Errorf("Get() = version %d phone %q", got.Version, got.Phone)
	}

	list, err := checkpoints.List(ctx, 10)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(list) != 1 || list[0].SessionID != "s1" {
		t.Errorf("List() = %+v", list)
	}
}
