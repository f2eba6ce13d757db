// ABOUTME: Tests for the document watcher using a real temp directory
// ABOUTME: Checks document filtering, removals, and pickup of newly created directories

package watcher

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func startWatcher(t *testing.T, root string) <-chan Change {
	t.Helper()
	changed := make(chan Change, 16)
	svc, err := New(root, nil, func(_ context.Context, c Change) {
		changed <- c
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Start(ctx) }()
	t.Cleanup(func() {
		cancel()
		if err := <-done; err != nil {
			t.Errorf("Start() error = %v", err)
		}
	})
	return changed
}

func waitFor(t *testing.T, changed <-chan Change, want Change) {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		select {
		case got := <-changed:
			if got == want {
				return
			}
		case <-deadline:
			t.Fatalf("no change reported for %+v", want)
		}
	}
}

func TestService_ReportsDocuments(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "MEDICAL")
	if err := os.Mkdir(dir, 0o755); err != nil {
		t.Fatalf("Mkdir() error = %v", err)
	}
	changed := startWatcher(t, root)

	if err := os.WriteFile(filepath.Join(dir, "notes.png"), []byte("x"), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	doc := filepath.Join(dir, "burns.md")
	if err := os.WriteFile(doc, []byte("# Bỏng\nLàm mát vết bỏng bằng nước sạch."), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	waitFor(t, changed, Change{Path: doc})

	for {
		select {
		case got := <-changed:
			if filepath.Ext(got.Path) == ".png" {
				t.Errorf("non-document reported: %+v", got)
			}
		default:
			return
		}
	}
}

func TestService_WatchesNewDirectories(t *testing.T) {
	root := t.TempDir()
	changed := startWatcher(t, root)

	dir := filepath.Join(root, "FIRE_RESCUE")
	if err := os.Mkdir(dir, 0o755); err != nil {
		t.Fatalf("Mkdir() error = %v", err)
	}

	doc := filepath.Join(dir, "smoke.txt")
	deadline := time.Now().Add(5 * time.Second)
	// the directory watch is added asynchronously, so rewrite until it is seen
	for {
		if err := os.WriteFile(doc, []byte("Cúi thấp người khi có khói."), 0o644); err != nil {
			t.Fatalf("WriteFile() error = %v", err)
		}
		select {
		case got := <-changed:
			if got.Path == doc && !got.Removed {
				return
			}
		case <-time.After(100 * time.Millisecond):
		}
		if time.Now().After(deadline) {
			t.Fatalf("no change reported for %s", doc)
		}
	}
}

func TestService_ReportsRemovals(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "SECURITY")
	if err := os.Mkdir(dir, 0o755); err != nil {
		t.Fatalf("Mkdir() error = %v", err)
	}
	removed := filepath.Join(dir, "robbery.md")
	renamed := filepath.Join(dir, "theft.md")
	for _, p := range []string{removed, renamed} {
		if err := os.WriteFile(p, []byte("Giữ khoảng cách an toàn."), 0o644); err != nil {
			t.Fatalf("WriteFile() error = %v", err)
		}
	}
	changed := startWatcher(t, root)

	if err := os.Remove(removed); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	waitFor(t, changed, Change{Path: removed, Removed: true})

	target := filepath.Join(dir, "theft.txt")
	if err := os.Rename(renamed, target); err != nil {
		t.Fatalf("Rename() error = %v", err)
	}
	waitFor(t, changed, Change{Path: renamed, Removed: true})
}

func TestNew_MissingRoot(t *testing.T) {
	if _, err := New(filepath.Join(t.TempDir(), "missing"), nil, func(context.Context, Change) {}); err == nil {
		t.Error("New() should fail for a missing root")
	}
}
