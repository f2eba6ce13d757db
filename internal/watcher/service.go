// ABOUTME: Watches the reference document tree and reports changed and removed documents
// ABOUTME: New category directories are picked up as they appear
package watcher

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/harper/emergency-intake/internal/retrieval"
)

// Change is one document event. Removed is set when the path no longer exists
// after a remove or a rename away.
type Change struct {
	Path    string
	Removed bool
}

// Service reports writes to and removals of indexable documents below root
type Service struct {
	root     string
	logger   *slog.Logger
	onChange func(context.Context, Change)
	watcher  *fsnotify.Watcher
}

// New watches root and every directory below it. Watching starts
// immediately; events are delivered once Start runs.
func New(root string, logger *slog.Logger, onChange func(context.Context, Change)) (*Service, error) {
	if logger == nil {
		logger = slog.Default()
	}
	fileWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create fsnotify watcher: %w", err)
	}
	s := &Service{
		root:     root,
		logger:   logger,
		onChange: onChange,
		watcher:  fileWatcher,
	}
	if err := s.addRecursive(root); err != nil {
		_ = fileWatcher.Close()
		return nil, err
	}
	return s, nil
}

// Start delivers events until ctx ends
func (s *Service) Start(ctx context.Context) error {
	defer s.watcher.Close()
	s.logger.Info("document watcher started", "root", s.root)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("document watcher stopped")
			return nil
		case event, ok := <-s.watcher.Events:
			if !ok {
				return nil
			}
			s.handleEvent(ctx, event)
		case err, ok := <-s.watcher.Errors:
			if !ok {
				return nil
			}
			if err != nil {
				s.logger.Error("file watcher error", "error", err)
			}
		}
	}
}

func (s *Service) addRecursive(root string) error {
	return filepath.WalkDir(root, func(path string, entry os.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if !entry.IsDir() {
			return nil
		}
		if err := s.watcher.Add(path); err != nil {
			return fmt.Errorf("watch path %s: %w", path, err)
		}
		return nil
	})
}

func (s *Service) handleEvent(ctx context.Context, event fsnotify.Event) {
	if event.Op&fsnotify.Create == fsnotify.Create {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := s.addRecursive(event.Name); err != nil {
				s.logger.Error("failed to add new directory to watcher", "path", event.Name, "error", err)
			}
			return
		}
	}
	if !retrieval.IsDocument(event.Name) {
		return
	}
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
		return
	}

	change := Change{Path: event.Name}
	if _, err := os.Stat(event.Name); err != nil {
		// a write to a file that is already gone is followed by its own remove
		if event.Op&(fsnotify.Rename|fsnotify.Remove) == 0 {
			return
		}
		change.Removed = true
	}
	s.logger.Info("document changed", "path", event.Name, "op", event.Op.String(), "removed", change.Removed)
	s.onChange(ctx, change)
}
