// ABOUTME: Wires configuration into storage, retrieval, the model client, and the dialogue engine
// ABOUTME: Run starts background services (janitor, index warm-up, document watcher) beside a caller's loop
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/harper/emergency-intake/internal/config"
	"github.com/harper/emergency-intake/internal/dialogue"
	"github.com/harper/emergency-intake/internal/extract"
	"github.com/harper/emergency-intake/internal/keywords"
	"github.com/harper/emergency-intake/internal/llm"
	"github.com/harper/emergency-intake/internal/retrieval"
	"github.com/harper/emergency-intake/internal/session"
	"github.com/harper/emergency-intake/internal/storage/qdrant"
	"github.com/harper/emergency-intake/internal/storage/redis"
	"github.com/harper/emergency-intake/internal/storage/sqlite"
	"github.com/harper/emergency-intake/internal/watcher"
)

const connectTimeout = 10 * time.Second

// App holds the wired components. Fields are nil when their backend is not configured.
type App struct {
	Config *config.Config
	Logger *slog.Logger

	Engine   *dialogue.Engine
	Store    *session.Store
	Index    *retrieval.Index
	Tickets  *sqlite.TicketStore
	Memories *sqlite.MemoryStore
	// Checkpoints is set only for the sqlite checkpoint backend
	Checkpoints *sqlite.CheckpointStore

	client  *llm.OpenAIClient
	janitor *session.Janitor
	closers []func() error
}

// Open builds every component from cfg. Without an API key the engine
// still runs on pattern fallbacks and guidance search is disabled.
func Open(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	a := &App{Config: cfg, Logger: logger}

	if err := a.open(ctx); err != nil {
		_ = a.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) open(ctx context.Context) error {
	cfg := a.Config

	db, err := sqlite.Open(cfg.DBPath)
	if err != nil {
		return err
	}
	a.closers = append(a.closers, db.Close)
	a.Tickets = sqlite.NewTicketStore(db)
	a.Memories = sqlite.NewMemoryStore(db)

	checkpoints, purger, err := a.openCheckpoints(ctx, db)
	if err != nil {
		return err
	}
	a.Store = session.NewStore(checkpoints,
		session.WithTTL(cfg.SessionTTL),
		session.WithLogger(a.Logger.With("component", "session")),
	)
	a.janitor, err = session.NewJanitor(purger, a.Store, cfg.JanitorSchedule, a.Logger.With("component", "janitor"))
	if err != nil {
		return err
	}

	if cfg.OpenAIKey != "" {
		if a.client, err = llm.NewOpenAIClient(llm.ConfigFrom(cfg)); err != nil {
			return err
		}
	}

	vectors, err := a.openVectors(ctx, db)
	if err != nil {
		return err
	}
	a.Index = retrieval.NewIndex(vectors, a.embedder(),
		retrieval.WithOverfetch(cfg.RetrievalOverfetch),
		retrieval.WithLogger(a.Logger.With("component", "retrieval")),
	)

	tables, err := keywords.Load(cfg.KeywordsFile)
	if err != nil {
		return err
	}

	completer := a.completer()
	a.Engine, err = dialogue.NewEngine(dialogue.Deps{
		Store: a.Store,
		Extractor: extract.New(completer, tables,
			extract.WithLogger(a.Logger.With("component", "extract")),
		),
		Classifier: dialogue.NewClassifier(completer, tables, a.Logger.With("component", "confirm")),
		Guide: dialogue.NewGuide(completer, a.Searcher(), tables,
			dialogue.WithTopK(cfg.RetrievalTopK),
			dialogue.WithGuideLogger(a.Logger.With("component", "guidance")),
		),
		Tables:      tables,
		Tickets:     a.Tickets,
		Memories:    a.Memories,
		Logger:      a.Logger.With("component", "engine"),
		TurnTimeout: cfg.TurnTimeout,
	})
	return err
}

func (a *App) openCheckpoints(ctx context.Context, db *sqlite.DB) (session.Checkpointer, session.Purger, error) {
	switch a.Config.CheckpointBackend {
	case config.BackendRedis:
		connCtx, cancel := context.WithTimeout(ctx, connectTimeout)
		defer cancel()
		store, err := redis.Open(connCtx, a.Config.RedisURL)
		if err != nil {
			return nil, nil, err
		}
		a.closers = append(a.closers, store.Close)
		return store, keyExpiry{}, nil
	case config.BackendMemory:
		store := session.NewMemoryCheckpointer()
		return store, store, nil
	default:
		a.Checkpoints = sqlite.NewCheckpointStore(db)
		return a.Checkpoints, a.Checkpoints, nil
	}
}

func (a *App) openVectors(ctx context.Context, db *sqlite.DB) (retrieval.VectorStore, error) {
	if a.Config.VectorBackend != config.BackendQdrant {
		return sqlite.NewDocumentStore(db), nil
	}
	connCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	store, err := qdrant.New(connCtx, qdrant.Config{
		URL:        a.Config.QdrantURL,
		APIKey:     a.Config.QdrantAPIKey,
		Collection: a.Config.QdrantCollection,
		Dimension:  a.Config.VectorDimension,
	})
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, store.Close)
	return store, nil
}

// keyExpiry is the purger for backends whose keys expire on their own;
// the janitor still prunes the in-process cache.
type keyExpiry struct{}

func (keyExpiry) PurgeExpired(context.Context, time.Time) (int, error) { return 0, nil }

// completer and embedder return untyped nil without a client so
// downstream nil checks see an absent collaborator
func (a *App) completer() llm.Completer {
	if a.client == nil {
		return nil
	}
	return a.client
}

func (a *App) embedder() llm.Embedder {
	if a.client == nil {
		return nil
	}
	return a.client
}

// Searcher returns the retrieval index, or nil when queries cannot be embedded
func (a *App) Searcher() dialogue.Searcher {
	if a.client == nil || a.Index == nil {
		return nil
	}
	return a.Index
}

// HasModel reports whether a model client is configured
func (a *App) HasModel() bool {
	return a.client != nil
}

// Run starts the background services and then serve. When serve returns,
// the services are stopped and Run returns serve's error.
func (a *App) Run(ctx context.Context, serve func(ctx context.Context) error) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	group, groupCtx := errgroup.WithContext(ctx)

	if a.janitor != nil {
		group.Go(func() error {
			return a.janitor.Start(groupCtx)
		})
	}

	if a.Searcher() != nil {
		a.Index.Warm(groupCtx, a.Config.DocsDir)
		if w := a.newWatcher(); w != nil {
			group.Go(func() error {
				return w.Start(groupCtx)
			})
		}
	}

	group.Go(func() error {
		defer cancel()
		return serve(groupCtx)
	})

	return group.Wait()
}

func (a *App) newWatcher() *watcher.Service {
	root := a.Config.DocsDir
	if _, err := os.Stat(root); err != nil {
		a.Logger.Warn("not watching reference documents", "dir", root, "error", err)
		return nil
	}
	w, err := watcher.New(root, a.Logger.With("component", "watcher"), func(ctx context.Context, c watcher.Change) {
		if c.Removed {
			if _, err := a.Index.RemoveFile(ctx, root, c.Path); err != nil {
				a.Logger.Error("failed to drop removed document", "path", c.Path, "error", err)
			}
			return
		}
		res, err := a.Index.IndexFile(ctx, root, c.Path, false)
		if err != nil {
			a.Logger.Error("failed to re-index document", "path", c.Path, "error", err)
			return
		}
		a.Logger.Info("re-indexed document", "source", res.Source, "chunks", res.Chunks, "skipped", res.Skipped)
	})
	if err != nil {
		a.Logger.Warn("document watcher unavailable", "error", err)
		return nil
	}
	return w
}

// Close releases every opened backend, newest first
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	if len(errs) > 0 {
		return fmt.Errorf("close: %w", errors.Join(errs...))
	}
	return nil
}
