// ABOUTME: Janitor periodically purges expired checkpoints on a cron schedule
// ABOUTME: Anonymous sessions are time-boxed; this keeps the durable store from growing unbounded
package session

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// Purger removes checkpoints that expired before now
type Purger interface {
	PurgeExpired(ctx context.Context, now time.Time) (int, error)
}

// Janitor runs a Purger on a schedule
type Janitor struct {
	purger Purger
	store  *Store
	cron   *cron.Cron
	logger *slog.Logger
}

// NewJanitor validates the schedule ("@every 10m", "*/5 * * * *") and prepares the job.
// store may be nil; when set its cache is pruned on the same schedule.
func NewJanitor(purger Purger, store *Store, schedule string, logger *slog.Logger) (*Janitor, error) {
	if logger == nil {
		logger = slog.Default()
	}
	j := &Janitor{
		purger: purger,
		store:  store,
		cron:   cron.New(),
		logger: logger,
	}
	if _, err := j.cron.AddFunc(schedule, func() {
		if _, err := j.RunOnce(context.Background()); err != nil {
			j.logger.Error("session purge failed", "error", err)
		}
	}); err != nil {
		return nil, fmt.Errorf("invalid janitor schedule %q: %w", schedule, err)
	}
	return j, nil
}

// RunOnce purges immediately
func (j *Janitor) RunOnce(ctx context.Context) (int, error) {
	n, err := j.purger.PurgeExpired(ctx, time.Now())
	if err != nil {
		return 0, fmt.Errorf("failed to purge expired sessions: %w", err)
	}
	if j.store != nil {
		j.store.PruneCache()
	}
	if n > 0 {
		j.logger.Info("purged expired sessions", "count", n)
	}
	return n, nil
}

// Start runs the schedule until ctx is cancelled
func (j *Janitor) Start(ctx context.Context) error {
	j.cron.Start()
	j.logger.Info("session janitor started")
	<-ctx.Done()
	<-j.cron.Stop().Done()
	j.logger.Info("session janitor stopped")
	return nil
}
