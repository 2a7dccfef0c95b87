// Package tasks implements the scheduled maintenance tasks of the bot.
// It includes task definitions, dependencies, and registration mechanisms.
package tasks

import (
	"context"
	"log/slog"
	"time"

	"github.com/edgard/socialbot/internal/config"
	"github.com/edgard/socialbot/internal/observability"
)

// CacheSweeper evicts old response-cache entries.
type CacheSweeper interface {
	Sweep(cutoff time.Time) int
}

// KVMaintainer is implemented by the SQLite memory backend.
type KVMaintainer interface {
	PurgeExpired(ctx context.Context) (int64, error)
	RunSQLMaintenance(ctx context.Context) error
}

// TaskDeps contains all dependencies required by scheduled tasks.
type TaskDeps struct {
	Logger *slog.Logger
	Config *config.Config
	Cache  CacheSweeper
	// KV is nil unless the SQLite backend is in use.
	KV KVMaintainer
	// Metrics is optional.
	Metrics *observability.Metrics
	Now     func() time.Time
}

func (d TaskDeps) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now()
}

func (d TaskDeps) countRun(task string, err error) {
	if d.Metrics == nil {
		return
	}
	result := "success"
	if err != nil {
		result = "error"
	}
	d.Metrics.ScheduledTaskRuns.WithLabelValues(task, result).Inc()
}
