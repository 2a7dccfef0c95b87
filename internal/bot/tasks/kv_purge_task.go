package tasks

import (
	"context"
	"fmt"
	"time"
)

// newKVPurgeTask creates the task deleting expired memory rows from SQLite
// and reclaiming the freed space.
func newKVPurgeTask(deps TaskDeps) ScheduledTaskFunc {
	log := deps.Logger.With("task", "kv_purge")

	return func(ctx context.Context) (err error) {
		defer func() { deps.countRun("kv_purge", err) }()

		log.InfoContext(ctx, "Starting expired key purge...")
		startTime := time.Now()

		purged, err := deps.KV.PurgeExpired(ctx)
		if err != nil {
			log.ErrorContext(ctx, "Expired key purge failed", "error", err, "duration", time.Since(startTime))
			return fmt.Errorf("kv purge failed: %w", err)
		}

		if purged > 0 {
			if err := deps.KV.RunSQLMaintenance(ctx); err != nil {
				log.ErrorContext(ctx, "SQL maintenance failed after purge", "error", err)
				return fmt.Errorf("sql maintenance failed: %w", err)
			}
		}

		log.InfoContext(ctx, "Expired key purge completed", "purged", purged, "duration", time.Since(startTime))
		return nil
	}
}
