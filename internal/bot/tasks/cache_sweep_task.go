package tasks

import (
	"context"
	"time"
)

// newCacheSweepTask creates the task evicting response-cache entries older than Cache.MaxAge.
func newCacheSweepTask(deps TaskDeps) ScheduledTaskFunc {
	log := deps.Logger.With("task", "cache_sweep")

	return func(ctx context.Context) error {
		cutoff := deps.now().Add(-deps.Config.Cache.MaxAge)
		startTime := time.Now()

		removed := deps.Cache.Sweep(cutoff)

		log.InfoContext(ctx, "Response cache swept", "removed", removed, "cutoff", cutoff, "duration", time.Since(startTime))
		deps.countRun("cache_sweep", nil)
		return nil
	}
}
