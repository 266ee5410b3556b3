package jobs

import (
	"context"
	"time"

	"rentaldesk-bff/internal/logger"
)

// ReleaseStaleSubmissions fails PENDING journal rows whose request never
// finished, so the rental can be submitted again.
func (jr *JobRunner) ReleaseStaleSubmissions() {
	jr.runWithRecovery("ReleaseStaleSubmissions", func(ctx context.Context) {
		cutoff := jr.now().Add(-time.Duration(jr.config.Scheduler.StaleAfterMinutes) * time.Minute)

		count, err := jr.submissions.ReleaseStale(ctx, cutoff)
		if err != nil {
			logger.Error("Failed to release stale submissions", "error", err)
			return
		}
		if count > 0 {
			logger.Warn("Released stale submissions", "count", count, "older_than", cutoff)
		}
	})
}

// PruneSubmissions deletes finished journal rows past the retention window.
func (jr *JobRunner) PruneSubmissions() {
	jr.runWithRecovery("PruneSubmissions", func(ctx context.Context) {
		cutoff := jr.now().AddDate(0, 0, -jr.config.Scheduler.RetentionDays)

		count, err := jr.submissions.PruneBefore(ctx, cutoff)
		if err != nil {
			logger.Error("Failed to prune submissions", "error", err)
			return
		}
		logger.Info("Pruned submissions", "count", count, "before", cutoff.Format("2006-01-02"))
	})
}
