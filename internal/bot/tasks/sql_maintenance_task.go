package tasks

import (
	"context"
	"fmt"
	"time"
)

const sqlMaintenanceTimeout = 10 * time.Minute

// newSQLMaintenanceTask compacts the registry after prunes have freed pages.
func newSQLMaintenanceTask(deps TaskDeps) ScheduledTaskFunc {
	log := deps.Logger.With("task", "sql_maintenance")

	return func(ctx context.Context) error {
		startTime := time.Now()

		timeoutCtx, cancel := context.WithTimeout(ctx, sqlMaintenanceTimeout)
		defer cancel()

		report, err := deps.Store.RunSQLMaintenance(timeoutCtx)
		duration := time.Since(startTime)
		if err != nil {
			log.ErrorContext(ctx, "Registry maintenance failed", "error", err, "duration", duration)
			return fmt.Errorf("sql maintenance failed: %w", err)
		}

		if !report.Vacuumed {
			log.DebugContext(ctx, "Registry has no free pages, VACUUM skipped", "size", report.SizeAfter, "duration", duration)
			return nil
		}

		log.InfoContext(ctx, "Registry compacted",
			"reclaimed_bytes", report.SizeBefore-report.SizeAfter,
			"size", report.SizeAfter,
			"duration", duration)
		return nil
	}
}
