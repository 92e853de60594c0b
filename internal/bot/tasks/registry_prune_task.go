package tasks

import (
	"context"
	"errors"
	"fmt"
	"time"
)

const registryPruneTimeout = 2 * time.Minute

// newRegistryPruneTask forgets fingerprints not seen within the retention.
func newRegistryPruneTask(deps TaskDeps) ScheduledTaskFunc {
	log := deps.Logger.With("task", "registry_prune")

	return func(ctx context.Context) error {
		startTime := time.Now()
		cutoff := startTime.Add(-deps.Config.Registry.Retention)

		timeoutCtx, cancel := context.WithTimeout(ctx, registryPruneTimeout)
		defer cancel()

		removed, err := deps.Store.PruneSightings(timeoutCtx, cutoff)
		duration := time.Since(startTime)

		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			log.WarnContext(ctx, "Registry prune timed out or was cancelled", "error", err, "duration", duration)
			return fmt.Errorf("registry prune timed out or was cancelled: %w", err)
		}
		if err != nil {
			log.ErrorContext(ctx, "Registry prune failed", "error", err, "duration", duration)
			return fmt.Errorf("registry prune failed: %w", err)
		}

		log.InfoContext(ctx, "Registry prune completed", "removed", removed, "cutoff", cutoff, "duration", duration)
		return nil
	}
}
