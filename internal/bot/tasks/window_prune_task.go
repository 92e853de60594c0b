package tasks

import (
	"context"
	"time"
)

// newWindowPruneTask drops expired posts from the candidate window.
func newWindowPruneTask(deps TaskDeps) ScheduledTaskFunc {
	log := deps.Logger.With("task", "window_prune")

	return func(ctx context.Context) error {
		if err := ctx.Err(); err != nil {
			return err
		}

		removed := deps.Window.Prune(time.Now())
		log.DebugContext(ctx, "Pruned candidate window", "removed", removed, "remaining", deps.Window.Len())
		return nil
	}
}
