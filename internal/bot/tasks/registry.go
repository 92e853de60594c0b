package tasks

import (
	"context"

	"github.com/edgard/dukhota/internal/config"
)

// ScheduledTaskFunc defines the signature of scheduled tasks. The context
// provided by the scheduler should be respected for cancellation.
type ScheduledTaskFunc func(ctx context.Context) error

// RegisterAllTasks returns the scheduled tasks keyed by the name used in
// the scheduler.tasks configuration section.
func RegisterAllTasks(deps TaskDeps) map[string]ScheduledTaskFunc {
	tasks := map[string]ScheduledTaskFunc{
		config.TaskWindowPrune:    newWindowPruneTask(deps),
		config.TaskRegistryPrune:  newRegistryPruneTask(deps),
		config.TaskSQLMaintenance: newSQLMaintenanceTask(deps),
	}

	deps.Logger.Info("Initialized scheduled tasks", "count", len(tasks))
	return tasks
}
