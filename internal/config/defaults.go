package config

import (
	"time"

	"github.com/spf13/viper"

	"github.com/edgard/dukhota/internal/message"
)

// Default values for configuration
const (
	DefaultLogLevel = "info"
	DefaultLogJSON  = false

	DefaultDBPath = "dukhota.db"

	DefaultWindowSize        = 1000
	DefaultWindowTTL         = 48 * time.Hour
	DefaultWindowConcurrency = 8

	DefaultRegistryRetention = 30 * 24 * time.Hour
)

// Default task schedules. Cron expressions with a leading seconds field.
const (
	TaskWindowPrune    = "window_prune"
	TaskRegistryPrune  = "registry_prune"
	TaskSQLMaintenance = "sql_maintenance"

	DefaultWindowPruneSchedule    = "0 */10 * * * *"
	DefaultRegistryPruneSchedule  = "0 30 3 * * *"
	DefaultSQLMaintenanceSchedule = "0 0 4 * * 0"
)

// DefaultMessages are the built-in bot texts.
var DefaultMessages = TelegramMessages{
	Duplicate:     "♻️ Duplicate post %s matches %s (rule: %s)",
	Stats:         "📊 Duplicates in the last 24h: %d\nPosts in window: %d",
	NotAuthorized: "🚫 Access denied.",
	GeneralError:  "❌ An error occurred. Please try again later.",
}

// setDefaults registers every key so environment overrides are picked up by
// Unmarshal even when the key is missing from the file.
func setDefaults(v *viper.Viper) {
	thresholds := message.DefaultThresholds()

	v.SetDefault("log.level", DefaultLogLevel)
	v.SetDefault("log.json", DefaultLogJSON)

	v.SetDefault("telegram.token", "")
	v.SetDefault("telegram.admin_id", 0)
	v.SetDefault("telegram.channel_ids", []int64{})
	v.SetDefault("telegram.delete_duplicates", false)
	v.SetDefault("telegram.notify_admin", false)
	v.SetDefault("telegram.messages.duplicate", DefaultMessages.Duplicate)
	v.SetDefault("telegram.messages.stats", DefaultMessages.Stats)
	v.SetDefault("telegram.messages.not_authorized", DefaultMessages.NotAuthorized)
	v.SetDefault("telegram.messages.general_error", DefaultMessages.GeneralError)

	v.SetDefault("database.path", DefaultDBPath)

	v.SetDefault("matcher.text_threshold", thresholds.Text)
	v.SetDefault("matcher.forward_text_threshold", thresholds.ForwardText)
	v.SetDefault("matcher.media_text_threshold", thresholds.MediaText)
	v.SetDefault("matcher.media_threshold", thresholds.Media)

	v.SetDefault("window.size", DefaultWindowSize)
	v.SetDefault("window.ttl", DefaultWindowTTL)
	v.SetDefault("window.concurrency", DefaultWindowConcurrency)

	v.SetDefault("registry.retention", DefaultRegistryRetention)

	v.SetDefault("scheduler.tasks", map[string]any{
		TaskWindowPrune:    map[string]any{"enabled": true, "schedule": DefaultWindowPruneSchedule},
		TaskRegistryPrune:  map[string]any{"enabled": true, "schedule": DefaultRegistryPruneSchedule},
		TaskSQLMaintenance: map[string]any{"enabled": true, "schedule": DefaultSQLMaintenanceSchedule},
	})
}
