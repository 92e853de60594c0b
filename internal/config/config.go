// Package config provides configuration loading, validation, and defaults
// for dukhota. Values come from built-in defaults, an optional YAML file and
// DUKHOTA_* environment variables, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/edgard/dukhota/internal/message"
)

// ErrConfiguration wraps every error returned by Load.
var ErrConfiguration = errors.New("configuration error")

// Config is the complete application configuration.
type Config struct {
	Log       LogConfig       `mapstructure:"log"`
	Telegram  TelegramConfig  `mapstructure:"telegram"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Matcher   MatcherConfig   `mapstructure:"matcher"`
	Window    WindowConfig    `mapstructure:"window"`
	Registry  RegistryConfig  `mapstructure:"registry"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
}

// LogConfig controls the slog handler.
type LogConfig struct {
	Level string `mapstructure:"level" validate:"oneof=debug info warn error"`
	JSON  bool   `mapstructure:"json"`
}

// TelegramConfig holds the bot token and what to do with duplicates.
type TelegramConfig struct {
	Token string `mapstructure:"token" validate:"required"`
	// AdminID receives duplicate notices and may run admin commands.
	AdminID int64 `mapstructure:"admin_id" validate:"required_if=NotifyAdmin true"`
	// ChannelIDs restricts ingestion to these channels; empty watches all.
	ChannelIDs       []int64          `mapstructure:"channel_ids"`
	DeleteDuplicates bool             `mapstructure:"delete_duplicates"`
	NotifyAdmin      bool             `mapstructure:"notify_admin"`
	Messages         TelegramMessages `mapstructure:"messages"`
}

// TelegramMessages are the user-facing texts. Duplicate is a fmt template
// receiving the duplicate link, the original link and the rule name.
type TelegramMessages struct {
	Duplicate     string `mapstructure:"duplicate"      validate:"required"`
	Stats         string `mapstructure:"stats"          validate:"required"`
	NotAuthorized string `mapstructure:"not_authorized" validate:"required"`
	GeneralError  string `mapstructure:"general_error"  validate:"required"`
}

// DatabaseConfig points at the SQLite fingerprint registry.
type DatabaseConfig struct {
	Path string `mapstructure:"path" validate:"required"`
}

// MatcherConfig mirrors message.Thresholds.
type MatcherConfig struct {
	TextThreshold        float64 `mapstructure:"text_threshold"         validate:"gte=0,lte=1"`
	ForwardTextThreshold float64 `mapstructure:"forward_text_threshold" validate:"gte=0,lte=1"`
	MediaTextThreshold   float64 `mapstructure:"media_text_threshold"   validate:"gte=0,lte=1"`
	MediaThreshold       float64 `mapstructure:"media_threshold"        validate:"gte=0,lte=1"`
}

// Thresholds converts the section into matcher thresholds.
func (c MatcherConfig) Thresholds() message.Thresholds {
	return message.Thresholds{
		Text:        c.TextThreshold,
		ForwardText: c.ForwardTextThreshold,
		MediaText:   c.MediaTextThreshold,
		Media:       c.MediaThreshold,
	}
}

// WindowConfig sizes the in-memory window of recent posts that incoming
// posts are compared against.
type WindowConfig struct {
	Size        int           `mapstructure:"size"        validate:"min=1,max=100000"`
	TTL         time.Duration `mapstructure:"ttl"         validate:"min=1m"`
	Concurrency int           `mapstructure:"concurrency" validate:"min=1,max=64"`
}

// RegistryConfig controls how long fingerprints are remembered.
type RegistryConfig struct {
	Retention time.Duration `mapstructure:"retention" validate:"min=1h"`
}

// SchedulerConfig maps task names to their schedule.
type SchedulerConfig struct {
	Tasks map[string]TaskConfig `mapstructure:"tasks" validate:"dive"`
}

// TaskConfig enables a scheduled task with a cron expression (seconds field
// optional).
type TaskConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Schedule string `mapstructure:"schedule" validate:"required_if=Enabled true"`
}

// Validate checks struct tags and cross-field rules.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return err
	}

	if c.Matcher.MediaTextThreshold > c.Matcher.TextThreshold {
		return fmt.Errorf("matcher.media_text_threshold (%.2f) must not exceed matcher.text_threshold (%.2f)",
			c.Matcher.MediaTextThreshold, c.Matcher.TextThreshold)
	}

	return nil
}

// Watches reports whether posts from channelID should be ingested.
func (c *TelegramConfig) Watches(channelID int64) bool {
	return len(c.ChannelIDs) == 0 || slices.Contains(c.ChannelIDs, channelID)
}
