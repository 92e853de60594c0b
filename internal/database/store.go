package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
)

// Store defines the interface for fingerprint registry operations.
// Methods accept context.Context for cancellation and timeouts.
type Store interface {
	// Ping checks the database connection.
	Ping(ctx context.Context) error

	// RecordSighting registers the fingerprint of a post. If the fingerprint
	// is new, the sighting is stored and (sighting, false) is returned. If it
	// was seen before, the stored first sighting is returned with true and
	// its counters are bumped unless it is the very same post.
	RecordSighting(ctx context.Context, sighting *Sighting) (*Sighting, bool, error)

	// GetSighting returns the first sighting of a fingerprint, or nil, nil.
	GetSighting(ctx context.Context, fingerprint string) (*Sighting, error)

	// RecordDuplicate stores a detected repost.
	RecordDuplicate(ctx context.Context, duplicate *Duplicate) error

	// CountDuplicatesSince counts reposts detected at or after since.
	CountDuplicatesSince(ctx context.Context, since time.Time) (int, error)

	// PruneSightings deletes sightings not seen since before, and duplicate
	// rows detected before it. Returns the number of sightings removed.
	PruneSightings(ctx context.Context, before time.Time) (int64, error)

	// RunSQLMaintenance reclaims space left by pruning and checkpoints the WAL.
	RunSQLMaintenance(ctx context.Context) (MaintenanceReport, error)
}

// sqlxStore provides an implementation of the Store interface using sqlx.
type sqlxStore struct {
	db     *sqlx.DB
	logger *slog.Logger
	now    func() time.Time
}

// NewStore creates a new Store implementation backed by sqlx.
// It requires a connected sqlx.DB instance and a logger.
func NewStore(db *sqlx.DB, logger *slog.Logger) Store {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &sqlxStore{
		db:     db,
		logger: logger.With("component", "store"),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Ping checks the database connection.
func (s *sqlxStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *sqlxStore) RecordSighting(ctx context.Context, sighting *Sighting) (*Sighting, bool, error) {
	if sighting == nil {
		return nil, false, errors.New("cannot record nil sighting")
	}
	if sighting.Fingerprint == "" {
		return nil, false, errors.New("sighting must have a fingerprint")
	}
	if sighting.ChannelID == 0 || sighting.MessageID == 0 {
		return nil, false, errors.New("sighting must have non-zero channel_id and message_id")
	}

	now := s.now()
	if sighting.FirstSeenAt.IsZero() {
		sighting.FirstSeenAt = now
	}
	sighting.FirstSeenAt = sighting.FirstSeenAt.UTC().Truncate(time.Second)
	sighting.LastSeenAt = sighting.FirstSeenAt
	sighting.SeenCount = 1

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to begin transaction for sighting", "fingerprint", sighting.Fingerprint, "error", err)
		return nil, false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if tx != nil {
			if rollbackErr := tx.Rollback(); rollbackErr != nil && !errors.Is(rollbackErr, sql.ErrTxDone) {
				s.logger.WarnContext(ctx, "Error rolling back transaction", "error", rollbackErr)
			}
		}
	}()

	var existing Sighting
	err = tx.GetContext(ctx, &existing, `
        SELECT fingerprint, channel_id, message_id, first_seen_at, last_seen_at, seen_count
        FROM sightings
        WHERE fingerprint = ?;
    `, sighting.Fingerprint)

	switch {
	case errors.Is(err, sql.ErrNoRows):
		_, err = tx.NamedExecContext(ctx, `
            INSERT INTO sightings (fingerprint, channel_id, message_id, first_seen_at, last_seen_at, seen_count)
            VALUES (:fingerprint, :channel_id, :message_id, :first_seen_at, :last_seen_at, :seen_count);
        `, sighting)
		if err != nil {
			s.logger.ErrorContext(ctx, "Error inserting sighting", "fingerprint", sighting.Fingerprint, "error", err)
			return nil, false, fmt.Errorf("failed to insert sighting %s: %w", sighting.Fingerprint, err)
		}
		if err := tx.Commit(); err != nil {
			return nil, false, fmt.Errorf("failed to commit transaction: %w", err)
		}
		tx = nil

		s.logger.DebugContext(ctx, "Sighting recorded", "fingerprint", sighting.Fingerprint,
			"channel_id", sighting.ChannelID, "message_id", sighting.MessageID)
		stored := *sighting
		return &stored, false, nil

	case err != nil:
		s.logger.ErrorContext(ctx, "Error looking up sighting", "fingerprint", sighting.Fingerprint, "error", err)
		return nil, false, fmt.Errorf("failed to look up sighting %s: %w", sighting.Fingerprint, err)
	}

	if !existing.SamePost(sighting.ChannelID, sighting.MessageID) {
		existing.LastSeenAt = sighting.FirstSeenAt
		existing.SeenCount++

		_, err = tx.ExecContext(ctx, `
            UPDATE sightings SET last_seen_at = ?, seen_count = ? WHERE fingerprint = ?;
        `, existing.LastSeenAt, existing.SeenCount, existing.Fingerprint)
		if err != nil {
			s.logger.ErrorContext(ctx, "Error updating sighting", "fingerprint", existing.Fingerprint, "error", err)
			return nil, false, fmt.Errorf("failed to update sighting %s: %w", existing.Fingerprint, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, false, fmt.Errorf("failed to commit transaction: %w", err)
	}
	tx = nil

	s.logger.DebugContext(ctx, "Fingerprint already registered", "fingerprint", existing.Fingerprint,
		"first_channel_id", existing.ChannelID, "first_message_id", existing.MessageID, "seen_count", existing.SeenCount)
	return &existing, true, nil
}

func (s *sqlxStore) GetSighting(ctx context.Context, fingerprint string) (*Sighting, error) {
	var sighting Sighting
	err := s.db.GetContext(ctx, &sighting, `
        SELECT fingerprint, channel_id, message_id, first_seen_at, last_seen_at, seen_count
        FROM sightings
        WHERE fingerprint = ?;
    `, fingerprint)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get sighting %s: %w", fingerprint, err)
	}
	return &sighting, nil
}

func (s *sqlxStore) RecordDuplicate(ctx context.Context, duplicate *Duplicate) error {
	if duplicate == nil {
		return errors.New("cannot record nil duplicate")
	}
	if duplicate.DetectedAt.IsZero() {
		duplicate.DetectedAt = s.now()
	}
	duplicate.DetectedAt = duplicate.DetectedAt.UTC().Truncate(time.Second)

	result, err := s.db.NamedExecContext(ctx, `
        INSERT INTO duplicates (channel_id, message_id, original_channel_id, original_message_id,
                                fingerprint, rule, text_ratio, media_ratio, detected_at)
        VALUES (:channel_id, :message_id, :original_channel_id, :original_message_id,
                :fingerprint, :rule, :text_ratio, :media_ratio, :detected_at);
    `, duplicate)
	if err != nil {
		s.logger.ErrorContext(ctx, "Error saving duplicate", "channel_id", duplicate.ChannelID,
			"message_id", duplicate.MessageID, "error", err)
		return fmt.Errorf("failed to save duplicate (channel %d, message %d): %w",
			duplicate.ChannelID, duplicate.MessageID, err)
	}

	if id, err := result.LastInsertId(); err == nil {
		//nolint:gosec // integer overflow conversion is acceptable here
		duplicate.ID = uint(id)
	}

	return nil
}

func (s *sqlxStore) CountDuplicatesSince(ctx context.Context, since time.Time) (int, error) {
	var count int
	err := s.db.GetContext(ctx, &count,
		`SELECT COUNT(*) FROM duplicates WHERE detected_at >= ?;`,
		since.UTC().Truncate(time.Second))
	if err != nil {
		return 0, fmt.Errorf("failed to count duplicates: %w", err)
	}
	return count, nil
}

func (s *sqlxStore) PruneSightings(ctx context.Context, before time.Time) (int64, error) {
	before = before.UTC().Truncate(time.Second)

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if tx != nil {
			if rollbackErr := tx.Rollback(); rollbackErr != nil && !errors.Is(rollbackErr, sql.ErrTxDone) {
				s.logger.WarnContext(ctx, "Error rolling back transaction", "error", rollbackErr)
			}
		}
	}()

	result, err := tx.ExecContext(ctx, `DELETE FROM sightings WHERE last_seen_at < ?;`, before)
	if err != nil {
		return 0, fmt.Errorf("failed to prune sightings: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM duplicates WHERE detected_at < ?;`, before); err != nil {
		return 0, fmt.Errorf("failed to prune duplicates: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}
	tx = nil

	removed, err := result.RowsAffected()
	if err != nil {
		s.logger.WarnContext(ctx, "Could not read pruned row count", "error", err)
		return 0, nil
	}

	s.logger.InfoContext(ctx, "Pruned fingerprint registry", "before", before, "removed", removed)
	return removed, nil
}

// RunSQLMaintenance checkpoints the WAL and refreshes planner statistics.
// The file is rewritten with VACUUM only when pruning left free pages.
func (s *sqlxStore) RunSQLMaintenance(ctx context.Context) (MaintenanceReport, error) {
	var report MaintenanceReport
	if err := ctx.Err(); err != nil {
		return report, err
	}

	before, err := s.pageStats(ctx)
	if err != nil {
		return report, err
	}
	report.SizeBefore = before.size()
	report.FreePages = before.FreePages

	if before.FreePages > 0 {
		// VACUUM must run outside a transaction in SQLite
		if _, err := s.db.ExecContext(ctx, "VACUUM;"); err != nil {
			if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
				return report, fmt.Errorf("registry VACUUM timed out: %w", err)
			}
			return report, fmt.Errorf("failed to execute VACUUM: %w", err)
		}
		report.Vacuumed = true
	}

	if _, err := s.db.ExecContext(ctx, "PRAGMA wal_checkpoint(TRUNCATE);"); err != nil {
		return report, fmt.Errorf("failed to checkpoint WAL: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, "PRAGMA optimize;"); err != nil {
		return report, fmt.Errorf("failed to optimize registry: %w", err)
	}

	after, err := s.pageStats(ctx)
	if err != nil {
		return report, err
	}
	report.SizeAfter = after.size()

	s.logger.InfoContext(ctx, "Registry maintenance completed",
		"vacuumed", report.Vacuumed,
		"free_pages", report.FreePages,
		"size_before", report.SizeBefore,
		"size_after", report.SizeAfter)
	return report, nil
}

type pageStats struct {
	Pages     int64 `db:"page_count"`
	FreePages int64 `db:"freelist_count"`
	PageSize  int64 `db:"page_size"`
}

func (p pageStats) size() int64 { return p.Pages * p.PageSize }

func (s *sqlxStore) pageStats(ctx context.Context) (pageStats, error) {
	var p pageStats
	query := `
        SELECT page_count, freelist_count, page_size
        FROM pragma_page_count(), pragma_freelist_count(), pragma_page_size();`
	if err := s.db.GetContext(ctx, &p, query); err != nil {
		return p, fmt.Errorf("failed to read registry page stats: %w", err)
	}
	return p, nil
}
