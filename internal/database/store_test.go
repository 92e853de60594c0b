package database

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func newTestStore(t *testing.T) *sqlxStore {
	t.Helper()

	db, err := NewDB(filepath.Join(t.TempDir(), "registry.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { CloseDB(db, nil) })

	s, ok := NewStore(db, nil).(*sqlxStore)
	require.True(t, ok)
	return s
}

func TestFileName(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"dukhota.db":                     "dukhota.db",
		"file:dukhota.db":                "dukhota.db",
		"file:dukhota.db?_pragma=foo(1)": "dukhota.db",
		"/var/lib/my%20bot/dukhota.db":   "/var/lib/my bot/dukhota.db",
		"file:/data/dukhota.db?mode=rwc": "/data/dukhota.db",
		"  ":                             "",
	}
	for in, want := range tests {
		assert.Equal(t, want, fileName(in), in)
	}
}

func TestDSN(t *testing.T) {
	t.Parallel()

	assert.Equal(t,
		"/data/dukhota.db?_pragma=busy_timeout%285000%29&_pragma=journal_mode%28WAL%29&_pragma=synchronous%28NORMAL%29&_txlock=immediate",
		dsn("/data/dukhota.db"))
	assert.Equal(t, ":memory:?_pragma=busy_timeout%285000%29&_txlock=immediate", dsn(":memory:"))
}

func TestNewDB_Pragmas(t *testing.T) {
	t.Parallel()

	db, err := NewDB(filepath.Join(t.TempDir(), "pragmas.db"), nil)
	require.NoError(t, err)
	defer CloseDB(db, nil)

	mode, timeoutMS, err := journalSettings(context.Background(), db)
	require.NoError(t, err)
	assert.Equal(t, "wal", mode)
	assert.Equal(t, 5000, timeoutMS)
	assert.Equal(t, poolSize, db.Stats().MaxOpenConnections)
}

func TestNewDB_Memory(t *testing.T) {
	t.Parallel()

	db, err := NewDB(":memory:", nil)
	require.NoError(t, err)
	defer CloseDB(db, nil)

	assert.Equal(t, 1, db.Stats().MaxOpenConnections)
	s := NewStore(db, nil)
	_, existed, err := s.RecordSighting(context.Background(), &Sighting{Fingerprint: "f", ChannelID: -1001, MessageID: 1})
	require.NoError(t, err)
	assert.False(t, existed)
}

func TestNewDB_EmptyPath(t *testing.T) {
	t.Parallel()

	_, err := NewDB("", nil)
	assert.ErrorIs(t, err, ErrEmptyPath)
	CloseDB(nil, nil)
}

// The channel post handler and the scheduled prune write concurrently.
func TestStore_ConcurrentWriters(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := newTestStore(t)

	var g errgroup.Group
	for w := range 8 {
		g.Go(func() error {
			for i := range 25 {
				fp := fmt.Sprintf("fp-%d-%d", w, i)
				if _, _, err := s.RecordSighting(ctx, &Sighting{
					Fingerprint: fp, ChannelID: -1001, MessageID: int64(w*100 + i + 1),
				}); err != nil {
					return err
				}
				if _, _, err := s.RecordSighting(ctx, &Sighting{
					Fingerprint: fp, ChannelID: -1002, MessageID: int64(w*100 + i + 1),
				}); err != nil {
					return err
				}
			}
			return nil
		})
	}
	g.Go(func() error {
		for range 10 {
			if _, err := s.PruneSightings(ctx, time.Now().Add(-time.Hour)); err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(t, g.Wait())

	var sightings, repeated int
	require.NoError(t, s.db.GetContext(ctx, &sightings, "SELECT COUNT(*) FROM sightings;"))
	require.NoError(t, s.db.GetContext(ctx, &repeated, "SELECT COUNT(*) FROM sightings WHERE seen_count = 2;"))
	assert.Equal(t, 200, sightings)
	assert.Equal(t, 200, repeated)
}

func TestStore_Ping(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	require.NoError(t, s.Ping(context.Background()))
}

func TestStore_RecordSighting(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := newTestStore(t)

	t0 := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	first, existed, err := s.RecordSighting(ctx, &Sighting{
		Fingerprint: "d2689500d7a59712", ChannelID: -1001, MessageID: 10, FirstSeenAt: t0,
	})
	require.NoError(t, err)
	assert.False(t, existed)
	assert.Equal(t, int64(10), first.MessageID)
	assert.Equal(t, 1, first.SeenCount)

	// same post delivered again: known, counters untouched
	again, existed, err := s.RecordSighting(ctx, &Sighting{
		Fingerprint: "d2689500d7a59712", ChannelID: -1001, MessageID: 10, FirstSeenAt: t0.Add(time.Minute),
	})
	require.NoError(t, err)
	assert.True(t, existed)
	assert.True(t, again.SamePost(-1001, 10))
	assert.Equal(t, 1, again.SeenCount)

	// repost elsewhere: first sighting returned, counters bumped
	repost, existed, err := s.RecordSighting(ctx, &Sighting{
		Fingerprint: "d2689500d7a59712", ChannelID: -1002, MessageID: 77, FirstSeenAt: t0.Add(time.Hour),
	})
	require.NoError(t, err)
	assert.True(t, existed)
	assert.Equal(t, int64(-1001), repost.ChannelID)
	assert.Equal(t, int64(10), repost.MessageID)
	assert.Equal(t, 2, repost.SeenCount)
	assert.Equal(t, t0.Add(time.Hour).Unix(), repost.LastSeenAt.Unix())

	stored, err := s.GetSighting(ctx, "d2689500d7a59712")
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, 2, stored.SeenCount)
	assert.Equal(t, t0.Unix(), stored.FirstSeenAt.Unix())
	assert.Equal(t, t0.Add(time.Hour).Unix(), stored.LastSeenAt.Unix())
}

func TestStore_RecordSighting_Invalid(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := newTestStore(t)

	tests := []struct {
		name     string
		sighting *Sighting
	}{
		{"nil", nil},
		{"no fingerprint", &Sighting{ChannelID: -1001, MessageID: 1}},
		{"no channel", &Sighting{Fingerprint: "abc", MessageID: 1}},
		{"no message", &Sighting{Fingerprint: "abc", ChannelID: -1001}},
	}
	for _, tt := range tests {
		_, _, err := s.RecordSighting(ctx, tt.sighting)
		assert.Error(t, err, tt.name)
	}
}

func TestStore_GetSighting_NotFound(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	got, err := s.GetSighting(context.Background(), "missing")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestStore_Duplicates(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := newTestStore(t)

	now := time.Now().UTC()
	old := &Duplicate{
		ChannelID: -1002, MessageID: 5, OriginalChannelID: -1001, OriginalMessageID: 1,
		Fingerprint: "aaaa", Rule: "fingerprint", DetectedAt: now.Add(-48 * time.Hour),
	}
	recent := &Duplicate{
		ChannelID: -1002, MessageID: 6, OriginalChannelID: -1001, OriginalMessageID: 2,
		Fingerprint: "bbbb", Rule: "text_ratio", TextRatio: 0.91,
	}

	require.NoError(t, s.RecordDuplicate(ctx, old))
	require.NoError(t, s.RecordDuplicate(ctx, recent))
	assert.NotZero(t, old.ID)
	assert.NotZero(t, recent.ID)
	assert.False(t, recent.DetectedAt.IsZero())

	count, err := s.CountDuplicatesSince(ctx, now.Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	count, err = s.CountDuplicatesSince(ctx, now.Add(-72*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	assert.Error(t, s.RecordDuplicate(ctx, nil))
}

func TestStore_PruneSightings(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := newTestStore(t)

	now := time.Now().UTC()
	for i, age := range []time.Duration{40 * 24 * time.Hour, 31 * 24 * time.Hour, time.Hour} {
		_, _, err := s.RecordSighting(ctx, &Sighting{
			Fingerprint: []string{"f1", "f2", "f3"}[i],
			ChannelID:   -1001,
			MessageID:   int64(i + 1),
			FirstSeenAt: now.Add(-age),
		})
		require.NoError(t, err)
	}
	require.NoError(t, s.RecordDuplicate(ctx, &Duplicate{
		ChannelID: -1002, MessageID: 9, OriginalChannelID: -1001, OriginalMessageID: 1,
		Fingerprint: "f1", Rule: "fingerprint", DetectedAt: now.Add(-40 * 24 * time.Hour),
	}))

	removed, err := s.PruneSightings(ctx, now.Add(-30*24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(2), removed)

	got, err := s.GetSighting(ctx, "f3")
	require.NoError(t, err)
	assert.NotNil(t, got)

	got, err = s.GetSighting(ctx, "f1")
	require.NoError(t, err)
	assert.Nil(t, got)

	count, err := s.CountDuplicatesSince(ctx, time.Time{})
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestStore_RunSQLMaintenance(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := newTestStore(t)

	report, err := s.RunSQLMaintenance(ctx)
	require.NoError(t, err)
	assert.Positive(t, report.SizeAfter)

	old := time.Now().UTC().Add(-90 * 24 * time.Hour)
	for i := range 400 {
		_, _, err := s.RecordSighting(ctx, &Sighting{
			Fingerprint: fmt.Sprintf("%016x", i), ChannelID: -1001, MessageID: int64(i + 1), FirstSeenAt: old,
		})
		require.NoError(t, err)
	}
	removed, err := s.PruneSightings(ctx, time.Now().Add(-30*24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(400), removed)

	report, err = s.RunSQLMaintenance(ctx)
	require.NoError(t, err)
	assert.True(t, report.Vacuumed)
	assert.Positive(t, report.FreePages)
	assert.Less(t, report.SizeAfter, report.SizeBefore)

	canceled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = s.RunSQLMaintenance(canceled)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewDB_MigrationsIdempotent(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "twice.db")
	db, err := NewDB(path, nil)
	require.NoError(t, err)
	CloseDB(db, nil)

	db, err = NewDB("file:"+path, nil)
	require.NoError(t, err)
	defer CloseDB(db, nil)

	var tables int
	require.NoError(t, db.Get(&tables,
		`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name IN ('sightings', 'duplicates');`))
	assert.Equal(t, 2, tables)
}
