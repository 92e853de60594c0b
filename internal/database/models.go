package database

import "time"

// Sighting records the first post that carried a fingerprint. Only the dedup
// key and the post identity are kept, never the content.
type Sighting struct {
	Fingerprint string    `db:"fingerprint"`
	ChannelID   int64     `db:"channel_id"`
	MessageID   int64     `db:"message_id"`
	FirstSeenAt time.Time `db:"first_seen_at"`
	LastSeenAt  time.Time `db:"last_seen_at"`
	SeenCount   int       `db:"seen_count"`
}

// SamePost reports whether the sighting refers to the given post.
func (s *Sighting) SamePost(channelID, messageID int64) bool {
	return s.ChannelID == channelID && s.MessageID == messageID
}

// Duplicate is a detected repost and the post it repeats.
type Duplicate struct {
	ID                uint      `db:"id"`
	ChannelID         int64     `db:"channel_id"`
	MessageID         int64     `db:"message_id"`
	OriginalChannelID int64     `db:"original_channel_id"`
	OriginalMessageID int64     `db:"original_message_id"`
	Fingerprint       string    `db:"fingerprint"`
	Rule              string    `db:"rule"`
	TextRatio         float64   `db:"text_ratio"`
	MediaRatio        float64   `db:"media_ratio"`
	DetectedAt        time.Time `db:"detected_at"`
}

// MaintenanceReport describes one maintenance run. Sizes are in bytes.
type MaintenanceReport struct {
	SizeBefore int64
	SizeAfter  int64
	FreePages  int64
	Vacuumed   bool
}
