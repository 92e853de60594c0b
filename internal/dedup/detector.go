// Package dedup decides whether an incoming channel post repeats content
// already seen, using the persistent fingerprint registry first and the
// in-memory candidate window second.
package dedup

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/edgard/dukhota/internal/database"
	"github.com/edgard/dukhota/internal/message"
	"github.com/edgard/dukhota/internal/window"
)

// Source names where the original of a duplicate was found.
type Source string

// Sources of a match.
const (
	SourceNone     Source = ""
	SourceRegistry Source = "registry"
	SourceWindow   Source = "window"
)

// Registry is the part of database.Store the detector writes to.
type Registry interface {
	RecordSighting(ctx context.Context, sighting *database.Sighting) (*database.Sighting, bool, error)
	RecordDuplicate(ctx context.Context, duplicate *database.Duplicate) error
}

// Report describes the outcome of observing one post.
type Report struct {
	Result      message.Result
	Verdict     message.Verdict
	Source      Source
	Fingerprint string

	OriginalChannelID int64
	OriginalMessageID int64

	// SamePost is set when the match is the post itself, e.g. a re-delivered
	// update. Such reports are never duplicates.
	SamePost bool
}

// Duplicate reports whether the observed post repeats another post.
func (r Report) Duplicate() bool {
	return r.Result == message.Match && !r.SamePost
}

// Detector runs incoming posts against the registry and the window.
type Detector struct {
	registry Registry
	window   *window.Window
	logger   *slog.Logger
	now      func() time.Time
}

// NewDetector creates a Detector.
func NewDetector(registry Registry, win *window.Window, logger *slog.Logger) *Detector {
	if logger == nil {
		logger = slog.Default()
	}
	return &Detector{
		registry: registry,
		window:   win,
		logger:   logger.With("component", "detector"),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Window returns the candidate window used by the detector.
func (d *Detector) Window() *window.Window { return d.window }

// Observe checks msg for an earlier post with the same content and records
// the outcome. Incomparable posts are neither stored nor matched.
func (d *Detector) Observe(ctx context.Context, msg *message.Message) (Report, error) {
	if msg == nil || !msg.Comparable() {
		report := Report{Result: message.Incomparable}
		if msg != nil {
			report.Fingerprint = msg.Fingerprint()
		}
		d.logger.DebugContext(ctx, "Skipping incomparable post", "post", msg)
		return report, nil
	}

	channelID, _ := msg.ChannelID()
	messageID, _ := msg.MessageID()
	now := d.now()

	report := Report{
		Result:      message.NoMatch,
		Verdict:     message.Verdict{Result: message.NoMatch},
		Fingerprint: msg.Fingerprint(),
	}

	first, existed, err := d.registry.RecordSighting(ctx, &database.Sighting{
		Fingerprint: msg.Fingerprint(),
		ChannelID:   channelID,
		MessageID:   messageID,
		FirstSeenAt: now,
	})
	if err != nil {
		return Report{}, fmt.Errorf("failed to record sighting: %w", err)
	}

	switch {
	case existed:
		report.Result = message.Match
		report.Source = SourceRegistry
		report.OriginalChannelID = first.ChannelID
		report.OriginalMessageID = first.MessageID
		report.SamePost = first.SamePost(channelID, messageID)
		report.Verdict = message.Verdict{Result: message.Match, Rule: message.RuleFingerprint}
		if report.SamePost {
			report.Verdict.Rule = message.RuleSameMessage
		}

	default:
		candidate, verdict, err := d.window.FindMatch(ctx, msg)
		if err != nil {
			return Report{}, fmt.Errorf("failed to search window: %w", err)
		}
		if candidate != nil {
			report.Result = message.Match
			report.Verdict = verdict
			report.Source = SourceWindow
			report.OriginalChannelID, _ = candidate.Message.ChannelID()
			report.OriginalMessageID, _ = candidate.Message.MessageID()
			report.SamePost = candidate.Message.SamePost(msg)
		}
	}

	if report.SamePost {
		d.logger.DebugContext(ctx, "Post already observed", "post", msg, "source", report.Source)
		return report, nil
	}

	if !report.Duplicate() {
		if err := d.window.Add(msg, now); err != nil {
			return Report{}, fmt.Errorf("failed to add post to window: %w", err)
		}
		return report, nil
	}

	duplicate := &database.Duplicate{
		ChannelID:         channelID,
		MessageID:         messageID,
		OriginalChannelID: report.OriginalChannelID,
		OriginalMessageID: report.OriginalMessageID,
		Fingerprint:       report.Fingerprint,
		Rule:              report.Verdict.Rule.String(),
		TextRatio:         report.Verdict.TextRatio,
		MediaRatio:        report.Verdict.MediaRatio,
		DetectedAt:        now,
	}
	if err := d.registry.RecordDuplicate(ctx, duplicate); err != nil {
		return Report{}, fmt.Errorf("failed to record duplicate: %w", err)
	}

	d.logger.InfoContext(ctx, "Duplicate post detected",
		"post", msg,
		"original_channel_id", report.OriginalChannelID,
		"original_message_id", report.OriginalMessageID,
		"rule", report.Verdict.Rule.String(),
		"source", report.Source)

	return report, nil
}
