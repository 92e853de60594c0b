package message

import (
	"context"
	"log/slog"
)

// Observer is notified as Compare progresses. Implementations must be safe
// for concurrent use when the Matcher is shared between goroutines.
type Observer interface {
	// Compared is called before anything else, with operands as given.
	Compared(a, b *Message)
	// RuleEvaluated is called after each cascade rule that was reached.
	// v.Result is Match when rule held.
	RuleEvaluated(a, b *Message, rule Rule, v Verdict)
	// Decided is called once with the final verdict.
	Decided(a, b *Message, v Verdict)
}

// NopObserver ignores every notification.
type NopObserver struct{}

func (NopObserver) Compared(_, _ *Message) {}

func (NopObserver) RuleEvaluated(_, _ *Message, _ Rule, _ Verdict) {}

func (NopObserver) Decided(_, _ *Message, _ Verdict) {}

// LogObserver writes comparison diagnostics to a slog.Logger. Only matches
// are logged at info level; a window scan compares every candidate, so the
// rest goes to debug.
type LogObserver struct {
	logger *slog.Logger
}

// NewLogObserver returns an Observer backed by logger, or slog.Default when nil.
func NewLogObserver(logger *slog.Logger) *LogObserver {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogObserver{logger: logger.With("component", "matcher")}
}

func (o *LogObserver) Compared(a, b *Message) {
	if !o.logger.Enabled(context.Background(), slog.LevelDebug) {
		return
	}
	o.logger.Debug("Match messages", "a", a, "b", b)
}

func (o *LogObserver) RuleEvaluated(a, b *Message, rule Rule, v Verdict) {
	o.logger.Debug("Cascade rule evaluated",
		"a", fingerprintOf(a),
		"b", fingerprintOf(b),
		"rule", rule.String(),
		"matched", v.Result == Match,
		"text_ratio", v.TextRatio,
		"media_ratio", v.MediaRatio,
	)
}

func (o *LogObserver) Decided(a, b *Message, v Verdict) {
	switch v.Result {
	case Match:
		o.logger.Info("Messages matched",
			"a", fingerprintOf(a),
			"b", fingerprintOf(b),
			"rule", v.Rule.String(),
			"text_ratio", round2(v.TextRatio),
			"media_ratio", round2(v.MediaRatio),
		)
	case Incomparable:
		o.logger.Debug("Messages are not comparable",
			"a", fingerprintOf(a),
			"b", fingerprintOf(b),
			"a_comparable", a != nil && a.Comparable(),
			"b_comparable", b != nil && b.Comparable(),
		)
	default:
		o.logger.Debug("Messages did not match",
			"a", fingerprintOf(a),
			"b", fingerprintOf(b),
			"text_ratio", v.TextRatio,
			"media_ratio", v.MediaRatio,
		)
	}
}

func fingerprintOf(m *Message) string {
	if m == nil {
		return ""
	}
	return m.fingerprint
}

func round2(f float64) float64 {
	return float64(int(f*100+0.5)) / 100
}
