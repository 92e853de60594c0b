package message

// Result is the outcome of comparing two messages. The zero value is
// Incomparable, so an unset Result never reads as "not equal".
type Result int

const (
	// Incomparable means at least one operand lacks the signal needed to be
	// compared. It says nothing about equality.
	Incomparable Result = iota
	// NoMatch means both operands were compared and no rule matched.
	NoMatch
	// Match means a cascade rule identified both operands as the same content.
	Match
)

func (r Result) String() string {
	switch r {
	case Incomparable:
		return "incomparable"
	case NoMatch:
		return "no_match"
	case Match:
		return "match"
	default:
		return "unknown"
	}
}

// Rule identifies a step of the comparison cascade.
type Rule int

// Cascade rules in evaluation order.
const (
	RuleNone Rule = iota
	RuleFingerprint
	RuleSameMessage
	RuleSameForward
	RuleTextRatio
	RuleTextWithMedia
	RuleMediaRatio
)

func (r Rule) String() string {
	switch r {
	case RuleNone:
		return "none"
	case RuleFingerprint:
		return "fingerprint"
	case RuleSameMessage:
		return "same_message"
	case RuleSameForward:
		return "same_forward"
	case RuleTextRatio:
		return "text_ratio"
	case RuleTextWithMedia:
		return "text_with_media"
	case RuleMediaRatio:
		return "media_ratio"
	default:
		return "unknown"
	}
}

// Verdict is the full outcome of Compare. TextRatio and MediaRatio hold the
// ratios computed before the cascade stopped; they stay zero for rules that
// were never reached.
type Verdict struct {
	Result     Result
	Rule       Rule
	TextRatio  float64
	MediaRatio float64
}

// Thresholds tune the fuzzy rules of the cascade.
type Thresholds struct {
	// Text is the ratio text similarity must exceed.
	Text float64
	// ForwardText replaces Text when the first operand is itself a forward.
	ForwardText float64
	// MediaText is the ratio text similarity must exceed when the first
	// operand carries media.
	MediaText float64
	// Media is the minimum media overlap ratio.
	Media float64
}

// DefaultThresholds returns the thresholds the cascade is calibrated for.
func DefaultThresholds() Thresholds {
	return Thresholds{
		Text:        0.75,
		ForwardText: 0.66,
		MediaText:   0.33,
		Media:       0.66,
	}
}

// Option configures a Matcher.
type Option func(*Matcher)

// WithThresholds overrides the default thresholds.
func WithThresholds(t Thresholds) Option {
	return func(m *Matcher) {
		m.thresholds = t
	}
}

// WithObserver installs an observer notified at each decision point.
func WithObserver(o Observer) Option {
	return func(m *Matcher) {
		if o != nil {
			m.observer = o
		}
	}
}

// Matcher compares messages. It holds no mutable state and is safe for
// concurrent use.
type Matcher struct {
	thresholds Thresholds
	observer   Observer
}

// NewMatcher creates a Matcher with default thresholds and no observer.
func NewMatcher(opts ...Option) *Matcher {
	m := &Matcher{
		thresholds: DefaultThresholds(),
		observer:   NopObserver{},
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Thresholds returns the thresholds in use.
func (m *Matcher) Thresholds() Thresholds { return m.thresholds }

// Matches is Compare without the details.
func (m *Matcher) Matches(a, b *Message) Result {
	return m.Compare(a, b).Result
}

// Compare decides whether a and b carry the same content. Both must be
// Comparable, otherwise the result is Incomparable. The rules run in order
// and the first one that holds wins:
//
//  1. equal fingerprints
//  2. same channel and message id
//  3. same forwarded origin
//  4. text similarity above the text threshold (a has significant text)
//  5. text similarity above the media text threshold (a has media and significant text)
//  6. media overlap at or above the media threshold (a has media)
//
// The rules look at a's properties to decide applicability, so the
// relation is not symmetric in every corner case.
func (m *Matcher) Compare(a, b *Message) Verdict {
	m.observer.Compared(a, b)

	if a == nil || b == nil || !a.Comparable() || !b.Comparable() {
		v := Verdict{Result: Incomparable}
		m.observer.Decided(a, b, v)
		return v
	}

	v := m.cascade(a, b)
	m.observer.Decided(a, b, v)
	return v
}

func (m *Matcher) cascade(a, b *Message) Verdict {
	v := Verdict{Result: NoMatch}

	hit := func(rule Rule, matched bool) bool {
		if matched {
			v.Result = Match
			v.Rule = rule
		}
		m.observer.RuleEvaluated(a, b, rule, v)
		return matched
	}

	if hit(RuleFingerprint, a.fingerprint == b.fingerprint) {
		return v
	}

	if hit(RuleSameMessage, a.SamePost(b)) {
		return v
	}

	sameForward := a.attrs.FromChannelID != nil &&
		sameID(a.attrs.FromChannelID, b.attrs.FromChannelID) &&
		sameID(a.attrs.FromMessageID, b.attrs.FromMessageID)
	if hit(RuleSameForward, sameForward) {
		return v
	}

	if a.significantText {
		v.TextRatio = TextRatio(a.Content(), b.Content())
		if hit(RuleTextRatio, v.TextRatio > m.textThreshold(a)) {
			return v
		}
	}

	if len(a.attrs.MediaIDs) > 0 {
		v.MediaRatio = MediaRatio(a.attrs.MediaIDs, b.attrs.MediaIDs)

		if a.significantText && hit(RuleTextWithMedia, v.TextRatio > m.thresholds.MediaText) {
			return v
		}

		if hit(RuleMediaRatio, v.MediaRatio >= m.thresholds.Media) {
			return v
		}
	}

	return v
}

// textThreshold is lowered when a already names its forwarded origin.
func (m *Matcher) textThreshold(a *Message) float64 {
	if a.attrs.FromChannelID != nil && a.attrs.FromMessageID != nil {
		return m.thresholds.ForwardText
	}
	return m.thresholds.Text
}
