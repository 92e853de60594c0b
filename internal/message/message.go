// Package message models a single observed channel post and decides whether
// two posts carry the same content. A Message is built once from raw
// attributes and never changes; a Matcher compares two of them through an
// ordered cascade of increasingly fuzzy rules.
package message

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"strings"
	"unicode/utf8"
)

// channelPrefix is prepended by Telegram to supergroup and channel ids.
const channelPrefix = "-100"

// significantTextLength is the rune count text or caption must exceed
// before similarity ratios are considered meaningful.
const significantTextLength = 64

// ErrMalformedChannelID is returned by New when a channel id is present but
// does not carry the "-100" prefix followed by the underlying chat id.
var ErrMalformedChannelID = errors.New("malformed channel id")

// Attributes are the raw fields of a post as supplied by the ingestion layer.
// A nil pointer means the value is absent.
type Attributes struct {
	FromID        *int64   `json:"from_id,omitempty"         yaml:"from_id,omitempty"`
	ChannelID     *int64   `json:"channel_id,omitempty"      yaml:"channel_id,omitempty"`
	MessageID     *int64   `json:"message_id,omitempty"      yaml:"message_id,omitempty"`
	FromChannelID *int64   `json:"from_channel_id,omitempty" yaml:"from_channel_id,omitempty"`
	FromMessageID *int64   `json:"from_message_id,omitempty" yaml:"from_message_id,omitempty"`
	ForwardFromID *int64   `json:"forward_from_id,omitempty" yaml:"forward_from_id,omitempty"`
	Text          string   `json:"text,omitempty"            yaml:"text,omitempty"`
	Caption       string   `json:"caption,omitempty"         yaml:"caption,omitempty"`
	MediaIDs      []string `json:"media_ids,omitempty"       yaml:"media_ids,omitempty"`
}

// Message is an immutable observed post together with the values derived
// from it at construction time.
type Message struct {
	attrs Attributes

	fingerprint     string
	significantText bool
	chatID          int64
	hasChatID       bool
}

// New builds a Message from attrs. The media id slice is copied, so later
// changes to attrs do not leak into the Message.
func New(attrs Attributes) (*Message, error) {
	attrs.MediaIDs = slices.Clone(attrs.MediaIDs)
	attrs.FromID = cloneID(attrs.FromID)
	attrs.ChannelID = cloneID(attrs.ChannelID)
	attrs.MessageID = cloneID(attrs.MessageID)
	attrs.FromChannelID = cloneID(attrs.FromChannelID)
	attrs.FromMessageID = cloneID(attrs.FromMessageID)
	attrs.ForwardFromID = cloneID(attrs.ForwardFromID)

	chatID, hasChatID, err := deriveChatID(attrs.ChannelID)
	if err != nil {
		return nil, err
	}

	m := &Message{
		attrs:     attrs,
		chatID:    chatID,
		hasChatID: hasChatID,
	}
	m.fingerprint = fingerprint(attrs)
	m.significantText = utf8.RuneCountInString(m.Content()) > significantTextLength

	return m, nil
}

// MustNew is like New but panics on error. Intended for tests and fixtures.
func MustNew(attrs Attributes) *Message {
	m, err := New(attrs)
	if err != nil {
		panic(err)
	}
	return m
}

// ID returns a pointer to v, for filling optional Attributes fields.
func ID(v int64) *int64 {
	return &v
}

// Attributes returns a copy of the raw attributes the message was built from.
func (m *Message) Attributes() Attributes {
	a := m.attrs
	a.MediaIDs = slices.Clone(m.attrs.MediaIDs)
	a.FromID = cloneID(m.attrs.FromID)
	a.ChannelID = cloneID(m.attrs.ChannelID)
	a.MessageID = cloneID(m.attrs.MessageID)
	a.FromChannelID = cloneID(m.attrs.FromChannelID)
	a.FromMessageID = cloneID(m.attrs.FromMessageID)
	a.ForwardFromID = cloneID(m.attrs.ForwardFromID)
	return a
}

// Fingerprint returns the 16 hex character content digest.
func (m *Message) Fingerprint() string { return m.fingerprint }

// SignificantText reports whether text or caption is longer than 64 characters.
func (m *Message) SignificantText() bool { return m.significantText }

// ChatID returns the channel id without the "-100" prefix. ok is false when
// the message has no channel id.
func (m *Message) ChatID() (id int64, ok bool) { return m.chatID, m.hasChatID }

// ChannelID returns the channel the post was observed in.
func (m *Message) ChannelID() (int64, bool) { return deref(m.attrs.ChannelID) }

// MessageID returns the post's sequence number within its channel.
func (m *Message) MessageID() (int64, bool) { return deref(m.attrs.MessageID) }

// Origin returns the channel and message id of the forwarded original.
func (m *Message) Origin() (channelID, messageID int64, ok bool) {
	if m.attrs.FromChannelID == nil || m.attrs.FromMessageID == nil {
		return 0, 0, false
	}
	return *m.attrs.FromChannelID, *m.attrs.FromMessageID, true
}

// Content returns the text, falling back to the caption.
func (m *Message) Content() string {
	if m.attrs.Text != "" {
		return m.attrs.Text
	}
	return m.attrs.Caption
}

// MediaCount returns the number of attached media ids, repeats included.
func (m *Message) MediaCount() int { return len(m.attrs.MediaIDs) }

// SelfForward reports whether the post was forwarded by its own author.
func (m *Message) SelfForward() bool {
	return m.attrs.ForwardFromID != nil && sameID(m.attrs.ForwardFromID, m.attrs.FromID)
}

// Comparable reports whether the message carries enough signal to be matched:
// it has channel and message ids, has media or significant text, and is not
// a self-forward.
func (m *Message) Comparable() bool {
	idsPresent := m.attrs.ChannelID != nil && m.attrs.MessageID != nil
	significantContent := len(m.attrs.MediaIDs) > 0 || m.significantText

	return idsPresent && significantContent && !m.SelfForward()
}

// SamePost reports whether both messages are observations of one post.
func (m *Message) SamePost(other *Message) bool {
	return m.attrs.ChannelID != nil &&
		sameID(m.attrs.ChannelID, other.attrs.ChannelID) &&
		sameID(m.attrs.MessageID, other.attrs.MessageID)
}

// LogValue keeps log lines short: identifiers and derived values only.
func (m *Message) LogValue() slog.Value {
	attrs := []slog.Attr{
		slog.String("fingerprint", m.fingerprint),
		slog.String("channel_id", formatID(m.attrs.ChannelID)),
		slog.String("message_id", formatID(m.attrs.MessageID)),
	}
	if m.attrs.FromChannelID != nil {
		attrs = append(attrs,
			slog.String("from_channel_id", formatID(m.attrs.FromChannelID)),
			slog.String("from_message_id", formatID(m.attrs.FromMessageID)),
		)
	}
	attrs = append(attrs,
		slog.Bool("significant_text", m.significantText),
		slog.Int("media", len(m.attrs.MediaIDs)),
	)
	return slog.GroupValue(attrs...)
}

func deriveChatID(channelID *int64) (int64, bool, error) {
	if channelID == nil {
		return 0, false, nil
	}

	raw := strconv.FormatInt(*channelID, 10)
	rest, found := strings.CutPrefix(raw, channelPrefix)
	if !found || rest == "" {
		return 0, false, fmt.Errorf("%w: %s", ErrMalformedChannelID, raw)
	}

	chatID, err := strconv.ParseInt(rest, 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("%w: %s: %v", ErrMalformedChannelID, raw, err)
	}

	return chatID, true, nil
}

// sameID treats two absent values as equal.
func sameID(a, b *int64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func cloneID(p *int64) *int64 {
	if p == nil {
		return nil
	}
	return ID(*p)
}

func deref(p *int64) (int64, bool) {
	if p == nil {
		return 0, false
	}
	return *p, true
}
