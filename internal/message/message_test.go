package message_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edgard/dukhota/internal/message"
)

const longText = "Hello world, this is a sufficiently long test message exceeding sixty four characters total."

func TestNew_ChatID(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		channelID *int64
		wantID    int64
		wantOK    bool
		wantErr   bool
	}{
		{name: "supergroup prefix stripped", channelID: message.ID(-1001234567890), wantID: 1234567890, wantOK: true},
		{name: "leading zero after prefix", channelID: message.ID(-1000123), wantID: 123, wantOK: true},
		{name: "absent channel id", channelID: nil, wantOK: false},
		{name: "basic group id without prefix", channelID: message.ID(-4567), wantErr: true},
		{name: "positive user id", channelID: message.ID(777), wantErr: true},
		{name: "bare prefix", channelID: message.ID(-100), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			m, err := message.New(message.Attributes{ChannelID: tt.channelID, Text: "x"})
			if tt.wantErr {
				require.ErrorIs(t, err, message.ErrMalformedChannelID)
				assert.Nil(t, m)
				return
			}
			require.NoError(t, err)

			id, ok := m.ChatID()
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantID, id)
		})
	}
}

func TestNew_SignificantText(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		text    string
		caption string
		want    bool
	}{
		{name: "empty", want: false},
		{name: "exactly 64 characters", text: strings.Repeat("a", 64), want: false},
		{name: "65 characters", text: strings.Repeat("a", 65), want: true},
		{name: "caption used when text empty", caption: strings.Repeat("b", 65), want: true},
		{name: "runes not bytes", text: strings.Repeat("ж", 40), want: false},
		{name: "long cyrillic", text: strings.Repeat("ж", 65), want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			m := message.MustNew(message.Attributes{Text: tt.text, Caption: tt.caption})
			assert.Equal(t, tt.want, m.SignificantText())
		})
	}
}

func TestNew_CopiesInput(t *testing.T) {
	t.Parallel()

	media := []string{"m1", "m2"}
	channel := int64(-1001)
	m := message.MustNew(message.Attributes{ChannelID: &channel, MediaIDs: media})
	before := m.Fingerprint()

	media[0] = "changed"
	channel = -1002

	assert.Equal(t, before, m.Fingerprint())
	assert.Equal(t, []string{"m1", "m2"}, m.Attributes().MediaIDs)
	id, _ := m.ChannelID()
	assert.Equal(t, int64(-1001), id)

	attrs := m.Attributes()
	attrs.MediaIDs[1] = "changed"
	assert.Equal(t, []string{"m1", "m2"}, m.Attributes().MediaIDs)
}

func TestFingerprint_Golden(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		attrs message.Attributes
		want  string
	}{
		{
			name: "lineage text and media",
			attrs: message.Attributes{
				FromChannelID: message.ID(-1001234567890),
				FromMessageID: message.ID(99),
				Text:          "hello world",
				MediaIDs:      []string{"m1", "m2"},
			},
			want: "d2689500d7a59712",
		},
		{
			name:  "everything absent",
			attrs: message.Attributes{},
			want:  "791ba7f5be145e7c",
		},
		{
			name:  "caption fallback",
			attrs: message.Attributes{Caption: "caption here", MediaIDs: []string{"x"}},
			want:  "0d014c6708263976",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			m := message.MustNew(tt.attrs)
			assert.Equal(t, tt.want, m.Fingerprint())
			assert.Len(t, m.Fingerprint(), 16)
		})
	}
}

func TestFingerprint_IgnoresIdentityFields(t *testing.T) {
	t.Parallel()

	a := message.MustNew(message.Attributes{
		FromID:        message.ID(1),
		ChannelID:     message.ID(-1001),
		MessageID:     message.ID(5),
		FromChannelID: message.ID(-1009),
		FromMessageID: message.ID(42),
		Text:          longText,
		MediaIDs:      []string{"m1"},
	})
	b := message.MustNew(message.Attributes{
		FromID:        message.ID(2),
		ChannelID:     message.ID(-1002),
		MessageID:     message.ID(6),
		ForwardFromID: message.ID(3),
		FromChannelID: message.ID(-1009),
		FromMessageID: message.ID(42),
		Text:          longText,
		MediaIDs:      []string{"m1"},
	})

	assert.Equal(t, a.Fingerprint(), b.Fingerprint())
	assert.Equal(t, a.Fingerprint(), message.MustNew(a.Attributes()).Fingerprint())
}

func TestFingerprint_SensitiveToContent(t *testing.T) {
	t.Parallel()

	base := message.Attributes{Text: "t", MediaIDs: []string{"a", "b"}}
	reordered := message.Attributes{Text: "t", MediaIDs: []string{"b", "a"}}
	caption := message.Attributes{Caption: "t", MediaIDs: []string{"a", "b"}}
	forwarded := message.Attributes{Text: "t", MediaIDs: []string{"a", "b"}, FromChannelID: message.ID(-1001)}

	fp := message.MustNew(base).Fingerprint()
	assert.NotEqual(t, fp, message.MustNew(reordered).Fingerprint())
	assert.Equal(t, fp, message.MustNew(caption).Fingerprint())
	assert.NotEqual(t, fp, message.MustNew(forwarded).Fingerprint())
}

func TestComparable(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		attrs message.Attributes
		want  bool
	}{
		{
			name:  "ids and long text",
			attrs: message.Attributes{ChannelID: message.ID(-1001), MessageID: message.ID(1), Text: longText},
			want:  true,
		},
		{
			name:  "ids and media only",
			attrs: message.Attributes{ChannelID: message.ID(-1001), MessageID: message.ID(1), MediaIDs: []string{"m"}},
			want:  true,
		},
		{
			name:  "missing message id",
			attrs: message.Attributes{ChannelID: message.ID(-1001), Text: longText},
			want:  false,
		},
		{
			name:  "missing channel id",
			attrs: message.Attributes{MessageID: message.ID(1), Text: longText},
			want:  false,
		},
		{
			name:  "short text without media",
			attrs: message.Attributes{ChannelID: message.ID(-1001), MessageID: message.ID(1), Text: "short"},
			want:  false,
		},
		{
			name: "self forward",
			attrs: message.Attributes{
				ChannelID: message.ID(-1001), MessageID: message.ID(1), Text: longText,
				FromID: message.ID(7), ForwardFromID: message.ID(7),
			},
			want: false,
		},
		{
			name: "forward by someone else",
			attrs: message.Attributes{
				ChannelID: message.ID(-1001), MessageID: message.ID(1), Text: longText,
				FromID: message.ID(7), ForwardFromID: message.ID(8),
			},
			want: true,
		},
		{
			name: "forward with unknown author",
			attrs: message.Attributes{
				ChannelID: message.ID(-1001), MessageID: message.ID(1), Text: longText,
				ForwardFromID: message.ID(8),
			},
			want: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.want, message.MustNew(tt.attrs).Comparable())
		})
	}
}

// An explicit zero id is a present value, not an absent one.
func TestZeroIDsArePresent(t *testing.T) {
	t.Parallel()

	zero := message.MustNew(message.Attributes{
		FromChannelID: message.ID(0), FromMessageID: message.ID(0), Text: "hello world",
	})
	absent := message.MustNew(message.Attributes{Text: "hello world"})
	assert.Equal(t, "be7a3b9603a62190", zero.Fingerprint())
	assert.Equal(t, "d74939fb5c7d478e", absent.Fingerprint())

	_, err := message.New(message.Attributes{ChannelID: message.ID(0)})
	assert.ErrorIs(t, err, message.ErrMalformedChannelID)

	m := message.MustNew(message.Attributes{ChannelID: message.ID(-1001), MessageID: message.ID(0), Text: longText})
	id, ok := m.MessageID()
	assert.True(t, ok)
	assert.Zero(t, id)
	assert.True(t, m.Comparable())

	selfForward := message.MustNew(message.Attributes{
		ChannelID: message.ID(-1001), MessageID: message.ID(1), Text: longText,
		FromID: message.ID(0), ForwardFromID: message.ID(0),
	})
	assert.True(t, selfForward.SelfForward())
	assert.False(t, selfForward.Comparable())
}
