package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edgard/dukhota/internal/message"
)

func TestMain(m *testing.M) {
	color.NoColor = true
	os.Exit(m.Run())
}

func writePost(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)

	err := cmd.Execute()
	return out.String(), err
}

func TestFingerprintCmd(t *testing.T) {
	t.Parallel()

	path := writePost(t, "post.yaml", `
channel_id: -1009999
message_id: 5
from_channel_id: -1001234567890
from_message_id: 99
text: hello world
media_ids: [m1, m2]
`)

	out, err := execute(t, "", "fingerprint", path)
	require.NoError(t, err)
	assert.Equal(t, "d2689500d7a59712\n", out)
}

func TestFingerprintCmd_StdinJSON(t *testing.T) {
	t.Parallel()

	out, err := execute(t, `{"caption": "caption here", "media_ids": ["x"]}`, "fingerprint", "-")
	require.NoError(t, err)
	assert.Equal(t, "0d014c6708263976\n", out)
}

func TestFingerprintCmd_Errors(t *testing.T) {
	t.Parallel()

	_, err := execute(t, "", "fingerprint", filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = execute(t, "", "fingerprint", writePost(t, "bad.yaml", "txet: typo\n"))
	assert.Error(t, err)

	_, err = execute(t, "", "fingerprint", writePost(t, "chan.yaml", "channel_id: 12345\n"))
	assert.ErrorIs(t, err, message.ErrMalformedChannelID)
}

func TestCompareCmd(t *testing.T) {
	t.Parallel()

	text := strings.Repeat("a long enough announcement ", 4)
	a := writePost(t, "a.yaml", "channel_id: -1001\nmessage_id: 1\ntext: "+text+"\n")
	b := writePost(t, "b.yaml", "channel_id: -1002\nmessage_id: 7\ntext: "+text+"\n")
	c := writePost(t, "c.yaml", "channel_id: -1002\nmessage_id: 8\nmedia_ids: [m1]\n")
	short := writePost(t, "short.yaml", "channel_id: -1002\nmessage_id: 9\ntext: hi\n")

	out, err := execute(t, "", "compare", a, b)
	require.NoError(t, err)
	assert.Contains(t, out, "verdict:     match")
	assert.Contains(t, out, "rule:        fingerprint")

	out, err = execute(t, "", "compare", a, c)
	require.NoError(t, err)
	assert.Contains(t, out, "verdict:     no_match")
	assert.NotContains(t, out, "rule:")

	out, err = execute(t, "", "compare", short, a)
	require.NoError(t, err)
	assert.Contains(t, out, "verdict:     incomparable")
}

func TestCompareCmd_Verbose(t *testing.T) {
	t.Parallel()

	text := strings.Repeat("a long enough announcement ", 4)
	a := writePost(t, "a.yaml", "channel_id: -1001\nmessage_id: 1\ntext: "+text+"\n")
	b := writePost(t, "b.yaml", "channel_id: -1002\nmessage_id: 7\ntext: "+text+"!\n")

	out, err := execute(t, "", "compare", "--verbose", "--text-threshold", "0.5", a, b)
	require.NoError(t, err)
	assert.Contains(t, out, "component=matcher")
	assert.Contains(t, out, "rule:        text_ratio")
}
