package message

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
)

// AbsentToken stands in for a missing numeric field in the fingerprint input.
// It is part of the hash, so changing it invalidates every stored fingerprint.
const AbsentToken = "None"

const (
	fingerprintLength    = 16
	fingerprintSeparator = ";"
	mediaSeparator       = ","
)

// fingerprint hashes forwarding lineage, content and media ids:
//
//	sha256(fromChannelID;fromMessageID;content;media1,media2,...)[:16]
func fingerprint(a Attributes) string {
	content := a.Text
	if content == "" {
		content = a.Caption
	}

	parts := []string{
		formatID(a.FromChannelID),
		formatID(a.FromMessageID),
		content,
		strings.Join(a.MediaIDs, mediaSeparator),
	}

	sum := sha256.Sum256([]byte(strings.Join(parts, fingerprintSeparator)))
	return hex.EncodeToString(sum[:])[:fingerprintLength]
}

func formatID(p *int64) string {
	if p == nil {
		return AbsentToken
	}
	return strconv.FormatInt(*p, 10)
}
