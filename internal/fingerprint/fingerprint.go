// Package fingerprint derives a stable dedup key from raw post text.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

var (
	urlPattern        = regexp.MustCompile(`https?://\S+`)
	whitespacePattern = regexp.MustCompile(`\s+`)
)

// Compute normalizes text and returns its SHA-256 hex digest.
//
// Normalization: lowercase, strip http(s) URLs, collapse whitespace
// runs to single spaces, trim, NFC. Identical content collected from
// different platforms or formats hashes to the same value.
func Compute(text string) string {
	normalized := strings.ToLower(text)
	normalized = urlPattern.ReplaceAllString(normalized, "")
	normalized = whitespacePattern.ReplaceAllString(normalized, " ")
	normalized = strings.TrimSpace(normalized)
	normalized = norm.NFC.String(normalized)

	sum := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:])
}
