// Package integrity computes and verifies content hashes for stored
// documents. Marks are pinned to the hash of the text they were made
// against, so a document edit that would silently shift byte offsets is
// detected instead of producing misplaced highlights.
package integrity

import (
	"encoding/hex"

	"github.com/zeebo/blake3"
)

// Hash returns the hex-encoded BLAKE3-256 hash of data.
func Hash(data []byte) string {
	h := blake3.Sum256(data)
	return hex.EncodeToString(h[:])
}

// HashString returns the hex-encoded BLAKE3-256 hash of s.
func HashString(s string) string {
	return Hash([]byte(s))
}

// Verify reports whether data still hashes to want. An empty want never
// verifies.
func Verify(data []byte, want string) bool {
	return want != "" && Hash(data) == want
}

// IsValid reports whether s looks like a hex-encoded BLAKE3-256 hash:
// exactly 64 lowercase hex characters.
func IsValid(s string) bool {
	if len(s) != 64 {
		return false
	}
	for _, c := range s {
		isDigit := c >= '0' && c <= '9'
		isLower := c >= 'a' && c <= 'f'
		if !isDigit && !isLower {
			return false
		}
	}
	return true
}
