package util

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Fingerprint hashes an input after normalizing whitespace and case, so
// trivially reworded repeats of the same text collide on purpose.
func Fingerprint(input string) string {
	normalized := strings.ToLower(strings.Join(strings.Fields(input), " "))
	sum := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:])
}
