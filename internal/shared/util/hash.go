package util

import (
	"crypto/sha256"
	"encoding/hex"
)

// HashUserKey returns a filesystem- and object-key-safe identifier for an
// agent ID. Raw identifiers never appear in storage paths.
func HashUserKey(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}
