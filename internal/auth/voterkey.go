package auth

import (
	"crypto/sha256"
	"encoding/hex"
)

// VoterKey derives the pseudonymous primary key for a normalized phone.
// The hash is unkeyed, so a phone maps to the same key across restarts and
// secret rotations.
func VoterKey(normalizedPhone string) string {
	sum := sha256.Sum256([]byte(normalizedPhone))
	return hex.EncodeToString(sum[:])
}
