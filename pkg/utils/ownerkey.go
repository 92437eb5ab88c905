package utils

import (
	"encoding/hex"
	"strings"

	"golang.org/x/crypto/blake2b"
)

// OwnerKey derives a stable pseudonymous key from an identity (email). It is used
// wherever the owner must be named outside the entry store: audit rows, pub/sub
// channels and upload folders. The identity is not case-folded: the store matches
// owners exactly, so two casings of one address are two owners here too.
func OwnerKey(identity string) string {
	sum := blake2b.Sum256([]byte(strings.TrimSpace(identity)))
	return hex.EncodeToString(sum[:16])
}
