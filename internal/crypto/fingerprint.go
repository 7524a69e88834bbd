package crypto

import (
	"crypto/sha256"
	"encoding/hex"
)

// Fingerprint returns a short hex fingerprint of a key.
//
// It hashes with SHA-256 and truncates to 10 bytes (20 hex chars), enough to
// tell keys apart in logs without revealing them.
func Fingerprint(k Key) string {
	sum := sha256.Sum256(k[:])
	return hex.EncodeToString(sum[:10])
}
