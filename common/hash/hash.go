// Package hash computes content fingerprints for evidence integrity proofs.
package hash

import (
	"crypto/sha256"
	"encoding/hex"
)

// SHA256Hex computes the SHA-256 digest of content and returns it as a
// 64-character lowercase hex string. Deterministic, no side effects.
func SHA256Hex(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}
