package hash

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/cespare/xxhash/v2"
	"github.com/spaolacci/murmur3"
)

// Hash returns the hash value of data.
func Hash(data []byte) uint64 {
	return murmur3.Sum64(data)
}

// HashTextSha256 returns the hex-encoded SHA-256 digest of s.
// Used for content fingerprints, where collisions across distinct
// items are unacceptable.
func HashTextSha256(s string) string {
	h := sha256.Sum256([]byte(s))
	return hex.EncodeToString(h[:])
}

// FastHash64 returns a fast non-cryptographic hash of s.
// Used for shard selection, never for identity.
func FastHash64(s string) uint64 {
	return xxhash.Sum64String(s)
}
