// Package sha256 wraps github.com/minio/sha256-simd, which uses SIMD and the
// SHA extensions where the CPU has them.
package sha256

import (
	"hash"

	sha "github.com/minio/sha256-simd"
)

const Size = sha.Size

// Sum256 returns the SHA-256 digest of the data.
func Sum256(data []byte) [Size]byte { return sha.Sum256(data) }

// Hash returns the SHA-256 digest of the data as a slice.
func Hash(data []byte) []byte {
	h := sha.Sum256(data)
	return h[:]
}

// New returns a new hash.Hash computing SHA-256.
func New() hash.Hash { return sha.New() }
