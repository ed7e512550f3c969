package checksum

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"

	"github.com/spaolacci/murmur3"
)

// Algorithm names.
const (
	SHA256  = "sha256"
	Murmur3 = "murmur3"
)

// Compute returns the hex checksum of data using alg. Unknown algorithms
// fall back to murmur3.
func Compute(data []byte, alg string) string {
	if alg == SHA256 || alg == "" {
		return SumSHA256(data)
	}
	return Sum32(data)
}

// SumSHA256 computes the hex encoded SHA-256 of data.
func SumSHA256(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// Sum32 computes the murmur3 32-bit hash of data as 8 hex digits.
func Sum32(data []byte) string {
	return fmt.Sprintf("%08x", murmur3.Sum32(data))
}

// Verify checks data against an expected checksum in constant time.
func Verify(data []byte, alg, expected string) bool {
	actual := Compute(data, alg)
	return subtle.ConstantTimeCompare([]byte(actual), []byte(expected)) == 1
}
