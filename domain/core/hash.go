package core

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math"
)

// Hash represents a cryptographic hash
type Hash string

// NewHash creates a new hash from data
func NewHash(data []byte) Hash {
	sum := sha256.Sum256(data)
	return Hash(hex.EncodeToString(sum[:]))
}

// String returns the string representation
func (h Hash) String() string {
	return string(h)
}

// IsEmpty checks if the hash is empty
func (h Hash) IsEmpty() bool {
	return h == ""
}

// Equals checks if two hashes are equal
func (h Hash) Equals(other Hash) bool {
	return h == other
}

// DeriveSeed produces a deterministic sub-seed for one unit of parallel work.
// The same (base, op, index) triple always yields the same seed, so Monte
// Carlo draws and bootstrap repetitions are bit-reproducible regardless of
// how they are scheduled across goroutines.
func DeriveSeed(base int64, op string, index int) int64 {
	sum := sha256.Sum256(fmt.Appendf(nil, "%d|%s|%d", base, op, index))
	return int64(binary.BigEndian.Uint64(sum[:8]))
}

// CorpusFingerprint hashes a corpus matrix for replayability audits.
func CorpusFingerprint(rows [][]float64) Hash {
	h := sha256.New()
	buf := make([]byte, 8)
	for _, row := range rows {
		for _, v := range row {
			binary.BigEndian.PutUint64(buf, math.Float64bits(v))
			h.Write(buf)
		}
		h.Write([]byte{0xff})
	}
	return Hash(hex.EncodeToString(h.Sum(nil)))
}
