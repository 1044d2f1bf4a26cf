package core

import (
	"crypto/sha256"
	"encoding/hex"
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

// HashStrings hashes an ordered sequence of strings with a field separator,
// so ["ab","c"] and ["a","bc"] produce distinct hashes. Used for row
// duplicate keys and dataset content fingerprints.
func HashStrings(parts ...string) Hash {
	hasher := sha256.New()
	sep := []byte{0x1f}
	for _, p := range parts {
		hasher.Write([]byte(p))
		hasher.Write(sep)
	}
	return Hash(hex.EncodeToString(hasher.Sum(nil)))
}
