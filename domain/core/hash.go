package core

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
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

// Fingerprint identifies a saved problem's full constraint state
type Fingerprint Hash

// NewFingerprint creates a fingerprint from serialized problem data
func NewFingerprint(data []byte) Fingerprint { return Fingerprint(NewHash(data)) }

// String returns the string representation
func (f Fingerprint) String() string { return Hash(f).String() }

// ComputeFingerprint hashes the canonical parts of a problem: topology shape,
// statement lists, and box overrides, in a stable field order.
func ComputeFingerprint(parts ...interface{}) Fingerprint {
	var data strings.Builder
	for _, p := range parts {
		data.WriteString(fmt.Sprintf("%v|", p))
	}
	return NewFingerprint([]byte(data.String()))
}
