// Package testkit builds deterministic decision problems for tests, demos,
// and the command-line tester. One seed reproduces a problem bit for bit.
package testkit

import (
	"hash/fnv"
	"math/rand"

	"godecide/ports"
)

// Kit derives independent random streams from a base seed
type Kit struct {
	seed int64
}

var _ ports.RNG = (*Kit)(nil)

// NewKit creates a kit over a base seed
func NewKit(seed int64) *Kit {
	return &Kit{seed: seed}
}

// Stream derives a generator from the base seed and a purpose name. Streams
// for different purposes are independent, so adding a draw to one purpose
// never shifts another.
func (k *Kit) Stream(name string, seed int64) *rand.Rand {
	h := fnv.New64a()
	h.Write([]byte(name))
	return rand.New(rand.NewSource(k.seed ^ seed ^ int64(h.Sum64())))
}
