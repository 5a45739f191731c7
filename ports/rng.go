package ports

import "math/rand"

// RNG hands out deterministic random streams for named purposes, so one seed
// reproduces a generated problem bit for bit regardless of call order across
// purposes.
type RNG interface {
	// Stream derives an independent generator from the base seed and a
	// purpose name
	Stream(name string, seed int64) *rand.Rand
}
