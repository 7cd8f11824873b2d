package ports

import (
	"context"
	"math/rand"
)

// RNGPort provides seeded random number generation for deterministic operations
type RNGPort interface {
	// SeededStream creates a deterministic random number generator for a named operation
	SeededStream(ctx context.Context, name string, seed int64) (*rand.Rand, error)

	// DrawStream creates a deterministic RNG for one unit of parallel work.
	// The sub-seed is derived from the base seed, the operation name, and the
	// draw index, so a fixed seed yields bit-identical results independent of
	// the degree of parallelism used.
	DrawStream(ctx context.Context, op string, baseSeed int64, draw int) (*rand.Rand, error)
}
