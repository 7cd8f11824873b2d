// Package rng provides the production implementation of ports.RNGPort.
package rng

import (
	"context"
	"math/rand"

	"gocausal/domain/core"
	"gocausal/ports"
)

// Adapter derives deterministic rand streams from a base seed.
type Adapter struct{}

// NewAdapter creates a new RNG adapter.
func NewAdapter() *Adapter {
	return &Adapter{}
}

// SeededStream creates a deterministic random number generator for a named operation
func (a *Adapter) SeededStream(ctx context.Context, name string, seed int64) (*rand.Rand, error) {
	return rand.New(rand.NewSource(core.DeriveSeed(seed, name, 0))), nil
}

// DrawStream creates a deterministic RNG for one unit of parallel work.
// The sub-seed mixes the base seed, operation name, and draw index so the
// stream is stable no matter which goroutine consumes it.
func (a *Adapter) DrawStream(ctx context.Context, op string, baseSeed int64, draw int) (*rand.Rand, error) {
	return rand.New(rand.NewSource(core.DeriveSeed(baseSeed, op, draw))), nil
}

var _ ports.RNGPort = (*Adapter)(nil)
