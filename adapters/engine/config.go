// Package engine implements the causal effect estimation engine: the
// intervention simulator, the effect estimator with bootstrap uncertainty,
// and the mediation and fairness decomposition analyzers.
package engine

import (
	"fmt"
	"math"
	"runtime"

	"gocausal/domain/core"
)

// Config carries the tunable parameters of the engine. Zero values are
// filled from DefaultConfig at construction.
type Config struct {
	// NumSamples is the number of Monte Carlo draws per simulated intervention.
	NumSamples int
	// NumBootstrap is the number of bootstrap repetitions for the confidence interval.
	NumBootstrap int
	// Seed is the base seed every parallel unit of work derives its sub-seed from.
	Seed int64
	// MaxPathDepth bounds the number of intermediate hops during path enumeration.
	MaxPathDepth int
	// CorrelationThreshold is used by the graph estimator when no graph is supplied.
	CorrelationThreshold float64
	// AdditivityTolerance bounds the accepted gap between the indirect effect
	// and the sum of per-path contributions before a diagnostic is raised.
	AdditivityTolerance float64
	// DiscriminationThreshold is the regulatory bound on the discriminatory
	// effect component before a fairness warning is raised.
	DiscriminationThreshold float64
	// MaxParallelism caps concurrent model invocations.
	MaxParallelism int
}

// DefaultConfig returns the documented defaults.
func DefaultConfig() Config {
	return Config{
		NumSamples:              50,
		NumBootstrap:            100,
		Seed:                    42,
		MaxPathDepth:            5,
		CorrelationThreshold:    0.3,
		AdditivityTolerance:     0.05,
		DiscriminationThreshold: 0.10,
		MaxParallelism:          runtime.GOMAXPROCS(0),
	}
}

// withDefaults fills unset fields from DefaultConfig.
func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.NumSamples == 0 {
		c.NumSamples = def.NumSamples
	}
	if c.NumBootstrap == 0 {
		c.NumBootstrap = def.NumBootstrap
	}
	if c.MaxPathDepth == 0 {
		c.MaxPathDepth = def.MaxPathDepth
	}
	if c.CorrelationThreshold == 0 {
		c.CorrelationThreshold = def.CorrelationThreshold
	}
	if c.AdditivityTolerance == 0 {
		c.AdditivityTolerance = def.AdditivityTolerance
	}
	if c.DiscriminationThreshold == 0 {
		c.DiscriminationThreshold = def.DiscriminationThreshold
	}
	if c.MaxParallelism == 0 {
		c.MaxParallelism = def.MaxParallelism
	}
	return c
}

// validate rejects configurations before any model call is made.
func (c Config) validate() error {
	if c.NumSamples < 1 {
		return fmt.Errorf("%w: num_samples = %d", core.ErrNonPositiveCount, c.NumSamples)
	}
	if c.NumBootstrap < 1 {
		return fmt.Errorf("%w: num_bootstrap = %d", core.ErrNonPositiveCount, c.NumBootstrap)
	}
	if c.MaxPathDepth < 1 {
		return fmt.Errorf("%w: max_path_depth = %d", core.ErrInvalidConfig, c.MaxPathDepth)
	}
	if c.MaxParallelism < 1 {
		return fmt.Errorf("%w: max_parallelism = %d", core.ErrInvalidConfig, c.MaxParallelism)
	}
	for name, v := range map[string]float64{
		"correlation_threshold":    c.CorrelationThreshold,
		"additivity_tolerance":     c.AdditivityTolerance,
		"discrimination_threshold": c.DiscriminationThreshold,
	} {
		if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
			return fmt.Errorf("%w: %s = %v", core.ErrInvalidConfig, name, v)
		}
	}
	return nil
}
