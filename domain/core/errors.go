package core

import (
	"errors"
	"fmt"
)

// Domain errors - centralized error definitions
var (
	// Configuration errors - raised at construction, before any model call
	ErrInvalidConfig    = errors.New("invalid engine configuration")
	ErrEmptyCorpus      = fmt.Errorf("%w: training corpus is empty", ErrInvalidConfig)
	ErrRaggedCorpus     = fmt.Errorf("%w: corpus rows have unequal length", ErrInvalidConfig)
	ErrLabelMismatch    = fmt.Errorf("%w: label count does not match row count", ErrInvalidConfig)
	ErrNonPositiveCount = fmt.Errorf("%w: sample and bootstrap counts must be positive", ErrInvalidConfig)
	ErrEdgeOutOfRange   = fmt.Errorf("%w: graph edge references out-of-range feature", ErrInvalidConfig)

	// Argument errors - raised before simulation begins
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrFeatureOutOfRange  = fmt.Errorf("%w: feature index out of range", ErrInvalidArgument)
	ErrNonFiniteValue     = fmt.Errorf("%w: non-finite value", ErrInvalidArgument)
	ErrInstanceLength     = fmt.Errorf("%w: instance length does not match feature count", ErrInvalidArgument)
	ErrUnknownQueryKind   = fmt.Errorf("%w: unknown query kind", ErrInvalidArgument)
	ErrMissingQueryFields = fmt.Errorf("%w: query fields not populated for kind", ErrInvalidArgument)

	// Computation errors - raised after exhausting all samples
	ErrComputation       = errors.New("computation failed")
	ErrAllSamplesInvalid = fmt.Errorf("%w: every sample produced a non-finite prediction", ErrComputation)
)

// NewFeatureRangeError reports an out-of-range feature index with an optional
// human-readable name for the offending position.
func NewFeatureRangeError(index, count int, name string) error {
	if name != "" {
		return fmt.Errorf("%w: %q (index %d, feature count %d)", ErrFeatureOutOfRange, name, index, count)
	}
	return fmt.Errorf("%w: index %d, feature count %d", ErrFeatureOutOfRange, index, count)
}

// NewNonFiniteError reports a non-finite value at a named position.
func NewNonFiniteError(what string, value float64) error {
	return fmt.Errorf("%w: %s = %v", ErrNonFiniteValue, what, value)
}

// Error checking helpers
func IsConfigError(err error) bool {
	return errors.Is(err, ErrInvalidConfig)
}

func IsInvalidArgument(err error) bool {
	return errors.Is(err, ErrInvalidArgument)
}

func IsComputationError(err error) bool {
	return errors.Is(err, ErrComputation)
}
