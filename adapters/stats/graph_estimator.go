// Package stats implements the correlation-based graph estimation heuristic
// used when the caller supplies no causal graph.
package stats

import (
	"context"
	"math"

	"gonum.org/v1/gonum/stat"

	"gocausal/domain/causal"
	"gocausal/ports"
)

// DefaultCorrelationThreshold is the |r| above which an edge is added.
const DefaultCorrelationThreshold = 0.3

const zeroVarianceEpsilon = 1e-10

// GraphEstimator builds a causal graph by thresholding pairwise Pearson
// correlations between corpus columns, under the heuristic that earlier
// feature indices are causally prior.
//
// This is a documented approximation, not a sound discovery algorithm: it
// performs no conditioning-set search and no collider detection, and it may
// produce spurious edges. Callers relying on the estimated structure for
// regulated decisions must be warned; the engine attaches
// causal.EstimatedGraphNote to every result computed over it.
type GraphEstimator struct {
	threshold float64
}

// NewGraphEstimator creates an estimator with the given |correlation|
// threshold; non-positive values fall back to the default.
func NewGraphEstimator(threshold float64) *GraphEstimator {
	if threshold <= 0 {
		threshold = DefaultCorrelationThreshold
	}
	return &GraphEstimator{threshold: threshold}
}

// Estimate computes the pairwise-correlation graph over the corpus columns.
// Zero-variance columns never produce edges: a near-zero denominator defines
// the correlation as 0.
func (e *GraphEstimator) Estimate(ctx context.Context, corpus *causal.Corpus) (*causal.Graph, error) {
	n := corpus.NumFeatures()
	graph := causal.NewGraph(n)

	columns := make([][]float64, n)
	for j := 0; j < n; j++ {
		columns[j] = corpus.Column(j)
	}

	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for j := i + 1; j < n; j++ {
			r := pairCorrelation(corpus, columns[i], columns[j], i, j)
			if math.Abs(r) > e.threshold {
				if err := graph.AddEdge(i, j); err != nil {
					return nil, err
				}
			}
		}
	}
	return graph, nil
}

// Threshold returns the configured |correlation| threshold.
func (e *GraphEstimator) Threshold() float64 {
	return e.threshold
}

func pairCorrelation(corpus *causal.Corpus, x, y []float64, i, j int) float64 {
	if corpus.ColumnVariance(i) < zeroVarianceEpsilon || corpus.ColumnVariance(j) < zeroVarianceEpsilon {
		return 0
	}
	r := stat.Correlation(x, y, nil)
	if math.IsNaN(r) || math.IsInf(r, 0) {
		return 0
	}
	return r
}

var _ ports.GraphEstimatorPort = (*GraphEstimator)(nil)
