// Package testkit provides deterministic synthetic fixtures for exercising
// the causal engine: corpus generators with known causal structure, simple
// predictor fixtures, and column profiling helpers.
package testkit

import (
	"math"
	"math/rand"

	"github.com/montanaflynn/stats"

	"gocausal/domain/causal"
	"gocausal/ports"
)

// LinearPredictor returns a pure predictor computing the dot product of the
// coefficients with the feature vector.
func LinearPredictor(coeffs ...float64) ports.PredictorFunc {
	return func(features []float64) float64 {
		sum := 0.0
		for i, c := range coeffs {
			if i < len(features) {
				sum += c * features[i]
			}
		}
		return sum
	}
}

// FlakyPredictor wraps a predictor so that every nth call yields NaN. Used
// to exercise the degraded-result path.
func FlakyPredictor(inner ports.PredictorPort, failEvery int) ports.PredictorFunc {
	calls := 0
	return func(features []float64) float64 {
		calls++
		if failEvery > 0 && calls%failEvery == 0 {
			return math.NaN()
		}
		return inner.Predict(features)
	}
}

// ConfoundedCorpus builds a two-feature corpus where x1 = 2*x0 for every
// row with x0 uniform on [0,1), the canonical deterministic-confounding
// fixture: naive substitution keeps the relationship while interventional
// resampling breaks it.
func ConfoundedCorpus(n int, seed int64) *causal.Corpus {
	rng := rand.New(rand.NewSource(seed))
	rows := make([][]float64, n)
	labels := make([]float64, n)
	for i := range rows {
		x0 := rng.Float64()
		rows[i] = []float64{x0, 2 * x0}
		labels[i] = 0.3*x0 + 0.4*rows[i][1]
	}
	corpus, err := causal.NewCorpus(rows, labels)
	if err != nil {
		panic(err)
	}
	return corpus
}

// IndependentCorpus builds a corpus of independent standard normal columns,
// so no pair should clear the correlation threshold.
func IndependentCorpus(n, features int, seed int64) *causal.Corpus {
	rng := rand.New(rand.NewSource(seed))
	rows := make([][]float64, n)
	for i := range rows {
		row := make([]float64, features)
		for j := range row {
			row[j] = rng.NormFloat64()
		}
		rows[i] = row
	}
	corpus, err := causal.NewCorpus(rows, nil)
	if err != nil {
		panic(err)
	}
	return corpus
}

// ChainCorpus builds a three-feature corpus with the chain x0 -> x1 -> x2:
// x1 = 2*x0 + noise, x2 = 0.5*x1 + noise. The matching graph has edges
// 0->1, 1->2 and optionally 0->2.
func ChainCorpus(n int, seed int64) *causal.Corpus {
	rng := rand.New(rand.NewSource(seed))
	rows := make([][]float64, n)
	for i := range rows {
		x0 := rng.Float64() * 5
		x1 := 2*x0 + rng.NormFloat64()*0.05
		x2 := 0.5*x1 + rng.NormFloat64()*0.05
		rows[i] = []float64{x0, x1, x2}
	}
	corpus, err := causal.NewCorpus(rows, nil)
	if err != nil {
		panic(err)
	}
	return corpus
}

// MeanInstance returns the column-mean feature vector of a corpus, a
// convenient neutral instance for effect queries.
func MeanInstance(corpus *causal.Corpus) []float64 {
	out := make([]float64, corpus.NumFeatures())
	for j := range out {
		mean, err := stats.Mean(corpus.Column(j))
		if err != nil {
			panic(err)
		}
		out[j] = mean
	}
	return out
}

// ColumnProfile summarizes one corpus column for test assertions.
type ColumnProfile struct {
	Mean     float64
	StdDev   float64
	Min      float64
	Max      float64
	Variance float64
}

// ProfileColumn computes summary statistics for column j.
func ProfileColumn(corpus *causal.Corpus, j int) ColumnProfile {
	col := corpus.Column(j)
	mean, _ := stats.Mean(col)
	sd, _ := stats.StandardDeviation(col)
	min, _ := stats.Min(col)
	max, _ := stats.Max(col)
	return ColumnProfile{
		Mean:     mean,
		StdDev:   sd,
		Min:      min,
		Max:      max,
		Variance: sd * sd,
	}
}
