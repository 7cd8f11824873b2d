package causal

import (
	"math"

	"gocausal/domain/core"
)

// Corpus is the empirical distribution used for descendant resampling,
// bootstrap repetitions, and correlation estimation. It is immutable after
// construction. Labels are not consumed by the causal core itself but are
// retained for compatibility with the surrounding analysis layers.
type Corpus struct {
	rows        [][]float64
	labels      []float64
	fingerprint core.Hash
}

// NewCorpus validates and wraps a feature matrix with parallel labels.
// Rows must be non-empty, rectangular, and label count (when labels are
// supplied) must match the row count.
func NewCorpus(rows [][]float64, labels []float64) (*Corpus, error) {
	if len(rows) == 0 {
		return nil, core.ErrEmptyCorpus
	}
	width := len(rows[0])
	if width == 0 {
		return nil, core.ErrEmptyCorpus
	}
	for _, row := range rows {
		if len(row) != width {
			return nil, core.ErrRaggedCorpus
		}
	}
	if labels != nil && len(labels) != len(rows) {
		return nil, core.ErrLabelMismatch
	}
	return &Corpus{
		rows:        rows,
		labels:      labels,
		fingerprint: core.CorpusFingerprint(rows),
	}, nil
}

// NumRows returns the number of feature vectors in the corpus.
func (c *Corpus) NumRows() int {
	return len(c.rows)
}

// NumFeatures returns the fixed feature vector length.
func (c *Corpus) NumFeatures() int {
	return len(c.rows[0])
}

// Row returns the i-th feature vector. Callers must not mutate it.
func (c *Corpus) Row(i int) []float64 {
	return c.rows[i]
}

// Column copies out the j-th feature column.
func (c *Corpus) Column(j int) []float64 {
	col := make([]float64, len(c.rows))
	for i, row := range c.rows {
		col[i] = row[j]
	}
	return col
}

// Labels returns the parallel label array, which may be nil.
func (c *Corpus) Labels() []float64 {
	return c.labels
}

// Fingerprint returns the sha256 fingerprint of the feature matrix.
func (c *Corpus) Fingerprint() core.Hash {
	return c.fingerprint
}

// ColumnVariance returns the sample variance of column j, ignoring NaNs.
// Used by the graph estimator's zero-variance guard.
func (c *Corpus) ColumnVariance(j int) float64 {
	sum, n := 0.0, 0
	for _, row := range c.rows {
		if !math.IsNaN(row[j]) {
			sum += row[j]
			n++
		}
	}
	if n < 2 {
		return 0
	}
	mean := sum / float64(n)
	sumSq := 0.0
	for _, row := range c.rows {
		if !math.IsNaN(row[j]) {
			diff := row[j] - mean
			sumSq += diff * diff
		}
	}
	return sumSq / float64(n-1)
}
