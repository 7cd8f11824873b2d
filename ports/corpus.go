package ports

import (
	"context"

	"gocausal/domain/causal"
)

// CorpusSource loads a training corpus from an external store (file,
// database, object storage). Implementations live in adapters; the core only
// ever sees the validated causal.Corpus.
type CorpusSource interface {
	Load(ctx context.Context) (*causal.Corpus, error)
}

// GraphEstimatorPort builds a causal graph from a training corpus when the
// caller does not supply one. Implementations are explicitly approximate
// heuristics, not sound structure discovery.
type GraphEstimatorPort interface {
	Estimate(ctx context.Context, corpus *causal.Corpus) (*causal.Graph, error)
}
