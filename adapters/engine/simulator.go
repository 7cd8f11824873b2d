package engine

import (
	"context"
	"math"

	"golang.org/x/sync/errgroup"

	"gocausal/domain/causal"
	"gocausal/domain/core"
	"gocausal/ports"
)

// opIntervention names the RNG stream shared by every resampling simulation
// of one analysis. Mediation path contributions reuse the same stream name so
// each draw sees the same corpus row as the total-effect simulation, which is
// what makes the telescoped path decomposition add up exactly.
const opIntervention = "intervention"

// InterventionSimulator computes the expected prediction under a simulated
// intervention. Confounding paths are cut by resampling every causal
// descendant of the intervened feature from the empirical distribution: all
// descendants take values from the same drawn corpus row within one draw,
// preserving their joint relationship, while non-descendant features keep
// the original instance values.
type InterventionSimulator struct {
	predictor   ports.PredictorPort
	corpus      *causal.Corpus
	graph       *causal.Graph
	rng         ports.RNGPort
	numSamples  int
	parallelism int
}

// NewInterventionSimulator wires a simulator over immutable shared state.
func NewInterventionSimulator(predictor ports.PredictorPort, corpus *causal.Corpus, graph *causal.Graph, rng ports.RNGPort, numSamples, parallelism int) *InterventionSimulator {
	return &InterventionSimulator{
		predictor:   predictor,
		corpus:      corpus,
		graph:       graph,
		rng:         rng,
		numSamples:  numSamples,
		parallelism: parallelism,
	}
}

// simulationOutcome aggregates one resampling simulation.
type simulationOutcome struct {
	Mean    float64
	Valid   int
	Skipped int
}

// Simulate returns the mean prediction with the feature forced to value and
// all of its descendants resampled.
func (s *InterventionSimulator) Simulate(ctx context.Context, instance []float64, feature int, value float64, baseSeed int64) (*simulationOutcome, error) {
	descendants, err := s.graph.Descendants(feature)
	if err != nil {
		return nil, err
	}
	return s.resample(ctx, instance, feature, value, descendants, baseSeed)
}

// resample runs the Monte Carlo loop with an explicit resampling member set.
// Draws are embarrassingly parallel; each derives its own RNG from the base
// seed plus its draw index and results are summed in draw order, so the mean
// is bit-identical for a fixed seed at any parallelism degree.
func (s *InterventionSimulator) resample(ctx context.Context, instance []float64, feature int, value float64, members []int, baseSeed int64) (*simulationOutcome, error) {
	predictions := make([]float64, s.numSamples)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.parallelism)
	for draw := 0; draw < s.numSamples; draw++ {
		draw := draw
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			rng, err := s.rng.DrawStream(gctx, opIntervention, baseSeed, draw)
			if err != nil {
				return err
			}
			row := s.corpus.Row(rng.Intn(s.corpus.NumRows()))

			modified := append([]float64(nil), instance...)
			modified[feature] = value
			for _, m := range members {
				modified[m] = row[m]
			}
			predictions[draw] = s.predictor.Predict(modified)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sum, valid := 0.0, 0
	for _, p := range predictions {
		if isFinite(p) {
			sum += p
			valid++
		}
	}
	if valid == 0 {
		return nil, core.ErrAllSamplesInvalid
	}
	return &simulationOutcome{
		Mean:    sum / float64(valid),
		Valid:   valid,
		Skipped: s.numSamples - valid,
	}, nil
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
