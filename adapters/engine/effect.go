package engine

import (
	"context"
	"fmt"
	"sort"

	"github.com/montanaflynn/stats"
	"golang.org/x/sync/errgroup"

	"gocausal/domain/causal"
	"gocausal/domain/core"
	"gocausal/ports"
)

const opBootstrap = "bootstrap"

// EffectEstimator combines baseline, observational, and interventional
// predictions into a causal effect record with bootstrap confidence
// intervals, and answers single-instance counterfactual queries.
type EffectEstimator struct {
	predictor   ports.PredictorPort
	corpus      *causal.Corpus
	graph       *causal.Graph
	sim         *InterventionSimulator
	rng         ports.RNGPort
	cfg         Config
	featureName func(int) string
}

// NewEffectEstimator wires an estimator over immutable shared state.
func NewEffectEstimator(predictor ports.PredictorPort, corpus *causal.Corpus, graph *causal.Graph, rng ports.RNGPort, cfg Config, featureName func(int) string) *EffectEstimator {
	return &EffectEstimator{
		predictor:   predictor,
		corpus:      corpus,
		graph:       graph,
		sim:         NewInterventionSimulator(predictor, corpus, graph, rng, cfg.NumSamples, cfg.MaxParallelism),
		rng:         rng,
		cfg:         cfg,
		featureName: featureName,
	}
}

// InterventionalEffect estimates the average treatment effect of forcing the
// feature to value, alongside the naive observational effect and the
// confounding bias between them. The confidence interval comes from
// bootstrap resampling of the training corpus.
func (e *EffectEstimator) InterventionalEffect(ctx context.Context, instance []float64, feature int, value float64) (*causal.CausalEffect, error) {
	if err := e.validateArgs(instance, feature, value); err != nil {
		return nil, err
	}

	baseline := e.predictor.Predict(instance)
	if !isFinite(baseline) {
		return nil, fmt.Errorf("%w: baseline prediction", core.ErrAllSamplesInvalid)
	}

	substituted := substitute(instance, feature, value)
	observedPred := e.predictor.Predict(substituted)
	if !isFinite(observedPred) {
		return nil, fmt.Errorf("%w: observational prediction", core.ErrAllSamplesInvalid)
	}
	observational := observedPred - baseline

	outcome, err := e.sim.Simulate(ctx, instance, feature, value, e.cfg.Seed)
	if err != nil {
		return nil, err
	}
	ate := outcome.Mean - baseline

	ciLower, ciUpper, droppedReps, err := e.bootstrapCI(ctx, feature, value)
	if err != nil {
		return nil, err
	}

	effect := &causal.CausalEffect{
		AnalysisID:          core.NewAnalysisID(),
		FeatureIndex:        feature,
		FeatureName:         e.featureName(feature),
		ATE:                 ate,
		ObservationalEffect: observational,
		ConfoundingBias:     observational - ate,
		CILower:             ciLower,
		CIUpper:             ciUpper,
		UncertaintyWidth:    ciUpper - ciLower,
		Degraded:            outcome.Skipped > 0 || droppedReps > 0,
		ValidSamples:        outcome.Valid,
		SkippedSamples:      outcome.Skipped,
		ComputedAt:          core.Now(),
		Metadata: map[string]interface{}{
			"approximation":      causal.ApproximationNote,
			"num_samples":        e.cfg.NumSamples,
			"num_bootstrap":      e.cfg.NumBootstrap,
			"dropped_bootstrap":  droppedReps,
			"seed":               e.cfg.Seed,
			"corpus_fingerprint": e.corpus.Fingerprint().String(),
		},
	}
	return effect, nil
}

// ATE computes only the simulated treatment effect, without the bootstrap.
// Mediation and fairness decompositions use it for their total effects.
func (e *EffectEstimator) ATE(ctx context.Context, instance []float64, feature int, value float64) (float64, *simulationOutcome, error) {
	if err := e.validateArgs(instance, feature, value); err != nil {
		return 0, nil, err
	}
	baseline := e.predictor.Predict(instance)
	if !isFinite(baseline) {
		return 0, nil, fmt.Errorf("%w: baseline prediction", core.ErrAllSamplesInvalid)
	}
	outcome, err := e.sim.Simulate(ctx, instance, feature, value, e.cfg.Seed)
	if err != nil {
		return 0, nil, err
	}
	return outcome.Mean - baseline, outcome, nil
}

// CounterfactualEffect answers the single closest-possible-world query: only
// the queried feature changes, no descendant is resampled. It is the right
// question for features that cannot be physically intervened upon, and it is
// not a population-level average treatment effect.
func (e *EffectEstimator) CounterfactualEffect(ctx context.Context, instance []float64, feature int, counterfactualValue float64) (*causal.CounterfactualResult, error) {
	if err := e.validateArgs(instance, feature, counterfactualValue); err != nil {
		return nil, err
	}

	factual := e.predictor.Predict(instance)
	counterfactual := e.predictor.Predict(substitute(instance, feature, counterfactualValue))
	if !isFinite(factual) || !isFinite(counterfactual) {
		return nil, fmt.Errorf("%w: counterfactual query", core.ErrAllSamplesInvalid)
	}

	return &causal.CounterfactualResult{
		AnalysisID:               core.NewAnalysisID(),
		FeatureIndex:             feature,
		FeatureName:              e.featureName(feature),
		FactualValue:             instance[feature],
		CounterfactualValue:      counterfactualValue,
		FactualPrediction:        factual,
		CounterfactualPrediction: counterfactual,
		Effect:                   counterfactual - factual,
		ComputedAt:               core.Now(),
		Metadata: map[string]interface{}{
			"note": "closest-possible-world comparison; no descendants resampled, not an average treatment effect",
		},
	}, nil
}

// bootstrapCI resamples the corpus with replacement NumBootstrap times and
// returns the 2.5th/97.5th percentiles of the per-repetition ATE estimates.
// Repetitions whose every delta is non-finite are dropped; drops are counted
// so the caller can flag the result degraded.
func (e *EffectEstimator) bootstrapCI(ctx context.Context, feature int, value float64) (float64, float64, int, error) {
	n := e.corpus.NumRows()
	reps := make([]float64, e.cfg.NumBootstrap)
	valid := make([]bool, e.cfg.NumBootstrap)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.MaxParallelism)
	for rep := 0; rep < e.cfg.NumBootstrap; rep++ {
		rep := rep
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			rng, err := e.rng.DrawStream(gctx, opBootstrap, e.cfg.Seed, rep)
			if err != nil {
				return err
			}
			sum, count := 0.0, 0
			for i := 0; i < n; i++ {
				row := e.corpus.Row(rng.Intn(n))
				delta := e.predictor.Predict(substitute(row, feature, value)) - e.predictor.Predict(row)
				if isFinite(delta) {
					sum += delta
					count++
				}
			}
			if count > 0 {
				reps[rep] = sum / float64(count)
				valid[rep] = true
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, 0, 0, err
	}

	estimates := make([]float64, 0, e.cfg.NumBootstrap)
	for rep, ok := range valid {
		if ok {
			estimates = append(estimates, reps[rep])
		}
	}
	if len(estimates) == 0 {
		return 0, 0, 0, fmt.Errorf("%w: bootstrap", core.ErrAllSamplesInvalid)
	}
	sort.Float64s(estimates)

	ciLower, err := stats.Percentile(estimates, 2.5)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("%w: percentile: %v", core.ErrComputation, err)
	}
	ciUpper, err := stats.Percentile(estimates, 97.5)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("%w: percentile: %v", core.ErrComputation, err)
	}
	if ciUpper < ciLower {
		ciLower, ciUpper = ciUpper, ciLower
	}
	return ciLower, ciUpper, e.cfg.NumBootstrap - len(estimates), nil
}

// validateArgs fails fast, before any model invocation.
func (e *EffectEstimator) validateArgs(instance []float64, feature int, value float64) error {
	width := e.corpus.NumFeatures()
	if feature < 0 || feature >= width {
		return core.NewFeatureRangeError(feature, width, e.featureName(feature))
	}
	if !isFinite(value) {
		return core.NewNonFiniteError("intervention value", value)
	}
	if len(instance) != width {
		return fmt.Errorf("%w: got %d, want %d", core.ErrInstanceLength, len(instance), width)
	}
	for i, v := range instance {
		if !isFinite(v) {
			return core.NewNonFiniteError(fmt.Sprintf("instance[%d]", i), v)
		}
	}
	return nil
}

func substitute(instance []float64, feature int, value float64) []float64 {
	out := append([]float64(nil), instance...)
	out[feature] = value
	return out
}
