package engine

import (
	"context"
	"math"

	"gocausal/domain/causal"
	"gocausal/domain/core"
)

// FairnessDecomposer splits a protected feature's total effect into the
// component flowing through agreed-legitimate proxy paths and the remainder,
// which is treated as discriminatory.
type FairnessDecomposer struct {
	estimator *EffectEstimator
	mediation *MediationAnalyzer
	graph     *causal.Graph
	cfg       Config
}

// NewFairnessDecomposer wires a decomposer over the shared estimator.
func NewFairnessDecomposer(estimator *EffectEstimator, graph *causal.Graph, cfg Config) *FairnessDecomposer {
	return &FairnessDecomposer{
		estimator: estimator,
		mediation: NewMediationAnalyzer(estimator, graph, cfg),
		graph:     graph,
		cfg:       cfg,
	}
}

// Analyze classifies every path from the protected feature to the outcome
// sink. A path is legitimate only when each of its intermediate nodes is in
// the caller-supplied proxy set; a direct edge is always discriminatory.
// LegitimateEffect sums the legitimate path contributions; the
// discrimination effect is the total minus that, so the decomposition
// invariant holds by construction. A warning is raised when the
// discriminatory component exceeds the configured regulatory threshold.
func (f *FairnessDecomposer) Analyze(ctx context.Context, instance []float64, protectedFeature int, value float64, outcomeSink int, legitimateProxies []int) (*causal.FairnessReport, error) {
	if outcomeSink < 0 || outcomeSink >= f.graph.FeatureCount() {
		return nil, core.NewFeatureRangeError(outcomeSink, f.graph.FeatureCount(), "")
	}
	for _, proxy := range legitimateProxies {
		if proxy < 0 || proxy >= f.graph.FeatureCount() {
			return nil, core.NewFeatureRangeError(proxy, f.graph.FeatureCount(), "")
		}
	}

	total, outcome, err := f.estimator.ATE(ctx, instance, protectedFeature, value)
	if err != nil {
		return nil, err
	}

	substitutedPred := f.estimator.predictor.Predict(substitute(instance, protectedFeature, value))
	baseline := f.estimator.predictor.Predict(instance)
	if !isFinite(substitutedPred) || !isFinite(baseline) {
		return nil, core.ErrAllSamplesInvalid
	}
	direct := substitutedPred - baseline

	allPaths, err := f.graph.Paths(protectedFeature, outcomeSink, f.cfg.MaxPathDepth)
	if err != nil {
		return nil, err
	}

	proxySet := make(map[int]struct{}, len(legitimateProxies))
	for _, p := range legitimateProxies {
		proxySet[p] = struct{}{}
	}

	var mediated [][]int
	var hasDirectEdge bool
	for _, p := range allPaths {
		if len(p) >= 3 {
			mediated = append(mediated, p)
		} else {
			hasDirectEdge = true
		}
	}

	paths, pathSum, degraded, err := f.mediation.pathContributions(ctx, instance, protectedFeature, value, substitutedPred, mediated)
	if err != nil {
		return nil, err
	}

	var legitimate float64
	var legitimatePaths, discriminatoryPaths []causal.MediationPath
	for _, path := range paths {
		if isLegitimate(path.Features, proxySet) {
			legitimate += path.Contribution
			legitimatePaths = append(legitimatePaths, path)
		} else {
			discriminatoryPaths = append(discriminatoryPaths, path)
		}
	}
	if hasDirectEdge {
		// The direct edge carries the controlled direct effect and is
		// discriminatory by definition.
		discriminatoryPaths = append(discriminatoryPaths, causal.MediationPath{
			Features:     []int{protectedFeature, outcomeSink},
			Contribution: direct,
		})
	}

	discrimination := total - legitimate
	indirect := total - direct
	gap := math.Abs(indirect - pathSum)

	report := &causal.FairnessReport{
		AnalysisID:           core.NewAnalysisID(),
		ProtectedFeature:     protectedFeature,
		OutcomeSink:          outcomeSink,
		TotalEffect:          total,
		LegitimateEffect:     legitimate,
		DiscriminationEffect: discrimination,
		LegitimatePaths:      legitimatePaths,
		DiscriminatoryPaths:  discriminatoryPaths,
		Threshold:            f.cfg.DiscriminationThreshold,
		Warning:              discrimination > f.cfg.DiscriminationThreshold,
		AdditivityGap:        gap,
		AdditivityOK:         gap <= f.cfg.AdditivityTolerance,
		Degraded:             degraded || outcome.Skipped > 0,
		ComputedAt:           core.Now(),
		Metadata: map[string]interface{}{
			"approximation":  causal.ApproximationNote,
			"max_path_depth": f.cfg.MaxPathDepth,
			"num_paths":      len(allPaths),
		},
	}
	return report, nil
}

// isLegitimate reports whether every intermediate node of the path belongs
// to the proxy set. Endpoints are never required to be proxies.
func isLegitimate(path []int, proxies map[int]struct{}) bool {
	if len(path) < 3 {
		return false
	}
	for _, node := range path[1 : len(path)-1] {
		if _, ok := proxies[node]; !ok {
			return false
		}
	}
	return true
}
