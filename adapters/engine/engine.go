package engine

import (
	"context"
	"fmt"

	"gocausal/adapters/rng"
	"gocausal/adapters/stats"
	"gocausal/domain/causal"
	"gocausal/domain/core"
	"gocausal/internal"
	"gocausal/ports"
)

// Engine is the entry point of the causal core. It owns the immutable shared
// state (predictor port, training corpus, causal graph) and dispatches the
// tagged analysis queries to the estimator and the decomposition analyzers.
type Engine struct {
	predictor ports.PredictorPort
	corpus    *causal.Corpus
	graph     *causal.Graph
	cfg       Config
	logger    *internal.Logger
	rng       ports.RNGPort

	estimator *EffectEstimator
	mediation *MediationAnalyzer
	fairness  *FairnessDecomposer

	featureNames   []string
	graphEstimated bool
}

// NewEngine validates configuration and wires the analysis components.
// When graph is nil one is estimated from the corpus with the pairwise
// correlation heuristic; every result over an estimated graph carries an
// explicit caution note in its metadata. All configuration failures surface
// here, before any model invocation.
func NewEngine(predictor ports.PredictorPort, corpus *causal.Corpus, graph *causal.Graph, cfg Config, opts ...Option) (*Engine, error) {
	if predictor == nil {
		return nil, fmt.Errorf("%w: predictor is nil", core.ErrInvalidConfig)
	}
	if corpus == nil {
		return nil, core.ErrEmptyCorpus
	}
	cfg = cfg.withDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	e := &Engine{
		predictor: predictor,
		corpus:    corpus,
		cfg:       cfg,
		logger:    internal.DefaultLogger.WithScope("causal-engine"),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.featureNames != nil && len(e.featureNames) != corpus.NumFeatures() {
		return nil, fmt.Errorf("%w: %d feature names for %d features", core.ErrInvalidConfig, len(e.featureNames), corpus.NumFeatures())
	}

	if graph == nil {
		estimator := stats.NewGraphEstimator(cfg.CorrelationThreshold)
		estimated, err := estimator.Estimate(context.Background(), corpus)
		if err != nil {
			return nil, err
		}
		graph = estimated
		e.graphEstimated = true
		e.logger.Warn("no causal graph supplied; estimated %d edges with |r| > %.2f heuristic - structure is approximate", graph.EdgeCount(), cfg.CorrelationThreshold)
	} else if graph.FeatureCount() != corpus.NumFeatures() {
		return nil, fmt.Errorf("%w: graph spans %d features, corpus has %d", core.ErrEdgeOutOfRange, graph.FeatureCount(), corpus.NumFeatures())
	}
	e.graph = graph

	rngPort := e.rngPort()
	e.estimator = NewEffectEstimator(predictor, corpus, graph, rngPort, cfg, e.featureName)
	e.mediation = NewMediationAnalyzer(e.estimator, graph, cfg)
	e.fairness = NewFairnessDecomposer(e.estimator, graph, cfg)
	return e, nil
}

// Option customizes engine construction.
type Option func(*Engine)

// WithFeatureNames attaches human-readable feature names, used only for
// error messages and output labeling.
func WithFeatureNames(names []string) Option {
	return func(e *Engine) { e.featureNames = names }
}

// WithLogger replaces the default logger.
func WithLogger(logger *internal.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// WithRNG replaces the default seeded RNG adapter.
func WithRNG(port ports.RNGPort) Option {
	return func(e *Engine) { e.rng = port }
}

// Graph returns the graph in use, supplied or estimated.
func (e *Engine) Graph() *causal.Graph {
	return e.graph
}

// GraphEstimated reports whether the graph was heuristically estimated
// rather than supplied.
func (e *Engine) GraphEstimated() bool {
	return e.graphEstimated
}

// Run dispatches a tagged query to the matching analysis.
func (e *Engine) Run(ctx context.Context, query causal.Query) (*causal.Result, error) {
	switch query.Kind {
	case causal.QueryInterventional:
		if query.Interventional == nil {
			return nil, fmt.Errorf("%w: %s", core.ErrMissingQueryFields, query.Kind)
		}
		q := query.Interventional
		effect, err := e.InterventionalEffect(ctx, q.Instance, q.FeatureIndex, q.Value)
		if err != nil {
			return nil, err
		}
		return &causal.Result{Kind: query.Kind, Effect: effect}, nil

	case causal.QueryCounterfactual:
		if query.Counterfactual == nil {
			return nil, fmt.Errorf("%w: %s", core.ErrMissingQueryFields, query.Kind)
		}
		q := query.Counterfactual
		res, err := e.CounterfactualEffect(ctx, q.Instance, q.FeatureIndex, q.CounterfactualValue)
		if err != nil {
			return nil, err
		}
		return &causal.Result{Kind: query.Kind, Counterfactual: res}, nil

	case causal.QueryMediation:
		if query.Mediation == nil {
			return nil, fmt.Errorf("%w: %s", core.ErrMissingQueryFields, query.Kind)
		}
		q := query.Mediation
		report, err := e.AnalyzeMediation(ctx, q.Instance, q.FeatureIndex, q.Value, q.OutcomeSink)
		if err != nil {
			return nil, err
		}
		return &causal.Result{Kind: query.Kind, Mediation: report}, nil

	case causal.QueryFairness:
		if query.Fairness == nil {
			return nil, fmt.Errorf("%w: %s", core.ErrMissingQueryFields, query.Kind)
		}
		q := query.Fairness
		report, err := e.AnalyzeFairness(ctx, q.Instance, q.ProtectedFeature, q.Value, q.OutcomeSink, q.LegitimateProxies)
		if err != nil {
			return nil, err
		}
		return &causal.Result{Kind: query.Kind, Fairness: report}, nil

	default:
		return nil, fmt.Errorf("%w: %q", core.ErrUnknownQueryKind, query.Kind)
	}
}

// InterventionalEffect estimates the causal effect of forcing a feature to a value.
func (e *Engine) InterventionalEffect(ctx context.Context, instance []float64, feature int, value float64) (*causal.CausalEffect, error) {
	effect, err := e.estimator.InterventionalEffect(ctx, instance, feature, value)
	if err != nil {
		return nil, err
	}
	e.annotate(effect.Metadata)
	if effect.Degraded {
		e.logger.Warn("interventional effect for feature %d degraded: %d of %d samples skipped", feature, effect.SkippedSamples, e.cfg.NumSamples)
	}
	return effect, nil
}

// CounterfactualEffect answers a single-instance closest-world query.
func (e *Engine) CounterfactualEffect(ctx context.Context, instance []float64, feature int, counterfactualValue float64) (*causal.CounterfactualResult, error) {
	res, err := e.estimator.CounterfactualEffect(ctx, instance, feature, counterfactualValue)
	if err != nil {
		return nil, err
	}
	e.annotate(res.Metadata)
	return res, nil
}

// AnalyzeMediation decomposes a feature's effect into direct and indirect components.
func (e *Engine) AnalyzeMediation(ctx context.Context, instance []float64, feature int, value float64, outcomeSink int) (*causal.MediationReport, error) {
	report, err := e.mediation.Analyze(ctx, instance, feature, value, outcomeSink)
	if err != nil {
		return nil, err
	}
	e.annotate(report.Metadata)
	if !report.AdditivityOK {
		e.logger.Warn("mediation additivity gap %.6f exceeds tolerance %.6f for feature %d", report.AdditivityGap, e.cfg.AdditivityTolerance, feature)
	}
	return report, nil
}

// AnalyzeFairness decomposes a protected feature's effect into legitimate
// and discriminatory components.
func (e *Engine) AnalyzeFairness(ctx context.Context, instance []float64, protectedFeature int, value float64, outcomeSink int, legitimateProxies []int) (*causal.FairnessReport, error) {
	report, err := e.fairness.Analyze(ctx, instance, protectedFeature, value, outcomeSink, legitimateProxies)
	if err != nil {
		return nil, err
	}
	e.annotate(report.Metadata)
	if report.Warning {
		e.logger.Warn("discrimination effect %.4f exceeds regulatory threshold %.4f for protected feature %d", report.DiscriminationEffect, report.Threshold, protectedFeature)
	}
	return report, nil
}

func (e *Engine) annotate(metadata map[string]interface{}) {
	if metadata == nil {
		return
	}
	metadata["graph_estimated"] = e.graphEstimated
	if e.graphEstimated {
		metadata["graph_caution"] = causal.EstimatedGraphNote
	}
}

func (e *Engine) featureName(i int) string {
	if e.featureNames == nil || i < 0 || i >= len(e.featureNames) {
		return ""
	}
	return e.featureNames[i]
}

func (e *Engine) rngPort() ports.RNGPort {
	if e.rng != nil {
		return e.rng
	}
	return rng.NewAdapter()
}
