package engine

import (
	"context"
	"math"
	"sync/atomic"
	"testing"

	"gocausal/domain/causal"
	"gocausal/domain/core"
	"gocausal/internal/testkit"
	"gocausal/ports"
)

func newTestEngine(t *testing.T, predictor ports.PredictorPort, corpus *causal.Corpus, graph *causal.Graph, cfg Config) *Engine {
	t.Helper()
	eng, err := NewEngine(predictor, corpus, graph, cfg)
	if err != nil {
		t.Fatalf("NewEngine failed: %v", err)
	}
	return eng
}

func TestInterventionalEffect_IsolatedFeature(t *testing.T) {
	corpus := testkit.ConfoundedCorpus(100, 3)
	eng := newTestEngine(t, testkit.LinearPredictor(0.3, 0.4), corpus, mustGraph(t, 2), DefaultConfig())

	effect, err := eng.InterventionalEffect(context.Background(), []float64{1.0, 2.0}, 0, 3.0)
	if err != nil {
		t.Fatalf("InterventionalEffect failed: %v", err)
	}

	// No descendants means nothing is resampled, so the causal and
	// observational effects coincide and the bias vanishes.
	if math.Abs(effect.ATE-effect.ObservationalEffect) > 1e-12 {
		t.Errorf("ATE = %v, ObservationalEffect = %v, want equal", effect.ATE, effect.ObservationalEffect)
	}
	if math.Abs(effect.ConfoundingBias) > 1e-12 {
		t.Errorf("ConfoundingBias = %v, want 0", effect.ConfoundingBias)
	}
	if math.Abs(effect.ATE-0.6) > 1e-12 {
		t.Errorf("ATE = %v, want 0.3 * (3.0 - 1.0)", effect.ATE)
	}
}

func TestInterventionalEffect_NullIntervention(t *testing.T) {
	corpus := testkit.ConfoundedCorpus(100, 3)
	eng := newTestEngine(t, testkit.LinearPredictor(0.3, 0.4), corpus, mustGraph(t, 2), DefaultConfig())

	instance := []float64{1.0, 2.0}
	effect, err := eng.InterventionalEffect(context.Background(), instance, 0, instance[0])
	if err != nil {
		t.Fatalf("InterventionalEffect failed: %v", err)
	}
	if math.Abs(effect.ATE) > 1e-12 {
		t.Errorf("ATE = %v, want 0 for a null intervention on a descendant-free feature", effect.ATE)
	}
	if effect.ObservationalEffect != 0 {
		t.Errorf("ObservationalEffect = %v, want exactly 0", effect.ObservationalEffect)
	}
}

func TestInterventionalEffect_ConfoundingBias(t *testing.T) {
	// x1 = 2*x0 in every corpus row, model 0.3*x0 + 0.4*x1. For an instance
	// above the corpus mean, naive substitution keeps the inflated x1 while
	// the intervention resamples it, so the observational effect overstates
	// the causal one.
	corpus := testkit.ConfoundedCorpus(500, 3)
	cfg := DefaultConfig()
	cfg.NumSamples = 2000
	eng := newTestEngine(t, testkit.LinearPredictor(0.3, 0.4), corpus, mustGraph(t, 2, [2]int{0, 1}), cfg)

	effect, err := eng.InterventionalEffect(context.Background(), []float64{1.0, 2.0}, 0, 2.0)
	if err != nil {
		t.Fatalf("InterventionalEffect failed: %v", err)
	}

	if effect.ATE >= effect.ObservationalEffect {
		t.Errorf("ATE = %v should be below ObservationalEffect = %v under positive confounding", effect.ATE, effect.ObservationalEffect)
	}
	// bias = 0.8 * (instance x0 - E[corpus x0]) ~ 0.8 * 0.5
	if effect.ConfoundingBias < 0.2 {
		t.Errorf("ConfoundingBias = %v, want clearly positive", effect.ConfoundingBias)
	}
	if effect.ConfoundingBias != effect.ObservationalEffect-effect.ATE {
		t.Errorf("ConfoundingBias must equal ObservationalEffect - ATE, got %v vs %v", effect.ConfoundingBias, effect.ObservationalEffect-effect.ATE)
	}
}

func TestInterventionalEffect_ConfidenceInterval(t *testing.T) {
	corpus := testkit.ConfoundedCorpus(200, 3)
	eng := newTestEngine(t, testkit.LinearPredictor(0.3, 0.4), corpus, mustGraph(t, 2), DefaultConfig())

	// Mean instance centers the per-row bootstrap deltas on the ATE.
	instance := testkit.MeanInstance(corpus)
	effect, err := eng.InterventionalEffect(context.Background(), instance, 0, instance[0]+1.0)
	if err != nil {
		t.Fatalf("InterventionalEffect failed: %v", err)
	}

	if effect.CILower > effect.CIUpper {
		t.Errorf("CILower = %v > CIUpper = %v", effect.CILower, effect.CIUpper)
	}
	if effect.ATE < effect.CILower || effect.ATE > effect.CIUpper {
		t.Errorf("ATE = %v outside CI [%v, %v]", effect.ATE, effect.CILower, effect.CIUpper)
	}
	if effect.UncertaintyWidth != effect.CIUpper-effect.CILower {
		t.Errorf("UncertaintyWidth = %v, want CIUpper - CILower", effect.UncertaintyWidth)
	}
}

func TestInterventionalEffect_FailsFastWithoutModelCalls(t *testing.T) {
	corpus := testkit.ConfoundedCorpus(50, 3)
	var calls atomic.Int64
	counting := ports.PredictorFunc(func(features []float64) float64 {
		calls.Add(1)
		return 0
	})
	eng := newTestEngine(t, counting, corpus, mustGraph(t, 2), DefaultConfig())

	tests := []struct {
		name     string
		instance []float64
		feature  int
		value    float64
	}{
		{"feature out of range", []float64{1, 2}, 5, 1.0},
		{"negative feature", []float64{1, 2}, -1, 1.0},
		{"NaN intervention value", []float64{1, 2}, 0, math.NaN()},
		{"infinite intervention value", []float64{1, 2}, 0, math.Inf(1)},
		{"instance too short", []float64{1}, 0, 1.0},
		{"NaN instance entry", []float64{1, math.NaN()}, 0, 1.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := eng.InterventionalEffect(context.Background(), tt.instance, tt.feature, tt.value)
			if !core.IsInvalidArgument(err) {
				t.Fatalf("error = %v, want invalid-argument", err)
			}
		})
	}
	if n := calls.Load(); n != 0 {
		t.Errorf("validation made %d model calls, want 0", n)
	}
}

func TestInterventionalEffect_DegradedOnFlakyPredictor(t *testing.T) {
	corpus := testkit.ConfoundedCorpus(100, 3)
	cfg := DefaultConfig()
	cfg.MaxParallelism = 1 // call order must be deterministic for FlakyPredictor
	flaky := testkit.FlakyPredictor(testkit.LinearPredictor(0.3, 0.4), 7)
	eng := newTestEngine(t, flaky, corpus, mustGraph(t, 2, [2]int{0, 1}), cfg)

	effect, err := eng.InterventionalEffect(context.Background(), []float64{1.0, 2.0}, 0, 2.0)
	if err != nil {
		t.Fatalf("InterventionalEffect failed: %v", err)
	}
	if !effect.Degraded {
		t.Error("result should be flagged degraded when samples were skipped")
	}
	if effect.SkippedSamples == 0 {
		t.Error("SkippedSamples should be positive for a flaky predictor")
	}
	if effect.ValidSamples+effect.SkippedSamples != cfg.NumSamples {
		t.Errorf("Valid + Skipped = %d, want %d", effect.ValidSamples+effect.SkippedSamples, cfg.NumSamples)
	}
}

func TestInterventionalEffect_AllInvalidIsComputationError(t *testing.T) {
	corpus := testkit.ConfoundedCorpus(50, 3)
	alwaysNaN := ports.PredictorFunc(func([]float64) float64 { return math.NaN() })
	eng := newTestEngine(t, alwaysNaN, corpus, mustGraph(t, 2), DefaultConfig())

	_, err := eng.InterventionalEffect(context.Background(), []float64{1, 2}, 0, 2.0)
	if !core.IsComputationError(err) {
		t.Fatalf("error = %v, want computation error", err)
	}
}

func TestCounterfactualEffect(t *testing.T) {
	corpus := testkit.ConfoundedCorpus(100, 3)
	// The edge 0->1 must NOT trigger resampling for a counterfactual query.
	eng := newTestEngine(t, testkit.LinearPredictor(0.3, 0.4), corpus, mustGraph(t, 2, [2]int{0, 1}), DefaultConfig())

	res, err := eng.CounterfactualEffect(context.Background(), []float64{1.0, 2.0}, 0, 3.0)
	if err != nil {
		t.Fatalf("CounterfactualEffect failed: %v", err)
	}
	if math.Abs(res.FactualPrediction-1.1) > 1e-12 {
		t.Errorf("FactualPrediction = %v, want 1.1", res.FactualPrediction)
	}
	if math.Abs(res.CounterfactualPrediction-1.7) > 1e-12 {
		t.Errorf("CounterfactualPrediction = %v, want 1.7", res.CounterfactualPrediction)
	}
	if res.Effect != res.CounterfactualPrediction-res.FactualPrediction {
		t.Errorf("Effect = %v, want prediction difference", res.Effect)
	}
	if res.FactualValue != 1.0 || res.CounterfactualValue != 3.0 {
		t.Errorf("recorded values %v -> %v, want 1 -> 3", res.FactualValue, res.CounterfactualValue)
	}
}

func TestCounterfactualEffect_InvalidArgs(t *testing.T) {
	corpus := testkit.ConfoundedCorpus(50, 3)
	eng := newTestEngine(t, testkit.LinearPredictor(0.3, 0.4), corpus, mustGraph(t, 2), DefaultConfig())

	if _, err := eng.CounterfactualEffect(context.Background(), []float64{1, 2}, 9, 1.0); !core.IsInvalidArgument(err) {
		t.Errorf("out-of-range feature: error = %v, want invalid-argument", err)
	}
	if _, err := eng.CounterfactualEffect(context.Background(), []float64{1, 2}, 0, math.NaN()); !core.IsInvalidArgument(err) {
		t.Errorf("NaN value: error = %v, want invalid-argument", err)
	}
}
