package engine

import (
	"context"
	"math"
	"testing"

	"gocausal/adapters/rng"
	"gocausal/domain/causal"
	"gocausal/internal/testkit"
)

func mustGraph(t *testing.T, features int, edges ...[2]int) *causal.Graph {
	t.Helper()
	g := causal.NewGraph(features)
	for _, e := range edges {
		if err := g.AddEdge(e[0], e[1]); err != nil {
			t.Fatalf("AddEdge(%d, %d) failed: %v", e[0], e[1], err)
		}
	}
	return g
}

func TestSimulate_NoDescendants(t *testing.T) {
	corpus := testkit.ConfoundedCorpus(100, 3)
	predictor := testkit.LinearPredictor(0.3, 0.4)
	sim := NewInterventionSimulator(predictor, corpus, mustGraph(t, 2), rng.NewAdapter(), 50, 4)

	instance := []float64{1.0, 2.0}
	outcome, err := sim.Simulate(context.Background(), instance, 0, 5.0, 42)
	if err != nil {
		t.Fatalf("Simulate failed: %v", err)
	}

	// With no descendants nothing is resampled, so every draw predicts the
	// same substituted instance.
	want := predictor.Predict([]float64{5.0, 2.0})
	if math.Abs(outcome.Mean-want) > 1e-12 {
		t.Errorf("Mean = %v, want %v", outcome.Mean, want)
	}
	if outcome.Valid != 50 || outcome.Skipped != 0 {
		t.Errorf("Valid/Skipped = %d/%d, want 50/0", outcome.Valid, outcome.Skipped)
	}
}

func TestSimulate_DeterministicAcrossParallelism(t *testing.T) {
	corpus := testkit.ConfoundedCorpus(200, 3)
	predictor := testkit.LinearPredictor(0.3, 0.4)
	graph := mustGraph(t, 2, [2]int{0, 1})
	instance := []float64{1.0, 2.0}

	serial := NewInterventionSimulator(predictor, corpus, graph, rng.NewAdapter(), 100, 1)
	parallel := NewInterventionSimulator(predictor, corpus, graph, rng.NewAdapter(), 100, 8)

	a, err := serial.Simulate(context.Background(), instance, 0, 2.0, 42)
	if err != nil {
		t.Fatalf("serial Simulate failed: %v", err)
	}
	b, err := parallel.Simulate(context.Background(), instance, 0, 2.0, 42)
	if err != nil {
		t.Fatalf("parallel Simulate failed: %v", err)
	}
	if a.Mean != b.Mean {
		t.Errorf("parallelism changed the mean: %v vs %v", a.Mean, b.Mean)
	}
}

func TestSimulate_ResamplesDescendants(t *testing.T) {
	corpus := testkit.ConfoundedCorpus(500, 3)
	predictor := testkit.LinearPredictor(0.3, 0.4)
	sim := NewInterventionSimulator(predictor, corpus, mustGraph(t, 2, [2]int{0, 1}), rng.NewAdapter(), 2000, 4)

	// Instance x1 is far above the corpus distribution (x1 uniform on
	// [0,2)); resampling must pull the mean toward the corpus, not keep
	// the instance value.
	instance := []float64{1.0, 10.0}
	outcome, err := sim.Simulate(context.Background(), instance, 0, 1.0, 42)
	if err != nil {
		t.Fatalf("Simulate failed: %v", err)
	}
	kept := predictor.Predict(instance)
	resampledCenter := 0.3*1.0 + 0.4*1.0 // E[x1] = 1 for uniform [0,2)
	if math.Abs(outcome.Mean-resampledCenter) > 0.1 {
		t.Errorf("Mean = %v, want near %v", outcome.Mean, resampledCenter)
	}
	if math.Abs(outcome.Mean-kept) < 1.0 {
		t.Errorf("Mean = %v suspiciously close to non-resampled prediction %v", outcome.Mean, kept)
	}
}

func TestSimulate_AllSamplesInvalid(t *testing.T) {
	corpus := testkit.ConfoundedCorpus(50, 3)
	alwaysNaN := testkit.LinearPredictor(math.NaN())
	sim := NewInterventionSimulator(alwaysNaN, corpus, mustGraph(t, 2, [2]int{0, 1}), rng.NewAdapter(), 20, 1)

	_, err := sim.Simulate(context.Background(), []float64{1, 2}, 0, 2.0, 42)
	if err == nil {
		t.Fatal("expected error when every prediction is non-finite")
	}
}

func TestSimulate_CancelledContext(t *testing.T) {
	corpus := testkit.ConfoundedCorpus(50, 3)
	sim := NewInterventionSimulator(testkit.LinearPredictor(0.3, 0.4), corpus, mustGraph(t, 2), rng.NewAdapter(), 50, 4)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := sim.Simulate(ctx, []float64{1, 2}, 0, 2.0, 42); err == nil {
		t.Error("cancelled context should abort the simulation")
	}
}
