package engine

import (
	"context"
	"math"
	"reflect"
	"testing"

	"gocausal/domain/core"
	"gocausal/internal/testkit"
)

func TestAnalyzeMediation_ChainDecomposition(t *testing.T) {
	corpus := testkit.ChainCorpus(300, 5)
	graph := mustGraph(t, 3, [2]int{0, 1}, [2]int{1, 2})
	eng := newTestEngine(t, testkit.LinearPredictor(0.3, 0.4, 0.2), corpus, graph, DefaultConfig())

	instance := []float64{1.0, 2.0, 1.0}
	report, err := eng.AnalyzeMediation(context.Background(), instance, 0, 2.0, 2)
	if err != nil {
		t.Fatalf("AnalyzeMediation failed: %v", err)
	}

	// Controlled direct effect holds every mediator fixed: 0.3 per unit.
	if math.Abs(report.DirectEffect-0.3) > 1e-12 {
		t.Errorf("DirectEffect = %v, want 0.3", report.DirectEffect)
	}
	if math.Abs(report.TotalEffect-report.DirectEffect-report.IndirectEffect) > 1e-12 {
		t.Errorf("Total %v != Direct %v + Indirect %v", report.TotalEffect, report.DirectEffect, report.IndirectEffect)
	}

	if len(report.Paths) != 1 {
		t.Fatalf("got %d paths, want 1", len(report.Paths))
	}
	if !reflect.DeepEqual(report.Paths[0].Features, []int{0, 1, 2}) {
		t.Errorf("path = %v, want [0 1 2]", report.Paths[0].Features)
	}
	// The single path covers every descendant, so its contribution
	// accounts for the whole indirect effect.
	if math.Abs(report.Paths[0].Contribution-report.IndirectEffect) > 1e-12 {
		t.Errorf("contribution = %v, indirect = %v, want equal", report.Paths[0].Contribution, report.IndirectEffect)
	}
	if !report.AdditivityOK {
		t.Errorf("AdditivityOK = false with gap %v", report.AdditivityGap)
	}
	if report.AdditivityGap > 1e-12 {
		t.Errorf("AdditivityGap = %v, want ~0", report.AdditivityGap)
	}
}

func TestAnalyzeMediation_DepthBound(t *testing.T) {
	corpus := testkit.IndependentCorpus(100, 5, 9)
	// Chain 0 -> 1 -> 2 -> 3 -> 4: the only path to the sink needs three
	// intermediate hops.
	graph := mustGraph(t, 5, [2]int{0, 1}, [2]int{1, 2}, [2]int{2, 3}, [2]int{3, 4})
	cfg := DefaultConfig()
	cfg.MaxPathDepth = 2
	eng := newTestEngine(t, testkit.LinearPredictor(0.1, 0.1, 0.1, 0.1, 0.1), corpus, graph, cfg)

	report, err := eng.AnalyzeMediation(context.Background(), testkit.MeanInstance(corpus), 0, 1.0, 4)
	if err != nil {
		t.Fatalf("AnalyzeMediation failed: %v", err)
	}
	if len(report.Paths) != 0 {
		t.Errorf("depth bound 2 should prune the only path, got %d paths", len(report.Paths))
	}
}

func TestAnalyzeMediation_SinkOutOfRange(t *testing.T) {
	corpus := testkit.ChainCorpus(50, 5)
	eng := newTestEngine(t, testkit.LinearPredictor(0.3, 0.4, 0.2), corpus, mustGraph(t, 3, [2]int{0, 1}), DefaultConfig())

	_, err := eng.AnalyzeMediation(context.Background(), []float64{1, 2, 1}, 0, 2.0, 7)
	if !core.IsInvalidArgument(err) {
		t.Fatalf("error = %v, want invalid-argument", err)
	}
}

func TestAnalyzeMediation_NoMediatedPath(t *testing.T) {
	corpus := testkit.ChainCorpus(100, 5)
	// Only a direct edge to the sink: the indirect component must vanish.
	eng := newTestEngine(t, testkit.LinearPredictor(0.3, 0.4, 0.2), corpus, mustGraph(t, 3, [2]int{0, 2}), DefaultConfig())

	instance := testkit.MeanInstance(corpus)
	report, err := eng.AnalyzeMediation(context.Background(), instance, 0, instance[0]+1.0, 2)
	if err != nil {
		t.Fatalf("AnalyzeMediation failed: %v", err)
	}
	if len(report.Paths) != 0 {
		t.Errorf("got %d mediated paths, want 0", len(report.Paths))
	}
	if math.Abs(report.IndirectEffect) > 0.2 {
		t.Errorf("IndirectEffect = %v, want near 0 with only a direct edge", report.IndirectEffect)
	}
}
