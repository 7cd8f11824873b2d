package causal

import (
	"reflect"
	"testing"

	"gocausal/domain/core"
)

func TestGraph_Descendants_TransitiveClosure(t *testing.T) {
	g := NewGraph(4)
	if err := g.AddEdge(0, 1); err != nil {
		t.Fatalf("AddEdge failed: %v", err)
	}
	if err := g.AddEdge(1, 2); err != nil {
		t.Fatalf("AddEdge failed: %v", err)
	}
	if err := g.AddEdge(2, 3); err != nil {
		t.Fatalf("AddEdge failed: %v", err)
	}

	desc, err := g.Descendants(0)
	if err != nil {
		t.Fatalf("Descendants failed: %v", err)
	}
	want := []int{1, 2, 3}
	if !reflect.DeepEqual(desc, want) {
		t.Errorf("Descendants(0) = %v, want %v", desc, want)
	}

	// Edges A->B and B->C imply C in Descendants(A)
	desc1, err := g.Descendants(1)
	if err != nil {
		t.Fatalf("Descendants failed: %v", err)
	}
	if !reflect.DeepEqual(desc1, []int{2, 3}) {
		t.Errorf("Descendants(1) = %v, want [2 3]", desc1)
	}
}

func TestGraph_Descendants_NeverContainsSelf(t *testing.T) {
	g := NewGraph(3)
	g.AddEdge(0, 1)
	g.AddEdge(1, 2)
	// cycle back to the root
	g.AddEdge(2, 0)

	desc, err := g.Descendants(0)
	if err != nil {
		t.Fatalf("Descendants failed: %v", err)
	}
	for _, d := range desc {
		if d == 0 {
			t.Errorf("Descendants(0) contains the queried feature: %v", desc)
		}
	}
}

func TestGraph_Descendants_DeterministicAcrossInsertionOrder(t *testing.T) {
	a := NewGraph(5)
	a.AddEdge(0, 3)
	a.AddEdge(0, 1)
	a.AddEdge(1, 4)
	a.AddEdge(3, 2)

	b := NewGraph(5)
	b.AddEdge(3, 2)
	b.AddEdge(1, 4)
	b.AddEdge(0, 1)
	b.AddEdge(0, 3)

	da, _ := a.Descendants(0)
	db, _ := b.Descendants(0)
	if !reflect.DeepEqual(da, db) {
		t.Errorf("insertion order changed descendants: %v vs %v", da, db)
	}
}

func TestGraph_AddEdge_Idempotent(t *testing.T) {
	g := NewGraph(2)
	g.AddEdge(0, 1)
	g.AddEdge(0, 1)
	if g.EdgeCount() != 1 {
		t.Errorf("EdgeCount = %d, want 1", g.EdgeCount())
	}
}

func TestGraph_OutOfRange(t *testing.T) {
	g := NewGraph(2)

	if err := g.AddEdge(0, 5); !core.IsInvalidArgument(err) {
		t.Errorf("AddEdge(0, 5) error = %v, want invalid argument", err)
	}
	if err := g.AddEdge(-1, 1); !core.IsInvalidArgument(err) {
		t.Errorf("AddEdge(-1, 1) error = %v, want invalid argument", err)
	}
	if _, err := g.Descendants(2); !core.IsInvalidArgument(err) {
		t.Errorf("Descendants(2) error = %v, want invalid argument", err)
	}
	if _, err := g.Paths(0, 7, 3); !core.IsInvalidArgument(err) {
		t.Errorf("Paths(0, 7) error = %v, want invalid argument", err)
	}
}

func TestGraph_Paths(t *testing.T) {
	g := NewGraph(4)
	g.AddEdge(0, 1)
	g.AddEdge(1, 3)
	g.AddEdge(0, 2)
	g.AddEdge(2, 3)
	g.AddEdge(0, 3)

	paths, err := g.Paths(0, 3, 5)
	if err != nil {
		t.Fatalf("Paths failed: %v", err)
	}
	want := [][]int{
		{0, 1, 3},
		{0, 2, 3},
		{0, 3},
	}
	if !reflect.DeepEqual(paths, want) {
		t.Errorf("Paths = %v, want %v", paths, want)
	}
}

func TestGraph_Paths_DepthBounded(t *testing.T) {
	// chain 0->1->2->3->4: three intermediates
	g := NewGraph(5)
	for i := 0; i < 4; i++ {
		g.AddEdge(i, i+1)
	}

	paths, err := g.Paths(0, 4, 2)
	if err != nil {
		t.Fatalf("Paths failed: %v", err)
	}
	if len(paths) != 0 {
		t.Errorf("depth bound 2 should cut the 3-intermediate chain, got %v", paths)
	}

	paths, err = g.Paths(0, 4, 3)
	if err != nil {
		t.Fatalf("Paths failed: %v", err)
	}
	if len(paths) != 1 {
		t.Errorf("depth bound 3 should keep the chain, got %v", paths)
	}
}
