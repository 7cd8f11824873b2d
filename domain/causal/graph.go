// Package causal holds the pure domain model for causal effect estimation:
// the feature dependency graph, the training corpus, and the immutable
// result records produced by the analysis engine.
package causal

import (
	"sort"

	"gocausal/domain/core"
)

// Graph is a directed dependency graph over feature indices. Edges point
// from cause to effect. Acyclicity is a contract of the supplier (caller or
// estimator heuristic); it is not actively cycle-checked here.
type Graph struct {
	featureCount int
	children     map[int]map[int]struct{}
}

// NewGraph creates an empty graph over featureCount features.
func NewGraph(featureCount int) *Graph {
	return &Graph{
		featureCount: featureCount,
		children:     make(map[int]map[int]struct{}),
	}
}

// FeatureCount returns the number of features the graph spans.
func (g *Graph) FeatureCount() int {
	return g.featureCount
}

// AddEdge registers a directed dependency from cause to effect.
// Duplicate edges are idempotent.
func (g *Graph) AddEdge(from, to int) error {
	if err := g.checkIndex(from); err != nil {
		return err
	}
	if err := g.checkIndex(to); err != nil {
		return err
	}
	if g.children[from] == nil {
		g.children[from] = make(map[int]struct{})
	}
	g.children[from][to] = struct{}{}
	return nil
}

// HasEdge reports whether the direct edge from→to exists.
func (g *Graph) HasEdge(from, to int) bool {
	_, ok := g.children[from][to]
	return ok
}

// EdgeCount returns the total number of directed edges.
func (g *Graph) EdgeCount() int {
	n := 0
	for _, kids := range g.children {
		n += len(kids)
	}
	return n
}

// Children returns the direct children of a feature in ascending index order.
func (g *Graph) Children(feature int) []int {
	kids := make([]int, 0, len(g.children[feature]))
	for c := range g.children[feature] {
		kids = append(kids, c)
	}
	sort.Ints(kids)
	return kids
}

// Descendants returns the full transitive closure of a feature's children via
// breadth-first traversal. The result is sorted ascending, so it is
// deterministic regardless of edge insertion order, and never contains the
// queried feature itself.
func (g *Graph) Descendants(feature int) ([]int, error) {
	if err := g.checkIndex(feature); err != nil {
		return nil, err
	}

	visited := make(map[int]struct{})
	queue := g.Children(feature)
	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		if _, seen := visited[node]; seen {
			continue
		}
		if node == feature {
			// Defensive: a cycle through the root must not put the
			// feature into its own descendant set.
			continue
		}
		visited[node] = struct{}{}
		queue = append(queue, g.Children(node)...)
	}

	out := make([]int, 0, len(visited))
	for node := range visited {
		out = append(out, node)
	}
	sort.Ints(out)
	return out, nil
}

// Paths enumerates every directed, cycle-free path from source to sink with
// at most maxDepth intermediate hops. Paths are returned in lexicographic
// order of their member indices, each including both endpoints.
func (g *Graph) Paths(source, sink, maxDepth int) ([][]int, error) {
	if err := g.checkIndex(source); err != nil {
		return nil, err
	}
	if err := g.checkIndex(sink); err != nil {
		return nil, err
	}

	var paths [][]int
	onPath := make(map[int]struct{})
	var walk func(node int, trail []int)
	walk = func(node int, trail []int) {
		if node == sink {
			path := make([]int, len(trail))
			copy(path, trail)
			paths = append(paths, path)
			return
		}
		// len(trail)-1 edges consumed so far; one more hop allowed only
		// while intermediate count stays within maxDepth.
		if len(trail)-1 > maxDepth {
			return
		}
		for _, child := range g.Children(node) {
			if _, cyc := onPath[child]; cyc {
				continue
			}
			onPath[child] = struct{}{}
			walk(child, append(trail, child))
			delete(onPath, child)
		}
	}

	onPath[source] = struct{}{}
	walk(source, []int{source})
	return paths, nil
}

func (g *Graph) checkIndex(feature int) error {
	if feature < 0 || feature >= g.featureCount {
		return core.NewFeatureRangeError(feature, g.featureCount, "")
	}
	return nil
}
