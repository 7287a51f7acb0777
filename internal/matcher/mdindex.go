package matcher

import (
	"context"
	"math"

	"github.com/roach88/rematch/internal/ir"
	"github.com/roach88/rematch/internal/queryir"
)

// MDIndexMatcher compares control-flow graphs by their MD-index.
//
// The MD-index of a graph sums, over every edge (u, v),
//
//	1 / sqrt(τu + √2·in(u) + √3·out(u) + √5·in(v) + √7·out(v))
//
// where τu is the breadth-first depth of u from the entry block and in/out
// are node degrees. Blocks unreachable from the entry get depth |V|.
// Two graphs score 100·(1 − |a−b| / max(a, b)), or 100 when both are 0.
type MDIndexMatcher struct {
	info
}

// NewMDIndexMatcher creates the basic block MD-index matcher.
// Only function instances carry a control-flow graph.
func NewMDIndexMatcher() *MDIndexMatcher {
	return &MDIndexMatcher{info: info{
		matchType:  "basicblock_mdindex",
		name:       "Basic Block MD-Index",
		vectorType: ir.VectorBasicBlockAdjacency,
		filter:     queryir.Equals{Field: queryir.FieldInstanceType, Value: string(ir.InstanceFunction)},
	}}
}

// Match compares every source graph with every target graph.
func (m *MDIndexMatcher) Match(ctx context.Context, source, target VectorSet) (Stream, error) {
	return newCrossStream(ctx, m.matchType, source, target, parseMDIndex, mdIndexScore)
}

func parseMDIndex(data string) (float64, bool, error) {
	g, err := ir.ParseAdjacency(data)
	if err != nil {
		return 0, false, err
	}
	return MDIndex(g), true, nil
}

// MDIndex computes the MD-index of g.
func MDIndex(g ir.Adjacency) float64 {
	if len(g) == 0 {
		return 0
	}

	in := make(map[string]int, len(g))
	for _, succs := range g {
		for _, s := range succs {
			in[s]++
		}
	}
	depth := bfsDepth(g)

	var sum float64
	for _, u := range g.Nodes() {
		for _, v := range g[u] {
			denom := float64(depth[u]) +
				math.Sqrt2*float64(in[u]) +
				math.Sqrt(3)*float64(len(g[u])) +
				math.Sqrt(5)*float64(in[v]) +
				math.Sqrt(7)*float64(len(g[v]))
			sum += 1 / math.Sqrt(denom)
		}
	}
	return sum
}

// bfsDepth returns the breadth-first depth of every block from the entry.
func bfsDepth(g ir.Adjacency) map[string]int {
	unreachable := len(g)
	depth := make(map[string]int, len(g))
	for n := range g {
		depth[n] = unreachable
	}

	entry := g.Entry()
	depth[entry] = 0
	queue := []string{entry}
	seen := map[string]bool{entry: true}
	for len(queue) > 0 {
		u := queue[0]
		queue = queue[1:]
		for _, v := range g[u] {
			if seen[v] {
				continue
			}
			seen[v] = true
			depth[v] = depth[u] + 1
			queue = append(queue, v)
		}
	}
	return depth
}

func mdIndexScore(a, b float64) float64 {
	hi := math.Max(a, b)
	if hi == 0 {
		return 100
	}
	return clampScore(100 * (1 - math.Abs(a-b)/hi))
}
