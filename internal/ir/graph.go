package ir

import (
	"encoding/json"
	"fmt"
	"sort"
)

// Adjacency is a control-flow graph: basic block id → successor block ids.
type Adjacency map[string][]string

// ParseAdjacency decodes a basicblock_adjacency payload.
//
// The payload is a JSON object mapping a block id to the list of its
// successors. Successors that never appear as keys are added as blocks
// without outgoing edges.
func ParseAdjacency(data string) (Adjacency, error) {
	var raw map[string][]string
	if err := json.Unmarshal([]byte(data), &raw); err != nil {
		return nil, fmt.Errorf("parse adjacency: %w", err)
	}
	g := make(Adjacency, len(raw))
	for node, succs := range raw {
		g[node] = append([]string(nil), succs...)
	}
	for _, succs := range raw {
		for _, s := range succs {
			if _, ok := g[s]; !ok {
				g[s] = nil
			}
		}
	}
	return g, nil
}

// Nodes returns block ids in sorted order.
func (g Adjacency) Nodes() []string {
	nodes := make([]string, 0, len(g))
	for n := range g {
		nodes = append(nodes, n)
	}
	sort.Strings(nodes)
	return nodes
}

// Entry returns the entry block: the smallest id without predecessors, or
// the smallest id overall when every block has one. Empty graphs return "".
func (g Adjacency) Entry() string {
	preds := make(map[string]int, len(g))
	for _, succs := range g {
		for _, s := range succs {
			preds[s]++
		}
	}
	nodes := g.Nodes()
	for _, n := range nodes {
		if preds[n] == 0 {
			return n
		}
	}
	if len(nodes) > 0 {
		return nodes[0]
	}
	return ""
}
