// Package influence computes the two bitset annotations the rest of the
// solver leans on: which variables a node's value depends on (used by
// miniscoping to partition a scope's variables into independent groups), and
// which scope depths a node is relevant for (used to decide which scopes a
// gate's clauses must be emitted into).
package influence

import (
	"github.com/ltentrup-style/qbfcircuit/pkg/bitset"
	"github.com/ltentrup-style/qbfcircuit/pkg/circuit"
)

// ComputeVariables recomputes, for every live node, the set of variable ids
// (by their current id, not scope depth) that its value transitively depends
// on. Var nodes depend only on themselves; Gate and ScopeNode nodes are the
// union of their inputs' sets.
//
// Grounded on circuit_compute_variable_influence/circuit_compute_variable_influence_dfs.
func ComputeVariables(c *circuit.Circuit) {
	n := int(c.MaxNum())
	sets := make([]*bitset.Set, n+1)
	visited := make([]bool, n+1)

	var visit func(id int32) *bitset.Set
	visit = func(id int32) *bitset.Set {
		if sets[id] != nil {
			return sets[id]
		}
		node := c.Node(id)
		b := bitset.New(n + 1)
		switch node.Kind() {
		case circuit.KindVar:
			b.Add(int(id))
		case circuit.KindGate:
			for _, lit := range node.Inputs() {
				b.Union(visit(circuit.VarOf(lit)))
			}
		case circuit.KindScopeNode:
			b.Union(visit(circuit.VarOf(node.Sub())))
		}
		sets[id] = b
		visited[id] = true
		c.SetInfluences(id, b)
		return b
	}

	if out, ok := c.Output(); ok {
		visit(circuit.VarOf(out))
	}
	// Cover nodes unreachable from the output (e.g. while still building),
	// so every live node carries a usable bitset.
	for id := int32(1); id <= c.MaxNum(); id++ {
		if !visited[id] {
			visit(id)
		}
	}
}

// ComputeScopes recomputes, for every live node, the set of scope depths
// whose variables it depends on, and the deepest scope depth reachable in
// each scope's subtree. Requires the circuit to be in the Encoded phase (scope
// depths are assigned during Reencode).
//
// Grounded on circuit_compute_scope_influence.
func ComputeScopes(c *circuit.Circuit) {
	maxDepth := int32(0)
	for _, s := range c.Scopes() {
		if s.Depth() > maxDepth {
			maxDepth = s.Depth()
		}
	}

	n := int(c.MaxNum())
	sets := make([]*bitset.Set, n+1)
	visited := make([]bool, n+1)

	var visit func(id int32) *bitset.Set
	visit = func(id int32) *bitset.Set {
		if sets[id] != nil {
			return sets[id]
		}
		node := c.Node(id)
		b := bitset.New(int(maxDepth) + 1)
		switch node.Kind() {
		case circuit.KindVar:
			scope := c.Scope(node.VarScope())
			b.Add(int(scope.Depth()))
		case circuit.KindGate:
			for _, lit := range node.Inputs() {
				b.Union(visit(circuit.VarOf(lit)))
			}
		case circuit.KindScopeNode:
			b.Union(visit(circuit.VarOf(node.Sub())))
		}
		sets[id] = b
		visited[id] = true
		c.SetRelevantFor(id, b)
		return b
	}

	if out, ok := c.Output(); ok {
		visit(circuit.VarOf(out))
	}
	for id := int32(1); id <= c.MaxNum(); id++ {
		if !visited[id] {
			visit(id)
		}
	}

	for _, s := range c.Scopes() {
		deepest := s.Depth()
		var walk func(id int32)
		seen := make(map[int32]bool)
		walk = func(id int32) {
			if seen[id] {
				return
			}
			seen[id] = true
			for _, child := range c.Scope(id).Children() {
				if c.Scope(child).Depth() > deepest {
					deepest = c.Scope(child).Depth()
				}
				walk(child)
			}
		}
		walk(s.ID())
		c.SetMaxDepth(s.ID(), deepest)
	}
}
