package preprocess

import (
	"github.com/ltentrup-style/qbfcircuit/pkg/circuit"
	"github.com/ltentrup-style/qbfcircuit/pkg/influence"
)

type unionFind struct {
	parent map[int32]int32
}

func newUnionFind() *unionFind {
	return &unionFind{parent: make(map[int32]int32)}
}

func (u *unionFind) find(x int32) int32 {
	if _, ok := u.parent[x]; !ok {
		u.parent[x] = x
		return x
	}
	for u.parent[x] != x {
		u.parent[x] = u.parent[u.parent[x]]
		x = u.parent[x]
	}
	return x
}

func (u *unionFind) union(a, b int32) {
	ra, rb := u.find(a), u.find(b)
	if ra != rb {
		u.parent[ra] = rb
	}
}

// Miniscope splits the circuit's innermost (deepest) prefix scope into
// several independently-quantified sibling scopes whenever its variables can
// be partitioned into groups that never co-occur within the same gate input
// of the circuit's output gate: Q v1..vn . (i1 op i2 op ... op ik) becomes
// (Q group1) op (Q group2) op ... whenever group1 and group2's variables
// never appear together in one ij. This direction-agnostic partitioning is a
// sound (if not maximal) subset of full miniscoping: unlike the
// matched-polarity distribution case (AND under a universal scope, OR under
// an existential one), it never needs to duplicate shared subformulas, since
// it only ever separates genuinely disjoint variable groups. Returns whether
// a split was made.
//
// Grounded on apply_miniscoping's partition/union-find branch
// (circuit.c, the case where the gate type does not match the scope's
// quantifier); the matched-polarity duplication branch is not implemented.
func Miniscope(c *circuit.Circuit) bool {
	scope := innermostPrefixScope(c)
	if scope == nil || len(scope.Vars()) == 0 {
		return false
	}
	out, ok := c.Output()
	if !ok {
		return false
	}
	outID := circuit.VarOf(out)
	gate := c.Node(outID)
	if gate.Kind() != circuit.KindGate || len(gate.Inputs()) < 2 {
		return false
	}

	influence.ComputeVariables(c)

	uf := newUnionFind()
	scopeVars := make(map[int32]bool, len(scope.Vars()))
	for _, v := range scope.Vars() {
		scopeVars[v] = true
		uf.find(v)
	}

	inputVars := make(map[circuit.Literal][]int32, len(gate.Inputs()))
	for _, lit := range gate.Inputs() {
		infl := c.Node(circuit.VarOf(lit)).Influences()
		var members []int32
		for v := range scopeVars {
			if infl != nil && infl.Test(int(v)) {
				members = append(members, v)
			}
		}
		if len(members) == 0 {
			continue
		}
		inputVars[lit] = members
		for i := 1; i < len(members); i++ {
			uf.union(members[0], members[i])
		}
	}

	groupVars := make(map[int32][]int32)
	for _, v := range scope.Vars() {
		root := uf.find(v)
		groupVars[root] = append(groupVars[root], v)
	}
	if len(groupVars) <= 1 {
		return false
	}

	for root, vars := range groupVars {
		newScope := c.AddScope(scope.Parent(), scope.Quantifier())
		for _, v := range vars {
			c.MoveVariable(v, newScope)
		}

		var relevant []circuit.Literal
		for lit, members := range inputVars {
			if uf.find(members[0]) == root {
				relevant = append(relevant, lit)
			}
		}
		if len(relevant) == 0 {
			continue
		}

		var sub circuit.Literal
		if len(relevant) == 1 {
			sub = relevant[0]
			c.RemoveGateInput(outID, sub)
		} else {
			subGate := c.AddGate(gate.GateType())
			for _, lit := range relevant {
				c.RemoveGateInput(outID, lit)
				c.AddGateInput(subGate, lit)
			}
			sub = circuit.Literal(subGate)
		}
		node := c.AddScopeNode(newScope, sub)
		c.AddGateInput(outID, circuit.Literal(node))
	}
	return true
}

// innermostPrefixScope returns the deepest scope still in the linear prefix
// (AnchorNode() == 0), or nil if none has any variables.
func innermostPrefixScope(c *circuit.Circuit) *circuit.Scope {
	var best *circuit.Scope
	for _, s := range c.Scopes() {
		if s.AnchorNode() != 0 {
			continue
		}
		if len(s.Vars()) == 0 {
			continue
		}
		if best == nil || s.Depth() > best.Depth() {
			best = s
		}
	}
	return best
}
