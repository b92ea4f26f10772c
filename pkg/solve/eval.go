package solve

import "github.com/ltentrup-style/qbfcircuit/pkg/circuit"

// values is the solver's own level-tagged decided-value table (spec.md
// invariant 9: sign = truth, magnitude = scope id), indexed by circuit node
// id. It is kept separate from circuit.Node.Value on purpose: pkg/preprocess
// already uses that field for its own, unrelated constant-folding (Evaluate
// writes a bare ±1 with no scope tag at all), and spec.md §5 states the
// circuit is read-only once solving begins — so solving never calls
// circuit.SetValue, and instead threads its per-scope decisions through this
// table, falling back to the circuit's own preprocessing-folded value (a
// permanent fact, true regardless of which scope is asking) when a node has
// no runtime entry yet.
type values []int32

func newValues(c *circuit.Circuit) values {
	return make(values, c.MaxNum()+1)
}

// sign returns id's currently decided sign (+1/-1), or 0 if undecided by
// either this solve run or preprocessing.
func (vs values) sign(c *circuit.Circuit, id int32) int32 {
	v := vs[id]
	if v == 0 {
		v = c.Node(id).Value()
	}
	if v == 0 {
		return 0
	}
	if v < 0 {
		return -1
	}
	return 1
}

// litValue reports the current decided value of lit (+1 true, -1 false, 0
// undecided).
func (vs values) litValue(c *circuit.Circuit, lit circuit.Literal) int32 {
	s := vs.sign(c, circuit.VarOf(lit))
	if s == 0 {
		return 0
	}
	if circuit.IsNeg(lit) {
		return -s
	}
	return s
}

// evalGate short-circuits an AND/OR gate from its inputs' currently decided
// values, returning 0 if at least one input is still undecided and no
// short-circuit applies.
func (vs values) evalGate(c *circuit.Circuit, n *circuit.Node) int32 {
	anyUndef := false
	switch n.GateType() {
	case circuit.GateAnd:
		for _, lit := range n.Inputs() {
			v := vs.litValue(c, lit)
			if v < 0 {
				return -1
			}
			if v == 0 {
				anyUndef = true
			}
		}
	case circuit.GateOr:
		for _, lit := range n.Inputs() {
			v := vs.litValue(c, lit)
			if v > 0 {
				return 1
			}
			if v == 0 {
				anyUndef = true
			}
		}
	}
	if anyUndef {
		return 0
	}
	if n.GateType() == circuit.GateAnd {
		return 1
	}
	return -1
}

// evaluateCapped propagates the values decided so far through every gate
// and scope-node whose dependencies are all at depth <= the depth of scope,
// in increasing node-id order (already topologically sorted by Reencode, so
// one forward pass reaches a fixed point). This is spec.md §4.6's "evaluate
// the circuit capped at S's scope id": the channel by which a scope's own
// variable assignment becomes visible to every inner scope's t-literal
// assumptions.
func (vs values) evaluateCapped(c *circuit.Circuit, scope int32) {
	depth := c.Scope(scope).Depth()
	for id := int32(1); id <= c.MaxNum(); id++ {
		if vs.sign(c, id) != 0 {
			continue
		}
		n := c.Node(id)
		if maxDependencyDepth(n) > depth {
			continue
		}
		switch n.Kind() {
		case circuit.KindGate:
			if v := vs.evalGate(c, n); v != 0 {
				vs[id] = v * scope
			}
		case circuit.KindScopeNode:
			if v := vs.litValue(c, n.Sub()); v != 0 {
				vs[id] = v * scope
			}
		}
	}
}

func maxDependencyDepth(n *circuit.Node) int32 {
	if n.RelevantFor() == nil {
		return 0
	}
	d, ok := n.RelevantFor().Max()
	if !ok {
		return 0
	}
	return int32(d)
}

// clearAtOrBelow resets to undecided every node whose recorded runtime
// decision level is >= scope: a scope's own variable choices, and every gate
// value derived from them, must never leak into the next loop iteration's
// (or the next sibling attempt's) local SAT call. Values preprocessing
// folded permanently (visible only through the circuit's own Value, never
// written into this table) are never cleared here, since they hold
// regardless of scope.
func (vs values) clearAtOrBelow(scope int32) {
	for id := range vs {
		v := vs[id]
		if v == 0 {
			continue
		}
		level := v
		if level < 0 {
			level = -level
		}
		if level >= scope {
			vs[id] = 0
		}
	}
}
