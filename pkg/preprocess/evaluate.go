package preprocess

import "github.com/ltentrup-style/qbfcircuit/pkg/circuit"

// sign returns the signed truth value of lit given the current value stored
// at its variable, or 0 if that variable is undecided.
func sign(c *circuit.Circuit, lit circuit.Literal) int32 {
	v := circuit.VarOf(lit)
	val := c.Node(v).Value()
	if circuit.IsNeg(lit) {
		val = -val
	}
	return val
}

// Evaluate recomputes, bottom-up, the value of every Gate and ScopeNode from
// its inputs' current values, using short-circuit AND/OR semantics: a false
// input decides an AND false, a true input decides an OR true, and an
// otherwise-fully-assigned gate takes the obvious value. It never lowers an
// already-decided node back to undefined. Returns whether any node was newly
// decided.
//
// Grounded on circuit_evaluate/circuit_evaluate_max.
func Evaluate(c *circuit.Circuit) bool {
	changed := false
	for id := int32(1); id <= c.MaxNum(); id++ {
		node := c.Node(id)
		var value int32
		switch node.Kind() {
		case circuit.KindVar:
			continue
		case circuit.KindScopeNode:
			value = sign(c, node.Sub())
		case circuit.KindGate:
			hasUndefined := false
			decisive := int32(0)
			for _, lit := range node.Inputs() {
				s := sign(c, lit)
				if s == 0 {
					hasUndefined = true
					continue
				}
				if node.GateType() == circuit.GateAnd && s < 0 {
					decisive = -1
					break
				}
				if node.GateType() == circuit.GateOr && s > 0 {
					decisive = 1
					break
				}
			}
			switch {
			case decisive != 0:
				value = decisive
			case hasUndefined:
				value = 0
			case node.GateType() == circuit.GateAnd:
				value = 1
			default:
				value = -1
			}
		}
		if value != 0 && !node.Decided() {
			changed = true
		}
		if value != 0 {
			c.SetValue(id, value)
		}
	}
	return changed
}

// Propagate removes every decided, non-variable node's structural influence:
// a decided gate collapses to the canonical 0-input constant of its polarity
// (empty AND is true, empty OR is false), and every surviving (undecided)
// gate drops any input literal whose referenced node has been decided —
// always sound, since if dropping were not an identity operation for that
// gate's semantics, the gate itself would already have been decided by
// Evaluate. Decided variables are left for Reencode's reachability pass to
// collect once their last reference is dropped. Returns whether anything
// changed.
//
// Grounded on circuit_propagate/remove_gate/remove_orphans.
func Propagate(c *circuit.Circuit) bool {
	changed := false
	for id := int32(1); id <= c.MaxNum(); id++ {
		node := c.Node(id)
		if node.Kind() != circuit.KindGate || !node.Decided() || len(node.Inputs()) == 0 {
			continue
		}
		value := node.Value()
		c.ClearGateInputs(id)
		if value > 0 {
			c.SetGateType(id, circuit.GateAnd)
		} else {
			c.SetGateType(id, circuit.GateOr)
		}
		changed = true
	}

	for id := int32(1); id <= c.MaxNum(); id++ {
		node := c.Node(id)
		if node.Kind() != circuit.KindGate || node.Decided() {
			continue
		}
		for _, lit := range append([]circuit.Literal(nil), node.Inputs()...) {
			v := circuit.VarOf(lit)
			if c.Has(v) && c.Node(v).Decided() {
				c.RemoveGateInput(id, lit)
				changed = true
			}
		}
	}
	return changed
}
