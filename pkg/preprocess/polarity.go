package preprocess

import "github.com/ltentrup-style/qbfcircuit/pkg/circuit"

// ComputePolarities scans every gate input and ScopeNode sub, tracking the
// sign each free variable is observed under. A variable observed under only
// one sign is forced to the value that makes it trivially satisfiable for an
// existential variable, or trivially falsifiable for a universal one (the
// quantifier flips the forced sign). Returns whether any variable was newly
// forced.
//
// Grounded on circuit_compute_polarities/update_polarity.
func ComputePolarities(c *circuit.Circuit) bool {
	polarity := make([]circuit.Polarity, c.MaxNum()+1)

	observe := func(lit circuit.Literal) {
		v := circuit.VarOf(lit)
		if !c.Has(v) || c.Node(v).Kind() != circuit.KindVar {
			return
		}
		polarity[v] = polarity[v].Observe(circuit.IsNeg(lit))
	}

	for id := int32(1); id <= c.MaxNum(); id++ {
		node := c.Node(id)
		switch node.Kind() {
		case circuit.KindGate:
			for _, lit := range node.Inputs() {
				observe(lit)
			}
		case circuit.KindScopeNode:
			observe(node.Sub())
		}
	}

	changed := false
	for id := int32(1); id <= c.MaxNum(); id++ {
		node := c.Node(id)
		if node.Kind() != circuit.KindVar || node.Removed() || node.Decided() {
			continue
		}
		p := polarity[id]
		var value int32
		switch p {
		case circuit.PolarityPos:
			value = 1
		case circuit.PolarityNeg:
			value = -1
		default:
			continue
		}
		if c.Scope(node.VarScope()).Quantifier() == circuit.Forall {
			value = -value
		}
		c.SetValue(id, value)
		changed = true
	}
	return changed
}

// ForceOutputLiterals forces every variable referenced directly by the
// output gate's inputs to the value required by that reference: for an
// existential variable, the value that satisfies the literal; for a
// universal variable, the value that falsifies it (the adversary's easiest
// attack). Returns whether anything was newly forced.
//
// Grounded on get_forced_variables.
func ForceOutputLiterals(c *circuit.Circuit) bool {
	out, ok := c.Output()
	if !ok || c.Node(circuit.VarOf(out)).Kind() != circuit.KindGate {
		return false
	}
	root := c.Node(circuit.VarOf(out))
	changed := false
	for _, lit := range root.Inputs() {
		v := circuit.VarOf(lit)
		if !c.Has(v) || c.Node(v).Kind() != circuit.KindVar {
			continue
		}
		varNode := c.Node(v)
		if varNode.Removed() || varNode.Decided() {
			continue
		}
		sign := int32(1)
		if circuit.IsNeg(lit) {
			sign = -1
		}
		if c.Scope(varNode.VarScope()).Quantifier() == circuit.Forall {
			sign = -sign
		}
		c.SetValue(v, sign)
		changed = true
	}
	return changed
}
