package preprocess

import "github.com/ltentrup-style/qbfcircuit/pkg/circuit"

// Flatten merges a gate's inputs with any same-typed gate input it
// references exactly once, e.g. AND(AND(a,b), c) becomes AND(a,b,c). The
// circuit must be in NNF (true after Reencode). Returns whether anything
// changed.
//
// Grounded on circuit_flatten_gates/circuit_normalize.
func Flatten(c *circuit.Circuit) bool {
	changed := false
	for id := int32(1); id <= c.MaxNum(); id++ {
		node := c.Node(id)
		if node.Kind() != circuit.KindGate {
			continue
		}
		for _, lit := range append([]circuit.Literal(nil), node.Inputs()...) {
			if circuit.IsNeg(lit) {
				continue
			}
			innerID := circuit.VarOf(lit)
			if !c.Has(innerID) {
				continue
			}
			inner := c.Node(innerID)
			if inner.Kind() != circuit.KindGate {
				continue
			}
			if inner.Occurrences() != 1 {
				continue
			}
			if inner.GateType() != node.GateType() {
				continue
			}
			c.RemoveGateInput(id, lit)
			for _, sub := range inner.Inputs() {
				c.AddGateInput(id, sub)
			}
			c.ClearGateInputs(innerID)
			changed = true
		}
	}
	return changed
}
