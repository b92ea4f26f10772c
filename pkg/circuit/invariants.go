package circuit

import "github.com/pkg/errors"

// Audit checks the invariants that must hold after every public operation
// returns (spec §3, testable properties §8): topological gate inputs, NNF,
// occurrence-count correctness, scope alternation, unique scope membership,
// and (when in the Encoded phase) a positive-literal Gate output. It returns
// the first violation found, wrapped with context, or nil.
func (c *Circuit) Audit() error {
	if err := c.auditTopological(); err != nil {
		return errors.Wrap(err, "topological invariant")
	}
	if err := c.auditNNF(); err != nil {
		return errors.Wrap(err, "NNF invariant")
	}
	if err := c.auditOccurrences(); err != nil {
		return errors.Wrap(err, "occurrence-count invariant")
	}
	if err := c.auditAlternation(); err != nil {
		return errors.Wrap(err, "scope-alternation invariant")
	}
	if err := c.auditVarMembership(); err != nil {
		return errors.Wrap(err, "var-membership invariant")
	}
	if c.phase == PhaseEncoded {
		if err := c.auditOutput(); err != nil {
			return errors.Wrap(err, "output invariant")
		}
	}
	return nil
}

func (c *Circuit) auditTopological() error {
	if c.phase != PhaseEncoded {
		return nil
	}
	for id := int32(1); id <= c.maxNum; id++ {
		switch c.nodes[id].kind {
		case KindGate:
			for _, lit := range c.nodes[id].gate.inputs {
				if VarOf(lit) >= id {
					return errors.Errorf("gate %d has input %d not strictly before it", id, lit)
				}
			}
		case KindScopeNode:
			if sub := c.nodes[id].sn.sub; VarOf(sub) >= id {
				return errors.Errorf("scope node %d has sub %d not strictly before it", id, sub)
			}
		}
	}
	return nil
}

func (c *Circuit) auditNNF() error {
	if c.phase != PhaseEncoded {
		return nil
	}
	check := func(lit Literal) error {
		v := VarOf(lit)
		if IsNeg(lit) && c.Has(v) && c.nodes[v].kind == KindGate {
			return errors.Errorf("negated gate reference %d violates NNF", lit)
		}
		return nil
	}
	for id := int32(1); id <= c.maxNum; id++ {
		switch c.nodes[id].kind {
		case KindGate:
			for _, lit := range c.nodes[id].gate.inputs {
				if err := check(lit); err != nil {
					return err
				}
			}
		case KindScopeNode:
			if err := check(c.nodes[id].sn.sub); err != nil {
				return err
			}
		}
	}
	if c.hasOutput {
		return check(c.output)
	}
	return nil
}

func (c *Circuit) auditOccurrences() error {
	counted := make([]int32, len(c.nodes))
	for id := int32(1); id <= c.maxNum; id++ {
		switch c.nodes[id].kind {
		case KindGate:
			for _, lit := range c.nodes[id].gate.inputs {
				counted[VarOf(lit)]++
			}
		case KindScopeNode:
			counted[VarOf(c.nodes[id].sn.sub)]++
		}
	}
	if c.hasOutput {
		counted[VarOf(c.output)]++
	}
	for id := int32(1); id <= c.maxNum; id++ {
		if counted[id] != c.nodes[id].occ {
			return errors.Errorf("node %d has stored occurrence count %d, actual is %d", id, c.nodes[id].occ, counted[id])
		}
	}
	return nil
}

func (c *Circuit) auditAlternation() error {
	for _, s := range c.scopes {
		if s.id == c.topScope {
			continue
		}
		if p := c.scopes[s.parent]; p != nil && p.quant == s.quant {
			return errors.Errorf("scope %d has the same quantifier as its parent %d", s.id, p.id)
		}
	}
	return nil
}

func (c *Circuit) auditVarMembership() error {
	owner := make(map[int32]int32)
	for _, s := range c.scopes {
		for _, v := range s.vars {
			if prev, ok := owner[v]; ok {
				return errors.Errorf("var %d appears in both scope %d and scope %d", v, prev, s.id)
			}
			owner[v] = s.id
			if !c.Has(v) || c.nodes[v].kind != KindVar {
				return errors.Errorf("scope %d lists %d as a var but it is not one", s.id, v)
			}
			if c.nodes[v].v.scope != s.id {
				return errors.Errorf("var %d's scope field disagrees with scope %d's var list", v, s.id)
			}
		}
	}
	return nil
}

func (c *Circuit) auditOutput() error {
	if !c.hasOutput {
		return errors.New("no output set")
	}
	if IsNeg(c.output) {
		return errors.New("output is a negative literal")
	}
	v := VarOf(c.output)
	if !c.Has(v) || c.nodes[v].kind != KindGate {
		return errors.New("output does not reference a gate")
	}
	return nil
}
