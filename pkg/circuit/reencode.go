package circuit

// Reencode restores the circuit's invariants after building or rewriting:
// NNF conversion, empty-scope removal, quantifier pruning at the root, a
// topological DFS renumbering from the output, and quantifier-alternation
// normalization. It returns UndefinedNode/CycleInCircuit/
// SharedQuantifiedSubformula if the circuit is malformed.
func (c *Circuit) Reencode() error {
	c.nnfConvert()
	c.removeEmptyScopes()
	c.pruneRootQuantifiers()

	order, err := c.dfsPostOrder()
	if err != nil {
		return err
	}
	c.rewriteByID(order)
	c.normalizeAlternation()
	c.phase = PhaseEncoded
	return nil
}

// nnfConvert rewrites every gate input (and the output) so that negation
// never falls on a literal whose variable is itself a Gate, by substituting
// in a lazily-constructed, memoized de Morgan twin gate.
func (c *Circuit) nnfConvert() {
	originalMax := c.maxNum
	for id := int32(1); id <= originalMax; id++ {
		if c.nodes[id].kind != KindGate {
			continue
		}
		inputs := c.nodes[id].gate.inputs
		for i, lit := range inputs {
			v := VarOf(lit)
			if IsNeg(lit) && c.Has(v) && c.nodes[v].kind == KindGate {
				twin := c.deMorganTwin(v)
				c.dropOccurrence(lit)
				newLit := Literal(twin)
				c.nodes[id].gate.inputs[i] = newLit
				c.addOccurrence(newLit)
			}
		}
	}
	if c.hasOutput {
		v := VarOf(c.output)
		if IsNeg(c.output) && c.Has(v) && c.nodes[v].kind == KindGate {
			twin := c.deMorganTwin(v)
			c.dropOccurrence(c.output)
			c.output = Literal(twin)
			c.addOccurrence(c.output)
		}
	}
}

// deMorganTwin returns the id of a gate representing NOT(gateID), building
// it (and recursively any further twins it needs) if it does not already
// exist, and caching the result in both gates' negation field.
func (c *Circuit) deMorganTwin(gateID int32) int32 {
	if c.nodes[gateID].gate.negation != 0 {
		return c.nodes[gateID].gate.negation
	}
	flipped := c.nodes[gateID].gate.typ.Flip()
	inputs := append([]Literal(nil), c.nodes[gateID].gate.inputs...)

	twinID := c.AddGate(flipped)
	c.nodes[gateID].gate.negation = twinID
	c.nodes[twinID].gate.negation = gateID

	for _, lit := range inputs {
		c.AddGateInput(twinID, c.negateForTwin(lit))
	}
	return twinID
}

// negateForTwin returns the literal representing NOT(lit), reusing the
// variable-level sign flip when lit's variable is a Var, and otherwise
// resolving through (or lazily building) the referenced gate's twin.
func (c *Circuit) negateForTwin(lit Literal) Literal {
	v := VarOf(lit)
	if c.Has(v) && c.nodes[v].kind == KindGate {
		if IsNeg(lit) {
			return Literal(v) // NOT(NOT(v)) == v
		}
		return Literal(c.deMorganTwin(v))
	}
	return Neg(lit)
}

// removeEmptyScopes repeatedly collapses scopes left with no bound
// variables: a prefix scope is spliced out of the scope tree, and a
// ScopeNode-anchored scope vanishes with every reference to its anchor
// replaced by its sub-literal (quantifying over no variables is the
// identity).
func (c *Circuit) removeEmptyScopes() {
	for {
		var target *Scope
		for _, s := range c.scopes {
			if s.id == c.topScope || len(s.vars) != 0 {
				continue
			}
			target = s
			break
		}
		if target == nil {
			return
		}
		c.collapseScope(target)
	}
}

// collapseScope removes scope s from the tree, reparenting its children onto
// s's parent, and (if s was anchored by a ScopeNode) rewriting every
// reference to that node into a direct reference to its sub-literal.
func (c *Circuit) collapseScope(s *Scope) {
	parent := c.scopes[s.parent]
	if parent != nil {
		kept := make([]int32, 0, len(parent.children)+len(s.children))
		for _, ch := range parent.children {
			if ch != s.id {
				kept = append(kept, ch)
			}
		}
		kept = append(kept, s.children...)
		parent.children = kept
	}
	for _, ch := range s.children {
		c.scopes[ch].parent = s.parent
	}
	if s.node != 0 {
		c.retireScopeNode(s.node)
	}
	delete(c.scopes, s.id)
}

// retireScopeNode rewrites every incoming reference to nodeID into a direct
// reference to its sub-literal, then clears nodeID's own outgoing edge to
// sub (dropping the occurrence it contributed), so that once nodeID is
// dropped as unreachable by the next rewriteByID, sub's occurrence count
// already reflects its final, edge-for-edge-replaced state.
func (c *Circuit) retireScopeNode(nodeID int32) {
	sub := c.nodes[nodeID].sn.sub
	c.replaceNodeReferences(nodeID, sub)
	c.nodes[nodeID].sn.sub = 0
	c.dropOccurrence(sub)
}

// replaceNodeReferences rewrites every gate input, ScopeNode sub, and the
// circuit output that references oldID (always as a positive literal, since
// NNF forbids negating a non-Var reference) to reference newLit instead.
func (c *Circuit) replaceNodeReferences(oldID int32, newLit Literal) {
	old := Literal(oldID)
	for id := int32(1); id <= c.maxNum; id++ {
		switch c.nodes[id].kind {
		case KindGate:
			for i, lit := range c.nodes[id].gate.inputs {
				if lit == old {
					c.nodes[id].gate.inputs[i] = newLit
					c.dropOccurrence(old)
					c.addOccurrence(newLit)
				}
			}
		case KindScopeNode:
			if c.nodes[id].sn.sub == old {
				c.nodes[id].sn.sub = newLit
				c.dropOccurrence(old)
				c.addOccurrence(newLit)
			}
		}
	}
	if c.hasOutput && c.output == old {
		c.output = newLit
		c.dropOccurrence(old)
		c.addOccurrence(newLit)
	}
}

// pruneRootQuantifiers lifts the circuit's output out of any ScopeNode,
// moving that node's bound scope onto the tail of the prefix chain, until
// the output references a Gate.
func (c *Circuit) pruneRootQuantifiers() {
	for c.hasOutput {
		v := VarOf(c.output)
		if !c.Has(v) || c.nodes[v].kind != KindScopeNode {
			return
		}
		nodeID := v
		s := c.scopes[c.nodes[nodeID].sn.scope]

		if s.parent != 0 {
			if p := c.scopes[s.parent]; p != nil {
				kept := p.children[:0:0]
				for _, ch := range p.children {
					if ch != s.id {
						kept = append(kept, ch)
					}
				}
				p.children = kept
			}
		}

		tail := c.prefixTail()
		s.parent = tail.id
		s.depth = tail.depth + 1
		s.node = 0
		tail.children = append(tail.children, s.id)

		// The node is being orphaned: retire its output edge and its sub
		// edge, then add a single direct output edge to sub in their place,
		// so the occurrence count on sub is unaffected (one edge to it
		// either way) while the now-garbage node's count drops to zero.
		sub := c.nodes[nodeID].sn.sub
		c.dropOccurrence(c.output)
		c.nodes[nodeID].sn.sub = 0
		c.dropOccurrence(sub)
		c.output = sub
		c.addOccurrence(sub)
	}
}

// prefixTail returns the deepest scope reachable from the top-level scope by
// following only prefix (unanchored) children.
func (c *Circuit) prefixTail() *Scope {
	s := c.scopes[c.topScope]
	for {
		var next *Scope
		for _, ch := range s.children {
			if cs := c.scopes[ch]; cs.node == 0 {
				next = cs
				break
			}
		}
		if next == nil {
			return s
		}
		s = next
	}
}

type dfsColor uint8

const (
	white dfsColor = iota
	gray
	black
)

// dfsPostOrder walks the circuit from its output, returning node ids in
// post-order (every input visited before its gate). It fails with
// CycleInCircuit if it re-enters a node still on the current path, and with
// SharedQuantifiedSubformula if a ScopeNode is reached via more than one
// edge.
func (c *Circuit) dfsPostOrder() ([]int32, error) {
	color := make([]dfsColor, len(c.nodes))
	order := make([]int32, 0, c.maxNum)

	var visit func(id int32) error
	visit = func(id int32) error {
		if id == 0 {
			return nil
		}
		if !c.Has(id) {
			return UndefinedNode(id)
		}
		switch color[id] {
		case black:
			if c.nodes[id].kind == KindScopeNode {
				return SharedQuantifiedSubformula(id)
			}
			return nil
		case gray:
			return CycleInCircuit(id)
		}
		color[id] = gray
		switch c.nodes[id].kind {
		case KindGate:
			for _, lit := range c.nodes[id].gate.inputs {
				if err := visit(VarOf(lit)); err != nil {
					return err
				}
			}
		case KindScopeNode:
			if err := visit(VarOf(c.nodes[id].sn.sub)); err != nil {
				return err
			}
		}
		color[id] = black
		order = append(order, id)
		return nil
	}

	if c.hasOutput {
		if err := visit(VarOf(c.output)); err != nil {
			return nil, err
		}
	}
	return order, nil
}

// rewriteByID packs the nodes named by order into fresh, consecutive ids
// starting at 1 (in the order given), dropping every node not named by
// order, and fixes up every reference (gate inputs, ScopeNode subs, the
// output, scope anchors, and scope variable lists) to match.
func (c *Circuit) rewriteByID(order []int32) {
	oldToNew := make(map[int32]int32, len(order))
	for i, old := range order {
		oldToNew[old] = int32(i + 1)
	}
	remapLit := func(lit Literal) Literal {
		v := VarOf(lit)
		if v == 0 {
			return lit
		}
		nv, ok := oldToNew[v]
		if !ok {
			return 0
		}
		if IsNeg(lit) {
			return Neg(Literal(nv))
		}
		return Literal(nv)
	}

	newNodes := make([]Node, len(order)+1)
	for i, old := range order {
		n := c.nodes[old]
		n.id = int32(i + 1)
		switch n.kind {
		case KindGate:
			n.gate.inputs = append([]Literal(nil), n.gate.inputs...)
			for j, lit := range n.gate.inputs {
				n.gate.inputs[j] = remapLit(lit)
			}
			if nv, ok := oldToNew[n.gate.negation]; ok {
				n.gate.negation = nv
			} else {
				n.gate.negation = 0
			}
			if nv, ok := oldToNew[n.gate.owner]; ok {
				n.gate.owner = nv
			} else {
				n.gate.owner = 0
			}
		case KindScopeNode:
			n.sn.sub = remapLit(n.sn.sub)
		}
		newNodes[n.id] = n
	}
	if c.hasOutput {
		c.output = remapLit(c.output)
	}

	for _, s := range c.scopes {
		if s.node == 0 {
			continue
		}
		if nv, ok := oldToNew[s.node]; ok {
			s.node = nv
		} else {
			s.node = 0
		}
	}

	varsByScope := make(map[int32][]int32)
	for i := 1; i < len(newNodes); i++ {
		if newNodes[i].kind == KindVar {
			sc := newNodes[i].v.scope
			varsByScope[sc] = append(varsByScope[sc], int32(i))
		}
	}
	for id, s := range c.scopes {
		s.vars = varsByScope[id]
	}

	c.nodes = newNodes
	c.maxNum = int32(len(order))
}

// normalizeAlternation repeatedly merges any scope whose quantifier matches
// its parent's into that parent, restoring strict alternation along every
// path of the scope tree.
func (c *Circuit) normalizeAlternation() {
	for {
		var merge *Scope
		for _, s := range c.scopes {
			if s.id == c.topScope {
				continue
			}
			if p := c.scopes[s.parent]; p != nil && p.quant == s.quant {
				merge = s
				break
			}
		}
		if merge == nil {
			return
		}
		c.mergeIntoParent(merge)
	}
}

func (c *Circuit) mergeIntoParent(s *Scope) {
	p := c.scopes[s.parent]
	p.vars = append(p.vars, s.vars...)
	for _, v := range s.vars {
		c.nodes[v].v.scope = p.id
	}

	kept := make([]int32, 0, len(p.children)+len(s.children))
	for _, ch := range p.children {
		if ch != s.id {
			kept = append(kept, ch)
		}
	}
	kept = append(kept, s.children...)
	p.children = kept
	for _, ch := range s.children {
		c.scopes[ch].parent = p.id
	}

	if s.node != 0 {
		c.retireScopeNode(s.node)
	}
	delete(c.scopes, s.id)
}
