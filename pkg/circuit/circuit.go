package circuit

import "github.com/ltentrup-style/qbfcircuit/pkg/bitset"

// Circuit is the dense, centrally-owned arena of Var/Gate/ScopeNode nodes
// plus the quantifier scope tree, as described in the data model: a single
// indexable array mapping variable id to node, with the current output
// literal, the top-level scope for free variables, and the build/encode
// lifecycle phase.
type Circuit struct {
	nodes     []Node // index 0 unused; ids are 1-based
	maxNum    int32
	output    Literal
	hasOutput bool
	topScope  int32
	prevScope int32 // cursor used by an external parser while building
	phase     Phase

	scopes      map[int32]*Scope
	nextScopeID int32
}

// New returns an empty Circuit in the Building phase, with a single
// top-level existential scope for free variables.
func New() *Circuit {
	c := &Circuit{
		nodes:  make([]Node, 1), // placeholder for id 0
		phase:  PhaseBuilding,
		scopes: make(map[int32]*Scope),
	}
	c.topScope = c.newScope(nil, Exists)
	c.prevScope = c.topScope
	return c
}

// MaxNum returns the highest node id currently in use.
func (c *Circuit) MaxNum() int32 { return c.maxNum }

// Output returns the current output literal and whether it has been set.
func (c *Circuit) Output() (Literal, bool) { return c.output, c.hasOutput }

// TopScope returns the id of the top-level (always ∃) scope for free
// variables.
func (c *Circuit) TopScope() int32 { return c.topScope }

// Phase returns the circuit's current lifecycle phase.
func (c *Circuit) Phase() Phase { return c.phase }

// Node returns the node with the given id. It panics if id is out of range;
// callers within this package and its siblings are expected to only use ids
// obtained from the circuit itself.
func (c *Circuit) Node(id int32) *Node {
	if id <= 0 || int(id) >= len(c.nodes) {
		apiMisuse("node id %d out of range", id)
	}
	return &c.nodes[id]
}

// Has reports whether id currently refers to a live node.
func (c *Circuit) Has(id int32) bool {
	return id > 0 && int(id) < len(c.nodes)
}

// Scope returns the scope with the given id, or nil if it does not exist.
func (c *Circuit) Scope(id int32) *Scope {
	return c.scopes[id]
}

// Scopes returns every scope currently in the circuit's scope tree, in no
// particular order.
func (c *Circuit) Scopes() []*Scope {
	out := make([]*Scope, 0, len(c.scopes))
	for _, s := range c.scopes {
		out = append(out, s)
	}
	return out
}

func (c *Circuit) allocID() int32 {
	c.maxNum++
	id := c.maxNum
	for int(id) >= len(c.nodes) {
		c.nodes = append(c.nodes, Node{})
	}
	c.nodes[id].id = id
	c.nodes[id].origID = id
	return id
}

func (c *Circuit) newScope(parent *Scope, quant Quantifier) int32 {
	c.nextScopeID++
	id := c.nextScopeID
	s := &Scope{id: id, quant: quant}
	if parent != nil {
		s.parent = parent.id
		s.depth = parent.depth + 1
		parent.children = append(parent.children, id)
	}
	c.scopes[id] = s
	return id
}

// AddScope creates a new prefix scope (scope.node == 0) as a child of parent,
// with the given quantifier, and returns its id. Pass 0 for parent to attach
// directly under the top-level scope's position (used by a parser building a
// prenex prefix in order).
func (c *Circuit) AddScope(parent int32, quant Quantifier) int32 {
	if parent == 0 {
		parent = c.topScope
	}
	var p *Scope
	if parent != 0 {
		p = c.scopes[parent]
		if p == nil {
			apiMisuse("unknown parent scope %d", parent)
		}
	}
	return c.newScope(p, quant)
}

// AddVariable allocates a new Var node bound by scope and returns its id.
func (c *Circuit) AddVariable(scope int32) int32 {
	s := c.scopes[scope]
	if s == nil {
		apiMisuse("unknown scope %d", scope)
	}
	id := c.allocID()
	c.nodes[id].kind = KindVar
	c.nodes[id].v.scope = scope
	s.vars = append(s.vars, id)
	return id
}

// AddGate allocates a new, empty gate of the given type and returns its id.
// Inputs are added afterward with AddGateInput.
func (c *Circuit) AddGate(typ GateType) int32 {
	id := c.allocID()
	c.nodes[id].kind = KindGate
	c.nodes[id].gate.typ = typ
	c.nodes[id].gate.keep = true
	return id
}

// AddGateInput appends lit to gate's input list and records the occurrence.
func (c *Circuit) AddGateInput(gate int32, lit Literal) {
	n := c.Node(gate)
	if n.kind != KindGate {
		apiMisuse("node %d is not a gate", gate)
	}
	n.gate.inputs = append(n.gate.inputs, lit)
	c.addOccurrence(lit)
}

// AddScopeNode allocates a new ScopeNode binding scope and wrapping sub, and
// returns its id. scope.node is set to the new node's id.
func (c *Circuit) AddScopeNode(scope int32, sub Literal) int32 {
	s := c.scopes[scope]
	if s == nil {
		apiMisuse("unknown scope %d", scope)
	}
	if s.node != 0 {
		apiMisuse("scope %d already anchored by node %d", scope, s.node)
	}
	id := c.allocID()
	c.nodes[id].kind = KindScopeNode
	c.nodes[id].sn.quant = s.quant
	c.nodes[id].sn.scope = scope
	c.nodes[id].sn.sub = sub
	s.node = id
	c.addOccurrence(sub)
	return id
}

// SetScopeNodeSub overwrites the sub-literal of an existing ScopeNode,
// adjusting occurrence counts.
func (c *Circuit) SetScopeNodeSub(node int32, sub Literal) {
	n := c.Node(node)
	if n.kind != KindScopeNode {
		apiMisuse("node %d is not a scope node", node)
	}
	c.dropOccurrence(n.sn.sub)
	n.sn.sub = sub
	c.addOccurrence(sub)
}

// SetOutput sets the circuit's output literal. It may only be called once;
// calling it again is an API misuse.
func (c *Circuit) SetOutput(lit Literal) {
	if c.hasOutput {
		apiMisuse("set_output called twice")
	}
	c.output = lit
	c.hasOutput = true
	c.addOccurrence(lit)
}

// RemoveGateInput removes the first occurrence of lit from gate's input list,
// dropping the occurrence it held. It is a no-op if lit is not present.
func (c *Circuit) RemoveGateInput(gate int32, lit Literal) {
	n := c.Node(gate)
	if n.kind != KindGate {
		apiMisuse("node %d is not a gate", gate)
	}
	for i, in := range n.gate.inputs {
		if in == lit {
			n.gate.inputs = append(n.gate.inputs[:i], n.gate.inputs[i+1:]...)
			c.dropOccurrence(lit)
			return
		}
	}
}

// ClearGateInputs drops every input of gate, releasing their occurrences.
// Used to collapse a gate into a 0-input constant (an empty AND is true, an
// empty OR is false).
func (c *Circuit) ClearGateInputs(gate int32) {
	n := c.Node(gate)
	if n.kind != KindGate {
		apiMisuse("node %d is not a gate", gate)
	}
	for _, in := range n.gate.inputs {
		c.dropOccurrence(in)
	}
	n.gate.inputs = nil
}

// SetGateType overwrites gate's type in place, used when folding a gate to a
// constant (an empty gate of the appropriate type represents true or false).
func (c *Circuit) SetGateType(gate int32, typ GateType) {
	n := c.Node(gate)
	if n.kind != KindGate {
		apiMisuse("node %d is not a gate", gate)
	}
	n.gate.typ = typ
}

// SetValue records node's propagated value (0 = undefined, else sign = truth).
func (c *Circuit) SetValue(node int32, value int32) {
	c.Node(node).value = value
}

// MoveVariable relocates an existing variable from its current scope to
// newScope, used by miniscoping to redistribute a scope's variables into
// independently-quantified sibling scopes.
func (c *Circuit) MoveVariable(varID, newScope int32) {
	n := c.Node(varID)
	if n.kind != KindVar {
		apiMisuse("node %d is not a variable", varID)
	}
	old := c.scopes[n.v.scope]
	for i, v := range old.vars {
		if v == varID {
			old.vars = append(old.vars[:i], old.vars[i+1:]...)
			break
		}
	}
	to := c.scopes[newScope]
	if to == nil {
		apiMisuse("unknown scope %d", newScope)
	}
	to.vars = append(to.vars, varID)
	n.v.scope = newScope
}

// ReparentChildren moves every child scope of from onto to, used when
// collapsing sibling scopes that share a tree depth into one (prenexing).
func (c *Circuit) ReparentChildren(from, to int32) {
	f := c.scopes[from]
	t := c.scopes[to]
	if f == nil || t == nil {
		apiMisuse("unknown scope in ReparentChildren(%d, %d)", from, to)
	}
	for _, ch := range f.children {
		c.scopes[ch].parent = to
	}
	t.children = append(t.children, f.children...)
	f.children = nil
}

// SetInfluences overwrites node's influence bitset, computed by the influence
// analyzer.
func (c *Circuit) SetInfluences(id int32, b *bitset.Set) {
	c.Node(id).influences = b
}

// SetRelevantFor overwrites node's relevant-for bitset, computed by the
// influence analyzer.
func (c *Circuit) SetRelevantFor(id int32, b *bitset.Set) {
	c.Node(id).relevantFor = b
}

// SetMaxDepth records the deepest scope depth reachable within scope's
// subtree, computed by the influence analyzer.
func (c *Circuit) SetMaxDepth(scope int32, depth int32) {
	s := c.scopes[scope]
	if s == nil {
		apiMisuse("unknown scope %d", scope)
	}
	s.maxDepth = depth
}

// PrevScope returns the scope cursor used by an external parser while
// building (e.g. to attach the next prefix quantifier block).
func (c *Circuit) PrevScope() int32 { return c.prevScope }

// SetPrevScope updates the parser's scope cursor.
func (c *Circuit) SetPrevScope(s int32) { c.prevScope = s }

func (c *Circuit) addOccurrence(lit Literal) {
	v := VarOf(lit)
	if v == 0 {
		return
	}
	if !c.Has(v) {
		return
	}
	c.nodes[v].occ++
}

func (c *Circuit) dropOccurrence(lit Literal) {
	v := VarOf(lit)
	if v == 0 || !c.Has(v) {
		return
	}
	if c.nodes[v].occ > 0 {
		c.nodes[v].occ--
	}
}

// resetVisited clears the visited flag on every node, used to restart a DFS.
func (c *Circuit) resetVisited() {
	for i := range c.nodes {
		c.nodes[i].visited = false
	}
}

// ensureInfluenceSets makes sure every node has non-nil influence/relevance
// bitsets, used before the influence analyzer runs.
func (c *Circuit) ensureInfluenceSets() {
	for i := 1; i < len(c.nodes); i++ {
		if c.nodes[i].influences == nil {
			c.nodes[i].influences = bitset.New(int(c.maxNum) + 1)
		}
		if c.nodes[i].relevantFor == nil {
			c.nodes[i].relevantFor = bitset.New(int(c.nextScopeID) + 1)
		}
	}
}
