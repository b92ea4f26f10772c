// Package circuit implements the topologically-indexed DAG of variables,
// gates, and embedded quantifier scopes that the solver operates over, along
// with the reencode pass that restores its invariants after construction or
// rewriting.
package circuit

import "github.com/ltentrup-style/qbfcircuit/pkg/bitset"

// Literal is a signed reference to a variable id. The sign carries polarity;
// the magnitude is the variable id. Id 0 is never a valid variable.
type Literal int32

// VarOf returns the variable id referenced by l, stripping its polarity.
func VarOf(l Literal) int32 {
	if l < 0 {
		return int32(-l)
	}
	return int32(l)
}

// Neg returns the negation of l.
func Neg(l Literal) Literal {
	return -l
}

// Pos returns the positive literal for l's variable.
func Pos(l Literal) Literal {
	if l < 0 {
		return -l
	}
	return l
}

// IsNeg reports whether l is a negative literal.
func IsNeg(l Literal) bool {
	return l < 0
}

// LitOfVar builds a literal for variable id v with the given polarity.
func LitOfVar(v int32, neg bool) Literal {
	if neg {
		return Literal(-v)
	}
	return Literal(v)
}

// NodeKind tags which variant a Node holds.
type NodeKind uint8

const (
	KindVar NodeKind = iota
	KindGate
	KindScopeNode
)

func (k NodeKind) String() string {
	switch k {
	case KindVar:
		return "var"
	case KindGate:
		return "gate"
	case KindScopeNode:
		return "scope-node"
	default:
		return "unknown"
	}
}

// GateType distinguishes AND from OR gates.
type GateType uint8

const (
	GateAnd GateType = iota
	GateOr
)

func (t GateType) String() string {
	if t == GateAnd {
		return "and"
	}
	return "or"
}

// Flip returns the dual gate type (AND<->OR), used when a scope's ∀ type
// requires flipping gate interpretation in the clausal abstraction.
func (t GateType) Flip() GateType {
	if t == GateAnd {
		return GateOr
	}
	return GateAnd
}

// Quantifier distinguishes existential from universal scopes.
type Quantifier uint8

const (
	Exists Quantifier = iota
	Forall
)

func (q Quantifier) String() string {
	if q == Exists {
		return "exists"
	}
	return "forall"
}

// Flip returns the dual quantifier.
func (q Quantifier) Flip() Quantifier {
	if q == Exists {
		return Forall
	}
	return Exists
}

// Polarity summarizes the signs under which a variable has been observed to
// occur while walking parent gates.
type Polarity uint8

const (
	PolarityUndefined Polarity = iota
	PolarityPos
	PolarityNeg
	PolarityBoth
)

// Observe folds in an occurrence of the given sign.
func (p Polarity) Observe(neg bool) Polarity {
	switch {
	case p == PolarityUndefined && !neg:
		return PolarityPos
	case p == PolarityUndefined && neg:
		return PolarityNeg
	case p == PolarityPos && neg:
		return PolarityBoth
	case p == PolarityNeg && !neg:
		return PolarityBoth
	default:
		return p
	}
}

// base holds the attributes shared by every node variant, per the circuit's
// data model: identity, original identity (kept for certification), use
// count, an evaluated value (+1 true, -1 false, 0 undefined),
// and the influence/relevance bitsets computed by the influence analyzer.
type base struct {
	id          int32
	origID      int32
	occ         int32
	value       int32
	influences  *bitset.Set
	relevantFor *bitset.Set
	visited     bool
}

// gateData is the Gate-specific payload.
type gateData struct {
	typ       GateType
	inputs    []Literal
	conflict  bool
	keep      bool
	reachable bool
	negation  int32 // id of the cached de-Morgan twin gate, 0 if none yet
	owner     int32 // id of the gate that currently "owns" this node for miniscoping copy-on-write
}

// varData is the Var-specific payload.
type varData struct {
	scope    int32
	polarity Polarity
	removed  bool
}

// scopeNodeData is the ScopeNode-specific payload: an embedded quantifier
// binding a non-empty Scope, wrapping a single sub-literal.
type scopeNodeData struct {
	quant Quantifier
	scope int32
	sub   Literal
}

// Node is a tagged variant over Var, Gate, and ScopeNode, stored by id in a
// dense arena inside Circuit.
type Node struct {
	base
	kind NodeKind
	gate gateData
	v    varData
	sn   scopeNodeData
}

// ID returns the node's current (post-reencode) id.
func (n *Node) ID() int32 { return n.id }

// OrigID returns the node's id as first assigned, preserved across reencodes
// for certification.
func (n *Node) OrigID() int32 { return n.origID }

// Occurrences returns the node's current reference count.
func (n *Node) Occurrences() int32 { return n.occ }

// Kind reports which variant the node holds.
func (n *Node) Kind() NodeKind { return n.kind }

// Value returns the node's evaluated value: 0 if undefined, otherwise +1
// (true) or -1 (false), as fixed by preprocessing. The value carries no
// scope tag; pkg/solve keeps its level-tagged decisions in its own table.
func (n *Node) Value() int32 { return n.value }

// Decided reports whether the node has an assigned value.
func (n *Node) Decided() bool { return n.value != 0 }

// GateType returns the node's gate type. Valid only when Kind() == KindGate.
func (n *Node) GateType() GateType { return n.gate.typ }

// Inputs returns the node's gate inputs. Valid only when Kind() == KindGate.
func (n *Node) Inputs() []Literal { return n.gate.inputs }

// VarScope returns the id of the scope that owns this variable. Valid only
// when Kind() == KindVar.
func (n *Node) VarScope() int32 { return n.v.scope }

// Removed reports whether this Var has been propagated away (but its id is
// retained for certification). Valid only when Kind() == KindVar.
func (n *Node) Removed() bool { return n.v.removed }

// ScopeQuantifier returns the quantifier bound by this ScopeNode. Valid only
// when Kind() == KindScopeNode.
func (n *Node) ScopeQuantifier() Quantifier { return n.sn.quant }

// BoundScope returns the id of the Scope bound by this ScopeNode. Valid only
// when Kind() == KindScopeNode.
func (n *Node) BoundScope() int32 { return n.sn.scope }

// Sub returns the single literal wrapped by this ScopeNode. Valid only when
// Kind() == KindScopeNode.
func (n *Node) Sub() Literal { return n.sn.sub }

// Influences returns the bitset of variable ids this node depends on, as
// computed by the influence analyzer. May be nil before the analyzer has
// run.
func (n *Node) Influences() *bitset.Set { return n.influences }

// RelevantFor returns the bitset of depths of the scopes whose variables
// this node depends on, as computed by the influence analyzer; it does not
// record the ids of the scopes in whose subformula the node occurs. May be
// nil before the analyzer has run.
func (n *Node) RelevantFor() *bitset.Set { return n.relevantFor }

// Scope is a node in the quantifier tree.
type Scope struct {
	id       int32
	depth    int32
	maxDepth int32
	quant    Quantifier
	vars     []int32
	node     int32 // anchoring ScopeNode id, 0 for a prefix scope
	parent   int32 // parent scope id, 0 for the top-level scope
	children []int32
}

// ID returns the scope's id.
func (s *Scope) ID() int32 { return s.id }

// Depth returns the scope's depth in the scope tree (the top-level scope is 0).
func (s *Scope) Depth() int32 { return s.depth }

// MaxDepth returns the deepest scope depth reachable within this scope's
// subtree, as computed by the influence analyzer.
func (s *Scope) MaxDepth() int32 { return s.maxDepth }

// Quantifier returns the scope's quantifier type.
func (s *Scope) Quantifier() Quantifier { return s.quant }

// Vars returns the variable ids bound by this scope.
func (s *Scope) Vars() []int32 { return s.vars }

// AnchorNode returns the id of the ScopeNode anchoring this scope, or 0 if
// this is a prefix scope.
func (s *Scope) AnchorNode() int32 { return s.node }

// Parent returns the id of this scope's parent, or 0 for the top-level scope.
func (s *Scope) Parent() int32 { return s.parent }

// Children returns the ids of this scope's child scopes.
func (s *Scope) Children() []int32 { return s.children }

// IsPrefix reports whether this scope is part of the non-embedded prefix
// chain (as opposed to anchored by a ScopeNode deep in the circuit).
func (s *Scope) IsPrefix() bool { return s.node == 0 }

// Phase tracks the circuit's lifecycle stage.
type Phase uint8

const (
	PhaseBuilding Phase = iota
	PhaseEncoded
	PhasePropagation
)
