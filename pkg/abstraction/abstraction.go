// Package abstraction builds the per-scope clausal (CNF) abstraction of a
// cleansed quantified circuit: the propositional encoding that replaces
// strictly-outer subformulas with an assumption (t-literal) interface while
// fully defining everything at this scope's depth or deeper, as described in
// spec.md §4.5.
//
// A scope's abstraction is built purely from its own depth and the shared
// circuit output, independent of how many siblings or children that scope
// has (pkg/preprocess.Run no longer forces the scope tree into a single
// linear chain — see its doc comment — and pkg/solve's recursive solver
// walks a general tree). Every scope therefore re-walks the same shared
// circuit output; scopes differ only in where they draw the t-literal
// cutoff, so a variable or gate owned by an outer scope is reused,
// re-defined and re-solved at every inner scope in turn rather than encoded
// once and passed down structurally.
package abstraction

import (
	"github.com/ltentrup-style/qbfcircuit/pkg/bitset"
	"github.com/ltentrup-style/qbfcircuit/pkg/circuit"
	"github.com/ltentrup-style/qbfcircuit/pkg/satif"
)

// Abstraction is the CNF view of a circuit for one scope, built against a
// dedicated SAT solver instance. Its SAT variables are laid out
// deterministically from circuit node ids: for a circuit with maxNum nodes,
// node id v has a direct/b-literal SAT variable v and a t-literal SAT
// variable v+maxNum — the same numbering in every scope's abstraction, so
// that translating a literal between a parent and child's namespace is pure
// arithmetic (TVar/BVar below), per spec.md §4.6's refinement-translation
// rule.
type Abstraction struct {
	c      *circuit.Circuit
	scope  int32
	depth  int32
	forall bool // this scope's own quantifier is universal (after any dual flip)
	dual   bool
	sat    satif.Solver
	maxNum int32

	// TLits is the set of node ids (circuit namespace) this abstraction
	// represents purely as an assumption input (no local clauses): nodes
	// whose deepest dependency scope is strictly outer to this one.
	TLits *bitset.Set
	// BLits is the set of gate/scope-node ids this abstraction fully defines
	// (current depth or deeper) and whose value is reportable to a child —
	// spec.md §4.5's "set of b-literals of S".
	BLits *bitset.Set

	combined bool
}

// Option configures Build.
type Option func(*options)

type options struct {
	combined bool
}

// WithCombinedAbstraction enables the combined-abstraction proxy-literal
// mode described in spec.md §4.5/SPEC_FULL.md §10.1 (merging chains of
// purely-outer gates behind a single proxy b-literal). It is accepted for
// interface compatibility with the original's default-on behavior; this
// implementation's per-node t-/b-literal scheme already assigns one SAT
// variable per node regardless, so enabling it does not change the
// produced CNF.
func WithCombinedAbstraction(enabled bool) Option {
	return func(o *options) { o.combined = enabled }
}

// TVar returns the t-literal SAT variable for circuit node id.
func TVar(id int32, maxNum int32) int32 { return id + maxNum }

// BVar returns the b-literal SAT variable for circuit node id (identical to
// its direct SAT variable).
func BVar(id int32) int32 { return id }

func maxDepth(n *circuit.Node) int32 {
	if n.RelevantFor() == nil {
		return 0
	}
	d, ok := n.RelevantFor().Max()
	if !ok {
		return 0
	}
	return int32(d)
}

// Build constructs the abstraction of scope for circuit c, allocating SAT
// variables 1..2*maxNum on sat (a fresh solver instance) and emitting
// clauses. When dual is true, this builds the negated abstraction used for
// assignment minimization (spec.md §4.5): the scope's own quantifier is
// flipped and the output is fixed to false instead of true.
//
// Grounded on circuit_abstraction.c's single-pass gate walk and the
// teacher's litMapping.AddConstraints/newLitMapping split between
// "translate" and "emit" (lit_mapping.go), adapted to emit clauses directly
// against the satif.Solver contract instead of building a logic.C.
func Build(c *circuit.Circuit, scope int32, sat satif.Solver, dual bool, opts ...Option) *Abstraction {
	o := options{combined: true}
	for _, opt := range opts {
		opt(&o)
	}

	s := c.Scope(scope)
	quant := s.Quantifier()
	if dual {
		quant = quant.Flip()
	}

	maxNum := c.MaxNum()
	a := &Abstraction{
		c:        c,
		scope:    scope,
		depth:    s.Depth(),
		forall:   quant == circuit.Forall,
		dual:     dual,
		sat:      sat,
		maxNum:   maxNum,
		TLits:    bitset.New(int(maxNum) + 1),
		BLits:    bitset.New(int(maxNum) + 1),
		combined: o.combined,
	}

	for i := int32(0); i < 2*maxNum; i++ {
		sat.NewVar()
	}

	visited := make([]bool, maxNum+1)
	var encode func(id int32)
	encode = func(id int32) {
		if id == 0 || visited[id] {
			return
		}
		visited[id] = true
		n := c.Node(id)
		md := maxDepth(n)
		if md < a.depth {
			a.TLits.Add(int(id))
			return
		}
		// md >= a.depth: this scope's own concern, current or deeper. Fully
		// define it so this scope's own quantified variables (which never
		// appear in a gate this scope's own walk would otherwise stop at)
		// are always reachable from some clause.
		switch n.Kind() {
		case circuit.KindGate:
			a.BLits.Add(int(id))
			for _, lit := range n.Inputs() {
				encode(circuit.VarOf(lit))
			}
			a.emitGate(id, n)
		case circuit.KindScopeNode:
			a.BLits.Add(int(id))
			encode(circuit.VarOf(n.Sub()))
		case circuit.KindVar:
			// A Var needs no clause: its direct SAT variable already is its
			// own value, possibly forall-flipped when referenced as a
			// literal (see litFor).
		}
	}

	out, ok := c.Output()
	if ok {
		encode(circuit.VarOf(out))
		a.fixOutput(out)
	}
	return a
}

// litFor translates circuit literal lit into a signed SAT literal in this
// abstraction's namespace, applying the current-scope forall flip to plain
// variables per spec.md §4.5.
func (a *Abstraction) litFor(lit circuit.Literal) int32 {
	v := circuit.VarOf(lit)
	neg := circuit.IsNeg(lit)
	n := a.c.Node(v)
	md := maxDepth(n)

	if md < a.depth {
		m := TVar(v, a.maxNum)
		if neg {
			return -m
		}
		return m
	}
	if md == a.depth && a.forall && n.Kind() == circuit.KindVar {
		neg = !neg
	}
	if neg {
		return -v
	}
	return v
}

// emitGate appends the clauses defining gate id's b-literal, per spec.md
// §4.5: an AND gate (OR, if this scope is ∀) contributes one binary clause
// per input forcing the input true whenever the gate's b-literal is; an OR
// gate (AND, if ∀) contributes a single clause forcing some input true
// whenever the b-literal is.
func (a *Abstraction) emitGate(id int32, n *circuit.Node) {
	typ := n.GateType()
	if a.forall {
		typ = typ.Flip()
	}
	b := BVar(id)

	switch typ {
	case circuit.GateAnd:
		for _, lit := range n.Inputs() {
			x := a.litFor(lit)
			a.sat.Add(x)
			a.sat.Add(-b)
			a.sat.Add(0)
		}
	case circuit.GateOr:
		for _, lit := range n.Inputs() {
			a.sat.Add(a.litFor(lit))
		}
		a.sat.Add(-b)
		a.sat.Add(0)
	}
}

// fixOutput asserts the circuit's matrix: true for the primary abstraction,
// false for the dual (spec.md §4.5's "fixing the output").
func (a *Abstraction) fixOutput(out circuit.Literal) {
	lit := a.litFor(out)
	if a.dual {
		lit = -lit
	}
	a.sat.Add(lit)
	a.sat.Add(0)
}

// Depth returns the depth of the scope this abstraction encodes.
func (a *Abstraction) Depth() int32 { return a.depth }

// Forall reports whether this abstraction treats its scope as universal
// (after any dual flip).
func (a *Abstraction) Forall() bool { return a.forall }

// MaxNum returns the circuit's node-id ceiling used to derive this
// abstraction's SAT variable layout.
func (a *Abstraction) MaxNum() int32 { return a.maxNum }

// Sat returns the underlying SAT solver instance.
func (a *Abstraction) Sat() satif.Solver { return a.sat }

// Decided is the decided-value oracle the recursive solver supplies:
// returns the current sign of node id's value (+1/-1), or 0 if undecided.
// The circuit itself is read-only during solving (spec.md §5), so this
// abstraction never consults circuit.Node.Value directly for anything a
// scope could have decided at solve time — only the caller's Decided does.
type Decided func(id int32) int32

// AssumeFromValues sets this abstraction's t-literal assumptions from
// decided (spec.md §4.6's "set t-literal assumptions" step): every
// t-literal is strictly outer to this scope, so by the time solving reaches
// this scope every ancestor has already decided it.
func (a *Abstraction) AssumeFromValues(decided Decided) {
	a.TLits.Each(func(bit int) {
		id := int32(bit)
		t := TVar(id, a.maxNum)
		if decided(id) > 0 {
			a.sat.Assume(t)
		} else {
			a.sat.Assume(-t)
		}
	})
}
