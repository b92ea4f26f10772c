// Package certify accumulates the Skolem/Herbrand certificate of a solved
// QBF circuit as a hash-consed And-Inverter-Graph and writes it in the
// standard ASCII AIGER format, per spec.md §4.7/§6.
package certify

import (
	"fmt"
	"io"
	"sort"

	"github.com/pkg/errors"
)

// aigLit is an AIGER literal: the even/odd encoding of a variable index and
// its polarity (bit 0 set means negated). Literal 0 is the constant false,
// literal 1 the constant true.
type aigLit uint32

const (
	constFalse aigLit = 0
	constTrue  aigLit = 1
)

func litNot(l aigLit) aigLit { return l ^ 1 }

type andKey struct{ a, b aigLit }

// andEntry is one AND-gate definition: lhsVar's own literal (lhsVar<<1)
// equals a ∧ b. lhsVar is recorded explicitly (rather than inferred from
// andList's position) because a wire's lhsVar is reserved well before its
// andEntry is appended — see Wire/Define.
type andEntry struct {
	lhsVar uint32
	a, b   aigLit
}

// AIG is a hash-consed And-Inverter-Graph builder: structurally identical
// AND nodes (same pair of input literals, in either order) are never
// duplicated, keeping the certificate's size proportional to the number of
// distinct subformulas rather than the number of times RecordCase runs.
type AIG struct {
	nextVar uint32 // next fresh variable index; 0 is reserved for the constants
	ands    map[andKey]aigLit
	andList []andEntry

	inputLit   map[int32]aigLit // circuit var id -> its true AIG input literal
	inputOrder []int32
	inputVar   map[uint32]int32 // AIG var index -> circuit var id, for true inputs only

	wireLit     map[int32]aigLit // circuit var id -> its forward-declared wire literal
	wireDefined map[uint32]bool  // AIG var index -> whether Define has run for it

	outputs      []aigLit
	outputLabels []string
}

// NewAIG returns an empty builder.
func NewAIG() *AIG {
	return &AIG{
		nextVar:     1,
		ands:        make(map[andKey]aigLit),
		inputLit:    make(map[int32]aigLit),
		inputVar:    make(map[uint32]int32),
		wireLit:     make(map[int32]aigLit),
		wireDefined: make(map[uint32]bool),
	}
}

// Const returns the constant AIG literal for v.
func (g *AIG) Const(v bool) aigLit {
	if v {
		return constTrue
	}
	return constFalse
}

// Not returns the negation of l.
func (g *AIG) Not(l aigLit) aigLit { return litNot(l) }

// Input returns the true AIG input literal for circuit variable id,
// allocating a fresh one on first use. Unlike Wire, an input is never later
// redefined by an AND gate: it stays a free variable for the lifetime of the
// certificate.
func (g *AIG) Input(id int32) aigLit {
	if lit, ok := g.inputLit[id]; ok {
		return lit
	}
	v := g.nextVar
	g.nextVar++
	lit := aigLit(v << 1)
	g.inputLit[id] = lit
	g.inputOrder = append(g.inputOrder, id)
	g.inputVar[v] = id
	return lit
}

// Wire reserves (idempotently) a forward-declared AIG variable for circuit
// variable id: a placeholder literal usable from anywhere — in particular,
// from a descendant's precondition, before the variable's own defining
// function is known — until Define later supplies its AND-gate definition.
//
// Grounded on original_source/src/certification.c's import_variables_recursive,
// which declares every scope variable's AIG literal up front (as an
// aiger_output in the strategy being built) before any inner scope can
// reference it.
func (g *AIG) Wire(id int32) aigLit {
	if lit, ok := g.wireLit[id]; ok {
		return lit
	}
	v := g.nextVar
	g.nextVar++
	lit := aigLit(v << 1)
	g.wireLit[id] = lit
	return lit
}

// Define supplies the AND-gate definition for a wire previously reserved by
// Wire (lit must be one of Wire's return values): lit's variable comes to
// equal a ∧ b, so every reference to lit recorded before this call — e.g. a
// descendant's precondition built while lit's own value was still being
// accumulated — resolves to the real function once evaluated. A second
// Define call for the same wire is a no-op.
//
// Grounded on certification.c's certification_define_outputs: "define output
// as AND gate such that outer variables can depend on it"
// (aiger_add_and(strategy, var->shared.id*2, function_lit, 1)).
func (g *AIG) Define(lit aigLit, a, b aigLit) {
	v := uint32(lit) >> 1
	if g.wireDefined[v] {
		return
	}
	g.wireDefined[v] = true
	g.andList = append(g.andList, andEntry{lhsVar: v, a: a, b: b})
}

// And returns the (hash-consed) AIG literal for a ∧ b, folding the
// constant-propagation cases directly.
func (g *AIG) And(a, b aigLit) aigLit {
	if a == constFalse || b == constFalse {
		return constFalse
	}
	if a == constTrue {
		return b
	}
	if b == constTrue {
		return a
	}
	if a == b {
		return a
	}
	if a == litNot(b) {
		return constFalse
	}
	key := andKey{a, b}
	if a > b {
		key = andKey{b, a}
	}
	if lit, ok := g.ands[key]; ok {
		return lit
	}
	v := g.nextVar
	g.nextVar++
	lit := aigLit(v << 1)
	g.ands[key] = lit
	g.andList = append(g.andList, andEntry{lhsVar: v, a: key.a, b: key.b})
	return lit
}

// Or returns a ∨ b via De Morgan: ¬(¬a ∧ ¬b).
func (g *AIG) Or(a, b aigLit) aigLit {
	return litNot(g.And(litNot(a), litNot(b)))
}

// AddOutput appends lit as a labeled output of the certificate.
func (g *AIG) AddOutput(lit aigLit, label string) {
	g.outputs = append(g.outputs, lit)
	g.outputLabels = append(g.outputLabels, label)
}

// WriteAIG emits g in the standard ASCII AIGER format (spec.md §6): header
// "aag M I L O A", one literal per input, one literal per output, then
// "lhs rhs0 rhs1" per AND gate — sorted by lhs, since a wire's AND-gate
// definition (Define) is always appended well after its variable index was
// reserved (Wire) — followed by the input/output symbol table.
func WriteAIG(w io.Writer, g *AIG) error {
	maxVar := g.nextVar - 1

	sorted := make([]andEntry, len(g.andList))
	copy(sorted, g.andList)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].lhsVar < sorted[j].lhsVar })

	if _, err := fmt.Fprintf(w, "aag %d %d %d %d %d\n",
		maxVar, len(g.inputOrder), 0, len(g.outputs), len(sorted)); err != nil {
		return errors.Wrap(err, "certify: write header")
	}
	for _, id := range g.inputOrder {
		if _, err := fmt.Fprintf(w, "%d\n", g.inputLit[id]); err != nil {
			return errors.Wrap(err, "certify: write input")
		}
	}
	for _, lit := range g.outputs {
		if _, err := fmt.Fprintf(w, "%d\n", lit); err != nil {
			return errors.Wrap(err, "certify: write output")
		}
	}
	for _, e := range sorted {
		lhs := e.lhsVar << 1
		if _, err := fmt.Fprintf(w, "%d %d %d\n", lhs, e.a, e.b); err != nil {
			return errors.Wrap(err, "certify: write and gate")
		}
	}
	for i, id := range g.inputOrder {
		if _, err := fmt.Fprintf(w, "i%d %d\n", i, id); err != nil {
			return errors.Wrap(err, "certify: write input label")
		}
	}
	for i, label := range g.outputLabels {
		if _, err := fmt.Fprintf(w, "o%d %s\n", i, label); err != nil {
			return errors.Wrap(err, "certify: write output label")
		}
	}
	return nil
}

// Eval evaluates every output of g under assignment (keyed by circuit var
// id; a var absent from assignment is treated as false), returning one
// boolean per output in declaration order. Used by tests to check
// certificate soundness without an external certcheck tool (SPEC_FULL.md
// §9).
func Eval(g *AIG, assignment map[int32]bool) []bool {
	andByVar := make(map[uint32]andEntry, len(g.andList))
	for _, e := range g.andList {
		andByVar[e.lhsVar] = e
	}

	memo := make(map[aigLit]bool, len(g.andList)+2)
	memo[constFalse] = false
	memo[constTrue] = true

	var resolveVar func(v uint32) bool
	litValue := func(lit aigLit) bool {
		v := uint32(lit) >> 1
		val := resolveVar(v)
		if lit&1 == 1 {
			return !val
		}
		return val
	}
	resolveVar = func(v uint32) bool {
		lit := aigLit(v << 1)
		if val, ok := memo[lit]; ok {
			return val
		}
		if id, ok := g.inputVar[v]; ok {
			val := assignment[id]
			memo[lit] = val
			return val
		}
		e := andByVar[v]
		val := litValue(e.a) && litValue(e.b)
		memo[lit] = val
		return val
	}

	out := make([]bool, len(g.outputs))
	for i, lit := range g.outputs {
		out[i] = litValue(lit)
	}
	return out
}
