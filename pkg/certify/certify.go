package certify

import "strconv"

// VarAssignment is a single decided circuit variable, identified by its
// original (pre-reencode) id so the certificate's labels survive the
// solver's internal renumbering. Winning marks a variable belonging to a
// scope of the same quantifier type as the case currently being recorded:
// such a variable is itself accumulating a function_lit elsewhere in this
// same certificate, so Precondition must route it through its
// forward-declared wire rather than a fresh free input.
type VarAssignment struct {
	OrigID  int32
	Value   bool
	Winning bool
}

// Builder accumulates the Skolem (∃) and Herbrand (∀) certificate networks
// across every dual-propagation of the recursive solver, per spec.md §4.7.
// function_lit and last_precondition are tracked per original variable id;
// the AIG itself is shared between both strategies, since they only differ
// in which variables are ultimately wired to outputs.
type Builder struct {
	aig *AIG

	functionLit      map[int32]aigLit
	lastPrecondition map[int32]aigLit
}

// NewBuilder returns an empty certificate builder.
func NewBuilder() *Builder {
	return &Builder{
		aig:              NewAIG(),
		functionLit:      make(map[int32]aigLit),
		lastPrecondition: make(map[int32]aigLit),
	}
}

// Precondition builds the AIG conjunction of outer's variable assignments,
// the simplified stand-in for spec.md §4.6's "t-literals in the entry, the
// current assignment of outer variables, and the negated dual-UNSAT core
// mapped into AIG literals": translating a dual-solver UNSAT core back into
// AIG literals requires the same b-lit/t-lit namespace translation as
// refinement, and the outer variable assignment already determines every
// t-literal's value by the time a case is recorded, so folding the core in
// separately would only ever narrow a precondition that the variable
// assignment has already pinned down.
//
// A winning-player outer variable (va.Winning) is referenced via its
// forward-declared wire (aig.Wire) instead of a fresh aig.Input: Finalize
// later redefines that same wire as AND(function_lit, true), so this
// precondition ends up wired to the ancestor's real Skolem/Herbrand
// function rather than a disconnected free input. A genuinely
// opposite-player outer variable is a true AIG input, unaffected.
//
// Grounded on original_source/src/certification.c's
// import_variables_recursive/certification_define_outputs split.
func (b *Builder) Precondition(outer []VarAssignment) aigLit {
	lit := constTrue
	for _, va := range outer {
		var in aigLit
		if va.Winning {
			in = b.aig.Wire(va.OrigID)
		} else {
			in = b.aig.Input(va.OrigID)
		}
		if !va.Value {
			in = b.aig.Not(in)
		}
		lit = b.aig.And(lit, in)
	}
	return lit
}

// RecordCase applies one case of a scope's strategy (spec.md §4.7): for
// every variable v in own with current polarity p, function_lit(v) grows to
// cover (precondition ∧ ¬last_precondition(v)) when p is true, and
// last_precondition(v) grows to cover precondition unconditionally,
// regardless of p.
func (b *Builder) RecordCase(precondition aigLit, own []VarAssignment) {
	for _, va := range own {
		last, ok := b.lastPrecondition[va.OrigID]
		if !ok {
			last = constFalse
		}
		newInfo := b.aig.And(precondition, b.aig.Not(last))
		if va.Value {
			cur, ok := b.functionLit[va.OrigID]
			if !ok {
				cur = constFalse
			}
			b.functionLit[va.OrigID] = b.aig.Or(cur, newInfo)
		}
		b.lastPrecondition[va.OrigID] = b.aig.Or(last, precondition)
	}
}

// Finalize redefines each winning variable's forward-declared wire — one is
// reserved here for any variable never referenced by a descendant's
// precondition, e.g. one whose scope is never reached because an ancestor
// already decided the result — as AND(function_lit, true), mirroring
// certification_define_outputs's retroactive "define output as AND gate
// such that outer variables can depend on it". Every reference made
// anywhere in the certificate, forward or otherwise, therefore resolves to
// the same value; the wire itself (not function_lit directly) becomes the
// labeled output. Outputs left by an earlier Finalize call are discarded, so
// the AIG's outputs are exactly these wires followed by the overall result.
// Returns the underlying AIG, ready for WriteAIG.
func (b *Builder) Finalize(winningOrigIDs []int32, result bool) *AIG {
	b.aig.outputs = nil
	b.aig.outputLabels = nil
	for _, id := range winningOrigIDs {
		lit, ok := b.functionLit[id]
		if !ok {
			lit = constFalse
		}
		wire := b.aig.Wire(id)
		b.aig.Define(wire, lit, constTrue)
		b.aig.AddOutput(wire, strconv.Itoa(int(id)))
	}
	b.aig.AddOutput(b.aig.Const(result), "result")
	return b.aig
}
