package certify_test

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ltentrup-style/qbfcircuit/pkg/certify"
	"github.com/ltentrup-style/qbfcircuit/pkg/circuit"
	"github.com/ltentrup-style/qbfcircuit/pkg/preprocess"
	"github.com/ltentrup-style/qbfcircuit/pkg/solve"
)

func TestAIGConstantFolding(t *testing.T) {
	g := certify.NewAIG()
	x := g.Input(1)

	assert.Equal(t, x, g.And(g.Const(true), x))
	assert.Equal(t, g.Const(false), g.And(g.Const(false), x))
	assert.Equal(t, g.Const(false), g.And(x, g.Not(x)))
	assert.Equal(t, g.Const(true), g.Or(x, g.Not(x)))
	assert.Equal(t, x, g.Or(g.Const(false), x))
}

func TestAIGHashConsing(t *testing.T) {
	g := certify.NewAIG()
	x := g.Input(1)
	y := g.Input(2)

	a := g.And(x, y)
	b := g.And(x, y)
	assert.Equal(t, a, b, "identical AND operands must be hash-consed to the same literal")

	c := g.And(y, x)
	assert.Equal(t, a, c, "operand order must not matter for hash-consing")
}

func TestAIGEvalBasic(t *testing.T) {
	g := certify.NewAIG()
	x := g.Input(1)
	y := g.Input(2)
	g.AddOutput(g.And(x, y), "and")
	g.AddOutput(g.Or(x, y), "or")
	g.AddOutput(g.Not(x), "notx")

	out := certify.Eval(g, map[int32]bool{1: true, 2: false})
	require.Len(t, out, 3)
	assert.False(t, out[0])
	assert.True(t, out[1])
	assert.False(t, out[2])
}

// A small, self-contained ∀x₁..xₖ ∃y₁..yₘ matrix generator, independent of
// pkg/circuit's own expression evaluator (pkg/circuit/ground_truth_test.go),
// used only to check the soundness property of spec.md §8: the emitted
// Skolem (SAT) or Herbrand (UNSAT) AIG, substituted into the original
// matrix, must agree with the quantifier's semantics under every assignment
// of the outer variables. Restricted to small variable counts (<=16) so the
// brute-force check over the universal variables stays cheap.
type clause struct {
	lits []int // signed 1-based indices; negative means negated
}

func (cl clause) eval(assignment []bool) bool {
	for _, l := range cl.lits {
		v := l
		neg := false
		if v < 0 {
			v = -v
			neg = true
		}
		val := assignment[v]
		if neg {
			val = !val
		}
		if val {
			return true
		}
	}
	return false
}

func evalCNF(clauses []clause, assignment []bool) bool {
	for _, cl := range clauses {
		if !cl.eval(assignment) {
			return false
		}
	}
	return true
}

func randomClauses(r *rand.Rand, nVars, nClauses, width int) []clause {
	clauses := make([]clause, nClauses)
	for i := range clauses {
		w := 1 + r.Intn(width)
		lits := make([]int, w)
		for j := range lits {
			v := 1 + r.Intn(nVars)
			if r.Intn(2) == 0 {
				v = -v
			}
			lits[j] = v
		}
		clauses[i] = clause{lits: lits}
	}
	return clauses
}

func buildForallExistsCircuit(nForall, nExists int, clauses []clause) (*circuit.Circuit, []int32, []int32) {
	// Every call site picks nForall >= 1, so forallScope is always the
	// added Forall child of the default (Exists) top scope.
	c := circuit.New()
	forallScope := c.AddScope(c.TopScope(), circuit.Forall)
	uIDs := make([]int32, nForall)
	for i := range uIDs {
		uIDs[i] = c.AddVariable(forallScope)
	}
	existsScope := c.AddScope(forallScope, circuit.Exists)
	eIDs := make([]int32, nExists)
	for i := range eIDs {
		eIDs[i] = c.AddVariable(existsScope)
	}

	id := func(v int) int32 {
		if v <= nForall {
			return uIDs[v-1]
		}
		return eIDs[v-nForall-1]
	}

	clauseGates := make([]circuit.Literal, len(clauses))
	for i, cl := range clauses {
		g := c.AddGate(circuit.GateOr)
		for _, l := range cl.lits {
			v := l
			neg := false
			if v < 0 {
				v = -v
				neg = true
			}
			c.AddGateInput(g, circuit.LitOfVar(id(v), neg))
		}
		clauseGates[i] = circuit.LitOfVar(g, false)
	}
	top := c.AddGate(circuit.GateAnd)
	for _, lit := range clauseGates {
		c.AddGateInput(top, lit)
	}
	c.SetOutput(circuit.LitOfVar(top, false))
	return c, uIDs, eIDs
}

func TestCertificateSoundnessRandomForallExistsInstances(t *testing.T) {
	const trials = 25
	r := rand.New(rand.NewSource(7))

	for trial := 0; trial < trials; trial++ {
		nForall := 1 + r.Intn(3)
		nExists := 1 + r.Intn(3)
		total := nForall + nExists
		clauses := randomClauses(r, total, 2+r.Intn(4), 3)

		c, uIDs, eIDs := buildForallExistsCircuit(nForall, nExists, clauses)
		require.NoError(t, preprocess.Run(c))

		cert := certify.NewBuilder()
		s := solve.New(c, solve.WithCertificate(cert))
		result, err := s.Solve()
		require.NoError(t, err)

		assignment := make([]bool, total+1)
		switch result {
		case solve.Sat:
			aig := cert.Finalize(eIDs, true)
			forEachAssignment(nForall, func(uVals []bool) {
				for i, id := range uIDs {
					_ = id
					assignment[i+1] = uVals[i]
				}
				in := make(map[int32]bool, nForall)
				for i, id := range uIDs {
					in[id] = uVals[i]
				}
				out := certify.Eval(aig, in)
				for i, id := range eIDs {
					_ = id
					assignment[nForall+i+1] = out[i]
				}
				assert.True(t, evalCNF(clauses, assignment),
					"trial %d: Skolem-substituted matrix must be true for all universal assignments", trial)
			})
		case solve.Unsat:
			aig := cert.Finalize(uIDs, false)
			out := certify.Eval(aig, map[int32]bool{})
			for i := range uIDs {
				assignment[i+1] = out[i]
			}
			forEachAssignment(nExists, func(eVals []bool) {
				for i := range eIDs {
					assignment[nForall+i+1] = eVals[i]
				}
				assert.False(t, evalCNF(clauses, assignment),
					"trial %d: Herbrand-substituted matrix must be false for all existential assignments", trial)
			})
		}
	}
}

func forEachAssignment(n int, f func([]bool)) {
	vals := make([]bool, n)
	var rec func(i int)
	rec = func(i int) {
		if i == n {
			f(vals)
			return
		}
		vals[i] = false
		rec(i + 1)
		vals[i] = true
		rec(i + 1)
	}
	rec(0)
}
