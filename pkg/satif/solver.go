// Package satif defines the narrow incremental-SAT back-end contract that
// the clausal abstraction and recursive solver are allowed to call during
// solving (spec.md §6: new_var, add, assume, sat, value, failed), and a
// github.com/go-air/gini-backed implementation of it. No other capability of
// an underlying SAT engine is ever assumed by the rest of this module.
package satif

import (
	"github.com/go-air/gini"
	"github.com/go-air/gini/z"
	"github.com/sirupsen/logrus"
)

// Result is the three-valued outcome of a Solve call. Unknown is reserved
// for a back-end that supports cancellation; this module's default gini
// back-end never returns it.
type Result int8

const (
	Unsat   Result = -1
	Unknown Result = 0
	Sat     Result = 1
)

func (r Result) String() string {
	switch r {
	case Sat:
		return "sat"
	case Unsat:
		return "unsat"
	default:
		return "unknown"
	}
}

// Solver is the only interface the scope abstraction and recursive solver
// call during solving. Literals are signed int32s in the same convention as
// circuit.Literal: the sign is polarity, the magnitude a SAT variable id,
// and 0 both terminates a clause passed to Add and is never a valid
// variable.
type Solver interface {
	// NewVar allocates a fresh SAT variable and returns its (positive) id.
	NewVar() int32
	// Add appends lit to the clause under construction, or (when lit is 0)
	// terminates it.
	Add(lit int32)
	// Assume causes the next Solve call to assume lit is true.
	Assume(lit int32)
	// Solve runs the back-end on the accumulated clauses and current
	// assumptions, consuming them.
	Solve() Result
	// Value reports the truth value of lit under the model produced by the
	// most recent Sat result: +1 true, -1 false, 0 if no model is current.
	Value(lit int32) int8
	// Failed reports whether lit (previously passed to Assume) is part of
	// the minimal unsat core of the most recent Unsat result.
	Failed(lit int32) bool
}

// Gini adapts github.com/go-air/gini's incremental solver to Solver. It is
// the back-end this module ships with; spec.md §6 treats the back-end as an
// external service, so any type satisfying Solver may be substituted.
type Gini struct {
	g        *gini.Gini
	hasModel bool
	failed   map[int32]bool
	log      *logrus.Entry
}

// NewGini returns a Gini-backed Solver. A nil log uses a discarding entry.
func NewGini(log *logrus.Entry) *Gini {
	if log == nil {
		discard := logrus.New()
		discard.SetOutput(discardWriter{})
		log = logrus.NewEntry(discard)
	}
	return &Gini{g: gini.New(), log: log}
}

func toLit(lit int32) z.Lit {
	return z.Dimacs2Lit(int(lit))
}

// NewVar implements Solver.
func (s *Gini) NewVar() int32 {
	return int32(s.g.Lit().Dimacs())
}

// Add implements Solver.
func (s *Gini) Add(lit int32) {
	s.g.Add(toLit(lit))
}

// Assume implements Solver.
func (s *Gini) Assume(lit int32) {
	s.g.Assume(toLit(lit))
}

// Solve implements Solver.
func (s *Gini) Solve() Result {
	switch r := s.g.Solve(); r {
	case 1:
		s.hasModel = true
		s.failed = nil
		return Sat
	case -1:
		s.hasModel = false
		why := s.g.Why(nil)
		s.failed = make(map[int32]bool, len(why))
		for _, w := range why {
			s.failed[int32(w.Dimacs())] = true
		}
		s.log.WithField("core_size", len(why)).Trace("satif: unsat")
		return Unsat
	default:
		s.hasModel = false
		return Unknown
	}
}

// Value implements Solver.
func (s *Gini) Value(lit int32) int8 {
	if !s.hasModel {
		return 0
	}
	if s.g.Value(toLit(lit)) {
		return 1
	}
	return -1
}

// Failed implements Solver.
func (s *Gini) Failed(lit int32) bool {
	return s.failed[lit]
}

type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }
