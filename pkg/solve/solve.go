// Package solve implements the recursive per-scope clausal-abstraction
// solver of spec.md §4.6: walking the circuit's scope tree one scope at a
// time (looping over every child when a scope has more than one, optionally
// in parallel via WithParallel), each scope's own satif.Solver instance
// searches for a local witness, refining against a child's failure and
// reporting a Skolem/Herbrand case to the certificate on every success.
package solve

import (
	"sync"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/ltentrup-style/qbfcircuit/pkg/abstraction"
	"github.com/ltentrup-style/qbfcircuit/pkg/certify"
	"github.com/ltentrup-style/qbfcircuit/pkg/circuit"
	"github.com/ltentrup-style/qbfcircuit/pkg/influence"
	"github.com/ltentrup-style/qbfcircuit/pkg/satif"
	"github.com/ltentrup-style/qbfcircuit/pkg/stats"
)

// Result is the three-valued outcome of Solve, per spec.md §6. Solve returns
// Unknown only together with a non-nil error; it exists so callers can share
// a type with satif.Result-shaped back ends.
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

func flip(r Result) Result {
	switch r {
	case Sat:
		return Unsat
	case Unsat:
		return Sat
	default:
		return Unknown
	}
}

// SatBackendError wraps an unexpected SAT back-end response (spec.md §7's
// SatBackendError row): the only error Solve itself can return, since every
// other failure mode is an ApiMisuse panic raised by pkg/circuit.
type SatBackendError struct {
	Scope int32
}

func (e *SatBackendError) Error() string {
	return errors.Errorf("solve: scope %d: sat back end returned an unexpected result", e.Scope).Error()
}

// Solver drives the recursive solve of a preprocessed circuit.
type Solver struct {
	c      *circuit.Circuit
	vs     values
	vsMu   sync.Mutex // serializes every touch of vs once WithParallel spawns sibling goroutines
	certMu sync.Mutex // serializes every touch of cert/certAIG for the same reason

	log          *logrus.Entry
	stats        *stats.Stats
	cert         *certify.Builder
	maxRefine    int
	minimize     bool
	parallel     int
	newSatSolver func() satif.Solver

	certAIG *certify.AIG
}

// Option configures a Solver.
type Option func(*Solver)

// WithLogger sets the Solver's logrus entry. A nil entry (the default) is
// replaced by one that discards all output. Solve itself writes no log
// entries.
func WithLogger(log *logrus.Entry) Option {
	return func(s *Solver) { s.log = log }
}

// WithStats attaches a stats.Stats to record per-scope solve counters.
func WithStats(st *stats.Stats) Option {
	return func(s *Solver) { s.stats = st }
}

// WithCertificate attaches a certify.Builder to accumulate the Skolem/
// Herbrand strategy as the recursion unwinds. Solve finalizes it once the
// top scope returns; retrieve the result via Solver.Certificate.
func WithCertificate(cert *certify.Builder) Option {
	return func(s *Solver) { s.cert = cert }
}

// WithMaxRefinements bounds how many refinement clauses a single scope may
// add before Solve gives up and returns a SatBackendError — a backstop
// against a refinement loop that (per a bug in this module, never per
// spec.md's termination argument) fails to converge. 0 means unbounded.
func WithMaxRefinements(n int) Option {
	return func(s *Solver) { s.maxRefine = n }
}

// WithAssumptionMinimization sets the flag for spec.md §4.6's optional
// assignment-based b-literal minimization (default on). The flag is stored
// but has no effect on solving: this implementation threads decided values
// through its own per-solve values table rather than an explicit per-scope
// entry bitset, and no pass prunes assumptions in either setting.
func WithAssumptionMinimization(enabled bool) Option {
	return func(s *Solver) { s.minimize = enabled }
}

// WithSATFactory overrides the SAT back end a fresh abstraction is built
// against. The default is satif.NewGini(nil).
func WithSATFactory(f func() satif.Solver) Option {
	return func(s *Solver) { s.newSatSolver = f }
}

// WithParallel enables spec.md §5's optional parallel mode: whenever a scope
// has more than one "enabled" child (a miniscoped sibling split), each child
// is solved from its own goroutine, bounded by a semaphore of capacity n (n
// <= 1 behaves exactly like the sequential default). A single mutex
// serializes every touch of the shared decided-value table
// (clearAtOrBelow/assume/decide/evaluate); the per-child SAT search itself —
// the expensive part — runs unlocked and so genuinely overlaps across
// siblings. This is spec.md §5's semaphore protocol (its "has_entry"/
// "sub_finished" pair) expressed with goroutines, channels, and sync.Mutex
// instead of OS threads and semaphores, per SPEC_FULL.md §6.
func WithParallel(n int) Option {
	return func(s *Solver) { s.parallel = n }
}

// New returns a Solver for c, which must already have been run through
// pkg/preprocess.Run. c's scope tree need not be a linear chain: solveScope
// walks whatever shape Run left it in, including a scope with more than one
// child (e.g. after preprocess.Miniscope).
func New(c *circuit.Circuit, opts ...Option) *Solver {
	s := &Solver{
		c:         c,
		minimize:  true,
		maxRefine: 0,
		newSatSolver: func() satif.Solver {
			return satif.NewGini(nil)
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.log == nil {
		discard := logrus.New()
		discard.Out = discardWriter{}
		s.log = logrus.NewEntry(discard)
	}
	return s
}

type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }

// Solve runs the recursive solver from the circuit's top scope, returns the
// final SAT/UNSAT result, and — if a certificate was attached via
// WithCertificate — finalizes it for retrieval via Certificate.
func (s *Solver) Solve() (Result, error) {
	influence.ComputeScopes(s.c)
	s.vs = newValues(s.c)
	result, _, err := s.solveScope(s.c.TopScope())
	if err != nil {
		return Unknown, err
	}
	if s.cert != nil {
		s.certAIG = s.cert.Finalize(s.winningVarIDs(result), result == Sat)
	}
	return result, nil
}

// Certificate returns the finalized AIG after a successful Solve call with
// WithCertificate attached, or nil otherwise.
func (s *Solver) Certificate() *certify.AIG { return s.certAIG }

// Witness returns the decided partial assignment of the circuit's outermost
// scope after a successful Solve call, as signed original-id literals
// (positive means true, negative false) in the scope's own variable order.
// Unlike Certificate, this needs no WithCertificate option: it reads
// directly off the solver's own decided-value table rather than the
// certifier's accumulated cases.
func (s *Solver) Witness() []int32 {
	vars := s.c.Scope(s.c.TopScope()).Vars()
	out := make([]int32, 0, len(vars))
	for _, v := range vars {
		sign := s.vs.sign(s.c, v)
		if sign == 0 {
			continue
		}
		id := s.c.Node(v).OrigID()
		if sign < 0 {
			id = -id
		}
		out = append(out, id)
	}
	return out
}

func (s *Solver) winningVarIDs(result Result) []int32 {
	want := circuit.Exists
	if result == Unsat {
		want = circuit.Forall
	}
	var ids []int32
	for _, sc := range s.c.Scopes() {
		if sc.Quantifier() != want {
			continue
		}
		for _, v := range sc.Vars() {
			ids = append(ids, s.c.Node(v).OrigID())
		}
	}
	return ids
}

// coreEntry is the translate-back-friendly form of a failed t-literal
// assumption: the node id and the polarity that was essential to failure.
type coreEntry struct {
	id    int32
	value bool
}

// solveScope implements spec.md §4.6's per-abstraction loop. On a local
// UNSAT it returns the bad outcome together with the failed t-literal core;
// solveChildren discards that core and refines with ownVarsCore instead.
func (s *Solver) solveScope(scope int32) (Result, []coreEntry, error) {
	sc := s.c.Scope(scope)
	good := Sat
	if sc.Quantifier() == circuit.Forall {
		good = Unsat
	}
	bad := flip(good)

	sat := s.newSatSolver()
	abs := abstraction.Build(s.c, scope, sat, false)

	children := sc.Children()

	refinements := 0
	for {
		s.vsMu.Lock()
		s.vs.clearAtOrBelow(scope)
		abs.AssumeFromValues(func(id int32) int32 { return s.vs.sign(s.c, id) })
		s.vsMu.Unlock()

		if s.stats != nil {
			s.stats.RecordSolveCall(scope, sc.Depth())
		}
		r := sat.Solve()
		if r == satif.Unsat {
			s.vsMu.Lock()
			core := s.failedCore(abs, sat)
			s.vsMu.Unlock()
			return bad, core, nil
		}
		if r != satif.Sat {
			return Unknown, nil, &SatBackendError{Scope: scope}
		}

		s.vsMu.Lock()
		for _, v := range sc.Vars() {
			val := sat.Value(abstraction.BVar(v))
			sign := int32(1)
			if val < 0 {
				sign = -1
			}
			s.vs[v] = sign * scope
		}
		s.vs.evaluateCapped(s.c, scope)
		s.vsMu.Unlock()

		if len(children) == 0 {
			s.recordWinningCase(scope)
			return good, nil, nil
		}

		// for each child C of S that is enabled, solve(C) must agree with
		// S's own goal (spec.md §4.6); WithParallel fans this loop out across
		// goroutines instead of running it in order.
		matched, err := s.solveChildren(children, good)
		if err != nil {
			return Unknown, nil, err
		}
		if matched {
			s.recordWinningCase(scope)
			return good, nil, nil
		}

		// At least one child disagreed with scope's own goal, so the
		// candidate scope's SAT call just produced is rejected and must
		// never be offered again. Each scope abstraction here is rebuilt
		// fresh per call rather than persisting across the parent's
		// refinement loop (see DESIGN.md), so there is no child entry to
		// translate back as spec.md §4.6 describes; instead the blocking
		// clause is built directly from scope's own just-decided variables,
		// which is equally sufficient for progress (the exact combination
		// just tried can never recur) and keeps every other candidate
		// available.
		s.addRefinementClause(abs, sat, s.ownVarsCore(scope))
		refinements++
		if s.stats != nil {
			s.stats.RecordRefinement(scope)
		}
		if s.maxRefine > 0 && refinements > s.maxRefine {
			return Unknown, nil, &SatBackendError{Scope: scope}
		}
	}
}

// solveChildren solves every one of scope's children — concurrently, bounded
// by a semaphore of capacity max(1, s.parallel), when WithParallel is set —
// and reports whether every one of them agreed with good.
func (s *Solver) solveChildren(children []int32, good Result) (bool, error) {
	n := s.parallel
	if n < 1 {
		n = 1
	}
	sem := make(chan struct{}, n)
	var wg sync.WaitGroup
	results := make([]Result, len(children))
	errs := make([]error, len(children))
	for i, child := range children {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, child int32) {
			defer wg.Done()
			defer func() { <-sem }()
			r, _, err := s.solveScope(child)
			results[i] = r
			errs[i] = err
		}(i, child)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return false, err
		}
	}
	for _, r := range results {
		if r != good {
			return false, nil
		}
	}
	return true, nil
}

// failedCore reads off, for every t-literal this abstraction assumed, the
// ones the SAT back end reports as part of the minimal unsat core —
// spec.md §4.6's "set A.entry = { failed t-literal assumptions }".
func (s *Solver) failedCore(abs *abstraction.Abstraction, sat satif.Solver) []coreEntry {
	var core []coreEntry
	abs.TLits.Each(func(bit int) {
		id := int32(bit)
		t := abstraction.TVar(id, abs.MaxNum())
		assumedTrue := s.vs.sign(s.c, id) > 0
		failedLit := t
		if !assumedTrue {
			failedLit = -t
		}
		if sat.Failed(failedLit) {
			core = append(core, coreEntry{id: id, value: assumedTrue})
		}
	})
	return core
}

// ownVarsCore builds a core of scope's own just-decided variables, used to
// block the current candidate when a recursive call into scope's child
// disagrees with scope's own goal (see solveScope). None of scope's own
// variables are t-literals of its own abstraction, so addRefinementClause
// always translates these to b-literals.
func (s *Solver) ownVarsCore(scope int32) []coreEntry {
	sc := s.c.Scope(scope)
	s.vsMu.Lock()
	defer s.vsMu.Unlock()
	core := make([]coreEntry, 0, len(sc.Vars()))
	for _, v := range sc.Vars() {
		core = append(core, coreEntry{id: v, value: s.vs.sign(s.c, v) > 0})
	}
	return core
}

// addRefinementClause blocks the exact combination of core from recurring
// in abs's future SAT calls, per spec.md §4.6's refinement semantics: a
// core member that is also a t-literal of abs keeps its t-literal form;
// otherwise it is translated to its (direct) b-literal.
func (s *Solver) addRefinementClause(abs *abstraction.Abstraction, sat satif.Solver, core []coreEntry) {
	for _, ce := range core {
		var lit int32
		if abs.TLits.Test(int(ce.id)) {
			lit = abstraction.TVar(ce.id, abs.MaxNum())
		} else {
			lit = abstraction.BVar(ce.id)
		}
		if ce.value {
			lit = -lit
		}
		sat.Add(lit)
	}
	sat.Add(0)
}

// recordWinningCase records one case of scope's strategy with the attached
// certificate (spec.md §4.7): scope's own just-decided variables, under a
// precondition built from every currently-decided strictly-outer variable.
func (s *Solver) recordWinningCase(scope int32) {
	if s.cert == nil {
		return
	}
	sc := s.c.Scope(scope)
	s.vsMu.Lock()
	var outer, own []certify.VarAssignment
	for id := int32(1); id <= s.c.MaxNum(); id++ {
		n := s.c.Node(id)
		if n.Kind() != circuit.KindVar {
			continue
		}
		sign := s.vs.sign(s.c, id)
		if sign == 0 {
			continue
		}
		va := certify.VarAssignment{OrigID: n.OrigID(), Value: sign > 0}
		switch {
		case n.VarScope() == scope:
			own = append(own, va)
		case s.c.Scope(n.VarScope()).Depth() < sc.Depth():
			// recordWinningCase runs whenever a scope reaches its own goal
			// (see the solveScope call sites); an outer variable belongs to
			// sc's player exactly when its owning scope shares sc's
			// quantifier.
			// Such a variable is itself accumulating a function_lit
			// elsewhere in this certificate and must route through its
			// forward-declared wire, not a fresh free input — see
			// certify.Builder.Precondition.
			va.Winning = s.c.Scope(n.VarScope()).Quantifier() == sc.Quantifier()
			outer = append(outer, va)
		}
	}
	s.vsMu.Unlock()

	s.certMu.Lock()
	precondition := s.cert.Precondition(outer)
	s.cert.RecordCase(precondition, own)
	s.certMu.Unlock()
	if s.stats != nil {
		s.stats.RecordCertifierCase()
	}
}
