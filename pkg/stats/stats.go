// Package stats collects per-scope solve counters and scoped timers during a
// solve run and dumps them via logrus, replacing original_source/statistics.c's
// fixed on-exit fprintf report with structured logging (SPEC_FULL.md §7).
package stats

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Stats accumulates counters across a single solve run. All methods are
// safe for concurrent use: a single Stats is shared across every goroutine
// of one Solver run when solve.WithParallel is enabled, as well as across
// multiple independent Solver runs sharing one Stats.
type Stats struct {
	mu sync.Mutex

	solveCalls     map[int32]int64 // scope id -> number of local SAT() calls
	refinements    map[int32]int64 // scope id -> refinement clauses added
	certifierCases int64
	depthHistogram map[int32]int64 // scope depth -> visits
	timers         map[string]*ScopedTimer
}

// New returns an empty Stats.
func New() *Stats {
	return &Stats{
		solveCalls:     make(map[int32]int64),
		refinements:    make(map[int32]int64),
		depthHistogram: make(map[int32]int64),
		timers:         make(map[string]*ScopedTimer),
	}
}

// RecordSolveCall records one local SAT() call at scope, visited at depth.
func (s *Stats) RecordSolveCall(scope, depth int32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.solveCalls[scope]++
	s.depthHistogram[depth]++
}

// RecordRefinement records one refinement clause added at scope.
func (s *Stats) RecordRefinement(scope int32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refinements[scope]++
}

// RecordCertifierCase records one certify.Builder.RecordCase invocation.
func (s *Stats) RecordCertifierCase() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.certifierCases++
}

// Timer starts (or resumes) the named scoped timer, returning a stop
// function; matching statistics.c's statistics_start_timer/add_timer pair.
func (s *Stats) Timer(name string) func() {
	s.mu.Lock()
	t, ok := s.timers[name]
	if !ok {
		t = &ScopedTimer{}
		s.timers[name] = t
	}
	s.mu.Unlock()
	return t.start()
}

// Dump logs every counter and timer at Info level via log.
func (s *Stats) Dump(log *logrus.Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for scope, n := range s.solveCalls {
		log.WithFields(logrus.Fields{"scope": scope, "calls": n}).Info("stats: solve calls")
	}
	for scope, n := range s.refinements {
		log.WithFields(logrus.Fields{"scope": scope, "refinements": n}).Info("stats: refinements")
	}
	for depth, n := range s.depthHistogram {
		log.WithFields(logrus.Fields{"depth": depth, "visits": n}).Info("stats: depth histogram")
	}
	log.WithField("cases", s.certifierCases).Info("stats: certifier cases")
	for name, t := range s.timers {
		log.WithFields(logrus.Fields{"timer": name, "elapsed": t.Elapsed()}).Info("stats: timer")
	}
}

// ScopedTimer accumulates elapsed wall-clock time across possibly many
// start/stop cycles, mirroring statistics.c's accumulating per-phase timer.
type ScopedTimer struct {
	mu      sync.Mutex
	elapsed time.Duration
}

func (t *ScopedTimer) start() func() {
	begin := time.Now()
	return func() {
		t.mu.Lock()
		t.elapsed += time.Since(begin)
		t.mu.Unlock()
	}
}

// Elapsed returns the accumulated duration.
func (t *ScopedTimer) Elapsed() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.elapsed
}
