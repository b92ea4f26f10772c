// Package preprocess implements the simplification passes applied to a
// circuit before clausal abstraction: gate flattening, polarity-based and
// output-forced variable fixing, constant evaluation/propagation, prenexing,
// and miniscoping. Each pass is also exported individually for targeted
// testing.
package preprocess

import "github.com/ltentrup-style/qbfcircuit/pkg/circuit"

// Run repeatedly applies every simplification pass, reencoding between
// rounds, until a full round leaves the circuit unchanged. Unlike the
// abstraction package's requirements might suggest, Run never prenexes on
// its own: original_source/src/solver.c's solver_get_default_options
// defaults miniscoping off and never calls circuit_to_prenex either, handing
// build_circuit_abstraction/solve a genuinely non-prenex scope tree by
// default (solver.c's "input appears non-prenex" message is a warning, not a
// fatal check). pkg/solve's recursive solver walks whatever scope tree it is
// given, including one with more than one child per scope, so prenexing is
// never required for correctness here either — call ToPrenex or Miniscope
// directly, as a separate opt-in pass, when a particular scope-tree shape is
// wanted.
//
// Grounded on circuit_preprocess's do { ... changed ... } while(changed) loop.
func Run(c *circuit.Circuit) error {
	for {
		changed := false
		if Flatten(c) {
			changed = true
		}
		if ComputePolarities(c) {
			changed = true
		}
		if ForceOutputLiterals(c) {
			changed = true
		}
		if Evaluate(c) {
			changed = true
		}
		if Propagate(c) {
			changed = true
		}
		if err := c.Reencode(); err != nil {
			return err
		}
		if !changed {
			return nil
		}
	}
}
