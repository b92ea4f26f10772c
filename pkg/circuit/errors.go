package circuit

import "fmt"

// UndefinedNode is returned when reencode encounters a referenced variable id
// that has no definition.
type UndefinedNode int32

func (e UndefinedNode) Error() string {
	return fmt.Sprintf("circuit: variable %d referenced but never defined", int32(e))
}

// CycleInCircuit is returned when the reencode DFS re-enters a node still on
// its own path.
type CycleInCircuit int32

func (e CycleInCircuit) Error() string {
	return fmt.Sprintf("circuit: cycle detected through node %d", int32(e))
}

// SharedQuantifiedSubformula is returned when a ScopeNode is reachable by
// more than one edge; embedded quantifier scopes must be uniquely owned.
type SharedQuantifiedSubformula int32

func (e SharedQuantifiedSubformula) Error() string {
	return fmt.Sprintf("circuit: scope node %d is reachable via more than one edge", int32(e))
}

// apiMisuse reports a violation of the build API's preconditions (set_output
// called twice, a non-positive variable id, a redefinition of an existing
// gate id). Per spec.md's error taxonomy this always panics: the module has
// no separate "competition build" that would instead leave it undefined.
func apiMisuse(format string, args ...any) {
	panic(fmt.Sprintf("circuit: api misuse: "+format, args...))
}
