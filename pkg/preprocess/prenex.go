package preprocess

import "github.com/ltentrup-style/qbfcircuit/pkg/circuit"

// ToPrenex collapses the circuit's scope tree into a single linear
// quantifier prefix. Since alternation is already strict (every parent-child
// edge flips quantifier type), every scope at a given tree depth shares the
// same quantifier; this merges all scopes at each depth into one, moving
// their variables together and reparenting their children onto the merged
// scope. The merged-away scopes are left with no variables, so the next
// Reencode's empty-scope collapse removes their anchoring ScopeNodes (if
// any) automatically, replacing the quantifier with its subformula directly.
//
// Grounded on circuit_to_prenex, reusing Reencode's empty-scope collapse
// (the Go analogue of free_scope_node) instead of duplicating it.
func ToPrenex(c *circuit.Circuit) bool {
	byDepth := make(map[int32][]int32)
	maxDepth := int32(0)
	for _, s := range c.Scopes() {
		byDepth[s.Depth()] = append(byDepth[s.Depth()], s.ID())
		if s.Depth() > maxDepth {
			maxDepth = s.Depth()
		}
	}

	changed := false
	for depth := int32(1); depth <= maxDepth; depth++ {
		ids := byDepth[depth]
		if len(ids) <= 1 {
			continue
		}
		target := ids[0]
		for _, id := range ids[1:] {
			for _, v := range append([]int32(nil), c.Scope(id).Vars()...) {
				c.MoveVariable(v, target)
			}
			c.ReparentChildren(id, target)
			changed = true
		}
	}
	return changed
}

// IsPrenex reports whether the circuit's scope tree is already a single
// linear chain (no scope has more than one child).
func IsPrenex(c *circuit.Circuit) bool {
	for _, s := range c.Scopes() {
		if len(s.Children()) > 1 {
			return false
		}
	}
	return true
}
