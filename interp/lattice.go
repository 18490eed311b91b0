// Package interp implements the abstract interpreter of §4.7: a worklist
// fixed point over an SSA procedure's basic blocks, parameterized by a
// pluggable lattice.
package interp

import "github.com/das-labor/panopticon-sub002/il"

// Element is one value of a lattice. Implementations must be comparable via
// Equal so the worklist can detect a fixed point.
type Element interface {
	Equal(Element) bool
}

// Lattice supplies the three operations the worklist needs: the bottom
// element every environment entry starts at, a supremum (join) that must be
// monotone, and a transfer function evaluating one IL instruction given an
// environment lookup for its operands.
//
// Termination (§8: "∀ lattice L satisfying monotonicity: interpret(p, L)
// terminates") requires Supremum to be monotone and the lattice to have
// finite height; that obligation is the lattice implementation's, not the
// worklist's.
type Lattice interface {
	Bottom() Element
	Supremum(a, b Element) Element
	Transfer(instr il.Instruction, env func(il.Value) Element) Element
}
