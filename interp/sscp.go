package interp

import "github.com/das-labor/panopticon-sub002/il"

// kind discriminates SSCP's three-element lattice.
type kind int

const (
	sccpBottom kind = iota
	sccpConst
	sccpNonConst
)

// SCElement is one element of the Simple Sparse Constant Propagation
// lattice: Bottom, Const(v) for a definite Value (which may itself be
// il.Undefined()), or NonConst.
type SCElement struct {
	kind kind
	val  il.Value
}

// Bottom is the SSCP lattice's least element.
func Bottom() SCElement { return SCElement{kind: sccpBottom} }

// Const wraps a definite Value — either a Constant or Undefined — as a
// lattice element.
func Const(v il.Value) SCElement { return SCElement{kind: sccpConst, val: v} }

// NonConst is the SSCP lattice's greatest element.
func NonConst() SCElement { return SCElement{kind: sccpNonConst} }

// IsBottom, IsConst and IsNonConst classify an element.
func (e SCElement) IsBottom() bool   { return e.kind == sccpBottom }
func (e SCElement) IsConst() bool    { return e.kind == sccpConst }
func (e SCElement) IsNonConst() bool { return e.kind == sccpNonConst }

// Value returns the wrapped Value and true, when IsConst().
func (e SCElement) Value() (il.Value, bool) {
	if e.kind != sccpConst {
		return il.Value{}, false
	}
	return e.val, true
}

func (e SCElement) Equal(o Element) bool {
	oe, ok := o.(SCElement)
	if !ok || e.kind != oe.kind {
		return false
	}
	if e.kind == sccpConst {
		return e.val.Equal(oe.val)
	}
	return true
}

func (e SCElement) String() string {
	switch e.kind {
	case sccpBottom:
		return "⊥"
	case sccpNonConst:
		return "NonConst"
	default:
		return e.val.String()
	}
}

// SSCP is the §4.7 Simple Sparse Constant Propagation lattice: finite
// height (Bottom < Const(v) < NonConst for any v), so the worklist always
// terminates.
type SSCP struct{}

func (SSCP) Bottom() Element { return Bottom() }

// Supremum implements: Bottom⊔x=x, NonConst⊔x=NonConst,
// Const(v)⊔Const(v)=Const(v), Const(v)⊔Const(w)=NonConst for v≠w.
func (SSCP) Supremum(a, b Element) Element {
	ae := a.(SCElement)
	be := b.(SCElement)
	if ae.kind == sccpBottom {
		return be
	}
	if be.kind == sccpBottom {
		return ae
	}
	if ae.kind == sccpNonConst || be.kind == sccpNonConst {
		return NonConst()
	}
	if ae.val.Equal(be.val) {
		return ae
	}
	return NonConst()
}

// resolve maps an operand Value to an SSCP element: a literal
// Constant/Undefined resolves to Const(itself), a Memory rvalue is always
// NonConst (§4.7: "memory lvalues always map to NonConst" — the same holds
// reading one as an rvalue, since its content is never tracked), and a
// Variable is looked up in env.
func resolve(v il.Value, env func(il.Value) Element) SCElement {
	switch v.Kind() {
	case il.KindConstant, il.KindUndefined:
		return Const(v)
	case il.KindMemory:
		return NonConst()
	default:
		return env(v).(SCElement)
	}
}

// Transfer implements §4.7 step 3: a phi takes the supremum of its operand
// elements; a call or any instruction assigning to a Memory lvalue is
// always NonConst; lift/nop pass their single operand through unchanged;
// everything else is Bottom while any operand is still Bottom, delegates to
// the concrete domain when every operand is a numeric Const, and is
// NonConst otherwise.
func (s SSCP) Transfer(instr il.Instruction, env func(il.Value) Element) Element {
	if instr.IsPhi() {
		acc := s.Bottom()
		for _, arg := range instr.Operands() {
			acc = s.Supremum(acc, resolve(arg, env))
		}
		return acc
	}
	if instr.Assignee.Kind() == il.KindMemory {
		return NonConst()
	}
	switch instr.Op.Symbol {
	case il.SymCall:
		return NonConst()
	case il.SymLift, il.SymNop:
		if len(instr.Operands()) == 0 {
			return s.Bottom()
		}
		return resolve(instr.Operands()[0], env)
	}

	ops := instr.Operands()
	elems := make([]SCElement, len(ops))
	args := make([]uint64, len(ops))
	for i, a := range ops {
		e := resolve(a, env)
		elems[i] = e
		switch {
		case e.kind == sccpBottom:
			return s.Bottom()
		case e.kind == sccpNonConst:
			return NonConst()
		case e.val.Kind() != il.KindConstant:
			return NonConst() // Const(Undefined) has no numeric content to fold
		}
		args[i] = e.val.Content()
	}
	v, ok := Eval(instr.Op.Symbol, instr.Assignee.Width(), args)
	if !ok {
		return NonConst()
	}
	return Const(il.MustConstant(instr.Assignee.Width(), v))
}
