package il

import (
	"fmt"
	"strings"

	"github.com/das-labor/panopticon-sub002/perr"
)

// Instruction is a single IL statement "assignee := op(args...)" — §3's
// "(operation, assignee: lvalue)" pair. Instructions are immutable once
// constructed.
type Instruction struct {
	Op       Operation
	Assignee Value
}

// New validates arity and operand sanity and returns an Instruction, or
// perr.IllFormedInstruction on violation. Every
// argument Value must already be a well-formed Value (callers build them
// via the il.Constant/Variable/Memory/Undefined constructors, which
// themselves cannot produce ill-formed values); New only re-validates
// assignee's lvalue-ness and the opcode's arity.
func New(sym Symbol, dom Domain, assignee Value, args ...Value) (Instruction, error) {
	if !assignee.IsLvalue() {
		return Instruction{}, perr.New(perr.IllFormedInstruction, "assignee must be an lvalue (Undefined, Variable or Memory)")
	}
	want := arity(sym, dom)
	switch {
	case want == -1:
		return Instruction{}, perr.New(perr.IllFormedInstruction, fmt.Sprintf("no such operation (%s, domain=%d)", sym, dom))
	case want == -2: // phi: variadic, >= 1
		if len(args) < 1 {
			return Instruction{}, perr.New(perr.IllFormedInstruction, "phi requires at least one argument")
		}
	default:
		if len(args) != want {
			return Instruction{}, perr.New(perr.IllFormedInstruction, fmt.Sprintf("%s expects %d argument(s), got %d", sym, want, len(args)))
		}
	}
	cp := make([]Value, len(args))
	copy(cp, args)
	return Instruction{Op: Operation{Symbol: sym, Domain: dom, Args: cp}, Assignee: assignee}, nil
}

// Must is New, panicking on error — used by architecture code generators
// that already know their opcode tables are well-formed.
func Must(sym Symbol, dom Domain, assignee Value, args ...Value) Instruction {
	i, err := New(sym, dom, assignee, args...)
	if err != nil {
		panic(err)
	}
	return i
}

// Phi constructs a phi pseudo-instruction, one operand per CFG predecessor
// in predecessor-iteration order, per §4.6's post-condition.
func Phi(assignee Value, dom Domain, args ...Value) (Instruction, error) {
	return New(SymPhi, dom, assignee, args...)
}

// Nop constructs a no-op instruction with an Undefined assignee.
func Nop() Instruction {
	return Must(SymNop, IntegerDomain, Undefined())
}

// Equal reports structural equality between two instructions.
func (i Instruction) Equal(o Instruction) bool {
	if i.Op.Symbol != o.Op.Symbol || i.Op.Domain != o.Op.Domain || !i.Assignee.Equal(o.Assignee) {
		return false
	}
	if len(i.Op.Args) != len(o.Op.Args) {
		return false
	}
	for k := range i.Op.Args {
		if !i.Op.Args[k].Equal(o.Op.Args[k]) {
			return false
		}
	}
	return true
}

// Operands returns the operation's argument vector.
func (i Instruction) Operands() []Value { return i.Op.Args }

// Pretty renders the instruction as "assignee := sym(args...)".
func (i Instruction) Pretty() string {
	args := make([]string, len(i.Op.Args))
	for k, a := range i.Op.Args {
		args[k] = a.String()
	}
	return fmt.Sprintf("%s := %s(%s)", i.Assignee, i.Op.Symbol, strings.Join(args, ", "))
}

func (i Instruction) String() string { return i.Pretty() }

// IsPhi reports whether i is a phi pseudo-instruction.
func (i Instruction) IsPhi() bool { return i.Op.Symbol == SymPhi }

// IsCall reports whether i is a call instruction.
func (i Instruction) IsCall() bool { return i.Op.Symbol == SymCall }

// CallTarget returns the constant call target and true, if i is a call
// instruction whose sole argument is a Constant — the condition §4.3's
// driver uses to discover new procedures.
func (i Instruction) CallTarget() (Value, bool) {
	if !i.IsCall() || len(i.Op.Args) != 1 {
		return Value{}, false
	}
	arg := i.Op.Args[0]
	if arg.Kind() != KindConstant {
		return Value{}, false
	}
	return arg, true
}
