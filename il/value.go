// Package il models the Panopticon intermediate language: values (rvalues
// and lvalues) and the IL instructions built out of them.
package il

import (
	"fmt"

	"github.com/das-labor/panopticon-sub002/perr"
)

// Endianness is the byte order of a Memory reference.
type Endianness int

const (
	Little Endianness = iota
	Big
)

func (e Endianness) String() string {
	if e == Big {
		return "big"
	}
	return "little"
}

// Kind discriminates the Value sum type.
type Kind int

const (
	KindUndefined Kind = iota
	KindConstant
	KindVariable
	KindMemory
)

// Value is the tagged union described in §3 DATA MODEL: Undefined, Constant,
// Variable or Memory. Zero Value is Undefined.
//
// Values are immutable once constructed: every constructor here validates
// its arguments and returns perr.IllFormedValue on violation, never a
// partially-built Value.
type Value struct {
	kind Kind

	// Constant
	width   uint
	content uint64

	// Variable
	name      string
	subscript int

	// Memory
	offset    *Value
	bytes     uint
	endian    Endianness
	bank      string
}

// Undefined returns the Undefined value. It carries no semantic content.
func Undefined() Value { return Value{kind: KindUndefined} }

// Kind reports which case of the sum type v is.
func (v Value) Kind() Kind { return v.kind }

// IsLvalue reports whether v may appear as an IL instruction's assignee:
// Undefined, Variable or Memory, but not Constant.
func (v Value) IsLvalue() bool { return v.kind != KindConstant }

// Constant constructs a Constant(width, content) value. width must be > 0;
// content is masked to width bits (values that don't fit are truncated, not
// rejected, matching the original's "content masked to width" rule).
func Constant(width uint, content uint64) (Value, error) {
	if width == 0 {
		return Value{}, perr.New(perr.IllFormedValue, "constant width must be > 0")
	}
	return Value{kind: KindConstant, width: width, content: maskTo(content, width)}, nil
}

// MustConstant is Constant, panicking on error — for use with compile-time
// known widths in tests and architecture tables.
func MustConstant(width uint, content uint64) Value {
	v, err := Constant(width, content)
	if err != nil {
		panic(err)
	}
	return v
}

func maskTo(x uint64, width uint) uint64 {
	if width >= 64 {
		return x
	}
	return x & ((uint64(1) << width) - 1)
}

// Width returns the bit width of a Constant, Variable or Memory value (in
// the Memory case, bytes*8). It is 0 for Undefined.
func (v Value) Width() uint {
	switch v.kind {
	case KindConstant, KindVariable:
		return v.width
	case KindMemory:
		return v.bytes * 8
	default:
		return 0
	}
}

// Content returns the Constant's masked unsigned content. Only valid when
// Kind() == KindConstant.
func (v Value) Content() uint64 { return v.content }

// SubscriptPreSSA marks a Variable as not yet in SSA form.
const SubscriptPreSSA = -1

// Variable constructs a Variable(name, width, subscript) value. name must be
// non-empty, width must be in [1, 255]. subscript is SubscriptPreSSA or a
// non-negative SSA version.
func Variable(name string, width uint, subscript int) (Value, error) {
	if name == "" {
		return Value{}, perr.New(perr.IllFormedValue, "variable name must be non-empty")
	}
	if width < 1 || width > 255 {
		return Value{}, perr.New(perr.IllFormedValue, fmt.Sprintf("variable width %d out of range [1,255]", width))
	}
	if subscript < SubscriptPreSSA {
		return Value{}, perr.New(perr.IllFormedValue, fmt.Sprintf("variable subscript %d invalid", subscript))
	}
	return Value{kind: KindVariable, name: name, width: width, subscript: subscript}, nil
}

// MustVariable is Variable, panicking on error.
func MustVariable(name string, width uint, subscript int) Value {
	v, err := Variable(name, width, subscript)
	if err != nil {
		panic(err)
	}
	return v
}

// Name returns a Variable's base name (without SSA subscript). It is "" for
// Undefined, Constant and Memory; a Memory's bank name is returned by Bank.
func (v Value) Name() string { return v.name }

// Subscript returns a Variable's SSA subscript, or SubscriptPreSSA if v is
// not a Variable.
func (v Value) Subscript() int {
	if v.kind != KindVariable {
		return SubscriptPreSSA
	}
	return v.subscript
}

// WithSubscript returns a copy of a Variable value with a new SSA subscript.
// Panics if v is not a Variable — callers only ever invoke this from SSA
// renaming, which already checked v.Kind().
func (v Value) WithSubscript(subscript int) Value {
	if v.kind != KindVariable {
		panic("il: WithSubscript on a non-Variable Value")
	}
	v.subscript = subscript
	return v
}

// Memory constructs a Memory(offset, bytes, endian, bank) value. offset must
// not recursively reference itself (i.e. must not itself be a Memory value
// addressing the same bank — the ill-formedness check here is the shallow
// one the original performs: a Memory value cannot be built from an offset
// that is itself unresolved Memory into the same bank), bytes must be in
// [1,255] and bank must be non-empty.
func Memory(offset Value, bytes uint, endian Endianness, bank string) (Value, error) {
	if bank == "" {
		return Value{}, perr.New(perr.IllFormedValue, "memory bank must be non-empty")
	}
	if bytes < 1 || bytes > 255 {
		return Value{}, perr.New(perr.IllFormedValue, fmt.Sprintf("memory width %d bytes out of range [1,255]", bytes))
	}
	if offset.kind == KindMemory && offset.bank == bank {
		return Value{}, perr.New(perr.IllFormedValue, "memory offset must not recursively reference its own bank")
	}
	off := offset
	return Value{kind: KindMemory, offset: &off, bytes: bytes, endian: endian, bank: bank}, nil
}

// MustMemory is Memory, panicking on error.
func MustMemory(offset Value, bytes uint, endian Endianness, bank string) Value {
	v, err := Memory(offset, bytes, endian, bank)
	if err != nil {
		panic(err)
	}
	return v
}

// Offset returns a Memory value's offset operand. It is the zero Value
// (Undefined) if v is not Memory.
func (v Value) Offset() Value {
	if v.kind != KindMemory || v.offset == nil {
		return Value{}
	}
	return *v.offset
}

// Bytes returns a Memory value's width in bytes.
func (v Value) Bytes() uint { return v.bytes }

// Endian returns a Memory value's byte order.
func (v Value) Endian() Endianness { return v.endian }

// Bank returns a Memory value's bank name.
func (v Value) Bank() string { return v.name2bank() }

func (v Value) name2bank() string {
	if v.kind == KindMemory {
		return v.bank
	}
	return ""
}

// Equal reports structural equality, matching §8's "v == v reflexive"
// invariant: two Values compare equal iff every field of the active case
// matches.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindUndefined:
		return true
	case KindConstant:
		return v.width == o.width && v.content == o.content
	case KindVariable:
		return v.name == o.name && v.width == o.width && v.subscript == o.subscript
	case KindMemory:
		return v.bytes == o.bytes && v.endian == o.endian && v.bank == o.bank && v.Offset().Equal(o.Offset())
	default:
		return false
	}
}

// Hash returns a stable hash of v, suitable for use as a map key surrogate
// (Value itself is not comparable with == because of the *Value offset
// pointer, but Hash is stable across re-hashing per §8).
func (v Value) Hash() uint64 {
	const prime = 1099511628211
	h := uint64(14695981039346656037)
	mix := func(x uint64) {
		h ^= x
		h *= prime
	}
	mix(uint64(v.kind))
	switch v.kind {
	case KindConstant:
		mix(uint64(v.width))
		mix(v.content)
	case KindVariable:
		for _, b := range []byte(v.name) {
			mix(uint64(b))
		}
		mix(uint64(v.width))
		mix(uint64(v.subscript))
	case KindMemory:
		mix(uint64(v.bytes))
		mix(uint64(v.endian))
		for _, b := range []byte(v.bank) {
			mix(uint64(b))
		}
		mix(v.Offset().Hash())
	}
	return h
}

func (v Value) String() string {
	switch v.kind {
	case KindUndefined:
		return "⊥"
	case KindConstant:
		return fmt.Sprintf("0x%x:%d", v.content, v.width)
	case KindVariable:
		if v.subscript == SubscriptPreSSA {
			return fmt.Sprintf("%s:%d", v.name, v.width)
		}
		return fmt.Sprintf("%s_%d:%d", v.name, v.subscript, v.width)
	case KindMemory:
		return fmt.Sprintf("%s[%s,%d,%s]", v.bank, v.Offset(), v.bytes, v.endian)
	default:
		return "?"
	}
}
