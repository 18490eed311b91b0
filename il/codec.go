package il

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/das-labor/panopticon-sub002/perr"
)

// EncodeValue renders v as a compact, reversible string so callers
// persisting through package store's triple/archive model (§4.8) have
// something to stuff into a Term without depending on a particular
// serialization library. Memory's offset is encoded recursively as the
// trailing field, so it is not itself length-prefixed — bank names
// containing '|' are not supported by this encoding.
func EncodeValue(v Value) string {
	switch v.Kind() {
	case KindConstant:
		return fmt.Sprintf("c|%d|%d", v.Width(), v.Content())
	case KindVariable:
		return fmt.Sprintf("v|%s|%d|%d", v.Name(), v.Width(), v.Subscript())
	case KindMemory:
		return fmt.Sprintf("m|%d|%d|%s|%s", v.Bytes(), int(v.Endian()), v.Bank(), EncodeValue(v.Offset()))
	default:
		return "u"
	}
}

// DecodeValue inverts EncodeValue, returning perr.SchemaMismatch on
// malformed input.
func DecodeValue(s string) (Value, error) {
	if s == "u" {
		return Undefined(), nil
	}
	head, rest, ok := strings.Cut(s, "|")
	if !ok {
		return Value{}, perr.New(perr.SchemaMismatch, fmt.Sprintf("malformed encoded value %q", s))
	}
	switch head {
	case "c":
		fields := strings.SplitN(rest, "|", 2)
		if len(fields) != 2 {
			return Value{}, perr.New(perr.SchemaMismatch, fmt.Sprintf("malformed constant %q", s))
		}
		width, err := strconv.ParseUint(fields[0], 10, 32)
		if err != nil {
			return Value{}, perr.Wrap(perr.SchemaMismatch, "constant width", err)
		}
		content, err := strconv.ParseUint(fields[1], 10, 64)
		if err != nil {
			return Value{}, perr.Wrap(perr.SchemaMismatch, "constant content", err)
		}
		return Constant(uint(width), content)
	case "v":
		fields := strings.SplitN(rest, "|", 3)
		if len(fields) != 3 {
			return Value{}, perr.New(perr.SchemaMismatch, fmt.Sprintf("malformed variable %q", s))
		}
		width, err := strconv.ParseUint(fields[1], 10, 32)
		if err != nil {
			return Value{}, perr.Wrap(perr.SchemaMismatch, "variable width", err)
		}
		subscript, err := strconv.ParseInt(fields[2], 10, 32)
		if err != nil {
			return Value{}, perr.Wrap(perr.SchemaMismatch, "variable subscript", err)
		}
		return Variable(fields[0], uint(width), int(subscript))
	case "m":
		fields := strings.SplitN(rest, "|", 4)
		if len(fields) != 4 {
			return Value{}, perr.New(perr.SchemaMismatch, fmt.Sprintf("malformed memory %q", s))
		}
		bytesN, err := strconv.ParseUint(fields[0], 10, 32)
		if err != nil {
			return Value{}, perr.Wrap(perr.SchemaMismatch, "memory bytes", err)
		}
		endianN, err := strconv.ParseInt(fields[1], 10, 32)
		if err != nil {
			return Value{}, perr.Wrap(perr.SchemaMismatch, "memory endian", err)
		}
		offset, err := DecodeValue(fields[3])
		if err != nil {
			return Value{}, err
		}
		return Memory(offset, uint(bytesN), Endianness(endianN), fields[2])
	default:
		return Value{}, perr.New(perr.SchemaMismatch, fmt.Sprintf("unknown value tag %q", head))
	}
}

// EncodeInstruction renders i as a reversible string: symbol, domain and
// assignee followed by its argument vector, each field itself an
// EncodeValue output.
func EncodeInstruction(i Instruction) string {
	parts := make([]string, 0, 3+len(i.Op.Args))
	parts = append(parts, strconv.Itoa(int(i.Op.Symbol)), strconv.Itoa(int(i.Op.Domain)), EncodeValue(i.Assignee))
	for _, a := range i.Op.Args {
		parts = append(parts, EncodeValue(a))
	}
	return strings.Join(parts, "~")
}

// DecodeInstruction inverts EncodeInstruction, re-validating arity and
// assignee lvalue-ness through New.
func DecodeInstruction(s string) (Instruction, error) {
	fields := strings.Split(s, "~")
	if len(fields) < 3 {
		return Instruction{}, perr.New(perr.SchemaMismatch, fmt.Sprintf("malformed encoded instruction %q", s))
	}
	sym, err := strconv.Atoi(fields[0])
	if err != nil {
		return Instruction{}, perr.Wrap(perr.SchemaMismatch, "instruction symbol", err)
	}
	dom, err := strconv.Atoi(fields[1])
	if err != nil {
		return Instruction{}, perr.Wrap(perr.SchemaMismatch, "instruction domain", err)
	}
	assignee, err := DecodeValue(fields[2])
	if err != nil {
		return Instruction{}, err
	}
	args := make([]Value, len(fields)-3)
	for i, f := range fields[3:] {
		v, err := DecodeValue(f)
		if err != nil {
			return Instruction{}, err
		}
		args[i] = v
	}
	return New(Symbol(sym), Domain(dom), assignee, args...)
}
