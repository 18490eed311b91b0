package disasm

import (
	"fmt"
	"sync/atomic"

	"github.com/das-labor/panopticon-sub002/il"
)

// CodeGen accumulates the IL instructions an action emits for one mnemonic,
// and hands out fresh temporaries, mirroring the source's code_generator<T>
// (code_generator.hh): named() returns a stable variable for a fixed name,
// anonymous() returns one a monotonic counter guarantees is fresh.
type CodeGen struct {
	width   uint
	counter *int64
	instrs  []il.Instruction
}

// newCodeGen creates a CodeGen sharing counter with the rest of the
// mnemonic's disassembly, so anonymous() names stay unique across an entire
// run, not just within one action.
func newCodeGen(width uint, counter *int64) *CodeGen {
	return &CodeGen{width: width, counter: counter}
}

// Named returns the lvalue for a fixed, caller-chosen variable name (a
// register or other architectural name that recurs across mnemonics).
func (c *CodeGen) Named(name string, width uint, subscript int) il.Value {
	return il.MustVariable(name, width, subscript)
}

// Anonymous returns an lvalue for a fresh temporary, unique for the
// lifetime of the counter this CodeGen shares with its disassembler run.
func (c *CodeGen) Anonymous() il.Value {
	n := atomic.AddInt64(c.counter, 1)
	return il.MustVariable(fmt.Sprintf("t%d", n), c.width, 0)
}

// Emit appends instr to the mnemonic's instruction list and returns instr's
// assignee, for chaining: x := cg.Emit(il.Must(il.SymAdd, ...)).
func (c *CodeGen) Emit(instr il.Instruction) il.Value {
	c.instrs = append(c.instrs, instr)
	return instr.Assignee
}

// Instructions returns the instructions emitted so far, in emission order.
func (c *CodeGen) Instructions() []il.Instruction {
	out := make([]il.Instruction, len(c.instrs))
	copy(out, c.instrs)
	return out
}
