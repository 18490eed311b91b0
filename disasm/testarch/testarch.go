// Package testarch provides two minimal, fictitious architectures used to
// exercise package disasm end to end: one with a single fixed-width
// instruction (no control flow at all) and one with just enough of a call
// instruction to drive the program-level call-graph extension.
package testarch

import (
	"github.com/das-labor/panopticon-sub002/disasm"
	"github.com/das-labor/panopticon-sub002/il"
)

// Minimal builds a byte-wide disassembler recognizing exactly one 8-byte
// instruction, the literal sequence 48 11 1c 25 a1 1a 00 00. It registers
// no jumps, so a procedure seeded at offset 0 over a region of exactly
// those eight bytes decodes to a single basic block with a single
// mnemonic.
func Minimal() *disasm.Disassembler {
	d := disasm.New(8)
	body := disasm.Seq(
		disasm.Literal(8, 0x48),
		disasm.Literal(8, 0x11),
		disasm.Literal(8, 0x1c),
		disasm.Literal(8, 0x25),
		disasm.Literal(8, 0xa1),
		disasm.Literal(8, 0x1a),
		disasm.Literal(8, 0x00),
		disasm.Literal(8, 0x00),
	)
	d.Bind("adc", body, func(caps map[string]uint64, s *disasm.SemanticState) {
		s.Format = "adc [0x1aa1], ebx"
		dst := s.Code.Named("mem0x1aa1", 32, 0)
		ebx := s.Code.Named("ebx", 32, -1)
		s.Code.Emit(il.Must(il.SymAdd, il.IntegerDomain, dst, dst, ebx))
	})
	return d
}

// CallFanout builds a byte-wide disassembler over two opcodes:
//
//	0xC0 <imm8>  call imm8 (2 bytes)
//	0xC3         ret       (1 byte, ends the block, no successors)
//
// It is just expressive enough to drive a three-procedure call graph: a
// caller that calls two callees, each of which calls back to the caller.
func CallFanout() *disasm.Disassembler {
	d := disasm.New(8)
	d.Bind("call", disasm.Seq(disasm.Literal(8, 0xC0), disasm.Terminal8Capture("t")),
		func(caps map[string]uint64, s *disasm.SemanticState) {
			target := il.MustConstant(8, caps["t"])
			s.Format = "call " + target.String()
			s.Code.Emit(il.Must(il.SymCall, il.CrossDomain, il.Undefined(), target))
			// A call is an inter-procedural edge, discovered later via
			// code.CollectCalls — it does not end the current block.
		})
	d.Bind("ret", disasm.Literal(8, 0xC3), func(caps map[string]uint64, s *disasm.SemanticState) {
		s.Format = "ret"
		s.Code.Emit(il.Nop())
		s.Terminate()
	})
	return d
}
