// Package integration exercises the core packages together end to end,
// reproducing §8's concrete scenarios across package boundaries rather
// than any single package's unit behavior.
package integration

import (
	"testing"

	"github.com/das-labor/panopticon-sub002/code"
	"github.com/das-labor/panopticon-sub002/disasm"
	"github.com/das-labor/panopticon-sub002/disasm/testarch"
	"github.com/das-labor/panopticon-sub002/dflow"
	"github.com/das-labor/panopticon-sub002/il"
	"github.com/das-labor/panopticon-sub002/interp"
	"github.com/das-labor/panopticon-sub002/region"
	"github.com/das-labor/panopticon-sub002/ssa"
	"github.com/das-labor/panopticon-sub002/store"
)

// diamondArch builds a toy byte architecture whose single entry block
// branches to one of two assignments of "a" that rejoin at a shared tail
// consuming "a", mirroring §8 scenario 3's constant-propagation diamond
// but sourced from actual disassembly instead of hand-built IL.
func diamondArch() *disasm.Disassembler {
	d := disasm.New(8)
	d.Bind("branch", disasm.Seq(disasm.Literal(8, 0x04), disasm.Terminal8Capture("p"), disasm.Terminal8Capture("q")),
		func(caps map[string]uint64, s *disasm.SemanticState) {
			t1, t2 := il.MustConstant(8, caps["p"]), il.MustConstant(8, caps["q"])
			s.Format = "branch " + t1.String() + ", " + t2.String()
			s.Code.Emit(il.Nop())
			s.Jump(t1, disasm.AlwaysGuard)
			s.Jump(t2, disasm.AlwaysGuard)
		})
	d.Bind("setone", disasm.Literal(8, 0x05), func(caps map[string]uint64, s *disasm.SemanticState) {
		s.Format = "setone"
		a := s.Code.Named("a", 8, -1)
		one := il.MustConstant(8, 1)
		s.Code.Emit(il.Must(il.SymLift, il.CrossDomain, a, one))
		s.Jump(il.MustConstant(8, 7), disasm.AlwaysGuard)
	})
	d.Bind("settwo", disasm.Literal(8, 0x06), func(caps map[string]uint64, s *disasm.SemanticState) {
		s.Format = "settwo"
		a := s.Code.Named("a", 8, -1)
		two := il.MustConstant(8, 2)
		s.Code.Emit(il.Must(il.SymLift, il.CrossDomain, a, two))
		s.Jump(il.MustConstant(8, 7), disasm.AlwaysGuard)
	})
	d.Bind("usea", disasm.Literal(8, 0x07), func(caps map[string]uint64, s *disasm.SemanticState) {
		s.Format = "usea"
		a := s.Code.Named("a", 8, -1)
		b := s.Code.Named("b", 8, -1)
		s.Code.Emit(il.Must(il.SymAdd, il.IntegerDomain, b, a, a))
		s.Terminate()
	})
	return d
}

// TestDisassembleThenPropagateConstants runs disassembly, dominance,
// liveness, SSA construction and SSCP abstract interpretation over one
// procedure, reproducing §8 scenario 3 end to end starting from raw bytes
// instead of a hand-built procedure: the merge block's phi for "a" must
// resolve to NonConst since its two incoming definitions disagree.
func TestDisassembleThenPropagateConstants(t *testing.T) {
	// 0: branch 4, 6
	// 3: (unreached filler)
	// 4: setone -> a=1, jump 7
	// 5: (unreached filler)
	// 6: settwo -> a=2, jump 7
	// 7: usea -> b=a+a, halt
	raw := []byte{0x04, 0x04, 0x06, 0x00, 0x05, 0x00, 0x06, 0x07}
	slab := region.FromBytes(raw)
	d := diamondArch()
	tokens, err := disasm.Tokens(slab, d.TokenWidth)
	if err != nil {
		t.Fatalf("Tokens: %v", err)
	}

	proc, err := disasm.DisassembleProcedure(d, tokens, 0, "proc_0")
	if err != nil {
		t.Fatalf("DisassembleProcedure: %v", err)
	}

	dom, err := dflow.Compute(proc)
	if err != nil {
		t.Fatalf("dflow.Compute: %v", err)
	}
	live := dflow.ComputeLiveness(proc, dom.Order())

	ssaProc, err := ssa.Build(proc, dom, live)
	if err != nil {
		t.Fatalf("ssa.Build: %v", err)
	}

	result := interp.Run(ssaProc, interp.SSCP{})

	phi := findPhi(t, ssaProc, "a")
	elem := result.Lookup(phi.Assignee)
	sc, ok := elem.(interp.SCElement)
	if !ok {
		t.Fatalf("a's merge value has type %T, want interp.SCElement", elem)
	}
	if !sc.IsNonConst() {
		t.Errorf("a at the merge block = %v, want NonConst (two distinct incoming constants)", sc)
	}
}

// findPhi locates the phi instruction assigning name among every
// instruction in proc, failing the test if absent.
func findPhi(t *testing.T, proc *ssa.Procedure, name string) il.Instruction {
	t.Helper()
	for _, b := range proc.Blocks() {
		for _, m := range b.Mnemonics() {
			for _, instr := range m.Instructions {
				if instr.IsPhi() && instr.Assignee.Name() == name {
					return instr
				}
			}
		}
	}
	t.Fatalf("no phi assigning %s found", name)
	return il.Instruction{}
}

// TestDisassembleThenRoundTripBasicBlock checks that a basic block produced
// by actual disassembly (the single eight-byte mnemonic testarch.Minimal
// decodes) round-trips through marshal, a store save point, and unmarshal
// from a fresh handle unchanged.
func TestDisassembleThenRoundTripBasicBlock(t *testing.T) {
	raw := []byte{0x48, 0x11, 0x1c, 0x25, 0xa1, 0x1a, 0x00, 0x00}
	slab := region.FromBytes(raw)
	d := testarch.Minimal()
	tokens, err := disasm.Tokens(slab, d.TokenWidth)
	if err != nil {
		t.Fatalf("Tokens: %v", err)
	}

	proc, err := disasm.DisassembleProcedure(d, tokens, 0, "proc_0")
	if err != nil {
		t.Fatalf("DisassembleProcedure: %v", err)
	}
	blocks := proc.Blocks()
	if len(blocks) != 1 {
		t.Fatalf("len(blocks) = %d, want 1", len(blocks))
	}
	bb := blocks[0]

	s := store.New()
	h := store.NewHandle(s, bb, code.MarshalBasicBlock, code.UnmarshalBasicBlock)
	backing := store.NewMemStorage()
	if err := s.SavePoint(backing); err != nil {
		t.Fatalf("SavePoint: %v", err)
	}

	reopened := store.Open[code.BasicBlock](store.New(), backing, h.UUID(), code.MarshalBasicBlock, code.UnmarshalBasicBlock)
	got, err := reopened.Read()
	if err != nil {
		t.Fatalf("reopened Read: %v", err)
	}
	if len(got.Mnemonics()) != len(bb.Mnemonics()) {
		t.Fatalf("got %d mnemonics, want %d", len(got.Mnemonics()), len(bb.Mnemonics()))
	}
	for i, m := range bb.Mnemonics() {
		if got.Mnemonics()[i].Opcode != m.Opcode {
			t.Errorf("mnemonic %d opcode = %q, want %q", i, got.Mnemonics()[i].Opcode, m.Opcode)
		}
		if got.Mnemonics()[i].Area != m.Area {
			t.Errorf("mnemonic %d area = %+v, want %+v", i, got.Mnemonics()[i].Area, m.Area)
		}
	}
}
