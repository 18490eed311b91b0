package disasm

import (
	"testing"

	"github.com/das-labor/panopticon-sub002/code"
	"github.com/das-labor/panopticon-sub002/il"
	"github.com/das-labor/panopticon-sub002/region"
)

func TestTokensRejectsBadWidth(t *testing.T) {
	slab := region.FromBytes([]byte{1, 2, 3, 4})
	if _, err := Tokens(slab, 5); err == nil {
		t.Error("width not a multiple of 8 should be rejected")
	}
}

func TestTokensAssemblesBigEndian(t *testing.T) {
	slab := region.FromBytes([]byte{0x12, 0x34, 0xAB, 0xCD})
	toks, err := Tokens(slab, 16)
	if err != nil {
		t.Fatalf("Tokens: %v", err)
	}
	if len(toks) != 2 || toks[0] != 0x1234 || toks[1] != 0xABCD {
		t.Errorf("Tokens = %#v", toks)
	}
}

// jumpArch is a toy byte architecture with three opcodes: 0x04 <t1> <t2> is
// a two-way branch registering jumps to both targets, 0x03 is a no-op that
// does not end its block, and 0x02 is a halt that does. It is used to
// exercise the driver's block-split behavior when a jump target lands
// inside an already-decoded block.
func jumpArch() *Disassembler {
	d := New(8)
	d.Bind("branch", Seq(Literal(8, 0x04), Terminal8Capture("p"), Terminal8Capture("q")),
		func(caps map[string]uint64, s *SemanticState) {
			t1, t2 := il.MustConstant(8, caps["p"]), il.MustConstant(8, caps["q"])
			s.Format = "branch " + t1.String() + ", " + t2.String()
			s.Code.Emit(il.Nop())
			s.Jump(t1, AlwaysGuard)
			s.Jump(t2, AlwaysGuard)
		})
	d.Bind("nop", Literal(8, 0x03), func(caps map[string]uint64, s *SemanticState) {
		s.Format = "nop"
		s.Code.Emit(il.Nop())
	})
	d.Bind("halt", Literal(8, 0x02), func(caps map[string]uint64, s *SemanticState) {
		s.Format = "halt"
		s.Code.Emit(il.Nop())
		s.Terminate()
	})
	return d
}

func TestDisassembleProcedureSplitsOnInteriorJumpTarget(t *testing.T) {
	// 0: branch 3, 5   (two-way branch: one target lands exactly on the
	//                   run of nops below, the other lands two nops in)
	// 3: nop
	// 4: nop
	// 5: nop
	// 6: halt
	raw := []byte{0x04, 0x03, 0x05, 0x03, 0x03, 0x03, 0x02}
	slab := region.FromBytes(raw)
	d := jumpArch()
	tokens, err := Tokens(slab, d.TokenWidth)
	if err != nil {
		t.Fatalf("Tokens: %v", err)
	}

	proc, err := DisassembleProcedure(d, tokens, 0, "proc_0")
	if err != nil {
		t.Fatalf("DisassembleProcedure: %v", err)
	}

	blocks := proc.Blocks()
	if len(blocks) != 3 {
		t.Fatalf("len(blocks) = %d, want 3 (entry, [3,5) and the split-off [5,7))", len(blocks))
	}
	for _, start := range []int64{0, 3, 5} {
		if _, ok := proc.Block(start); !ok {
			t.Errorf("missing block at %d", start)
		}
	}

	edges := proc.Successors(0)
	if len(edges) != 2 {
		t.Fatalf("Successors(0) = %+v, want 2 edges", edges)
	}
	if edges := proc.Successors(3); len(edges) != 1 || edges[0].To.BlockStart != 5 {
		t.Errorf("Successors(3) = %+v, want a single edge to block 5 (the split fallthrough)", edges)
	}
}

func TestDisassembleProgramStopsAtKnownProcedure(t *testing.T) {
	raw := []byte{0x02}
	slab := region.FromBytes(raw)
	d := jumpArch()
	tokens, err := Tokens(slab, d.TokenWidth)
	if err != nil {
		t.Fatalf("Tokens: %v", err)
	}
	prog := code.NewProgram("p")
	if err := Disassemble(d, tokens, 0, prog); err != nil {
		t.Fatalf("Disassemble: %v", err)
	}
	if err := Disassemble(d, tokens, 0, prog); err != nil {
		t.Fatalf("second Disassemble: %v", err)
	}
	if len(prog.Procedures()) != 1 {
		t.Errorf("re-running Disassemble at a known entry should not duplicate procedures")
	}
}
