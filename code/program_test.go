package code

import (
	"testing"

	"github.com/das-labor/panopticon-sub002/il"
	"github.com/das-labor/panopticon-sub002/region"
)

func TestCollectCallsFindsConstantTargets(t *testing.T) {
	target := il.MustConstant(16, 0x100)
	call := il.Must(il.SymCall, il.CrossDomain, il.Undefined(), target)
	mn, err := NewMnemonic(region.Range{Begin: 0, End: 2}, "call", "call", nil, []il.Instruction{call})
	if err != nil {
		t.Fatalf("NewMnemonic: %v", err)
	}
	bb, err := NewBasicBlock([]Mnemonic{mn})
	if err != nil {
		t.Fatalf("NewBasicBlock: %v", err)
	}
	proc := NewProcedure("proc_0")
	proc.SetEntry(0)
	if err := proc.AddBlock(bb); err != nil {
		t.Fatalf("AddBlock: %v", err)
	}

	calls := CollectCalls(proc)
	if len(calls) != 1 || calls[0] != 0x100 {
		t.Errorf("CollectCalls = %v, want [0x100]", calls)
	}
}

func TestCollectCallsSkipsSymbolicTargets(t *testing.T) {
	reg := il.MustVariable("r0", 16, -1)
	call := il.Must(il.SymCall, il.CrossDomain, il.Undefined(), reg)
	mn, err := NewMnemonic(region.Range{Begin: 0, End: 2}, "call", "call", nil, []il.Instruction{call})
	if err != nil {
		t.Fatalf("NewMnemonic: %v", err)
	}
	bb, _ := NewBasicBlock([]Mnemonic{mn})
	proc := NewProcedure("proc_0")
	proc.SetEntry(0)
	proc.AddBlock(bb)

	if calls := CollectCalls(proc); len(calls) != 0 {
		t.Errorf("CollectCalls = %v, want none", calls)
	}
}

func TestProgramQuerySurface(t *testing.T) {
	prog := NewProgram("unnamed program")
	bb, _ := NewBasicBlock([]Mnemonic{mustMnemonic(t, 0x10, 0x12, "nop")})
	proc := NewProcedure(UniqueName(0x10))
	proc.SetEntry(0x10)
	proc.AddBlock(bb)
	if err := prog.AddProcedure(proc); err != nil {
		t.Fatalf("AddProcedure: %v", err)
	}

	if !prog.HasProcedure(0x10) {
		t.Error("HasProcedure(0x10) should be true")
	}
	if p, ok := prog.FindProcedureByEntry(0x10); !ok || p != proc {
		t.Errorf("FindProcedureByEntry = %v, %v", p, ok)
	}
	if p, ok := prog.FindProcedureByBBlock(0x11); !ok || p != proc {
		t.Errorf("FindProcedureByBBlock(0x11) = %v, %v", p, ok)
	}
	if _, ok := prog.FindProcedureByBBlock(0x20); ok {
		t.Error("FindProcedureByBBlock(0x20) should miss")
	}

	prog.AddCallEdge(ProcedureVertex(0x10), ExternalVertex("printf"))
	edges := prog.CallEdges()
	if len(edges) != 1 || edges[0].To.Symbol != "printf" {
		t.Errorf("CallEdges() = %+v", edges)
	}
}
