package ssa

import (
	"testing"

	"github.com/das-labor/panopticon-sub002/code"
	"github.com/das-labor/panopticon-sub002/dflow"
	"github.com/das-labor/panopticon-sub002/il"
	"github.com/das-labor/panopticon-sub002/region"
)

func buildDiamond(t *testing.T) *code.Procedure {
	t.Helper()
	block := func(begin, end int64, opcode string, instrs []il.Instruction) *code.BasicBlock {
		mn, err := code.NewMnemonic(region.Range{Begin: begin, End: end}, opcode, opcode, nil, instrs)
		if err != nil {
			t.Fatalf("NewMnemonic: %v", err)
		}
		bb, err := code.NewBasicBlock([]code.Mnemonic{mn})
		if err != nil {
			t.Fatalf("NewBasicBlock: %v", err)
		}
		return bb
	}

	a := il.MustVariable("a", 8, -1)
	b := il.MustVariable("b", 8, -1)
	c := il.MustVariable("c", 8, -1)
	d := il.MustVariable("d", 8, -1)
	c1 := il.MustConstant(8, 1)
	c2 := il.MustConstant(8, 2)

	proc := code.NewProcedure(code.UniqueName(0))
	proc.SetEntry(0)

	entry := block(0, 1, "entry", []il.Instruction{il.Must(il.SymAdd, il.IntegerDomain, a, c1, c2)})
	left := block(10, 11, "left", []il.Instruction{il.Must(il.SymAdd, il.IntegerDomain, b, a, a)})
	right := block(20, 21, "right", []il.Instruction{il.Must(il.SymAdd, il.IntegerDomain, c, a, a)})
	merge := block(30, 31, "merge", []il.Instruction{il.Must(il.SymAdd, il.IntegerDomain, d, b, c)})

	for _, bb := range []*code.BasicBlock{entry, left, right, merge} {
		if err := proc.AddBlock(bb); err != nil {
			t.Fatalf("AddBlock: %v", err)
		}
	}
	proc.AddEdge(code.Block(0), code.Block(10), code.Always())
	proc.AddEdge(code.Block(0), code.Block(20), code.Always())
	proc.AddEdge(code.Block(10), code.Block(30), code.Always())
	proc.AddEdge(code.Block(20), code.Block(30), code.Always())
	return proc
}

func TestBuildInsertsPhiAtMergeOnly(t *testing.T) {
	proc := buildDiamond(t)
	dom, err := dflow.Compute(proc)
	if err != nil {
		t.Fatalf("dflow.Compute: %v", err)
	}
	live := dflow.ComputeLiveness(proc, dom.Order())

	out, err := Build(proc, dom, live)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	entryBB, _ := out.Block(0)
	for _, mn := range entryBB.Mnemonics() {
		if mn.Opcode == "phi" {
			t.Error("entry block should carry no phi")
		}
	}

	mergeBB, ok := out.Block(30)
	if !ok {
		t.Fatal("merge block missing")
	}
	var phis []code.Mnemonic
	for _, mn := range mergeBB.Mnemonics() {
		if mn.Opcode == "phi" {
			phis = append(phis, mn)
		}
	}
	if len(phis) != 2 {
		t.Fatalf("len(phis at merge) = %d, want 2 (b and c)", len(phis))
	}
	for _, phi := range phis {
		instr := phi.Instructions[0]
		if !instr.IsPhi() {
			t.Error("phi mnemonic's instruction should be IsPhi()")
		}
		if len(instr.Operands()) != 2 {
			t.Errorf("phi operand count = %d, want 2", len(instr.Operands()))
		}
		if instr.Assignee.Subscript() < 0 {
			t.Errorf("phi assignee subscript = %d, want >= 0", instr.Assignee.Subscript())
		}
		for _, arg := range instr.Operands() {
			if arg.Kind() == il.KindVariable && arg.Subscript() < 0 {
				t.Errorf("phi operand %s has negative subscript", arg)
			}
		}
	}
}

func TestBuildAssignsUniqueSubscripts(t *testing.T) {
	proc := buildDiamond(t)
	dom, err := dflow.Compute(proc)
	if err != nil {
		t.Fatalf("dflow.Compute: %v", err)
	}
	live := dflow.ComputeLiveness(proc, dom.Order())
	out, err := Build(proc, dom, live)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	seen := map[string]bool{}
	for _, bb := range out.Blocks() {
		for _, mn := range bb.Mnemonics() {
			for _, instr := range mn.Instructions {
				if instr.Assignee.Kind() != il.KindVariable {
					continue
				}
				if instr.Assignee.Subscript() < 0 {
					t.Errorf("definition %s has negative subscript", instr.Assignee)
				}
				key := instr.Assignee.Name() + "#" + instr.Assignee.String()
				if seen[key] {
					t.Errorf("duplicate definition of %s", instr.Assignee)
				}
				seen[key] = true
			}
		}
	}
}
