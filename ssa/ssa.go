// Package ssa builds static single assignment form over a procedure's CFG
// using iterated dominance frontiers for φ-placement and a dominator-tree
// walk for renaming, per §4.6.
package ssa

import (
	"sort"

	"github.com/das-labor/panopticon-sub002/code"
	"github.com/das-labor/panopticon-sub002/dflow"
	"github.com/das-labor/panopticon-sub002/il"
	"github.com/das-labor/panopticon-sub002/region"
)

// Procedure is the SSA-renamed result: a new code.Procedure with the same
// block starts and the same CFG edges as the source, but with φ
// pseudo-mnemonics inserted at merge points. Every definition and every use
// reached by a definition carries a non-negative SSA subscript; a use that no
// definition reaches keeps il.SubscriptPreSSA, and a φ operand for an edge
// that no definition reaches is il.Undefined().
type Procedure struct {
	*code.Procedure
}

type phiSite struct {
	block int64
	name  string
	width uint
}

// insertionSites runs the iterated-dominance-frontier worklist of §4.6
// step 1 for every global name, consulting live-in(block) = UEVar(block) U
// (LiveOut(block) \ VarKill(block)) to decide whether a φ is actually
// needed there.
func insertionSites(proc *code.Procedure, dom *dflow.Dominance, live *dflow.Liveness, width map[string]uint) []phiSite {
	defSites := map[string]map[int64]bool{}
	for start, bl := range live.Blocks {
		for n := range bl.VarKill {
			if defSites[n] == nil {
				defSites[n] = map[int64]bool{}
			}
			defSites[n][start] = true
		}
	}

	var sites []phiSite
	for _, name := range live.Globals() {
		hasPhi := map[int64]bool{}
		var worklist []int64
		for b := range defSites[name] {
			worklist = append(worklist, b)
		}
		for len(worklist) > 0 {
			d := worklist[0]
			worklist = worklist[1:]
			for _, f := range dom.Frontier(d) {
				if hasPhi[f] {
					continue
				}
				bl := live.Blocks[f]
				liveIn := map[string]bool{}
				for n := range bl.UEVar {
					liveIn[n] = true
				}
				for n := range bl.LiveOut {
					if !bl.VarKill[n] {
						liveIn[n] = true
					}
				}
				if !liveIn[name] {
					continue
				}
				hasPhi[f] = true
				sites = append(sites, phiSite{block: f, name: name, width: width[name]})
				if !defSites[name][f] {
					worklist = append(worklist, f)
				}
			}
		}
	}
	sort.Slice(sites, func(i, j int) bool {
		if sites[i].block != sites[j].block {
			return sites[i].block < sites[j].block
		}
		return sites[i].name < sites[j].name
	})
	return sites
}

// variableWidths scans proc for every Variable occurrence's declared bit
// width, keyed by base name, so inserted φs and the renaming pass can
// reconstruct well-formed Values.
func variableWidths(proc *code.Procedure) map[string]uint {
	out := map[string]uint{}
	for _, bb := range proc.Blocks() {
		for _, mn := range bb.Mnemonics() {
			for _, instr := range mn.Instructions {
				if instr.Assignee.Kind() == il.KindVariable {
					out[instr.Assignee.Name()] = instr.Assignee.Width()
				}
				for _, arg := range instr.Operands() {
					if arg.Kind() == il.KindVariable {
						out[arg.Name()] = arg.Width()
					}
				}
			}
		}
	}
	return out
}

// renamer carries the per-name version stacks and counters through the
// dominator-tree walk (§4.6 step 2).
type renamer struct {
	counter map[string]int
	stack   map[string][]int
}

func newRenamer() *renamer {
	return &renamer{counter: map[string]int{}, stack: map[string][]int{}}
}

func (r *renamer) fresh(name string) int {
	sub := r.counter[name]
	r.counter[name]++
	r.stack[name] = append(r.stack[name], sub)
	return sub
}

func (r *renamer) top(name string) (int, bool) {
	s := r.stack[name]
	if len(s) == 0 {
		return 0, false
	}
	return s[len(s)-1], true
}

func (r *renamer) pop(name string) {
	s := r.stack[name]
	if len(s) > 0 {
		r.stack[name] = s[:len(s)-1]
	}
}

func renameValue(v il.Value, r *renamer) il.Value {
	if v.Kind() != il.KindVariable {
		return v
	}
	sub, ok := r.top(v.Name())
	if !ok {
		return v.WithSubscript(il.SubscriptPreSSA)
	}
	return v.WithSubscript(sub)
}

func children(dom *dflow.Dominance) map[int64][]int64 {
	out := map[int64][]int64{}
	for _, b := range dom.Order() {
		if p, ok := dom.IDom(b); ok && p != b {
			out[p] = append(out[p], b)
		}
	}
	for p := range out {
		sort.Slice(out[p], func(i, j int) bool { return out[p][i] < out[p][j] })
	}
	return out
}

// predIndex returns i such that proc.Predecessors(block)[i].From.BlockStart
// == from, the position of the CFG edge from->block in block's
// predecessor-iteration order (§4.6: "the successor's φ argument slot
// corresponding to the current edge").
func predIndex(proc *code.Procedure, block, from int64) int {
	for i, e := range proc.Predecessors(block) {
		if e.From.Kind == code.BlockVertex && e.From.BlockStart == from {
			return i
		}
	}
	return -1
}

// Build constructs SSA form for proc given its dominance tree and liveness
// result, returning a new code.Procedure with φs inserted and its Variables
// renamed as described on Procedure.
func Build(proc *code.Procedure, dom *dflow.Dominance, live *dflow.Liveness) (*Procedure, error) {
	widths := variableWidths(proc)
	sites := insertionSites(proc, dom, live, widths)

	phisByBlock := map[int64][]phiSite{}
	for _, s := range sites {
		phisByBlock[s.block] = append(phisByBlock[s.block], s)
	}

	blocks := map[int64]*code.BasicBlock{}
	for _, bb := range proc.Blocks() {
		blocks[bb.Area().Begin] = bb
	}

	out := code.NewProcedure(proc.Name())
	out.SetEntry(dom.Entry)
	for _, e := range proc.Edges() {
		out.AddEdge(e.From, e.To, e.Guard)
	}

	// phiAssignees[block][name] holds the renamed assignee chosen for that
	// block's φ of name, filled in during the dominator-tree walk below so
	// that other blocks' operand slots can reference it once computed.
	phiAssignees := map[int64]map[string]il.Value{}
	// phiOperands[block][name] accumulates one operand per predecessor
	// edge, indexed by predIndex.
	phiOperands := map[int64]map[string][]il.Value{}
	for block, ps := range phisByBlock {
		phiOperands[block] = map[string][]il.Value{}
		for _, s := range ps {
			phiOperands[block][s.name] = make([]il.Value, len(proc.Predecessors(block)))
		}
	}

	r := newRenamer()
	kids := children(dom)

	var walk func(block int64) error
	walk = func(block int64) error {
		bb, ok := blocks[block]
		if !ok {
			return nil
		}
		pushed := map[string]int{}

		// φ assignees get a fresh version before anything else in the
		// block is processed.
		var newMnemonics []code.Mnemonic
		for _, s := range phisByBlock[block] {
			sub := r.fresh(s.name)
			pushed[s.name]++
			assignee := il.MustVariable(s.name, s.width, sub)
			if phiAssignees[block] == nil {
				phiAssignees[block] = map[string]il.Value{}
			}
			phiAssignees[block][s.name] = assignee
		}

		for _, mn := range bb.Mnemonics() {
			instrs := make([]il.Instruction, 0, len(mn.Instructions))
			for _, instr := range mn.Instructions {
				args := make([]il.Value, len(instr.Operands()))
				for i, a := range instr.Operands() {
					args[i] = renameValue(a, r)
				}
				assignee := instr.Assignee
				if assignee.Kind() == il.KindVariable {
					sub := r.fresh(assignee.Name())
					pushed[assignee.Name()]++
					assignee = assignee.WithSubscript(sub)
				}
				ni, err := il.New(instr.Op.Symbol, instr.Op.Domain, assignee, args...)
				if err != nil {
					return err
				}
				instrs = append(instrs, ni)
			}
			renamedOperands := make([]il.Value, len(mn.Operands))
			for i, op := range mn.Operands {
				renamedOperands[i] = renameValue(op, r)
			}
			nm, err := code.NewMnemonic(mn.Area, mn.Opcode, mn.FormatString, renamedOperands, instrs)
			if err != nil {
				return err
			}
			newMnemonics = append(newMnemonics, nm)
		}

		// Record this block's current value of every φ-carrying name into
		// each successor's operand slot for the block->successor edge.
		for _, e := range proc.Successors(block) {
			if e.To.Kind != code.BlockVertex {
				continue
			}
			for name, slots := range phiOperands[e.To.BlockStart] {
				idx := predIndex(proc, e.To.BlockStart, block)
				if idx < 0 {
					continue
				}
				if sub, ok := r.top(name); ok {
					slots[idx] = il.MustVariable(name, widths[name], sub)
				} else {
					slots[idx] = il.Undefined()
				}
			}
		}

		for _, c := range kids[block] {
			if err := walk(c); err != nil {
				return err
			}
		}

		for name, n := range pushed {
			for i := 0; i < n; i++ {
				r.pop(name)
			}
		}
		if err := out.AddBlock(mustBasicBlock(newMnemonics)); err != nil {
			return err
		}
		return nil
	}
	if err := walk(dom.Entry); err != nil {
		return nil, err
	}

	// Now that every block's φ operand slots are filled and every
	// assignee finalized, prepend each block's φ mnemonics to the block
	// already added to out.
	for block, ps := range phisByBlock {
		bb, ok := out.Block(block)
		if !ok {
			continue
		}
		var phiMnemonics []code.Mnemonic
		for _, s := range ps {
			assignee := phiAssignees[block][s.name]
			phi, err := il.Phi(assignee, il.IntegerDomain, phiOperands[block][s.name]...)
			if err != nil {
				return nil, err
			}
			begin := bb.Area().Begin
			mn, err := code.NewMnemonic(region.Range{Begin: begin, End: begin}, "phi", "phi", nil, []il.Instruction{phi})
			if err != nil {
				return nil, err
			}
			phiMnemonics = append(phiMnemonics, mn)
		}
		merged, err := code.NewBasicBlock(append(phiMnemonics, bb.Mnemonics()...))
		if err != nil {
			return nil, err
		}
		out.RemoveBlock(block)
		if err := out.AddBlock(merged); err != nil {
			return nil, err
		}
	}

	return &Procedure{Procedure: out}, nil
}

func mustBasicBlock(mnemonics []code.Mnemonic) *code.BasicBlock {
	bb, err := code.NewBasicBlock(mnemonics)
	if err != nil {
		panic(err)
	}
	return bb
}
