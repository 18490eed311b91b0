package dflow

import (
	"sort"

	"github.com/das-labor/panopticon-sub002/code"
	"github.com/das-labor/panopticon-sub002/il"
)

// BlockLiveness holds one block's VarKill/UEVar sets and its computed
// LiveOut set, keyed by variable base name (§4.5).
type BlockLiveness struct {
	VarKill map[string]bool
	UEVar   map[string]bool
	LiveOut map[string]bool
}

// Liveness is the per-block liveness result for an entire procedure, plus
// the procedure-global names (those upward-exposed somewhere) and their
// usage sites.
type Liveness struct {
	Blocks map[int64]*BlockLiveness
	usage  map[string]map[int64]bool
}

// Globals returns the names that are upward-exposed in at least one block
// (§4.5's "a name is global if it appears in UEVar(b) for some b").
func (l *Liveness) Globals() []string {
	seen := map[string]bool{}
	for _, bl := range l.Blocks {
		for n := range bl.UEVar {
			seen[n] = true
		}
	}
	out := make([]string, 0, len(seen))
	for n := range seen {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Usage returns the blocks that read name, in ascending start-offset order.
func (l *Liveness) Usage(name string) []int64 {
	set := l.usage[name]
	out := make([]int64, 0, len(set))
	for b := range set {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// localSets walks a block's mnemonics in order, computing VarKill (names
// written anywhere in the block) and UEVar (names read before any write to
// them within the block).
func localSets(bb *code.BasicBlock) (varKill, ueVar map[string]bool, usage map[string]bool) {
	varKill = map[string]bool{}
	ueVar = map[string]bool{}
	usage = map[string]bool{}
	for _, mn := range bb.Mnemonics() {
		for _, instr := range mn.Instructions {
			for _, arg := range instr.Operands() {
				if arg.Kind() != il.KindVariable {
					continue
				}
				name := arg.Name()
				usage[name] = true
				if !varKill[name] {
					ueVar[name] = true
				}
			}
			if instr.Assignee.Kind() == il.KindVariable {
				varKill[instr.Assignee.Name()] = true
			}
		}
	}
	return
}

// ComputeLiveness runs the backward fixed-point liveness analysis of §4.5
// over proc's basic blocks, iterating in the given block order (typically
// a Dominance's reverse post-order) until convergence.
func ComputeLiveness(proc *code.Procedure, order []int64) *Liveness {
	l := &Liveness{Blocks: map[int64]*BlockLiveness{}, usage: map[string]map[int64]bool{}}
	blocks := map[int64]*code.BasicBlock{}
	for _, bb := range proc.Blocks() {
		blocks[bb.Area().Begin] = bb
	}
	for start, bb := range blocks {
		kill, ue, used := localSets(bb)
		l.Blocks[start] = &BlockLiveness{VarKill: kill, UEVar: ue, LiveOut: map[string]bool{}}
		for name := range used {
			if l.usage[name] == nil {
				l.usage[name] = map[int64]bool{}
			}
			l.usage[name][start] = true
		}
	}

	for changed := true; changed; {
		changed = false
		for _, start := range order {
			bl, ok := l.Blocks[start]
			if !ok {
				continue
			}
			next := map[string]bool{}
			for _, e := range proc.Successors(start) {
				if e.To.Kind != code.BlockVertex {
					continue
				}
				succ, ok := l.Blocks[e.To.BlockStart]
				if !ok {
					continue
				}
				for n := range succ.UEVar {
					next[n] = true
				}
				for n := range succ.LiveOut {
					if !succ.VarKill[n] {
						next[n] = true
					}
				}
			}
			if !setEqualStr(next, bl.LiveOut) {
				bl.LiveOut = next
				changed = true
			}
		}
	}
	return l
}

func setEqualStr(a, b map[string]bool) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if !b[k] {
			return false
		}
	}
	return true
}
