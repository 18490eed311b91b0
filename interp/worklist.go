package interp

import (
	"sort"

	"github.com/das-labor/panopticon-sub002/code"
	"github.com/das-labor/panopticon-sub002/il"
	"github.com/das-labor/panopticon-sub002/ssa"
)

// Result is the environment an interpretation run converged to, keyed by
// each SSA Variable's rendered form (e.g. "a_2:8").
type Result struct {
	env map[string]Element
	lat Lattice
}

// Lookup returns v's element, or the lattice's bottom if v was never
// assigned a binding (pre-SSA variables, or names the worklist never
// reached).
func (r *Result) Lookup(v il.Value) Element {
	if e, ok := r.env[v.String()]; ok {
		return e
	}
	return r.lat.Bottom()
}

// Run executes the §4.7 worklist fixed point over proc using lat: starting
// every basic block's variables at bottom, it repeatedly pops a block,
// transfers every instruction in address order, and — whenever any
// instruction's result changed — re-queues the block's CFG successors.
// Termination is lat's obligation (monotone supremum, finite height); see
// SSCP for the lattice that satisfies it and ConcreteLattice for the one
// that, by design, does not in general.
func Run(proc *ssa.Procedure, lat Lattice) *Result {
	env := map[string]Element{}
	get := func(v il.Value) Element {
		if e, ok := env[v.String()]; ok {
			return e
		}
		return lat.Bottom()
	}

	var starts []int64
	for _, bb := range proc.Blocks() {
		starts = append(starts, bb.Area().Begin)
	}
	sort.Slice(starts, func(i, j int) bool { return starts[i] < starts[j] })

	queued := map[int64]bool{}
	var queue []int64
	push := func(b int64) {
		if !queued[b] {
			queued[b] = true
			queue = append(queue, b)
		}
	}
	for _, s := range starts {
		push(s)
	}

	for len(queue) > 0 {
		b := queue[0]
		queue = queue[1:]
		queued[b] = false

		bb, ok := proc.Block(b)
		if !ok {
			continue
		}
		changed := false
		for _, mn := range bb.Mnemonics() {
			for _, instr := range mn.Instructions {
				res := lat.Transfer(instr, get)
				if instr.Assignee.Kind() != il.KindVariable {
					continue
				}
				key := instr.Assignee.String()
				if old, ok := env[key]; !ok || !old.Equal(res) {
					env[key] = res
					changed = true
				}
			}
		}
		if changed {
			for _, e := range proc.Successors(b) {
				if e.To.Kind == code.BlockVertex {
					push(e.To.BlockStart)
				}
			}
		}
	}
	return &Result{env: env, lat: lat}
}
