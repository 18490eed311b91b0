// Package dflow implements the dominance and liveness data-flow analyses of
// §4.4/§4.5: an iterative reverse-post-order dominance-tree/frontier
// computation and a backward liveness fixed point, both operating directly
// on a code.Procedure's basic-block CFG.
package dflow

import (
	"fmt"
	"sort"

	"github.com/das-labor/panopticon-sub002/code"
	"github.com/das-labor/panopticon-sub002/perr"
)

// Dominance is the result of computing a procedure's dominator tree and
// dominance-frontier multimap from its entry block.
type Dominance struct {
	Entry    int64
	order    []int64         // reverse post-order of reachable block starts
	idom     map[int64]int64 // idom[entry] == entry
	frontier map[int64]map[int64]bool
}

// Order returns the reverse post-order the dominance computation used,
// reused by SSA's renaming pass.
func (d *Dominance) Order() []int64 {
	out := make([]int64, len(d.order))
	copy(out, d.order)
	return out
}

// IDom returns b's immediate dominator. IDom(Entry) == Entry.
func (d *Dominance) IDom(b int64) (int64, bool) {
	v, ok := d.idom[b]
	return v, ok
}

// Frontier returns the dominance frontier of b: every join node reached by
// walking up from a predecessor of some descendant of b without passing
// b's own dominator.
func (d *Dominance) Frontier(b int64) []int64 {
	set := d.frontier[b]
	out := make([]int64, 0, len(set))
	for n := range set {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Dominates reports whether a dominates b (reflexively: a dominates a).
func (d *Dominance) Dominates(a, b int64) bool {
	for cur := b; ; {
		if cur == a {
			return true
		}
		parent, ok := d.idom[cur]
		if !ok || parent == cur {
			return cur == a
		}
		cur = parent
	}
}

// blockGraph is the intra-procedural successor/predecessor adjacency
// restricted to resolved BlockVertex edges — Unresolved targets play no
// part in dominance or liveness.
type blockGraph struct {
	succ map[int64][]int64
	pred map[int64][]int64
}

func buildBlockGraph(proc *code.Procedure) blockGraph {
	g := blockGraph{succ: map[int64][]int64{}, pred: map[int64][]int64{}}
	for _, bb := range proc.Blocks() {
		start := bb.Area().Begin
		g.succ[start] = nil
		g.pred[start] = nil
	}
	for _, e := range proc.Edges() {
		if e.From.Kind != code.BlockVertex || e.To.Kind != code.BlockVertex {
			continue
		}
		g.succ[e.From.BlockStart] = append(g.succ[e.From.BlockStart], e.To.BlockStart)
		g.pred[e.To.BlockStart] = append(g.pred[e.To.BlockStart], e.From.BlockStart)
	}
	return g
}

// reversePostOrder walks g depth-first from entry and returns the blocks
// reached, in reverse post-order.
func reversePostOrder(g blockGraph, entry int64) []int64 {
	visited := map[int64]bool{}
	var post []int64
	var visit func(n int64)
	visit = func(n int64) {
		if visited[n] {
			return
		}
		visited[n] = true
		succs := append([]int64(nil), g.succ[n]...)
		sort.Slice(succs, func(i, j int) bool { return succs[i] < succs[j] })
		for _, s := range succs {
			visit(s)
		}
		post = append(post, n)
	}
	visit(entry)
	rpo := make([]int64, len(post))
	for i, n := range post {
		rpo[len(post)-1-i] = n
	}
	return rpo
}

// Compute builds proc's dominator tree and dominance frontiers per §4.4. It
// returns perr.UnreachableBlocks if proc has blocks not reachable from its
// entry.
func Compute(proc *code.Procedure) (*Dominance, error) {
	entry, ok := proc.Entry()
	if !ok {
		return nil, perr.New(perr.UnreachableBlocks, "procedure has no entry offset")
	}
	g := buildBlockGraph(proc)
	order := reversePostOrder(g, entry)

	reached := map[int64]bool{}
	for _, n := range order {
		reached[n] = true
	}
	var unreached []int64
	for start := range g.succ {
		if !reached[start] {
			unreached = append(unreached, start)
		}
	}
	if len(unreached) > 0 {
		sort.Slice(unreached, func(i, j int) bool { return unreached[i] < unreached[j] })
		return nil, perr.New(perr.UnreachableBlocks, fmt.Sprintf("blocks not reachable from entry %d: %v", entry, unreached))
	}

	// Dom(entry) = {entry}; Dom(b) = {b} U intersection of Dom(preds),
	// iterated to a fixed point (§4.4).
	dom := map[int64]map[int64]bool{}
	all := map[int64]bool{}
	for _, n := range order {
		all[n] = true
	}
	for _, n := range order {
		if n == entry {
			dom[n] = map[int64]bool{entry: true}
		} else {
			dom[n] = cloneSet(all)
		}
	}
	for changed := true; changed; {
		changed = false
		for _, n := range order {
			if n == entry {
				continue
			}
			var inter map[int64]bool
			for _, p := range g.pred[n] {
				if inter == nil {
					inter = cloneSet(dom[p])
				} else {
					intersect(inter, dom[p])
				}
			}
			if inter == nil {
				inter = map[int64]bool{}
			}
			inter[n] = true
			if !setEqual(inter, dom[n]) {
				dom[n] = inter
				changed = true
			}
		}
	}

	idom := map[int64]int64{entry: entry}
	for _, n := range order {
		if n == entry {
			continue
		}
		candidates := make([]int64, 0, len(dom[n]))
		for m := range dom[n] {
			if m != n {
				candidates = append(candidates, m)
			}
		}
		for _, x := range candidates {
			dominatesAll := true
			for _, y := range candidates {
				if y == x {
					continue
				}
				if !dom[y][x] {
					dominatesAll = false
					break
				}
			}
			if dominatesAll {
				idom[n] = x
				break
			}
		}
	}

	frontier := map[int64]map[int64]bool{}
	for _, n := range order {
		frontier[n] = map[int64]bool{}
	}
	for _, j := range order {
		preds := g.pred[j]
		if len(preds) < 2 {
			continue
		}
		for _, p := range preds {
			runner := p
			for runner != idom[j] {
				frontier[runner][j] = true
				next, ok := idom[runner]
				if !ok || next == runner {
					break
				}
				runner = next
			}
		}
	}

	return &Dominance{Entry: entry, order: order, idom: idom, frontier: frontier}, nil
}

func cloneSet(s map[int64]bool) map[int64]bool {
	out := make(map[int64]bool, len(s))
	for k := range s {
		out[k] = true
	}
	return out
}

func intersect(a, b map[int64]bool) {
	for k := range a {
		if !b[k] {
			delete(a, k)
		}
	}
}

func setEqual(a, b map[int64]bool) bool {
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
