package code

import (
	"fmt"
	"sync"

	"github.com/das-labor/panopticon-sub002/il"
	"github.com/das-labor/panopticon-sub002/perr"
)

// VertexKind discriminates the two kinds of CFG vertex a control-transfer
// edge may target: a resolved basic block, or an unresolved rvalue (§4.3:
// "an unresolved target becomes an edge to an rvalue placeholder vertex").
type VertexKind int

const (
	BlockVertex VertexKind = iota
	UnresolvedVertex
)

// Vertex is one CFG node: either the start offset of a basic block in the
// same procedure, or a symbolic value that disassembly has not (yet)
// resolved to a concrete address.
type Vertex struct {
	Kind       VertexKind
	BlockStart int64
	Target     il.Value
}

// Block builds a resolved vertex for the block starting at offset.
func Block(offset int64) Vertex { return Vertex{Kind: BlockVertex, BlockStart: offset} }

// Unresolved builds a placeholder vertex for a symbolic jump target.
func Unresolved(target il.Value) Vertex { return Vertex{Kind: UnresolvedVertex, Target: target} }

func (v Vertex) String() string {
	if v.Kind == BlockVertex {
		return fmt.Sprintf("bblock@%d", v.BlockStart)
	}
	return fmt.Sprintf("unresolved(%s)", v.Target)
}

// Edge is one guarded control-transfer edge within a procedure's CFG.
type Edge struct {
	From, To Vertex
	Guard    Guard
}

// Procedure is a CFG multigraph of basic blocks plus unresolved-target
// vertices, rooted at one entry block (§4.3, program.hh's procedure).
type Procedure struct {
	mu       sync.RWMutex
	name     string
	blocks   map[int64]*BasicBlock
	edges    []Edge
	entry    int64
	hasEntry bool
}

// NewProcedure creates an empty procedure named name; the name is usually
// finalized to UniqueName(entry) once the entry block is known (§4.3).
func NewProcedure(name string) *Procedure {
	return &Procedure{name: name, blocks: make(map[int64]*BasicBlock)}
}

// Name returns the procedure's current name.
func (p *Procedure) Name() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.name
}

// Rename sets the procedure's name, e.g. to UniqueName(entry) once the
// entry offset is known.
func (p *Procedure) Rename(name string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.name = name
}

// AddBlock inserts bb, keyed by its area's start offset. It is an error to
// add a block whose area overlaps an existing one; callers that need to
// split an existing block must remove and re-add per §4.3 step 5.
func (p *Procedure) AddBlock(bb *BasicBlock) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, existing := range p.blocks {
		if existing.Area().Overlaps(bb.Area()) {
			return perr.New(perr.IllFormedInstruction,
				fmt.Sprintf("block %s overlaps existing block %s", bb.Area(), existing.Area()))
		}
	}
	p.blocks[bb.Area().Begin] = bb
	return nil
}

// RemoveBlock deletes the block starting at offset, used when splitting.
func (p *Procedure) RemoveBlock(offset int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.blocks, offset)
}

// Block returns the block starting exactly at offset.
func (p *Procedure) Block(offset int64) (*BasicBlock, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	bb, ok := p.blocks[offset]
	return bb, ok
}

// FindBlockContaining returns the block whose area contains offset, if
// any — used by the driver's worklist (§4.3 step 2: "already covered by an
// existing basic block").
func (p *Procedure) FindBlockContaining(offset int64) (*BasicBlock, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	for _, bb := range p.blocks {
		area := bb.Area()
		if offset >= area.Begin && offset < area.End {
			return bb, true
		}
	}
	return nil, false
}

// Blocks returns a snapshot of every block in the procedure.
func (p *Procedure) Blocks() []*BasicBlock {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]*BasicBlock, 0, len(p.blocks))
	for _, bb := range p.blocks {
		out = append(out, bb)
	}
	return out
}

// SetEntry designates the block starting at offset as the procedure's
// entry point. The block need not exist yet (the driver may set the entry
// offset before the first worklist pop resolves it into a block).
func (p *Procedure) SetEntry(offset int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.entry = offset
	p.hasEntry = true
}

// Entry returns the entry block's start offset, if set.
func (p *Procedure) Entry() (int64, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.entry, p.hasEntry
}

// AddEdge records a guarded control-transfer edge.
func (p *Procedure) AddEdge(from, to Vertex, g Guard) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.edges = append(p.edges, Edge{From: from, To: to, Guard: g})
}

// Edges returns a snapshot of every edge in the procedure's CFG.
func (p *Procedure) Edges() []Edge {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]Edge, len(p.edges))
	copy(out, p.edges)
	return out
}

// Successors returns the targets of edges leaving the block at offset.
func (p *Procedure) Successors(offset int64) []Edge {
	p.mu.RLock()
	defer p.mu.RUnlock()
	var out []Edge
	for _, e := range p.edges {
		if e.From.Kind == BlockVertex && e.From.BlockStart == offset {
			out = append(out, e)
		}
	}
	return out
}

// Predecessors returns the edges whose target is the block at offset.
func (p *Procedure) Predecessors(offset int64) []Edge {
	p.mu.RLock()
	defer p.mu.RUnlock()
	var out []Edge
	for _, e := range p.edges {
		if e.To.Kind == BlockVertex && e.To.BlockStart == offset {
			out = append(out, e)
		}
	}
	return out
}
