package code

import (
	"fmt"
	"sync"
)

// CallVertexKind discriminates a call-graph vertex: a known procedure, or
// an external symbol the program never disassembled (program.hh's
// `boost::variant<proc_wptr,std::string>`).
type CallVertexKind int

const (
	ProcedureCallVertex CallVertexKind = iota
	ExternalSymbolVertex
)

// CallVertex is one node of the program's call graph.
type CallVertex struct {
	Kind   CallVertexKind
	Entry  int64
	Symbol string
}

// ProcedureVertex builds a call-graph vertex for a procedure by its entry offset.
func ProcedureVertex(entry int64) CallVertex { return CallVertex{Kind: ProcedureCallVertex, Entry: entry} }

// ExternalVertex builds a call-graph vertex for an unresolved external symbol.
func ExternalVertex(symbol string) CallVertex {
	return CallVertex{Kind: ExternalSymbolVertex, Symbol: symbol}
}

func (v CallVertex) String() string {
	if v.Kind == ProcedureCallVertex {
		return UniqueName(v.Entry)
	}
	return v.Symbol
}

// CallEdge is one edge of the program's call graph.
type CallEdge struct {
	From, To CallVertex
}

// Program is the call graph over every procedure disassembled so far
// (§4.3's final step, program.hh's `program`).
type Program struct {
	mu         sync.RWMutex
	Name       string
	procedures map[int64]*Procedure
	calls      []CallEdge
}

// NewProgram creates an empty, named program.
func NewProgram(name string) *Program {
	return &Program{Name: name, procedures: make(map[int64]*Procedure)}
}

// UniqueName derives a procedure's canonical name from its entry offset,
// matching the source's "proc_" + entry_addr convention (program.hh).
func UniqueName(entry int64) string { return fmt.Sprintf("proc_%d", entry) }

// AddProcedure registers proc, which must already have its entry offset
// set, keyed by that offset.
func (prog *Program) AddProcedure(proc *Procedure) error {
	entry, ok := proc.Entry()
	if !ok {
		return fmt.Errorf("code: cannot register a procedure with no entry offset")
	}
	prog.mu.Lock()
	defer prog.mu.Unlock()
	prog.procedures[entry] = proc
	return nil
}

// HasProcedure reports whether a procedure with the given entry offset is
// already registered (program.hh's has_procedure).
func (prog *Program) HasProcedure(entry int64) bool {
	prog.mu.RLock()
	defer prog.mu.RUnlock()
	_, ok := prog.procedures[entry]
	return ok
}

// FindProcedureByEntry returns the procedure with the given entry offset
// (program.hh's find_procedure).
func (prog *Program) FindProcedureByEntry(entry int64) (*Procedure, bool) {
	prog.mu.RLock()
	defer prog.mu.RUnlock()
	p, ok := prog.procedures[entry]
	return p, ok
}

// FindProcedureByBBlock returns the procedure, if any, that owns a block
// containing offset (§6's query surface).
func (prog *Program) FindProcedureByBBlock(offset int64) (*Procedure, bool) {
	prog.mu.RLock()
	procs := make([]*Procedure, 0, len(prog.procedures))
	for _, p := range prog.procedures {
		procs = append(procs, p)
	}
	prog.mu.RUnlock()
	for _, p := range procs {
		if _, ok := p.FindBlockContaining(offset); ok {
			return p, true
		}
	}
	return nil, false
}

// Procedures returns a snapshot of every registered procedure.
func (prog *Program) Procedures() []*Procedure {
	prog.mu.RLock()
	defer prog.mu.RUnlock()
	out := make([]*Procedure, 0, len(prog.procedures))
	for _, p := range prog.procedures {
		out = append(out, p)
	}
	return out
}

// AddCallEdge records an edge of the call graph.
func (prog *Program) AddCallEdge(from, to CallVertex) {
	prog.mu.Lock()
	defer prog.mu.Unlock()
	prog.calls = append(prog.calls, CallEdge{From: from, To: to})
}

// CallEdges returns a snapshot of the call graph's edges.
func (prog *Program) CallEdges() []CallEdge {
	prog.mu.RLock()
	defer prog.mu.RUnlock()
	out := make([]CallEdge, len(prog.calls))
	copy(out, prog.calls)
	return out
}

// CollectCalls scans every mnemonic's IL instructions in proc for call
// instructions whose target is a known constant, returning the distinct
// target offsets (program.hh's collect_calls). Calls to a symbolic (not
// yet resolved) target are skipped.
func CollectCalls(proc *Procedure) []int64 {
	seen := make(map[int64]bool)
	var out []int64
	for _, bb := range proc.Blocks() {
		for _, mn := range bb.Mnemonics() {
			for _, instr := range mn.Instructions {
				if !instr.IsCall() {
					continue
				}
				target, ok := instr.CallTarget()
				if !ok {
					continue
				}
				addr := int64(target.Content())
				if !seen[addr] {
					seen[addr] = true
					out = append(out, addr)
				}
			}
		}
	}
	return out
}
