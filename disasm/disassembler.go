package disasm

import (
	"github.com/das-labor/panopticon-sub002/il"
)

// SemanticState is the per-mnemonic scratch space an Action populates: the
// format string/operands for the mnemonic about to be built, the IL
// instructions generated for it, and any jump targets discovered along the
// way. Mirrors the source's sem_state<T> (disassembler.cc).
type SemanticState struct {
	Mnemonic string
	Format   string
	Operands []il.Value
	Code     *CodeGen

	jumps    []Jump
	terminal bool
}

// Jump records one control-flow successor an action discovered: either a
// constant absolute target (an intra-procedural edge) or a symbolic one (an
// Unresolved vertex, resolved later or never).
type Jump struct {
	Target il.Value
	Guard  Guard
}

// Guard is a minimal marker for when a jump is taken. It carries no
// relations; the driver records every jump edge with code.Always() and
// does not consult the Guard value.
type Guard struct {
	Always bool
}

// AlwaysGuard is the unconditional guard.
var AlwaysGuard = Guard{Always: true}

// Jump appends a successor discovered while generating this mnemonic's
// code — "Register a jump to a constant (or symbolic) target" (§4.3).
func (s *SemanticState) Jump(target il.Value, g Guard) {
	s.jumps = append(s.jumps, Jump{Target: target, Guard: g})
}

// Jumps returns the jump targets registered so far.
func (s *SemanticState) Jumps() []Jump {
	out := make([]Jump, len(s.jumps))
	copy(out, s.jumps)
	return out
}

// Terminate marks this mnemonic as ending its basic block even though it
// registers no jump target (a return or halt instruction, say).
func (s *SemanticState) Terminate() { s.terminal = true }

// EndsBlock reports whether this mnemonic ends its basic block: it either
// registered a jump or called Terminate.
func (s *SemanticState) EndsBlock() bool { return len(s.jumps) > 0 || s.terminal }

// Action builds a mnemonic's semantics: given the token match's captures,
// it populates mnemonic/format/operands on the state and emits IL via
// state.Code, registering any jumps.
type Action func(caps map[string]uint64, state *SemanticState)

// Binding pairs a Rule with the Action to run when it matches — the
// (pattern, action) table entry §4.3 calls a disassembler's rule.
type Binding struct {
	Name   string
	Rule   Rule
	Action Action
}

// Disassembler is an ordered table of Bindings tried in declaration order —
// "first match wins" (§4.3) — plus the token width each Terminal consumes.
type Disassembler struct {
	TokenWidth uint
	Bindings   []Binding
}

// New creates a Disassembler reading tokens of the given bit width.
func New(tokenWidth uint) *Disassembler {
	return &Disassembler{TokenWidth: tokenWidth}
}

// Bind appends a named (rule, action) pair to the table.
func (d *Disassembler) Bind(name string, rule Rule, action Action) {
	d.Bindings = append(d.Bindings, Binding{Name: name, Rule: rule, Action: action})
}

// Step tries every binding in order against tokens starting at pos, running
// the first whose Rule matches. It returns the resulting SemanticState, the
// number of tokens consumed, and whether any binding matched at all ("the
// failsafe" returning false means disassembly of this mnemonic failed).
func (d *Disassembler) Step(tokens []uint64, pos int, counter *int64) (*SemanticState, int, bool) {
	for _, b := range d.Bindings {
		m, ok := b.Rule(tokens, pos, nil)
		if !ok {
			continue
		}
		state := &SemanticState{Mnemonic: b.Name, Code: newCodeGen(d.TokenWidth, counter)}
		b.Action(m.Caps, state)
		return state, m.Pos - pos, true
	}
	return nil, 0, false
}
