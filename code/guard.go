package code

import (
	"fmt"
	"strings"

	"github.com/das-labor/panopticon-sub002/il"
	"github.com/das-labor/panopticon-sub002/perr"
)

// Relcode is a logical relation code, ordered exactly as the source's
// relation::Relcode enum (panopticon/basic_block.hh) so that any code
// persisting the ordinal (e.g. in an archive) stays stable.
type Relcode int

const (
	ULeq Relcode = iota
	SLeq
	UGeq
	SGeq
	ULess
	SLess
	UGrtr
	SGrtr
	Eq
	Neq
)

var relcodeNames = [...]string{"u<=", "s<=", "u>=", "s>=", "u<", "s<", "u>", "s>", "==", "!="}

func (r Relcode) String() string {
	if int(r) < 0 || int(r) >= len(relcodeNames) {
		return "invalid-relcode"
	}
	return relcodeNames[r]
}

// negation maps each Relcode to its logical complement.
var negation = [...]Relcode{
	ULeq: UGrtr, SLeq: SGrtr, UGeq: ULess, SGeq: SLess,
	ULess: UGeq, SLess: SGeq, UGrtr: ULeq, SGrtr: SLeq,
	Eq: Neq, Neq: Eq,
}

// Relation is one logical comparison between two rvalues.
type Relation struct {
	Code     Relcode
	Operand1 il.Value
	Operand2 il.Value
}

func (r Relation) String() string {
	return fmt.Sprintf("%s %s %s", r.Operand1, r.Code, r.Operand2)
}

// Guard is a conjunction of relations that must all hold for the control
// transfer it's attached to to be taken. An empty guard is always true
// (§4.3's basic_block.hh note).
type Guard struct {
	Relations []Relation
}

// Always returns the trivially-true guard.
func Always() Guard { return Guard{} }

// NewGuard builds a guard from one relation, the common case for a
// single-condition jump.
func NewGuard(a il.Value, code Relcode, b il.Value) Guard {
	return Guard{Relations: []Relation{{Code: code, Operand1: a, Operand2: b}}}
}

// And conjoins g with more relations.
func (g Guard) And(rels ...Relation) Guard {
	out := Guard{Relations: make([]Relation, 0, len(g.Relations)+len(rels))}
	out.Relations = append(out.Relations, g.Relations...)
	out.Relations = append(out.Relations, rels...)
	return out
}

// Negate returns the logical negation of g. Only defined for guards with
// exactly one relation, matching the source's documented restriction
// ("only works with guards that have a single relation").
func (g Guard) Negate() (Guard, error) {
	if len(g.Relations) != 1 {
		return Guard{}, perr.New(perr.IllFormedInstruction,
			fmt.Sprintf("guard negation is only defined for single-relation guards, got %d", len(g.Relations)))
	}
	r := g.Relations[0]
	return Guard{Relations: []Relation{{Code: negation[r.Code], Operand1: r.Operand1, Operand2: r.Operand2}}}, nil
}

func (g Guard) String() string {
	if len(g.Relations) == 0 {
		return "true"
	}
	parts := make([]string, len(g.Relations))
	for i, r := range g.Relations {
		parts[i] = r.String()
	}
	return strings.Join(parts, " && ")
}
