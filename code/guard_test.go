package code

import (
	"testing"

	"github.com/das-labor/panopticon-sub002/il"
)

func TestGuardNegationSingleRelation(t *testing.T) {
	x := il.MustVariable("x", 8, -1)
	zero := il.MustConstant(8, 0)
	g := NewGuard(x, Eq, zero)
	neg, err := g.Negate()
	if err != nil {
		t.Fatalf("Negate: %v", err)
	}
	if neg.Relations[0].Code != Neq {
		t.Errorf("negation of Eq = %v, want Neq", neg.Relations[0].Code)
	}

	g2 := NewGuard(x, ULeq, zero)
	neg2, err := g2.Negate()
	if err != nil {
		t.Fatalf("Negate: %v", err)
	}
	if neg2.Relations[0].Code != UGrtr {
		t.Errorf("negation of ULeq = %v, want UGrtr", neg2.Relations[0].Code)
	}
}

func TestGuardNegationRejectsMultiRelation(t *testing.T) {
	x := il.MustVariable("x", 8, -1)
	zero := il.MustConstant(8, 0)
	g := NewGuard(x, Eq, zero).And(Relation{Code: Neq, Operand1: x, Operand2: zero})
	if _, err := g.Negate(); err == nil {
		t.Error("negating a multi-relation guard should fail")
	}
}

func TestAlwaysGuardIsEmpty(t *testing.T) {
	if len(Always().Relations) != 0 {
		t.Error("Always() should have no relations")
	}
	if Always().String() != "true" {
		t.Errorf("Always().String() = %q, want \"true\"", Always().String())
	}
}
