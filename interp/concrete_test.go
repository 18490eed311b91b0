package interp_test

import (
	"testing"

	"github.com/das-labor/panopticon-sub002/il"
	"github.com/das-labor/panopticon-sub002/interp"
)

func TestEvalArithmetic(t *testing.T) {
	cases := []struct {
		sym   il.Symbol
		width uint
		args  []uint64
		want  uint64
	}{
		{il.SymAdd, 8, []uint64{250, 10}, 4}, // wraps mod 256
		{il.SymSub, 8, []uint64{2, 5}, 253},
		{il.SymAnd, 8, []uint64{0xf0, 0x3c}, 0x30},
		{il.SymUShl, 8, []uint64{1, 4}, 16},
		{il.SymEqual, 8, []uint64{7, 7}, 1},
		{il.SymLess, 8, []uint64{3, 7}, 1},
	}
	for _, c := range cases {
		got, ok := interp.Eval(c.sym, c.width, c.args)
		if !ok {
			t.Fatalf("Eval(%s, %v) reported unsupported", c.sym, c.args)
		}
		if got != c.want {
			t.Errorf("Eval(%s, %v) = %d, want %d", c.sym, c.args, got, c.want)
		}
	}
}

func TestEvalDivisionByZeroUnsupported(t *testing.T) {
	if _, ok := interp.Eval(il.SymUDiv, 8, []uint64{5, 0}); ok {
		t.Error("Eval(udiv, [5,0]) should report unsupported, not a bogus quotient")
	}
}

var _ interp.Lattice = interp.SSCP{}
var _ interp.Lattice = interp.ConcreteLattice{}
