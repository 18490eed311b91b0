package disasm

import "testing"

func TestTerminalCapturesBits(t *testing.T) {
	r := MustTerminal(8, "0011wwww")
	m, ok := r([]uint64{0x37}, 0, nil) // 0011 0111
	if !ok {
		t.Fatal("expected match")
	}
	if m.Caps["w"] != 0x7 {
		t.Errorf("capture w = %#x, want 0x7", m.Caps["w"])
	}
	if m.Pos != 1 {
		t.Errorf("Pos = %d, want 1", m.Pos)
	}
}

func TestTerminalRejectsMismatch(t *testing.T) {
	r := MustTerminal(8, "00000000")
	if _, ok := r([]uint64{0xFF}, 0, nil); ok {
		t.Error("expected no match")
	}
}

func TestSeqChainsCaptures(t *testing.T) {
	r := Seq(MustTerminal(4, "00aa"), MustTerminal(4, "aa00"))
	m, ok := r([]uint64{0b0010, 0b1000}, 0, nil)
	if !ok {
		t.Fatal("expected match")
	}
	// first terminal captures low 2 bits of token0 (10 -> 2), second
	// terminal captures high 2 bits of token1 (10 -> 2), concatenated
	// left-to-right: 2<<2 | 2 == 0b1010 == 10.
	if m.Caps["a"] != 0b1010 {
		t.Errorf("Caps[a] = %#b, want 0b1010", m.Caps["a"])
	}
}

func TestAltFirstMatchWins(t *testing.T) {
	always := Literal(8, 0x00)
	never := Literal(8, 0xFF)
	r := Alt(never, always)
	if _, ok := r([]uint64{0x00}, 0, nil); !ok {
		t.Error("Alt should fall through to the second rule")
	}
}

func TestStarGreedy(t *testing.T) {
	zero := Literal(8, 0x00)
	r := Star(zero).Then(Literal(8, 0xFF))
	m, ok := r([]uint64{0x00, 0x00, 0xFF}, 0, nil)
	if !ok || m.Pos != 3 {
		t.Fatalf("Star+terminator: m=%+v ok=%v", m, ok)
	}
}
