package il

import "testing"

func TestConstantMasksContent(t *testing.T) {
	v, err := Constant(4, 0x1F)
	if err != nil {
		t.Fatalf("Constant: %v", err)
	}
	if v.Content() != 0xF {
		t.Errorf("content = 0x%x, want 0xf", v.Content())
	}
}

func TestConstantZeroWidthFails(t *testing.T) {
	if _, err := Constant(0, 1); err == nil {
		t.Error("Constant(0, 1) should fail")
	}
}

func TestVariableValidation(t *testing.T) {
	cases := []struct {
		name  string
		width uint
		sub   int
		ok    bool
	}{
		{"eax", 32, -1, true},
		{"eax", 32, 0, true},
		{"", 32, -1, false},
		{"eax", 0, -1, false},
		{"eax", 256, -1, false},
		{"eax", 32, -2, false},
	}
	for _, c := range cases {
		_, err := Variable(c.name, c.width, c.sub)
		if (err == nil) != c.ok {
			t.Errorf("Variable(%q,%d,%d): err=%v, want ok=%v", c.name, c.width, c.sub, err, c.ok)
		}
	}
}

func TestMemorySelfReferenceRejected(t *testing.T) {
	v := MustVariable("x", 16, -1)
	m1, err := Memory(v, 1, Little, "ram")
	if err != nil {
		t.Fatalf("Memory: %v", err)
	}
	if _, err := Memory(m1, 1, Little, "ram"); err == nil {
		t.Error("Memory offset referencing its own bank should fail")
	}
	// A different bank is fine.
	if _, err := Memory(m1, 1, Little, "io"); err != nil {
		t.Errorf("Memory with distinct bank should succeed: %v", err)
	}
}

func TestMemoryValidation(t *testing.T) {
	v := MustVariable("x", 16, -1)
	if _, err := Memory(v, 0, Little, "ram"); err == nil {
		t.Error("bytes=0 should fail")
	}
	if _, err := Memory(v, 1, Little, ""); err == nil {
		t.Error("empty bank should fail")
	}
}

func TestValueEqualReflexive(t *testing.T) {
	values := []Value{
		Undefined(),
		MustConstant(8, 42),
		MustVariable("x", 8, -1),
		MustVariable("x", 8, 3),
		MustMemory(MustConstant(16, 0x100), 2, Big, "ram"),
	}
	for _, v := range values {
		if !v.Equal(v) {
			t.Errorf("%v is not self-equal", v)
		}
		if v.Hash() != v.Hash() {
			t.Errorf("%v hash unstable across re-hash", v)
		}
	}
}

func TestValueEqualDistinguishesCases(t *testing.T) {
	a := MustConstant(8, 1)
	b := MustVariable("a", 8, -1)
	if a.Equal(b) {
		t.Error("Constant should not equal Variable with coincidentally matching width")
	}
}

func TestWithSubscript(t *testing.T) {
	v := MustVariable("x", 8, SubscriptPreSSA)
	v2 := v.WithSubscript(3)
	if v2.Subscript() != 3 {
		t.Errorf("subscript = %d, want 3", v2.Subscript())
	}
	if v.Subscript() != SubscriptPreSSA {
		t.Error("WithSubscript mutated the receiver")
	}
}
