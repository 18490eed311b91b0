package selection

import "testing"

func TestBoundsNormalizeAcrossLines(t *testing.T) {
	s := New(2, 5, 4, 1)
	if s.FirstLine() != 2 || s.FirstColumn() != 5 {
		t.Errorf("first = (%d,%d), want (2,5)", s.FirstLine(), s.FirstColumn())
	}
	if s.LastLine() != 4 || s.LastColumn() != 1 {
		t.Errorf("last = (%d,%d), want (4,1)", s.LastLine(), s.LastColumn())
	}
}

func TestHasSelection(t *testing.T) {
	if New(3, 3, 3, 3).HasSelection() {
		t.Error("anchor == cursor should not have a selection")
	}
	if !New(3, 3, 3, 4).HasSelection() {
		t.Error("anchor != cursor should have a selection")
	}
}

// TestDisjointSelections reproduces §8 scenario 6.
func TestDisjointSelections(t *testing.T) {
	s1 := New(2, 5, 4, 1)
	s2 := New(0, 0, 1, 3)

	if !s2.Disjoint(s1) {
		t.Error("s2.Disjoint(s1) should be true: s2 entirely precedes s1")
	}
	if s1.Includes(s2) {
		t.Error("s1 should not include s2")
	}
	if s2.Includes(s1) {
		t.Error("s2 should not include s1")
	}
}

func TestIncludesPoint(t *testing.T) {
	s := New(1, 2, 3, 4)
	if !s.IncludesPoint(2, 0) {
		t.Error("a fully-interior line should be included at any column")
	}
	if s.IncludesPoint(1, 1) {
		t.Error("column before FirstColumn on the first line should not be included")
	}
	if !s.IncludesPoint(1, 2) {
		t.Error("FirstColumn on the first line should be included")
	}
	if s.IncludesPoint(3, 5) {
		t.Error("column after LastColumn on the last line should not be included")
	}
	if s.IncludesPoint(0, 3) {
		t.Error("line before FirstLine should not be included")
	}
}

func TestSetCursorMovesEndpoint(t *testing.T) {
	s := New(1, 1, 1, 1)
	s = s.SetCursor(5, 6)
	if s.CursorLine() != 5 || s.CursorColumn() != 6 {
		t.Errorf("cursor = (%d,%d), want (5,6)", s.CursorLine(), s.CursorColumn())
	}
	if s.AnchorLine() != 1 || s.AnchorColumn() != 1 {
		t.Error("SetCursor must not move the anchor")
	}
}
