// Package selection implements the line/column interval comparisons of the
// GUI's text-selection object, pure data logic only (no Qt object wrapper,
// per §1's GUI exclusion): anchor/cursor endpoints, their normalized
// first/last bounds, and the includes/disjoint predicates over §8 scenario
// 6.
package selection

// ElementSelection is a continuous span of character columns across one or
// more lines, anchored at one endpoint and open at the other (the cursor).
// All lines share the same column count.
type ElementSelection struct {
	anchorLine, anchorColumn uint64
	cursorLine, cursorColumn uint64
}

// New constructs a selection spanning from (anchorLine, anchorColumn) to
// (cursorLine, cursorColumn).
func New(anchorLine, anchorColumn, cursorLine, cursorColumn uint64) ElementSelection {
	return ElementSelection{
		anchorLine: anchorLine, anchorColumn: anchorColumn,
		cursorLine: cursorLine, cursorColumn: cursorColumn,
	}
}

// AnchorLine and AnchorColumn return the selection's fixed endpoint.
func (s ElementSelection) AnchorLine() uint64   { return s.anchorLine }
func (s ElementSelection) AnchorColumn() uint64 { return s.anchorColumn }

// CursorLine and CursorColumn return the selection's moving endpoint.
func (s ElementSelection) CursorLine() uint64   { return s.cursorLine }
func (s ElementSelection) CursorColumn() uint64 { return s.cursorColumn }

// HasSelection reports whether anchor and cursor differ, i.e. the
// selection covers more than one element.
func (s ElementSelection) HasSelection() bool {
	return s.anchorLine != s.cursorLine || s.anchorColumn != s.cursorColumn
}

// SetCursor moves the cursor endpoint, leaving the anchor fixed.
func (s ElementSelection) SetCursor(line, column uint64) ElementSelection {
	s.cursorLine, s.cursorColumn = line, column
	return s
}

// FirstLine is the smaller of anchor and cursor line.
func (s ElementSelection) FirstLine() uint64 {
	if s.cursorLine < s.anchorLine {
		return s.cursorLine
	}
	return s.anchorLine
}

// FirstColumn is the column at FirstLine.
func (s ElementSelection) FirstColumn() uint64 {
	if s.cursorLine < s.anchorLine || (s.cursorLine == s.anchorLine && s.cursorColumn < s.anchorColumn) {
		return s.cursorColumn
	}
	return s.anchorColumn
}

// LastLine is the larger of anchor and cursor line.
func (s ElementSelection) LastLine() uint64 {
	if s.cursorLine > s.anchorLine {
		return s.cursorLine
	}
	return s.anchorLine
}

// LastColumn is the column at LastLine.
func (s ElementSelection) LastColumn() uint64 {
	if s.cursorLine > s.anchorLine || (s.cursorLine == s.anchorLine && s.cursorColumn > s.anchorColumn) {
		return s.cursorColumn
	}
	return s.anchorColumn
}

// Includes reports whether s entirely contains o's normalized bounds.
func (s ElementSelection) Includes(o ElementSelection) bool {
	return (o.FirstLine() > s.FirstLine() || (o.FirstLine() == s.FirstLine() && o.FirstColumn() >= s.FirstColumn())) &&
		(o.LastLine() < s.LastLine() || (o.LastLine() == s.LastLine() && o.LastColumn() <= s.LastColumn()))
}

// IncludesPoint reports whether (line, column) falls within s's bounds.
func (s ElementSelection) IncludesPoint(line, column uint64) bool {
	return ((line == s.FirstLine() || line == s.LastLine()) && column >= s.FirstColumn() && column <= s.LastColumn()) ||
		(line > s.FirstLine() && line < s.LastLine())
}

// Disjoint reports whether s and o share no element. This mirrors the
// source's comparison exactly, which is direction-sensitive (s.Disjoint(o)
// and o.Disjoint(s) can differ) rather than a symmetric interval-overlap
// test.
func (s ElementSelection) Disjoint(o ElementSelection) bool {
	return (s.LastLine() < o.FirstLine() || (s.LastLine() == o.FirstLine() && s.LastColumn() < o.FirstColumn())) &&
		(s.FirstLine() < o.LastLine() || (s.FirstLine() == o.LastLine() && s.FirstColumn() < o.LastColumn()))
}

// Equal reports whether s and o normalize to the same bounds.
func (s ElementSelection) Equal(o ElementSelection) bool {
	return s.FirstColumn() == o.FirstColumn() && s.LastColumn() == o.LastColumn() &&
		s.FirstLine() == o.FirstLine() && s.LastLine() == o.LastLine()
}
