package code

import (
	"fmt"

	"github.com/das-labor/panopticon-sub002/perr"
	"github.com/das-labor/panopticon-sub002/region"
)

// BasicBlock is a span of mnemonics executed in sequence: all its mnemonics
// occupy one contiguous, non-overlapping area and only the last may carry
// outgoing control-transfer edges (§4.3 step 4, basic_block.hh).
type BasicBlock struct {
	mnemonics []Mnemonic
	area      region.Range
}

// NewBasicBlock builds a block from mnemonics already in increasing,
// abutting address order, as the disassembler driver accumulates them
// (§4.3 step 4). An empty block is valid and has a zero-length area.
func NewBasicBlock(mnemonics []Mnemonic) (*BasicBlock, error) {
	bb := &BasicBlock{mnemonics: append([]Mnemonic(nil), mnemonics...)}
	if len(bb.mnemonics) == 0 {
		return bb, nil
	}
	bb.area = region.Range{Begin: bb.mnemonics[0].Area.Begin, End: bb.mnemonics[0].Area.End}
	for i := 1; i < len(bb.mnemonics); i++ {
		prev := bb.mnemonics[i-1].Area
		cur := bb.mnemonics[i].Area
		if cur.Begin != prev.End {
			return nil, perr.New(perr.IllFormedInstruction,
				fmt.Sprintf("basic block mnemonics must abut: %s then %s", prev, cur))
		}
		bb.area.End = cur.End
	}
	return bb, nil
}

// Area returns the block's covering range, the union of all its mnemonics'
// areas.
func (b *BasicBlock) Area() region.Range { return b.area }

// Mnemonics returns the block's mnemonics in address order.
func (b *BasicBlock) Mnemonics() []Mnemonic {
	out := make([]Mnemonic, len(b.mnemonics))
	copy(out, b.mnemonics)
	return out
}

// SplitAt divides b into two blocks at offset, which must fall strictly
// inside b's area and on a mnemonic boundary: the first retains mnemonics
// up to offset, the second the rest (§4.3 step 5, "the overlap point
// becomes a new block boundary").
func (b *BasicBlock) SplitAt(offset int64) (*BasicBlock, *BasicBlock, error) {
	if offset <= b.area.Begin || offset >= b.area.End {
		return nil, nil, perr.New(perr.IllFormedInstruction,
			fmt.Sprintf("split offset %d outside block interior %s", offset, b.area))
	}
	var left, right []Mnemonic
	for _, m := range b.mnemonics {
		if m.Area.Begin < offset {
			left = append(left, m)
		} else if m.Area.Begin >= offset {
			right = append(right, m)
		}
	}
	if len(left) == 0 || len(right) == 0 || right[0].Area.Begin != offset {
		return nil, nil, perr.New(perr.IllFormedInstruction,
			fmt.Sprintf("split offset %d does not land on a mnemonic boundary in %s", offset, b.area))
	}
	lb, err := NewBasicBlock(left)
	if err != nil {
		return nil, nil, err
	}
	rb, err := NewBasicBlock(right)
	if err != nil {
		return nil, nil, err
	}
	return lb, rb, nil
}

func (b *BasicBlock) String() string {
	return fmt.Sprintf("bblock%s (%d mnemonics)", b.area, len(b.mnemonics))
}
