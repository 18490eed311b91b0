package disasm

import (
	"fmt"

	"github.com/das-labor/panopticon-sub002/code"
	"github.com/das-labor/panopticon-sub002/il"
	"github.com/das-labor/panopticon-sub002/perr"
	"github.com/das-labor/panopticon-sub002/region"
)

// Tokens extracts a token stream from slab, one token per tokenWidth/8
// bytes, most-significant byte first. tokenWidth must be a positive
// multiple of 8.
func Tokens(slab region.Slab, tokenWidth uint) ([]uint64, error) {
	if tokenWidth == 0 || tokenWidth%8 != 0 {
		return nil, perr.New(perr.DisassemblyFailure, fmt.Sprintf("token width %d is not a positive multiple of 8", tokenWidth))
	}
	step := int64(tokenWidth / 8)
	n := slab.Len() / step
	tokens := make([]uint64, 0, n)
	for off := int64(0); off+step <= slab.Len(); off += step {
		var tok uint64
		for k := int64(0); k < step; k++ {
			t := slab.At(off + k)
			tok = tok<<8 | uint64(t.B)
		}
		tokens = append(tokens, tok)
	}
	return tokens, nil
}

// DisassembleProcedure runs the worklist algorithm of §4.3 starting at
// entry: collect mnemonics into a basic block until one ends the block
// (registers a jump or calls Terminate), follow constant jump targets as
// new blocks within the same procedure (splitting an existing block if the
// target lands in its interior), and record symbolic targets as Unresolved
// vertices. tokenWidth/8 is the byte stride between a token offset and the
// next.
func DisassembleProcedure(d *Disassembler, tokens []uint64, entry int64, name string) (*code.Procedure, error) {
	proc := code.NewProcedure(name)
	proc.SetEntry(entry)
	stride := int64(d.TokenWidth / 8)
	if stride == 0 {
		stride = 1
	}
	counter := new(int64)

	worklist := []int64{entry}
	visited := map[int64]bool{}

	for len(worklist) > 0 {
		start := worklist[0]
		worklist = worklist[1:]
		if visited[start] {
			continue
		}
		if existing, ok := proc.FindBlockContaining(start); ok {
			if existing.Area().Begin == start {
				continue
			}
			left, right, err := existing.SplitAt(start)
			if err != nil {
				return nil, perr.Wrap(perr.DisassemblyFailure, fmt.Sprintf("splitting block at %d", start), err)
			}
			proc.RemoveBlock(existing.Area().Begin)
			if err := proc.AddBlock(left); err != nil {
				return nil, err
			}
			if err := proc.AddBlock(right); err != nil {
				return nil, err
			}
			proc.AddEdge(code.Block(left.Area().Begin), code.Block(right.Area().Begin), code.Always())
			visited[start] = true
			continue
		}

		mnemonics, jumps, err := decodeBlock(d, tokens, start, stride, counter)
		if err != nil {
			return nil, err
		}
		if len(mnemonics) == 0 {
			continue
		}
		bb, err := code.NewBasicBlock(mnemonics)
		if err != nil {
			return nil, err
		}
		if err := proc.AddBlock(bb); err != nil {
			return nil, err
		}
		visited[start] = true

		for _, j := range jumps {
			from := code.Block(bb.Area().Begin)
			if j.Target.Kind() == il.KindConstant {
				target := int64(j.Target.Content())
				proc.AddEdge(from, code.Block(target), code.Always())
				worklist = append(worklist, target)
			} else {
				proc.AddEdge(from, code.Unresolved(j.Target), code.Always())
			}
		}
	}
	return proc, nil
}

// decodeBlock runs Step repeatedly from start until a mnemonic ends the
// block or the token stream can no longer satisfy any binding.
func decodeBlock(d *Disassembler, tokens []uint64, start int64, stride int64, counter *int64) ([]code.Mnemonic, []Jump, error) {
	var mnemonics []code.Mnemonic
	var jumps []Jump
	pos := int(start / stride)
	offset := start

	for {
		state, consumed, ok := d.Step(tokens, pos, counter)
		if !ok {
			break
		}
		area := region.Range{Begin: offset, End: offset + int64(consumed)*stride}
		mn, err := code.NewMnemonic(area, state.Mnemonic, state.Format, state.Operands, state.Code.Instructions())
		if err != nil {
			return nil, nil, err
		}
		mnemonics = append(mnemonics, mn)
		pos += consumed
		offset = area.End
		if state.EndsBlock() {
			jumps = state.Jumps()
			break
		}
	}
	if len(mnemonics) == 0 {
		return nil, nil, nil
	}
	return mnemonics, jumps, nil
}

// Disassemble runs DisassembleProcedure at entry and then repeatedly
// extends the program by disassembling every constant call target
// discovered via code.CollectCalls, until no new procedure is reached —
// the program-level extension of §4.3's per-procedure worklist.
func Disassemble(d *Disassembler, tokens []uint64, entry int64, prog *code.Program) error {
	pending := []int64{entry}
	for len(pending) > 0 {
		e := pending[0]
		pending = pending[1:]
		if prog.HasProcedure(e) {
			continue
		}
		proc, err := DisassembleProcedure(d, tokens, e, code.UniqueName(e))
		if err != nil {
			return err
		}
		if err := prog.AddProcedure(proc); err != nil {
			return err
		}
		for _, target := range code.CollectCalls(proc) {
			prog.AddCallEdge(code.ProcedureVertex(e), code.ProcedureVertex(target))
			if !prog.HasProcedure(target) {
				pending = append(pending, target)
			}
		}
	}
	return nil
}
