// Package code implements the mnemonic, basic-block, procedure, and program
// layer described in §4.2/§4.3/§4.6: the structures the disassembler (see
// package disasm) emits into and the call-graph driver walks.
package code

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/das-labor/panopticon-sub002/il"
	"github.com/das-labor/panopticon-sub002/perr"
	"github.com/das-labor/panopticon-sub002/region"
)

// Token is one parsed element of a mnemonic's format string: either a
// literal run of text or a placeholder bound to one operand (§4.2).
type Token struct {
	Literal bool
	Text    string // literal text, when Literal is true
	Width   uint   // operand bit width, when Literal is false
	Signed  bool
	Alias   string
}

// ParseFormat parses a format string of the form described in §4.2:
// verbatim text interspersed with '{' Width (':' Modifiers (':' Alias)? )? '}'
// placeholders, where Modifiers containing '-' marks a signed operand.
func ParseFormat(format string) ([]Token, error) {
	var toks []Token
	var lit strings.Builder
	flush := func() {
		if lit.Len() > 0 {
			toks = append(toks, Token{Literal: true, Text: lit.String()})
			lit.Reset()
		}
	}
	i := 0
	for i < len(format) {
		if format[i] != '{' {
			lit.WriteByte(format[i])
			i++
			continue
		}
		end := strings.IndexByte(format[i:], '}')
		if end < 0 {
			return nil, perr.New(perr.IllFormedInstruction, fmt.Sprintf("unterminated format token in %q", format))
		}
		flush()
		tok, err := parsePlaceholder(format[i+1 : i+end])
		if err != nil {
			return nil, err
		}
		toks = append(toks, tok)
		i += end + 1
	}
	flush()
	return toks, nil
}

func parsePlaceholder(inner string) (Token, error) {
	parts := strings.SplitN(inner, ":", 3)
	width, err := strconv.ParseUint(parts[0], 10, 32)
	if err != nil {
		return Token{}, perr.Wrap(perr.IllFormedInstruction, fmt.Sprintf("format token width %q", parts[0]), err)
	}
	tok := Token{Width: uint(width)}
	if len(parts) > 1 {
		tok.Signed = strings.Contains(parts[1], "-")
	}
	if len(parts) > 2 {
		tok.Alias = parts[2]
	}
	return tok, nil
}

// OperandSlots counts the non-literal placeholders in a parsed format.
func OperandSlots(toks []Token) int {
	n := 0
	for _, t := range toks {
		if !t.Literal {
			n++
		}
	}
	return n
}

// Mnemonic groups IL instructions encoding one native opcode's semantics,
// along with display metadata (§4.2).
type Mnemonic struct {
	Area         region.Range
	Opcode       string
	FormatString string
	Format       []Token
	Operands     []il.Value
	Instructions []il.Instruction
}

// NewMnemonic parses format and validates that the operand count matches
// the number of placeholder tokens, per §4.2.
func NewMnemonic(area region.Range, opcode, format string, operands []il.Value, instrs []il.Instruction) (Mnemonic, error) {
	toks, err := ParseFormat(format)
	if err != nil {
		return Mnemonic{}, err
	}
	if want := OperandSlots(toks); want != len(operands) {
		return Mnemonic{}, perr.New(perr.IllFormedInstruction,
			fmt.Sprintf("mnemonic %s: format %q wants %d operands, got %d", opcode, format, want, len(operands)))
	}
	ops := make([]il.Value, len(operands))
	copy(ops, operands)
	ins := make([]il.Instruction, len(instrs))
	copy(ins, instrs)
	return Mnemonic{
		Area:         area,
		Opcode:       opcode,
		FormatString: format,
		Format:       toks,
		Operands:     ops,
		Instructions: ins,
	}, nil
}

// FormatOperands renders the mnemonic's operands into its format string,
// substituting each placeholder with the String() of the corresponding
// operand in left-to-right order.
func (m Mnemonic) FormatOperands() string {
	var sb strings.Builder
	opIdx := 0
	for _, t := range m.Format {
		if t.Literal {
			sb.WriteString(t.Text)
			continue
		}
		if opIdx < len(m.Operands) {
			sb.WriteString(m.Operands[opIdx].String())
			opIdx++
		}
	}
	return sb.String()
}

func (m Mnemonic) String() string {
	return fmt.Sprintf("%s %s", m.Opcode, m.FormatOperands())
}
