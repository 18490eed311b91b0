// Package disasm implements the recursive disassembler engine of §4.3: a
// token-pattern grammar (terminal/sequence/alternation/option), a code
// generator for emitting IL instructions, and the procedure/program-level
// worklist driver that turns a region and an architecture's rule table into
// a code.Program.
package disasm

import (
	"fmt"
	"strings"

	"github.com/das-labor/panopticon-sub002/perr"
)

// Match is the state threaded through a successful pattern match: the next
// token position and the named capture-groups accumulated so far.
type Match struct {
	Pos  int
	Caps map[string]uint64
}

func cloneCaps(in map[string]uint64) map[string]uint64 {
	out := make(map[string]uint64, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

// Rule is a pattern over a token stream (§4.3). Rules are built from
// Terminal, Seq (or Rule.Then), Alt, and Star, and are themselves plain
// functions so they compose without any further machinery.
type Rule func(tokens []uint64, pos int, caps map[string]uint64) (Match, bool)

// Then sequences r followed by q: "p >> q" in the source's token_expr
// grammar (disassembler.cc).
func (r Rule) Then(q Rule) Rule {
	return func(tokens []uint64, pos int, caps map[string]uint64) (Match, bool) {
		m1, ok := r(tokens, pos, caps)
		if !ok {
			return Match{}, false
		}
		return q(tokens, m1.Pos, m1.Caps)
	}
}

// Seq is the free-function form of Then, convenient for chaining more than
// two rules: Seq(a, b, c).
func Seq(rules ...Rule) Rule {
	if len(rules) == 0 {
		return func(tokens []uint64, pos int, caps map[string]uint64) (Match, bool) {
			return Match{Pos: pos, Caps: caps}, true
		}
	}
	r := rules[0]
	for _, next := range rules[1:] {
		r = r.Then(next)
	}
	return r
}

// Alt tries p first; on failure it retries q against the original position
// and captures ("first match wins in declaration order", §4.3).
func Alt(p, q Rule) Rule {
	return func(tokens []uint64, pos int, caps map[string]uint64) (Match, bool) {
		if m, ok := p(tokens, pos, caps); ok {
			return m, true
		}
		return q(tokens, pos, caps)
	}
}

// AnyOf folds Alt over rules in order, so the first rule that matches wins.
func AnyOf(rules ...Rule) Rule {
	if len(rules) == 0 {
		return func(tokens []uint64, pos int, caps map[string]uint64) (Match, bool) { return Match{}, false }
	}
	r := rules[0]
	for _, next := range rules[1:] {
		r = Alt(r, next)
	}
	return r
}

// Star matches zero or more repetitions of p, greedily (§4.3's "*p").
func Star(p Rule) Rule {
	return func(tokens []uint64, pos int, caps map[string]uint64) (Match, bool) {
		cur := Match{Pos: pos, Caps: caps}
		for {
			next, ok := p(tokens, cur.Pos, cur.Caps)
			if !ok || next.Pos == cur.Pos {
				break
			}
			cur = next
		}
		return cur, true
	}
}

// Terminal builds a rule matching a single token of the given bit width
// against pattern, a string of '0'/'1' literal bits and lowercase letters
// naming capture-group bits, read most-significant-bit first (§4.3). Each
// occurrence of a capture letter shifts its accumulated value left by one
// bit and ORs in the observed bit, so repeated letters within or across
// terminals concatenate in left-to-right order.
func Terminal(width uint, pattern string) (Rule, error) {
	if uint(len(pattern)) != width {
		return nil, perr.New(perr.DisassemblyFailure,
			fmt.Sprintf("terminal pattern %q has length %d, want width %d", pattern, len(pattern), width))
	}
	for _, c := range pattern {
		if c != '0' && c != '1' && !(c >= 'a' && c <= 'z') {
			return nil, perr.New(perr.DisassemblyFailure, fmt.Sprintf("terminal pattern %q has invalid character %q", pattern, c))
		}
	}
	return func(tokens []uint64, pos int, caps map[string]uint64) (Match, bool) {
		if pos >= len(tokens) {
			return Match{}, false
		}
		tok := tokens[pos]
		next := cloneCaps(caps)
		for i, c := range pattern {
			bitPos := width - 1 - uint(i)
			bit := (tok >> bitPos) & 1
			switch {
			case c == '0':
				if bit != 0 {
					return Match{}, false
				}
			case c == '1':
				if bit != 1 {
					return Match{}, false
				}
			default:
				name := string(c)
				next[name] = next[name]<<1 | bit
			}
		}
		return Match{Pos: pos + 1, Caps: next}, true
	}, nil
}

// MustTerminal is Terminal's panicking form, for architecture tables built
// from literal constants.
func MustTerminal(width uint, pattern string) Rule {
	r, err := Terminal(width, pattern)
	if err != nil {
		panic(err)
	}
	return r
}

// Terminal8Capture builds an 8-bit terminal that captures the whole token
// under name, unconstrained — the common "next byte is an operand" case.
func Terminal8Capture(name string) Rule {
	if len(name) != 1 || name[0] < 'a' || name[0] > 'z' {
		panic("disasm: capture name must be a single lowercase letter")
	}
	return MustTerminal(8, strings.Repeat(name, 8))
}

// Literal matches a single token of the given width against an exact value.
func Literal(width uint, value uint64) Rule {
	mask := uint64(1)<<width - 1
	value &= mask
	return func(tokens []uint64, pos int, caps map[string]uint64) (Match, bool) {
		if pos >= len(tokens) || tokens[pos]&mask != value {
			return Match{}, false
		}
		return Match{Pos: pos + 1, Caps: caps}, true
	}
}
