package code

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/das-labor/panopticon-sub002/il"
	"github.com/das-labor/panopticon-sub002/perr"
	"github.com/das-labor/panopticon-sub002/region"
	"github.com/das-labor/panopticon-sub002/store"
)

// encodeMnemonicFields flattens m into predicate->literal pairs, shared by
// MarshalMnemonic (which writes them under the mnemonic's own subject) and
// MarshalBasicBlock (which prefixes them per mnemonic index under the
// block's subject) — §8's "round-trips through marshal/unmarshal" applies
// to both.
func encodeMnemonicFields(m Mnemonic) map[string]string {
	fields := map[string]string{
		"area.begin":    strconv.FormatInt(m.Area.Begin, 10),
		"area.end":      strconv.FormatInt(m.Area.End, 10),
		"opcode":        m.Opcode,
		"format":        m.FormatString,
		"noperands":     strconv.Itoa(len(m.Operands)),
		"ninstructions": strconv.Itoa(len(m.Instructions)),
	}
	for i, op := range m.Operands {
		fields[fmt.Sprintf("operand.%d", i)] = il.EncodeValue(op)
	}
	for i, instr := range m.Instructions {
		fields[fmt.Sprintf("instr.%d", i)] = il.EncodeInstruction(instr)
	}
	return fields
}

func decodeMnemonicFields(fields map[string]string) (Mnemonic, error) {
	begin, err := strconv.ParseInt(fields["area.begin"], 10, 64)
	if err != nil {
		return Mnemonic{}, perr.Wrap(perr.SchemaMismatch, "mnemonic area.begin", err)
	}
	end, err := strconv.ParseInt(fields["area.end"], 10, 64)
	if err != nil {
		return Mnemonic{}, perr.Wrap(perr.SchemaMismatch, "mnemonic area.end", err)
	}
	nOperands, err := strconv.Atoi(fields["noperands"])
	if err != nil {
		return Mnemonic{}, perr.Wrap(perr.SchemaMismatch, "mnemonic noperands", err)
	}
	nInstrs, err := strconv.Atoi(fields["ninstructions"])
	if err != nil {
		return Mnemonic{}, perr.Wrap(perr.SchemaMismatch, "mnemonic ninstructions", err)
	}
	operands := make([]il.Value, nOperands)
	for i := range operands {
		v, err := il.DecodeValue(fields[fmt.Sprintf("operand.%d", i)])
		if err != nil {
			return Mnemonic{}, err
		}
		operands[i] = v
	}
	instrs := make([]il.Instruction, nInstrs)
	for i := range instrs {
		instr, err := il.DecodeInstruction(fields[fmt.Sprintf("instr.%d", i)])
		if err != nil {
			return Mnemonic{}, err
		}
		instrs[i] = instr
	}
	return NewMnemonic(region.Range{Begin: begin, End: end}, fields["opcode"], fields["format"], operands, instrs)
}

// MarshalMnemonic implements store.Marshal[Mnemonic].
func MarshalMnemonic(id uuid.UUID, m *Mnemonic) (store.Archive, error) {
	fields := encodeMnemonicFields(*m)
	triples := make([]store.Triple, 0, len(fields))
	for pred, val := range fields {
		triples = append(triples, store.Triple{Subject: id, Predicate: pred, Object: store.Lit(val)})
	}
	return store.Archive{Triples: triples}, nil
}

// UnmarshalMnemonic implements store.Unmarshal[Mnemonic].
func UnmarshalMnemonic(id uuid.UUID, s store.Storage) (*Mnemonic, error) {
	triples, err := s.Select(id)
	if err != nil {
		return nil, err
	}
	fields := make(map[string]string, len(triples))
	for _, t := range triples {
		fields[t.Predicate] = t.Object.Value
	}
	mn, err := decodeMnemonicFields(fields)
	if err != nil {
		return nil, err
	}
	return &mn, nil
}

// MarshalBasicBlock implements store.Marshal[BasicBlock].
func MarshalBasicBlock(id uuid.UUID, bb *BasicBlock) (store.Archive, error) {
	mnemonics := bb.Mnemonics()
	triples := []store.Triple{
		{Subject: id, Predicate: "nmnemonics", Object: store.Lit(strconv.Itoa(len(mnemonics)))},
	}
	for i, m := range mnemonics {
		prefix := fmt.Sprintf("mnemonic.%d.", i)
		for pred, val := range encodeMnemonicFields(m) {
			triples = append(triples, store.Triple{Subject: id, Predicate: prefix + pred, Object: store.Lit(val)})
		}
	}
	return store.Archive{Triples: triples}, nil
}

// UnmarshalBasicBlock implements store.Unmarshal[BasicBlock].
func UnmarshalBasicBlock(id uuid.UUID, s store.Storage) (*BasicBlock, error) {
	triples, err := s.Select(id)
	if err != nil {
		return nil, err
	}
	flat := make(map[string]string, len(triples))
	for _, t := range triples {
		flat[t.Predicate] = t.Object.Value
	}
	n, err := strconv.Atoi(flat["nmnemonics"])
	if err != nil {
		return nil, perr.Wrap(perr.SchemaMismatch, "basic block nmnemonics", err)
	}
	mnemonics := make([]Mnemonic, n)
	for i := 0; i < n; i++ {
		prefix := fmt.Sprintf("mnemonic.%d.", i)
		fields := map[string]string{}
		for pred, val := range flat {
			if rest, ok := strings.CutPrefix(pred, prefix); ok {
				fields[rest] = val
			}
		}
		mn, err := decodeMnemonicFields(fields)
		if err != nil {
			return nil, err
		}
		mnemonics[i] = mn
	}
	return NewBasicBlock(mnemonics)
}

// encodeGuard and decodeGuard round-trip a Guard's relation list.
// Relations are separated by ';' because il.EncodeValue itself uses '|'.
func encodeGuard(g Guard) string {
	parts := make([]string, len(g.Relations))
	for i, r := range g.Relations {
		parts[i] = fmt.Sprintf("%d~%s~%s", r.Code, il.EncodeValue(r.Operand1), il.EncodeValue(r.Operand2))
	}
	return strings.Join(parts, ";")
}

func decodeGuard(s string) (Guard, error) {
	if s == "" {
		return Always(), nil
	}
	parts := strings.Split(s, ";")
	rels := make([]Relation, len(parts))
	for i, p := range parts {
		fields := strings.Split(p, "~")
		if len(fields) != 3 {
			return Guard{}, perr.New(perr.SchemaMismatch, fmt.Sprintf("malformed relation %q", p))
		}
		code, err := strconv.Atoi(fields[0])
		if err != nil {
			return Guard{}, perr.Wrap(perr.SchemaMismatch, "relation code", err)
		}
		op1, err := il.DecodeValue(fields[1])
		if err != nil {
			return Guard{}, err
		}
		op2, err := il.DecodeValue(fields[2])
		if err != nil {
			return Guard{}, err
		}
		rels[i] = Relation{Code: Relcode(code), Operand1: op1, Operand2: op2}
	}
	return Guard{Relations: rels}, nil
}

// MarshalGuard implements store.Marshal[Guard].
func MarshalGuard(id uuid.UUID, g *Guard) (store.Archive, error) {
	return store.Archive{Triples: []store.Triple{
		{Subject: id, Predicate: "relations", Object: store.Lit(encodeGuard(*g))},
	}}, nil
}

// UnmarshalGuard implements store.Unmarshal[Guard].
func UnmarshalGuard(id uuid.UUID, s store.Storage) (*Guard, error) {
	triples, err := s.Select(id)
	if err != nil {
		return nil, err
	}
	var encoded string
	for _, t := range triples {
		if t.Predicate == "relations" {
			encoded = t.Object.Value
		}
	}
	g, err := decodeGuard(encoded)
	if err != nil {
		return nil, err
	}
	return &g, nil
}
