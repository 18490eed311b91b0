// Package store provides durable UUID identity and journaled marshaling for
// the core's mutable entities (§4.8). Entities are referenced through
// owning or weak handles; mutations are staged in a per-store dirty set and
// only reach a backing Storage at an explicit save point.
package store

import "github.com/google/uuid"

// Term is one RDF-style triple term: either a URI reference or a literal
// lexical value.
type Term struct {
	Literal bool
	Value   string
}

// URI builds a URI-reference term.
func URI(v string) Term { return Term{Value: v} }

// Lit builds a literal term.
func Lit(v string) Term { return Term{Literal: true, Value: v} }

func (t Term) String() string {
	if t.Literal {
		return `"` + t.Value + `"`
	}
	return "<" + t.Value + ">"
}

// Triple is one (subject, predicate, object) statement over an entity's
// UUID, mirroring the source's RDF statements without binding to any
// particular RDF library (§4.8, §6).
type Triple struct {
	Subject   uuid.UUID
	Predicate string
	Object    Term
}

// Archive is the unit the core produces when marshaling an entity: a set of
// triples describing it plus any content-addressed binary blobs it owns
// (§4.8's "core only produces archives").
type Archive struct {
	Triples []Triple
	Blobs   map[uuid.UUID][]byte
}

// Merge returns a new Archive containing both a's and b's triples and blobs.
func (a Archive) Merge(b Archive) Archive {
	out := Archive{
		Triples: make([]Triple, 0, len(a.Triples)+len(b.Triples)),
		Blobs:   make(map[uuid.UUID][]byte, len(a.Blobs)+len(b.Blobs)),
	}
	out.Triples = append(out.Triples, a.Triples...)
	out.Triples = append(out.Triples, b.Triples...)
	for k, v := range a.Blobs {
		out.Blobs[k] = v
	}
	for k, v := range b.Blobs {
		out.Blobs[k] = v
	}
	return out
}
