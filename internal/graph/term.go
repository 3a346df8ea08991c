// Copyright 2025 Lincoln Institute of Land Policy
// SPDX-License-Identifier: Apache-2.0

package graph

import (
	"fmt"
	"strings"
)

type TermKind int

const (
	IRIKind TermKind = iota
	BlankKind
	LiteralKind
)

func (k TermKind) String() string {
	switch k {
	case IRIKind:
		return "IRI"
	case BlankKind:
		return "BlankNode"
	case LiteralKind:
		return "Literal"
	default:
		return fmt.Sprintf("TermKind(%d)", int(k))
	}
}

// A single RDF term. Literals typed as xsd:string are stored
// with an empty datatype so that `"a"` and `"a"^^xsd:string`
// compare equal, and language tags are lower cased
type Term struct {
	Kind     TermKind
	Value    string
	Datatype string
	Lang     string
}

func NewIRI(iri string) Term {
	return Term{Kind: IRIKind, Value: iri}
}

// NewBlank returns a blank node; a leading `_:` is stripped
func NewBlank(id string) Term {
	return Term{Kind: BlankKind, Value: strings.TrimPrefix(id, "_:")}
}

func NewLiteral(value string) Term {
	return Term{Kind: LiteralKind, Value: value}
}

func NewTypedLiteral(value, datatype string) Term {
	if datatype == XSDString || datatype == RDFLangString {
		datatype = ""
	}
	return Term{Kind: LiteralKind, Value: value, Datatype: datatype}
}

func NewLangLiteral(value, lang string) Term {
	return Term{Kind: LiteralKind, Value: value, Lang: strings.ToLower(lang)}
}

func (t Term) IsIRI() bool     { return t.Kind == IRIKind && t.Value != "" }
func (t Term) IsBlank() bool   { return t.Kind == BlankKind }
func (t Term) IsLiteral() bool { return t.Kind == LiteralKind }

// IsZero reports whether the term is unset
func (t Term) IsZero() bool {
	return t == Term{}
}

// EffectiveDatatype returns the datatype IRI of a literal the way
// SPARQL DATATYPE() would report it
func (t Term) EffectiveDatatype() string {
	if t.Kind != LiteralKind {
		return ""
	}
	if t.Lang != "" {
		return RDFLangString
	}
	if t.Datatype == "" {
		return XSDString
	}
	return t.Datatype
}

// LocalName returns the text after the last '/', '#' or ':' of an IRI
func (t Term) LocalName() string {
	if t.Kind != IRIKind {
		return ""
	}
	idx := strings.LastIndexAny(t.Value, "/#:")
	return t.Value[idx+1:]
}

// NTriples serializes the term in N-Triples syntax. This form is also
// valid inside SPARQL INSERT DATA blocks
func (t Term) NTriples() string {
	switch t.Kind {
	case IRIKind:
		return "<" + t.Value + ">"
	case BlankKind:
		return "_:" + t.Value
	default:
		lit := `"` + escapeLiteral(t.Value) + `"`
		if t.Lang != "" {
			return lit + "@" + t.Lang
		}
		if t.Datatype != "" {
			return lit + "^^<" + t.Datatype + ">"
		}
		return lit
	}
}

func (t Term) String() string {
	return t.NTriples()
}

// Compact renders the term using well known prefixes; used for log and report output
func (t Term) Compact() string {
	switch t.Kind {
	case IRIKind:
		return compactIRI(t.Value)
	case LiteralKind:
		if t.Datatype != "" {
			return `"` + t.Value + `"^^` + compactIRI(t.Datatype)
		}
		return t.NTriples()
	default:
		return t.NTriples()
	}
}

// characters that may not appear in an IRI reference, besides controls and space
const forbiddenIRIChars = `<>"{}|^\` + "`"

// checkIRI rejects IRIs that cannot be written inside <> in N-Triples or SPARQL
func checkIRI(iri string) error {
	for _, r := range iri {
		if r <= 0x20 || strings.ContainsRune(forbiddenIRIChars, r) {
			return fmt.Errorf("invalid character %q in IRI <%s>", r, iri)
		}
	}
	if scheme, _, ok := strings.Cut(iri, ":"); !ok || scheme == "" {
		return fmt.Errorf("IRI <%s> is not absolute", iri)
	}
	return nil
}

func escapeLiteral(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '\\':
			b.WriteString(`\\`)
		case '"':
			b.WriteString(`\"`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		default:
			if r < 0x20 || r == 0x7f {
				fmt.Fprintf(&b, `\u%04X`, r)
			} else {
				b.WriteRune(r)
			}
		}
	}
	return b.String()
}

// A statement in a graph
type Triple struct {
	Subject   Term
	Predicate Term
	Object    Term
}

func NewTriple(s, p, o Term) Triple {
	return Triple{Subject: s, Predicate: p, Object: o}
}

// Key returns the canonical N-Triples line for the triple
func (t Triple) Key() string {
	return t.Subject.NTriples() + " " + t.Predicate.NTriples() + " " + t.Object.NTriples() + " ."
}

func (t Triple) String() string {
	return t.Key()
}
