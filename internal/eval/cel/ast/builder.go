package ast

import "github.com/aescanero/dago-node-cel/internal/eval/cel/value"

// Builders for hosts that assemble trees without source text. Callers are
// responsible for unique ids.

func NewLiteral(id int64, v value.Value) *Expr {
	return &Expr{ID: id, Kind: LiteralKind, Literal: v}
}

func NewIdent(id int64, name string) *Expr {
	return &Expr{ID: id, Kind: IdentKind, Name: name}
}

func NewSelect(id int64, operand *Expr, field string) *Expr {
	return &Expr{ID: id, Kind: SelectKind, Operand: operand, Name: field}
}

// NewPresenceTest builds has(operand.field).
func NewPresenceTest(id int64, operand *Expr, field string) *Expr {
	return &Expr{ID: id, Kind: SelectKind, Operand: operand, Name: field, TestOnly: true}
}

func NewCall(id int64, function string, args ...*Expr) *Expr {
	return &Expr{ID: id, Kind: CallKind, Name: function, Args: args}
}

func NewMemberCall(id int64, function string, target *Expr, args ...*Expr) *Expr {
	return &Expr{ID: id, Kind: CallKind, Name: function, Operand: target, Args: args}
}

func NewList(id int64, elems ...*Expr) *Expr {
	return &Expr{ID: id, Kind: ListKind, Args: elems}
}

func NewMap(id int64, entries ...*Entry) *Expr {
	return &Expr{ID: id, Kind: MapKind, Entries: entries}
}

func NewMapEntry(id int64, key, val *Expr) *Entry {
	return &Entry{ID: id, Key: key, Value: val}
}

func NewStruct(id int64, typeName string, fields ...*Entry) *Expr {
	return &Expr{ID: id, Kind: StructKind, Name: typeName, Entries: fields}
}

func NewField(id int64, name string, val *Expr) *Entry {
	return &Entry{ID: id, Field: name, Value: val}
}

func NewComprehension(id int64, c *Comprehension) *Expr {
	return &Expr{ID: id, Kind: ComprehensionKind, Comprehension: c}
}
