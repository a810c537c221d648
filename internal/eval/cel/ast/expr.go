package ast

import (
	"github.com/aescanero/dago-node-cel/internal/eval/cel/value"
)

// Kind identifies the shape of an expression node.
type Kind uint8

const (
	UnspecifiedKind Kind = iota
	LiteralKind
	IdentKind
	SelectKind
	CallKind
	ListKind
	MapKind
	StructKind
	ComprehensionKind
)

var kindNames = [...]string{
	UnspecifiedKind:   "unspecified",
	LiteralKind:       "literal",
	IdentKind:         "ident",
	SelectKind:        "select",
	CallKind:          "call",
	ListKind:          "list",
	MapKind:           "map",
	StructKind:        "struct",
	ComprehensionKind: "comprehension",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// Expr is a node of the expression tree. Which fields are meaningful
// depends on Kind:
//
//	LiteralKind        Literal
//	IdentKind          Name
//	SelectKind         Operand, Name (field), TestOnly
//	CallKind           Name (function), Operand (receiver, may be nil), Args
//	ListKind           Args (elements)
//	MapKind            Entries (Key, Value)
//	StructKind         Name (type), Entries (Field, Value)
//	ComprehensionKind  Comprehension
//
// Ids are unique within a tree and stay stable from parsing through
// evaluation so errors can be attributed to their source node.
type Expr struct {
	ID            int64
	Kind          Kind
	Literal       value.Value
	Name          string
	Operand       *Expr
	TestOnly      bool
	Args          []*Expr
	Entries       []*Entry
	Comprehension *Comprehension
}

// Entry is a map entry or a struct field initializer.
type Entry struct {
	ID    int64
	Field string
	Key   *Expr
	Value *Expr
}

// Comprehension is the generic fold that macros expand to.
type Comprehension struct {
	IterVar       string
	IterRange     *Expr
	AccuVar       string
	AccuInit      *Expr
	LoopCondition *Expr
	LoopStep      *Expr
	Result        *Expr
}

// IsMemberCall reports whether e is a receiver-style call.
func (e *Expr) IsMemberCall() bool {
	return e.Kind == CallKind && e.Operand != nil
}

// QualifiedName returns the dotted name of an ident or of a chain of
// selects rooted at an ident, e.g. "a.b.c". It returns false for any other
// shape, including presence tests.
func (e *Expr) QualifiedName() (string, bool) {
	switch e.Kind {
	case IdentKind:
		return e.Name, true
	case SelectKind:
		if e.TestOnly {
			return "", false
		}
		prefix, ok := e.Operand.QualifiedName()
		if !ok {
			return "", false
		}
		return prefix + "." + e.Name, true
	}
	return "", false
}

// MaxID returns the largest node id in the tree.
func (e *Expr) MaxID() int64 {
	var max int64
	Walk(e, func(n *Expr) bool {
		if n.ID > max {
			max = n.ID
		}
		for _, en := range n.Entries {
			if en.ID > max {
				max = en.ID
			}
		}
		return true
	})
	return max
}

// Walk visits the tree in pre-order. Returning false from fn skips the
// children of the node.
func Walk(e *Expr, fn func(*Expr) bool) {
	stack := []*Expr{e}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if n == nil || !fn(n) {
			continue
		}
		stack = append(stack, children(n)...)
	}
}

func children(e *Expr) []*Expr {
	var out []*Expr
	if e.Operand != nil {
		out = append(out, e.Operand)
	}
	out = append(out, e.Args...)
	for _, en := range e.Entries {
		if en.Key != nil {
			out = append(out, en.Key)
		}
		out = append(out, en.Value)
	}
	if c := e.Comprehension; c != nil {
		out = append(out, c.IterRange, c.AccuInit, c.LoopCondition, c.LoopStep, c.Result)
	}
	return out
}
