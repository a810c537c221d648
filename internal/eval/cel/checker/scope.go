package checker

import (
	"github.com/aescanero/dago-node-cel/internal/eval/cel/functions"
	"github.com/aescanero/dago-node-cel/internal/eval/cel/types"
	"github.com/aescanero/dago-node-cel/internal/eval/cel/value"
)

// Ident declares a variable or a constant.
type Ident struct {
	Name string
	Type *types.Type
	// Value is set for constants such as enum values.
	Value value.Value
}

// NewVariable declares a variable.
func NewVariable(name string, t *types.Type) *Ident {
	return &Ident{Name: name, Type: t}
}

// Scope is one link of a persistent chain of declaration groups. Push and
// Pop return links and never modify an existing scope, so branches of the
// checker can share ancestors.
type Scope struct {
	idents    map[string]*Ident
	functions map[string]*functions.Group
	parent    *Scope
}

// NewScope creates a root scope.
func NewScope(idents ...*Ident) *Scope {
	return newScope(nil, idents, nil)
}

func newScope(parent *Scope, idents []*Ident, groups []*functions.Group) *Scope {
	s := &Scope{
		idents:    make(map[string]*Ident, len(idents)),
		functions: make(map[string]*functions.Group, len(groups)),
		parent:    parent,
	}
	for _, id := range idents {
		s.idents[id.Name] = id
	}
	for _, g := range groups {
		s.functions[g.Name()] = g
	}
	return s
}

// Push returns a child scope declaring idents.
func (s *Scope) Push(idents ...*Ident) *Scope {
	return newScope(s, idents, nil)
}

// PushFunctions returns a child scope declaring every function of r.
func (s *Scope) PushFunctions(r *functions.Resolver) *Scope {
	var groups []*functions.Group
	for _, name := range r.Names() {
		g, _ := r.Find(name)
		groups = append(groups, g)
	}
	return newScope(s, nil, groups)
}

// Pop returns the parent scope, or s itself at the root.
func (s *Scope) Pop() *Scope {
	if s.parent == nil {
		return s
	}
	return s.parent
}

// FindIdent returns the innermost declaration of name.
func (s *Scope) FindIdent(name string) (*Ident, bool) {
	for sc := s; sc != nil; sc = sc.parent {
		if id, ok := sc.idents[name]; ok {
			return id, true
		}
	}
	return nil, false
}

// FindFunction returns the innermost function group named name.
func (s *Scope) FindFunction(name string) (*functions.Group, bool) {
	for sc := s; sc != nil; sc = sc.parent {
		if g, ok := sc.functions[name]; ok {
			return g, true
		}
	}
	return nil, false
}
