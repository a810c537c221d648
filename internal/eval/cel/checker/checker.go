package checker

import (
	"fmt"
	"strings"

	"github.com/aescanero/dago-node-cel/internal/eval/cel/ast"
	"github.com/aescanero/dago-node-cel/internal/eval/cel/functions"
	"github.com/aescanero/dago-node-cel/internal/eval/cel/namespace"
	"github.com/aescanero/dago-node-cel/internal/eval/cel/types"
	"github.com/aescanero/dago-node-cel/internal/eval/cel/value"
)

// Function names the checker types itself.
const (
	logicalAnd  = "_&&_"
	logicalOr   = "_||_"
	conditional = "_?_:_"
)

// EnumProvider is implemented by providers that know enum constants,
// named like "acme.v1.Color.RED".
type EnumProvider interface {
	FindEnumValue(name string) (int64, bool)
}

// Env is the static environment of a check.
type Env struct {
	Container *namespace.Namespace
	Scope     *Scope
	// Provider resolves record types. It may be nil.
	Provider types.Provider
}

// Reference records what an ident, select or call resolved to.
type Reference struct {
	// Name is the fully qualified ident, type or function name.
	Name string
	// OverloadIDs lists the overloads a call may dispatch to.
	OverloadIDs []string
	// Value is set for constants.
	Value value.Value
}

// Result is the outcome of a successful check.
type Result struct {
	Types      map[int64]*types.Type
	References map[int64]*Reference
	OutputType *types.Type
}

// TypeOf returns the type inferred for a node, dyn when unknown.
func (r *Result) TypeOf(id int64) *types.Type {
	if t, ok := r.Types[id]; ok {
		return t
	}
	return types.Dyn
}

type checker struct {
	env      *Env
	scope    *Scope
	types    map[int64]*types.Type
	refs     map[int64]*Reference
	mappings *Mapping
	freeVars int
	errs     error
}

// Check infers the type of every node of e and resolves its identifiers
// and calls. All issues are reported together in a *Error.
func Check(e *ast.Expr, env *Env) (*Result, error) {
	cfg := *env
	if cfg.Container == nil {
		cfg.Container = namespace.Root
	}
	if cfg.Scope == nil {
		cfg.Scope = NewScope()
	}
	c := &checker{
		env:      &cfg,
		scope:    cfg.Scope,
		types:    map[int64]*types.Type{},
		refs:     map[int64]*Reference{},
		mappings: NewMapping(),
	}
	c.check(e)
	if err := c.result(); err != nil {
		return nil, err
	}
	for id, t := range c.types {
		c.types[id] = substitute(c.mappings, t, true)
	}
	return &Result{Types: c.types, References: c.refs, OutputType: c.types[e.ID]}, nil
}

func (c *checker) check(e *ast.Expr) {
	switch e.Kind {
	case ast.LiteralKind:
		c.setType(e, e.Literal.Type())
	case ast.IdentKind:
		c.checkIdent(e)
	case ast.SelectKind:
		c.checkSelect(e)
	case ast.CallKind:
		c.checkCall(e)
	case ast.ListKind:
		c.checkList(e)
	case ast.MapKind:
		c.checkMap(e)
	case ast.StructKind:
		c.checkStruct(e)
	case ast.ComprehensionKind:
		c.checkComprehension(e)
	default:
		c.errorf(e.ID, "unexpected expression kind: %s", e.Kind)
		c.setType(e, types.Error)
	}
}

func (c *checker) lookupIdent(name string) (*Ident, bool) {
	for _, cand := range c.env.Container.ResolveCandidateNames(name) {
		if id, ok := c.scope.FindIdent(cand); ok {
			return id, true
		}
		if t, ok := types.ByName(cand); ok {
			return &Ident{Name: cand, Type: types.NewTypeOf(t), Value: value.TypeValue{T: t}}, true
		}
		if c.env.Provider == nil {
			continue
		}
		if t, ok := c.env.Provider.FindType(cand); ok {
			return &Ident{Name: cand, Type: types.NewTypeOf(t), Value: value.TypeValue{T: t}}, true
		}
		if ep, ok := c.env.Provider.(EnumProvider); ok {
			if v, ok := ep.FindEnumValue(cand); ok {
				return &Ident{Name: cand, Type: types.Int, Value: value.Int(v)}, true
			}
		}
	}
	return nil, false
}

func (c *checker) lookupFunction(name string) (*functions.Group, bool) {
	for _, cand := range c.env.Container.ResolveCandidateNames(name) {
		if g, ok := c.scope.FindFunction(cand); ok {
			return g, true
		}
	}
	return nil, false
}

func (c *checker) undeclared(id int64, name string) {
	c.errorf(id, "undeclared reference to '%s' (in container '%s')", name, c.env.Container.Name())
}

func (c *checker) checkIdent(e *ast.Expr) {
	id, ok := c.lookupIdent(e.Name)
	if !ok {
		c.undeclared(e.ID, e.Name)
		c.setType(e, types.Error)
		return
	}
	c.setType(e, id.Type)
	c.refs[e.ID] = &Reference{Name: id.Name, Value: id.Value}
}

func (c *checker) checkSelect(e *ast.Expr) {
	if qname, ok := e.QualifiedName(); ok {
		if id, found := c.lookupIdent(qname); found {
			c.setType(e, id.Type)
			c.refs[e.ID] = &Reference{Name: id.Name, Value: id.Value}
			return
		}
	}
	t := c.checkSelectField(e, e.Operand, e.Name)
	if e.TestOnly {
		t = types.Bool
	}
	c.setType(e, substitute(c.mappings, t, false))
}

func (c *checker) checkSelectField(e, operand *ast.Expr, field string) *types.Type {
	c.check(operand)
	ot := substitute(c.mappings, c.getType(operand), false)
	switch ot.Kind() {
	case types.MapKind:
		return ot.Value()
	case types.RecordKind:
		if ft, ok := c.lookupFieldType(e.ID, ot.Name(), field); ok {
			return ft
		}
		return types.Error
	case types.TypeParamKind:
		c.isAssignable(types.Dyn, ot)
		return types.Dyn
	case types.DynKind, types.ErrorKind:
		return types.Dyn
	}
	c.errorf(e.ID, "type '%s' does not support field selection", ot)
	return types.Error
}

func (c *checker) lookupFieldType(id int64, typeName, field string) (*types.Type, bool) {
	if c.env.Provider != nil {
		if ft, ok := c.env.Provider.FindFieldType(typeName, field); ok {
			return ft, true
		}
	}
	c.errorf(id, "undefined field '%s'", field)
	return nil, false
}

func (c *checker) checkCall(e *ast.Expr) {
	if pt, ok := ast.AsPresenceTest(e); ok {
		c.checkSelect(pt)
		return
	}
	if m, ok := ast.AsMacro(e); ok {
		c.checkMacro(e, m)
		return
	}
	switch {
	case e.Operand == nil && (e.Name == logicalAnd || e.Name == logicalOr):
		c.checkLogic(e)
		return
	case e.Operand == nil && e.Name == conditional && len(e.Args) == 3:
		c.checkConditional(e)
		return
	}

	for _, arg := range e.Args {
		c.check(arg)
	}
	if e.Operand == nil {
		fn, ok := c.lookupFunction(e.Name)
		if !ok {
			c.undeclared(e.ID, e.Name)
			c.setType(e, types.Error)
			return
		}
		c.resolveOverload(e, fn, nil)
		return
	}

	// a.b.f() is either the namespaced function a.b.f or f with receiver a.b.
	if prefix, ok := e.Operand.QualifiedName(); ok {
		if fn, found := c.lookupFunction(prefix + "." + e.Name); found {
			c.resolveOverload(e, fn, nil)
			return
		}
	}
	c.check(e.Operand)
	fn, ok := c.lookupFunction(e.Name)
	if !ok {
		c.undeclared(e.ID, e.Name)
		c.setType(e, types.Error)
		return
	}
	c.resolveOverload(e, fn, e.Operand)
}

func (c *checker) checkLogic(e *ast.Expr) {
	for _, arg := range e.Args {
		c.check(arg)
		c.assertType(arg, types.Bool)
	}
	c.setType(e, types.Bool)
	c.refs[e.ID] = &Reference{Name: e.Name}
}

func (c *checker) checkConditional(e *ast.Expr) {
	cond, t, f := e.Args[0], e.Args[1], e.Args[2]
	c.check(cond)
	c.assertType(cond, types.Bool)
	c.check(t)
	c.check(f)
	c.setType(e, c.joinTypes(c.getType(t), c.getType(f)))
	c.refs[e.ID] = &Reference{Name: e.Name}
}

func (c *checker) resolveOverload(e *ast.Expr, fn *functions.Group, target *ast.Expr) {
	var argTypes []*types.Type
	if target != nil {
		argTypes = append(argTypes, c.getType(target))
	}
	for _, arg := range e.Args {
		argTypes = append(argTypes, c.getType(arg))
	}

	var result *types.Type
	ref := &Reference{Name: fn.Name()}
	for _, o := range fn.Overloads() {
		if o.IsMember() != (target != nil) {
			continue
		}
		params, rt := o.ArgTypes(), o.ResultType()
		if tps := o.TypeParams(); len(tps) > 0 {
			fresh := NewMapping()
			for _, tp := range tps {
				fresh.Add(types.NewTypeParam(tp), c.newTypeVar())
			}
			inst := make([]*types.Type, len(params))
			for i, p := range params {
				inst[i] = substitute(fresh, p, false)
			}
			params, rt = inst, substitute(fresh, rt, false)
		}
		m, ok := isAssignableList(c.mappings, argTypes, params)
		if !ok {
			continue
		}
		c.mappings = m
		ref.OverloadIDs = append(ref.OverloadIDs, o.ID())
		rt = substitute(c.mappings, rt, false)
		switch {
		case result == nil:
			result = rt
		case !result.IsDyn() && !rt.Equal(result):
			result = types.Dyn
		}
	}
	if result == nil {
		names := make([]string, len(argTypes))
		for i, t := range argTypes {
			names[i] = substitute(c.mappings, t, true).String()
		}
		c.errorf(e.ID, "found no matching overload for '%s' applied to '(%s)'", fn.Name(), strings.Join(names, ", "))
		c.setType(e, types.Error)
		return
	}
	c.setType(e, result)
	c.refs[e.ID] = ref
}

func (c *checker) checkList(e *ast.Expr) {
	var elem *types.Type
	for _, el := range e.Args {
		c.check(el)
		elem = c.joinTypes(elem, c.getType(el))
	}
	if elem == nil {
		elem = c.newTypeVar()
	}
	c.setType(e, types.NewList(elem))
}

func (c *checker) checkMap(e *ast.Expr) {
	var key, val *types.Type
	for _, en := range e.Entries {
		c.check(en.Key)
		key = c.joinTypes(key, c.getType(en.Key))
		c.check(en.Value)
		val = c.joinTypes(val, c.getType(en.Value))
	}
	if key == nil {
		key, val = c.newTypeVar(), c.newTypeVar()
	}
	c.setType(e, types.NewMap(key, val))
}

func (c *checker) checkStruct(e *ast.Expr) {
	id, ok := c.lookupIdent(e.Name)
	if !ok {
		c.undeclared(e.ID, e.Name)
		c.setType(e, types.Error)
		return
	}
	t := id.Type.Param()
	if id.Type.Kind() != types.TypeKind || t.Kind() != types.RecordKind {
		c.errorf(e.ID, "'%s' is not a message type", id.Name)
		c.setType(e, types.Error)
		return
	}
	c.setType(e, t)
	c.refs[e.ID] = &Reference{Name: t.Name()}
	for _, en := range e.Entries {
		c.check(en.Value)
		ft, ok := c.lookupFieldType(en.ID, t.Name(), en.Field)
		if !ok {
			continue
		}
		vt := c.getType(en.Value)
		if !c.isAssignable(ft, vt) {
			c.errorf(en.Value.ID, "expected type '%s' but got '%s'", ft, vt)
		}
	}
}

func (c *checker) rangeElemType(r *ast.Expr) *types.Type {
	rt := substitute(c.mappings, c.getType(r), false)
	switch rt.Kind() {
	case types.ListKind:
		return rt.Elem()
	case types.MapKind:
		return rt.Key()
	case types.DynKind, types.ErrorKind, types.TypeParamKind:
		return types.Dyn
	}
	c.errorf(r.ID, "expression of type '%s' cannot be range of a comprehension (must be list, map, or dynamic)", rt)
	return types.Dyn
}

func (c *checker) checkComprehension(e *ast.Expr) {
	comp := e.Comprehension
	c.check(comp.IterRange)
	iterType := c.rangeElemType(comp.IterRange)
	c.check(comp.AccuInit)
	accuType := c.getType(comp.AccuInit)

	c.scope = c.scope.Push(NewVariable(comp.AccuVar, accuType))
	c.scope = c.scope.Push(NewVariable(comp.IterVar, iterType))
	c.check(comp.LoopCondition)
	c.assertType(comp.LoopCondition, types.Bool)
	c.check(comp.LoopStep)
	c.assertType(comp.LoopStep, accuType)
	c.scope = c.scope.Pop()
	c.check(comp.Result)
	c.scope = c.scope.Pop()

	c.setType(e, c.getType(comp.Result))
}

func (c *checker) checkMacro(e *ast.Expr, m *ast.Macro) {
	c.check(m.Range)
	iterType := c.rangeElemType(m.Range)
	c.scope = c.scope.Push(NewVariable(m.IterVar, iterType))
	defer func() { c.scope = c.scope.Pop() }()

	if m.Filter != nil {
		c.check(m.Filter)
		c.assertType(m.Filter, types.Bool)
	}
	c.check(m.Step)
	switch m.Name {
	case ast.MacroMap:
		c.setType(e, types.NewList(c.getType(m.Step)))
	case ast.MacroFilter:
		c.assertType(m.Step, types.Bool)
		c.setType(e, types.NewList(iterType))
	default:
		c.assertType(m.Step, types.Bool)
		c.setType(e, types.Bool)
	}
}

func (c *checker) joinTypes(prev, cur *types.Type) *types.Type {
	if prev == nil {
		return cur
	}
	if c.isAssignable(prev, cur) {
		return mostGeneral(prev, cur)
	}
	return types.Dyn
}

func (c *checker) assertType(e *ast.Expr, expected *types.Type) {
	t := c.getType(e)
	if !c.isAssignable(t, expected) {
		c.errorf(e.ID, "type mismatch: expected %s, got %s", expected, substitute(c.mappings, t, true))
	}
}

func (c *checker) isAssignable(t1, t2 *types.Type) bool {
	m, ok := isAssignable(c.mappings, t1, t2)
	if ok {
		c.mappings = m
	}
	return ok
}

func (c *checker) newTypeVar() *types.Type {
	t := types.NewTypeParam(fmt.Sprintf("_var%d", c.freeVars))
	c.freeVars++
	return t
}

func (c *checker) setType(e *ast.Expr, t *types.Type) {
	c.types[e.ID] = t
}

func (c *checker) getType(e *ast.Expr) *types.Type {
	if t, ok := c.types[e.ID]; ok {
		return t
	}
	return types.Dyn
}
