package interpreter

import (
	"fmt"
	"strings"

	"github.com/aescanero/dago-node-cel/internal/eval/cel/ast"
	"github.com/aescanero/dago-node-cel/internal/eval/cel/checker"
	"github.com/aescanero/dago-node-cel/internal/eval/cel/functions"
	"github.com/aescanero/dago-node-cel/internal/eval/cel/namespace"
	"github.com/aescanero/dago-node-cel/internal/eval/cel/types"
	"github.com/aescanero/dago-node-cel/internal/eval/cel/value"
)

// DefaultMaxNestingDepth bounds the depth of planned trees.
const DefaultMaxNestingDepth = 250

const (
	logicalAnd  = "_&&_"
	logicalOr   = "_||_"
	conditional = "_?_:_"
)

// Error is a planning failure attributed to an expression node.
type Error struct {
	ID      int64
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// Planner turns expression trees into Interpretables. A Planner is
// immutable and safe for concurrent use.
type Planner struct {
	functions *functions.Resolver
	container *namespace.Namespace
	provider  types.Provider
	checked   *checker.Result
	maxDepth  int
}

// Option configures a Planner.
type Option func(*Planner)

// WithContainer sets the namespace names are resolved in.
func WithContainer(ns *namespace.Namespace) Option {
	return func(p *Planner) {
		p.container = ns
	}
}

// WithProvider sets the record type provider used for type names, enum
// constants and record creation.
func WithProvider(provider types.Provider) Option {
	return func(p *Planner) {
		p.provider = provider
	}
}

// WithChecked makes the planner use the names resolved by the checker
// instead of resolving identifiers at evaluation time.
func WithChecked(res *checker.Result) Option {
	return func(p *Planner) {
		p.checked = res
	}
}

// WithMaxNestingDepth bounds the nesting of the planned tree. Zero or less
// disables the limit.
func WithMaxNestingDepth(depth int) Option {
	return func(p *Planner) {
		p.maxDepth = depth
	}
}

// NewPlanner creates a planner that resolves calls against fns.
func NewPlanner(fns *functions.Resolver, opts ...Option) *Planner {
	p := &Planner{functions: fns, container: namespace.Root, maxDepth: DefaultMaxNestingDepth}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Plan builds the executable tree for e.
func (p *Planner) Plan(e *ast.Expr) (Interpretable, error) {
	return p.plan(e, 0)
}

func (p *Planner) errorf(id int64, format string, args ...any) error {
	return &Error{ID: id, Message: fmt.Sprintf(format, args...)}
}

func (p *Planner) plan(e *ast.Expr, depth int) (Interpretable, error) {
	if e == nil {
		return nil, p.errorf(0, "missing expression")
	}
	if p.maxDepth > 0 && depth > p.maxDepth {
		return nil, p.errorf(e.ID, "expression nesting exceeds limit: %d", p.maxDepth)
	}
	depth++
	switch e.Kind {
	case ast.LiteralKind:
		return &constNode{id: e.ID, val: e.Literal}, nil
	case ast.IdentKind:
		return p.planIdent(e)
	case ast.SelectKind:
		return p.planSelect(e, depth)
	case ast.CallKind:
		return p.planCall(e, depth)
	case ast.ListKind:
		elems, err := p.planAll(e.Args, depth)
		if err != nil {
			return nil, err
		}
		return &listNode{id: e.ID, elems: elems}, nil
	case ast.MapKind:
		return p.planMap(e, depth)
	case ast.StructKind:
		return p.planStruct(e, depth)
	case ast.ComprehensionKind:
		return p.planComprehension(e, depth)
	}
	return nil, p.errorf(e.ID, "unexpected expression kind: %s", e.Kind)
}

func (p *Planner) planAll(es []*ast.Expr, depth int) ([]Interpretable, error) {
	out := make([]Interpretable, len(es))
	for i, e := range es {
		in, err := p.plan(e, depth)
		if err != nil {
			return nil, err
		}
		out[i] = in
	}
	return out, nil
}

// reference returns the checker's resolution of a node, if any.
func (p *Planner) reference(id int64) (*checker.Reference, bool) {
	if p.checked == nil {
		return nil, false
	}
	ref, ok := p.checked.References[id]
	return ref, ok
}

func (p *Planner) resolvedName(e *ast.Expr, ref *checker.Reference) Interpretable {
	if ref.Value != nil {
		return &constNode{id: e.ID, val: ref.Value}
	}
	return &attrNode{
		id:        e.ID,
		name:      ref.Name,
		container: p.container.Name(),
		paths:     []attrPath{{candidates: []string{ref.Name}}},
	}
}

func (p *Planner) planIdent(e *ast.Expr) (Interpretable, error) {
	if ref, ok := p.reference(e.ID); ok {
		return p.resolvedName(e, ref), nil
	}
	return p.qualified(e, []string{e.Name}, nil), nil
}

// qualified plans a dotted name. segments[0] is the root identifier and
// steps holds the select node of every later segment.
func (p *Planner) qualified(e *ast.Expr, segments []string, steps []fieldStep) Interpretable {
	n := &attrNode{
		id:        e.ID,
		name:      strings.Join(segments, "."),
		container: p.container.Name(),
	}
	for k := len(segments); k > 0; k-- {
		prefix := strings.Join(segments[:k], ".")
		cands := p.container.ResolveCandidateNames(prefix)
		n.paths = append(n.paths, attrPath{candidates: cands, fields: steps[k-1:]})
		if n.fallback == nil && k == len(segments) {
			n.fallback = p.constant(cands)
		}
	}
	return n
}

// constant finds a type or enum constant among the candidate names.
func (p *Planner) constant(cands []string) value.Value {
	for _, c := range cands {
		if t, ok := types.ByName(c); ok {
			return value.TypeValue{T: t}
		}
		if p.provider == nil {
			continue
		}
		if t, ok := p.provider.FindType(c); ok {
			return value.TypeValue{T: t}
		}
		if ep, ok := p.provider.(checker.EnumProvider); ok {
			if v, ok := ep.FindEnumValue(c); ok {
				return value.Int(v)
			}
		}
	}
	return nil
}

func (p *Planner) planSelect(e *ast.Expr, depth int) (Interpretable, error) {
	if ref, ok := p.reference(e.ID); ok && !e.TestOnly {
		return p.resolvedName(e, ref), nil
	}
	if p.checked == nil && !e.TestOnly {
		if segments, steps, ok := selectChain(e); ok {
			return p.qualified(e, segments, steps), nil
		}
	}
	operand, err := p.plan(e.Operand, depth)
	if err != nil {
		return nil, err
	}
	return &selectNode{id: e.ID, operand: operand, field: e.Name, testOnly: e.TestOnly}, nil
}

// selectChain splits a.b.c into its segments and the select steps that
// follow the root.
func selectChain(e *ast.Expr) ([]string, []fieldStep, bool) {
	var rev []fieldStep
	for e.Kind == ast.SelectKind {
		if e.TestOnly {
			return nil, nil, false
		}
		rev = append(rev, fieldStep{id: e.ID, name: e.Name})
		e = e.Operand
	}
	if e.Kind != ast.IdentKind {
		return nil, nil, false
	}
	segments := make([]string, 0, len(rev)+1)
	steps := make([]fieldStep, 0, len(rev))
	segments = append(segments, e.Name)
	for i := len(rev) - 1; i >= 0; i-- {
		segments = append(segments, rev[i].name)
		steps = append(steps, rev[i])
	}
	return segments, steps, true
}

func (p *Planner) findFunction(name string) (*functions.Group, bool) {
	if p.functions == nil {
		return nil, false
	}
	for _, cand := range p.container.ResolveCandidateNames(name) {
		if g, ok := p.functions.Find(cand); ok {
			return g, true
		}
	}
	return nil, false
}

func (p *Planner) planCall(e *ast.Expr, depth int) (Interpretable, error) {
	if pt, ok := ast.AsPresenceTest(e); ok {
		return p.planSelect(pt, depth)
	}
	if m, ok := ast.AsMacro(e); ok {
		return p.planMacro(e, m, depth)
	}
	if e.Operand == nil {
		switch {
		case e.Name == logicalAnd:
			return p.planLogic(e, false, depth)
		case e.Name == logicalOr:
			return p.planLogic(e, true, depth)
		case e.Name == conditional && len(e.Args) == 3:
			args, err := p.planAll(e.Args, depth)
			if err != nil {
				return nil, err
			}
			return &conditionalNode{id: e.ID, cond: args[0], truthy: args[1], falsy: args[2]}, nil
		}
	}

	// a.b.f(x) is the namespaced function a.b.f when one exists, else f
	// called on a.b.
	var target Interpretable
	group, found := (*functions.Group)(nil), false
	if e.Operand != nil {
		if prefix, ok := e.Operand.QualifiedName(); ok {
			group, found = p.findFunction(prefix + "." + e.Name)
		}
		if !found {
			t, err := p.plan(e.Operand, depth)
			if err != nil {
				return nil, err
			}
			target = t
		}
	}
	if !found {
		group, found = p.findFunction(e.Name)
	}
	if !found {
		return nil, p.errorf(e.ID, "undeclared reference to '%s' (in container '%s')", e.Name, p.container.Name())
	}
	args, err := p.planAll(e.Args, depth)
	if err != nil {
		return nil, err
	}
	return &callNode{id: e.ID, group: group, target: target, args: args}, nil
}

// planLogic flattens nested binary chains of the same operator without
// recursion and rebalances them. A call that already has more than two
// arguments is kept as a single variadic node.
func (p *Planner) planLogic(e *ast.Expr, decisive value.Bool, depth int) (Interpretable, error) {
	if len(e.Args) < 2 {
		return nil, p.errorf(e.ID, "%s expects at least two arguments", e.Name)
	}
	if len(e.Args) > 2 {
		operands, err := p.planAll(e.Args, depth)
		if err != nil {
			return nil, err
		}
		return &logicNode{id: e.ID, function: e.Name, decisive: decisive, operands: operands}, nil
	}

	// A nil expr on the stack marks the operator between two operand
	// ranges, so ops[i] joins leaves[i] and leaves[i+1].
	type item struct {
		expr *ast.Expr
		op   int64
	}
	var (
		leaves []*ast.Expr
		ops    []int64
	)
	stack := []item{{expr: e}}
	for len(stack) > 0 {
		it := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		n := it.expr
		if n == nil {
			ops = append(ops, it.op)
			continue
		}
		if n.Kind == ast.CallKind && n.Operand == nil && n.Name == e.Name && len(n.Args) == 2 {
			// right first so the left operand is popped first
			stack = append(stack, item{expr: n.Args[1]}, item{op: n.ID}, item{expr: n.Args[0]})
			continue
		}
		leaves = append(leaves, n)
	}
	planned, err := p.planAll(leaves, depth)
	if err != nil {
		return nil, err
	}
	return balance(ops, e.Name, decisive, planned), nil
}

func (p *Planner) planMap(e *ast.Expr, depth int) (Interpretable, error) {
	n := &mapNode{id: e.ID}
	for _, en := range e.Entries {
		k, err := p.plan(en.Key, depth)
		if err != nil {
			return nil, err
		}
		v, err := p.plan(en.Value, depth)
		if err != nil {
			return nil, err
		}
		n.keys = append(n.keys, k)
		n.values = append(n.values, v)
	}
	return n, nil
}

func (p *Planner) planStruct(e *ast.Expr, depth int) (Interpretable, error) {
	typeName := ""
	if ref, ok := p.reference(e.ID); ok {
		typeName = ref.Name
	} else if p.provider != nil {
		for _, cand := range p.container.ResolveCandidateNames(e.Name) {
			if _, ok := p.provider.FindType(cand); ok {
				typeName = cand
				break
			}
		}
	}
	if typeName == "" {
		return nil, p.errorf(e.ID, "unknown type: %s", e.Name)
	}
	n := &structNode{id: e.ID, typeName: typeName}
	for _, en := range e.Entries {
		v, err := p.plan(en.Value, depth)
		if err != nil {
			return nil, err
		}
		n.fields = append(n.fields, en.Field)
		n.values = append(n.values, v)
	}
	return n, nil
}

func (p *Planner) planComprehension(e *ast.Expr, depth int) (Interpretable, error) {
	c := e.Comprehension
	parts, err := p.planAll([]*ast.Expr{c.IterRange, c.AccuInit, c.LoopCondition, c.LoopStep, c.Result}, depth)
	if err != nil {
		return nil, err
	}
	return &foldNode{
		id:            e.ID,
		iterVar:       c.IterVar,
		accuVar:       c.AccuVar,
		iterRange:     parts[0],
		accuInit:      parts[1],
		loopCondition: parts[2],
		loopStep:      parts[3],
		result:        parts[4],
	}, nil
}

func (p *Planner) planMacro(e *ast.Expr, m *ast.Macro, depth int) (Interpretable, error) {
	r, err := p.plan(m.Range, depth)
	if err != nil {
		return nil, err
	}
	step, err := p.plan(m.Step, depth)
	if err != nil {
		return nil, err
	}
	switch m.Name {
	case ast.MacroAll, ast.MacroExists, ast.MacroExistsOne:
		return &quantifierNode{id: e.ID, macro: m.Name, iterVar: m.IterVar, iterRange: r, predicate: step}, nil
	case ast.MacroFilter:
		return &collectNode{id: e.ID, macro: m.Name, iterVar: m.IterVar, iterRange: r, filter: step}, nil
	}
	n := &collectNode{id: e.ID, macro: m.Name, iterVar: m.IterVar, iterRange: r, transform: step}
	if m.Filter != nil {
		if n.filter, err = p.plan(m.Filter, depth); err != nil {
			return nil, err
		}
	}
	return n, nil
}
