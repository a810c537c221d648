package interpreter

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aescanero/dago-node-cel/internal/eval/cel/activation"
	"github.com/aescanero/dago-node-cel/internal/eval/cel/ast"
	"github.com/aescanero/dago-node-cel/internal/eval/cel/checker"
	"github.com/aescanero/dago-node-cel/internal/eval/cel/functions"
	"github.com/aescanero/dago-node-cel/internal/eval/cel/namespace"
	"github.com/aescanero/dago-node-cel/internal/eval/cel/runtime"
	"github.com/aescanero/dago-node-cel/internal/eval/cel/stdlib"
	"github.com/aescanero/dago-node-cel/internal/eval/cel/types"
	"github.com/aescanero/dago-node-cel/internal/eval/cel/value"
)

func plan(t *testing.T, src string, opts ...Option) Interpretable {
	t.Helper()
	parsed, err := ast.Parse(src)
	require.NoError(t, err)
	in, err := NewPlanner(stdlib.Resolver(), opts...).Plan(parsed.Expr)
	require.NoError(t, err)
	return in
}

func eval(t *testing.T, src string, bindings map[string]any, opts ...Option) value.Value {
	t.Helper()
	return plan(t, src, opts...).Eval(runtime.New(context.Background(), nil), activation.New(bindings, nil))
}

func errMessage(t *testing.T, v value.Value) string {
	t.Helper()
	e, ok := v.(*value.Error)
	require.True(t, ok, "expected error, got %v", v)
	return e.Message
}

func TestEval(t *testing.T) {
	bindings := map[string]any{
		"n":    int64(5),
		"name": "cel",
		"m":    map[string]any{"k": "v", "nested": map[string]any{"x": int64(1)}},
		"l":    []any{int64(1), int64(2), int64(3)},
	}
	tests := []struct {
		src  string
		want value.Value
	}{
		{"1 + 2 * 3", value.Int(7)},
		{"n > 3 ? 'big' : 'small'", value.String("big")},
		{"name + '-' + string(n)", value.String("cel-5")},
		{"m.k == 'v'", value.True},
		{"m.nested.x + 1", value.Int(2)},
		{"m['nested']['x']", value.Int(1)},
		{"l[1]", value.Int(2)},
		{"size(l) == 3 && 2 in l", value.True},
		{"{'a': 1}.a", value.Int(1)},
		{"[1, 2] + [3]", value.NewList(value.Int(1), value.Int(2), value.Int(3))},
		{"type(1) == int", value.True},
		{"int", value.TypeValue{T: types.Int}},
		{"name.startsWith('c')", value.True},
		{"has(m.k)", value.True},
		{"has(m.missing)", value.False},
		{"!has(m.nested.y)", value.True},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			got := eval(t, tt.src, bindings)
			assert.True(t, value.Equal(tt.want, got), "got %v", got)
		})
	}
}

func TestShortCircuit(t *testing.T) {
	tests := []struct {
		src  string
		want value.Value
	}{
		{"false && (1/0 == 1)", value.False},
		{"(1/0 == 1) && false", value.False},
		{"true || (1/0 == 1)", value.True},
		{"(1/0 == 1) || true", value.True},
		{"true || missing", value.True},
		{"false ? missing : 2", value.Int(2)},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			assert.Equal(t, tt.want, eval(t, tt.src, nil))
		})
	}

	assert.Equal(t, "divide by zero", errMessage(t, eval(t, "true && (1/0 == 1)", nil)))
	assert.Contains(t, errMessage(t, eval(t, "1 || false", nil)), "'_||_'")
}

func TestLogicShapes(t *testing.T) {
	terms := make([]string, 64)
	for i := range terms {
		terms[i] = fmt.Sprintf("x%d", i)
	}
	bindings := map[string]any{}
	for _, term := range terms {
		bindings[term] = true
	}

	t.Run("balanced chain", func(t *testing.T) {
		in := plan(t, strings.Join(terms, " && "))
		root, ok := in.(*logicNode)
		require.True(t, ok)
		assert.Len(t, root.operands, 2)
		assert.IsType(t, &logicNode{}, root.operands[0])
		assert.IsType(t, &logicNode{}, root.operands[1])

		v := in.Eval(runtime.New(context.Background(), nil), activation.New(bindings, nil))
		assert.Equal(t, value.True, v)

		bindings["x40"] = false
		v = in.Eval(runtime.New(context.Background(), nil), activation.New(bindings, nil))
		assert.Equal(t, value.False, v)
	})

	t.Run("operator ids", func(t *testing.T) {
		and := map[string]any{"x": true, "y": true, "z": true, "w": true, "v": true}
		or := map[string]any{"x": false, "y": false, "z": false}
		tests := []struct {
			src  string
			vars map[string]any
		}{
			{"1 && x && y && z", and},
			{"x && 1 && y && z", and},
			{"x && y && z && 1", and},
			{"x && y && z && w && v && 1", and},
			{"x || y || z || 1", or},
		}
		for _, tt := range tests {
			src, vars := tt.src, tt.vars
			t.Run(src, func(t *testing.T) {
				parsed, err := ast.Parse(src)
				require.NoError(t, err)
				ops, owner := logicOperators(parsed.Expr)

				in, err := NewPlanner(stdlib.Resolver()).Plan(parsed.Expr)
				require.NoError(t, err)
				assert.ElementsMatch(t, ops, logicNodeIDs(in))

				v := in.Eval(runtime.New(context.Background(), nil), activation.New(vars, nil))
				e, ok := v.(*value.Error)
				require.True(t, ok, "expected error, got %v", v)
				assert.Equal(t, owner, e.ID)
			})
		}
	})

	t.Run("variadic call", func(t *testing.T) {
		e := ast.NewCall(1, "_||_",
			ast.NewLiteral(2, value.False),
			ast.NewCall(3, "_/_", ast.NewLiteral(4, value.Int(1)), ast.NewLiteral(5, value.Int(0))),
			ast.NewLiteral(6, value.True),
		)
		in, err := NewPlanner(stdlib.Resolver()).Plan(e)
		require.NoError(t, err)
		node, ok := in.(*logicNode)
		require.True(t, ok)
		assert.Len(t, node.operands, 3)
		assert.Equal(t, value.True, in.Eval(runtime.New(context.Background(), nil), activation.Empty()))
	})
}

// logicOperators returns the ids of the && and || calls in e and the id of
// the call that has the literal 1 as a direct argument.
func logicOperators(e *ast.Expr) (ids []int64, owner int64) {
	stack := []*ast.Expr{e}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if n.Kind != ast.CallKind || (n.Name != "_&&_" && n.Name != "_||_") {
			continue
		}
		ids = append(ids, n.ID)
		for _, a := range n.Args {
			if a.Kind == ast.LiteralKind && value.Equal(a.Literal, value.Int(1)) {
				owner = n.ID
			}
			stack = append(stack, a)
		}
	}
	return ids, owner
}

func logicNodeIDs(in Interpretable) []int64 {
	n, ok := in.(*logicNode)
	if !ok {
		return nil
	}
	ids := []int64{n.id}
	for _, op := range n.operands {
		ids = append(ids, logicNodeIDs(op)...)
	}
	return ids
}

func TestFoldScopes(t *testing.T) {
	fold := func(cond, result *ast.Expr) *ast.Expr {
		return ast.NewComprehension(1, &ast.Comprehension{
			IterVar:       "x",
			IterRange:     ast.NewList(2, ast.NewLiteral(3, value.Int(1)), ast.NewLiteral(4, value.Int(2)), ast.NewLiteral(5, value.Int(3))),
			AccuVar:       "s",
			AccuInit:      ast.NewIdent(6, "base"),
			LoopCondition: cond,
			LoopStep:      ast.NewCall(7, "_+_", ast.NewIdent(8, "s"), ast.NewIdent(9, "x")),
			Result:        result,
		})
	}
	always := ast.NewLiteral(10, value.True)
	bindings := map[string]any{"base": 10, "x": 100, "s": 1000}

	tests := []struct {
		name string
		expr *ast.Expr
		want value.Value
	}{
		{"accumulator shadows binding", fold(always, ast.NewIdent(11, "s")), value.Int(16)},
		{"iteration variable leaves scope", fold(always, ast.NewCall(12, "_+_", ast.NewIdent(13, "s"), ast.NewIdent(14, "x"))), value.Int(116)},
		{"loop condition", fold(ast.NewCall(15, "_<_", ast.NewIdent(16, "s"), ast.NewLiteral(17, value.Int(12))), ast.NewIdent(18, "s")), value.Int(13)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in, err := NewPlanner(stdlib.Resolver()).Plan(tt.expr)
			require.NoError(t, err)
			got := in.Eval(runtime.New(context.Background(), nil), activation.New(bindings, nil))
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMacros(t *testing.T) {
	tests := []struct {
		src  string
		want value.Value
	}{
		{"[1, 2, 3].all(i, i > 0)", value.True},
		{"[1, 2, 3].all(i, i > 1)", value.False},
		{"[1, 2, 3].exists(i, i == 2)", value.True},
		{"[1, 2, 3].exists_one(i, i > 1)", value.False},
		{"[1, 2, 3].exists_one(i, i > 2)", value.True},
		{"[1, 2, 3].map(i, i * 2)", value.NewList(value.Int(2), value.Int(4), value.Int(6))},
		{"[1, 2, 3].filter(i, i != 2)", value.NewList(value.Int(1), value.Int(3))},
		{"{'a': 1, 'b': 2}.all(k, k != 'c')", value.True},
		{"[0, 1].exists(i, 1 / i == 1)", value.True},
		{"[1, 0].all(i, i > 5 && 1 / i == 1)", value.False},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			got := eval(t, tt.src, nil)
			assert.True(t, value.Equal(tt.want, got), "got %v", got)

			parsed, err := ast.Parse(tt.src, ast.ExpandMacros())
			require.NoError(t, err)
			in, err := NewPlanner(stdlib.Resolver()).Plan(parsed.Expr)
			require.NoError(t, err)
			expanded := in.Eval(runtime.New(context.Background(), nil), activation.Empty())
			assert.True(t, value.Equal(tt.want, expanded), "expanded got %v", expanded)
		})
	}

	t.Run("three argument map", func(t *testing.T) {
		got := eval(t, "[1, 2, 3].map(i, i > 1, i * 10)", nil)
		assert.True(t, value.Equal(value.NewList(value.Int(20), value.Int(30)), got), "got %v", got)
	})

	t.Run("errors", func(t *testing.T) {
		assert.Equal(t, "divide by zero", errMessage(t, eval(t, "[0, 1].all(i, 1 / i == 1)", nil)))
		assert.Contains(t, errMessage(t, eval(t, "[1].all(i, i)", nil)), "predicate must return bool")
		assert.Contains(t, errMessage(t, eval(t, "(1).all(i, true)", nil)), "cannot be range of a comprehension")
	})
}

func TestNames(t *testing.T) {
	t.Run("container candidates", func(t *testing.T) {
		ns := namespace.New("acme.v1")
		bindings := map[string]any{"acme.v1.x": int64(1), "acme.y": int64(2), "z": int64(3)}
		assert.Equal(t, value.Int(6), eval(t, "x + y + z", bindings, WithContainer(ns)))
	})

	t.Run("longest prefix first", func(t *testing.T) {
		bindings := map[string]any{
			"a.b":   map[string]any{"c": "qualified"},
			"a":     map[string]any{"b": map[string]any{"c": "selected"}},
			"other": map[string]any{"b": map[string]any{"c": "selected"}},
		}
		assert.Equal(t, value.String("qualified"), eval(t, "a.b.c", bindings))
		assert.Equal(t, value.String("selected"), eval(t, "other.b.c", bindings))
	})

	t.Run("missing", func(t *testing.T) {
		in := plan(t, "missing.field")
		v := in.Eval(runtime.New(context.Background(), nil), activation.Empty())
		assert.Equal(t, "undeclared reference to 'missing.field' (in container '')", errMessage(t, v))
		assert.Equal(t, "no such key: x", errMessage(t, eval(t, "m.x", map[string]any{"m": map[string]any{}})))
	})

	t.Run("absolute", func(t *testing.T) {
		bindings := map[string]any{"x": int64(1), "acme.x": int64(2)}
		assert.Equal(t, value.Int(2), eval(t, "x", bindings, WithContainer(namespace.New("acme"))))
		assert.Equal(t, value.Int(1), eval(t, ".x", bindings, WithContainer(namespace.New("acme"))))
	})
}

func TestUnknowns(t *testing.T) {
	bindings := map[string]any{"x": value.NewUnknown(), "y": int64(1)}
	in := plan(t, "x + y")
	v := in.Eval(runtime.New(context.Background(), nil), activation.New(bindings, nil))
	u, ok := v.(*value.Unknown)
	require.True(t, ok, "got %v", v)
	assert.Len(t, u.IDs, 1)

	assert.Equal(t, value.False, eval(t, "false && x", bindings))
	assert.True(t, value.IsUnknown(eval(t, "x && 1/0 == 1", bindings)))
	assert.True(t, value.IsUnknown(eval(t, "[x, 1/0]", bindings)))
}

func TestChecked(t *testing.T) {
	fns := stdlib.Resolver()
	parsed, err := ast.Parse("x + 1 > 2 && int == type(x)")
	require.NoError(t, err)
	res, err := checker.Check(parsed.Expr, &checker.Env{
		Container: namespace.Root,
		Scope:     checker.NewScope(checker.NewVariable("x", types.Int)).PushFunctions(fns),
	})
	require.NoError(t, err)

	in, err := NewPlanner(fns, WithChecked(res)).Plan(parsed.Expr)
	require.NoError(t, err)
	v := in.Eval(runtime.New(context.Background(), nil), activation.New(map[string]any{"x": int64(2)}, nil))
	assert.Equal(t, value.True, v)
}

func TestHostFunctions(t *testing.T) {
	overridden := functions.NewGroup("_+_",
		functions.NewOverload("add_int64", []*types.Type{types.Int, types.Int}, types.Int,
			func(_ *runtime.Context, _ int64, args []value.Value) value.Value {
				return args[0].(value.Int) * args[1].(value.Int)
			}))
	panics := functions.NewGroup("explode",
		functions.NewOverload("explode_int64", []*types.Type{types.Int}, types.Int,
			func(*runtime.Context, int64, []value.Value) value.Value {
				panic("kaboom")
			}))
	fns := stdlib.Resolver().Extend(functions.Groups{overridden, panics})

	parsed, err := ast.Parse("3 + 4")
	require.NoError(t, err)
	in, err := NewPlanner(fns).Plan(parsed.Expr)
	require.NoError(t, err)
	assert.Equal(t, value.Int(12), in.Eval(runtime.New(context.Background(), nil), activation.Empty()))

	parsed, err = ast.Parse("explode(1)")
	require.NoError(t, err)
	in, err = NewPlanner(fns).Plan(parsed.Expr)
	require.NoError(t, err)
	v := in.Eval(runtime.New(context.Background(), nil), activation.Empty())
	assert.Contains(t, errMessage(t, v), "kaboom")
}

func TestPlanErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		opts []Option
		want string
	}{
		{"unknown function", "nope(1)", nil, "undeclared reference to 'nope' (in container '')"},
		{"unknown type", "acme.Msg{f: 1}", nil, "unknown type: acme.Msg"},
		{"nesting", "[[[[[1]]]]]", []Option{WithMaxNestingDepth(3)}, "expression nesting exceeds limit: 3"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parsed, err := ast.Parse(tt.src)
			require.NoError(t, err)
			_, err = NewPlanner(stdlib.Resolver(), tt.opts...).Plan(parsed.Expr)
			var perr *Error
			require.ErrorAs(t, err, &perr)
			assert.Equal(t, tt.want, perr.Message)
		})
	}
}

func TestLimits(t *testing.T) {
	in := plan(t, "[1, 2, 3, 4, 5].map(i, i * 2)")

	rt := runtime.New(context.Background(), nil, runtime.WithCostLimit(4))
	v := in.Eval(rt, activation.Empty())
	assert.Equal(t, "operation cancelled: actual cost limit exceeded", errMessage(t, v))

	rt = runtime.New(context.Background(), nil)
	v = in.Eval(rt, activation.Empty())
	require.False(t, value.IsError(v))
	assert.Equal(t, int64(10), rt.Cost())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	v = in.Eval(runtime.New(ctx, nil), activation.Empty())
	assert.Equal(t, "operation interrupted", errMessage(t, v))
}
