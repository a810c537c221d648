package checker

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aescanero/dago-node-cel/internal/eval/cel/ast"
	"github.com/aescanero/dago-node-cel/internal/eval/cel/functions"
	"github.com/aescanero/dago-node-cel/internal/eval/cel/namespace"
	"github.com/aescanero/dago-node-cel/internal/eval/cel/types"
	"github.com/aescanero/dago-node-cel/internal/eval/cel/value"
)

var (
	paramA = types.NewTypeParam("A")
	paramK = types.NewTypeParam("K")
	paramV = types.NewTypeParam("V")
)

func sig(args ...*types.Type) []*types.Type { return args }

func testFunctions() *functions.Resolver {
	return functions.NewResolver(functions.Groups{
		functions.NewGroup("_+_",
			functions.NewOverload("add_int64", sig(types.Int, types.Int), types.Int, nil),
			functions.NewOverload("add_string", sig(types.String, types.String), types.String, nil),
		),
		functions.NewGroup("_>_",
			functions.NewOverload("greater_int64", sig(types.Int, types.Int), types.Bool, nil),
		),
		functions.NewGroup("_==_",
			functions.NewOverload("equals", sig(paramA, paramA), types.Bool, nil),
		),
		functions.NewGroup("size",
			functions.NewOverload("size_list", sig(types.NewList(paramA)), types.Int, nil),
			functions.NewOverload("list_size", sig(types.NewList(paramA)), types.Int, nil, functions.Member()),
		),
		functions.NewGroup("_[_]",
			functions.NewOverload("index_list", sig(types.NewList(paramA), types.Int), paramA, nil),
			functions.NewOverload("index_map", sig(types.NewMap(paramK, paramV), paramK), paramV, nil),
		),
		functions.NewGroup("acme.twice",
			functions.NewOverload("acme.twice", sig(types.Int), types.Int, nil),
		),
	})
}

type fakeProvider struct{}

func (fakeProvider) FindType(name string) (*types.Type, bool) {
	if name == "acme.User" {
		return types.NewRecord(name), true
	}
	return nil, false
}

func (fakeProvider) FindFieldType(typeName, field string) (*types.Type, bool) {
	if typeName == "acme.User" && field == "name" {
		return types.String, true
	}
	return nil, false
}

func (fakeProvider) FindEnumValue(name string) (int64, bool) {
	if name == "acme.Color.RED" {
		return 1, true
	}
	return 0, false
}

func testEnv(container string, vars ...*Ident) *Env {
	return &Env{
		Container: namespace.New(container),
		Scope:     NewScope(vars...).PushFunctions(testFunctions()),
		Provider:  fakeProvider{},
	}
}

func check(t *testing.T, env *Env, src string) (*Result, error) {
	t.Helper()
	a, err := ast.Parse(src)
	require.NoError(t, err)
	return Check(a.Expr, env)
}

func TestCheck_OutputTypes(t *testing.T) {
	env := testEnv("",
		NewVariable("x", types.Int),
		NewVariable("m", types.NewMap(types.String, types.Int)),
		NewVariable("d", types.Dyn),
		NewVariable("u", types.NewRecord("acme.User")),
	)

	tests := []struct {
		expr string
		want string
	}{
		{`x + 1`, "int"},
		{`"a" + "b"`, "string"},
		{`x > 1 && true`, "bool"},
		{`[1, 2][0]`, "int"},
		{`size([1, 2])`, "int"},
		{`[1, 2].size()`, "int"},
		{`m["k"]`, "int"},
		{`m.k`, "int"},
		{`d.anything`, "dyn"},
		{`u.name`, "string"},
		{`has(u.name)`, "bool"},
		{`[1, "a"]`, "list(dyn)"},
		{`[]`, "list(dyn)"},
		{`{}`, "map(dyn, dyn)"},
		{`{"a": [1]}`, "map(string, list(int))"},
		{`true ? 1 : 2`, "int"},
		{`true ? 1 : "a"`, "dyn"},
		{`[1, 2].all(v, v > 0)`, "bool"},
		{`[1, 2].map(v, "s")`, "list(string)"},
		{`[1, 2].map(v, v > 0, v + 1)`, "list(int)"},
		{`m.filter(k, k == "a")`, "list(string)"},
		{`int`, "type(int)"},
		{`acme.User`, "type(acme.User)"},
		{`acme.User{name: "n"}`, "acme.User"},
		{`acme.Color.RED + 1`, "int"},
		{`acme.twice(2)`, "int"},
		{`null`, "null_type"},
	}
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			res, err := check(t, env, tt.expr)
			require.NoError(t, err)
			assert.Equal(t, tt.want, res.OutputType.String())
			for id, typ := range res.Types {
				assert.NotEqual(t, types.TypeParamKind, typ.Kind(), "node %d keeps a type parameter", id)
			}
		})
	}
}

func TestCheck_ExpandedComprehension(t *testing.T) {
	a, err := ast.Parse(`[1, 2].exists(v, v > 1)`, ast.ExpandMacros())
	require.NoError(t, err)
	env := testEnv("")
	env.Scope = env.Scope.PushFunctions(functions.NewResolver(
		functions.NewNonStrictGroup("@not_strictly_false",
			functions.NewOverload("not_strictly_false", sig(types.Bool), types.Bool, nil)),
		functions.NewNonStrictGroup("!_",
			functions.NewOverload("logical_not", sig(types.Bool), types.Bool, nil)),
	))
	res, err := Check(a.Expr, env)
	require.NoError(t, err)
	assert.Equal(t, types.Bool, res.OutputType)
}

func TestCheck_Errors(t *testing.T) {
	env := testEnv("acme", NewVariable("x", types.Int), NewVariable("u", types.NewRecord("acme.User")))

	tests := []struct {
		expr string
		want []string
	}{
		{`y`, []string{"undeclared reference to 'y' (in container 'acme')"}},
		{`x + "a"`, []string{"found no matching overload for '_+_' applied to '(int, string)'"}},
		{`x && true`, []string{"type mismatch: expected bool, got int"}},
		{`u.age`, []string{"undefined field 'age'"}},
		{`x.f`, []string{"type 'int' does not support field selection"}},
		{`x.all(v, v)`, []string{"expression of type 'int' cannot be range of a comprehension (must be list, map, or dynamic)"}},
		{`nope(1)`, []string{"undeclared reference to 'nope' (in container 'acme')"}},
		{`a + b`, []string{
			"undeclared reference to 'a' (in container 'acme')",
			"undeclared reference to 'b' (in container 'acme')",
		}},
	}
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			_, err := check(t, env, tt.expr)
			var cerr *Error
			require.True(t, errors.As(err, &cerr), "got %v", err)
			msgs := make([]string, len(cerr.Issues))
			for i, is := range cerr.Issues {
				msgs[i] = is.Message
				assert.NotZero(t, is.ID)
			}
			assert.Equal(t, tt.want, msgs)
		})
	}
}

func TestCheck_ContainerResolution(t *testing.T) {
	env := testEnv("acme.v1",
		NewVariable("acme.v1.x", types.Int),
		NewVariable("x", types.String),
		NewVariable("a.b", types.Bool),
	)

	a, err := ast.Parse("x")
	require.NoError(t, err)
	res, err := Check(a.Expr, env)
	require.NoError(t, err)
	assert.Equal(t, "acme.v1.x", res.References[a.Expr.ID].Name)
	assert.Equal(t, types.Int, res.OutputType)

	a, err = ast.Parse(".x")
	require.NoError(t, err)
	res, err = Check(a.Expr, env)
	require.NoError(t, err)
	assert.Equal(t, types.String, res.OutputType)

	a, err = ast.Parse("a.b")
	require.NoError(t, err)
	res, err = Check(a.Expr, env)
	require.NoError(t, err)
	assert.Equal(t, "a.b", res.References[a.Expr.ID].Name)

	a, err = ast.Parse("acme.Color.RED")
	require.NoError(t, err)
	res, err = Check(a.Expr, env)
	require.NoError(t, err)
	assert.Equal(t, value.Int(1), res.References[a.Expr.ID].Value)
}

func TestCheck_OverloadReferences(t *testing.T) {
	env := testEnv("", NewVariable("d", types.Dyn))
	a, err := ast.Parse("d + d")
	require.NoError(t, err)
	res, err := Check(a.Expr, env)
	require.NoError(t, err)
	// both overloads may apply and disagree on the result
	assert.Equal(t, types.Dyn, res.OutputType)
	assert.Equal(t, []string{"add_int64", "add_string"}, res.References[a.Expr.ID].OverloadIDs)
}

func TestScope(t *testing.T) {
	root := NewScope(NewVariable("x", types.Int))
	assert.Same(t, root, root.Pop())

	child := root.Push(NewVariable("x", types.String), NewVariable("y", types.Bool))
	x, ok := child.FindIdent("x")
	require.True(t, ok)
	assert.Equal(t, types.String, x.Type)

	x, ok = child.Pop().FindIdent("x")
	require.True(t, ok)
	assert.Equal(t, types.Int, x.Type)
	_, ok = root.FindIdent("y")
	assert.False(t, ok)

	// siblings share the parent without seeing each other
	sibling := root.Push(NewVariable("z", types.Int))
	_, ok = sibling.FindIdent("y")
	assert.False(t, ok)

	fns := root.PushFunctions(testFunctions())
	_, ok = fns.FindFunction("size")
	assert.True(t, ok)
	_, ok = root.FindFunction("size")
	assert.False(t, ok)
}

func TestMapping(t *testing.T) {
	m := NewMapping()
	m.Add(types.NewTypeParam("T"), types.Int)

	cp := m.Copy()
	cp.Add(types.NewTypeParam("T"), types.String)
	cp.Add(types.NewTypeParam("U"), types.Bool)

	// keyed by canonical form, not identity
	got, ok := m.Find(types.NewTypeParam("T"))
	require.True(t, ok)
	assert.Equal(t, types.Int, got)
	_, ok = m.Find(types.NewTypeParam("U"))
	assert.False(t, ok)

	// a later Add replaces the binding
	got, ok = cp.Find(types.NewTypeParam("T"))
	require.True(t, ok)
	assert.Equal(t, types.String, got)
	got, ok = cp.Find(types.NewTypeParam("U"))
	require.True(t, ok)
	assert.Equal(t, types.Bool, got)
	_, ok = NewMapping().Find(types.NewTypeParam("T"))
	assert.False(t, ok)
}

func TestIsAssignable(t *testing.T) {
	tests := []struct {
		name string
		t1   *types.Type
		t2   *types.Type
		want bool
	}{
		{"same", types.Int, types.Int, true},
		{"different", types.Int, types.Uint, false},
		{"dyn", types.Int, types.Dyn, true},
		{"null to record", types.Null, types.NewRecord("acme.User"), true},
		{"null to int", types.Null, types.Int, false},
		{"list param", types.NewList(types.Int), types.NewList(paramA), true},
		{"map params", types.NewMap(types.String, types.Int), types.NewMap(paramK, paramV), true},
		{"list to map", types.NewList(types.Int), types.NewMap(paramK, paramV), false},
		{"type values", types.NewTypeOf(types.Int), types.TypeType, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := isAssignable(NewMapping(), tt.t1, tt.t2)
			assert.Equal(t, tt.want, ok)
		})
	}

	// occurs check: A cannot be bound to list(A)
	_, ok := isAssignable(NewMapping(), types.NewList(paramA), paramA)
	assert.False(t, ok)

	// a bound parameter constrains later arguments
	m, ok := isAssignableList(NewMapping(), sig(types.Int, types.String), sig(paramA, paramA))
	assert.False(t, ok)
	assert.Nil(t, m)
}
