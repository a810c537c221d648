package activation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aescanero/dago-node-cel/internal/eval/cel/value"
)

func TestNew(t *testing.T) {
	calls := 0
	act := New(map[string]any{
		"x": 1,
		"lazy": func() any {
			calls++
			return "computed"
		},
	}, nil)

	v, ok := act.ResolveName("x")
	require.True(t, ok)
	assert.Equal(t, value.Int(1), v)

	v, ok = act.ResolveName("lazy")
	require.True(t, ok)
	assert.Equal(t, value.String("computed"), v)
	assert.Equal(t, 1, calls)

	_, ok = act.ResolveName("missing")
	assert.False(t, ok)
	assert.Nil(t, act.Parent())
}

func TestVarActivation_Shadowing(t *testing.T) {
	root := New(map[string]any{"x": 1, "y": 2}, nil)
	child := NewVarActivation(root, "x", value.String("shadow"))

	v, ok := child.ResolveName("x")
	require.True(t, ok)
	assert.Equal(t, value.String("shadow"), v)

	v, ok = child.ResolveName("y")
	require.True(t, ok)
	assert.Equal(t, value.Int(2), v)

	child.Set(value.True)
	v, _ = child.ResolveName("x")
	assert.Equal(t, value.True, v)
	assert.Equal(t, root, child.Parent())
}

func TestHierarchicalActivation(t *testing.T) {
	parent := New(map[string]any{"a": "parent", "b": "parent"}, nil)
	child := New(map[string]any{"a": "child"}, nil)
	act := NewHierarchicalActivation(parent, child)

	v, _ := act.ResolveName("a")
	assert.Equal(t, value.String("child"), v)
	v, _ = act.ResolveName("b")
	assert.Equal(t, value.String("parent"), v)
	_, ok := Empty().ResolveName("a")
	assert.False(t, ok)
}
