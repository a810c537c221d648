package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProvider map[string]*Type

func (p fakeProvider) FindType(name string) (*Type, bool) {
	t, ok := p[name]
	return t, ok
}

func (p fakeProvider) FindFieldType(string, string) (*Type, bool) {
	return nil, false
}

func TestType_String(t *testing.T) {
	tests := []struct {
		name string
		typ  *Type
		want string
	}{
		{"scalar", Int, "int"},
		{"null", Null, "null_type"},
		{"list", NewList(String), "list(string)"},
		{"nested map", NewMap(String, NewList(Int)), "map(string, list(int))"},
		{"type of type", NewTypeOf(Uint), "type(uint)"},
		{"bare type", TypeType, "type"},
		{"record", NewRecord("acme.v1.User"), "acme.v1.User"},
		{"duration", NewRecord(DurationTypeName), DurationTypeName},
		{"type param", NewTypeParam("_var0"), "_var0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.typ.String())
		})
	}
}

func TestType_Equal(t *testing.T) {
	assert.True(t, NewList(Int).Equal(NewList(Int)))
	assert.False(t, NewList(Int).Equal(NewList(Uint)))
	assert.True(t, NewRecord("a.B").Equal(NewRecord("a.B")))
	assert.False(t, NewRecord("a.B").Equal(NewRecord("a.C")))
	assert.Same(t, Duration, NewRecord(DurationTypeName))
	assert.Equal(t, "list", NewList(Int).Name())
}

func TestType_Accessors(t *testing.T) {
	m := NewMap(String, Bool)
	assert.Equal(t, String, m.Key())
	assert.Equal(t, Bool, m.Value())
	assert.Equal(t, Dyn, m.Elem())
	assert.Equal(t, Int, NewList(Int).Elem())
	assert.Equal(t, Dyn, TypeType.Param())
	assert.Equal(t, Int, NewTypeOf(Int).Param())
}

func TestParse(t *testing.T) {
	provider := fakeProvider{"acme.v1.User": NewRecord("acme.v1.User")}

	tests := []struct {
		src  string
		want *Type
	}{
		{"int", Int},
		{"map(string, dyn)", NewMap(String, Dyn)},
		{"list( list(int) )", NewList(NewList(Int))},
		{"type(string)", NewTypeOf(String)},
		{"acme.v1.User", NewRecord("acme.v1.User")},
		{"google.protobuf.Timestamp", Timestamp},
		{"list", List},
	}

	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			got, err := Parse(tt.src, provider)
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "got %s", got)
		})
	}
}

func TestParse_Errors(t *testing.T) {
	for _, src := range []string{"", "list(int", "map(int)", "int)", "list(,)"} {
		t.Run(src, func(t *testing.T) {
			_, err := Parse(src, nil)
			assert.Error(t, err)
		})
	}
}
