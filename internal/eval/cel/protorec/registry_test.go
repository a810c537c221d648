package protorec

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/types/known/anypb"
	"google.golang.org/protobuf/types/known/durationpb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/timestamppb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/aescanero/dago-node-cel/internal/eval/cel/types"
	"github.com/aescanero/dago-node-cel/internal/eval/cel/value"
)

const userProto = `syntax = "proto3";

package acme.v1;

import "google/protobuf/timestamp.proto";
import "google/protobuf/wrappers.proto";

enum Color {
  COLOR_UNSPECIFIED = 0;
  RED = 1;
  GREEN = 2;
}

message Address {
  string city = 1;
}

message User {
  string name = 1;
  int32 age = 2;
  repeated string tags = 3;
  map<string, int64> scores = 4;
  Color color = 5;
  google.protobuf.Timestamp created = 6;
  google.protobuf.Int64Value quota = 7;
  Address address = 8;
}
`

func loadUsers(t *testing.T) *Registry {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "acme", "v1"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "acme", "v1", "user.proto"), []byte(userProto), 0o644))

	reg, err := NewRegistry()
	require.NoError(t, err)
	require.NoError(t, reg.LoadFiles([]string{dir}, "acme/v1/user.proto"))
	return reg
}

func TestWellKnownTypes(t *testing.T) {
	reg, err := NewRegistry()
	require.NoError(t, err)

	st, err := structpb.NewStruct(map[string]any{"a": 1.5, "b": "x", "c": []any{true}})
	require.NoError(t, err)
	packed, err := anypb.New(wrapperspb.String("hi"))
	require.NoError(t, err)
	ts := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

	tests := []struct {
		name string
		in   any
		want value.Value
	}{
		{"int64 wrapper", wrapperspb.Int64(5), value.Int(5)},
		{"uint32 wrapper", wrapperspb.UInt32(7), value.Uint(7)},
		{"string wrapper", wrapperspb.String("s"), value.String("s")},
		{"duration", durationpb.New(90 * time.Second), value.DurationOf(90 * time.Second)},
		{"null value", structpb.NewNullValue(), value.NullValue},
		{"any", packed, value.String("hi")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := reg.NativeToValue(tt.in)
			assert.True(t, value.Equal(tt.want, got), "got %v", got)
		})
	}

	t.Run("timestamp", func(t *testing.T) {
		got, ok := reg.NativeToValue(timestamppb.New(ts)).(value.Timestamp)
		require.True(t, ok)
		assert.True(t, ts.Equal(got.Time()))
	})

	t.Run("struct", func(t *testing.T) {
		m, ok := reg.NativeToValue(st).(value.Map)
		require.True(t, ok)
		a, _ := m.Get(value.String("a"))
		assert.Equal(t, value.Double(1.5), a)
		c, _ := m.Get(value.String("c"))
		assert.True(t, value.Equal(value.NewList(value.True), c))
	})

	t.Run("any is boxed", func(t *testing.T) {
		got := reg.NativeToValue(packed)
		_, boxed := got.(value.Boxed)
		assert.True(t, boxed)
		assert.Equal(t, types.String, got.Type())
	})

	t.Run("any errors are not boxed", func(t *testing.T) {
		for _, in := range []*anypb.Any{
			{TypeUrl: "type.googleapis.com/acme.v1.Missing"},
			{TypeUrl: "type.googleapis.com/google.protobuf.StringValue", Value: []byte{0xff}},
		} {
			got := reg.NativeToValue(in)
			_, isErr := got.(*value.Error)
			assert.True(t, isErr, "got %T for %s", got, in.TypeUrl)
		}
	})

	t.Run("plain values", func(t *testing.T) {
		got := reg.NativeToValue(map[string]any{"d": wrapperspb.Bool(true)})
		m, ok := got.(value.Map)
		require.True(t, ok)
		d, _ := m.Get(value.String("d"))
		assert.Equal(t, value.True, d)
	})
}

func TestLoadedTypes(t *testing.T) {
	reg := loadUsers(t)

	ut, ok := reg.FindType("acme.v1.User")
	require.True(t, ok)
	assert.Equal(t, types.RecordKind, ut.Kind())
	assert.Equal(t, "acme.v1.User", ut.Name())

	_, ok = reg.FindType("acme.v1.Missing")
	assert.False(t, ok)

	fields := []struct {
		field string
		want  string
	}{
		{"name", "string"},
		{"age", "int"},
		{"tags", "list(string)"},
		{"scores", "map(string, int)"},
		{"color", "int"},
		{"created", "google.protobuf.Timestamp"},
		{"quota", "dyn"},
		{"address", "acme.v1.Address"},
	}
	for _, f := range fields {
		ft, ok := reg.FindFieldType("acme.v1.User", f.field)
		require.True(t, ok, f.field)
		assert.Equal(t, f.want, ft.String(), f.field)
	}
	_, ok = reg.FindFieldType("acme.v1.User", "nope")
	assert.False(t, ok)

	red, ok := reg.FindEnumValue("acme.v1.Color.RED")
	require.True(t, ok)
	assert.Equal(t, int64(1), red)
	_, ok = reg.FindEnumValue("acme.v1.RED")
	assert.False(t, ok)
}

func TestNewRecord(t *testing.T) {
	reg := loadUsers(t)

	addr := reg.NewRecord(1, "acme.v1.Address", map[string]value.Value{"city": value.String("Lisbon")})
	require.IsType(t, &Record{}, addr)

	scores, mapErr := value.NewMap(0, value.Entry{Key: value.String("go"), Value: value.Int(9)})
	require.Nil(t, mapErr)
	fields := map[string]value.Value{
		"name":    value.String("ada"),
		"age":     value.Int(36),
		"tags":    value.NewList(value.String("a"), value.String("b")),
		"scores":  scores,
		"color":   value.Int(2),
		"quota":   value.Int(5),
		"address": addr,
	}
	v := reg.NewRecord(2, "acme.v1.User", fields)
	user, ok := v.(*Record)
	require.True(t, ok, "got %v", v)
	assert.Equal(t, "acme.v1.User", user.TypeName())

	get := func(name string) value.Value {
		t.Helper()
		fv, ok := user.Field(name)
		require.True(t, ok, name)
		return fv
	}
	assert.Equal(t, value.String("ada"), get("name"))
	assert.Equal(t, value.Int(36), get("age"))
	assert.Equal(t, value.Int(5), get("quota"))
	assert.Equal(t, value.Int(2), get("color"))
	assert.True(t, value.Equal(value.NewList(value.String("a"), value.String("b")), get("tags")))

	city, ok := get("address").(value.Record).Field("city")
	require.True(t, ok)
	assert.Equal(t, value.String("Lisbon"), city)

	set, known := user.IsSet("created")
	assert.True(t, known)
	assert.False(t, set)
	_, known = user.IsSet("nope")
	assert.False(t, known)
	_, ok = user.Field("nope")
	assert.False(t, ok)

	empty := reg.NewRecord(3, "acme.v1.User", nil).(*Record)
	quota, _ := empty.Field("quota")
	assert.Equal(t, value.NullValue, quota)

	again := reg.NewRecord(4, "acme.v1.User", fields)
	assert.True(t, value.Equal(user, again))
	assert.False(t, value.Equal(user, empty))
}

func TestNewRecordErrors(t *testing.T) {
	reg := loadUsers(t)

	tests := []struct {
		name     string
		typeName string
		fields   map[string]value.Value
		want     string
	}{
		{"unknown type", "acme.v1.Nope", nil, "type not found: acme.v1.Nope"},
		{"unknown field", "acme.v1.User", map[string]value.Value{"nope": value.Int(1)}, "field not found: nope"},
		{"wrong kind", "acme.v1.User", map[string]value.Value{"name": value.Int(1)}, "field name: expected string, got int"},
		{"int32 range", "acme.v1.User", map[string]value.Value{"age": value.Int(1 << 40)}, "field age: int32 out of range: 1099511627776"},
		{"not a list", "acme.v1.User", map[string]value.Value{"tags": value.String("a")}, "field tags: expected list, got string"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := reg.NewRecord(9, tt.typeName, tt.fields)
			e, ok := v.(*value.Error)
			require.True(t, ok, "got %v", v)
			assert.Equal(t, int64(9), e.ID)
			assert.Equal(t, tt.want, e.Message)
		})
	}
}

func TestLoadFilesErrors(t *testing.T) {
	reg, err := NewRegistry()
	require.NoError(t, err)
	err = reg.LoadFiles([]string{t.TempDir()}, "missing.proto")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse proto files")
}
