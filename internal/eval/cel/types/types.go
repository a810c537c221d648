package types

import (
	"strings"
)

// Kind identifies the shape of a Type.
type Kind uint8

const (
	DynKind Kind = iota
	NullKind
	BoolKind
	IntKind
	UintKind
	DoubleKind
	StringKind
	BytesKind
	DurationKind
	TimestampKind
	ListKind
	MapKind
	TypeKind
	RecordKind
	TypeParamKind
	ErrorKind
	UnknownKind
)

// Well-known record names used for the time types.
const (
	DurationTypeName  = "google.protobuf.Duration"
	TimestampTypeName = "google.protobuf.Timestamp"
)

// Type is an immutable static classification of values.
type Type struct {
	kind   Kind
	name   string
	params []*Type
}

// Predeclared types.
var (
	Dyn       = &Type{kind: DynKind, name: "dyn"}
	Null      = &Type{kind: NullKind, name: "null_type"}
	Bool      = &Type{kind: BoolKind, name: "bool"}
	Int       = &Type{kind: IntKind, name: "int"}
	Uint      = &Type{kind: UintKind, name: "uint"}
	Double    = &Type{kind: DoubleKind, name: "double"}
	String    = &Type{kind: StringKind, name: "string"}
	Bytes     = &Type{kind: BytesKind, name: "bytes"}
	Duration  = &Type{kind: DurationKind, name: DurationTypeName}
	Timestamp = &Type{kind: TimestampKind, name: TimestampTypeName}
	TypeType  = &Type{kind: TypeKind, name: "type"}
	Error     = &Type{kind: ErrorKind, name: "*error*"}
	Unknown   = &Type{kind: UnknownKind, name: "*unknown*"}

	// List and Map are the runtime types of list and map values, whose
	// element types are not tracked once evaluation starts.
	List = NewList(Dyn)
	Map  = NewMap(Dyn, Dyn)
)

var byName = map[string]*Type{
	"dyn":             Dyn,
	"null_type":       Null,
	"bool":            Bool,
	"int":             Int,
	"uint":            Uint,
	"double":          Double,
	"string":          String,
	"bytes":           Bytes,
	"type":            TypeType,
	"list":            List,
	"map":             Map,
	DurationTypeName:  Duration,
	TimestampTypeName: Timestamp,
}

// ByName returns the predeclared type with the given runtime name.
func ByName(name string) (*Type, bool) {
	t, ok := byName[name]
	return t, ok
}

// NewList returns list(elem).
func NewList(elem *Type) *Type {
	return &Type{kind: ListKind, name: "list", params: []*Type{elem}}
}

// NewMap returns map(key, val).
func NewMap(key, val *Type) *Type {
	return &Type{kind: MapKind, name: "map", params: []*Type{key, val}}
}

// NewTypeOf returns type(t), the type of a type value denoting t.
func NewTypeOf(t *Type) *Type {
	return &Type{kind: TypeKind, name: "type", params: []*Type{t}}
}

// NewRecord returns the type of records with the given fully qualified name.
func NewRecord(name string) *Type {
	switch name {
	case DurationTypeName:
		return Duration
	case TimestampTypeName:
		return Timestamp
	}
	return &Type{kind: RecordKind, name: name}
}

// NewTypeParam returns a type parameter. Parameters only exist during checking.
func NewTypeParam(name string) *Type {
	return &Type{kind: TypeParamKind, name: name}
}

// Kind returns the kind of t.
func (t *Type) Kind() Kind {
	return t.kind
}

// Name returns the runtime name of t, e.g. "list" for every list type.
func (t *Type) Name() string {
	return t.name
}

// Parameters returns the type parameters of a list, map or type type.
func (t *Type) Parameters() []*Type {
	return t.params
}

// Elem returns the element type of a list.
func (t *Type) Elem() *Type {
	if t.kind != ListKind {
		return Dyn
	}
	return t.params[0]
}

// Key returns the key type of a map.
func (t *Type) Key() *Type {
	if t.kind != MapKind {
		return Dyn
	}
	return t.params[0]
}

// Value returns the value type of a map.
func (t *Type) Value() *Type {
	if t.kind != MapKind {
		return Dyn
	}
	return t.params[1]
}

// Param returns the denoted type of type(T), or dyn for a bare type.
func (t *Type) Param() *Type {
	if t.kind != TypeKind || len(t.params) == 0 {
		return Dyn
	}
	return t.params[0]
}

// IsDyn reports whether t is the top type.
func (t *Type) IsDyn() bool {
	return t.kind == DynKind
}

// WithParams returns a copy of t with new parameters.
func (t *Type) WithParams(params ...*Type) *Type {
	if len(params) == 0 && len(t.params) == 0 {
		return t
	}
	return &Type{kind: t.kind, name: t.name, params: params}
}

// Equal reports structural equality.
func (t *Type) Equal(o *Type) bool {
	if t == o {
		return true
	}
	if t == nil || o == nil {
		return false
	}
	if t.kind != o.kind || t.name != o.name || len(t.params) != len(o.params) {
		return false
	}
	for i := range t.params {
		if !t.params[i].Equal(o.params[i]) {
			return false
		}
	}
	return true
}

// String renders t in CEL type syntax, e.g. map(string, list(int)).
func (t *Type) String() string {
	if t == nil {
		return "<nil>"
	}
	switch t.kind {
	case ListKind, MapKind, TypeKind:
		if len(t.params) == 0 {
			return t.name
		}
		var sb strings.Builder
		sb.WriteString(t.name)
		sb.WriteByte('(')
		for i, p := range t.params {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(p.String())
		}
		sb.WriteByte(')')
		return sb.String()
	}
	return t.name
}

// Provider resolves record types and their fields.
type Provider interface {
	// FindType returns the type registered under a fully qualified name.
	FindType(name string) (*Type, bool)
	// FindFieldType returns the declared type of a record field.
	FindFieldType(typeName, field string) (*Type, bool)
}
