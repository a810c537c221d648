package value

import (
	"bytes"
	"strconv"
	"unicode/utf8"

	"github.com/aescanero/dago-node-cel/internal/eval/cel/types"
)

// Value is a runtime result of evaluation.
type Value interface {
	// Type returns the runtime type of the value.
	Type() *types.Type
}

// Null is the null value.
type Null struct{}

// Bool is a boolean value.
type Bool bool

// Int is a signed 64-bit integer value.
type Int int64

// Uint is an unsigned 64-bit integer value, a tag distinct from Int.
type Uint uint64

// Double is a 64-bit floating point value.
type Double float64

// String is a UTF-8 string value.
type String string

// Bytes is a byte sequence value.
type Bytes []byte

// TypeValue is a type used as a value, e.g. the result of type(1).
type TypeValue struct {
	T *types.Type
}

// Boxed is implemented by values that wrap another value, such as a
// protobuf Any. Functions and equality see the unboxed value.
type Boxed interface {
	Value
	Unbox() Value
}

// Record is an opaque structured value supplied by the host.
type Record interface {
	Value
	// TypeName returns the fully qualified record type name.
	TypeName() string
	// Field returns the value of a field, or false when the field does not exist.
	Field(name string) (Value, bool)
	// IsSet reports whether the field is explicitly set. known is false when
	// the record has no such field.
	IsSet(name string) (set bool, known bool)
	// Equal reports deep equality with another record of any type.
	Equal(other Record) bool
}

// Adapter converts host values into Values.
type Adapter interface {
	NativeToValue(v any) Value
}

// Shared values.
var (
	NullValue = Null{}
	True      = Bool(true)
	False     = Bool(false)
)

func (Null) Type() *types.Type   { return types.Null }
func (Bool) Type() *types.Type   { return types.Bool }
func (Int) Type() *types.Type    { return types.Int }
func (Uint) Type() *types.Type   { return types.Uint }
func (Double) Type() *types.Type { return types.Double }
func (String) Type() *types.Type { return types.String }
func (Bytes) Type() *types.Type  { return types.Bytes }

// Type returns type(T).
func (t TypeValue) Type() *types.Type { return types.NewTypeOf(t.T) }

func (Null) String() string     { return "null" }
func (b Bool) String() string   { return strconv.FormatBool(bool(b)) }
func (i Int) String() string    { return strconv.FormatInt(int64(i), 10) }
func (u Uint) String() string   { return strconv.FormatUint(uint64(u), 10) + "u" }
func (d Double) String() string { return strconv.FormatFloat(float64(d), 'g', -1, 64) }
func (s String) String() string { return strconv.Quote(string(s)) }
func (b Bytes) String() string  { return "b" + strconv.Quote(string(b)) }
func (t TypeValue) String() string {
	return t.T.Name()
}

// Equal reports byte-wise equality.
func (b Bytes) Equal(o Bytes) bool {
	return bytes.Equal(b, o)
}

// Size returns the number of code points in s.
func (s String) Size() int {
	return utf8.RuneCountInString(string(s))
}

// Unbox returns the innermost value wrapped by boxed values.
func Unbox(v Value) Value {
	for {
		b, ok := v.(Boxed)
		if !ok {
			return v
		}
		v = b.Unbox()
	}
}

// IsError reports whether v is an evaluation error.
func IsError(v Value) bool {
	_, ok := v.(*Error)
	return ok
}

// IsUnknown reports whether v is an unknown marker.
func IsUnknown(v Value) bool {
	_, ok := v.(*Unknown)
	return ok
}

// IsErrorOrUnknown reports whether v is not a concrete value.
func IsErrorOrUnknown(v Value) bool {
	switch v.(type) {
	case *Error, *Unknown:
		return true
	}
	return false
}

// TypeOf returns the runtime type of v as a type value.
func TypeOf(v Value) TypeValue {
	t := Unbox(v).Type()
	switch t.Kind() {
	case types.ListKind:
		return TypeValue{T: types.List}
	case types.MapKind:
		return TypeValue{T: types.Map}
	case types.TypeKind:
		return TypeValue{T: types.TypeType}
	}
	return TypeValue{T: t}
}
