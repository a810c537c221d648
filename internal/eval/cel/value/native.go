package value

import (
	"fmt"
	"reflect"
	"sort"
	"time"
)

// NativeToValue converts common Go values. Nested elements go back through
// a, so adapters that understand more types (e.g. protobuf messages) can
// delegate here for everything else. Unsupported values become errors.
func NativeToValue(a Adapter, v any) Value {
	if a == nil {
		a = DefaultAdapter
	}
	switch v := v.(type) {
	case nil:
		return NullValue
	case Value:
		return v
	case bool:
		return Bool(v)
	case int:
		return Int(v)
	case int8:
		return Int(v)
	case int16:
		return Int(v)
	case int32:
		return Int(v)
	case int64:
		return Int(v)
	case uint:
		return Uint(v)
	case uint8:
		return Uint(v)
	case uint16:
		return Uint(v)
	case uint32:
		return Uint(v)
	case uint64:
		return Uint(v)
	case float32:
		return Double(v)
	case float64:
		return Double(v)
	case string:
		return String(v)
	case []byte:
		return Bytes(v)
	case time.Duration:
		return DurationOf(v)
	case time.Time:
		ts, err := TimestampOf(v)
		if err != nil {
			return WrapError(0, err)
		}
		return ts
	case []any:
		elems := make([]Value, len(v))
		for i, e := range v {
			elems[i] = a.NativeToValue(e)
		}
		return NewList(elems...)
	case map[string]any:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		entries := make([]Entry, len(keys))
		for i, k := range keys {
			entries[i] = Entry{Key: String(k), Value: a.NativeToValue(v[k])}
		}
		m, err := NewMap(0, entries...)
		if err != nil {
			return err
		}
		return m
	}
	return reflectToValue(a, reflect.ValueOf(v))
}

func reflectToValue(a Adapter, rv reflect.Value) Value {
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return NullValue
		}
		return a.NativeToValue(rv.Elem().Interface())
	case reflect.Slice, reflect.Array:
		elems := make([]Value, rv.Len())
		for i := range elems {
			elems[i] = a.NativeToValue(rv.Index(i).Interface())
		}
		return NewList(elems...)
	case reflect.Map:
		entries := make([]Entry, 0, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			entries = append(entries, Entry{
				Key:   a.NativeToValue(iter.Key().Interface()),
				Value: a.NativeToValue(iter.Value().Interface()),
			})
		}
		m, err := NewMap(0, entries...)
		if err != nil {
			return err
		}
		return m
	case reflect.Bool:
		return Bool(rv.Bool())
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return Int(rv.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return Uint(rv.Uint())
	case reflect.Float32, reflect.Float64:
		return Double(rv.Float())
	case reflect.String:
		return String(rv.String())
	}
	return NewError(0, "unsupported native type: %T", rv.Interface())
}

type defaultAdapter struct{}

func (defaultAdapter) NativeToValue(v any) Value {
	return NativeToValue(defaultAdapter{}, v)
}

// DefaultAdapter converts plain Go values only.
var DefaultAdapter Adapter = defaultAdapter{}

// ToNative converts v into plain Go values suitable for JSON encoding.
// Records that cannot be represented return an error.
func ToNative(v Value) (any, error) {
	switch v := Unbox(v).(type) {
	case Null:
		return nil, nil
	case Bool:
		return bool(v), nil
	case Int:
		return int64(v), nil
	case Uint:
		return uint64(v), nil
	case Double:
		return float64(v), nil
	case String:
		return string(v), nil
	case Bytes:
		return []byte(v), nil
	case Duration:
		return v.Go(), nil
	case Timestamp:
		return v.Time(), nil
	case TypeValue:
		return v.T.String(), nil
	case List:
		out := make([]any, v.Size())
		for i := range out {
			e, _ := v.Get(i)
			n, err := ToNative(e)
			if err != nil {
				return nil, err
			}
			out[i] = n
		}
		return out, nil
	case Map:
		out := make(map[string]any, v.Size())
		for _, k := range v.Keys() {
			e, _ := v.Get(k)
			n, err := ToNative(e)
			if err != nil {
				return nil, err
			}
			out[keyString(k)] = n
		}
		return out, nil
	case *Error:
		return nil, v
	case *Unknown:
		return nil, fmt.Errorf("result is unknown (ids %v)", v.IDs)
	case interface{ Native() any }:
		return v.Native(), nil
	}
	return nil, fmt.Errorf("cannot convert %s to a native value", v.Type())
}

func keyString(k Value) string {
	if s, ok := k.(String); ok {
		return string(s)
	}
	return Format(k)
}

// Format renders v in expression syntax.
func Format(v Value) string {
	if s, ok := v.(fmt.Stringer); ok {
		return s.String()
	}
	if v == nil {
		return "<nil>"
	}
	return fmt.Sprintf("%v", v)
}
