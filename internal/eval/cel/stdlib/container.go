package stdlib

import (
	"math"
	"unicode/utf8"

	"github.com/aescanero/dago-node-cel/internal/eval/cel/functions"
	"github.com/aescanero/dago-node-cel/internal/eval/cel/types"
	"github.com/aescanero/dago-node-cel/internal/eval/cel/value"
)

func containerFunctions() functions.Groups {
	return functions.Groups{
		functions.NewGroup("size",
			unary("size_string", types.String, types.Int, size),
			unary("size_bytes", types.Bytes, types.Int, size),
			unary("size_list", listA, types.Int, size),
			unary("size_map", mapAB, types.Int, size),
			unary("string_size", types.String, types.Int, size, functions.Member()),
			unary("bytes_size", types.Bytes, types.Int, size, functions.Member()),
			unary("list_size", listA, types.Int, size, functions.Member()),
			unary("map_size", mapAB, types.Int, size, functions.Member()),
		),
		functions.NewGroup("@in",
			binary("in_list", paramA, listA, types.Bool, func(_ int64, a, b value.Value) value.Value {
				l := b.(value.List)
				for i := 0; i < l.Size(); i++ {
					if e, _ := l.Get(i); value.Equal(a, e) {
						return value.True
					}
				}
				return value.False
			}),
			binary("in_map", paramA, mapAB, types.Bool, func(_ int64, a, b value.Value) value.Value {
				return value.Bool(value.Has(b.(value.Map), a))
			}),
		),
		functions.NewGroup("_[_]",
			binary("index_list", listA, types.Int, paramA, func(id int64, a, b value.Value) value.Value {
				return listIndex(id, a.(value.List), int64(b.(value.Int)))
			}),
			binary("index_list_uint", listA, types.Uint, paramA, func(id int64, a, b value.Value) value.Value {
				u := b.(value.Uint)
				if u > math.MaxInt64 {
					return value.NewError(id, "index %d out of bounds [0, %d)", uint64(u), a.(value.List).Size())
				}
				return listIndex(id, a.(value.List), int64(u))
			}),
			binary("index_list_double", listA, types.Double, paramA, func(id int64, a, b value.Value) value.Value {
				d := float64(b.(value.Double))
				if d != math.Trunc(d) || d < math.MinInt64 || d >= math.MaxInt64 {
					return value.NewError(id, "unsupported index value: %v", d)
				}
				return listIndex(id, a.(value.List), int64(d))
			}),
			binary("index_map", mapAB, paramA, paramB, mapIndex),
		),
	}
}

func size(id int64, v value.Value) value.Value {
	switch v := v.(type) {
	case value.String:
		return value.Int(utf8.RuneCountInString(string(v)))
	case value.Bytes:
		return value.Int(len(v))
	case value.List:
		return value.Int(v.Size())
	case value.Map:
		return value.Int(v.Size())
	}
	return value.NoSuchOverload(id, "size", v)
}

func listIndex(id int64, l value.List, i int64) value.Value {
	if i < 0 || i >= int64(l.Size()) {
		return value.IndexOutOfBounds(id, i, l.Size())
	}
	v, _ := l.Get(int(i))
	return v
}

func mapIndex(id int64, a, key value.Value) value.Value {
	m := a.(value.Map)
	if v, ok := m.Get(key); ok {
		return v
	}
	if _, isDouble := key.(value.Double); !isDouble && !value.IsValidKey(key) {
		return value.UnsupportedKeyType(id)
	}
	return value.NewError(id, "no such key: %s", value.Format(key))
}
