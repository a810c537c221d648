package stdlib

import (
	"math"
	"math/bits"

	"github.com/aescanero/dago-node-cel/internal/eval/cel/functions"
	"github.com/aescanero/dago-node-cel/internal/eval/cel/types"
	"github.com/aescanero/dago-node-cel/internal/eval/cel/value"
)

func arithmeticFunctions() functions.Groups {
	return functions.Groups{
		functions.NewGroup("_+_",
			binary("add_int64", types.Int, types.Int, types.Int, addInt),
			binary("add_uint64", types.Uint, types.Uint, types.Uint, addUint),
			binary("add_double", types.Double, types.Double, types.Double, func(_ int64, a, b value.Value) value.Value {
				return a.(value.Double) + b.(value.Double)
			}),
			binary("add_string", types.String, types.String, types.String, func(_ int64, a, b value.Value) value.Value {
				return a.(value.String) + b.(value.String)
			}),
			binary("add_bytes", types.Bytes, types.Bytes, types.Bytes, func(_ int64, a, b value.Value) value.Value {
				x, y := a.(value.Bytes), b.(value.Bytes)
				out := make(value.Bytes, 0, len(x)+len(y))
				return append(append(out, x...), y...)
			}),
			binary("add_list", listA, listA, listA, func(_ int64, a, b value.Value) value.Value {
				return value.Concat(a.(value.List), b.(value.List))
			}),
			binary("add_duration_duration", types.Duration, types.Duration, types.Duration, func(id int64, a, b value.Value) value.Value {
				return timeResult[value.Duration](id, "_+_", types.Duration)(a.(value.Duration).Add(b.(value.Duration)))
			}),
			binary("add_timestamp_duration", types.Timestamp, types.Duration, types.Timestamp, func(id int64, a, b value.Value) value.Value {
				return timeResult[value.Timestamp](id, "_+_", types.Timestamp)(a.(value.Timestamp).AddDuration(b.(value.Duration)))
			}),
			binary("add_duration_timestamp", types.Duration, types.Timestamp, types.Timestamp, func(id int64, a, b value.Value) value.Value {
				return timeResult[value.Timestamp](id, "_+_", types.Timestamp)(b.(value.Timestamp).AddDuration(a.(value.Duration)))
			}),
		),
		functions.NewGroup("_-_",
			binary("subtract_int64", types.Int, types.Int, types.Int, subtractInt),
			binary("subtract_uint64", types.Uint, types.Uint, types.Uint, func(id int64, a, b value.Value) value.Value {
				x, y := a.(value.Uint), b.(value.Uint)
				if y > x {
					return value.Overflow(id, "_-_", types.Uint)
				}
				return x - y
			}),
			binary("subtract_double", types.Double, types.Double, types.Double, func(_ int64, a, b value.Value) value.Value {
				return a.(value.Double) - b.(value.Double)
			}),
			binary("subtract_timestamp_timestamp", types.Timestamp, types.Timestamp, types.Duration, func(id int64, a, b value.Value) value.Value {
				return timeResult[value.Duration](id, "_-_", types.Duration)(a.(value.Timestamp).Sub(b.(value.Timestamp)))
			}),
			binary("subtract_timestamp_duration", types.Timestamp, types.Duration, types.Timestamp, func(id int64, a, b value.Value) value.Value {
				return timeResult[value.Timestamp](id, "_-_", types.Timestamp)(a.(value.Timestamp).SubDuration(b.(value.Duration)))
			}),
			binary("subtract_duration_duration", types.Duration, types.Duration, types.Duration, func(id int64, a, b value.Value) value.Value {
				return timeResult[value.Duration](id, "_-_", types.Duration)(a.(value.Duration).Sub(b.(value.Duration)))
			}),
		),
		functions.NewGroup("_*_",
			binary("multiply_int64", types.Int, types.Int, types.Int, multiplyInt),
			binary("multiply_uint64", types.Uint, types.Uint, types.Uint, func(id int64, a, b value.Value) value.Value {
				hi, lo := bits.Mul64(uint64(a.(value.Uint)), uint64(b.(value.Uint)))
				if hi != 0 {
					return value.Overflow(id, "_*_", types.Uint)
				}
				return value.Uint(lo)
			}),
			binary("multiply_double", types.Double, types.Double, types.Double, func(_ int64, a, b value.Value) value.Value {
				return a.(value.Double) * b.(value.Double)
			}),
		),
		functions.NewGroup("_/_",
			binary("divide_int64", types.Int, types.Int, types.Int, func(id int64, a, b value.Value) value.Value {
				x, y := a.(value.Int), b.(value.Int)
				switch {
				case y == 0:
					return value.DivideByZero(id)
				case x == math.MinInt64 && y == -1:
					return value.Overflow(id, "_/_", types.Int)
				}
				return x / y
			}),
			binary("divide_uint64", types.Uint, types.Uint, types.Uint, func(id int64, a, b value.Value) value.Value {
				if b.(value.Uint) == 0 {
					return value.DivideByZero(id)
				}
				return a.(value.Uint) / b.(value.Uint)
			}),
			binary("divide_double", types.Double, types.Double, types.Double, func(_ int64, a, b value.Value) value.Value {
				return a.(value.Double) / b.(value.Double)
			}),
		),
		functions.NewGroup("_%_",
			binary("modulo_int64", types.Int, types.Int, types.Int, func(id int64, a, b value.Value) value.Value {
				x, y := a.(value.Int), b.(value.Int)
				switch {
				case y == 0:
					return value.ModulusByZero(id)
				case x == math.MinInt64 && y == -1:
					return value.Overflow(id, "_%_", types.Int)
				}
				return x % y
			}),
			binary("modulo_uint64", types.Uint, types.Uint, types.Uint, func(id int64, a, b value.Value) value.Value {
				if b.(value.Uint) == 0 {
					return value.ModulusByZero(id)
				}
				return a.(value.Uint) % b.(value.Uint)
			}),
		),
		functions.NewGroup("-_",
			unary("negate_int64", types.Int, types.Int, func(id int64, v value.Value) value.Value {
				if v.(value.Int) == math.MinInt64 {
					return value.Overflow(id, "-_", types.Int)
				}
				return -v.(value.Int)
			}),
			unary("negate_double", types.Double, types.Double, func(_ int64, v value.Value) value.Value {
				return -v.(value.Double)
			}),
		),
	}
}

func addInt(id int64, a, b value.Value) value.Value {
	x, y := a.(value.Int), b.(value.Int)
	if (y > 0 && x > math.MaxInt64-y) || (y < 0 && x < math.MinInt64-y) {
		return value.Overflow(id, "_+_", types.Int)
	}
	return x + y
}

func addUint(id int64, a, b value.Value) value.Value {
	sum, carry := bits.Add64(uint64(a.(value.Uint)), uint64(b.(value.Uint)), 0)
	if carry != 0 {
		return value.Overflow(id, "_+_", types.Uint)
	}
	return value.Uint(sum)
}

func subtractInt(id int64, a, b value.Value) value.Value {
	x, y := a.(value.Int), b.(value.Int)
	if (y < 0 && x > math.MaxInt64+y) || (y > 0 && x < math.MinInt64+y) {
		return value.Overflow(id, "_-_", types.Int)
	}
	return x - y
}

func multiplyInt(id int64, a, b value.Value) value.Value {
	x, y := a.(value.Int), b.(value.Int)
	if x == 0 || y == 0 {
		return value.Int(0)
	}
	p := x * y
	if (x == -1 && y == math.MinInt64) || (y == -1 && x == math.MinInt64) || p/y != x {
		return value.Overflow(id, "_*_", types.Int)
	}
	return p
}

// timeResult adapts the (result, error) pairs of the duration and
// timestamp arithmetic. Range errors are reported as overflows.
func timeResult[T value.Value](id int64, op string, t *types.Type) func(T, error) value.Value {
	return func(v T, err error) value.Value {
		if err != nil {
			return value.Overflow(id, op, t)
		}
		return v
	}
}
