package stdlib

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/aescanero/dago-node-cel/internal/eval/cel/functions"
	"github.com/aescanero/dago-node-cel/internal/eval/cel/types"
	"github.com/aescanero/dago-node-cel/internal/eval/cel/value"
)

func identity(_ int64, v value.Value) value.Value { return v }

func conversionFunctions() functions.Groups {
	return functions.Groups{
		functions.NewGroup("int",
			unary("int64_to_int64", types.Int, types.Int, identity),
			unary("uint64_to_int64", types.Uint, types.Int, func(id int64, v value.Value) value.Value {
				if v.(value.Uint) > math.MaxInt64 {
					return value.Overflow(id, "int", types.Int)
				}
				return value.Int(v.(value.Uint))
			}),
			unary("double_to_int64", types.Double, types.Int, func(id int64, v value.Value) value.Value {
				d := float64(v.(value.Double))
				if math.IsNaN(d) || d < math.MinInt64 || d >= math.MaxInt64 {
					return value.Overflow(id, "int", types.Int)
				}
				return value.Int(d)
			}),
			unary("string_to_int64", types.String, types.Int, func(id int64, v value.Value) value.Value {
				i, err := strconv.ParseInt(string(v.(value.String)), 10, 64)
				if err != nil {
					return conversionError(id, v, types.Int)
				}
				return value.Int(i)
			}),
			unary("timestamp_to_int64", types.Timestamp, types.Int, func(_ int64, v value.Value) value.Value {
				return value.Int(v.(value.Timestamp).Seconds)
			}),
			unary("duration_to_int64", types.Duration, types.Int, func(_ int64, v value.Value) value.Value {
				return value.Int(v.(value.Duration).Seconds)
			}),
		),
		functions.NewGroup("uint",
			unary("uint64_to_uint64", types.Uint, types.Uint, identity),
			unary("int64_to_uint64", types.Int, types.Uint, func(id int64, v value.Value) value.Value {
				if v.(value.Int) < 0 {
					return value.Overflow(id, "uint", types.Uint)
				}
				return value.Uint(v.(value.Int))
			}),
			unary("double_to_uint64", types.Double, types.Uint, func(id int64, v value.Value) value.Value {
				d := float64(v.(value.Double))
				if math.IsNaN(d) || d < 0 || d >= math.MaxUint64 {
					return value.Overflow(id, "uint", types.Uint)
				}
				return value.Uint(d)
			}),
			unary("string_to_uint64", types.String, types.Uint, func(id int64, v value.Value) value.Value {
				u, err := strconv.ParseUint(string(v.(value.String)), 10, 64)
				if err != nil {
					return conversionError(id, v, types.Uint)
				}
				return value.Uint(u)
			}),
		),
		functions.NewGroup("double",
			unary("double_to_double", types.Double, types.Double, identity),
			unary("int64_to_double", types.Int, types.Double, func(_ int64, v value.Value) value.Value {
				return value.Double(v.(value.Int))
			}),
			unary("uint64_to_double", types.Uint, types.Double, func(_ int64, v value.Value) value.Value {
				return value.Double(v.(value.Uint))
			}),
			unary("string_to_double", types.String, types.Double, func(id int64, v value.Value) value.Value {
				d, err := strconv.ParseFloat(string(v.(value.String)), 64)
				if err != nil {
					return conversionError(id, v, types.Double)
				}
				return value.Double(d)
			}),
		),
		functions.NewGroup("bool",
			unary("bool_to_bool", types.Bool, types.Bool, identity),
			unary("string_to_bool", types.String, types.Bool, func(id int64, v value.Value) value.Value {
				switch v.(value.String) {
				case "true", "True", "TRUE", "t", "1":
					return value.True
				case "false", "False", "FALSE", "f", "0":
					return value.False
				}
				return conversionError(id, v, types.Bool)
			}),
		),
		functions.NewGroup("bytes",
			unary("bytes_to_bytes", types.Bytes, types.Bytes, identity),
			unary("string_to_bytes", types.String, types.Bytes, func(_ int64, v value.Value) value.Value {
				return value.Bytes(v.(value.String))
			}),
		),
		functions.NewGroup("string",
			unary("string_to_string", types.String, types.String, identity),
			unary("bool_to_string", types.Bool, types.String, func(_ int64, v value.Value) value.Value {
				return value.String(strconv.FormatBool(bool(v.(value.Bool))))
			}),
			unary("int64_to_string", types.Int, types.String, func(_ int64, v value.Value) value.Value {
				return value.String(strconv.FormatInt(int64(v.(value.Int)), 10))
			}),
			unary("uint64_to_string", types.Uint, types.String, func(_ int64, v value.Value) value.Value {
				return value.String(strconv.FormatUint(uint64(v.(value.Uint)), 10))
			}),
			unary("double_to_string", types.Double, types.String, func(_ int64, v value.Value) value.Value {
				return value.String(strconv.FormatFloat(float64(v.(value.Double)), 'g', -1, 64))
			}),
			unary("bytes_to_string", types.Bytes, types.String, func(id int64, v value.Value) value.Value {
				b := v.(value.Bytes)
				if !utf8.Valid(b) {
					return value.NewError(id, "Failed to decode bytes as string: invalid UTF-8")
				}
				return value.String(b)
			}),
			unary("timestamp_to_string", types.Timestamp, types.String, func(_ int64, v value.Value) value.Value {
				return value.String(v.(value.Timestamp).String())
			}),
			unary("duration_to_string", types.Duration, types.String, func(_ int64, v value.Value) value.Value {
				return value.String(FormatDuration(v.(value.Duration)))
			}),
		),
		functions.NewGroup("timestamp",
			unary("timestamp_to_timestamp", types.Timestamp, types.Timestamp, identity),
			unary("string_to_timestamp", types.String, types.Timestamp, func(id int64, v value.Value) value.Value {
				ts, err := value.ParseTimestamp(string(v.(value.String)))
				if err != nil {
					return value.NewError(id, "timestamp conversion error: %v", err)
				}
				return ts
			}),
			unary("int64_to_timestamp", types.Int, types.Timestamp, func(id int64, v value.Value) value.Value {
				ts, err := value.NewTimestamp(int64(v.(value.Int)), 0)
				if err != nil {
					return value.WrapError(id, err)
				}
				return ts
			}),
		),
		functions.NewGroup("duration",
			unary("duration_to_duration", types.Duration, types.Duration, identity),
			unary("string_to_duration", types.String, types.Duration, func(id int64, v value.Value) value.Value {
				d, err := value.ParseDuration(string(v.(value.String)))
				if err != nil {
					return value.NewError(id, "duration conversion error: %v", err)
				}
				return d
			}),
			unary("int64_to_duration", types.Int, types.Duration, func(id int64, v value.Value) value.Value {
				d, err := value.NewDuration(int64(v.(value.Int)), 0)
				if err != nil {
					return value.WrapError(id, err)
				}
				return d
			}),
		),
		functions.NewGroup("type",
			unary("type", paramA, types.NewTypeOf(paramA), func(_ int64, v value.Value) value.Value {
				return value.TypeOf(v)
			}),
		),
		functions.NewGroup("dyn",
			unary("to_dyn", paramA, types.Dyn, identity),
		),
	}
}

func conversionError(id int64, v value.Value, to *types.Type) *value.Error {
	return value.NewError(id, "type conversion error from '%s' to '%s': %s", v.Type().Name(), to.Name(), value.Format(v))
}

// FormatDuration renders d in the seconds form used by JSON, e.g. "1.5s".
func FormatDuration(d value.Duration) string {
	sign := ""
	secs, nanos := d.Seconds, int64(d.Nanos)
	if secs < 0 || nanos < 0 {
		sign = "-"
		secs, nanos = -secs, -nanos
	}
	if nanos == 0 {
		return fmt.Sprintf("%s%ds", sign, secs)
	}
	frac := strings.TrimRight(fmt.Sprintf("%09d", nanos), "0")
	return fmt.Sprintf("%s%d.%ss", sign, secs, frac)
}
