package stdlib

import (
	"github.com/aescanero/dago-node-cel/internal/eval/cel/functions"
	"github.com/aescanero/dago-node-cel/internal/eval/cel/types"
	"github.com/aescanero/dago-node-cel/internal/eval/cel/value"
)

// orderedPairs lists the operand types that can be ordered, with the
// overload id suffix of each pair.
var orderedPairs = []struct {
	suffix   string
	lhs, rhs *types.Type
}{
	{"bool", types.Bool, types.Bool},
	{"int64", types.Int, types.Int},
	{"int64_uint64", types.Int, types.Uint},
	{"int64_double", types.Int, types.Double},
	{"uint64", types.Uint, types.Uint},
	{"uint64_int64", types.Uint, types.Int},
	{"uint64_double", types.Uint, types.Double},
	{"double", types.Double, types.Double},
	{"double_int64", types.Double, types.Int},
	{"double_uint64", types.Double, types.Uint},
	{"string", types.String, types.String},
	{"bytes", types.Bytes, types.Bytes},
	{"timestamp", types.Timestamp, types.Timestamp},
	{"duration", types.Duration, types.Duration},
}

var orderings = []struct {
	function string
	prefix   string
	holds    func(cmp int) bool
}{
	{"_<_", "less", func(c int) bool { return c < 0 }},
	{"_<=_", "less_equals", func(c int) bool { return c <= 0 }},
	{"_>_", "greater", func(c int) bool { return c > 0 }},
	{"_>=_", "greater_equals", func(c int) bool { return c >= 0 }},
}

func comparisonFunctions() functions.Groups {
	groups := functions.Groups{
		functions.NewGroup("_==_",
			binary("equals", paramA, paramA, types.Bool, func(_ int64, a, b value.Value) value.Value {
				return value.Bool(value.Equal(a, b))
			})),
		functions.NewGroup("_!=_",
			binary("not_equals", paramA, paramA, types.Bool, func(_ int64, a, b value.Value) value.Value {
				return value.Bool(!value.Equal(a, b))
			})),
	}
	for _, o := range orderings {
		holds := o.holds
		overloads := make([]*functions.Overload, 0, len(orderedPairs))
		for _, p := range orderedPairs {
			overloads = append(overloads, binary(o.prefix+"_"+p.suffix, p.lhs, p.rhs, types.Bool,
				func(_ int64, a, b value.Value) value.Value {
					cmp, ok := value.Compare(a, b)
					return value.Bool(ok && holds(cmp))
				}))
		}
		groups = append(groups, functions.NewGroup(o.function, overloads...))
	}
	return groups
}
