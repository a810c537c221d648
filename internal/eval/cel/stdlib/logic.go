package stdlib

import (
	"github.com/aescanero/dago-node-cel/internal/eval/cel/functions"
	"github.com/aescanero/dago-node-cel/internal/eval/cel/runtime"
	"github.com/aescanero/dago-node-cel/internal/eval/cel/types"
	"github.com/aescanero/dago-node-cel/internal/eval/cel/value"
)

func logicFunctions() functions.Groups {
	return functions.Groups{
		functions.NewGroup("!_",
			unary("logical_not", types.Bool, types.Bool, func(_ int64, v value.Value) value.Value {
				return !v.(value.Bool)
			})),
		functions.NewNonStrictGroup("@not_strictly_false",
			unary("not_strictly_false", types.Bool, types.Bool, func(_ int64, v value.Value) value.Value {
				if b, ok := v.(value.Bool); ok {
					return b
				}
				return value.True
			})),
		functions.NewNonStrictGroup("_&&_",
			binary("logical_and", types.Bool, types.Bool, types.Bool, func(id int64, a, b value.Value) value.Value {
				return Logic(id, "_&&_", false, a, b)
			})),
		functions.NewNonStrictGroup("_||_",
			binary("logical_or", types.Bool, types.Bool, types.Bool, func(id int64, a, b value.Value) value.Value {
				return Logic(id, "_||_", true, a, b)
			})),
		functions.NewNonStrictGroup("_?_:_",
			functions.NewOverload("conditional", sig(types.Bool, paramA, paramA), paramA,
				func(_ *runtime.Context, id int64, args []value.Value) value.Value {
					switch c := args[0].(type) {
					case value.Bool:
						if c {
							return args[1]
						}
						return args[2]
					case *value.Error, *value.Unknown:
						return c
					}
					return value.NoSuchOverload(id, "_?_:_", args...)
				})),
	}
}

// Logic combines already evaluated operands of && (decisive false) or ||
// (decisive true). A decisive operand wins over errors and unknowns
// anywhere in the list. Otherwise unknowns win over errors, and all
// booleans yield the non-decisive result.
func Logic(id int64, function string, decisive value.Bool, operands ...value.Value) value.Value {
	var errs []*value.Error
	var unks []*value.Unknown
	for _, v := range operands {
		switch v := value.Unbox(v).(type) {
		case value.Bool:
			if v == decisive {
				return v
			}
		case *value.Error:
			errs = append(errs, v)
		case *value.Unknown:
			unks = append(unks, v)
		default:
			errs = append(errs, value.NoSuchOverload(id, function, v))
		}
	}
	if len(unks) > 0 {
		return value.MergeUnknowns(unks...)
	}
	if len(errs) > 0 {
		return value.MergeErrors(errs...)
	}
	return !decisive
}
