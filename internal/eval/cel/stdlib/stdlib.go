package stdlib

import (
	"github.com/aescanero/dago-node-cel/internal/eval/cel/functions"
	"github.com/aescanero/dago-node-cel/internal/eval/cel/runtime"
	"github.com/aescanero/dago-node-cel/internal/eval/cel/types"
	"github.com/aescanero/dago-node-cel/internal/eval/cel/value"
)

var (
	paramA = types.NewTypeParam("A")
	paramB = types.NewTypeParam("B")
	listA  = types.NewList(paramA)
	mapAB  = types.NewMap(paramA, paramB)
)

// Functions returns the built-in functions. Hosts register their own
// groups after these so that overloads with the same id or signature
// replace the built-in ones.
func Functions() functions.Groups {
	var groups functions.Groups
	for _, batch := range []functions.Groups{
		logicFunctions(),
		comparisonFunctions(),
		arithmeticFunctions(),
		containerFunctions(),
		conversionFunctions(),
		stringFunctions(),
		timeFunctions(),
	} {
		groups = append(groups, batch...)
	}
	return groups
}

// Resolver returns a resolver holding only the built-in functions.
func Resolver() *functions.Resolver {
	return functions.NewResolver(Functions())
}

func sig(ts ...*types.Type) []*types.Type { return ts }

type unaryFunc func(id int64, v value.Value) value.Value

type binaryFunc func(id int64, a, b value.Value) value.Value

func unary(id string, arg, result *types.Type, fn unaryFunc, opts ...functions.OverloadOption) *functions.Overload {
	return functions.NewOverload(id, sig(arg), result, func(_ *runtime.Context, call int64, args []value.Value) value.Value {
		return fn(call, args[0])
	}, opts...)
}

func binary(id string, lhs, rhs, result *types.Type, fn binaryFunc, opts ...functions.OverloadOption) *functions.Overload {
	return functions.NewOverload(id, sig(lhs, rhs), result, func(_ *runtime.Context, call int64, args []value.Value) value.Value {
		return fn(call, args[0], args[1])
	}, opts...)
}
