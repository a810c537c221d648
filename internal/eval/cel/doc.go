// Package cel compiles and evaluates CEL (Common Expression Language)
// expressions.
//
// CEL is a non-Turing complete expression language with fast, safe
// evaluation. An Env fixes the container, declared variables, functions and
// record types; Compile turns source text into an Ast, Program plans it and
// Program.Eval evaluates it against bindings. Evaluator wraps an Env with a
// cache of programs keyed by expression text.
//
// Example usage:
//
//	evaluator, err := cel.NewEvaluator(
//	    cel.Variable("state", "map(string, dyn)"),
//	    cel.CostLimit(10000),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	vars := map[string]any{
//	    "state": map[string]any{
//	        "priority": "high",
//	        "score":    0.95,
//	    },
//	}
//
//	result, err := evaluator.Evaluate(ctx, "state.priority == 'high'", vars)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	matched := result.(bool) // true
//
// Supported operations:
//   - Comparisons: ==, !=, <, <=, >, >= across int, uint and double
//   - Boolean logic: &&, ||, ! with commutative error absorption
//   - Arithmetic: +, -, *, /, % with overflow errors
//   - Strings: contains, startsWith, endsWith, matches, size
//   - Lists and maps: in, size, indexing, field access, has()
//   - Macros: all, exists, exists_one, map, filter
//   - Time: timestamp, duration and their accessors
//   - Conversions: int, uint, double, string, bytes, bool, type, dyn
//
// The packages below cel hold the engine itself: ast (parsing), checker
// (type checking), interpreter (planning and evaluation), stdlib and ext
// (functions), value and types (the data model) and protorec (protobuf
// records).
package cel
