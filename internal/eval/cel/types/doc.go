// Package types defines the static type lattice of the expression language.
//
// Scalars mirror the runtime value tags. Containers are parameterized
// (list(T), map(K, V)), type values have the type type(T), records are
// identified by their fully qualified name and dyn matches anything. Type
// parameters only exist while checking and are substituted away before a
// plan is built.
//
// Example usage:
//
//	t := types.NewMap(types.String, types.NewList(types.Int))
//	fmt.Println(t) // map(string, list(int))
//
//	parsed, err := types.Parse("map(string, list(int))", nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	parsed.Equal(t) // true
package types
