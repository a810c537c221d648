// Package checker infers static types for expression trees.
//
// Declarations live in a persistent Scope chain. Calls are resolved against
// overload signatures: generic overloads are instantiated with fresh type
// variables and unified through a Mapping that is copied before each
// attempt, so a failed candidate never leaks bindings. When several
// overloads apply with different result types the call is typed dyn.
//
// Check reports every issue at once as a *Error. On success the Result maps
// node ids to types with all type variables substituted away, plus the
// fully qualified names identifiers and calls resolved to.
package checker
