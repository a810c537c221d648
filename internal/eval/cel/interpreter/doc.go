// Package interpreter plans expression trees into trees of
// Interpretables and evaluates them.
//
// Planning resolves function names against a functions.Resolver and
// dotted names against the container, so evaluation only looks up
// variables. A plan is immutable; every evaluation brings its own
// runtime.Context holding the cost budget, time zone and cancellation.
//
// Errors raised while evaluating are values, not Go errors. They are
// carried through the tree and absorbed by && and || when the other
// operand decides the result.
package interpreter
