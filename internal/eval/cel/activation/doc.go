// Package activation provides the runtime variable bindings an expression
// is evaluated against. Activations nest: loop variables and comprehension
// accumulators are overlaid onto the caller's bindings and always shadow them.
package activation
