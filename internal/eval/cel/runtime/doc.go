// Package runtime holds the per-evaluation context: the host registry, the
// default time zone, cancellation and the step budget.
//
// A Context is created once per top-level evaluation and handed to every
// interpretable. Push and Pop follow the same persistent discipline as
// checker scopes, so nested or concurrent evaluations never observe each
// other's state.
package runtime
