// Package ast holds the expression tree consumed by the checker and the
// planner.
//
// Source text is tokenized and parsed by github.com/google/cel-go; its
// canonical proto form (google.api.expr.v1alpha1) is then converted into
// Expr nodes. By default macros are kept as plain calls so the planner can
// lower them into dedicated loops. ExpandMacros asks the parser for generic
// comprehensions instead, the form other tools exchange.
package ast
