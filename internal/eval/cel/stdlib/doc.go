// Package stdlib provides the built-in functions: logic, equality and
// ordering, overflow checked arithmetic, size, membership and indexing,
// type conversions, string matching and time accessors.
//
// Built-ins are ordinary function groups. A host that registers an
// overload with the same id or signature after Functions replaces the
// built-in one.
package stdlib
