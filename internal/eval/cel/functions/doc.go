// Package functions defines function overloads, overload groups and the
// resolver that indexes them by name.
//
// An Overload pairs a signature with an implementation. A Group holds every
// overload of one function name and dispatches calls by runtime argument
// type, in registration order. Registering an overload whose id or exact
// signature already exists replaces the earlier one, which is how host
// functions override built-ins.
package functions
