// Package protorec exposes protobuf messages to expressions.
//
// A Registry holds message and enum descriptors, either from Go generated
// code or from .proto files parsed at runtime with LoadFiles. It resolves
// record types for the checker, converts messages into values and builds
// messages for record creation expressions such as acme.v1.User{name: "x"}.
//
// Well-known types convert to their natural values: Duration and Timestamp
// to the time values, wrappers to their primitive or null, Struct, Value
// and ListValue to maps, dynamic values and lists, and Any to a boxed
// value that behaves as its unpacked content.
//
// Example usage:
//
//	reg, err := protorec.NewRegistry()
//	if err != nil {
//	    return err
//	}
//	if err := reg.LoadFiles([]string{"./proto"}, "acme/v1/user.proto"); err != nil {
//	    return err
//	}
package protorec
