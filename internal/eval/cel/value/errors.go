package value

import (
	"errors"
	"fmt"
	"strings"

	"github.com/aescanero/dago-node-cel/internal/eval/cel/types"
)

// Error is an evaluation error carried as a value. It remembers the id of
// the expression node that produced it.
type Error struct {
	ID         int64
	Message    string
	cause      error
	additional []*Error
}

// NewError creates an error value for the node id.
func NewError(id int64, format string, args ...any) *Error {
	return &Error{ID: id, Message: fmt.Sprintf(format, args...)}
}

// WrapError converts a host error into an error value. Error values pass
// through unchanged.
func WrapError(id int64, err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return &Error{ID: id, Message: err.Error(), cause: err}
}

// MergeErrors folds the rest into the first error.
func MergeErrors(errs ...*Error) *Error {
	if len(errs) == 0 {
		return nil
	}
	if len(errs) == 1 {
		return errs[0]
	}
	first := *errs[0]
	first.additional = append(append([]*Error(nil), first.additional...), errs[1:]...)
	return &first
}

// Type implements Value.
func (e *Error) Type() *types.Type { return types.Error }

// Error implements error.
func (e *Error) Error() string {
	if len(e.additional) == 0 {
		return e.Message
	}
	msgs := make([]string, 0, len(e.additional)+1)
	msgs = append(msgs, e.Message)
	for _, a := range e.additional {
		msgs = append(msgs, a.Message)
	}
	return strings.Join(msgs, "; ")
}

// Unwrap returns the host error this value was created from, if any.
func (e *Error) Unwrap() error {
	return e.cause
}

// Additional returns the errors merged into e.
func (e *Error) Additional() []*Error {
	return e.additional
}

// Unknown marks values that were intentionally not computed.
type Unknown struct {
	IDs []int64
}

// NewUnknown creates an unknown for the given node ids.
func NewUnknown(ids ...int64) *Unknown {
	return &Unknown{IDs: ids}
}

// MergeUnknowns combines the ids of several unknowns.
func MergeUnknowns(us ...*Unknown) *Unknown {
	if len(us) == 1 {
		return us[0]
	}
	merged := &Unknown{}
	for _, u := range us {
		merged.IDs = append(merged.IDs, u.IDs...)
	}
	return merged
}

// Type implements Value.
func (u *Unknown) Type() *types.Type { return types.Unknown }

func (u *Unknown) String() string {
	return fmt.Sprintf("unknown%v", u.IDs)
}

// Propagate returns the merged unknowns among vals, else the merged errors,
// else nil. Unknowns win over errors.
func Propagate(vals ...Value) Value {
	var errs []*Error
	var unks []*Unknown
	for _, v := range vals {
		switch v := v.(type) {
		case *Error:
			errs = append(errs, v)
		case *Unknown:
			unks = append(unks, v)
		}
	}
	if len(unks) > 0 {
		return MergeUnknowns(unks...)
	}
	if len(errs) > 0 {
		return MergeErrors(errs...)
	}
	return nil
}

// Common evaluation errors.

func NoSuchOverload(id int64, function string, args ...Value) *Error {
	names := make([]string, len(args))
	for i, a := range args {
		if a == nil {
			names[i] = "null_type"
			continue
		}
		names[i] = Unbox(a).Type().Name()
	}
	return NewError(id, "found no matching overload for '%s' applied to '(%s)'", function, strings.Join(names, ", "))
}

func DivideByZero(id int64) *Error {
	return NewError(id, "divide by zero")
}

func ModulusByZero(id int64) *Error {
	return NewError(id, "modulus by zero")
}

func Overflow(id int64, op string, t *types.Type) *Error {
	return NewError(id, "%s return error for overflow during %s", t.Name(), op)
}

func IndexOutOfBounds(id int64, index int64, length int) *Error {
	return NewError(id, "index %d out of bounds [0, %d)", index, length)
}

func FieldNotFound(id int64, name any) *Error {
	return NewError(id, "field not found: %v", name)
}

func IdentNotFound(id int64, name, container string) *Error {
	return NewError(id, "undeclared reference to '%s' (in container '%s')", name, container)
}

func UnsupportedKeyType(id int64) *Error {
	return NewError(id, "unsupported key type")
}

func MapKeyConflict(id int64, key Value) *Error {
	return NewError(id, "map key conflict: %v", key)
}

func InvalidArgument(id int64, function, issue string) *Error {
	return NewError(id, "invalid argument to function %s: %s", function, issue)
}

func TypeNotFound(id int64, name string) *Error {
	return NewError(id, "type not found: %s", name)
}
