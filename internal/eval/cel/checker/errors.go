package checker

import (
	"fmt"

	"go.uber.org/multierr"
)

// Issue is one diagnostic attached to an expression node.
type Issue struct {
	ID      int64
	Message string
}

func (i Issue) Error() string {
	return i.Message
}

// Error aggregates every issue found while checking one expression.
type Error struct {
	Issues []Issue
	err    error
}

func (e *Error) Error() string {
	return e.err.Error()
}

// Unwrap exposes the individual issues to errors.Is and errors.As.
func (e *Error) Unwrap() []error {
	return multierr.Errors(e.err)
}

func (c *checker) errorf(id int64, format string, args ...any) {
	c.errs = multierr.Append(c.errs, Issue{ID: id, Message: fmt.Sprintf(format, args...)})
}

func (c *checker) result() error {
	if c.errs == nil {
		return nil
	}
	all := multierr.Errors(c.errs)
	issues := make([]Issue, 0, len(all))
	for _, err := range all {
		if is, ok := err.(Issue); ok {
			issues = append(issues, is)
		}
	}
	return &Error{Issues: issues, err: c.errs}
}
