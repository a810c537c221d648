package runtime

import (
	"context"
	"time"

	"github.com/aescanero/dago-node-cel/internal/eval/cel/types"
	"github.com/aescanero/dago-node-cel/internal/eval/cel/value"
)

// Registry is the host type system as seen by evaluation: it resolves
// record types, converts host values and creates records.
type Registry interface {
	types.Provider
	value.Adapter
	// NewRecord creates a record of the named type from field values. It
	// returns an error value when the type or a field is unknown.
	NewRecord(id int64, typeName string, fields map[string]value.Value) value.Value
}

// Context carries the ambient state of one evaluation. Every interpretable
// receives it explicitly; there is no process-wide context.
type Context struct {
	parent   *Context
	ctx      context.Context
	registry Registry
	location *time.Location
	budget   *budget
}

type budget struct {
	limit int64
	used  int64
}

// Option configures a Context.
type Option func(*Context)

// WithLocation sets the default time zone for time accessors.
func WithLocation(loc *time.Location) Option {
	return func(c *Context) {
		c.location = loc
	}
}

// WithCostLimit bounds the number of steps an evaluation may take.
// Zero means unlimited.
func WithCostLimit(limit int64) Option {
	return func(c *Context) {
		c.budget = &budget{limit: limit}
	}
}

// New creates the root context of one evaluation.
func New(ctx context.Context, registry Registry, opts ...Option) *Context {
	if ctx == nil {
		ctx = context.Background()
	}
	c := &Context{ctx: ctx, registry: registry, location: time.UTC, budget: &budget{}}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Push returns a child context. Options apply to the child only; the step
// budget is shared with the parent.
func (c *Context) Push(opts ...Option) *Context {
	child := *c
	child.parent = c
	for _, opt := range opts {
		opt(&child)
	}
	return &child
}

// Pop returns the parent context, or c itself at the root.
func (c *Context) Pop() *Context {
	if c.parent == nil {
		return c
	}
	return c.parent
}

// Registry returns the host type registry.
func (c *Context) Registry() Registry {
	return c.registry
}

// Adapter returns the value adapter of the registry.
func (c *Context) Adapter() value.Adapter {
	if c.registry == nil {
		return value.DefaultAdapter
	}
	return c.registry
}

// Location returns the default time zone.
func (c *Context) Location() *time.Location {
	return c.location
}

// Charge consumes n steps and reports an error value once the budget is
// exhausted.
func (c *Context) Charge(id int64, n int64) *value.Error {
	c.budget.used += n
	if c.budget.limit > 0 && c.budget.used > c.budget.limit {
		return value.NewError(id, "operation cancelled: actual cost limit exceeded")
	}
	return nil
}

// Interrupted reports an error value when the Go context is done. Loops
// call it at iteration boundaries.
func (c *Context) Interrupted(id int64) *value.Error {
	select {
	case <-c.ctx.Done():
		return value.NewError(id, "operation interrupted")
	default:
		return nil
	}
}

// Cost returns the steps consumed so far.
func (c *Context) Cost() int64 {
	return c.budget.used
}
