package cel

import (
	"context"
	"fmt"
	"time"

	"github.com/aescanero/dago-node-cel/internal/eval/cel/activation"
	"github.com/aescanero/dago-node-cel/internal/eval/cel/ast"
	"github.com/aescanero/dago-node-cel/internal/eval/cel/checker"
	"github.com/aescanero/dago-node-cel/internal/eval/cel/interpreter"
	"github.com/aescanero/dago-node-cel/internal/eval/cel/runtime"
	"github.com/aescanero/dago-node-cel/internal/eval/cel/types"
	"github.com/aescanero/dago-node-cel/internal/eval/cel/value"
)

// Ast is a parsed and possibly checked expression.
type Ast struct {
	parsed  *ast.AST
	checked *checker.Result
}

// Expr returns the expression tree.
func (a *Ast) Expr() *ast.Expr {
	return a.parsed.Expr
}

// Source returns the source text, empty for built trees.
func (a *Ast) Source() string {
	return a.parsed.Source
}

// Parsed returns the tree with its source positions.
func (a *Ast) Parsed() *ast.AST {
	return a.parsed
}

// IsChecked reports whether the Ast was type checked.
func (a *Ast) IsChecked() bool {
	return a.checked != nil
}

// OutputType returns the checked result type, dyn when unchecked.
func (a *Ast) OutputType() *types.Type {
	if a.checked == nil || a.checked.OutputType == nil {
		return types.Dyn
	}
	return a.checked.OutputType
}

// NewAst wraps a tree built by the host.
func NewAst(e *ast.Expr) *Ast {
	return &Ast{parsed: ast.New(e)}
}

// Program is a planned expression. It is immutable and safe for
// concurrent evaluation.
type Program struct {
	plan       interpreter.Interpretable
	registry   runtime.Registry
	costLimit  int64
	location   *time.Location
	outputType *types.Type
}

// OutputType returns the static result type, dyn when unchecked.
func (p *Program) OutputType() *types.Type {
	return p.outputType
}

// EvalDetails describes one evaluation.
type EvalDetails struct {
	// Cost is the number of steps taken.
	Cost int64
}

// Eval evaluates the program against bindings. Names missing from bindings
// only fail when the evaluation reads them. An error result is returned as
// both the value and the error; unknown results are not errors.
func (p *Program) Eval(ctx context.Context, bindings map[string]any) (value.Value, error) {
	v, _, err := p.EvalWithDetails(ctx, bindings)
	return v, err
}

// EvalWithDetails is Eval reporting the evaluation cost.
func (p *Program) EvalWithDetails(ctx context.Context, bindings map[string]any) (v value.Value, details *EvalDetails, err error) {
	opts := []runtime.Option{runtime.WithCostLimit(p.costLimit), runtime.WithLocation(p.location)}
	rt := runtime.New(ctx, p.registry, opts...)
	details = &EvalDetails{}

	defer func() {
		if r := recover(); r != nil {
			v = value.NewError(p.plan.ID(), "internal error: %v", r)
			err = fmt.Errorf("evaluation panicked: %v", r)
		}
		details.Cost = rt.Cost()
	}()

	var adapter value.Adapter
	if p.registry != nil {
		adapter = p.registry
	}
	v = value.Unbox(p.plan.Eval(rt, activation.New(bindings, adapter)))
	if e, ok := v.(*value.Error); ok {
		return e, details, e
	}
	return v, details, nil
}
