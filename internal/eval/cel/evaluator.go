package cel

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/aescanero/dago-node-cel/internal/eval/cel/types"
	"github.com/aescanero/dago-node-cel/internal/eval/cel/value"
)

// Evaluator evaluates expressions given as text, caching compiled programs
type Evaluator struct {
	env    *Env
	cache  map[string]*Program
	mu     sync.RWMutex
	logger *zap.Logger
}

// NewEvaluator creates a new evaluator over an environment built from opts
func NewEvaluator(opts ...EnvOption) (*Evaluator, error) {
	env, err := NewEnv(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}
	return NewEvaluatorForEnv(env), nil
}

// NewEvaluatorForEnv creates an evaluator sharing an existing environment
func NewEvaluatorForEnv(env *Env) *Evaluator {
	return &Evaluator{
		env:    env,
		cache:  make(map[string]*Program),
		logger: env.logger,
	}
}

// Env returns the environment expressions are compiled in
func (e *Evaluator) Env() *Env {
	return e.env
}

// Evaluate evaluates an expression with the given variables and returns
// the result as a plain Go value
func (e *Evaluator) Evaluate(ctx context.Context, expression string, vars map[string]any) (any, error) {
	out, err := e.EvaluateValue(ctx, expression, vars)
	if err != nil {
		return nil, err
	}

	result, err := value.ToNative(out)
	if err != nil {
		return nil, fmt.Errorf("failed to convert result: %w", err)
	}

	return result, nil
}

// EvaluateValue evaluates an expression and returns the raw result value
func (e *Evaluator) EvaluateValue(ctx context.Context, expression string, vars map[string]any) (value.Value, error) {
	program, err := e.getProgram(expression)
	if err != nil {
		return nil, fmt.Errorf("failed to compile expression: %w", err)
	}

	out, err := program.Eval(ctx, vars)
	if err != nil {
		return nil, fmt.Errorf("evaluation failed: %w", err)
	}
	return out, nil
}

// getProgram gets a compiled program from cache or compiles it
func (e *Evaluator) getProgram(expression string) (*Program, error) {
	e.mu.RLock()
	if program, ok := e.cache[expression]; ok {
		e.mu.RUnlock()
		return program, nil
	}
	e.mu.RUnlock()

	e.mu.Lock()
	defer e.mu.Unlock()

	// Another goroutine may have compiled it meanwhile
	if program, ok := e.cache[expression]; ok {
		return program, nil
	}

	ast, err := e.env.Compile(expression)
	if err != nil {
		return nil, err
	}

	program, err := e.env.Program(ast)
	if err != nil {
		return nil, err
	}

	e.cache[expression] = program
	e.logger.Debug("Compiled expression",
		zap.String("expression", expression),
		zap.String("output_type", program.OutputType().String()),
		zap.Int("cached", len(e.cache)),
	)

	return program, nil
}

// ValidateExpression compiles an expression without evaluating it. When the
// environment declares variables the expression must also type check to a
// boolean.
func (e *Evaluator) ValidateExpression(expression string) error {
	ast, err := e.env.Compile(expression)
	if err != nil {
		return err
	}

	if out := ast.OutputType(); ast.IsChecked() && out.Kind() != types.BoolKind && !out.IsDyn() {
		return fmt.Errorf("expression must return bool, got %s", out)
	}

	_, err = e.env.Program(ast)
	return err
}

// ClearCache clears the compiled program cache
func (e *Evaluator) ClearCache() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cache = make(map[string]*Program)
}

// CacheSize returns the number of cached programs
func (e *Evaluator) CacheSize() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.cache)
}
