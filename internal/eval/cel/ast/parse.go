package ast

import (
	"fmt"

	celgo "github.com/google/cel-go/cel"
	exprpb "google.golang.org/genproto/googleapis/api/expr/v1alpha1"
)

// DefaultMaxExpressionLength caps source text, in code points.
const DefaultMaxExpressionLength = 100_000

// ParseError is a syntax error or a rejected source text.
type ParseError struct {
	Message string
}

func (e *ParseError) Error() string {
	return e.Message
}

// AST is a parsed expression together with its source.
type AST struct {
	Expr      *Expr
	Source    string
	positions map[int64]int32
}

// New wraps a tree built without source text.
func New(e *Expr) *AST {
	return &AST{Expr: e}
}

// Location returns the 1-based line and column of a node, or false when
// the position is not known.
func (a *AST) Location(id int64) (line, col int, ok bool) {
	off, found := a.positions[id]
	if !found {
		return 0, 0, false
	}
	line, col = 1, 1
	for i, r := range []rune(a.Source) {
		if i == int(off) {
			break
		}
		if r == '\n' {
			line++
			col = 1
			continue
		}
		col++
	}
	return line, col, true
}

type parseConfig struct {
	maxLength    int
	expandMacros bool
}

// ParseOption configures Parse.
type ParseOption func(*parseConfig)

// MaxLength caps the length of the source in code points. Zero keeps
// the default.
func MaxLength(n int) ParseOption {
	return func(c *parseConfig) {
		if n > 0 {
			c.maxLength = n
		}
	}
}

// ExpandMacros makes the parser rewrite has(), all(), exists(),
// exists_one(), map() and filter() into generic comprehensions instead of
// leaving them as calls.
func ExpandMacros() ParseOption {
	return func(c *parseConfig) {
		c.expandMacros = true
	}
}

// Parse turns source text into an expression tree.
func Parse(src string, opts ...ParseOption) (*AST, error) {
	cfg := parseConfig{maxLength: DefaultMaxExpressionLength}
	for _, opt := range opts {
		opt(&cfg)
	}
	if n := len([]rune(src)); n > cfg.maxLength {
		return nil, &ParseError{Message: fmt.Sprintf("expression code point size exceeds limit: size: %d, limit %d", n, cfg.maxLength)}
	}

	var envOpts []celgo.EnvOption
	if !cfg.expandMacros {
		envOpts = append(envOpts, celgo.ClearMacros())
	}
	env, err := celgo.NewEnv(envOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create parser: %w", err)
	}
	parsed, iss := env.Parse(src)
	if iss != nil && iss.Err() != nil {
		return nil, &ParseError{Message: iss.Err().Error()}
	}
	pe, err := celgo.AstToParsedExpr(parsed)
	if err != nil {
		return nil, fmt.Errorf("failed to convert parsed expression: %w", err)
	}
	return fromParsed(src, pe)
}

func fromParsed(src string, pe *exprpb.ParsedExpr) (*AST, error) {
	e, err := FromProto(pe.GetExpr())
	if err != nil {
		return nil, err
	}
	return &AST{Expr: e, Source: src, positions: pe.GetSourceInfo().GetPositions()}, nil
}

// ToParsedExpr renders the tree with its source positions.
func (a *AST) ToParsedExpr() (*exprpb.ParsedExpr, error) {
	pe, err := ToProto(a.Expr)
	if err != nil {
		return nil, err
	}
	info := &exprpb.SourceInfo{Positions: make(map[int64]int32, len(a.positions))}
	for id, off := range a.positions {
		info.Positions[id] = off
	}
	return &exprpb.ParsedExpr{Expr: pe, SourceInfo: info}, nil
}
