package cel

import (
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/aescanero/dago-node-cel/internal/eval/cel/ast"
	"github.com/aescanero/dago-node-cel/internal/eval/cel/checker"
	"github.com/aescanero/dago-node-cel/internal/eval/cel/ext"
	"github.com/aescanero/dago-node-cel/internal/eval/cel/functions"
	"github.com/aescanero/dago-node-cel/internal/eval/cel/interpreter"
	"github.com/aescanero/dago-node-cel/internal/eval/cel/namespace"
	"github.com/aescanero/dago-node-cel/internal/eval/cel/protorec"
	"github.com/aescanero/dago-node-cel/internal/eval/cel/runtime"
	"github.com/aescanero/dago-node-cel/internal/eval/cel/stdlib"
	"github.com/aescanero/dago-node-cel/internal/eval/cel/types"
)

// Env is an immutable compilation environment: the container, declared
// variables, functions and record types expressions are compiled against.
type Env struct {
	container *namespace.Namespace
	variables []*checker.Ident
	functions *functions.Resolver
	registry  runtime.Registry
	maxLength int
	maxDepth  int
	costLimit int64
	location  *time.Location
	logger    *zap.Logger
}

type envConfig struct {
	container  string
	aliases    map[string]string
	variables  []variableDecl
	sources    []functions.Source
	registry   runtime.Registry
	protoPaths []string
	protoFiles []string
	strings    bool
	maxLength  int
	maxDepth   int
	costLimit  int64
	timeZone   string
	logger     *zap.Logger
}

type variableDecl struct {
	Name string `yaml:"name"`
	Type string `yaml:"type"`
}

// declarationsFile is the YAML form accepted by Declarations.
type declarationsFile struct {
	Container string            `yaml:"container"`
	Aliases   map[string]string `yaml:"aliases"`
	Variables []variableDecl    `yaml:"variables"`
}

// EnvOption configures an Env.
type EnvOption func(*envConfig) error

// Container sets the namespace unqualified names resolve in.
func Container(name string) EnvOption {
	return func(c *envConfig) error {
		c.container = name
		return nil
	}
}

// Alias lets the simple name alias stand for a qualified name.
func Alias(alias, qualified string) EnvOption {
	return func(c *envConfig) error {
		c.aliases[alias] = qualified
		return nil
	}
}

// Variable declares a variable with a type such as "map(string, dyn)".
// Declaring any variable turns on type checking.
func Variable(name, typeExpr string) EnvOption {
	return func(c *envConfig) error {
		c.variables = append(c.variables, variableDecl{Name: name, Type: typeExpr})
		return nil
	}
}

// Declarations reads the container, aliases and variables from a YAML file.
func Declarations(path string) EnvOption {
	return func(c *envConfig) error {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read declarations: %w", err)
		}
		var decls declarationsFile
		if err := yaml.Unmarshal(data, &decls); err != nil {
			return fmt.Errorf("failed to parse declarations %s: %w", path, err)
		}
		if decls.Container != "" {
			c.container = decls.Container
		}
		for alias, qualified := range decls.Aliases {
			c.aliases[alias] = qualified
		}
		c.variables = append(c.variables, decls.Variables...)
		return nil
	}
}

// Functions registers host functions after the built-ins. An overload with
// the id or signature of an existing one replaces it.
func Functions(sources ...functions.Source) EnvOption {
	return func(c *envConfig) error {
		c.sources = append(c.sources, sources...)
		return nil
	}
}

// Types sets the registry record types and host values are resolved with.
func Types(reg runtime.Registry) EnvOption {
	return func(c *envConfig) error {
		c.registry = reg
		return nil
	}
}

// ProtoFiles loads .proto files at runtime into a protobuf registry.
func ProtoFiles(importPaths []string, files ...string) EnvOption {
	return func(c *envConfig) error {
		c.protoPaths = append(c.protoPaths, importPaths...)
		c.protoFiles = append(c.protoFiles, files...)
		return nil
	}
}

// StringsExtension adds the extended string functions.
func StringsExtension() EnvOption {
	return func(c *envConfig) error {
		c.strings = true
		return nil
	}
}

// MaxExpressionLength caps the source length in code points.
func MaxExpressionLength(n int) EnvOption {
	return func(c *envConfig) error {
		c.maxLength = n
		return nil
	}
}

// MaxNestingDepth caps the nesting of planned expressions.
func MaxNestingDepth(n int) EnvOption {
	return func(c *envConfig) error {
		c.maxDepth = n
		return nil
	}
}

// CostLimit bounds the steps of one evaluation. Zero means unlimited.
func CostLimit(n int64) EnvOption {
	return func(c *envConfig) error {
		if n < 0 {
			return fmt.Errorf("cost limit must not be negative: %d", n)
		}
		c.costLimit = n
		return nil
	}
}

// DefaultTimeZone sets the zone time accessors use without an explicit one.
func DefaultTimeZone(tz string) EnvOption {
	return func(c *envConfig) error {
		c.timeZone = tz
		return nil
	}
}

// Logger sets the logger used for compilation diagnostics.
func Logger(logger *zap.Logger) EnvOption {
	return func(c *envConfig) error {
		c.logger = logger
		return nil
	}
}

// NewEnv builds an environment with the built-in functions.
func NewEnv(opts ...EnvOption) (*Env, error) {
	cfg := &envConfig{
		aliases:   map[string]string{},
		maxLength: ast.DefaultMaxExpressionLength,
		maxDepth:  interpreter.DefaultMaxNestingDepth,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}

	ns := namespace.New(cfg.container)
	for alias, qualified := range cfg.aliases {
		next, err := ns.WithAlias(alias, qualified)
		if err != nil {
			return nil, fmt.Errorf("invalid alias: %w", err)
		}
		ns = next
	}

	reg := cfg.registry
	if len(cfg.protoFiles) > 0 {
		pr, ok := reg.(*protorec.Registry)
		if !ok {
			if reg != nil {
				return nil, fmt.Errorf("proto files need a protobuf registry, got %T", reg)
			}
			var err error
			if pr, err = protorec.NewRegistry(); err != nil {
				return nil, fmt.Errorf("failed to create type registry: %w", err)
			}
		}
		if err := pr.LoadFiles(cfg.protoPaths, cfg.protoFiles...); err != nil {
			return nil, err
		}
		reg = pr
	}

	var provider types.Provider
	if reg != nil {
		provider = reg
	}
	vars := make([]*checker.Ident, 0, len(cfg.variables))
	for _, v := range cfg.variables {
		t, err := types.Parse(v.Type, provider)
		if err != nil {
			return nil, fmt.Errorf("variable %s: %w", v.Name, err)
		}
		vars = append(vars, checker.NewVariable(v.Name, t))
	}

	fns := stdlib.Resolver()
	if cfg.strings {
		fns = fns.Extend(ext.Strings())
	}
	fns = fns.Extend(cfg.sources...)

	loc := time.UTC
	if cfg.timeZone != "" {
		l, err := stdlib.Location(cfg.timeZone)
		if err != nil {
			return nil, err
		}
		loc = l
	}

	env := &Env{
		container: ns,
		variables: vars,
		functions: fns,
		registry:  reg,
		maxLength: cfg.maxLength,
		maxDepth:  cfg.maxDepth,
		costLimit: cfg.costLimit,
		location:  loc,
		logger:    cfg.logger,
	}
	env.logger.Debug("CEL environment created",
		zap.String("container", ns.Name()),
		zap.Int("variables", len(vars)),
		zap.Int("functions", len(fns.Names())),
		zap.Bool("types", reg != nil),
	)
	return env, nil
}

// Functions returns the resolver of every function known to the env.
func (e *Env) Functions() *functions.Resolver {
	return e.functions
}

// Container returns the namespace of the env.
func (e *Env) Container() *namespace.Namespace {
	return e.container
}

// Parse turns source text into an unchecked Ast.
func (e *Env) Parse(src string) (*Ast, error) {
	parsed, err := ast.Parse(src, ast.MaxLength(e.maxLength))
	if err != nil {
		return nil, err
	}
	return &Ast{parsed: parsed}, nil
}

// Check type checks a parsed Ast against the declared variables.
func (e *Env) Check(a *Ast) (*Ast, error) {
	var provider types.Provider
	if e.registry != nil {
		provider = e.registry
	}
	res, err := checker.Check(a.parsed.Expr, &checker.Env{
		Container: e.container,
		Scope:     checker.NewScope(e.variables...).PushFunctions(e.functions),
		Provider:  provider,
	})
	if err != nil {
		return nil, err
	}
	return &Ast{parsed: a.parsed, checked: res}, nil
}

// Compile parses src and, when variables are declared, checks it.
func (e *Env) Compile(src string) (*Ast, error) {
	a, err := e.Parse(src)
	if err != nil {
		return nil, err
	}
	if len(e.variables) == 0 {
		return a, nil
	}
	return e.Check(a)
}

// Program plans an Ast for evaluation.
func (e *Env) Program(a *Ast) (*Program, error) {
	opts := []interpreter.Option{
		interpreter.WithContainer(e.container),
		interpreter.WithMaxNestingDepth(e.maxDepth),
	}
	if e.registry != nil {
		opts = append(opts, interpreter.WithProvider(e.registry))
	}
	if a.checked != nil {
		opts = append(opts, interpreter.WithChecked(a.checked))
	}
	plan, err := interpreter.NewPlanner(e.functions, opts...).Plan(a.parsed.Expr)
	if err != nil {
		return nil, fmt.Errorf("failed to plan expression: %w", err)
	}
	return &Program{
		plan:       plan,
		registry:   e.registry,
		costLimit:  e.costLimit,
		location:   e.location,
		outputType: a.OutputType(),
	}, nil
}
