package router

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/aescanero/dago-node-cel/internal/eval/cel"
)

// RoutingMode represents the rule matching strategy
type RoutingMode string

const (
	// ModeFirst routes to the target of the first matching rule
	ModeFirst RoutingMode = "first"

	// ModeAll routes to the targets of every matching rule
	ModeAll RoutingMode = "all"
)

// Config represents a routing table
type Config struct {
	Mode     RoutingMode `json:"mode,omitempty"`
	Rules    []Rule      `json:"rules"`
	Fallback string      `json:"fallback"`
	// Strict fails the request on a rule error instead of skipping the rule
	Strict bool `json:"strict,omitempty"`
}

// Rule represents a CEL-based routing rule
type Rule struct {
	Condition string `json:"condition"`
	Target    string `json:"target"`
}

// RoutingResult represents the result of a routing decision
type RoutingResult struct {
	Target    string   `json:"target"`
	Targets   []string `json:"targets,omitempty"`
	Reasoning string   `json:"reasoning"`
	Mode      string   `json:"mode"`
	RuleIndex int      `json:"rule_index"`
	PathTaken string   `json:"path_taken"` // "rule", "fallback"
	Skipped   []int    `json:"skipped,omitempty"`
}

// Router handles routing decisions
type Router struct {
	evaluator *cel.Evaluator
	logger    *zap.Logger
}

// NewRouter creates a new router evaluating conditions with evaluator
func NewRouter(evaluator *cel.Evaluator, logger *zap.Logger) *Router {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Router{
		evaluator: evaluator,
		logger:    logger,
	}
}

// Route evaluates the rules of config against bindings
func (r *Router) Route(ctx context.Context, bindings map[string]interface{}, config *Config) (*RoutingResult, error) {
	if err := r.validateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	mode := config.Mode
	if mode == "" {
		mode = ModeFirst
	}

	var result *RoutingResult
	var err error

	switch mode {
	case ModeFirst:
		result, err = r.routeFirst(ctx, bindings, config)
	case ModeAll:
		result, err = r.routeAll(ctx, bindings, config)
	default:
		return nil, fmt.Errorf("unknown routing mode: %s", mode)
	}

	if err != nil {
		r.logger.Error("routing failed",
			zap.String("mode", string(mode)),
			zap.Error(err),
		)
		return nil, err
	}

	r.logger.Info("routing decision",
		zap.String("mode", string(mode)),
		zap.String("target", result.Target),
		zap.String("path", result.PathTaken),
		zap.String("reasoning", result.Reasoning),
	)

	return result, nil
}

// Validate checks the routing table and compiles every condition
func (r *Router) Validate(config *Config) error {
	if err := r.validateConfig(config); err != nil {
		return err
	}
	for i, rule := range config.Rules {
		if err := r.evaluator.ValidateExpression(rule.Condition); err != nil {
			return fmt.Errorf("rule %d: %w", i, err)
		}
	}
	return nil
}

// validateConfig validates the routing configuration
func (r *Router) validateConfig(config *Config) error {
	if config == nil {
		return fmt.Errorf("config is nil")
	}

	if config.Fallback == "" {
		return fmt.Errorf("fallback route is required")
	}

	if len(config.Rules) == 0 {
		return fmt.Errorf("at least one rule is required")
	}

	for i, rule := range config.Rules {
		if rule.Condition == "" {
			return fmt.Errorf("rule %d: condition is required", i)
		}
		if rule.Target == "" {
			return fmt.Errorf("rule %d: target is required", i)
		}
	}

	return nil
}
