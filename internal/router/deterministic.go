package router

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// routeFirst returns the target of the first rule whose condition holds
func (r *Router) routeFirst(ctx context.Context, bindings map[string]interface{}, config *Config) (*RoutingResult, error) {
	var skipped []int

	for i, rule := range config.Rules {
		matched, err := r.evaluateRule(ctx, i, rule, bindings)
		if err != nil {
			if config.Strict {
				return nil, err
			}
			skipped = append(skipped, i)
			continue
		}

		if matched {
			r.logger.Info("rule matched",
				zap.Int("rule_index", i),
				zap.String("condition", rule.Condition),
				zap.String("target", rule.Target),
			)

			return &RoutingResult{
				Target:    rule.Target,
				Reasoning: fmt.Sprintf("matched rule %d: %s", i, rule.Condition),
				Mode:      string(ModeFirst),
				RuleIndex: i,
				PathTaken: "rule",
				Skipped:   skipped,
			}, nil
		}
	}

	return r.fallback(config, ModeFirst, skipped), nil
}

// routeAll returns the targets of every rule whose condition holds, in
// rule order. Target is the first of them.
func (r *Router) routeAll(ctx context.Context, bindings map[string]interface{}, config *Config) (*RoutingResult, error) {
	var skipped []int
	var targets []string
	var indexes []string
	first := -1

	for i, rule := range config.Rules {
		matched, err := r.evaluateRule(ctx, i, rule, bindings)
		if err != nil {
			if config.Strict {
				return nil, err
			}
			skipped = append(skipped, i)
			continue
		}
		if !matched {
			continue
		}
		if first < 0 {
			first = i
		}
		targets = append(targets, rule.Target)
		indexes = append(indexes, fmt.Sprint(i))
	}

	if len(targets) == 0 {
		return r.fallback(config, ModeAll, skipped), nil
	}

	return &RoutingResult{
		Target:    targets[0],
		Targets:   targets,
		Reasoning: fmt.Sprintf("matched rules %s", strings.Join(indexes, ", ")),
		Mode:      string(ModeAll),
		RuleIndex: first,
		PathTaken: "rule",
		Skipped:   skipped,
	}, nil
}

// evaluateRule evaluates one condition. A condition that does not produce
// a boolean is an error.
func (r *Router) evaluateRule(ctx context.Context, i int, rule Rule, bindings map[string]interface{}) (bool, error) {
	r.logger.Debug("evaluating rule",
		zap.Int("rule_index", i),
		zap.String("condition", rule.Condition),
	)

	result, err := r.evaluator.Evaluate(ctx, rule.Condition, bindings)
	if err != nil {
		r.logger.Warn("rule evaluation error",
			zap.Int("rule_index", i),
			zap.String("condition", rule.Condition),
			zap.Error(err),
		)
		return false, fmt.Errorf("rule %d: %w", i, err)
	}

	matched, ok := result.(bool)
	if !ok {
		r.logger.Warn("rule condition did not return boolean",
			zap.Int("rule_index", i),
			zap.String("condition", rule.Condition),
			zap.Any("result", result),
		)
		return false, fmt.Errorf("rule %d: condition returned %T, not bool", i, result)
	}

	return matched, nil
}

func (r *Router) fallback(config *Config, mode RoutingMode, skipped []int) *RoutingResult {
	r.logger.Info("no rules matched, using fallback",
		zap.String("fallback", config.Fallback),
		zap.Ints("skipped", skipped),
	)

	return &RoutingResult{
		Target:    config.Fallback,
		Reasoning: "no rules matched",
		Mode:      string(mode),
		RuleIndex: -1,
		PathTaken: "fallback",
		Skipped:   skipped,
	}
}
