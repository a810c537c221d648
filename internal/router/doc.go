// Package router implements deterministic routing over CEL conditions.
//
// A routing table is an ordered list of rules, each a CEL condition and a
// target, plus a fallback target. The router supports two modes:
//   - first: route to the target of the first rule whose condition is true
//   - all: route to the targets of every rule whose condition is true
//
// A rule whose condition fails to evaluate, or evaluates to something other
// than a boolean, is skipped and reported in RoutingResult.Skipped. With
// Strict set the error fails the whole decision instead.
//
// Example:
//
//	evaluator, _ := cel.NewEvaluator(cel.Variable("state", "map(string, dyn)"))
//	r := router.NewRouter(evaluator, logger)
//
//	config := &router.Config{
//	    Rules: []router.Rule{
//	        {Condition: "state.priority == 'high'", Target: "urgent_handler"},
//	        {Condition: "state.score > 0.8", Target: "premium_flow"},
//	    },
//	    Fallback: "default_handler",
//	}
//	result, err := r.Route(ctx, map[string]interface{}{"state": state}, config)
package router
