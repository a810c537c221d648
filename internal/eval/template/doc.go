// Package template provides a Handlebars template engine for rendering
// evaluation result summaries.
//
// The engine supports Handlebars syntax with custom helpers for common operations.
// Helpers are attached to each compiled template rather than registered
// globally, so several engines can live in one process.
//
// Example usage:
//
//	engine := template.NewEngine()
//
//	summary := &template.Summary{
//	    RequestID:  "42",
//	    Expression: "state.score > 0.9",
//	    Result:     true,
//	}
//
//	result, err := engine.RenderSummary("", summary)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	// Output: request 42: state.score > 0.9 => true
//
// Built-in helpers:
//   - uppercase - Convert string to uppercase
//   - lowercase - Convert string to lowercase
//   - trim - Trim whitespace from string
//   - default - Return default value if first arg is empty
//   - eq - Equality comparison, numeric across int and float
//   - ne - Inequality comparison
//   - gt - Greater than (for numbers)
//   - lt - Less than (for numbers)
//   - contains - Check if string contains substring
//   - join - Join array elements with separator
//   - len - Get length of array/string/map
//   - json - Render a value as JSON
//
// Example with helpers:
//
//	{{uppercase target}}                   # "ESCALATE"
//	{{default target "none"}}              # "none" if target is empty
//	{{#if (eq result true)}}...{{/if}}     # Conditional
//	{{#if (gt result 0.8)}}...{{/if}}      # Numeric comparison
//	{{json bindings}}                      # {"a":1}
package template
