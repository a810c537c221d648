package template

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/aymerick/raymond"
)

// DefaultSummary is rendered for a result when a request carries no
// template. Fields are not HTML escaped.
const DefaultSummary = `{{#if error}}request {{{request_id}}} failed: {{{error}}}{{else}}{{#if target}}request {{{request_id}}}: routed to {{{target}}}{{else}}request {{{request_id}}}: {{{expression}}} => {{json result}}{{/if}}{{/if}}`

// Engine renders Handlebars templates
type Engine struct {
	cache   map[string]*raymond.Template
	helpers map[string]interface{}
	mu      sync.RWMutex
}

// NewEngine creates a new template engine
func NewEngine() *Engine {
	return &Engine{
		cache:   make(map[string]*raymond.Template),
		helpers: helpers(),
	}
}

// Render renders a template with the given data
func (e *Engine) Render(templateStr string, data interface{}) (string, error) {
	// Get or compile template
	tmpl, err := e.getTemplate(templateStr)
	if err != nil {
		return "", fmt.Errorf("failed to compile template: %w", err)
	}

	// Execute the template
	result, err := tmpl.Exec(data)
	if err != nil {
		return "", fmt.Errorf("template execution failed: %w", err)
	}

	return result, nil
}

// RenderSummary renders a result summary, falling back to DefaultSummary
// when templateStr is empty
func (e *Engine) RenderSummary(templateStr string, summary *Summary) (string, error) {
	if templateStr == "" {
		templateStr = DefaultSummary
	}
	return e.Render(templateStr, summary.data())
}

// Summary is the data a result template sees
type Summary struct {
	RequestID  string
	Expression string
	Result     interface{}
	Target     string
	Error      string
	Bindings   map[string]interface{}
}

func (s *Summary) data() map[string]interface{} {
	return map[string]interface{}{
		"request_id": s.RequestID,
		"expression": s.Expression,
		"result":     s.Result,
		"target":     s.Target,
		"error":      s.Error,
		"bindings":   s.Bindings,
	}
}

// getTemplate gets a compiled template from cache or compiles it
func (e *Engine) getTemplate(templateStr string) (*raymond.Template, error) {
	e.mu.RLock()
	if tmpl, ok := e.cache[templateStr]; ok {
		e.mu.RUnlock()
		return tmpl, nil
	}
	e.mu.RUnlock()

	e.mu.Lock()
	defer e.mu.Unlock()

	// Check again in case another goroutine compiled it
	if tmpl, ok := e.cache[templateStr]; ok {
		return tmpl, nil
	}

	tmpl, err := raymond.Parse(templateStr)
	if err != nil {
		return nil, fmt.Errorf("parse error: %w", err)
	}
	// Helpers live on the template so engines never collide in the
	// process-wide helper table
	tmpl.RegisterHelpers(e.helpers)

	e.cache[templateStr] = tmpl

	return tmpl, nil
}

// ValidateTemplate validates a template without rendering it
func (e *Engine) ValidateTemplate(templateStr string) error {
	_, err := raymond.Parse(templateStr)
	return err
}

// ClearCache clears the compiled template cache
func (e *Engine) ClearCache() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cache = make(map[string]*raymond.Template)
}

// helpers returns the custom Handlebars helpers
func helpers() map[string]interface{} {
	return map[string]interface{}{
		"uppercase": func(v interface{}) string {
			return strings.ToUpper(toString(v))
		},
		"lowercase": func(v interface{}) string {
			return strings.ToLower(toString(v))
		},
		"trim": func(v interface{}) string {
			return strings.TrimSpace(toString(v))
		},
		// default returns the fallback when the first arg is empty
		"default": func(v interface{}, fallback interface{}) interface{} {
			if v == nil || v == "" {
				return fallback
			}
			return v
		},
		"eq": func(a, b interface{}) bool {
			return equal(a, b)
		},
		"ne": func(a, b interface{}) bool {
			return !equal(a, b)
		},
		"gt": func(a, b interface{}) bool {
			x, ok1 := toFloat(a)
			y, ok2 := toFloat(b)
			return ok1 && ok2 && x > y
		},
		"lt": func(a, b interface{}) bool {
			x, ok1 := toFloat(a)
			y, ok2 := toFloat(b)
			return ok1 && ok2 && x < y
		},
		"contains": func(str, substr interface{}) bool {
			return strings.Contains(toString(str), toString(substr))
		},
		"join": func(arr interface{}, sep interface{}) string {
			rv := reflect.ValueOf(arr)
			if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
				return toString(arr)
			}
			strs := make([]string, rv.Len())
			for i := range strs {
				strs[i] = fmt.Sprint(rv.Index(i).Interface())
			}
			return strings.Join(strs, toString(sep))
		},
		"len": func(v interface{}) int {
			rv := reflect.ValueOf(v)
			switch rv.Kind() {
			case reflect.String, reflect.Slice, reflect.Array, reflect.Map:
				return rv.Len()
			default:
				return 0
			}
		},
		// json renders a value unescaped, as CEL results are rarely HTML
		"json": func(v interface{}) raymond.SafeString {
			b, err := json.Marshal(v)
			if err != nil {
				return raymond.SafeString(fmt.Sprint(v))
			}
			return raymond.SafeString(b)
		},
	}
}

func toString(v interface{}) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

func toFloat(v interface{}) (float64, bool) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint()), true
	case reflect.Float32, reflect.Float64:
		return rv.Float(), true
	default:
		return 0, false
	}
}

// equal compares numbers by value so an int64 result matches a literal 1
func equal(a, b interface{}) bool {
	if x, ok := toFloat(a); ok {
		if y, ok := toFloat(b); ok {
			return x == y
		}
	}
	return reflect.DeepEqual(a, b)
}
