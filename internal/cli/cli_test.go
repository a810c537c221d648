package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	exprpb "google.golang.org/genproto/googleapis/api/expr/v1alpha1"
	"google.golang.org/protobuf/encoding/protojson"
)

func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := NewRootCmd()
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestEval(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"arithmetic", []string{"eval", "1 + 2 * 3"}, "7"},
		{"string", []string{"eval", "'ab' + 'c'"}, `"abc"`},
		{"var", []string{"eval", "user.age >= 18", "--var", `user={"age": 21}`}, "true"},
		{"int var", []string{"eval", "n * 2", "--var", "n=21"}, "42"},
		{"list", []string{"eval", "[1, 2].map(x, x * 10)"}, "[10, 20]"},
		{"strings ext", []string{"eval", "'a-b'.split('-').size()"}, "2"},
		{"json", []string{"eval", "{'k': [1, true]}", "-o", "json"}, "{\n  \"k\": [\n    1,\n    true\n  ]\n}"},
		{"container", []string{"eval", "x", "--container", "acme", "--var", "acme.x=5"}, "5"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, _, err := run(t, tt.args...)
			require.NoError(t, err)
			assert.Equal(t, tt.want, strings.TrimSpace(out))
		})
	}
}

func TestEvalBindingsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bindings.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"items": [{"price": 2}, {"price": 3}], "tax": 1}`), 0o644))

	out, stderr, err := run(t, "eval", "items.map(i, i.price + tax)", "--bindings", path, "--var", "tax=10", "--cost")
	require.NoError(t, err)
	assert.Equal(t, "[12, 13]", strings.TrimSpace(out))
	assert.Contains(t, stderr, "cost: ")
}

func TestEvalErrors(t *testing.T) {
	_, _, err := run(t, "eval", "1 / 0")
	assert.ErrorContains(t, err, "divide by zero")

	_, _, err = run(t, "eval", "1 +")
	assert.ErrorContains(t, err, "failed to compile expression")

	_, _, err = run(t, "eval", "x", "--var", "x")
	assert.ErrorContains(t, err, "want name=<json>")

	_, _, err = run(t, "eval", "x", "--var", "x={")
	assert.ErrorContains(t, err, "invalid --var x")

	_, _, err = run(t, "eval", "1", "-o", "yaml")
	assert.EqualError(t, err, "unknown output format: yaml")

	_, _, err = run(t, "eval", "[1, 2, 3].map(x, x)", "--cost-limit", "2")
	assert.ErrorContains(t, err, "cost limit exceeded")

	_, _, err = run(t, "eval")
	assert.Error(t, err)
}

func TestCheck(t *testing.T) {
	out, _, err := run(t, "check", "size(name) > 3", "--type", "name=string")
	require.NoError(t, err)
	assert.Equal(t, "bool", strings.TrimSpace(out))

	out, _, err = run(t, "check", "m['k']", "--type", "m=map(string, int)")
	require.NoError(t, err)
	assert.Equal(t, "int", strings.TrimSpace(out))

	_, stderr, err := run(t, "check", "name + 1 == missing", "--type", "name=string")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "type error(s)")
	assert.NotEmpty(t, stderr)

	_, _, err = run(t, "check", "x", "--type", "broken")
	assert.ErrorContains(t, err, "want name=type")
}

func TestParse(t *testing.T) {
	out, _, err := run(t, "parse", "a + 1")
	require.NoError(t, err)

	var pe exprpb.ParsedExpr
	require.NoError(t, protojson.Unmarshal([]byte(out), &pe))
	call := pe.GetExpr().GetCallExpr()
	require.NotNil(t, call)
	assert.Equal(t, "_+_", call.GetFunction())
	require.Len(t, call.GetArgs(), 2)
	assert.Equal(t, "a", call.GetArgs()[0].GetIdentExpr().GetName())
	assert.Equal(t, int64(1), call.GetArgs()[1].GetConstExpr().GetInt64Value())

	_, _, err = run(t, "parse", "(")
	assert.Error(t, err)
}

func TestVersion(t *testing.T) {
	out, _, err := run(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "celc dev (built unknown)\n", out)
}
