package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aescanero/dago-node-cel/internal/eval/cel/value"
	"github.com/aescanero/dago-node-cel/internal/worker"
)

func newEvalCommand(flags *envFlags) *cobra.Command {
	var (
		vars         []string
		bindingsFile string
		output       string
		showCost     bool
	)

	cmd := &cobra.Command{
		Use:   "eval <expression>",
		Short: "Evaluate an expression",
		Example: `  # Arithmetic
  celc eval '1 + 2 * 3'

  # Bind variables from JSON
  celc eval 'user.age >= 18' --var 'user={"age": 21}'

  # Bind variables from a file and print JSON
  celc eval 'items.map(i, i.price)' --bindings order.json --output json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			bindings, err := loadBindings(bindingsFile, vars)
			if err != nil {
				return err
			}

			env, err := flags.env()
			if err != nil {
				return err
			}
			a, err := env.Compile(args[0])
			if err != nil {
				return fmt.Errorf("failed to compile expression: %w", err)
			}
			program, err := env.Program(a)
			if err != nil {
				return err
			}

			out, details, err := program.EvalWithDetails(cmd.Context(), bindings)
			if err != nil {
				return fmt.Errorf("evaluation failed: %w", err)
			}

			if err := printValue(cmd, out, output); err != nil {
				return err
			}
			if showCost {
				_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "cost: %d\n", details.Cost)
			}
			return nil
		},
	}

	cmd.Flags().StringArrayVar(&vars, "var", nil, "Bind a variable as name=<json>")
	cmd.Flags().StringVar(&bindingsFile, "bindings", "", "JSON object file of variable bindings")
	cmd.Flags().StringVarP(&output, "output", "o", "text", "Output format (text|json)")
	cmd.Flags().BoolVar(&showCost, "cost", false, "Print the evaluation cost to stderr")

	_ = cmd.RegisterFlagCompletionFunc("output", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"text", "json"}, cobra.ShellCompDirectiveNoFileComp
	})

	return cmd
}

// loadBindings reads the bindings file, then overlays each --var
func loadBindings(file string, vars []string) (map[string]interface{}, error) {
	bindings := map[string]interface{}{}
	if file != "" {
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("failed to read bindings: %w", err)
		}
		bindings, err = worker.DecodeBindings(data)
		if err != nil {
			return nil, fmt.Errorf("failed to decode bindings %s: %w", file, err)
		}
	}

	for _, v := range vars {
		name, raw, ok := strings.Cut(v, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid --var %q: want name=<json>", v)
		}
		// Wrap the value so numbers decode the same way as in files
		decoded, err := worker.DecodeBindings([]byte(`{"v":` + raw + `}`))
		if err != nil {
			return nil, fmt.Errorf("invalid --var %s: %w", name, err)
		}
		bindings[name] = decoded["v"]
	}
	return bindings, nil
}

func printValue(cmd *cobra.Command, v value.Value, output string) error {
	switch output {
	case "json":
		native, err := value.ToNative(v)
		if err != nil {
			return fmt.Errorf("failed to convert result: %w", err)
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(native)
	case "text":
		_, err := fmt.Fprintln(cmd.OutOrStdout(), value.Format(v))
		return err
	default:
		return fmt.Errorf("unknown output format: %s", output)
	}
}
