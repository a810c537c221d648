// Package cli provides the command-line interface for celc.
package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/aescanero/dago-node-cel/internal/eval/cel"
)

// Version information (set at build time).
var (
	Version   = "dev"
	BuildTime = "unknown"
)

// envFlags are the flags shared by every command that builds an Env.
type envFlags struct {
	container    string
	declarations string
	types        []string
	protoFiles   []string
	protoPaths   []string
	costLimit    int64
	timeZone     string
	strings      bool
	verbose      bool
}

func (f *envFlags) register(cmd *cobra.Command) {
	flags := cmd.PersistentFlags()
	flags.StringVar(&f.container, "container", "", "Namespace unqualified names resolve in")
	flags.StringVar(&f.declarations, "declarations", "", "YAML file declaring the container and variables")
	flags.StringArrayVar(&f.types, "type", nil, "Declare a variable as name=type, e.g. user=map(string, dyn)")
	flags.StringSliceVar(&f.protoFiles, "proto", nil, "Proto files providing record types")
	flags.StringSliceVar(&f.protoPaths, "proto-path", []string{"."}, "Import paths for --proto files")
	flags.Int64Var(&f.costLimit, "cost-limit", 0, "Maximum evaluation steps (0 for unlimited)")
	flags.StringVar(&f.timeZone, "time-zone", "UTC", "Default time zone of timestamp accessors")
	flags.BoolVar(&f.strings, "strings", true, "Enable the strings extension functions")
	flags.BoolVarP(&f.verbose, "verbose", "v", false, "Log compilation details to stderr")
}

// options turns the flags into Env options
func (f *envFlags) options() ([]cel.EnvOption, error) {
	opts := []cel.EnvOption{
		cel.Container(f.container),
		cel.CostLimit(f.costLimit),
		cel.DefaultTimeZone(f.timeZone),
	}
	if f.declarations != "" {
		opts = append(opts, cel.Declarations(f.declarations))
	}
	for _, decl := range f.types {
		name, typeExpr, ok := strings.Cut(decl, "=")
		if !ok || name == "" || typeExpr == "" {
			return nil, fmt.Errorf("invalid --type %q: want name=type", decl)
		}
		opts = append(opts, cel.Variable(name, typeExpr))
	}
	if len(f.protoFiles) > 0 {
		opts = append(opts, cel.ProtoFiles(f.protoPaths, f.protoFiles...))
	}
	if f.strings {
		opts = append(opts, cel.StringsExtension())
	}
	if f.verbose {
		logger, err := zap.NewDevelopment()
		if err != nil {
			return nil, fmt.Errorf("failed to initialize logger: %w", err)
		}
		opts = append(opts, cel.Logger(logger))
	}
	return opts, nil
}

func (f *envFlags) env() (*cel.Env, error) {
	opts, err := f.options()
	if err != nil {
		return nil, err
	}
	env, err := cel.NewEnv(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}
	return env, nil
}

// NewRootCmd creates and returns the root command.
func NewRootCmd() *cobra.Command {
	var flags envFlags

	rootCmd := &cobra.Command{
		Use:   "celc",
		Short: "celc - Common Expression Language compiler and evaluator",
		Long: `celc parses, type checks and evaluates CEL expressions.

Variables are bound with --var name=<json> or a JSON object file given to
--bindings. Declaring variable types with --type or --declarations turns
on type checking.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.SetVersionTemplate(`{{.Name}} {{.Version}}
`)

	flags.register(rootCmd)

	rootCmd.AddCommand(newEvalCommand(&flags))
	rootCmd.AddCommand(newCheckCommand(&flags))
	rootCmd.AddCommand(newParseCommand(&flags))
	rootCmd.AddCommand(newVersionCommand())

	return rootCmd
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, _ []string) {
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "celc %s (built %s)\n", Version, BuildTime)
		},
	}
}
