package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/multierr"
	"google.golang.org/protobuf/encoding/protojson"
)

func newCheckCommand(flags *envFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "check <expression>",
		Short: "Type check an expression and print its result type",
		Long: `Type check an expression against the declared variables and print the
result type. Every type error is reported, one per line.`,
		Example: `  celc check 'size(name) > 3' --type name=string`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := flags.env()
			if err != nil {
				return err
			}
			parsed, err := env.Parse(args[0])
			if err != nil {
				return err
			}
			checked, err := env.Check(parsed)
			if err != nil {
				for _, e := range multierr.Errors(err) {
					_, _ = fmt.Fprintln(cmd.ErrOrStderr(), e)
				}
				return fmt.Errorf("%d type error(s)", len(multierr.Errors(err)))
			}
			if _, err := env.Program(checked); err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), checked.OutputType())
			return err
		},
	}
}

func newParseCommand(flags *envFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "parse <expression>",
		Short: "Parse an expression and print its syntax tree as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := flags.env()
			if err != nil {
				return err
			}
			a, err := env.Parse(args[0])
			if err != nil {
				return err
			}
			pe, err := a.Parsed().ToParsedExpr()
			if err != nil {
				return fmt.Errorf("failed to convert syntax tree: %w", err)
			}
			data, err := protojson.MarshalOptions{Multiline: true}.Marshal(pe)
			if err != nil {
				return fmt.Errorf("failed to marshal syntax tree: %w", err)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return err
		},
	}
}
