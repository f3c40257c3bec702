package cli

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/quantumsql/qsql/internal/cond"
	"github.com/quantumsql/qsql/internal/oracle"
)

// ParseOptions holds flags for the parse command.
type ParseOptions struct {
	*RootOptions
	Columns []string
}

// NewParseCommand creates the parse command.
func NewParseCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ParseOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "parse <condition>",
		Short: "Parse a condition and print its tree",
		Long: `Parse condition text and print the resulting tree as canonical JSON.
Without --columns, column references are accepted unchecked; with it,
unknown columns are rejected the same way a run would reject them.

Example:
  qsql parse "a > 1 QAND NOT b"
  qsql parse --columns id,bp,temp "bp BETWEEN 100 AND 130"`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return parseCondition(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringSliceVar(&opts.Columns, "columns", nil, "schema columns to validate references against")

	return cmd
}

func parseCondition(opts *ParseOptions, condition string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	tree, err := cond.Parse(condition, opts.Columns)
	if err != nil {
		var syn *cond.SyntaxError
		var unknown *cond.UnknownColumnError
		switch {
		case errors.As(err, &syn):
			_ = formatter.Error(ErrCodeSyntax, err.Error(), nil)
		case errors.As(err, &unknown):
			_ = formatter.Error(ErrCodeUnknownColumn, err.Error(), nil)
		default:
			_ = formatter.Error(ErrCodeGeneric, err.Error(), nil)
		}
		return NewExitError(ExitFailure, err.Error())
	}

	data, err := oracle.MarshalTree(tree)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to marshal tree", err)
	}

	if opts.Format == "json" {
		return formatter.Success(json.RawMessage(data))
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return nil
}
