package cli

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/quantumsql/qsql/internal/cond"
	"github.com/quantumsql/qsql/internal/engine"
	"github.com/quantumsql/qsql/internal/oracle"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	Columns    []string
	DenseLimit int
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile <condition>",
		Short: "Synthesize a condition's oracle and print it",
		Long: `Parse condition text, synthesize the deduplicated oracle, and print
its units, plan, fingerprint, and the evaluation strategy it would be
scheduled under.

Example:
  qsql compile "x > 5 QOR x > 5"
  qsql compile --columns bp,temp --dense-limit 1 "bp > 100 AND temp > 38"`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return compileCondition(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringSliceVar(&opts.Columns, "columns", nil, "schema columns to validate references against")
	cmd.Flags().IntVar(&opts.DenseLimit, "dense-limit", engine.DefaultDenseLimit, "width ceiling for dense evaluation")

	return cmd
}

// compileReport is the compile command's output payload.
type compileReport struct {
	Condition   string          `json:"condition"`
	Width       int             `json:"width"`
	Mode        string          `json:"mode"`
	Fingerprint string          `json:"fingerprint"`
	Columns     []string        `json:"columns"`
	Oracle      json.RawMessage `json:"oracle"`
}

func compileCondition(opts *CompileOptions, condition string, cmd *cobra.Command) error {
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

	o, err := oracle.Synthesize(tree)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to synthesize oracle", err)
	}
	fingerprint, err := o.Fingerprint()
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to fingerprint oracle", err)
	}
	data, err := oracle.MarshalOracle(o)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to marshal oracle", err)
	}

	mode := engine.ModeDense
	if o.Width() > opts.DenseLimit {
		mode = engine.ModeSparse
	}

	report := &compileReport{
		Condition:   condition,
		Width:       o.Width(),
		Mode:        mode.String(),
		Fingerprint: fingerprint,
		Columns:     o.Columns(),
		Oracle:      json.RawMessage(data),
	}

	if opts.Format == "json" {
		return formatter.Success(report)
	}
	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "width=%d  mode=%s\n", report.Width, report.Mode)
	fmt.Fprintf(w, "fingerprint: %s\n", report.Fingerprint)
	fmt.Fprintf(w, "oracle: %s\n", string(data))
	return nil
}
