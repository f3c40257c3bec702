package cli

import (
	"errors"
	"fmt"
	"math"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/quantumsql/qsql/internal/cond"
	"github.com/quantumsql/qsql/internal/engine"
	"github.com/quantumsql/qsql/internal/store"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Database    string
	Table       string
	ConfigPath  string
	Threshold   float64
	Normalize   bool
	RequireFull bool

	// RunTokens allows overriding the run token generator (for testing).
	// If nil, defaults to UUIDv7Generator.
	RunTokens engine.RunTokenGenerator
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts, Threshold: -1}

	cmd := &cobra.Command{
		Use:   "run <condition>",
		Short: "Evaluate a condition against a stored table",
		Long: `Evaluate a boolean condition against every row of a stored table and
report the per-row probability vector, the matching rows, and the
manifest of rows that could not be evaluated.

Example:
  qsql run --db ./qsql.db --table patients "(bp BETWEEN 100 AND 130) OR (temp > 38 AND NOT fever)"
  qsql run --db ./qsql.db --table patients --config pipeline.cue --format json "fever QAND temp > 38"`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	cmd.Flags().StringVar(&opts.Table, "table", "", "table to evaluate against (required)")
	cmd.Flags().StringVar(&opts.ConfigPath, "config", "", "path to CUE pipeline config")
	cmd.Flags().Float64Var(&opts.Threshold, "threshold", -1, "match threshold override")
	cmd.Flags().BoolVar(&opts.Normalize, "normalize", false, "normalize the probability vector to sum to 1")
	cmd.Flags().BoolVar(&opts.RequireFull, "require-full", false, "fail instead of degrading when rows are unavailable")
	_ = cmd.MarkFlagRequired("db")
	_ = cmd.MarkFlagRequired("table")

	return cmd
}

// runReport is the run command's output payload. Probabilities use
// pointers so unavailable rows render as JSON null rather than NaN.
type runReport struct {
	RunToken      string         `json:"run_token"`
	Table         string         `json:"table"`
	Condition     string         `json:"condition"`
	Fingerprint   string         `json:"fingerprint"`
	Width         int            `json:"width"`
	Mode          string         `json:"mode"`
	Probabilities []*float64     `json:"probabilities"`
	Matches       []int          `json:"matches"`
	Unavailable   []int          `json:"unavailable,omitempty"`
	Reasons       map[int]string `json:"reasons,omitempty"`
}

func runQuery(opts *RunOptions, condition string, cmd *cobra.Command) error {
	cfg, err := LoadConfig(opts.ConfigPath)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load config", err)
	}
	if opts.Threshold >= 0 {
		cfg.MatchThreshold = opts.Threshold
		if opts.Threshold == 0 {
			// The engine reads zero as "unset"; negative is its
			// spelling for an explicit zero threshold.
			cfg.MatchThreshold = -1
		}
	}
	if opts.Normalize {
		cfg.Normalize = true
	}
	if opts.RequireFull {
		cfg.RequireFull = true
	}

	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	table, err := st.ReadTable(ctx, opts.Table)
	if err != nil {
		var notFound *store.TableNotFoundError
		if errors.As(err, &notFound) {
			return WrapExitError(ExitCommandError, "table not found", err)
		}
		return WrapExitError(ExitCommandError, "failed to read table", err)
	}

	pipelineOpts := []engine.Option{}
	if opts.RunTokens != nil {
		pipelineOpts = append(pipelineOpts, engine.WithRunTokens(opts.RunTokens))
	}
	pipeline, err := engine.New(cfg, pipelineOpts...)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid pipeline config", err)
	}

	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
	formatter.VerboseLog("evaluating %q against %q (%d rows)", condition, opts.Table, len(table.Rows))

	res, err := pipeline.Run(ctx, table.Columns, table.Rows, condition)
	if err != nil {
		return reportRunError(formatter, err)
	}

	report := buildRunReport(opts.Table, res)
	if opts.Format == "json" {
		return formatter.Success(report)
	}
	writeRunText(formatter, report)
	return nil
}

// reportRunError maps pipeline errors onto CLI error codes and exit
// codes. Everything here is a query failure, not a command error: the
// command was well-formed, the query was not (or could not complete).
func reportRunError(f *OutputFormatter, err error) error {
	var syn *cond.SyntaxError
	var unknown *cond.UnknownColumnError
	switch {
	case errors.As(err, &syn):
		_ = f.Error(ErrCodeSyntax, err.Error(), nil)
	case errors.As(err, &unknown):
		_ = f.Error(ErrCodeUnknownColumn, err.Error(), nil)
	case engine.IsIncompleteAggregation(err):
		_ = f.Error(ErrCodeIncomplete, err.Error(), nil)
	default:
		_ = f.Error(ErrCodeGeneric, err.Error(), nil)
	}
	return NewExitError(ExitFailure, err.Error())
}

func buildRunReport(table string, res *engine.Result) *runReport {
	report := &runReport{
		RunToken:    res.RunToken,
		Table:       table,
		Condition:   res.Condition,
		Fingerprint: res.Fingerprint,
		Width:       res.Width,
		Mode:        res.Mode.String(),
		Matches:     res.Matches,
	}
	report.Probabilities = make([]*float64, len(res.Probabilities))
	for i, p := range res.Probabilities {
		if math.IsNaN(p) {
			continue
		}
		v := p
		report.Probabilities[i] = &v
	}
	if !res.Manifest.Complete() {
		report.Unavailable = res.Manifest.Unavailable
		report.Reasons = res.Manifest.Reasons
	}
	return report
}

func writeRunText(f *OutputFormatter, report *runReport) {
	w := f.Writer
	fmt.Fprintf(w, "run %s  table=%s  mode=%s  width=%d\n", report.RunToken, report.Table, report.Mode, report.Width)
	fmt.Fprintf(w, "condition: %s\n", report.Condition)

	matched := make(map[int]bool, len(report.Matches))
	for _, m := range report.Matches {
		matched[m] = true
	}
	for i, p := range report.Probabilities {
		switch {
		case p == nil:
			fmt.Fprintf(w, "  row %d  P=unavailable  (%s)\n", i, report.Reasons[i])
		case matched[i]:
			fmt.Fprintf(w, "  row %d  P=%.4f  [match]\n", i, *p)
		default:
			fmt.Fprintf(w, "  row %d  P=%.4f\n", i, *p)
		}
	}

	if len(report.Matches) == 0 {
		fmt.Fprintln(w, "no matches")
		return
	}
	parts := make([]string, len(report.Matches))
	for i, m := range report.Matches {
		parts[i] = fmt.Sprintf("%d", m)
	}
	fmt.Fprintf(w, "%d match(es): rows %s\n", len(report.Matches), strings.Join(parts, ", "))
}
