package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/valyala/fastjson"

	"github.com/quantumsql/qsql/internal/cond"
	"github.com/quantumsql/qsql/internal/store"
)

// LoadOptions holds flags for the load command.
type LoadOptions struct {
	*RootOptions
	Database string
	Table    string
}

// NewLoadCommand creates the load command.
func NewLoadCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &LoadOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "load <rows.json>",
		Short: "Load rows from a JSON file into a table",
		Long: `Load rows from a JSON file into an existing table. The file holds an
array of rows; each row is an array with one cell per schema column.
Cells may be strings, numbers, or booleans.

Example:
  qsql load --db ./qsql.db --table patients ./patients.json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return loadRows(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	cmd.Flags().StringVar(&opts.Table, "table", "", "table to load into (required)")
	_ = cmd.MarkFlagRequired("db")
	_ = cmd.MarkFlagRequired("table")

	return cmd
}

func loadRows(opts *LoadOptions, path string, cmd *cobra.Command) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read row file", err)
	}

	rows, err := parseRowFile(data)
	if err != nil {
		formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout(), Verbose: opts.Verbose}
		_ = formatter.Error(ErrCodeRowFile, err.Error(), nil)
		return NewExitError(ExitFailure, err.Error())
	}

	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	if err := st.Insert(cmd.Context(), opts.Table, rows); err != nil {
		var notFound *store.TableNotFoundError
		if errors.As(err, &notFound) {
			return WrapExitError(ExitCommandError, "table not found", err)
		}
		return WrapExitError(ExitCommandError, "failed to insert rows", err)
	}

	formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout(), Verbose: opts.Verbose}
	if opts.Format == "json" {
		return formatter.Success(map[string]any{"table": opts.Table, "loaded": len(rows)})
	}
	fmt.Fprintf(cmd.OutOrStdout(), "loaded %d row(s) into %q\n", len(rows), opts.Table)
	return nil
}

// parseRowFile parses a JSON array-of-arrays row file into cell
// values. Whole numbers become ints, fractional ones floats, the same
// mapping stored tables use.
func parseRowFile(data []byte) ([][]cond.Value, error) {
	var p fastjson.Parser
	parsed, err := p.ParseBytes(data)
	if err != nil {
		return nil, fmt.Errorf("parse row file: %w", err)
	}
	rowVals, err := parsed.Array()
	if err != nil {
		return nil, fmt.Errorf("row file: top level must be an array of rows: %w", err)
	}

	rows := make([][]cond.Value, 0, len(rowVals))
	for i, rowVal := range rowVals {
		cellVals, err := rowVal.Array()
		if err != nil {
			return nil, fmt.Errorf("row file: row %d must be an array of cells: %w", i, err)
		}
		row := make([]cond.Value, 0, len(cellVals))
		for j, cellVal := range cellVals {
			cell, err := store.CellFromJSON(cellVal)
			if err != nil {
				return nil, fmt.Errorf("row file: row %d cell %d: %w", i, j, err)
			}
			row = append(row, cell)
		}
		rows = append(rows, row)
	}
	return rows, nil
}
