package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/quantumsql/qsql/internal/store"
)

// TableOptions holds flags shared by the catalog commands.
type TableOptions struct {
	*RootOptions
	Database string
}

// NewCreateTableCommand creates the create-table command.
func NewCreateTableCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TableOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "create-table <name> <column>...",
		Short: "Create a table in the catalog",
		Long: `Create a new table with the given schema. Column order is schema
order; rows loaded later must match it.

Example:
  qsql create-table --db ./qsql.db patients id bp temp fever`,
		Args:          cobra.MinimumNArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return createTable(opts, args[0], args[1:], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func createTable(opts *TableOptions, name string, columns []string, cmd *cobra.Command) error {
	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	if err := st.CreateTable(cmd.Context(), name, columns); err != nil {
		var exists *store.TableExistsError
		if errors.As(err, &exists) {
			return WrapExitError(ExitCommandError, "table already exists", err)
		}
		return WrapExitError(ExitCommandError, "failed to create table", err)
	}

	formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout(), Verbose: opts.Verbose}
	if opts.Format == "json" {
		return formatter.Success(map[string]any{"table": name, "columns": columns})
	}
	fmt.Fprintf(cmd.OutOrStdout(), "created table %q (%s)\n", name, strings.Join(columns, ", "))
	return nil
}

// NewDropTableCommand creates the drop-table command.
func NewDropTableCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TableOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:           "drop-table <name>",
		Short:         "Remove a table and all its rows",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return dropTable(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func dropTable(opts *TableOptions, name string, cmd *cobra.Command) error {
	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	if err := st.DropTable(cmd.Context(), name); err != nil {
		var notFound *store.TableNotFoundError
		if errors.As(err, &notFound) {
			return WrapExitError(ExitCommandError, "table not found", err)
		}
		return WrapExitError(ExitCommandError, "failed to drop table", err)
	}

	formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout(), Verbose: opts.Verbose}
	if opts.Format == "json" {
		return formatter.Success(map[string]any{"dropped": name})
	}
	fmt.Fprintf(cmd.OutOrStdout(), "dropped table %q\n", name)
	return nil
}

// NewTablesCommand creates the tables command.
func NewTablesCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TableOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:           "tables",
		Short:         "List tables in the catalog",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return listTables(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

// tableEntry is one row of the tables command's JSON output.
type tableEntry struct {
	Name    string   `json:"name"`
	Columns []string `json:"columns"`
	Rows    int      `json:"rows"`
}

func listTables(opts *TableOptions, cmd *cobra.Command) error {
	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	infos, err := st.Tables(cmd.Context())
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to list tables", err)
	}

	formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout(), Verbose: opts.Verbose}
	if opts.Format == "json" {
		entries := make([]tableEntry, len(infos))
		for i, info := range infos {
			entries[i] = tableEntry{Name: info.Name, Columns: info.Columns, Rows: info.RowN}
		}
		return formatter.Success(entries)
	}

	if len(infos) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "no tables")
		return nil
	}
	for _, info := range infos {
		fmt.Fprintf(cmd.OutOrStdout(), "%s  (%s)  %d row(s)\n", info.Name, strings.Join(info.Columns, ", "), info.RowN)
	}
	return nil
}
