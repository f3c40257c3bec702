package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mattn/go-sqlite3"

	"github.com/quantumsql/qsql/internal/cond"
)

// TableNotFoundError reports a catalog lookup for a table that does
// not exist.
type TableNotFoundError struct {
	Name string
}

func (e *TableNotFoundError) Error() string {
	return fmt.Sprintf("table %q not found", e.Name)
}

// TableExistsError reports an attempt to create a table whose name is
// already taken.
type TableExistsError struct {
	Name string
}

func (e *TableExistsError) Error() string {
	return fmt.Sprintf("table %q already exists", e.Name)
}

// Table is one catalog entry read back from the store: the schema in
// declaration order and the rows in original insert order.
type Table struct {
	Name    string
	Columns []string
	Rows    [][]cond.Value
}

// CreateTable registers a new table with the given schema. The name
// must be unused and the schema non-empty.
func (s *Store) CreateTable(ctx context.Context, name string, columns []string) error {
	if name == "" {
		return fmt.Errorf("create table: empty name")
	}
	if len(columns) == 0 {
		return fmt.Errorf("create table %q: empty schema", name)
	}

	colsJSON, err := marshalColumns(columns)
	if err != nil {
		return fmt.Errorf("create table %q: %w", name, err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO tables (name, columns) VALUES (?, ?)
	`, name, colsJSON)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
			return &TableExistsError{Name: name}
		}
		return fmt.Errorf("create table %q: %w", name, err)
	}
	return nil
}

// DropTable removes a table and all its rows.
func (s *Store) DropTable(ctx context.Context, name string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM tables WHERE name = ?`, name)
	if err != nil {
		return fmt.Errorf("drop table %q: %w", name, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("drop table %q: %w", name, err)
	}
	if affected == 0 {
		return &TableNotFoundError{Name: name}
	}
	return nil
}

// Insert appends rows to a table, preserving order after any existing
// rows. Each row must have exactly one cell per schema column. The
// insert is transactional: either every row lands or none do.
func (s *Store) Insert(ctx context.Context, name string, rows [][]cond.Value) error {
	if len(rows) == 0 {
		return nil
	}

	tableID, columns, err := s.lookupTable(ctx, name)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("insert into %q: begin tx: %w", name, err)
	}
	defer tx.Rollback() // No-op if committed

	var next int
	if err := tx.QueryRowContext(ctx, `
		SELECT COALESCE(MAX(position) + 1, 0) FROM table_rows WHERE table_id = ?
	`, tableID).Scan(&next); err != nil {
		return fmt.Errorf("insert into %q: %w", name, err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO table_rows (table_id, position, cells) VALUES (?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("insert into %q: %w", name, err)
	}
	defer stmt.Close()

	for i, row := range rows {
		if len(row) != len(columns) {
			return fmt.Errorf("insert into %q: row %d has %d cells, schema has %d columns", name, i, len(row), len(columns))
		}
		cellsJSON, err := marshalCells(row)
		if err != nil {
			return fmt.Errorf("insert into %q: row %d: %w", name, i, err)
		}
		if _, err := stmt.ExecContext(ctx, tableID, next+i, cellsJSON); err != nil {
			return fmt.Errorf("insert into %q: row %d: %w", name, i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("insert into %q: commit: %w", name, err)
	}
	return nil
}

// ReadTable returns a table's schema and all its rows in insert order.
func (s *Store) ReadTable(ctx context.Context, name string) (*Table, error) {
	tableID, columns, err := s.lookupTable(ctx, name)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT cells FROM table_rows
		WHERE table_id = ?
		ORDER BY position ASC
	`, tableID)
	if err != nil {
		return nil, fmt.Errorf("read table %q: %w", name, err)
	}
	defer rows.Close()

	table := &Table{Name: name, Columns: columns, Rows: [][]cond.Value{}}
	for rows.Next() {
		var cellsJSON string
		if err := rows.Scan(&cellsJSON); err != nil {
			return nil, fmt.Errorf("read table %q: %w", name, err)
		}
		cells, err := unmarshalCells(cellsJSON)
		if err != nil {
			return nil, fmt.Errorf("read table %q: %w", name, err)
		}
		table.Rows = append(table.Rows, cells)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read table %q: %w", name, err)
	}
	return table, nil
}

// TableInfo is a catalog listing entry.
type TableInfo struct {
	Name    string
	Columns []string
	RowN    int
}

// Tables lists the catalog, ordered by table name.
// Returns an empty slice (not nil) when the catalog is empty.
func (s *Store) Tables(ctx context.Context) ([]TableInfo, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT t.name, t.columns, COUNT(r.id)
		FROM tables t
		LEFT JOIN table_rows r ON r.table_id = t.id
		GROUP BY t.id
		ORDER BY t.name ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	defer rows.Close()

	infos := []TableInfo{}
	for rows.Next() {
		var info TableInfo
		var colsJSON string
		if err := rows.Scan(&info.Name, &colsJSON, &info.RowN); err != nil {
			return nil, fmt.Errorf("list tables: %w", err)
		}
		info.Columns, err = unmarshalColumns(colsJSON)
		if err != nil {
			return nil, fmt.Errorf("list tables: %q: %w", info.Name, err)
		}
		infos = append(infos, info)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	return infos, nil
}

// lookupTable resolves a table name to its id and schema.
func (s *Store) lookupTable(ctx context.Context, name string) (int64, []string, error) {
	var id int64
	var colsJSON string
	err := s.db.QueryRowContext(ctx, `
		SELECT id, columns FROM tables WHERE name = ?
	`, name).Scan(&id, &colsJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil, &TableNotFoundError{Name: name}
	}
	if err != nil {
		return 0, nil, fmt.Errorf("lookup table %q: %w", name, err)
	}
	columns, err := unmarshalColumns(colsJSON)
	if err != nil {
		return 0, nil, fmt.Errorf("lookup table %q: %w", name, err)
	}
	return id, columns, nil
}
