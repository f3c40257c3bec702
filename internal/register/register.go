package register

import (
	"errors"
	"fmt"

	"github.com/quantumsql/qsql/internal/cond"
	"github.com/quantumsql/qsql/internal/oracle"
)

// Register is the fixed-width encoding of one row: one cell per column
// the oracle references, addressed by the oracle's column index.
// Lifetime is one batch evaluation pass; backends read it, never write.
type Register []cond.Value

// EncodingError reports a row that cannot be encoded or compared under
// the oracle. Row-local: the offending row becomes unavailable, the
// batch proceeds.
type EncodingError struct {
	Column string
	Reason string
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("encoding error on column %q: %s", e.Column, e.Reason)
}

// Encode maps a row onto a register for the given oracle. The row is
// ordered by schema position. Beyond slot projection, Encode pre-checks
// that every comparison unit can actually be resolved against the row's
// cell, so type mismatches surface here rather than mid-evaluation.
func Encode(row []cond.Value, schema []string, o *oracle.Oracle) (Register, error) {
	schemaIdx := make(map[string]int, len(schema))
	for i, c := range schema {
		schemaIdx[c] = i
	}

	columns := o.Columns()
	reg := make(Register, len(columns))
	for slot, col := range columns {
		pos, ok := schemaIdx[col]
		if !ok {
			// Parse-time validation should make this unreachable;
			// kept as a row-local failure rather than a panic.
			return nil, &EncodingError{Column: col, Reason: "column not in schema"}
		}
		if pos >= len(row) {
			return nil, &EncodingError{Column: col, Reason: "row has no cell at schema position"}
		}
		cell := row[pos]
		if cell == nil {
			return nil, &EncodingError{Column: col, Reason: "nil cell"}
		}
		reg[slot] = cell
	}

	for _, u := range o.Units {
		if u.Kind != oracle.UnitComparison {
			continue
		}
		slot, _ := o.ColumnIndex(u.Column)
		if _, err := Compare(reg[slot], u.Value); err != nil {
			var encErr *EncodingError
			if errors.As(err, &encErr) && encErr.Column == "" {
				encErr.Column = u.Column
			}
			return nil, err
		}
	}

	return reg, nil
}

// Compare orders a cell against a literal: numerically when both sides
// have a numeric view, else lexicographically as strings. A bool on one
// side only cannot be resolved either way and fails.
//
// Returns <0, 0 or >0 in the usual comparison convention.
func Compare(cell, literal cond.Value) (int, error) {
	cn, cellNumeric := cond.Num(cell)
	ln, litNumeric := cond.Num(literal)
	if cellNumeric && litNumeric {
		switch {
		case cn < ln:
			return -1, nil
		case cn > ln:
			return 1, nil
		default:
			return 0, nil
		}
	}

	_, cellBool := cell.(cond.BoolValue)
	_, litBool := literal.(cond.BoolValue)
	if cellBool != litBool {
		return 0, &EncodingError{
			Reason: fmt.Sprintf("cannot compare %T cell with %T literal", cell, literal),
		}
	}

	ct, lt := cond.Text(cell), cond.Text(literal)
	switch {
	case ct < lt:
		return -1, nil
	case ct > lt:
		return 1, nil
	default:
		return 0, nil
	}
}

// EvalComparison applies a comparison operator to a cell and a literal.
func EvalComparison(cell, literal cond.Value, op string) (bool, error) {
	c, err := Compare(cell, literal)
	if err != nil {
		return false, err
	}
	switch op {
	case "=":
		return c == 0, nil
	case "!=":
		return c != 0, nil
	case ">":
		return c > 0, nil
	case "<":
		return c < 0, nil
	case ">=":
		return c >= 0, nil
	case "<=":
		return c <= 0, nil
	default:
		return false, fmt.Errorf("unknown comparison operator %q", op)
	}
}
