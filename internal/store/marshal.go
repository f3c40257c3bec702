package store

import (
	"fmt"

	"github.com/valyala/fastjson"

	"github.com/quantumsql/qsql/internal/cond"
	"github.com/quantumsql/qsql/internal/oracle"
)

// marshalColumns serializes a schema to a canonical JSON array so the
// stored form is byte-stable across writes.
func marshalColumns(columns []string) (string, error) {
	data, err := oracle.MarshalCanonical(columns)
	if err != nil {
		return "", fmt.Errorf("marshal columns: %w", err)
	}
	return string(data), nil
}

// unmarshalColumns restores a schema from its stored JSON form.
func unmarshalColumns(data string) ([]string, error) {
	parsed, err := fastjson.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("unmarshal columns: %w", err)
	}
	arr, err := parsed.Array()
	if err != nil {
		return nil, fmt.Errorf("unmarshal columns: not an array: %w", err)
	}

	columns := make([]string, 0, len(arr))
	for i, v := range arr {
		b, err := v.StringBytes()
		if err != nil {
			return nil, fmt.Errorf("unmarshal columns: element %d: %w", i, err)
		}
		columns = append(columns, string(b))
	}
	return columns, nil
}

// marshalCells serializes one row's cells to a canonical JSON array.
// Cell types map to their native JSON forms, so stored tables are
// readable by any JSON tool and re-read deterministically.
func marshalCells(cells []cond.Value) (string, error) {
	generic := make([]any, len(cells))
	for i, c := range cells {
		generic[i] = c
	}
	data, err := oracle.MarshalCanonical(generic)
	if err != nil {
		return "", fmt.Errorf("marshal cells: %w", err)
	}
	return string(data), nil
}

// unmarshalCells restores one row's cells from stored JSON. Whole
// numbers come back as IntValue, fractional ones as FloatValue,
// mirroring how condition literals parse.
func unmarshalCells(data string) ([]cond.Value, error) {
	parsed, err := fastjson.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("unmarshal cells: %w", err)
	}
	arr, err := parsed.Array()
	if err != nil {
		return nil, fmt.Errorf("unmarshal cells: not an array: %w", err)
	}

	cells := make([]cond.Value, 0, len(arr))
	for i, v := range arr {
		cell, err := CellFromJSON(v)
		if err != nil {
			return nil, fmt.Errorf("unmarshal cells: element %d: %w", i, err)
		}
		cells = append(cells, cell)
	}
	return cells, nil
}

// CellFromJSON maps a parsed JSON value to its cell type. Exported so
// the CLI row-file loader decodes cells exactly the way stored tables
// do.
func CellFromJSON(v *fastjson.Value) (cond.Value, error) {
	switch v.Type() {
	case fastjson.TypeString:
		b, err := v.StringBytes()
		if err != nil {
			return nil, err
		}
		return cond.StringValue(b), nil
	case fastjson.TypeNumber:
		if n, err := v.Int64(); err == nil {
			return cond.IntValue(n), nil
		}
		f, err := v.Float64()
		if err != nil {
			return nil, err
		}
		return cond.FloatValue(f), nil
	case fastjson.TypeTrue:
		return cond.BoolValue(true), nil
	case fastjson.TypeFalse:
		return cond.BoolValue(false), nil
	default:
		return nil, fmt.Errorf("unsupported cell type %s", v.Type())
	}
}
