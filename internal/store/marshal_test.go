package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fastjson"

	"github.com/quantumsql/qsql/internal/cond"
)

func TestMarshalCellsCanonicalForm(t *testing.T) {
	cells := []cond.Value{
		cond.StringValue("P1"),
		cond.IntValue(120),
		cond.FloatValue(36.7),
		cond.BoolValue(true),
	}

	data, err := marshalCells(cells)
	require.NoError(t, err)
	assert.Equal(t, `["P1",120,36.7,true]`, data)
}

func TestCellsRoundTrip(t *testing.T) {
	cells := []cond.Value{
		cond.StringValue("hello"),
		cond.StringValue(""),
		cond.IntValue(-7),
		cond.IntValue(0),
		cond.FloatValue(0.25),
		cond.BoolValue(false),
	}

	data, err := marshalCells(cells)
	require.NoError(t, err)
	back, err := unmarshalCells(data)
	require.NoError(t, err)
	assert.Equal(t, cells, back)
}

func TestUnmarshalCellsNumberForms(t *testing.T) {
	// "120" loads as an int, "120.0" as a float, matching how the same
	// spellings parse as condition literals.
	back, err := unmarshalCells(`[120, 120.0]`)
	require.NoError(t, err)
	assert.Equal(t, []cond.Value{cond.IntValue(120), cond.FloatValue(120)}, back)
}

func TestCellFromJSON(t *testing.T) {
	parsed, err := fastjson.Parse(`["s", 3, 2.5, true, null]`)
	require.NoError(t, err)
	arr, err := parsed.Array()
	require.NoError(t, err)

	want := []cond.Value{
		cond.StringValue("s"),
		cond.IntValue(3),
		cond.FloatValue(2.5),
		cond.BoolValue(true),
	}
	for i, w := range want {
		cell, err := CellFromJSON(arr[i])
		require.NoError(t, err)
		assert.Equal(t, w, cell)
	}

	_, err = CellFromJSON(arr[4])
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported cell type")
}

func TestUnmarshalCellsRejectsNested(t *testing.T) {
	_, err := unmarshalCells(`[[1,2]]`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported cell type")
}

func TestUnmarshalCellsRejectsNonArray(t *testing.T) {
	_, err := unmarshalCells(`{"a":1}`)
	assert.Error(t, err)
}

func TestColumnsRoundTrip(t *testing.T) {
	columns := []string{"id", "bp", "temp", "fever"}

	data, err := marshalColumns(columns)
	require.NoError(t, err)
	assert.Equal(t, `["id","bp","temp","fever"]`, data)

	back, err := unmarshalColumns(data)
	require.NoError(t, err)
	assert.Equal(t, columns, back)
}
