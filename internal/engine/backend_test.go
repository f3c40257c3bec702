package engine

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantumsql/qsql/internal/cond"
)

var patientSchema = []string{"id", "bp", "temp", "fever"}

func patientRows() [][]cond.Value {
	return [][]cond.Value{
		{cond.StringValue("P1"), cond.IntValue(120), cond.FloatValue(36.7), cond.IntValue(0)},
		{cond.StringValue("P3"), cond.IntValue(95), cond.FloatValue(36.5), cond.IntValue(0)},
		{cond.StringValue("P4"), cond.IntValue(140), cond.FloatValue(38.2), cond.IntValue(1)},
	}
}

const patientCondition = "(bp BETWEEN 100 AND 130) OR (temp > 38 AND NOT fever)"

func singleBatch(rows [][]cond.Value, mode Mode) *Batch {
	b := &Batch{ID: 0, Mode: mode}
	for i, row := range rows {
		b.RowIdx = append(b.RowIdx, i)
		b.Rows = append(b.Rows, row)
	}
	return b
}

func TestDenseBackendPatients(t *testing.T) {
	o := mustOracle(t, patientCondition, patientSchema)
	b := singleBatch(patientRows(), ModeDense)

	probs, rowErrs, err := DenseBackend{}.Evaluate(context.Background(), b, o, patientSchema)
	require.NoError(t, err)
	assert.Empty(t, rowErrs)

	// P1: bp=120 inside [100,130]. P3: bp=95 out, temp=36.5 fails >38.
	// P4: temp=38.2 passes the strict bound but fever=1 fails NOT fever.
	assert.Equal(t, []float64{1, 0, 0}, probs)
}

func TestSparseAgreesWithDense(t *testing.T) {
	conditions := []string{
		patientCondition,
		"bp > 100 AND NOT (fever = 1 OR temp > 38)",
		"fever QOR bp >= 120",
		"QNOT (bp < 100)",
	}
	for _, condition := range conditions {
		t.Run(condition, func(t *testing.T) {
			o := mustOracle(t, condition, patientSchema)

			dense, _, err := DenseBackend{}.Evaluate(context.Background(), singleBatch(patientRows(), ModeDense), o, patientSchema)
			require.NoError(t, err)
			sparse, _, err := SparseBackend{}.Evaluate(context.Background(), singleBatch(patientRows(), ModeSparse), o, patientSchema)
			require.NoError(t, err)

			require.Len(t, sparse, len(dense))
			for i := range dense {
				assert.InDelta(t, dense[i], sparse[i], 1e-6, "row %d", i)
			}
		})
	}
}

func TestBackendIdempotent(t *testing.T) {
	o := mustOracle(t, patientCondition, patientSchema)
	b := singleBatch(patientRows(), ModeDense)

	first, _, err := DenseBackend{}.Evaluate(context.Background(), b, o, patientSchema)
	require.NoError(t, err)
	second, _, err := DenseBackend{}.Evaluate(context.Background(), b, o, patientSchema)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestBackendEncodingErrorIsRowLocal(t *testing.T) {
	o := mustOracle(t, "bp > 100", patientSchema)
	rows := patientRows()
	rows[1] = rows[1][:1] // ragged row, missing the bp cell
	b := singleBatch(rows, ModeDense)

	probs, rowErrs, err := DenseBackend{}.Evaluate(context.Background(), b, o, patientSchema)
	require.NoError(t, err)

	assert.Equal(t, 1.0, probs[0])
	assert.True(t, math.IsNaN(probs[1]))
	assert.Equal(t, 1.0, probs[2])
	require.Contains(t, rowErrs, 1)
	assert.Len(t, rowErrs, 1)
}

func TestBackendHonorsCancellation(t *testing.T) {
	o := mustOracle(t, "bp > 100", patientSchema)
	b := singleBatch(patientRows(), ModeDense)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := DenseBackend{}.Evaluate(ctx, b, o, patientSchema)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSparseMemoizesDistinctSignaturesOnly(t *testing.T) {
	// Many rows, two distinct outcomes; sparse must still place each
	// row's probability at its own position.
	o := mustOracle(t, "x >= 5", []string{"x"})
	rows := make([][]cond.Value, 10)
	for i := range rows {
		rows[i] = []cond.Value{cond.IntValue(i)}
	}
	b := singleBatch(rows, ModeSparse)

	probs, _, err := SparseBackend{}.Evaluate(context.Background(), b, o, []string{"x"})
	require.NoError(t, err)
	for i, p := range probs {
		want := 0.0
		if i >= 5 {
			want = 1.0
		}
		assert.Equal(t, want, p, "row %d", i)
	}
}

func TestBackendFor(t *testing.T) {
	assert.Equal(t, ModeDense, backendFor(ModeDense).Mode())
	assert.Equal(t, ModeSparse, backendFor(ModeSparse).Mode())
}
