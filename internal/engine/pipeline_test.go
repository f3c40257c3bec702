package engine

import (
	"bytes"
	"context"
	"log/slog"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantumsql/qsql/internal/cond"
)

func newTestPipeline(t *testing.T, cfg Config) *Pipeline {
	t.Helper()
	p, err := New(cfg, WithRunTokens(NewFixedRunTokens("run-test")))
	require.NoError(t, err)
	return p
}

func TestPipelinePatientsExample(t *testing.T) {
	p := newTestPipeline(t, Config{})

	res, err := p.Run(context.Background(), patientSchema, patientRows(), patientCondition)
	require.NoError(t, err)

	assert.Equal(t, "run-test", res.RunToken)
	assert.Equal(t, ProbabilityVector{1, 0, 0}, res.Probabilities)
	assert.Equal(t, []int{0}, res.Matches)
	assert.True(t, res.Manifest.Complete())
	assert.Equal(t, ModeDense, res.Mode)
	// BETWEEN desugars to two comparisons; with temp>38 and the fever
	// var that makes four units.
	assert.Equal(t, 4, res.Width)
	assert.NotEmpty(t, res.Fingerprint)
}

func TestPipelineEmptyRowSet(t *testing.T) {
	p := newTestPipeline(t, Config{})

	res, err := p.Run(context.Background(), patientSchema, nil, patientCondition)
	require.NoError(t, err)

	assert.Empty(t, res.Probabilities)
	assert.Empty(t, res.Matches)
	assert.True(t, res.Manifest.Complete())
	assert.Equal(t, ModeDense, res.Mode)
}

func TestPipelineEmptyRowSetKeepsScheduledMode(t *testing.T) {
	p := newTestPipeline(t, Config{DenseLimit: 1})

	res, err := p.Run(context.Background(), patientSchema, nil, patientCondition)
	require.NoError(t, err)
	assert.Equal(t, ModeSparse, res.Mode)
}

func TestPipelineUnknownColumnFailsBeforeRows(t *testing.T) {
	p := newTestPipeline(t, Config{})

	_, err := p.Run(context.Background(), patientSchema, patientRows(), "pulse > 60")
	require.Error(t, err)

	var unknown *cond.UnknownColumnError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, "pulse", unknown.Column)
}

func TestPipelineSyntaxError(t *testing.T) {
	p := newTestPipeline(t, Config{})

	_, err := p.Run(context.Background(), patientSchema, patientRows(), "bp > > 100")
	require.Error(t, err)

	var syn *cond.SyntaxError
	assert.ErrorAs(t, err, &syn)
}

func TestPipelineEncodingErrorIsRowLocal(t *testing.T) {
	p := newTestPipeline(t, Config{MaxWorkers: 1})

	rows := patientRows()
	rows[1] = []cond.Value{cond.StringValue("P3"), cond.BoolValue(true), cond.FloatValue(36.5), cond.IntValue(0)}

	res, err := p.Run(context.Background(), patientSchema, rows, "bp > 100")
	require.NoError(t, err)

	assert.Equal(t, 1.0, res.Probabilities[0])
	assert.True(t, math.IsNaN(res.Probabilities[1]))
	assert.Equal(t, 1.0, res.Probabilities[2])

	assert.Equal(t, []int{1}, res.Manifest.Unavailable)
	assert.Contains(t, res.Manifest.Reasons[1], "cannot compare")
	assert.Equal(t, []int{0, 2}, res.Matches)
}

func TestPipelineRequireFullEncodingError(t *testing.T) {
	p := newTestPipeline(t, Config{RequireFull: true})

	rows := patientRows()
	rows[0] = rows[0][:1]

	_, err := p.Run(context.Background(), patientSchema, rows, "bp > 100")
	require.Error(t, err)
	assert.True(t, IsIncompleteAggregation(err))
}

func TestPipelineSparseMatchesDenseOutcome(t *testing.T) {
	dense := newTestPipeline(t, Config{})
	sparse := newTestPipeline(t, Config{DenseLimit: 1})

	dres, err := dense.Run(context.Background(), patientSchema, patientRows(), patientCondition)
	require.NoError(t, err)
	sres, err := sparse.Run(context.Background(), patientSchema, patientRows(), patientCondition)
	require.NoError(t, err)

	assert.Equal(t, ModeDense, dres.Mode)
	assert.Equal(t, ModeSparse, sres.Mode)
	assert.Equal(t, dres.Fingerprint, sres.Fingerprint)
	require.Len(t, sres.Probabilities, len(dres.Probabilities))
	for i := range dres.Probabilities {
		assert.InDelta(t, dres.Probabilities[i], sres.Probabilities[i], 1e-6, "row %d", i)
	}
	assert.Equal(t, dres.Matches, sres.Matches)
}

func TestPipelineManyRowsManyWorkers(t *testing.T) {
	p := newTestPipeline(t, Config{MaxWorkers: 4})

	schema := []string{"x"}
	var rows [][]cond.Value
	for i := 0; i < 50; i++ {
		rows = append(rows, []cond.Value{cond.IntValue(i)})
	}

	res, err := p.Run(context.Background(), schema, rows, "x >= 25")
	require.NoError(t, err)

	require.Len(t, res.Probabilities, 50)
	for i, prob := range res.Probabilities {
		want := 0.0
		if i >= 25 {
			want = 1.0
		}
		assert.Equal(t, want, prob, "row %d", i)
	}
	assert.Len(t, res.Matches, 25)
	assert.True(t, res.Manifest.Complete())
}

func TestPipelineBatchTimeoutExhaustsRetries(t *testing.T) {
	p := newTestPipeline(t, Config{
		MaxWorkers:   2,
		BatchTimeout: time.Nanosecond,
		RetryLimit:   1,
	})

	res, err := p.Run(context.Background(), patientSchema, patientRows(), patientCondition)
	require.NoError(t, err)

	assert.Empty(t, res.Matches)
	assert.Equal(t, []int{0, 1, 2}, res.Manifest.Unavailable)
	assert.ElementsMatch(t, []int{0, 1}, res.Manifest.FailedBatches)
	for i, prob := range res.Probabilities {
		assert.True(t, math.IsNaN(prob), "row %d", i)
	}
	for _, idx := range res.Manifest.Unavailable {
		assert.Contains(t, res.Manifest.Reasons[idx], "timed out after 2 attempts")
	}
}

func TestPipelineBatchTimeoutRequireFull(t *testing.T) {
	p := newTestPipeline(t, Config{
		BatchTimeout: time.Nanosecond,
		RetryLimit:   -1,
		RequireFull:  true,
	})

	_, err := p.Run(context.Background(), patientSchema, patientRows(), patientCondition)
	require.Error(t, err)
	assert.True(t, IsIncompleteAggregation(err))
}

func TestPipelineLogsDispatchSequence(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	t.Cleanup(func() { slog.SetDefault(prev) })

	p := newTestPipeline(t, Config{MaxWorkers: 2})
	_, err := p.Run(context.Background(), patientSchema, patientRows(), patientCondition)
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "batch dispatched")
	assert.Contains(t, out, "seq=")
}

func TestPipelineCancelledContext(t *testing.T) {
	p := newTestPipeline(t, Config{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.Run(ctx, patientSchema, patientRows(), patientCondition)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPipelineDeterministicAcrossRuns(t *testing.T) {
	p := newTestPipeline(t, Config{MaxWorkers: 3})

	var prev *Result
	for i := 0; i < 5; i++ {
		res, err := p.Run(context.Background(), patientSchema, patientRows(), patientCondition)
		require.NoError(t, err)
		if prev != nil {
			assert.Equal(t, prev.Probabilities, res.Probabilities)
			assert.Equal(t, prev.Matches, res.Matches)
			assert.Equal(t, prev.Fingerprint, res.Fingerprint)
		}
		prev = res
	}
}
