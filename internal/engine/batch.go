package engine

import (
	"github.com/quantumsql/qsql/internal/cond"
	"github.com/quantumsql/qsql/internal/oracle"
)

// Mode selects the evaluation strategy for a batch.
type Mode int

const (
	// ModeDense evaluates every leaf for every row directly.
	ModeDense Mode = iota + 1
	// ModeSparse memoizes plan reduction by leaf signature.
	ModeSparse
)

func (m Mode) String() string {
	switch m {
	case ModeDense:
		return "dense"
	case ModeSparse:
		return "sparse"
	default:
		return "unknown"
	}
}

// Batch is one unit of parallel work: a round-robin slice of the row
// set plus the strategy it should be evaluated under. Created by
// Schedule, consumed by exactly one worker, then discarded.
type Batch struct {
	// ID is the batch's position in dispatch order, 0-based.
	ID int

	// Mode is dense when the oracle's effective width fits the dense
	// limit, sparse otherwise.
	Mode Mode

	// Seq is the logical dispatch timestamp, stamped by the pipeline.
	Seq int64

	// RowIdx holds the original row indices, aligned with Rows.
	RowIdx []int

	// Rows are the batch's row values, cloned slice headers over the
	// caller's cells. Workers treat cells as read-only.
	Rows [][]cond.Value
}

// Schedule partitions rows round-robin into up to MaxWorkers batches.
//
// Effective width is a property of the oracle, not of the partition:
// leaves are shared by every row in a batch, so no row split can lower
// it. A batch is therefore dense iff the oracle's unit count fits the
// dense limit, and sparse demotion happens only when leaf count alone
// exceeds it. An empty row set yields no batches.
func Schedule(rows [][]cond.Value, o *oracle.Oracle, cfg Config) []Batch {
	if len(rows) == 0 {
		return nil
	}

	workers := cfg.MaxWorkers
	if workers > len(rows) {
		workers = len(rows)
	}

	mode := modeForWidth(o.Width(), cfg.DenseLimit)

	batches := make([]Batch, workers)
	for i := range batches {
		batches[i] = Batch{ID: i, Mode: mode}
	}
	for i, row := range rows {
		b := &batches[i%workers]
		b.RowIdx = append(b.RowIdx, i)
		b.Rows = append(b.Rows, row)
	}
	return batches
}

// modeForWidth picks the strategy an effective width calls for. A
// property of the oracle alone, so it is meaningful even when no batch
// is scheduled.
func modeForWidth(width, denseLimit int) Mode {
	if width > denseLimit {
		return ModeSparse
	}
	return ModeDense
}
