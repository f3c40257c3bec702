package engine

import (
	"errors"
	"fmt"
	"sort"
)

// BatchFailure reports a batch whose evaluation could not be completed
// after retries: a worker error, an oracle rebuild mismatch, or a
// timeout. The batch's rows are marked unavailable; the run proceeds
// with the remaining batches.
type BatchFailure struct {
	// BatchID identifies the failed batch.
	BatchID int

	// Rows lists the original row indices the batch covered.
	Rows []int

	// Attempts is the total number of evaluation attempts made.
	Attempts int

	// Timeout is true when the final attempt exceeded the batch budget.
	Timeout bool

	// Err is the final attempt's error.
	Err error
}

func (e *BatchFailure) Error() string {
	if e.Timeout {
		return fmt.Sprintf("batch %d timed out after %d attempts (%d rows unavailable)", e.BatchID, e.Attempts, len(e.Rows))
	}
	return fmt.Sprintf("batch %d failed after %d attempts (%d rows unavailable): %v", e.BatchID, e.Attempts, len(e.Rows), e.Err)
}

func (e *BatchFailure) Unwrap() error { return e.Err }

// IncompleteAggregationError is raised only when the caller requires
// full coverage and one or more rows are unavailable.
type IncompleteAggregationError struct {
	// Missing lists the unavailable original row indices, sorted.
	Missing []int
}

func (e *IncompleteAggregationError) Error() string {
	return fmt.Sprintf("aggregation incomplete: %d rows unavailable", len(e.Missing))
}

// IsBatchFailure reports whether err is (or wraps) a *BatchFailure.
func IsBatchFailure(err error) bool {
	var bf *BatchFailure
	return errors.As(err, &bf)
}

// IsIncompleteAggregation reports whether err is (or wraps) an
// *IncompleteAggregationError.
func IsIncompleteAggregation(err error) bool {
	var ie *IncompleteAggregationError
	return errors.As(err, &ie)
}

func newIncompleteError(missing []int) *IncompleteAggregationError {
	sorted := make([]int, len(missing))
	copy(sorted, missing)
	sort.Ints(sorted)
	return &IncompleteAggregationError{Missing: sorted}
}
