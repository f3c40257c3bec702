package engine

import (
	"fmt"
	"math"
	"sort"
)

// ProbabilityVector holds one per-row acceptance probability in [0,1],
// in original row order. Entries are independent scores, not a joint
// distribution, unless the run used Normalize. Unavailable rows hold
// NaN; the accompanying Manifest is authoritative for them.
type ProbabilityVector []float64

// Manifest records which rows the run could not evaluate and why.
// Always reported alongside the probability vector.
type Manifest struct {
	// Unavailable lists unavailable original row indices, sorted.
	Unavailable []int

	// Reasons maps each unavailable row to a human-readable cause.
	Reasons map[int]string

	// FailedBatches lists batch IDs whose rows went unavailable as a
	// block (crash or timeout), in batch order.
	FailedBatches []int
}

// Complete reports whether every row was evaluated.
func (m *Manifest) Complete() bool {
	return len(m.Unavailable) == 0
}

// part is one batch's contribution to aggregation: probabilities
// aligned with the original row indices the batch covered.
type part struct {
	rowIdx  []int
	probs   []float64
	rowErrs map[int]error
}

// aggregate places per-batch vectors at their original indices over a
// working vector pre-filled with SuperposedProbability (the documented
// pending value), producing the final vector and manifest.
//
// Every index must be covered by exactly one part or listed in
// unavailable; a gap is a bug in scheduling and reported as an
// internal error. With requireFull set, any unavailable row raises
// *IncompleteAggregationError instead of a manifest entry.
//
// Normalization rescales the available entries to sum to 1. An
// all-zero vector stays as is: there is no distribution to form.
func aggregate(parts []part, total int, failed []failedBatch, cfg Config) (ProbabilityVector, *Manifest, error) {
	vec := newPendingVector(total)
	filled := make([]bool, total)
	manifest := &Manifest{Reasons: make(map[int]string)}

	for _, p := range parts {
		if len(p.rowIdx) != len(p.probs) {
			return nil, nil, fmt.Errorf("aggregate: part misaligned: %d indices, %d probabilities", len(p.rowIdx), len(p.probs))
		}
		for i, idx := range p.rowIdx {
			if idx < 0 || idx >= total {
				return nil, nil, fmt.Errorf("aggregate: row index %d out of range [0,%d)", idx, total)
			}
			if filled[idx] {
				return nil, nil, fmt.Errorf("aggregate: row %d covered twice", idx)
			}
			filled[idx] = true
			vec[idx] = p.probs[i]
			if math.IsNaN(p.probs[i]) {
				manifest.Unavailable = append(manifest.Unavailable, idx)
				if err, ok := p.rowErrs[idx]; ok {
					manifest.Reasons[idx] = err.Error()
				}
			}
		}
	}

	for _, fb := range failed {
		manifest.FailedBatches = append(manifest.FailedBatches, fb.id)
		for _, idx := range fb.rows {
			if filled[idx] {
				return nil, nil, fmt.Errorf("aggregate: row %d covered twice", idx)
			}
			filled[idx] = true
			vec[idx] = Unavailable
			manifest.Unavailable = append(manifest.Unavailable, idx)
			manifest.Reasons[idx] = fb.reason
		}
	}

	var gaps []int
	for i, ok := range filled {
		if !ok {
			gaps = append(gaps, i)
		}
	}
	if len(gaps) > 0 {
		return nil, nil, fmt.Errorf("aggregate: %d rows never dispatched (first gap at %d)", len(gaps), gaps[0])
	}

	sort.Ints(manifest.Unavailable)

	if cfg.RequireFull && !manifest.Complete() {
		return nil, nil, newIncompleteError(manifest.Unavailable)
	}

	if err := checkRange(vec); err != nil {
		return nil, nil, err
	}

	if cfg.Normalize {
		normalize(vec)
	}
	return vec, manifest, nil
}

// newPendingVector returns a working vector with every row in the
// pre-reconciliation state.
func newPendingVector(n int) ProbabilityVector {
	vec := make(ProbabilityVector, n)
	for i := range vec {
		vec[i] = SuperposedProbability
	}
	return vec
}

// checkRange enforces the output invariant: every available entry is
// finite and within [0,1].
func checkRange(vec ProbabilityVector) error {
	for i, p := range vec {
		if math.IsNaN(p) {
			continue // unavailable, tracked by manifest
		}
		if math.IsInf(p, 0) || p < 0 || p > 1 {
			return fmt.Errorf("aggregate: probability %g at row %d out of range", p, i)
		}
	}
	return nil
}

// normalize rescales available entries so they sum to 1.
func normalize(vec ProbabilityVector) {
	sum := 0.0
	for _, p := range vec {
		if !math.IsNaN(p) {
			sum += p
		}
	}
	if sum == 0 {
		return
	}
	for i, p := range vec {
		if !math.IsNaN(p) {
			vec[i] = p / sum
		}
	}
}

// Matches returns the indices of rows whose probability is at or above
// the threshold, in original row order. Unavailable rows never match:
// NaN fails every comparison.
func (v ProbabilityVector) Matches(threshold float64) []int {
	var matches []int
	for i, p := range v {
		if p >= threshold {
			matches = append(matches, i)
		}
	}
	return matches
}
