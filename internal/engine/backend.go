package engine

import (
	"context"
	"math"

	"github.com/quantumsql/qsql/internal/cond"
	"github.com/quantumsql/qsql/internal/oracle"
	"github.com/quantumsql/qsql/internal/register"
)

// Amplitude convention for crisp leaf outcomes.
const (
	probFalse = 0.0
	probTrue  = 1.0
)

// SuperposedProbability is the documented intermediate value for a row
// whose outcome is not yet resolvable: batches dispatched but not yet
// reconciled hold this value in the working vector until the gather
// barrier overwrites it. It never appears in a final aggregated
// vector.
const SuperposedProbability = 0.5

// Unavailable marks a row the pipeline could not evaluate (encoding
// failure or failed batch). Represented as NaN so it can never be
// confused with a real probability; the manifest is authoritative.
var Unavailable = math.NaN()

// Backend evaluates one batch against an oracle. Implementations must
// not mutate the oracle or the registers, must be idempotent, and must
// agree with each other within 1e-6 on every row they both accept.
//
// The returned vector has one entry per batch row, in batch order,
// with Unavailable at rows that failed to encode. rowErrs maps the
// original row index of each such row to its error.
type Backend interface {
	Mode() Mode
	Evaluate(ctx context.Context, b *Batch, o *oracle.Oracle, schema []string) (probs []float64, rowErrs map[int]error, err error)
}

// DenseBackend evaluates every leaf predicate for every row and
// reduces through the combinator plan. Exact dense evaluation is
// classical boolean evaluation with deterministic 0/1 leaves.
type DenseBackend struct{}

func (DenseBackend) Mode() Mode { return ModeDense }

func (DenseBackend) Evaluate(ctx context.Context, b *Batch, o *oracle.Oracle, schema []string) ([]float64, map[int]error, error) {
	probs := make([]float64, len(b.Rows))
	rowErrs := make(map[int]error)

	for i, row := range b.Rows {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		leaves, err := evalLeaves(row, schema, o)
		if err != nil {
			probs[i] = Unavailable
			rowErrs[b.RowIdx[i]] = err
			continue
		}
		probs[i] = reducePlan(o, o.Root, leaves)
	}
	return probs, rowErrs, nil
}

// SparseBackend skips the full per-row leaf sweep by memoizing plan
// reduction per distinct leaf signature present in the batch. Purely a
// performance/memory strategy: outputs are identical to dense.
type SparseBackend struct{}

func (SparseBackend) Mode() Mode { return ModeSparse }

func (SparseBackend) Evaluate(ctx context.Context, b *Batch, o *oracle.Oracle, schema []string) ([]float64, map[int]error, error) {
	probs := make([]float64, len(b.Rows))
	rowErrs := make(map[int]error)
	memo := make(map[string]float64)

	for i, row := range b.Rows {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		leaves, err := evalLeaves(row, schema, o)
		if err != nil {
			probs[i] = Unavailable
			rowErrs[b.RowIdx[i]] = err
			continue
		}

		sig := leafSignature(leaves)
		p, seen := memo[sig]
		if !seen {
			p = reducePlan(o, o.Root, leaves)
			memo[sig] = p
		}
		probs[i] = p
	}
	return probs, rowErrs, nil
}

// backendFor returns the strategy matching a batch's scheduled mode.
func backendFor(m Mode) Backend {
	if m == ModeSparse {
		return SparseBackend{}
	}
	return DenseBackend{}
}

// evalLeaves encodes a row and evaluates every predicate unit to its
// crisp amplitude. Negation is NOT applied here: it is a combinator
// operation, applied by reducePlan, so shared leaves are never skewed
// by one negated reference.
func evalLeaves(row []cond.Value, schema []string, o *oracle.Oracle) ([]float64, error) {
	reg, err := register.Encode(row, schema, o)
	if err != nil {
		return nil, err
	}

	leaves := make([]float64, len(o.Units))
	for i, u := range o.Units {
		slot, _ := o.ColumnIndex(u.Column)
		var truth bool
		switch u.Kind {
		case oracle.UnitVar:
			truth = cond.Truthy(reg[slot])
		case oracle.UnitComparison:
			truth, err = register.EvalComparison(reg[slot], u.Value, u.Op)
			if err != nil {
				return nil, err
			}
		}
		if truth {
			leaves[i] = probTrue
		} else {
			leaves[i] = probFalse
		}
	}
	return leaves, nil
}

// reducePlan folds leaf amplitudes through the combinator plan:
// AND is a min-style conjunction, OR a max-style disjunction, NOT the
// complement. With crisp 0/1 leaves this is exactly classical boolean
// evaluation.
func reducePlan(o *oracle.Oracle, idx int, leaves []float64) float64 {
	n := o.Plan[idx]
	switch n.Op {
	case oracle.PlanLeaf:
		return leaves[n.Unit]
	case oracle.PlanNot:
		return 1 - reducePlan(o, n.Left, leaves)
	case oracle.PlanAnd:
		return math.Min(reducePlan(o, n.Left, leaves), reducePlan(o, n.Right, leaves))
	case oracle.PlanOr:
		return math.Max(reducePlan(o, n.Left, leaves), reducePlan(o, n.Right, leaves))
	default:
		return Unavailable
	}
}

// leafSignature renders crisp leaf outcomes as a compact memo key.
func leafSignature(leaves []float64) string {
	sig := make([]byte, len(leaves))
	for i, p := range leaves {
		if p >= 0.5 {
			sig[i] = '1'
		} else {
			sig[i] = '0'
		}
	}
	return string(sig)
}
