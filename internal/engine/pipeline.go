package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/quantumsql/qsql/internal/cond"
	"github.com/quantumsql/qsql/internal/oracle"
)

// Pipeline executes condition text against row sets. Construct once,
// reuse across queries; it holds no per-run state.
type Pipeline struct {
	cfg    Config
	clock  *Clock
	runGen RunTokenGenerator
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithRunTokens overrides the run token generator. Tests use
// FixedRunTokens for deterministic output.
func WithRunTokens(g RunTokenGenerator) Option {
	return func(p *Pipeline) {
		p.runGen = g
	}
}

// New creates a Pipeline with the given configuration. Zero-valued
// config fields receive defaults before validation.
func New(cfg Config, opts ...Option) (*Pipeline, error) {
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("pipeline config: %w", err)
	}

	p := &Pipeline{
		cfg:    cfg,
		clock:  NewClock(),
		runGen: UUIDv7Generator{},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Config returns the pipeline's effective configuration.
func (p *Pipeline) Config() Config {
	return p.cfg
}

// Result is the outcome of one query run: the probability vector over
// the full row set, the rows selected by the match threshold, and the
// manifest of anything that went unavailable.
type Result struct {
	RunToken    string
	Condition   string
	Fingerprint string
	Width       int
	Mode        Mode

	Probabilities ProbabilityVector
	Matches       []int
	Manifest      *Manifest
}

// Run executes condition text over a row set.
//
// Parse and synthesis errors (*cond.SyntaxError,
// *cond.UnknownColumnError) abort immediately, before any batch is
// dispatched; they are deterministic, so no retry. Batch-level
// failures are retried with a fresh worker and then degrade to
// manifest entries rather than failing the run.
//
// Cancelling ctx abandons the run: outstanding workers run to
// completion on their own and their results are discarded.
func (p *Pipeline) Run(ctx context.Context, schema []string, rows [][]cond.Value, condition string) (*Result, error) {
	runToken := p.runGen.Generate()
	log := slog.With("run", runToken)

	tree, err := cond.Parse(condition, schema)
	if err != nil {
		return nil, err
	}
	compiled, err := oracle.Synthesize(tree)
	if err != nil {
		return nil, err
	}
	fingerprint, err := compiled.Fingerprint()
	if err != nil {
		return nil, fmt.Errorf("fingerprint oracle: %w", err)
	}

	result := &Result{
		RunToken:    runToken,
		Condition:   condition,
		Fingerprint: fingerprint,
		Width:       compiled.Width(),
		Mode:        modeForWidth(compiled.Width(), p.cfg.DenseLimit),
	}

	if len(rows) == 0 {
		log.Debug("empty row set, nothing to evaluate")
		result.Probabilities = ProbabilityVector{}
		result.Manifest = &Manifest{Reasons: map[int]string{}}
		return result, nil
	}

	batches := Schedule(rows, compiled, p.cfg)
	log.Info("run scheduled",
		"rows", len(rows),
		"batches", len(batches),
		"width", compiled.Width(),
		"mode", result.Mode.String(),
	)

	outcomes := make(chan batchOutcome, len(batches))
	for i := range batches {
		b := &batches[i]
		b.Seq = p.clock.Next()
		log.Debug("batch dispatched", "batch", b.ID, "seq", b.Seq, "rows", len(b.RowIdx))
		go p.evaluateBatch(ctx, b, schema, condition, fingerprint, outcomes)
	}

	// Gather barrier: every dispatched batch reports back, success or
	// failure, before aggregation. Cancellation abandons the gather;
	// workers are not interrupted, their results just go nowhere.
	parts := make([]part, 0, len(batches))
	var failed []failedBatch
	for range batches {
		if err := ctx.Err(); err != nil {
			log.Warn("run abandoned", "error", err)
			return nil, err
		}
		select {
		case <-ctx.Done():
			log.Warn("run abandoned", "error", ctx.Err())
			return nil, ctx.Err()
		case out := <-outcomes:
			if out.failure != nil {
				log.Warn("batch unavailable",
					"batch", out.failure.BatchID,
					"attempts", out.failure.Attempts,
					"timeout", out.failure.Timeout,
				)
				failed = append(failed, failedBatch{
					id:     out.failure.BatchID,
					rows:   out.failure.Rows,
					reason: out.failure.Error(),
				})
				continue
			}
			parts = append(parts, out.part)
		}
	}

	vec, manifest, err := aggregate(parts, len(rows), failed, p.cfg)
	if err != nil {
		return nil, err
	}

	result.Probabilities = vec
	result.Manifest = manifest
	result.Matches = vec.Matches(p.cfg.MatchThreshold)
	log.Info("run complete",
		"matches", len(result.Matches),
		"unavailable", len(manifest.Unavailable),
	)
	return result, nil
}

type batchOutcome struct {
	part    part
	failure *BatchFailure
}

type failedBatch struct {
	id     int
	rows   []int
	reason string
}

// evaluateBatch is the worker body. It rebuilds the oracle from the
// condition text (shared-nothing: synthesis determinism replaces
// cross-worker coordination), verifies the rebuild by fingerprint, and
// evaluates under the batch's scheduled strategy, retrying failed
// attempts with a fresh timeout budget.
func (p *Pipeline) evaluateBatch(ctx context.Context, b *Batch, schema []string, condition, fingerprint string, out chan<- batchOutcome) {
	attempts := 1 + p.cfg.RetryLimit
	var lastErr error

	for attempt := 1; attempt <= attempts; attempt++ {
		probs, rowErrs, err := p.attemptBatch(ctx, b, schema, condition, fingerprint)
		if err == nil {
			out <- batchOutcome{part: part{rowIdx: b.RowIdx, probs: probs, rowErrs: rowErrs}}
			return
		}
		lastErr = err
		if ctx.Err() != nil {
			// The whole run is gone; retrying is pointless.
			break
		}
		slog.Debug("batch attempt failed",
			"batch", b.ID,
			"attempt", attempt,
			"error", err,
		)
	}

	out <- batchOutcome{failure: &BatchFailure{
		BatchID:  b.ID,
		Rows:     b.RowIdx,
		Attempts: attempts,
		Timeout:  errors.Is(lastErr, context.DeadlineExceeded),
		Err:      lastErr,
	}}
}

func (p *Pipeline) attemptBatch(ctx context.Context, b *Batch, schema []string, condition, fingerprint string) ([]float64, map[int]error, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, p.cfg.BatchTimeout)
	defer cancel()

	tree, err := cond.Parse(condition, schema)
	if err != nil {
		return nil, nil, fmt.Errorf("rebuild oracle: %w", err)
	}
	rebuilt, err := oracle.Synthesize(tree)
	if err != nil {
		return nil, nil, fmt.Errorf("rebuild oracle: %w", err)
	}
	fp, err := rebuilt.Fingerprint()
	if err != nil {
		return nil, nil, fmt.Errorf("rebuild oracle: %w", err)
	}
	if fp != fingerprint {
		return nil, nil, fmt.Errorf("oracle rebuild mismatch: %s != %s", fp, fingerprint)
	}

	return backendFor(b.Mode).Evaluate(attemptCtx, b, rebuilt, schema)
}
