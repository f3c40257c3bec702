package harness

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/quantumsql/qsql/internal/cond"
	"github.com/quantumsql/qsql/internal/engine"
)

// Result captures one scenario execution.
type Result struct {
	RunToken      string
	Condition     string
	Width         int
	Mode          engine.Mode
	Probabilities engine.ProbabilityVector
	Matches       []int
	Manifest      *engine.Manifest

	// ErrorClass is the failure class when the run failed, empty
	// otherwise.
	ErrorClass string
	Err        error
}

// Run executes a scenario through the full pipeline. Run tokens are
// fixed per scenario name so output is deterministic. Pipeline errors
// are classified into the Result, not returned; the error return is
// for harness-level problems (bad cells, bad config).
func Run(ctx context.Context, scenario *Scenario) (*Result, error) {
	rows, err := convertRows(scenario.Rows)
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", scenario.Name, err)
	}

	cfg := engine.Config{
		DenseLimit:     scenario.Config.DenseLimit,
		MaxWorkers:     scenario.Config.MaxWorkers,
		MatchThreshold: scenario.Config.MatchThreshold,
		Normalize:      scenario.Config.Normalize,
		RetryLimit:     scenario.Config.RetryLimit,
		RequireFull:    scenario.Config.RequireFull,
	}
	pipeline, err := engine.New(cfg, engine.WithRunTokens(
		engine.NewFixedRunTokens("run-"+scenario.Name),
	))
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", scenario.Name, err)
	}

	res, err := pipeline.Run(ctx, scenario.Columns, rows, scenario.Condition)
	if err != nil {
		return &Result{
			Condition:  scenario.Condition,
			ErrorClass: classifyError(err),
			Err:        err,
		}, nil
	}

	return &Result{
		RunToken:      res.RunToken,
		Condition:     res.Condition,
		Width:         res.Width,
		Mode:          res.Mode,
		Probabilities: res.Probabilities,
		Matches:       res.Matches,
		Manifest:      res.Manifest,
	}, nil
}

// Verify checks a result against the scenario's expect clause,
// returning one error per mismatch.
func Verify(scenario *Scenario, result *Result) []error {
	var errs []error
	expect := scenario.Expect

	if expect.Error != "" {
		if result.ErrorClass != expect.Error {
			errs = append(errs, fmt.Errorf("expected error class %q, got %q (err: %v)", expect.Error, result.ErrorClass, result.Err))
		}
		return errs
	}
	if result.ErrorClass != "" {
		errs = append(errs, fmt.Errorf("unexpected failure %q: %v", result.ErrorClass, result.Err))
		return errs
	}

	if !equalInts(expect.Matches, result.Matches) {
		errs = append(errs, fmt.Errorf("matches: expected %v, got %v", expect.Matches, result.Matches))
	}

	if expect.Probabilities != nil {
		for i, want := range expect.Probabilities {
			got := result.Probabilities[i]
			switch {
			case want == nil:
				if !math.IsNaN(got) {
					errs = append(errs, fmt.Errorf("row %d: expected unavailable, got %g", i, got))
				}
			case math.IsNaN(got):
				errs = append(errs, fmt.Errorf("row %d: expected %g, got unavailable", i, *want))
			case math.Abs(got-*want) > 1e-6:
				errs = append(errs, fmt.Errorf("row %d: expected %g, got %g", i, *want, got))
			}
		}
	}

	if !equalInts(expect.Unavailable, result.Manifest.Unavailable) {
		errs = append(errs, fmt.Errorf("unavailable: expected %v, got %v", expect.Unavailable, result.Manifest.Unavailable))
	}
	if expect.Width != 0 && expect.Width != result.Width {
		errs = append(errs, fmt.Errorf("width: expected %d, got %d", expect.Width, result.Width))
	}
	if expect.Mode != "" && expect.Mode != result.Mode.String() {
		errs = append(errs, fmt.Errorf("mode: expected %s, got %s", expect.Mode, result.Mode))
	}

	return errs
}

// convertRows maps YAML cell values onto pipeline cell types.
func convertRows(raw [][]any) ([][]cond.Value, error) {
	rows := make([][]cond.Value, len(raw))
	for i, rawRow := range raw {
		row := make([]cond.Value, len(rawRow))
		for j, cell := range rawRow {
			v, err := convertCell(cell)
			if err != nil {
				return nil, fmt.Errorf("row %d cell %d: %w", i, j, err)
			}
			row[j] = v
		}
		rows[i] = row
	}
	return rows, nil
}

func convertCell(cell any) (cond.Value, error) {
	switch c := cell.(type) {
	case string:
		return cond.StringValue(c), nil
	case int:
		return cond.IntValue(c), nil
	case int64:
		return cond.IntValue(c), nil
	case float64:
		return cond.FloatValue(c), nil
	case bool:
		return cond.BoolValue(c), nil
	case nil:
		return nil, nil // nil cells exercise encoding failures
	default:
		return nil, fmt.Errorf("unsupported cell type %T", cell)
	}
}

func classifyError(err error) string {
	var syn *cond.SyntaxError
	var unknown *cond.UnknownColumnError
	switch {
	case errors.As(err, &syn):
		return ErrorSyntax
	case errors.As(err, &unknown):
		return ErrorUnknownColumn
	case engine.IsIncompleteAggregation(err):
		return ErrorIncomplete
	default:
		return "other"
	}
}

func equalInts(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
