package harness

import (
	"math"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/quantumsql/qsql/internal/oracle"
)

// snapshotMap flattens a run into primitives the canonical serializer
// accepts. Unavailable rows render as the string "unavailable", since
// canonical JSON forbids null and NaN. The oracle fingerprint is
// deliberately absent: it is covered by its own tests, and hashes make
// golden diffs unreadable.
func snapshotMap(scenarioName string, result *Result) map[string]any {
	probs := make([]any, len(result.Probabilities))
	for i, p := range result.Probabilities {
		if math.IsNaN(p) {
			probs[i] = "unavailable"
			continue
		}
		probs[i] = p
	}

	matches := make([]any, len(result.Matches))
	for i, m := range result.Matches {
		matches[i] = m
	}

	snap := map[string]any{
		"scenario":      scenarioName,
		"run_token":     result.RunToken,
		"condition":     result.Condition,
		"width":         result.Width,
		"mode":          result.Mode.String(),
		"matches":       matches,
		"probabilities": probs,
	}
	if !result.Manifest.Complete() {
		unavailable := make([]any, len(result.Manifest.Unavailable))
		for i, u := range result.Manifest.Unavailable {
			unavailable[i] = u
		}
		snap["unavailable"] = unavailable
	}
	return snap
}

// AssertGolden compares a successful run's snapshot against the golden
// file testdata/golden/{name}.golden. Canonical JSON keeps the
// comparison byte-stable across runs.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	snapJSON, err := oracle.MarshalCanonical(snapshotMap(scenarioName, result))
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, snapJSON)

	return nil
}
