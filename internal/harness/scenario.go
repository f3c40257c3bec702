package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Scenario defines one conformance scenario: a row set, a condition,
// and the outcome a correct pipeline must produce.
type Scenario struct {
	// Name uniquely identifies this scenario. Golden files are keyed
	// by it.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Columns is the schema, in order.
	Columns []string `yaml:"columns"`

	// Rows holds the row set. Each row is a list of cells; cells may be
	// strings, integers, floats, or booleans.
	Rows [][]any `yaml:"rows"`

	// Condition is the condition text to evaluate.
	Condition string `yaml:"condition"`

	// Config overrides pipeline defaults. Zero-valued fields keep the
	// defaults.
	Config ScenarioConfig `yaml:"config,omitempty"`

	// Expect describes the required outcome.
	Expect ExpectClause `yaml:"expect"`
}

// ScenarioConfig mirrors the pipeline options a scenario may override.
type ScenarioConfig struct {
	DenseLimit     int     `yaml:"dense_limit,omitempty"`
	MaxWorkers     int     `yaml:"max_workers,omitempty"`
	MatchThreshold float64 `yaml:"match_threshold,omitempty"`
	Normalize      bool    `yaml:"normalize,omitempty"`
	RetryLimit     int     `yaml:"retry_limit,omitempty"`
	RequireFull    bool    `yaml:"require_full,omitempty"`
}

// ExpectClause specifies the expected outcome of a scenario run.
// Either Error is set, or the vector fields are.
type ExpectClause struct {
	// Error names an expected failure class: "syntax",
	// "unknown_column", or "incomplete". Empty means the run must
	// succeed.
	Error string `yaml:"error,omitempty"`

	// Matches lists the expected matching row indices, in order.
	Matches []int `yaml:"matches"`

	// Probabilities lists the expected per-row probabilities.
	// A null entry marks a row expected to be unavailable.
	Probabilities []*float64 `yaml:"probabilities"`

	// Unavailable lists row indices expected in the manifest.
	Unavailable []int `yaml:"unavailable,omitempty"`

	// Width is the expected oracle width (0 = don't check).
	Width int `yaml:"width,omitempty"`

	// Mode is the expected strategy, "dense" or "sparse" (empty =
	// don't check).
	Mode string `yaml:"mode,omitempty"`
}

// Expected error classes.
const (
	ErrorSyntax        = "syntax"
	ErrorUnknownColumn = "unknown_column"
	ErrorIncomplete    = "incomplete"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed, contains
// unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	// Strict field validation catches typos like "expects:" vs "expect:".
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Columns) == 0 {
		return fmt.Errorf("columns list is required and must be non-empty")
	}
	if s.Condition == "" {
		return fmt.Errorf("condition is required")
	}

	switch s.Expect.Error {
	case "", ErrorSyntax, ErrorUnknownColumn, ErrorIncomplete:
	default:
		return fmt.Errorf("expect.error: unknown class %q", s.Expect.Error)
	}

	if s.Expect.Error == "" {
		if s.Expect.Probabilities != nil && len(s.Expect.Probabilities) != len(s.Rows) {
			return fmt.Errorf("expect.probabilities has %d entries for %d rows", len(s.Expect.Probabilities), len(s.Rows))
		}
	}

	switch s.Expect.Mode {
	case "", "dense", "sparse":
	default:
		return fmt.Errorf("expect.mode: must be dense or sparse, got %q", s.Expect.Mode)
	}

	return nil
}
