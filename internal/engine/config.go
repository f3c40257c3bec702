package engine

import (
	"fmt"
	"time"
)

// Defaults for Config fields left at their zero value.
const (
	// DefaultDenseLimit is the effective-width ceiling for dense
	// evaluation, matching the documented qubit ceiling.
	DefaultDenseLimit = 28

	// DefaultMaxWorkers bounds the number of independent batches.
	DefaultMaxWorkers = 8

	// DefaultMatchThreshold selects rows whose probability reaches it.
	DefaultMatchThreshold = 0.5

	// DefaultBatchTimeout bounds one evaluation attempt of one batch.
	DefaultBatchTimeout = 30 * time.Second

	// DefaultRetryLimit is how many times a failed batch is handed to a
	// fresh worker before its rows are marked unavailable.
	DefaultRetryLimit = 2
)

// Config carries the recognized pipeline options.
type Config struct {
	// DenseLimit is the leaf-count threshold before sparse fallback.
	DenseLimit int

	// MaxWorkers caps the number of concurrently evaluated batches.
	MaxWorkers int

	// MatchThreshold is the minimum probability for a row to count as a
	// match.
	MatchThreshold float64

	// Normalize rescales the aggregated vector to sum to 1, turning
	// per-row acceptance scores into a distribution over rows. The two
	// modes are distinct contracts; they are never mixed silently.
	Normalize bool

	// BatchTimeout bounds a single evaluation attempt. Exceeding it is
	// a batch-level failure, not a global one.
	BatchTimeout time.Duration

	// RetryLimit is the number of retries after a first failed attempt.
	RetryLimit int

	// RequireFull makes aggregation fail with
	// *IncompleteAggregationError when any row is unavailable, instead
	// of reporting it in the manifest.
	RequireFull bool
}

// DefaultConfig returns the documented defaults.
func DefaultConfig() Config {
	return Config{
		DenseLimit:     DefaultDenseLimit,
		MaxWorkers:     DefaultMaxWorkers,
		MatchThreshold: DefaultMatchThreshold,
		BatchTimeout:   DefaultBatchTimeout,
		RetryLimit:     DefaultRetryLimit,
	}
}

// withDefaults fills zero-valued fields. For RetryLimit and
// MatchThreshold an explicit zero is indistinguishable from unset and
// gets the default; callers who mean zero set the field negative.
func (c Config) withDefaults() Config {
	if c.DenseLimit == 0 {
		c.DenseLimit = DefaultDenseLimit
	}
	if c.MaxWorkers == 0 {
		c.MaxWorkers = DefaultMaxWorkers
	}
	if c.MatchThreshold == 0 {
		c.MatchThreshold = DefaultMatchThreshold
	}
	if c.MatchThreshold < 0 {
		c.MatchThreshold = 0
	}
	if c.BatchTimeout == 0 {
		c.BatchTimeout = DefaultBatchTimeout
	}
	if c.RetryLimit == 0 {
		c.RetryLimit = DefaultRetryLimit
	}
	if c.RetryLimit < 0 {
		c.RetryLimit = 0
	}
	return c
}

// Validate rejects configurations the pipeline cannot honor.
func (c Config) Validate() error {
	if c.DenseLimit < 1 {
		return fmt.Errorf("dense_limit must be positive, got %d", c.DenseLimit)
	}
	if c.MaxWorkers < 1 {
		return fmt.Errorf("max_workers must be positive, got %d", c.MaxWorkers)
	}
	if c.MatchThreshold < 0 || c.MatchThreshold > 1 {
		return fmt.Errorf("match_threshold must be in [0,1], got %g", c.MatchThreshold)
	}
	if c.BatchTimeout <= 0 {
		return fmt.Errorf("batch_timeout must be positive, got %s", c.BatchTimeout)
	}
	return nil
}
