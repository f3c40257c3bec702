package cli

import (
	"fmt"
	"os"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"

	"github.com/quantumsql/qsql/internal/engine"
)

// configSchema constrains pipeline config files. Every field is
// optional; omitted fields fall back to the engine defaults.
const configSchema = `
#Config: {
	dense_limit?:      int & >0
	max_workers?:      int & >0
	match_threshold?:  number & >=0 & <=1
	normalize?:        bool
	batch_timeout_ms?: int & >0
	retry_limit?:      int
	require_full?:     bool
}
`

// fileConfig is the decoded shape of a config file. Pointer fields
// distinguish "absent" from an explicit zero.
type fileConfig struct {
	DenseLimit     *int     `json:"dense_limit"`
	MaxWorkers     *int     `json:"max_workers"`
	MatchThreshold *float64 `json:"match_threshold"`
	Normalize      *bool    `json:"normalize"`
	BatchTimeoutMS *int     `json:"batch_timeout_ms"`
	RetryLimit     *int     `json:"retry_limit"`
	RequireFull    *bool    `json:"require_full"`
}

// LoadConfig reads a CUE config file, validates it against the config
// schema, and maps it onto an engine.Config. An empty path returns the
// zero Config, which the engine fills with defaults.
func LoadConfig(path string) (engine.Config, error) {
	var cfg engine.Config
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}

	ctx := cuecontext.New()
	schema := ctx.CompileString(configSchema)
	if err := schema.Err(); err != nil {
		return cfg, fmt.Errorf("compile config schema: %w", err)
	}

	value := ctx.CompileBytes(data)
	if err := value.Err(); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}

	unified := schema.LookupPath(cue.ParsePath("#Config")).Unify(value)
	if err := unified.Validate(); err != nil {
		return cfg, fmt.Errorf("validate config %s: %w", path, err)
	}

	var fc fileConfig
	if err := unified.Decode(&fc); err != nil {
		return cfg, fmt.Errorf("decode config %s: %w", path, err)
	}

	if fc.DenseLimit != nil {
		cfg.DenseLimit = *fc.DenseLimit
	}
	if fc.MaxWorkers != nil {
		cfg.MaxWorkers = *fc.MaxWorkers
	}
	if fc.MatchThreshold != nil {
		cfg.MatchThreshold = *fc.MatchThreshold
		if cfg.MatchThreshold == 0 {
			// Explicit zero in the file; the engine reserves zero for
			// "unset" and spells an explicit zero as negative.
			cfg.MatchThreshold = -1
		}
	}
	if fc.Normalize != nil {
		cfg.Normalize = *fc.Normalize
	}
	if fc.BatchTimeoutMS != nil {
		cfg.BatchTimeout = time.Duration(*fc.BatchTimeoutMS) * time.Millisecond
	}
	if fc.RetryLimit != nil {
		cfg.RetryLimit = *fc.RetryLimit
		if cfg.RetryLimit == 0 {
			// Explicit zero in the file means no retries; the engine
			// expresses that as a negative value.
			cfg.RetryLimit = -1
		}
	}
	if fc.RequireFull != nil {
		cfg.RequireFull = *fc.RequireFull
	}
	return cfg, nil
}
