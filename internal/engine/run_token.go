package engine

import (
	"sync"

	"github.com/google/uuid"
)

// RunTokenGenerator produces correlation tokens for query runs. Every
// log line and batch outcome of a run carries its token.
// Implemented by UUIDv7Generator (production) and FixedRunTokens
// (tests).
type RunTokenGenerator interface {
	Generate() string
}

// UUIDv7Generator generates time-sortable UUIDv7 run tokens. The
// embedded timestamp makes tokens sortable by run start, which helps
// when reading interleaved logs.
//
// Thread-safety: stateless, safe for concurrent use.
type UUIDv7Generator struct{}

// Generate returns a new hyphenated UUIDv7 string.
func (UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}

// FixedRunTokens returns predetermined tokens for deterministic tests
// and golden comparisons. After the supplied tokens are exhausted it
// keeps returning the last one.
//
// Thread-safety: safe for concurrent use via internal mutex.
type FixedRunTokens struct {
	mu     sync.Mutex
	tokens []string
	idx    int
}

// NewFixedRunTokens creates a generator over the given token sequence.
func NewFixedRunTokens(tokens ...string) *FixedRunTokens {
	if len(tokens) == 0 {
		tokens = []string{"run-fixed"}
	}
	return &FixedRunTokens{tokens: tokens}
}

// Generate returns the next predetermined token.
func (g *FixedRunTokens) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	t := g.tokens[g.idx]
	if g.idx < len(g.tokens)-1 {
		g.idx++
	}
	return t
}
