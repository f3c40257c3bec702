package cond

import "fmt"

// SyntaxError reports malformed condition text. It is fatal: the whole
// query is aborted before any batch work starts, and retrying is
// pointless because parsing is deterministic.
type SyntaxError struct {
	// Pos is the byte offset in the condition text where the error was
	// detected.
	Pos int

	// Message describes what was expected or found.
	Message string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("syntax error at offset %d: %s", e.Pos, e.Message)
}

// UnknownColumnError reports an identifier that is not in the row
// schema. Detected at parse time, before any row is processed.
type UnknownColumnError struct {
	Column string
}

func (e *UnknownColumnError) Error() string {
	return fmt.Sprintf("unknown column %q", e.Column)
}
