// Package cond parses textual boolean/comparison conditions into an
// immutable abstract syntax tree.
//
// The grammar, lowest precedence first:
//
//	OR < AND < NOT < comparison | BETWEEN < ( group )
//
// Keywords are case-insensitive and whitespace is not significant.
// The quantum spellings QAND, QOR and QNOT are lexical synonyms for
// AND, OR and NOT: both surfaces produce the same node kinds, so the
// rest of the pipeline sees exactly one semantic model.
//
// The tree is an arena of nodes addressed by index rather than a web of
// owned pointers. This keeps the structure cycle-free by construction
// and makes structural deduplication during oracle synthesis cheap.
//
// Parse errors are deterministic and fatal: a malformed condition yields
// *SyntaxError, a reference to a column missing from the schema yields
// *UnknownColumnError, both before any row is touched.
package cond
