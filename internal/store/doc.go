// Package store provides the durable table catalog backing the qsql
// CLI. Tables and their rows live in a single SQLite database; cells
// are serialized to canonical JSON so a stored table re-reads
// byte-identically and row files round-trip deterministically.
//
// The store is a catalog, not a query engine: conditions are evaluated
// by the pipeline against rows read back from here.
package store
