// Package oracle compiles a parsed condition tree into an Oracle: an
// ordered list of deduplicated predicate units plus a combinator plan
// that reduces unit outcomes to one probability per row.
//
// Synthesis is pure and deterministic. The same tree always yields the
// same unit ids in the same order, which is what allows batch workers to
// rebuild an identical oracle independently, with no cross-worker
// coordination. Structural deduplication uses content addressing:
// each leaf is serialized to canonical JSON and hashed with a domain
// prefix, so repeated sub-conditions compile to a single unit.
//
// Negation never mutates a leaf. NOT is a plan-level operation; the
// advisory FlipPhase flag on a unit only records that every plan
// reference to it sits under a NOT, so a phase-flipping backend may fold
// the negation into the unit if it wants to.
package oracle
