// Package engine runs compiled oracles over row sets: it partitions
// rows into batches, evaluates each batch on a dense or sparse backend,
// and aggregates per-batch probability vectors into one result.
//
// ARCHITECTURE:
//
// Shared-nothing batch workers:
// Batches are independent units of parallel work. Each worker rebuilds
// its own oracle from the condition text (synthesis is deterministic,
// so the rebuild is verified by fingerprint rather than coordinated)
// and owns its register array. Nothing is shared mutably during
// computation; the only synchronization point is the gather barrier
// before aggregation.
//
// Dense vs sparse:
// The scheduler marks a batch dense when the oracle's effective width
// (distinct predicate units) fits under the configured dense limit,
// sparse otherwise. Sparse evaluation memoizes by leaf signature and is
// a memory optimization only: it must agree with dense output on every
// row within 1e-6.
//
// Failure model:
// Parse and synthesis errors abort the run before any batch work.
// Encoding errors are row-local. Batch failures (worker error or
// timeout) are retried a fixed number of times, then the batch's rows
// are marked unavailable; aggregation proceeds with whatever arrived
// and the result carries a manifest of unavailable rows. Partial
// results are always preferable to total failure.
package engine
