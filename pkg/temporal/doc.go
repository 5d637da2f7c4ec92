// Package temporal implements the always()/eventually() temporal query
// operators: predicate evaluation over the sequence of per-tick state
// snapshots a graph passes through as patches are folded in. Built on
// the reducer's monotonic-apply property — a snapshot at tick N+1 can be
// obtained by folding only the patches between tick N and tick N+1 onto
// the tick-N snapshot rather than re-reducing from genesis — and
// structured like a loop-and-evaluate reconciliation worker, consuming
// the package's own lamport-ordered tick batches (read from the writer
// chains and the latest checkpoint) instead of a ticker.
package temporal
