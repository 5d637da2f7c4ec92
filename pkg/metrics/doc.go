/*
Package metrics exposes WarpGraph's Prometheus instrumentation.

Metrics are grouped by the component that emits them: the reducer (fold
latency, patches reduced), the sync protocol (patches applied per peer,
round-trip duration, auth rejections by code, nonce cache evictions), the
checkpoint/compaction loop (checkpoints created, tombstones compacted),
trust/audit services, and the doctor engine (per-check duration, derived
health outcome).

# Usage

	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())

	timer := metrics.NewTimer()
	state, err := reducer.Reduce(patches, prior)
	timer.ObserveDuration(metrics.ReduceDuration)
	metrics.PatchesReducedTotal.Add(float64(len(patches)))

All metrics are registered against the default Prometheus registry on
package init: a single global registration point rather than
per-instance registries.
*/
package metrics
