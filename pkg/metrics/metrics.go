package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Reducer metrics
	ReduceDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "warpgraph_reduce_duration_seconds",
			Help:    "Time taken to fold a patch batch into WarpStateV5",
			Buckets: prometheus.DefBuckets,
		},
	)

	PatchesReducedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "warpgraph_patches_reduced_total",
			Help: "Total number of patches folded by the reducer",
		},
	)

	// Sync protocol metrics
	SyncPatchesAppliedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "warpgraph_sync_patches_applied_total",
			Help: "Total number of patches integrated via sync, by peer",
		},
		[]string{"peer"},
	)

	SyncRoundDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "warpgraph_sync_round_duration_seconds",
			Help:    "Duration of one syncWith round trip",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"peer"},
	)

	SyncAuthRejectionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "warpgraph_sync_auth_rejections_total",
			Help: "Total number of sync requests rejected by the HMAC auth envelope, by reason code",
		},
		[]string{"code"},
	)

	NonceCacheEvictionsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "warpgraph_nonce_cache_evictions_total",
			Help: "Total number of nonces evicted from the replay cache under capacity pressure",
		},
	)

	ForbiddenWriterPassthroughTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "warpgraph_forbidden_writer_passthrough_total",
			Help: "Total number of patches from a non-allowlisted writer accepted in log-only mode",
		},
	)

	// Checkpoint / compaction metrics
	CheckpointsCreatedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "warpgraph_checkpoints_created_total",
			Help: "Total number of checkpoints committed",
		},
	)

	TombstonesCompactedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "warpgraph_checkpoint_tombstones_compacted_total",
			Help: "Total number of tombstoned dots dropped by ORSet compaction",
		},
	)

	// Trust / audit metrics
	TrustUpdatesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "warpgraph_trust_updates_total",
			Help: "Total number of trust record updates, by outcome",
		},
		[]string{"outcome"},
	)

	AuditChainsVerifiedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "warpgraph_audit_chains_verified_total",
			Help: "Total number of audit chains verified, by result",
		},
		[]string{"result"},
	)

	// Doctor engine metrics
	DoctorCheckDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "warpgraph_doctor_check_duration_seconds",
			Help:    "Time taken by each doctor check, by check id",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"id"},
	)

	DoctorRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "warpgraph_doctor_runs_total",
			Help: "Total number of doctor runs, by derived health",
		},
		[]string{"health"},
	)
)

func init() {
	prometheus.MustRegister(ReduceDuration)
	prometheus.MustRegister(PatchesReducedTotal)
	prometheus.MustRegister(SyncPatchesAppliedTotal)
	prometheus.MustRegister(SyncRoundDuration)
	prometheus.MustRegister(SyncAuthRejectionsTotal)
	prometheus.MustRegister(NonceCacheEvictionsTotal)
	prometheus.MustRegister(ForbiddenWriterPassthroughTotal)
	prometheus.MustRegister(CheckpointsCreatedTotal)
	prometheus.MustRegister(TombstonesCompactedTotal)
	prometheus.MustRegister(TrustUpdatesTotal)
	prometheus.MustRegister(AuditChainsVerifiedTotal)
	prometheus.MustRegister(DoctorCheckDuration)
	prometheus.MustRegister(DoctorRunsTotal)
}

// Handler returns the Prometheus HTTP handler for a metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer is a helper for timing operations.
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// ObserveDuration records the elapsed time to a histogram.
func (t *Timer) ObserveDuration(histogram prometheus.Histogram) {
	histogram.Observe(time.Since(t.start).Seconds())
}

// ObserveDurationVec records the elapsed time to a histogram vec with labels.
func (t *Timer) ObserveDurationVec(histogram prometheus.ObserverVec, labels ...string) {
	histogram.WithLabelValues(labels...).Observe(time.Since(t.start).Seconds())
}

// Duration returns the elapsed time since the timer started.
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}
