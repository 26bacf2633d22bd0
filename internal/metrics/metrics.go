// Package metrics defines the Prometheus instrumentation shared by the
// coordinator, fetcher, and indexer.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "crawler"

// Coordinator holds the coordinator/frontier metrics.
type Coordinator struct {
	LeasesDispatched *prometheus.CounterVec
	LeasesCompleted  *prometheus.CounterVec
	LeasesFailed     *prometheus.CounterVec
	LeasesRetried    prometheus.Counter
	LeasesExpired    prometheus.Counter
	QueueDepth       prometheus.Gauge
	WorkersAlive     prometheus.Gauge
	LeaseLifetime    prometheus.Histogram
}

// NewCoordinator registers and returns the coordinator metric set. Passing a
// nil registerer falls back to the global default registry.
func NewCoordinator(reg prometheus.Registerer) *Coordinator {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	const subsystem = "coordinator"

	return &Coordinator{
		LeasesDispatched: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: subsystem,
			Name: "leases_dispatched_total", Help: "Total leases handed out via assign_task.",
		}, []string{"host"}),
		LeasesCompleted: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: subsystem,
			Name: "leases_completed_total", Help: "Total leases completed successfully.",
		}, []string{"host"}),
		LeasesFailed: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: subsystem,
			Name: "leases_failed_total", Help: "Total leases reported as failed by a worker.",
		}, []string{"host"}),
		LeasesRetried: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: subsystem,
			Name: "leases_retried_total", Help: "Total leases re-enqueued after expiry or failure.",
		}),
		LeasesExpired: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: subsystem,
			Name: "leases_expired_total", Help: "Total leases reclaimed by the sweeper after timeout.",
		}),
		QueueDepth: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: subsystem,
			Name: "queue_depth", Help: "Current number of pending frontier entries.",
		}),
		WorkersAlive: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: subsystem,
			Name: "workers_alive", Help: "Number of workers with a recent heartbeat.",
		}),
		LeaseLifetime: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: subsystem,
			Name:    "lease_lifetime_seconds",
			Help:    "Time between lease dispatch and completion/expiry.",
			Buckets: prometheus.ExponentialBuckets(0.25, 2, 12),
		}),
	}
}

// Index holds the index/query engine metrics.
type Index struct {
	DocumentsIndexed prometheus.Counter
	SearchesTotal    prometheus.Counter
	UpsertLatency    prometheus.Histogram
	IndexSizeBytes   prometheus.Gauge
}

// NewIndex registers and returns the indexer metric set.
func NewIndex(reg prometheus.Registerer) *Index {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	const subsystem = "index"

	return &Index{
		DocumentsIndexed: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: subsystem,
			Name: "documents_indexed_total", Help: "Total documents upserted into the index.",
		}),
		SearchesTotal: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: subsystem,
			Name: "searches_total", Help: "Total search queries served.",
		}),
		UpsertLatency: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: subsystem,
			Name:    "upsert_latency_seconds",
			Help:    "Latency of a single document upsert.",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 14),
		}),
		IndexSizeBytes: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: subsystem,
			Name: "index_size_bytes", Help: "Approximate on-disk size of the persisted index.",
		}),
	}
}

// Fetcher holds the fetch-worker metrics.
type Fetcher struct {
	TasksFetched     prometheus.Counter
	TasksSucceeded   prometheus.Counter
	TasksFailed      prometheus.Counter
	RobotsDisallowed prometheus.Counter
	FetchLatency     prometheus.Histogram
}

// NewFetcher registers and returns the fetch-worker metric set.
func NewFetcher(reg prometheus.Registerer) *Fetcher {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	const subsystem = "fetcher"

	return &Fetcher{
		TasksFetched: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: subsystem,
			Name: "tasks_fetched_total", Help: "Total leases picked up via assign_task.",
		}),
		TasksSucceeded: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: subsystem,
			Name: "tasks_succeeded_total", Help: "Total leases completed and reported as successful.",
		}),
		TasksFailed: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: subsystem,
			Name: "tasks_failed_total", Help: "Total leases reported as failed.",
		}),
		RobotsDisallowed: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: subsystem,
			Name: "robots_disallowed_total", Help: "Total URLs skipped because robots.txt disallowed them.",
		}),
		FetchLatency: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: subsystem,
			Name:    "fetch_latency_seconds",
			Help:    "Latency of a single page fetch, from dispatch to submit_result.",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
		}),
	}
}
