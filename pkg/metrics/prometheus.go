// Package metrics provides Prometheus metrics for the squad composition service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager owns every Prometheus collector used by the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	constLabels      prometheus.Labels
	registry         prometheus.Registerer

	// Composition
	compositions        *prometheus.CounterVec
	compositionDuration prometheus.Histogram
	pruneIterations     prometheus.Histogram
	pruneDeadlocks      prometheus.Counter
	selectionCandidates *prometheus.HistogramVec
	teamCost            prometheus.Gauge
	teamMeanAbility     prometheus.Gauge

	// Graph construction
	graphBuildDuration *prometheus.HistogramVec
	graphVertices      *prometheus.GaugeVec
	graphEdges         *prometheus.GaugeVec

	// Queue and workers
	queueSize       prometheus.Gauge
	queueEnqueue    *prometheus.CounterVec
	workerCount     prometheus.Gauge
	requestsDeduped prometheus.Counter
	storedResults   *prometheus.GaugeVec

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
}

var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // metrics registry

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "squad",
		subsystem:        "composer",
		histogramBuckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000},
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every collector
	auto := promauto.With(m.registry)

	m.compositions = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "compositions_total",
		Help:        "Team compositions by outcome (done, budget_unattainable, infeasible_quota, error)",
		ConstLabels: m.constLabels,
	}, []string{"outcome"})

	m.compositionDuration = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "composition_duration_milliseconds",
		Help:        "Wall time of a full composition run",
		Buckets:     m.histogramBuckets,
		ConstLabels: m.constLabels,
	})

	m.pruneIterations = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "prune_iterations",
		Help:        "Prune steps needed to bring a team under budget",
		Buckets:     []float64{0, 1, 2, 5, 10, 20, 50, 100, 250, 1000},
		ConstLabels: m.constLabels,
	})

	m.pruneDeadlocks = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "prune_deadlocks_total",
		Help:        "Prune steps that found no cheaper replacement",
		ConstLabels: m.constLabels,
	})

	m.selectionCandidates = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "selection_candidates",
		Help:        "Candidate set size per greedy selection step",
		Buckets:     []float64{1, 2, 5, 10, 25, 50, 100, 250, 500, 1000},
		ConstLabels: m.constLabels,
	}, []string{"group"})

	m.teamCost = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "team_cost",
		Help:        "Salary total of the last composed team",
		ConstLabels: m.constLabels,
	})

	m.teamMeanAbility = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "team_mean_ability",
		Help:        "Mean ability of the last composed team",
		ConstLabels: m.constLabels,
	})

	m.graphBuildDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   "graph",
		Name:        "build_duration_milliseconds",
		Help:        "Similarity graph construction time",
		Buckets:     m.histogramBuckets,
		ConstLabels: m.constLabels,
	}, []string{"group"})

	m.graphVertices = auto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   "graph",
		Name:        "vertices",
		Help:        "Players in the similarity graph",
		ConstLabels: m.constLabels,
	}, []string{"group"})

	m.graphEdges = auto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   "graph",
		Name:        "edges",
		Help:        "Weighted edges in the similarity graph",
		ConstLabels: m.constLabels,
	}, []string{"group"})

	m.queueSize = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "queue_size",
		Help:        "Pending composition requests",
		ConstLabels: m.constLabels,
	})

	m.queueEnqueue = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "queue_enqueue_total",
		Help:        "Enqueue attempts by result (accepted, full, closed, cancelled)",
		ConstLabels: m.constLabels,
	}, []string{"result"})

	m.workerCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "worker_count",
		Help:        "Composition workers running",
		ConstLabels: m.constLabels,
	})

	m.requestsDeduped = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "requests_duplicate_total",
		Help:        "Composition requests rejected as duplicates",
		ConstLabels: m.constLabels,
	})

	m.storedResults = auto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   "repository",
		Name:        "compositions",
		Help:        "Compositions held by the result store, by status",
		ConstLabels: m.constLabels,
	}, []string{"status"})

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   "http",
		Name:        "requests_total",
		Help:        "HTTP requests by endpoint, method and status",
		ConstLabels: m.constLabels,
	}, []string{"endpoint", "method", "status_code"})

	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   "http",
		Name:        "request_duration_milliseconds",
		Help:        "HTTP request duration in milliseconds",
		Buckets:     m.histogramBuckets,
		ConstLabels: m.constLabels,
	}, []string{"endpoint", "method", "status_code"})

	m.systemMemoryUsage = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   "system",
		Name:        "memory_bytes",
		Help:        "Heap bytes allocated",
		ConstLabels: m.constLabels,
	})

	m.systemGoroutineCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   "system",
		Name:        "goroutines",
		Help:        "Number of goroutines",
		ConstLabels: m.constLabels,
	})
}

// RecordComposition counts a finished composition and its wall time.
func RecordComposition(outcome string, durationMs float64) {
	globalManager.compositions.WithLabelValues(outcome).Inc()
	globalManager.compositionDuration.Observe(durationMs)
}

// RecordPruneIterations observes how many prune steps a run needed.
func RecordPruneIterations(n int) {
	globalManager.pruneIterations.Observe(float64(n))
}

// RecordPruneDeadlock increments the deadlock counter.
func RecordPruneDeadlock() {
	globalManager.pruneDeadlocks.Inc()
}

// RecordSelectionCandidates observes a candidate set size for a role group.
func RecordSelectionCandidates(group string, n int) {
	globalManager.selectionCandidates.WithLabelValues(group).Observe(float64(n))
}

// UpdateTeam publishes cost and mean ability of the last team.
func UpdateTeam(cost, meanAbility float64) {
	globalManager.teamCost.Set(cost)
	globalManager.teamMeanAbility.Set(meanAbility)
}

// RecordGraphBuild records graph construction for a role group.
func RecordGraphBuild(group string, durationMs float64, vertices, edges int) {
	globalManager.graphBuildDuration.WithLabelValues(group).Observe(durationMs)
	globalManager.graphVertices.WithLabelValues(group).Set(float64(vertices))
	globalManager.graphEdges.WithLabelValues(group).Set(float64(edges))
}

// UpdateQueueSize sets the current queue size.
func UpdateQueueSize(size int) {
	globalManager.queueSize.Set(float64(size))
}

// RecordEnqueue counts an enqueue attempt by result.
func RecordEnqueue(result string) {
	globalManager.queueEnqueue.WithLabelValues(result).Inc()
}

// UpdateWorkerCount sets the current worker count.
func UpdateWorkerCount(count int) {
	globalManager.workerCount.Set(float64(count))
}

// RecordRequestDuplicate increments the duplicate request counter.
func RecordRequestDuplicate() {
	globalManager.requestsDeduped.Inc()
}

// UpdateStoredCompositions sets the number of stored compositions in a status.
func UpdateStoredCompositions(status string, n int) {
	globalManager.storedResults.WithLabelValues(status).Set(float64(n))
}

// RecordHTTPRequest records an HTTP request and its duration.
func RecordHTTPRequest(endpoint, method, statusCode string, durationMs float64) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(durationMs)
}

// UpdateSystem sets process level gauges.
func UpdateSystem(memoryBytes uint64, goroutines int) {
	globalManager.systemMemoryUsage.Set(float64(memoryBytes))
	globalManager.systemGoroutineCount.Set(float64(goroutines))
}

// GetRegistry returns the registry backing the package-level helpers.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
