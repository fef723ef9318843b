package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Registry holds every metric this store exposes. Scoped down to the
// storage-engine concerns this package actually has — operation
// counts/latency, flush/merge activity, and level table counts —
// leaving out the HTTP, replication, cluster, licensing, and security
// metrics a general-purpose registry would also carry.
type Registry struct {
	StoreOperationsTotal   *prometheus.CounterVec
	StoreOperationDuration *prometheus.HistogramVec

	FlushesTotal   prometheus.Counter
	MergesTotal    *prometheus.CounterVec
	MergeDuration  *prometheus.HistogramVec
	MemTableBytes  prometheus.Gauge
	LevelTableCount *prometheus.GaugeVec

	registry *prometheus.Registry
	mu       sync.RWMutex
}

var (
	defaultRegistry *Registry
	once            sync.Once
)

// DefaultRegistry returns the process-wide metrics registry, lazily
// constructed on first use.
func DefaultRegistry() *Registry {
	once.Do(func() {
		defaultRegistry = NewRegistry()
	})
	return defaultRegistry
}

// NewRegistry creates an independent registry with every metric
// initialized, useful for tests that don't want to share state with
// DefaultRegistry.
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()
	r := &Registry{registry: reg}
	r.initStoreMetrics()
	r.initCompactionMetrics()
	return r
}

// GetPrometheusRegistry returns the underlying Prometheus registry,
// for wiring into an HTTP exposition handler.
func (r *Registry) GetPrometheusRegistry() *prometheus.Registry {
	return r.registry
}
