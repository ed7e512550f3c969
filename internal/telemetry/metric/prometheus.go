package metric

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/yndnr/stowage-go/internal/infra/buildinfo"
)

const namespace = "stowage"

// Registry holds all application metrics.
type Registry struct {
	registry *prometheus.Registry

	Operations     *prometheus.CounterVec
	Reads          *prometheus.CounterVec
	QuotaEvictions *prometheus.CounterVec
	MigratedItems  prometheus.Counter
	Backfills      *prometheus.CounterVec
}

var (
	global     *Registry
	globalOnce sync.Once
)

// Global returns the process-wide registry.
func Global() *Registry {
	globalOnce.Do(func() {
		global = NewRegistry()
	})
	return global
}

// Handler serves the process-wide registry.
func Handler() http.Handler {
	return Global().Handler()
}

// NewRegistry creates a registry with the Go and process collectors.
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	r := &Registry{
		registry: reg,
		Operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "manager",
			Name:      "operations_total",
			Help:      "Adapter operations issued by the manager",
		}, []string{"op", "adapter", "result"}),
		Reads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "manager",
			Name:      "reads_total",
			Help:      "Reads per adapter by hit or miss",
		}, []string{"adapter", "result"}),
		QuotaEvictions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "manager",
			Name:      "quota_evictions_total",
			Help:      "Keys evicted after a capacity failure",
		}, []string{"adapter"}),
		MigratedItems: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "manager",
			Name:      "migrated_items_total",
			Help:      "Items copied from fallbacks into the primary at startup",
		}),
		Backfills: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "manager",
			Name:      "backfills_total",
			Help:      "Background writes of fallback hits into the primary",
		}, []string{"result"}),
	}

	reg.MustRegister(r.Operations, r.Reads, r.QuotaEvictions, r.MigratedItems, r.Backfills, buildInfo())
	return r
}

func buildInfo() prometheus.Collector {
	info := buildinfo.Get()
	g := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "build_info",
		Help:      "Build information of the running binary",
		ConstLabels: prometheus.Labels{
			"version":    info.Version,
			"commit":     info.Commit,
			"go_version": info.GoVersion,
		},
	})
	g.Set(1)
	return g
}

// Registerer exposes the underlying registry for additional collectors.
func (r *Registry) Registerer() prometheus.Registerer {
	return r.registry
}

// Gatherer exposes the underlying registry for tests and exporters.
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.registry
}

// Handler returns an HTTP handler for the /metrics endpoint.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

// RecordOperation counts one adapter operation.
func (r *Registry) RecordOperation(op, adapter string, ok bool) {
	if r == nil {
		return
	}
	r.Operations.WithLabelValues(op, adapter, result(ok)).Inc()
}

// RecordRead counts one read as a hit or a miss.
func (r *Registry) RecordRead(adapter string, hit bool) {
	if r == nil {
		return
	}
	label := "miss"
	if hit {
		label = "hit"
	}
	r.Reads.WithLabelValues(adapter, label).Inc()
}

// AddQuotaEvictions counts evicted keys.
func (r *Registry) AddQuotaEvictions(adapter string, n int) {
	if r == nil || n <= 0 {
		return
	}
	r.QuotaEvictions.WithLabelValues(adapter).Add(float64(n))
}

// AddMigrated counts migrated items.
func (r *Registry) AddMigrated(n int) {
	if r == nil || n <= 0 {
		return
	}
	r.MigratedItems.Add(float64(n))
}

// RecordBackfill counts one background backfill.
func (r *Registry) RecordBackfill(ok bool) {
	if r == nil {
		return
	}
	r.Backfills.WithLabelValues(result(ok)).Inc()
}

func result(ok bool) string {
	if ok {
		return "ok"
	}
	return "error"
}
