package indexeddb

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v3"
	"github.com/prometheus/client_golang/prometheus"
)

// gcLoop runs periodic value log garbage collection.
func (b *Backend) gcLoop(db *badger.DB, stopCh <-chan struct{}, doneCh chan<- struct{}) {
	defer close(doneCh)

	interval, err := time.ParseDuration(b.opts.Badger.GCInterval)
	if err != nil || interval <= 0 {
		b.logger.Error("invalid gc_interval, using default 10m", "error", err)
		interval = 10 * time.Minute
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := runGC(db, b.opts.Badger.GCThreshold); err != nil {
				b.logger.Error("auto gc failed", "error", err)
			}
			if b.metrics != nil {
				b.metrics.update(db)
			}

		case <-stopCh:
			return
		}
	}
}

// runGC runs value log GC until nothing more can be rewritten.
func runGC(db *badger.DB, threshold float64) error {
	for {
		err := db.RunValueLogGC(threshold)
		if errors.Is(err, badger.ErrNoRewrite) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("gc: %w", err)
		}
	}
}

// dbMetrics holds per-database size gauges.
type dbMetrics struct {
	lsmSize      prometheus.Gauge
	valueLogSize prometheus.Gauge
}

func registerMetrics(reg prometheus.Registerer, name string, db *badger.DB) *dbMetrics {
	labels := prometheus.Labels{"database": name}
	m := &dbMetrics{
		lsmSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   "stowage",
			Subsystem:   "indexeddb",
			Name:        "lsm_size_bytes",
			Help:        "Badger LSM tree size in bytes",
			ConstLabels: labels,
		}),
		valueLogSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   "stowage",
			Subsystem:   "indexeddb",
			Name:        "value_log_size_bytes",
			Help:        "Badger value log size in bytes",
			ConstLabels: labels,
		}),
	}
	m.lsmSize = registerGauge(reg, m.lsmSize)
	m.valueLogSize = registerGauge(reg, m.valueLogSize)
	m.update(db)
	return m
}

func registerGauge(reg prometheus.Registerer, g prometheus.Gauge) prometheus.Gauge {
	if err := reg.Register(g); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(prometheus.Gauge); ok {
				return existing
			}
		}
	}
	return g
}

func (m *dbMetrics) update(db *badger.DB) {
	lsm, vlog := db.Size()
	m.lsmSize.Set(float64(lsm))
	m.valueLogSize.Set(float64(vlog))
}

func (m *dbMetrics) unregister(reg prometheus.Registerer) {
	reg.Unregister(m.lsmSize)
	reg.Unregister(m.valueLogSize)
}

// badgerLogger adapts slog.Logger to Badger's Logger interface.
type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}
