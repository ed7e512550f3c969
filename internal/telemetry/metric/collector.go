package metric

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// SizeSource reports per-adapter byte usage.
type SizeSource interface {
	AdapterSizes(ctx context.Context) map[string]int64
}

// SizeCollector exports adapter sizes on every scrape.
type SizeCollector struct {
	source  SizeSource
	timeout time.Duration
	desc    *prometheus.Desc
}

// NewSizeCollector creates a collector reading from source.
func NewSizeCollector(source SizeSource) *SizeCollector {
	return &SizeCollector{
		source:  source,
		timeout: 5 * time.Second,
		desc: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "adapter", "size_bytes"),
			"Bytes used by each adapter namespace",
			[]string{"adapter"}, nil,
		),
	}
}

// Describe implements prometheus.Collector.
func (c *SizeCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.desc
}

// Collect implements prometheus.Collector.
func (c *SizeCollector) Collect(ch chan<- prometheus.Metric) {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	for adapter, size := range c.source.AdapterSizes(ctx) {
		ch <- prometheus.MustNewConstMetric(c.desc, prometheus.GaugeValue, float64(size), adapter)
	}
}
