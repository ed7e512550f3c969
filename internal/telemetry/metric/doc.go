// Package metric provides Prometheus metrics for stowage.
//
// Metrics include:
//
//   - Manager operation counters per adapter and result
//   - Read hit/miss counters per adapter
//   - Quota eviction, migration and backfill counters
//   - Per-adapter size gauges collected on scrape
//
// Metrics are exposed at /metrics in Prometheus format.
package metric
