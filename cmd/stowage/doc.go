// Command stowage reads and writes the layered key-value store from the
// shell and can run as a long-lived watcher exporting Prometheus metrics.
package main
