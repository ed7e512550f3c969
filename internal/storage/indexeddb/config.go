package indexeddb

import (
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
)

// Layout constants.
const (
	StoreName      = "storage"
	IndexTimestamp = "timestamp"
)

// Options locate and tune the databases opened by the backend.
type Options struct {
	// Dir is the parent directory; each database lives in Dir/<namespace>.
	Dir string

	// InMemory keeps the database in memory (no files, no value log GC).
	InMemory bool

	// Badger tunes the engine.
	Badger BadgerConfig

	// Logger is the structured logger.
	Logger *slog.Logger

	// Registerer receives per-database size gauges when set.
	Registerer prometheus.Registerer
}

// BadgerConfig contains Badger-specific tuning parameters.
type BadgerConfig struct {
	// GCInterval is the interval between automatic value log GC runs.
	// Default: 10m
	GCInterval string

	// GCThreshold is the GC discard ratio threshold (0.0-1.0).
	// Default: 0.5
	GCThreshold float64

	// CacheSize is the block cache size in bytes.
	// Default: 16MB
	CacheSize int64

	// ValueLogFileSize is the max value log file size in bytes.
	// Default: 64MB
	ValueLogFileSize int64

	// SyncWrites enables fsync after each write.
	// Default: true
	SyncWrites bool
}

// DefaultOptions returns options rooted at dir.
func DefaultOptions(dir string) Options {
	return Options{
		Dir:    dir,
		Badger: DefaultBadgerConfig(),
		Logger: slog.Default(),
	}
}

// DefaultBadgerConfig returns the default Badger configuration.
func DefaultBadgerConfig() BadgerConfig {
	return BadgerConfig{
		GCInterval:       "10m",
		GCThreshold:      0.5,
		CacheSize:        16 << 20, // 16MB
		ValueLogFileSize: 64 << 20, // 64MB
		SyncWrites:       true,
	}
}
