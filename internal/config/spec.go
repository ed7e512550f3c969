package config

import "time"

// Config is the root configuration.
type Config struct {
	Manager ManagerSection `koanf:"manager" yaml:"manager" json:"manager"`
	Storage StorageSection `koanf:"storage" yaml:"storage" json:"storage"`
	Metrics MetricsSection `koanf:"metrics" yaml:"metrics" json:"metrics"`
	Log     LogSection     `koanf:"log" yaml:"log" json:"log"`
}

// ManagerSection configures the storage manager.
type ManagerSection struct {
	Primary              string        `koanf:"primary" yaml:"primary" json:"primary"`
	Fallbacks            []string      `koanf:"fallbacks" yaml:"fallbacks" json:"fallbacks"`
	Namespace            string        `koanf:"namespace" yaml:"namespace" json:"namespace"`
	DefaultTTL           time.Duration `koanf:"default_ttl" yaml:"default_ttl" json:"default_ttl"`
	AutoMigrate          bool          `koanf:"auto_migrate" yaml:"auto_migrate" json:"auto_migrate"`
	CompressionThreshold int           `koanf:"compression_threshold" yaml:"compression_threshold" json:"compression_threshold"`
	EncryptionEnabled    bool          `koanf:"encryption_enabled" yaml:"encryption_enabled" json:"encryption_enabled"`
	ChecksumAlgorithm    string        `koanf:"checksum_algorithm" yaml:"checksum_algorithm" json:"checksum_algorithm"`

	// MaxSize is the per-adapter capacity in bytes. Zero means unbounded.
	MaxSize int64 `koanf:"max_size" yaml:"max_size" json:"max_size"`

	// BackfillRate caps background backfills per second. Zero means
	// unlimited.
	BackfillRate float64 `koanf:"backfill_rate" yaml:"backfill_rate" json:"backfill_rate"`
}

// StorageSection locates and tunes the durable backends.
type StorageSection struct {
	// DataDir holds local.db, indexeddb/ and caches/. Empty disables the
	// durable kinds.
	DataDir string `koanf:"data_dir" yaml:"data_dir" json:"data_dir"`

	// WebStorageQuota bounds localStorage and sessionStorage in bytes of
	// UTF-16 text.
	WebStorageQuota int64 `koanf:"web_storage_quota" yaml:"web_storage_quota" json:"web_storage_quota"`

	InMemoryIndexedDB bool `koanf:"in_memory_indexeddb" yaml:"in_memory_indexeddb" json:"in_memory_indexeddb"`

	BadgerGCInterval       time.Duration `koanf:"badger_gc_interval" yaml:"badger_gc_interval" json:"badger_gc_interval"`
	BadgerGCThreshold      float64       `koanf:"badger_gc_threshold" yaml:"badger_gc_threshold" json:"badger_gc_threshold"`
	BadgerCacheSize        int64         `koanf:"badger_cache_size" yaml:"badger_cache_size" json:"badger_cache_size"`
	BadgerValueLogFileSize int64         `koanf:"badger_value_log_file_size" yaml:"badger_value_log_file_size" json:"badger_value_log_file_size"`
	BadgerSyncWrites       bool          `koanf:"badger_sync_writes" yaml:"badger_sync_writes" json:"badger_sync_writes"`
}

// MetricsSection configures the Prometheus endpoint served by watch.
type MetricsSection struct {
	// Addr is the listen address. Empty disables the endpoint.
	Addr string `koanf:"addr" yaml:"addr" json:"addr"`
}

// LogSection configures logging.
type LogSection struct {
	Level  string `koanf:"level" yaml:"level" json:"level"`
	Format string `koanf:"format" yaml:"format" json:"format"`
}
