package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/yndnr/stowage-go/internal/manager"
	"github.com/yndnr/stowage-go/internal/storage/adapter"
	"github.com/yndnr/stowage-go/internal/storage/webstore"
)

// Default configuration values.
const (
	DefaultPrimary  = string(adapter.KindIndexedDB)
	DefaultFallback = string(adapter.KindMemory)

	DefaultBadgerGCInterval       = 10 * time.Minute
	DefaultBadgerGCThreshold      = 0.5
	DefaultBadgerCacheSize        = 16 << 20
	DefaultBadgerValueLogFileSize = 64 << 20

	DefaultMetricsAddr = "127.0.0.1:9480"

	DefaultLogLevel  = "info"
	DefaultLogFormat = "text"
)

// DefaultDataDir returns the per-user data directory, or "" when the
// user cache directory cannot be determined.
func DefaultDataDir() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "stowage")
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Manager: ManagerSection{
			Primary:           DefaultPrimary,
			Fallbacks:         []string{DefaultFallback},
			Namespace:         manager.DefaultNamespace,
			DefaultTTL:        manager.DefaultTTL,
			AutoMigrate:       true,
			ChecksumAlgorithm: adapter.ChecksumSHA256,
		},
		Storage: StorageSection{
			DataDir:                DefaultDataDir(),
			WebStorageQuota:        webstore.DefaultQuota,
			BadgerGCInterval:       DefaultBadgerGCInterval,
			BadgerGCThreshold:      DefaultBadgerGCThreshold,
			BadgerCacheSize:        DefaultBadgerCacheSize,
			BadgerValueLogFileSize: DefaultBadgerValueLogFileSize,
			BadgerSyncWrites:       true,
		},
		Metrics: MetricsSection{
			Addr: DefaultMetricsAddr,
		},
		Log: LogSection{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
	}
}
