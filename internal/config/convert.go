package config

import (
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/yndnr/stowage-go/internal/manager"
	"github.com/yndnr/stowage-go/internal/storage"
	"github.com/yndnr/stowage-go/internal/storage/adapter"
	"github.com/yndnr/stowage-go/internal/storage/indexeddb"
)

// Factory builds the adapter factory described by the storage section.
// The caller owns it and must Close it.
func (c *Config) Factory(log *slog.Logger, reg prometheus.Registerer) *storage.Factory {
	s := c.Storage
	badger := indexeddb.DefaultBadgerConfig()
	if s.BadgerGCInterval > 0 {
		badger.GCInterval = s.BadgerGCInterval.String()
	}
	if s.BadgerGCThreshold > 0 {
		badger.GCThreshold = s.BadgerGCThreshold
	}
	if s.BadgerCacheSize > 0 {
		badger.CacheSize = s.BadgerCacheSize
	}
	if s.BadgerValueLogFileSize > 0 {
		badger.ValueLogFileSize = s.BadgerValueLogFileSize
	}
	badger.SyncWrites = s.BadgerSyncWrites

	return &storage.Factory{
		DataDir:           s.DataDir,
		WebStorageQuota:   s.WebStorageQuota,
		InMemoryIndexedDB: s.InMemoryIndexedDB,
		Badger:            badger,
		Logger:            log,
		Registry:          reg,
	}
}

// ManagerConfig maps the manager section onto a manager.Config. Call
// Verify first; unknown kinds are reported again here.
func (c *Config) ManagerConfig() (manager.Config, error) {
	m := c.Manager
	primary, err := adapter.ParseKind(m.Primary)
	if err != nil {
		return manager.Config{}, err
	}
	fallbacks := make([]adapter.Kind, 0, len(m.Fallbacks))
	for _, fb := range m.Fallbacks {
		kind, err := adapter.ParseKind(fb)
		if err != nil {
			return manager.Config{}, err
		}
		fallbacks = append(fallbacks, kind)
	}

	return manager.Config{
		Primary:              primary,
		Fallbacks:            fallbacks,
		Namespace:            m.Namespace,
		DefaultTTL:           m.DefaultTTL,
		AutoMigrate:          m.AutoMigrate,
		CompressionThreshold: m.CompressionThreshold,
		EncryptionEnabled:    m.EncryptionEnabled,
		ChecksumAlgorithm:    m.ChecksumAlgorithm,
		MaxSize:              m.MaxSize,
		BackfillRate:         m.BackfillRate,
	}, nil
}
