package config

import (
	"errors"
	"fmt"

	"github.com/yndnr/stowage-go/internal/storage/adapter"
	"github.com/yndnr/stowage-go/internal/telemetry/logger"
)

// Verify validates the configuration.
func Verify(cfg *Config) error {
	if err := verifyManager(&cfg.Manager); err != nil {
		return err
	}
	if err := verifyStorage(&cfg.Storage); err != nil {
		return err
	}
	return verifyLog(&cfg.Log)
}

func verifyManager(cfg *ManagerSection) error {
	if _, err := adapter.ParseKind(cfg.Primary); err != nil {
		return fmt.Errorf("manager.primary: %w", err)
	}
	for _, fb := range cfg.Fallbacks {
		if _, err := adapter.ParseKind(fb); err != nil {
			return fmt.Errorf("manager.fallbacks: %w", err)
		}
	}
	if cfg.DefaultTTL < 0 {
		return errors.New("manager.default_ttl must not be negative")
	}
	if cfg.MaxSize < 0 {
		return errors.New("manager.max_size must not be negative")
	}
	if cfg.BackfillRate < 0 {
		return errors.New("manager.backfill_rate must not be negative")
	}
	switch cfg.ChecksumAlgorithm {
	case "", adapter.ChecksumSHA256, adapter.ChecksumMurmur3:
	default:
		return fmt.Errorf("manager.checksum_algorithm: unsupported %q", cfg.ChecksumAlgorithm)
	}
	return nil
}

func verifyStorage(cfg *StorageSection) error {
	if cfg.BadgerGCThreshold < 0 || cfg.BadgerGCThreshold > 1 {
		return errors.New("storage.badger_gc_threshold must be within [0, 1]")
	}
	if cfg.BadgerGCInterval < 0 {
		return errors.New("storage.badger_gc_interval must not be negative")
	}
	return nil
}

func verifyLog(cfg *LogSection) error {
	if !logger.ValidLevel(cfg.Level) {
		return fmt.Errorf("log.level: unsupported %q", cfg.Level)
	}
	switch cfg.Format {
	case "json", "text", "console":
		return nil
	}
	return fmt.Errorf("log.format: unsupported %q", cfg.Format)
}
