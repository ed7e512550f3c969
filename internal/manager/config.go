package manager

import (
	"context"
	"log/slog"
	"time"

	"github.com/yndnr/stowage-go/internal/storage/adapter"
	"github.com/yndnr/stowage-go/internal/telemetry/metric"
)

// DefaultTTL is applied to writes that carry no TTL of their own.
const DefaultTTL = 24 * time.Hour

// DefaultNamespace prefixes every backend key.
const DefaultNamespace = "stowage"

// Factory constructs uninitialized adapters.
type Factory interface {
	Create(ctx context.Context, cfg adapter.Config) (adapter.Adapter, error)
}

// Config configures a Manager. Start from DefaultConfig.
type Config struct {
	// Primary is the preferred adapter kind.
	Primary adapter.Kind

	// Fallbacks are tried in order after the primary. An entry matching
	// the primary kind is skipped.
	Fallbacks []adapter.Kind

	// Namespace prefixes every backend key.
	Namespace string

	// DefaultTTL applies when a write carries no TTL. Zero disables expiry.
	DefaultTTL time.Duration

	// AutoMigrate copies fallback data into the primary during Init.
	AutoMigrate bool

	// CompressionThreshold > 0 marks envelopes as compressed, enabling
	// checksums.
	CompressionThreshold int

	// EncryptionEnabled marks envelopes as encrypted, enabling checksums.
	EncryptionEnabled bool

	// ChecksumAlgorithm is adapter.ChecksumSHA256 (default) or
	// adapter.ChecksumMurmur3.
	ChecksumAlgorithm string

	// MaxSize is the per-adapter capacity in bytes. Zero means unbounded.
	MaxSize int64

	// BackfillRate limits background backfills per second. Zero means
	// unlimited.
	BackfillRate float64

	// Factory builds the adapters. Nil uses an in-process factory that
	// only offers the memory and sessionStorage kinds.
	Factory Factory

	Logger  *slog.Logger
	Metrics *metric.Registry
}

// DefaultConfig returns the default configuration: an indexedDB primary
// with a memory fallback.
func DefaultConfig() Config {
	return Config{
		Primary:     adapter.KindIndexedDB,
		Fallbacks:   []adapter.Kind{adapter.KindMemory},
		Namespace:   DefaultNamespace,
		DefaultTTL:  DefaultTTL,
		AutoMigrate: true,
	}
}

func (c Config) withDefaults() Config {
	if c.Primary == "" {
		c.Primary = adapter.KindIndexedDB
	}
	if c.Fallbacks == nil {
		c.Fallbacks = []adapter.Kind{adapter.KindMemory}
	}
	if c.Namespace == "" {
		c.Namespace = DefaultNamespace
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	return c
}

// adapterConfig derives the configuration of one adapter.
func (c Config) adapterConfig(kind adapter.Kind) adapter.Config {
	return adapter.Config{
		Type:              kind,
		Name:              c.Namespace,
		Version:           1,
		TTL:               c.DefaultTTL,
		MaxSize:           c.MaxSize,
		Compression:       c.CompressionThreshold > 0,
		Encryption:        c.EncryptionEnabled,
		ChecksumAlgorithm: c.ChecksumAlgorithm,
	}
}

// SetOption adjusts a single write.
type SetOption func(*setOptions)

type setOptions struct {
	ttl           time.Duration
	skipFallbacks bool
}

// WithTTL overrides the default TTL for this write.
func WithTTL(ttl time.Duration) SetOption {
	return func(o *setOptions) {
		o.ttl = ttl
	}
}

// SkipFallbacks writes to the primary only.
func SkipFallbacks() SetOption {
	return func(o *setOptions) {
		o.skipFallbacks = true
	}
}
