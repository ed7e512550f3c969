package webstore

import "context"

// DefaultQuota is the per-area capacity in UTF-16 bytes.
const DefaultQuota int64 = 5 << 20

// Area is a Web Storage style key-value area.
type Area interface {
	// GetItem returns the value and whether the key exists.
	GetItem(ctx context.Context, key string) (string, bool, error)

	// SetItem stores value, failing with *adapter.QuotaExceededError when the
	// area would exceed its quota.
	SetItem(ctx context.Context, key, value string) error

	// RemoveItem deletes key. Missing keys are not an error.
	RemoveItem(ctx context.Context, key string) error

	// Range visits every entry of the area in write order until fn
	// returns false.
	Range(ctx context.Context, fn func(key, value string) bool) error

	// Close releases the area.
	Close() error
}
