package adapter

import (
	"context"
	"encoding/json"
	"time"
)

// Adapter is the operation set every storage backend exposes to the manager.
type Adapter interface {
	Kind() Kind
	Config() Config

	Init(ctx context.Context) error
	Destroy(ctx context.Context) error
	Close(ctx context.Context) error
	Available(ctx context.Context) bool

	Get(ctx context.Context, key string) Result[json.RawMessage]
	Set(ctx context.Context, key string, value any, ttl time.Duration) Outcome
	Delete(ctx context.Context, key string) Outcome
	Clear(ctx context.Context) Outcome
	Has(ctx context.Context, key string) (bool, error)
	Keys(ctx context.Context) ([]string, error)
	Size(ctx context.Context) (int64, error)
	Stats(ctx context.Context) (Stats, error)

	GetMany(ctx context.Context, keys []string) Result[map[string]json.RawMessage]
	SetMany(ctx context.Context, items map[string]any, ttl time.Duration) Result[[]string]
	DeleteMany(ctx context.Context, keys []string) Result[[]string]

	OnEvent(fn Listener) ListenerID
	OffEvent(id ListenerID)
}

// Backend is the set of primitives a concrete store implements. Keys passed
// to a Backend are caller keys; the backend derives its own namespaced key.
type Backend interface {
	// Init opens the underlying store.
	Init(ctx context.Context) error

	// Destroy releases the underlying store.
	Destroy(ctx context.Context) error

	// Available probes the store. It must not mutate caller-visible state.
	Available(ctx context.Context) bool

	// Get returns the raw envelope, or nil when the key is absent or its
	// record cannot be parsed.
	Get(ctx context.Context, key string) (*Item, error)

	// Set persists the envelope.
	Set(ctx context.Context, key string, item *Item) error

	// Delete removes the key and reports whether it existed.
	Delete(ctx context.Context, key string) (bool, error)

	// Clear removes every key of this namespace.
	Clear(ctx context.Context) error

	// Has reports whether the key is stored, regardless of expiry.
	Has(ctx context.Context, key string) (bool, error)

	// Keys returns the caller keys of this namespace.
	Keys(ctx context.Context) ([]string, error)

	// Size returns the approximate bytes used by this namespace.
	Size(ctx context.Context) (int64, error)
}

// BatchBackend is implemented by backends with native multi-key operations.
type BatchBackend interface {
	// GetMany returns the envelopes found; missing keys are omitted.
	GetMany(ctx context.Context, keys []string) (map[string]*Item, error)

	// SetMany persists every envelope or none.
	SetMany(ctx context.Context, items map[string]*Item) error

	// DeleteMany removes the keys and returns the ones that existed.
	DeleteMany(ctx context.Context, keys []string) ([]string, error)
}

// AgeIndexed is implemented by backends that can list keys by write age.
type AgeIndexed interface {
	// OldestKeys returns up to n caller keys, oldest write first.
	OldestKeys(ctx context.Context, n int) ([]string, error)
}

// Closer is implemented by backends holding resources that can be released
// without deleting the stored data.
type Closer interface {
	Close(ctx context.Context) error
}
