package webstore

import (
	"context"
	"sync"

	"github.com/yndnr/stowage-go/internal/storage/adapter"
)

// MemArea is an in-memory area ordered by last write.
type MemArea struct {
	quota int64

	mu     sync.RWMutex
	values map[string]string
	order  []string
	used   int64
}

// NewMemArea creates an empty area. A quota <= 0 applies DefaultQuota.
func NewMemArea(quota int64) *MemArea {
	if quota <= 0 {
		quota = DefaultQuota
	}
	return &MemArea{
		quota:  quota,
		values: make(map[string]string),
	}
}

var _ Area = (*MemArea)(nil)

// GetItem returns the value for key.
func (a *MemArea) GetItem(_ context.Context, key string) (string, bool, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	v, ok := a.values[key]
	return v, ok, nil
}

// SetItem stores value under key.
func (a *MemArea) SetItem(_ context.Context, key, value string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	size := entrySize(key, value)
	prev, exists := a.values[key]
	used := a.used + size
	if exists {
		used -= entrySize(key, prev)
	}
	if used > a.quota {
		return &adapter.QuotaExceededError{Used: used, Limit: a.quota}
	}

	if exists {
		a.unlink(key)
	}
	a.order = append(a.order, key)
	a.values[key] = value
	a.used = used
	return nil
}

// RemoveItem deletes key.
func (a *MemArea) RemoveItem(_ context.Context, key string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	prev, ok := a.values[key]
	if !ok {
		return nil
	}
	delete(a.values, key)
	a.used -= entrySize(key, prev)
	a.unlink(key)
	return nil
}

// unlink drops key from the write order. Callers hold mu.
func (a *MemArea) unlink(key string) {
	for i, k := range a.order {
		if k == key {
			a.order = append(a.order[:i], a.order[i+1:]...)
			return
		}
	}
}

// Range visits entries in write order over a snapshot of the area.
func (a *MemArea) Range(ctx context.Context, fn func(key, value string) bool) error {
	a.mu.RLock()
	keys := append([]string(nil), a.order...)
	values := make([]string, len(keys))
	for i, k := range keys {
		values[i] = a.values[k]
	}
	a.mu.RUnlock()

	for i, k := range keys {
		if err := ctx.Err(); err != nil {
			return err
		}
		if !fn(k, values[i]) {
			return nil
		}
	}
	return nil
}

// Close is a no-op.
func (a *MemArea) Close() error { return nil }

func entrySize(key, value string) int64 {
	return adapter.UTF16Size(key) + adapter.UTF16Size(value)
}
