package memory

import (
	"context"
	"strings"
	"sync"

	"github.com/yndnr/stowage-go/internal/storage/adapter"
	"github.com/yndnr/stowage-go/pkg/cmap"
)

type entry struct {
	item *adapter.Item
	size int64
}

// Backend stores envelopes in process memory.
type Backend struct {
	namespace string
	maxSize   int64
	items     *cmap.Map[entry]

	// mu serializes writers so used matches the stored entries.
	mu   sync.Mutex
	used int64
}

// Option configures the Backend.
type Option func(*Backend)

// WithMaxSize enforces a byte quota on writes.
func WithMaxSize(max int64) Option {
	return func(b *Backend) {
		b.maxSize = max
	}
}

// NewBackend creates an empty backend for namespace.
func NewBackend(namespace string, opts ...Option) *Backend {
	b := &Backend{
		namespace: namespace,
		items:     cmap.New[entry](),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// New creates a memory adapter from cfg. cfg.MaxSize becomes the quota.
func New(cfg adapter.Config, opts ...adapter.Option) *adapter.Base {
	cfg.Type = adapter.KindMemory
	return adapter.New(cfg, NewBackend(cfg.Name, WithMaxSize(cfg.MaxSize)), opts...)
}

var (
	_ adapter.Backend = (*Backend)(nil)
)

func (b *Backend) key(k string) string {
	return adapter.DerivedKey(b.namespace, k)
}

// Init is a no-op; the map exists from construction.
func (b *Backend) Init(context.Context) error { return nil }

// Destroy drops every entry.
func (b *Backend) Destroy(context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.items.Clear()
	b.used = 0
	return nil
}

// Available always reports true.
func (b *Backend) Available(context.Context) bool { return true }

// Get returns a copy of the stored envelope.
func (b *Backend) Get(_ context.Context, key string) (*adapter.Item, error) {
	e, ok := b.items.Get(b.key(key))
	if !ok {
		return nil, nil
	}
	return e.item.Clone(), nil
}

// Set stores a copy of item, enforcing the quota when configured.
func (b *Backend) Set(_ context.Context, key string, item *adapter.Item) error {
	dk := b.key(key)
	size, err := entrySize(dk, item)
	if err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	var prevSize int64
	if prev, ok := b.items.Get(dk); ok {
		prevSize = prev.size
	}
	used := b.used - prevSize + size
	if b.maxSize > 0 && used > b.maxSize {
		return &adapter.QuotaExceededError{Used: used, Limit: b.maxSize}
	}

	b.items.Set(dk, entry{item: item.Clone(), size: size})
	b.used = used
	return nil
}

// Delete removes key.
func (b *Backend) Delete(_ context.Context, key string) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	e, ok := b.items.Pop(b.key(key))
	if ok {
		b.used -= e.size
	}
	return ok, nil
}

// Clear removes every key of the namespace.
func (b *Backend) Clear(context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	prefix := b.namespace + ":"
	b.items.DeleteIf(func(k string, _ entry) bool {
		return strings.HasPrefix(k, prefix)
	})
	b.used = 0
	b.items.Range(func(_ string, e entry) bool {
		b.used += e.size
		return true
	})
	return nil
}

// Has reports whether key is stored.
func (b *Backend) Has(_ context.Context, key string) (bool, error) {
	return b.items.Has(b.key(key)), nil
}

// Keys returns the caller keys of the namespace.
func (b *Backend) Keys(context.Context) ([]string, error) {
	prefix := b.namespace + ":"
	keys := make([]string, 0, b.items.Count())
	b.items.Range(func(k string, _ entry) bool {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, strings.TrimPrefix(k, prefix))
		}
		return true
	})
	return keys, nil
}

// Size returns the UTF-16 bytes held by the namespace.
func (b *Backend) Size(context.Context) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.used, nil
}

func entrySize(derivedKey string, item *adapter.Item) (int64, error) {
	data, err := item.Marshal()
	if err != nil {
		return 0, err
	}
	return adapter.UTF16Size(derivedKey) + adapter.UTF16Size(string(data)), nil
}
