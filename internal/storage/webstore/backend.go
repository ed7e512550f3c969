package webstore

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/yndnr/stowage-go/internal/storage/adapter"
)

// probeKey is written and removed by Available.
const probeKey = "__stowage_probe__"

// Backend stores envelopes in an Area under "<namespace>:<key>".
type Backend struct {
	namespace string
	area      Area
	logger    *slog.Logger
}

// NewBackend creates a backend over area.
func NewBackend(namespace string, area Area, logger *slog.Logger) *Backend {
	if logger == nil {
		logger = slog.Default()
	}
	return &Backend{namespace: namespace, area: area, logger: logger}
}

// New creates a localStorage or sessionStorage adapter over area.
func New(cfg adapter.Config, area Area, opts ...adapter.Option) (*adapter.Base, error) {
	switch cfg.Type {
	case adapter.KindLocalStorage, adapter.KindSessionStorage:
	default:
		return nil, fmt.Errorf("webstore: %w: %q", adapter.ErrUnknownKind, cfg.Type)
	}
	if cfg.Name == "" {
		cfg.Name = "stowage"
	}
	return adapter.New(cfg, NewBackend(cfg.Name, area, nil), opts...), nil
}

var (
	_ adapter.Backend    = (*Backend)(nil)
	_ adapter.AgeIndexed = (*Backend)(nil)
)

func (b *Backend) key(k string) string {
	return adapter.DerivedKey(b.namespace, k)
}

func (b *Backend) prefix() string {
	return b.namespace + ":"
}

// Init checks that an area is attached.
func (b *Backend) Init(context.Context) error {
	if b.area == nil {
		return adapter.ErrUnavailable
	}
	return nil
}

// Destroy leaves the area untouched; its data outlives the adapter.
func (b *Backend) Destroy(context.Context) error { return nil }

// Available performs a write-then-delete probe.
func (b *Backend) Available(ctx context.Context) bool {
	if b.area == nil {
		return false
	}
	if err := b.area.SetItem(ctx, probeKey, probeKey); err != nil {
		return false
	}
	return b.area.RemoveItem(ctx, probeKey) == nil
}

// Get returns the stored envelope. Malformed records read as absent.
func (b *Backend) Get(ctx context.Context, key string) (*adapter.Item, error) {
	raw, ok, err := b.area.GetItem(ctx, b.key(key))
	if err != nil || !ok {
		return nil, err
	}
	item, err := adapter.UnmarshalItem([]byte(raw))
	if err != nil {
		b.logger.Debug("discarding malformed record", "key", key, "error", err)
		return nil, nil
	}
	return item, nil
}

// Set persists the envelope as JSON.
func (b *Backend) Set(ctx context.Context, key string, item *adapter.Item) error {
	data, err := item.Marshal()
	if err != nil {
		return err
	}
	return b.area.SetItem(ctx, b.key(key), string(data))
}

// Delete removes key.
func (b *Backend) Delete(ctx context.Context, key string) (bool, error) {
	dk := b.key(key)
	_, ok, err := b.area.GetItem(ctx, dk)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil
	}
	return true, b.area.RemoveItem(ctx, dk)
}

// Clear removes every key of the namespace by scanning the whole area.
func (b *Backend) Clear(ctx context.Context) error {
	var doomed []string
	prefix := b.prefix()
	if err := b.area.Range(ctx, func(k, _ string) bool {
		if strings.HasPrefix(k, prefix) {
			doomed = append(doomed, k)
		}
		return true
	}); err != nil {
		return err
	}
	for _, k := range doomed {
		if err := b.area.RemoveItem(ctx, k); err != nil {
			return err
		}
	}
	return nil
}

// Has reports whether key is stored.
func (b *Backend) Has(ctx context.Context, key string) (bool, error) {
	_, ok, err := b.area.GetItem(ctx, b.key(key))
	return ok, err
}

// Keys scans the whole area for keys of the namespace.
func (b *Backend) Keys(ctx context.Context) ([]string, error) {
	var keys []string
	prefix := b.prefix()
	err := b.area.Range(ctx, func(k, _ string) bool {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, strings.TrimPrefix(k, prefix))
		}
		return true
	})
	return keys, err
}

// Size sums the UTF-16 bytes of the namespace's keys and values.
func (b *Backend) Size(ctx context.Context) (int64, error) {
	var size int64
	prefix := b.prefix()
	err := b.area.Range(ctx, func(k, v string) bool {
		if strings.HasPrefix(k, prefix) {
			size += entrySize(k, v)
		}
		return true
	})
	return size, err
}

// OldestKeys returns up to n keys of the namespace in write order.
func (b *Backend) OldestKeys(ctx context.Context, n int) ([]string, error) {
	keys := make([]string, 0, n)
	prefix := b.prefix()
	err := b.area.Range(ctx, func(k, _ string) bool {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, strings.TrimPrefix(k, prefix))
		}
		return len(keys) < n
	})
	return keys, err
}
