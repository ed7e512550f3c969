package adapter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/yndnr/stowage-go/pkg/checksum"
)

// DefaultBatchConcurrency bounds the per-key fan-out of batch operations.
const DefaultBatchConcurrency = 16

// ErrChecksumMismatch is reported when a stored envelope fails verification.
var ErrChecksumMismatch = errors.New("checksum validation failed")

// Base applies the shared adapter policy on top of a Backend.
type Base struct {
	cfg     Config
	backend Backend
	logger  *slog.Logger
	now     func() time.Time
	limit   int

	mu          sync.RWMutex
	initialized bool

	events emitter
}

// Option configures a Base.
type Option func(*Base)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Base) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(b *Base) {
		if now != nil {
			b.now = now
		}
	}
}

// WithBatchConcurrency bounds the per-key fan-out of batch operations.
func WithBatchConcurrency(n int) Option {
	return func(b *Base) {
		if n > 0 {
			b.limit = n
		}
	}
}

// New wraps backend with the shared policy. The adapter starts uninitialized.
func New(cfg Config, backend Backend, opts ...Option) *Base {
	b := &Base{
		cfg:     cfg.withDefaults(),
		backend: backend,
		logger:  slog.Default(),
		now:     time.Now,
		limit:   DefaultBatchConcurrency,
	}
	for _, opt := range opts {
		opt(b)
	}
	b.logger = b.logger.With("adapter", string(b.cfg.Type), "namespace", b.cfg.Name)
	return b
}

var _ Adapter = (*Base)(nil)

// Kind returns the backend kind.
func (b *Base) Kind() Kind { return b.cfg.Type }

// Config returns the adapter configuration.
func (b *Base) Config() Config { return b.cfg }

// Backend returns the wrapped backend.
func (b *Base) Backend() Backend { return b.backend }

// Initialized reports whether Init has completed.
func (b *Base) Initialized() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.initialized
}

// Init opens the backend. Calling it again is a no-op.
func (b *Base) Init(ctx context.Context) error {
	b.mu.Lock()
	if b.initialized {
		b.mu.Unlock()
		return nil
	}
	if err := b.backend.Init(ctx); err != nil {
		b.mu.Unlock()
		b.emit(Event{Type: EventError, Err: err})
		return fmt.Errorf("adapter %s: init: %w", b.cfg.Type, err)
	}
	b.initialized = true
	b.mu.Unlock()

	b.logger.Debug("adapter initialized")
	b.emit(Event{Type: EventInitialized})
	return nil
}

// Destroy tears down the backend and drops every listener.
func (b *Base) Destroy(ctx context.Context) error {
	b.mu.Lock()
	if !b.initialized {
		b.mu.Unlock()
		b.events.reset()
		return nil
	}
	err := b.backend.Destroy(ctx)
	b.initialized = false
	b.mu.Unlock()

	b.events.reset()
	if err != nil {
		return fmt.Errorf("adapter %s: destroy: %w", b.cfg.Type, err)
	}
	b.logger.Debug("adapter destroyed")
	return nil
}

// Close releases the backend and drops every listener, keeping the stored
// data. A later Init reopens it.
func (b *Base) Close(ctx context.Context) error {
	b.mu.Lock()
	if !b.initialized {
		b.mu.Unlock()
		return nil
	}
	var err error
	if c, ok := b.backend.(Closer); ok {
		err = c.Close(ctx)
	}
	b.initialized = false
	b.mu.Unlock()

	b.events.reset()
	if err != nil {
		return fmt.Errorf("adapter %s: close: %w", b.cfg.Type, err)
	}
	return nil
}

// Available probes the backend. It never fails.
func (b *Base) Available(ctx context.Context) (available bool) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Debug("availability probe panicked", "panic", r)
			available = false
		}
	}()
	return b.backend.Available(ctx)
}

// Get returns the live value for key.
func (b *Base) Get(ctx context.Context, key string) Result[json.RawMessage] {
	if err := b.ready(); err != nil {
		return fail[json.RawMessage](err)
	}

	item, err := b.backend.Get(ctx, key)
	if err != nil {
		b.emit(Event{Type: EventError, Key: key, Err: err})
		return fail[json.RawMessage](err)
	}
	if item == nil {
		return Result[json.RawMessage]{}
	}
	if !item.Live(b.now()) {
		if _, err := b.backend.Delete(ctx, key); err != nil {
			b.logger.Debug("delete expired item failed", "key", key, "error", err)
		}
		return Result[json.RawMessage]{}
	}
	if item.Checksum != "" && !checksum.Verify(item.Value, b.cfg.ChecksumAlgorithm, item.Checksum) {
		err := fmt.Errorf("%w: key %q", ErrChecksumMismatch, key)
		b.emit(Event{Type: EventError, Key: key, Err: err})
		return fail[json.RawMessage](err)
	}

	return Result[json.RawMessage]{Success: true, Data: item.Value, FromCache: true}
}

// Set stores value under key. A ttl <= 0 applies the configured default.
func (b *Base) Set(ctx context.Context, key string, value any, ttl time.Duration) Outcome {
	if err := b.ready(); err != nil {
		return fail[struct{}](err)
	}

	item, err := b.envelope(value, ttl)
	if err != nil {
		b.emit(Event{Type: EventError, Key: key, Err: err})
		return fail[struct{}](err)
	}

	if err := b.backend.Set(ctx, key, item); err != nil {
		b.emitFailure(key, err)
		return fail[struct{}](err)
	}

	b.emit(Event{Type: EventSet, Key: key, Value: item.Value})
	return ok(struct{}{})
}

// Delete removes key. The delete event fires only if the key existed.
func (b *Base) Delete(ctx context.Context, key string) Outcome {
	if err := b.ready(); err != nil {
		return fail[struct{}](err)
	}

	existed, err := b.backend.Delete(ctx, key)
	if err != nil {
		b.emit(Event{Type: EventError, Key: key, Err: err})
		return fail[struct{}](err)
	}
	if existed {
		b.emit(Event{Type: EventDelete, Key: key})
	}
	return ok(struct{}{})
}

// Clear removes every key of the namespace.
func (b *Base) Clear(ctx context.Context) Outcome {
	if err := b.ready(); err != nil {
		return fail[struct{}](err)
	}

	if err := b.backend.Clear(ctx); err != nil {
		b.emit(Event{Type: EventError, Err: err})
		return fail[struct{}](err)
	}
	b.emit(Event{Type: EventClear})
	return ok(struct{}{})
}

// Has reports whether key is stored. Backend failures read as false.
func (b *Base) Has(ctx context.Context, key string) (bool, error) {
	if err := b.ready(); err != nil {
		return false, err
	}
	found, err := b.backend.Has(ctx, key)
	if err != nil {
		b.logger.Debug("has probe failed", "key", key, "error", err)
		return false, nil
	}
	return found, nil
}

// Keys lists the namespace keys in lexicographic order. Backend failures
// read as an empty list.
func (b *Base) Keys(ctx context.Context) ([]string, error) {
	if err := b.ready(); err != nil {
		return nil, err
	}
	keys, err := b.backend.Keys(ctx)
	if err != nil {
		b.logger.Debug("keys probe failed", "error", err)
		return []string{}, nil
	}
	sorted := append([]string(nil), keys...)
	sort.Strings(sorted)
	return sorted, nil
}

// Size returns the bytes used by the namespace. Backend failures read as 0.
func (b *Base) Size(ctx context.Context) (int64, error) {
	if err := b.ready(); err != nil {
		return 0, err
	}
	size, err := b.backend.Size(ctx)
	if err != nil {
		b.logger.Debug("size probe failed", "error", err)
		return 0, nil
	}
	return size, nil
}

// EvictionCandidates returns the first quarter (rounded up) of the stored
// keys. Backends with an age index yield the oldest writes; the rest yield
// keys in lexicographic order.
func (b *Base) EvictionCandidates(ctx context.Context) ([]string, error) {
	keys, err := b.Keys(ctx)
	if err != nil {
		return nil, err
	}
	n := (len(keys) + 3) / 4
	if n == 0 {
		return nil, nil
	}
	if aged, ok := b.backend.(AgeIndexed); ok {
		oldest, err := aged.OldestKeys(ctx, n)
		if err == nil && len(oldest) > 0 {
			return oldest, nil
		}
		b.logger.Debug("age index unavailable, using key order", "error", err)
	}
	return keys[:n], nil
}

// Stats computes adapter statistics on demand.
func (b *Base) Stats(ctx context.Context) (Stats, error) {
	size, err := b.Size(ctx)
	if err != nil {
		return Stats{}, err
	}
	keys, err := b.Keys(ctx)
	if err != nil {
		return Stats{}, err
	}

	stats := Stats{
		Type:      b.cfg.Type,
		Size:      size,
		ItemCount: len(keys),
		Available: b.Available(ctx),
	}
	if b.cfg.MaxSize > 0 {
		stats.MaxSize = b.cfg.MaxSize
		stats.UsedPercentage = float64(size) / float64(b.cfg.MaxSize) * 100
	}
	return stats, nil
}

// OnEvent subscribes fn to the adapter's events.
func (b *Base) OnEvent(fn Listener) ListenerID {
	return b.events.subscribe(fn)
}

// OffEvent removes a subscription.
func (b *Base) OffEvent(id ListenerID) {
	b.events.unsubscribe(id)
}

func (b *Base) ready() error {
	if !b.Initialized() {
		return fmt.Errorf("%w: %s", ErrNotInitialized, b.cfg.Type)
	}
	return nil
}

func (b *Base) envelope(value any, ttl time.Duration) (*Item, error) {
	raw, err := marshalValue(value)
	if err != nil {
		return nil, err
	}
	if ttl <= 0 {
		ttl = b.cfg.TTL
	}

	item := NewItem(raw, ttl, b.now())
	item.Compressed = b.cfg.Compression
	item.Encrypted = b.cfg.Encryption
	if b.cfg.Compression || b.cfg.Encryption {
		item.Checksum = checksum.Compute(raw, b.cfg.ChecksumAlgorithm)
	}
	return item, nil
}

func (b *Base) emitFailure(key string, err error) {
	if IsQuotaExceeded(err) {
		b.logger.Warn("write rejected for capacity", "key", key, "error", err)
		b.emit(Event{Type: EventQuotaExceeded, Key: key, Err: err})
		return
	}
	b.emit(Event{Type: EventError, Key: key, Err: err})
}

func (b *Base) emit(ev Event) {
	ev.Adapter = b.cfg.Type
	if ev.Timestamp.IsZero() {
		ev.Timestamp = b.now()
	}
	b.events.emit(ev)
}

// marshalValue serializes value in the same normalized form the envelope
// encoder produces, so checksums survive a persist and reload.
func marshalValue(value any) (json.RawMessage, error) {
	raw, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("adapter: serialize value: %w", err)
	}
	return raw, nil
}
