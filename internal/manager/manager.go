package manager

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/yndnr/stowage-go/internal/storage"
	"github.com/yndnr/stowage-go/internal/storage/adapter"
	"github.com/yndnr/stowage-go/internal/telemetry/metric"
)

// Common errors
var (
	ErrNotInitialized = errors.New("manager not initialized")
	ErrNotFound       = errors.New("key not found")
)

// Manager orchestrates a primary adapter and its fallbacks.
type Manager struct {
	cfg         Config
	factory     Factory
	ownsFactory bool
	logger      *slog.Logger
	metrics     *metric.Registry
	limiter     *rate.Limiter
	now         func() time.Time

	// initMu serializes Init, Destroy and Close.
	initMu sync.Mutex

	mu          sync.RWMutex
	initialized bool
	primary     adapter.Adapter
	fallbacks   []adapter.Adapter

	// ctx scopes background backfills; cancelled on teardown.
	ctx       context.Context
	cancel    context.CancelFunc
	backfills sync.WaitGroup

	// cleanupMu serializes quota evictions.
	cleanupMu sync.Mutex

	events emitter
}

// New creates an uninitialized manager.
func New(cfg Config) *Manager {
	cfg = cfg.withDefaults()

	m := &Manager{
		cfg:     cfg,
		factory: cfg.Factory,
		logger:  cfg.Logger.With("component", "manager", "namespace", cfg.Namespace),
		metrics: cfg.Metrics,
		limiter: rate.NewLimiter(rate.Inf, 0),
		now:     time.Now,
	}
	if cfg.BackfillRate > 0 {
		m.limiter = rate.NewLimiter(rate.Limit(cfg.BackfillRate), 1)
	}
	if m.factory == nil {
		m.factory = &storage.Factory{Logger: cfg.Logger}
		m.ownsFactory = true
	}
	return m
}

// Config returns the effective configuration.
func (m *Manager) Config() Config { return m.cfg }

// Initialized reports whether Init has completed.
func (m *Manager) Initialized() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.initialized
}

// Init builds and opens the adapters and runs the startup migration. The
// primary must be available; fallbacks that fail are skipped. Calling Init
// again is a no-op.
func (m *Manager) Init(ctx context.Context) error {
	m.initMu.Lock()
	defer m.initMu.Unlock()

	if m.Initialized() {
		return nil
	}

	primary, err := m.open(ctx, m.cfg.Primary)
	if err != nil {
		return fmt.Errorf("manager: primary %s: %w", m.cfg.Primary, err)
	}

	seen := map[adapter.Kind]bool{m.cfg.Primary: true}
	var fallbacks []adapter.Adapter
	for _, kind := range m.cfg.Fallbacks {
		if seen[kind] {
			continue
		}
		seen[kind] = true

		a, err := m.open(ctx, kind)
		if err != nil {
			m.logger.Warn("fallback adapter skipped", "adapter", kind, "error", err)
			m.emit(Event{Type: EventAdapterInitFailed, Adapter: kind, Err: err})
			continue
		}
		fallbacks = append(fallbacks, a)
	}

	m.mu.Lock()
	m.primary = primary
	m.fallbacks = fallbacks
	m.ctx, m.cancel = context.WithCancel(context.Background())
	m.mu.Unlock()

	if m.cfg.AutoMigrate {
		m.migrate(ctx, primary, fallbacks)
	}

	m.mu.Lock()
	m.initialized = true
	m.mu.Unlock()

	m.logger.Info("storage manager initialized",
		"primary", primary.Kind(),
		"fallbacks", len(fallbacks))
	return nil
}

// open creates, relays and initializes one adapter.
func (m *Manager) open(ctx context.Context, kind adapter.Kind) (adapter.Adapter, error) {
	a, err := m.factory.Create(ctx, m.cfg.adapterConfig(kind))
	if err != nil {
		return nil, err
	}
	if !a.Available(ctx) {
		return nil, adapter.ErrUnavailable
	}
	a.OnEvent(func(ev adapter.Event) {
		m.relay(a, ev)
	})
	if err := a.Init(ctx); err != nil {
		return nil, err
	}
	return a, nil
}

// relay re-emits an adapter event and reacts to capacity failures.
func (m *Manager) relay(a adapter.Adapter, ev adapter.Event) {
	src := ev
	m.emit(Event{
		Type:    EventAdapterEvent,
		Adapter: ev.Adapter,
		Key:     ev.Key,
		Err:     ev.Err,
		Source:  &src,
	})

	if ev.Type == adapter.EventQuotaExceeded {
		m.emit(Event{Type: EventQuotaExceeded, Adapter: ev.Adapter, Key: ev.Key, Err: ev.Err})
		m.evict(context.Background(), a)
	}
}

// Destroy waits for background work, destroys the primary then every
// fallback and drops all listeners. Destroying deletes the data of the
// durable backends.
func (m *Manager) Destroy(ctx context.Context) error {
	return m.teardown(ctx, func(a adapter.Adapter) error { return a.Destroy(ctx) })
}

// Close waits for background work and releases every adapter, keeping the
// stored data.
func (m *Manager) Close(ctx context.Context) error {
	return m.teardown(ctx, func(a adapter.Adapter) error { return a.Close(ctx) })
}

func (m *Manager) teardown(ctx context.Context, release func(adapter.Adapter) error) error {
	m.initMu.Lock()
	defer m.initMu.Unlock()

	m.mu.Lock()
	if !m.initialized {
		m.mu.Unlock()
		return nil
	}
	m.initialized = false
	adapters := append([]adapter.Adapter{m.primary}, m.fallbacks...)
	m.primary, m.fallbacks = nil, nil
	cancel := m.cancel
	m.mu.Unlock()

	// Pending backfills finish unless ctx ends first.
	done := make(chan struct{})
	go func() {
		m.backfills.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
	}
	cancel()
	<-done

	var errs []error
	for _, a := range adapters {
		if err := release(a); err != nil {
			errs = append(errs, err)
		}
	}
	m.events.reset()

	if m.ownsFactory {
		if c, ok := m.factory.(io.Closer); ok {
			errs = append(errs, c.Close())
		}
	}
	return errors.Join(errs...)
}

// adapters returns the primary followed by the fallbacks.
func (m *Manager) adapters() ([]adapter.Adapter, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.initialized {
		return nil, ErrNotInitialized
	}
	out := make([]adapter.Adapter, 0, 1+len(m.fallbacks))
	out = append(out, m.primary)
	return append(out, m.fallbacks...), nil
}

// Get returns the first live value found, primary first. A hit served by a
// fallback is written back into the primary in the background.
func (m *Manager) Get(ctx context.Context, key string) (json.RawMessage, error) {
	adapters, err := m.adapters()
	if err != nil {
		return nil, err
	}

	for i, a := range adapters {
		r := a.Get(ctx, key)
		m.metrics.RecordRead(string(a.Kind()), r.Success)
		if r.Err != nil {
			m.logger.Debug("adapter read failed", "adapter", a.Kind(), "key", key, "error", r.Err)
		}
		if !r.Success {
			continue
		}
		if i > 0 {
			m.backfill(adapters[0], map[string]json.RawMessage{key: r.Data})
		}
		return r.Data, nil
	}
	return nil, ErrNotFound
}

// backfill writes fallback hits into the primary without blocking the read.
func (m *Manager) backfill(primary adapter.Adapter, items map[string]json.RawMessage) {
	m.mu.RLock()
	if !m.initialized {
		m.mu.RUnlock()
		return
	}
	ctx := m.ctx
	m.backfills.Add(1)
	m.mu.RUnlock()

	go func() {
		defer m.backfills.Done()

		if err := m.limiter.Wait(ctx); err != nil {
			return
		}
		for k, v := range items {
			r := primary.Set(ctx, k, v, m.cfg.DefaultTTL)
			m.metrics.RecordBackfill(r.Success)
			if !r.Success {
				m.logger.Debug("backfill failed", "key", k, "error", r.Err)
				m.emit(Event{Type: EventBackgroundSetFailed, Adapter: primary.Kind(), Key: k, Err: r.Err})
			}
		}
	}()
}

// Set writes value to the primary and, unless SkipFallbacks is given, to
// every fallback. It succeeds when at least one adapter accepted the write.
func (m *Manager) Set(ctx context.Context, key string, value any, opts ...SetOption) error {
	adapters, err := m.adapters()
	if err != nil {
		return err
	}

	o := setOptions{ttl: m.cfg.DefaultTTL}
	for _, opt := range opts {
		opt(&o)
	}
	if o.skipFallbacks {
		adapters = adapters[:1]
	}

	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("manager: set %q: serialize: %w", key, err)
	}
	value = json.RawMessage(raw)

	errs := m.fanOut(adapters, "set", key, func(a adapter.Adapter) adapter.Outcome {
		return a.Set(ctx, key, value, o.ttl)
	})
	if len(errs) == len(adapters) {
		return fmt.Errorf("manager: set %q: %w", key, errors.Join(errs...))
	}

	m.emit(Event{Type: EventStored, Key: key, Value: raw})
	return nil
}

// Delete removes key from every adapter. It succeeds when at least one
// adapter succeeded.
func (m *Manager) Delete(ctx context.Context, key string) error {
	adapters, err := m.adapters()
	if err != nil {
		return err
	}

	errs := m.fanOut(adapters, "delete", key, func(a adapter.Adapter) adapter.Outcome {
		return a.Delete(ctx, key)
	})
	if len(errs) == len(adapters) {
		return fmt.Errorf("manager: delete %q: %w", key, errors.Join(errs...))
	}

	m.emit(Event{Type: EventDeleted, Key: key})
	return nil
}

// Clear empties every adapter. It succeeds when at least one adapter
// succeeded.
func (m *Manager) Clear(ctx context.Context) error {
	adapters, err := m.adapters()
	if err != nil {
		return err
	}

	errs := m.fanOut(adapters, "clear", "", func(a adapter.Adapter) adapter.Outcome {
		return a.Clear(ctx)
	})
	if len(errs) == len(adapters) {
		return fmt.Errorf("manager: clear: %w", errors.Join(errs...))
	}

	m.emit(Event{Type: EventCleared})
	return nil
}

// fanOut runs op on every adapter concurrently and returns the failures.
// Each failure is reported as an adapter-error event.
func (m *Manager) fanOut(adapters []adapter.Adapter, op, key string, fn func(adapter.Adapter) adapter.Outcome) []error {
	results := make([]adapter.Outcome, len(adapters))
	var g errgroup.Group
	for i, a := range adapters {
		g.Go(func() error {
			results[i] = fn(a)
			return nil
		})
	}
	_ = g.Wait()

	var errs []error
	for i, r := range results {
		kind := adapters[i].Kind()
		m.metrics.RecordOperation(op, string(kind), r.Success)
		if r.Success {
			continue
		}
		err := r.Err
		if err == nil {
			err = fmt.Errorf("adapter %s: %s failed", kind, op)
		}
		errs = append(errs, err)
		m.emit(Event{Type: EventAdapterError, Adapter: kind, Key: key, Err: err})
	}
	return errs
}

// Has reports whether any adapter holds key.
func (m *Manager) Has(ctx context.Context, key string) (bool, error) {
	adapters, err := m.adapters()
	if err != nil {
		return false, err
	}
	for _, a := range adapters {
		if found, _ := a.Has(ctx, key); found {
			return true, nil
		}
	}
	return false, nil
}

// Keys returns the sorted union of every adapter's keys.
func (m *Manager) Keys(ctx context.Context) ([]string, error) {
	adapters, err := m.adapters()
	if err != nil {
		return nil, err
	}

	set := make(map[string]struct{})
	for _, a := range adapters {
		keys, _ := a.Keys(ctx)
		for _, k := range keys {
			set[k] = struct{}{}
		}
	}

	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out, nil
}

// Stats describes the manager and each of its adapters.
type Stats struct {
	Primary   adapter.Kind    `json:"primary" yaml:"primary"`
	Fallbacks []adapter.Kind  `json:"fallbacks" yaml:"fallbacks"`
	Adapters  []adapter.Stats `json:"adapters" yaml:"adapters"`
}

// Stats computes per-adapter statistics, primary first.
func (m *Manager) Stats(ctx context.Context) (Stats, error) {
	adapters, err := m.adapters()
	if err != nil {
		return Stats{}, err
	}

	stats := Stats{Primary: adapters[0].Kind(), Fallbacks: []adapter.Kind{}}
	for i, a := range adapters {
		if i > 0 {
			stats.Fallbacks = append(stats.Fallbacks, a.Kind())
		}
		s, err := a.Stats(ctx)
		if err != nil {
			return Stats{}, err
		}
		stats.Adapters = append(stats.Adapters, s)
	}
	return stats, nil
}

// AdapterSizes reports the bytes used per adapter. It returns nil before
// Init.
func (m *Manager) AdapterSizes(ctx context.Context) map[string]int64 {
	adapters, err := m.adapters()
	if err != nil {
		return nil
	}
	sizes := make(map[string]int64, len(adapters))
	for _, a := range adapters {
		size, _ := a.Size(ctx)
		sizes[string(a.Kind())] = size
	}
	return sizes
}

// Primary returns the primary adapter, nil before Init.
func (m *Manager) Primary() adapter.Adapter {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.primary
}

// Fallbacks returns the fallback adapters that initialized.
func (m *Manager) Fallbacks() []adapter.Adapter {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]adapter.Adapter(nil), m.fallbacks...)
}

// OnChange subscribes fn to stored, deleted and cleared events. The
// returned function unsubscribes.
func (m *Manager) OnChange(fn Listener) func() {
	return m.events.subscribe(func(ev Event) {
		if ev.IsChange() {
			fn(ev)
		}
	})
}

// Subscribe receives every manager event. The returned function
// unsubscribes.
func (m *Manager) Subscribe(fn Listener) func() {
	return m.events.subscribe(fn)
}

func (m *Manager) emit(ev Event) {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = m.now()
	}
	m.events.emit(ev)
}
