package manager

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/yndnr/stowage-go/internal/storage"
	"github.com/yndnr/stowage-go/internal/storage/adapter"
	"github.com/yndnr/stowage-go/internal/storage/memory"
)

var errInjected = errors.New("injected write failure")

// flakyBackend is a memory backend whose writes and probe can be broken.
type flakyBackend struct {
	*memory.Backend

	mu          sync.Mutex
	failSet     bool
	unavailable bool
}

func (f *flakyBackend) Set(ctx context.Context, key string, item *adapter.Item) error {
	f.mu.Lock()
	fail := f.failSet
	f.mu.Unlock()
	if fail {
		return errInjected
	}
	return f.Backend.Set(ctx, key, item)
}

func (f *flakyBackend) Available(ctx context.Context) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return !f.unavailable
}

func (f *flakyBackend) setFailing(v bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failSet = v
}

// testFactory serves memory adapters on a controllable clock, flaky
// adapters for selected kinds and delegates the rest.
type testFactory struct {
	base  *storage.Factory
	clock func() time.Time
	flaky map[adapter.Kind]*flakyBackend
}

func newTestFactory() *testFactory {
	return &testFactory{
		base:  &storage.Factory{},
		clock: time.Now,
		flaky: make(map[adapter.Kind]*flakyBackend),
	}
}

// makeFlaky replaces kind with a flaky memory-backed adapter.
func (f *testFactory) makeFlaky(kind adapter.Kind) *flakyBackend {
	fb := &flakyBackend{Backend: memory.NewBackend(DefaultNamespace)}
	f.flaky[kind] = fb
	return fb
}

func (f *testFactory) Create(ctx context.Context, cfg adapter.Config) (adapter.Adapter, error) {
	if fb, ok := f.flaky[cfg.Type]; ok {
		return adapter.New(cfg, fb, adapter.WithClock(f.clock)), nil
	}
	if cfg.Type == adapter.KindMemory {
		return memory.New(cfg, adapter.WithClock(f.clock)), nil
	}
	return f.base.Create(ctx, cfg)
}

func (f *testFactory) Close() error {
	return f.base.Close()
}

// eventLog records manager events.
type eventLog struct {
	mu     sync.Mutex
	events []Event
}

func (l *eventLog) record(ev Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, ev)
}

func (l *eventLog) ofType(t EventType) []Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []Event
	for _, ev := range l.events {
		if ev.Type == t {
			out = append(out, ev)
		}
	}
	return out
}

func (l *eventLog) indexOf(t EventType) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i, ev := range l.events {
		if ev.Type == t {
			return i
		}
	}
	return -1
}

func newTestManager(t *testing.T, f *testFactory, mutate func(*Config)) (*Manager, *eventLog) {
	t.Helper()

	cfg := DefaultConfig()
	cfg.Primary = adapter.KindMemory
	cfg.Fallbacks = []adapter.Kind{adapter.KindSessionStorage}
	cfg.Factory = f
	if mutate != nil {
		mutate(&cfg)
	}

	m := New(cfg)
	log := &eventLog{}
	m.Subscribe(log.record)
	if err := m.Init(context.Background()); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	t.Cleanup(func() { _ = m.Destroy(context.Background()) })
	return m, log
}

// waitBackfills blocks until every background backfill has run.
func waitBackfills(m *Manager) {
	m.backfills.Wait()
}
