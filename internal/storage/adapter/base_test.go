package adapter

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"
)

// fakeBackend is a map-backed Backend whose failures can be injected per key.
type fakeBackend struct {
	mu      sync.Mutex
	items   map[string]*Item
	failSet map[string]error
	failGet map[string]error
	panicky bool
	initErr error
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		items:   make(map[string]*Item),
		failSet: make(map[string]error),
		failGet: make(map[string]error),
	}
}

func (f *fakeBackend) Init(context.Context) error    { return f.initErr }
func (f *fakeBackend) Destroy(context.Context) error { return nil }

func (f *fakeBackend) Available(context.Context) bool {
	if f.panicky {
		panic("probe exploded")
	}
	return true
}

func (f *fakeBackend) Get(_ context.Context, key string) (*Item, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failGet[key]; err != nil {
		return nil, err
	}
	item, ok := f.items[key]
	if !ok {
		return nil, nil
	}
	return item.Clone(), nil
}

func (f *fakeBackend) Set(_ context.Context, key string, item *Item) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failSet[key]; err != nil {
		return err
	}
	f.items[key] = item.Clone()
	return nil
}

func (f *fakeBackend) Delete(_ context.Context, key string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.items[key]
	delete(f.items, key)
	return ok, nil
}

func (f *fakeBackend) Clear(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items = make(map[string]*Item)
	return nil
}

func (f *fakeBackend) Has(_ context.Context, key string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.items[key]
	return ok, nil
}

func (f *fakeBackend) Keys(context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	keys := make([]string, 0, len(f.items))
	for k := range f.items {
		keys = append(keys, k)
	}
	return keys, nil
}

func (f *fakeBackend) Size(context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for k, item := range f.items {
		n += int64(len(k) + len(item.Value))
	}
	return n, nil
}

type recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *recorder) listen(ev Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recorder) types() []EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]EventType, len(r.events))
	for i, ev := range r.events {
		out[i] = ev.Type
	}
	return out
}

func newTestBase(t *testing.T, cfg Config, opts ...Option) (*Base, *fakeBackend, *recorder) {
	t.Helper()
	fb := newFakeBackend()
	cfg.Type = KindMemory
	b := New(cfg, fb, opts...)
	rec := &recorder{}
	b.OnEvent(rec.listen)
	if err := b.Init(context.Background()); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	return b, fb, rec
}

func TestBase_NotInitialized(t *testing.T) {
	ctx := context.Background()
	b := New(Config{Type: KindMemory}, newFakeBackend())
	rec := &recorder{}
	b.OnEvent(rec.listen)

	if r := b.Get(ctx, "k"); !errors.Is(r.Err, ErrNotInitialized) {
		t.Errorf("Get() error = %v, want ErrNotInitialized", r.Err)
	}
	if r := b.Set(ctx, "k", 1, 0); !errors.Is(r.Err, ErrNotInitialized) {
		t.Errorf("Set() error = %v, want ErrNotInitialized", r.Err)
	}
	if _, err := b.Keys(ctx); !errors.Is(err, ErrNotInitialized) {
		t.Errorf("Keys() error = %v, want ErrNotInitialized", err)
	}
	if r := b.GetMany(ctx, []string{"k"}); !errors.Is(r.Err, ErrNotInitialized) {
		t.Errorf("GetMany() error = %v, want ErrNotInitialized", r.Err)
	}
	if got := rec.types(); len(got) != 0 {
		t.Errorf("events = %v, want none", got)
	}
}

func TestBase_DestroyBeforeInitDropsListeners(t *testing.T) {
	ctx := context.Background()
	b := New(Config{Type: KindMemory}, newFakeBackend())
	rec := &recorder{}
	b.OnEvent(rec.listen)

	if err := b.Destroy(ctx); err != nil {
		t.Fatalf("Destroy() error = %v", err)
	}
	if err := b.Init(ctx); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	b.Set(ctx, "k", 1, 0)
	if got := rec.types(); len(got) != 0 {
		t.Errorf("events after Destroy = %v, want none", got)
	}
}

func TestBase_InitIdempotent(t *testing.T) {
	b, _, rec := newTestBase(t, Config{})
	if err := b.Init(context.Background()); err != nil {
		t.Fatalf("second Init() error = %v", err)
	}
	got := rec.types()
	if len(got) != 1 || got[0] != EventInitialized {
		t.Errorf("events = %v, want [initialized]", got)
	}
}

func TestBase_InitFailure(t *testing.T) {
	fb := newFakeBackend()
	fb.initErr = errors.New("disk gone")
	b := New(Config{Type: KindMemory}, fb)
	rec := &recorder{}
	b.OnEvent(rec.listen)

	if err := b.Init(context.Background()); err == nil {
		t.Fatal("Init() error = nil, want failure")
	}
	if b.Initialized() {
		t.Error("Initialized() = true after failed Init")
	}
	if got := rec.types(); len(got) != 1 || got[0] != EventError {
		t.Errorf("events = %v, want [error]", got)
	}
}

func TestBase_SetGetDelete(t *testing.T) {
	ctx := context.Background()
	b, _, rec := newTestBase(t, Config{Name: "ns"})

	if r := b.Set(ctx, "k", map[string]string{"a": "b"}, 0); !r.Success {
		t.Fatalf("Set() error = %v", r.Err)
	}
	got := b.Get(ctx, "k")
	if !got.Success || !got.FromCache {
		t.Fatalf("Get() = %+v, want hit", got)
	}
	v, err := Decode[map[string]string](got.Data)
	if err != nil || v["a"] != "b" {
		t.Errorf("Decode() = %v, %v; want map[a:b]", v, err)
	}

	miss := b.Get(ctx, "absent")
	if miss.Success || miss.Err != nil {
		t.Errorf("Get(absent) = %+v, want quiet miss", miss)
	}

	b.Delete(ctx, "absent")
	b.Delete(ctx, "k")
	b.Clear(ctx)

	want := []EventType{EventInitialized, EventSet, EventDelete, EventClear}
	got2 := rec.types()
	if len(got2) != len(want) {
		t.Fatalf("events = %v, want %v", got2, want)
	}
	for i := range want {
		if got2[i] != want[i] {
			t.Errorf("events[%d] = %s, want %s", i, got2[i], want[i])
		}
	}
}

func TestBase_TTL(t *testing.T) {
	ctx := context.Background()
	now := time.Unix(1_700_000_000, 0)
	b, fb, _ := newTestBase(t, Config{TTL: time.Minute}, WithClock(func() time.Time { return now }))

	b.Set(ctx, "default", 1, 0)
	b.Set(ctx, "short", 2, time.Second)

	if fb.items["default"].TTLDuration() != time.Minute {
		t.Errorf("default TTL = %v, want 1m", fb.items["default"].TTLDuration())
	}

	now = now.Add(2 * time.Second)
	if r := b.Get(ctx, "short"); r.Success {
		t.Errorf("Get(short) after expiry = %s, want miss", r.Data)
	}
	if _, ok := fb.items["short"]; ok {
		t.Error("expired item was not removed on read")
	}
	if r := b.Get(ctx, "default"); !r.Success {
		t.Errorf("Get(default) = %+v, want hit", r)
	}
}

func TestBase_FailureEvents(t *testing.T) {
	ctx := context.Background()
	b, fb, rec := newTestBase(t, Config{})
	fb.failSet["full"] = &QuotaExceededError{Used: 10, Limit: 5}
	fb.failSet["broken"] = errors.New("io error")

	if r := b.Set(ctx, "full", 1, 0); r.Success || !IsQuotaExceeded(r.Err) {
		t.Errorf("Set(full) = %+v, want quota failure", r)
	}
	if r := b.Set(ctx, "broken", 1, 0); r.Success {
		t.Errorf("Set(broken) = %+v, want failure", r)
	}

	got := rec.types()
	want := []EventType{EventInitialized, EventQuotaExceeded, EventError}
	if len(got) != len(want) {
		t.Fatalf("events = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("events[%d] = %s, want %s", i, got[i], want[i])
		}
	}
}

func TestBase_Checksum(t *testing.T) {
	ctx := context.Background()
	for _, alg := range []string{ChecksumSHA256, ChecksumMurmur3} {
		t.Run(alg, func(t *testing.T) {
			b, fb, _ := newTestBase(t, Config{Compression: true, ChecksumAlgorithm: alg})

			value := map[string]any{"html": "<b>&</b>", "n": 1.5}
			if r := b.Set(ctx, "k", value, 0); !r.Success {
				t.Fatalf("Set() error = %v", r.Err)
			}
			if fb.items["k"].Checksum == "" {
				t.Fatal("checksum not recorded")
			}

			// Round-trip through the serialized envelope.
			data, _ := fb.items["k"].Marshal()
			reloaded, err := UnmarshalItem(data)
			if err != nil {
				t.Fatalf("UnmarshalItem() error = %v", err)
			}
			fb.items["k"] = reloaded
			if r := b.Get(ctx, "k"); !r.Success {
				t.Fatalf("Get() after reload error = %v", r.Err)
			}

			fb.items["k"].Value = json.RawMessage(`{"tampered":true}`)
			if r := b.Get(ctx, "k"); !errors.Is(r.Err, ErrChecksumMismatch) {
				t.Errorf("Get() tampered error = %v, want ErrChecksumMismatch", r.Err)
			}
		})
	}
}

func TestBase_RawMessageNormalized(t *testing.T) {
	ctx := context.Background()
	b, _, _ := newTestBase(t, Config{Encryption: true})

	raw := json.RawMessage("{ \"a\" : 1 }")
	if r := b.Set(ctx, "k", raw, 0); !r.Success {
		t.Fatalf("Set() error = %v", r.Err)
	}
	got := b.Get(ctx, "k")
	if !got.Success || string(got.Data) != `{"a":1}` {
		t.Errorf("Get() = %s, %v; want {\"a\":1}", got.Data, got.Err)
	}
}

func TestBase_BatchPartialFailure(t *testing.T) {
	ctx := context.Background()
	b, fb, _ := newTestBase(t, Config{}, WithBatchConcurrency(2))
	fb.failSet["bad"] = errors.New("write failed")

	set := b.SetMany(ctx, map[string]any{"a": 1, "b": 2, "bad": 3}, 0)
	if set.Success {
		t.Error("SetMany() Success = true, want false with one failing key")
	}
	sort.Strings(set.Data)
	if len(set.Data) != 2 || set.Data[0] != "a" || set.Data[1] != "b" {
		t.Errorf("SetMany() Data = %v, want [a b]", set.Data)
	}

	fb.failGet["b"] = errors.New("read failed")
	got := b.GetMany(ctx, []string{"a", "b", "missing"})
	if !got.Success {
		t.Fatalf("GetMany() Success = false, want true")
	}
	if len(got.Data) != 1 || string(got.Data["a"]) != "1" {
		t.Errorf("GetMany() Data = %v, want only a", got.Data)
	}
	if got.Err == nil {
		t.Error("GetMany() Err = nil, want joined read failure")
	}
}

func TestBase_AvailableRecovers(t *testing.T) {
	b, fb, _ := newTestBase(t, Config{})
	fb.panicky = true
	if b.Available(context.Background()) {
		t.Error("Available() = true for panicking probe")
	}
}

func TestBase_EvictionCandidates(t *testing.T) {
	ctx := context.Background()
	b, _, _ := newTestBase(t, Config{})

	for _, k := range []string{"e", "d", "c", "b", "a"} {
		b.Set(ctx, k, k, 0)
	}
	got, err := b.EvictionCandidates(ctx)
	if err != nil {
		t.Fatalf("EvictionCandidates() error = %v", err)
	}
	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Errorf("EvictionCandidates() = %v, want [a b]", got)
	}
}

func TestBase_Stats(t *testing.T) {
	ctx := context.Background()
	b, _, _ := newTestBase(t, Config{MaxSize: 1000})
	b.Set(ctx, "k", "v", 0)

	stats, err := b.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats() error = %v", err)
	}
	if stats.ItemCount != 1 || !stats.Available || stats.UsedPercentage <= 0 {
		t.Errorf("Stats() = %+v, want one available item with usage", stats)
	}
}

func TestIsQuotaExceeded(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{&QuotaExceededError{}, true},
		{errors.New("QuotaExceededError: full"), true},
		{errors.New("disk storage full"), true},
		{errors.New("limit exceeded"), true},
		{errors.New("connection reset"), false},
	}
	for _, tt := range tests {
		if got := IsQuotaExceeded(tt.err); got != tt.want {
			t.Errorf("IsQuotaExceeded(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}
