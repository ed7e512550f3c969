package storage

import (
	"context"
	"errors"
	"testing"

	"github.com/yndnr/stowage-go/internal/storage/adapter"
)

func TestFactory_CreateEveryKind(t *testing.T) {
	ctx := context.Background()
	f := &Factory{DataDir: t.TempDir(), InMemoryIndexedDB: true}
	defer f.Close()

	for _, kind := range adapter.Kinds {
		t.Run(string(kind), func(t *testing.T) {
			a, err := f.Create(ctx, adapter.Config{Type: kind, Name: "app"})
			if err != nil {
				t.Fatalf("Create() error = %v", err)
			}
			if a.Kind() != kind {
				t.Errorf("Kind() = %s, want %s", a.Kind(), kind)
			}
			if !a.Available(ctx) {
				t.Fatal("Available() = false")
			}
			if err := a.Init(ctx); err != nil {
				t.Fatalf("Init() error = %v", err)
			}
			defer a.Destroy(ctx)

			if r := a.Set(ctx, "k", []string{"x"}, 0); !r.Success {
				t.Fatalf("Set() error = %v", r.Err)
			}
			got := a.Get(ctx, "k")
			if !got.Success || string(got.Data) != `["x"]` {
				t.Errorf("Get() = %s, %v; want [\"x\"]", got.Data, got.Err)
			}
		})
	}
}

func TestFactory_UnknownKind(t *testing.T) {
	f := &Factory{}
	_, err := f.Create(context.Background(), adapter.Config{Type: "floppy"})
	if !errors.Is(err, ErrUnknownKind) {
		t.Errorf("Create(floppy) error = %v, want ErrUnknownKind", err)
	}
}

func TestFactory_NoDataDir(t *testing.T) {
	ctx := context.Background()
	f := &Factory{}
	defer f.Close()

	for _, kind := range []adapter.Kind{adapter.KindLocalStorage, adapter.KindIndexedDB, adapter.KindCache} {
		a, err := f.Create(ctx, adapter.Config{Type: kind})
		if err != nil {
			t.Fatalf("Create(%s) error = %v", kind, err)
		}
		if a.Available(ctx) {
			t.Errorf("Available(%s) = true without a data dir", kind)
		}
		if err := a.Init(ctx); err == nil {
			t.Errorf("Init(%s) error = nil without a data dir", kind)
		}
	}
}

func TestFactory_SessionAreaShared(t *testing.T) {
	ctx := context.Background()
	f := &Factory{}
	defer f.Close()

	first, _ := f.Create(ctx, adapter.Config{Type: adapter.KindSessionStorage, Name: "app"})
	first.Init(ctx)
	first.Set(ctx, "k", "v", 0)
	first.Destroy(ctx)

	second, _ := f.Create(ctx, adapter.Config{Type: adapter.KindSessionStorage, Name: "app"})
	second.Init(ctx)
	if got := second.Get(ctx, "k"); !got.Success {
		t.Errorf("Get() from second adapter = %+v, want hit", got)
	}
}
