package webstore

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/yndnr/stowage-go/internal/storage/adapter"
)

func openTestSQLArea(t *testing.T, quota int64) *SQLArea {
	t.Helper()
	area, err := OpenSQLArea(context.Background(), filepath.Join(t.TempDir(), "local.db"), quota)
	if err != nil {
		t.Fatalf("OpenSQLArea() error = %v", err)
	}
	t.Cleanup(func() { _ = area.Close() })
	return area
}

func areas(t *testing.T) map[string]Area {
	return map[string]Area{
		"mem": NewMemArea(0),
		"sql": openTestSQLArea(t, 0),
	}
}

func TestArea_WriteOrder(t *testing.T) {
	ctx := context.Background()
	for name, area := range areas(t) {
		t.Run(name, func(t *testing.T) {
			for _, k := range []string{"c", "a", "b"} {
				if err := area.SetItem(ctx, k, "v"); err != nil {
					t.Fatalf("SetItem(%s) error = %v", k, err)
				}
			}
			// Overwriting moves the key to the end.
			if err := area.SetItem(ctx, "c", "v2"); err != nil {
				t.Fatalf("SetItem(c) error = %v", err)
			}

			var keys []string
			if err := area.Range(ctx, func(k, _ string) bool {
				keys = append(keys, k)
				return true
			}); err != nil {
				t.Fatalf("Range() error = %v", err)
			}
			if strings.Join(keys, ",") != "a,b,c" {
				t.Errorf("Range() order = %v, want [a b c]", keys)
			}

			v, ok, err := area.GetItem(ctx, "c")
			if err != nil || !ok || v != "v2" {
				t.Errorf("GetItem(c) = %q, %v, %v; want v2", v, ok, err)
			}

			if err := area.RemoveItem(ctx, "a"); err != nil {
				t.Fatalf("RemoveItem() error = %v", err)
			}
			if _, ok, _ := area.GetItem(ctx, "a"); ok {
				t.Error("GetItem(a) after remove found the key")
			}
		})
	}
}

func TestArea_Quota(t *testing.T) {
	ctx := context.Background()
	for name, area := range map[string]Area{
		"mem": NewMemArea(64),
		"sql": openTestSQLArea(t, 64),
	} {
		t.Run(name, func(t *testing.T) {
			if err := area.SetItem(ctx, "k", "0123456789"); err != nil {
				t.Fatalf("SetItem(small) error = %v", err)
			}
			err := area.SetItem(ctx, "big", strings.Repeat("x", 64))
			var qe *adapter.QuotaExceededError
			if !errors.As(err, &qe) {
				t.Fatalf("SetItem(big) error = %v, want QuotaExceededError", err)
			}

			// Replacing a value only counts the difference.
			if err := area.SetItem(ctx, "k", "9876543210"); err != nil {
				t.Errorf("SetItem(replace) error = %v", err)
			}
		})
	}
}

func TestSQLArea_Reopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "local.db")

	area, err := OpenSQLArea(ctx, path, 0)
	if err != nil {
		t.Fatalf("OpenSQLArea() error = %v", err)
	}
	if err := area.SetItem(ctx, "k", "v"); err != nil {
		t.Fatalf("SetItem() error = %v", err)
	}
	area.Close()

	reopened, err := OpenSQLArea(ctx, path, 0)
	if err != nil {
		t.Fatalf("OpenSQLArea() reopen error = %v", err)
	}
	defer reopened.Close()

	v, ok, err := reopened.GetItem(ctx, "k")
	if err != nil || !ok || v != "v" {
		t.Errorf("GetItem() after reopen = %q, %v, %v; want v", v, ok, err)
	}
}

func TestBackend_Adapter(t *testing.T) {
	ctx := context.Background()
	area := NewMemArea(0)

	a, err := New(adapter.Config{Type: adapter.KindLocalStorage, Name: "app"}, area)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := a.Init(ctx); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	if !a.Available(ctx) {
		t.Fatal("Available() = false")
	}
	if _, ok, _ := area.GetItem(ctx, probeKey); ok {
		t.Error("probe key left behind")
	}

	a.Set(ctx, "b", 1, 0)
	a.Set(ctx, "a", 2, 0)
	area.SetItem(ctx, "other:x", "{}")
	area.SetItem(ctx, "app:bad", "not json")

	if got := a.Get(ctx, "bad"); got.Success || got.Err != nil {
		t.Errorf("Get(bad) = %+v, want quiet miss", got)
	}

	keys, _ := a.Keys(ctx)
	if strings.Join(keys, ",") != "a,b,bad" {
		t.Errorf("Keys() = %v, want [a b bad]", keys)
	}

	oldest, err := a.Backend().(*Backend).OldestKeys(ctx, 2)
	if err != nil || strings.Join(oldest, ",") != "b,a" {
		t.Errorf("OldestKeys(2) = %v, %v; want [b a]", oldest, err)
	}

	a.Clear(ctx)
	if _, ok, _ := area.GetItem(ctx, "other:x"); !ok {
		t.Error("Clear() removed a foreign namespace key")
	}
	keys, _ = a.Keys(ctx)
	if len(keys) != 0 {
		t.Errorf("Keys() after Clear = %v, want empty", keys)
	}
}

func TestBackend_EvictionFollowsWriteOrder(t *testing.T) {
	ctx := context.Background()
	for name, area := range areas(t) {
		t.Run(name, func(t *testing.T) {
			a, err := New(adapter.Config{Type: adapter.KindLocalStorage, Name: "app"}, area)
			if err != nil {
				t.Fatalf("New() error = %v", err)
			}
			if err := a.Init(ctx); err != nil {
				t.Fatalf("Init() error = %v", err)
			}
			for _, k := range []string{"a", "b", "c", "d", "a"} {
				if r := a.Set(ctx, k, k, 0); !r.Success {
					t.Fatalf("Set(%s) error = %v", k, r.Err)
				}
			}

			got, err := a.EvictionCandidates(ctx)
			if err != nil {
				t.Fatalf("EvictionCandidates() error = %v", err)
			}
			if strings.Join(got, ",") != "b" {
				t.Errorf("EvictionCandidates() = %v, want [b]", got)
			}
		})
	}
}

func TestBackend_RejectsKind(t *testing.T) {
	_, err := New(adapter.Config{Type: adapter.KindMemory}, NewMemArea(0))
	if !errors.Is(err, adapter.ErrUnknownKind) {
		t.Errorf("New(memory) error = %v, want ErrUnknownKind", err)
	}
}
