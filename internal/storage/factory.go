package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/yndnr/stowage-go/internal/storage/adapter"
	"github.com/yndnr/stowage-go/internal/storage/cachestore"
	"github.com/yndnr/stowage-go/internal/storage/indexeddb"
	"github.com/yndnr/stowage-go/internal/storage/memory"
	"github.com/yndnr/stowage-go/internal/storage/webstore"
)

// ErrUnknownKind is returned by Create for an unsupported adapter type.
var ErrUnknownKind = adapter.ErrUnknownKind

// Layout below Factory.DataDir.
const (
	LocalAreaFile = "local.db"
	IndexedDBDir  = "indexeddb"
	CachesDir     = "caches"
)

// Factory constructs adapters and owns the areas they share.
//
// With an empty DataDir the durable kinds report themselves unavailable,
// except indexedDB when InMemoryIndexedDB is set.
type Factory struct {
	DataDir           string
	WebStorageQuota   int64
	InMemoryIndexedDB bool
	Badger            indexeddb.BadgerConfig
	Logger            *slog.Logger
	Registry          prometheus.Registerer

	mu      sync.Mutex
	local   webstore.Area
	session *webstore.MemArea
	caches  *cachestore.Storage
}

// Create builds an uninitialized adapter for cfg.Type.
func (f *Factory) Create(ctx context.Context, cfg adapter.Config) (adapter.Adapter, error) {
	opts := []adapter.Option{adapter.WithLogger(f.logger())}

	switch cfg.Type {
	case adapter.KindMemory:
		return memory.New(cfg, opts...), nil

	case adapter.KindLocalStorage:
		area, err := f.localArea(ctx)
		if err != nil {
			f.logger().Warn("local area unavailable", "error", err)
		}
		return newWebStore(cfg, area, opts)

	case adapter.KindSessionStorage:
		return newWebStore(cfg, f.sessionArea(), opts)

	case adapter.KindIndexedDB:
		idbOpts := indexeddb.DefaultOptions("")
		if f.DataDir != "" {
			idbOpts.Dir = filepath.Join(f.DataDir, IndexedDBDir)
		}
		idbOpts.InMemory = f.InMemoryIndexedDB
		if f.Badger.GCInterval != "" {
			idbOpts.Badger = f.Badger
		}
		idbOpts.Logger = f.logger()
		idbOpts.Registerer = f.Registry
		return indexeddb.New(cfg, idbOpts, opts...), nil

	case adapter.KindCache:
		return cachestore.New(cfg, f.cacheStorage(), opts...), nil

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, cfg.Type)
	}
}

func newWebStore(cfg adapter.Config, area webstore.Area, opts []adapter.Option) (adapter.Adapter, error) {
	a, err := webstore.New(cfg, area, opts...)
	if err != nil {
		return nil, err
	}
	return a, nil
}

// Close releases the shared areas.
func (f *Factory) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	var errs []error
	if f.local != nil {
		errs = append(errs, f.local.Close())
		f.local = nil
	}
	if f.session != nil {
		errs = append(errs, f.session.Close())
		f.session = nil
	}
	return errors.Join(errs...)
}

func (f *Factory) logger() *slog.Logger {
	if f.Logger == nil {
		return slog.Default()
	}
	return f.Logger
}

// localArea opens the shared durable area on first use. A nil Area makes
// the adapter unavailable.
func (f *Factory) localArea(ctx context.Context) (webstore.Area, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.local != nil {
		return f.local, nil
	}
	if f.DataDir == "" {
		return nil, errors.New("factory: no data dir")
	}
	area, err := webstore.OpenSQLArea(ctx, filepath.Join(f.DataDir, LocalAreaFile), f.WebStorageQuota)
	if err != nil {
		return nil, err
	}
	f.local = area
	return area, nil
}

// sessionArea returns the process-lifetime area shared by every
// sessionStorage adapter of this factory.
func (f *Factory) sessionArea() webstore.Area {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.session == nil {
		f.session = webstore.NewMemArea(f.WebStorageQuota)
	}
	return f.session
}

func (f *Factory) cacheStorage() *cachestore.Storage {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.caches == nil {
		root := ""
		if f.DataDir != "" {
			root = filepath.Join(f.DataDir, CachesDir)
		}
		f.caches = cachestore.NewStorage(root)
	}
	return f.caches
}
