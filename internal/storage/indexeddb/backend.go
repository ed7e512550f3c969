package indexeddb

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/dgraph-io/badger/v3"

	"github.com/yndnr/stowage-go/internal/storage/adapter"
)

// Common errors
var (
	ErrVersion = errors.New("indexeddb: requested version is lower than the stored version")
	ErrClosed  = errors.New("indexeddb: database closed")
)

var (
	recordPrefix = []byte(StoreName + "/")
	indexPrefix  = []byte("index/" + IndexTimestamp + "/")
	versionKey   = []byte("meta/version")
)

// Record is the value stored in the object store.
type Record struct {
	Key       string        `json:"key"`
	Item      *adapter.Item `json:"item"`
	Timestamp int64         `json:"timestamp"`
	TTL       *int64        `json:"ttl,omitempty"`
}

// Backend keeps one Badger database for one namespace.
type Backend struct {
	name    string
	version int
	opts    Options
	logger  *slog.Logger

	mu      sync.RWMutex
	db      *badger.DB
	stopCh  chan struct{}
	doneCh  chan struct{}
	metrics *dbMetrics
}

// NewBackend creates a closed backend; Init opens the database.
func NewBackend(name string, version int, opts Options) *Backend {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Badger.GCInterval == "" {
		opts.Badger = DefaultBadgerConfig()
	}
	if version <= 0 {
		version = 1
	}
	return &Backend{
		name:    name,
		version: version,
		opts:    opts,
		logger:  opts.Logger.With("database", name),
	}
}

// New creates an indexedDB adapter.
func New(cfg adapter.Config, opts Options, adapterOpts ...adapter.Option) *adapter.Base {
	cfg.Type = adapter.KindIndexedDB
	if cfg.Name == "" {
		cfg.Name = "stowage"
	}
	return adapter.New(cfg, NewBackend(cfg.Name, cfg.Version, opts), adapterOpts...)
}

var (
	_ adapter.Backend      = (*Backend)(nil)
	_ adapter.BatchBackend = (*Backend)(nil)
	_ adapter.AgeIndexed   = (*Backend)(nil)
	_ adapter.Closer       = (*Backend)(nil)
)

// Dir returns the database directory.
func (b *Backend) Dir() string {
	return filepath.Join(b.opts.Dir, b.name)
}

// Init opens the database and runs the schema version check.
func (b *Backend) Init(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.db != nil {
		return nil
	}

	var opts badger.Options
	if b.opts.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if b.opts.Dir == "" {
			return errors.New("indexeddb: dir is required")
		}
		opts = badger.DefaultOptions(b.Dir())
		opts.ValueLogFileSize = b.opts.Badger.ValueLogFileSize
		opts.SyncWrites = b.opts.Badger.SyncWrites
	}
	opts.Logger = &badgerLogger{logger: b.logger}
	opts.BlockCacheSize = b.opts.Badger.CacheSize

	db, err := badger.Open(opts)
	if err != nil {
		return fmt.Errorf("indexeddb: open %s: %w", b.name, err)
	}
	if err := b.upgrade(db); err != nil {
		db.Close()
		return err
	}

	b.db = db
	if b.opts.Registerer != nil {
		b.metrics = registerMetrics(b.opts.Registerer, b.name, db)
	}
	b.stopCh = make(chan struct{})
	b.doneCh = make(chan struct{})
	if b.opts.InMemory {
		close(b.doneCh)
	} else {
		go b.gcLoop(db, b.stopCh, b.doneCh)
	}

	b.logger.Info("indexeddb database opened",
		"dir", b.Dir(),
		"in_memory", b.opts.InMemory,
		"version", b.version)
	return nil
}

// upgrade compares the requested schema version with the stored one.
func (b *Backend) upgrade(db *badger.DB) error {
	return db.Update(func(txn *badger.Txn) error {
		stored := 0
		item, err := txn.Get(versionKey)
		switch {
		case errors.Is(err, badger.ErrKeyNotFound):
		case err != nil:
			return err
		default:
			if err := item.Value(func(val []byte) error {
				if len(val) == 8 {
					stored = int(binary.BigEndian.Uint64(val))
				}
				return nil
			}); err != nil {
				return err
			}
		}

		if stored > b.version {
			return fmt.Errorf("%w: stored %d, requested %d", ErrVersion, stored, b.version)
		}
		if stored == b.version {
			return nil
		}

		buf := make([]byte, 8)
		binary.BigEndian.PutUint64(buf, uint64(b.version))
		b.logger.Info("upgrading indexeddb schema", "from", stored, "to", b.version)
		return txn.Set(versionKey, buf)
	})
}

// Close closes the database, keeping its files.
func (b *Backend) Close(context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.close()
}

// Destroy closes the database and deletes it.
func (b *Backend) Destroy(context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.db == nil {
		return nil
	}
	if err := b.close(); err != nil {
		return err
	}
	if !b.opts.InMemory {
		if err := os.RemoveAll(b.Dir()); err != nil {
			return fmt.Errorf("indexeddb: delete database: %w", err)
		}
	}
	b.logger.Info("indexeddb database deleted")
	return nil
}

// close stops the GC loop and closes the handle. b.mu must be held.
func (b *Backend) close() error {
	if b.db == nil {
		return nil
	}
	close(b.stopCh)
	<-b.doneCh

	if b.metrics != nil {
		b.metrics.unregister(b.opts.Registerer)
		b.metrics = nil
	}

	err := b.db.Close()
	b.db = nil
	if err != nil {
		return fmt.Errorf("indexeddb: close: %w", err)
	}
	return nil
}

// Available reports whether the database directory can be used.
func (b *Backend) Available(context.Context) bool {
	if b.opts.InMemory {
		return true
	}
	if b.opts.Dir == "" {
		return false
	}
	return os.MkdirAll(b.opts.Dir, 0o750) == nil
}

func (b *Backend) handle() (*badger.DB, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.db == nil {
		return nil, ErrClosed
	}
	return b.db, nil
}

func (b *Backend) recordKey(key string) []byte {
	return append(append([]byte(nil), recordPrefix...), adapter.DerivedKey(b.name, key)...)
}

func indexKey(ts int64, derivedKey string) []byte {
	return []byte(fmt.Sprintf("%s%020d/%s", indexPrefix, ts, derivedKey))
}

// readRecord loads a record inside txn. A missing or malformed record
// returns nil.
func (b *Backend) readRecord(txn *badger.Txn, key string) (*Record, error) {
	item, err := txn.Get(b.recordKey(key))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var rec Record
	if err := item.Value(func(val []byte) error {
		return json.Unmarshal(val, &rec)
	}); err != nil {
		b.logger.Debug("discarding malformed record", "key", key, "error", err)
		return nil, nil
	}
	if rec.Item == nil {
		return nil, nil
	}
	return &rec, nil
}

func (b *Backend) putRecord(txn *badger.Txn, key string, item *adapter.Item) error {
	prev, err := b.readRecord(txn, key)
	if err != nil {
		return err
	}
	dk := adapter.DerivedKey(b.name, key)
	if prev != nil {
		if err := txn.Delete(indexKey(prev.Timestamp, dk)); err != nil {
			return err
		}
	}

	data, err := json.Marshal(Record{Key: dk, Item: item, Timestamp: item.Timestamp, TTL: item.TTL})
	if err != nil {
		return err
	}
	if err := txn.Set(b.recordKey(key), data); err != nil {
		return err
	}
	return txn.Set(indexKey(item.Timestamp, dk), nil)
}

func (b *Backend) deleteRecord(txn *badger.Txn, key string) (bool, error) {
	prev, err := b.readRecord(txn, key)
	if err != nil || prev == nil {
		return false, err
	}
	if err := txn.Delete(indexKey(prev.Timestamp, prev.Key)); err != nil {
		return false, err
	}
	return true, txn.Delete(b.recordKey(key))
}

// Get returns the stored envelope.
func (b *Backend) Get(_ context.Context, key string) (*adapter.Item, error) {
	db, err := b.handle()
	if err != nil {
		return nil, err
	}
	var item *adapter.Item
	err = db.View(func(txn *badger.Txn) error {
		rec, err := b.readRecord(txn, key)
		if rec != nil {
			item = rec.Item
		}
		return err
	})
	return item, err
}

// Set stores the envelope and maintains the timestamp index.
func (b *Backend) Set(_ context.Context, key string, item *adapter.Item) error {
	db, err := b.handle()
	if err != nil {
		return err
	}
	return db.Update(func(txn *badger.Txn) error {
		return b.putRecord(txn, key, item)
	})
}

// Delete removes key.
func (b *Backend) Delete(_ context.Context, key string) (bool, error) {
	db, err := b.handle()
	if err != nil {
		return false, err
	}
	var existed bool
	err = db.Update(func(txn *badger.Txn) error {
		var err error
		existed, err = b.deleteRecord(txn, key)
		return err
	})
	return existed, err
}

// Clear drops the object store and its index.
func (b *Backend) Clear(context.Context) error {
	db, err := b.handle()
	if err != nil {
		return err
	}
	return db.DropPrefix(recordPrefix, indexPrefix)
}

// Has reports whether key is stored.
func (b *Backend) Has(_ context.Context, key string) (bool, error) {
	db, err := b.handle()
	if err != nil {
		return false, err
	}
	found := false
	err = db.View(func(txn *badger.Txn) error {
		_, err := txn.Get(b.recordKey(key))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		found = err == nil
		return err
	})
	return found, err
}

// Keys lists the caller keys in the object store.
func (b *Backend) Keys(context.Context) ([]string, error) {
	db, err := b.handle()
	if err != nil {
		return nil, err
	}
	prefix := b.recordKey("")
	var keys []string
	err = db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			keys = append(keys, string(it.Item().Key()[len(prefix):]))
		}
		return nil
	})
	return keys, err
}

// Size sums key and value sizes of the object store.
func (b *Backend) Size(context.Context) (int64, error) {
	db, err := b.handle()
	if err != nil {
		return 0, err
	}
	var size int64
	err = db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = recordPrefix
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			size += int64(len(item.Key())) + item.ValueSize()
		}
		return nil
	})
	return size, err
}

// GetMany reads every key in one read-only transaction.
func (b *Backend) GetMany(_ context.Context, keys []string) (map[string]*adapter.Item, error) {
	db, err := b.handle()
	if err != nil {
		return nil, err
	}
	out := make(map[string]*adapter.Item, len(keys))
	err = db.View(func(txn *badger.Txn) error {
		for _, k := range keys {
			rec, err := b.readRecord(txn, k)
			if err != nil {
				return err
			}
			if rec != nil {
				out[k] = rec.Item
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// SetMany writes every envelope in one read-write transaction.
func (b *Backend) SetMany(_ context.Context, items map[string]*adapter.Item) error {
	db, err := b.handle()
	if err != nil {
		return err
	}
	return db.Update(func(txn *badger.Txn) error {
		for k, item := range items {
			if err := b.putRecord(txn, k, item); err != nil {
				return err
			}
		}
		return nil
	})
}

// DeleteMany removes every key in one read-write transaction.
func (b *Backend) DeleteMany(_ context.Context, keys []string) ([]string, error) {
	db, err := b.handle()
	if err != nil {
		return nil, err
	}
	var existed []string
	err = db.Update(func(txn *badger.Txn) error {
		existed = existed[:0]
		for _, k := range keys {
			ok, err := b.deleteRecord(txn, k)
			if err != nil {
				return err
			}
			if ok {
				existed = append(existed, k)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return existed, nil
}

// OldestKeys walks the timestamp index and returns up to n caller keys,
// oldest write first.
func (b *Backend) OldestKeys(_ context.Context, n int) ([]string, error) {
	db, err := b.handle()
	if err != nil {
		return nil, err
	}
	nsPrefix := b.name + ":"
	keys := make([]string, 0, n)
	err = db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = indexPrefix
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid() && len(keys) < n; it.Next() {
			rest := string(it.Item().Key()[len(indexPrefix):])
			slash := strings.IndexByte(rest, '/')
			if slash < 0 {
				continue
			}
			if _, err := strconv.ParseInt(rest[:slash], 10, 64); err != nil {
				continue
			}
			dk := rest[slash+1:]
			if strings.HasPrefix(dk, nsPrefix) {
				keys = append(keys, strings.TrimPrefix(dk, nsPrefix))
			}
		}
		return nil
	})
	return keys, err
}
