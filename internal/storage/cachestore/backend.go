package cachestore

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/yndnr/stowage-go/internal/storage/adapter"
)

// Origin is the synthetic origin of every entry URL.
const Origin = "https://storage.local"

// Backend stores envelopes as responses in one named Cache.
type Backend struct {
	name    string
	storage *Storage
	logger  *slog.Logger
	limit   int

	mu    sync.RWMutex
	cache *Cache
}

// NewBackend creates a backend for the cache named name in storage.
func NewBackend(name string, storage *Storage, logger *slog.Logger) *Backend {
	if logger == nil {
		logger = slog.Default()
	}
	return &Backend{
		name:    name,
		storage: storage,
		logger:  logger,
		limit:   adapter.DefaultBatchConcurrency,
	}
}

// New creates a cache adapter over storage.
func New(cfg adapter.Config, storage *Storage, opts ...adapter.Option) *adapter.Base {
	cfg.Type = adapter.KindCache
	if cfg.Name == "" {
		cfg.Name = "stowage"
	}
	return adapter.New(cfg, NewBackend(cfg.Name, storage, nil), opts...)
}

var (
	_ adapter.Backend      = (*Backend)(nil)
	_ adapter.BatchBackend = (*Backend)(nil)
)

// prefix is the URL prefix shared by every entry of the namespace.
func (b *Backend) prefix() string {
	return Origin + "/" + escapeComponent(b.name) + "/"
}

// URL returns the entry URL for key.
func (b *Backend) URL(key string) string {
	return b.prefix() + escapeComponent(key)
}

// escapeComponent percent-escapes every byte of s outside the unreserved
// set A-Z a-z 0-9 - _ . ~ so that a segment never contains a reserved
// character.
func escapeComponent(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}

func (b *Backend) request(key string) (*http.Request, error) {
	return http.NewRequest(http.MethodGet, b.URL(key), nil)
}

func (b *Backend) handle() (*Cache, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.cache == nil {
		return nil, adapter.ErrUnavailable
	}
	return b.cache, nil
}

// Init opens the named cache.
func (b *Backend) Init(context.Context) error {
	if b.storage == nil || b.storage.Root() == "" {
		return adapter.ErrUnavailable
	}
	c, err := b.storage.Open(b.name)
	if err != nil {
		return err
	}
	b.mu.Lock()
	b.cache = c
	b.mu.Unlock()
	return nil
}

// Destroy deletes the named cache.
func (b *Backend) Destroy(context.Context) error {
	b.mu.Lock()
	b.cache = nil
	b.mu.Unlock()
	_, err := b.storage.Delete(b.name)
	return err
}

// Available reports whether the cache root can be created.
func (b *Backend) Available(context.Context) bool {
	if b.storage == nil || b.storage.Root() == "" {
		return false
	}
	return os.MkdirAll(b.storage.Root(), 0o750) == nil
}

// Get returns the envelope held in the response body.
func (b *Backend) Get(ctx context.Context, key string) (*adapter.Item, error) {
	c, err := b.handle()
	if err != nil {
		return nil, err
	}
	req, err := b.request(key)
	if err != nil {
		return nil, err
	}
	resp, err := c.Match(ctx, req)
	if err != nil || resp == nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	item, err := adapter.UnmarshalItem(body)
	if err != nil {
		b.logger.Debug("discarding malformed response", "key", key, "error", err)
		return nil, nil
	}
	return item, nil
}

// Set stores the envelope as a JSON response.
func (b *Backend) Set(ctx context.Context, key string, item *adapter.Item) error {
	c, err := b.handle()
	if err != nil {
		return err
	}
	req, err := b.request(key)
	if err != nil {
		return err
	}
	resp, err := newResponse(req, item)
	if err != nil {
		return err
	}
	return c.Put(ctx, req, resp)
}

func newResponse(req *http.Request, item *adapter.Item) (*http.Response, error) {
	body, err := item.Marshal()
	if err != nil {
		return nil, err
	}

	header := make(http.Header)
	header.Set("Content-Type", "application/json")
	if ttl := item.TTLDuration(); ttl > 0 {
		header.Set("Cache-Control", "max-age="+strconv.FormatInt(int64(ttl.Seconds()), 10))
	} else {
		header.Set("Cache-Control", "no-cache")
	}

	return &http.Response{
		Status:        "200 OK",
		StatusCode:    http.StatusOK,
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        header,
		Body:          io.NopCloser(bytes.NewReader(body)),
		ContentLength: int64(len(body)),
		Request:       req,
	}, nil
}

// Delete removes key.
func (b *Backend) Delete(ctx context.Context, key string) (bool, error) {
	c, err := b.handle()
	if err != nil {
		return false, err
	}
	req, err := b.request(key)
	if err != nil {
		return false, err
	}
	return c.Delete(ctx, req)
}

// entries lists the cached requests of the namespace.
func (b *Backend) entries(ctx context.Context) (*Cache, []*http.Request, error) {
	c, err := b.handle()
	if err != nil {
		return nil, nil, err
	}
	reqs, err := c.Keys(ctx)
	if err != nil {
		return nil, nil, err
	}
	prefix := b.prefix()
	out := reqs[:0]
	for _, r := range reqs {
		if strings.HasPrefix(r.URL.String(), prefix) {
			out = append(out, r)
		}
	}
	return c, out, nil
}

// Clear deletes every entry of the namespace.
func (b *Backend) Clear(ctx context.Context) error {
	c, reqs, err := b.entries(ctx)
	if err != nil {
		return err
	}
	for _, r := range reqs {
		if _, err := c.Delete(ctx, r); err != nil {
			return err
		}
	}
	return nil
}

// Has reports whether key has an entry.
func (b *Backend) Has(ctx context.Context, key string) (bool, error) {
	c, err := b.handle()
	if err != nil {
		return false, err
	}
	req, err := b.request(key)
	if err != nil {
		return false, err
	}
	resp, err := c.Match(ctx, req)
	if err != nil || resp == nil {
		return false, err
	}
	resp.Body.Close()
	return true, nil
}

// Keys decodes the caller keys from the entry URLs.
func (b *Backend) Keys(ctx context.Context) ([]string, error) {
	_, reqs, err := b.entries(ctx)
	if err != nil {
		return nil, err
	}
	prefix := b.prefix()
	keys := make([]string, 0, len(reqs))
	for _, r := range reqs {
		key, err := url.PathUnescape(strings.TrimPrefix(r.URL.String(), prefix))
		if err != nil {
			continue
		}
		keys = append(keys, key)
	}
	return keys, nil
}

// Size sums the response body lengths of the namespace.
func (b *Backend) Size(ctx context.Context) (int64, error) {
	c, reqs, err := b.entries(ctx)
	if err != nil {
		return 0, err
	}
	var size int64
	for _, r := range reqs {
		resp, err := c.Match(ctx, r)
		if err != nil || resp == nil {
			continue
		}
		size += resp.ContentLength
		resp.Body.Close()
	}
	return size, nil
}

// GetMany matches every key in parallel. Any failing match fails the batch.
func (b *Backend) GetMany(ctx context.Context, keys []string) (map[string]*adapter.Item, error) {
	items := make([]*adapter.Item, len(keys))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.limit)
	for i, k := range keys {
		g.Go(func() error {
			item, err := b.Get(gctx, k)
			items[i] = item
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("cachestore: get many: %w", err)
	}

	out := make(map[string]*adapter.Item, len(keys))
	for i, item := range items {
		if item != nil {
			out[keys[i]] = item
		}
	}
	return out, nil
}

// SetMany puts every envelope in parallel. Any failing put fails the batch.
func (b *Backend) SetMany(ctx context.Context, items map[string]*adapter.Item) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.limit)
	for k, item := range items {
		g.Go(func() error {
			return b.Set(gctx, k, item)
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("cachestore: set many: %w", err)
	}
	return nil
}

// DeleteMany deletes every key in parallel and returns the ones that existed.
func (b *Backend) DeleteMany(ctx context.Context, keys []string) ([]string, error) {
	existed := make([]bool, len(keys))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.limit)
	for i, k := range keys {
		g.Go(func() error {
			ok, err := b.Delete(gctx, k)
			existed[i] = ok
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("cachestore: delete many: %w", err)
	}

	out := make([]string, 0, len(keys))
	for i, ok := range existed {
		if ok {
			out = append(out, keys[i])
		}
	}
	return out, nil
}
