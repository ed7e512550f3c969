package cachestore

import (
	"bufio"
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httputil"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

const entrySuffix = ".entry"

// Storage opens named caches below a root directory.
type Storage struct {
	root string

	mu     sync.Mutex
	caches map[string]*Cache
}

// NewStorage creates a cache storage rooted at dir.
func NewStorage(dir string) *Storage {
	return &Storage{root: dir, caches: make(map[string]*Cache)}
}

// Root returns the root directory.
func (s *Storage) Root() string { return s.root }

// Open returns the named cache, creating its directory on first use.
func (s *Storage) Open(name string) (*Cache, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c, ok := s.caches[name]; ok {
		return c, nil
	}
	dir := filepath.Join(s.root, cacheDirName(name))
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("cachestore: open %s: %w", name, err)
	}
	c := &Cache{dir: dir}
	s.caches[name] = c
	return c, nil
}

// Has reports whether the named cache exists on disk.
func (s *Storage) Has(name string) bool {
	info, err := os.Stat(filepath.Join(s.root, cacheDirName(name)))
	return err == nil && info.IsDir()
}

// Delete removes the named cache and reports whether it existed.
func (s *Storage) Delete(name string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.caches, name)
	dir := filepath.Join(s.root, cacheDirName(name))
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return false, nil
	}
	if err := os.RemoveAll(dir); err != nil {
		return false, fmt.Errorf("cachestore: delete %s: %w", name, err)
	}
	return true, nil
}

func cacheDirName(name string) string {
	return strings.NewReplacer("/", "_", "\\", "_", "..", "_").Replace(name)
}

// Cache is a set of request/response pairs keyed by request URL.
type Cache struct {
	dir string

	// mu serializes writers against directory scans.
	mu sync.RWMutex
}

func (c *Cache) path(rawURL string) string {
	sum := sha256.Sum256([]byte(rawURL))
	return filepath.Join(c.dir, hex.EncodeToString(sum[:])+entrySuffix)
}

// Match returns the stored response for req, or nil when there is none.
// The caller must close the response body.
func (c *Cache) Match(ctx context.Context, req *http.Request) (*http.Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.mu.RLock()
	data, err := os.ReadFile(c.path(req.URL.String()))
	c.mu.RUnlock()
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("cachestore: match: %w", err)
	}

	_, resp, err := decodeEntry(data, req)
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// Put stores resp for req, replacing any previous entry. resp.Body is
// consumed and closed.
func (c *Cache) Put(ctx context.Context, req *http.Request, resp *http.Response) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	dump, err := httputil.DumpResponse(resp, true)
	if resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		return fmt.Errorf("cachestore: put: %w", err)
	}

	var buf bytes.Buffer
	buf.WriteString(req.URL.String())
	buf.WriteByte('\n')
	buf.Write(dump)

	c.mu.Lock()
	defer c.mu.Unlock()

	target := c.path(req.URL.String())
	tmp, err := os.CreateTemp(c.dir, "put-*")
	if err != nil {
		return fmt.Errorf("cachestore: put: %w", err)
	}
	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("cachestore: put: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("cachestore: put: %w", err)
	}
	if err := os.Rename(tmp.Name(), target); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("cachestore: put: %w", err)
	}
	return nil
}

// Delete removes the entry for req and reports whether it existed.
func (c *Cache) Delete(ctx context.Context, req *http.Request) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	err := os.Remove(c.path(req.URL.String()))
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("cachestore: delete: %w", err)
	}
	return true, nil
}

// Keys returns the requests of every stored entry. Unreadable entries are
// skipped.
func (c *Cache) Keys(ctx context.Context) ([]*http.Request, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entries, err := os.ReadDir(c.dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("cachestore: keys: %w", err)
	}

	reqs := make([]*http.Request, 0, len(entries))
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if e.IsDir() || !strings.HasSuffix(e.Name(), entrySuffix) {
			continue
		}
		req, err := readRequestLine(filepath.Join(c.dir, e.Name()))
		if err != nil {
			continue
		}
		reqs = append(reqs, req)
	}
	return reqs, nil
}

func readRequestLine(path string) (*http.Request, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	line, err := bufio.NewReader(f).ReadString('\n')
	if err != nil {
		return nil, err
	}
	return http.NewRequest(http.MethodGet, strings.TrimSuffix(line, "\n"), nil)
}

func decodeEntry(data []byte, req *http.Request) (string, *http.Response, error) {
	br := bufio.NewReader(bytes.NewReader(data))
	line, err := br.ReadString('\n')
	if err != nil {
		return "", nil, fmt.Errorf("cachestore: corrupt entry: %w", err)
	}
	resp, err := http.ReadResponse(br, req)
	if err != nil {
		return "", nil, fmt.Errorf("cachestore: corrupt entry: %w", err)
	}
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return "", nil, fmt.Errorf("cachestore: corrupt entry: %w", err)
	}
	resp.Body = io.NopCloser(bytes.NewReader(body))
	resp.ContentLength = int64(len(body))
	return strings.TrimSuffix(line, "\n"), resp, nil
}
