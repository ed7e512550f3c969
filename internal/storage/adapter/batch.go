package adapter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/yndnr/stowage-go/pkg/checksum"
)

// GetMany returns the live values for keys. Missing, expired and failing
// keys are omitted; the batch itself never fails because of one key.
func (b *Base) GetMany(ctx context.Context, keys []string) Result[map[string]json.RawMessage] {
	if err := b.ready(); err != nil {
		return fail[map[string]json.RawMessage](err)
	}

	if native, isBatch := b.backend.(BatchBackend); isBatch {
		return b.nativeGetMany(ctx, native, keys)
	}

	results := make([]Result[json.RawMessage], len(keys))
	b.fanOut(len(keys), func(i int) {
		results[i] = b.Get(ctx, keys[i])
	})

	out := make(map[string]json.RawMessage, len(keys))
	var errs []error
	for i, r := range results {
		if r.Success {
			out[keys[i]] = r.Data
		} else if r.Err != nil {
			errs = append(errs, r.Err)
		}
	}
	return Result[map[string]json.RawMessage]{Success: true, Data: out, Err: errors.Join(errs...), FromCache: true}
}

// SetMany stores every item. Data lists the keys that were written.
func (b *Base) SetMany(ctx context.Context, items map[string]any, ttl time.Duration) Result[[]string] {
	if err := b.ready(); err != nil {
		return fail[[]string](err)
	}
	keys := sortedKeys(items)

	if native, isBatch := b.backend.(BatchBackend); isBatch {
		return b.nativeSetMany(ctx, native, keys, items, ttl)
	}

	results := make([]Outcome, len(keys))
	b.fanOut(len(keys), func(i int) {
		results[i] = b.Set(ctx, keys[i], items[keys[i]], ttl)
	})
	return collect(keys, results)
}

// DeleteMany removes every key. Data lists the keys processed successfully.
func (b *Base) DeleteMany(ctx context.Context, keys []string) Result[[]string] {
	if err := b.ready(); err != nil {
		return fail[[]string](err)
	}

	if native, isBatch := b.backend.(BatchBackend); isBatch {
		existed, err := native.DeleteMany(ctx, keys)
		if err != nil {
			b.emit(Event{Type: EventError, Err: err})
			return fail[[]string](err)
		}
		for _, k := range existed {
			b.emit(Event{Type: EventDelete, Key: k})
		}
		return ok(append([]string(nil), keys...))
	}

	results := make([]Outcome, len(keys))
	b.fanOut(len(keys), func(i int) {
		results[i] = b.Delete(ctx, keys[i])
	})
	return collect(keys, results)
}

func (b *Base) nativeGetMany(ctx context.Context, native BatchBackend, keys []string) Result[map[string]json.RawMessage] {
	items, err := native.GetMany(ctx, keys)
	if err != nil {
		b.emit(Event{Type: EventError, Err: err})
		return fail[map[string]json.RawMessage](err)
	}

	now := b.now()
	out := make(map[string]json.RawMessage, len(items))
	var expired []string
	var errs []error
	for k, item := range items {
		switch {
		case !item.Live(now):
			expired = append(expired, k)
		case item.Checksum != "" && !checksum.Verify(item.Value, b.cfg.ChecksumAlgorithm, item.Checksum):
			err := fmt.Errorf("%w: key %q", ErrChecksumMismatch, k)
			b.emit(Event{Type: EventError, Key: k, Err: err})
			errs = append(errs, err)
		default:
			out[k] = item.Value
		}
	}
	if len(expired) > 0 {
		if _, err := native.DeleteMany(ctx, expired); err != nil {
			b.logger.Debug("delete expired items failed", "count", len(expired), "error", err)
		}
	}
	return Result[map[string]json.RawMessage]{Success: true, Data: out, Err: errors.Join(errs...), FromCache: true}
}

func (b *Base) nativeSetMany(ctx context.Context, native BatchBackend, keys []string, items map[string]any, ttl time.Duration) Result[[]string] {
	envelopes := make(map[string]*Item, len(items))
	for _, k := range keys {
		item, err := b.envelope(items[k], ttl)
		if err != nil {
			b.emit(Event{Type: EventError, Key: k, Err: err})
			return fail[[]string](err)
		}
		envelopes[k] = item
	}

	if err := native.SetMany(ctx, envelopes); err != nil {
		b.emitFailure("", err)
		return fail[[]string](err)
	}
	for _, k := range keys {
		b.emit(Event{Type: EventSet, Key: k, Value: envelopes[k].Value})
	}
	return ok(keys)
}

// fanOut runs fn for 0..n-1 with bounded parallelism. Tasks never return
// an error, so one failure does not cancel the others.
func (b *Base) fanOut(n int, fn func(i int)) {
	var g errgroup.Group
	g.SetLimit(b.limit)
	for i := 0; i < n; i++ {
		g.Go(func() error {
			fn(i)
			return nil
		})
	}
	_ = g.Wait()
}

func collect(keys []string, results []Outcome) Result[[]string] {
	done := make([]string, 0, len(keys))
	var errs []error
	for i, r := range results {
		if r.Success {
			done = append(done, keys[i])
		} else if r.Err != nil {
			errs = append(errs, r.Err)
		}
	}
	return Result[[]string]{Success: len(errs) == 0, Data: done, Err: errors.Join(errs...)}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
