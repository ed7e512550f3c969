package manager

import (
	"context"
	"encoding/json"

	"github.com/yndnr/stowage-go/internal/storage/adapter"
)

// GetMany returns the live values found for keys. Each key is served by
// the first adapter holding it; fallback hits are backfilled into the
// primary. Missing keys are omitted.
func (m *Manager) GetMany(ctx context.Context, keys []string) (map[string]json.RawMessage, error) {
	adapters, err := m.adapters()
	if err != nil {
		return nil, err
	}

	out := make(map[string]json.RawMessage, len(keys))
	remaining := dedupe(keys)
	for i, a := range adapters {
		if len(remaining) == 0 {
			break
		}
		r := a.GetMany(ctx, remaining)
		if r.Err != nil {
			m.logger.Debug("adapter batch read failed", "adapter", a.Kind(), "error", r.Err)
		}

		hits := make(map[string]json.RawMessage, len(r.Data))
		for k, v := range r.Data {
			out[k] = v
			hits[k] = v
		}
		if i > 0 && len(hits) > 0 {
			m.backfill(adapters[0], hits)
		}

		next := remaining[:0:0]
		for _, k := range remaining {
			if _, ok := out[k]; !ok {
				next = append(next, k)
			}
		}
		remaining = next
	}
	return out, nil
}

// SetMany writes every item to the primary and, unless SkipFallbacks is
// given, to every fallback. The result reports per key whether at least
// one adapter accepted it.
func (m *Manager) SetMany(ctx context.Context, items map[string]any, opts ...SetOption) (map[string]bool, error) {
	adapters, err := m.adapters()
	if err != nil {
		return nil, err
	}

	o := setOptions{ttl: m.cfg.DefaultTTL}
	for _, opt := range opts {
		opt(&o)
	}
	if o.skipFallbacks {
		adapters = adapters[:1]
	}

	results := make(map[string]bool, len(items))
	values := make(map[string]any, len(items))
	raws := make(map[string]json.RawMessage, len(items))
	for k, v := range items {
		results[k] = false
		raw, err := json.Marshal(v)
		if err != nil {
			m.logger.Debug("skipping unserializable value", "key", k, "error", err)
			continue
		}
		values[k] = json.RawMessage(raw)
		raws[k] = raw
	}
	if len(values) == 0 {
		return results, nil
	}

	for _, a := range adapters {
		r := a.SetMany(ctx, values, o.ttl)
		m.recordBatch(a, "set_many", r)
		for _, k := range r.Data {
			results[k] = true
		}
	}

	for k, ok := range results {
		if ok {
			m.emit(Event{Type: EventStored, Key: k, Value: raws[k]})
		}
	}
	return results, nil
}

// DeleteMany removes keys from every adapter. The result reports per key
// whether at least one adapter processed it.
func (m *Manager) DeleteMany(ctx context.Context, keys []string) (map[string]bool, error) {
	adapters, err := m.adapters()
	if err != nil {
		return nil, err
	}

	keys = dedupe(keys)
	results := make(map[string]bool, len(keys))
	for _, k := range keys {
		results[k] = false
	}

	for _, a := range adapters {
		r := a.DeleteMany(ctx, keys)
		m.recordBatch(a, "delete_many", r)
		for _, k := range r.Data {
			results[k] = true
		}
	}

	for _, k := range keys {
		if results[k] {
			m.emit(Event{Type: EventDeleted, Key: k})
		}
	}
	return results, nil
}

func (m *Manager) recordBatch(a adapter.Adapter, op string, r adapter.Result[[]string]) {
	m.metrics.RecordOperation(op, string(a.Kind()), r.Success)
	if r.Success {
		return
	}
	m.emit(Event{Type: EventAdapterError, Adapter: a.Kind(), Count: len(r.Data), Err: r.Err})
}

func dedupe(keys []string) []string {
	seen := make(map[string]struct{}, len(keys))
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	return out
}
