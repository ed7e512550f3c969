package manager

import (
	"context"
	"encoding/json"
	"fmt"
)

// Load reads key and decodes it into T.
func Load[T any](ctx context.Context, m *Manager, key string) (T, error) {
	var v T
	raw, err := m.Get(ctx, key)
	if err != nil {
		return v, err
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		return v, fmt.Errorf("manager: decode %q: %w", key, err)
	}
	return v, nil
}

// LoadMany reads keys and decodes each value found into T. Values that do
// not decode are omitted.
func LoadMany[T any](ctx context.Context, m *Manager, keys []string) (map[string]T, error) {
	raws, err := m.GetMany(ctx, keys)
	if err != nil {
		return nil, err
	}
	out := make(map[string]T, len(raws))
	for k, raw := range raws {
		var v T
		if err := json.Unmarshal(raw, &v); err != nil {
			continue
		}
		out[k] = v
	}
	return out, nil
}
