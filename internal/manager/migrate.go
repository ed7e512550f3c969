package manager

import (
	"context"
	"encoding/json"

	"github.com/yndnr/stowage-go/internal/storage/adapter"
)

// migrate copies every live entry of each fallback into the primary.
// Failures are reported as events and never abort Init.
func (m *Manager) migrate(ctx context.Context, primary adapter.Adapter, fallbacks []adapter.Adapter) {
	if primary == nil || len(fallbacks) == 0 {
		return
	}

	for _, f := range fallbacks {
		keys, err := f.Keys(ctx)
		if err != nil {
			m.emit(Event{Type: EventMigrationFailed, Adapter: f.Kind(), Err: err})
			continue
		}
		if len(keys) == 0 {
			continue
		}

		read := f.GetMany(ctx, keys)
		if !read.Success {
			m.emit(Event{Type: EventMigrationFailed, Adapter: f.Kind(), Err: read.Err})
			continue
		}
		if len(read.Data) == 0 {
			continue
		}

		items := make(map[string]any, len(read.Data))
		for k, v := range read.Data {
			items[k] = json.RawMessage(v)
		}
		written := primary.SetMany(ctx, items, m.cfg.DefaultTTL)
		if !written.Success {
			m.logger.Warn("migration failed", "from", f.Kind(), "to", primary.Kind(), "error", written.Err)
			m.emit(Event{Type: EventMigrationFailed, Adapter: f.Kind(), Count: len(written.Data), Err: written.Err})
		}
		if len(written.Data) > 0 {
			m.metrics.AddMigrated(len(written.Data))
			m.logger.Info("migrated fallback data", "from", f.Kind(), "to", primary.Kind(), "count", len(written.Data))
			m.emit(Event{Type: EventMigration, Adapter: f.Kind(), Count: len(written.Data)})
		}
	}
}
