package manager

import (
	"context"

	"github.com/yndnr/stowage-go/internal/storage/adapter"
)

// evictor is implemented by adapters that choose their own eviction
// candidates.
type evictor interface {
	EvictionCandidates(ctx context.Context) ([]string, error)
}

// evict removes the first quarter (rounded up) of a's keys after a
// capacity failure. The failed write is not retried.
func (m *Manager) evict(ctx context.Context, a adapter.Adapter) {
	m.cleanupMu.Lock()
	defer m.cleanupMu.Unlock()

	victims, err := m.evictionCandidates(ctx, a)
	if err != nil {
		m.logger.Warn("quota cleanup failed", "adapter", a.Kind(), "error", err)
		m.emit(Event{Type: EventQuotaCleanupFailed, Adapter: a.Kind(), Err: err})
		return
	}
	if len(victims) == 0 {
		m.emit(Event{Type: EventQuotaCleanup, Adapter: a.Kind()})
		return
	}

	r := a.DeleteMany(ctx, victims)
	if !r.Success {
		m.logger.Warn("quota cleanup failed", "adapter", a.Kind(), "error", r.Err)
		m.emit(Event{Type: EventQuotaCleanupFailed, Adapter: a.Kind(), Count: len(r.Data), Err: r.Err})
		return
	}

	m.metrics.AddQuotaEvictions(string(a.Kind()), len(r.Data))
	m.logger.Info("quota cleanup completed", "adapter", a.Kind(), "removed", len(r.Data))
	m.emit(Event{Type: EventQuotaCleanup, Adapter: a.Kind(), Count: len(r.Data)})
}

func (m *Manager) evictionCandidates(ctx context.Context, a adapter.Adapter) ([]string, error) {
	if e, ok := a.(evictor); ok {
		return e.EvictionCandidates(ctx)
	}
	keys, err := a.Keys(ctx)
	if err != nil {
		return nil, err
	}
	return keys[:(len(keys)+3)/4], nil
}
