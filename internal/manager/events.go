package manager

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/yndnr/stowage-go/internal/storage/adapter"
)

// EventType enumerates manager events.
type EventType string

// Manager event types.
const (
	EventStored              EventType = "stored"
	EventDeleted             EventType = "deleted"
	EventCleared             EventType = "cleared"
	EventAdapterError        EventType = "adapter-error"
	EventAdapterEvent        EventType = "adapter-event"
	EventQuotaExceeded       EventType = "quota-exceeded"
	EventQuotaCleanup        EventType = "quota-cleanup"
	EventQuotaCleanupFailed  EventType = "quota-cleanup-failed"
	EventMigration           EventType = "migration"
	EventMigrationFailed     EventType = "migration-failed"
	EventAdapterInitFailed   EventType = "adapter-init-failed"
	EventBackgroundSetFailed EventType = "background-set-failed"
)

// Event is emitted by the manager.
type Event struct {
	ID        string
	Type      EventType
	Timestamp time.Time
	Adapter   adapter.Kind
	Key       string
	Value     json.RawMessage
	Count     int
	Err       error

	// Source is the relayed adapter event of an adapter-event.
	Source *adapter.Event
}

// IsChange reports whether the event is a stored, deleted or cleared
// notification.
func (e Event) IsChange() bool {
	switch e.Type {
	case EventStored, EventDeleted, EventCleared:
		return true
	}
	return false
}

// Listener receives manager events.
type Listener func(Event)

type subscription struct {
	id uint64
	fn Listener
}

// emitter calls listeners in subscription order, outside the lock.
type emitter struct {
	mu     sync.RWMutex
	nextID uint64
	subs   []subscription
}

func (e *emitter) subscribe(fn Listener) func() {
	e.mu.Lock()
	e.nextID++
	id := e.nextID
	e.subs = append(e.subs, subscription{id: id, fn: fn})
	e.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			e.mu.Lock()
			defer e.mu.Unlock()
			for i, s := range e.subs {
				if s.id == id {
					e.subs = append(e.subs[:i:i], e.subs[i+1:]...)
					return
				}
			}
		})
	}
}

func (e *emitter) reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.subs = nil
}

func (e *emitter) emit(ev Event) {
	if ev.ID == "" {
		ev.ID = ulid.Make().String()
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}

	e.mu.RLock()
	subs := e.subs
	e.mu.RUnlock()

	for _, s := range subs {
		s.fn(ev)
	}
}
