package adapter

import "sync"

// emitter is an explicit publish/subscribe list.
type emitter struct {
	mu        sync.RWMutex
	nextID    ListenerID
	listeners map[ListenerID]Listener
	order     []ListenerID
}

func (e *emitter) subscribe(fn Listener) ListenerID {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.listeners == nil {
		e.listeners = make(map[ListenerID]Listener)
	}
	e.nextID++
	id := e.nextID
	e.listeners[id] = fn
	e.order = append(e.order, id)
	return id
}

func (e *emitter) unsubscribe(id ListenerID) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, ok := e.listeners[id]; !ok {
		return
	}
	delete(e.listeners, id)
	for i, v := range e.order {
		if v == id {
			e.order = append(e.order[:i], e.order[i+1:]...)
			break
		}
	}
}

func (e *emitter) reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.listeners = nil
	e.order = nil
}

// emit calls listeners in subscription order, outside the lock so a
// listener may call back into the adapter.
func (e *emitter) emit(ev Event) {
	e.mu.RLock()
	fns := make([]Listener, 0, len(e.order))
	for _, id := range e.order {
		fns = append(fns, e.listeners[id])
	}
	e.mu.RUnlock()

	for _, fn := range fns {
		fn(ev)
	}
}
