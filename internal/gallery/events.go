package gallery

import "sync"

type KeyListener func(key string)

// KeyEventSource is the document-level keyboard surface.
type KeyEventSource interface {
	// AddKeyListener registers fn and returns the function removing exactly
	// that registration.
	AddKeyListener(fn KeyListener) (remove func())
}

// EventTarget is an in-memory KeyEventSource, one per document.
type EventTarget struct {
	mu        sync.Mutex
	nextID    uint64
	listeners map[uint64]KeyListener
}

var _ KeyEventSource = &EventTarget{}

func NewEventTarget() *EventTarget {
	return &EventTarget{listeners: make(map[uint64]KeyListener)}
}

func (t *EventTarget) AddKeyListener(fn KeyListener) func() {
	t.mu.Lock()
	defer t.mu.Unlock()

	id := t.nextID
	t.nextID++
	t.listeners[id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			t.mu.Lock()
			delete(t.listeners, id)
			t.mu.Unlock()
		})
	}
}

// DispatchKey delivers key to every listener registered at the time of the call.
func (t *EventTarget) DispatchKey(key string) {
	t.mu.Lock()
	listeners := make([]KeyListener, 0, len(t.listeners))
	for _, fn := range t.listeners {
		listeners = append(listeners, fn)
	}
	t.mu.Unlock()

	for _, fn := range listeners {
		fn(key)
	}
}

func (t *EventTarget) ListenerCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.listeners)
}
