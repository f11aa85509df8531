package transport

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
)

type busMessage struct {
	to      *busEnd
	event   string
	payload json.RawMessage
}

// Bus connects two Hosts in-process. Emitted messages are queued and
// delivered to the other end one at a time, in emission order, by Pump or
// Run.
type Bus struct {
	mu     sync.Mutex
	queue  []busMessage
	closed bool
	wake   chan struct{}

	// deliver serializes Pump so handlers never run concurrently.
	deliver sync.Mutex

	client  *busEnd
	backend *busEnd
}

type busEnd struct {
	bus       *Bus
	name      string
	peer      *busEnd
	mu        sync.RWMutex
	listeners map[string][]func(json.RawMessage)
}

// NewBus creates a bus with its two ends wired to each other.
func NewBus() *Bus {
	b := &Bus{wake: make(chan struct{}, 1)}
	b.client = &busEnd{bus: b, name: "client", listeners: make(map[string][]func(json.RawMessage))}
	b.backend = &busEnd{bus: b, name: "backend", listeners: make(map[string][]func(json.RawMessage))}
	b.client.peer = b.backend
	b.backend.peer = b.client
	return b
}

// Client returns the end the map client attaches to.
func (b *Bus) Client() Host { return b.client }

// Backend returns the end a backend attaches to.
func (b *Bus) Backend() Host { return b.backend }

// Pump delivers queued messages, including those emitted by the handlers it
// runs, until the queue is empty. It returns the number delivered.
func (b *Bus) Pump() int {
	b.deliver.Lock()
	defer b.deliver.Unlock()

	n := 0
	for {
		b.mu.Lock()
		if len(b.queue) == 0 {
			b.mu.Unlock()
			return n
		}
		msg := b.queue[0]
		b.queue = b.queue[1:]
		b.mu.Unlock()

		msg.to.deliver(msg.event, msg.payload)
		n++
	}
}

// Run pumps the bus whenever messages arrive until ctx is done.
func (b *Bus) Run(ctx context.Context) error {
	for {
		b.Pump()
		select {
		case <-ctx.Done():
			b.Close()
			return ctx.Err()
		case <-b.wake:
		}
	}
}

// Close stops accepting messages. Queued messages are dropped.
func (b *Bus) Close() {
	b.mu.Lock()
	b.closed = true
	b.queue = nil
	b.mu.Unlock()
}

// Pending returns the number of queued messages.
func (b *Bus) Pending() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.queue)
}

func (b *Bus) enqueue(msg busMessage) error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return ErrClosed
	}
	b.queue = append(b.queue, msg)
	b.mu.Unlock()

	select {
	case b.wake <- struct{}{}:
	default:
	}
	return nil
}

func (e *busEnd) Listen(event string, fn func(json.RawMessage)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.listeners[event] = append(e.listeners[event], fn)
}

func (e *busEnd) Emit(event string, payload json.RawMessage) error {
	cp := make(json.RawMessage, len(payload))
	copy(cp, payload)
	return e.bus.enqueue(busMessage{to: e.peer, event: event, payload: cp})
}

func (e *busEnd) deliver(event string, payload json.RawMessage) {
	e.mu.RLock()
	fns := make([]func(json.RawMessage), len(e.listeners[event]))
	copy(fns, e.listeners[event])
	e.mu.RUnlock()

	if len(fns) == 0 {
		slog.Warn("bus message without listener", "end", e.name, "type", event)
		return
	}
	for _, fn := range fns {
		fn(payload)
	}
}
