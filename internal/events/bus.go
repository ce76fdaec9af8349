package events

import (
	"sync"
	"time"
)

// Handler processes a single event. Handlers run on the bus dispatch
// goroutine; a slow handler delays delivery to everyone downstream.
type Handler func(Event)

// Bus fans events out to subscribed handlers. A single dispatch goroutine
// delivers events in emit order, so handlers never run concurrently with
// each other and need no internal locking for bus-delivered state.
type Bus struct {
	handlersMu sync.RWMutex
	handlers   []Handler

	stateMu sync.RWMutex
	closed  bool

	ch   chan Event
	done chan struct{}
}

// NewBus creates a bus whose emit queue holds up to capacity events.
// Emit blocks once the queue is full.
func NewBus(capacity int) *Bus {
	if capacity <= 0 {
		capacity = 1
	}
	b := &Bus{
		ch:   make(chan Event, capacity),
		done: make(chan struct{}),
	}
	go b.dispatch()
	return b
}

func (b *Bus) dispatch() {
	defer close(b.done)
	for e := range b.ch {
		b.handlersMu.RLock()
		handlers := b.handlers
		b.handlersMu.RUnlock()

		for _, h := range handlers {
			h(e)
		}
	}
}

// Subscribe registers a handler for all events emitted after this call.
// Subscribe all handlers before emitting; late subscribers miss earlier
// events.
func (b *Bus) Subscribe(h Handler) {
	if h == nil {
		return
	}
	b.handlersMu.Lock()
	b.handlers = append(b.handlers, h)
	b.handlersMu.Unlock()
}

// Emit queues an event for delivery, stamping Time if unset.
// Safe for concurrent use. Events emitted after Close are dropped.
func (b *Bus) Emit(e Event) {
	if e.Time.IsZero() {
		e.Time = time.Now()
	}

	// Hold the read lock across the send so Close cannot close the
	// channel out from under an in-flight Emit.
	b.stateMu.RLock()
	defer b.stateMu.RUnlock()
	if b.closed {
		return
	}
	b.ch <- e
}

// Close drains queued events through all handlers and stops the dispatch
// goroutine. It blocks until the last queued event has been delivered.
// Close is idempotent.
func (b *Bus) Close() {
	b.stateMu.Lock()
	if b.closed {
		b.stateMu.Unlock()
		return
	}
	b.closed = true
	b.stateMu.Unlock()

	close(b.ch)
	<-b.done
}
