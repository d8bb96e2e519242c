package broadcast

import (
	"log/slog"
	"sync"
)

// Broadcaster fans values out to subscribers without ever blocking the publisher.
// A lagging subscriber loses its oldest pending value.
type Broadcaster[T any] struct {
	name string
	size int

	mu     sync.Mutex
	subs   map[uint64]chan T
	nextID uint64
	closed bool
}

func New[T any](name string, size int) *Broadcaster[T] {
	if size < 1 {
		size = 1
	}

	return &Broadcaster[T]{
		name: name,
		size: size,
		subs: make(map[uint64]chan T),
	}
}

// Subscribe returns a channel of future values and a function that detaches it.
func (b *Broadcaster[T]) Subscribe() (<-chan T, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan T, b.size)
	if b.closed {
		close(ch)
		return ch, func() {}
	}

	id := b.nextID
	b.nextID++
	b.subs[id] = ch

	return ch, func() {
		b.mu.Lock()
		defer b.mu.Unlock()

		if sub, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(sub)
		}
	}
}

func (b *Broadcaster[T]) Publish(value T) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, ch := range b.subs {
		select {
		case ch <- value:
			continue
		default:
		}

		select {
		case <-ch:
		default:
		}

		select {
		case ch <- value:
		default:
			slog.Warn("Subscriber is full, dropping update", "broadcast", b.name)
		}
	}
}

func (b *Broadcaster[T]) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true

	for id, ch := range b.subs {
		delete(b.subs, id)
		close(ch)
	}
}
