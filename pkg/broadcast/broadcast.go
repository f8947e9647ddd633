package broadcast

import (
	"context"
	"errors"
	"sync"
)

var (
	ErrBroadcasterClosed = errors.New("broadcaster is closed")
	ErrSubscriberClosed  = errors.New("subscriber is closed")
)

// Message wraps a broadcast payload.
type Message[T any] struct {
	Topic string
	Data  T
}

// Broadcaster sends messages to every matching subscriber.
type Broadcaster[T any] interface {
	Subscribe(ctx context.Context) Subscriber[T]
	SubscribeTopic(ctx context.Context, topic string) Subscriber[T]
	Broadcast(ctx context.Context, msg Message[T]) error
	Close() error
}

// Subscriber receives broadcast messages.
type Subscriber[T any] interface {
	Receive(ctx context.Context) <-chan Message[T]
	Close() error
}

// MemoryBroadcaster is the in-process Broadcaster.
type MemoryBroadcaster[T any] struct {
	mu     sync.RWMutex
	subs   map[*memorySubscriber[T]]struct{}
	buffer int
	closed bool
}

// NewMemoryBroadcaster creates a broadcaster with the given per-subscriber buffer.
func NewMemoryBroadcaster[T any](buffer int) *MemoryBroadcaster[T] {
	if buffer < 1 {
		buffer = 1
	}
	return &MemoryBroadcaster[T]{
		subs:   make(map[*memorySubscriber[T]]struct{}),
		buffer: buffer,
	}
}

// Subscribe receives every message.
func (b *MemoryBroadcaster[T]) Subscribe(ctx context.Context) Subscriber[T] {
	return b.subscribe(ctx, "")
}

// SubscribeTopic receives messages published with the given topic.
func (b *MemoryBroadcaster[T]) SubscribeTopic(ctx context.Context, topic string) Subscriber[T] {
	return b.subscribe(ctx, topic)
}

func (b *MemoryBroadcaster[T]) subscribe(ctx context.Context, topic string) Subscriber[T] {
	s := &memorySubscriber[T]{
		b:     b,
		topic: topic,
		ch:    make(chan Message[T], b.buffer),
		done:  make(chan struct{}),
	}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		close(s.ch)
		s.closeDone()
		return s
	}
	b.subs[s] = struct{}{}
	b.mu.Unlock()

	go func() {
		select {
		case <-ctx.Done():
			b.remove(s)
		case <-s.done:
		}
	}()

	return s
}

// Broadcast delivers msg to every matching subscriber without blocking.
func (b *MemoryBroadcaster[T]) Broadcast(ctx context.Context, msg Message[T]) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return ErrBroadcasterClosed
	}
	for s := range b.subs {
		if s.topic != "" && s.topic != msg.Topic {
			continue
		}
		select {
		case s.ch <- msg:
		default:
		}
	}
	return nil
}

// Close ends every subscription. Further broadcasts fail with ErrBroadcasterClosed.
func (b *MemoryBroadcaster[T]) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	subs := b.subs
	b.subs = make(map[*memorySubscriber[T]]struct{})
	for s := range subs {
		close(s.ch)
	}
	b.mu.Unlock()

	for s := range subs {
		s.closeDone()
	}
	return nil
}

// Subscribers returns the number of active subscriptions.
func (b *MemoryBroadcaster[T]) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

func (b *MemoryBroadcaster[T]) remove(s *memorySubscriber[T]) {
	b.mu.Lock()
	if _, ok := b.subs[s]; ok {
		delete(b.subs, s)
		close(s.ch)
	}
	b.mu.Unlock()
	s.closeDone()
}

type memorySubscriber[T any] struct {
	b     *MemoryBroadcaster[T]
	topic string
	ch    chan Message[T]
	done  chan struct{}
	once  sync.Once
}

func (s *memorySubscriber[T]) Receive(context.Context) <-chan Message[T] {
	return s.ch
}

func (s *memorySubscriber[T]) Close() error {
	s.b.remove(s)
	return nil
}

func (s *memorySubscriber[T]) closeDone() {
	s.once.Do(func() { close(s.done) })
}
