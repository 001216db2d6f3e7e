package telemetry

import (
	"sync"
	"sync/atomic"

	"github.com/darianrosebrook/conscious-bot-experiment-sub011/internal/types"
)

// DefaultStreamBuffer is the per-subscriber channel capacity.
const DefaultStreamBuffer = 100

// Stream is a Sink that fans events out to channel subscribers. A slow
// subscriber loses events rather than blocking the executor: when a
// subscriber's buffer is full the event is dropped for that subscriber.
type Stream struct {
	mu          sync.RWMutex
	subscribers map[string]chan Event
	bufferSize  int
	closed      bool
	dropped     atomic.Uint64
}

// StreamOption configures a Stream.
type StreamOption func(*Stream)

// WithBufferSize sets the per-subscriber channel capacity.
func WithBufferSize(size int) StreamOption {
	return func(s *Stream) {
		if size > 0 {
			s.bufferSize = size
		}
	}
}

// NewStream creates a Stream with no subscribers.
func NewStream(opts ...StreamOption) *Stream {
	s := &Stream{
		subscribers: make(map[string]chan Event),
		bufferSize:  DefaultStreamBuffer,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Emit delivers the event to every subscriber without blocking. Events
// for full or closed subscribers are dropped.
func (s *Stream) Emit(event Event) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return
	}
	for _, ch := range s.subscribers {
		select {
		case ch <- event:
		default:
			s.dropped.Add(1)
		}
	}
}

// Subscribe registers a new subscriber and returns its channel plus a
// cleanup function. The cleanup function must be called to release the
// subscription.
func (s *Stream) Subscribe() (<-chan Event, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := types.NewID().String()
	ch := make(chan Event, s.bufferSize)
	if s.closed {
		close(ch)
		return ch, func() {}
	}
	s.subscribers[id] = ch

	cleanup := func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if sub, ok := s.subscribers[id]; ok {
			delete(s.subscribers, id)
			close(sub)
		}
	}
	return ch, cleanup
}

// Close shuts the stream down and closes all subscriber channels.
func (s *Stream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	for id, ch := range s.subscribers {
		close(ch)
		delete(s.subscribers, id)
	}
	return nil
}

// SubscriberCount returns the number of active subscribers.
func (s *Stream) SubscriberCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.subscribers)
}

// Dropped returns how many events were lost to full subscriber buffers.
func (s *Stream) Dropped() uint64 {
	return s.dropped.Load()
}

var _ Sink = (*Stream)(nil)
