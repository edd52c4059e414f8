package events

import (
	"sync"
	"sync/atomic"

	"github.com/kelindar/event"
)

// Stream merges several event types into one buffered channel, the shape a
// huma SSE handler selects on. Publishers never wait on a slow client: an
// event that does not fit in the buffer is dropped and counted.
type Stream struct {
	C <-chan any

	ch      chan any
	dropped atomic.Uint64

	mu     sync.Mutex
	unsubs []func()
}

// NewStream creates a stream buffering up to size events.
func NewStream(size int) *Stream {
	ch := make(chan any, size)
	return &Stream{C: ch, ch: ch}
}

// Forward adds events of type T on bus to s. A nil bus forwards nothing.
func Forward[T Event](bus *Bus, s *Stream) {
	if bus == nil {
		return
	}
	unsub := event.Subscribe(bus.dispatcher, func(e T) {
		select {
		case s.ch <- e:
		default:
			s.dropped.Add(1)
		}
	})

	s.mu.Lock()
	s.unsubs = append(s.unsubs, unsub)
	s.mu.Unlock()
}

// Dropped returns how many events were lost to a full buffer.
func (s *Stream) Dropped() uint64 {
	return s.dropped.Load()
}

// Close unsubscribes from every forwarded type. C is left open so a reader
// racing with Close never sees a spurious nil event.
func (s *Stream) Close() {
	s.mu.Lock()
	unsubs := s.unsubs
	s.unsubs = nil
	s.mu.Unlock()

	for _, unsub := range unsubs {
		unsub()
	}
}
