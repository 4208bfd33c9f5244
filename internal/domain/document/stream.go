package document

import (
	"errors"
	"sync"
)

// ErrSubscriberLagging ends a subscription whose consumer fell more than the
// buffer behind.
var ErrSubscriberLagging = errors.New("subscriber lagging behind")

// Stream is a Subscription fed by a backend goroutine that observes raw
// writes, such as a notification listener or a poller.
type Stream struct {
	tracker *Tracker

	mu     sync.Mutex
	ch     chan Change
	done   chan struct{}
	err    error
	closed bool
}

var _ Subscription = (*Stream)(nil)

// NewStream creates a stream whose membership starts at initial.
func NewStream(filters []Filter, initial []Document, buffer int) *Stream {
	if buffer <= 0 {
		buffer = 1
	}
	return &Stream{
		tracker: NewTracker(filters, initial),
		ch:      make(chan Change, buffer),
		done:    make(chan struct{}),
	}
}

// Observe classifies a write and delivers the resulting change. It reports
// false once the stream has ended.
func (s *Stream) Observe(id string, doc *Document) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	change, ok := s.tracker.Observe(id, doc)
	if !ok {
		return true
	}
	select {
	case s.ch <- change:
		return true
	default:
		s.endLocked(ErrSubscriberLagging)
		return false
	}
}

// Done is closed when the stream ends.
func (s *Stream) Done() <-chan struct{} {
	return s.done
}

// Fail ends the stream with err.
func (s *Stream) Fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.endLocked(err)
}

func (s *Stream) endLocked(err error) {
	if s.closed {
		return
	}
	s.closed = true
	s.err = err
	close(s.ch)
	close(s.done)
}

func (s *Stream) Changes() <-chan Change {
	return s.ch
}

func (s *Stream) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *Stream) Close() error {
	s.Fail(nil)
	return nil
}
