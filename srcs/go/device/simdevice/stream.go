package simdevice

import (
	"sync"

	"github.com/pkg/errors"
)

var errStreamClosed = errors.New("stream closed")

// Stream executes its commands in order on a dedicated goroutine.
type Stream struct {
	dev  int
	id   int
	mu   sync.Mutex
	cond *sync.Cond

	queue   []func()
	running bool
	closed  bool
}

func newStream(dev, id int) *Stream {
	s := &Stream{dev: dev, id: id}
	s.cond = sync.NewCond(&s.mu)
	go s.run()
	return s
}

func (s *Stream) Device() int { return s.dev }

func (s *Stream) ID() int { return s.id }

func (s *Stream) enqueue(f func()) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errStreamClosed
	}
	s.queue = append(s.queue, f)
	s.cond.Broadcast()
	return nil
}

func (s *Stream) run() {
	for {
		s.mu.Lock()
		for len(s.queue) == 0 && !s.closed {
			s.cond.Wait()
		}
		if len(s.queue) == 0 {
			s.mu.Unlock()
			return
		}
		f := s.queue[0]
		s.queue[0] = nil
		s.queue = s.queue[1:]
		s.running = true
		s.mu.Unlock()

		f()

		s.mu.Lock()
		s.running = false
		s.cond.Broadcast()
		s.mu.Unlock()
	}
}

// Idle reports whether every enqueued command has finished.
func (s *Stream) Idle() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue) == 0 && !s.running
}

// close lets the queued commands drain, then stops the worker.
func (s *Stream) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.cond.Broadcast()
}
