package pty

import (
	"sync"

	"github.com/grovetools/telemetry/pkg/models"
)

// maxQueuedBytes bounds the output buffered for one subscriber. A publisher
// that would exceed it waits for the subscriber to catch up.
const maxQueuedBytes = 4 * 1024 * 1024

// subscription delivers events in order to one consumer. push never drops:
// once the queue is full it blocks until the consumer drains, the
// subscription is cancelled, or abort closes.
type subscription struct {
	session string // empty receives every session

	out   chan models.PtyEvent
	stop  chan struct{}
	ready chan struct{}
	space chan struct{}

	mu      sync.Mutex
	queue   []models.PtyEvent
	queued  int
	stopped bool
	once    sync.Once
}

func newSubscription(session string) *subscription {
	sub := &subscription{
		session: session,
		out:     make(chan models.PtyEvent),
		stop:    make(chan struct{}),
		ready:   make(chan struct{}, 1),
		space:   make(chan struct{}, 1),
	}
	go sub.pump()
	return sub
}

func (s *subscription) wants(ev models.PtyEvent) bool {
	return s.session == "" || s.session == ev.ID
}

func (s *subscription) push(ev models.PtyEvent, abort <-chan struct{}) {
	for {
		s.mu.Lock()
		if s.stopped {
			s.mu.Unlock()
			return
		}
		if len(s.queue) == 0 || s.queued+len(ev.Data) <= maxQueuedBytes {
			s.queue = append(s.queue, ev)
			s.queued += len(ev.Data)
			s.mu.Unlock()
			notify(s.ready)
			return
		}
		s.mu.Unlock()

		select {
		case <-s.space:
		case <-s.stop:
			return
		case <-abort:
			return
		}
	}
}

// pump moves queued events to out and closes it once cancelled.
func (s *subscription) pump() {
	defer close(s.out)
	for {
		s.mu.Lock()
		if len(s.queue) == 0 {
			s.mu.Unlock()
			select {
			case <-s.ready:
				continue
			case <-s.stop:
				return
			}
		}
		ev := s.queue[0]
		s.queue[0] = models.PtyEvent{}
		s.queue = s.queue[1:]
		s.queued -= len(ev.Data)
		s.mu.Unlock()
		notify(s.space)

		select {
		case s.out <- ev:
		case <-s.stop:
			return
		}
	}
}

func (s *subscription) cancel() {
	s.once.Do(func() {
		s.mu.Lock()
		s.stopped = true
		s.queue = nil
		s.mu.Unlock()
		close(s.stop)
	})
}

func notify(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}
