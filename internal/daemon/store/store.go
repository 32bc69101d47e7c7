package store

import (
	"sync"
	"time"

	"github.com/grovetools/telemetry/pkg/models"
)

// Store is the in-memory state store for the daemon.
// It is thread-safe and supports pub/sub for real-time updates.
type Store struct {
	mu          sync.RWMutex
	state       *State
	subscribers map[chan Update]struct{}
	now         func() time.Time
}

// New creates a new Store instance.
func New() *Store {
	return &Store{
		state:       &State{Live: []models.ActiveSession{}},
		subscribers: make(map[chan Update]struct{}),
		now:         time.Now,
	}
}

// Get returns a copy of the current state.
func (s *Store) Get() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st := *s.state
	st.Live = append([]models.ActiveSession(nil), s.state.Live...)
	return st
}

// GetLive returns the result of the last live poll and when it ran. A zero
// time means no poll has completed yet.
func (s *Store) GetLive() ([]models.ActiveSession, time.Time) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.ActiveSession{}, s.state.Live...), s.state.LiveAt
}

// GetUsage returns the last usage report, or nil.
func (s *Store) GetUsage() *models.UsageReport {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Usage
}

// ApplyUpdate modifies the state and notifies subscribers.
func (s *Store) ApplyUpdate(u Update) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch u.Type {
	case UpdateLive:
		if live, ok := u.Payload.([]models.ActiveSession); ok {
			s.state.Live = append([]models.ActiveSession{}, live...)
			s.state.LiveAt = s.now()
		}
	case UpdateUsage:
		if report, ok := u.Payload.(*models.UsageReport); ok {
			s.state.Usage = report
			s.state.UsageAt = s.now()
		}
	case UpdatePtyExit:
		s.state.PtyExited++
	}

	s.broadcast(u)
}

// Subscribe creates a new subscription channel for state updates.
func (s *Store) Subscribe() chan Update {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch := make(chan Update, 100) // Buffered
	s.subscribers[ch] = struct{}{}
	return ch
}

// Unsubscribe removes a subscription and closes its channel.
func (s *Store) Unsubscribe(ch chan Update) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.subscribers[ch]; !ok {
		return
	}
	delete(s.subscribers, ch)
	close(ch)
}

// BroadcastConfigReload sends a config reload notification to all subscribers.
// This is used by the ConfigWatcher to notify clients when config files change.
func (s *Store) BroadcastConfigReload(file string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	s.broadcast(Update{
		Type:    UpdateConfigReload,
		Source:  "config",
		Payload: file, // The file that changed
	})
}

func (s *Store) broadcast(u Update) {
	for ch := range s.subscribers {
		select {
		case ch <- u:
		default:
			// Non-blocking send to prevent slow clients from stalling the daemon
		}
	}
}
