// Package camera tracks the per-identity camera on/off flag.
package camera

import (
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/vovakirdan/huddle-server/internal/core"
)

type entry struct {
	enabled   bool
	changedAt time.Time
	changed   bool // false until the first effective Set
}

// Store holds camera flags and publishes targeted deltas on the bus.
type Store struct {
	mu          sync.Mutex
	entries     map[string]*entry
	bus         core.Publisher
	clock       clock.Clock
	debounce    time.Duration
	removeDelay time.Duration
}

// Options tunes the store timings.
type Options struct {
	Debounce    time.Duration
	RemoveDelay time.Duration
	Clock       clock.Clock
}

// New creates a camera store that publishes on bus.
func New(bus core.Publisher, opts Options) *Store {
	clk := opts.Clock
	if clk == nil {
		clk = clock.New()
	}
	return &Store{
		entries:     make(map[string]*entry),
		bus:         bus,
		clock:       clk,
		debounce:    opts.Debounce,
		removeDelay: opts.RemoveDelay,
	}
}

// Get returns the flag for id and whether one is recorded.
func (s *Store) Get(id string) (enabled, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[id]
	if !ok {
		return false, false
	}
	return e.enabled, true
}

// Set records a camera change. It reports whether the change took effect; unchanged
// values and updates inside the debounce window are ignored.
func (s *Store) Set(id string, enabled bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	e, ok := s.entries[id]
	if !ok {
		e = &entry{}
		s.entries[id] = e
	}
	if e.enabled == enabled {
		return false
	}
	if e.changed && now.Sub(e.changedAt) < s.debounce {
		return false
	}

	e.enabled = enabled
	e.changedAt = now
	e.changed = true
	s.publish(id, enabled)
	return true
}

// ForceOff turns the camera off regardless of the debounce window.
func (s *Store) ForceOff(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[id]
	if !ok || !e.enabled {
		return false
	}
	e.enabled = false
	e.changedAt = s.clock.Now()
	e.changed = true
	s.publishEvent(core.Event{Kind: core.EventCameraChanged, Identity: id, Forced: true})
	return true
}

// InitializeDefault records false for id unless a value already exists.
func (s *Store) InitializeDefault(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[id]; !ok {
		s.entries[id] = &entry{}
	}
}

// Remove drops the entry for id. The off delta is published after the remove delay
// so it cannot overtake an identity hand-off still in flight.
func (s *Store) Remove(id string) {
	s.mu.Lock()
	_, ok := s.entries[id]
	delete(s.entries, id)
	s.mu.Unlock()

	if !ok {
		return
	}
	if s.removeDelay <= 0 {
		s.publishRemoved(id)
		return
	}
	s.clock.AfterFunc(s.removeDelay, func() { s.publishRemoved(id) })
}

// Rename moves the flag recorded for from over to to. The new identity's value is
// published right away; the off delta for from follows after the remove delay.
func (s *Store) Rename(from, to string) bool {
	s.mu.Lock()
	e, ok := s.entries[from]
	if !ok {
		s.mu.Unlock()
		return false
	}
	delete(s.entries, from)
	s.entries[to] = e
	s.publish(to, e.enabled)
	s.mu.Unlock()

	if e.enabled {
		s.clock.AfterFunc(s.removeDelay, func() { s.publishRemoved(from) })
	}
	return true
}

// Snapshot returns every recorded flag except the one for exclude.
func (s *Store) Snapshot(exclude string) map[string]bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]bool, len(s.entries))
	for id, e := range s.entries {
		if id == exclude {
			continue
		}
		out[id] = e.enabled
	}
	return out
}

func (s *Store) publishRemoved(id string) {
	// A re-registration during the delay owns the flag now.
	s.mu.Lock()
	_, back := s.entries[id]
	s.mu.Unlock()
	if back {
		return
	}
	s.publish(id, false)
}

func (s *Store) publish(id string, enabled bool) {
	s.publishEvent(core.Event{Kind: core.EventCameraChanged, Identity: id, Enabled: enabled})
}

func (s *Store) publishEvent(ev core.Event) {
	if s.bus == nil {
		return
	}
	s.bus.Publish(ev)
}
