// Package players tracks the host-controlled alive/killed flag.
package players

import (
	"errors"
	"sync"

	"github.com/vovakirdan/huddle-server/internal/core"
)

var (
	// ErrNotHost is returned when a non-host attempts a host-only mutation.
	ErrNotHost = errors.New("only the host can change player states")
	// ErrTargetIsHost is returned when the host is targeted by a kill.
	ErrTargetIsHost = errors.New("the host cannot be killed")
)

// Store holds the killed set. Identities are alive unless marked killed.
type Store struct {
	mu     sync.Mutex
	killed map[string]bool
	bus    core.Publisher
}

// New creates an empty store that publishes on bus.
func New(bus core.Publisher) *Store {
	return &Store{
		killed: make(map[string]bool),
		bus:    bus,
	}
}

// MarkKilled marks target as killed on behalf of the host.
func (s *Store) MarkKilled(actor, target core.Identity) error {
	if !actor.IsHost() {
		return ErrNotHost
	}
	if target.IsHost() {
		return ErrTargetIsHost
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.killed[target.ID] = true
	s.publishLocked()
	return nil
}

// MarkAlive revives target on behalf of the host.
func (s *Store) MarkAlive(actor, target core.Identity) error {
	if !actor.IsHost() {
		return ErrNotHost
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.killed, target.ID)
	s.publishLocked()
	return nil
}

// ResetAll revives everyone on behalf of the host.
func (s *Store) ResetAll(actor core.Identity) error {
	if !actor.IsHost() {
		return ErrNotHost
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	clear(s.killed)
	s.publishLocked()
	return nil
}

// IsKilled reports whether id is in the killed set.
func (s *Store) IsKilled(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.killed[id]
}

// Remove forgets id. A snapshot is published only if id was killed.
func (s *Store) Remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.killed[id] {
		return
	}
	delete(s.killed, id)
	s.publishLocked()
}

// Rename carries the flag for from over to to.
func (s *Store) Rename(from, to string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.killed[from] {
		return
	}
	delete(s.killed, from)
	s.killed[to] = true
	s.publishLocked()
}

// Snapshot returns a copy of the killed set.
func (s *Store) Snapshot() map[string]bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Store) snapshotLocked() map[string]bool {
	out := make(map[string]bool, len(s.killed))
	for id, killed := range s.killed {
		if killed {
			out[id] = true
		}
	}
	return out
}

func (s *Store) publishLocked() {
	if s.bus == nil {
		return
	}
	s.bus.Publish(core.Event{Kind: core.EventPlayerStatesChanged, Killed: s.snapshotLocked()})
}
