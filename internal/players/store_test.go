package players

import (
	"errors"
	"testing"

	"github.com/vovakirdan/huddle-server/internal/core"
)

type recordingBus struct {
	events []core.Event
}

func (b *recordingBus) Publish(ev core.Event) { b.events = append(b.events, ev) }

var (
	hostA   = core.Identity{ID: "Host-A", Role: core.RoleHost}
	playerB = core.Identity{ID: "Player-B", Role: core.RoleParticipant}
	playerC = core.Identity{ID: "Player-C", Role: core.RoleParticipant}
)

func TestHostKillsPlayer(t *testing.T) {
	bus := &recordingBus{}
	s := New(bus)

	if err := s.MarkKilled(hostA, playerB); err != nil {
		t.Fatalf("kill: %v", err)
	}
	if !s.IsKilled("Player-B") {
		t.Fatalf("Player-B should be killed")
	}
	if len(bus.events) != 1 {
		t.Fatalf("expected one snapshot, got %d", len(bus.events))
	}
	snap := bus.events[0].Killed
	if len(snap) != 1 || !snap["Player-B"] {
		t.Fatalf("unexpected killed snapshot %v", snap)
	}
}

func TestMutationsRequireHost(t *testing.T) {
	bus := &recordingBus{}
	s := New(bus)

	if err := s.MarkKilled(playerB, playerC); !errors.Is(err, ErrNotHost) {
		t.Fatalf("expected ErrNotHost from kill, got %v", err)
	}
	if err := s.MarkAlive(playerB, playerC); !errors.Is(err, ErrNotHost) {
		t.Fatalf("expected ErrNotHost from revive, got %v", err)
	}
	if err := s.ResetAll(playerB); !errors.Is(err, ErrNotHost) {
		t.Fatalf("expected ErrNotHost from reset, got %v", err)
	}
	if err := s.MarkKilled(hostA, hostA); !errors.Is(err, ErrTargetIsHost) {
		t.Fatalf("expected ErrTargetIsHost, got %v", err)
	}
	if len(bus.events) != 0 {
		t.Fatalf("failed mutations must not publish, got %d events", len(bus.events))
	}
	if s.IsKilled("Player-C") || s.IsKilled("Host-A") {
		t.Fatalf("state must be unchanged")
	}
}

func TestReviveAndReset(t *testing.T) {
	s := New(nil)
	_ = s.MarkKilled(hostA, playerB)
	_ = s.MarkKilled(hostA, playerC)

	if err := s.MarkAlive(hostA, playerB); err != nil {
		t.Fatalf("revive: %v", err)
	}
	if s.IsKilled("Player-B") || !s.IsKilled("Player-C") {
		t.Fatalf("unexpected state after revive: %v", s.Snapshot())
	}

	if err := s.ResetAll(hostA); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if len(s.Snapshot()) != 0 {
		t.Fatalf("expected empty killed set, got %v", s.Snapshot())
	}
}

func TestRemoveAndRename(t *testing.T) {
	bus := &recordingBus{}
	s := New(bus)
	_ = s.MarkKilled(hostA, playerB)

	s.Rename("Player-B", "Player-B2")
	if s.IsKilled("Player-B") || !s.IsKilled("Player-B2") {
		t.Fatalf("rename should move the flag")
	}

	published := len(bus.events)
	s.Remove("nobody")
	if len(bus.events) != published {
		t.Fatalf("removing an alive identity must not publish")
	}
	s.Remove("Player-B2")
	if s.IsKilled("Player-B2") || len(bus.events) != published+1 {
		t.Fatalf("remove should clear and publish once")
	}
}
