package presence

import (
	"time"

	"github.com/benbjohnson/clock"

	"github.com/vovakirdan/huddle-server/internal/core"
)

// State is the reconnection lifecycle of one identity.
type State int

const (
	// StateActive means at least one live connection.
	StateActive State = iota
	// StateGrace means no connections and the grace timer is running.
	StateGrace
	// StateEvicted means the seat, camera and player entries are gone.
	StateEvicted
)

func (s State) String() string {
	switch s {
	case StateActive:
		return "active"
	case StateGrace:
		return "grace"
	case StateEvicted:
		return "evicted"
	default:
		return "unknown"
	}
}

type participant struct {
	identity     core.Identity
	state        State
	conns        map[string]Conn
	subs         map[string]*core.Subscription
	lastActivity time.Time
	inactive     bool

	// generation is bumped on every state transition so a grace timer that fired
	// late can tell it no longer applies.
	generation uint64
	graceTimer *clock.Timer
}

func newParticipant(id core.Identity) *participant {
	return &participant{
		identity: id,
		state:    StateActive,
		conns:    make(map[string]Conn),
		subs:     make(map[string]*core.Subscription),
	}
}

func (p *participant) activate(now time.Time) {
	if p.state != StateActive {
		p.generation++
	}
	if p.graceTimer != nil {
		p.graceTimer.Stop()
		p.graceTimer = nil
	}
	p.state = StateActive
	p.lastActivity = now
	p.inactive = false
}

func (p *participant) enterGrace() uint64 {
	p.generation++
	p.state = StateGrace
	return p.generation
}

func (p *participant) touch(now time.Time) {
	p.lastActivity = now
	p.inactive = false
}
