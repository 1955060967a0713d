package core

import "sync"

// EventKind is a notification the state stores emit on the bus.
type EventKind int

const (
	// EventSeatsChanged carries a full seat snapshot.
	EventSeatsChanged EventKind = iota
	// EventCameraChanged carries a single-identity camera delta.
	EventCameraChanged
	// EventPlayerStatesChanged carries a full killed-set snapshot.
	EventPlayerStatesChanged
)

func (k EventKind) String() string {
	switch k {
	case EventSeatsChanged:
		return "seats_changed"
	case EventCameraChanged:
		return "camera_changed"
	case EventPlayerStatesChanged:
		return "player_states_changed"
	default:
		return "unknown"
	}
}

// Event describes a state change published on the bus.
type Event struct {
	Kind EventKind

	// Seats is set for EventSeatsChanged.
	Seats []SeatAssignment

	// Identity and Enabled are set for EventCameraChanged. Forced marks a
	// server-side change the identity's own connections have not seen yet.
	Identity string
	Enabled  bool
	Forced   bool

	// Killed is set for EventPlayerStatesChanged; only killed identities appear.
	Killed map[string]bool
}

// Handler consumes published events. It runs on the publisher's goroutine and must not block.
type Handler func(Event)

// Publisher is the write side of the bus, as seen by the state stores.
type Publisher interface {
	Publish(ev Event)
}

// Bus is an in-process publish/subscribe mediator.
type Bus struct {
	mu     sync.RWMutex
	nextID uint64
	subs   map[uint64]*Subscription
}

// Subscription is a handle returned by Subscribe.
type Subscription struct {
	id      uint64
	bus     *Bus
	kinds   map[EventKind]struct{}
	handler Handler
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[uint64]*Subscription)}
}

// Subscribe registers handler for the given kinds (all kinds if none are given).
func (b *Bus) Subscribe(handler Handler, kinds ...EventKind) *Subscription {
	sub := &Subscription{bus: b, handler: handler}
	if len(kinds) > 0 {
		sub.kinds = make(map[EventKind]struct{}, len(kinds))
		for _, k := range kinds {
			sub.kinds[k] = struct{}{}
		}
	}

	b.mu.Lock()
	b.nextID++
	sub.id = b.nextID
	b.subs[sub.id] = sub
	b.mu.Unlock()
	return sub
}

// Publish delivers ev to every matching subscriber before returning.
func (b *Bus) Publish(ev Event) {
	b.mu.RLock()
	targets := make([]*Subscription, 0, len(b.subs))
	for _, sub := range b.subs {
		if sub.matches(ev.Kind) {
			targets = append(targets, sub)
		}
	}
	b.mu.RUnlock()

	// Handlers may close subscriptions, so they run outside the lock.
	for _, sub := range targets {
		sub.handler(ev)
	}
}

// Len returns the number of live subscriptions.
func (b *Bus) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Close removes the subscription. Safe to call more than once.
func (s *Subscription) Close() {
	if s == nil || s.bus == nil {
		return
	}
	s.bus.mu.Lock()
	delete(s.bus.subs, s.id)
	s.bus.mu.Unlock()
}

func (s *Subscription) matches(kind EventKind) bool {
	if s.kinds == nil {
		return true
	}
	_, ok := s.kinds[kind]
	return ok
}

// Ensure Bus implements Publisher
var _ Publisher = (*Bus)(nil)
