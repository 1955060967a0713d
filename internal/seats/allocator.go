// Package seats owns the bijective identity to seat mapping.
package seats

import (
	"errors"
	"math/rand/v2"
	"sort"
	"sync"

	"github.com/vovakirdan/huddle-server/internal/core"
)

// Common errors for seat operations.
var (
	ErrSeatOutOfRange   = errors.New("seat out of range")
	ErrHostSeatReserved = errors.New("seat is reserved for the host")
	ErrHostSeatLocked   = errors.New("host cannot leave the host seat")
	ErrSeatOccupied     = errors.New("seat is occupied")
	ErrNoSeat           = errors.New("identity holds no seat")
	ErrNotHost          = errors.New("only the host can do that")
	ErrTargetIsHost     = errors.New("the host cannot be moved")
)

// Allocator assigns numbered seats [1, N] to identities. Seat N belongs to the host.
type Allocator struct {
	mu      sync.Mutex
	size    int
	bySeat  map[int]core.Identity
	byID    map[string]int
	bus     core.Publisher
	shuffle func(n int, swap func(i, j int))
}

// New creates an allocator with size seats that publishes on bus.
func New(size int, bus core.Publisher) *Allocator {
	return &Allocator{
		size:    size,
		bySeat:  make(map[int]core.Identity, size),
		byID:    make(map[string]int, size),
		bus:     bus,
		shuffle: rand.Shuffle,
	}
}

// Size returns the number of seats.
func (a *Allocator) Size() int { return a.size }

// HostSeat returns the seat reserved for the host.
func (a *Allocator) HostSeat() int { return a.size }

// Assign moves id to seat, vacating any seat it held before.
func (a *Allocator) Assign(id core.Identity, seat int) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if seat < 1 || seat > a.size {
		return ErrSeatOutOfRange
	}
	if seat == a.HostSeat() && !id.IsHost() {
		return ErrHostSeatReserved
	}
	current, seated := a.byID[id.ID]
	if id.IsHost() && seated && current == a.HostSeat() && seat != a.HostSeat() {
		return ErrHostSeatLocked
	}
	if occupant, taken := a.bySeat[seat]; taken && occupant.ID != id.ID {
		return ErrSeatOccupied
	}
	if seated && current == seat {
		return nil
	}

	a.vacateLocked(id.ID)
	a.installLocked(id, seat)
	a.publishLocked()
	return nil
}

// Release frees the seat held by id. The host cannot release the host seat.
func (a *Allocator) Release(id core.Identity) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	seat, ok := a.byID[id.ID]
	if !ok {
		return ErrNoSeat
	}
	if id.IsHost() && seat == a.HostSeat() {
		return ErrHostSeatLocked
	}
	a.vacateLocked(id.ID)
	a.publishLocked()
	return nil
}

// Evict removes id from its seat unconditionally, host included.
// It is reserved for grace-window expiry.
func (a *Allocator) Evict(id string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	if _, ok := a.byID[id]; !ok {
		return false
	}
	a.vacateLocked(id)
	a.publishLocked()
	return true
}

// AutoAssignFirstAvailable returns the seat held by id, seating it first if needed.
// A host always lands on the host seat, evicting whoever sits there.
func (a *Allocator) AutoAssignFirstAvailable(id core.Identity) (int, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.autoAssignLocked(id)
}

// AutoAssignPreferred seats id on preferred when that seat is free and allowed,
// falling back to AutoAssignFirstAvailable. An already seated identity keeps its seat.
func (a *Allocator) AutoAssignPreferred(id core.Identity, preferred int) (int, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if seat, ok := a.byID[id.ID]; ok {
		return seat, true
	}
	if !id.IsHost() && preferred >= 1 && preferred < a.HostSeat() {
		if _, taken := a.bySeat[preferred]; !taken {
			a.installLocked(id, preferred)
			a.publishLocked()
			return preferred, true
		}
	}
	return a.autoAssignLocked(id)
}

func (a *Allocator) autoAssignLocked(id core.Identity) (int, bool) {
	if seat, ok := a.byID[id.ID]; ok {
		return seat, true
	}

	if id.IsHost() {
		if occupant, taken := a.bySeat[a.HostSeat()]; taken {
			delete(a.byID, occupant.ID)
		}
		a.installLocked(id, a.HostSeat())
		a.publishLocked()
		return a.HostSeat(), true
	}

	for seat := 1; seat < a.HostSeat(); seat++ {
		if _, taken := a.bySeat[seat]; !taken {
			a.installLocked(id, seat)
			a.publishLocked()
			return seat, true
		}
	}
	return 0, false
}

// Move relocates target to seat on behalf of the host. A displaced occupant
// takes target's previous seat, or becomes unseated if target had none.
func (a *Allocator) Move(actor, target core.Identity, seat int) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !actor.IsHost() {
		return ErrNotHost
	}
	if target.IsHost() {
		return ErrTargetIsHost
	}
	if seat < 1 || seat > a.size {
		return ErrSeatOutOfRange
	}
	if seat == a.HostSeat() {
		return ErrHostSeatReserved
	}

	previous, seated := a.byID[target.ID]
	if seated && previous == seat {
		return nil
	}
	occupant, taken := a.bySeat[seat]

	a.vacateLocked(target.ID)
	if taken {
		a.vacateLocked(occupant.ID)
		if seated {
			a.installLocked(occupant, previous)
		}
	}
	a.installLocked(target, seat)
	a.publishLocked()
	return nil
}

// Shuffle redistributes every non-host occupant across the non-host seats so
// that each lands somewhere new. The host seat is untouched.
func (a *Allocator) Shuffle(actor core.Identity) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !actor.IsHost() {
		return ErrNotHost
	}

	open := a.HostSeat() - 1
	occupants := make([]core.Identity, 0, open)
	previous := make([]int, 0, open)
	for seat := 1; seat <= open; seat++ {
		if occupant, ok := a.bySeat[seat]; ok {
			occupants = append(occupants, occupant)
			previous = append(previous, seat)
		}
	}
	if len(occupants) == 0 {
		return nil
	}

	targets := make([]int, open)
	for i := range targets {
		targets[i] = i + 1
	}
	a.shuffle(len(targets), func(i, j int) { targets[i], targets[j] = targets[j], targets[i] })

	k := len(occupants)
	for i := 0; i < k; i++ {
		if targets[i] != previous[i] {
			continue
		}
		// Any swap fixes i: its new target differs from the old one because
		// targets are distinct, and the partner receives a seat it never held.
		switch {
		case k > 1:
			j := (i + 1) % k
			targets[i], targets[j] = targets[j], targets[i]
		case open > 1:
			targets[i], targets[k] = targets[k], targets[i]
		}
	}

	for i, occupant := range occupants {
		delete(a.bySeat, previous[i])
		delete(a.byID, occupant.ID)
	}
	for i, occupant := range occupants {
		a.installLocked(occupant, targets[i])
	}
	a.publishLocked()
	return nil
}

// Snapshot returns the current mapping ordered by seat.
func (a *Allocator) Snapshot() []core.SeatAssignment {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.snapshotLocked()
}

// SeatOf returns the seat held by id.
func (a *Allocator) SeatOf(id string) (int, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	seat, ok := a.byID[id]
	return seat, ok
}

// OccupantOf returns the identity sitting on seat.
func (a *Allocator) OccupantOf(seat int) (core.Identity, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	occupant, ok := a.bySeat[seat]
	return occupant, ok
}

// Rename carries the seat held by from over to the identity to.
func (a *Allocator) Rename(from string, to core.Identity) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	seat, ok := a.byID[from]
	if !ok {
		return false
	}
	if _, taken := a.byID[to.ID]; taken {
		return false
	}
	if seat == a.HostSeat() && !to.IsHost() {
		return false
	}
	a.vacateLocked(from)
	a.installLocked(to, seat)
	a.publishLocked()
	return true
}

// RepairIntegrity re-establishes the mutual inverse between both maps,
// treating the seat map as the side of record. It reports whether anything changed.
func (a *Allocator) RepairIntegrity() bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	changed := false

	seatsInOrder := make([]int, 0, len(a.bySeat))
	for seat := range a.bySeat {
		seatsInOrder = append(seatsInOrder, seat)
	}
	sort.Ints(seatsInOrder)

	// The lowest seat wins when one identity appears on several seats.
	claimed := make(map[string]int, len(a.bySeat))
	for _, seat := range seatsInOrder {
		occupant := a.bySeat[seat]
		_, dup := claimed[occupant.ID]
		invalid := seat < 1 || seat > a.size || (seat == a.HostSeat() && !occupant.IsHost())
		if invalid || dup {
			delete(a.bySeat, seat)
			changed = true
			continue
		}
		claimed[occupant.ID] = seat
	}

	if len(claimed) != len(a.byID) {
		changed = true
	}
	for id, seat := range claimed {
		if current, ok := a.byID[id]; !ok || current != seat {
			changed = true
		}
	}
	a.byID = claimed

	if changed {
		a.publishLocked()
	}
	return changed
}

func (a *Allocator) vacateLocked(id string) {
	if seat, ok := a.byID[id]; ok {
		delete(a.bySeat, seat)
		delete(a.byID, id)
	}
}

func (a *Allocator) installLocked(id core.Identity, seat int) {
	a.bySeat[seat] = id
	a.byID[id.ID] = seat
}

func (a *Allocator) snapshotLocked() []core.SeatAssignment {
	out := make([]core.SeatAssignment, 0, len(a.bySeat))
	for seat, occupant := range a.bySeat {
		out = append(out, core.SeatAssignment{ID: occupant.ID, Seat: seat})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Seat < out[j].Seat })
	return out
}

func (a *Allocator) publishLocked() {
	if a.bus == nil {
		return
	}
	a.bus.Publish(core.Event{Kind: core.EventSeatsChanged, Seats: a.snapshotLocked()})
}
