package presence

import (
	"github.com/vovakirdan/huddle-server/internal/core"
)

// expire is the grace timer callback.
func (r *Registry) expire(id string, gen uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.participants[id]
	if !ok || p.state != StateGrace || p.generation != gen || len(p.conns) > 0 {
		return
	}
	r.evictLocked(p)
}

// evictLocked releases everything held by p. Each store publishes its own
// updated snapshot, which reaches every remaining connection.
func (r *Registry) evictLocked(p *participant) {
	p.generation++
	p.state = StateEvicted
	if p.graceTimer != nil {
		p.graceTimer.Stop()
		p.graceTimer = nil
	}
	delete(r.participants, p.identity.ID)

	r.seats.Evict(p.identity.ID)
	r.camera.Remove(p.identity.ID)
	r.players.Remove(p.identity.ID)

	r.log.Info().Str("user_id", p.identity.ID).Msg("grace window elapsed, participant evicted")
}

// migrateLocked hands the state of a grace-period identity over to its
// successor. It only applies when the old identity has no connections, the
// new one is unknown and both share a role.
func (r *Registry) migrateLocked(from string, to core.Identity) {
	prev, ok := r.participants[from]
	if !ok || prev.state != StateGrace || len(prev.conns) > 0 {
		return
	}
	if _, taken := r.participants[to.ID]; taken {
		return
	}
	if prev.identity.Role != to.Role {
		return
	}

	prev.generation++
	if prev.graceTimer != nil {
		prev.graceTimer.Stop()
		prev.graceTimer = nil
	}
	delete(r.participants, from)

	r.seats.Rename(from, to)
	r.camera.Rename(from, to.ID)
	r.players.Rename(from, to.ID)

	next := newParticipant(to)
	next.state = StateGrace
	r.participants[to.ID] = next

	r.log.Info().Str("from", from).Str("user_id", to.ID).Msg("identity migrated by reconnect token")
}
