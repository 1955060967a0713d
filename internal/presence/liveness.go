package presence

import (
	"context"
	"time"
)

// Sweep sends a ping to every open connection and marks identities that have
// been silent past the inactivity threshold. An identity turning inactive has
// its camera forced off once; its seat is untouched.
func (r *Registry) Sweep() {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.clock.Now()
	for _, p := range r.participants {
		if len(p.conns) == 0 {
			continue
		}
		for _, conn := range p.conns {
			r.send(conn, pingFrame)
		}
		if p.inactive || now.Sub(p.lastActivity) <= r.opts.InactivityThreshold {
			continue
		}
		p.inactive = true
		r.camera.ForceOff(p.identity.ID)
		r.log.Info().
			Str("user_id", p.identity.ID).
			Dur("silent_for", now.Sub(p.lastActivity)).
			Msg("participant inactive, camera forced off")
	}
}

// Audit repairs the seat mapping if it ever drifted out of sync.
func (r *Registry) Audit() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.seats.RepairIntegrity() {
		r.log.Warn().Msg("seat mapping repaired")
	}
}

// Run drives the heartbeat and integrity tickers until ctx is done.
func (r *Registry) Run(ctx context.Context) {
	heartbeat := r.clock.Ticker(r.opts.HeartbeatInterval)
	defer heartbeat.Stop()

	var audit <-chan time.Time
	if r.opts.IntegrityInterval > 0 {
		t := r.clock.Ticker(r.opts.IntegrityInterval)
		defer t.Stop()
		audit = t.C
	}

	r.log.Info().
		Dur("heartbeat", r.opts.HeartbeatInterval).
		Dur("inactivity", r.opts.InactivityThreshold).
		Dur("grace", r.opts.GraceWindow).
		Msg("presence loop started")

	for {
		select {
		case <-ctx.Done():
			r.shutdown()
			return
		case <-heartbeat.C:
			r.Sweep()
		case <-audit:
			r.Audit()
		}
	}
}

// shutdown stops pending grace timers and last-seat writes. Connections are
// closed by the transport.
func (r *Registry) shutdown() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stopped = true
	for _, p := range r.participants {
		p.generation++
		if p.graceTimer != nil {
			p.graceTimer.Stop()
			p.graceTimer = nil
		}
	}
	r.log.Info().Int("participants", len(r.participants)).Msg("presence loop stopped")
}
