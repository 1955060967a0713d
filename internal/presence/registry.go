// Package presence owns connection lifecycle, liveness and message routing
// for the seat, camera and player stores.
package presence

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/huddle-server/internal/camera"
	"github.com/vovakirdan/huddle-server/internal/core"
	"github.com/vovakirdan/huddle-server/internal/players"
	"github.com/vovakirdan/huddle-server/internal/proto"
	"github.com/vovakirdan/huddle-server/internal/seats"
	"github.com/vovakirdan/huddle-server/internal/store"
)

const lastSeatTimeout = 2 * time.Second

var (
	// ErrEmptyIdentity is returned when register carries no userId.
	ErrEmptyIdentity = errors.New("userId is required")
	// ErrHostDenied is returned when a host identity fails the host secret check.
	ErrHostDenied = errors.New("host authentication failed")
)

// Conn is one duplex connection as seen by the registry.
// Send must not block; a failed send means the connection is gone.
type Conn interface {
	ID() string
	Send(msg proto.Outbound) error
}

// Authenticator checks host credentials and hands out reconnection tokens.
type Authenticator interface {
	VerifyHost(secret string) error
	IssueReconnectToken(id core.Identity) (string, error)
	ResolveReconnectToken(token string) (string, error)
}

// Options holds registry tunables.
type Options struct {
	Room                string
	HostPrefix          string
	GraceWindow         time.Duration
	HeartbeatInterval   time.Duration
	InactivityThreshold time.Duration
	IntegrityInterval   time.Duration
	Clock               clock.Clock
}

// Deps are the collaborators the registry orchestrates. LastSeats and Auth are optional.
type Deps struct {
	Bus       *core.Bus
	Seats     *seats.Allocator
	Camera    *camera.Store
	Players   *players.Store
	LastSeats store.LastSeatStore
	Auth      Authenticator
	Logger    *zerolog.Logger
}

// RegisterRequest is the content of a register frame.
type RegisterRequest struct {
	UserID         string
	PreferredSeat  int
	ReconnectToken string
	HostSecret     string
}

// Registry is the single serialization point of the engine: every registration,
// dispatched frame, timer callback and heartbeat sweep runs under mu.
type Registry struct {
	mu           sync.Mutex
	participants map[string]*participant

	opts      Options
	clock     clock.Clock
	bus       *core.Bus
	seats     *seats.Allocator
	camera    *camera.Store
	players   *players.Store
	lastSeats store.LastSeatStore
	auth      Authenticator
	log       *zerolog.Logger

	// saves tracks in-flight last-seat writes so shutdown can wait for them.
	// No write starts once stopped is set.
	saves   sync.WaitGroup
	stopped bool
}

// New builds a registry.
func New(deps Deps, opts Options) *Registry {
	clk := opts.Clock
	if clk == nil {
		clk = clock.New()
	}
	logger := deps.Logger
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Registry{
		participants: make(map[string]*participant),
		opts:         opts,
		clock:        clk,
		bus:          deps.Bus,
		seats:        deps.Seats,
		camera:       deps.Camera,
		players:      deps.Players,
		lastSeats:    deps.LastSeats,
		auth:         deps.Auth,
		log:          logger,
	}
}

// Register binds conn to the requested identity and pushes the initial state to it.
// On failure the reason is also sent to conn as operation_failed.
func (r *Registry) Register(ctx context.Context, conn Conn, req RegisterRequest) (core.Identity, error) {
	raw := strings.TrimSpace(req.UserID)
	if raw == "" {
		r.fail(conn, core.OpRegister, ErrEmptyIdentity)
		return core.Identity{}, ErrEmptyIdentity
	}
	id := core.ParseIdentity(raw, r.opts.HostPrefix)

	if id.IsHost() && r.auth != nil {
		if err := r.auth.VerifyHost(req.HostSecret); err != nil {
			r.log.Warn().Err(err).Str("user_id", id.ID).Str("conn_id", conn.ID()).Msg("host authentication failed")
			r.fail(conn, core.OpRegister, ErrHostDenied)
			return core.Identity{}, ErrHostDenied
		}
	}

	supersedes := r.resolveReconnect(req.ReconnectToken, id)

	preferred := req.PreferredSeat
	if preferred == 0 && !id.IsHost() {
		preferred = r.lookupLastSeat(ctx, id.ID)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if supersedes != "" {
		r.migrateLocked(supersedes, id)
	}

	p, known := r.participants[id.ID]
	if !known {
		p = newParticipant(id)
		r.participants[id.ID] = p
	}
	first := len(p.conns) == 0
	p.activate(r.clock.Now())

	if first {
		r.camera.InitializeDefault(id.ID)
	}

	seat, _ := r.seats.AutoAssignPreferred(id, preferred)

	p.conns[conn.ID()] = conn
	p.subs[conn.ID()] = r.subscribe(id, conn)

	token := ""
	if r.auth != nil {
		var err error
		if token, err = r.auth.IssueReconnectToken(id); err != nil {
			r.log.Warn().Err(err).Str("user_id", id.ID).Msg("failed to issue reconnect token")
		}
	}

	r.send(conn, registeredFrame(id, seat, token))
	r.send(conn, slotsFrame(r.seats.Snapshot()))
	r.send(conn, cameraStatesFrame(r.camera.Snapshot(id.ID)))
	r.send(conn, playerStatesFrame(r.players.Snapshot()))

	r.log.Info().
		Str("user_id", id.ID).
		Str("role", id.Role.String()).
		Str("conn_id", conn.ID()).
		Int("slot", seat).
		Int("connections", len(p.conns)).
		Bool("resumed", known && first).
		Msg("participant registered")

	return id, nil
}

// Unregister detaches conn from id. When the last connection goes the identity
// enters the grace window with its seat and flags intact.
func (r *Registry) Unregister(id core.Identity, conn Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.participants[id.ID]
	if !ok {
		return
	}
	if _, ok := p.conns[conn.ID()]; !ok {
		return
	}
	delete(p.conns, conn.ID())
	p.subs[conn.ID()].Close()
	delete(p.subs, conn.ID())

	if len(p.conns) > 0 {
		r.log.Debug().Str("user_id", id.ID).Str("conn_id", conn.ID()).Int("connections", len(p.conns)).Msg("connection closed")
		return
	}

	gen := p.enterGrace()
	p.graceTimer = r.clock.AfterFunc(r.opts.GraceWindow, func() { r.expire(id.ID, gen) })
	r.log.Info().Str("user_id", id.ID).Dur("grace", r.opts.GraceWindow).Msg("participant disconnected, seat reserved")
}

// Broadcast sends msg to every open connection.
func (r *Registry) Broadcast(msg proto.Outbound) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.participants {
		for _, conn := range p.conns {
			r.send(conn, msg)
		}
	}
}

// Unicast sends msg to every connection of one identity.
func (r *Registry) Unicast(id string, msg proto.Outbound) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.participants[id]; ok {
		for _, conn := range p.conns {
			r.send(conn, msg)
		}
	}
}

// State returns the lifecycle state of id. Unknown identities report StateEvicted.
func (r *Registry) State(id string) State {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.participants[id]; ok {
		return p.state
	}
	return StateEvicted
}

// Snapshot is a read-only view of the engine state.
type Snapshot struct {
	Seats        []core.SeatAssignment
	Killed       map[string]bool
	Cameras      map[string]bool
	Participants []ParticipantInfo
}

// ParticipantInfo summarizes one identity.
type ParticipantInfo struct {
	ID          string
	Role        core.Role
	State       State
	Connections int
	Inactive    bool
}

// Snapshot returns the current engine state.
func (r *Registry) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	snap := Snapshot{
		Seats:   r.seats.Snapshot(),
		Killed:  r.players.Snapshot(),
		Cameras: r.camera.Snapshot(""),
	}
	for _, p := range r.participants {
		snap.Participants = append(snap.Participants, ParticipantInfo{
			ID:          p.identity.ID,
			Role:        p.identity.Role,
			State:       p.state,
			Connections: len(p.conns),
			Inactive:    p.inactive,
		})
	}
	return snap
}

// LastSeats lists the remembered seats for the room. It returns nil without a store.
func (r *Registry) LastSeats(ctx context.Context) ([]*store.LastSeat, error) {
	if r.lastSeats == nil {
		return nil, nil
	}
	listCtx, cancel := context.WithTimeout(ctx, lastSeatTimeout)
	defer cancel()
	return r.lastSeats.ListLastSeats(listCtx, r.opts.Room)
}

// Wait blocks until pending last-seat writes finish.
func (r *Registry) Wait() {
	r.saves.Wait()
}

func (r *Registry) subscribe(id core.Identity, conn Conn) *core.Subscription {
	return r.bus.Subscribe(func(ev core.Event) {
		switch ev.Kind {
		case core.EventSeatsChanged:
			r.send(conn, slotsFrame(ev.Seats))
		case core.EventCameraChanged:
			// Participants already know their own camera state unless the server changed it.
			if ev.Identity == id.ID && !ev.Forced {
				return
			}
			r.send(conn, cameraUpdateFrame(ev.Identity, ev.Enabled))
		case core.EventPlayerStatesChanged:
			r.send(conn, playerStatesFrame(ev.Killed))
		}
	}, core.EventSeatsChanged, core.EventCameraChanged, core.EventPlayerStatesChanged)
}

// send delivers to one connection. A failure means the transport already
// dropped the connection; it will unregister on its own.
func (r *Registry) send(conn Conn, msg proto.Outbound) {
	if err := conn.Send(msg); err != nil {
		r.log.Debug().Err(err).Str("conn_id", conn.ID()).Str("type", msg.Type).Msg("skip send to closed connection")
	}
}

func (r *Registry) fail(conn Conn, operation string, err error) {
	r.send(conn, operationFailedFrame(operation, err.Error()))
}

func (r *Registry) resolveReconnect(token string, id core.Identity) string {
	if token == "" || r.auth == nil {
		return ""
	}
	prev, err := r.auth.ResolveReconnectToken(token)
	if err != nil {
		r.log.Debug().Err(err).Str("user_id", id.ID).Msg("ignoring reconnect token")
		return ""
	}
	if prev == id.ID {
		return ""
	}
	return prev
}

func (r *Registry) lookupLastSeat(ctx context.Context, id string) int {
	if r.lastSeats == nil {
		return 0
	}
	lookupCtx, cancel := context.WithTimeout(ctx, lastSeatTimeout)
	defer cancel()

	seat, err := r.lastSeats.GetLastSeat(lookupCtx, id, r.opts.Room)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			r.log.Warn().Err(err).Str("user_id", id).Msg("failed to read last seat")
		}
		return 0
	}
	return seat
}

// rememberSeat persists the seat in the background; the hint is best effort.
// Callers hold mu.
func (r *Registry) rememberSeat(id core.Identity, seat int) {
	if r.lastSeats == nil || id.IsHost() || r.stopped {
		return
	}
	r.saves.Add(1)
	go func() {
		defer r.saves.Done()
		ctx, cancel := context.WithTimeout(context.Background(), lastSeatTimeout)
		defer cancel()
		if err := r.lastSeats.SaveLastSeat(ctx, id.ID, seat, r.opts.Room); err != nil {
			r.log.Warn().Err(err).Str("user_id", id.ID).Int("slot", seat).Msg("failed to save last seat")
		}
	}()
}
