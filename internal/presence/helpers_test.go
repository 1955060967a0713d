package presence

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/vovakirdan/huddle-server/internal/auth"
	"github.com/vovakirdan/huddle-server/internal/camera"
	"github.com/vovakirdan/huddle-server/internal/core"
	"github.com/vovakirdan/huddle-server/internal/players"
	"github.com/vovakirdan/huddle-server/internal/proto"
	"github.com/vovakirdan/huddle-server/internal/seats"
	"github.com/vovakirdan/huddle-server/internal/store"
)

var errConnClosed = errors.New("connection closed")

type fakeConn struct {
	id string

	mu     sync.Mutex
	frames []proto.Outbound
	closed bool
}

func newFakeConn(id string) *fakeConn { return &fakeConn{id: id} }

func (c *fakeConn) ID() string { return c.id }

func (c *fakeConn) Send(msg proto.Outbound) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return errConnClosed
	}
	c.frames = append(c.frames, msg)
	return nil
}

func (c *fakeConn) close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
}

func (c *fakeConn) reset() {
	c.mu.Lock()
	c.frames = nil
	c.mu.Unlock()
}

func (c *fakeConn) ofType(typ string) []proto.Outbound {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []proto.Outbound
	for _, f := range c.frames {
		if f.Type == typ {
			out = append(out, f)
		}
	}
	return out
}

func (c *fakeConn) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.frames)
}

// last returns the most recent frame of typ, failing the test if none arrived.
func (c *fakeConn) last(t *testing.T, typ string) proto.Outbound {
	t.Helper()
	frames := c.ofType(typ)
	if len(frames) == 0 {
		t.Fatalf("conn %s: no %s frame received", c.id, typ)
	}
	return frames[len(frames)-1]
}

type memLastSeats struct {
	mu    sync.Mutex
	seats map[string]int
}

func newMemLastSeats() *memLastSeats { return &memLastSeats{seats: make(map[string]int)} }

func (m *memLastSeats) GetLastSeat(_ context.Context, identity, room string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	seat, ok := m.seats[room+"/"+identity]
	if !ok {
		return 0, store.ErrNotFound
	}
	return seat, nil
}

func (m *memLastSeats) SaveLastSeat(_ context.Context, identity string, seat int, room string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seats[room+"/"+identity] = seat
	return nil
}

func (m *memLastSeats) ListLastSeats(_ context.Context, room string) ([]*store.LastSeat, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*store.LastSeat
	for key, seat := range m.seats {
		if len(key) > len(room) && key[:len(room)+1] == room+"/" {
			out = append(out, &store.LastSeat{Identity: key[len(room)+1:], Room: room, Seat: seat})
		}
	}
	return out, nil
}

type testEnv struct {
	reg       *Registry
	clock     *clock.Mock
	seats     *seats.Allocator
	camera    *camera.Store
	players   *players.Store
	lastSeats *memLastSeats
	auth      *auth.Service
}

func newTestEnv(t testing.TB) *testEnv {
	t.Helper()
	clk := clock.NewMock()
	bus := core.NewBus()
	env := &testEnv{
		clock:     clk,
		seats:     seats.New(12, bus),
		camera:    camera.New(bus, camera.Options{Debounce: 500 * time.Millisecond, RemoveDelay: 250 * time.Millisecond, Clock: clk}),
		players:   players.New(bus),
		lastSeats: newMemLastSeats(),
		auth:      auth.NewService(auth.NewJWTConfig("test-secret", time.Hour), "", clk),
	}
	env.reg = New(Deps{
		Bus:       bus,
		Seats:     env.seats,
		Camera:    env.camera,
		Players:   env.players,
		LastSeats: env.lastSeats,
		Auth:      env.auth,
	}, Options{
		Room:                "main",
		HostPrefix:          "Host-",
		GraceWindow:         60 * time.Second,
		HeartbeatInterval:   10 * time.Second,
		InactivityThreshold: 30 * time.Second,
		IntegrityInterval:   30 * time.Second,
		Clock:               clk,
	})
	t.Cleanup(env.reg.Wait)
	return env
}

func (e *testEnv) register(t *testing.T, userID string) (core.Identity, *fakeConn) {
	t.Helper()
	conn := newFakeConn(userID + "-conn")
	id, err := e.reg.Register(context.Background(), conn, RegisterRequest{UserID: userID})
	if err != nil {
		t.Fatalf("register %s: %v", userID, err)
	}
	return id, conn
}

func (e *testEnv) send(id core.Identity, conn *fakeConn, msg proto.Inbound) {
	e.reg.Dispatch(context.Background(), id, conn, msg)
}

func slotsOf(t *testing.T, f proto.Outbound) map[string]int {
	t.Helper()
	update, ok := f.Payload.(proto.SlotsUpdate)
	if !ok {
		t.Fatalf("unexpected slots payload %T", f.Payload)
	}
	out := make(map[string]int, len(update.Slots))
	for _, s := range update.Slots {
		out[s.UserID] = s.SlotNumber
	}
	return out
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met in time")
}
