package http

import (
	"bytes"
	"context"
	stdhttp "net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/huddle-server/internal/callengine"
	"github.com/vovakirdan/huddle-server/internal/camera"
	"github.com/vovakirdan/huddle-server/internal/config"
	"github.com/vovakirdan/huddle-server/internal/core"
	"github.com/vovakirdan/huddle-server/internal/log"
	"github.com/vovakirdan/huddle-server/internal/players"
	"github.com/vovakirdan/huddle-server/internal/presence"
	"github.com/vovakirdan/huddle-server/internal/proto"
	"github.com/vovakirdan/huddle-server/internal/seats"
	"github.com/vovakirdan/huddle-server/internal/store"
)

type fakeEngine struct{}

func (fakeEngine) GenerateJoinInfo(_ context.Context, identity, room string) (*callengine.JoinInfo, error) {
	return &callengine.JoinInfo{URL: "wss://media.test", Token: "tok-" + identity, RoomName: room, Identity: identity}, nil
}

// startTestServer runs the full HTTP stack over an in-process registry.
func startTestServer(t *testing.T, mutate func(*config.Config), engine callengine.Engine) (*httptest.Server, *presence.Registry) {
	t.Helper()
	ts, reg, _ := startServer(t, serverSetup{mutate: mutate, engine: engine})
	return ts, reg
}

type serverSetup struct {
	mutate    func(*config.Config)
	engine    callengine.Engine
	logger    *zerolog.Logger
	lastSeats store.LastSeatStore
}

func startServer(t *testing.T, setup serverSetup) (*httptest.Server, *presence.Registry, *stdhttp.Server) {
	t.Helper()

	cfg := config.Default()
	cfg.ReadHeaderTimeout = time.Second
	if setup.mutate != nil {
		setup.mutate(&cfg)
	}

	logger := setup.logger
	if logger == nil {
		logger = log.Nop()
	}
	bus := core.NewBus()
	reg := presence.New(presence.Deps{
		Bus:       bus,
		Seats:     seats.New(cfg.SeatCount, bus),
		Camera:    camera.New(bus, camera.Options{Debounce: cfg.CameraDebounce, RemoveDelay: cfg.CameraRemoveDelay}),
		Players:   players.New(bus),
		LastSeats: setup.lastSeats,
		Logger:    logger,
	}, presence.Options{
		Room:                cfg.Room,
		HostPrefix:          cfg.HostPrefix,
		GraceWindow:         cfg.GraceWindow,
		HeartbeatInterval:   cfg.HeartbeatInterval,
		InactivityThreshold: cfg.InactivityThreshold,
	})
	t.Cleanup(reg.Wait)

	server := NewServer(reg, setup.engine, &cfg, logger)
	ts := httptest.NewServer(server.Handler)
	t.Cleanup(ts.Close)
	return ts, reg, server
}

// syncBuffer collects log output written from handler goroutines.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func dial(t *testing.T, ctx context.Context, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	wsURL := strings.Replace(ts.URL, "http", "ws", 1) + "/ws"
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close(websocket.StatusNormalClosure, "done") })
	return conn
}

func send(t *testing.T, ctx context.Context, conn *websocket.Conn, msg proto.Inbound) {
	t.Helper()
	if err := wsjson.Write(ctx, conn, msg); err != nil {
		t.Fatalf("write %s: %v", msg.Type, err)
	}
}

// readUntil reads frames until one of typ arrives and returns it.
func readUntil(t *testing.T, ctx context.Context, conn *websocket.Conn, typ string) proto.Frame {
	t.Helper()
	for {
		var f proto.Frame
		if err := wsjson.Read(ctx, conn, &f); err != nil {
			t.Fatalf("waiting for %s: %v", typ, err)
		}
		if f.Type == typ {
			return f
		}
	}
}

func registerAs(t *testing.T, ctx context.Context, conn *websocket.Conn, userID string) proto.Frame {
	t.Helper()
	send(t, ctx, conn, proto.Inbound{Type: proto.InboundTypeRegister, UserID: userID})
	return readUntil(t, ctx, conn, proto.OutboundTypeRegistered)
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("condition not met in time")
}
