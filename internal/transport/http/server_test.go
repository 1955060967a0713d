package http

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket/wsjson"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/huddle-server/internal/presence"
	"github.com/vovakirdan/huddle-server/internal/proto"
	"github.com/vovakirdan/huddle-server/internal/store/sqlite"
)

func TestServerUpgradesWebSocket(t *testing.T) {
	var out syncBuffer
	logger := zerolog.New(&out).Level(zerolog.DebugLevel)
	ts, reg, _ := startServer(t, serverSetup{logger: &logger})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	conn := dial(t, ctx, ts)
	if frame := registerAs(t, ctx, conn, "alice"); frame.UserID != "alice" {
		t.Fatalf("unexpected registered frame %+v", frame)
	}

	if strings.Contains(out.String(), "ws accept error") {
		t.Fatalf("upgrade failed: %s", out.String())
	}
	if snap := reg.Snapshot(); len(snap.Seats) != 1 || snap.Seats[0].ID != "alice" {
		t.Fatalf("expected alice seated, got %+v", snap.Seats)
	}
}

func TestShutdownClosesSessions(t *testing.T) {
	ts, reg, server := startServer(t, serverSetup{})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn := dial(t, ctx, ts)
	registerAs(t, ctx, conn, "alice")

	if err := server.Shutdown(ctx); err != nil {
		t.Fatalf("shutdown: %v", err)
	}

	for {
		var f proto.Frame
		if err := wsjson.Read(ctx, conn, &f); err != nil {
			if ctx.Err() != nil {
				t.Fatalf("session still open after shutdown")
			}
			break
		}
	}
	waitFor(t, func() bool { return reg.State("alice") == presence.StateGrace })
}

func TestStateEndpointListsLastSeats(t *testing.T) {
	lastSeats, err := sqlite.New(":memory:")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = lastSeats.Close() })

	ts, _, _ := startServer(t, serverSetup{lastSeats: lastSeats})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn := dial(t, ctx, ts)
	registerAs(t, ctx, conn, "alice")
	send(t, ctx, conn, proto.Inbound{Type: proto.InboundTypeSelectSlot, SlotNumber: 5})

	waitFor(t, func() bool {
		resp, err := ts.Client().Get(ts.URL + "/api/state")
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		var state StateResponse
		if err := json.NewDecoder(resp.Body).Decode(&state); err != nil {
			return false
		}
		return state.LastSeats["alice"] == 5
	})
}
