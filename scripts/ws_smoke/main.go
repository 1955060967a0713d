package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/vovakirdan/huddle-server/internal/proto"
)

func main() {
	if err := run(); err != nil {
		log.Printf("ws_smoke: %v", err)
		os.Exit(1)
	}
}

func run() error {
	addr := flag.String("addr", "ws://localhost:8080/ws", "WebSocket address")
	user := flag.String("user", "tester", "userId to register with")
	seat := flag.Int("seat", 0, "preferred seat (0 for first free)")
	hostSecret := flag.String("host-secret", "", "host secret for host identities")
	timeout := flag.Duration("timeout", 5*time.Second, "total timeout for the run")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, *addr, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "bye")

	if err := wsjson.Write(ctx, conn, proto.Inbound{
		Type:          proto.InboundTypeRegister,
		UserID:        *user,
		PreferredSeat: *seat,
		HostSecret:    *hostSecret,
	}); err != nil {
		return fmt.Errorf("send register: %w", err)
	}

	// The initial push is registered, slots, cameras, players.
	want := map[string]bool{
		proto.OutboundTypeRegistered:   false,
		proto.OutboundTypeSlotsUpdate:  false,
		proto.OutboundTypeCameraStates: false,
		proto.OutboundTypePlayerStates: false,
	}
	for pending := len(want); pending > 0; {
		var f proto.Frame
		if err := wsjson.Read(ctx, conn, &f); err != nil {
			return fmt.Errorf("read: %w", err)
		}

		switch f.Type {
		case proto.OutboundTypeRegistered:
			fmt.Printf("registered: user=%s role=%s seat=%d\n", f.UserID, f.Role, f.SlotNumber)
		case proto.OutboundTypeSlotsUpdate:
			fmt.Printf("slots: %d occupied\n", len(f.Slots))
			for _, s := range f.Slots {
				fmt.Printf("  seat %2d: %s\n", s.SlotNumber, s.UserID)
			}
		case proto.OutboundTypeCameraStates:
			fmt.Printf("cameras: %v\n", f.CameraStates)
		case proto.OutboundTypePlayerStates:
			fmt.Printf("killed: %v\n", f.PlayerStates)
		case proto.OutboundTypeOperationFailed:
			return fmt.Errorf("%s failed: %s", f.Operation, f.Message)
		default:
			fmt.Printf("frame: type=%s\n", f.Type)
		}

		if seen, ok := want[f.Type]; ok && !seen {
			want[f.Type] = true
			pending--
		}
	}
	return nil
}
