package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/vovakirdan/huddle-server/internal/proto"
)

const usage = `commands:
  seat <n>            claim seat n
  release             leave your seat
  camera on|off       report camera state
  kill <user>         host: mark user killed
  revive <user>       host: revive user
  reset               host: revive everyone
  shuffle             host: shuffle seats
  move <user> <n>     host: move user to seat n`

func main() {
	if err := run(); err != nil {
		log.Printf("ws_console: %v", err)
		os.Exit(1)
	}
}

func run() error {
	addr := flag.String("addr", "ws://localhost:8080/ws", "WebSocket address")
	user := flag.String("user", "cli-user", "userId")
	hostSecret := flag.String("host-secret", "", "host secret for host identities")
	flag.Parse()

	baseCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(baseCtx)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, *addr, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "bye")

	if err := wsjson.Write(ctx, conn, proto.Inbound{Type: proto.InboundTypeRegister, UserID: *user, HostSecret: *hostSecret}); err != nil {
		return fmt.Errorf("send register: %w", err)
	}

	fmt.Printf("Connected to %s as %s\n", *addr, *user)
	fmt.Println(usage)

	go func() {
		defer cancel()
		readLoop(ctx, conn)
	}()

	writeLoop(ctx, conn)

	stop()
	cancel()
	_ = conn.Close(websocket.StatusNormalClosure, "bye")
	return nil
}

func readLoop(ctx context.Context, conn *websocket.Conn) {
	for {
		var f proto.Frame
		if err := wsjson.Read(ctx, conn, &f); err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			switch websocket.CloseStatus(err) {
			case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				return
			}
			log.Printf("read error: %v", err)
			return
		}

		switch f.Type {
		case proto.OutboundTypePing:
			// Answer heartbeats so the server keeps us active.
			if err := wsjson.Write(ctx, conn, proto.Inbound{Type: proto.InboundTypePong}); err != nil {
				log.Printf("send pong: %v", err)
				return
			}
		case proto.OutboundTypeRegistered:
			fmt.Printf("registered as %s (%s) on seat %d\n", f.UserID, f.Role, f.SlotNumber)
		case proto.OutboundTypeSlotsUpdate:
			parts := make([]string, 0, len(f.Slots))
			for _, s := range f.Slots {
				parts = append(parts, fmt.Sprintf("%d:%s", s.SlotNumber, s.UserID))
			}
			fmt.Printf("seats [%s]\n", strings.Join(parts, " "))
		case proto.OutboundTypeCameraStates:
			fmt.Printf("cameras %v\n", f.CameraStates)
		case proto.OutboundTypeCameraUpdate:
			fmt.Printf("camera %s -> %v\n", f.UserID, f.Enabled)
		case proto.OutboundTypePlayerStates:
			fmt.Printf("killed %v\n", f.PlayerStates)
		case proto.OutboundTypeSlotBusy:
			fmt.Printf("seat %d is taken\n", f.SlotNumber)
		case proto.OutboundTypeOperationFailed:
			fmt.Printf("%s failed: %s\n", f.Operation, f.Message)
		default:
			fmt.Printf("frame type=%s\n", f.Type)
		}
	}
}

func writeLoop(ctx context.Context, conn *websocket.Conn) {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case line, ok := <-lines:
			if !ok {
				return
			}
			fields := strings.Fields(line)
			if len(fields) == 0 {
				continue
			}
			msg, err := parseCommand(fields)
			if err != nil {
				fmt.Println(err)
				continue
			}
			if err := wsjson.Write(ctx, conn, msg); err != nil {
				log.Printf("send error: %v", err)
				return
			}
		}
	}
}

func parseCommand(fields []string) (proto.Inbound, error) {
	arg := func(i int) string {
		if i < len(fields) {
			return fields[i]
		}
		return ""
	}
	seat := func(i int) (int, error) {
		n, err := strconv.Atoi(arg(i))
		if err != nil {
			return 0, fmt.Errorf("bad seat %q", arg(i))
		}
		return n, nil
	}

	switch fields[0] {
	case "seat":
		n, err := seat(1)
		if err != nil {
			return proto.Inbound{}, err
		}
		return proto.Inbound{Type: proto.InboundTypeSelectSlot, SlotNumber: n}, nil
	case "release":
		return proto.Inbound{Type: proto.InboundTypeReleaseSlot}, nil
	case "camera":
		switch arg(1) {
		case "on":
			return proto.Inbound{Type: proto.InboundTypeCameraChange, Enabled: proto.Bool(true)}, nil
		case "off":
			return proto.Inbound{Type: proto.InboundTypeCameraChange, Enabled: proto.Bool(false)}, nil
		}
		return proto.Inbound{}, errors.New("usage: camera on|off")
	case "kill":
		return proto.Inbound{Type: proto.InboundTypeKillPlayer, TargetUserID: arg(1)}, nil
	case "revive":
		return proto.Inbound{Type: proto.InboundTypeRevivePlayer, TargetUserID: arg(1)}, nil
	case "reset":
		return proto.Inbound{Type: proto.InboundTypeResetPlayers}, nil
	case "shuffle":
		return proto.Inbound{Type: proto.InboundTypeShuffleUsers}, nil
	case "move":
		n, err := seat(2)
		if err != nil {
			return proto.Inbound{}, err
		}
		return proto.Inbound{Type: proto.InboundTypeMoveUser, TargetUserID: arg(1), SlotNumber: n}, nil
	default:
		return proto.Inbound{}, errors.New(usage)
	}
}
