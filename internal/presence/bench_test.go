package presence

import (
	"strconv"
	"testing"

	"github.com/vovakirdan/huddle-server/internal/proto"
)

type discardConn struct{ id string }

func (c discardConn) ID() string                { return c.id }
func (c discardConn) Send(proto.Outbound) error { return nil }

func benchmarkPlayerFanOut(b *testing.B, recipients int) {
	env := newTestEnv(b)
	for i := range recipients {
		conn := discardConn{id: "c" + strconv.Itoa(i)}
		if _, err := env.reg.Register(b.Context(), conn, RegisterRequest{UserID: "user-" + strconv.Itoa(i)}); err != nil {
			b.Fatalf("register: %v", err)
		}
	}
	host := discardConn{id: "host"}
	id, err := env.reg.Register(b.Context(), host, RegisterRequest{UserID: "Host-bench"})
	if err != nil {
		b.Fatalf("register host: %v", err)
	}

	kinds := [2]string{proto.InboundTypeKillPlayer, proto.InboundTypeRevivePlayer}

	b.ReportAllocs()
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		env.reg.Dispatch(b.Context(), id, host, proto.Inbound{Type: kinds[i%2], TargetUserID: "user-0"})
	}
}

func benchmarkSeatFanOut(b *testing.B, recipients int) {
	env := newTestEnv(b)
	for i := range recipients {
		conn := discardConn{id: "c" + strconv.Itoa(i)}
		if _, err := env.reg.Register(b.Context(), conn, RegisterRequest{UserID: "user-" + strconv.Itoa(i)}); err != nil {
			b.Fatalf("register: %v", err)
		}
	}
	host := discardConn{id: "host"}
	id, err := env.reg.Register(b.Context(), host, RegisterRequest{UserID: "Host-bench"})
	if err != nil {
		b.Fatalf("register host: %v", err)
	}

	b.ReportAllocs()
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		env.reg.Dispatch(b.Context(), id, host, proto.Inbound{Type: proto.InboundTypeShuffleUsers})
	}
}

func BenchmarkPlayerFanOut_10(b *testing.B)  { benchmarkPlayerFanOut(b, 10) }
func BenchmarkPlayerFanOut_100(b *testing.B) { benchmarkPlayerFanOut(b, 100) }
func BenchmarkShuffleFanOut_10(b *testing.B) { benchmarkSeatFanOut(b, 10) }
