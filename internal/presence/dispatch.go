package presence

import (
	"context"
	"errors"

	"github.com/vovakirdan/huddle-server/internal/core"
	"github.com/vovakirdan/huddle-server/internal/proto"
	"github.com/vovakirdan/huddle-server/internal/seats"
)

var (
	errMissingEnabled = core.NewError(core.ErrCodeBadRequest, "enabled is required")
	errMissingTarget  = core.NewError(core.ErrCodeBadRequest, "targetUserId is required")
	errUnknownTarget  = core.NewError(core.ErrCodeBadRequest, "target is not a known participant")
	errNotRegistered  = core.NewError(core.ErrCodeNotRegistered, "connection is not registered")
)

// Dispatch routes one inbound frame from conn, registered as id.
// Denied operations are answered on conn only; nothing else observes them.
func (r *Registry) Dispatch(_ context.Context, id core.Identity, conn Conn, msg proto.Inbound) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.participants[id.ID]
	if !ok || p.conns[conn.ID()] == nil {
		r.fail(conn, msg.Type, errNotRegistered)
		return
	}
	p.touch(r.clock.Now())

	switch msg.Type {
	case proto.InboundTypePong:
	case proto.InboundTypeSelectSlot:
		r.selectSlotLocked(conn, id, msg.SlotNumber)
	case proto.InboundTypeReleaseSlot:
		if err := r.seats.Release(id); err != nil {
			r.fail(conn, core.OpReleaseSlot, err)
		}
	case proto.InboundTypeCameraChange:
		if msg.Enabled == nil {
			r.fail(conn, core.OpCamera, errMissingEnabled)
			return
		}
		r.camera.Set(id.ID, *msg.Enabled)
	case proto.InboundTypeKillPlayer:
		target, err := r.targetLocked(msg.TargetUserID)
		if err == nil {
			err = r.players.MarkKilled(id, target)
		}
		if err != nil {
			r.fail(conn, core.OpKill, err)
		}
	case proto.InboundTypeRevivePlayer:
		target, err := r.targetLocked(msg.TargetUserID)
		if err == nil {
			err = r.players.MarkAlive(id, target)
		}
		if err != nil {
			r.fail(conn, core.OpRevive, err)
		}
	case proto.InboundTypeResetPlayers:
		if err := r.players.ResetAll(id); err != nil {
			r.fail(conn, core.OpReset, err)
		}
	case proto.InboundTypeShuffleUsers:
		if err := r.seats.Shuffle(id); err != nil {
			r.fail(conn, core.OpShuffle, err)
		}
	case proto.InboundTypeMoveUser:
		target, err := r.targetLocked(msg.TargetUserID)
		if err == nil {
			err = r.seats.Move(id, target, msg.SlotNumber)
		}
		if err != nil {
			r.fail(conn, core.OpMove, err)
		}
	case proto.InboundTypeRegister:
		r.log.Debug().Str("user_id", id.ID).Str("conn_id", conn.ID()).Msg("ignoring repeated register")
	default:
		r.log.Warn().Str("user_id", id.ID).Str("conn_id", conn.ID()).Str("type", msg.Type).Msg("unknown message type")
	}
}

func (r *Registry) selectSlotLocked(conn Conn, id core.Identity, seat int) {
	err := r.seats.Assign(id, seat)
	switch {
	case err == nil:
		r.rememberSeat(id, seat)
	case errors.Is(err, seats.ErrSeatOccupied):
		r.send(conn, slotBusyFrame(seat))
	default:
		r.fail(conn, core.OpSelectSlot, err)
	}
}

func (r *Registry) targetLocked(raw string) (core.Identity, error) {
	if raw == "" {
		return core.Identity{}, errMissingTarget
	}
	p, ok := r.participants[raw]
	if !ok {
		return core.Identity{}, errUnknownTarget
	}
	return p.identity, nil
}
