package presence

import (
	"github.com/vovakirdan/huddle-server/internal/core"
	"github.com/vovakirdan/huddle-server/internal/proto"
)

func registeredFrame(id core.Identity, seat int, token string) proto.Outbound {
	return proto.Outbound{Type: proto.OutboundTypeRegistered, Payload: proto.Registered{
		UserID:         id.ID,
		Role:           id.Role.String(),
		SlotNumber:     seat,
		ReconnectToken: token,
	}}
}

func slotsFrame(assignments []core.SeatAssignment) proto.Outbound {
	slots := make([]proto.Slot, 0, len(assignments))
	for _, a := range assignments {
		slots = append(slots, proto.Slot{UserID: a.ID, SlotNumber: a.Seat})
	}
	return proto.Outbound{Type: proto.OutboundTypeSlotsUpdate, Payload: proto.SlotsUpdate{Slots: slots}}
}

func cameraStatesFrame(states map[string]bool) proto.Outbound {
	if states == nil {
		states = map[string]bool{}
	}
	return proto.Outbound{Type: proto.OutboundTypeCameraStates, Payload: proto.CameraStates{CameraStates: states}}
}

func cameraUpdateFrame(id string, enabled bool) proto.Outbound {
	return proto.Outbound{Type: proto.OutboundTypeCameraUpdate, Payload: proto.CameraUpdate{UserID: id, Enabled: enabled}}
}

func playerStatesFrame(killed map[string]bool) proto.Outbound {
	if killed == nil {
		killed = map[string]bool{}
	}
	return proto.Outbound{Type: proto.OutboundTypePlayerStates, Payload: proto.PlayerStates{PlayerStates: killed}}
}

func slotBusyFrame(seat int) proto.Outbound {
	return proto.Outbound{Type: proto.OutboundTypeSlotBusy, Payload: proto.SlotBusy{SlotNumber: seat}}
}

func operationFailedFrame(operation, message string) proto.Outbound {
	return proto.Outbound{Type: proto.OutboundTypeOperationFailed, Payload: proto.OperationFailed{
		Operation: operation,
		Message:   message,
	}}
}

var pingFrame = proto.Outbound{Type: proto.OutboundTypePing}
