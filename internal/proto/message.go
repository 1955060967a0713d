package proto

import (
	"encoding/json"
	"fmt"
)

// Client to server message types.
const (
	InboundTypeRegister     = "register"
	InboundTypeSelectSlot   = "select_slot"
	InboundTypeReleaseSlot  = "release_slot"
	InboundTypeCameraChange = "camera_state_change"
	InboundTypeKillPlayer   = "kill_player"
	InboundTypeRevivePlayer = "revive_player"
	InboundTypeResetPlayers = "reset_player_states"
	InboundTypeShuffleUsers = "shuffle_users"
	InboundTypeMoveUser     = "move_user"
	InboundTypePong         = "pong"
)

// Server to client message types.
const (
	OutboundTypeRegistered      = "registered"
	OutboundTypeSlotsUpdate     = "slots_update"
	OutboundTypeCameraStates    = "camera_states_update"
	OutboundTypeCameraUpdate    = "individual_camera_update"
	OutboundTypePlayerStates    = "player_states_update"
	OutboundTypeSlotBusy        = "slot_busy"
	OutboundTypeOperationFailed = "operation_failed"
	OutboundTypePing            = "ping"
)

// Inbound is the flat envelope for frames coming from the client.
// Only the fields relevant to Type are set.
type Inbound struct {
	Type           string `json:"type"`
	UserID         string `json:"userId,omitempty"`
	PreferredSeat  int    `json:"preferredSeat,omitempty"`
	ReconnectToken string `json:"reconnectToken,omitempty"`
	HostSecret     string `json:"hostSecret,omitempty"`
	SlotNumber     int    `json:"slotNumber,omitempty"`
	Enabled        *bool  `json:"enabled,omitempty"`
	TargetUserID   string `json:"targetUserId,omitempty"`
}

// Outbound is a server frame. Payload fields are flattened next to "type" on the wire.
type Outbound struct {
	Type    string
	Payload any
}

// MarshalJSON writes {"type": ..., <payload fields>}.
func (o Outbound) MarshalJSON() ([]byte, error) {
	typ, err := json.Marshal(o.Type)
	if err != nil {
		return nil, err
	}
	if o.Payload == nil {
		return []byte(`{"type":` + string(typ) + `}`), nil
	}

	body, err := json.Marshal(o.Payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", o.Type, err)
	}
	if len(body) < 2 || body[0] != '{' {
		return nil, fmt.Errorf("payload for %s is not an object", o.Type)
	}
	out := make([]byte, 0, len(typ)+len(body)+10)
	out = append(out, `{"type":`...)
	out = append(out, typ...)
	if len(body) > 2 {
		out = append(out, ',')
	}
	out = append(out, body[1:]...)
	return out, nil
}

// Slot is one occupied seat in a slots_update.
type Slot struct {
	UserID     string `json:"userId"`
	SlotNumber int    `json:"slotNumber"`
}

// Registered acknowledges a register frame.
type Registered struct {
	UserID         string `json:"userId"`
	Role           string `json:"role"`
	SlotNumber     int    `json:"slotNumber"`
	ReconnectToken string `json:"reconnectToken,omitempty"`
}

// SlotsUpdate is a full seat snapshot.
type SlotsUpdate struct {
	Slots []Slot `json:"slots"`
}

// CameraStates is a camera snapshot keyed by identity.
type CameraStates struct {
	CameraStates map[string]bool `json:"cameraStates"`
}

// CameraUpdate is a targeted single-identity camera delta.
type CameraUpdate struct {
	UserID  string `json:"userId"`
	Enabled bool   `json:"enabled"`
}

// PlayerStates is the full killed-set snapshot.
type PlayerStates struct {
	PlayerStates map[string]bool `json:"playerStates"`
}

// SlotBusy reports a seat conflict.
type SlotBusy struct {
	SlotNumber int `json:"slotNumber"`
}

// OperationFailed reports a denied or invalid operation.
type OperationFailed struct {
	Operation string `json:"operation"`
	Message   string `json:"message"`
}

// Frame is the client-side view of any server frame.
type Frame struct {
	Type           string          `json:"type"`
	UserID         string          `json:"userId"`
	Role           string          `json:"role"`
	SlotNumber     int             `json:"slotNumber"`
	ReconnectToken string          `json:"reconnectToken"`
	Slots          []Slot          `json:"slots"`
	CameraStates   map[string]bool `json:"cameraStates"`
	Enabled        bool            `json:"enabled"`
	PlayerStates   map[string]bool `json:"playerStates"`
	Operation      string          `json:"operation"`
	Message        string          `json:"message"`
}

// Bool returns a pointer to v, for the optional boolean fields.
func Bool(v bool) *bool {
	return &v
}
