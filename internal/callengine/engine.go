package callengine

import "context"

// JoinInfo contains information needed to join the media room.
type JoinInfo struct {
	URL      string `json:"url"`      // WebSocket URL of the SFU
	Token    string `json:"token"`    // signed, time-limited access token
	RoomName string `json:"roomName"` // media room name
	Identity string `json:"identity"` // participant identity in the room
}

// Engine abstracts the external media service. The presence engine never
// validates or interprets the issued credential.
type Engine interface {
	// GenerateJoinInfo creates join credentials for identity in room.
	GenerateJoinInfo(ctx context.Context, identity, room string) (*JoinInfo, error)
}
