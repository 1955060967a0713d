package livekit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/livekit/protocol/auth"

	"github.com/vovakirdan/huddle-server/internal/callengine"
)

// LiveKitEngine implements callengine.Engine using LiveKit access tokens.
type LiveKitEngine struct {
	apiKey    string
	apiSecret string
	wsURL     string
	ttl       time.Duration
}

// New creates a new LiveKitEngine.
func New(apiKey, apiSecret, wsURL string, ttl time.Duration) *LiveKitEngine {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &LiveKitEngine{
		apiKey:    apiKey,
		apiSecret: apiSecret,
		wsURL:     wsURL,
		ttl:       ttl,
	}
}

// GenerateJoinInfo creates join credentials for identity to join room.
// LiveKit creates rooms on demand when the first participant joins.
func (e *LiveKitEngine) GenerateJoinInfo(_ context.Context, identity, room string) (*callengine.JoinInfo, error) {
	if identity == "" || room == "" {
		return nil, errors.New("identity and room are required")
	}

	at := auth.NewAccessToken(e.apiKey, e.apiSecret)
	grant := &auth.VideoGrant{
		RoomJoin: true,
		Room:     room,
	}
	at.SetVideoGrant(grant).
		SetIdentity(identity).
		SetName(identity).
		SetValidFor(e.ttl)

	token, err := at.ToJWT()
	if err != nil {
		return nil, fmt.Errorf("generate token: %w", err)
	}

	return &callengine.JoinInfo{
		URL:      e.wsURL,
		Token:    token,
		RoomName: room,
		Identity: identity,
	}, nil
}

// Ensure LiveKitEngine implements callengine.Engine
var _ callengine.Engine = (*LiveKitEngine)(nil)
