package http

import (
	"net/http"
	"sort"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/huddle-server/internal/callengine"
)

// APIHandlers provides the plain HTTP endpoints next to the websocket.
type APIHandlers struct {
	presence Presence
	engine   callengine.Engine
	room     string
	log      *zerolog.Logger
}

// NewAPIHandlers creates a new API handlers instance.
func NewAPIHandlers(p Presence, engine callengine.Engine, room string, logger *zerolog.Logger) *APIHandlers {
	return &APIHandlers{
		presence: p,
		engine:   engine,
		room:     room,
		log:      logger,
	}
}

// ErrorResponse represents an error response body.
type ErrorResponse struct {
	Error string `json:"error"`
}

// JoinInfoResponse represents media join information in API responses.
type JoinInfoResponse struct {
	URL      string `json:"url"`
	Token    string `json:"token"`
	RoomName string `json:"room_name"`
	Identity string `json:"identity"`
}

// SeatResponse is one occupied seat.
type SeatResponse struct {
	UserID     string `json:"userId"`
	SlotNumber int    `json:"slotNumber"`
}

// ParticipantResponse describes one known identity.
type ParticipantResponse struct {
	UserID      string `json:"userId"`
	Role        string `json:"role"`
	State       string `json:"state"`
	Connections int    `json:"connections"`
	Inactive    bool   `json:"inactive"`
}

// StateResponse is the read-only engine snapshot.
type StateResponse struct {
	Slots        []SeatResponse        `json:"slots"`
	PlayerStates map[string]bool       `json:"playerStates"`
	CameraStates map[string]bool       `json:"cameraStates"`
	Participants []ParticipantResponse `json:"participants"`
	LastSeats    map[string]int        `json:"lastSeats"`
}

// MediaToken issues credentials for the external media room.
// GET /token?identity=<id>&room=<room>
func (h *APIHandlers) MediaToken(c *gin.Context) {
	if h.engine == nil {
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "media service not configured"})
		return
	}

	identity := strings.TrimSpace(c.Query("identity"))
	if identity == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "identity is required"})
		return
	}
	room := strings.TrimSpace(c.Query("room"))
	if room == "" {
		room = h.room
	}

	info, err := h.engine.GenerateJoinInfo(c.Request.Context(), identity, room)
	if err != nil {
		h.log.Error().Err(err).Str("user_id", identity).Str("room", room).Msg("failed to issue media token")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	h.log.Debug().Str("user_id", identity).Str("room", room).Msg("media token issued")
	c.JSON(http.StatusOK, JoinInfoResponse{
		URL:      info.URL,
		Token:    info.Token,
		RoomName: info.RoomName,
		Identity: info.Identity,
	})
}

// State returns the current seats, killed set and connection summary.
// GET /api/state
func (h *APIHandlers) State(c *gin.Context) {
	snap := h.presence.Snapshot()

	resp := StateResponse{
		Slots:        make([]SeatResponse, 0, len(snap.Seats)),
		PlayerStates: snap.Killed,
		CameraStates: snap.Cameras,
		Participants: make([]ParticipantResponse, 0, len(snap.Participants)),
		LastSeats:    make(map[string]int),
	}
	for _, s := range snap.Seats {
		resp.Slots = append(resp.Slots, SeatResponse{UserID: s.ID, SlotNumber: s.Seat})
	}
	for _, p := range snap.Participants {
		resp.Participants = append(resp.Participants, ParticipantResponse{
			UserID:      p.ID,
			Role:        p.Role.String(),
			State:       p.State.String(),
			Connections: p.Connections,
			Inactive:    p.Inactive,
		})
	}

	lastSeats, err := h.presence.LastSeats(c.Request.Context())
	if err != nil {
		// The hint table is advisory; the live state is still served.
		h.log.Warn().Err(err).Msg("failed to list last seats")
	}
	for _, ls := range lastSeats {
		resp.LastSeats[ls.Identity] = ls.Seat
	}

	sort.Slice(resp.Participants, func(i, j int) bool {
		return resp.Participants[i].UserID < resp.Participants[j].UserID
	})

	c.JSON(http.StatusOK, resp)
}
