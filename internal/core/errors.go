package core

// Operation tags reported in operation_failed replies.
const (
	OpRegister    = "register"
	OpSelectSlot  = "select_slot"
	OpReleaseSlot = "release_slot"
	OpCamera      = "camera_state_change"
	OpKill        = "kill_player"
	OpRevive      = "revive_player"
	OpReset       = "reset_player_states"
	OpShuffle     = "shuffle_users"
	OpMove        = "move_user"
)

// Error codes for domain errors.
const (
	ErrCodeBadRequest    = "bad_request"
	ErrCodeUnauthorized  = "unauthorized"
	ErrCodeForbidden     = "forbidden"
	ErrCodeSlotBusy      = "slot_busy"
	ErrCodeNoSeat        = "no_seat"
	ErrCodeNotRegistered = "not_registered"
)

// CoreError wraps a code and human-readable message.
type CoreError struct {
	Code    string
	Message string
}

func (e *CoreError) Error() string {
	return e.Message
}

// NewError builds a CoreError.
func NewError(code, msg string) *CoreError {
	return &CoreError{Code: code, Message: msg}
}
