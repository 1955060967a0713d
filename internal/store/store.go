package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when no record exists.
var ErrNotFound = errors.New("not found")

// LastSeat is the seat an identity last chose in a room.
type LastSeat struct {
	Identity  string
	Room      string
	Seat      int
	UpdatedAt time.Time
}

// LastSeatStore remembers each identity's last self-chosen seat across sessions.
type LastSeatStore interface {
	// GetLastSeat returns the remembered seat, or ErrNotFound.
	GetLastSeat(ctx context.Context, identity, room string) (int, error)

	// SaveLastSeat upserts the remembered seat.
	SaveLastSeat(ctx context.Context, identity string, seat int, room string) error

	// ListLastSeats lists every remembered seat in a room.
	ListLastSeats(ctx context.Context, room string) ([]*LastSeat, error)
}

// Store aggregates all storage interfaces.
type Store interface {
	LastSeatStore

	// Close closes the underlying database connection.
	Close() error
}
