package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/vovakirdan/huddle-server/internal/store"
)

// Schema creates the tables the store needs. It is idempotent.
const Schema = `
CREATE TABLE IF NOT EXISTS last_seats (
	identity   TEXT    NOT NULL,
	room       TEXT    NOT NULL,
	seat       INTEGER NOT NULL,
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	PRIMARY KEY (identity, room)
);
`

// SQLiteStore implements store.Store for SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// New creates a new SQLite store and applies the schema.
// dbPath is the path to the SQLite database file.
func New(dbPath string) (*SQLiteStore, error) {
	return NewWithSetup(dbPath, func(db *sql.DB) error {
		_, err := db.Exec(Schema)
		return err
	})
}

// NewWithSetup creates a new SQLite store and runs a setup function.
// Useful for tests to apply schema without migrations.
func NewWithSetup(dbPath string, setup func(*sql.DB) error) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// SQLite works best with a single connection; ":memory:" needs it to keep the data.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if setup != nil {
		if err := setup(db); err != nil {
			db.Close()
			return nil, fmt.Errorf("setup: %w", err)
		}
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// ==== LastSeatStore implementation ====

// GetLastSeat returns the remembered seat for identity in room.
func (s *SQLiteStore) GetLastSeat(ctx context.Context, identity, room string) (int, error) {
	query := `
		SELECT seat
		FROM last_seats
		WHERE identity = ? AND room = ?
	`
	var seat int
	err := s.db.QueryRowContext(ctx, query, identity, room).Scan(&seat)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, store.ErrNotFound
		}
		return 0, fmt.Errorf("query last seat: %w", err)
	}
	return seat, nil
}

// SaveLastSeat upserts the remembered seat for identity in room.
func (s *SQLiteStore) SaveLastSeat(ctx context.Context, identity string, seat int, room string) error {
	query := `
		INSERT INTO last_seats (identity, room, seat, updated_at)
		VALUES (?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT (identity, room) DO UPDATE SET
			seat = excluded.seat,
			updated_at = excluded.updated_at
	`
	if _, err := s.db.ExecContext(ctx, query, identity, room, seat); err != nil {
		return fmt.Errorf("upsert last seat: %w", err)
	}
	return nil
}

// ListLastSeats lists every remembered seat in room, ordered by seat.
func (s *SQLiteStore) ListLastSeats(ctx context.Context, room string) ([]*store.LastSeat, error) {
	query := `
		SELECT identity, room, seat, updated_at
		FROM last_seats
		WHERE room = ?
		ORDER BY seat ASC, identity ASC
	`
	rows, err := s.db.QueryContext(ctx, query, room)
	if err != nil {
		return nil, fmt.Errorf("query last seats: %w", err)
	}
	defer rows.Close()

	var out []*store.LastSeat
	for rows.Next() {
		var ls store.LastSeat
		if err := rows.Scan(&ls.Identity, &ls.Room, &ls.Seat, &ls.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan last seat: %w", err)
		}
		out = append(out, &ls)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate last seats: %w", err)
	}
	return out, nil
}

// Ensure SQLiteStore implements store.Store
var _ store.Store = (*SQLiteStore)(nil)
