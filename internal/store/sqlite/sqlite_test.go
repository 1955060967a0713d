package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/vovakirdan/huddle-server/internal/store"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	s, err := NewWithSetup(":memory:", func(db *sql.DB) error {
		_, err := db.Exec(Schema)
		return err
	})
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestGetLastSeatMissing(t *testing.T) {
	s := newTestStore(t)

	if _, err := s.GetLastSeat(context.Background(), "Player-B", "main"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSaveLastSeatUpserts(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.SaveLastSeat(ctx, "Player-B", 3, "main"); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := s.SaveLastSeat(ctx, "Player-B", 7, "main"); err != nil {
		t.Fatalf("save again: %v", err)
	}
	if err := s.SaveLastSeat(ctx, "Player-B", 2, "other"); err != nil {
		t.Fatalf("save other room: %v", err)
	}

	seat, err := s.GetLastSeat(ctx, "Player-B", "main")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if seat != 7 {
		t.Fatalf("expected seat 7, got %d", seat)
	}

	seat, err = s.GetLastSeat(ctx, "Player-B", "other")
	if err != nil || seat != 2 {
		t.Fatalf("rooms must be independent: seat=%d err=%v", seat, err)
	}
}

func TestListLastSeats(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	seeds := []struct {
		identity string
		seat     int
	}{
		{identity: "Player-C", seat: 4},
		{identity: "Player-B", seat: 1},
		{identity: "Host-A", seat: 12},
	}
	for _, seed := range seeds {
		if err := s.SaveLastSeat(ctx, seed.identity, seed.seat, "main"); err != nil {
			t.Fatalf("seed %s: %v", seed.identity, err)
		}
	}

	rows, err := s.ListLastSeats(ctx, "main")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	want := []string{"Player-B", "Player-C", "Host-A"}
	if len(rows) != len(want) {
		t.Fatalf("expected %d rows, got %d", len(want), len(rows))
	}
	for i, row := range rows {
		if row.Identity != want[i] {
			t.Errorf("expected %s at index %d, got %s", want[i], i, row.Identity)
		}
	}
}

func TestNewAppliesSchema(t *testing.T) {
	s, err := New(":memory:")
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer s.Close()

	if err := s.SaveLastSeat(context.Background(), "Player-B", 1, "main"); err != nil {
		t.Fatalf("schema should be applied by New: %v", err)
	}
}
