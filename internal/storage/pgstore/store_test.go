package pgstore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"roombook/internal/booking"
	"roombook/internal/booking/bookingtest"
	"roombook/internal/storage"
	"roombook/pkg/config"
	"roombook/pkg/logger"
	"roombook/pkg/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

func TestTranslateErr(t *testing.T) {
	tests := []struct {
		name string
		in   error
		want error
	}{
		{"serialization failure", &pgconn.PgError{Code: "40001"}, storage.ErrWriteConflict},
		{"deadlock", &pgconn.PgError{Code: "40P01"}, storage.ErrWriteConflict},
		{"lock timeout", &pgconn.PgError{Code: "55P03"}, storage.ErrTimeout},
		{"statement timeout", fmt.Errorf("exec: %w", &pgconn.PgError{Code: "57014"}), storage.ErrTimeout},
		{"unique violation", &pgconn.PgError{Code: "23505"}, storage.ErrDuplicate},
		{"exclusion violation", &pgconn.PgError{Code: "23P01"}, storage.ErrOverlap},
		{"foreign key violation", &pgconn.PgError{Code: "23503"}, storage.ErrNotFound},
		{"no rows", pgx.ErrNoRows, storage.ErrNotFound},
		{"deadline", context.DeadlineExceeded, storage.ErrTimeout},
		{"other server error", &pgconn.PgError{Code: "XX000"}, storage.ErrUnavailable},
		{"network", errors.New("dial tcp: connection refused"), storage.ErrUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := translateErr(tt.in); !errors.Is(got, tt.want) {
				t.Errorf("translateErr() = %v, want %v", got, tt.want)
			}
		})
	}
}

func newIntegrationStore(t *testing.T) (*Store, *config.Config) {
	t.Helper()
	dsn := os.Getenv("ROOMBOOK_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("ROOMBOOK_TEST_POSTGRES_DSN not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(pool.Close)

	log := logger.New(logger.Config{Level: "info", Format: logger.JSON, AddSource: false, Service: "test"})
	if err := Migrate(ctx, pool, log); err != nil {
		t.Fatalf("Migrate: %v", err)
	}

	cfg := &config.Config{Log: log, BookingTxTimeout: 3 * time.Second}
	s := NewWithPool(cfg, pool)
	return s, cfg
}

func seedRoomAndCustomer(t *testing.T, s *Store) (string, string) {
	t.Helper()
	ctx := context.Background()
	suffix := uuid.NewString()[:8]
	room := &model.Room{ID: "room-" + suffix, Name: "Room " + suffix, Capacity: 4}
	customer := &model.Customer{ID: "cust-" + suffix, Email: suffix + "@example.com", Name: "Test"}
	if err := s.CreateRoom(ctx, room); err != nil {
		t.Fatalf("CreateRoom: %v", err)
	}
	if err := s.CreateCustomer(ctx, customer); err != nil {
		t.Fatalf("CreateCustomer: %v", err)
	}
	t.Cleanup(func() {
		_ = s.RunInTx(context.Background(), func(ctx context.Context, tx storage.Tx) error {
			_ = tx.DeleteRoom(ctx, room.ID)
			return tx.DeleteCustomer(ctx, customer.ID)
		})
	})
	return room.ID, customer.ID
}

func TestIntegration_ExclusionConstraint(t *testing.T) {
	s, _ := newIntegrationStore(t)
	roomID, customerID := seedRoomAndCustomer(t, s)
	ctx := context.Background()
	start := time.Now().UTC().Add(time.Hour).Truncate(time.Millisecond)

	insert := func(id string, from, to time.Time) error {
		return s.RunInTx(ctx, func(ctx context.Context, tx storage.Tx) error {
			return tx.InsertReservation(ctx, &model.Reservation{
				ID: id, RoomID: roomID, CustomerID: customerID, StartUTC: from, EndUTC: to,
				CreatedAt: start, UpdatedAt: start,
			})
		})
	}

	if err := insert(uuid.NewString(), start, start.Add(time.Hour)); err != nil {
		t.Fatalf("first insert: %v", err)
	}
	if err := insert(uuid.NewString(), start.Add(time.Hour), start.Add(2*time.Hour)); err != nil {
		t.Fatalf("back to back insert: %v", err)
	}
	if err := insert(uuid.NewString(), start.Add(30*time.Minute), start.Add(90*time.Minute)); !errors.Is(err, storage.ErrOverlap) {
		t.Fatalf("overlapping insert error = %v, want ErrOverlap", err)
	}
}

func TestIntegration_ConcurrentEngineCreates(t *testing.T) {
	s, cfg := newIntegrationStore(t)
	roomID, customerID := seedRoomAndCustomer(t, s)
	engine := booking.NewEngine(s, cfg)
	start := time.Now().UTC().Add(2 * time.Hour).Truncate(time.Minute)

	reqs := []booking.CreateRequest{
		{RoomID: roomID, Party: booking.PartyRef{ID: customerID}, Start: start, End: start.Add(90 * time.Minute)},
		{RoomID: roomID, Party: booking.PartyRef{ID: customerID}, Start: start.Add(time.Hour), End: start.Add(2 * time.Hour)},
	}
	errs := make([]error, len(reqs))
	var wg sync.WaitGroup
	for i, req := range reqs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = engine.Create(context.Background(), req)
		}()
	}
	wg.Wait()

	successes := 0
	for _, err := range errs {
		switch {
		case err == nil:
			successes++
		case errors.Is(err, booking.ErrOverlapConflict), errors.Is(err, booking.ErrConflict):
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if successes != 1 {
		t.Fatalf("%d creates succeeded, want exactly 1", successes)
	}
}

func TestIntegration_RandomizedConcurrentCreates(t *testing.T) {
	s, cfg := newIntegrationStore(t)
	var rooms, parties []string
	for range 3 {
		roomID, customerID := seedRoomAndCustomer(t, s)
		rooms = append(rooms, roomID)
		parties = append(parties, customerID)
	}
	engine := booking.NewEngine(s, cfg)
	base := time.Now().UTC().Add(2 * time.Hour).Truncate(time.Minute)

	reqs := bookingtest.RandomCreates(7, 120, base, rooms, parties)
	if n := bookingtest.RunConcurrently(t, engine, reqs, 12); n == 0 {
		t.Fatal("no create succeeded")
	}
	bookingtest.AssertNoOverlaps(t, engine, rooms)
}
