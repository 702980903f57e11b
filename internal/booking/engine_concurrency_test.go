package booking_test

import (
	"context"
	"testing"
	"time"

	"roombook/internal/booking"
	"roombook/internal/booking/bookingtest"
	"roombook/internal/storage/memstore"
	"roombook/pkg/config"
	"roombook/pkg/logger"
	"roombook/pkg/model"
)

func TestEngine_RandomizedConcurrentBookingsNeverOverlap(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	rooms := []string{"orion", "atlas"}
	parties := []string{"alice", "bob"}
	for _, id := range rooms {
		if err := store.CreateRoom(ctx, &model.Room{ID: id, Name: id, Capacity: 4}); err != nil {
			t.Fatalf("CreateRoom: %v", err)
		}
	}
	for _, id := range parties {
		if err := store.CreateCustomer(ctx, &model.Customer{ID: id, Email: id + "@example.com", Name: id}); err != nil {
			t.Fatalf("CreateCustomer: %v", err)
		}
	}

	log := logger.New(logger.Config{Level: "info", Format: logger.JSON, AddSource: false, Service: "test"})
	now := time.Date(2030, 1, 1, 8, 0, 0, 0, time.UTC)
	engine := booking.NewEngine(store, &config.Config{Log: log, BookingTxTimeout: time.Second},
		booking.WithClock(func() time.Time { return now }))

	reqs := bookingtest.RandomCreates(42, 200, now.Add(time.Hour), rooms, parties)
	if n := bookingtest.RunConcurrently(t, engine, reqs, 16); n == 0 {
		t.Fatal("no create succeeded")
	}
	bookingtest.AssertNoOverlaps(t, engine, rooms)
}
