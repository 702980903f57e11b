// Package bookingtest drives a booking.Engine with concurrent random creates and
// checks that no room ends up holding intersecting reservations. Backend test
// suites share it so every store is held to the same property.
package bookingtest

import (
	"context"
	"errors"
	"math/rand"
	"testing"
	"time"

	"roombook/internal/booking"

	"golang.org/x/sync/errgroup"
)

// RandomCreates builds n create requests spread over rooms and parties, each
// starting within eight hours of base and lasting 15 to 104 minutes.
func RandomCreates(seed int64, n int, base time.Time, rooms, parties []string) []booking.CreateRequest {
	rng := rand.New(rand.NewSource(seed))
	reqs := make([]booking.CreateRequest, n)
	for i := range reqs {
		start := base.Add(time.Duration(rng.Intn(8*60)) * time.Minute)
		reqs[i] = booking.CreateRequest{
			RoomID: rooms[rng.Intn(len(rooms))],
			Party:  booking.PartyRef{ID: parties[rng.Intn(len(parties))]},
			Start:  start,
			End:    start.Add(time.Duration(15+rng.Intn(90)) * time.Minute),
		}
	}
	return reqs
}

// RunConcurrently submits reqs with at most limit in flight. Overlap and
// write-conflict rejections are expected outcomes; any other error fails the
// test. It returns how many creates succeeded.
func RunConcurrently(t *testing.T, engine *booking.Engine, reqs []booking.CreateRequest, limit int) int {
	t.Helper()
	created := make([]bool, len(reqs))
	var g errgroup.Group
	g.SetLimit(limit)
	for i, req := range reqs {
		g.Go(func() error {
			_, err := engine.Create(context.Background(), req)
			switch {
			case err == nil:
				created[i] = true
			case errors.Is(err, booking.ErrOverlapConflict), errors.Is(err, booking.ErrConflict):
			default:
				return err
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatalf("unexpected create error: %v", err)
	}

	n := 0
	for _, ok := range created {
		if ok {
			n++
		}
	}
	return n
}

// AssertNoOverlaps fails the test when any room holds two intersecting
// reservations.
func AssertNoOverlaps(t *testing.T, engine *booking.Engine, rooms []string) {
	t.Helper()
	for _, room := range rooms {
		rs, err := engine.ListByResource(context.Background(), room)
		if err != nil {
			t.Fatalf("ListByResource(%s) error = %v", room, err)
		}
		for i := range rs {
			for j := i + 1; j < len(rs); j++ {
				a := booking.Interval{Start: rs[i].StartUTC, End: rs[i].EndUTC}
				b := booking.Interval{Start: rs[j].StartUTC, End: rs[j].EndUTC}
				if a.Overlaps(b) {
					t.Fatalf("room %s: %s %v overlaps %s %v", room, rs[i].ID, a, rs[j].ID, b)
				}
			}
		}
	}
}
