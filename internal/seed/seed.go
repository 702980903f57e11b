// Package seed loads the default rooms into an empty store.
package seed

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"roombook/internal/storage"
	"roombook/pkg/logger"
	"roombook/pkg/model"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

const maxConcurrentInserts = 4

// DefaultRooms is inserted only when no room exists yet.
var DefaultRooms = []model.Room{
	{Name: "Orion", Capacity: 4},
	{Name: "Atlas", Capacity: 6},
	{Name: "Apollo", Capacity: 8},
	{Name: "Nova", Capacity: 10},
	{Name: "Zenith", Capacity: 12},
}

// Rooms inserts DefaultRooms when the store holds no rooms and returns how many
// were created. A name that already exists is skipped, so two instances seeding
// at once both succeed.
func Rooms(ctx context.Context, repo storage.RoomRepository, log *logger.Logger) (int, error) {
	count, err := repo.CountRooms(ctx)
	if err != nil {
		return 0, fmt.Errorf("count rooms: %w", err)
	}
	if count > 0 {
		log.Info("Rooms already present, skipping seed", "count", count)
		return 0, nil
	}

	var created atomic.Int32
	now := time.Now().UTC()
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentInserts)
	for _, tmpl := range DefaultRooms {
		room := tmpl
		room.ID = uuid.NewString()
		room.CreatedAt = now
		room.UpdatedAt = now
		g.Go(func() error {
			err := repo.CreateRoom(gctx, &room)
			switch {
			case err == nil:
				created.Add(1)
				return nil
			case errors.Is(err, storage.ErrDuplicate):
				log.Debug("Seed room already exists", "name", room.Name)
				return nil
			default:
				return fmt.Errorf("seed room %s: %w", room.Name, err)
			}
		})
	}
	if err := g.Wait(); err != nil {
		return int(created.Load()), err
	}

	log.Info("Seeded rooms", "created", created.Load())
	return int(created.Load()), nil
}
