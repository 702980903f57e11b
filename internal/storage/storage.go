// Package storage defines the contract every persistence backend fulfils for the
// booking engine: atomic units with per-key serialization, plus plain reads and
// the room and customer admin writes that never touch reservations.
package storage

import (
	"context"
	"errors"
	"sort"
	"time"

	"roombook/pkg/model"
)

var (
	ErrNotFound      = errors.New("storage: not found")
	ErrDuplicate     = errors.New("storage: duplicate key")
	ErrOverlap       = errors.New("storage: overlapping reservation")
	ErrWriteConflict = errors.New("storage: write conflict")
	ErrTimeout       = errors.New("storage: timeout")
	ErrUnavailable   = errors.New("storage: unavailable")
)

var sentinels = []error{ErrNotFound, ErrDuplicate, ErrOverlap, ErrWriteConflict, ErrTimeout, ErrUnavailable}

// IsStorageError reports whether err already carries one of the package sentinels.
func IsStorageError(err error) bool {
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return true
		}
	}
	return false
}

// TxFunc runs inside one atomic unit. Returning an error aborts the unit and
// discards every write it made.
type TxFunc func(ctx context.Context, tx Tx) error

type Tx interface {
	// Lock serializes the unit against every other unit locking any of the same keys.
	Lock(ctx context.Context, keys ...string) error

	FindRoom(ctx context.Context, id string) (*model.Room, error)
	FindCustomer(ctx context.Context, id string) (*model.Customer, error)
	FindCustomerByEmail(ctx context.Context, email string) (*model.Customer, error)

	FindReservation(ctx context.Context, id string) (*model.Reservation, error)
	FindReservationByIdempotencyKey(ctx context.Context, key string) (*model.Reservation, error)
	// FindRoomReservations returns the room's reservations with start < to and end > from.
	FindRoomReservations(ctx context.Context, roomID string, from, to time.Time) ([]*model.Reservation, error)

	InsertReservation(ctx context.Context, r *model.Reservation) error
	ReplaceReservation(ctx context.Context, r *model.Reservation) error
	DeleteReservation(ctx context.Context, id string) error
	DeleteRoomReservations(ctx context.Context, roomID string) ([]*model.Reservation, error)
	DeleteCustomerReservations(ctx context.Context, customerID string) ([]*model.Reservation, error)

	DeleteRoom(ctx context.Context, id string) error
	DeleteCustomer(ctx context.Context, id string) error
}

// Reader serves the latest committed state without locking.
type Reader interface {
	GetReservation(ctx context.Context, id string) (*model.Reservation, error)
	ListRoomReservations(ctx context.Context, roomID string) ([]*model.Reservation, error)
	ListReservations(ctx context.Context) ([]*model.Reservation, error)
}

type RoomRepository interface {
	CreateRoom(ctx context.Context, room *model.Room) error
	GetRoom(ctx context.Context, id string) (*model.Room, error)
	ListRooms(ctx context.Context) ([]*model.Room, error)
	UpdateRoom(ctx context.Context, room *model.Room) error
	CountRooms(ctx context.Context) (int64, error)
}

type CustomerRepository interface {
	CreateCustomer(ctx context.Context, customer *model.Customer) error
	GetCustomer(ctx context.Context, id string) (*model.Customer, error)
	GetCustomerByEmail(ctx context.Context, email string) (*model.Customer, error)
	ListCustomers(ctx context.Context) ([]*model.Customer, error)
	UpdateCustomer(ctx context.Context, customer *model.Customer) error
}

type Store interface {
	RunInTx(ctx context.Context, fn TxFunc) error
	Ping(ctx context.Context) error

	Reader
	RoomRepository
	CustomerRepository
}

const (
	roomKeyPrefix     = "room:"
	customerKeyPrefix = "customer:"
)

func RoomKey(id string) string {
	return roomKeyPrefix + id
}

func CustomerKey(id string) string {
	return customerKeyPrefix + id
}

// SortedKeys returns the distinct keys in ascending order. Backends that block on
// locks acquire them in this order.
func SortedKeys(keys []string) []string {
	seen := make(map[string]struct{}, len(keys))
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		if _, ok := seen[k]; ok || k == "" {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
