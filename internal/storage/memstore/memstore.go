// Package memstore keeps rooms, customers and reservations in process memory.
// Atomic units are serialized by a single weighted semaphore and operate on a
// private copy of the state that replaces the committed state only on success.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"roombook/internal/storage"
	"roombook/pkg/model"

	"golang.org/x/sync/semaphore"
)

type Store struct {
	sem *semaphore.Weighted

	mu    sync.RWMutex
	state *state
}

type state struct {
	rooms        map[string]*model.Room
	customers    map[string]*model.Customer
	reservations map[string]*model.Reservation
}

var _ storage.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		sem: semaphore.NewWeighted(1),
		state: &state{
			rooms:        make(map[string]*model.Room),
			customers:    make(map[string]*model.Customer),
			reservations: make(map[string]*model.Reservation),
		},
	}
}

func (s *Store) Ping(ctx context.Context) error {
	return ctx.Err()
}

func (s *Store) RunInTx(ctx context.Context, fn storage.TxFunc) error {
	if err := s.sem.Acquire(ctx, 1); err != nil {
		return fmt.Errorf("acquire store: %w", storage.ErrTimeout)
	}
	defer s.sem.Release(1)

	s.mu.RLock()
	working := s.state.clone()
	s.mu.RUnlock()

	if err := fn(ctx, &tx{st: working}); err != nil {
		return err
	}
	if ctx.Err() != nil {
		return fmt.Errorf("commit: %w", storage.ErrTimeout)
	}

	s.mu.Lock()
	s.state = working
	s.mu.Unlock()
	return nil
}

func (s *Store) snapshot() *state {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

func (s *Store) GetReservation(_ context.Context, id string) (*model.Reservation, error) {
	r, ok := s.snapshot().reservations[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return copyReservation(r), nil
}

func (s *Store) ListRoomReservations(_ context.Context, roomID string) ([]*model.Reservation, error) {
	st := s.snapshot()
	out := make([]*model.Reservation, 0)
	for _, r := range st.reservations {
		if r.RoomID == roomID {
			out = append(out, copyReservation(r))
		}
	}
	sortByStart(out)
	return out, nil
}

func (s *Store) ListReservations(_ context.Context) ([]*model.Reservation, error) {
	st := s.snapshot()
	out := make([]*model.Reservation, 0, len(st.reservations))
	for _, r := range st.reservations {
		out = append(out, copyReservation(r))
	}
	sortByStart(out)
	return out, nil
}

func (s *Store) CreateRoom(ctx context.Context, room *model.Room) error {
	return s.RunInTx(ctx, func(_ context.Context, t storage.Tx) error {
		st := t.(*tx).st
		if _, ok := st.rooms[room.ID]; ok {
			return storage.ErrDuplicate
		}
		if st.roomNameTaken(room.Name, "") {
			return storage.ErrDuplicate
		}
		c := *room
		st.rooms[room.ID] = &c
		return nil
	})
}

func (s *Store) GetRoom(_ context.Context, id string) (*model.Room, error) {
	r, ok := s.snapshot().rooms[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	c := *r
	return &c, nil
}

func (s *Store) ListRooms(_ context.Context) ([]*model.Room, error) {
	st := s.snapshot()
	out := make([]*model.Room, 0, len(st.rooms))
	for _, r := range st.rooms {
		c := *r
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Store) UpdateRoom(ctx context.Context, room *model.Room) error {
	return s.RunInTx(ctx, func(_ context.Context, t storage.Tx) error {
		st := t.(*tx).st
		if _, ok := st.rooms[room.ID]; !ok {
			return storage.ErrNotFound
		}
		if st.roomNameTaken(room.Name, room.ID) {
			return storage.ErrDuplicate
		}
		c := *room
		st.rooms[room.ID] = &c
		return nil
	})
}

func (s *Store) CountRooms(_ context.Context) (int64, error) {
	return int64(len(s.snapshot().rooms)), nil
}

func (s *Store) CreateCustomer(ctx context.Context, customer *model.Customer) error {
	return s.RunInTx(ctx, func(_ context.Context, t storage.Tx) error {
		st := t.(*tx).st
		if _, ok := st.customers[customer.ID]; ok {
			return storage.ErrDuplicate
		}
		if st.emailTaken(customer.Email, "") {
			return storage.ErrDuplicate
		}
		c := *customer
		st.customers[customer.ID] = &c
		return nil
	})
}

func (s *Store) GetCustomer(_ context.Context, id string) (*model.Customer, error) {
	c, ok := s.snapshot().customers[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (s *Store) GetCustomerByEmail(_ context.Context, email string) (*model.Customer, error) {
	c := s.snapshot().customerByEmail(email)
	if c == nil {
		return nil, storage.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (s *Store) ListCustomers(_ context.Context) ([]*model.Customer, error) {
	st := s.snapshot()
	out := make([]*model.Customer, 0, len(st.customers))
	for _, c := range st.customers {
		cp := *c
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Email < out[j].Email })
	return out, nil
}

func (s *Store) UpdateCustomer(ctx context.Context, customer *model.Customer) error {
	return s.RunInTx(ctx, func(_ context.Context, t storage.Tx) error {
		st := t.(*tx).st
		if _, ok := st.customers[customer.ID]; !ok {
			return storage.ErrNotFound
		}
		if st.emailTaken(customer.Email, customer.ID) {
			return storage.ErrDuplicate
		}
		c := *customer
		st.customers[customer.ID] = &c
		return nil
	})
}

// tx mutates a private copy of the state. Lock is a no-op beyond honouring the
// context because the store semaphore already serializes every unit.
type tx struct {
	st *state
}

func (t *tx) Lock(ctx context.Context, _ ...string) error {
	if ctx.Err() != nil {
		return fmt.Errorf("lock: %w", storage.ErrTimeout)
	}
	return nil
}

func (t *tx) FindRoom(_ context.Context, id string) (*model.Room, error) {
	r, ok := t.st.rooms[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	c := *r
	return &c, nil
}

func (t *tx) FindCustomer(_ context.Context, id string) (*model.Customer, error) {
	c, ok := t.st.customers[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (t *tx) FindCustomerByEmail(_ context.Context, email string) (*model.Customer, error) {
	c := t.st.customerByEmail(email)
	if c == nil {
		return nil, storage.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (t *tx) FindReservation(_ context.Context, id string) (*model.Reservation, error) {
	r, ok := t.st.reservations[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return copyReservation(r), nil
}

func (t *tx) FindReservationByIdempotencyKey(_ context.Context, key string) (*model.Reservation, error) {
	if key == "" {
		return nil, storage.ErrNotFound
	}
	for _, r := range t.st.reservations {
		if r.IdempotencyKey == key {
			return copyReservation(r), nil
		}
	}
	return nil, storage.ErrNotFound
}

func (t *tx) FindRoomReservations(_ context.Context, roomID string, from, to time.Time) ([]*model.Reservation, error) {
	out := make([]*model.Reservation, 0)
	for _, r := range t.st.reservations {
		if r.RoomID == roomID && r.StartUTC.Before(to) && r.EndUTC.After(from) {
			out = append(out, copyReservation(r))
		}
	}
	sortByStart(out)
	return out, nil
}

func (t *tx) InsertReservation(_ context.Context, r *model.Reservation) error {
	if _, ok := t.st.reservations[r.ID]; ok {
		return storage.ErrDuplicate
	}
	if r.IdempotencyKey != "" {
		for _, existing := range t.st.reservations {
			if existing.IdempotencyKey == r.IdempotencyKey {
				return storage.ErrDuplicate
			}
		}
	}
	if err := t.checkRefs(r); err != nil {
		return err
	}
	t.st.reservations[r.ID] = copyReservation(r)
	return nil
}

func (t *tx) ReplaceReservation(_ context.Context, r *model.Reservation) error {
	if _, ok := t.st.reservations[r.ID]; !ok {
		return storage.ErrNotFound
	}
	if err := t.checkRefs(r); err != nil {
		return err
	}
	t.st.reservations[r.ID] = copyReservation(r)
	return nil
}

func (t *tx) checkRefs(r *model.Reservation) error {
	if _, ok := t.st.rooms[r.RoomID]; !ok {
		return fmt.Errorf("room %s: %w", r.RoomID, storage.ErrNotFound)
	}
	if _, ok := t.st.customers[r.CustomerID]; !ok {
		return fmt.Errorf("customer %s: %w", r.CustomerID, storage.ErrNotFound)
	}
	for _, existing := range t.st.reservations {
		if existing.ID == r.ID || existing.RoomID != r.RoomID {
			continue
		}
		if existing.StartUTC.Before(r.EndUTC) && r.StartUTC.Before(existing.EndUTC) {
			return storage.ErrOverlap
		}
	}
	return nil
}

func (t *tx) DeleteReservation(_ context.Context, id string) error {
	if _, ok := t.st.reservations[id]; !ok {
		return storage.ErrNotFound
	}
	delete(t.st.reservations, id)
	return nil
}

func (t *tx) DeleteRoomReservations(_ context.Context, roomID string) ([]*model.Reservation, error) {
	return t.deleteWhere(func(r *model.Reservation) bool { return r.RoomID == roomID }), nil
}

func (t *tx) DeleteCustomerReservations(_ context.Context, customerID string) ([]*model.Reservation, error) {
	return t.deleteWhere(func(r *model.Reservation) bool { return r.CustomerID == customerID }), nil
}

func (t *tx) deleteWhere(match func(*model.Reservation) bool) []*model.Reservation {
	removed := make([]*model.Reservation, 0)
	for id, r := range t.st.reservations {
		if match(r) {
			removed = append(removed, r)
			delete(t.st.reservations, id)
		}
	}
	sortByStart(removed)
	return removed
}

func (t *tx) DeleteRoom(_ context.Context, id string) error {
	if _, ok := t.st.rooms[id]; !ok {
		return storage.ErrNotFound
	}
	t.deleteWhere(func(r *model.Reservation) bool { return r.RoomID == id })
	delete(t.st.rooms, id)
	return nil
}

func (t *tx) DeleteCustomer(_ context.Context, id string) error {
	if _, ok := t.st.customers[id]; !ok {
		return storage.ErrNotFound
	}
	t.deleteWhere(func(r *model.Reservation) bool { return r.CustomerID == id })
	delete(t.st.customers, id)
	return nil
}

func (st *state) clone() *state {
	c := &state{
		rooms:        make(map[string]*model.Room, len(st.rooms)),
		customers:    make(map[string]*model.Customer, len(st.customers)),
		reservations: make(map[string]*model.Reservation, len(st.reservations)),
	}
	// Values are never mutated in place, only replaced, so sharing pointers is safe.
	for k, v := range st.rooms {
		c.rooms[k] = v
	}
	for k, v := range st.customers {
		c.customers[k] = v
	}
	for k, v := range st.reservations {
		c.reservations[k] = v
	}
	return c
}

func (st *state) roomNameTaken(name, exceptID string) bool {
	for id, r := range st.rooms {
		if id != exceptID && strings.EqualFold(r.Name, name) {
			return true
		}
	}
	return false
}

func (st *state) emailTaken(email, exceptID string) bool {
	c := st.customerByEmail(email)
	return c != nil && c.ID != exceptID
}

func (st *state) customerByEmail(email string) *model.Customer {
	for _, c := range st.customers {
		if strings.EqualFold(c.Email, email) {
			return c
		}
	}
	return nil
}

func copyReservation(r *model.Reservation) *model.Reservation {
	c := *r
	return &c
}

func sortByStart(rs []*model.Reservation) {
	sort.Slice(rs, func(i, j int) bool {
		if rs[i].StartUTC.Equal(rs[j].StartUTC) {
			return rs[i].ID < rs[j].ID
		}
		return rs[i].StartUTC.Before(rs[j].StartUTC)
	})
}
