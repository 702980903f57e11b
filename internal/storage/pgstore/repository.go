package pgstore

import (
	"context"

	"roombook/internal/storage"
	"roombook/pkg/model"

	"github.com/jackc/pgx/v5"
)

func (s *Store) GetReservation(ctx context.Context, id string) (*model.Reservation, error) {
	return getReservation(ctx, s.pool, `id = $1`, id)
}

func (s *Store) ListRoomReservations(ctx context.Context, roomID string) ([]*model.Reservation, error) {
	return listReservations(ctx, s.pool,
		`SELECT `+reservationColumns+` FROM reservations WHERE room_id = $1 ORDER BY start_at, id`, roomID)
}

func (s *Store) ListReservations(ctx context.Context) ([]*model.Reservation, error) {
	return listReservations(ctx, s.pool,
		`SELECT `+reservationColumns+` FROM reservations ORDER BY start_at, id`)
}

func (s *Store) CreateRoom(ctx context.Context, room *model.Room) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO rooms (id, name, capacity, created_at, updated_at) VALUES ($1, $2, $3, $4, $5)`,
		room.ID, room.Name, room.Capacity, room.CreatedAt, room.UpdatedAt)
	return translateErr(err)
}

func (s *Store) GetRoom(ctx context.Context, id string) (*model.Room, error) {
	return getRoom(ctx, s.pool, id)
}

func (s *Store) ListRooms(ctx context.Context) ([]*model.Room, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, name, capacity, created_at, updated_at FROM rooms ORDER BY name`)
	if err != nil {
		return nil, translateErr(err)
	}
	defer rows.Close()

	rooms := make([]*model.Room, 0)
	for rows.Next() {
		room, err := scanRoom(rows)
		if err != nil {
			return nil, translateErr(err)
		}
		rooms = append(rooms, room)
	}
	return rooms, translateErr(rows.Err())
}

func (s *Store) UpdateRoom(ctx context.Context, room *model.Room) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE rooms SET name = $2, capacity = $3, updated_at = $4 WHERE id = $1`,
		room.ID, room.Name, room.Capacity, room.UpdatedAt)
	if err != nil {
		return translateErr(err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (s *Store) CountRooms(ctx context.Context) (int64, error) {
	var n int64
	err := s.pool.QueryRow(ctx, `SELECT count(*) FROM rooms`).Scan(&n)
	return n, translateErr(err)
}

func (s *Store) CreateCustomer(ctx context.Context, c *model.Customer) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO customers (id, email, name, phone, created_at, updated_at)
		 VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6)`,
		c.ID, c.Email, c.Name, c.Phone, c.CreatedAt, c.UpdatedAt)
	return translateErr(err)
}

func (s *Store) GetCustomer(ctx context.Context, id string) (*model.Customer, error) {
	return getCustomer(ctx, s.pool, `id = $1`, id)
}

func (s *Store) GetCustomerByEmail(ctx context.Context, email string) (*model.Customer, error) {
	return getCustomer(ctx, s.pool, `email = $1`, email)
}

func (s *Store) ListCustomers(ctx context.Context) ([]*model.Customer, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, email, name, phone, created_at, updated_at FROM customers ORDER BY email`)
	if err != nil {
		return nil, translateErr(err)
	}
	defer rows.Close()

	customers := make([]*model.Customer, 0)
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, translateErr(err)
		}
		customers = append(customers, c)
	}
	return customers, translateErr(rows.Err())
}

func (s *Store) UpdateCustomer(ctx context.Context, c *model.Customer) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE customers SET email = $2, name = $3, phone = NULLIF($4, ''), updated_at = $5 WHERE id = $1`,
		c.ID, c.Email, c.Name, c.Phone, c.UpdatedAt)
	if err != nil {
		return translateErr(err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func getRoom(ctx context.Context, q querier, id string) (*model.Room, error) {
	room, err := scanRoom(q.QueryRow(ctx, `SELECT id, name, capacity, created_at, updated_at FROM rooms WHERE id = $1`, id))
	if err != nil {
		return nil, translateErr(err)
	}
	return room, nil
}

func getCustomer(ctx context.Context, q querier, where string, arg string) (*model.Customer, error) {
	c, err := scanCustomer(q.QueryRow(ctx, `SELECT id, email, name, phone, created_at, updated_at FROM customers WHERE `+where, arg))
	if err != nil {
		return nil, translateErr(err)
	}
	return c, nil
}

func getReservation(ctx context.Context, q querier, where string, arg string) (*model.Reservation, error) {
	r, err := scanReservation(q.QueryRow(ctx, `SELECT `+reservationColumns+` FROM reservations WHERE `+where, arg))
	if err != nil {
		return nil, translateErr(err)
	}
	return r, nil
}

func listReservations(ctx context.Context, q querier, sql string, args ...any) ([]*model.Reservation, error) {
	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		return nil, translateErr(err)
	}
	defer rows.Close()

	out := make([]*model.Reservation, 0)
	for rows.Next() {
		r, err := scanReservation(rows)
		if err != nil {
			return nil, translateErr(err)
		}
		out = append(out, r)
	}
	return out, translateErr(rows.Err())
}

func scanRoom(row pgx.Row) (*model.Room, error) {
	var r model.Room
	if err := row.Scan(&r.ID, &r.Name, &r.Capacity, &r.CreatedAt, &r.UpdatedAt); err != nil {
		return nil, err
	}
	r.CreatedAt, r.UpdatedAt = r.CreatedAt.UTC(), r.UpdatedAt.UTC()
	return &r, nil
}

func scanCustomer(row pgx.Row) (*model.Customer, error) {
	var (
		c     model.Customer
		phone *string
	)
	if err := row.Scan(&c.ID, &c.Email, &c.Name, &phone, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	if phone != nil {
		c.Phone = *phone
	}
	c.CreatedAt, c.UpdatedAt = c.CreatedAt.UTC(), c.UpdatedAt.UTC()
	return &c, nil
}

func scanReservation(row pgx.Row) (*model.Reservation, error) {
	var (
		r   model.Reservation
		key *string
	)
	if err := row.Scan(&r.ID, &r.RoomID, &r.CustomerID, &r.StartUTC, &r.EndUTC, &key, &r.CreatedAt, &r.UpdatedAt); err != nil {
		return nil, err
	}
	if key != nil {
		r.IdempotencyKey = *key
	}
	r.StartUTC, r.EndUTC = r.StartUTC.UTC(), r.EndUTC.UTC()
	r.CreatedAt, r.UpdatedAt = r.CreatedAt.UTC(), r.UpdatedAt.UTC()
	return &r, nil
}
