package pgstore

import (
	"context"
	"fmt"
	"sort"
	"time"

	"roombook/internal/storage"
	"roombook/pkg/logger"
	"roombook/pkg/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	reservationColumns = `id, room_id, customer_id, start_at, end_at, idempotency_key, created_at, updated_at`
	releaseTimeout     = 2 * time.Second
)

type tx struct {
	conn          *pgxpool.Conn
	tx            pgx.Tx
	sessionLocked bool
}

// begin opens the SERIALIZABLE transaction on first use and bounds its lock
// waits and statements by the context deadline.
func (t *tx) begin(ctx context.Context) (pgx.Tx, error) {
	if t.tx != nil {
		return t.tx, nil
	}
	pgTx, err := t.conn.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return nil, translateErr(err)
	}
	t.tx = pgTx
	if ms, ok := remainingMillis(ctx); ok {
		if _, err := pgTx.Exec(ctx, fmt.Sprintf("SET LOCAL lock_timeout = %d; SET LOCAL statement_timeout = %d", ms, ms)); err != nil {
			return nil, translateErr(err)
		}
	}
	return pgTx, nil
}

func (t *tx) q(ctx context.Context) (querier, error) {
	return t.begin(ctx)
}

func (t *tx) Lock(ctx context.Context, keys ...string) error {
	sorted := storage.SortedKeys(keys)
	if t.tx != nil {
		for _, key := range sorted {
			if _, err := t.tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`, key); err != nil {
				return translateErr(err)
			}
		}
		return nil
	}

	if ms, ok := remainingMillis(ctx); ok {
		if _, err := t.conn.Exec(ctx, `SELECT set_config('lock_timeout', $1, false)`, fmt.Sprintf("%dms", ms)); err != nil {
			return translateErr(err)
		}
	}
	t.sessionLocked = true
	for _, key := range sorted {
		if _, err := t.conn.Exec(ctx, `SELECT pg_advisory_lock(hashtextextended($1, 0))`, key); err != nil {
			return translateErr(err)
		}
	}
	return nil
}

// close rolls back an uncommitted transaction, drops session locks and returns
// the connection. A connection that cannot be cleaned is closed instead of
// being returned to the pool with locks still held.
func (t *tx) close(ctx context.Context, log *logger.Logger) {
	cleanCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), releaseTimeout)
	defer cancel()

	if t.tx != nil {
		_ = t.tx.Rollback(cleanCtx)
		t.tx = nil
	}
	if t.sessionLocked {
		if _, err := t.conn.Exec(cleanCtx, `SELECT pg_advisory_unlock_all(); RESET lock_timeout`); err != nil {
			if log != nil {
				log.Warn("failed to release advisory locks, discarding connection", "error", err)
			}
			_ = t.conn.Conn().Close(cleanCtx)
		}
	}
	t.conn.Release()
}

func (t *tx) FindRoom(ctx context.Context, id string) (*model.Room, error) {
	q, err := t.q(ctx)
	if err != nil {
		return nil, err
	}
	return getRoom(ctx, q, id)
}

func (t *tx) FindCustomer(ctx context.Context, id string) (*model.Customer, error) {
	q, err := t.q(ctx)
	if err != nil {
		return nil, err
	}
	return getCustomer(ctx, q, `id = $1`, id)
}

func (t *tx) FindCustomerByEmail(ctx context.Context, email string) (*model.Customer, error) {
	q, err := t.q(ctx)
	if err != nil {
		return nil, err
	}
	return getCustomer(ctx, q, `email = $1`, email)
}

func (t *tx) FindReservation(ctx context.Context, id string) (*model.Reservation, error) {
	q, err := t.q(ctx)
	if err != nil {
		return nil, err
	}
	return getReservation(ctx, q, `id = $1`, id)
}

func (t *tx) FindReservationByIdempotencyKey(ctx context.Context, key string) (*model.Reservation, error) {
	if key == "" {
		return nil, storage.ErrNotFound
	}
	q, err := t.q(ctx)
	if err != nil {
		return nil, err
	}
	return getReservation(ctx, q, `idempotency_key = $1`, key)
}

func (t *tx) FindRoomReservations(ctx context.Context, roomID string, from, to time.Time) ([]*model.Reservation, error) {
	q, err := t.q(ctx)
	if err != nil {
		return nil, err
	}
	return listReservations(ctx, q,
		`SELECT `+reservationColumns+` FROM reservations
		 WHERE room_id = $1 AND start_at < $3 AND end_at > $2
		 ORDER BY start_at, id`, roomID, from, to)
}

func (t *tx) InsertReservation(ctx context.Context, r *model.Reservation) error {
	q, err := t.q(ctx)
	if err != nil {
		return err
	}
	_, err = q.Exec(ctx,
		`INSERT INTO reservations (`+reservationColumns+`)
		 VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), $7, $8)`,
		r.ID, r.RoomID, r.CustomerID, r.StartUTC, r.EndUTC, r.IdempotencyKey, r.CreatedAt, r.UpdatedAt)
	return translateErr(err)
}

func (t *tx) ReplaceReservation(ctx context.Context, r *model.Reservation) error {
	q, err := t.q(ctx)
	if err != nil {
		return err
	}
	tag, err := q.Exec(ctx,
		`UPDATE reservations
		 SET room_id = $2, customer_id = $3, start_at = $4, end_at = $5, updated_at = $6
		 WHERE id = $1`,
		r.ID, r.RoomID, r.CustomerID, r.StartUTC, r.EndUTC, r.UpdatedAt)
	if err != nil {
		return translateErr(err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (t *tx) DeleteReservation(ctx context.Context, id string) error {
	return t.deleteByID(ctx, `DELETE FROM reservations WHERE id = $1`, id)
}

func (t *tx) DeleteRoomReservations(ctx context.Context, roomID string) ([]*model.Reservation, error) {
	return t.deleteReservations(ctx, `DELETE FROM reservations WHERE room_id = $1 RETURNING `+reservationColumns, roomID)
}

func (t *tx) DeleteCustomerReservations(ctx context.Context, customerID string) ([]*model.Reservation, error) {
	return t.deleteReservations(ctx, `DELETE FROM reservations WHERE customer_id = $1 RETURNING `+reservationColumns, customerID)
}

func (t *tx) deleteReservations(ctx context.Context, sql, arg string) ([]*model.Reservation, error) {
	q, err := t.q(ctx)
	if err != nil {
		return nil, err
	}
	removed, err := listReservations(ctx, q, sql, arg)
	if err != nil {
		return nil, err
	}
	sort.Slice(removed, func(i, j int) bool { return removed[i].StartUTC.Before(removed[j].StartUTC) })
	return removed, nil
}

func (t *tx) DeleteRoom(ctx context.Context, id string) error {
	return t.deleteByID(ctx, `DELETE FROM rooms WHERE id = $1`, id)
}

func (t *tx) DeleteCustomer(ctx context.Context, id string) error {
	return t.deleteByID(ctx, `DELETE FROM customers WHERE id = $1`, id)
}

func (t *tx) deleteByID(ctx context.Context, sql, id string) error {
	q, err := t.q(ctx)
	if err != nil {
		return err
	}
	tag, err := q.Exec(ctx, sql, id)
	if err != nil {
		return translateErr(err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func remainingMillis(ctx context.Context) (int64, bool) {
	deadline, ok := ctx.Deadline()
	if !ok {
		return 0, false
	}
	ms := time.Until(deadline).Milliseconds()
	if ms < 1 {
		ms = 1
	}
	return ms, true
}
