// Package pgstore persists rooms, customers and reservations in PostgreSQL.
//
// Atomic units run at SERIALIZABLE. Begin is deferred to the first statement so
// that locks requested before it are taken as session-level advisory locks
// while no snapshot exists yet; the unit then reads state committed by whoever
// held the lock before it. Locks requested after the first statement are
// transaction-scoped. An exclusion constraint on (room_id, tstzrange) guards
// against overlaps independently of the engine.
package pgstore

import (
	"context"
	"errors"
	"fmt"

	"roombook/internal/storage"
	"roombook/pkg/config"
	apperrors "roombook/pkg/errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Store struct {
	cfg  *config.Config
	pool *pgxpool.Pool
}

var _ storage.Store = (*Store)(nil)

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func New(cfg *config.Config) *Store {
	return NewWithPool(cfg, cfg.Client.Postgres)
}

func NewWithPool(cfg *config.Config, pool *pgxpool.Pool) *Store {
	return &Store{cfg: cfg, pool: pool}
}

func (s *Store) Ping(ctx context.Context) error {
	return translateErr(s.pool.Ping(ctx))
}

func (s *Store) RunInTx(ctx context.Context, fn storage.TxFunc) error {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return translateErr(err)
	}
	t := &tx{conn: conn}
	defer t.close(ctx, s.cfg.Log)

	if err := fn(ctx, t); err != nil {
		return translateErr(err)
	}
	if t.tx == nil {
		return nil
	}
	if err := t.tx.Commit(ctx); err != nil {
		return translateErr(err)
	}
	t.tx = nil
	return nil
}

const (
	sqlstateSerializationFailure = "40001"
	sqlstateDeadlockDetected     = "40P01"
	sqlstateLockNotAvailable     = "55P03"
	sqlstateQueryCanceled        = "57014"
	sqlstateUniqueViolation      = "23505"
	sqlstateExclusionViolation   = "23P01"
	sqlstateForeignKeyViolation  = "23503"
)

func translateErr(err error) error {
	if err == nil {
		return nil
	}
	if apperrors.IsAppError(err) || storage.IsStorageError(err) {
		return err
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case sqlstateSerializationFailure, sqlstateDeadlockDetected:
			return fmt.Errorf("%w: %w", storage.ErrWriteConflict, err)
		case sqlstateLockNotAvailable, sqlstateQueryCanceled:
			return fmt.Errorf("%w: %w", storage.ErrTimeout, err)
		case sqlstateUniqueViolation:
			return fmt.Errorf("%w: %w", storage.ErrDuplicate, err)
		case sqlstateExclusionViolation:
			return fmt.Errorf("%w: %w", storage.ErrOverlap, err)
		case sqlstateForeignKeyViolation:
			return fmt.Errorf("%w: %w", storage.ErrNotFound, err)
		}
	}

	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return fmt.Errorf("%w: %w", storage.ErrNotFound, err)
	case pgconn.Timeout(err), errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return fmt.Errorf("%w: %w", storage.ErrTimeout, err)
	default:
		return fmt.Errorf("%w: %w", storage.ErrUnavailable, err)
	}
}
